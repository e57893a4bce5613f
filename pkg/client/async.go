package client

import (
	"context"

	"github.com/stacklok/pkgregistry-client/pkg/registry"
)

// This file is the async facade required by spec.md §5: "every public
// operation is asynchronous and completes on a caller-supplied callback
// executor." Each *Async method here is RunAsync wrapped around the
// corresponding blocking method in operations.go/publish.go — the blocking
// methods stay the idiomatic Go entry point for callers using goroutines or
// errgroup directly, while these wrappers preserve the callback-queue
// contract for callers that need it (e.g. a single-threaded UI event loop
// supplying its own Executor).

// GetPackageMetadataAsync is the async form of GetPackageMetadata.
func (c *Client) GetPackageMetadataAsync(ctx context.Context, scope, name string, opts OperationOptions, callback func(*registry.PackageMetadata, error)) {
	RunAsync(opts.Executor, func() (*registry.PackageMetadata, error) {
		return c.GetPackageMetadata(ctx, scope, name, opts)
	}, callback)
}

// GetPackageVersionMetadataAsync is the async form of GetPackageVersionMetadata.
func (c *Client) GetPackageVersionMetadataAsync(ctx context.Context, scope, name string, version registry.Version, opts OperationOptions, callback func(*registry.PackageVersionMetadata, error)) {
	RunAsync(opts.Executor, func() (*registry.PackageVersionMetadata, error) {
		return c.GetPackageVersionMetadata(ctx, scope, name, version, opts)
	}, callback)
}

// GetAvailableManifestsAsync is the async form of GetAvailableManifests.
func (c *Client) GetAvailableManifestsAsync(ctx context.Context, scope, name string, version registry.Version, opts OperationOptions, callback func([]registry.ManifestVariant, error)) {
	RunAsync(opts.Executor, func() ([]registry.ManifestVariant, error) {
		return c.GetAvailableManifests(ctx, scope, name, version, opts)
	}, callback)
}

// GetManifestContentAsync is the async form of GetManifestContent.
func (c *Client) GetManifestContentAsync(ctx context.Context, scope, name string, version registry.Version, swiftVersion string, opts OperationOptions, callback func(string, error)) {
	RunAsync(opts.Executor, func() (string, error) {
		return c.GetManifestContent(ctx, scope, name, version, swiftVersion, opts)
	}, callback)
}

// LookupIdentitiesAsync is the async form of LookupIdentities.
func (c *Client) LookupIdentitiesAsync(ctx context.Context, scope, scmURL string, opts OperationOptions, callback func([]registry.Identity, error)) {
	RunAsync(opts.Executor, func() ([]registry.Identity, error) {
		return c.LookupIdentities(ctx, scope, scmURL, opts)
	}, callback)
}

// LoginAsync is the async form of Login.
func (c *Client) LoginAsync(ctx context.Context, scope string, opts OperationOptions, callback func(error)) {
	RunAsync(opts.Executor, func() (struct{}, error) {
		return struct{}{}, c.Login(ctx, scope, opts)
	}, func(_ struct{}, err error) { callback(err) })
}

// CheckAvailabilityAsync is the async form of CheckAvailability.
func (c *Client) CheckAvailabilityAsync(ctx context.Context, scope string, opts OperationOptions, callback func(registry.AvailabilityStatus, error)) {
	RunAsync(opts.Executor, func() (registry.AvailabilityStatus, error) {
		return c.CheckAvailability(ctx, scope, opts)
	}, callback)
}

// PublishAsync is the async form of Publish.
func (c *Client) PublishAsync(ctx context.Context, scope, name string, version registry.Version, req PublishRequest, opts OperationOptions, callback func(*PublishOutcome, error)) {
	RunAsync(opts.Executor, func() (*PublishOutcome, error) {
		return c.Publish(ctx, scope, name, version, req, opts)
	}, callback)
}

// fetchSourceArchiveResult bundles the identity and registry that
// FetchSourceArchive returns alongside its error, so RunAsync's
// single-result-plus-error shape can carry all three.
type fetchSourceArchiveResult struct {
	Identity registry.RegistryIdentity
	Registry registry.Registry
}

// FetchSourceArchiveAsync is the async form of FetchSourceArchive.
func (c *Client) FetchSourceArchiveAsync(ctx context.Context, scope, name string, version registry.Version, destination string, opts OperationOptions, progress ProgressFunc, callback func(registry.RegistryIdentity, registry.Registry, error)) {
	RunAsync(opts.Executor, func() (fetchSourceArchiveResult, error) {
		id, reg, err := c.FetchSourceArchive(ctx, scope, name, version, destination, opts, progress)
		return fetchSourceArchiveResult{Identity: id, Registry: reg}, err
	}, func(r fetchSourceArchiveResult, err error) { callback(r.Identity, r.Registry, err) })
}
