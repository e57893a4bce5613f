package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"unicode/utf8"

	"go.opentelemetry.io/otel/attribute"

	"github.com/stacklok/pkgregistry-client/pkg/registry"
)

// resolveRegistry looks up the registry configured for scope without
// validating a package name, for the three operations (login,
// lookupIdentities, checkAvailability) that target a registry rather than a
// specific package.
func (c *Client) resolveRegistry(scope string) (registry.Registry, error) {
	c.mu.RLock()
	reg, ok := c.registries[scope]
	c.mu.RUnlock()
	if !ok {
		return registry.Registry{}, &registry.RegistryNotConfiguredError{Scope: scope}
	}
	return reg, nil
}

// doRequest applies the shared pre-flight of every C5 operation: refuse if
// cancelled, pass through the availability gate, then issue the request
// with the operation's timeout.
func (c *Client) doRequest(ctx context.Context, reg registry.Registry, opts OperationOptions, method, url string, mediaType registry.MediaType) (Response, error) {
	if c.isCancelled() {
		return Response{}, context.Canceled
	}
	if err := c.availability.Guard(ctx, reg); err != nil {
		return Response{}, err
	}

	reqCtx := ctx
	if timeout := opts.timeoutOrDefault(c.defaultTimeout); timeout > 0 {
		var cancel context.CancelFunc
		reqCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	resp, err := c.transport.Execute(reqCtx, Request{
		Method: method,
		URL:    url,
		Accept: registry.AcceptHeader(mediaType),
	})
	if err != nil {
		recordSpanFailure(reqCtx, err)
	}
	return resp, err
}

// GetPackageMetadata is getPackageMetadata (§4.5): the release list for a package.
func (c *Client) GetPackageMetadata(ctx context.Context, scope, name string, opts OperationOptions) (*registry.PackageMetadata, error) {
	id, reg, err := c.resolve(scope, name)
	if err != nil {
		return nil, err
	}
	ctx, span := c.startSpan(ctx, opts, "getPackageMetadata", attrRegistry.String(reg.URL), attrScope.String(id.Scope), attrName.String(id.Name))
	defer span.End()

	resp, err := c.doRequest(ctx, reg, opts, "GET", fmt.Sprintf("%s/%s/%s", reg.URL, id.Scope, id.Name), registry.MediaTypeJSON)
	if err != nil {
		return nil, &registry.FailedRetrievingReleasesError{Registry: reg, Package: id, Cause: err}
	}

	switch resp.StatusCode {
	case 200:
		if err := registry.ValidateContentVersion(resp.Header.Get("Content-Version"), true); err != nil {
			return nil, err
		}
		if err := registry.ValidateContentType(resp.Header.Get("Content-Type"), registry.MediaTypeJSON); err != nil {
			return nil, err
		}
		var wire releasesWire
		if err := json.Unmarshal(resp.Body, &wire); err != nil {
			return nil, &registry.InvalidResponseError{Reason: err.Error()}
		}
		var versions []registry.Version
		for raw, entry := range wire.Releases {
			if entry.Problem != nil {
				continue
			}
			v, err := registry.ParseVersion(raw)
			if err != nil {
				continue
			}
			versions = append(versions, v)
		}
		registry.SortVersionsDescending(versions)
		return &registry.PackageMetadata{
			Registry:           reg,
			Versions:           versions,
			AlternateLocations: registry.ParseAlternativeLocations(resp.Header.Get("Link")),
		}, nil
	case 404:
		return nil, &registry.PackageNotFoundError{Package: id}
	default:
		return nil, mapErrorStatus(reg, resp, []int{200, 404})
	}
}

func projectVersionMetadata(reg registry.Registry, wire versionMetadataWire) registry.PackageVersionMetadata {
	resources := make([]registry.Resource, 0, len(wire.Resources))
	for _, r := range wire.Resources {
		var signing *registry.SigningInfo
		if r.Signing != nil {
			signing = &registry.SigningInfo{
				SignatureBase64: r.Signing.SignatureBase64,
				SignatureFormat: r.Signing.SignatureFormat,
			}
		}
		resources = append(resources, registry.Resource{
			Name:     r.Name,
			Type:     r.Type,
			Checksum: r.Checksum,
			Signing:  signing,
		})
	}
	return registry.PackageVersionMetadata{
		Registry:       reg,
		LicenseURL:     wire.Metadata.LicenseURL,
		ReadmeURL:      wire.Metadata.ReadmeURL,
		RepositoryURLs: wire.Metadata.RepositoryURLs,
		Resources:      resources,
		Author:         wire.Metadata.Author,
		Description:    wire.Metadata.Description,
	}
}

// GetPackageVersionMetadata is getPackageVersionMetadata (§4.5), reading
// through and populating the C4 metadata cache.
func (c *Client) GetPackageVersionMetadata(ctx context.Context, scope, name string, version registry.Version, opts OperationOptions) (*registry.PackageVersionMetadata, error) {
	id, reg, err := c.resolve(scope, name)
	if err != nil {
		return nil, err
	}
	if cached, ok := c.metadata.Get(reg, id, version); ok {
		return &cached, nil
	}

	ctx, span := c.startSpan(ctx, opts, "getPackageVersionMetadata", attrRegistry.String(reg.URL), attrScope.String(id.Scope), attrName.String(id.Name))
	defer span.End()

	url := fmt.Sprintf("%s/%s/%s/%s", reg.URL, id.Scope, id.Name, version.String())
	resp, err := c.doRequest(ctx, reg, opts, "GET", url, registry.MediaTypeJSON)
	if err != nil {
		return nil, &registry.FailedRetrievingReleaseInfoError{Registry: reg, Package: id, Version: version, Cause: err}
	}

	switch resp.StatusCode {
	case 200:
		if err := registry.ValidateContentVersion(resp.Header.Get("Content-Version"), true); err != nil {
			return nil, err
		}
		if err := registry.ValidateContentType(resp.Header.Get("Content-Type"), registry.MediaTypeJSON); err != nil {
			return nil, err
		}
		var wire versionMetadataWire
		if err := json.Unmarshal(resp.Body, &wire); err != nil {
			return nil, &registry.InvalidResponseError{Reason: err.Error()}
		}
		meta := projectVersionMetadata(reg, wire)
		c.metadata.Put(reg, id, version, meta)
		return &meta, nil
	case 404:
		return nil, &registry.PackageVersionNotFoundError{Package: id, Version: version}
	default:
		return nil, mapErrorStatus(reg, resp, []int{200, 404})
	}
}

// GetAvailableManifests is getAvailableManifests (§4.5): the primary
// Package.swift plus any alternates advertised via the Link header.
func (c *Client) GetAvailableManifests(ctx context.Context, scope, name string, version registry.Version, opts OperationOptions) ([]registry.ManifestVariant, error) {
	id, reg, err := c.resolve(scope, name)
	if err != nil {
		return nil, err
	}
	ctx, span := c.startSpan(ctx, opts, "getAvailableManifests", attrRegistry.String(reg.URL), attrScope.String(id.Scope), attrName.String(id.Name))
	defer span.End()

	url := fmt.Sprintf("%s/%s/%s/%s/Package.swift", reg.URL, id.Scope, id.Name, version.String())
	resp, err := c.doRequest(ctx, reg, opts, "GET", url, registry.MediaTypeSwift)
	if err != nil {
		return nil, &registry.FailedRetrievingReleaseInfoError{Registry: reg, Package: id, Version: version, Cause: err}
	}

	switch resp.StatusCode {
	case 200:
		if err := registry.ValidateContentVersion(resp.Header.Get("Content-Version"), true); err != nil {
			return nil, err
		}
		if err := registry.ValidateContentType(resp.Header.Get("Content-Type"), registry.MediaTypeSwift); err != nil {
			return nil, err
		}
		if len(resp.Body) == 0 || !utf8.Valid(resp.Body) {
			return nil, &registry.InvalidResponseError{Reason: "manifest body is empty or not valid UTF-8"}
		}
		body := string(resp.Body)
		toolsVersion, err := registry.ParseManifestToolsVersion(body)
		if err != nil {
			return nil, err
		}
		variants := []registry.ManifestVariant{{ToolsVersion: toolsVersion, Content: &body}}

		alternates, err := registry.ParseAlternateManifests(resp.Header.Get("Link"))
		if err != nil {
			return nil, err
		}
		for _, alt := range alternates {
			variants = append(variants, registry.ManifestVariant{
				ToolsVersion: alt.ToolsVersion,
				Filename:     alt.Filename,
				URL:          alt.URL,
			})
		}
		return variants, nil
	case 404:
		return nil, &registry.PackageVersionNotFoundError{Package: id, Version: version}
	default:
		return nil, mapErrorStatus(reg, resp, []int{200, 404})
	}
}

// GetManifestContent is getManifestContent (§4.5). swiftVersion is optional;
// pass "" to omit the query parameter.
func (c *Client) GetManifestContent(ctx context.Context, scope, name string, version registry.Version, swiftVersion string, opts OperationOptions) (string, error) {
	id, reg, err := c.resolve(scope, name)
	if err != nil {
		return "", err
	}
	ctx, span := c.startSpan(ctx, opts, "getManifestContent", attrRegistry.String(reg.URL), attrScope.String(id.Scope), attrName.String(id.Name))
	defer span.End()

	url := fmt.Sprintf("%s/%s/%s/%s/Package.swift", reg.URL, id.Scope, id.Name, version.String())
	if swiftVersion != "" {
		url += "?swift-version=" + swiftVersion
	}
	resp, err := c.doRequest(ctx, reg, opts, "GET", url, registry.MediaTypeSwift)
	if err != nil {
		return "", &registry.FailedRetrievingReleaseInfoError{Registry: reg, Package: id, Version: version, Cause: err}
	}

	switch resp.StatusCode {
	case 200:
		if err := registry.ValidateContentVersion(resp.Header.Get("Content-Version"), true); err != nil {
			return "", err
		}
		if err := registry.ValidateContentType(resp.Header.Get("Content-Type"), registry.MediaTypeSwift); err != nil {
			return "", err
		}
		if !utf8.Valid(resp.Body) {
			return "", &registry.InvalidResponseError{Reason: "manifest body is not valid UTF-8"}
		}
		return string(resp.Body), nil
	case 404:
		return "", &registry.PackageVersionNotFoundError{Package: id, Version: version}
	default:
		return "", mapErrorStatus(reg, resp, []int{200, 404})
	}
}

// LookupIdentities is lookupIdentities (§4.5). A 404 is not an error: it
// yields an empty, valid result.
func (c *Client) LookupIdentities(ctx context.Context, scope, scmURL string, opts OperationOptions) ([]registry.Identity, error) {
	reg, err := c.resolveRegistry(scope)
	if err != nil {
		return nil, err
	}
	ctx, span := c.startSpan(ctx, opts, "lookupIdentities", attrRegistry.String(reg.URL), attribute.String("pkgregistry.scm_url", scmURL))
	defer span.End()

	lookupURL := fmt.Sprintf("%s/identifiers?url=%s", reg.URL, url.QueryEscape(scmURL))
	resp, err := c.doRequest(ctx, reg, opts, "GET", lookupURL, registry.MediaTypeJSON)
	if err != nil {
		return nil, &registry.FailedIdentityLookupError{Registry: reg, SCMURL: scmURL, Cause: err}
	}

	switch resp.StatusCode {
	case 200:
		if err := registry.ValidateContentVersion(resp.Header.Get("Content-Version"), true); err != nil {
			return nil, err
		}
		if err := registry.ValidateContentType(resp.Header.Get("Content-Type"), registry.MediaTypeJSON); err != nil {
			return nil, err
		}
		var wire identifiersWire
		if err := json.Unmarshal(resp.Body, &wire); err != nil {
			return nil, &registry.InvalidResponseError{Reason: err.Error()}
		}
		out := make([]registry.Identity, len(wire.Identifiers))
		for i, s := range wire.Identifiers {
			out[i] = registry.Identity(s)
		}
		return out, nil
	case 404:
		return nil, nil
	default:
		return nil, mapErrorStatus(reg, resp, []int{200, 404})
	}
}

// Login is login (§4.5): a bare POST to the registry's configured login URL.
func (c *Client) Login(ctx context.Context, scope string, opts OperationOptions) error {
	reg, err := c.resolveRegistry(scope)
	if err != nil {
		return err
	}
	if reg.LoginURL == "" {
		return &registry.MissingConfigurationError{Details: "registry has no loginURL configured"}
	}
	ctx, span := c.startSpan(ctx, opts, "login", attrRegistry.String(reg.URL))
	defer span.End()

	if c.isCancelled() {
		return context.Canceled
	}
	if err := c.availability.Guard(ctx, reg); err != nil {
		return err
	}
	reqCtx := ctx
	if timeout := opts.timeoutOrDefault(c.defaultTimeout); timeout > 0 {
		var cancel context.CancelFunc
		reqCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	resp, err := c.transport.Execute(reqCtx, Request{Method: "POST", URL: reg.LoginURL})
	if err != nil {
		recordSpanFailure(ctx, err)
		return err
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	err = mapErrorStatus(reg, resp, []int{200, 201, 204})
	recordSpanFailure(ctx, err)
	return err
}

// CheckAvailability is checkAvailability (§4.5/§4.3), exposed publicly so
// callers can probe a registry without issuing a package-targeted operation.
func (c *Client) CheckAvailability(ctx context.Context, scope string, opts OperationOptions) (registry.AvailabilityStatus, error) {
	reg, err := c.resolveRegistry(scope)
	if err != nil {
		return registry.AvailabilityStatus{}, err
	}
	ctx, span := c.startSpan(ctx, opts, "checkAvailability", attrRegistry.String(reg.URL))
	defer span.End()
	status, err := c.availability.Check(ctx, reg)
	recordSpanFailure(ctx, err)
	return status, err
}

// FetchSourceArchive issues the raw, streaming GET that backs
// downloadSourceArchive (§4.5/§4.6 step 3): it does not perform trust
// validation, extraction, or sidecar writing — those are pkg/download's job.
// Destination must not already exist.
func (c *Client) FetchSourceArchive(ctx context.Context, scope, name string, version registry.Version, destination string, opts OperationOptions, progress ProgressFunc) (registry.RegistryIdentity, registry.Registry, error) {
	id, reg, err := c.resolve(scope, name)
	if err != nil {
		return registry.RegistryIdentity{}, registry.Registry{}, err
	}
	ctx, span := c.startSpan(ctx, opts, "fetchSourceArchive", attrRegistry.String(reg.URL), attrScope.String(id.Scope), attrName.String(id.Name), attribute.String("pkgregistry.version", version.String()))
	defer span.End()

	if c.isCancelled() {
		return id, reg, context.Canceled
	}
	if err := c.availability.Guard(ctx, reg); err != nil {
		recordSpanFailure(ctx, err)
		return id, reg, err
	}

	reqCtx := ctx
	if timeout := opts.timeoutOrDefault(c.defaultTimeout); timeout > 0 {
		var cancel context.CancelFunc
		reqCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	url := fmt.Sprintf("%s/%s/%s/%s.zip", reg.URL, id.Scope, id.Name, version.String())
	resp, err := c.transport.Download(reqCtx, Request{
		Method: "GET",
		URL:    url,
		Accept: registry.AcceptHeader(registry.MediaTypeZip),
	}, destination, progress)
	if err != nil {
		recordSpanFailure(ctx, err)
		return id, reg, err
	}

	switch resp.StatusCode {
	case 200:
		if err := registry.ValidateContentVersion(resp.Header.Get("Content-Version"), true); err != nil {
			recordSpanFailure(ctx, err)
			return id, reg, err
		}
		if err := registry.ValidateContentType(resp.Header.Get("Content-Type"), registry.MediaTypeZip); err != nil {
			recordSpanFailure(ctx, err)
			return id, reg, err
		}
		return id, reg, nil
	case 404:
		err := &registry.PackageVersionNotFoundError{Package: id, Version: version}
		recordSpanFailure(ctx, err)
		return id, reg, err
	default:
		err := mapErrorStatus(reg, resp, []int{200, 404})
		recordSpanFailure(ctx, err)
		return id, reg, err
	}
}
