// Package client implements the registry protocol engine: the availability
// gate (C3), the metadata cache (C4), and the nine request-issuing
// operations (C5) of spec.md §4.3-§4.5.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/stacklok/pkgregistry-client/pkg/registry"
)

// Attribute keys recorded on every C5 operation's span. Unlike a generic
// span-helper package, these name the registry/package identity a given
// operation actually resolved, not a placeholder shape.
const (
	attrOperation = attribute.Key("pkgregistry.operation")
	attrRegistry  = attribute.Key("pkgregistry.registry_url")
	attrScope     = attribute.Key("pkgregistry.scope")
	attrName      = attribute.Key("pkgregistry.name")
)

// problemDetail is the minimal application/problem+json shape (spec.md §6).
type problemDetail struct {
	Detail string `json:"detail"`
}

// decodeProblemDetail attempts to parse resp as an application/problem+json
// body. It returns false if the content type doesn't match or the body
// doesn't parse.
func decodeProblemDetail(resp Response) (string, bool) {
	if !registry.IsProblemContentType(resp.Header.Get("Content-Type")) {
		return "", false
	}
	var p problemDetail
	if err := json.Unmarshal(resp.Body, &p); err != nil || p.Detail == "" {
		return "", false
	}
	return p.Detail, true
}

// OperationOptions carries the per-call overrides every C5 operation accepts:
// a timeout override, an observability scope name, and the Executor that
// async variants deliver their callback on.
type OperationOptions struct {
	Timeout           time.Duration
	ObservabilityScope string
	Executor          Executor
}

func (o OperationOptions) timeoutOrDefault(def time.Duration) time.Duration {
	if o.Timeout > 0 {
		return o.Timeout
	}
	return def
}

// Client is the registry protocol engine. It resolves registry identities
// against a configured scope map, gates every call through an
// AvailabilityGate, and caches version metadata in a MetadataCache.
type Client struct {
	transport Transport

	mu         sync.RWMutex
	registries map[string]registry.Registry

	availability *AvailabilityGate
	metadata     *MetadataCache

	defaultTimeout time.Duration
	tracer         trace.Tracer

	cancelled chan struct{}
}

// New constructs a Client. registries maps scope to its configured
// Registry; availabilityTTL/metadataTTL configure C3/C4 (zero selects the
// spec defaults of 5 and 60 minutes respectively).
func New(transport Transport, registries map[string]registry.Registry, availabilityTTL, metadataTTL time.Duration) *Client {
	if availabilityTTL <= 0 {
		availabilityTTL = 5 * time.Minute
	}
	if metadataTTL <= 0 {
		metadataTTL = 60 * time.Minute
	}
	regs := make(map[string]registry.Registry, len(registries))
	for k, v := range registries {
		regs[k] = v
	}
	return &Client{
		transport:      transport,
		registries:     regs,
		availability:   NewAvailabilityGate(transport, availabilityTTL),
		metadata:       NewMetadataCache(metadataTTL),
		defaultTimeout: 30 * time.Second,
		tracer:         otel.Tracer("github.com/stacklok/pkgregistry-client/pkg/client"),
		cancelled:      make(chan struct{}),
	}
}

// Cancel instructs the transport to abort in-flight requests and refuses to
// start new ones, per spec.md §5. deadline bounds how long callers should
// wait for in-flight operations to observe the abort; it is advisory — the
// actual abort is cooperative via ctx cancellation propagated to Transport.
func (c *Client) Cancel(deadline time.Duration) {
	select {
	case <-c.cancelled:
		// already cancelled
	default:
		close(c.cancelled)
	}
	_ = deadline
}

func (c *Client) isCancelled() bool {
	select {
	case <-c.cancelled:
		return true
	default:
		return false
	}
}

// resolve normalizes scope/name into a RegistryIdentity and looks up its
// configured Registry, implementing the invariant that every operation
// fails fast (before any network I/O) for an invalid identity or an
// unconfigured scope.
func (c *Client) resolve(scope, name string) (registry.RegistryIdentity, registry.Registry, error) {
	id, err := registry.ParseRegistryIdentity(scope, name)
	if err != nil {
		return registry.RegistryIdentity{}, registry.Registry{}, err
	}
	c.mu.RLock()
	reg, ok := c.registries[id.Scope]
	c.mu.RUnlock()
	if !ok {
		return registry.RegistryIdentity{}, registry.Registry{}, &registry.RegistryNotConfiguredError{Scope: id.Scope}
	}
	return id, reg, nil
}

// startSpan opens the span backing a C5 operation's observability-scope
// parameter (spec.md §4.5). attrs carries whatever of the operation's
// resolved registry/package identity is available at the call site —
// scope-only operations (login, checkAvailability) pass just the registry
// URL, package operations add scope and name. c.tracer is never nil (New
// always constructs one via otel.Tracer), so unlike a generic span helper
// this skips the nil-tracer fallback: a no-op tracer is what otel.Tracer
// already returns when no provider is registered.
func (c *Client) startSpan(ctx context.Context, opts OperationOptions, opName string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	name := opts.ObservabilityScope
	if name == "" {
		name = opName
	}
	all := make([]attribute.KeyValue, 0, len(attrs)+1)
	all = append(all, attrOperation.String(opName))
	all = append(all, attrs...)
	return c.tracer.Start(ctx, name, trace.WithAttributes(all...))
}

// recordSpanFailure records err (if non-nil) on the span active in ctx and
// marks it failed. The status description is a fixed string rather than
// err.Error() so registry URLs, checksums, or other response content never
// end up in exported trace data; the full error is still attached via the
// span's recorded exception event for local debugging.
func recordSpanFailure(ctx context.Context, err error) {
	if err == nil {
		return
	}
	span := trace.SpanFromContext(ctx)
	span.RecordError(err)
	span.SetStatus(codes.Error, "operation failed")
}

// mapErrorStatus implements the shared "any status not in the expected set"
// fallback of §4.5: try application/problem+json first, then the table of
// well-known codes, then InvalidResponseStatus.
func mapErrorStatus(reg registry.Registry, resp Response, expected []int) error {
	if detail, ok := decodeProblemDetail(resp); ok {
		return &registry.ServerError{Code: resp.StatusCode, Detail: detail}
	}
	switch resp.StatusCode {
	case 401:
		return &registry.UnauthorizedError{Registry: reg}
	case 403:
		return &registry.ForbiddenError{Registry: reg}
	case 501:
		return &registry.AuthenticationMethodNotSupportedError{Registry: reg}
	case 500, 502, 503:
		return &registry.ServerError{Code: resp.StatusCode, Detail: fmt.Sprintf("unknown server error (%d)", resp.StatusCode)}
	default:
		return &registry.InvalidResponseStatusError{Expected: expected, Actual: resp.StatusCode}
	}
}
