package client

import (
	"context"
	"fmt"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/stacklok/pkgregistry-client/pkg/registry"
)

// availabilityCacheSize bounds the number of distinct registries tracked;
// real deployments configure a handful of registries, so this is generous.
const availabilityCacheSize = 256

type availabilityEntry struct {
	status registry.AvailabilityStatus
	expiry time.Time
}

// AvailabilityGate is C3: it probes a registry's /availability endpoint and
// caches the result for TTL, short-circuiting every downstream call while
// the cached result holds.
//
// A cache entry is valid while now.Before(expiry) — the corrected direction
// per SPEC_FULL.md's resolution of the inverted-comparison open question.
type AvailabilityGate struct {
	transport Transport
	ttl       time.Duration

	mu    sync.Mutex
	cache *lru.Cache[string, availabilityEntry]
}

// NewAvailabilityGate constructs a gate backed by transport, caching results
// for ttl.
func NewAvailabilityGate(transport Transport, ttl time.Duration) *AvailabilityGate {
	cache, _ := lru.New[string, availabilityEntry](availabilityCacheSize)
	return &AvailabilityGate{transport: transport, ttl: ttl, cache: cache}
}

// Check returns the availability of reg, consulting (and updating) the
// cache. Registries with SupportsAvailability == false are a no-op
// pass-through that always reports Available without issuing a request.
func (g *AvailabilityGate) Check(ctx context.Context, reg registry.Registry) (registry.AvailabilityStatus, error) {
	if !reg.SupportsAvailability {
		return registry.AvailabilityStatus{Kind: registry.AvailabilityAvailable}, nil
	}

	g.mu.Lock()
	if entry, ok := g.cache.Get(reg.URL); ok && time.Now().Before(entry.expiry) {
		g.mu.Unlock()
		return entry.status, nil
	}
	g.mu.Unlock()

	status, err := g.probe(ctx, reg)
	if err != nil {
		// Transport failure: do not cache, propagate as-is per §4.3/§7.
		return registry.AvailabilityStatus{}, err
	}

	g.mu.Lock()
	g.cache.Add(reg.URL, availabilityEntry{status: status, expiry: time.Now().Add(g.ttl)})
	g.mu.Unlock()

	return status, nil
}

// Guard applies the availability composition rule of §4.3: Available lets
// the caller proceed, Unavailable/Error map to the corresponding errors, and
// a transport failure propagates unchanged.
func (g *AvailabilityGate) Guard(ctx context.Context, reg registry.Registry) error {
	status, err := g.Check(ctx, reg)
	if err != nil {
		return err
	}
	switch status.Kind {
	case registry.AvailabilityAvailable:
		return nil
	case registry.AvailabilityUnavailable:
		return &registry.RegistryNotAvailableError{Registry: reg}
	case registry.AvailabilityError:
		return fmt.Errorf("registry %s: %s", reg.URL, status.Message)
	default:
		return fmt.Errorf("registry %s: unknown availability status", reg.URL)
	}
}

func (g *AvailabilityGate) probe(ctx context.Context, reg registry.Registry) (registry.AvailabilityStatus, error) {
	resp, err := g.transport.Execute(ctx, Request{
		Method: "GET",
		URL:    reg.URL + "/availability",
	})
	if err != nil {
		return registry.AvailabilityStatus{}, err
	}

	switch resp.StatusCode {
	case 200:
		return registry.AvailabilityStatus{Kind: registry.AvailabilityAvailable}, nil
	case 404, 501:
		return registry.AvailabilityStatus{Kind: registry.AvailabilityUnavailable}, nil
	default:
		if detail, ok := decodeProblemDetail(resp); ok {
			return registry.AvailabilityStatus{Kind: registry.AvailabilityError, Message: detail}, nil
		}
		return registry.AvailabilityStatus{
			Kind:    registry.AvailabilityError,
			Message: fmt.Sprintf("unknown server error (%d)", resp.StatusCode),
		}, nil
	}
}
