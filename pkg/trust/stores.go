package trust

import (
	"context"

	"github.com/stacklok/pkgregistry-client/pkg/registry"
)

// FingerprintStore is the external, persistent collaborator that backs
// checksum TOFU. Implementations must serialize concurrent writers.
type FingerprintStore interface {
	// Get returns the recorded fingerprint for (pkg, version, kind), and
	// false if none has been recorded yet.
	Get(ctx context.Context, pkg registry.RegistryIdentity, version registry.Version, kind registry.FingerprintKind) (registry.Fingerprint, bool, error)
	// Put records a fingerprint, overwriting any prior value.
	Put(ctx context.Context, fp registry.Fingerprint) error
}

// SigningEntityStore is the external, persistent collaborator that backs
// signing-entity TOFU, at both the per-package and per-release granularity.
// Implementations must serialize concurrent writers.
type SigningEntityStore interface {
	GetForPackage(ctx context.Context, pkg registry.RegistryIdentity) (registry.SigningEntity, bool, error)
	PutForPackage(ctx context.Context, pkg registry.RegistryIdentity, entity registry.SigningEntity) error

	GetForRelease(ctx context.Context, pkg registry.RegistryIdentity, version registry.Version) (registry.SigningEntity, bool, error)
	PutForRelease(ctx context.Context, pkg registry.RegistryIdentity, version registry.Version, entity registry.SigningEntity) error
}
