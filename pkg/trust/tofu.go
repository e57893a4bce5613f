package trust

import (
	"context"
	"log/slog"

	"github.com/stacklok/pkgregistry-client/pkg/registry"
)

// ChecksumValidator is the checksum flavour of Trust-On-First-Use: it
// records the first checksum observed for a (package, version) and
// compares every subsequent observation against it.
type ChecksumValidator struct {
	store FingerprintStore
	mode  ChecksumPolicyMode
	state ChecksumPolicyState
}

// NewChecksumValidator constructs a ChecksumValidator backed by store.
func NewChecksumValidator(store FingerprintStore, mode ChecksumPolicyMode, state ChecksumPolicyState) *ChecksumValidator {
	return &ChecksumValidator{store: store, mode: mode, state: state}
}

// Observe records checksum on first use for (pkg, version), or compares it
// against the previously recorded value. Under ChecksumDisabled it is a
// no-op. Under ChecksumWarn a mismatch is logged, not failed.
func (v *ChecksumValidator) Observe(ctx context.Context, pkg registry.RegistryIdentity, version registry.Version, checksum string) error {
	if v.state == ChecksumDisabled {
		return nil
	}

	existing, ok, err := v.store.Get(ctx, pkg, version, registry.FingerprintSourceArchive)
	if err != nil {
		return err
	}
	if !ok {
		slog.Info("recording checksum on first use", "package", pkg, "version", version)
		return v.store.Put(ctx, registry.Fingerprint{
			Package: pkg,
			Version: version,
			Kind:    registry.FingerprintSourceArchive,
			Value:   checksum,
		})
	}

	if existing.Value == checksum {
		return nil
	}

	if v.mode == ChecksumWarn {
		slog.Warn("checksum changed since first use", "package", pkg, "version", version,
			"latest", checksum, "previous", existing.Value)
		return nil
	}
	return &registry.ChecksumChangedError{Latest: checksum, Previous: existing.Value}
}

// SigningEntityValidator is the signing-entity flavour of Trust-On-First-Use.
// It tracks the first signing entity observed per package, and separately
// per release. A nil (absent) signing entity is treated as "no observation"
// and can never overwrite a prior recorded value.
type SigningEntityValidator struct {
	store SigningEntityStore
}

// NewSigningEntityValidator constructs a SigningEntityValidator backed by store.
func NewSigningEntityValidator(store SigningEntityStore) *SigningEntityValidator {
	return &SigningEntityValidator{store: store}
}

// ObservePackage records or compares a signing entity at package granularity.
func (v *SigningEntityValidator) ObservePackage(ctx context.Context, pkg registry.RegistryIdentity, entity *registry.SigningEntity) error {
	if entity == nil {
		return nil
	}
	existing, ok, err := v.store.GetForPackage(ctx, pkg)
	if err != nil {
		return err
	}
	if !ok {
		slog.Info("recording signing entity on first use", "package", pkg, "entity", entity.Name)
		return v.store.PutForPackage(ctx, pkg, *entity)
	}
	if existing.Equal(*entity) {
		return nil
	}
	return &registry.SigningEntityForPackageChangedError{Package: pkg, Latest: *entity, Recorded: existing}
}

// ObserveRelease records or compares a signing entity at release granularity.
func (v *SigningEntityValidator) ObserveRelease(ctx context.Context, pkg registry.RegistryIdentity, version registry.Version, entity *registry.SigningEntity) error {
	if entity == nil {
		return nil
	}
	existing, ok, err := v.store.GetForRelease(ctx, pkg, version)
	if err != nil {
		return err
	}
	if !ok {
		slog.Info("recording release signing entity on first use", "package", pkg, "version", version, "entity", entity.Name)
		return v.store.PutForRelease(ctx, pkg, version, *entity)
	}
	if existing.Equal(*entity) {
		return nil
	}
	return &registry.SigningEntityForReleaseChangedError{Package: pkg, Version: version, Latest: *entity, Recorded: existing}
}
