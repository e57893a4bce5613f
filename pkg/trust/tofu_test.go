package trust

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stacklok/pkgregistry-client/pkg/registry"
)

type memFingerprintStore struct {
	mu   sync.Mutex
	data map[string]registry.Fingerprint
}

func newMemFingerprintStore() *memFingerprintStore {
	return &memFingerprintStore{data: map[string]registry.Fingerprint{}}
}

func fpKey(pkg registry.RegistryIdentity, version registry.Version, kind registry.FingerprintKind) string {
	return fmt.Sprintf("%s@%s#%d", pkg.String(), version.String(), kind)
}

func (s *memFingerprintStore) Get(_ context.Context, pkg registry.RegistryIdentity, version registry.Version, kind registry.FingerprintKind) (registry.Fingerprint, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fp, ok := s.data[fpKey(pkg, version, kind)]
	return fp, ok, nil
}

func (s *memFingerprintStore) Put(_ context.Context, fp registry.Fingerprint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[fpKey(fp.Package, fp.Version, fp.Kind)] = fp
	return nil
}

type memSigningEntityStore struct {
	mu        sync.Mutex
	byPackage map[string]registry.SigningEntity
	byRelease map[string]registry.SigningEntity
}

func newMemSigningEntityStore() *memSigningEntityStore {
	return &memSigningEntityStore{byPackage: map[string]registry.SigningEntity{}, byRelease: map[string]registry.SigningEntity{}}
}

func (s *memSigningEntityStore) GetForPackage(_ context.Context, pkg registry.RegistryIdentity) (registry.SigningEntity, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.byPackage[pkg.String()]
	return e, ok, nil
}

func (s *memSigningEntityStore) PutForPackage(_ context.Context, pkg registry.RegistryIdentity, entity registry.SigningEntity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byPackage[pkg.String()] = entity
	return nil
}

func (s *memSigningEntityStore) GetForRelease(_ context.Context, pkg registry.RegistryIdentity, version registry.Version) (registry.SigningEntity, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.byRelease[pkg.String()+"@"+version.String()]
	return e, ok, nil
}

func (s *memSigningEntityStore) PutForRelease(_ context.Context, pkg registry.RegistryIdentity, version registry.Version, entity registry.SigningEntity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byRelease[pkg.String()+"@"+version.String()] = entity
	return nil
}

func TestChecksumValidator_FirstUseThenMatch(t *testing.T) {
	t.Parallel()
	store := newMemFingerprintStore()
	v := NewChecksumValidator(store, ChecksumStrict, ChecksumEnabled)
	pkg := registry.RegistryIdentity{Scope: "mona", Name: "lib"}
	version, err := registry.ParseVersion("1.0.0")
	require.NoError(t, err)

	require.NoError(t, v.Observe(context.Background(), pkg, version, "deadbeef"))
	require.NoError(t, v.Observe(context.Background(), pkg, version, "deadbeef"))
}

func TestChecksumValidator_StrictMismatchFails(t *testing.T) {
	t.Parallel()
	store := newMemFingerprintStore()
	v := NewChecksumValidator(store, ChecksumStrict, ChecksumEnabled)
	pkg := registry.RegistryIdentity{Scope: "mona", Name: "lib"}
	version, err := registry.ParseVersion("1.0.0")
	require.NoError(t, err)

	require.NoError(t, v.Observe(context.Background(), pkg, version, "deadbeef"))
	err = v.Observe(context.Background(), pkg, version, "cafebabe")
	var want *registry.ChecksumChangedError
	require.ErrorAs(t, err, &want)
	assert.Equal(t, "cafebabe", want.Latest)
	assert.Equal(t, "deadbeef", want.Previous)
}

func TestChecksumValidator_WarnModeAllowsMismatch(t *testing.T) {
	t.Parallel()
	store := newMemFingerprintStore()
	v := NewChecksumValidator(store, ChecksumWarn, ChecksumEnabled)
	pkg := registry.RegistryIdentity{Scope: "mona", Name: "lib"}
	version, err := registry.ParseVersion("1.0.0")
	require.NoError(t, err)

	require.NoError(t, v.Observe(context.Background(), pkg, version, "deadbeef"))
	require.NoError(t, v.Observe(context.Background(), pkg, version, "cafebabe"))
}

func TestChecksumValidator_DisabledSkipsEntirely(t *testing.T) {
	t.Parallel()
	store := newMemFingerprintStore()
	v := NewChecksumValidator(store, ChecksumStrict, ChecksumDisabled)
	pkg := registry.RegistryIdentity{Scope: "mona", Name: "lib"}
	version, err := registry.ParseVersion("1.0.0")
	require.NoError(t, err)

	require.NoError(t, v.Observe(context.Background(), pkg, version, "deadbeef"))
	require.NoError(t, v.Observe(context.Background(), pkg, version, "cafebabe"))
	_, ok, _ := store.Get(context.Background(), pkg, version, registry.FingerprintSourceArchive)
	assert.False(t, ok)
}

func TestSigningEntityValidator_PackageLevel(t *testing.T) {
	t.Parallel()
	store := newMemSigningEntityStore()
	v := NewSigningEntityValidator(store)
	pkg := registry.RegistryIdentity{Scope: "mona", Name: "lib"}
	first := registry.SigningEntity{Name: "Jane"}
	second := registry.SigningEntity{Name: "Mallory"}

	require.NoError(t, v.ObservePackage(context.Background(), pkg, &first))
	require.NoError(t, v.ObservePackage(context.Background(), pkg, &first))

	err := v.ObservePackage(context.Background(), pkg, &second)
	var want *registry.SigningEntityForPackageChangedError
	require.ErrorAs(t, err, &want)
}

func TestSigningEntityValidator_NilEntityIsNotAnObservation(t *testing.T) {
	t.Parallel()
	store := newMemSigningEntityStore()
	v := NewSigningEntityValidator(store)
	pkg := registry.RegistryIdentity{Scope: "mona", Name: "lib"}

	require.NoError(t, v.ObservePackage(context.Background(), pkg, nil))
	_, ok, _ := store.GetForPackage(context.Background(), pkg)
	assert.False(t, ok)

	first := registry.SigningEntity{Name: "Jane"}
	require.NoError(t, v.ObservePackage(context.Background(), pkg, &first))
	require.NoError(t, v.ObservePackage(context.Background(), pkg, nil))
	got, ok, _ := store.GetForPackage(context.Background(), pkg)
	require.True(t, ok)
	assert.Equal(t, first, got)
}

func TestSigningEntityValidator_ReleaseLevel(t *testing.T) {
	t.Parallel()
	store := newMemSigningEntityStore()
	v := NewSigningEntityValidator(store)
	pkg := registry.RegistryIdentity{Scope: "mona", Name: "lib"}
	version, err := registry.ParseVersion("2.0.0")
	require.NoError(t, err)
	first := registry.SigningEntity{Name: "Jane"}
	second := registry.SigningEntity{Name: "Mallory"}

	require.NoError(t, v.ObserveRelease(context.Background(), pkg, version, &first))
	err = v.ObserveRelease(context.Background(), pkg, version, &second)
	var want *registry.SigningEntityForReleaseChangedError
	require.ErrorAs(t, err, &want)
}
