package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stacklok/pkgregistry-client/pkg/trust"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadConfig_AppliesDefaultsForUnsetFields(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, `
registries:
  - scope: mona
    url: https://registry.example.test
    supportsAvailability: true
`)

	cfg, err := NewYAMLLoader().LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, DefaultAvailabilityTTL, cfg.AvailabilityTTL)
	assert.Equal(t, DefaultMetadataTTL, cfg.MetadataTTL)
	assert.Equal(t, DefaultEnrichmentCacheTTL, cfg.Enrichment.CacheTTL)
	assert.Equal(t, DefaultRateLimitWarnThreshold, cfg.Enrichment.RateLimitWarnThreshold)
}

func TestLoadConfig_PreservesExplicitValues(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, `
registries:
  - scope: mona
    url: https://registry.example.test
availabilityTTL: 90s
metadataTTL: 2h
enrichment:
  cacheTTL: 10m
  rateLimitWarnThreshold: 20
`)

	cfg, err := NewYAMLLoader().LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 90*time.Second, cfg.AvailabilityTTL)
	assert.Equal(t, 2*time.Hour, cfg.MetadataTTL)
	assert.Equal(t, 10*time.Minute, cfg.Enrichment.CacheTTL)
	assert.Equal(t, 20, cfg.Enrichment.RateLimitWarnThreshold)
}

func TestLoadConfig_MissingFile(t *testing.T) {
	t.Parallel()
	_, err := NewYAMLLoader().LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestRegistries_ProjectsLoginURL(t *testing.T) {
	t.Parallel()
	cfg := &Config{RegistryConfigs: []RegistryConfig{
		{Scope: "mona", URL: "https://registry.example.test", SupportsAvailability: true, LoginURL: "https://registry.example.test/login"},
	}}

	regs := cfg.Registries()
	require.Contains(t, regs, "mona")
	assert.Equal(t, "https://registry.example.test", regs["mona"].URL)
	assert.True(t, regs["mona"].SupportsAvailability)
	assert.Equal(t, "https://registry.example.test/login", regs["mona"].LoginURL)
}

func TestTrustPolicy_DefaultsToWarnWarnStrictEnabled(t *testing.T) {
	t.Parallel()
	cfg := &Config{}
	policy, err := cfg.TrustPolicy()
	require.NoError(t, err)
	assert.Equal(t, trust.PolicyWarn, policy.OnUnsigned)
	assert.Equal(t, trust.PolicyWarn, policy.OnUntrustedCertificate)
	assert.Equal(t, trust.ChecksumStrict, policy.ChecksumPolicyMode)
	assert.Equal(t, trust.ChecksumEnabled, policy.ChecksumPolicyState)
}

func TestTrustPolicy_ParsesConfiguredValues(t *testing.T) {
	t.Parallel()
	cfg := &Config{Trust: TrustConfig{
		OnUnsigned:             "Error",
		OnUntrustedCertificate: "SilentAllow",
		ChecksumPolicyMode:     "Warn",
		ChecksumPolicyState:    "Disabled",
	}}
	policy, err := cfg.TrustPolicy()
	require.NoError(t, err)
	assert.Equal(t, trust.PolicyError, policy.OnUnsigned)
	assert.Equal(t, trust.PolicySilentAllow, policy.OnUntrustedCertificate)
	assert.Equal(t, trust.ChecksumWarn, policy.ChecksumPolicyMode)
	assert.Equal(t, trust.ChecksumDisabled, policy.ChecksumPolicyState)
}

func TestTrustPolicy_RejectsUnknownPolicyName(t *testing.T) {
	t.Parallel()
	cfg := &Config{Trust: TrustConfig{OnUnsigned: "Nonsense"}}
	_, err := cfg.TrustPolicy()
	require.Error(t, err)
}
