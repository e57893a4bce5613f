package enrichment

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stacklok/pkgregistry-client/pkg/enrichment/internal/ghhttp"
)

func newTestProvider(t *testing.T) *Provider {
	t.Helper()
	cache, err := OpenDiskCache(filepath.Join(t.TempDir(), "enrichment.db"), time.Hour)
	require.NoError(t, err)
	t.Cleanup(func() { _ = cache.Close() })
	return NewProvider(ghhttp.New(""), cache, "", 5)
}

func TestProvider_FetchPrimary_SuccessWarnsBelowThreshold(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("X-RateLimit-Limit", "60")
		w.Header().Set("X-RateLimit-Remaining", "3")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	p := newTestProvider(t)
	err := p.fetchPrimary(context.Background(), srv.URL)
	require.NoError(t, err)
}

func TestProvider_FetchPrimary_RateLimitExceeded(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("X-RateLimit-Limit", "60")
		w.Header().Set("X-RateLimit-Remaining", "0")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	p := newTestProvider(t)
	err := p.fetchPrimary(context.Background(), srv.URL)
	var want *ApiLimitsExceededError
	require.ErrorAs(t, err, &want)
}

func TestProvider_FetchPrimary_NotFound(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	p := newTestProvider(t)
	err := p.fetchPrimary(context.Background(), srv.URL)
	var want *NotFoundError
	require.ErrorAs(t, err, &want)
}

func TestProvider_FetchPrimary_UnauthorizedWithoutToken(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	p := newTestProvider(t)
	err := p.fetchPrimary(context.Background(), srv.URL)
	var want *PermissionDeniedError
	require.ErrorAs(t, err, &want)
}

func TestProvider_FetchPrimary_UnauthorizedWithToken(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer secret-token", r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	cache, err := OpenDiskCache(filepath.Join(t.TempDir(), "enrichment.db"), time.Hour)
	require.NoError(t, err)
	defer cache.Close()
	p := NewProvider(ghhttp.New("secret-token"), cache, "secret-token", 5)

	err = p.fetchPrimary(context.Background(), srv.URL)
	var want *InvalidAuthTokenError
	require.ErrorAs(t, err, &want)
}

func TestProvider_FanOut_ComposesRecordAndSkipsFailures(t *testing.T) {
	t.Parallel()
	mux := http.NewServeMux()
	mux.HandleFunc("/releases", func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode([]Release{{TagName: "1.2.3"}, {TagName: "not-a-version"}})
	})
	mux.HandleFunc("/contributors", func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode([]Contributor{{Login: "jane"}})
	})
	mux.HandleFunc("/readme", func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"download_url": "https://example.test/readme"})
	})
	mux.HandleFunc("/license", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound) // silently yields no data
	})
	mux.HandleFunc("/languages", func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]int{"Go": 12345})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	p := newTestProvider(t)
	record, err := p.fanOut(context.Background(), srv.URL)
	require.NoError(t, err)

	require.Len(t, record.Releases, 1)
	assert.Equal(t, "1.2.3", record.Releases[0].TagName)
	require.Len(t, record.Contributors, 1)
	assert.Equal(t, "jane", record.Contributors[0].Login)
	assert.Equal(t, "https://example.test/readme", record.ReadmeURL)
	assert.Empty(t, record.LicenseURL)
	assert.Equal(t, 12345, record.Languages["Go"])
}

func TestDiskCache_RoundTripAndExpiry(t *testing.T) {
	t.Parallel()
	cache, err := OpenDiskCache(filepath.Join(t.TempDir(), "cache.db"), 10*time.Millisecond)
	require.NoError(t, err)
	defer cache.Close()

	record := Record{ReadmeURL: "https://example.test/readme"}
	now := time.Now()
	require.NoError(t, cache.Put("mona/lib", record, now))

	got, ok, err := cache.Get("mona/lib")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, record, got)

	time.Sleep(20 * time.Millisecond)
	_, ok, err = cache.Get("mona/lib")
	require.NoError(t, err)
	assert.False(t, ok, "entry must be treated as expired past its TTL")
}
