package enrichment

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/stacklok/pkgregistry-client/pkg/enrichment/internal/ghhttp"
	"github.com/stacklok/pkgregistry-client/pkg/registry"
)

const (
	primaryMediaType = "application/vnd.github.mercy-preview+json"
	fanOutMediaType  = "application/vnd.github.v3+json"
)

// ApiLimitsExceededError is returned when the primary GET reports zero
// remaining requests for the caller's rate-limit window.
type ApiLimitsExceededError struct{ Limit, Remaining int }

func (e *ApiLimitsExceededError) Error() string {
	return fmt.Sprintf("API rate limit exceeded (%d/%d remaining)", e.Remaining, e.Limit)
}

// InvalidAuthTokenError maps a 401 response when an auth token was supplied.
type InvalidAuthTokenError struct{}

func (*InvalidAuthTokenError) Error() string { return "invalid auth token" }

// PermissionDeniedError maps a 401 without an auth token, or a 403.
type PermissionDeniedError struct{}

func (*PermissionDeniedError) Error() string { return "permission denied" }

// NotFoundError maps a 404 from the primary repo GET.
type NotFoundError struct{ URL string }

func (e *NotFoundError) Error() string { return fmt.Sprintf("not found: %s", e.URL) }

// Provider is C9: it derives a repo's REST API URL from its source-control
// URL, fronts every fetch with a disk-backed TTL cache, and fans out five
// parallel calls to compose an aggregate Record.
type Provider struct {
	HTTP                   *ghhttp.Client
	Cache                  *DiskCache
	AuthToken              string
	RateLimitWarnThreshold int
	Now                    func() time.Time
}

// NewProvider constructs a Provider. rateLimitWarnThreshold defaults to 5
// (spec.md §4.9) when zero.
func NewProvider(httpClient *ghhttp.Client, cache *DiskCache, authToken string, rateLimitWarnThreshold int) *Provider {
	if rateLimitWarnThreshold <= 0 {
		rateLimitWarnThreshold = 5
	}
	return &Provider{
		HTTP:                   httpClient,
		Cache:                  cache,
		AuthToken:              authToken,
		RateLimitWarnThreshold: rateLimitWarnThreshold,
		Now:                    time.Now,
	}
}

// Get runs the full C9 flow for a repository identified by identity (an
// opaque cache key) whose source-control URL is scmURL.
func (p *Provider) Get(ctx context.Context, identity, scmURL string) (Record, error) {
	if cached, ok, err := p.Cache.Get(identity); err != nil {
		return Record{}, err
	} else if ok {
		return cached, nil
	}

	apiURL, err := DeriveAPIURL(scmURL)
	if err != nil {
		return Record{}, err
	}

	if err := p.fetchPrimary(ctx, apiURL); err != nil {
		return Record{}, err
	}

	record, err := p.fanOut(ctx, apiURL)
	if err != nil {
		return Record{}, err
	}

	if err := p.Cache.Put(identity, record, p.Now()); err != nil {
		return Record{}, err
	}
	return record, nil
}

// fetchPrimary issues the primary GET and applies the rate-limit and
// status-code mapping of spec.md §4.9 step 2. Its body is discarded: only
// the repo's existence/permission/limit signal matters here, the actual
// data comes from the fan-out in step 3.
func (p *Provider) fetchPrimary(ctx context.Context, apiURL string) error {
	resp, err := p.HTTP.Get(ctx, apiURL, primaryMediaType, p.AuthToken)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body) //nolint:errcheck

	if limit, remaining, ok := parseRateLimitHeaders(resp.Header); ok {
		if remaining == 0 {
			return &ApiLimitsExceededError{Limit: limit, Remaining: remaining}
		}
		if remaining < p.RateLimitWarnThreshold {
			slog.Warn("approaching code-hosting API rate limit", "remaining", remaining, "limit", limit)
		}
	}

	switch resp.StatusCode {
	case http.StatusOK:
		return nil
	case http.StatusUnauthorized:
		if p.AuthToken != "" {
			return &InvalidAuthTokenError{}
		}
		return &PermissionDeniedError{}
	case http.StatusForbidden:
		return &PermissionDeniedError{}
	case http.StatusNotFound:
		return &NotFoundError{URL: apiURL}
	default:
		return &registry.InvalidResponseStatusError{Expected: []int{200}, Actual: resp.StatusCode}
	}
}

func parseRateLimitHeaders(h http.Header) (limit, remaining int, ok bool) {
	limitStr := h.Get("X-RateLimit-Limit")
	remainingStr := h.Get("X-RateLimit-Remaining")
	if limitStr == "" || remainingStr == "" {
		return 0, 0, false
	}
	l, err1 := strconv.Atoi(limitStr)
	r, err2 := strconv.Atoi(remainingStr)
	if err1 != nil || err2 != nil {
		return 0, 0, false
	}
	return l, r, true
}

// fanOut issues the five parallel calls of step 3. Any call that does not
// answer 200 silently contributes no data, per spec.md §4.9.
func (p *Provider) fanOut(ctx context.Context, apiURL string) (Record, error) {
	var (
		releases     []Release
		contributors []Contributor
		readmeURL    string
		licenseURL   string
		languages    map[string]int
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var wire []Release
		if err := p.getJSON(gctx, apiURL+"/releases?per_page=20", &wire); err != nil {
			return nil //nolint:nilerr
		}
		releases = filterSemverTags(wire)
		return nil
	})
	g.Go(func() error {
		var wire []Contributor
		if err := p.getJSON(gctx, apiURL+"/contributors", &wire); err != nil {
			return nil //nolint:nilerr
		}
		contributors = wire
		return nil
	})
	g.Go(func() error {
		var wire struct {
			DownloadURL string `json:"download_url"`
		}
		if err := p.getJSON(gctx, apiURL+"/readme", &wire); err != nil {
			return nil //nolint:nilerr
		}
		readmeURL = wire.DownloadURL
		return nil
	})
	g.Go(func() error {
		var wire struct {
			DownloadURL string `json:"download_url"`
		}
		if err := p.getJSON(gctx, apiURL+"/license", &wire); err != nil {
			return nil //nolint:nilerr
		}
		licenseURL = wire.DownloadURL
		return nil
	})
	g.Go(func() error {
		var wire map[string]int
		if err := p.getJSON(gctx, apiURL+"/languages", &wire); err != nil {
			return nil //nolint:nilerr
		}
		languages = wire
		return nil
	})

	if err := g.Wait(); err != nil {
		return Record{}, err
	}

	return Record{
		Releases:     releases,
		Contributors: contributors,
		ReadmeURL:    readmeURL,
		LicenseURL:   licenseURL,
		Languages:    languages,
	}, nil
}

func (p *Provider) getJSON(ctx context.Context, url string, out any) error {
	resp, err := p.HTTP.Get(ctx, url, fanOutMediaType, p.AuthToken)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d from %s", resp.StatusCode, url)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func filterSemverTags(releases []Release) []Release {
	out := make([]Release, 0, len(releases))
	for _, r := range releases {
		if _, err := registry.ParseVersion(r.TagName); err == nil {
			out = append(out, r)
		}
	}
	return out
}
