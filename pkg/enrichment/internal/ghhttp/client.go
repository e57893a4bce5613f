// Package ghhttp is the small retry/circuit-breaking HTTP client the
// metadata-enrichment provider issues its requests through (spec.md §4.9
// HTTP defaults): a 1-second per-request timeout, exponential-backoff retry
// with 3 attempts and a 50ms base delay, and a host-level circuit breaker
// that opens after 50 errors within 30 seconds.
package ghhttp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/sony/gobreaker"
)

// Client issues GET requests with the retry/circuit-breaker policy above.
type Client struct {
	http    *http.Client
	breaker *gobreaker.CircuitBreaker[*http.Response]
}

// New constructs a Client for a single host. authToken is not stored: the
// bearer token is whatever each Get call passes.
func New(authToken string) *Client {
	httpClient := &http.Client{Timeout: time.Second}

	breakerSettings := gobreaker.Settings{
		Name:     "enrichment-provider",
		Interval: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.TotalFailures >= 50
		},
	}

	return &Client{
		http:    httpClient,
		breaker: gobreaker.NewCircuitBreaker[*http.Response](breakerSettings),
	}
}

// Get issues a single retried, circuit-broken GET to url with the given
// Accept header and (if configured) bearer auth.
func (c *Client) Get(ctx context.Context, url, accept, authToken string) (*http.Response, error) {
	operation := func() (*http.Response, error) {
		resp, err := c.breaker.Execute(func() (*http.Response, error) {
			return c.doOnce(ctx, url, accept, authToken)
		})
		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) {
				// The breaker itself decides when to half-open again; retrying
				// immediately would just trip it harder.
				return nil, backoff.Permanent(err)
			}
			return nil, err
		}
		return resp, nil
	}

	resp, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(retryBackOff()),
		backoff.WithMaxTries(3),
	)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", url, err)
	}
	return resp, nil
}

func retryBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 50 * time.Millisecond
	return b
}

func (c *Client) doOnce(ctx context.Context, url, accept, authToken string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	if accept != "" {
		req.Header.Set("Accept", accept)
	}
	if authToken != "" {
		req.Header.Set("Authorization", "Bearer "+authToken)
	}
	return c.http.Do(req)
}
