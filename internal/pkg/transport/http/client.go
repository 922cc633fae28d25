// Package http provides a configurable HTTP client with retry logic. It wraps
// the retryablehttp.Client from HashiCorp and exposes functional options for
// timeouts, retry behavior, and default request headers (used for RPC
// endpoints that require API-key authentication).
package http

import (
	"context"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

// headerRoundTripper injects a fixed set of headers into every outgoing
// request before delegating to the underlying transport.
type headerRoundTripper struct {
	headers map[string]string
	next    http.RoundTripper
}

func (t *headerRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	for k, v := range t.headers {
		req.Header.Set(k, v)
	}
	return t.next.RoundTrip(req)
}

// config holds internal settings for the HTTP client.
type config struct {
	timeout      time.Duration     // maximum duration for a single HTTP request
	retryWaitMin time.Duration     // minimum delay between retry attempts
	retryWaitMax time.Duration     // maximum delay between retry attempts
	retryMax     int               // maximum number of retry attempts
	headers      map[string]string // headers applied to every request
}

// Option defines a functional option for configuring the HTTP client.
type Option func(*config)

// NewClient returns a retryablehttp.Client configured with the provided
// options.
//
// Defaults: 5s timeout, 1s min retry wait, 5s max retry wait, 2 retries,
// no extra headers. Retries on HTTP 429 are disabled so callers can apply
// their own rate-limit backoff policy.
func NewClient(opts ...Option) *retryablehttp.Client {
	cfg := config{
		timeout:      5 * time.Second,
		retryWaitMin: 1 * time.Second,
		retryWaitMax: 5 * time.Second,
		retryMax:     2,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	client := retryablehttp.NewClient()
	client.Logger = nil
	client.HTTPClient.Timeout = cfg.timeout
	client.RetryWaitMin = cfg.retryWaitMin
	client.RetryWaitMax = cfg.retryWaitMax
	client.RetryMax = cfg.retryMax

	// 429 must surface to the caller, not be absorbed by transport retries.
	client.CheckRetry = func(ctx context.Context, resp *http.Response, err error) (bool, error) {
		if resp != nil && resp.StatusCode == http.StatusTooManyRequests {
			return false, nil
		}
		return retryablehttp.DefaultRetryPolicy(ctx, resp, err)
	}

	if len(cfg.headers) > 0 {
		client.HTTPClient.Transport = &headerRoundTripper{
			headers: cfg.headers,
			next:    client.HTTPClient.Transport,
		}
	}

	return client
}

// WithTimeout sets the maximum duration allowed for a single HTTP request.
func WithTimeout(d time.Duration) Option {
	return func(c *config) {
		c.timeout = d
	}
}

// WithRetryWaitMin sets the minimum delay between retry attempts.
func WithRetryWaitMin(d time.Duration) Option {
	return func(c *config) {
		c.retryWaitMin = d
	}
}

// WithRetryWaitMax sets the maximum delay between retry attempts.
func WithRetryWaitMax(d time.Duration) Option {
	return func(c *config) {
		c.retryWaitMax = d
	}
}

// WithRetryMax sets the maximum number of retry attempts for failed requests.
func WithRetryMax(n int) Option {
	return func(c *config) {
		c.retryMax = n
	}
}

// WithHeaders sets headers applied to every request sent by the client.
func WithHeaders(h map[string]string) Option {
	return func(c *config) {
		c.headers = h
	}
}
