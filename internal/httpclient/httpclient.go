// Package httpclient provides a reference HttpClient backed by
// hashicorp/go-retryablehttp, used for outbound webhooks and any
// HTTP-based ModelProvider. Grounded on the retryablehttp usage pattern
// present (as an indirect dependency) in Azure-containerization-assist's
// go.mod, promoted here to a direct dependency since the webhook/delivery
// and model-provider paths all need retrying HTTP.
package httpclient

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

// Client wraps a retryablehttp.Client with the engine's default retry
// policy: capped exponential backoff, bounded attempts.
type Client struct {
	inner *retryablehttp.Client
}

// Option configures a Client.
type Option func(*retryablehttp.Client)

// WithMaxRetries overrides the default retry attempt count.
func WithMaxRetries(n int) Option {
	return func(c *retryablehttp.Client) { c.RetryMax = n }
}

// WithTimeout sets the per-attempt HTTP timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *retryablehttp.Client) { c.HTTPClient.Timeout = d }
}

// New builds a Client with sensible defaults (3 retries, 15s timeout),
// overridable via opts.
func New(opts ...Option) *Client {
	rc := retryablehttp.NewClient()
	rc.RetryMax = 3
	rc.RetryWaitMin = 500 * time.Millisecond
	rc.RetryWaitMax = 10 * time.Second
	rc.HTTPClient.Timeout = 15 * time.Second
	rc.Logger = nil // teacher's ambient stack carries no structured logger; silence retryablehttp's default
	for _, opt := range opts {
		opt(rc)
	}
	return &Client{inner: rc}
}

// Do issues one HTTP request with retries, returning the final status
// code and response body.
func (c *Client) Do(ctx context.Context, method, url string, headers map[string]string, body []byte) (int, []byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := retryablehttp.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return 0, nil, fmt.Errorf("httpclient: build request: %w", err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.inner.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("httpclient: request to %s failed: %w", url, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("httpclient: read response from %s: %w", url, err)
	}
	return resp.StatusCode, respBody, nil
}
