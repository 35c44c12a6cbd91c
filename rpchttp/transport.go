package rpchttp

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mnehpets/rpcserve/jsonrpc"
)

const (
	defaultRetries   = 3
	retryBaseWait    = 100 * time.Millisecond
	defaultTimeoutHT = 30 * time.Second
)

// TransportOption configures Transport.
type TransportOption func(*transportConfig)

type transportConfig struct {
	client  *http.Client
	headers http.Header
	retries int
}

// WithHTTPClient substitutes the http.Client used by the transport.
func WithHTTPClient(client *http.Client) TransportOption {
	return func(c *transportConfig) { c.client = client }
}

// WithHeader adds a header to every request.
func WithHeader(key, value string) TransportOption {
	return func(c *transportConfig) { c.headers.Add(key, value) }
}

// WithRetries sets the number of attempts for transient failures.
func WithRetries(n int) TransportOption {
	return func(c *transportConfig) { c.retries = n }
}

// Transport returns a jsonrpc.TransportFunc that POSTs payloads to url.
// Transient connection failures are retried with exponential backoff;
// response bodies are drained before close so connections can be reused.
func Transport(url string, opts ...TransportOption) jsonrpc.TransportFunc {
	cfg := &transportConfig{
		client:  &http.Client{Timeout: defaultTimeoutHT},
		headers: make(http.Header),
		retries: defaultRetries,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	return func(ctx context.Context, payload []byte) ([]byte, error) {
		var lastErr error
		for attempt := 0; attempt < cfg.retries; attempt++ {
			if attempt > 0 {
				wait := retryBaseWait * time.Duration(1<<(attempt-1))
				select {
				case <-ctx.Done():
					return nil, ctx.Err()
				case <-time.After(wait):
				}
			}

			// The body buffer is consumed per attempt.
			req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
			if err != nil {
				return nil, fmt.Errorf("rpchttp: failed to create request: %w", err)
			}
			for key, values := range cfg.headers {
				req.Header[key] = values
			}
			req.Header.Set("Content-Type", "application/json")

			resp, err := cfg.client.Do(req)
			if err != nil {
				lastErr = err
				if isRetryable(err) {
					continue
				}
				return nil, fmt.Errorf("rpchttp: request failed: %w", err)
			}

			body, err := io.ReadAll(resp.Body)
			drainAndClose(resp.Body)
			if err != nil {
				lastErr = err
				continue
			}
			if resp.StatusCode < 200 || resp.StatusCode > 299 {
				return nil, fmt.Errorf("rpchttp: received status code %d", resp.StatusCode)
			}
			return body, nil
		}
		return nil, fmt.Errorf("rpchttp: request failed after %d attempts: %w", cfg.retries, lastErr)
	}
}

// drainAndClose reads a response body to completion before closing it,
// which keeps the underlying connection reusable.
func drainAndClose(body io.ReadCloser) {
	_, _ = io.Copy(io.Discard, body)
	_ = body.Close()
}

// isRetryable reports whether err looks like a transient connection
// failure worth another attempt.
func isRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, io.EOF) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "EOF") ||
		strings.Contains(msg, "connection reset") ||
		strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "broken pipe")
}
