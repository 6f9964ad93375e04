package solana

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"solana-kalshi-copier/internal/observability"
)

// Client defaults.
const (
	DefaultTimeout    = 30 * time.Second
	DefaultMaxRetries = 3
	DefaultRetryDelay = 1 * time.Second
	DefaultMaxDelay   = 10 * time.Second

	maxResponseBytes = 8 << 20
)

// StatusError is a non-200 HTTP answer from a Solana endpoint.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("unexpected status %d", e.Code)
	}
	return fmt.Sprintf("unexpected status %d: %s", e.Code, e.Body)
}

// Temporary reports whether the request may succeed when repeated (429 or 5xx).
func (e *StatusError) Temporary() bool {
	return e.Code == http.StatusTooManyRequests || e.Code >= 500
}

// ErrRetriesExhausted wraps the last error once every attempt failed.
var ErrRetriesExhausted = errors.New("max retries exceeded")

// ClientOption configures HTTPClient and EnhancedClient.
type ClientOption func(*transport)

// WithTimeout sets the per-attempt HTTP timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(t *transport) { t.http.Timeout = d }
}

// WithMaxRetries sets how many times a temporary failure is retried.
func WithMaxRetries(n int) ClientOption {
	return func(t *transport) { t.maxRetries = n }
}

// WithRetryDelay sets the first backoff delay; it doubles per attempt.
func WithRetryDelay(d time.Duration) ClientOption {
	return func(t *transport) { t.retryDelay = d }
}

// WithMaxDelay caps the backoff delay.
func WithMaxDelay(d time.Duration) ClientOption {
	return func(t *transport) { t.maxDelay = d }
}

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(t *transport) { t.http = c }
}

// transport sends requests with exponential backoff. Both Solana clients embed one.
type transport struct {
	http       *http.Client
	maxRetries int
	retryDelay time.Duration
	maxDelay   time.Duration
}

func newTransport(opts []ClientOption) transport {
	t := transport{
		http:       &http.Client{Timeout: DefaultTimeout},
		maxRetries: DefaultMaxRetries,
		retryDelay: DefaultRetryDelay,
		maxDelay:   DefaultMaxDelay,
	}
	for _, opt := range opts {
		opt(&t)
	}
	return t
}

// send runs newReq until it yields a 200 body, a permanent failure or retries run out.
// Transport errors and temporary statuses are retried. op labels the latency metric.
func (t *transport) send(ctx context.Context, op string, newReq func() (*http.Request, error)) ([]byte, error) {
	start := time.Now()
	defer func() {
		observability.RecordUpstreamLatency("solana", op, time.Since(start).Seconds())
	}()

	delay := t.retryDelay
	var last error
	for attempt := 0; attempt <= t.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
			if delay *= 2; delay > t.maxDelay {
				delay = t.maxDelay
			}
		}

		body, retry, err := t.once(newReq)
		if err == nil {
			return body, nil
		}
		if !retry || ctx.Err() != nil {
			return nil, err
		}
		last = err
	}
	return nil, fmt.Errorf("%w: %w", ErrRetriesExhausted, last)
}

// once performs a single attempt and reports whether a failure is worth retrying.
func (t *transport) once(newReq func() (*http.Request, error)) ([]byte, bool, error) {
	req, err := newReq()
	if err != nil {
		return nil, false, fmt.Errorf("create request: %w", err)
	}
	resp, err := t.http.Do(req)
	if err != nil {
		return nil, true, fmt.Errorf("http request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, true, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		se := &StatusError{Code: resp.StatusCode}
		if !se.Temporary() {
			se.Body = string(body)
		}
		return nil, se.Temporary(), se
	}
	return body, false, nil
}
