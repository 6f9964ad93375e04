// Package kalshi is a REST client for the Kalshi exchange: open markets, balance and orders.
package kalshi

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Client provides access to the Kalshi trade API.
type Client struct {
	baseURL    string
	basePath   string // URL path prefix included in request signatures
	creds      *Credentials
	httpClient *http.Client
	logger     *zap.Logger
	now        func() time.Time

	maxRetries   int
	retryBackoff time.Duration
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// NewClient creates a client for baseURL, e.g. https://api.elections.kalshi.com/trade-api/v2.
// creds may be nil for market data only; portfolio calls then fail with ErrNoCredentials.
func NewClient(baseURL string, creds *Credentials, opts ...ClientOption) *Client {
	baseURL = strings.TrimRight(baseURL, "/")
	basePath := ""
	if u, err := url.Parse(baseURL); err == nil {
		basePath = u.Path
	}

	c := &Client{
		baseURL:  baseURL,
		basePath: basePath,
		creds:    creds,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger:       zap.NewNop(),
		now:          time.Now,
		maxRetries:   3,
		retryBackoff: time.Second,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// WithRetries sets the retry count and initial backoff.
func WithRetries(max int, backoff time.Duration) ClientOption {
	return func(c *Client) {
		c.maxRetries = max
		c.retryBackoff = backoff
	}
}

func WithLogger(logger *zap.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithClock overrides the signing clock.
func WithClock(now func() time.Time) ClientOption {
	return func(c *Client) {
		c.now = now
	}
}

// Authenticated reports whether portfolio endpoints can be called.
func (c *Client) Authenticated() bool {
	return c.creds != nil
}
