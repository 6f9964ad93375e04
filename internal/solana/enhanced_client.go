package solana

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// EnhancedClient reads parsed wallet activity from an enhanced transactions API
// (GET {base}/v0/addresses/{address}/transactions). Responses have the same shape
// as activity webhooks, so one parser handles both.
type EnhancedClient struct {
	transport
	baseURL string
	apiKey  string
}

// NewEnhancedClient creates a client for baseURL authenticated with apiKey.
func NewEnhancedClient(baseURL, apiKey string, opts ...ClientOption) *EnhancedClient {
	return &EnhancedClient{
		transport: newTransport(opts),
		baseURL:   strings.TrimRight(baseURL, "/"),
		apiKey:    apiKey,
	}
}

// AddressTransactions returns up to limit parsed transactions for address, newest first.
func (c *EnhancedClient) AddressTransactions(ctx context.Context, address string, limit int) ([]EnhancedTransaction, error) {
	q := url.Values{}
	if c.apiKey != "" {
		q.Set("api-key", c.apiKey)
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	endpoint := fmt.Sprintf("%s/v0/addresses/%s/transactions", c.baseURL, url.PathEscape(address))
	if len(q) > 0 {
		endpoint += "?" + q.Encode()
	}

	body, err := c.send(ctx, "addressTransactions", func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		return req, nil
	})
	if err != nil {
		return nil, err
	}

	var txs []EnhancedTransaction
	if err := json.Unmarshal(body, &txs); err != nil {
		return nil, fmt.Errorf("decode transactions: %w", err)
	}
	return txs, nil
}
