package solana

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"
)

// HTTPClient talks JSON-RPC 2.0 to a Solana node over HTTP.
type HTTPClient struct {
	transport
	endpoint string
	nextID   atomic.Uint64
}

var _ RPCClient = (*HTTPClient)(nil)

// NewHTTPClient creates a client for the node at endpoint.
func NewHTTPClient(endpoint string, opts ...ClientOption) *HTTPClient {
	return &HTTPClient{transport: newTransport(opts), endpoint: endpoint}
}

// RPCError is an error object returned by the node. It is never retried.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

type rpcEnvelope struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      uint64          `json:"id"`
	Method  string          `json:"method,omitempty"`
	Params  []any           `json:"params,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

// call invokes method and decodes the result into out. A null result leaves out untouched.
func (c *HTTPClient) call(ctx context.Context, method string, out any, params ...any) error {
	payload, err := json.Marshal(rpcEnvelope{JSONRPC: "2.0", ID: c.nextID.Add(1), Method: method, Params: params})
	if err != nil {
		return fmt.Errorf("marshal %s: %w", method, err)
	}

	body, err := c.send(ctx, method, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		return req, nil
	})
	if err != nil {
		return err
	}

	var resp rpcEnvelope
	if err := json.Unmarshal(body, &resp); err != nil {
		return fmt.Errorf("decode %s response: %w", method, err)
	}
	if resp.Error != nil {
		return resp.Error
	}
	if out == nil || len(resp.Result) == 0 || string(resp.Result) == "null" {
		return nil
	}
	if err := json.Unmarshal(resp.Result, out); err != nil {
		return fmt.Errorf("decode %s result: %w", method, err)
	}
	return nil
}

// commitment is the confirmation level used for every read.
const commitment = "confirmed"

// GetSignaturesForAddress returns signatures involving address, newest first.
func (c *HTTPClient) GetSignaturesForAddress(ctx context.Context, address string, opts *SignaturesOpts) ([]SignatureInfo, error) {
	cfg := struct {
		Commitment string `json:"commitment"`
		Before     string `json:"before,omitempty"`
		Until      string `json:"until,omitempty"`
		Limit      int    `json:"limit,omitempty"`
	}{Commitment: commitment}
	if opts != nil {
		cfg.Before, cfg.Until, cfg.Limit = opts.Before, opts.Until, opts.Limit
	}

	var raw []struct {
		Signature string  `json:"signature"`
		Slot      int64   `json:"slot"`
		BlockTime *int64  `json:"blockTime"`
		Err       any     `json:"err"`
		Memo      *string `json:"memo"`
	}
	if err := c.call(ctx, "getSignaturesForAddress", &raw, address, cfg); err != nil {
		return nil, err
	}

	out := make([]SignatureInfo, 0, len(raw))
	for _, r := range raw {
		info := SignatureInfo{Signature: r.Signature, Slot: r.Slot, BlockTime: r.BlockTime, Err: r.Err}
		if r.Memo != nil {
			info.Memo = *r.Memo
		}
		out = append(out, info)
	}
	return out, nil
}

type wireTokenBalance struct {
	AccountIndex  int    `json:"accountIndex"`
	Mint          string `json:"mint"`
	Owner         string `json:"owner"`
	UITokenAmount struct {
		UIAmount *float64 `json:"uiAmount"`
	} `json:"uiTokenAmount"`
}

type wireTransaction struct {
	Slot      int64  `json:"slot"`
	BlockTime *int64 `json:"blockTime"`
	Meta      *struct {
		Err               any                `json:"err"`
		LogMessages       []string           `json:"logMessages"`
		PreTokenBalances  []wireTokenBalance `json:"preTokenBalances"`
		PostTokenBalances []wireTokenBalance `json:"postTokenBalances"`
	} `json:"meta"`
	Transaction *struct {
		Message *struct {
			AccountKeys []string `json:"accountKeys"`
		} `json:"message"`
	} `json:"transaction"`
}

// GetTransaction fetches a confirmed transaction in json encoding.
// It returns nil, nil when the node does not know the signature.
func (c *HTTPClient) GetTransaction(ctx context.Context, signature string) (*Transaction, error) {
	var w *wireTransaction
	err := c.call(ctx, "getTransaction", &w, signature, map[string]any{
		"encoding":                       "json",
		"commitment":                     commitment,
		"maxSupportedTransactionVersion": 0,
	})
	if err != nil || w == nil {
		return nil, err
	}

	tx := &Transaction{Slot: w.Slot, Signature: signature}
	if w.BlockTime != nil {
		tx.BlockTime = *w.BlockTime
	}
	if m := w.Meta; m != nil {
		tx.Meta = &TransactionMeta{
			Err:               m.Err,
			LogMessages:       m.LogMessages,
			PreTokenBalances:  tokenBalances(m.PreTokenBalances),
			PostTokenBalances: tokenBalances(m.PostTokenBalances),
		}
	}
	if w.Transaction != nil && w.Transaction.Message != nil {
		tx.Message = &TransactionMessage{AccountKeys: w.Transaction.Message.AccountKeys}
	}
	return tx, nil
}

func tokenBalances(in []wireTokenBalance) []TokenBalance {
	if len(in) == 0 {
		return nil
	}
	out := make([]TokenBalance, len(in))
	for i, b := range in {
		out[i] = TokenBalance{AccountIndex: b.AccountIndex, Mint: b.Mint, Owner: b.Owner}
		if b.UITokenAmount.UIAmount != nil {
			out[i].UIAmount = *b.UITokenAmount.UIAmount
		}
	}
	return out
}

// GetSlot returns the node's current slot.
func (c *HTTPClient) GetSlot(ctx context.Context) (int64, error) {
	var slot int64
	if err := c.call(ctx, "getSlot", &slot); err != nil {
		return 0, err
	}
	return slot, nil
}
