package kalshi

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// ErrOrderTooSmall is returned when the USD size buys less than one contract.
var ErrOrderTooSmall = errors.New("order size below one contract")

var hundred = decimal.NewFromInt(100)

// GetBalance returns the available balance in USD.
func (c *Client) GetBalance(ctx context.Context) (decimal.Decimal, error) {
	if c.creds == nil {
		return decimal.Zero, ErrNoCredentials
	}
	var resp BalanceResponse
	if err := c.get(ctx, "/portfolio/balance", nil, true, &resp); err != nil {
		return decimal.Zero, fmt.Errorf("get balance: %w", err)
	}
	return decimal.NewFromInt(resp.Balance).Div(hundred), nil
}

// OrderRequest is a market order sized in USD.
type OrderRequest struct {
	Ticker        string
	ClientOrderID string // repeated ids are rejected by the exchange
	Side          string // yes | no
	Action        string // buy | sell
	SizeUSD       decimal.Decimal
	AskCents      int // price per contract for Side
}

// ContractCount returns floor(sizeCents / askCents).
func ContractCount(sizeUSD decimal.Decimal, askCents int) int64 {
	if askCents <= 0 || !sizeUSD.IsPositive() {
		return 0
	}
	cents := sizeUSD.Mul(hundred)
	return cents.Div(decimal.NewFromInt(int64(askCents))).Floor().IntPart()
}

// PlaceOrder submits a market order.
func (c *Client) PlaceOrder(ctx context.Context, req OrderRequest) (*Order, error) {
	if c.creds == nil {
		return nil, ErrNoCredentials
	}
	count := ContractCount(req.SizeUSD, req.AskCents)
	if count < 1 {
		return nil, ErrOrderTooSmall
	}

	body := CreateOrderRequest{
		Ticker:        req.Ticker,
		ClientOrderID: req.ClientOrderID,
		Side:          req.Side,
		Action:        req.Action,
		Count:         count,
		Type:          "market",
	}
	if req.Action == "buy" {
		body.BuyMaxCost = req.SizeUSD.Mul(hundred).Floor().IntPart()
	}

	var resp CreateOrderResponse
	if err := c.post(ctx, "/portfolio/orders", body, &resp); err != nil {
		return nil, fmt.Errorf("place order %s: %w", req.Ticker, err)
	}
	return &resp.Order, nil
}
