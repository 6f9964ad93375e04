package engine

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"solana-kalshi-copier/internal/kalshi"
)

// Order is a sized copy order ready for the exchange.
type Order struct {
	ClientOrderID string // ledger entry id
	Ticker        string
	Side          string // yes | no
	Action        string // buy | sell
	SizeUSD       decimal.Decimal
	AskCents      int // 0 when the catalog has no quote
}

// Fill is the exchange acknowledgement of an order.
type Fill struct {
	OrderID string
}

// Executor places orders on the destination exchange.
type Executor interface {
	Execute(ctx context.Context, o Order) (Fill, error)
	Simulated() bool
}

// OrderPlacer is the part of the Kalshi client used for live execution.
type OrderPlacer interface {
	PlaceOrder(ctx context.Context, req kalshi.OrderRequest) (*kalshi.Order, error)
}

// KalshiExecutor submits live market orders. The ledger id doubles as client_order_id
// so the exchange rejects a repeated submission.
type KalshiExecutor struct {
	client OrderPlacer
}

// NewKalshiExecutor creates a live executor.
func NewKalshiExecutor(client OrderPlacer) *KalshiExecutor {
	return &KalshiExecutor{client: client}
}

func (x *KalshiExecutor) Execute(ctx context.Context, o Order) (Fill, error) {
	if o.AskCents <= 0 {
		return Fill{}, fmt.Errorf("no %s ask quoted for %s", o.Side, o.Ticker)
	}
	order, err := x.client.PlaceOrder(ctx, kalshi.OrderRequest{
		Ticker:        o.Ticker,
		ClientOrderID: o.ClientOrderID,
		Side:          o.Side,
		Action:        o.Action,
		SizeUSD:       o.SizeUSD,
		AskCents:      o.AskCents,
	})
	if err != nil {
		return Fill{}, err
	}
	return Fill{OrderID: order.OrderID}, nil
}

func (x *KalshiExecutor) Simulated() bool { return false }

// SimulatedExecutor fills every order at the quoted ask without touching the exchange.
type SimulatedExecutor struct{}

func (SimulatedExecutor) Execute(_ context.Context, o Order) (Fill, error) {
	if o.AskCents > 0 && kalshi.ContractCount(o.SizeUSD, o.AskCents) < 1 {
		return Fill{}, kalshi.ErrOrderTooSmall
	}
	id := o.ClientOrderID
	if len(id) > 16 {
		id = id[:16]
	}
	return Fill{OrderID: "sim-" + id}, nil
}

func (SimulatedExecutor) Simulated() bool { return true }
