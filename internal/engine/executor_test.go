package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-kalshi-copier/internal/kalshi"
)

type fakePlacer struct {
	got kalshi.OrderRequest
	err error
}

func (f *fakePlacer) PlaceOrder(_ context.Context, req kalshi.OrderRequest) (*kalshi.Order, error) {
	f.got = req
	if f.err != nil {
		return nil, f.err
	}
	return &kalshi.Order{OrderID: "ord-1", ClientOrderID: req.ClientOrderID, Ticker: req.Ticker}, nil
}

func TestKalshiExecutor(t *testing.T) {
	placer := &fakePlacer{}
	x := NewKalshiExecutor(placer)
	assert.False(t, x.Simulated())

	fill, err := x.Execute(context.Background(), Order{
		ClientOrderID: "ledger-id", Ticker: "KX-1", Side: "yes", Action: "buy",
		SizeUSD: decimal.NewFromInt(25), AskCents: 40,
	})
	require.NoError(t, err)
	assert.Equal(t, "ord-1", fill.OrderID)
	assert.Equal(t, "ledger-id", placer.got.ClientOrderID)
	assert.Equal(t, 40, placer.got.AskCents)

	_, err = x.Execute(context.Background(), Order{Ticker: "KX-1", Side: "no", SizeUSD: decimal.NewFromInt(25)})
	assert.Error(t, err)

	placer.err = errors.New("insufficient balance")
	_, err = x.Execute(context.Background(), Order{Ticker: "KX-1", Side: "yes", SizeUSD: decimal.NewFromInt(25), AskCents: 40})
	assert.EqualError(t, err, "insufficient balance")
}

func TestSimulatedExecutor(t *testing.T) {
	x := SimulatedExecutor{}
	assert.True(t, x.Simulated())

	fill, err := x.Execute(context.Background(), Order{
		ClientOrderID: "0123456789abcdef0123", SizeUSD: decimal.NewFromInt(10), AskCents: 50,
	})
	require.NoError(t, err)
	assert.Equal(t, "sim-0123456789abcdef", fill.OrderID)

	_, err = x.Execute(context.Background(), Order{SizeUSD: decimal.RequireFromString("0.10"), AskCents: 50})
	assert.ErrorIs(t, err, kalshi.ErrOrderTooSmall)
}
