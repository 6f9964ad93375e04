package engine

import (
	"context"

	"github.com/shopspring/decimal"
)

// BankrollSource reports the capital base used for percentage position limits.
type BankrollSource interface {
	Bankroll(ctx context.Context, follower string) (decimal.Decimal, error)
}

// BalanceReader is the part of the Kalshi client that reads the account balance.
type BalanceReader interface {
	GetBalance(ctx context.Context) (decimal.Decimal, error)
}

// LiveBankroll reads the exchange account balance. All followers share one account.
type LiveBankroll struct {
	client BalanceReader
}

// NewLiveBankroll creates a bankroll source backed by the exchange balance.
func NewLiveBankroll(client BalanceReader) *LiveBankroll {
	return &LiveBankroll{client: client}
}

func (b *LiveBankroll) Bankroll(ctx context.Context, _ string) (decimal.Decimal, error) {
	return b.client.GetBalance(ctx)
}

// FixedBankroll returns the same amount for every follower. Used in simulation mode.
type FixedBankroll decimal.Decimal

func (b FixedBankroll) Bankroll(context.Context, string) (decimal.Decimal, error) {
	return decimal.Decimal(b), nil
}
