package engine

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// PositionSize returns min(allocation, bankroll * maxPercent / 100), truncated to cents.
// Negative inputs count as zero.
func PositionSize(allocationUSD float64, bankroll decimal.Decimal, maxPercent float64) decimal.Decimal {
	alloc := decimal.NewFromFloat(allocationUSD)
	pct := decimal.NewFromFloat(maxPercent)
	if !alloc.IsPositive() || !pct.IsPositive() || !bankroll.IsPositive() {
		return decimal.Zero
	}

	limit := bankroll.Mul(pct).Div(hundred)
	return decimal.Min(alloc, limit).Truncate(2)
}
