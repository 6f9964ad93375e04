package ledger

import (
	"context"

	"github.com/shopspring/decimal"

	"solana-kalshi-copier/internal/domain"
)

// Stats aggregates every entry of wallet. Win rate is executed / (executed + failed);
// volume sums executed sizes.
func (l *Ledger) Stats(ctx context.Context, wallet string) (domain.LedgerStats, error) {
	if wallet == "" {
		return domain.LedgerStats{}, &domain.ValidationError{Field: "wallet", Reason: "required"}
	}

	acc := newStatsAccumulator(wallet)
	q := domain.LedgerQuery{Follower: wallet, Limit: MaxLimit}
	for {
		entries, total, err := l.store.Query(ctx, q)
		if err != nil {
			return domain.LedgerStats{}, domain.Persistence("query ledger", err)
		}
		for _, e := range entries {
			acc.add(e)
		}
		q.Offset += len(entries)
		if len(entries) == 0 || q.Offset >= total {
			break
		}
	}
	return acc.result(), nil
}

// ComputeStats aggregates an in-memory slice of entries.
func ComputeStats(wallet string, entries []*domain.LedgerEntry) domain.LedgerStats {
	acc := newStatsAccumulator(wallet)
	for _, e := range entries {
		acc.add(e)
	}
	return acc.result()
}

type statsAccumulator struct {
	stats  domain.LedgerStats
	volume decimal.Decimal
}

func newStatsAccumulator(wallet string) *statsAccumulator {
	return &statsAccumulator{stats: domain.LedgerStats{Follower: wallet}, volume: decimal.Zero}
}

func (a *statsAccumulator) add(e *domain.LedgerEntry) {
	a.stats.TradeCount++
	switch e.Status {
	case domain.LedgerStatusExecuted:
		a.stats.Executed++
		a.volume = a.volume.Add(decimal.NewFromFloat(e.SizeUSD))
	case domain.LedgerStatusFailed:
		a.stats.Failed++
	case domain.LedgerStatusSkipped:
		a.stats.Skipped++
	case domain.LedgerStatusPending:
		a.stats.Pending++
	}
}

func (a *statsAccumulator) result() domain.LedgerStats {
	s := a.stats
	if decided := s.Executed + s.Failed; decided > 0 {
		s.WinRate = decimal.NewFromInt(int64(s.Executed)).
			Div(decimal.NewFromInt(int64(decided))).
			Round(4).InexactFloat64()
	}
	s.VolumeUSD = a.volume.Round(2).InexactFloat64()
	return s
}
