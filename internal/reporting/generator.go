package reporting

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"solana-kalshi-copier/internal/domain"
	"solana-kalshi-copier/internal/ledger"
	"solana-kalshi-copier/internal/storage"
)

// EntrySource pages through a follower's ledger.
type EntrySource interface {
	ByWallet(ctx context.Context, wallet string, limit, offset int, filter domain.LedgerFilter) (domain.LedgerPage, error)
}

// Generator produces follower reports from the ledger.
type Generator struct {
	entries   EntrySource
	analytics storage.LedgerAnalyticsStore // optional
	now       func() time.Time             // Injectable clock for deterministic output
}

// NewGenerator creates a new report generator. analytics may be nil, in which case
// daily volume is computed from the ledger entries.
func NewGenerator(entries EntrySource, analytics storage.LedgerAnalyticsStore) *Generator {
	return &Generator{
		entries:   entries,
		analytics: analytics,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// Generate builds the report for follower over [from, to] (unix ms, 0 = open).
func (g *Generator) Generate(ctx context.Context, follower string, from, to int64) (*Report, error) {
	entries, err := g.load(ctx, follower, domain.LedgerFilter{From: from, To: to})
	if err != nil {
		return nil, err
	}

	daily := dailyFromEntries(entries)
	if g.analytics != nil {
		end := to
		if end == 0 {
			end = g.now().UnixMilli()
		}
		rows, err := g.analytics.DailyVolume(ctx, follower, from, end)
		if err != nil {
			return nil, fmt.Errorf("daily volume: %w", err)
		}
		daily = rows
	}

	return &Report{
		GeneratedAt: g.now(),
		Follower:    follower,
		From:        from,
		To:          to,
		Stats:       ledger.ComputeStats(follower, entries),
		Markets:     marketRows(entries),
		Failures:    failureRows(entries),
		Daily:       daily,
		Entries:     entries,
	}, nil
}

func (g *Generator) load(ctx context.Context, follower string, filter domain.LedgerFilter) ([]*domain.LedgerEntry, error) {
	var out []*domain.LedgerEntry
	for offset := 0; ; {
		page, err := g.entries.ByWallet(ctx, follower, ledger.MaxLimit, offset, filter)
		if err != nil {
			return nil, fmt.Errorf("load ledger: %w", err)
		}
		out = append(out, page.Entries...)
		offset += len(page.Entries)
		if !page.HasMore || len(page.Entries) == 0 {
			return out, nil
		}
	}
}

func marketRows(entries []*domain.LedgerEntry) []MarketRow {
	type acc struct {
		row    MarketRow
		volume decimal.Decimal
	}
	byTicker := make(map[string]*acc)
	for _, e := range entries {
		if e.KalshiTicker == "" {
			continue
		}
		a, ok := byTicker[e.KalshiTicker]
		if !ok {
			a = &acc{row: MarketRow{Ticker: e.KalshiTicker}}
			byTicker[e.KalshiTicker] = a
		}
		switch e.Status {
		case domain.LedgerStatusExecuted:
			a.row.Executed++
			a.volume = a.volume.Add(decimal.NewFromFloat(e.SizeUSD))
		case domain.LedgerStatusFailed:
			a.row.Failed++
		}
	}

	rows := make([]MarketRow, 0, len(byTicker))
	for _, a := range byTicker {
		a.row.VolumeUSD = a.volume.Round(2).InexactFloat64()
		rows = append(rows, a.row)
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].VolumeUSD != rows[j].VolumeUSD {
			return rows[i].VolumeUSD > rows[j].VolumeUSD
		}
		return rows[i].Ticker < rows[j].Ticker
	})
	return rows
}

func failureRows(entries []*domain.LedgerEntry) []FailureRow {
	counts := make(map[string]int)
	for _, e := range entries {
		if e.Status == domain.LedgerStatusFailed {
			counts[e.Error]++
		}
	}
	rows := make([]FailureRow, 0, len(counts))
	for reason, n := range counts {
		rows = append(rows, FailureRow{Reason: reason, Count: n})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Count != rows[j].Count {
			return rows[i].Count > rows[j].Count
		}
		return rows[i].Reason < rows[j].Reason
	})
	return rows
}

func dailyFromEntries(entries []*domain.LedgerEntry) []storage.DailyVolume {
	type acc struct {
		trades int
		volume decimal.Decimal
	}
	byDay := make(map[string]*acc)
	for _, e := range entries {
		if e.Status != domain.LedgerStatusExecuted {
			continue
		}
		day := time.UnixMilli(e.CreatedAt).UTC().Format("2006-01-02")
		a, ok := byDay[day]
		if !ok {
			a = &acc{}
			byDay[day] = a
		}
		a.trades++
		a.volume = a.volume.Add(decimal.NewFromFloat(e.SizeUSD))
	}

	rows := make([]storage.DailyVolume, 0, len(byDay))
	for day, a := range byDay {
		rows = append(rows, storage.DailyVolume{Day: day, Trades: a.trades, VolumeUSD: a.volume.Round(2).InexactFloat64()})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Day < rows[j].Day })
	return rows
}
