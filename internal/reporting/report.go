package reporting

import (
	"time"

	"solana-kalshi-copier/internal/domain"
	"solana-kalshi-copier/internal/storage"
)

// Report summarizes one follower's copy ledger.
type Report struct {
	GeneratedAt time.Time
	Follower    string
	From        int64 // unix ms, 0 = open
	To          int64 // unix ms, 0 = open

	Stats domain.LedgerStats

	// Markets sorted by volume desc, then ticker.
	Markets []MarketRow

	// Failure reasons sorted by count desc, then reason.
	Failures []FailureRow

	// Executed volume per UTC day, ascending.
	Daily []storage.DailyVolume

	// Entries in the window, newest first. Not rendered in Markdown.
	Entries []*domain.LedgerEntry
}

// MarketRow aggregates entries that reached one ticker.
type MarketRow struct {
	Ticker    string
	Executed  int
	Failed    int
	VolumeUSD float64
}

// FailureRow counts one failure reason.
type FailureRow struct {
	Reason string
	Count  int
}
