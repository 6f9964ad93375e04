package storage

import (
	"context"

	"solana-kalshi-copier/internal/domain"
)

// LedgerStore persists ledger entries keyed by (follower, id).
type LedgerStore interface {
	// Insert adds a new entry. Returns ErrDuplicateKey if (follower, id) exists.
	// This is the atomic reservation point for at-most-once processing.
	Insert(ctx context.Context, e *domain.LedgerEntry) error

	// Resolve applies a terminal resolution to a pending entry.
	// Returns ErrNotFound if no pending entry with (follower, id) exists.
	Resolve(ctx context.Context, follower, id string, r domain.Resolution) (*domain.LedgerEntry, error)

	// GetByID retrieves an entry. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, follower, id string) (*domain.LedgerEntry, error)

	// Query returns one page of entries ordered by created_at DESC, id ASC, and the total
	// number of entries matching the query before pagination.
	Query(ctx context.Context, q domain.LedgerQuery) ([]*domain.LedgerEntry, int, error)

	// ListPendingBefore returns pending entries created strictly before the cutoff (unix ms).
	ListPendingBefore(ctx context.Context, cutoff int64) ([]*domain.LedgerEntry, error)
}

// CopySettingStore persists each follower's copy settings list.
type CopySettingStore interface {
	// Get returns the follower's settings in stored order. Unknown followers yield an empty list.
	Get(ctx context.Context, follower string) ([]domain.CopySetting, error)

	// Replace atomically replaces the follower's whole settings list.
	Replace(ctx context.Context, follower string, settings []domain.CopySetting) error

	// ActiveByTrader returns active settings across followers that follow the trader,
	// ordered by follower.
	ActiveByTrader(ctx context.Context, traderID string) ([]domain.FollowerSetting, error)

	// ActiveTraders returns distinct traders referenced by active settings, ordered by wallet.
	ActiveTraders(ctx context.Context) ([]domain.TraderSubscription, error)
}

// SignatureLog is the durable per-wallet record of recently handled upstream signatures
// plus a bounded most-recent-first history of normalized events.
type SignatureLog interface {
	// Contains reports whether the signature was recorded for the wallet.
	Contains(ctx context.Context, wallet, signature string) (bool, error)

	// Record marks the signature as handled for the wallet.
	Record(ctx context.Context, wallet, signature string) error

	// AppendHistory pushes an event to the front of the wallet's capped history.
	AppendHistory(ctx context.Context, e *domain.TradeEvent) error

	// History returns up to limit most recent events for the wallet.
	History(ctx context.Context, wallet string, limit int) ([]*domain.TradeEvent, error)
}

// NotificationStore persists bounded per-user notification lists.
type NotificationStore interface {
	// Claim records a dedup key for the user. Returns false if it was already claimed.
	Claim(ctx context.Context, user, key string) (bool, error)

	// Push prepends a notification, trims the list to limit and increments the unread counter.
	Push(ctx context.Context, user string, n *domain.Notification, limit int) error

	// List returns up to limit notifications, newest first. limit <= 0 returns all.
	List(ctx context.Context, user string, limit int) ([]*domain.Notification, error)

	// UnreadCount returns the user's unread counter.
	UnreadCount(ctx context.Context, user string) (int, error)

	// MarkRead marks one notification read. Returns ErrNotFound for unknown ids.
	MarkRead(ctx context.Context, user, id string) error

	// MarkAllRead marks every notification read and resets the counter.
	MarkAllRead(ctx context.Context, user string) error

	// Clear removes every notification and resets the counter.
	Clear(ctx context.Context, user string) error
}

// LedgerAnalyticsStore mirrors terminal ledger entries for aggregate reporting.
type LedgerAnalyticsStore interface {
	// InsertEntries appends terminal entries. Re-inserting an entry is tolerated.
	InsertEntries(ctx context.Context, entries []*domain.LedgerEntry) error

	// DailyVolume returns executed USD volume per UTC day for the follower within [from, to] (unix ms).
	DailyVolume(ctx context.Context, follower string, from, to int64) ([]DailyVolume, error)
}

// DailyVolume is one row of LedgerAnalyticsStore.DailyVolume.
type DailyVolume struct {
	Day       string  // YYYY-MM-DD
	Trades    int     // executed entries
	VolumeUSD float64 // executed size sum
}
