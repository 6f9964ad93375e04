// Package ledger records copied trades exactly once per (follower, id) and answers
// paginated, filtered queries over them.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"solana-kalshi-copier/internal/domain"
	"solana-kalshi-copier/internal/storage"
)

// Pagination bounds.
const (
	DefaultLimit = 50
	MaxLimit     = 500
)

// Publisher receives terminal entries, e.g. the Kafka bus.
type Publisher interface {
	PublishEntries(ctx context.Context, entries []*domain.LedgerEntry) error
}

// Options contains configuration for creating a Ledger.
type Options struct {
	Store     storage.LedgerStore
	Analytics storage.LedgerAnalyticsStore // optional mirror
	Publisher Publisher                    // optional
	Logger    *zap.Logger
	Now       func() time.Time
}

// Ledger wraps a LedgerStore. Terminal entries are mirrored and published best-effort.
type Ledger struct {
	store     storage.LedgerStore
	analytics storage.LedgerAnalyticsStore
	publisher Publisher
	logger    *zap.Logger
	now       func() time.Time
}

// New creates a Ledger.
func New(opts Options) *Ledger {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Ledger{
		store:     opts.Store,
		analytics: opts.Analytics,
		publisher: opts.Publisher,
		logger:    opts.Logger.Named("ledger"),
		now:       opts.Now,
	}
}

// Append inserts e unless (follower, id) already exists. It returns the stored entry
// and whether this call created it; an existing id is not an error.
// Appending a pending entry is the reservation step of the copy pipeline.
func (l *Ledger) Append(ctx context.Context, e *domain.LedgerEntry) (*domain.LedgerEntry, bool, error) {
	if e.ID == "" || e.Follower == "" {
		return nil, false, &domain.ValidationError{Field: "entry", Reason: "id and follower are required"}
	}
	if e.CreatedAt == 0 {
		e.CreatedAt = l.now().UnixMilli()
	}

	err := l.store.Insert(ctx, e)
	if errors.Is(err, storage.ErrDuplicateKey) {
		existing, getErr := l.store.GetByID(ctx, e.Follower, e.ID)
		if getErr != nil {
			return nil, false, domain.Persistence("load existing entry", getErr)
		}
		return existing, false, nil
	}
	if err != nil {
		return nil, false, domain.Persistence("insert entry", err)
	}

	if e.Status.IsTerminal() {
		l.export(ctx, e)
	}
	return e, true, nil
}

// Resolve moves a pending entry to a terminal status.
func (l *Ledger) Resolve(ctx context.Context, follower, id string, r domain.Resolution) (*domain.LedgerEntry, error) {
	if !r.Status.IsTerminal() {
		return nil, &domain.ValidationError{Field: "status", Reason: "must be terminal"}
	}
	if r.ResolvedAt == 0 {
		r.ResolvedAt = l.now().UnixMilli()
	}

	e, err := l.store.Resolve(ctx, follower, id, r)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("pending entry %s/%s: %w", follower, id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, domain.Persistence("resolve entry", err)
	}

	l.export(ctx, e)
	return e, nil
}

// Get returns one entry.
func (l *Ledger) Get(ctx context.Context, follower, id string) (*domain.LedgerEntry, error) {
	e, err := l.store.GetByID(ctx, follower, id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("entry %s/%s: %w", follower, id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, domain.Persistence("get entry", err)
	}
	return e, nil
}

// RecentGlobal returns the newest entries across all followers.
func (l *Ledger) RecentGlobal(ctx context.Context, limit, offset int) (domain.LedgerPage, error) {
	return l.page(ctx, domain.LedgerQuery{Limit: limit, Offset: offset})
}

// ByWallet returns one follower's entries matching filter, newest first.
func (l *Ledger) ByWallet(ctx context.Context, wallet string, limit, offset int, filter domain.LedgerFilter) (domain.LedgerPage, error) {
	if wallet == "" {
		return domain.LedgerPage{}, &domain.ValidationError{Field: "wallet", Reason: "required"}
	}
	return l.page(ctx, domain.LedgerQuery{Follower: wallet, Filter: filter, Limit: limit, Offset: offset})
}

func (l *Ledger) page(ctx context.Context, q domain.LedgerQuery) (domain.LedgerPage, error) {
	q.Limit, q.Offset = normalizePage(q.Limit, q.Offset)

	entries, total, err := l.store.Query(ctx, q)
	if err != nil {
		return domain.LedgerPage{}, domain.Persistence("query ledger", err)
	}
	if entries == nil {
		entries = []*domain.LedgerEntry{}
	}
	return domain.LedgerPage{
		Entries: entries,
		Total:   total,
		HasMore: q.Offset+len(entries) < total,
	}, nil
}

func normalizePage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// export mirrors and publishes a terminal entry. Failures are logged only.
func (l *Ledger) export(ctx context.Context, e *domain.LedgerEntry) {
	batch := []*domain.LedgerEntry{e}
	if l.analytics != nil {
		if err := l.analytics.InsertEntries(ctx, batch); err != nil {
			l.logger.Warn("analytics mirror failed", zap.String("id", e.ID), zap.Error(err))
		}
	}
	if l.publisher != nil {
		if err := l.publisher.PublishEntries(ctx, batch); err != nil {
			l.logger.Warn("publish failed", zap.String("id", e.ID), zap.Error(err))
		}
	}
}
