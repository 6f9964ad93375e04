package memory

import (
	"context"
	"sort"
	"sync"

	"solana-kalshi-copier/internal/domain"
	"solana-kalshi-copier/internal/storage"
)

// LedgerStore is an in-memory implementation of storage.LedgerStore.
type LedgerStore struct {
	mu   sync.RWMutex
	data map[string]*domain.LedgerEntry // keyed by follower|id
}

// NewLedgerStore creates a new in-memory ledger store.
func NewLedgerStore() *LedgerStore {
	return &LedgerStore{
		data: make(map[string]*domain.LedgerEntry),
	}
}

// Compile-time interface check.
var _ storage.LedgerStore = (*LedgerStore)(nil)

func ledgerKey(follower, id string) string {
	return follower + "|" + id
}

// Insert adds a new entry. Returns ErrDuplicateKey if (follower, id) exists.
func (s *LedgerStore) Insert(_ context.Context, e *domain.LedgerEntry) error {
	if e == nil || e.ID == "" || e.Follower == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := ledgerKey(e.Follower, e.ID)
	if _, exists := s.data[key]; exists {
		return storage.ErrDuplicateKey
	}

	copy := *e
	s.data[key] = &copy
	return nil
}

// Resolve applies a terminal resolution to a pending entry.
func (s *LedgerStore) Resolve(_ context.Context, follower, id string, r domain.Resolution) (*domain.LedgerEntry, error) {
	if !r.Status.IsTerminal() {
		return nil, storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.data[ledgerKey(follower, id)]
	if !ok || e.Status != domain.LedgerStatusPending {
		return nil, storage.ErrNotFound
	}

	e.Status = r.Status
	e.KalshiTicker = r.KalshiTicker
	e.SizeUSD = r.SizeUSD
	e.OrderID = r.OrderID
	e.Error = r.Error
	e.ResolvedAt = r.ResolvedAt

	copy := *e
	return &copy, nil
}

// GetByID retrieves an entry. Returns ErrNotFound if not exists.
func (s *LedgerStore) GetByID(_ context.Context, follower, id string) (*domain.LedgerEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.data[ledgerKey(follower, id)]
	if !ok {
		return nil, storage.ErrNotFound
	}

	copy := *e
	return &copy, nil
}

// Query returns one page of matching entries, newest first, and the unpaginated total.
func (s *LedgerStore) Query(_ context.Context, q domain.LedgerQuery) ([]*domain.LedgerEntry, int, error) {
	if q.Limit < 0 || q.Offset < 0 {
		return nil, 0, storage.ErrInvalidInput
	}

	s.mu.RLock()
	var matched []*domain.LedgerEntry
	for _, e := range s.data {
		if q.Follower != "" && e.Follower != q.Follower {
			continue
		}
		if !q.Filter.Matches(e) {
			continue
		}
		copy := *e
		matched = append(matched, &copy)
	}
	s.mu.RUnlock()

	sortNewestFirst(matched)

	total := len(matched)
	if q.Offset >= total {
		return []*domain.LedgerEntry{}, total, nil
	}
	end := total
	if q.Limit > 0 && q.Offset+q.Limit < total {
		end = q.Offset + q.Limit
	}
	return matched[q.Offset:end], total, nil
}

// ListPendingBefore returns pending entries created strictly before cutoff.
func (s *LedgerStore) ListPendingBefore(_ context.Context, cutoff int64) ([]*domain.LedgerEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.LedgerEntry
	for _, e := range s.data {
		if e.Status == domain.LedgerStatusPending && e.CreatedAt < cutoff {
			copy := *e
			result = append(result, &copy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt != result[j].CreatedAt {
			return result[i].CreatedAt < result[j].CreatedAt
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}

// sortNewestFirst orders by created_at DESC, then follower and id ASC for a total order.
func sortNewestFirst(entries []*domain.LedgerEntry) {
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].CreatedAt != entries[j].CreatedAt {
			return entries[i].CreatedAt > entries[j].CreatedAt
		}
		if entries[i].Follower != entries[j].Follower {
			return entries[i].Follower < entries[j].Follower
		}
		return entries[i].ID < entries[j].ID
	})
}
