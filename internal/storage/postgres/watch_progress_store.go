package postgres

import (
	"context"
	"fmt"

	"solana-kalshi-copier/internal/storage"
)

// WatchProgressStore is a PostgreSQL implementation of storage.WatchProgressStore.
// One row per wallet in watch_progress.
type WatchProgressStore struct {
	pool *Pool
}

// NewWatchProgressStore creates a new PostgreSQL watch progress store.
func NewWatchProgressStore(pool *Pool) *WatchProgressStore {
	return &WatchProgressStore{pool: pool}
}

var _ storage.WatchProgressStore = (*WatchProgressStore)(nil)

// LoadLastSeen returns every wallet's last-seen signature.
func (s *WatchProgressStore) LoadLastSeen(ctx context.Context) (map[string]string, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT wallet, signature FROM watch_progress
	`)
	if err != nil {
		return nil, fmt.Errorf("query watch progress: %w", err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var wallet, sig string
		if err := rows.Scan(&wallet, &sig); err != nil {
			return nil, err
		}
		out[wallet] = sig
	}

	return out, rows.Err()
}

// SetLastSeen upserts the wallet's last-seen signature.
func (s *WatchProgressStore) SetLastSeen(ctx context.Context, wallet, signature string) error {
	if wallet == "" || signature == "" {
		return storage.ErrInvalidInput
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO watch_progress (wallet, signature, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (wallet) DO UPDATE
		SET signature = EXCLUDED.signature,
		    updated_at = NOW()
	`, wallet, signature)

	return err
}
