package storage

import "context"

// WatchProgressStore persists the last-seen signature per watched wallet.
// This lets the watcher resume after restarts without replaying or re-seeding wallets.
type WatchProgressStore interface {
	// LoadLastSeen returns every wallet's last-seen signature (for warming the in-memory map).
	LoadLastSeen(ctx context.Context) (map[string]string, error)

	// SetLastSeen saves the wallet's last-seen signature.
	SetLastSeen(ctx context.Context, wallet, signature string) error
}
