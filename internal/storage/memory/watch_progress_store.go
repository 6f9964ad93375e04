package memory

import (
	"context"
	"sync"

	"solana-kalshi-copier/internal/storage"
)

// WatchProgressStore is an in-memory implementation of storage.WatchProgressStore.
type WatchProgressStore struct {
	mu       sync.RWMutex
	lastSeen map[string]string
}

// NewWatchProgressStore creates a new in-memory watch progress store.
func NewWatchProgressStore() *WatchProgressStore {
	return &WatchProgressStore{
		lastSeen: make(map[string]string),
	}
}

var _ storage.WatchProgressStore = (*WatchProgressStore)(nil)

// LoadLastSeen returns a copy of every wallet's last-seen signature.
func (s *WatchProgressStore) LoadLastSeen(_ context.Context) (map[string]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]string, len(s.lastSeen))
	for wallet, sig := range s.lastSeen {
		out[wallet] = sig
	}
	return out, nil
}

// SetLastSeen saves the wallet's last-seen signature.
func (s *WatchProgressStore) SetLastSeen(_ context.Context, wallet, signature string) error {
	if wallet == "" || signature == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastSeen[wallet] = signature
	return nil
}
