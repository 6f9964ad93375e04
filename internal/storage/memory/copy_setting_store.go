package memory

import (
	"context"
	"sort"
	"sync"

	"solana-kalshi-copier/internal/domain"
	"solana-kalshi-copier/internal/storage"
)

// CopySettingStore is an in-memory implementation of storage.CopySettingStore.
type CopySettingStore struct {
	mu   sync.RWMutex
	data map[string][]domain.CopySetting // keyed by follower
}

// NewCopySettingStore creates a new in-memory copy setting store.
func NewCopySettingStore() *CopySettingStore {
	return &CopySettingStore{
		data: make(map[string][]domain.CopySetting),
	}
}

var _ storage.CopySettingStore = (*CopySettingStore)(nil)

// Get returns the follower's settings in stored order.
func (s *CopySettingStore) Get(_ context.Context, follower string) ([]domain.CopySetting, error) {
	if follower == "" {
		return nil, storage.ErrInvalidInput
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	return cloneSettings(s.data[follower]), nil
}

// Replace swaps the follower's whole list under a single lock.
func (s *CopySettingStore) Replace(_ context.Context, follower string, settings []domain.CopySetting) error {
	if follower == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if len(settings) == 0 {
		delete(s.data, follower)
		return nil
	}
	s.data[follower] = cloneSettings(settings)
	return nil
}

// ActiveByTrader returns active settings following traderID, ordered by follower.
func (s *CopySettingStore) ActiveByTrader(_ context.Context, traderID string) ([]domain.FollowerSetting, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []domain.FollowerSetting
	for follower, settings := range s.data {
		for _, cs := range settings {
			if cs.IsActive && cs.TraderID == traderID {
				result = append(result, domain.FollowerSetting{Follower: follower, Setting: cloneSetting(cs)})
			}
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Follower < result[j].Follower
	})
	return result, nil
}

// ActiveTraders returns distinct traders referenced by active settings, ordered by wallet.
func (s *CopySettingStore) ActiveTraders(_ context.Context) ([]domain.TraderSubscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byWallet := make(map[string]bool)
	for _, settings := range s.data {
		for _, cs := range settings {
			if !cs.IsActive {
				continue
			}
			byWallet[cs.TraderID] = byWallet[cs.TraderID] || cs.CopyOpenPositions
		}
	}

	result := make([]domain.TraderSubscription, 0, len(byWallet))
	for wallet, copyOpen := range byWallet {
		result = append(result, domain.TraderSubscription{Wallet: wallet, CopyOpenPositions: copyOpen})
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Wallet < result[j].Wallet
	})
	return result, nil
}

func cloneSettings(in []domain.CopySetting) []domain.CopySetting {
	out := make([]domain.CopySetting, len(in))
	for i, cs := range in {
		out[i] = cloneSetting(cs)
	}
	return out
}

func cloneSetting(cs domain.CopySetting) domain.CopySetting {
	if cs.StopLossPercent != nil {
		v := *cs.StopLossPercent
		cs.StopLossPercent = &v
	}
	return cs
}
