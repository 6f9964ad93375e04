package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-kalshi-copier/internal/domain"
)

func TestCopySettingStore_ReplaceKeepsOrder(t *testing.T) {
	pool := newTestPool(t)

	ctx := context.Background()
	store := NewCopySettingStore(pool)

	settings := []domain.CopySetting{
		{TraderID: "Zeta", IsActive: true, AllocationUSD: 100, MaxPositionPercent: 10, StopLossPercent: float64Ptr(20)},
		{TraderID: "Alpha", IsActive: false, AllocationUSD: 50},
	}
	require.NoError(t, store.Replace(ctx, "Follower1", settings))

	got, err := store.Get(ctx, "Follower1")
	require.NoError(t, err)
	assert.Equal(t, settings, got)

	require.NoError(t, store.Replace(ctx, "Follower1", nil))
	got, err = store.Get(ctx, "Follower1")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestCopySettingStore_ActiveQueries(t *testing.T) {
	pool := newTestPool(t)

	ctx := context.Background()
	store := NewCopySettingStore(pool)

	require.NoError(t, store.Replace(ctx, "F2", []domain.CopySetting{
		{TraderID: "T1", IsActive: true, CopyOpenPositions: true},
	}))
	require.NoError(t, store.Replace(ctx, "F1", []domain.CopySetting{
		{TraderID: "T1", IsActive: true},
		{TraderID: "T2", IsActive: false},
	}))

	followers, err := store.ActiveByTrader(ctx, "T1")
	require.NoError(t, err)
	require.Len(t, followers, 2)
	assert.Equal(t, "F1", followers[0].Follower)
	assert.Equal(t, "F2", followers[1].Follower)

	traders, err := store.ActiveTraders(ctx)
	require.NoError(t, err)
	assert.Equal(t, []domain.TraderSubscription{{Wallet: "T1", CopyOpenPositions: true}}, traders)
}
