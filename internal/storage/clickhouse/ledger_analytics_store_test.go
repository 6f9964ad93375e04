package clickhouse

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-kalshi-copier/internal/domain"
	"solana-kalshi-copier/internal/storage"
)

func executedEntry(id string, createdAt time.Time, size float64) *domain.LedgerEntry {
	return &domain.LedgerEntry{
		ID:          id,
		Follower:    "Follower1",
		TraderID:    "Trader1",
		Status:      domain.LedgerStatusExecuted,
		Platform:    domain.PlatformKalshi,
		OrderSide:   domain.OrderSideYes,
		OrderAction: domain.OrderActionBuy,
		SizeUSD:     size,
		CreatedAt:   createdAt.UnixMilli(),
		ResolvedAt:  createdAt.UnixMilli() + 10,
	}
}

func TestLedgerAnalyticsStore_DailyVolume(t *testing.T) {
	ctx := context.Background()
	store := NewLedgerAnalyticsStore(newTestConn(t))

	day1 := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	day2 := day1.Add(24 * time.Hour)

	failed := executedEntry("f", day1, 0)
	failed.Status = domain.LedgerStatusFailed

	entries := []*domain.LedgerEntry{
		executedEntry("a", day1, 100),
		executedEntry("b", day1.Add(time.Hour), 50),
		executedEntry("c", day2, 25),
		failed,
	}
	require.NoError(t, store.InsertEntries(ctx, entries))
	// Mirror retries re-send entries; the replacing engine collapses them.
	require.NoError(t, store.InsertEntries(ctx, entries[:1]))

	got, err := store.DailyVolume(ctx, "Follower1", day1.Add(-time.Hour).UnixMilli(), day2.Add(time.Hour).UnixMilli())
	require.NoError(t, err)
	assert.Equal(t, []storage.DailyVolume{
		{Day: "2026-03-01", Trades: 2, VolumeUSD: 150},
		{Day: "2026-03-02", Trades: 1, VolumeUSD: 25},
	}, got)
}

func TestLedgerAnalyticsStore_RejectsPending(t *testing.T) {
	store := NewLedgerAnalyticsStore(nil)

	pending := executedEntry("p", time.Now(), 1)
	pending.Status = domain.LedgerStatusPending

	err := store.InsertEntries(context.Background(), []*domain.LedgerEntry{pending})
	assert.ErrorIs(t, err, storage.ErrInvalidInput)
}
