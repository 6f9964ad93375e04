package redisstore

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-kalshi-copier/internal/domain"
)

func TestSignatureLog_ContainsAfterRecord(t *testing.T) {
	rdb := newTestRedis(t)

	ctx := context.Background()
	log := NewSignatureLog(rdb, time.Hour, 10)

	ok, err := log.Contains(ctx, "WalletA", "Sig1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, log.Record(ctx, "WalletA", "Sig1"))

	ok, err = log.Contains(ctx, "WalletA", "Sig1")
	require.NoError(t, err)
	assert.True(t, ok)

	ttl, err := rdb.TTL(ctx, signaturesKey("WalletA")).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, 59*time.Minute)
}

func TestSignatureLog_HistoryNewestFirstAndCapped(t *testing.T) {
	rdb := newTestRedis(t)

	ctx := context.Background()
	log := NewSignatureLog(rdb, time.Hour, 3)

	for i := 0; i < 5; i++ {
		require.NoError(t, log.AppendHistory(ctx, &domain.TradeEvent{
			SourceSignature: fmt.Sprintf("Sig%d", i),
			WalletAddress:   "WalletA",
			OccurredAt:      int64(i),
			Side:            domain.SideBuy,
			Source:          domain.EventSourceWebhook,
		}))
	}

	events, err := log.History(ctx, "WalletA", 0)
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, "Sig4", events[0].SourceSignature)
	assert.Equal(t, "Sig2", events[2].SourceSignature)
	assert.Equal(t, domain.SideBuy, events[0].Side)
}
