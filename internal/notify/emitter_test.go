package notify

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-kalshi-copier/internal/domain"
	"solana-kalshi-copier/internal/storage/memory"
)

type captureHub struct {
	mu   sync.Mutex
	sent map[string][]*domain.Notification
}

func (h *captureHub) Broadcast(user string, n *domain.Notification) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.sent == nil {
		h.sent = make(map[string][]*domain.Notification)
	}
	h.sent[user] = append(h.sent[user], n)
}

var fixedNow = time.UnixMilli(1_700_000_000_000)

func newTestEmitter(limit int) (*Emitter, *captureHub) {
	hub := &captureHub{}
	e := New(Options{
		Store: memory.NewNotificationStore(),
		Limit: limit,
		Hub:   hub,
		Now:   func() time.Time { return fixedNow },
	})
	return e, hub
}

func TestEmit_StoresAndBroadcasts(t *testing.T) {
	e, hub := newTestEmitter(10)
	ctx := context.Background()

	n, err := e.Emit(ctx, "alice", domain.Notification{Type: domain.NotificationInfo, Title: "hello"})
	require.NoError(t, err)
	require.NotNil(t, n)
	assert.NotEmpty(t, n.ID)
	assert.False(t, n.Read)
	assert.Equal(t, fixedNow.UnixMilli(), n.CreatedAt)

	inbox, err := e.List(ctx, "alice", 0)
	require.NoError(t, err)
	require.Len(t, inbox.Notifications, 1)
	assert.Equal(t, 1, inbox.UnreadCount)
	assert.Len(t, hub.sent["alice"], 1)

	other, err := e.List(ctx, "bob", 0)
	require.NoError(t, err)
	assert.Empty(t, other.Notifications)
	assert.Equal(t, 0, other.UnreadCount)
}

func TestEmit_Validation(t *testing.T) {
	e, _ := newTestEmitter(10)

	_, err := e.Emit(context.Background(), "", domain.Notification{Type: domain.NotificationInfo})
	assert.True(t, errors.Is(err, domain.ErrValidation))

	_, err = e.Emit(context.Background(), "alice", domain.Notification{Type: "loud"})
	assert.True(t, errors.Is(err, domain.ErrValidation))
}

func TestEmit_DedupKeySuppressesSecondEmit(t *testing.T) {
	e, hub := newTestEmitter(10)
	ctx := context.Background()
	n := domain.Notification{Type: domain.NotificationTrade, Title: "copied", DedupKey: "ledger:alice:1"}

	first, err := e.Emit(ctx, "alice", n)
	require.NoError(t, err)
	require.NotNil(t, first)

	second, err := e.Emit(ctx, "alice", n)
	require.NoError(t, err)
	assert.Nil(t, second)

	inbox, err := e.List(ctx, "alice", 0)
	require.NoError(t, err)
	assert.Len(t, inbox.Notifications, 1)
	assert.Len(t, hub.sent["alice"], 1)

	// Keys are scoped per user.
	third, err := e.Emit(ctx, "bob", n)
	require.NoError(t, err)
	assert.NotNil(t, third)
}

func TestEmit_ConcurrentDedup(t *testing.T) {
	e, _ := newTestEmitter(10)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = e.Emit(ctx, "alice", domain.Notification{Type: domain.NotificationError, Title: "x", DedupKey: "k"})
		}()
	}
	wg.Wait()

	inbox, err := e.List(ctx, "alice", 0)
	require.NoError(t, err)
	assert.Len(t, inbox.Notifications, 1)
}

func TestEmit_TrimsToLimitNewestFirst(t *testing.T) {
	e, _ := newTestEmitter(3)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := e.Emit(ctx, "alice", domain.Notification{Type: domain.NotificationInfo, Title: fmt.Sprintf("n%d", i)})
		require.NoError(t, err)
	}

	inbox, err := e.List(ctx, "alice", 0)
	require.NoError(t, err)
	require.Len(t, inbox.Notifications, 3)
	assert.Equal(t, "n4", inbox.Notifications[0].Title)
	assert.Equal(t, "n2", inbox.Notifications[2].Title)
}

func TestMarkRead(t *testing.T) {
	e, _ := newTestEmitter(10)
	ctx := context.Background()

	a, err := e.Emit(ctx, "alice", domain.Notification{Type: domain.NotificationInfo, Title: "a"})
	require.NoError(t, err)
	_, err = e.Emit(ctx, "alice", domain.Notification{Type: domain.NotificationInfo, Title: "b"})
	require.NoError(t, err)

	require.NoError(t, e.MarkRead(ctx, "alice", a.ID))
	inbox, err := e.List(ctx, "alice", 0)
	require.NoError(t, err)
	assert.Equal(t, 1, inbox.UnreadCount)

	err = e.MarkRead(ctx, "alice", "missing")
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	require.NoError(t, e.MarkAllRead(ctx, "alice"))
	inbox, err = e.List(ctx, "alice", 0)
	require.NoError(t, err)
	assert.Equal(t, 0, inbox.UnreadCount)
	for _, n := range inbox.Notifications {
		assert.True(t, n.Read)
	}
}

func TestClear(t *testing.T) {
	e, _ := newTestEmitter(10)
	ctx := context.Background()

	_, err := e.Emit(ctx, "alice", domain.Notification{Type: domain.NotificationInfo, Title: "a"})
	require.NoError(t, err)
	require.NoError(t, e.Clear(ctx, "alice"))

	inbox, err := e.List(ctx, "alice", 0)
	require.NoError(t, err)
	assert.Empty(t, inbox.Notifications)
	assert.Equal(t, 0, inbox.UnreadCount)
}

func TestEmitLedgerEntry(t *testing.T) {
	e, _ := newTestEmitter(10)
	ctx := context.Background()

	executed := &domain.LedgerEntry{
		ID: "id1", Follower: "alice", TraderID: "trader", Status: domain.LedgerStatusExecuted,
		KalshiTicker: "KXBTC-1", OrderSide: domain.OrderSideYes, OrderAction: domain.OrderActionBuy, SizeUSD: 25,
	}
	e.EmitLedgerEntry(ctx, executed)
	e.EmitLedgerEntry(ctx, executed)

	skipped := &domain.LedgerEntry{ID: "id2", Follower: "alice", Status: domain.LedgerStatusSkipped}
	e.EmitLedgerEntry(ctx, skipped)

	inbox, err := e.List(ctx, "alice", 0)
	require.NoError(t, err)
	require.Len(t, inbox.Notifications, 1)
	assert.Equal(t, domain.NotificationTrade, inbox.Notifications[0].Type)
	assert.Equal(t, "Buy YES $25.00 on KXBTC-1", inbox.Notifications[0].Message)
}
