package watcher

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"solana-kalshi-copier/internal/domain"
	"solana-kalshi-copier/internal/solana"
	"solana-kalshi-copier/internal/storage"
)

// LogTrigger subscribes to logs mentioning each active trader and polls that wallet
// as soon as a notification arrives, instead of waiting for the next tick.
type LogTrigger struct {
	ctx        context.Context
	subscriber solana.LogsSubscriber
	watcher    *Watcher
	settings   storage.CopySettingStore
	logger     *zap.Logger

	mu   sync.Mutex
	subs map[string]*walletSub
	wg   sync.WaitGroup
}

type walletSub struct {
	sub      *solana.LogsSubscription
	copyOpen bool
}

// NewLogTrigger creates a trigger. Polls it starts run under ctx.
func NewLogTrigger(ctx context.Context, subscriber solana.LogsSubscriber, w *Watcher, settings storage.CopySettingStore, logger *zap.Logger) *LogTrigger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogTrigger{
		ctx:        ctx,
		subscriber: subscriber,
		watcher:    w,
		settings:   settings,
		logger:     logger.Named("log_trigger"),
		subs:       make(map[string]*walletSub),
	}
}

// Sync subscribes newly active traders and drops traders no longer followed.
func (t *LogTrigger) Sync(ctx context.Context) error {
	traders, err := t.settings.ActiveTraders(ctx)
	if err != nil {
		return fmt.Errorf("list active traders: %w", err)
	}
	active := make(map[string]bool, len(traders))
	for _, tr := range traders {
		active[tr.Wallet] = tr.CopyOpenPositions
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	for wallet, ws := range t.subs {
		if _, ok := active[wallet]; ok {
			continue
		}
		if err := t.subscriber.Unsubscribe(ctx, ws.sub); err != nil {
			t.logger.Warn("unsubscribe failed", zap.String("wallet", wallet), zap.Error(err))
		}
		delete(t.subs, wallet)
	}

	var firstErr error
	for wallet, copyOpen := range active {
		if ws, ok := t.subs[wallet]; ok {
			ws.copyOpen = copyOpen
			continue
		}
		sub, err := t.subscriber.SubscribeLogs(ctx, solana.LogsFilter{Mentions: []string{wallet}})
		if err != nil {
			t.logger.Warn("subscribe failed", zap.String("wallet", wallet), zap.Error(err))
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		t.subs[wallet] = &walletSub{sub: sub, copyOpen: copyOpen}
		t.wg.Add(1)
		go t.consume(wallet, sub)
	}

	return firstErr
}

// Subscribed returns the number of wallets with a live subscription.
func (t *LogTrigger) Subscribed() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.subs)
}

// Close closes the subscriber and waits for consumers to exit.
func (t *LogTrigger) Close() error {
	err := t.subscriber.Close()
	t.wg.Wait()
	return err
}

func (t *LogTrigger) consume(wallet string, sub *solana.LogsSubscription) {
	defer t.wg.Done()
	for n := range sub.C {
		if n.Err != nil {
			continue
		}
		t.mu.Lock()
		ws, ok := t.subs[wallet]
		copyOpen := ok && ws.copyOpen
		t.mu.Unlock()
		if !ok {
			return
		}

		t.logger.Debug("log notification, polling wallet", zap.String("wallet", wallet), zap.String("signature", n.Signature))
		t.watcher.PollWallet(t.ctx, domain.TraderSubscription{Wallet: wallet, CopyOpenPositions: copyOpen})
	}
}
