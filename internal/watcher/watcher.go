// Package watcher polls tracked wallets for new activity as a fallback to webhook delivery.
package watcher

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"solana-kalshi-copier/internal/domain"
	"solana-kalshi-copier/internal/observability"
	"solana-kalshi-copier/internal/storage"
)

// Sink receives detected events. It reports whether the event was new.
type Sink interface {
	Forward(ctx context.Context, e *domain.TradeEvent) (bool, error)
}

// Options contains configuration for creating a Watcher.
type Options struct {
	Settings      storage.CopySettingStore
	Feed          Feed
	Sink          Sink
	Progress      storage.WatchProgressStore // optional, persists last-seen signatures
	Concurrency   int                        // default 4
	WalletTimeout time.Duration              // default 5s
	Logger        *zap.Logger
	Now           func() time.Time
}

// Watcher compares each active trader's newest signature with the last one seen.
// Only the latest signature matters: if several transactions land between two polls,
// only the newest is emitted.
type Watcher struct {
	settings    storage.CopySettingStore
	feed        Feed
	sink        Sink
	progress    storage.WatchProgressStore
	concurrency int
	timeout     time.Duration
	logger      *zap.Logger
	now         func() time.Time

	mu       sync.Mutex
	lastSeen map[string]string
}

// New creates a Watcher.
func New(opts Options) *Watcher {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 4
	}
	if opts.WalletTimeout <= 0 {
		opts.WalletTimeout = 5 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Watcher{
		settings:    opts.Settings,
		feed:        opts.Feed,
		sink:        opts.Sink,
		progress:    opts.Progress,
		concurrency: opts.Concurrency,
		timeout:     opts.WalletTimeout,
		logger:      opts.Logger.Named("watcher"),
		now:         opts.Now,
		lastSeen:    make(map[string]string),
	}
}

// Warm loads persisted last-seen signatures so a restart neither re-seeds nor replays.
func (w *Watcher) Warm(ctx context.Context) error {
	if w.progress == nil {
		return nil
	}
	seen, err := w.progress.LoadLastSeen(ctx)
	if err != nil {
		return fmt.Errorf("load watch progress: %w", err)
	}

	w.mu.Lock()
	for wallet, sig := range seen {
		if _, ok := w.lastSeen[wallet]; !ok {
			w.lastSeen[wallet] = sig
		}
	}
	w.mu.Unlock()

	w.logger.Info("watch progress loaded", zap.Int("wallets", len(seen)))
	return nil
}

// Tick polls every active trader once with bounded parallelism. Per-wallet failures
// are logged and do not fail the tick.
func (w *Watcher) Tick(ctx context.Context) error {
	start := time.Now()
	traders, err := w.settings.ActiveTraders(ctx)
	if err != nil {
		return fmt.Errorf("list active traders: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.concurrency)
	for _, sub := range traders {
		g.Go(func() error {
			w.PollWallet(gctx, sub)
			return nil
		})
	}
	_ = g.Wait()

	observability.RecordWatcherTick(time.Since(start).Seconds(), w.now().Unix())
	w.logger.Debug("tick finished", zap.Int("wallets", len(traders)), zap.Duration("took", time.Since(start)))
	return nil
}

// PollWallet checks one wallet and emits its newest event if it changed.
func (w *Watcher) PollWallet(ctx context.Context, sub domain.TraderSubscription) {
	log := w.logger.With(zap.String("wallet", sub.Wallet))

	pollCtx, cancel := context.WithTimeout(ctx, w.timeout)
	e, err := w.feed.Latest(pollCtx, sub.Wallet)
	cancel()
	if err != nil {
		observability.RecordWalletPoll("error")
		log.Warn("poll failed", zap.Error(err))
		return
	}
	if e == nil {
		observability.RecordWalletPoll("unchanged")
		return
	}

	w.mu.Lock()
	prev, known := w.lastSeen[sub.Wallet]
	if known && prev == e.SourceSignature {
		w.mu.Unlock()
		observability.RecordWalletPoll("unchanged")
		return
	}
	w.lastSeen[sub.Wallet] = e.SourceSignature
	w.mu.Unlock()

	if !known && !sub.CopyOpenPositions {
		w.persist(ctx, sub.Wallet, e.SourceSignature)
		observability.RecordWalletPoll("seeded")
		log.Info("wallet seeded", zap.String("signature", e.SourceSignature))
		return
	}
	if !known {
		seed := *e
		seed.Seed = true
		e = &seed
	}

	fresh, err := w.sink.Forward(ctx, e)
	if err != nil {
		observability.RecordWalletPoll("error")
		log.Warn("forward failed", zap.String("signature", e.SourceSignature), zap.Error(err))
		if domain.IsRetryable(err) {
			w.rollback(sub.Wallet, e.SourceSignature, prev, known)
			return
		}
		w.persist(ctx, sub.Wallet, e.SourceSignature)
		return
	}
	w.persist(ctx, sub.Wallet, e.SourceSignature)
	observability.RecordWalletPoll("emitted")
	log.Info("new activity", zap.String("signature", e.SourceSignature), zap.Bool("fresh", fresh))
}

func (w *Watcher) persist(ctx context.Context, wallet, sig string) {
	if w.progress == nil {
		return
	}
	if err := w.progress.SetLastSeen(ctx, wallet, sig); err != nil {
		w.logger.Warn("persist last seen failed", zap.String("wallet", wallet), zap.Error(err))
	}
}

// rollback restores the previous last-seen signature so the next tick retries,
// unless another poll already moved the wallet on.
func (w *Watcher) rollback(wallet, sig, prev string, known bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.lastSeen[wallet] != sig {
		return
	}
	if known {
		w.lastSeen[wallet] = prev
		return
	}
	delete(w.lastSeen, wallet)
}

// LastSeen returns the last signature seen for wallet.
func (w *Watcher) LastSeen(wallet string) (string, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	sig, ok := w.lastSeen[wallet]
	return sig, ok
}

// Tracked returns the number of wallets with a last-seen signature.
func (w *Watcher) Tracked() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.lastSeen)
}
