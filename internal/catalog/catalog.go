// Package catalog caches the exchange's open markets behind a TTL snapshot.
package catalog

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"solana-kalshi-copier/internal/domain"
	"solana-kalshi-copier/internal/observability"
)

// Source fetches open markets from the exchange.
type Source interface {
	OpenMarkets(ctx context.Context, limit int) ([]domain.Market, error)
}

// Options configures a Catalog.
type Options struct {
	TTL          time.Duration // default 5m
	Limit        int           // max markets per refresh, 0 = all
	FetchTimeout time.Duration // default 15s
	Logger       *zap.Logger
	Now          func() time.Time
}

// Snapshot is an immutable view of the catalog at one refresh.
type Snapshot struct {
	Markets  []domain.Market
	LoadedAt time.Time

	byTicker map[string]int
}

// Lookup returns the market with the given ticker.
func (s *Snapshot) Lookup(ticker string) (domain.Market, bool) {
	i, ok := s.byTicker[ticker]
	if !ok {
		return domain.Market{}, false
	}
	return s.Markets[i], true
}

// Catalog serves market snapshots. A cold or invalidated catalog makes every caller
// wait on one shared fetch; an expired one is refreshed by the first caller while
// concurrent callers get the stale snapshot.
type Catalog struct {
	src    Source
	opts   Options
	logger *zap.Logger

	mu          sync.RWMutex
	snap        *Snapshot
	invalidated bool

	group      singleflight.Group
	refreshing atomic.Bool
}

// New creates a Catalog over src.
func New(src Source, opts Options) *Catalog {
	if opts.TTL <= 0 {
		opts.TTL = 5 * time.Minute
	}
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = 15 * time.Second
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Catalog{src: src, opts: opts, logger: opts.Logger.Named("catalog")}
}

// Current returns a usable snapshot.
//
// Errors: domain.ErrCatalogUnavailable when no snapshot could ever be loaded.
// domain.ErrCatalogStale (soft) comes with a non-nil snapshot when a refresh failed.
func (c *Catalog) Current(ctx context.Context) (*Snapshot, error) {
	c.mu.RLock()
	snap, invalidated := c.snap, c.invalidated
	c.mu.RUnlock()

	if snap == nil || invalidated {
		fresh, err := c.refreshShared(ctx)
		if err == nil {
			return fresh, nil
		}
		if snap == nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrCatalogUnavailable, err)
		}
		return snap, fmt.Errorf("%w: %w", domain.ErrCatalogStale, err)
	}

	if c.opts.Now().Sub(snap.LoadedAt) < c.opts.TTL {
		return snap, nil
	}

	// Expired: one caller refreshes, the others keep using the old snapshot.
	if !c.refreshing.CompareAndSwap(false, true) {
		return snap, nil
	}
	defer c.refreshing.Store(false)

	fresh, err := c.refreshShared(ctx)
	if err != nil {
		return snap, fmt.Errorf("%w: %w", domain.ErrCatalogStale, err)
	}
	return fresh, nil
}

// Lookup returns the market for ticker from the current snapshot.
func (c *Catalog) Lookup(ctx context.Context, ticker string) (domain.Market, bool, error) {
	snap, err := c.Current(ctx)
	if snap == nil {
		return domain.Market{}, false, err
	}
	m, ok := snap.Lookup(ticker)
	return m, ok, err
}

// Refresh fetches the market list and replaces the snapshot. On failure the
// previous snapshot stays in place.
func (c *Catalog) Refresh(ctx context.Context) error {
	_, err := c.refreshShared(ctx)
	return err
}

// Invalidate forces the next access to refresh.
func (c *Catalog) Invalidate() {
	c.mu.Lock()
	c.invalidated = true
	c.mu.Unlock()
}

// Loaded reports the current snapshot's size and load time without refreshing.
func (c *Catalog) Loaded() (int, time.Time) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.snap == nil {
		return 0, time.Time{}
	}
	return len(c.snap.Markets), c.snap.LoadedAt
}

func (c *Catalog) refreshShared(ctx context.Context) (*Snapshot, error) {
	ch := c.group.DoChan("refresh", func() (any, error) {
		// Detached from the first caller so its cancellation does not fail the waiters.
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.opts.FetchTimeout)
		defer cancel()
		return c.fetch(fetchCtx)
	})

	select {
	case <-ctx.Done():
		return nil, domain.ClassifyUpstream("catalog refresh", ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Snapshot), nil
	}
}

func (c *Catalog) fetch(ctx context.Context) (*Snapshot, error) {
	start := time.Now()
	markets, err := c.src.OpenMarkets(ctx, c.opts.Limit)
	observability.RecordUpstreamLatency("kalshi", "open_markets", time.Since(start).Seconds())
	if err != nil {
		observability.RecordCatalogRefresh(0, err)
		c.logger.Warn("catalog refresh failed", zap.Error(err))
		return nil, domain.ClassifyUpstream("fetch open markets", err)
	}

	snap := &Snapshot{
		Markets:  make([]domain.Market, 0, len(markets)),
		LoadedAt: c.opts.Now(),
		byTicker: make(map[string]int, len(markets)),
	}
	for _, m := range markets {
		if m.Ticker == "" || m.Status != domain.MarketStatusOpen {
			continue
		}
		if _, dup := snap.byTicker[m.Ticker]; dup {
			continue
		}
		snap.byTicker[m.Ticker] = len(snap.Markets)
		snap.Markets = append(snap.Markets, m)
	}

	c.mu.Lock()
	c.snap = snap
	c.invalidated = false
	c.mu.Unlock()

	observability.RecordCatalogRefresh(len(snap.Markets), nil)
	c.logger.Info("catalog refreshed", zap.Int("markets", len(snap.Markets)))
	return snap, nil
}
