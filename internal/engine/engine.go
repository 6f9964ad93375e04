// Package engine copies observed trader activity into follower orders on Kalshi.
package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"solana-kalshi-copier/internal/domain"
	"solana-kalshi-copier/internal/idhash"
	"solana-kalshi-copier/internal/ledger"
	"solana-kalshi-copier/internal/matcher"
	"solana-kalshi-copier/internal/observability"
)

// Default timeouts for upstream calls made while copying one event.
const (
	DefaultOrderTimeout    = 10 * time.Second
	DefaultBankrollTimeout = 5 * time.Second
)

// SettingsSource lists the active followers of a trader wallet.
type SettingsSource interface {
	ActiveByTrader(ctx context.Context, trader string) ([]domain.FollowerSetting, error)
}

// MarketMatcher resolves a free-text trade description to a market.
type MarketMatcher interface {
	Match(ctx context.Context, query string) (matcher.Candidate, bool, error)
}

// Ledger reserves and resolves entries. Append must be an atomic conditional insert.
type Ledger interface {
	Append(ctx context.Context, e *domain.LedgerEntry) (*domain.LedgerEntry, bool, error)
	Resolve(ctx context.Context, follower, id string, r domain.Resolution) (*domain.LedgerEntry, error)
}

// Notifier reports terminal ledger entries to their follower.
type Notifier interface {
	EmitLedgerEntry(ctx context.Context, e *domain.LedgerEntry)
}

// Options contains configuration for creating an Engine.
type Options struct {
	Settings        SettingsSource
	Matcher         MarketMatcher
	Ledger          Ledger
	Executor        Executor
	Bankroll        BankrollSource
	Notifier        Notifier // optional
	OrderTimeout    time.Duration
	BankrollTimeout time.Duration
	Logger          *zap.Logger
	Now             func() time.Time
}

// Engine processes trade events for every active follower of the trading wallet.
// The ledger reservation is the only guard against concurrent or repeated delivery.
type Engine struct {
	settings        SettingsSource
	matcher         MarketMatcher
	ledger          Ledger
	executor        Executor
	bankroll        BankrollSource
	notifier        Notifier
	orderTimeout    time.Duration
	bankrollTimeout time.Duration
	logger          *zap.Logger
	now             func() time.Time
}

// New creates an Engine.
func New(opts Options) *Engine {
	if opts.Executor == nil {
		opts.Executor = SimulatedExecutor{}
	}
	if opts.OrderTimeout <= 0 {
		opts.OrderTimeout = DefaultOrderTimeout
	}
	if opts.BankrollTimeout <= 0 {
		opts.BankrollTimeout = DefaultBankrollTimeout
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Engine{
		settings:        opts.Settings,
		matcher:         opts.Matcher,
		ledger:          opts.Ledger,
		executor:        opts.Executor,
		bankroll:        opts.Bankroll,
		notifier:        opts.Notifier,
		orderTimeout:    opts.OrderTimeout,
		bankrollTimeout: opts.BankrollTimeout,
		logger:          opts.Logger.Named("engine"),
		now:             opts.Now,
	}
}

// Process copies e for each active follower of e.WalletAddress. A wallet nobody follows
// is a no-op, and a seed event only reaches followers that copy open positions. Followers are independent: the returned error joins per-follower
// persistence failures and never reflects business outcomes such as a missing market.
func (en *Engine) Process(ctx context.Context, e *domain.TradeEvent) error {
	if e == nil || e.SourceSignature == "" || e.WalletAddress == "" {
		return &domain.ValidationError{Field: "event", Reason: "signature and wallet required"}
	}

	followers, err := en.settings.ActiveByTrader(ctx, e.WalletAddress)
	if err != nil {
		return domain.Persistence("load copy settings", err)
	}
	if len(followers) == 0 {
		return nil
	}

	var errs []error
	for _, fs := range followers {
		if e.Seed && !fs.Setting.CopyOpenPositions {
			continue
		}
		if err := en.copyFor(ctx, e, fs); err != nil {
			en.logger.Warn("copy failed",
				zap.String("follower", fs.Follower),
				zap.String("signature", e.SourceSignature),
				zap.Error(err))
			errs = append(errs, fmt.Errorf("follower %s: %w", fs.Follower, err))
		}
	}
	return errors.Join(errs...)
}

// copyFor runs reserve → match → size → execute → resolve → notify for one follower.
// Once the pending entry is reserved, exactly one terminal write follows.
func (en *Engine) copyFor(ctx context.Context, e *domain.TradeEvent, fs domain.FollowerSetting) (err error) {
	entry := en.pendingEntry(e, fs)

	stored, created, err := en.ledger.Append(ctx, entry)
	if err != nil {
		return err
	}
	if !created {
		en.logger.Debug("entry already reserved, skipping",
			zap.String("follower", fs.Follower),
			zap.String("id", stored.ID),
			zap.String("status", string(stored.Status)))
		return nil
	}

	resolved := false
	defer func() {
		if resolved {
			return
		}
		msg := ledger.InterruptedMessage
		if r := recover(); r != nil {
			err = fmt.Errorf("panic while copying: %v", r)
			msg = err.Error()
		} else if err != nil {
			msg = err.Error()
		}
		// The caller's context may already be done; the terminal write must still land.
		_, rerr := en.resolve(context.WithoutCancel(ctx), entry, domain.Resolution{
			Status: domain.LedgerStatusFailed,
			Error:  msg,
		})
		if rerr != nil {
			err = errors.Join(err, rerr)
		}
	}()

	res := en.decide(ctx, e, fs, entry)
	_, err = en.resolve(ctx, entry, res)
	resolved = err == nil
	return err
}

func (en *Engine) pendingEntry(e *domain.TradeEvent, fs domain.FollowerSetting) *domain.LedgerEntry {
	action := domain.OrderActionBuy
	if e.Side == domain.SideSell {
		action = domain.OrderActionSell
	}
	return &domain.LedgerEntry{
		ID:              idhash.ComputeLedgerID(e.SourceSignature, fs.Setting.TraderID),
		Follower:        fs.Follower,
		TraderID:        fs.Setting.TraderID,
		SourceSignature: e.SourceSignature,
		OriginalTrade: domain.OriginalTrade{
			Market:        e.RawDescription,
			Side:          e.Side,
			WalletAddress: e.WalletAddress,
		},
		Status:       domain.LedgerStatusPending,
		Platform:     domain.PlatformKalshi,
		OrderSide:    domain.OutcomeSide(e.RawDescription),
		OrderAction:  action,
		IsSimulation: en.executor.Simulated(),
		CreatedAt:    en.now().UnixMilli(),
	}
}

// decide computes the terminal outcome of a reserved entry. It never returns pending.
func (en *Engine) decide(ctx context.Context, e *domain.TradeEvent, fs domain.FollowerSetting, entry *domain.LedgerEntry) domain.Resolution {
	log := en.logger.With(zap.String("follower", fs.Follower), zap.String("id", entry.ID))

	cand, ok, err := en.matcher.Match(ctx, e.RawDescription)
	if err != nil {
		log.Warn("market lookup failed", zap.Error(err))
		return failed(err.Error())
	}
	if !ok {
		log.Info("no matching market", zap.String("description", e.RawDescription))
		return failed(domain.NoMatchMessage)
	}
	ticker := cand.Market.Ticker

	bctx, cancel := context.WithTimeout(ctx, en.bankrollTimeout)
	bankroll, err := en.bankroll.Bankroll(bctx, fs.Follower)
	cancel()
	if err != nil {
		err = domain.ClassifyUpstream("read bankroll", err)
		log.Warn("bankroll unavailable", zap.Error(err))
		r := failed(err.Error())
		r.KalshiTicker = ticker
		return r
	}

	size := PositionSize(fs.Setting.AllocationUSD, bankroll, fs.Setting.MaxPositionPercent)
	if !size.IsPositive() {
		log.Debug("position size is zero, skipping")
		return domain.Resolution{Status: domain.LedgerStatusSkipped, KalshiTicker: ticker}
	}
	sizeUSD := size.InexactFloat64()

	ask := cand.Market.YesAsk
	if entry.OrderSide == domain.OrderSideNo {
		ask = cand.Market.NoAsk
	}

	octx, cancel := context.WithTimeout(ctx, en.orderTimeout)
	start := time.Now()
	fill, err := en.executor.Execute(octx, Order{
		ClientOrderID: entry.ID,
		Ticker:        ticker,
		Side:          entry.OrderSide,
		Action:        entry.OrderAction,
		SizeUSD:       size,
		AskCents:      ask,
	})
	cancel()
	observability.RecordUpstreamLatency("kalshi", "place_order", time.Since(start).Seconds())
	if err != nil {
		err = domain.ClassifyUpstream("place order", err)
		log.Warn("order failed", zap.String("ticker", ticker), zap.Error(err))
		r := failed(err.Error())
		r.KalshiTicker = ticker
		r.SizeUSD = sizeUSD
		return r
	}

	log.Info("trade copied",
		zap.String("ticker", ticker),
		zap.String("side", entry.OrderSide),
		zap.String("action", entry.OrderAction),
		zap.String("size_usd", size.StringFixed(2)),
		zap.Bool("simulated", entry.IsSimulation))

	return domain.Resolution{
		Status:       domain.LedgerStatusExecuted,
		KalshiTicker: ticker,
		SizeUSD:      sizeUSD,
		OrderID:      fill.OrderID,
	}
}

func (en *Engine) resolve(ctx context.Context, entry *domain.LedgerEntry, r domain.Resolution) (*domain.LedgerEntry, error) {
	r.ResolvedAt = en.now().UnixMilli()
	done, err := en.ledger.Resolve(ctx, entry.Follower, entry.ID, r)
	if err != nil {
		return nil, err
	}
	observability.RecordLedgerOutcome(string(done.Status), done.IsSimulation)
	if en.notifier != nil {
		en.notifier.EmitLedgerEntry(ctx, done)
	}
	return done, nil
}

func failed(msg string) domain.Resolution {
	return domain.Resolution{Status: domain.LedgerStatusFailed, Error: msg}
}
