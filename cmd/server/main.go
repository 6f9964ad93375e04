// Package main runs the copier service: HTTP API and webhook ingestion, the wallet
// watcher and the stale-pending sweeper.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"solana-kalshi-copier/internal/catalog"
	"solana-kalshi-copier/internal/config"
	"solana-kalshi-copier/internal/engine"
	"solana-kalshi-copier/internal/httpapi"
	"solana-kalshi-copier/internal/ingestion"
	"solana-kalshi-copier/internal/kalshi"
	"solana-kalshi-copier/internal/ledger"
	applog "solana-kalshi-copier/internal/logger"
	"solana-kalshi-copier/internal/matcher"
	"solana-kalshi-copier/internal/notify"
	"solana-kalshi-copier/internal/scheduler"
	"solana-kalshi-copier/internal/solana"
	"solana-kalshi-copier/internal/watcher"
)

const subscriptionSyncInterval = 30 * time.Second

func main() {
	configPath := flag.String("config", "config.yaml", "Path to yaml config file")
	envOnly := flag.Bool("env-only", false, "Ignore the config file and read COPIER_* variables only")
	flag.Parse()

	cfg, err := config.Load(*configPath, *envOnly)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	logger, err := applog.New(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
	logger.Info("shutdown complete")
}

func run(ctx context.Context, cfg config.Config, logger *zap.Logger) error {
	st, cleanup, err := openStores(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("open stores: %w", err)
	}
	defer cleanup()

	kc, err := newKalshiClient(cfg, logger)
	if err != nil {
		return err
	}

	cat := catalog.New(kc, catalog.Options{
		TTL:    cfg.Catalog.TTL,
		Limit:  cfg.Kalshi.MarketLimit,
		Logger: logger,
	})
	match := matcher.New(cat, cfg.Matcher.MinScore, logger)

	led := ledger.New(ledger.Options{
		Store:     st.ledger,
		Analytics: st.analytics,
		Publisher: st.publisher,
		Logger:    logger,
	})

	hub := notify.NewHub(logger)
	emitter := notify.New(notify.Options{
		Store:  st.notifications,
		Limit:  cfg.Notifications.Limit,
		Hub:    hub,
		Logger: logger,
	})

	var (
		executor engine.Executor       = engine.SimulatedExecutor{}
		bankroll engine.BankrollSource = engine.FixedBankroll(decimal.NewFromFloat(cfg.Copy.SimulatedBankrollUSD))
	)
	if !cfg.Copy.Simulation {
		executor = engine.NewKalshiExecutor(kc)
		bankroll = engine.NewLiveBankroll(kc)
	}

	eng := engine.New(engine.Options{
		Settings:        st.settings,
		Matcher:         match,
		Ledger:          led,
		Executor:        executor,
		Bankroll:        bankroll,
		Notifier:        emitter,
		OrderTimeout:    cfg.Copy.OrderTimeout,
		BankrollTimeout: cfg.Copy.BankrollTimeout,
		Logger:          logger,
	})

	ingestor := ingestion.New(ingestion.Options{
		Processor:  eng,
		Signatures: st.signatures,
		Logger:     logger,
	})

	w := watcher.New(watcher.Options{
		Settings:      st.settings,
		Feed:          newFeed(cfg),
		Sink:          ingestor,
		Progress:      st.progress,
		Concurrency:   cfg.Watcher.Concurrency,
		WalletTimeout: cfg.Watcher.WalletTimeout,
		Logger:        logger,
	})

	sched := scheduler.New(ctx, logger)
	if _, err := sched.Every("pending-sweeper", cfg.Copy.SweepInterval, func(ctx context.Context) error {
		n, err := led.SweepStale(ctx, cfg.Copy.PendingTimeout)
		if n > 0 {
			logger.Warn("resolved stale pending entries", zap.Int("count", n))
		}
		return err
	}, cfg.Copy.SweepInterval); err != nil {
		return err
	}

	var trigger *watcher.LogTrigger
	if cfg.Watcher.Enabled {
		if err := w.Warm(ctx); err != nil {
			logger.Warn("watcher warm-up failed", zap.Error(err))
		}
		if _, err := sched.Every("watcher", cfg.Watcher.Interval, w.Tick, cfg.Watcher.Interval); err != nil {
			return err
		}

		if cfg.Solana.WSEndpoint != "" {
			logs, err := solana.NewLogsClient(ctx, cfg.Solana.WSEndpoint, nil, logger)
			if err != nil {
				logger.Warn("log subscriptions disabled", zap.Error(err))
			} else {
				defer func() { _ = logs.Close() }()
				trigger = watcher.NewLogTrigger(ctx, logs, w, st.settings, logger)
				defer func() { _ = trigger.Close() }()
				if err := trigger.Sync(ctx); err != nil {
					logger.Warn("initial subscription sync failed", zap.Error(err))
				}
				if _, err := sched.Every("log-subscriptions", subscriptionSyncInterval, trigger.Sync, subscriptionSyncInterval); err != nil {
					return err
				}
			}
		}
	}

	sched.Start()
	defer sched.Stop()

	started := time.Now()
	router := httpapi.NewRouter(httpapi.Deps{
		Ingestor:      ingestor,
		Settings:      st.settings,
		Signatures:    st.signatures,
		Ledger:        led,
		Notifications: emitter,
		Stream:        hub,
		Markets:       match,
		Status: func(context.Context) map[string]any {
			markets, loadedAt := cat.Loaded()
			status := map[string]any{
				"uptime":     time.Since(started).Round(time.Second).String(),
				"simulation": cfg.Copy.Simulation,
				"backends":   st.backends,
				"catalog":    map[string]any{"markets": markets, "loadedAt": loadedAt},
				"watcher":    map[string]any{"enabled": cfg.Watcher.Enabled, "tracked": w.Tracked()},
			}
			if trigger != nil {
				status["subscriptions"] = trigger.Subscribed()
			}
			return status
		},
		WebhookToken: cfg.Ingestion.WebhookToken,
		JWTSecret:    cfg.Auth.JWTSecret,
		Logger:       logger,
	})
	srv := httpapi.NewServer(cfg.Server.HTTPAddr, router)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("http server listening", zap.String("addr", cfg.Server.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down http server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func newKalshiClient(cfg config.Config, logger *zap.Logger) (*kalshi.Client, error) {
	var creds *kalshi.Credentials
	if cfg.Kalshi.KeyID != "" && cfg.Kalshi.PrivateKeyPath != "" {
		c, err := kalshi.LoadCredentials(cfg.Kalshi.KeyID, cfg.Kalshi.PrivateKeyPath)
		if err != nil {
			return nil, fmt.Errorf("load kalshi credentials: %w", err)
		}
		creds = c
	}
	return kalshi.NewClient(cfg.Kalshi.BaseURL, creds,
		kalshi.WithTimeout(cfg.Kalshi.Timeout),
		kalshi.WithLogger(logger),
	), nil
}

func newFeed(cfg config.Config) watcher.Feed {
	if cfg.Solana.Feed == "enhanced" {
		return watcher.NewEnhancedFeed(solana.NewEnhancedClient(cfg.Solana.EnhancedAPIURL, cfg.Solana.APIKey,
			solana.WithTimeout(cfg.Solana.Timeout)))
	}
	return watcher.NewRPCFeed(solana.NewHTTPClient(cfg.Solana.RPCEndpoint, solana.WithTimeout(cfg.Solana.Timeout)))
}
