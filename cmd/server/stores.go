package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"solana-kalshi-copier/internal/bus"
	"solana-kalshi-copier/internal/config"
	"solana-kalshi-copier/internal/ledger"
	"solana-kalshi-copier/internal/storage"
	chstore "solana-kalshi-copier/internal/storage/clickhouse"
	"solana-kalshi-copier/internal/storage/memory"
	"solana-kalshi-copier/internal/storage/migrations"
	pgstore "solana-kalshi-copier/internal/storage/postgres"
	"solana-kalshi-copier/internal/storage/redisstore"
)

// stores holds every storage implementation the server wires together.
// Optional backends stay nil when not configured.
type stores struct {
	ledger        storage.LedgerStore
	settings      storage.CopySettingStore
	progress      storage.WatchProgressStore
	signatures    storage.SignatureLog
	notifications storage.NotificationStore
	analytics     storage.LedgerAnalyticsStore
	publisher     ledger.Publisher

	backends map[string]string
}

// openStores connects the configured backends. The returned cleanup closes them.
func openStores(ctx context.Context, cfg config.Config, logger *zap.Logger) (*stores, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
	fail := func(err error) (*stores, func(), error) {
		cleanup()
		return nil, func() {}, err
	}

	s := &stores{backends: map[string]string{}}

	switch cfg.Storage.Backend {
	case "postgres":
		pool, err := pgstore.NewPool(ctx, cfg.Postgres.DSN)
		if err != nil {
			return fail(err)
		}
		closers = append(closers, pool.Close)
		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			return fail(fmt.Errorf("postgres migrations: %w", err))
		}
		s.ledger = pgstore.NewLedgerStore(pool)
		s.settings = pgstore.NewCopySettingStore(pool)
		s.progress = pgstore.NewWatchProgressStore(pool)
	default:
		s.ledger = memory.NewLedgerStore()
		s.settings = memory.NewCopySettingStore()
		s.progress = memory.NewWatchProgressStore()
	}
	s.backends["ledger"] = cfg.Storage.Backend

	if cfg.Redis.Addr != "" {
		rdb, err := redisstore.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return fail(err)
		}
		closers = append(closers, func() { _ = rdb.Close() })
		s.signatures = redisstore.NewSignatureLog(rdb, cfg.Ingestion.SignatureTTL, cfg.Ingestion.HistoryLen)
		s.notifications = redisstore.NewNotificationStore(rdb, cfg.Ingestion.SignatureTTL)
		s.backends["signatures"] = "redis"
	} else {
		s.signatures = memory.NewSignatureLog(cfg.Ingestion.SignatureTTL, cfg.Ingestion.HistoryLen)
		s.notifications = memory.NewNotificationStore()
		s.backends["signatures"] = "memory"
	}

	if cfg.ClickHouse.DSN != "" {
		conn, err := migrations.RunClickhouseMigrations(ctx, cfg.ClickHouse.DSN)
		if err != nil {
			return fail(fmt.Errorf("clickhouse migrations: %w", err))
		}
		closers = append(closers, func() { _ = conn.Close() })
		s.analytics = chstore.NewLedgerAnalyticsStore(conn)
		s.backends["analytics"] = "clickhouse"
	}

	if len(cfg.Kafka.Brokers) > 0 {
		pub := bus.NewLedgerPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		closers = append(closers, func() {
			if err := pub.Close(); err != nil {
				logger.Warn("close kafka writer", zap.Error(err))
			}
		})
		s.publisher = pub
		s.backends["bus"] = "kafka"
	}

	return s, cleanup, nil
}
