package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate checks the configuration and returns the first violated constraint.
func (c Config) Validate() error {
	switch c.Storage.Backend {
	case "memory":
	case "postgres":
		if c.Postgres.DSN == "" {
			return errors.New("postgres.dsn is required when storage.backend is postgres")
		}
	default:
		return fmt.Errorf("storage.backend must be memory or postgres, got %q", c.Storage.Backend)
	}

	switch c.Solana.Feed {
	case "rpc":
		if c.Solana.RPCEndpoint == "" {
			return errors.New("solana.rpc_endpoint is required for the rpc feed")
		}
	case "enhanced":
		if c.Solana.EnhancedAPIURL == "" || c.Solana.APIKey == "" {
			return errors.New("solana.enhanced_api_url and solana.api_key are required for the enhanced feed")
		}
	default:
		return fmt.Errorf("solana.feed must be rpc or enhanced, got %q", c.Solana.Feed)
	}

	if c.Kalshi.BaseURL == "" {
		return errors.New("kalshi.base_url is required")
	}
	if c.Kalshi.MarketLimit <= 0 {
		return errors.New("kalshi.market_limit must be positive")
	}
	if !c.Copy.Simulation && (c.Kalshi.KeyID == "" || c.Kalshi.PrivateKeyPath == "") {
		return errors.New("kalshi.key_id and kalshi.private_key_path are required when copy.simulation is false")
	}
	if c.Copy.Simulation && c.Copy.SimulatedBankrollUSD < 0 {
		return errors.New("copy.simulated_bankroll_usd must not be negative")
	}

	if c.Catalog.TTL <= 0 {
		return errors.New("catalog.ttl must be positive")
	}
	if c.Matcher.MinScore <= 0 || c.Matcher.MinScore > 2 {
		return errors.New("matcher.min_score must be in (0, 2]")
	}

	if c.Watcher.Enabled {
		if c.Watcher.Interval <= 0 {
			return errors.New("watcher.interval must be positive")
		}
		if c.Watcher.Concurrency <= 0 {
			return errors.New("watcher.concurrency must be positive")
		}
		if c.Watcher.WalletTimeout <= 0 {
			return errors.New("watcher.wallet_timeout must be positive")
		}
	}

	if c.Ingestion.HistoryLen <= 0 {
		return errors.New("ingestion.history_len must be positive")
	}
	if c.Notifications.Limit <= 0 {
		return errors.New("notifications.limit must be positive")
	}
	if c.Copy.PendingTimeout <= 0 || c.Copy.SweepInterval <= 0 {
		return errors.New("copy.pending_timeout and copy.sweep_interval must be positive")
	}
	if c.Copy.OrderTimeout <= 0 || c.Copy.BankrollTimeout <= 0 {
		return errors.New("copy.order_timeout and copy.bankroll_timeout must be positive")
	}
	// The sweeper must not fail an entry whose catalog fetch, bankroll read or order
	// placement may still be in flight.
	if inFlight := c.Kalshi.Timeout + c.Copy.BankrollTimeout + c.Copy.OrderTimeout; c.Copy.PendingTimeout <= inFlight {
		return fmt.Errorf("copy.pending_timeout (%s) must exceed kalshi.timeout + copy.bankroll_timeout + copy.order_timeout (%s)",
			c.Copy.PendingTimeout, inFlight)
	}

	if len(c.Kafka.Brokers) > 0 && strings.TrimSpace(c.Kafka.Topic) == "" {
		return errors.New("kafka.topic is required when kafka.brokers is set")
	}

	return nil
}
