package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultsEnvOnly(t *testing.T) {
	cfg, err := Load("", true)
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.HTTPAddr)
	assert.Equal(t, "memory", cfg.Storage.Backend)
	assert.Equal(t, 5*time.Minute, cfg.Catalog.TTL)
	assert.Equal(t, 10*time.Second, cfg.Watcher.Interval)
	assert.Equal(t, 100, cfg.Notifications.Limit)
	assert.True(t, cfg.Copy.Simulation)
	assert.Equal(t, 10000.0, cfg.Copy.SimulatedBankrollUSD)
	assert.Equal(t, 5*time.Second, cfg.Copy.BankrollTimeout)
	assert.Greater(t, cfg.Copy.PendingTimeout, cfg.Kalshi.Timeout+cfg.Copy.BankrollTimeout+cfg.Copy.OrderTimeout)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_FileAndEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := `
server:
  http_addr: ":9999"
watcher:
  interval: 30s
  concurrency: 8
matcher:
  min_score: 0.5
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))

	t.Setenv("COPIER_WATCHER_CONCURRENCY", "2")
	t.Setenv("COPIER_KAFKA_BROKERS", "k1:9092, k2:9092")

	cfg, err := Load(path, false)
	require.NoError(t, err)

	assert.Equal(t, ":9999", cfg.Server.HTTPAddr)
	assert.Equal(t, 30*time.Second, cfg.Watcher.Interval)
	assert.Equal(t, 2, cfg.Watcher.Concurrency)
	assert.Equal(t, 0.5, cfg.Matcher.MinScore)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
}

func TestValidate(t *testing.T) {
	base, err := Load("", true)
	require.NoError(t, err)

	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"unknown backend", func(c *Config) { c.Storage.Backend = "sqlite" }},
		{"postgres without dsn", func(c *Config) { c.Storage.Backend = "postgres" }},
		{"unknown feed", func(c *Config) { c.Solana.Feed = "ws" }},
		{"enhanced without key", func(c *Config) { c.Solana.Feed = "enhanced" }},
		{"live without credentials", func(c *Config) { c.Copy.Simulation = false }},
		{"zero ttl", func(c *Config) { c.Catalog.TTL = 0 }},
		{"zero concurrency", func(c *Config) { c.Watcher.Concurrency = 0 }},
		{"kafka without topic", func(c *Config) { c.Kafka.Brokers = []string{"k:9092"}; c.Kafka.Topic = "" }},
		{"zero bankroll timeout", func(c *Config) { c.Copy.BankrollTimeout = 0 }},
		{"pending timeout shorter than an order", func(c *Config) { c.Copy.PendingTimeout = 20 * time.Second }},
		{"pending timeout equal to in-flight budget", func(c *Config) {
			c.Copy.PendingTimeout = c.Kalshi.Timeout + c.Copy.BankrollTimeout + c.Copy.OrderTimeout
		}},
	}

	require.NoError(t, base.Validate())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
