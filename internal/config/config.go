// Package config loads service configuration from a yaml file, .env and COPIER_* environment variables.
package config

import (
	"errors"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	App           AppConfig           `mapstructure:"app"`
	Server        ServerConfig        `mapstructure:"server"`
	Log           LogConfig           `mapstructure:"log"`
	Storage       StorageConfig       `mapstructure:"storage"`
	Postgres      PostgresConfig      `mapstructure:"postgres"`
	ClickHouse    ClickHouseConfig    `mapstructure:"clickhouse"`
	Redis         RedisConfig         `mapstructure:"redis"`
	Kafka         KafkaConfig         `mapstructure:"kafka"`
	Solana        SolanaConfig        `mapstructure:"solana"`
	Kalshi        KalshiConfig        `mapstructure:"kalshi"`
	Catalog       CatalogConfig       `mapstructure:"catalog"`
	Matcher       MatcherConfig       `mapstructure:"matcher"`
	Watcher       WatcherConfig       `mapstructure:"watcher"`
	Ingestion     IngestionConfig     `mapstructure:"ingestion"`
	Copy          CopyConfig          `mapstructure:"copy"`
	Notifications NotificationsConfig `mapstructure:"notifications"`
	Auth          AuthConfig          `mapstructure:"auth"`
}

type AppConfig struct {
	Env string `mapstructure:"env"`
}

type ServerConfig struct {
	HTTPAddr        string        `mapstructure:"http_addr"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type LogConfig struct {
	Level             string `mapstructure:"level"`
	Encoding          string `mapstructure:"encoding"`
	Development       bool   `mapstructure:"development"`
	Sampling          bool   `mapstructure:"sampling"`
	DisableCaller     bool   `mapstructure:"disable_caller"`
	DisableStacktrace bool   `mapstructure:"disable_stacktrace"`
}

// StorageConfig selects the ledger/settings backend: "memory" or "postgres".
type StorageConfig struct {
	Backend string `mapstructure:"backend"`
}

type PostgresConfig struct {
	DSN string `mapstructure:"dsn"`
}

// ClickHouseConfig enables the ledger analytics mirror when DSN is set.
type ClickHouseConfig struct {
	DSN string `mapstructure:"dsn"`
}

// RedisConfig enables redis-backed signature records and notifications when Addr is set.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// KafkaConfig enables ledger publication when Brokers is non-empty.
type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

type SolanaConfig struct {
	RPCEndpoint    string        `mapstructure:"rpc_endpoint"`
	WSEndpoint     string        `mapstructure:"ws_endpoint"` // empty disables log-subscription triggers
	EnhancedAPIURL string        `mapstructure:"enhanced_api_url"`
	APIKey         string        `mapstructure:"api_key"`
	Feed           string        `mapstructure:"feed"` // rpc | enhanced
	Timeout        time.Duration `mapstructure:"timeout"`
}

type KalshiConfig struct {
	BaseURL        string        `mapstructure:"base_url"`
	KeyID          string        `mapstructure:"key_id"`
	PrivateKeyPath string        `mapstructure:"private_key_path"`
	Timeout        time.Duration `mapstructure:"timeout"`
	MarketLimit    int           `mapstructure:"market_limit"`
}

type CatalogConfig struct {
	TTL time.Duration `mapstructure:"ttl"`
}

type MatcherConfig struct {
	MinScore float64 `mapstructure:"min_score"`
}

type WatcherConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	Interval      time.Duration `mapstructure:"interval"`
	Concurrency   int           `mapstructure:"concurrency"`
	WalletTimeout time.Duration `mapstructure:"wallet_timeout"`
}

type IngestionConfig struct {
	HistoryLen   int           `mapstructure:"history_len"`
	HistoryTTL   time.Duration `mapstructure:"history_ttl"`
	SignatureTTL time.Duration `mapstructure:"signature_ttl"`
	WebhookToken string        `mapstructure:"webhook_token"`
}

type CopyConfig struct {
	Simulation           bool          `mapstructure:"simulation"`
	SimulatedBankrollUSD float64       `mapstructure:"simulated_bankroll_usd"`
	OrderTimeout         time.Duration `mapstructure:"order_timeout"`
	BankrollTimeout      time.Duration `mapstructure:"bankroll_timeout"`
	PendingTimeout       time.Duration `mapstructure:"pending_timeout"`
	SweepInterval        time.Duration `mapstructure:"sweep_interval"`
}

type NotificationsConfig struct {
	Limit int `mapstructure:"limit"`
}

// AuthConfig enables bearer-token auth on follower routes when JWTSecret is set.
type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
}

// Load reads configuration. When envOnly is true the yaml file is skipped.
// A .env file in the working directory is loaded first; existing variables win.
func Load(path string, envOnly bool) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, err
	}

	v := viper.New()
	v.SetEnvPrefix("COPIER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.AutomaticEnv()
	setDefaults(v)

	if !envOnly {
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
				return Config{}, err
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}

	// Comma-separated broker lists from the environment.
	if raw := os.Getenv("COPIER_KAFKA_BROKERS"); raw != "" {
		cfg.Kafka.Brokers = splitList(raw)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.env", "dev")
	v.SetDefault("server.http_addr", ":8080")
	v.SetDefault("server.shutdown_timeout", "5s")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.encoding", "console")
	v.SetDefault("log.development", true)
	v.SetDefault("log.sampling", false)
	v.SetDefault("log.disable_caller", false)
	v.SetDefault("log.disable_stacktrace", false)

	v.SetDefault("storage.backend", "memory")
	v.SetDefault("postgres.dsn", "")
	v.SetDefault("clickhouse.dsn", "")
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("kafka.brokers", []string{})
	v.SetDefault("kafka.topic", "copier.ledger")

	v.SetDefault("solana.rpc_endpoint", "https://api.mainnet-beta.solana.com")
	v.SetDefault("solana.ws_endpoint", "")
	v.SetDefault("solana.enhanced_api_url", "https://api.helius.xyz")
	v.SetDefault("solana.api_key", "")
	v.SetDefault("solana.feed", "rpc")
	v.SetDefault("solana.timeout", "10s")

	v.SetDefault("kalshi.base_url", "https://api.elections.kalshi.com/trade-api/v2")
	v.SetDefault("kalshi.key_id", "")
	v.SetDefault("kalshi.private_key_path", "")
	v.SetDefault("kalshi.timeout", "15s")
	v.SetDefault("kalshi.market_limit", 1000)

	v.SetDefault("catalog.ttl", "5m")
	v.SetDefault("matcher.min_score", 0.3)

	v.SetDefault("watcher.enabled", true)
	v.SetDefault("watcher.interval", "10s")
	v.SetDefault("watcher.concurrency", 4)
	v.SetDefault("watcher.wallet_timeout", "5s")

	v.SetDefault("ingestion.history_len", 50)
	v.SetDefault("ingestion.history_ttl", "24h")
	v.SetDefault("ingestion.signature_ttl", "24h")
	v.SetDefault("ingestion.webhook_token", "")

	v.SetDefault("copy.simulation", true)
	v.SetDefault("copy.simulated_bankroll_usd", 10000)
	v.SetDefault("copy.order_timeout", "10s")
	v.SetDefault("copy.bankroll_timeout", "5s")
	v.SetDefault("copy.pending_timeout", "2m")
	v.SetDefault("copy.sweep_interval", "1m")

	v.SetDefault("notifications.limit", 100)
	v.SetDefault("auth.jwt_secret", "")
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
