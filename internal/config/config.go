// Package config defines the top-level configuration for the monitor and
// provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by POLYWATCH_* environment variables.
type Config struct {
	Wallet     WalletConfig     `toml:"wallet"`
	Polymarket PolymarketConfig `toml:"polymarket"`
	Monitor    MonitorConfig    `toml:"monitor"`
	Redis      RedisConfig      `toml:"redis"`
	Postgres   PostgresConfig   `toml:"postgres"`
	S3         S3Config         `toml:"s3"`
	Notify     NotifyConfig     `toml:"notify"`
	LogLevel   string           `toml:"log_level"`
}

// WalletConfig holds Ethereum wallet credentials used for CLOB auth signing.
type WalletConfig struct {
	PrivateKey       string `toml:"private_key"`
	EncryptedKeyPath string `toml:"encrypted_key_path"`
	KeyPassword      string `toml:"key_password"`
}

// PolymarketConfig holds Polymarket API endpoints and chain parameters.
type PolymarketConfig struct {
	ClobHost string `toml:"clob_host"`
	WsHost   string `toml:"ws_host"`
	ChainID  int    `toml:"chain_id"`
}

// MonitorConfig holds polling and live-feed parameters.
type MonitorConfig struct {
	PollInterval duration `toml:"poll_interval"`
	// LiveFeed enables the websocket order-book feed alongside polling.
	LiveFeed bool `toml:"live_feed"`
	// MaxLiveAssets caps how many token IDs are subscribed on the live feed.
	MaxLiveAssets int `toml:"max_live_assets"`
}

// RedisConfig holds Redis connection parameters for snapshot warm starts.
type RedisConfig struct {
	Enabled     bool     `toml:"enabled"`
	Addr        string   `toml:"addr"`
	Password    string   `toml:"password"`
	DB          int      `toml:"db"`
	PoolSize    int      `toml:"pool_size"`
	MaxRetries  int      `toml:"max_retries"`
	TLSEnabled  bool     `toml:"tls_enabled"`
	SnapshotTTL duration `toml:"snapshot_ttl"`
}

// PostgresConfig holds PostgreSQL connection parameters for alert history.
type PostgresConfig struct {
	Enabled       bool   `toml:"enabled"`
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// S3Config holds S3-compatible object storage parameters for alert archival.
type S3Config struct {
	Enabled         bool     `toml:"enabled"`
	Endpoint        string   `toml:"endpoint"`
	Region          string   `toml:"region"`
	Bucket          string   `toml:"bucket"`
	AccessKey       string   `toml:"access_key"`
	SecretKey       string   `toml:"secret_key"`
	UseSSL          bool     `toml:"use_ssl"`
	ForcePathStyle  bool     `toml:"force_path_style"`
	ArchiveInterval duration `toml:"archive_interval"`
}

// NotifyConfig holds notification channel credentials.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
}

// duration is a wrapper around time.Duration that supports TOML string
// decoding (e.g. "5m", "30s").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "5m" or "30s".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns a Config populated with reasonable default values.
// These match the values in config.example.toml.
func Defaults() Config {
	return Config{
		Polymarket: PolymarketConfig{
			ClobHost: "https://clob.polymarket.com",
			WsHost:   "wss://ws-subscriptions-clob.polymarket.com",
			ChainID:  137,
		},
		Monitor: MonitorConfig{
			PollInterval:  duration{60 * time.Second},
			LiveFeed:      false,
			MaxLiveAssets: 50,
		},
		Redis: RedisConfig{
			Enabled:     false,
			Addr:        "localhost:6379",
			DB:          0,
			PoolSize:    20,
			MaxRetries:  3,
			TLSEnabled:  false,
			SnapshotTTL: duration{24 * time.Hour},
		},
		Postgres: PostgresConfig{
			Enabled:       false,
			Host:          "localhost",
			Port:          5432,
			Database:      "postgres",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		S3: S3Config{
			Enabled:         false,
			Endpoint:        "http://localhost:9000",
			Region:          "us-east-1",
			Bucket:          "polywatch-data",
			UseSSL:          false,
			ForcePathStyle:  true,
			ArchiveInterval: duration{time.Hour},
		},
		Notify: NotifyConfig{
			Events: []string{"orderbook_alert", "error"},
		},
		LogLevel: "info",
	}
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks Config for obviously invalid or missing values and returns
// a combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	// LogLevel
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Wallet. All CLOB endpoints require signed headers, so a key source is
	// mandatory.
	if c.Wallet.PrivateKey == "" && c.Wallet.EncryptedKeyPath == "" {
		errs = append(errs, "wallet: either private_key or encrypted_key_path must be set")
	}
	if c.Wallet.EncryptedKeyPath != "" && c.Wallet.KeyPassword == "" {
		errs = append(errs, "wallet: key_password is required when encrypted_key_path is set")
	}

	// Polymarket endpoints
	if c.Polymarket.ClobHost == "" {
		errs = append(errs, "polymarket: clob_host must not be empty")
	}
	if c.Polymarket.ChainID <= 0 {
		errs = append(errs, "polymarket: chain_id must be positive")
	}
	if c.Monitor.LiveFeed && c.Polymarket.WsHost == "" {
		errs = append(errs, "polymarket: ws_host must not be empty when monitor.live_feed is enabled")
	}

	// Monitor
	if c.Monitor.PollInterval.Duration <= 0 {
		errs = append(errs, "monitor: poll_interval must be positive")
	}
	if c.Monitor.LiveFeed && c.Monitor.MaxLiveAssets < 1 {
		errs = append(errs, "monitor: max_live_assets must be >= 1 when live_feed is enabled")
	}

	// Redis
	if c.Redis.Enabled {
		if c.Redis.Addr == "" {
			errs = append(errs, "redis: addr must not be empty")
		}
		if c.Redis.PoolSize < 1 {
			errs = append(errs, "redis: pool_size must be >= 1")
		}
	}

	// Postgres
	if c.Postgres.Enabled {
		if strings.TrimSpace(c.Postgres.DSN) == "" {
			if c.Postgres.Host == "" {
				errs = append(errs, "postgres: host must not be empty (or set postgres.dsn)")
			}
			if c.Postgres.Port <= 0 || c.Postgres.Port > 65535 {
				errs = append(errs, fmt.Sprintf("postgres: port must be 1-65535, got %d", c.Postgres.Port))
			}
			if c.Postgres.Database == "" {
				errs = append(errs, "postgres: database must not be empty")
			}
		}
		if c.Postgres.PoolMaxConns < 1 {
			errs = append(errs, "postgres: pool_max_conns must be >= 1")
		}
		if c.Postgres.PoolMinConns < 0 {
			errs = append(errs, "postgres: pool_min_conns must be >= 0")
		}
		if c.Postgres.PoolMinConns > c.Postgres.PoolMaxConns {
			errs = append(errs, "postgres: pool_min_conns must not exceed pool_max_conns")
		}
	}

	// S3 archival needs the alert history store as its source.
	if c.S3.Enabled {
		if !c.Postgres.Enabled {
			errs = append(errs, "s3: alert archival requires postgres.enabled")
		}
		if c.S3.Endpoint == "" {
			errs = append(errs, "s3: endpoint must not be empty")
		}
		if c.S3.Bucket == "" {
			errs = append(errs, "s3: bucket must not be empty")
		}
		if c.S3.Region == "" {
			errs = append(errs, "s3: region must not be empty")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
