package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies POLYWATCH_* environment variable overrides, and
// returns the final Config. An empty path skips the file and uses defaults
// plus environment overrides only. The returned Config has NOT been
// validated; the caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return nil, err
		}
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known POLYWATCH_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e.
// not empty). This lets operators inject secrets at deploy time without
// touching the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Wallet ──
	setStr(&cfg.Wallet.PrivateKey, "POLYWATCH_WALLET_PRIVATE_KEY")
	setStr(&cfg.Wallet.EncryptedKeyPath, "POLYWATCH_WALLET_ENCRYPTED_KEY_PATH")
	setStr(&cfg.Wallet.KeyPassword, "POLYWATCH_WALLET_KEY_PASSWORD")

	// ── Polymarket ──
	setStr(&cfg.Polymarket.ClobHost, "POLYWATCH_POLYMARKET_CLOB_HOST")
	setStr(&cfg.Polymarket.WsHost, "POLYWATCH_POLYMARKET_WS_HOST")
	setInt(&cfg.Polymarket.ChainID, "POLYWATCH_POLYMARKET_CHAIN_ID")

	// ── Monitor ──
	setDuration(&cfg.Monitor.PollInterval, "POLYWATCH_MONITOR_POLL_INTERVAL")
	setBool(&cfg.Monitor.LiveFeed, "POLYWATCH_MONITOR_LIVE_FEED")
	setInt(&cfg.Monitor.MaxLiveAssets, "POLYWATCH_MONITOR_MAX_LIVE_ASSETS")

	// ── Redis ──
	setBool(&cfg.Redis.Enabled, "POLYWATCH_REDIS_ENABLED")
	setStr(&cfg.Redis.Addr, "POLYWATCH_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "POLYWATCH_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "POLYWATCH_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "POLYWATCH_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "POLYWATCH_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "POLYWATCH_REDIS_TLS_ENABLED")
	setDuration(&cfg.Redis.SnapshotTTL, "POLYWATCH_REDIS_SNAPSHOT_TTL")

	// ── Postgres ──
	setBool(&cfg.Postgres.Enabled, "POLYWATCH_POSTGRES_ENABLED")
	setStr(&cfg.Postgres.DSN, "POLYWATCH_POSTGRES_DSN")
	setStr(&cfg.Postgres.Host, "POLYWATCH_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "POLYWATCH_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "POLYWATCH_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "POLYWATCH_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "POLYWATCH_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "POLYWATCH_POSTGRES_SSLMODE")
	setInt(&cfg.Postgres.PoolMaxConns, "POLYWATCH_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "POLYWATCH_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "POLYWATCH_POSTGRES_RUN_MIGRATIONS")

	// ── S3 ──
	setBool(&cfg.S3.Enabled, "POLYWATCH_S3_ENABLED")
	setStr(&cfg.S3.Endpoint, "POLYWATCH_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "POLYWATCH_S3_REGION")
	setStr(&cfg.S3.Bucket, "POLYWATCH_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "POLYWATCH_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "POLYWATCH_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "POLYWATCH_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "POLYWATCH_S3_FORCE_PATH_STYLE")
	setDuration(&cfg.S3.ArchiveInterval, "POLYWATCH_S3_ARCHIVE_INTERVAL")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "POLYWATCH_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "POLYWATCH_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "POLYWATCH_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "POLYWATCH_NOTIFY_EVENTS")

	// ── Top-level ──
	setStr(&cfg.LogLevel, "POLYWATCH_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
