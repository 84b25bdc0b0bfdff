package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const testKey = "b71c71a67e1177ad4e901695e1b4b9ee17ae16c6668d313eac2f96dbcda3f291"

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadMergesFileOverDefaults(t *testing.T) {
	path := writeConfig(t, `
log_level = "debug"

[wallet]
private_key = "`+testKey+`"

[monitor]
poll_interval = "30s"

[redis]
enabled = true
addr = "redis:6379"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %s", cfg.LogLevel)
	}
	if cfg.Monitor.PollInterval.Duration != 30*time.Second {
		t.Errorf("PollInterval = %v", cfg.Monitor.PollInterval.Duration)
	}
	if !cfg.Redis.Enabled || cfg.Redis.Addr != "redis:6379" {
		t.Errorf("Redis = %+v", cfg.Redis)
	}
	// Defaults survive for everything the file does not mention.
	if cfg.Polymarket.ClobHost != "https://clob.polymarket.com" {
		t.Errorf("ClobHost = %s", cfg.Polymarket.ClobHost)
	}
	if cfg.Polymarket.ChainID != 137 {
		t.Errorf("ChainID = %d", cfg.Polymarket.ChainID)
	}
	if cfg.Redis.PoolSize != 20 {
		t.Errorf("Redis.PoolSize = %d", cfg.Redis.PoolSize)
	}
}

func TestLoadEmptyPathUsesDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Monitor.PollInterval.Duration != 60*time.Second {
		t.Errorf("PollInterval = %v", cfg.Monitor.PollInterval.Duration)
	}
}

func TestEnvOverridesWinOverFile(t *testing.T) {
	path := writeConfig(t, `
[polymarket]
clob_host = "https://file.example.com"
`)
	t.Setenv("POLYWATCH_POLYMARKET_CLOB_HOST", "https://env.example.com")
	t.Setenv("POLYWATCH_WALLET_PRIVATE_KEY", testKey)
	t.Setenv("POLYWATCH_MONITOR_POLL_INTERVAL", "2m")
	t.Setenv("POLYWATCH_NOTIFY_EVENTS", "orderbook_alert, error ,")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Polymarket.ClobHost != "https://env.example.com" {
		t.Errorf("ClobHost = %s", cfg.Polymarket.ClobHost)
	}
	if cfg.Wallet.PrivateKey != testKey {
		t.Errorf("PrivateKey not overridden")
	}
	if cfg.Monitor.PollInterval.Duration != 2*time.Minute {
		t.Errorf("PollInterval = %v", cfg.Monitor.PollInterval.Duration)
	}
	if len(cfg.Notify.Events) != 2 || cfg.Notify.Events[0] != "orderbook_alert" || cfg.Notify.Events[1] != "error" {
		t.Errorf("Events = %v", cfg.Notify.Events)
	}
}

func TestValidateRequiresKeySource(t *testing.T) {
	cfg := Defaults()

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error with no wallet key")
	}
	if !strings.Contains(err.Error(), "wallet") {
		t.Errorf("error = %v", err)
	}

	cfg.Wallet.PrivateKey = testKey
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate with key: %v", err)
	}
}

func TestValidateCollectsAllProblems(t *testing.T) {
	cfg := Defaults()
	cfg.LogLevel = "loud"
	cfg.Polymarket.ClobHost = ""
	cfg.Monitor.PollInterval.Duration = 0

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"log_level", "clob_host", "poll_interval", "wallet"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error missing %q: %v", want, err)
		}
	}
}

func TestValidateS3NeedsPostgres(t *testing.T) {
	cfg := Defaults()
	cfg.Wallet.PrivateKey = testKey
	cfg.S3.Enabled = true
	cfg.S3.AccessKey = "k"
	cfg.S3.SecretKey = "s"

	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "postgres.enabled") {
		t.Errorf("error = %v, want postgres.enabled complaint", err)
	}

	cfg.Postgres.Enabled = true
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestRedactedConfigHidesSecrets(t *testing.T) {
	cfg := Defaults()
	cfg.Wallet.PrivateKey = testKey
	cfg.Redis.Password = "hunter2"
	cfg.Notify.TelegramToken = "123:abc"

	red := RedactedConfig(&cfg)

	if red.Wallet.PrivateKey != "***" || red.Redis.Password != "***" || red.Notify.TelegramToken != "***" {
		t.Errorf("secrets not redacted: %+v", red)
	}
	// The original is untouched.
	if cfg.Wallet.PrivateKey != testKey {
		t.Error("original config mutated")
	}
	// Empty secrets stay empty rather than becoming "***".
	if red.Postgres.Password != "" {
		t.Errorf("empty password redacted to %q", red.Postgres.Password)
	}
}
