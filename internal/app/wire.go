package app

import (
	"context"
	"fmt"
	"log/slog"

	s3blob "polywatch/internal/blob/s3"
	"polywatch/internal/config"
	"polywatch/internal/crypto"
	"polywatch/internal/domain"
	"polywatch/internal/market"
	"polywatch/internal/notify"
	"polywatch/internal/platform/polymarket"
	"polywatch/internal/state/redis"
	"polywatch/internal/store/postgres"
)

// Dependencies bundles everything the monitoring loop needs to operate. It
// is constructed by Wire and torn down by the returned cleanup function.
type Dependencies struct {
	Signer   *crypto.Signer
	Clob     *polymarket.ClobClient
	Registry *market.Registry
	Notifier *notify.Notifier

	// Optional collaborators, nil when the backing service is disabled.
	Snapshots domain.SnapshotStore
	Alerts    domain.AlertStore
	Archiver  *s3blob.Archiver
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that
// should be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}

	// --- Signer ---
	// A bad or missing key makes every authenticated request impossible,
	// so this is fatal.
	privateKey, err := crypto.LoadKey(crypto.KeyConfig{
		RawPrivateKey:    cfg.Wallet.PrivateKey,
		EncryptedKeyPath: cfg.Wallet.EncryptedKeyPath,
		KeyPassword:      cfg.Wallet.KeyPassword,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: load wallet key: %w", err)
	}
	signer, err := crypto.NewSigner(privateKey, cfg.Polymarket.ChainID)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: signer: %w", err)
	}
	deps.Signer = signer

	// --- CLOB client and registry ---
	deps.Clob = polymarket.NewClobClient(cfg.Polymarket.ClobHost, signer)
	deps.Registry = market.NewRegistry()

	// --- Redis snapshot store ---
	if cfg.Redis.Enabled {
		redisClient, err := redis.New(ctx, redis.ClientConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
			TLSEnabled: cfg.Redis.TLSEnabled,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: redis: %w", err)
		}
		closers = append(closers, func() { _ = redisClient.Close() })

		deps.Snapshots = redis.NewSnapshotStore(redisClient, cfg.Redis.SnapshotTTL.Duration)
	}

	// --- PostgreSQL alert history ---
	if cfg.Postgres.Enabled {
		pgClient, err := postgres.New(ctx, postgres.ClientConfig{
			DSN:      cfg.Postgres.DSN,
			Host:     cfg.Postgres.Host,
			Port:     cfg.Postgres.Port,
			Database: cfg.Postgres.Database,
			User:     cfg.Postgres.User,
			Password: cfg.Postgres.Password,
			SSLMode:  cfg.Postgres.SSLMode,
			MaxConns: cfg.Postgres.PoolMaxConns,
			MinConns: cfg.Postgres.PoolMinConns,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres: %w", err)
		}
		closers = append(closers, pgClient.Close)

		if cfg.Postgres.RunMigrations {
			if err := pgClient.RunMigrations(ctx); err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
			}
		}

		deps.Alerts = postgres.NewAlertStore(pgClient.Pool())
	}

	// --- S3 alert archival (requires the alert store as its source) ---
	if cfg.S3.Enabled && deps.Alerts != nil {
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}

		deps.Archiver = s3blob.NewArchiver(
			s3blob.NewWriter(s3Client),
			deps.Alerts,
			cfg.S3.ArchiveInterval.Duration,
			logger,
		)
	}

	// --- Notifications ---
	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(
			cfg.Notify.TelegramToken,
			cfg.Notify.TelegramChatID,
		))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
	}
	deps.Notifier = notify.NewNotifier(senders, cfg.Notify.Events, logger)

	return deps, cleanup, nil
}
