// Package app provides the top-level application lifecycle. It wires the
// signer, CLOB client, stores, and notification channels together and runs
// the monitor, the optional live feed, and the optional alert archiver
// until the context is cancelled.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"polywatch/internal/config"
	"polywatch/internal/feed"
	"polywatch/internal/monitor"
)

// App is the root application object. It owns the configuration, logger,
// and a list of cleanup functions that are called in reverse order on
// shutdown.
type App struct {
	cfg     *config.Config
	logger  *slog.Logger
	closers []func()
}

// New creates a new App from the given configuration and logger.
func New(cfg *config.Config, logger *slog.Logger) *App {
	return &App{
		cfg:    cfg,
		logger: logger.With(slog.String("component", "app")),
	}
}

// Run is the main entry point. It wires all dependencies, starts the
// monitor and its optional companions, and blocks until the context is
// cancelled or a fatal error occurs.
func (a *App) Run(ctx context.Context) error {
	a.logger.InfoContext(ctx, "starting application",
		slog.String("log_level", a.cfg.LogLevel),
		slog.Duration("poll_interval", a.cfg.Monitor.PollInterval.Duration),
	)

	deps, cleanup, err := Wire(ctx, a.cfg, a.logger)
	if err != nil {
		return fmt.Errorf("app: wire dependencies: %w", err)
	}
	a.closers = append(a.closers, cleanup)

	a.logger.InfoContext(ctx, "wallet ready",
		slog.String("address", deps.Signer.Address().Hex()),
	)

	var opts []monitor.Option
	opts = append(opts, monitor.WithPollInterval(a.cfg.Monitor.PollInterval.Duration))
	if deps.Snapshots != nil {
		opts = append(opts, monitor.WithSnapshotStore(deps.Snapshots))
	}
	if deps.Alerts != nil {
		opts = append(opts, monitor.WithAlertStore(deps.Alerts))
	}

	mon := monitor.New(deps.Clob, deps.Registry, deps.Notifier, a.logger, opts...)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return mon.Run(gctx)
	})

	if a.cfg.Monitor.LiveFeed {
		g.Go(func() error {
			// The feed needs the discovered token universe, so it waits
			// for the monitor's first registry load.
			select {
			case <-gctx.Done():
				return gctx.Err()
			case <-mon.Ready():
			}

			tokenIDs := deps.Registry.PrimaryTokenIDs(a.cfg.Monitor.MaxLiveAssets)
			bookFeed := feed.NewBookFeed(
				a.cfg.Polymarket.WsHost,
				tokenIDs,
				mon.HandleBookUpdate,
				a.logger,
			)
			return bookFeed.Run(gctx)
		})
	}

	if deps.Archiver != nil {
		g.Go(func() error {
			return deps.Archiver.Run(gctx)
		})
	}

	err = g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// Close tears down all resources in reverse registration order. It is safe
// to call multiple times; subsequent calls are no-ops.
func (a *App) Close() {
	a.logger.Info("shutting down application")
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
