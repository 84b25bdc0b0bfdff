// Package feed streams live order-book snapshots from the CLOB WebSocket
// into the monitor, as an optional complement to the poll loop.
package feed

import (
	"context"
	"log/slog"
	"time"

	"polywatch/internal/domain"
	"polywatch/internal/platform/polymarket"
)

// reconnectDelay is the pause before re-dialing after a disconnect.
const reconnectDelay = 2 * time.Second

// BookHandler receives each live book snapshot.
type BookHandler func(ctx context.Context, book domain.OrderBook)

// BookFeed subscribes to the market channel for a fixed set of token IDs
// and forwards book snapshots to the handler. It reconnects until its
// context is cancelled.
type BookFeed struct {
	wsURL    string
	tokenIDs []string
	onBook   BookHandler
	logger   *slog.Logger
}

// NewBookFeed creates a feed for the given tokens.
func NewBookFeed(wsURL string, tokenIDs []string, onBook BookHandler, logger *slog.Logger) *BookFeed {
	return &BookFeed{
		wsURL:    wsURL,
		tokenIDs: tokenIDs,
		onBook:   onBook,
		logger:   logger.With(slog.String("component", "book_feed")),
	}
}

// Run connects, subscribes, and blocks until ctx is cancelled, redialing
// on disconnect.
func (f *BookFeed) Run(ctx context.Context) error {
	if len(f.tokenIDs) == 0 {
		f.logger.InfoContext(ctx, "no tokens to subscribe, feed disabled")
		return nil
	}

	for {
		if err := f.runConnection(ctx); err != nil && ctx.Err() == nil {
			f.logger.WarnContext(ctx, "feed disconnected, reconnecting",
				slog.String("error", err.Error()),
			)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(reconnectDelay):
		}
	}
}

func (f *BookFeed) runConnection(ctx context.Context) error {
	client := polymarket.NewWSClient(f.wsURL)
	defer func() { _ = client.Close() }()

	client.OnBook(func(book domain.OrderBook) {
		f.onBook(ctx, book)
	})

	if err := client.Connect(ctx); err != nil {
		return err
	}
	if err := client.Subscribe(f.tokenIDs); err != nil {
		return err
	}
	f.logger.InfoContext(ctx, "subscribed to book channel",
		slog.Int("tokens", len(f.tokenIDs)),
	)

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-client.Done():
		return domain.ErrWSDisconnect
	}
}
