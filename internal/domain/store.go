package domain

import (
	"context"
	"io"
	"time"

	"github.com/shopspring/decimal"
)

// SnapshotStore persists the most recent book and spread per token so the
// monitor can warm-start its baselines after a restart. Implementations
// return ErrNotFound when no snapshot exists for a token.
type SnapshotStore interface {
	SaveBook(ctx context.Context, book OrderBook) error
	LoadBook(ctx context.Context, tokenID string) (OrderBook, error)
	SaveSpread(ctx context.Context, tokenID string, spread decimal.Decimal) error
	LoadSpread(ctx context.Context, tokenID string) (decimal.Decimal, error)
}

// AlertStore persists fired alerts for auditing and archival.
type AlertStore interface {
	Insert(ctx context.Context, alert Alert) error
	ListBetween(ctx context.Context, from, to time.Time) ([]Alert, error)
}

// BlobWriter uploads an object to blob storage.
type BlobWriter interface {
	Put(ctx context.Context, path string, data io.Reader, contentType string) error
}
