package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"polywatch/internal/domain"
)

// SnapshotStore implements domain.SnapshotStore with one JSON value per
// token book and one plain value per token spread.
//
// Key schema:
//
//	prev:book:{tokenID}   - JSON-encoded domain.OrderBook
//	prev:spread:{tokenID} - decimal string
type SnapshotStore struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewSnapshotStore creates a SnapshotStore backed by the given Client.
// ttl 0 keeps snapshots forever.
func NewSnapshotStore(c *Client, ttl time.Duration) *SnapshotStore {
	return &SnapshotStore{rdb: c.Underlying(), ttl: ttl}
}

func bookKey(tokenID string) string   { return "prev:book:" + tokenID }
func spreadKey(tokenID string) string { return "prev:spread:" + tokenID }

// SaveBook overwrites the stored book for the token.
func (s *SnapshotStore) SaveBook(ctx context.Context, book domain.OrderBook) error {
	data, err := json.Marshal(book)
	if err != nil {
		return fmt.Errorf("redis: marshal book %s: %w", book.TokenID, err)
	}
	if err := s.rdb.Set(ctx, bookKey(book.TokenID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis: save book %s: %w", book.TokenID, err)
	}
	return nil
}

// LoadBook returns the stored book for the token, or domain.ErrNotFound.
func (s *SnapshotStore) LoadBook(ctx context.Context, tokenID string) (domain.OrderBook, error) {
	data, err := s.rdb.Get(ctx, bookKey(tokenID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.OrderBook{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.OrderBook{}, fmt.Errorf("redis: load book %s: %w", tokenID, err)
	}

	var book domain.OrderBook
	if err := json.Unmarshal(data, &book); err != nil {
		return domain.OrderBook{}, fmt.Errorf("redis: decode book %s: %w", tokenID, err)
	}
	return book, nil
}

// SaveSpread overwrites the stored spread for the token.
func (s *SnapshotStore) SaveSpread(ctx context.Context, tokenID string, spread decimal.Decimal) error {
	if err := s.rdb.Set(ctx, spreadKey(tokenID), spread.String(), s.ttl).Err(); err != nil {
		return fmt.Errorf("redis: save spread %s: %w", tokenID, err)
	}
	return nil
}

// LoadSpread returns the stored spread for the token, or domain.ErrNotFound.
func (s *SnapshotStore) LoadSpread(ctx context.Context, tokenID string) (decimal.Decimal, error) {
	val, err := s.rdb.Get(ctx, spreadKey(tokenID)).Result()
	if errors.Is(err, redis.Nil) {
		return decimal.Zero, domain.ErrNotFound
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("redis: load spread %s: %w", tokenID, err)
	}

	spread, err := decimal.NewFromString(val)
	if err != nil {
		return decimal.Zero, fmt.Errorf("redis: decode spread %s: %w", tokenID, err)
	}
	return spread, nil
}

// Compile-time interface check.
var _ domain.SnapshotStore = (*SnapshotStore)(nil)
