package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"polywatch/internal/domain"
)

// AlertStore implements domain.AlertStore using PostgreSQL.
type AlertStore struct {
	pool *pgxpool.Pool
}

// NewAlertStore creates an AlertStore backed by the given connection pool.
func NewAlertStore(pool *pgxpool.Pool) *AlertStore {
	return &AlertStore{pool: pool}
}

// Insert records a fired alert.
func (s *AlertStore) Insert(ctx context.Context, alert domain.Alert) error {
	const query = `
		INSERT INTO alerts (
			id, condition_id, token_id, description,
			bid_change, ask_change, spread_change,
			message, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := s.pool.Exec(ctx, query,
		alert.ID, alert.ConditionID, alert.TokenID, alert.Description,
		decimalToText(alert.BidChange),
		decimalToText(alert.AskChange),
		decimalToText(alert.SpreadChange),
		alert.Message, alert.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: insert alert %s: %w", alert.ID, err)
	}
	return nil
}

// ListBetween returns all alerts created in [from, to), oldest first.
func (s *AlertStore) ListBetween(ctx context.Context, from, to time.Time) ([]domain.Alert, error) {
	const query = `
		SELECT id, condition_id, token_id, description,
		       bid_change::text, ask_change::text, spread_change::text,
		       message, created_at
		FROM alerts
		WHERE created_at >= $1 AND created_at < $2
		ORDER BY created_at ASC`

	rows, err := s.pool.Query(ctx, query, from, to)
	if err != nil {
		return nil, fmt.Errorf("postgres: list alerts: %w", err)
	}
	defer rows.Close()

	var alerts []domain.Alert
	for rows.Next() {
		var (
			a                    domain.Alert
			bid, ask, spread *string
		)
		if err := rows.Scan(
			&a.ID, &a.ConditionID, &a.TokenID, &a.Description,
			&bid, &ask, &spread,
			&a.Message, &a.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("postgres: scan alert: %w", err)
		}

		if a.BidChange, err = textToDecimal(bid); err != nil {
			return nil, fmt.Errorf("postgres: alert %s bid_change: %w", a.ID, err)
		}
		if a.AskChange, err = textToDecimal(ask); err != nil {
			return nil, fmt.Errorf("postgres: alert %s ask_change: %w", a.ID, err)
		}
		if a.SpreadChange, err = textToDecimal(spread); err != nil {
			return nil, fmt.Errorf("postgres: alert %s spread_change: %w", a.ID, err)
		}

		alerts = append(alerts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterate alerts: %w", err)
	}

	return alerts, nil
}

// decimalToText renders an optional decimal as a nullable text parameter;
// the numeric columns coerce it on insert.
func decimalToText(d *decimal.Decimal) *string {
	if d == nil {
		return nil
	}
	s := d.String()
	return &s
}

func textToDecimal(s *string) (*decimal.Decimal, error) {
	if s == nil {
		return nil, nil
	}
	d, err := decimal.NewFromString(*s)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// Compile-time interface check.
var _ domain.AlertStore = (*AlertStore)(nil)
