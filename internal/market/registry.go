// Package market holds the discovered universe of CLOB markets.
package market

import (
	"context"
	"fmt"
	"sync"

	"polywatch/internal/domain"
	"polywatch/internal/platform/polymarket"
)

// Lister is the slice of the CLOB client the registry needs for discovery.
type Lister interface {
	ListMarkets(ctx context.Context, cursor string) (polymarket.MarketsPage, error)
}

// Registry is the market universe, keyed by condition ID. It is populated
// once at startup via cursor pagination and only mutated afterwards to
// mark markets closed; reads are safe from any goroutine.
type Registry struct {
	mu      sync.RWMutex
	markets map[string]domain.Market
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		markets: make(map[string]domain.Market),
	}
}

// Init discovers the full market universe: it pages through ListMarkets
// starting from the empty cursor until the venue returns its end-of-list
// sentinel, merging each page by condition ID (last write wins for duplicate
// IDs). One-shot; markets created after Init are invisible until restart.
func (r *Registry) Init(ctx context.Context, lister Lister) error {
	cursor := ""
	pages := 0

	for {
		page, err := lister.ListMarkets(ctx, cursor)
		if err != nil {
			return fmt.Errorf("market: discovery page %d: %w", pages+1, err)
		}
		pages++

		r.mu.Lock()
		for i := range page.Markets {
			m := page.Markets[i]
			if m.ConditionID == "" {
				continue
			}
			r.markets[m.ConditionID] = m
		}
		r.mu.Unlock()

		if page.NextCursor == polymarket.EndCursor {
			return nil
		}
		cursor = page.NextCursor
	}
}

// Get returns the market with the given condition ID.
func (r *Registry) Get(conditionID string) (domain.Market, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.markets[conditionID]
	return m, ok
}

// Len returns the number of discovered markets.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.markets)
}

// Active returns every market that should be polled (active and not
// closed). The returned slice is a copy.
func (r *Registry) Active() []domain.Market {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.Market, 0, len(r.markets))
	for _, m := range r.markets {
		if m.Pollable() {
			out = append(out, m)
		}
	}
	return out
}

// PrimaryTokenIDs returns the primary token ID of up to limit pollable
// markets. limit <= 0 means no limit.
func (r *Registry) PrimaryTokenIDs(limit int) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, 0, len(r.markets))
	for _, m := range r.markets {
		if !m.Pollable() {
			continue
		}
		tok, ok := m.PrimaryToken()
		if !ok {
			continue
		}
		out = append(out, tok.TokenID)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out
}

// MarkClosed flags a market as closed so later passes skip it. Used when
// the venue reports a polled market as gone or resolved.
func (r *Registry) MarkClosed(conditionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if m, ok := r.markets[conditionID]; ok {
		m.Closed = true
		r.markets[conditionID] = m
	}
}
