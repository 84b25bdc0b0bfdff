package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PriceLevel is a single price+size entry in an order book side.
type PriceLevel struct {
	Price decimal.Decimal `json:"price"`
	Size  decimal.Decimal `json:"size"`
}

// OrderBook is a full snapshot of bids and asks for one token. Both sides
// are ordered best-price-first per venue convention: highest bid at index
// 0, lowest ask at index 0.
type OrderBook struct {
	TokenID   string       `json:"token_id"`
	Bids      []PriceLevel `json:"bids"`
	Asks      []PriceLevel `json:"asks"`
	Hash      string       `json:"hash,omitempty"`
	Timestamp time.Time    `json:"timestamp"`
}

// BestBid returns the top-of-book bid price, or zero when the side is empty.
func (b *OrderBook) BestBid() decimal.Decimal {
	if len(b.Bids) == 0 {
		return decimal.Zero
	}
	return b.Bids[0].Price
}

// BestAsk returns the top-of-book ask price, or zero when the side is empty.
func (b *OrderBook) BestAsk() decimal.Decimal {
	if len(b.Asks) == 0 {
		return decimal.Zero
	}
	return b.Asks[0].Price
}
