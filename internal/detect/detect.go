// Package detect holds the pure change-detection functions of the
// monitoring pipeline. Given the previous and current state of a token's
// order book or spread, it decides whether the move is large enough to
// alert on. No I/O, no shared state.
package detect

import (
	"github.com/shopspring/decimal"

	"polywatch/internal/domain"
)

// Side identifies an order-book side in a detection result.
type Side string

const (
	SideBids Side = "bids"
	SideAsks Side = "asks"
)

// Detection thresholds, in percent. A side's best-price move is reported
// when its absolute change reaches PriceChangeThreshold; a spread move when
// it reaches SpreadChangeThreshold. Exact boundary values trigger.
var (
	PriceChangeThreshold  = decimal.NewFromInt(15)
	SpreadChangeThreshold = decimal.NewFromInt(50)
)

var hundred = decimal.NewFromInt(100)

// PriceChanges compares the best price of each side between the previous
// and current book and returns the signed percent change per side for
// every side whose absolute move reaches PriceChangeThreshold.
//
// A side with no previous best price (empty side, or prev is nil) has no
// baseline and is never reported.
func PriceChanges(prev, curr *domain.OrderBook) map[Side]decimal.Decimal {
	changes := make(map[Side]decimal.Decimal)
	if prev == nil || curr == nil {
		return changes
	}

	for _, side := range []Side{SideBids, SideAsks} {
		prevBest := bestPrice(prev, side)
		if prevBest.IsZero() {
			continue
		}
		currBest := bestPrice(curr, side)

		change := currBest.Sub(prevBest).Div(prevBest).Mul(hundred)
		if change.Abs().GreaterThanOrEqual(PriceChangeThreshold) {
			changes[side] = change
		}
	}

	return changes
}

// SpreadChange returns the signed percent change between the previous and
// current spread when its absolute value reaches SpreadChangeThreshold,
// and nil otherwise. With no previous spread, or a zero previous spread,
// there is no baseline and nil is returned.
func SpreadChange(prev *decimal.Decimal, curr decimal.Decimal) *decimal.Decimal {
	if prev == nil || prev.IsZero() {
		return nil
	}

	change := curr.Sub(*prev).Div(*prev).Mul(hundred)
	if change.Abs().GreaterThanOrEqual(SpreadChangeThreshold) {
		return &change
	}
	return nil
}

func bestPrice(book *domain.OrderBook, side Side) decimal.Decimal {
	if side == SideBids {
		return book.BestBid()
	}
	return book.BestAsk()
}
