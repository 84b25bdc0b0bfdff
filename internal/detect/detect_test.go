package detect

import (
	"testing"

	"github.com/shopspring/decimal"

	"polywatch/internal/domain"
)

func book(bid, ask string) *domain.OrderBook {
	b := &domain.OrderBook{TokenID: "tok"}
	if bid != "" {
		b.Bids = []domain.PriceLevel{{Price: decimal.RequireFromString(bid), Size: decimal.NewFromInt(100)}}
	}
	if ask != "" {
		b.Asks = []domain.PriceLevel{{Price: decimal.RequireFromString(ask), Size: decimal.NewFromInt(100)}}
	}
	return b
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestPriceChangesExactThresholdTriggers(t *testing.T) {
	// 0.50 -> 0.575 is exactly +15.00%.
	changes := PriceChanges(book("0.50", ""), book("0.575", ""))

	change, ok := changes[SideBids]
	if !ok {
		t.Fatal("expected bids change at exact threshold")
	}
	if !change.Equal(dec("15")) {
		t.Errorf("change = %s, want 15", change)
	}
}

func TestPriceChangesJustBelowThresholdIgnored(t *testing.T) {
	// 0.50 -> 0.57495 is +14.99%.
	changes := PriceChanges(book("0.50", ""), book("0.57495", ""))

	if len(changes) != 0 {
		t.Errorf("expected no changes, got %v", changes)
	}
}

func TestPriceChangesReportsBothSidesSigned(t *testing.T) {
	// Bids +16%, asks -20%.
	changes := PriceChanges(book("0.50", "0.60"), book("0.58", "0.48"))

	if got := changes[SideBids]; !got.Equal(dec("16")) {
		t.Errorf("bids change = %s, want 16", got)
	}
	if got := changes[SideAsks]; !got.Equal(dec("-20")) {
		t.Errorf("asks change = %s, want -20", got)
	}
}

func TestPriceChangesOneSideOnly(t *testing.T) {
	// Bids move 20%, asks barely move.
	changes := PriceChanges(book("0.50", "0.60"), book("0.60", "0.61"))

	if len(changes) != 1 {
		t.Fatalf("expected 1 change, got %d", len(changes))
	}
	if _, ok := changes[SideBids]; !ok {
		t.Error("expected bids change")
	}
}

func TestPriceChangesNoBaseline(t *testing.T) {
	// No previous book at all.
	if changes := PriceChanges(nil, book("0.50", "0.60")); len(changes) != 0 {
		t.Errorf("nil prev: expected no changes, got %v", changes)
	}

	// Previous book had an empty bid side; only asks have a baseline.
	changes := PriceChanges(book("", "0.60"), book("0.90", "0.90"))
	if _, ok := changes[SideBids]; ok {
		t.Error("bids without baseline must not be reported")
	}
	if got := changes[SideAsks]; !got.Equal(dec("50")) {
		t.Errorf("asks change = %s, want 50", got)
	}
}

func TestPriceChangesSideDrainsToZero(t *testing.T) {
	// A side that disappears entirely reads as a -100% move.
	changes := PriceChanges(book("0.50", ""), book("", ""))

	if got := changes[SideBids]; !got.Equal(dec("-100")) {
		t.Errorf("bids change = %s, want -100", got)
	}
}

func TestSpreadChangeExactThresholdTriggers(t *testing.T) {
	prev := dec("0.10")

	// 0.10 -> 0.15 is exactly +50.00%.
	change := SpreadChange(&prev, dec("0.15"))
	if change == nil {
		t.Fatal("expected spread change at exact threshold")
	}
	if !change.Equal(dec("50")) {
		t.Errorf("change = %s, want 50", change)
	}
}

func TestSpreadChangeJustBelowThresholdIgnored(t *testing.T) {
	prev := dec("0.10")

	// +49.99%.
	if change := SpreadChange(&prev, dec("0.14999")); change != nil {
		t.Errorf("expected nil, got %s", change)
	}
}

func TestSpreadChangeNegative(t *testing.T) {
	prev := dec("0.10")

	// 0.10 -> 0.04 is -60%.
	change := SpreadChange(&prev, dec("0.04"))
	if change == nil {
		t.Fatal("expected spread change")
	}
	if !change.Equal(dec("-60")) {
		t.Errorf("change = %s, want -60", change)
	}

	// -40% does not reach the threshold.
	if change := SpreadChange(&prev, dec("0.06")); change != nil {
		t.Errorf("expected nil for -40%%, got %s", change)
	}
}

func TestSpreadChangeNoBaseline(t *testing.T) {
	if change := SpreadChange(nil, dec("0.10")); change != nil {
		t.Errorf("nil prev: expected nil, got %s", change)
	}

	zero := decimal.Zero
	if change := SpreadChange(&zero, dec("0.10")); change != nil {
		t.Errorf("zero prev: expected nil, got %s", change)
	}
}

func TestDetectionIsPure(t *testing.T) {
	prev, curr := book("0.50", "0.60"), book("0.60", "0.75")

	first := PriceChanges(prev, curr)
	second := PriceChanges(prev, curr)

	if len(first) != len(second) {
		t.Fatalf("repeat detection differs: %v vs %v", first, second)
	}
	for side, change := range first {
		if !second[side].Equal(change) {
			t.Errorf("side %s: %s vs %s", side, change, second[side])
		}
	}
}
