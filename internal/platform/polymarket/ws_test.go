package polymarket

import (
	"testing"

	"polywatch/internal/domain"
)

func collectBooks(t *testing.T, frames ...string) []domain.OrderBook {
	t.Helper()
	w := NewWSClient("wss://example.invalid/ws/market")
	var books []domain.OrderBook
	w.OnBook(func(b domain.OrderBook) {
		books = append(books, b)
	})
	for _, f := range frames {
		w.dispatch([]byte(f))
	}
	return books
}

func TestDispatchSingleBookEvent(t *testing.T) {
	books := collectBooks(t, `{
		"event_type": "book",
		"asset_id": "tok-1",
		"market": "0xcond",
		"bids": [{"price": "0.40", "size": "10"}],
		"asks": [{"price": "0.45", "size": "20"}],
		"timestamp": "1700000000000"
	}`)

	if len(books) != 1 {
		t.Fatalf("books = %d, want 1", len(books))
	}
	b := books[0]
	if b.TokenID != "tok-1" {
		t.Errorf("TokenID = %s", b.TokenID)
	}
	if b.BestBid().String() != "0.4" || b.BestAsk().String() != "0.45" {
		t.Errorf("best bid/ask = %s/%s", b.BestBid(), b.BestAsk())
	}
}

func TestDispatchArrayFrame(t *testing.T) {
	books := collectBooks(t, `[
		{"event_type": "book", "asset_id": "a", "bids": [], "asks": []},
		{"event_type": "book", "asset_id": "b", "bids": [], "asks": []}
	]`)

	if len(books) != 2 {
		t.Fatalf("books = %d, want 2", len(books))
	}
	if books[0].TokenID != "a" || books[1].TokenID != "b" {
		t.Errorf("token order = %s, %s", books[0].TokenID, books[1].TokenID)
	}
}

func TestDispatchIgnoresOtherEventsAndGarbage(t *testing.T) {
	books := collectBooks(t,
		`{"event_type": "price_change", "asset_id": "tok-1"}`,
		`not json at all`,
		`{"event_type": "book", "asset_id": "tok-1", "bids": [{"price": "x", "size": "1"}], "asks": []}`,
	)

	if len(books) != 0 {
		t.Errorf("books = %d, want 0", len(books))
	}
}
