package market

import (
	"context"
	"errors"
	"testing"

	"polywatch/internal/domain"
	"polywatch/internal/platform/polymarket"
)

// fakeLister serves a fixed sequence of pages keyed by the cursor.
type fakeLister struct {
	pages map[string]polymarket.MarketsPage
	calls []string
	err   error
}

func (f *fakeLister) ListMarkets(_ context.Context, cursor string) (polymarket.MarketsPage, error) {
	f.calls = append(f.calls, cursor)
	if f.err != nil {
		return polymarket.MarketsPage{}, f.err
	}
	return f.pages[cursor], nil
}

func mkt(conditionID, tokenID string, active, closed bool) domain.Market {
	return domain.Market{
		ConditionID: conditionID,
		Active:      active,
		Closed:      closed,
		Tokens:      []domain.Token{{TokenID: tokenID, Outcome: "Yes"}},
	}
}

func TestInitPagesUntilSentinel(t *testing.T) {
	lister := &fakeLister{pages: map[string]polymarket.MarketsPage{
		"": {
			Markets:    []domain.Market{mkt("c1", "t1", true, false)},
			NextCursor: "page2",
		},
		"page2": {
			Markets:    []domain.Market{mkt("c2", "t2", true, false)},
			NextCursor: polymarket.EndCursor,
		},
	}}

	r := NewRegistry()
	if err := r.Init(context.Background(), lister); err != nil {
		t.Fatalf("Init: %v", err)
	}

	if len(lister.calls) != 2 || lister.calls[0] != "" || lister.calls[1] != "page2" {
		t.Errorf("calls = %v", lister.calls)
	}
	if r.Len() != 2 {
		t.Errorf("Len = %d, want 2", r.Len())
	}
	if _, ok := r.Get("c2"); !ok {
		t.Error("c2 not discovered")
	}
}

func TestInitDuplicateConditionIDLastWins(t *testing.T) {
	first := mkt("c1", "t1", true, false)
	first.Question = "v1"
	second := mkt("c1", "t1", true, false)
	second.Question = "v2"

	lister := &fakeLister{pages: map[string]polymarket.MarketsPage{
		"": {
			Markets:    []domain.Market{first},
			NextCursor: "page2",
		},
		"page2": {
			Markets:    []domain.Market{second},
			NextCursor: polymarket.EndCursor,
		},
	}}

	r := NewRegistry()
	if err := r.Init(context.Background(), lister); err != nil {
		t.Fatalf("Init: %v", err)
	}

	if r.Len() != 1 {
		t.Fatalf("Len = %d, want 1", r.Len())
	}
	got, _ := r.Get("c1")
	if got.Question != "v2" {
		t.Errorf("Question = %s, want v2", got.Question)
	}
}

func TestInitSkipsEmptyConditionID(t *testing.T) {
	lister := &fakeLister{pages: map[string]polymarket.MarketsPage{
		"": {
			Markets:    []domain.Market{mkt("", "t0", true, false), mkt("c1", "t1", true, false)},
			NextCursor: polymarket.EndCursor,
		},
	}}

	r := NewRegistry()
	if err := r.Init(context.Background(), lister); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if r.Len() != 1 {
		t.Errorf("Len = %d, want 1", r.Len())
	}
}

func TestInitPropagatesListError(t *testing.T) {
	sentinel := errors.New("boom")
	lister := &fakeLister{err: sentinel}

	r := NewRegistry()
	err := r.Init(context.Background(), lister)
	if !errors.Is(err, sentinel) {
		t.Errorf("error = %v, want wrapped %v", err, sentinel)
	}
}

func TestActiveFiltersClosedAndInactive(t *testing.T) {
	lister := &fakeLister{pages: map[string]polymarket.MarketsPage{
		"": {
			Markets: []domain.Market{
				mkt("open", "t1", true, false),
				mkt("closed", "t2", true, true),
				mkt("inactive", "t3", false, false),
			},
			NextCursor: polymarket.EndCursor,
		},
	}}

	r := NewRegistry()
	if err := r.Init(context.Background(), lister); err != nil {
		t.Fatalf("Init: %v", err)
	}

	active := r.Active()
	if len(active) != 1 || active[0].ConditionID != "open" {
		t.Errorf("Active = %+v", active)
	}
}

func TestMarkClosedRemovesFromActive(t *testing.T) {
	lister := &fakeLister{pages: map[string]polymarket.MarketsPage{
		"": {
			Markets:    []domain.Market{mkt("c1", "t1", true, false)},
			NextCursor: polymarket.EndCursor,
		},
	}}

	r := NewRegistry()
	if err := r.Init(context.Background(), lister); err != nil {
		t.Fatalf("Init: %v", err)
	}

	r.MarkClosed("c1")
	if got := r.Active(); len(got) != 0 {
		t.Errorf("Active after MarkClosed = %+v", got)
	}
	// The market itself stays known.
	if _, ok := r.Get("c1"); !ok {
		t.Error("market removed entirely")
	}
}

func TestPrimaryTokenIDsHonorsLimit(t *testing.T) {
	lister := &fakeLister{pages: map[string]polymarket.MarketsPage{
		"": {
			Markets: []domain.Market{
				mkt("c1", "t1", true, false),
				mkt("c2", "t2", true, false),
				mkt("c3", "t3", true, false),
			},
			NextCursor: polymarket.EndCursor,
		},
	}}

	r := NewRegistry()
	if err := r.Init(context.Background(), lister); err != nil {
		t.Fatalf("Init: %v", err)
	}

	if got := r.PrimaryTokenIDs(2); len(got) != 2 {
		t.Errorf("limited tokens = %v", got)
	}
	if got := r.PrimaryTokenIDs(0); len(got) != 3 {
		t.Errorf("unlimited tokens = %v", got)
	}
}
