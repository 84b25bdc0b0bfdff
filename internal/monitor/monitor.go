// Package monitor drives the poll/diff/alert loop: it discovers the market
// universe once, then repeatedly fetches every active market's book and
// spread, compares them to the last observed state, and dispatches alerts
// on threshold-crossing moves.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"polywatch/internal/detect"
	"polywatch/internal/domain"
	"polywatch/internal/market"
)

// DefaultPollInterval is the delay between poll passes and after a failed
// pass step.
const DefaultPollInterval = 60 * time.Second

// DataClient is the slice of the CLOB client the monitor needs.
type DataClient interface {
	market.Lister
	GetMarket(ctx context.Context, conditionID string) (domain.Market, error)
	GetOrderBook(ctx context.Context, tokenID string) (domain.OrderBook, error)
	GetSpread(ctx context.Context, tokenID string) (decimal.Decimal, error)
}

// Alerter delivers a formatted alert. Satisfied by *notify.Notifier.
type Alerter interface {
	Notify(ctx context.Context, event, title, message string) error
}

// EventAlert is the notification event type under which alerts are sent.
const EventAlert = "orderbook_alert"

// Monitor owns the previous-state cache and the poll loop. PreviousState
// is keyed by token ID, created on a token's first successful check and
// overwritten on every check thereafter regardless of alert outcome, so
// detection is edge-triggered against the last observed state.
type Monitor struct {
	client   DataClient
	registry *market.Registry
	alerter  Alerter
	logger   *slog.Logger

	interval  time.Duration
	snapshots domain.SnapshotStore // optional warm start + write-through
	alerts    domain.AlertStore    // optional alert history

	// mu guards the previous-state maps; the poll loop and the optional
	// live feed share the diff-then-overwrite path.
	mu          sync.Mutex
	prevBooks   map[string]domain.OrderBook
	prevSpreads map[string]decimal.Decimal

	ready     chan struct{}
	readyOnce sync.Once
}

// Option configures optional monitor collaborators.
type Option func(*Monitor)

// WithPollInterval overrides the delay between passes.
func WithPollInterval(d time.Duration) Option {
	return func(m *Monitor) {
		if d > 0 {
			m.interval = d
		}
	}
}

// WithSnapshotStore enables warm start and write-through of the most
// recent book/spread per token.
func WithSnapshotStore(s domain.SnapshotStore) Option {
	return func(m *Monitor) { m.snapshots = s }
}

// WithAlertStore enables persistence of fired alerts.
func WithAlertStore(s domain.AlertStore) Option {
	return func(m *Monitor) { m.alerts = s }
}

// New creates a Monitor. registry may be empty; Run populates it.
func New(client DataClient, registry *market.Registry, alerter Alerter, logger *slog.Logger, opts ...Option) *Monitor {
	m := &Monitor{
		client:      client,
		registry:    registry,
		alerter:     alerter,
		logger:      logger.With(slog.String("component", "monitor")),
		interval:    DefaultPollInterval,
		prevBooks:   make(map[string]domain.OrderBook),
		prevSpreads: make(map[string]decimal.Decimal),
		ready:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Ready is closed once market discovery has completed and polling has
// begun. The live feed waits on it to learn the token universe.
func (m *Monitor) Ready() <-chan struct{} {
	return m.ready
}

// Run discovers the market universe, then polls until ctx is cancelled.
// Discovery failure is fatal; every later failure is logged and survived.
func (m *Monitor) Run(ctx context.Context) error {
	m.logger.InfoContext(ctx, "initializing markets")
	if err := m.registry.Init(ctx, m.client); err != nil {
		return fmt.Errorf("monitor: initialize markets: %w", err)
	}
	m.logger.InfoContext(ctx, "markets initialized", slog.Int("count", m.registry.Len()))

	if m.snapshots != nil {
		m.warmStart(ctx)
	}
	m.readyOnce.Do(func() { close(m.ready) })

	m.logger.InfoContext(ctx, "starting market monitoring",
		slog.Duration("interval", m.interval),
	)

	for {
		m.runPass(ctx)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(m.interval):
		}
	}
}

// runPass checks every pollable market once. A failure on one market is
// logged and does not abort the rest of the pass.
func (m *Monitor) runPass(ctx context.Context) {
	checked, failed := 0, 0
	for _, mkt := range m.registry.Active() {
		if ctx.Err() != nil {
			return
		}

		tok, ok := mkt.PrimaryToken()
		if !ok {
			continue
		}

		if err := m.checkMarket(ctx, mkt, tok.TokenID); err != nil {
			failed++
			m.logger.ErrorContext(ctx, "market check failed",
				slog.String("condition_id", mkt.ConditionID),
				slog.String("token_id", tok.TokenID),
				slog.String("error", err.Error()),
			)
			continue
		}
		checked++
	}

	m.logger.DebugContext(ctx, "pass complete",
		slog.Int("checked", checked),
		slog.Int("failed", failed),
	)
}

// checkMarket fetches the token's fresh book and spread, diffs them against
// the previous state, alerts on a non-empty diff, and overwrites the
// previous state. A 404 on the book fetch triggers a market refresh so
// resolved markets stop being polled.
func (m *Monitor) checkMarket(ctx context.Context, mkt domain.Market, tokenID string) error {
	book, err := m.client.GetOrderBook(ctx, tokenID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			m.refreshMarket(ctx, mkt.ConditionID)
		}
		return err
	}

	spread, err := m.client.GetSpread(ctx, tokenID)
	if err != nil {
		return err
	}

	m.applyObservation(ctx, mkt, book, spread)
	return nil
}

// applyObservation runs the detector against the cached previous state and
// overwrites it with the new observation. Alert delivery failures are
// isolated: the state is updated either way.
func (m *Monitor) applyObservation(ctx context.Context, mkt domain.Market, book domain.OrderBook, spread decimal.Decimal) {
	tokenID := book.TokenID

	m.mu.Lock()
	var prevBook *domain.OrderBook
	if pb, ok := m.prevBooks[tokenID]; ok {
		prevBook = &pb
	}
	var prevSpread *decimal.Decimal
	if ps, ok := m.prevSpreads[tokenID]; ok {
		prevSpread = &ps
	}

	priceChanges := detect.PriceChanges(prevBook, &book)
	spreadChange := detect.SpreadChange(prevSpread, spread)

	m.prevBooks[tokenID] = book
	m.prevSpreads[tokenID] = spread
	m.mu.Unlock()

	if len(priceChanges) > 0 || spreadChange != nil {
		m.emitAlert(ctx, mkt, tokenID, priceChanges, spreadChange)
	}

	if m.snapshots != nil {
		if err := m.snapshots.SaveBook(ctx, book); err != nil {
			m.logger.WarnContext(ctx, "snapshot save failed",
				slog.String("token_id", tokenID),
				slog.String("error", err.Error()),
			)
		}
		if err := m.snapshots.SaveSpread(ctx, tokenID, spread); err != nil {
			m.logger.WarnContext(ctx, "spread snapshot save failed",
				slog.String("token_id", tokenID),
				slog.String("error", err.Error()),
			)
		}
	}
}

// HandleBookUpdate feeds a live book snapshot through the same
// diff-then-overwrite path as the poll loop. Spread detection is not run
// here; the poll loop owns spreads.
func (m *Monitor) HandleBookUpdate(ctx context.Context, book domain.OrderBook) {
	mkt, ok := m.marketForToken(book.TokenID)
	if !ok || !mkt.Pollable() {
		return
	}

	m.mu.Lock()
	var prevBook *domain.OrderBook
	if pb, ok := m.prevBooks[book.TokenID]; ok {
		prevBook = &pb
	}
	priceChanges := detect.PriceChanges(prevBook, &book)
	m.prevBooks[book.TokenID] = book
	m.mu.Unlock()

	if len(priceChanges) > 0 {
		m.emitAlert(ctx, mkt, book.TokenID, priceChanges, nil)
	}
}

// refreshMarket re-fetches a market and marks it closed in the registry
// when the venue says so (or no longer knows it).
func (m *Monitor) refreshMarket(ctx context.Context, conditionID string) {
	fresh, err := m.client.GetMarket(ctx, conditionID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			m.registry.MarkClosed(conditionID)
			m.logger.InfoContext(ctx, "market gone, no longer polling",
				slog.String("condition_id", conditionID),
			)
		}
		return
	}
	if fresh.Closed || !fresh.Active {
		m.registry.MarkClosed(conditionID)
		m.logger.InfoContext(ctx, "market closed, no longer polling",
			slog.String("condition_id", conditionID),
		)
	}
}

// marketForToken finds the market whose primary token matches tokenID.
func (m *Monitor) marketForToken(tokenID string) (domain.Market, bool) {
	for _, mkt := range m.registry.Active() {
		if tok, ok := mkt.PrimaryToken(); ok && tok.TokenID == tokenID {
			return mkt, true
		}
	}
	return domain.Market{}, false
}

// warmStart seeds the previous-state maps from the snapshot store so the
// first pass after a restart already has baselines.
func (m *Monitor) warmStart(ctx context.Context) {
	loaded := 0
	for _, tokenID := range m.registry.PrimaryTokenIDs(0) {
		book, err := m.snapshots.LoadBook(ctx, tokenID)
		if err == nil {
			m.mu.Lock()
			m.prevBooks[tokenID] = book
			m.mu.Unlock()
			loaded++
		} else if !errors.Is(err, domain.ErrNotFound) {
			m.logger.WarnContext(ctx, "snapshot load failed",
				slog.String("token_id", tokenID),
				slog.String("error", err.Error()),
			)
		}

		spread, err := m.snapshots.LoadSpread(ctx, tokenID)
		if err == nil {
			m.mu.Lock()
			m.prevSpreads[tokenID] = spread
			m.mu.Unlock()
		} else if !errors.Is(err, domain.ErrNotFound) {
			m.logger.WarnContext(ctx, "spread snapshot load failed",
				slog.String("token_id", tokenID),
				slog.String("error", err.Error()),
			)
		}
	}

	if loaded > 0 {
		m.logger.InfoContext(ctx, "warm-started previous state",
			slog.Int("tokens", loaded),
		)
	}
}
