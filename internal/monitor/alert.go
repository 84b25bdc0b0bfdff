package monitor

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"polywatch/internal/detect"
	"polywatch/internal/domain"
)

// alertTitle is the notification title of every order-book alert.
const alertTitle = "Polymarket orderbook alert"

// emitAlert formats, dispatches, and records an alert. Delivery and
// persistence failures are logged and swallowed; they must not stop the
// loop or prevent the previous-state overwrite that already happened.
func (m *Monitor) emitAlert(ctx context.Context, mkt domain.Market, tokenID string, priceChanges map[detect.Side]decimal.Decimal, spreadChange *decimal.Decimal) {
	alert := buildAlert(mkt, tokenID, priceChanges, spreadChange)

	m.logger.InfoContext(ctx, "significant change detected",
		slog.String("condition_id", alert.ConditionID),
		slog.String("token_id", alert.TokenID),
		slog.String("message", alert.Message),
	)

	if err := m.alerter.Notify(ctx, EventAlert, alertTitle, alert.Message); err != nil {
		m.logger.ErrorContext(ctx, "alert delivery failed",
			slog.String("condition_id", alert.ConditionID),
			slog.String("error", err.Error()),
		)
	}

	if m.alerts != nil {
		if err := m.alerts.Insert(ctx, alert); err != nil {
			m.logger.ErrorContext(ctx, "alert persistence failed",
				slog.String("alert_id", alert.ID),
				slog.String("error", err.Error()),
			)
		}
	}
}

// buildAlert assembles the alert record and its human-readable message:
// an attention marker, the market description and IDs, then one line per
// changed side and an optional spread line, percentages fixed to two
// decimals with explicit sign.
func buildAlert(mkt domain.Market, tokenID string, priceChanges map[detect.Side]decimal.Decimal, spreadChange *decimal.Decimal) domain.Alert {
	alert := domain.Alert{
		ID:           uuid.NewString(),
		ConditionID:  mkt.ConditionID,
		TokenID:      tokenID,
		Description:  mkt.Description,
		SpreadChange: spreadChange,
		CreatedAt:    time.Now().UTC(),
	}

	var b strings.Builder
	b.WriteString("\U0001F6A8 Significant changes in market: " + mkt.Description + "\n")
	b.WriteString("Market ID: " + mkt.ConditionID + "\n")
	b.WriteString("Token ID: " + tokenID + "\n")

	// Stable order: bids before asks.
	for _, side := range []detect.Side{detect.SideBids, detect.SideAsks} {
		change, ok := priceChanges[side]
		if !ok {
			continue
		}
		c := change
		switch side {
		case detect.SideBids:
			alert.BidChange = &c
			b.WriteString("Bids price: " + formatPercent(c) + " change\n")
		case detect.SideAsks:
			alert.AskChange = &c
			b.WriteString("Asks price: " + formatPercent(c) + " change\n")
		}
	}

	if spreadChange != nil {
		b.WriteString("Spread: " + formatPercent(*spreadChange) + " change\n")
	}

	alert.Message = b.String()
	return alert
}

// formatPercent renders a signed percentage with two decimal places, e.g.
// "+16.00%" or "-60.00%".
func formatPercent(d decimal.Decimal) string {
	s := d.StringFixed(2)
	if !strings.HasPrefix(s, "-") {
		s = "+" + s
	}
	return s + "%"
}
