package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Alert records a threshold-crossing move detected on one market's primary
// token. BidChange/AskChange/SpreadChange are signed percentages; nil means
// that component did not cross its threshold.
type Alert struct {
	ID           string
	ConditionID  string
	TokenID      string
	Description  string
	BidChange    *decimal.Decimal
	AskChange    *decimal.Decimal
	SpreadChange *decimal.Decimal
	Message      string
	CreatedAt    time.Time
}
