package polymarket

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"polywatch/internal/domain"
)

// flexBool unmarshals from JSON bool or string ("true"/"false") so API
// responses work whether "active" is sent as bool or string.
type flexBool bool

func (f *flexBool) UnmarshalJSON(data []byte) error {
	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		*f = flexBool(b)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*f = flexBool(strings.EqualFold(s, "true") || s == "1")
	return nil
}

// flexString unmarshals from a JSON string or number. The CLOB sends sizing
// fields like minimum_order_size as either depending on endpoint version.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = flexString(n.String())
	return nil
}

// --------------------------------------------------------------------------
// CLOB API DTOs
// --------------------------------------------------------------------------

// apiMarketsPage is the response envelope of GET /markets.
type apiMarketsPage struct {
	Data       []apiMarket `json:"data"`
	NextCursor string      `json:"next_cursor"`
	Limit      int         `json:"limit"`
	Count      int         `json:"count"`
}

// apiToken is one outcome token inside a market response.
type apiToken struct {
	TokenID string `json:"token_id"`
	Outcome string `json:"outcome"`
	Winner  bool   `json:"winner"`
}

// apiMarket is a market as returned by GET /markets and
// GET /markets/{condition_id}.
type apiMarket struct {
	ConditionID        string          `json:"condition_id"`
	QuestionID         string          `json:"question_id"`
	Tokens             []apiToken      `json:"tokens"`
	Rewards            json.RawMessage `json:"rewards"`
	MinimumOrderSize   flexString      `json:"minimum_order_size"`
	MinimumTickSize    flexString      `json:"minimum_tick_size"`
	Description        string          `json:"description"`
	Category           string          `json:"category"`
	EndDateISO         string          `json:"end_date_iso"`
	GameStartTime      string          `json:"game_start_time"`
	Question           string          `json:"question"`
	MarketSlug         string          `json:"market_slug"`
	MinIncentiveSize   flexString      `json:"min_incentive_size"`
	MaxIncentiveSpread flexString      `json:"max_incentive_spread"`
	Active             flexBool        `json:"active"`
	Closed             flexBool        `json:"closed"`
	SecondsDelay       int             `json:"seconds_delay"`
	Icon               string          `json:"icon"`
	FPMM               string          `json:"fpmm"`
}

func (m *apiMarket) toDomain() domain.Market {
	tokens := make([]domain.Token, 0, len(m.Tokens))
	for _, t := range m.Tokens {
		tokens = append(tokens, domain.Token{
			TokenID: t.TokenID,
			Outcome: t.Outcome,
			Winner:  t.Winner,
		})
	}

	return domain.Market{
		ConditionID:        m.ConditionID,
		QuestionID:         m.QuestionID,
		Tokens:             tokens,
		Rewards:            m.Rewards,
		MinimumOrderSize:   string(m.MinimumOrderSize),
		MinimumTickSize:    string(m.MinimumTickSize),
		Description:        m.Description,
		Category:           m.Category,
		EndDateISO:         m.EndDateISO,
		GameStartTime:      m.GameStartTime,
		Question:           m.Question,
		MarketSlug:         m.MarketSlug,
		MinIncentiveSize:   string(m.MinIncentiveSize),
		MaxIncentiveSpread: string(m.MaxIncentiveSpread),
		Active:             bool(m.Active),
		Closed:             bool(m.Closed),
		SecondsDelay:       m.SecondsDelay,
		Icon:               m.Icon,
		FPMM:               m.FPMM,
	}
}

// apiLevel is a single bid/ask level; prices and sizes arrive as strings.
type apiLevel struct {
	Price string `json:"price"`
	Size  string `json:"size"`
}

// apiBook is the response of GET /book.
type apiBook struct {
	Market    string     `json:"market"`
	AssetID   string     `json:"asset_id"`
	Bids      []apiLevel `json:"bids"`
	Asks      []apiLevel `json:"asks"`
	Hash      string     `json:"hash"`
	Timestamp string     `json:"timestamp"`
}

func (b *apiBook) toDomain(tokenID string) (domain.OrderBook, error) {
	book := domain.OrderBook{
		TokenID: tokenID,
		Hash:    b.Hash,
	}
	if b.AssetID != "" {
		book.TokenID = b.AssetID
	}

	var err error
	if book.Bids, err = toLevels(b.Bids); err != nil {
		return domain.OrderBook{}, err
	}
	if book.Asks, err = toLevels(b.Asks); err != nil {
		return domain.OrderBook{}, err
	}

	book.Timestamp = parseBookTimestamp(b.Timestamp)
	return book, nil
}

func toLevels(levels []apiLevel) ([]domain.PriceLevel, error) {
	out := make([]domain.PriceLevel, 0, len(levels))
	for _, lvl := range levels {
		price, err := decimal.NewFromString(lvl.Price)
		if err != nil {
			return nil, err
		}
		size, err := decimal.NewFromString(lvl.Size)
		if err != nil {
			return nil, err
		}
		out = append(out, domain.PriceLevel{Price: price, Size: size})
	}
	return out, nil
}

// parseBookTimestamp accepts epoch-milliseconds, epoch-seconds, or RFC3339.
// An unparseable or missing timestamp falls back to now.
func parseBookTimestamp(ts string) time.Time {
	if n, err := strconv.ParseInt(ts, 10, 64); err == nil {
		if n > 1e12 {
			return time.UnixMilli(n)
		}
		return time.Unix(n, 0)
	}
	if t, err := time.Parse(time.RFC3339, ts); err == nil {
		return t
	}
	return time.Now()
}

// apiSpread is the response of GET /spread.
type apiSpread struct {
	Spread flexString `json:"spread"`
}
