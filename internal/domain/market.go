// Package domain holds the core data types shared across polywatch:
// markets, order books, spreads, and alerts.
package domain

import "encoding/json"

// Token is one outcome leg of a market. TokenID is the ERC-1155 asset ID
// (a 76-digit decimal string) used to fetch the leg's book and spread.
type Token struct {
	TokenID string `json:"token_id"`
	Outcome string `json:"outcome"`
	Winner  bool   `json:"winner"`
}

// Market is a single CLOB prediction market, keyed by its condition ID.
type Market struct {
	ConditionID        string          `json:"condition_id"`
	QuestionID         string          `json:"question_id"`
	Tokens             []Token         `json:"tokens"`
	Rewards            json.RawMessage `json:"rewards,omitempty"`
	MinimumOrderSize   string          `json:"minimum_order_size"`
	MinimumTickSize    string          `json:"minimum_tick_size"`
	Description        string          `json:"description"`
	Category           string          `json:"category"`
	EndDateISO         string          `json:"end_date_iso"`
	GameStartTime      string          `json:"game_start_time"`
	Question           string          `json:"question"`
	MarketSlug         string          `json:"market_slug"`
	MinIncentiveSize   string          `json:"min_incentive_size"`
	MaxIncentiveSpread string          `json:"max_incentive_spread"`
	Active             bool            `json:"active"`
	Closed             bool            `json:"closed"`
	SecondsDelay       int             `json:"seconds_delay"`
	Icon               string          `json:"icon"`
	FPMM               string          `json:"fpmm"`
}

// Pollable reports whether the market should be included in a poll pass.
// Closed or inactive markets are never polled.
func (m *Market) Pollable() bool {
	return m.Active && !m.Closed
}

// PrimaryToken returns the first token of the market, which is the leg the
// monitor watches. ok is false when the market carries no tokens.
func (m *Market) PrimaryToken() (Token, bool) {
	if len(m.Tokens) == 0 {
		return Token{}, false
	}
	return m.Tokens[0], true
}
