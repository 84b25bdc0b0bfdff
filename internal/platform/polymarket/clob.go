// Package polymarket provides the authenticated REST and WebSocket clients
// for the Polymarket CLOB market-data API.
package polymarket

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"

	"polywatch/internal/crypto"
	"polywatch/internal/domain"
)

// EndCursor is the venue's canonical "no more pages" sentinel returned by
// the markets listing endpoint. It is base64 for "-1"; comparing against
// anything else either stops pagination early or never stops it.
const EndCursor = "LTE="

// MarketsPage is one page of the paginated market listing.
type MarketsPage struct {
	Markets    []domain.Market
	NextCursor string
}

// ClobClient is the REST client for CLOB market data. Every call carries a
// freshly signed EIP-712 auth header set. The client performs no retries;
// failures propagate typed to the caller, which owns retry policy.
type ClobClient struct {
	baseURL    string
	httpClient *http.Client
	signer     *crypto.Signer
}

// NewClobClient creates a new CLOB market-data client.
//
// baseURL is the CLOB API root, e.g. "https://clob.polymarket.com".
// signer produces the per-request auth header set.
func NewClobClient(baseURL string, signer *crypto.Signer) *ClobClient {
	return &ClobClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		signer: signer,
	}
}

// ListMarkets returns one page of the market universe. An empty cursor
// requests the first page; the returned NextCursor feeds the next call and
// equals EndCursor on the final page.
func (c *ClobClient) ListMarkets(ctx context.Context, cursor string) (MarketsPage, error) {
	params := url.Values{}
	params.Set("next_cursor", cursor)

	body, err := c.doGet(ctx, "/markets?"+params.Encode())
	if err != nil {
		return MarketsPage{}, fmt.Errorf("polymarket/clob: list markets: %w", err)
	}

	var page apiMarketsPage
	if err := json.Unmarshal(body, &page); err != nil {
		return MarketsPage{}, fmt.Errorf("polymarket/clob: %w: decode markets page: %v", domain.ErrParse, err)
	}

	markets := make([]domain.Market, 0, len(page.Data))
	for i := range page.Data {
		markets = append(markets, page.Data[i].toDomain())
	}

	return MarketsPage{Markets: markets, NextCursor: page.NextCursor}, nil
}

// GetMarket returns a single market by its condition ID.
func (c *ClobClient) GetMarket(ctx context.Context, conditionID string) (domain.Market, error) {
	body, err := c.doGet(ctx, "/markets/"+url.PathEscape(conditionID))
	if err != nil {
		return domain.Market{}, fmt.Errorf("polymarket/clob: get market %s: %w", conditionID, err)
	}

	var m apiMarket
	if err := json.Unmarshal(body, &m); err != nil {
		return domain.Market{}, fmt.Errorf("polymarket/clob: %w: decode market: %v", domain.ErrParse, err)
	}

	return m.toDomain(), nil
}

// GetOrderBook returns the current order book for a token, both sides
// ordered best-price-first.
func (c *ClobClient) GetOrderBook(ctx context.Context, tokenID string) (domain.OrderBook, error) {
	params := url.Values{}
	params.Set("token_id", tokenID)

	body, err := c.doGet(ctx, "/book?"+params.Encode())
	if err != nil {
		return domain.OrderBook{}, fmt.Errorf("polymarket/clob: get book %s: %w", tokenID, err)
	}

	var b apiBook
	if err := json.Unmarshal(body, &b); err != nil {
		return domain.OrderBook{}, fmt.Errorf("polymarket/clob: %w: decode book: %v", domain.ErrParse, err)
	}

	book, err := b.toDomain(tokenID)
	if err != nil {
		return domain.OrderBook{}, fmt.Errorf("polymarket/clob: %w: book %s: %v", domain.ErrParse, tokenID, err)
	}
	return book, nil
}

// GetSpread returns the venue-reported spread for a token.
func (c *ClobClient) GetSpread(ctx context.Context, tokenID string) (decimal.Decimal, error) {
	params := url.Values{}
	params.Set("token_id", tokenID)

	body, err := c.doGet(ctx, "/spread?"+params.Encode())
	if err != nil {
		return decimal.Zero, fmt.Errorf("polymarket/clob: get spread %s: %w", tokenID, err)
	}

	var s apiSpread
	if err := json.Unmarshal(body, &s); err != nil {
		return decimal.Zero, fmt.Errorf("polymarket/clob: %w: decode spread: %v", domain.ErrParse, err)
	}

	spread, err := decimal.NewFromString(string(s.Spread))
	if err != nil {
		return decimal.Zero, fmt.Errorf("polymarket/clob: %w: spread %s: %v", domain.ErrParse, tokenID, err)
	}
	return spread, nil
}

// --------------------------------------------------------------------------
// Internal helpers
// --------------------------------------------------------------------------

// doGet signs, sends, and reads a GET request against the CLOB API. A new
// auth header set is generated for every call.
func (c *ClobClient) doGet(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	headers, err := c.signer.AuthHeaders()
	if err != nil {
		return nil, err
	}
	for k, v := range headers.Map() {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrNetwork, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", domain.ErrNetwork, err)
	}

	if err := checkHTTPStatus(resp.StatusCode, body); err != nil {
		return nil, err
	}

	return body, nil
}

// checkHTTPStatus maps non-2xx status codes to appropriate domain errors.
func checkHTTPStatus(statusCode int, body []byte) error {
	if statusCode >= 200 && statusCode < 300 {
		return nil
	}

	bodyStr := string(body)
	switch statusCode {
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", domain.ErrNotFound, bodyStr)
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: %s", domain.ErrUnauthorized, bodyStr)
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s", domain.ErrRateLimited, bodyStr)
	default:
		return fmt.Errorf("%w: HTTP %d: %s", domain.ErrNetwork, statusCode, bodyStr)
	}
}
