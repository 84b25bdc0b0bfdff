package polymarket

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"polywatch/internal/domain"
)

const (
	// writeWait is the time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// pongWait is the time allowed to read the next pong from the peer.
	pongWait = 60 * time.Second

	// pingPeriod sends pings at this interval. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10
)

// BookHandler is called for each full order-book snapshot received over the
// market channel.
type BookHandler func(domain.OrderBook)

// wsSubscription is the JSON payload sent to subscribe to the market channel.
type wsSubscription struct {
	Type     string   `json:"type"`
	AssetIDs []string `json:"assets_ids"`
}

// wsBookMessage is a book event on the market channel.
type wsBookMessage struct {
	EventType string     `json:"event_type"`
	AssetID   string     `json:"asset_id"`
	Market    string     `json:"market"`
	Bids      []apiLevel `json:"bids"`
	Asks      []apiLevel `json:"asks"`
	Hash      string     `json:"hash"`
	Timestamp string     `json:"timestamp"`
}

// WSClient is a WebSocket client for the CLOB market-data channel. It is
// intentionally limited to the "book" event type; the poll loop remains the
// source of truth for spreads.
type WSClient struct {
	wsURL string

	mu     sync.Mutex
	conn   *websocket.Conn
	closed bool

	onBook BookHandler

	done chan struct{}
}

// NewWSClient creates a client for the given market-channel endpoint, e.g.
// "wss://ws-subscriptions-clob.polymarket.com/ws/market".
func NewWSClient(wsURL string) *WSClient {
	return &WSClient{
		wsURL: wsURL,
		done:  make(chan struct{}),
	}
}

// OnBook registers the handler invoked for every book snapshot. Must be
// called before Connect.
func (w *WSClient) OnBook(h BookHandler) {
	w.onBook = h
}

// Connect dials the WebSocket endpoint and starts the read and ping loops.
func (w *WSClient) Connect(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return fmt.Errorf("polymarket/ws: %w", domain.ErrWSDisconnect)
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: 15 * time.Second,
	}

	conn, _, err := dialer.DialContext(ctx, w.wsURL, nil)
	if err != nil {
		return fmt.Errorf("polymarket/ws: connect: %w", err)
	}
	w.conn = conn

	_ = w.conn.SetReadDeadline(time.Now().Add(pongWait))
	w.conn.SetPongHandler(func(string) error {
		return w.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	go w.readLoop()
	go w.pingLoop()

	return nil
}

// Subscribe subscribes to market-channel events for the given asset IDs.
func (w *WSClient) Subscribe(assetIDs []string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.conn == nil {
		return fmt.Errorf("polymarket/ws: not connected")
	}

	_ = w.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := w.conn.WriteJSON(wsSubscription{Type: "market", AssetIDs: assetIDs}); err != nil {
		return fmt.Errorf("polymarket/ws: subscribe: %w", err)
	}
	return nil
}

// Close shuts down the connection and stops the read and ping loops. Safe to
// call multiple times.
func (w *WSClient) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true
	close(w.done)

	if w.conn != nil {
		return w.conn.Close()
	}
	return nil
}

// Done is closed when the connection has terminated for any reason.
func (w *WSClient) Done() <-chan struct{} {
	return w.done
}

// --------------------------------------------------------------------------
// Internal loops
// --------------------------------------------------------------------------

func (w *WSClient) readLoop() {
	defer func() { _ = w.Close() }()

	for {
		_, data, err := w.conn.ReadMessage()
		if err != nil {
			return
		}
		w.dispatch(data)
	}
}

// dispatch decodes a frame and invokes the book handler for each book
// event. The market channel delivers either a single event object or an
// array of them.
func (w *WSClient) dispatch(data []byte) {
	var msgs []wsBookMessage
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &msgs); err != nil {
			return
		}
	} else {
		var msg wsBookMessage
		if err := json.Unmarshal(trimmed, &msg); err != nil {
			return
		}
		msgs = append(msgs, msg)
	}

	for i := range msgs {
		if msgs[i].EventType != "book" || w.onBook == nil {
			continue
		}
		book, err := msgs[i].toDomain()
		if err != nil {
			continue
		}
		w.onBook(book)
	}
}

func (m *wsBookMessage) toDomain() (domain.OrderBook, error) {
	b := apiBook{
		Market:    m.Market,
		AssetID:   m.AssetID,
		Bids:      m.Bids,
		Asks:      m.Asks,
		Hash:      m.Hash,
		Timestamp: m.Timestamp,
	}
	return b.toDomain(m.AssetID)
}

func (w *WSClient) pingLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-w.done:
			return
		case <-ticker.C:
			w.mu.Lock()
			conn := w.conn
			w.mu.Unlock()
			if conn == nil {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				_ = w.Close()
				return
			}
		}
	}
}
