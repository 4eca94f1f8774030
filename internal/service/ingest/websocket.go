package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"FlowTrack/internal/domain/models"
	drepo "FlowTrack/internal/domain/repository"
	"FlowTrack/internal/service/ratelimit"
	"FlowTrack/pkg/logger"
)

// WSClient implements a SnapshotSource backed by a market-data WebSocket
// feed pushing option chain snapshots and venue-tagged trades.
type WSClient struct {
	apiKey         string
	websocketURL   string
	symbols        []string
	reconnectDelay time.Duration
	pingInterval   time.Duration
	log            *logger.Logger
	limiter        *ratelimit.Limiter

	mu        sync.Mutex
	conn      *websocket.Conn
	connected bool
}

func NewWSClient(apiKey, websocketURL string, symbols []string, reconnectDelay, pingInterval time.Duration, log *logger.Logger) drepo.SnapshotSource {
	return &WSClient{
		apiKey:         apiKey,
		websocketURL:   websocketURL,
		symbols:        symbols,
		reconnectDelay: reconnectDelay,
		pingInterval:   pingInterval,
		log:            log,
		limiter:        ratelimit.New(),
	}
}

func (c *WSClient) Mode() string { return "live" }

// Connect establishes the WebSocket connection.
func (c *WSClient) Connect(ctx context.Context) error {
	u := fmt.Sprintf("%s?token=%s", c.websocketURL, c.apiKey)
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u, nil)
	if err != nil {
		return fmt.Errorf("feed connect: %w", err)
	}
	c.mu.Lock()
	c.conn = conn
	c.connected = true
	c.mu.Unlock()
	c.log.Info("feed connected")
	return nil
}

// Subscribe requests option chain streams for the configured symbols.
func (c *WSClient) Subscribe(ctx context.Context) error {
	c.mu.Lock()
	conn, ok := c.conn, c.connected
	c.mu.Unlock()
	if conn == nil || !ok {
		return models.ErrNotConnected
	}
	for _, s := range c.symbols {
		msg := map[string]string{"type": "subscribe", "channel": "options", "symbol": s}
		if err := conn.WriteJSON(msg); err != nil {
			return fmt.Errorf("subscribe %s: %w", s, err)
		}
		c.log.Info("feed subscribed", logger.String("symbol", s))
	}
	return nil
}

type wsSnapshot struct {
	Symbol     string  `json:"s"`
	Strike     float64 `json:"k"`
	Expiration string  `json:"exp"`
	Right      string  `json:"r"`
	Underlying float64 `json:"u"`
	Bid        float64 `json:"b"`
	Ask        float64 `json:"a"`
	Last       float64 `json:"l"`
	Volume     int64   `json:"v"`
	OI         int64   `json:"oi"`
	IV         float64 `json:"iv"`
	Delta      float64 `json:"d"`
	TS         int64   `json:"t"` // ms
}

type wsTrade struct {
	Symbol      string  `json:"s"`
	Strike      float64 `json:"k"`
	Expiration  string  `json:"exp"`
	Right       string  `json:"r"`
	Price       float64 `json:"p"`
	Size        int64   `json:"z"`
	Side        string  `json:"side"`
	Venue       string  `json:"x"`
	OffExchange bool    `json:"off"`
	Underlying  float64 `json:"u"`
	TS          int64   `json:"t"` // ms
}

type wsMessage struct {
	Type   string       `json:"type"`
	Snaps  []wsSnapshot `json:"data,omitempty"`
	Trades []wsTrade    `json:"trades,omitempty"`
}

// Read streams decoded snapshots, trades, and errors. Per-contract bursts
// beyond the feed budget are shed before decode backpressure builds.
func (c *WSClient) Read(ctx context.Context) (<-chan *models.MarketSnapshot, <-chan *models.OptionTrade, <-chan error) {
	snaps := make(chan *models.MarketSnapshot, 1024)
	trades := make(chan *models.OptionTrade, 1024)
	errs := make(chan error, 1)
	done := make(chan struct{})

	// keepalive loop, scoped to this read session
	go func() {
		ticker := time.NewTicker(c.pingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-done:
				return
			case <-ticker.C:
				c.mu.Lock()
				conn := c.conn
				c.mu.Unlock()
				if conn != nil {
					_ = conn.WriteMessage(websocket.PingMessage, nil)
				}
			}
		}
	}()

	go func() {
		defer close(done)
		defer close(snaps)
		defer close(trades)
		defer close(errs)
		for {
			select {
			case <-ctx.Done():
				return
			default:
			}
			c.mu.Lock()
			conn := c.conn
			c.mu.Unlock()
			if conn == nil {
				errs <- models.ErrNotConnected
				return
			}
			_, b, err := conn.ReadMessage()
			if err != nil {
				errs <- fmt.Errorf("feed read: %w", err)
				return
			}
			var m wsMessage
			if err := json.Unmarshal(b, &m); err != nil {
				// ignore non-data frames
				continue
			}
			switch m.Type {
			case "snapshot":
				for _, d := range m.Snaps {
					snap := decodeSnapshot(d)
					if !c.limiter.Allow(snap.Contract.String(), 50, 20) {
						continue
					}
					select {
					case snaps <- snap:
					default:
						// drop on backpressure
					}
				}
			case "trade":
				for _, d := range m.Trades {
					select {
					case trades <- decodeTrade(d):
					default:
					}
				}
			}
		}
	}()

	return snaps, trades, errs
}

// Reconnect closes and re-establishes the stream.
func (c *WSClient) Reconnect(ctx context.Context) error {
	_ = c.Close()
	time.Sleep(c.reconnectDelay)
	if err := c.Connect(ctx); err != nil {
		return err
	}
	return c.Subscribe(ctx)
}

func (c *WSClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connected = false
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

func (c *WSClient) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

func decodeSnapshot(d wsSnapshot) *models.MarketSnapshot {
	return &models.MarketSnapshot{
		Symbol: d.Symbol,
		Contract: models.ContractKey{
			Symbol:     d.Symbol,
			Strike:     d.Strike,
			Expiration: d.Expiration,
			Right:      models.OptionRight(d.Right),
		},
		UnderlyingPrice:   d.Underlying,
		Bid:               d.Bid,
		Ask:               d.Ask,
		Last:              d.Last,
		Volume:            d.Volume,
		OpenInterest:      d.OI,
		ImpliedVolatility: d.IV,
		Delta:             d.Delta,
		Timestamp:         time.UnixMilli(d.TS),
	}
}

func decodeTrade(d wsTrade) *models.OptionTrade {
	side := models.SideBuy
	if d.Side == "SELL" {
		side = models.SideSell
	}
	return &models.OptionTrade{
		Contract: models.ContractKey{
			Symbol:     d.Symbol,
			Strike:     d.Strike,
			Expiration: d.Expiration,
			Right:      models.OptionRight(d.Right),
		},
		Price:           d.Price,
		Size:            d.Size,
		Side:            side,
		Venue:           d.Venue,
		OffExchange:     d.OffExchange,
		UnderlyingPrice: d.Underlying,
		Timestamp:       time.UnixMilli(d.TS),
	}
}
