package prices

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// DefaultFeedURL is Kraken's public websocket feed.
const DefaultFeedURL = "wss://ws.kraken.com"

const maxBackoff = 30 * time.Second

// Live maintains the last traded price of one pair from a Kraken-style
// websocket ticker feed. Run keeps the subscription alive; Last is safe to
// call from any goroutine.
type Live struct {
	URL  string
	Pair string
	log  *zap.Logger

	mu   sync.RWMutex
	last decimal.Decimal
	ok   bool
}

// NewLive returns a Live ticker for pair (e.g. "XBT/EUR").
func NewLive(url, pair string, log *zap.Logger) *Live {
	return &Live{URL: url, Pair: pair, log: log}
}

// Last returns the most recently seen price and whether one has been seen.
func (l *Live) Last() (decimal.Decimal, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.last, l.ok
}

func (l *Live) setLast(price decimal.Decimal) {
	l.mu.Lock()
	l.last, l.ok = price, true
	l.mu.Unlock()
}

// Run connects, subscribes and consumes ticker messages until ctx is done,
// reconnecting with exponential backoff on any failure.
func (l *Live) Run(ctx context.Context) {
	retry := 0
	for ctx.Err() == nil {
		if err := l.consume(ctx); err != nil && ctx.Err() == nil {
			backoff := time.Duration(1<<retry) * time.Second
			if backoff > maxBackoff {
				backoff = maxBackoff
			} else if retry < 10 {
				retry++
			}
			l.log.Warn("ticker feed lost", zap.Error(err), zap.Duration("backoff", backoff))
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
			continue
		}
		retry = 0
	}
}

func (l *Live) consume(ctx context.Context) error {
	var d websocket.Dialer
	conn, _, err := d.DialContext(ctx, l.URL, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	// Unblock ReadMessage on cancellation.
	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	subscribe := map[string]any{
		"event":        "subscribe",
		"pair":         []string{l.Pair},
		"subscription": map[string]string{"name": "ticker"},
	}
	if err := conn.WriteJSON(subscribe); err != nil {
		return err
	}
	l.log.Info("subscribed to ticker", zap.String("pair", l.Pair))

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		if price, ok := parseTicker(data); ok {
			l.setLast(price)
		}
	}
}

// parseTicker extracts the last-trade price from one feed message. Ticker
// updates are arrays [channelID, payload, "ticker", pair]; everything else
// (heartbeats, subscription status) is ignored.
func parseTicker(data []byte) (decimal.Decimal, bool) {
	var message []json.RawMessage
	if err := json.Unmarshal(data, &message); err != nil || len(message) < 4 {
		return decimal.Zero, false
	}
	var payload struct {
		C []string `json:"c"`
	}
	if err := json.Unmarshal(message[1], &payload); err != nil || len(payload.C) == 0 {
		return decimal.Zero, false
	}
	price, err := decimal.NewFromString(payload.C[0])
	if err != nil {
		return decimal.Zero, false
	}
	return price, true
}
