package gateway

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Tick is the latest traded price for a symbol.
type Tick struct {
	Symbol string
	Price  float64
	Time   time.Time
}

// Trade is one streamed trade print.
type Trade struct {
	Symbol string
	Price  float64
	Qty    float64
	Time   time.Time
}

const (
	reconnectDelay = 5 * time.Second
	tickStaleAfter = 10 * time.Second
	tradeWindow    = 2 * time.Minute
	tradeCap       = 2048
)

// marketStream keeps one combined websocket session (miniTicker + aggTrade
// per symbol) alive with a fixed-delay reconnect loop and caches the most
// recent data for lock-free-ish reads from the strategy loops.
type marketStream struct {
	testnet bool

	mu     sync.RWMutex
	ticks  map[string]Tick
	trades map[string][]Trade
}

func newMarketStream(testnet bool) *marketStream {
	return &marketStream{
		testnet: testnet,
		ticks:   make(map[string]Tick),
		trades:  make(map[string][]Trade),
	}
}

func (m *marketStream) start(ctx context.Context, symbols []string) {
	if len(symbols) == 0 {
		return
	}
	go m.run(ctx, symbols)
}

func (m *marketStream) run(ctx context.Context, symbols []string) {
	url := m.buildURL(symbols)
	for {
		if ctx.Err() != nil {
			return
		}
		conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
		if err != nil {
			log.WithError(err).Warn("market stream dial failed")
		} else {
			log.Infof("market stream connected (%d symbols)", len(symbols))
			m.readLoop(ctx, conn)
			conn.Close()
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(reconnectDelay):
		}
	}
}

func (m *marketStream) readLoop(ctx context.Context, conn *websocket.Conn) {
	// Unblock ReadMessage when the context ends.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				log.WithError(err).Warn("market stream read error")
			}
			return
		}
		m.handleMessage(msg)
	}
}

func (m *marketStream) buildURL(symbols []string) string {
	host := "fstream.binance.com"
	if m.testnet {
		host = "stream.binancefuture.com"
	}
	streams := make([]string, 0, len(symbols)*2)
	for _, s := range symbols {
		lower := strings.ToLower(s)
		streams = append(streams, lower+"@miniTicker", lower+"@aggTrade")
	}
	return "wss://" + host + "/stream?streams=" + strings.Join(streams, "/")
}

func (m *marketStream) handleMessage(msg []byte) {
	var env struct {
		Stream string          `json:"stream"`
		Data   json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(msg, &env); err != nil || env.Data == nil {
		return
	}

	switch {
	case strings.HasSuffix(env.Stream, "@miniTicker"):
		var t struct {
			Symbol string `json:"s"`
			Close  string `json:"c"`
			Time   int64  `json:"E"`
		}
		if err := json.Unmarshal(env.Data, &t); err != nil || t.Symbol == "" {
			return
		}
		m.mu.Lock()
		m.ticks[t.Symbol] = Tick{Symbol: t.Symbol, Price: toFloat(t.Close), Time: time.UnixMilli(t.Time)}
		m.mu.Unlock()

	case strings.HasSuffix(env.Stream, "@aggTrade"):
		var t struct {
			Symbol string `json:"s"`
			Price  string `json:"p"`
			Qty    string `json:"q"`
			Time   int64  `json:"T"`
		}
		if err := json.Unmarshal(env.Data, &t); err != nil || t.Symbol == "" {
			return
		}
		trade := Trade{Symbol: t.Symbol, Price: toFloat(t.Price), Qty: toFloat(t.Qty), Time: time.UnixMilli(t.Time)}
		m.mu.Lock()
		list := append(m.trades[t.Symbol], trade)
		list = trimTrades(list, time.Now())
		m.trades[t.Symbol] = list
		m.mu.Unlock()
	}
}

func trimTrades(list []Trade, now time.Time) []Trade {
	cutoff := now.Add(-tradeWindow)
	i := 0
	for i < len(list) && list[i].Time.Before(cutoff) {
		i++
	}
	list = list[i:]
	if len(list) > tradeCap {
		list = list[len(list)-tradeCap:]
	}
	return list
}

func (m *marketStream) lastTick(symbol string) (Tick, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.ticks[symbol]
	if !ok || time.Since(t.Time) > tickStaleAfter {
		return Tick{}, false
	}
	return t, true
}

func (m *marketStream) recentTrades(symbol string) []Trade {
	m.mu.RLock()
	defer m.mu.RUnlock()
	src := m.trades[symbol]
	out := make([]Trade, len(src))
	copy(out, src)
	return out
}
