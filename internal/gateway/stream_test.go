package gateway

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildURLCombinedStreams(t *testing.T) {
	m := newMarketStream(false)
	url := m.buildURL([]string{"BTCUSDT", "ETHUSDT"})
	assert.Equal(t,
		"wss://fstream.binance.com/stream?streams=btcusdt@miniTicker/btcusdt@aggTrade/ethusdt@miniTicker/ethusdt@aggTrade",
		url)

	m = newMarketStream(true)
	assert.Contains(t, m.buildURL([]string{"BTCUSDT"}), "stream.binancefuture.com")
}

func TestHandleMiniTickerUpdatesCache(t *testing.T) {
	m := newMarketStream(false)
	now := time.Now().UnixMilli()
	msg := fmt.Sprintf(`{"stream":"btcusdt@miniTicker","data":{"s":"BTCUSDT","c":"64321.5","E":%d}}`, now)
	m.handleMessage([]byte(msg))

	tick, ok := m.lastTick("BTCUSDT")
	require.True(t, ok)
	assert.Equal(t, 64321.5, tick.Price)
}

func TestLastTickStaleRejected(t *testing.T) {
	m := newMarketStream(false)
	old := time.Now().Add(-time.Minute).UnixMilli()
	msg := fmt.Sprintf(`{"stream":"btcusdt@miniTicker","data":{"s":"BTCUSDT","c":"100","E":%d}}`, old)
	m.handleMessage([]byte(msg))

	_, ok := m.lastTick("BTCUSDT")
	assert.False(t, ok)
}

func TestHandleAggTradeAppends(t *testing.T) {
	m := newMarketStream(false)
	now := time.Now().UnixMilli()
	for i := 0; i < 3; i++ {
		msg := fmt.Sprintf(`{"stream":"btcusdt@aggTrade","data":{"s":"BTCUSDT","p":"100.%d","q":"0.5","T":%d}}`, i, now)
		m.handleMessage([]byte(msg))
	}

	trades := m.recentTrades("BTCUSDT")
	require.Len(t, trades, 3)
	assert.Equal(t, 100.2, trades[2].Price)
}

func TestHandleMessageIgnoresGarbage(t *testing.T) {
	m := newMarketStream(false)
	m.handleMessage([]byte(`not json`))
	m.handleMessage([]byte(`{"stream":"btcusdt@miniTicker"}`))
	m.handleMessage([]byte(`{"stream":"btcusdt@miniTicker","data":{"c":"100"}}`))

	_, ok := m.lastTick("BTCUSDT")
	assert.False(t, ok)
	assert.Empty(t, m.recentTrades("BTCUSDT"))
}

func TestTrimTradesWindowAndCap(t *testing.T) {
	now := time.Now()
	var list []Trade
	list = append(list, Trade{Time: now.Add(-3 * time.Minute)})
	for i := 0; i < tradeCap+10; i++ {
		list = append(list, Trade{Time: now})
	}

	trimmed := trimTrades(list, now)
	assert.Len(t, trimmed, tradeCap)
	for _, tr := range trimmed {
		assert.False(t, tr.Time.Before(now.Add(-tradeWindow)))
	}
}
