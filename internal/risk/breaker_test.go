package risk

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eosang60/futures-bot-binance-third/internal/position"
)

type recordingTrader struct {
	mu     sync.Mutex
	orders []position.Role
	done   chan struct{}
}

func newRecordingTrader(expect int) *recordingTrader {
	return &recordingTrader{done: make(chan struct{}, expect)}
}

func (r *recordingTrader) Market(_ context.Context, _, _ string, _ position.Side, _ float64, role position.Role) (position.FillReport, bool) {
	r.mu.Lock()
	r.orders = append(r.orders, role)
	r.mu.Unlock()
	r.done <- struct{}{}
	return position.FillReport{OrderID: 1, AvgPrice: 100, FilledQty: 1}, true
}

func (r *recordingTrader) roles() []position.Role {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]position.Role(nil), r.orders...)
}

type chanAlerter struct{ msgs chan string }

func (a chanAlerter) Sendf(format string, _ ...any) {
	select {
	case a.msgs <- format:
	default:
	}
}

func TestCheckDrawdownTripsAtThreshold(t *testing.T) {
	book := position.NewBook()
	book.Get("scalp", "BTCUSDT").OpenLong(100, 2.0)
	trader := newRecordingTrader(1)
	alert := chanAlerter{msgs: make(chan string, 8)}
	b := NewBreaker(0.50, book, trader, alert, nil, nil)
	b.SetInitialBalance(1000)

	// 510 free is 49% drawdown: below the limit.
	assert.False(t, b.CheckDrawdown(context.Background(), 510))
	assert.False(t, b.IsPaused())

	// 490 free is 51%: trips.
	assert.True(t, b.CheckDrawdown(context.Background(), 490))
	assert.True(t, b.IsPaused())

	select {
	case <-trader.done:
	case <-time.After(2 * time.Second):
		t.Fatal("forced liquidation never ran")
	}
	require.Len(t, trader.roles(), 1)
	assert.Equal(t, position.RoleForced, trader.roles()[0])
	assert.False(t, book.Get("scalp", "BTCUSDT").Snapshot().InPosition)
}

func TestCheckDrawdownExactLimitTrips(t *testing.T) {
	b := NewBreaker(0.50, position.NewBook(), newRecordingTrader(0), chanAlerter{msgs: make(chan string, 8)}, nil, nil)
	b.SetInitialBalance(1000)

	// The comparison is >=, not >.
	assert.True(t, b.CheckDrawdown(context.Background(), 500))
}

func TestCheckDrawdownTripsOnlyOnce(t *testing.T) {
	book := position.NewBook()
	book.Get("swing", "ETHUSDT").OpenLong(2000, 1.0)
	trader := newRecordingTrader(4)
	b := NewBreaker(0.50, book, trader, chanAlerter{msgs: make(chan string, 8)}, nil, nil)
	b.SetInitialBalance(1000)

	require.True(t, b.CheckDrawdown(context.Background(), 400))
	select {
	case <-trader.done:
	case <-time.After(2 * time.Second):
		t.Fatal("forced liquidation never ran")
	}

	// Re-open and check again while paused: no second liquidation pass.
	book.Get("swing", "ETHUSDT").OpenLong(2000, 1.0)
	assert.True(t, b.CheckDrawdown(context.Background(), 300))
	assert.True(t, b.CheckDrawdown(context.Background(), 100))

	time.Sleep(50 * time.Millisecond)
	assert.Len(t, trader.roles(), 1)
	assert.True(t, book.Get("swing", "ETHUSDT").Snapshot().InPosition)
}

func TestCheckDrawdownNoopWithoutInitialBalance(t *testing.T) {
	b := NewBreaker(0.50, position.NewBook(), newRecordingTrader(0), chanAlerter{msgs: make(chan string, 8)}, nil, nil)

	assert.False(t, b.CheckDrawdown(context.Background(), 0))
	assert.False(t, b.IsPaused())
}

func TestLiquidateSkipsClaimedPositions(t *testing.T) {
	book := position.NewBook()
	claimed := book.Get("scalp", "BTCUSDT")
	claimed.OpenLong(100, 1.0)
	require.True(t, claimed.TryBeginExit())

	free := book.Get("swing", "ETHUSDT")
	free.OpenLong(2000, 0.5)

	trader := newRecordingTrader(2)
	b := NewBreaker(0.50, book, trader, chanAlerter{msgs: make(chan string, 8)}, nil, nil)
	b.liquidateAll(context.Background())

	assert.Len(t, trader.roles(), 1)
	assert.True(t, claimed.Snapshot().InPosition)
	assert.False(t, free.Snapshot().InPosition)
}
