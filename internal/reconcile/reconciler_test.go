package reconcile

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eosang60/futures-bot-binance-third/internal/events"
	"github.com/eosang60/futures-bot-binance-third/internal/position"
)

type recordingAlerter struct{ msgs []string }

func (a *recordingAlerter) Sendf(format string, _ ...any) { a.msgs = append(a.msgs, format) }
func (a *recordingAlerter) Send(msg string)               { a.msgs = append(a.msgs, msg) }

func fixture() (*Reconciler, *position.Book, *position.PendingBook, *recordingAlerter) {
	book := position.NewBook()
	pending := position.NewPendingBook()
	alert := &recordingAlerter{}
	return New(book, pending, nil, nil, alert), book, pending, alert
}

func TestHandleOrderTradeAppliesDelta(t *testing.T) {
	r, book, pending, _ := fixture()
	book.Get("scalp", "BTCUSDT").OpenLong(100, 0.0)
	pending.Track(position.PendingOrder{
		OrderID: 11, Strategy: "scalp", Symbol: "BTCUSDT",
		Side: position.SideBuy, Role: position.RoleEntry, OrigQty: 1.0,
	})

	r.HandleOrderTrade(context.Background(), OrderTradeUpdate{
		OrderID: 11, Symbol: "BTCUSDT", Side: "BUY", Status: "PARTIALLY_FILLED", CumFilled: 0.4, OrigQty: 1.0,
	})
	assert.InDelta(t, 0.4, book.Get("scalp", "BTCUSDT").Snapshot().Size, 1e-12)
	assert.Equal(t, 1, pending.Len())

	r.HandleOrderTrade(context.Background(), OrderTradeUpdate{
		OrderID: 11, Symbol: "BTCUSDT", Side: "BUY", Status: "FILLED", CumFilled: 1.0, OrigQty: 1.0,
	})
	assert.InDelta(t, 1.0, book.Get("scalp", "BTCUSDT").Snapshot().Size, 1e-12)
	assert.Equal(t, 0, pending.Len(), "terminal status drops the pending entry")
}

func TestHandleOrderTradeReplayIsIdempotent(t *testing.T) {
	r, book, pending, _ := fixture()
	book.Get("scalp", "BTCUSDT").OpenLong(100, 0.0)
	pending.Track(position.PendingOrder{
		OrderID: 11, Strategy: "scalp", Symbol: "BTCUSDT", Side: position.SideBuy, OrigQty: 1.0,
	})

	ev := OrderTradeUpdate{OrderID: 11, Symbol: "BTCUSDT", Side: "BUY", Status: "PARTIALLY_FILLED", CumFilled: 0.4, OrigQty: 1.0}
	r.HandleOrderTrade(context.Background(), ev)
	before := book.Get("scalp", "BTCUSDT").Snapshot().Size

	// Duplicate delivery of the same cumulative value changes nothing.
	r.HandleOrderTrade(context.Background(), ev)
	assert.Equal(t, before, book.Get("scalp", "BTCUSDT").Snapshot().Size)
}

func TestHandleOrderTradeUnknownOrderIgnored(t *testing.T) {
	r, book, _, alert := fixture()

	r.HandleOrderTrade(context.Background(), OrderTradeUpdate{
		OrderID: 999, Symbol: "BTCUSDT", Side: "BUY", Status: "FILLED", CumFilled: 1.0,
	})

	assert.Empty(t, alert.msgs)
	assert.Empty(t, book.Open())
}

func TestHandleOrderTradeOpensUnseededPosition(t *testing.T) {
	r, book, pending, _ := fixture()
	pending.Track(position.PendingOrder{
		OrderID: 12, Strategy: "scalp", Symbol: "BTCUSDT",
		Side: position.SideBuy, Role: position.RoleEntry, OrigQty: 1.0,
	})

	// The entry had no immediate fill, so the strategy never opened the
	// position locally. The streamed fill must still surface it.
	r.HandleOrderTrade(context.Background(), OrderTradeUpdate{
		OrderID: 12, Symbol: "BTCUSDT", Side: "BUY", Status: "FILLED",
		CumFilled: 1.0, OrigQty: 1.0, AvgPrice: 64250,
	})

	snap := book.Get("scalp", "BTCUSDT").Snapshot()
	assert.True(t, snap.InPosition)
	assert.InDelta(t, 1.0, snap.Size, 1e-12)
	assert.Equal(t, 64250.0, snap.EntryPrice)
	require.Len(t, book.Open(), 1)
}

func TestHandleOrderTradeSellReducesPosition(t *testing.T) {
	r, book, pending, _ := fixture()
	book.Get("swing", "ETHUSDT").OpenLong(2000, 1.0)
	pending.Track(position.PendingOrder{
		OrderID: 22, Strategy: "swing", Symbol: "ETHUSDT",
		Side: position.SideSell, Role: position.RoleTakeTP, OrigQty: 0.3,
	})

	r.HandleOrderTrade(context.Background(), OrderTradeUpdate{
		OrderID: 22, Symbol: "ETHUSDT", Side: "SELL", Status: "FILLED", CumFilled: 0.3, OrigQty: 0.3,
	})
	assert.InDelta(t, 0.7, book.Get("swing", "ETHUSDT").Snapshot().Size, 1e-12)
}

func TestCanceledOrderDroppedWithoutFill(t *testing.T) {
	r, book, pending, _ := fixture()
	pending.Track(position.PendingOrder{
		OrderID: 33, Strategy: "scalp", Symbol: "BTCUSDT", Side: position.SideBuy, OrigQty: 1.0,
	})

	r.HandleOrderTrade(context.Background(), OrderTradeUpdate{
		OrderID: 33, Symbol: "BTCUSDT", Side: "BUY", Status: "CANCELED", CumFilled: 0,
	})

	assert.Equal(t, 0, pending.Len())
	assert.Empty(t, book.Open())
}

func TestStreamMessageDecoding(t *testing.T) {
	book := position.NewBook()
	pending := position.NewPendingBook()
	alert := &recordingAlerter{}
	r := New(book, pending, nil, nil, alert)
	s := NewStream(nil, r, alert, false)

	pending.Track(position.PendingOrder{
		OrderID: 55, Strategy: "scalp", Symbol: "BTCUSDT", Side: position.SideBuy, OrigQty: 1.0,
	})
	book.Get("scalp", "BTCUSDT")

	msg := []byte(`{"e":"ORDER_TRADE_UPDATE","o":{"s":"BTCUSDT","S":"BUY","X":"FILLED","i":55,"z":"1.0","q":"1.0","ap":"64100.5"}}`)
	s.handleMessage(context.Background(), msg)

	snap := book.Get("scalp", "BTCUSDT").Snapshot()
	assert.InDelta(t, 1.0, snap.Size, 1e-12)
	assert.Equal(t, 64100.5, snap.EntryPrice)
	assert.Equal(t, 0, pending.Len())
}

func TestStreamDropsMalformedEvents(t *testing.T) {
	r, _, pending, alert := fixture()
	s := NewStream(nil, r, alert, false)
	pending.Track(position.PendingOrder{OrderID: 55, Strategy: "scalp", Symbol: "BTCUSDT", Side: position.SideBuy})

	for _, msg := range []string{
		`not json`,
		`{"noEvent":true}`,
		`{"e":"ORDER_TRADE_UPDATE","o":{"s":"BTCUSDT","S":"","X":"FILLED","i":55,"z":"1.0"}}`,
		`{"e":"ORDER_TRADE_UPDATE","o":{"s":"BTCUSDT","S":"BUY","X":"","i":55,"z":"1.0"}}`,
		`{"e":"ORDER_TRADE_UPDATE","o":{"s":"BTCUSDT","S":"BUY","X":"FILLED","i":0,"z":"1.0"}}`,
		`{"e":"listenKeyExpired"}`,
	} {
		s.handleMessage(context.Background(), []byte(msg))
	}

	assert.Equal(t, 1, pending.Len())
	assert.Empty(t, alert.msgs)
}

func TestAccountUpdateForwardedToBus(t *testing.T) {
	bus := events.NewBus()
	ch, unsub := bus.Subscribe(events.EventAccountUpdate, 1)
	defer unsub()

	alert := &recordingAlerter{}
	r := New(position.NewBook(), position.NewPendingBook(), nil, bus, alert)
	r.HandleAccountUpdate(`{"e":"ACCOUNT_UPDATE"}`)

	require.Len(t, alert.msgs, 1)
	select {
	case ev := <-ch:
		assert.Equal(t, `{"e":"ACCOUNT_UPDATE"}`, ev)
	default:
		t.Fatal("no bus event published")
	}
}
