// Package strategy contains the two decision engines (scalper and swing)
// and the per-symbol loop that drives the position state machine.
package strategy

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/eosang60/futures-bot-binance-third/internal/gateway"
	"github.com/eosang60/futures-bot-binance-third/internal/position"
)

var log = logrus.WithField("component", "strategy")

// Strategy ids as recorded on positions and orders.
const (
	NameScalp = "scalp"
	NameSwing = "swing"
)

const pauseHeartbeat = 5 * time.Second

// MarketData is the slice of the gateway the engines read from.
type MarketData interface {
	Klines(ctx context.Context, symbol, interval string, limit int) []gateway.Kline
	WatchTicker(symbol string) (gateway.Tick, bool)
	WatchTrades(symbol string) []gateway.Trade
}

// Controls gates evaluation each iteration: the global/per-strategy run
// flags and the risk breaker's pause latch.
type Controls interface {
	StrategyEnabled(name string) bool
	TradingPaused() bool
}

// Engine is one strategy's entry logic; the position machine handles
// everything after entry.
type Engine interface {
	Name() string
	Interval() time.Duration
	CheckEntry(ctx context.Context, symbol string, price float64) bool
	EntryQty(price float64) float64
	Machine() *position.Machine
}

// Runner drives one Engine for one symbol.
type Runner struct {
	Data     MarketData
	Book     *position.Book
	Controls Controls
}

// Run loops until ctx is done. While paused or disabled the loop keeps
// heartbeating without evaluating, so state stays observable.
func (r *Runner) Run(ctx context.Context, eng Engine, symbol string) {
	name := eng.Name()
	log.Infof("%s loop started for %s", name, symbol)

	for {
		if ctx.Err() != nil {
			return
		}

		wait := eng.Interval()
		if r.Controls.TradingPaused() || !r.Controls.StrategyEnabled(name) {
			wait = pauseHeartbeat
		} else if tick, ok := r.Data.WatchTicker(symbol); ok {
			r.step(ctx, eng, symbol, tick.Price)
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}
	}
}

func (r *Runner) step(ctx context.Context, eng Engine, symbol string, price float64) {
	pos := r.Book.Get(eng.Name(), symbol)
	if !pos.Snapshot().InPosition {
		if eng.CheckEntry(ctx, symbol, price) {
			eng.Machine().EnterLong(ctx, pos, price, eng.EntryQty(price))
		}
		return
	}
	eng.Machine().ManageTick(ctx, pos, price)
}
