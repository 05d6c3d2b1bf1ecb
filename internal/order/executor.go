// Package order submits orders through the gateway, tracks them in the
// pending book for reconciliation, and journals them.
package order

import (
	"context"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/eosang60/futures-bot-binance-third/internal/events"
	"github.com/eosang60/futures-bot-binance-third/internal/gateway"
	"github.com/eosang60/futures-bot-binance-third/internal/position"
	"github.com/eosang60/futures-bot-binance-third/pkg/journal"
)

var log = logrus.WithField("component", "order")

// Gateway is the slice of the exchange gateway the executor needs.
type Gateway interface {
	SubmitOrder(ctx context.Context, symbol, side string, qty float64, orderType string, price float64, clientID string) *gateway.OrderResult
}

// Executor is the single submission path for both strategies and the risk
// manager. It implements position.Trader.
type Executor struct {
	gw      Gateway
	pending *position.PendingBook
	journal journal.Writer
	bus     *events.Bus
}

// NewExecutor wires an executor.
func NewExecutor(gw Gateway, pending *position.PendingBook, jw journal.Writer, bus *events.Bus) *Executor {
	return &Executor{gw: gw, pending: pending, journal: jw, bus: bus}
}

// Market submits a market order, registers it as pending, and reports the
// immediately filled quantity. ok=false means the gateway gave up; the
// failure has already been alerted there.
func (e *Executor) Market(ctx context.Context, strategy, symbol string, side position.Side, qty float64, role position.Role) (position.FillReport, bool) {
	clientID := strategy + "-" + uuid.NewString()[:8]

	res := e.gw.SubmitOrder(ctx, symbol, string(side), qty, "MARKET", 0, clientID)
	if res == nil {
		if e.bus != nil {
			e.bus.Publish(events.EventOrderRejected, symbol)
		}
		return position.FillReport{}, false
	}

	e.pending.Track(position.PendingOrder{
		OrderID:   res.OrderID,
		Strategy:  strategy,
		Symbol:    symbol,
		Side:      side,
		Role:      role,
		CumFilled: res.ExecutedQty,
		OrigQty:   qty,
	})

	if e.journal != nil {
		if err := e.journal.RecordOrder(ctx, journal.Order{
			OrderID:  res.OrderID,
			ClientID: clientID,
			Strategy: strategy,
			Symbol:   symbol,
			Side:     string(side),
			Role:     string(role),
			Qty:      qty,
			AvgPrice: res.AvgFillPrice,
			Status:   res.Status,
		}); err != nil {
			log.WithError(err).Warn("journal order write failed")
		}
	}

	if e.bus != nil {
		e.bus.Publish(events.EventOrderSubmitted, *res)
	}

	return position.FillReport{
		OrderID:   res.OrderID,
		AvgPrice:  res.AvgFillPrice,
		FilledQty: res.ExecutedQty,
	}, true
}
