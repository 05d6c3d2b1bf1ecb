// Package reconcile merges exchange-pushed fill and account events into the
// locally held position and pending-order state.
package reconcile

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/eosang60/futures-bot-binance-third/internal/events"
	"github.com/eosang60/futures-bot-binance-third/internal/position"
	"github.com/eosang60/futures-bot-binance-third/pkg/journal"
)

var log = logrus.WithField("component", "reconcile")

// Alerter delivers operator notifications.
type Alerter interface {
	Sendf(format string, args ...any)
	Send(msg string)
}

// OrderTradeUpdate is the decoded order-trade push event.
type OrderTradeUpdate struct {
	OrderID   int64
	Symbol    string
	Side      string
	Status    string
	CumFilled float64
	OrigQty   float64
	AvgPrice  float64
}

func isTerminal(status string) bool {
	switch status {
	case "FILLED", "CANCELED", "EXPIRED", "REJECTED":
		return true
	}
	return false
}

// Reconciler applies pushed events to the shared books. Anomalies (unknown
// order ids, replayed cumulative values) are ignored, never fatal.
type Reconciler struct {
	book    *position.Book
	pending *position.PendingBook
	journal journal.Writer
	bus     *events.Bus
	alert   Alerter
}

// New builds a reconciler over the shared books.
func New(book *position.Book, pending *position.PendingBook, jw journal.Writer, bus *events.Bus, alert Alerter) *Reconciler {
	return &Reconciler{book: book, pending: pending, journal: jw, bus: bus, alert: alert}
}

// HandleOrderTrade merges one order-trade event. The delta against the
// last-seen cumulative fill makes replayed deliveries idempotent.
func (r *Reconciler) HandleOrderTrade(ctx context.Context, ev OrderTradeUpdate) {
	po, delta, ok := r.pending.ApplyCumulative(ev.OrderID, ev.CumFilled)
	if !ok {
		// Untracked or stale order id.
		log.Debugf("ignoring event for unknown order %d", ev.OrderID)
		return
	}

	if delta != 0 {
		pos := r.book.Get(po.Strategy, po.Symbol)
		pos.ApplyFillDelta(po.Side, delta, ev.AvgPrice)

		if r.journal != nil {
			if err := r.journal.RecordFill(ctx, journal.FillEvent{
				OrderID:   ev.OrderID,
				Symbol:    po.Symbol,
				Side:      string(po.Side),
				Delta:     delta,
				CumFilled: ev.CumFilled,
				Status:    ev.Status,
			}); err != nil {
				log.WithError(err).Warn("journal fill write failed")
			}
		}
		if r.bus != nil {
			r.bus.Publish(events.EventOrderFill, events.Fill{
				OrderID:  ev.OrderID,
				Strategy: po.Strategy,
				Symbol:   po.Symbol,
				Side:     string(po.Side),
				Delta:    delta,
				Filled:   ev.CumFilled,
				Status:   ev.Status,
			})
		}
	}

	switch ev.Status {
	case "PARTIALLY_FILLED":
		r.alert.Sendf("[ORDER PARTIAL] %s %s #%d fill=%.6f/%.6f",
			po.Strategy, po.Symbol, ev.OrderID, ev.CumFilled, po.OrigQty)
	case "FILLED":
		r.alert.Sendf("[ORDER FILLED] %s %s #%d", po.Strategy, po.Symbol, ev.OrderID)
	}

	if isTerminal(ev.Status) {
		r.pending.Remove(ev.OrderID)
	}
}

// HandleAccountUpdate forwards account pushes to alerting only.
func (r *Reconciler) HandleAccountUpdate(summary string) {
	if r.bus != nil {
		r.bus.Publish(events.EventAccountUpdate, summary)
	}
	r.alert.Send("[ACCOUNT UPDATE] " + summary)
}
