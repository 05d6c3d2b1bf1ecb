package position

import (
	"context"

	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("component", "position")

// FillReport summarizes what the exchange filled immediately on submission.
type FillReport struct {
	OrderID   int64
	AvgPrice  float64
	FilledQty float64
}

// Trader submits market orders and tracks them as pending. Implemented by
// the order executor; ok=false means the submission failed after the
// gateway's own retry/alerting and the caller must not mutate state.
type Trader interface {
	Market(ctx context.Context, strategy, symbol string, side Side, qty float64, role Role) (FillReport, bool)
}

// Alerter delivers operator notifications.
type Alerter interface {
	Sendf(format string, args ...any)
}

// Rules parameterizes the per-tick management sequence for one strategy.
type Rules struct {
	PartialTPLevels []float64 // unrealized-gain thresholds, ascending
	PartialTPRatio  float64   // fraction of current size sold per level
	PyramidLevels   []float64 // gain thresholds for adding (scalper only)
	PyramidRatio    float64   // fraction of current size bought per level
	StopLossPct     float64   // hard stop as positive fraction
	TrailPct        float64   // trailing retrace; 0 tracks the watermark only
}

// Machine drives one strategy's position lifecycle against the exchange.
type Machine struct {
	strategy string
	rules    Rules
	trader   Trader
	alert    Alerter
}

// NewMachine builds a state machine for one strategy.
func NewMachine(strategy string, rules Rules, trader Trader, alert Alerter) *Machine {
	return &Machine{strategy: strategy, rules: rules, trader: trader, alert: alert}
}

// EnterLong submits a market entry and transitions FLAT -> OPEN when the
// exchange reports a non-zero immediately filled quantity.
func (m *Machine) EnterLong(ctx context.Context, pos *Position, price, qty float64) bool {
	if qty <= Epsilon {
		return false
	}
	report, ok := m.trader.Market(ctx, m.strategy, pos.Symbol(), SideBuy, qty, RoleEntry)
	if !ok || report.FilledQty <= Epsilon {
		return false
	}
	avg := report.AvgPrice
	if avg <= 0 {
		avg = price
	}
	pos.OpenLong(avg, report.FilledQty)
	log.Infof("%s %s entered long %.6f @ %.4f", m.strategy, pos.Symbol(), report.FilledQty, avg)
	m.alert.Sendf("[%s ENTRY] %s %.6f @ %.4f", m.strategy, pos.Symbol(), report.FilledQty, avg)
	return true
}

// ManageTick runs the fixed OPEN-state sequence for one tick:
// partial take-profits, pyramiding, hard stop-loss, then watermark update
// and trailing stop.
func (m *Machine) ManageTick(ctx context.Context, pos *Position, price float64) {
	snap := pos.Snapshot()
	if !snap.InPosition || snap.EntryPrice <= 0 {
		return
	}
	gain := price/snap.EntryPrice - 1

	// 1. Partial take-profit, once per level per lifetime.
	for _, level := range m.rules.PartialTPLevels {
		if gain < level || pos.TPDone(level) {
			continue
		}
		size := pos.Snapshot().Size
		qty := size * m.rules.PartialTPRatio
		if qty <= Epsilon {
			continue
		}
		// Shrink only by what filled immediately; the stream delivers
		// the remainder as reconciled deltas against the pending order.
		if report, ok := m.trader.Market(ctx, m.strategy, pos.Symbol(), SideSell, qty, RoleTakeTP); ok {
			pos.Reduce(level, report.FilledQty)
			m.alert.Sendf("[%s TP] %s +%.1f%% selling %.6f, remain %.6f",
				m.strategy, pos.Symbol(), level*100, qty, pos.Snapshot().Size)
		}
	}

	// 2. Pyramiding (scalper only), once per level per lifetime.
	for _, level := range m.rules.PyramidLevels {
		if gain < level || pos.PyramidDone(level) {
			continue
		}
		size := pos.Snapshot().Size
		qty := size * m.rules.PyramidRatio
		if qty <= Epsilon {
			continue
		}
		if report, ok := m.trader.Market(ctx, m.strategy, pos.Symbol(), SideBuy, qty, RoleScale); ok {
			pos.Add(level, report.FilledQty)
			m.alert.Sendf("[%s PYRAMID] %s +%.1f%% adding %.6f", m.strategy, pos.Symbol(), level*100, qty)
		}
	}

	// 3. Hard stop-loss: full exit, level sets cleared.
	if gain <= -m.rules.StopLossPct {
		if m.exitAll(ctx, pos, RoleStop) {
			m.alert.Sendf("[%s STOP] %s -%.1f%%", m.strategy, pos.Symbol(), m.rules.StopLossPct*100)
		}
		return
	}

	// 4. Watermark update is unconditional; the trailing exit only fires
	// for strategies configured with a retrace percentage.
	pos.UpdateWatermarks(price)
	if m.rules.TrailPct > 0 {
		snap = pos.Snapshot()
		if snap.InPosition && snap.HighWater > 0 && price <= snap.HighWater*(1-m.rules.TrailPct) {
			if m.exitAll(ctx, pos, RoleTrail) {
				m.alert.Sendf("[%s TRAIL] %s retraced %.1f%% off %.4f",
					m.strategy, pos.Symbol(), m.rules.TrailPct*100, snap.HighWater)
			}
		}
	}
}

// exitAll sells the entire remaining size and resets the position. The
// exit-in-flight claim keeps a concurrent forced liquidation from doubling
// the exit order.
func (m *Machine) exitAll(ctx context.Context, pos *Position, role Role) bool {
	if !pos.TryBeginExit() {
		return false
	}
	defer pos.EndExit()

	size := pos.Snapshot().Size
	if size <= Epsilon {
		return false
	}
	if _, ok := m.trader.Market(ctx, m.strategy, pos.Symbol(), SideSell, size, role); !ok {
		return false
	}
	pos.ResetFlat()
	return true
}
