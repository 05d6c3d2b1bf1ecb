// Package risk implements the account-level drawdown circuit breaker.
package risk

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/eosang60/futures-bot-binance-third/internal/events"
	"github.com/eosang60/futures-bot-binance-third/internal/position"
	"github.com/eosang60/futures-bot-binance-third/pkg/journal"
)

var log = logrus.WithField("component", "risk")

// Alerter delivers operator notifications.
type Alerter interface {
	Sendf(format string, args ...any)
}

// BalanceFetcher reads the account's free balance.
type BalanceFetcher interface {
	FetchBalance(ctx context.Context) (float64, bool)
}

// Breaker trips once when account drawdown reaches the configured limit,
// then force-liquidates every open position. The paused flag is monotonic:
// it never resets within a process lifetime.
type Breaker struct {
	mu             sync.Mutex
	initialBalance float64
	paused         bool

	maxDrawdownPct float64
	book           *position.Book
	trader         position.Trader
	alert          Alerter
	journal        journal.Writer
	bus            *events.Bus
}

// NewBreaker builds a breaker. SetInitialBalance must be called at boot
// before the poll loop starts.
func NewBreaker(maxDrawdownPct float64, book *position.Book, trader position.Trader, alert Alerter, jw journal.Writer, bus *events.Bus) *Breaker {
	return &Breaker{
		maxDrawdownPct: maxDrawdownPct,
		book:           book,
		trader:         trader,
		alert:          alert,
		journal:        jw,
		bus:            bus,
	}
}

// SetInitialBalance records the boot-time balance the drawdown is measured
// against. Set once.
func (b *Breaker) SetInitialBalance(balance float64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.initialBalance = balance
}

// IsPaused reports whether the breaker has tripped.
func (b *Breaker) IsPaused() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.paused
}

// CheckDrawdown evaluates `1 - free/initial` against the limit and trips
// the breaker when the ratio reaches it. Tripping schedules exactly one
// asynchronous forced liquidation; repeat calls are no-ops once paused.
func (b *Breaker) CheckDrawdown(ctx context.Context, currentFree float64) bool {
	b.mu.Lock()
	if b.paused {
		b.mu.Unlock()
		return true
	}
	if b.initialBalance <= 0 {
		b.mu.Unlock()
		return false
	}
	ddRatio := 1 - currentFree/b.initialBalance
	if ddRatio < b.maxDrawdownPct {
		b.mu.Unlock()
		return false
	}
	b.paused = true
	b.mu.Unlock()

	detail := fmt.Sprintf("drawdown %.1f%% (free %.2f / initial %.2f)", ddRatio*100, currentFree, b.initialBalance)
	log.Warnf("circuit breaker tripped: %s", detail)
	b.alert.Sendf("[CIRCUIT BREAKER] %s, liquidating all positions", detail)
	if b.journal != nil {
		if err := b.journal.RecordRiskEvent(ctx, "circuit_break", detail); err != nil {
			log.WithError(err).Warn("journal risk event failed")
		}
	}
	if b.bus != nil {
		b.bus.Publish(events.EventCircuitBreak, detail)
	}

	go b.liquidateAll(context.WithoutCancel(ctx))
	return true
}

// liquidateAll market-sells every open position across all strategies.
// The per-position exit claim keeps it from racing a strategy's own exit.
func (b *Breaker) liquidateAll(ctx context.Context) {
	for _, pos := range b.book.Open() {
		if !pos.TryBeginExit() {
			continue
		}
		snap := pos.Snapshot()
		if snap.Size > position.Epsilon {
			if _, ok := b.trader.Market(ctx, snap.Strategy, snap.Symbol, position.SideSell, snap.Size, position.RoleForced); ok {
				pos.ResetFlat()
			}
		}
		pos.EndExit()
	}
	b.alert.Sendf("[CIRCUIT BREAKER] liquidation pass complete")
}

// Run polls the free balance at a fixed interval and feeds the breaker.
// While paused it keeps heartbeating so the process stays observable.
func (b *Breaker) Run(ctx context.Context, balances BalanceFetcher, interval, heartbeat time.Duration) {
	for {
		var wait time.Duration
		if b.IsPaused() {
			wait = heartbeat
		} else {
			if free, ok := balances.FetchBalance(ctx); ok {
				b.CheckDrawdown(ctx, free)
			}
			wait = interval
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}
	}
}
