// Package orchestrator owns global run state, boots every loop, and is the
// single consumer of the operator command channel.
package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/eosang60/futures-bot-binance-third/internal/command"
	"github.com/eosang60/futures-bot-binance-third/internal/events"
	"github.com/eosang60/futures-bot-binance-third/internal/gateway"
	"github.com/eosang60/futures-bot-binance-third/internal/notify"
	"github.com/eosang60/futures-bot-binance-third/internal/order"
	"github.com/eosang60/futures-bot-binance-third/internal/position"
	"github.com/eosang60/futures-bot-binance-third/internal/reconcile"
	"github.com/eosang60/futures-bot-binance-third/internal/risk"
	"github.com/eosang60/futures-bot-binance-third/internal/strategy"
	"github.com/eosang60/futures-bot-binance-third/pkg/config"
	"github.com/eosang60/futures-bot-binance-third/pkg/journal"
)

var log = logrus.WithField("component", "orchestrator")

const pauseHeartbeat = 5 * time.Second

// controls adapts run state plus the risk breaker for the strategy loops.
type controls struct {
	rs      *RunState
	breaker *risk.Breaker
}

func (c controls) StrategyEnabled(name string) bool { return c.rs.StrategyEnabled(name) }
func (c controls) TradingPaused() bool              { return c.breaker.IsPaused() }

// Orchestrator wires and supervises every component.
type Orchestrator struct {
	cfg    *config.Config
	params strategy.Params

	gw       *gateway.Client
	notifier *notify.Notifier
	journal  journal.Writer
	bus      *events.Bus

	book    *position.Book
	pending *position.PendingBook
	exec    *order.Executor
	breaker *risk.Breaker
	rs      *RunState

	fillCount atomic.Int64
}

// New builds the component graph. The journal may be nil.
func New(cfg *config.Config, params strategy.Params, gw *gateway.Client, notifier *notify.Notifier, jw journal.Writer) *Orchestrator {
	bus := events.NewBus()
	book := position.NewBook()
	pending := position.NewPendingBook()
	exec := order.NewExecutor(gw, pending, jw, bus)
	breaker := risk.NewBreaker(cfg.MaxDrawdownPct, book, exec, notifier, jw, bus)

	return &Orchestrator{
		cfg:      cfg,
		params:   params,
		gw:       gw,
		notifier: notifier,
		journal:  jw,
		bus:      bus,
		book:     book,
		pending:  pending,
		exec:     exec,
		breaker:  breaker,
		rs:       NewRunState(strategy.NameScalp, strategy.NameSwing),
	}
}

// Run boots everything and blocks until a stop command, the circuit
// breaker plus operator intervention, or ctx cancellation ends the run.
func (o *Orchestrator) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	free, ok := o.gw.FetchBalance(ctx)
	if !ok {
		return fmt.Errorf("boot balance fetch failed")
	}
	o.breaker.SetInitialBalance(free)
	o.notifier.Sendf("[BOOT] free USDT=%.2f", free)

	scalpBalance := free * o.cfg.ScalpRatio
	swingBalance := free * o.cfg.SwingRatio

	symbols := unify(o.cfg.ScalpSymbols, o.cfg.SwingSymbols)
	for _, sym := range symbols {
		o.gw.ConfigureSymbol(ctx, sym, o.cfg.DefaultLeverage, o.cfg.MarginType)
	}
	o.gw.StartMarketStream(ctx, symbols)

	gate := controls{rs: o.rs, breaker: o.breaker}
	runner := &strategy.Runner{Data: o.gw, Book: o.book, Controls: gate}
	scalper := strategy.NewScalper(o.gw, o.params.Scalper, o.exec, o.notifier, scalpBalance)
	swing := strategy.NewSwing(o.gw, o.params.Swing, o.exec, o.notifier, swingBalance)

	var wg sync.WaitGroup
	start := func(fn func()) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			fn()
		}()
	}

	for _, sym := range o.cfg.ScalpSymbols {
		sym := sym
		start(func() { runner.Run(ctx, scalper, sym) })
	}
	for _, sym := range o.cfg.SwingSymbols {
		sym := sym
		start(func() { runner.Run(ctx, swing, sym) })
	}

	start(func() {
		o.breaker.Run(ctx, o.gw, o.cfg.RiskCheckInterval, pauseHeartbeat)
	})

	reconciler := reconcile.New(o.book, o.pending, o.journal, o.bus, o.notifier)
	stream := reconcile.NewStream(o.gw, reconciler, o.notifier, o.cfg.BinanceTestnet)
	start(func() { stream.Run(ctx) })

	start(func() { o.watchFills(ctx) })

	cmds := make(chan command.Command, 16)
	if listener := command.NewListener(o.cfg.TelegramToken, o.cfg.TelegramChatID); listener != nil {
		start(func() { listener.Run(ctx, cmds) })
	} else {
		log.Warn("telegram not configured; operator commands disabled")
	}

	o.consumeCommands(ctx, cancel, cmds)
	wg.Wait()
	log.Info("all loops stopped")
	return nil
}

// consumeCommands is the only writer of run state.
func (o *Orchestrator) consumeCommands(ctx context.Context, cancel context.CancelFunc, cmds <-chan command.Command) {
	for {
		select {
		case <-ctx.Done():
			return
		case cmd := <-cmds:
			switch cmd {
			case command.CmdStop:
				o.notifier.Send("[STOP] manual stop")
				o.rs.stop()
				cancel()
				return
			case command.CmdStatus:
				o.notifier.Send(o.statusLine())
			case command.CmdScalpOn:
				o.rs.setEnabled(strategy.NameScalp, true)
				o.notifier.Send("[SCALP ON]")
			case command.CmdScalpOff:
				o.rs.setEnabled(strategy.NameScalp, false)
				o.notifier.Send("[SCALP OFF]")
			case command.CmdSwingOn:
				o.rs.setEnabled(strategy.NameSwing, true)
				o.notifier.Send("[SWING ON]")
			case command.CmdSwingOff:
				o.rs.setEnabled(strategy.NameSwing, false)
				o.notifier.Send("[SWING OFF]")
			}
		}
	}
}

func (o *Orchestrator) statusLine() string {
	state := "RUNNING"
	if o.breaker.IsPaused() {
		state = "PAUSED"
	}
	var open []string
	for _, p := range o.book.Open() {
		s := p.Snapshot()
		open = append(open, fmt.Sprintf("%s/%s %.6f@%.4f", s.Strategy, s.Symbol, s.Size, s.EntryPrice))
	}
	openDesc := "none"
	if len(open) > 0 {
		openDesc = strings.Join(open, ", ")
	}
	return fmt.Sprintf("[STATUS] %s, scalp_on=%v, swing_on=%v, fills=%d, pending=%d, open=%s",
		state,
		o.rs.StrategyEnabled(strategy.NameScalp),
		o.rs.StrategyEnabled(strategy.NameSwing),
		o.fillCount.Load(),
		o.pending.Len(),
		openDesc)
}

// watchFills counts reconciled fills for the status report.
func (o *Orchestrator) watchFills(ctx context.Context) {
	ch, unsub := o.bus.Subscribe(events.EventOrderFill, 64)
	defer unsub()
	for {
		select {
		case <-ctx.Done():
			return
		case payload, ok := <-ch:
			if !ok {
				return
			}
			if fill, isFill := payload.(events.Fill); isFill {
				o.fillCount.Add(1)
				log.Infof("fill reconciled: %s %s #%d delta=%.6f status=%s",
					fill.Strategy, fill.Symbol, fill.OrderID, fill.Delta, fill.Status)
			}
		}
	}
}

func unify(lists ...[]string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, list := range lists {
		for _, s := range list {
			if !seen[s] {
				seen[s] = true
				out = append(out, s)
			}
		}
	}
	return out
}
