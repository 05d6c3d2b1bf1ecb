// Package position holds the per-(strategy, symbol) position entities, the
// pending-order book, and the state machine that drives entries, partial
// take-profits, pyramiding, stop-loss, and trailing-stop exits.
package position

import (
	"sync"
)

// Epsilon is the accepted floating-point fill-reporting tolerance: any size
// below it is treated as exactly zero.
const Epsilon = 1e-9

// Side is an order side on the wire.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// Role classifies what an order was for. Informational only.
type Role string

const (
	RoleEntry   Role = "entry"
	RoleScale   Role = "scale"
	RoleExit    Role = "exit"
	RoleTakeTP  Role = "take_profit"
	RoleStop    Role = "stop_loss"
	RoleTrail   Role = "trailing_stop"
	RoleForced  Role = "forced_liquidation"
	RoleUnknown Role = ""
)

// Snapshot is a point-in-time copy of a position's state.
type Snapshot struct {
	Strategy   string
	Symbol     string
	InPosition bool
	EntryPrice float64
	Size       float64
	HighWater  float64
	LowWater   float64
}

// Position is one strategy's view of its exposure on one symbol.
// All mutation goes through methods holding the position's own lock; the
// owning strategy loop, the reconciler, and the risk manager share it.
type Position struct {
	mu sync.Mutex

	strategy string
	symbol   string

	inPosition bool
	entryPrice float64
	size       float64
	highWater  float64
	lowWater   float64

	tpDone      map[float64]bool
	pyramidDone map[float64]bool

	exitInFlight bool
}

func newPosition(strategy, symbol string) *Position {
	return &Position{
		strategy:    strategy,
		symbol:      symbol,
		tpDone:      make(map[float64]bool),
		pyramidDone: make(map[float64]bool),
	}
}

// Strategy returns the owning strategy id.
func (p *Position) Strategy() string { return p.strategy }

// Symbol returns the traded symbol.
func (p *Position) Symbol() string { return p.symbol }

// Snapshot returns a copy of the current state.
func (p *Position) Snapshot() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Snapshot{
		Strategy:   p.strategy,
		Symbol:     p.symbol,
		InPosition: p.inPosition,
		EntryPrice: p.entryPrice,
		Size:       p.size,
		HighWater:  p.highWater,
		LowWater:   p.lowWater,
	}
}

// OpenLong seeds the position from an entry fill.
func (p *Position) OpenLong(avgPrice, size float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if size <= Epsilon {
		return
	}
	p.inPosition = true
	p.entryPrice = avgPrice
	p.size = size
	p.highWater = avgPrice
	p.lowWater = avgPrice
}

// ApplyFillDelta merges a reconciled fill delta, signed by order side
// (+buy, -sell). A resulting size below Epsilon flattens the position; a
// buy delta landing on a flat position opens it, seeded at the reported
// fill price, so an entry whose immediate fill was empty still becomes
// visible to its strategy loop once the stream delivers the fills.
func (p *Position) ApplyFillDelta(side Side, delta, price float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if side == SideSell {
		p.size -= delta
	} else {
		p.size += delta
	}
	if p.size < Epsilon {
		p.resetFlatLocked()
		return
	}
	if !p.inPosition {
		p.inPosition = true
		if price > 0 {
			p.entryPrice = price
			p.highWater = price
			p.lowWater = price
		}
	}
}

// Reduce optimistically shrinks the position after a partial exit
// submission and marks the take-profit level as achieved.
func (p *Position) Reduce(level, qty float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.tpDone[level] = true
	p.size -= qty
	if p.size < Epsilon {
		p.resetFlatLocked()
	}
}

// Add optimistically grows the position after a pyramid submission and
// marks the pyramid level as achieved.
func (p *Position) Add(level, qty float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pyramidDone[level] = true
	p.size += qty
}

// TPDone reports whether a take-profit level already fired this lifetime.
func (p *Position) TPDone(level float64) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.tpDone[level]
}

// PyramidDone reports whether a pyramid level already fired this lifetime.
func (p *Position) PyramidDone(level float64) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pyramidDone[level]
}

// UpdateWatermarks folds a tick price into the high/low watermarks.
// The high watermark never decreases within one open position.
func (p *Position) UpdateWatermarks(price float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.inPosition {
		return
	}
	if price > p.highWater {
		p.highWater = price
	}
	if price < p.lowWater || p.lowWater == 0 {
		p.lowWater = price
	}
}

// ResetFlat zeroes the position and clears all achieved levels.
func (p *Position) ResetFlat() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.resetFlatLocked()
}

func (p *Position) resetFlatLocked() {
	p.inPosition = false
	p.size = 0
	p.entryPrice = 0
	p.highWater = 0
	p.lowWater = 0
	p.tpDone = make(map[float64]bool)
	p.pyramidDone = make(map[float64]bool)
}

// TryBeginExit atomically claims the right to submit a full-exit order.
// It returns false when another exit (strategy or forced liquidation) is
// already in flight, keeping at most one outstanding exit per position.
func (p *Position) TryBeginExit() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.exitInFlight {
		return false
	}
	p.exitInFlight = true
	return true
}

// EndExit releases the exit claim.
func (p *Position) EndExit() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.exitInFlight = false
}
