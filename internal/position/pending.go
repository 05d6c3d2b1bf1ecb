package position

import "sync"

// PendingOrder tracks an order submitted to the exchange but not yet fully
// reconciled against pushed fill events. Keyed by the exchange order id.
type PendingOrder struct {
	OrderID   int64
	Strategy  string
	Symbol    string
	Side      Side
	Role      Role
	CumFilled float64
	OrigQty   float64
}

// PendingBook owns the shared pending-order map.
type PendingBook struct {
	mu     sync.RWMutex
	orders map[int64]*PendingOrder
}

// NewPendingBook creates an empty pending-order book.
func NewPendingBook() *PendingBook {
	return &PendingBook{orders: make(map[int64]*PendingOrder)}
}

// Track registers a freshly submitted order.
func (b *PendingBook) Track(o PendingOrder) {
	b.mu.Lock()
	defer b.mu.Unlock()
	po := o
	b.orders[o.OrderID] = &po
}

// Get returns a copy of the tracked order, if any.
func (b *PendingBook) Get(orderID int64) (PendingOrder, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	po, ok := b.orders[orderID]
	if !ok {
		return PendingOrder{}, false
	}
	return *po, true
}

// ApplyCumulative records an exchange-reported cumulative filled quantity
// and returns the order plus the delta against the last-seen value.
// Replayed values yield a zero delta, making repeat delivery idempotent.
// Unknown order ids return ok=false and must be ignored by the caller.
func (b *PendingBook) ApplyCumulative(orderID int64, cumFilled float64) (PendingOrder, float64, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	po, ok := b.orders[orderID]
	if !ok {
		return PendingOrder{}, 0, false
	}
	delta := cumFilled - po.CumFilled
	po.CumFilled = cumFilled
	return *po, delta, true
}

// Remove drops a pending order once its status is terminal.
func (b *PendingBook) Remove(orderID int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.orders, orderID)
}

// Len returns the number of tracked orders.
func (b *PendingBook) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.orders)
}
