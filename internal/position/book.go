package position

import "sync"

type bookKey struct {
	strategy string
	symbol   string
}

// Book owns the shared position map. Positions are created lazily, flat,
// on first reference by a strategy loop.
type Book struct {
	mu        sync.RWMutex
	positions map[bookKey]*Position
}

// NewBook creates an empty position book.
func NewBook() *Book {
	return &Book{positions: make(map[bookKey]*Position)}
}

// Get returns the position for (strategy, symbol), creating it if needed.
func (b *Book) Get(strategy, symbol string) *Position {
	k := bookKey{strategy, symbol}

	b.mu.RLock()
	p, ok := b.positions[k]
	b.mu.RUnlock()
	if ok {
		return p
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if p, ok := b.positions[k]; ok {
		return p
	}
	p = newPosition(strategy, symbol)
	b.positions[k] = p
	return p
}

// All returns every tracked position.
func (b *Book) All() []*Position {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]*Position, 0, len(b.positions))
	for _, p := range b.positions {
		out = append(out, p)
	}
	return out
}

// Open returns every position currently holding size.
func (b *Book) Open() []*Position {
	var out []*Position
	for _, p := range b.All() {
		if snap := p.Snapshot(); snap.InPosition && snap.Size > Epsilon {
			out = append(out, p)
		}
	}
	return out
}
