// Package journal persists orders, fills, and risk events to SQLite for
// after-the-fact auditing. Trading paths write through the Writer interface
// and treat the journal as best-effort: a nil Writer is a no-op and write
// errors never reach the caller.
package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
)

// Writer records trading events.
type Writer interface {
	RecordOrder(ctx context.Context, o Order) error
	RecordFill(ctx context.Context, f FillEvent) error
	RecordRiskEvent(ctx context.Context, kind, detail string) error
}

// Order is one submitted order as the agent saw it at submission time.
type Order struct {
	OrderID   int64
	ClientID  string
	Strategy  string
	Symbol    string
	Side      string
	Role      string
	Qty       float64
	AvgPrice  float64
	Status    string
	CreatedAt time.Time
}

// FillEvent is one reconciled fill delta for a tracked order.
type FillEvent struct {
	OrderID   int64
	Symbol    string
	Side      string
	Delta     float64
	CumFilled float64
	Status    string
	CreatedAt time.Time
}

// Journal wraps the SQL handle for easier swapping/testing.
type Journal struct {
	DB *sql.DB
}

const schema = `
PRAGMA journal_mode=WAL;

CREATE TABLE IF NOT EXISTS orders (
    order_id INTEGER,
    client_id TEXT,
    strategy TEXT NOT NULL,
    symbol TEXT NOT NULL,
    side TEXT NOT NULL,
    role TEXT NOT NULL,
    qty REAL NOT NULL,
    avg_price REAL DEFAULT 0,
    status TEXT NOT NULL,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS fills (
    order_id INTEGER NOT NULL,
    symbol TEXT NOT NULL,
    side TEXT NOT NULL,
    delta REAL NOT NULL,
    cum_filled REAL NOT NULL,
    status TEXT NOT NULL,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS risk_events (
    kind TEXT NOT NULL,
    detail TEXT,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);
`

// Open opens (and creates if needed) the SQLite journal at path.
func Open(path string) (*Journal, error) {
	if path == "" {
		return nil, errors.New("journal path is empty")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create journal directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1) // SQLite prefers a single writer.
	db.SetConnMaxLifetime(time.Hour)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply journal schema: %w", err)
	}

	return &Journal{DB: db}, nil
}

// Close releases the underlying DB handle.
func (j *Journal) Close() error {
	if j == nil || j.DB == nil {
		return nil
	}
	return j.DB.Close()
}

// RecordOrder inserts one order row.
func (j *Journal) RecordOrder(ctx context.Context, o Order) error {
	if j == nil || j.DB == nil {
		return nil
	}
	if o.CreatedAt.IsZero() {
		o.CreatedAt = time.Now()
	}
	_, err := j.DB.ExecContext(ctx, `
		INSERT INTO orders (order_id, client_id, strategy, symbol, side, role, qty, avg_price, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, o.OrderID, o.ClientID, o.Strategy, o.Symbol, o.Side, o.Role, o.Qty, o.AvgPrice, o.Status, o.CreatedAt)
	return err
}

// RecordFill inserts one fill row.
func (j *Journal) RecordFill(ctx context.Context, f FillEvent) error {
	if j == nil || j.DB == nil {
		return nil
	}
	if f.CreatedAt.IsZero() {
		f.CreatedAt = time.Now()
	}
	_, err := j.DB.ExecContext(ctx, `
		INSERT INTO fills (order_id, symbol, side, delta, cum_filled, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, f.OrderID, f.Symbol, f.Side, f.Delta, f.CumFilled, f.Status, f.CreatedAt)
	return err
}

// RecordRiskEvent inserts one risk event row.
func (j *Journal) RecordRiskEvent(ctx context.Context, kind, detail string) error {
	if j == nil || j.DB == nil {
		return nil
	}
	_, err := j.DB.ExecContext(ctx, `
		INSERT INTO risk_events (kind, detail) VALUES (?, ?)
	`, kind, detail)
	return err
}
