// Package local provides the executor for an in-process database handle.
//
// The handle is a *sql.DB opened with one of the registered drivers. Rows
// come back as ordered row objects so that column order survives
// normalization.
package local

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/canonica-labs/d1bridge/internal/adapters"
	"github.com/canonica-labs/d1bridge/internal/result"
	sqlstmt "github.com/canonica-labs/d1bridge/internal/sql"
)

// ModeName is reported by Mode.
const ModeName = "local"

// Executor runs statements on a bound local handle.
type Executor struct {
	mu      sync.RWMutex
	db      *sql.DB
	dialect adapters.Dialect
	name    string
	closed  bool
}

// Config configures a local executor.
type Config struct {
	// Driver is a registered driver name: sqlite, duckdb, postgres or mysql.
	Driver string

	// DSN is the driver data source. For sqlite and duckdb ":memory:" opens
	// an in-memory database.
	DSN string

	// Name is the database name reported by the databases operation.
	Name string
}

// Open opens the handle described by cfg and verifies it with a ping.
func Open(ctx context.Context, cfg Config) (*Executor, error) {
	driver, ok := Drivers.Get(cfg.Driver)
	if !ok {
		return nil, fmt.Errorf("local executor: unknown driver %q (available: %s)",
			cfg.Driver, strings.Join(Drivers.Available(), ", "))
	}
	if cfg.DSN == "" {
		return nil, fmt.Errorf("local executor: dsn is empty")
	}

	db, err := sql.Open(driver.SQLDriver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("local executor: open %s: %w", cfg.Driver, err)
	}
	// Every connection to an in-memory database sees its own database.
	if strings.Contains(cfg.DSN, ":memory:") {
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("local executor: ping %s: %w", cfg.Driver, err)
	}

	return New(db, driver.Dialect, cfg.Name), nil
}

// New wraps an already opened handle.
func New(db *sql.DB, dialect adapters.Dialect, name string) *Executor {
	return &Executor{
		db:      db,
		dialect: dialect,
		name:    name,
	}
}

// Mode returns "local".
func (e *Executor) Mode() string {
	return ModeName
}

// Dialect returns the catalog dialect of the handle.
func (e *Executor) Dialect() adapters.Dialect {
	return e.dialect
}

// Name returns the configured database name.
func (e *Executor) Name() string {
	return e.name
}

// Execute runs one statement. Write statements report rows_written and
// last_row_id; everything else returns its rows. Faults, including driver
// panics, are returned as a failed result.
func (e *Executor) Execute(ctx context.Context, stmt string) (res result.BackendResult) {
	defer func() {
		if r := recover(); r != nil {
			res = result.Failure(fmt.Sprintf("local executor panic: %v", r))
		}
	}()

	if err := ctx.Err(); err != nil {
		return result.Failure(err.Error())
	}

	e.mu.RLock()
	if e.closed || e.db == nil {
		e.mu.RUnlock()
		return result.Failure("local database is closed")
	}
	db := e.db
	e.mu.RUnlock()

	start := time.Now()
	if sqlstmt.Classify(stmt).IsWrite() {
		return e.exec(ctx, db, stmt, start)
	}
	return e.query(ctx, db, stmt, start)
}

func (e *Executor) exec(ctx context.Context, db *sql.DB, stmt string, start time.Time) result.BackendResult {
	out, err := db.ExecContext(ctx, stmt)
	if err != nil {
		return result.Failure(err.Error())
	}

	meta := &result.Meta{ServedBy: ModeName}
	if n, err := out.RowsAffected(); err == nil {
		meta.RowsWritten = n
		meta.Changes = n
		meta.ChangedDB = n > 0
	}
	// Not every driver reports insert ids.
	if id, err := out.LastInsertId(); err == nil {
		meta.LastRowID = id
	}
	meta.Duration = elapsed(start)

	return result.BackendResult{
		Success: true,
		Rows:    []*result.Row{},
		Meta:    meta,
	}
}

func (e *Executor) query(ctx context.Context, db *sql.DB, stmt string, start time.Time) result.BackendResult {
	rows, err := db.QueryContext(ctx, stmt)
	if err != nil {
		return result.Failure(err.Error())
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return result.Failure(err.Error())
	}

	out := make([]*result.Row, 0)
	for rows.Next() {
		values := make([]interface{}, len(columns))
		valuePtrs := make([]interface{}, len(columns))
		for i := range values {
			valuePtrs[i] = &values[i]
		}
		if err := rows.Scan(valuePtrs...); err != nil {
			return result.Failure(err.Error())
		}

		row := result.NewRow()
		for i, col := range columns {
			row.Set(col, cellValue(values[i]))
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return result.Failure(err.Error())
	}

	return result.BackendResult{
		Success: true,
		Rows:    out,
		Meta: &result.Meta{
			Duration: elapsed(start),
			RowsRead: int64(len(out)),
			ServedBy: ModeName,
		},
	}
}

// cellValue converts text returned as bytes into strings.
func cellValue(v interface{}) interface{} {
	if b, ok := v.([]byte); ok && utf8.Valid(b) {
		return string(b)
	}
	return v
}

func elapsed(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000
}

// Ping checks that the handle is reachable.
func (e *Executor) Ping(ctx context.Context) error {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if e.closed || e.db == nil {
		return fmt.Errorf("local executor: connection is closed")
	}
	return e.db.PingContext(ctx)
}

// Close releases the handle. It is safe to call more than once.
func (e *Executor) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil
	}
	e.closed = true
	if e.db != nil {
		return e.db.Close()
	}
	return nil
}
