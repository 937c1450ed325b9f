// Package adapters defines the executor contract shared by the local and
// remote backends, and the SQL dialects used for catalog statements.
//
// Executors are thin: one statement, one attempt, no retries, no fallbacks.
// Faults are reported inside the returned result, never as a panic.
package adapters

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/canonica-labs/d1bridge/internal/result"
	sqlstmt "github.com/canonica-labs/d1bridge/internal/sql"
)

// Executor runs exactly one SQL statement against one backend.
type Executor interface {
	// Mode returns the backend kind, "local" or "remote".
	Mode() string

	// Execute runs stmt. Success and failure are both reported in the result.
	Execute(ctx context.Context, stmt string) result.BackendResult
}

// Dialect carries the catalog statements of one SQL flavour.
type Dialect struct {
	// Name of the dialect.
	Name string

	// TablesSQL lists user tables as rows of {name, type, sql}.
	TablesSQL string

	// SchemaSQL describes one table as rows of
	// {cid, name, type, notnull, dflt_value, pk}. It has one %s verb for the
	// table name, which is interpolated verbatim.
	SchemaSQL string

	// Builder builds row editor statements with the dialect's identifier quoting.
	Builder sqlstmt.Builder
}

// SchemaStatement returns the describe statement for table.
func (d Dialect) SchemaStatement(table string) string {
	return fmt.Sprintf(d.SchemaSQL, table)
}

// SQLite is the dialect of SQLite and D1.
var SQLite = Dialect{
	Name:      "sqlite",
	TablesSQL: "SELECT name, type, sql FROM sqlite_master WHERE type='table' AND name NOT LIKE 'sqlite_%' ORDER BY name",
	SchemaSQL: "PRAGMA table_info(%s)",
	Builder:   sqlstmt.ANSI,
}

// Postgres shapes information_schema to the SQLite catalog columns.
var Postgres = Dialect{
	Name: "postgres",
	TablesSQL: "SELECT table_name AS name, 'table' AS type, NULL AS sql FROM information_schema.tables " +
		"WHERE table_schema = current_schema() AND table_type = 'BASE TABLE' ORDER BY table_name",
	SchemaSQL: "SELECT c.ordinal_position - 1 AS cid, c.column_name AS name, c.data_type AS type, " +
		"CASE WHEN c.is_nullable = 'NO' THEN 1 ELSE 0 END AS notnull, c.column_default AS dflt_value, " +
		"CASE WHEN EXISTS (SELECT 1 FROM information_schema.table_constraints tc " +
		"JOIN information_schema.key_column_usage k ON tc.constraint_name = k.constraint_name AND tc.table_schema = k.table_schema " +
		"WHERE tc.constraint_type = 'PRIMARY KEY' AND k.table_name = c.table_name AND k.column_name = c.column_name " +
		"AND k.table_schema = c.table_schema) THEN 1 ELSE 0 END AS pk " +
		"FROM information_schema.columns c WHERE c.table_schema = current_schema() AND c.table_name = '%s' " +
		"ORDER BY c.ordinal_position",
	Builder: sqlstmt.ANSI,
}

// MySQL shapes information_schema to the SQLite catalog columns.
var MySQL = Dialect{
	Name: "mysql",
	TablesSQL: "SELECT table_name AS name, 'table' AS type, NULL AS `sql` FROM information_schema.tables " +
		"WHERE table_schema = DATABASE() AND table_type = 'BASE TABLE' ORDER BY table_name",
	SchemaSQL: "SELECT ordinal_position - 1 AS cid, column_name AS name, column_type AS type, " +
		"IF(is_nullable = 'NO', 1, 0) AS `notnull`, column_default AS dflt_value, " +
		"IF(column_key = 'PRI', 1, 0) AS pk FROM information_schema.columns " +
		"WHERE table_schema = DATABASE() AND table_name = '%s' ORDER BY ordinal_position",
	Builder: sqlstmt.Backtick,
}

// Driver describes a local database driver the gateway can bind.
type Driver struct {
	// Name is the configured driver name.
	Name string

	// SQLDriver is the database/sql driver name to open.
	SQLDriver string

	// Dialect is used for catalog statements.
	Dialect Dialect
}

// DriverRegistry manages the local drivers available to the gateway.
type DriverRegistry struct {
	mu      sync.RWMutex
	drivers map[string]Driver
}

// NewDriverRegistry creates a new driver registry.
func NewDriverRegistry() *DriverRegistry {
	return &DriverRegistry{
		drivers: make(map[string]Driver),
	}
}

// Register adds a driver to the registry.
func (r *DriverRegistry) Register(d Driver) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.drivers[d.Name] = d
}

// Get returns a driver by name.
func (r *DriverRegistry) Get(name string) (Driver, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.drivers[name]
	return d, ok
}

// Available returns the names of all registered drivers, sorted.
func (r *DriverRegistry) Available() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.drivers))
	for name := range r.drivers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// LocalBackend is an executor over a bound local handle.
type LocalBackend interface {
	Executor

	// Dialect returns the catalog dialect of the handle.
	Dialect() Dialect

	// Name returns the database name reported by the databases operation.
	Name() string
}
