// Package storage provides the d1bridge state store: connection profiles,
// settings and audit logs, kept in SQLite or PostgreSQL.
//
// Statements are written with $N placeholders and rebound for SQLite.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	_ "github.com/lib/pq"  // PostgreSQL driver
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/canonica-labs/d1bridge/internal/errors"
)

// Supported state store drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// DB is a state store handle.
type DB struct {
	*sql.DB
	Driver string
}

var placeholder = regexp.MustCompile(`\$(\d+)`)

// Rebind rewrites $N placeholders for the handle's driver.
func (db *DB) Rebind(query string) string {
	if db.Driver == DriverSQLite {
		return placeholder.ReplaceAllString(query, "?$1")
	}
	return query
}

// Open opens the state store, creating the SQLite file's directory when
// needed, and applies pending migrations.
func Open(ctx context.Context, driver, dsn string) (*DB, error) {
	switch driver {
	case DriverSQLite:
		dsn = expandHome(dsn)
		if dsn == "" {
			return nil, errors.NewDatabaseUnavailable("state.dsn is empty")
		}
		if !strings.Contains(dsn, ":memory:") && !strings.HasPrefix(dsn, "file:") {
			if err := os.MkdirAll(filepath.Dir(dsn), 0o700); err != nil {
				return nil, errors.NewDatabaseUnavailable(err.Error())
			}
		}
	case DriverPostgres:
	default:
		return nil, errors.NewDatabaseUnavailable(fmt.Sprintf("unsupported state driver %q", driver))
	}

	sqlDB, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, errors.NewDatabaseUnavailable(err.Error())
	}
	if driver == DriverSQLite {
		// SQLite allows a single writer.
		sqlDB.SetMaxOpenConns(1)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		sqlDB.Close()
		return nil, errors.NewDatabaseUnavailable(err.Error())
	}

	db := &DB{DB: sqlDB, Driver: driver}
	if err := NewMigrationRunner(db).Run(ctx); err != nil {
		sqlDB.Close()
		return nil, err
	}
	return db, nil
}

// OpenMemory opens a migrated in-memory SQLite store.
func OpenMemory(ctx context.Context) (*DB, error) {
	return Open(ctx, DriverSQLite, ":memory:")
}

func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return path
}
