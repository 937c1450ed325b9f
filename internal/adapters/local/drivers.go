package local

import (
	"github.com/canonica-labs/d1bridge/internal/adapters"

	_ "github.com/go-sql-driver/mysql"  // MySQL driver
	_ "github.com/lib/pq"               // PostgreSQL driver
	_ "github.com/marcboeker/go-duckdb" // DuckDB driver
	_ "modernc.org/sqlite"              // SQLite driver
)

// Drivers holds the local drivers the gateway can bind.
var Drivers = adapters.NewDriverRegistry()

func init() {
	Drivers.Register(adapters.Driver{Name: "sqlite", SQLDriver: "sqlite", Dialect: adapters.SQLite})
	Drivers.Register(adapters.Driver{Name: "duckdb", SQLDriver: "duckdb", Dialect: adapters.SQLite})
	Drivers.Register(adapters.Driver{Name: "postgres", SQLDriver: "postgres", Dialect: adapters.Postgres})
	Drivers.Register(adapters.Driver{Name: "mysql", SQLDriver: "mysql", Dialect: adapters.MySQL})
}
