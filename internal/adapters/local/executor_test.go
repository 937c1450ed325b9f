package local

import (
	"context"
	"encoding/json"
	"reflect"
	"testing"

	"github.com/canonica-labs/d1bridge/internal/adapters"
	"github.com/canonica-labs/d1bridge/internal/result"
)

func newTestExecutor(t *testing.T) *Executor {
	t.Helper()
	e, err := Open(context.Background(), Config{Driver: "sqlite", DSN: ":memory:", Name: "test-db"})
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	t.Cleanup(func() { e.Close() })

	ctx := context.Background()
	for _, stmt := range []string{
		"CREATE TABLE users (id INTEGER PRIMARY KEY, name TEXT NOT NULL, email TEXT)",
		"INSERT INTO users (name, email) VALUES ('Ann', 'ann@example.com')",
		"INSERT INTO users (name, email) VALUES ('Bob', NULL)",
	} {
		if res := e.Execute(ctx, stmt); !res.Success {
			t.Fatalf("setup %q failed: %s", stmt, res.Error)
		}
	}
	return e
}

// TestExecute_SelectKeepsColumnOrder verifies rows come back as ordered objects.
//
// Green-Flag: column order follows the projection, not alphabetical order.
func TestExecute_SelectKeepsColumnOrder(t *testing.T) {
	e := newTestExecutor(t)

	res := e.Execute(context.Background(), "SELECT name, id, email FROM users ORDER BY id")
	if !res.Success {
		t.Fatalf("Execute() failed: %s", res.Error)
	}
	if len(res.Rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(res.Rows))
	}
	if got := res.Rows[0].Keys(); !reflect.DeepEqual(got, []string{"name", "id", "email"}) {
		t.Errorf("Keys() = %v", got)
	}
	if v, _ := res.Rows[1].Get("email"); v != nil {
		t.Errorf("NULL email should be nil, got %v", v)
	}
	if res.Meta == nil || res.Meta.RowsRead != 2 {
		t.Errorf("Meta = %+v", res.Meta)
	}

	canonical := result.Normalize(res)
	data, err := json.Marshal(canonical)
	if err != nil {
		t.Fatalf("Marshal() error: %v", err)
	}
	var decoded struct {
		Columns []string        `json:"columns"`
		Rows    [][]interface{} `json:"rows"`
	}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal() error: %v", err)
	}
	if !reflect.DeepEqual(decoded.Columns, []string{"name", "id", "email"}) || len(decoded.Rows) != 2 {
		t.Errorf("canonical = %s", data)
	}
}

func TestExecute_WriteReportsMeta(t *testing.T) {
	e := newTestExecutor(t)

	res := e.Execute(context.Background(), "INSERT INTO users (name) VALUES ('Cid')")
	if !res.Success {
		t.Fatalf("Execute() failed: %s", res.Error)
	}
	if res.Meta.RowsWritten != 1 || res.Meta.LastRowID != 3 || !res.Meta.ChangedDB {
		t.Errorf("Meta = %+v", res.Meta)
	}
	if res.Rows == nil || len(res.Rows) != 0 {
		t.Errorf("write should return empty rows, got %v", res.Rows)
	}

	res = e.Execute(context.Background(), "UPDATE users SET email = 'x' WHERE name != 'nobody'")
	if !res.Success || res.Meta.RowsWritten != 3 {
		t.Errorf("update result = %+v", res)
	}
}

// TestExecute_ReturningColumnIsAWrite verifies a column whose name merely
// contains RETURNING does not turn an insert into a read.
//
// Green-Flag: write meta is kept; a real RETURNING clause still yields rows.
func TestExecute_ReturningColumnIsAWrite(t *testing.T) {
	e := newTestExecutor(t)
	ctx := context.Background()

	if res := e.Execute(ctx, "CREATE TABLE totals (id INTEGER PRIMARY KEY, returning_total INTEGER)"); !res.Success {
		t.Fatalf("create failed: %s", res.Error)
	}

	res := e.Execute(ctx, "INSERT INTO totals (returning_total) VALUES (7)")
	if !res.Success {
		t.Fatalf("Execute() failed: %s", res.Error)
	}
	if res.Meta == nil || res.Meta.RowsWritten != 1 || res.Meta.LastRowID != 1 {
		t.Errorf("Meta = %+v", res.Meta)
	}

	res = e.Execute(ctx, "INSERT INTO totals (returning_total) VALUES (8) RETURNING id")
	if !res.Success || len(res.Rows) != 1 {
		t.Fatalf("RETURNING result = %+v", res)
	}
	if id, _ := res.Rows[0].Get("id"); id != int64(2) {
		t.Errorf("returned id = %v (%T)", id, id)
	}
}

// TestExecute_FaultIsReported verifies faults never escape as errors or panics.
//
// Red-Flag: invalid SQL yields Success=false with the driver message.
func TestExecute_FaultIsReported(t *testing.T) {
	e := newTestExecutor(t)

	res := e.Execute(context.Background(), "SELEC 1")
	if res.Success {
		t.Fatal("expected failure")
	}
	if res.Error == "" {
		t.Error("expected error message")
	}

	res = e.Execute(context.Background(), "SELECT * FROM missing_table")
	if res.Success || res.Error == "" {
		t.Errorf("missing table result = %+v", res)
	}
}

func TestExecute_CancelledContext(t *testing.T) {
	e := newTestExecutor(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if res := e.Execute(ctx, "SELECT 1"); res.Success {
		t.Error("cancelled context should fail")
	}
}

func TestExecute_Closed(t *testing.T) {
	e := newTestExecutor(t)
	if err := e.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}
	if err := e.Close(); err != nil {
		t.Errorf("second Close() error: %v", err)
	}
	if res := e.Execute(context.Background(), "SELECT 1"); res.Success || res.Error == "" {
		t.Errorf("closed executor result = %+v", res)
	}
}

func TestExecute_CatalogStatements(t *testing.T) {
	e := newTestExecutor(t)
	ctx := context.Background()

	tables := e.Execute(ctx, e.Dialect().TablesSQL)
	if !tables.Success || len(tables.Rows) != 1 {
		t.Fatalf("tables = %+v", tables)
	}
	if name, _ := tables.Rows[0].Get("name"); name != "users" {
		t.Errorf("table name = %v", name)
	}

	schema := e.Execute(ctx, e.Dialect().SchemaStatement("users"))
	if !schema.Success || len(schema.Rows) != 3 {
		t.Fatalf("schema = %+v", schema)
	}
	if got := schema.Rows[0].Keys(); !reflect.DeepEqual(got, []string{"cid", "name", "type", "notnull", "dflt_value", "pk"}) {
		t.Errorf("schema columns = %v", got)
	}
}

func TestOpen_UnknownDriver(t *testing.T) {
	if _, err := Open(context.Background(), Config{Driver: "oracle", DSN: "x"}); err == nil {
		t.Error("expected error for unknown driver")
	}
	if _, err := Open(context.Background(), Config{Driver: "sqlite"}); err == nil {
		t.Error("expected error for empty dsn")
	}
}

func TestExecutor_ImplementsExecutor(t *testing.T) {
	var _ adapters.Executor = (*Executor)(nil)
	var _ adapters.LocalBackend = (*Executor)(nil)
}
