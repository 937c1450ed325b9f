package adapters

import (
	"reflect"
	"testing"
)

func TestDialect_SchemaStatement(t *testing.T) {
	if got := SQLite.SchemaStatement("users"); got != "PRAGMA table_info(users)" {
		t.Errorf("SchemaStatement() = %s", got)
	}
}

func TestDriverRegistry(t *testing.T) {
	r := NewDriverRegistry()
	r.Register(Driver{Name: "sqlite", SQLDriver: "sqlite", Dialect: SQLite})
	r.Register(Driver{Name: "mysql", SQLDriver: "mysql", Dialect: MySQL})

	d, ok := r.Get("sqlite")
	if !ok || d.Dialect.Name != "sqlite" {
		t.Errorf("Get(sqlite) = %+v, %v", d, ok)
	}
	if _, ok := r.Get("oracle"); ok {
		t.Error("unregistered driver should not be found")
	}
	if got := r.Available(); !reflect.DeepEqual(got, []string{"mysql", "sqlite"}) {
		t.Errorf("Available() = %v", got)
	}
}
