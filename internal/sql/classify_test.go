package sql

import "testing"

func TestClassify(t *testing.T) {
	tests := []struct {
		stmt string
		want Operation
	}{
		{"SELECT 1", OperationSelect},
		{"  select * from t", OperationSelect},
		{"-- comment\nINSERT INTO t VALUES (1)", OperationInsert},
		{"/* hint */ update t set a = 1", OperationUpdate},
		{"DELETE FROM t", OperationDelete},
		{"INSERT INTO t VALUES (1) RETURNING id", OperationSelect},
		{"delete from t where id = 1\nreturning *", OperationSelect},
		{"INSERT INTO t (returning_total) VALUES (1)", OperationInsert},
		{"UPDATE t SET note = 'RETURNING soon'", OperationUpdate},
		{`INSERT INTO "returning" (a) VALUES (1)`, OperationInsert},
		{"UPDATE t SET a = 1 -- returning\n", OperationUpdate},
		{"INSERT INTO t VALUES ('it''s') RETURNING id", OperationSelect},
		{"CREATE TABLE t (id INTEGER)", OperationCreate},
		{"PRAGMA table_info(t)", OperationPragma},
		{"WITH x AS (SELECT 1) SELECT * FROM x", OperationWith},
		{"VACUUM", OperationOther},
		{"", OperationOther},
	}
	for _, tt := range tests {
		if got := Classify(tt.stmt); got != tt.want {
			t.Errorf("Classify(%q) = %s, want %s", tt.stmt, got, tt.want)
		}
	}
}

func TestOperation_IsWrite(t *testing.T) {
	if !OperationInsert.IsWrite() || !OperationCreate.IsWrite() {
		t.Error("insert and create are writes")
	}
	if OperationSelect.IsWrite() || OperationPragma.IsWrite() || OperationOther.IsWrite() {
		t.Error("select, pragma and other are not writes")
	}
}
