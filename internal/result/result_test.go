package result

import (
	"encoding/json"
	"reflect"
	"testing"
)

// TestNormalize_ObjectRows verifies columns come from the first row and
// every row is projected in that order.
//
// Green-Flag: homogeneous row objects normalize to aligned arrays.
func TestNormalize_ObjectRows(t *testing.T) {
	raw := BackendResult{
		Success: true,
		Rows: []*Row{
			RowOf("id", 1, "name", "a"),
			RowOf("id", 2, "name", "b"),
		},
	}

	got := Normalize(raw)

	wantColumns := []string{"id", "name"}
	wantRows := [][]interface{}{{1, "a"}, {2, "b"}}
	if !reflect.DeepEqual(got.Columns, wantColumns) {
		t.Errorf("columns = %v, want %v", got.Columns, wantColumns)
	}
	if !reflect.DeepEqual(got.Rows, wantRows) {
		t.Errorf("rows = %v, want %v", got.Rows, wantRows)
	}
}

// TestNormalize_EmptyRows verifies an empty row set yields empty, non-nil slices.
//
// Green-Flag: empty results encode as {"columns":[],"rows":[]}.
func TestNormalize_EmptyRows(t *testing.T) {
	for _, raw := range []BackendResult{
		{Success: true, Rows: []*Row{}},
		{Success: true},
	} {
		got := Normalize(raw)
		if got.Columns == nil || len(got.Columns) != 0 {
			t.Errorf("columns = %#v, want empty slice", got.Columns)
		}
		if got.Rows == nil || len(got.Rows) != 0 {
			t.Errorf("rows = %#v, want empty slice", got.Rows)
		}

		data, err := json.Marshal(got)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		if string(data) != `{"columns":[],"rows":[]}` {
			t.Errorf("json = %s", data)
		}
	}
}

// TestNormalize_RowLengthMatchesColumns checks the alignment invariant on
// rows with missing and extra keys.
//
// Red-Flag: keys absent from the first row are dropped, missing keys become nil.
func TestNormalize_RowLengthMatchesColumns(t *testing.T) {
	raw := BackendResult{
		Success: true,
		Rows: []*Row{
			RowOf("a", 1, "b", 2),
			RowOf("b", 3),
			RowOf("c", 9, "a", 4, "b", 5),
		},
	}

	got := Normalize(raw)

	if !reflect.DeepEqual(got.Columns, []string{"a", "b"}) {
		t.Fatalf("columns = %v", got.Columns)
	}
	want := [][]interface{}{{1, 2}, {nil, 3}, {4, 5}}
	if !reflect.DeepEqual(got.Rows, want) {
		t.Errorf("rows = %v, want %v", got.Rows, want)
	}
	for i, row := range got.Rows {
		if len(row) != len(got.Columns) {
			t.Errorf("row %d has %d cells, want %d", i, len(row), len(got.Columns))
		}
	}
}

// TestNormalize_TabularIsIdempotent verifies canonical input passes through.
//
// Green-Flag: normalizing {columns, rows} returns it unchanged.
func TestNormalize_TabularIsIdempotent(t *testing.T) {
	meta := &Meta{Duration: 0.5, RowsRead: 2}
	raw := BackendResult{
		Success: true,
		Columns: []string{"id", "id"},
		Values:  [][]interface{}{{1, 2}, {3, 4}},
		Meta:    meta,
	}

	first := Normalize(raw)
	second := Normalize(BackendResult{Success: true, Columns: first.Columns, Values: first.Rows, Meta: first.Meta})

	if !reflect.DeepEqual(first, second) {
		t.Errorf("normalize not idempotent: %+v vs %+v", first, second)
	}
	if !reflect.DeepEqual(first.Columns, raw.Columns) || !reflect.DeepEqual(first.Rows, raw.Values) {
		t.Errorf("tabular input changed: %+v", first)
	}
	if first.Meta != meta {
		t.Error("meta should be carried through")
	}
}

// TestBackendResult_ObjectsZipsTabular verifies array-form rows convert to objects.
func TestBackendResult_ObjectsZipsTabular(t *testing.T) {
	raw := BackendResult{
		Success: true,
		Columns: []string{"name", "type"},
		Values:  [][]interface{}{{"users", "table"}},
	}

	objs := raw.Objects()
	if len(objs) != 1 {
		t.Fatalf("got %d objects", len(objs))
	}
	data, err := json.Marshal(objs[0])
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != `{"name":"users","type":"table"}` {
		t.Errorf("json = %s", data)
	}

	if got := (BackendResult{Success: true}).Objects(); got == nil || len(got) != 0 {
		t.Errorf("empty objects = %#v", got)
	}
}

// TestRow_JSONKeepsKeyOrder verifies decode/encode preserves document order.
func TestRow_JSONKeepsKeyOrder(t *testing.T) {
	input := `{"zeta":1,"alpha":"x","mid":null,"big":9007199254740993,"ok":true}`

	var row Row
	if err := json.Unmarshal([]byte(input), &row); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !reflect.DeepEqual(row.Keys(), []string{"zeta", "alpha", "mid", "big", "ok"}) {
		t.Errorf("keys = %v", row.Keys())
	}

	out, err := json.Marshal(&row)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(out) != input {
		t.Errorf("round trip = %s, want %s", out, input)
	}
}

// TestRow_UnmarshalRejectsNonObject verifies arrays are not accepted as rows.
//
// Red-Flag: a row must be a JSON object.
func TestRow_UnmarshalRejectsNonObject(t *testing.T) {
	var row Row
	if err := json.Unmarshal([]byte(`[1,2]`), &row); err == nil {
		t.Error("expected error for array input")
	}
}

// TestRow_SetDuplicateKeepsPosition mirrors JSON object semantics for duplicate keys.
func TestRow_SetDuplicateKeepsPosition(t *testing.T) {
	row := RowOf("id", 1, "name", "a", "id", 2)

	if !reflect.DeepEqual(row.Keys(), []string{"id", "name"}) {
		t.Errorf("keys = %v", row.Keys())
	}
	if v, _ := row.Get("id"); v != 2 {
		t.Errorf("id = %v, want 2", v)
	}
}
