// Package result defines the backend-native result shape returned by the
// executors and the canonical tabular shape served to every consumer.
//
// Backends disagree on shape: the local handle and the D1 query endpoint
// return lists of row objects, while the D1 raw endpoint returns a column
// list plus row arrays. Normalize folds both into CanonicalQueryResult so
// that the table browser, the SQL console and the row editor see identical
// responses regardless of backend.
package result

// Meta carries backend execution statistics. The first three fields are
// always present in canonical output; the rest are reported when the
// backend provides them.
type Meta struct {
	Duration    float64 `json:"duration"`
	RowsRead    int64   `json:"rows_read"`
	RowsWritten int64   `json:"rows_written"`

	Changes   int64  `json:"changes,omitempty"`
	LastRowID int64  `json:"last_row_id,omitempty"`
	ChangedDB bool   `json:"changed_db,omitempty"`
	SizeAfter int64  `json:"size_after,omitempty"`
	ServedBy  string `json:"served_by,omitempty"`
}

// BackendResult is the raw result of one executor call.
//
// Exactly one row shape is populated on success: Rows for object-shaped
// results, or Columns and Values for array-shaped results. A non-nil
// Columns slice marks the array shape.
type BackendResult struct {
	Success bool
	Rows    []*Row
	Columns []string
	Values  [][]interface{}
	Meta    *Meta
	Error   string
}

// Failure builds a failed result carrying msg.
func Failure(msg string) BackendResult {
	return BackendResult{Success: false, Error: msg}
}

// Tabular reports whether the result is in column/row-array form.
func (r BackendResult) Tabular() bool {
	return r.Columns != nil
}

// Objects returns the rows as row objects. Array-shaped results are zipped
// with their column list; object-shaped rows are returned as is. Never nil.
func (r BackendResult) Objects() []*Row {
	if !r.Tabular() {
		if r.Rows == nil {
			return []*Row{}
		}
		return r.Rows
	}
	out := make([]*Row, 0, len(r.Values))
	for _, values := range r.Values {
		row := NewRow()
		for i, col := range r.Columns {
			var v interface{}
			if i < len(values) {
				v = values[i]
			}
			row.Set(col, v)
		}
		out = append(out, row)
	}
	return out
}

// CanonicalQueryResult is the normalized query response.
// Every entry of Rows has exactly len(Columns) cells.
type CanonicalQueryResult struct {
	Columns []string        `json:"columns"`
	Rows    [][]interface{} `json:"rows"`
	Meta    *Meta           `json:"meta,omitempty"`
}

// Normalize converts a successful BackendResult into canonical form.
//
// For object-shaped rows the column set is the key list of the first row,
// and every row is projected in that order; a missing key yields nil. Keys
// that do not appear in the first row are not surfaced. Result rows are
// assumed homogeneous, which holds for single-statement projections.
//
// Array-shaped results are passed through, so normalizing canonical input
// returns it unchanged.
//
// Callers must not normalize failed results; they are propagated as is.
func Normalize(r BackendResult) CanonicalQueryResult {
	if r.Tabular() {
		return normalizeTabular(r)
	}

	out := CanonicalQueryResult{
		Columns: []string{},
		Rows:    make([][]interface{}, 0, len(r.Rows)),
		Meta:    r.Meta,
	}
	if len(r.Rows) == 0 {
		return out
	}

	out.Columns = r.Rows[0].Keys()
	for _, row := range r.Rows {
		cells := make([]interface{}, len(out.Columns))
		for i, col := range out.Columns {
			if v, ok := row.Get(col); ok {
				cells[i] = v
			}
		}
		out.Rows = append(out.Rows, cells)
	}
	return out
}

func normalizeTabular(r BackendResult) CanonicalQueryResult {
	columns := make([]string, len(r.Columns))
	copy(columns, r.Columns)

	rows := make([][]interface{}, 0, len(r.Values))
	for _, values := range r.Values {
		cells := make([]interface{}, len(columns))
		copy(cells, values)
		rows = append(rows, cells)
	}

	return CanonicalQueryResult{
		Columns: columns,
		Rows:    rows,
		Meta:    r.Meta,
	}
}
