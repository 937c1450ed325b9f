package result

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/tidwall/gjson"
)

// Row is a row object with named fields that remembers the order in which
// its keys were first seen. Backends that return rows as JSON objects or as
// named columns produce Rows; the normalizer relies on the key order of the
// first row to discover columns.
type Row struct {
	keys   []string
	values map[string]interface{}
}

// NewRow creates an empty row.
func NewRow() *Row {
	return &Row{values: make(map[string]interface{})}
}

// RowOf builds a row from alternating key/value pairs.
// It panics on an odd number of arguments or a non-string key.
func RowOf(pairs ...interface{}) *Row {
	if len(pairs)%2 != 0 {
		panic("result: RowOf requires key/value pairs")
	}
	r := NewRow()
	for i := 0; i < len(pairs); i += 2 {
		key, ok := pairs[i].(string)
		if !ok {
			panic(fmt.Sprintf("result: RowOf key %v is not a string", pairs[i]))
		}
		r.Set(key, pairs[i+1])
	}
	return r
}

// Set assigns a value. A key that already exists keeps its position and
// takes the new value, the same way a JSON object with duplicate keys decodes.
func (r *Row) Set(key string, value interface{}) {
	if r.values == nil {
		r.values = make(map[string]interface{})
	}
	if _, exists := r.values[key]; !exists {
		r.keys = append(r.keys, key)
	}
	r.values[key] = value
}

// Get returns the value stored under key.
func (r *Row) Get(key string) (interface{}, bool) {
	if r == nil {
		return nil, false
	}
	v, ok := r.values[key]
	return v, ok
}

// Keys returns the keys in insertion order.
func (r *Row) Keys() []string {
	if r == nil {
		return nil
	}
	out := make([]string, len(r.keys))
	copy(out, r.keys)
	return out
}

// Len returns the number of fields.
func (r *Row) Len() int {
	if r == nil {
		return 0
	}
	return len(r.keys)
}

// MarshalJSON encodes the row as a JSON object with keys in insertion order.
func (r *Row) MarshalJSON() ([]byte, error) {
	if r == nil {
		return []byte("null"), nil
	}
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, key := range r.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(key)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		v, err := json.Marshal(r.values[key])
		if err != nil {
			return nil, fmt.Errorf("result: field %q: %w", key, err)
		}
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object, keeping the document key order.
func (r *Row) UnmarshalJSON(data []byte) error {
	parsed := gjson.ParseBytes(data)
	if !parsed.IsObject() {
		return fmt.Errorf("result: row must be a JSON object, got %s", parsed.Type)
	}
	*r = *RowFromJSON(parsed)
	return nil
}

// RowFromJSON converts a parsed JSON object into a Row.
func RowFromJSON(obj gjson.Result) *Row {
	row := NewRow()
	obj.ForEach(func(key, value gjson.Result) bool {
		row.Set(key.String(), ValueOf(value))
		return true
	})
	return row
}

// ValueOf converts a parsed JSON value into a Go scalar. Numbers are kept as
// json.Number so that integers survive a round trip without float rounding;
// nested objects and arrays are kept as raw JSON.
func ValueOf(v gjson.Result) interface{} {
	switch v.Type {
	case gjson.Null:
		return nil
	case gjson.True:
		return true
	case gjson.False:
		return false
	case gjson.Number:
		return json.Number(v.Raw)
	case gjson.String:
		return v.Str
	default:
		if !v.Exists() {
			return nil
		}
		return json.RawMessage(v.Raw)
	}
}
