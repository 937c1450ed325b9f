// Package sql builds the statements issued by the row editor and classifies
// statements for the local executor.
//
// Builders quote identifiers. WHERE clauses are passed through as opaque SQL
// text supplied by the operator; nothing here validates SQL.
package sql

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/canonica-labs/d1bridge/internal/result"
)

// DefaultPageSize is the page size used when none is given.
const DefaultPageSize = 50

// MaxPageSize caps the page size accepted by SelectPage.
const MaxPageSize = 1000

// Builder builds row editor statements for one identifier quoting style.
type Builder struct {
	// Quote is the identifier quote character.
	Quote string
}

// ANSI quotes identifiers with double quotes (SQLite, D1, DuckDB, PostgreSQL).
var ANSI = Builder{Quote: `"`}

// Backtick quotes identifiers with backticks (MySQL).
var Backtick = Builder{Quote: "`"}

// QuoteIdent quotes an identifier with double quotes, doubling embedded quotes.
func QuoteIdent(name string) string {
	return ANSI.QuoteIdent(name)
}

// QuoteIdent quotes an identifier, doubling embedded quote characters.
func (b Builder) QuoteIdent(name string) string {
	return b.Quote + strings.ReplaceAll(name, b.Quote, b.Quote+b.Quote) + b.Quote
}

// Literal renders a Go value as a SQL literal.
// Strings are single-quoted with embedded quotes doubled; booleans become 1/0.
func Literal(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return "NULL"
	case string:
		return "'" + strings.ReplaceAll(val, "'", "''") + "'"
	case bool:
		if val {
			return "1"
		}
		return "0"
	case json.Number:
		return val.String()
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case float64:
		return strconv.FormatFloat(val, 'g', -1, 64)
	case json.RawMessage:
		return Literal(string(val))
	case []byte:
		return Literal(string(val))
	default:
		return Literal(fmt.Sprint(val))
	}
}

// SelectPage returns a statement reading one page of a table. Pages start at 1.
func SelectPage(table string, page, pageSize int) string {
	return ANSI.SelectPage(table, page, pageSize)
}

// SelectPage returns a statement reading one page of a table.
func (b Builder) SelectPage(table string, page, pageSize int) string {
	page, pageSize = NormalizePage(page, pageSize)
	offset := (page - 1) * pageSize
	return fmt.Sprintf("SELECT * FROM %s LIMIT %d OFFSET %d", b.QuoteIdent(table), pageSize, offset)
}

// NormalizePage applies the paging defaults and bounds.
func NormalizePage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	return page, pageSize
}

// CountRows returns a statement counting the rows of a table into a "count" column.
func CountRows(table string) string {
	return ANSI.CountRows(table)
}

// CountRows returns a statement counting the rows of a table.
func (b Builder) CountRows(table string) string {
	return fmt.Sprintf("SELECT COUNT(*) AS count FROM %s", b.QuoteIdent(table))
}

// Insert returns an INSERT of one row. Columns follow the row's key order.
func Insert(table string, data *result.Row) (string, error) {
	return ANSI.Insert(table, data)
}

// Insert returns an INSERT of one row.
func (b Builder) Insert(table string, data *result.Row) (string, error) {
	if data == nil || data.Len() == 0 {
		return "", fmt.Errorf("insert into %s: no columns given", table)
	}
	keys := data.Keys()
	cols := make([]string, len(keys))
	vals := make([]string, len(keys))
	for i, k := range keys {
		v, _ := data.Get(k)
		cols[i] = b.QuoteIdent(k)
		vals[i] = Literal(v)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		b.QuoteIdent(table), strings.Join(cols, ", "), strings.Join(vals, ", ")), nil
}

// Update returns an UPDATE of the rows matched by where.
func Update(table string, data *result.Row, where string) (string, error) {
	return ANSI.Update(table, data, where)
}

// Update returns an UPDATE of the rows matched by where.
func (b Builder) Update(table string, data *result.Row, where string) (string, error) {
	if data == nil || data.Len() == 0 {
		return "", fmt.Errorf("update %s: no columns given", table)
	}
	where = strings.TrimSpace(where)
	if where == "" {
		return "", fmt.Errorf("update %s: where clause is required", table)
	}
	keys := data.Keys()
	sets := make([]string, len(keys))
	for i, k := range keys {
		v, _ := data.Get(k)
		sets[i] = b.QuoteIdent(k) + " = " + Literal(v)
	}
	return fmt.Sprintf("UPDATE %s SET %s WHERE %s",
		b.QuoteIdent(table), strings.Join(sets, ", "), where), nil
}

// Delete returns a DELETE of the rows matched by where.
func Delete(table, where string) (string, error) {
	return ANSI.Delete(table, where)
}

// Delete returns a DELETE of the rows matched by where.
func (b Builder) Delete(table, where string) (string, error) {
	where = strings.TrimSpace(where)
	if where == "" {
		return "", fmt.Errorf("delete from %s: where clause is required", table)
	}
	return fmt.Sprintf("DELETE FROM %s WHERE %s", b.QuoteIdent(table), where), nil
}
