package sql

import (
	"strings"
	"unicode"
)

// Operation is the kind of statement, taken from its first keyword.
type Operation string

const (
	OperationSelect  Operation = "SELECT"
	OperationInsert  Operation = "INSERT"
	OperationUpdate  Operation = "UPDATE"
	OperationDelete  Operation = "DELETE"
	OperationReplace Operation = "REPLACE"
	OperationCreate  Operation = "CREATE"
	OperationDrop    Operation = "DROP"
	OperationAlter   Operation = "ALTER"
	OperationPragma  Operation = "PRAGMA"
	OperationWith    Operation = "WITH"
	OperationOther   Operation = "OTHER"
)

// IsWrite reports whether the operation changes data or schema and returns no rows.
func (o Operation) IsWrite() bool {
	switch o {
	case OperationInsert, OperationUpdate, OperationDelete, OperationReplace,
		OperationCreate, OperationDrop, OperationAlter:
		return true
	}
	return false
}

// Classify returns the operation of a statement by its first keyword.
// Leading whitespace, "--" line comments and "/* */" block comments are skipped.
// Statements with a RETURNING clause are treated as reads so their rows are kept.
func Classify(stmt string) Operation {
	s := skipLeading(stmt)
	end := strings.IndexFunc(s, func(r rune) bool { return !unicode.IsLetter(r) })
	if end == -1 {
		end = len(s)
	}
	op := Operation(strings.ToUpper(s[:end]))
	switch op {
	case OperationSelect, OperationPragma, OperationWith:
		return op
	case OperationInsert, OperationUpdate, OperationDelete, OperationReplace:
		if hasKeyword(s, "RETURNING") {
			return OperationSelect
		}
		return op
	case OperationCreate, OperationDrop, OperationAlter:
		return op
	}
	if op == "VALUES" || op == "EXPLAIN" {
		return OperationSelect
	}
	return OperationOther
}

func skipLeading(s string) string {
	for {
		s = strings.TrimLeftFunc(s, unicode.IsSpace)
		switch {
		case strings.HasPrefix(s, "--"):
			nl := strings.IndexByte(s, '\n')
			if nl == -1 {
				return ""
			}
			s = s[nl+1:]
		case strings.HasPrefix(s, "/*"):
			end := strings.Index(s, "*/")
			if end == -1 {
				return ""
			}
			s = s[end+2:]
		default:
			return s
		}
	}
}

// hasKeyword reports whether kw appears as a bare word in stmt. Words inside
// string literals, quoted identifiers and comments do not count, nor do
// longer identifiers that merely contain kw.
func hasKeyword(stmt, kw string) bool {
	for i := 0; i < len(stmt); {
		c := stmt[i]
		switch {
		case c == '\'' || c == '"' || c == '`':
			end := strings.IndexByte(stmt[i+1:], c)
			if end == -1 {
				return false
			}
			i += end + 2
		case c == '[':
			end := strings.IndexByte(stmt[i+1:], ']')
			if end == -1 {
				return false
			}
			i += end + 2
		case strings.HasPrefix(stmt[i:], "--"):
			end := strings.IndexByte(stmt[i:], '\n')
			if end == -1 {
				return false
			}
			i += end + 1
		case strings.HasPrefix(stmt[i:], "/*"):
			end := strings.Index(stmt[i+2:], "*/")
			if end == -1 {
				return false
			}
			i += end + 4
		case isWordByte(c):
			start := i
			for i < len(stmt) && isWordByte(stmt[i]) {
				i++
			}
			if strings.EqualFold(stmt[start:i], kw) {
				return true
			}
		default:
			i++
		}
	}
	return false
}

func isWordByte(c byte) bool {
	return c == '_' || c == '$' || c >= 0x80 ||
		('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z') || ('0' <= c && c <= '9')
}
