// Package migrations provides the embedded schema of the d1bridge state store.
// Statements are portable between SQLite and PostgreSQL.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
