// Package api defines the public endpoints and headers of the d1bridge gateway.
package api

// API version
const Version = "0.1.0"

// DefaultPrefix is the path prefix every operation is served under.
const DefaultPrefix = "/api"

// API endpoints, relative to the prefix.
const (
	EndpointMode         = "/mode"
	EndpointDatabases    = "/databases"
	EndpointQuery        = "/query"
	EndpointPing         = "/ping"
	EndpointTables       = "/tables"
	EndpointTableSchema  = "/tables/:table/schema"
	EndpointTableRows    = "/tables/:table/rows"
	EndpointTableCount   = "/tables/:table/count"
	EndpointAuditSummary = "/audit/summary"
)

// EndpointHealth is served outside the prefix.
const EndpointHealth = "/health"

// HTTP headers
const (
	HeaderContentType   = "Content-Type"
	HeaderAuthorization = "Authorization"
	HeaderRequestID     = "X-Request-ID"

	// Remote credential headers forwarded by clients.
	HeaderAccountID  = "X-CF-Account-ID"
	HeaderAPIToken   = "X-CF-API-Token"
	HeaderDatabaseID = "X-CF-Database-ID"
)

// Content types
const (
	ContentTypeJSON = "application/json"
)

// TableSchemaPath returns the schema path of a table, relative to the prefix.
func TableSchemaPath(table string) string {
	return EndpointTables + "/" + table + "/schema"
}

// TableRowsPath returns the rows path of a table, relative to the prefix.
func TableRowsPath(table string) string {
	return EndpointTables + "/" + table + "/rows"
}

// TableCountPath returns the count path of a table, relative to the prefix.
func TableCountPath(table string) string {
	return EndpointTables + "/" + table + "/count"
}
