// Package gateway serves the d1bridge HTTP surface: a fixed set of
// operations under a path prefix, each answered with the
// {success, data, error} outcome envelope.
//
// Every request resolves its backend on its own: remote when the request
// carries remote credentials, else the bound local database. Exactly one
// executor is built per request.
package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/klauspost/compress/gzhttp"
	"github.com/rs/cors"

	"github.com/canonica-labs/d1bridge/internal/adapters"
	"github.com/canonica-labs/d1bridge/internal/errors"
	"github.com/canonica-labs/d1bridge/internal/observability"
	"github.com/canonica-labs/d1bridge/internal/result"
	"github.com/canonica-labs/d1bridge/internal/router"
	"github.com/canonica-labs/d1bridge/pkg/api"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 10 << 20

// RemoteBackend reaches the remote database service.
type RemoteBackend interface {
	// Executor returns an executor bound to creds.
	Executor(creds router.Credentials) adapters.Executor

	// ListDatabases lists the databases of an account.
	ListDatabases(ctx context.Context, accountID, apiToken string) result.BackendResult
}

// Options configures a Gateway.
type Options struct {
	// Prefix is the path prefix of every operation. Defaults to "/api".
	Prefix string

	// Local is the bound local database. Nil means none is bound.
	Local adapters.LocalBackend

	// Remote is the remote service. Nil disables remote mode; credentials
	// in requests are then ignored.
	Remote RemoteBackend

	// Logger receives one entry per request. Defaults to a NoopLogger.
	Logger observability.OperationLogger

	// Compress enables gzip responses for clients that accept them.
	Compress bool
}

// Gateway is the d1bridge HTTP handler.
type Gateway struct {
	prefix  string
	local   adapters.LocalBackend
	remote  RemoteBackend
	logger  observability.OperationLogger
	routes  routeTable
	handler http.Handler
	now     func() time.Time
}

// New creates a gateway.
func New(opts Options) *Gateway {
	prefix := strings.TrimSuffix(opts.Prefix, "/")
	if opts.Prefix == "" {
		prefix = api.DefaultPrefix
	}
	logger := opts.Logger
	if logger == nil {
		logger = observability.NewNoopLogger()
	}

	g := &Gateway{
		prefix: prefix,
		local:  opts.Local,
		remote: opts.Remote,
		logger: logger,
		now:    time.Now,
	}
	g.registerRoutes()

	var h http.Handler = http.HandlerFunc(g.dispatch)
	if opts.Compress {
		h = gzhttp.GzipHandler(h)
	}
	g.handler = cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{api.HeaderContentType, api.HeaderAccountID, api.HeaderAPIToken, api.HeaderDatabaseID},
		ExposedHeaders: []string{api.HeaderRequestID},
	}).Handler(h)

	return g
}

func (g *Gateway) registerRoutes() {
	p := g.prefix
	g.routes.add("health", http.MethodGet, api.EndpointHealth, g.handleHealth)
	g.routes.add("mode", http.MethodGet, p+api.EndpointMode, g.handleMode)
	g.routes.add("databases", http.MethodGet, p+api.EndpointDatabases, g.handleDatabases)
	g.routes.add("query", http.MethodPost, p+api.EndpointQuery, g.handleQuery)
	g.routes.add("ping", http.MethodGet, p+api.EndpointPing, g.handlePing)
	g.routes.add("tables", http.MethodGet, p+api.EndpointTables, g.handleTables)
	g.routes.add("schema", http.MethodGet, p+api.EndpointTableSchema, g.handleSchema)
	g.routes.add("rows", http.MethodGet, p+api.EndpointTableRows, g.handleRows)
	g.routes.add("count", http.MethodGet, p+api.EndpointTableCount, g.handleCount)
	g.routes.add("insert", http.MethodPost, p+api.EndpointTableRows, g.handleInsert)
	g.routes.add("update", http.MethodPut, p+api.EndpointTableRows, g.handleUpdate)
	g.routes.add("delete", http.MethodDelete, p+api.EndpointTableRows, g.handleDelete)
	g.routes.add("audit_summary", http.MethodGet, p+api.EndpointAuditSummary, g.handleAuditSummary)
}

// HasLocal reports whether a local database is bound.
func (g *Gateway) HasLocal() bool {
	return g.local != nil
}

// ServeHTTP implements http.Handler.
func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	g.handler.ServeHTTP(w, r)
}

// dispatch matches the request to one operation and writes its outcome.
// Every path ends in a well-formed envelope.
func (g *Gateway) dispatch(w http.ResponseWriter, r *http.Request) {
	start := g.now()

	id := r.Header.Get(api.HeaderRequestID)
	if id == "" {
		id = uuid.NewString()
	}
	w.Header().Set(api.HeaderRequestID, id)

	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	if r.Body != nil {
		r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	}

	name := "not_found"
	req := &Request{Request: r, ID: id}

	var data interface{}
	var err error
	route, params := g.routes.lookup(r.Method, r.URL.Path)
	if route == nil {
		err = errors.NewNotFound(r.Method, r.URL.Path)
	} else {
		name = route.Name
		req.Params = params
		req.Credentials = router.CredentialsFromHeaders(r.Header)
		data, err = g.invoke(route, req)
	}

	status := http.StatusOK
	outcome := Outcome{Success: true, Data: data}
	if err != nil {
		status = errors.HTTPStatus(err)
		outcome = Outcome{Success: false, Error: errors.Message(err)}
	}
	writeJSON(w, status, outcome)

	g.logOperation(r, observability.OperationLogEntry{
		RequestID:     id,
		Operation:     name,
		Mode:          req.Mode,
		Method:        r.Method,
		Path:          r.URL.Path,
		Status:        status,
		ExecutionTime: g.now().Sub(start),
		Outcome:       outcomeOf(status),
		Error:         outcome.Error,
	})
}

// invoke runs a handler, converting a panic into an internal error.
func (g *Gateway) invoke(route *Route, req *Request) (data interface{}, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			data = nil
			err = errors.NewInternal("Internal server error", fmt.Errorf("panic in %s: %v", route.Name, rec))
		}
	}()
	return route.Handler(req)
}

func (g *Gateway) logOperation(r *http.Request, entry observability.OperationLogEntry) {
	ctx := context.WithoutCancel(r.Context())
	if err := g.logger.LogOperation(ctx, entry); err != nil {
		log.Printf("gateway: failed to log operation %s: %v", entry.RequestID, err)
	}
}

func outcomeOf(status int) string {
	switch {
	case status < 400:
		return observability.OutcomeSuccess
	case status < 500:
		return observability.OutcomeRejected
	default:
		return observability.OutcomeError
	}
}

func writeJSON(w http.ResponseWriter, status int, outcome Outcome) {
	body, err := json.Marshal(outcome)
	if err != nil {
		status = http.StatusInternalServerError
		body, _ = json.Marshal(Outcome{Success: false, Error: "Internal server error"})
	}
	w.Header().Set(api.HeaderContentType, api.ContentTypeJSON)
	w.WriteHeader(status)
	w.Write(body)
}
