package gateway

import (
	"encoding/json"
	stderrors "errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/canonica-labs/d1bridge/internal/adapters"
	"github.com/canonica-labs/d1bridge/internal/errors"
	"github.com/canonica-labs/d1bridge/internal/result"
	"github.com/canonica-labs/d1bridge/internal/router"
	sqlstmt "github.com/canonica-labs/d1bridge/internal/sql"
	"github.com/canonica-labs/d1bridge/internal/validation"
	"github.com/canonica-labs/d1bridge/pkg/api"
	"github.com/canonica-labs/d1bridge/pkg/models"
)

// Outcome is the response envelope of every operation.
type Outcome = models.Outcome

// Default failure messages, used when a backend reports no message.
const (
	msgQueryFailed     = "Query failed"
	msgTablesFailed    = "Failed to get tables"
	msgSchemaFailed    = "Failed to get schema"
	msgDatabasesFailed = "Failed to fetch databases"
)

var queryMessages = map[string]string{
	"sql.required": "SQL query is required",
}

// selectMode resolves the mode of req and records it. requireDatabase marks
// query-shaped operations. Credentials are ignored when remote is disabled.
func (g *Gateway) selectMode(req *Request, requireDatabase bool) (router.Mode, router.Credentials, error) {
	creds := req.Credentials
	if g.remote == nil {
		creds = router.Credentials{}
	}

	mode, err := router.Resolve(creds, g.local != nil).Select(requireDatabase)
	if err != nil {
		return "", creds, err
	}
	req.Mode = mode.String()
	return mode, creds, nil
}

// executor returns the one executor serving a query-shaped request.
func (g *Gateway) executor(req *Request) (adapters.Executor, adapters.Dialect, error) {
	mode, creds, err := g.selectMode(req, true)
	if err != nil {
		return nil, adapters.Dialect{}, err
	}
	if mode == router.ModeRemote {
		return g.remote.Executor(creds), adapters.SQLite, nil
	}
	return g.local, g.local.Dialect(), nil
}

// run executes one statement on the executor resolved for req.
func (g *Gateway) run(req *Request, stmt func(adapters.Dialect) (string, error), fallback string) (result.BackendResult, error) {
	exec, dialect, err := g.executor(req)
	if err != nil {
		return result.BackendResult{}, err
	}
	sql, err := stmt(dialect)
	if err != nil {
		return result.BackendResult{}, err
	}
	res := exec.Execute(req.Context(), sql)
	if !res.Success {
		return res, backendFault(exec.Mode(), res.Error, fallback)
	}
	return res, nil
}

func backendFault(mode, msg, fallback string) error {
	if msg == "" {
		msg = fallback
	}
	return errors.NewBackendFault(mode, msg)
}

func fixed(sql string) func(adapters.Dialect) (string, error) {
	return func(adapters.Dialect) (string, error) { return sql, nil }
}

// decodeBody decodes a JSON request body into v. An empty body leaves v
// untouched; the body must hold exactly one JSON value.
func decodeBody(req *Request, v interface{}) error {
	if req.Body == nil {
		return nil
	}
	dec := json.NewDecoder(req.Body)
	err := dec.Decode(v)
	if err == io.EOF {
		return nil
	}
	if err == nil {
		var extra json.RawMessage
		if err = dec.Decode(&extra); err == io.EOF {
			return nil
		}
		if err == nil {
			return errors.NewBadRequest("body", "Invalid JSON body")
		}
	}

	var tooLarge *http.MaxBytesError
	if stderrors.As(err, &tooLarge) {
		return errors.NewBodyTooLarge(tooLarge.Limit)
	}
	return errors.NewBadRequest("body", "Invalid JSON body")
}

func (g *Gateway) handleHealth(req *Request) (interface{}, error) {
	return models.HealthResponse{Status: "healthy", Version: api.Version}, nil
}

// handleMode reports which modes the gateway can serve. It never touches
// a backend.
func (g *Gateway) handleMode(req *Request) (interface{}, error) {
	return models.ModeInfo{
		Local:      g.local != nil,
		Remote:     g.remote != nil,
		HasBinding: g.local != nil,
	}, nil
}

func (g *Gateway) handleDatabases(req *Request) (interface{}, error) {
	mode, creds, err := g.selectMode(req, false)
	if err != nil {
		return nil, err
	}

	if mode == router.ModeRemote {
		res := g.remote.ListDatabases(req.Context(), creds.AccountID, creds.APIToken)
		if !res.Success {
			return nil, backendFault(req.Mode, res.Error, msgDatabasesFailed)
		}
		return res.Objects(), nil
	}

	return []*result.Row{result.RowOf(
		"name", g.local.Name(),
		"uuid", "local",
		"version", "1.0",
		"created_at", g.now().UTC().Format(time.RFC3339),
	)}, nil
}

func (g *Gateway) handleQuery(req *Request) (interface{}, error) {
	var body models.QueryRequest
	if err := decodeBody(req, &body); err != nil {
		return nil, err
	}
	if err := validation.Check(body, queryMessages); err != nil {
		return nil, err
	}

	res, err := g.run(req, fixed(body.SQL), msgQueryFailed)
	if err != nil {
		return nil, err
	}
	return result.Normalize(res), nil
}

func (g *Gateway) handlePing(req *Request) (interface{}, error) {
	if _, err := g.run(req, fixed("SELECT 1"), msgQueryFailed); err != nil {
		return nil, err
	}
	return true, nil
}

func (g *Gateway) handleTables(req *Request) (interface{}, error) {
	res, err := g.run(req, func(d adapters.Dialect) (string, error) {
		return d.TablesSQL, nil
	}, msgTablesFailed)
	if err != nil {
		return nil, err
	}
	return res.Objects(), nil
}

func (g *Gateway) handleSchema(req *Request) (interface{}, error) {
	table := req.Param("table")
	res, err := g.run(req, func(d adapters.Dialect) (string, error) {
		return d.SchemaStatement(table), nil
	}, msgSchemaFailed)
	if err != nil {
		return nil, err
	}
	return models.TableSchema{TableName: table, Columns: res.Objects()}, nil
}

func (g *Gateway) handleRows(req *Request) (interface{}, error) {
	page, err := intQuery(req, "page")
	if err != nil {
		return nil, err
	}
	size, err := intQuery(req, "pageSize")
	if err != nil {
		return nil, err
	}
	page, size = sqlstmt.NormalizePage(page, size)

	table := req.Param("table")
	res, err := g.run(req, func(d adapters.Dialect) (string, error) {
		return d.Builder.SelectPage(table, page, size), nil
	}, msgQueryFailed)
	if err != nil {
		return nil, err
	}
	return models.RowPage{CanonicalQueryResult: result.Normalize(res), Page: page, PageSize: size}, nil
}

func (g *Gateway) handleCount(req *Request) (interface{}, error) {
	table := req.Param("table")
	res, err := g.run(req, func(d adapters.Dialect) (string, error) {
		return d.Builder.CountRows(table), nil
	}, msgQueryFailed)
	if err != nil {
		return nil, err
	}

	rows := res.Objects()
	if len(rows) == 0 {
		return 0, nil
	}
	count, _ := rows[0].Get("count")
	return count, nil
}

func (g *Gateway) handleInsert(req *Request) (interface{}, error) {
	body, err := rowWrite(req, true, false)
	if err != nil {
		return nil, err
	}
	table := req.Param("table")
	res, err := g.run(req, func(d adapters.Dialect) (string, error) {
		return d.Builder.Insert(table, body.Data)
	}, msgQueryFailed)
	if err != nil {
		return nil, err
	}
	return result.Normalize(res), nil
}

func (g *Gateway) handleUpdate(req *Request) (interface{}, error) {
	body, err := rowWrite(req, true, true)
	if err != nil {
		return nil, err
	}
	table := req.Param("table")
	res, err := g.run(req, func(d adapters.Dialect) (string, error) {
		return d.Builder.Update(table, body.Data, body.Where)
	}, msgQueryFailed)
	if err != nil {
		return nil, err
	}
	return result.Normalize(res), nil
}

func (g *Gateway) handleDelete(req *Request) (interface{}, error) {
	body, err := rowWrite(req, false, true)
	if err != nil {
		return nil, err
	}
	table := req.Param("table")
	res, err := g.run(req, func(d adapters.Dialect) (string, error) {
		return d.Builder.Delete(table, body.Where)
	}, msgQueryFailed)
	if err != nil {
		return nil, err
	}
	return result.Normalize(res), nil
}

func (g *Gateway) handleAuditSummary(req *Request) (interface{}, error) {
	summary, err := g.logger.GetAuditSummary(req.Context())
	if err != nil {
		return nil, errors.NewInternal("Failed to get audit summary", err)
	}
	return summary, nil
}

// rowWrite decodes and checks a row editor body.
func rowWrite(req *Request, needData, needWhere bool) (models.RowWriteRequest, error) {
	var body models.RowWriteRequest
	if err := decodeBody(req, &body); err != nil {
		return body, err
	}
	if needData && (body.Data == nil || body.Data.Len() == 0) {
		return body, errors.NewBadRequest("data", "Row data is required")
	}
	if needWhere && strings.TrimSpace(body.Where) == "" {
		return body, errors.NewBadRequest("where", "WHERE clause is required")
	}
	return body, nil
}

func intQuery(req *Request, key string) (int, error) {
	raw := req.URL.Query().Get(key)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.NewBadRequest(key, "Invalid "+key+" parameter")
	}
	return n, nil
}
