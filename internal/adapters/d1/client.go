// Package d1 provides the remote executor for Cloudflare D1 databases,
// reached over the Cloudflare HTTP API with per-request credentials.
//
// Each call is a single HTTP attempt: no retries, no backoff. Responses are
// decoded with gjson so that row objects keep their key order.
package d1

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/canonica-labs/d1bridge/internal/adapters"
	"github.com/canonica-labs/d1bridge/internal/result"
	"github.com/canonica-labs/d1bridge/internal/router"
	"github.com/canonica-labs/d1bridge/pkg/api"
)

// DefaultEndpoint is the Cloudflare API base URL.
const DefaultEndpoint = "https://api.cloudflare.com/client/v4"

// ModeName is reported by the bound executor.
const ModeName = "remote"

// Default failure messages, used when the API reports no error of its own.
const (
	MsgQueryFailed     = "Remote query failed"
	MsgListFailed      = "Failed to fetch databases"
	MsgRequestFailed   = "Remote API request failed"
	maxErrorBodyLength = 512
)

// Config configures the D1 client.
type Config struct {
	// Endpoint is the API base URL. Defaults to DefaultEndpoint.
	Endpoint string

	// Timeout bounds each HTTP call. Zero means no timeout.
	Timeout time.Duration

	// RawResults selects the raw endpoint, which returns column/row arrays.
	RawResults bool

	// HTTPClient overrides the client used for calls.
	HTTPClient *http.Client
}

// Client calls the D1 HTTP API.
type Client struct {
	endpoint   string
	raw        bool
	httpClient *http.Client
}

// NewClient creates a new D1 client.
func NewClient(cfg Config) *Client {
	endpoint := strings.TrimSuffix(cfg.Endpoint, "/")
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	return &Client{
		endpoint:   endpoint,
		raw:        cfg.RawResults,
		httpClient: httpClient,
	}
}

// Endpoint returns the API base URL.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// Query runs one statement against the database named by creds.
func (c *Client) Query(ctx context.Context, creds router.Credentials, stmt string) result.BackendResult {
	path := fmt.Sprintf("/accounts/%s/d1/database/%s/query",
		url.PathEscape(creds.AccountID), url.PathEscape(creds.DatabaseID))
	if c.raw {
		path = fmt.Sprintf("/accounts/%s/d1/database/%s/raw",
			url.PathEscape(creds.AccountID), url.PathEscape(creds.DatabaseID))
	}

	body, err := json.Marshal(map[string]string{"sql": stmt})
	if err != nil {
		return result.Failure(err.Error())
	}

	envelope, fail := c.request(ctx, http.MethodPost, path, creds.APIToken, bytes.NewReader(body), MsgQueryFailed)
	if fail != "" {
		return result.Failure(fail)
	}

	first := envelope.Get("result.0")
	if !first.Exists() || first.Type == gjson.Null {
		return result.BackendResult{Success: true, Rows: []*result.Row{}}
	}

	res := result.BackendResult{
		Success: true,
		Meta:    parseMeta(first.Get("meta")),
	}
	if c.raw {
		res.Columns, res.Values = parseRaw(first.Get("results"))
		return res
	}

	res.Rows = []*result.Row{}
	first.Get("results").ForEach(func(_, row gjson.Result) bool {
		if row.IsObject() {
			res.Rows = append(res.Rows, result.RowFromJSON(row))
		}
		return true
	})
	return res
}

// ListDatabases lists the databases of an account. Descriptors are returned
// as row objects, exactly as the API reports them.
func (c *Client) ListDatabases(ctx context.Context, accountID, apiToken string) result.BackendResult {
	path := fmt.Sprintf("/accounts/%s/d1/database", url.PathEscape(accountID))

	envelope, fail := c.request(ctx, http.MethodGet, path, apiToken, nil, MsgListFailed)
	if fail != "" {
		return result.Failure(fail)
	}

	rows := []*result.Row{}
	envelope.Get("result").ForEach(func(_, db gjson.Result) bool {
		if db.IsObject() {
			rows = append(rows, result.RowFromJSON(db))
		}
		return true
	})
	return result.BackendResult{Success: true, Rows: rows}
}

// request performs one call and returns the decoded envelope. On failure it
// returns a non-empty message: the first API error, fallback, or the
// transport error text.
func (c *Client) request(ctx context.Context, method, path, token string, body io.Reader, fallback string) (gjson.Result, string) {
	req, err := http.NewRequestWithContext(ctx, method, c.endpoint+path, body)
	if err != nil {
		return gjson.Result{}, err.Error()
	}
	req.Header.Set(api.HeaderAuthorization, "Bearer "+token)
	if body != nil {
		req.Header.Set(api.HeaderContentType, api.ContentTypeJSON)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return gjson.Result{}, err.Error()
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return gjson.Result{}, err.Error()
	}

	if !gjson.ValidBytes(data) {
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return gjson.Result{}, fallback
		}
		return gjson.Result{}, fmt.Sprintf("%s: invalid response body %q", MsgRequestFailed, truncate(data))
	}

	envelope := gjson.ParseBytes(data)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 || !envelope.Get("success").Bool() {
		if msg := envelope.Get("errors.0.message").String(); msg != "" {
			return gjson.Result{}, msg
		}
		return gjson.Result{}, fallback
	}
	return envelope, ""
}

func parseMeta(m gjson.Result) *result.Meta {
	if !m.IsObject() {
		return nil
	}
	return &result.Meta{
		Duration:    m.Get("duration").Float(),
		RowsRead:    m.Get("rows_read").Int(),
		RowsWritten: m.Get("rows_written").Int(),
		Changes:     m.Get("changes").Int(),
		LastRowID:   m.Get("last_row_id").Int(),
		ChangedDB:   m.Get("changed_db").Bool(),
		SizeAfter:   m.Get("size_after").Int(),
		ServedBy:    m.Get("served_by").String(),
	}
}

// parseRaw decodes {columns: [...], rows: [[...]]}. Columns is never nil so
// the result is always in array form.
func parseRaw(r gjson.Result) ([]string, [][]interface{}) {
	columns := []string{}
	r.Get("columns").ForEach(func(_, col gjson.Result) bool {
		columns = append(columns, col.String())
		return true
	})

	values := [][]interface{}{}
	r.Get("rows").ForEach(func(_, row gjson.Result) bool {
		cells := make([]interface{}, 0, len(columns))
		row.ForEach(func(_, cell gjson.Result) bool {
			cells = append(cells, result.ValueOf(cell))
			return true
		})
		values = append(values, cells)
		return true
	})
	return columns, values
}

func truncate(b []byte) string {
	if len(b) > maxErrorBodyLength {
		return string(b[:maxErrorBodyLength]) + "..."
	}
	return string(b)
}

// Executor binds a client to one set of credentials.
type Executor struct {
	client *Client
	creds  router.Credentials
}

// Executor returns an executor bound to creds.
func (c *Client) Executor(creds router.Credentials) adapters.Executor {
	return &Executor{client: c, creds: creds}
}

// Mode returns "remote".
func (e *Executor) Mode() string {
	return ModeName
}

// Execute runs stmt through Query.
func (e *Executor) Execute(ctx context.Context, stmt string) result.BackendResult {
	return e.client.Query(ctx, e.creds, stmt)
}
