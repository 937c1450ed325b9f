package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/canonica-labs/d1bridge/internal/errors"
	"github.com/canonica-labs/d1bridge/internal/observability"
	"github.com/canonica-labs/d1bridge/internal/result"
	"github.com/canonica-labs/d1bridge/internal/router"
	"github.com/canonica-labs/d1bridge/pkg/api"
	"github.com/canonica-labs/d1bridge/pkg/models"
)

// GatewayClient is the HTTP client for the d1bridge gateway. It forwards
// one set of remote credentials on every request.
type GatewayClient struct {
	endpoint   string
	prefix     string
	creds      router.Credentials
	httpClient *http.Client
}

// NewGatewayClient creates a new gateway client. An empty prefix means
// the default "/api".
func NewGatewayClient(endpoint, prefix string, creds router.Credentials) *GatewayClient {
	if prefix == "" {
		prefix = api.DefaultPrefix
	}
	return &GatewayClient{
		endpoint: strings.TrimSuffix(endpoint, "/"),
		prefix:   strings.TrimSuffix(prefix, "/"),
		creds:    creds,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Endpoint returns the configured gateway endpoint.
func (c *GatewayClient) Endpoint() string {
	return c.endpoint
}

// Credentials returns the forwarded credentials.
func (c *GatewayClient) Credentials() router.Credentials {
	return c.creds
}

// Mode asks the gateway which modes it can serve.
func (c *GatewayClient) Mode(ctx context.Context) (*models.ModeInfo, error) {
	var info models.ModeInfo
	if err := c.call(ctx, http.MethodGet, c.prefix+api.EndpointMode, nil, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// Databases lists the databases reachable with the forwarded credentials.
func (c *GatewayClient) Databases(ctx context.Context) ([]*result.Row, error) {
	var rows []*result.Row
	if err := c.call(ctx, http.MethodGet, c.prefix+api.EndpointDatabases, nil, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// Query runs one statement and returns the canonical result.
func (c *GatewayClient) Query(ctx context.Context, sql string) (*result.CanonicalQueryResult, error) {
	var res result.CanonicalQueryResult
	err := c.call(ctx, http.MethodPost, c.prefix+api.EndpointQuery, models.QueryRequest{SQL: sql}, &res)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// Ping runs a trivial statement on the selected backend.
func (c *GatewayClient) Ping(ctx context.Context) error {
	var ok bool
	return c.call(ctx, http.MethodGet, c.prefix+api.EndpointPing, nil, &ok)
}

// Tables lists the tables of the selected database.
func (c *GatewayClient) Tables(ctx context.Context) ([]*result.Row, error) {
	var rows []*result.Row
	if err := c.call(ctx, http.MethodGet, c.prefix+api.EndpointTables, nil, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// Schema describes the columns of a table.
func (c *GatewayClient) Schema(ctx context.Context, table string) (*models.TableSchema, error) {
	var schema models.TableSchema
	if err := c.call(ctx, http.MethodGet, c.prefix+api.TableSchemaPath(url.PathEscape(table)), nil, &schema); err != nil {
		return nil, err
	}
	return &schema, nil
}

// Rows reads one page of a table. Zero page or pageSize use the gateway defaults.
func (c *GatewayClient) Rows(ctx context.Context, table string, page, pageSize int) (*models.RowPage, error) {
	q := url.Values{}
	if page > 0 {
		q.Set("page", strconv.Itoa(page))
	}
	if pageSize > 0 {
		q.Set("pageSize", strconv.Itoa(pageSize))
	}
	path := c.prefix + api.TableRowsPath(url.PathEscape(table))
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var rows models.RowPage
	if err := c.call(ctx, http.MethodGet, path, nil, &rows); err != nil {
		return nil, err
	}
	return &rows, nil
}

// Count returns the number of rows of a table.
func (c *GatewayClient) Count(ctx context.Context, table string) (int64, error) {
	var n json.Number
	if err := c.call(ctx, http.MethodGet, c.prefix+api.TableCountPath(url.PathEscape(table)), nil, &n); err != nil {
		return 0, err
	}
	return n.Int64()
}

// Insert adds one row to a table.
func (c *GatewayClient) Insert(ctx context.Context, table string, data *result.Row) (*result.CanonicalQueryResult, error) {
	return c.write(ctx, http.MethodPost, table, models.RowWriteRequest{Data: data})
}

// Update sets columns on the rows matched by where.
func (c *GatewayClient) Update(ctx context.Context, table string, data *result.Row, where string) (*result.CanonicalQueryResult, error) {
	return c.write(ctx, http.MethodPut, table, models.RowWriteRequest{Data: data, Where: where})
}

// Delete removes the rows matched by where.
func (c *GatewayClient) Delete(ctx context.Context, table, where string) (*result.CanonicalQueryResult, error) {
	return c.write(ctx, http.MethodDelete, table, models.RowWriteRequest{Where: where})
}

func (c *GatewayClient) write(ctx context.Context, method, table string, body models.RowWriteRequest) (*result.CanonicalQueryResult, error) {
	var res result.CanonicalQueryResult
	if err := c.call(ctx, method, c.prefix+api.TableRowsPath(url.PathEscape(table)), body, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// AuditSummary retrieves the audit summary of the gateway.
func (c *GatewayClient) AuditSummary(ctx context.Context) (*observability.AuditSummary, error) {
	var summary observability.AuditSummary
	if err := c.call(ctx, http.MethodGet, c.prefix+api.EndpointAuditSummary, nil, &summary); err != nil {
		return nil, err
	}
	return &summary, nil
}

// Health retrieves the gateway health.
func (c *GatewayClient) Health(ctx context.Context) (*models.HealthResponse, error) {
	var health models.HealthResponse
	if err := c.call(ctx, http.MethodGet, api.EndpointHealth, nil, &health); err != nil {
		return nil, err
	}
	return &health, nil
}

// call performs one request and decodes the data of the outcome envelope
// into out.
func (c *GatewayClient) call(ctx context.Context, method, path string, body, out interface{}) error {
	if c.endpoint == "" {
		return errors.NewGatewayUnavailable("", "no gateway endpoint configured")
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	resp, err := c.doRequest(ctx, method, path, reader)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var outcome struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
		Error   string          `json:"error"`
	}
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.NewGatewayUnavailable(c.endpoint, err.Error())
	}
	if err := json.Unmarshal(raw, &outcome); err != nil {
		return fmt.Errorf("gateway error: %d - %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	if !outcome.Success {
		return c.parseError(resp.StatusCode, method, path, outcome.Error)
	}

	if out == nil || len(outcome.Data) == 0 {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(outcome.Data))
	dec.UseNumber()
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// doRequest performs an HTTP request to the gateway.
func (c *GatewayClient) doRequest(ctx context.Context, method, path string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.endpoint+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set(api.HeaderContentType, api.ContentTypeJSON)
	c.creds.Apply(req.Header)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.NewGatewayUnavailable(c.endpoint, err.Error())
	}
	return resp, nil
}

// parseError turns a failed outcome back into a typed error.
func (c *GatewayClient) parseError(status int, method, path, msg string) error {
	switch {
	case status == http.StatusNotFound:
		return errors.NewNotFound(method, path)
	case status >= 400 && status < 500:
		return errors.NewBadRequest("", msg)
	default:
		return errors.NewBackendFault("", msg)
	}
}
