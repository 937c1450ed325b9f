package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/canonica-labs/d1bridge/internal/adapters/local"
	"github.com/canonica-labs/d1bridge/internal/errors"
	"github.com/canonica-labs/d1bridge/internal/gateway"
	"github.com/canonica-labs/d1bridge/internal/result"
	"github.com/canonica-labs/d1bridge/internal/router"
	"github.com/canonica-labs/d1bridge/pkg/api"
)

// newTestGateway serves a gateway bound to an in-memory database with a
// users table.
func newTestGateway(t *testing.T) *httptest.Server {
	t.Helper()
	exec, err := local.Open(context.Background(), local.Config{Driver: "sqlite", DSN: ":memory:", Name: "local-dev-db"})
	if err != nil {
		t.Fatalf("local.Open() error: %v", err)
	}
	t.Cleanup(func() { exec.Close() })

	for _, stmt := range []string{
		"CREATE TABLE users (id INTEGER PRIMARY KEY, name TEXT NOT NULL)",
		"INSERT INTO users (name) VALUES ('Ann')",
		"INSERT INTO users (name) VALUES ('Bob')",
	} {
		if res := exec.Execute(context.Background(), stmt); !res.Success {
			t.Fatalf("setup %q failed: %s", stmt, res.Error)
		}
	}

	srv := httptest.NewServer(gateway.New(gateway.Options{Local: exec}))
	t.Cleanup(srv.Close)
	return srv
}

// TestGatewayClient_ForwardsCredentials verifies remote profiles reach the
// gateway as credential headers.
func TestGatewayClient_ForwardsCredentials(t *testing.T) {
	var got http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		if r.URL.Path != "/api/query" {
			t.Errorf("path = %s", r.URL.Path)
		}
		w.Write([]byte(`{"success":true,"data":{"columns":["n"],"rows":[[1]]}}`))
	}))
	defer srv.Close()

	creds := router.Credentials{AccountID: "acc", APIToken: "tok", DatabaseID: "db"}
	client := NewGatewayClient(srv.URL+"/", "", creds)

	res, err := client.Query(context.Background(), "SELECT 1 AS n")
	if err != nil {
		t.Fatalf("Query() error: %v", err)
	}
	if len(res.Columns) != 1 || res.Columns[0] != "n" || res.Rows[0][0] != json.Number("1") {
		t.Errorf("result = %+v", res)
	}
	if got.Get(api.HeaderAccountID) != "acc" || got.Get(api.HeaderAPIToken) != "tok" || got.Get(api.HeaderDatabaseID) != "db" {
		t.Errorf("headers = %v", got)
	}
}

// TestGatewayClient_Errors verifies failed outcomes come back typed.
//
// Red-Flag: the gateway message is kept and the exit code follows the status.
func TestGatewayClient_Errors(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantMsg  string
		wantExit int
	}{
		{"unavailable", http.StatusBadRequest, `{"success":false,"error":"No database connection available"}`, "No database connection available", ExitValidation},
		{"backend", http.StatusInternalServerError, `{"success":false,"error":"no such table: nope"}`, "no such table: nope", ExitBackend},
		{"not found", http.StatusNotFound, `{"success":false,"error":"Not found"}`, "Not found", ExitValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := NewGatewayClient(srv.URL, "", router.Credentials{}).Tables(context.Background())
			if err == nil {
				t.Fatal("expected an error")
			}
			if errors.Message(err) != tt.wantMsg {
				t.Errorf("message = %q, want %q", errors.Message(err), tt.wantMsg)
			}
			if ExitCode(err) != tt.wantExit {
				t.Errorf("ExitCode() = %d, want %d", ExitCode(err), tt.wantExit)
			}
		})
	}
}

func TestGatewayClient_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewGatewayClient(url, "", router.Credentials{}).Mode(context.Background())
	if ExitCode(err) != ExitUnavailable {
		t.Errorf("ExitCode(%v) = %d", err, ExitCode(err))
	}

	_, err = NewGatewayClient("", "", router.Credentials{}).Mode(context.Background())
	if errors.Message(err) != "gateway unavailable" {
		t.Errorf("empty endpoint error = %v", err)
	}
}

// TestGatewayClient_TableOperations drives every table operation against a
// real gateway.
func TestGatewayClient_TableOperations(t *testing.T) {
	srv := newTestGateway(t)
	client := NewGatewayClient(srv.URL, "", router.Credentials{})
	ctx := context.Background()

	tables, err := client.Tables(ctx)
	if err != nil || len(tables) != 1 {
		t.Fatalf("Tables() = %v, %v", tables, err)
	}

	schema, err := client.Schema(ctx, "users")
	if err != nil || schema.TableName != "users" || len(schema.Columns) != 2 {
		t.Fatalf("Schema() = %+v, %v", schema, err)
	}

	row := result.RowOf("name", "Cy")
	if _, err := client.Insert(ctx, "users", row); err != nil {
		t.Fatalf("Insert() error: %v", err)
	}
	if _, err := client.Update(ctx, "users", result.RowOf("name", "Bea"), "name = 'Bob'"); err != nil {
		t.Fatalf("Update() error: %v", err)
	}
	if _, err := client.Delete(ctx, "users", "name = 'Ann'"); err != nil {
		t.Fatalf("Delete() error: %v", err)
	}

	n, err := client.Count(ctx, "users")
	if err != nil || n != 2 {
		t.Fatalf("Count() = %d, %v", n, err)
	}

	page, err := client.Rows(ctx, "users", 1, 1)
	if err != nil {
		t.Fatalf("Rows() error: %v", err)
	}
	if page.PageSize != 1 || len(page.Rows) != 1 || page.Rows[0][1] != "Bea" {
		t.Errorf("Rows() = %+v", page)
	}

	if err := client.Ping(ctx); err != nil {
		t.Errorf("Ping() error: %v", err)
	}
	if health, err := client.Health(ctx); err != nil || health.Version != api.Version {
		t.Errorf("Health() = %+v, %v", health, err)
	}
}

type cliRun struct {
	code   int
	stdout string
	stderr string
}

// runCLI runs one command with an isolated state store and an in-memory
// keyring.
func runCLI(t *testing.T, stateDir string, args ...string) cliRun {
	t.Helper()
	t.Setenv("D1BRIDGE_STATE_DSN", filepath.Join(stateDir, "state.db"))
	t.Setenv("D1BRIDGE_KEYRING_BACKEND", "memory")

	var stdout, stderr bytes.Buffer
	c := New()
	c.SetOutput(&stdout, &stderr)
	c.SetArgs(args)
	code := c.Execute()
	return cliRun{code: code, stdout: stdout.String(), stderr: stderr.String()}
}

func isolate(t *testing.T) string {
	t.Helper()
	t.Chdir(t.TempDir())
	t.Setenv("HOME", t.TempDir())
	return t.TempDir()
}

func TestCLI_QueryExec(t *testing.T) {
	state := isolate(t)
	srv := newTestGateway(t)

	run := runCLI(t, state, "--endpoint", srv.URL, "--json", "query", "exec", "SELECT id, name FROM users ORDER BY id")
	if run.code != ExitSuccess {
		t.Fatalf("exit = %d, stderr = %s", run.code, run.stderr)
	}
	var res struct {
		Columns []string        `json:"columns"`
		Rows    [][]interface{} `json:"rows"`
	}
	if err := json.Unmarshal([]byte(run.stdout), &res); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, run.stdout)
	}
	if strings.Join(res.Columns, ",") != "id,name" || len(res.Rows) != 2 {
		t.Errorf("result = %+v", res)
	}

	run = runCLI(t, state, "--endpoint", srv.URL, "query", "exec", "SELEC nope")
	if run.code != ExitBackend || !strings.Contains(run.stderr, "syntax error") {
		t.Errorf("exit = %d, stderr = %s", run.code, run.stderr)
	}

	run = runCLI(t, state, "--endpoint", srv.URL, "query", "exec")
	if run.code != ExitValidation {
		t.Errorf("missing statement: exit = %d", run.code)
	}
}

func TestCLI_TableCommands(t *testing.T) {
	state := isolate(t)
	srv := newTestGateway(t)

	run := runCLI(t, state, "--endpoint", srv.URL, "table", "insert", "users", "--data", `{"name":"Cy"}`)
	if run.code != ExitSuccess {
		t.Fatalf("insert: exit = %d, stderr = %s", run.code, run.stderr)
	}

	run = runCLI(t, state, "--endpoint", srv.URL, "--json", "table", "count", "users")
	if !strings.Contains(run.stdout, `"count": 3`) {
		t.Errorf("count output = %s", run.stdout)
	}

	run = runCLI(t, state, "--endpoint", srv.URL, "table", "update", "users", "--data", `{"name":"X"}`)
	if run.code != ExitValidation || !strings.Contains(run.stderr, "WHERE clause is required") {
		t.Errorf("update without where: exit = %d, stderr = %s", run.code, run.stderr)
	}

	run = runCLI(t, state, "--endpoint", srv.URL, "table", "insert", "users", "--data", `not json`)
	if run.code != ExitValidation {
		t.Errorf("invalid data: exit = %d", run.code)
	}

	run = runCLI(t, state, "--endpoint", srv.URL, "table", "delete", "users", "--where", "id > 1", "--force")
	if run.code != ExitSuccess {
		t.Errorf("delete: exit = %d, stderr = %s", run.code, run.stderr)
	}

	run = runCLI(t, state, "--endpoint", srv.URL, "--json", "table", "rows", "users")
	if !strings.Contains(run.stdout, `"Ann"`) || strings.Contains(run.stdout, `"Bob"`) {
		t.Errorf("rows output = %s", run.stdout)
	}

	run = runCLI(t, state, "--endpoint", srv.URL, "table", "describe", "users")
	if run.code != ExitSuccess || !strings.Contains(run.stdout, "Table: users") {
		t.Errorf("describe: exit = %d, stdout = %s", run.code, run.stdout)
	}
}

// TestCLI_Profiles verifies the profile lifecycle and the local-dev rules.
func TestCLI_Profiles(t *testing.T) {
	state := isolate(t)

	run := runCLI(t, state, "profile", "add", "staging", "--name", "Staging")
	if run.code != ExitSuccess {
		t.Fatalf("add: exit = %d, stderr = %s", run.code, run.stderr)
	}

	run = runCLI(t, state, "profile", "use", "staging")
	if run.code != ExitSuccess {
		t.Fatalf("use: exit = %d, stderr = %s", run.code, run.stderr)
	}

	run = runCLI(t, state, "--json", "profile", "list")
	var list struct {
		Active   string `json:"active"`
		Profiles []struct {
			ID string `json:"id"`
		} `json:"profiles"`
	}
	if err := json.Unmarshal([]byte(run.stdout), &list); err != nil {
		t.Fatalf("list output: %v\n%s", err, run.stdout)
	}
	if list.Active != "staging" || len(list.Profiles) != 2 {
		t.Errorf("list = %+v", list)
	}

	run = runCLI(t, state, "profile", "remove", "local-dev")
	if run.code != ExitValidation {
		t.Errorf("removing local-dev: exit = %d", run.code)
	}

	run = runCLI(t, state, "profile", "remove", "staging")
	if run.code != ExitSuccess {
		t.Fatalf("remove: exit = %d, stderr = %s", run.code, run.stderr)
	}
	run = runCLI(t, state, "--json", "profile", "show")
	if !strings.Contains(run.stdout, `"id": "local-dev"`) {
		t.Errorf("removing the active profile should reactivate local-dev: %s", run.stdout)
	}

	run = runCLI(t, state, "profile", "use", "missing")
	if run.code != ExitValidation {
		t.Errorf("using a missing profile: exit = %d", run.code)
	}
}

func TestCLI_ProfileExportImport(t *testing.T) {
	state := isolate(t)
	file := filepath.Join(t.TempDir(), "profiles.yaml")

	runCLI(t, state, "profile", "add", "qa", "--name", "QA")
	run := runCLI(t, state, "profile", "export", "-o", file)
	if run.code != ExitSuccess {
		t.Fatalf("export: exit = %d, stderr = %s", run.code, run.stderr)
	}

	other := t.TempDir()
	run = runCLI(t, other, "profile", "import", file)
	if run.code != ExitSuccess {
		t.Fatalf("import: exit = %d, stderr = %s", run.code, run.stderr)
	}
	run = runCLI(t, other, "--json", "profile", "show", "qa")
	if !strings.Contains(run.stdout, `"name": "QA"`) {
		t.Errorf("imported profile = %s", run.stdout)
	}
}

func TestCLI_ModeAndDrivers(t *testing.T) {
	state := isolate(t)
	srv := newTestGateway(t)

	run := runCLI(t, state, "--endpoint", srv.URL, "--json", "mode")
	if !strings.Contains(run.stdout, `"hasBinding": true`) {
		t.Errorf("mode output = %s", run.stdout)
	}

	run = runCLI(t, state, "--json", "driver", "list")
	for _, name := range []string{"sqlite", "duckdb", "postgres", "mysql"} {
		if !strings.Contains(run.stdout, `"name": "`+name+`"`) {
			t.Errorf("driver %s missing from %s", name, run.stdout)
		}
	}
}

func TestCLI_Doctor(t *testing.T) {
	state := isolate(t)
	srv := newTestGateway(t)

	run := runCLI(t, state, "--endpoint", srv.URL, "--json", "doctor")
	var report struct {
		AllPassed bool              `json:"all_passed"`
		Checks    []DiagnosticCheck `json:"checks"`
	}
	if err := json.Unmarshal([]byte(run.stdout), &report); err != nil {
		t.Fatalf("doctor output: %v\n%s", err, run.stdout)
	}
	if !report.AllPassed || len(report.Checks) != 4 {
		t.Errorf("report = %+v", report)
	}

	url := srv.URL
	srv.Close()
	run = runCLI(t, state, "--endpoint", url, "--json", "doctor")
	if !strings.Contains(run.stdout, `"all_passed": false`) || !strings.Contains(run.stdout, "gateway unavailable") {
		t.Errorf("doctor with gateway down = %s", run.stdout)
	}
}

func TestCLI_Init(t *testing.T) {
	state := isolate(t)
	path := filepath.Join(t.TempDir(), "config.yaml")

	if run := runCLI(t, state, "init", "-o", path); run.code != ExitSuccess {
		t.Fatalf("init: exit = %d, stderr = %s", run.code, run.stderr)
	}
	if run := runCLI(t, state, "--config", path, "driver", "list"); run.code != ExitSuccess {
		t.Errorf("generated config should load: %s", run.stderr)
	}
	if run := runCLI(t, state, "init", "-o", path); run.code == ExitSuccess {
		t.Error("init should not overwrite an existing file")
	}
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{nil, ExitSuccess},
		{errors.NewBadRequest("sql", "SQL query is required"), ExitValidation},
		{errors.NewProfileNotFound("x"), ExitValidation},
		{errors.NewBodyTooLarge(1024), ExitValidation},
		{errors.NewGatewayUnavailable("http://x", "refused"), ExitUnavailable},
		{errors.NewBackendFault("local", "boom"), ExitBackend},
		{errors.NewDatabaseUnavailable("locked"), ExitInternal},
	}
	for _, tt := range tests {
		if got := ExitCode(tt.err); got != tt.want {
			t.Errorf("ExitCode(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

// TestCLI_Version verifies build information set by the entrypoint is
// reported by --version and the version command.
//
// Green-Flag: ldflags values appear in every version output; the gateway
// version is read from its health operation.
func TestCLI_Version(t *testing.T) {
	state := isolate(t)
	srv := newTestGateway(t)

	oldVersion, oldCommit, oldDate := Version, GitCommit, BuildDate
	t.Cleanup(func() { Version, GitCommit, BuildDate = oldVersion, oldCommit, oldDate })
	SetVersionInfo("1.4.2", "abc1234", "")

	want := "d1bridge version 1.4.2 (commit: abc1234, built: " + oldDate + ")"

	run := runCLI(t, state, "--version")
	if run.code != ExitSuccess || strings.TrimSpace(run.stdout) != want {
		t.Errorf("--version = %q (exit %d), want %q", run.stdout, run.code, want)
	}

	run = runCLI(t, state, "version", "--short")
	if strings.TrimSpace(run.stdout) != want {
		t.Errorf("version --short = %q", run.stdout)
	}

	run = runCLI(t, state, "--endpoint", srv.URL, "--json", "version")
	if run.code != ExitSuccess {
		t.Fatalf("version: exit = %d, stderr = %s", run.code, run.stderr)
	}
	var info VersionInfo
	if err := json.Unmarshal([]byte(run.stdout), &info); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, run.stdout)
	}
	if info.Version != "1.4.2" || info.GitCommit != "abc1234" {
		t.Errorf("build info = %+v", info)
	}
	if info.Gateway.Status != "healthy" || info.Gateway.Version == "" {
		t.Errorf("gateway info = %+v", info.Gateway)
	}
}
