package router

import (
	"net/http"
	"testing"

	"github.com/canonica-labs/d1bridge/internal/errors"
	"github.com/canonica-labs/d1bridge/pkg/api"
)

func TestResolution_Select(t *testing.T) {
	full := Credentials{AccountID: "acc", APIToken: "tok", DatabaseID: "db"}
	noDB := Credentials{AccountID: "acc", APIToken: "tok"}
	tokenOnly := Credentials{APIToken: "tok", DatabaseID: "db"}

	tests := []struct {
		name            string
		creds           Credentials
		hasLocal        bool
		requireDatabase bool
		want            Mode
		wantErr         bool
	}{
		{"remote wins over local", full, true, true, ModeRemote, false},
		{"remote only", full, false, true, ModeRemote, false},
		{"local only", Credentials{}, true, true, ModeLocal, false},
		{"nothing usable", Credentials{}, false, true, "", true},
		{"incomplete credentials fall back to local", tokenOnly, true, true, ModeLocal, false},
		{"incomplete credentials without local", tokenOnly, false, false, "", true},
		{"missing database id fails query-shaped", noDB, true, true, "", true},
		{"missing database id allowed otherwise", noDB, false, false, ModeRemote, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Resolve(tt.creds, tt.hasLocal).Select(tt.requireDatabase)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Select() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("Select() = %q, want %q", got, tt.want)
			}
			if err != nil && errors.HTTPStatus(err) != http.StatusBadRequest {
				t.Errorf("unavailable mode should map to 400, got %d", errors.HTTPStatus(err))
			}
		})
	}
}

// TestResolve_Precedence verifies the documented order is deterministic.
//
// Green-Flag: with both a binding and full credentials, remote is selected.
func TestResolve_Precedence(t *testing.T) {
	res := Resolve(Credentials{AccountID: "a", APIToken: "t", DatabaseID: "d"}, true)
	if !res.Remote || !res.Local {
		t.Fatalf("both modes should be eligible: %+v", res)
	}
	for i := 0; i < 10; i++ {
		mode, err := res.Select(true)
		if err != nil || mode != ModeRemote {
			t.Fatalf("iteration %d: got %q, %v", i, mode, err)
		}
	}
}

func TestCredentialsFromHeaders(t *testing.T) {
	h := http.Header{}
	h.Set(api.HeaderAccountID, " acc ")
	h.Set(api.HeaderAPIToken, "tok")
	h.Set(api.HeaderDatabaseID, "")

	creds := CredentialsFromHeaders(h)
	if creds.AccountID != "acc" || creds.APIToken != "tok" || creds.DatabaseID != "" {
		t.Errorf("unexpected credentials: %+v", creds)
	}
	if !creds.Remote() {
		t.Error("account id and token should make credentials remote")
	}

	out := http.Header{}
	creds.Apply(out)
	if out.Get(api.HeaderAccountID) != "acc" || out.Get(api.HeaderAPIToken) != "tok" {
		t.Errorf("Apply() headers = %v", out)
	}
	if _, ok := out[http.CanonicalHeaderKey(api.HeaderDatabaseID)]; ok {
		t.Error("empty database id should not be written")
	}
}
