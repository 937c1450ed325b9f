// Package router resolves which backend serves a request.
// Resolution is deterministic and rule-based: remote if the request carries
// remote credentials, else local if a local handle is bound, else nothing.
package router

import (
	"net/http"
	"strings"

	"github.com/canonica-labs/d1bridge/internal/errors"
	"github.com/canonica-labs/d1bridge/pkg/api"
)

// Mode identifies a backend kind.
type Mode string

const (
	// ModeLocal is an in-process database handle.
	ModeLocal Mode = "local"

	// ModeRemote is the D1 HTTP API reached with forwarded credentials.
	ModeRemote Mode = "remote"
)

// String returns the string representation of the mode.
func (m Mode) String() string {
	return string(m)
}

// Credentials are the remote credentials carried by one request.
// They are never persisted by the gateway.
type Credentials struct {
	AccountID  string
	APIToken   string
	DatabaseID string
}

// CredentialsFromHeaders reads remote credentials from request headers.
// Surrounding whitespace is ignored; blank values count as absent.
func CredentialsFromHeaders(h http.Header) Credentials {
	return Credentials{
		AccountID:  strings.TrimSpace(h.Get(api.HeaderAccountID)),
		APIToken:   strings.TrimSpace(h.Get(api.HeaderAPIToken)),
		DatabaseID: strings.TrimSpace(h.Get(api.HeaderDatabaseID)),
	}
}

// Apply writes the credentials onto request headers. Empty fields are skipped.
func (c Credentials) Apply(h http.Header) {
	if c.AccountID != "" {
		h.Set(api.HeaderAccountID, c.AccountID)
	}
	if c.APIToken != "" {
		h.Set(api.HeaderAPIToken, c.APIToken)
	}
	if c.DatabaseID != "" {
		h.Set(api.HeaderDatabaseID, c.DatabaseID)
	}
}

// Remote reports whether both account id and API token are present.
func (c Credentials) Remote() bool {
	return c.AccountID != "" && c.APIToken != ""
}

// Resolution is the set of modes usable for one request.
type Resolution struct {
	Credentials Credentials

	// Remote is true when remote credentials are present.
	Remote bool

	// Local is true when a local handle is bound.
	Local bool
}

// Resolve inspects credentials and the local binding. It has no side effects.
func Resolve(creds Credentials, hasLocal bool) Resolution {
	return Resolution{
		Credentials: creds,
		Remote:      creds.Remote(),
		Local:       hasLocal,
	}
}

// Select picks the mode for an operation: remote if credentialed, else
// local if bound. When remote is selected and requireDatabase is set, the
// database id must be present; there is no fallback to local in that case.
func (r Resolution) Select(requireDatabase bool) (Mode, error) {
	switch {
	case r.Remote:
		if requireDatabase && r.Credentials.DatabaseID == "" {
			return "", errors.NewModeUnavailable("remote credentials present but " + api.HeaderDatabaseID + " is missing")
		}
		return ModeRemote, nil
	case r.Local:
		return ModeLocal, nil
	default:
		return "", errors.NewModeUnavailable("no remote credentials and no local database bound")
	}
}
