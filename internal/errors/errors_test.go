package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
)

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"mode unavailable", NewModeUnavailable("no binding"), http.StatusBadRequest},
		{"bad request", NewBadRequest("sql", "SQL query is required"), http.StatusBadRequest},
		{"backend fault", NewBackendFault("local", "syntax error"), http.StatusInternalServerError},
		{"transport fault", NewTransportFault("https://example.test", stderrors.New("dial tcp: refused")), http.StatusInternalServerError},
		{"not found", NewNotFound(http.MethodGet, "/api/nope"), http.StatusNotFound},
		{"body too large", NewBodyTooLarge(10 << 20), http.StatusRequestEntityTooLarge},
		{"wrapped", fmt.Errorf("context: %w", NewNotFound(http.MethodGet, "/x")), http.StatusNotFound},
		{"plain", stderrors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HTTPStatus(tt.err); got != tt.want {
				t.Errorf("HTTPStatus() = %d, want %d", got, tt.want)
			}
		})
	}
}

// TestMessage_IsVerbatim verifies backend messages reach clients unchanged.
//
// Green-Flag: the client-facing message omits reason and suggestion.
func TestMessage_IsVerbatim(t *testing.T) {
	err := NewBackendFault("remote", "near \"SELEC\": syntax error")
	if got := Message(err); got != "near \"SELEC\": syntax error" {
		t.Errorf("Message() = %q", got)
	}

	unavailable := NewModeUnavailable("remote selected without database id")
	if got := Message(unavailable); got != "No database connection available" {
		t.Errorf("Message() = %q", got)
	}
	if !strings.Contains(unavailable.Error(), "Reason: remote selected without database id") {
		t.Errorf("Error() should include reason, got %q", unavailable.Error())
	}

	if Message(nil) != "" {
		t.Error("Message(nil) should be empty")
	}
}

func TestTransportFault_Unwraps(t *testing.T) {
	cause := stderrors.New("i/o timeout")
	err := NewTransportFault("https://example.test", cause)

	if !stderrors.Is(err, cause) {
		t.Error("transport fault should unwrap to its cause")
	}
	if b, ok := As(err); !ok || b.Code != CodeBackend {
		t.Errorf("As() = %v, %v", b, ok)
	}
}
