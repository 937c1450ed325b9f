// Package errors provides explicit, human-readable error types for d1bridge.
// Every error carries a Code that maps onto an HTTP status for the gateway
// and an exit code for the CLI, plus an optional Reason and Suggestion.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// BridgeError is the base error type for all d1bridge errors.
type BridgeError struct {
	Code       ErrorCode
	Message    string
	Reason     string
	Suggestion string
	Cause      error
}

// ErrorCode represents the category of error.
type ErrorCode int

const (
	CodeValidation  ErrorCode = 1
	CodeUnavailable ErrorCode = 2
	CodeBackend     ErrorCode = 3
	CodeInternal    ErrorCode = 4
	CodeNotFound    ErrorCode = 5
	CodeTooLarge    ErrorCode = 6
)

func (e *BridgeError) Error() string {
	msg := e.Message
	if e.Reason != "" {
		msg = fmt.Sprintf("%s\nReason: %s", msg, e.Reason)
	}
	if e.Suggestion != "" {
		msg = fmt.Sprintf("%s\nSuggestion: %s", msg, e.Suggestion)
	}
	if e.Cause != nil {
		msg = fmt.Sprintf("%s\nCaused by: %v", msg, e.Cause)
	}
	return msg
}

func (e *BridgeError) Unwrap() error {
	return e.Cause
}

// Bridge returns the embedded BridgeError.
func (e *BridgeError) Bridge() *BridgeError {
	return e
}

type bridged interface {
	Bridge() *BridgeError
}

// As extracts the BridgeError from err, if any error in its chain is one.
func As(err error) (*BridgeError, bool) {
	var b bridged
	if stderrors.As(err, &b) {
		return b.Bridge(), true
	}
	return nil, false
}

// Message returns the short, client-facing message for err. For BridgeErrors
// this is Message alone, without reason or suggestion.
func Message(err error) string {
	if err == nil {
		return ""
	}
	if b, ok := As(err); ok {
		return b.Message
	}
	return err.Error()
}

// HTTPStatus maps err onto the status code the gateway responds with.
func HTTPStatus(err error) int {
	b, ok := As(err)
	if !ok {
		return http.StatusInternalServerError
	}
	switch b.Code {
	case CodeValidation, CodeUnavailable:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeTooLarge:
		return http.StatusRequestEntityTooLarge
	default:
		return http.StatusInternalServerError
	}
}

// ErrModeUnavailable is returned when no backend can serve an operation.
type ErrModeUnavailable struct {
	BridgeError
}

// NewModeUnavailable creates an ErrModeUnavailable.
func NewModeUnavailable(reason string) *ErrModeUnavailable {
	return &ErrModeUnavailable{
		BridgeError: BridgeError{
			Code:       CodeUnavailable,
			Message:    "No database connection available",
			Reason:     reason,
			Suggestion: "bind a local database or send X-CF-Account-ID, X-CF-API-Token and X-CF-Database-ID",
		},
	}
}

// ErrBadRequest is returned when a request body or parameter is invalid.
type ErrBadRequest struct {
	BridgeError
	Field string
}

// NewBadRequest creates an ErrBadRequest with msg as the client-facing message.
func NewBadRequest(field, msg string) *ErrBadRequest {
	return &ErrBadRequest{
		BridgeError: BridgeError{
			Code:    CodeValidation,
			Message: msg,
		},
		Field: field,
	}
}

// ErrBodyTooLarge is returned when a request body exceeds the size limit.
type ErrBodyTooLarge struct {
	BridgeError
	Limit int64
}

// NewBodyTooLarge creates an ErrBodyTooLarge.
func NewBodyTooLarge(limit int64) *ErrBodyTooLarge {
	return &ErrBodyTooLarge{
		BridgeError: BridgeError{
			Code:    CodeTooLarge,
			Message: "Request body too large",
			Reason:  fmt.Sprintf("bodies are limited to %d bytes", limit),
		},
		Limit: limit,
	}
}

// ErrBackendFault is returned when a backend reports a failed execution.
// The backend message is surfaced verbatim.
type ErrBackendFault struct {
	BridgeError
	Mode string
}

// NewBackendFault creates an ErrBackendFault.
func NewBackendFault(mode, msg string) *ErrBackendFault {
	return &ErrBackendFault{
		BridgeError: BridgeError{
			Code:    CodeBackend,
			Message: msg,
		},
		Mode: mode,
	}
}

// ErrTransportFault is returned when the remote service cannot be reached.
type ErrTransportFault struct {
	BridgeError
	Endpoint string
}

// NewTransportFault creates an ErrTransportFault.
func NewTransportFault(endpoint string, cause error) *ErrTransportFault {
	return &ErrTransportFault{
		BridgeError: BridgeError{
			Code:       CodeBackend,
			Message:    cause.Error(),
			Reason:     "remote database service unreachable",
			Suggestion: "check network connectivity and the remote endpoint setting",
			Cause:      cause,
		},
		Endpoint: endpoint,
	}
}

// ErrNotFound is returned when no operation matches a request.
type ErrNotFound struct {
	BridgeError
	Method string
	Path   string
}

// NewNotFound creates an ErrNotFound.
func NewNotFound(method, path string) *ErrNotFound {
	return &ErrNotFound{
		BridgeError: BridgeError{
			Code:    CodeNotFound,
			Message: "Not found",
			Reason:  fmt.Sprintf("no operation for %s %s", method, path),
		},
		Method: method,
		Path:   path,
	}
}

// NewInternal wraps an unexpected failure.
func NewInternal(msg string, cause error) *BridgeError {
	return &BridgeError{
		Code:    CodeInternal,
		Message: msg,
		Cause:   cause,
	}
}

// ErrProfileNotFound is returned when a connection profile does not exist.
type ErrProfileNotFound struct {
	BridgeError
	ProfileID string
}

// NewProfileNotFound creates an ErrProfileNotFound.
func NewProfileNotFound(id string) *ErrProfileNotFound {
	return &ErrProfileNotFound{
		BridgeError: BridgeError{
			Code:       CodeValidation,
			Message:    fmt.Sprintf("profile not found: %s", id),
			Suggestion: "list profiles with 'd1bridge profile list'",
		},
		ProfileID: id,
	}
}

// ErrProfileExists is returned when adding a profile whose id is taken.
type ErrProfileExists struct {
	BridgeError
	ProfileID string
}

// NewProfileExists creates an ErrProfileExists.
func NewProfileExists(id string) *ErrProfileExists {
	return &ErrProfileExists{
		BridgeError: BridgeError{
			Code:       CodeValidation,
			Message:    fmt.Sprintf("profile already exists: %s", id),
			Suggestion: "choose another id or remove the existing profile first",
		},
		ProfileID: id,
	}
}

// ErrInvalidProfile is returned when a profile definition is rejected.
type ErrInvalidProfile struct {
	BridgeError
	Field string
}

// NewInvalidProfile creates an ErrInvalidProfile.
func NewInvalidProfile(field, reason string) *ErrInvalidProfile {
	return &ErrInvalidProfile{
		BridgeError: BridgeError{
			Code:    CodeValidation,
			Message: "invalid profile",
			Reason:  fmt.Sprintf("field '%s': %s", field, reason),
		},
		Field: field,
	}
}

// ErrGatewayUnavailable is returned by the CLI when the gateway cannot be reached.
type ErrGatewayUnavailable struct {
	BridgeError
	Endpoint string
}

// NewGatewayUnavailable creates an ErrGatewayUnavailable.
func NewGatewayUnavailable(endpoint, reason string) *ErrGatewayUnavailable {
	return &ErrGatewayUnavailable{
		BridgeError: BridgeError{
			Code:       CodeUnavailable,
			Message:    "gateway unavailable",
			Reason:     reason,
			Suggestion: "start the gateway or pass --endpoint",
		},
		Endpoint: endpoint,
	}
}

// NewDatabaseUnavailable is returned when the state store cannot be used.
func NewDatabaseUnavailable(reason string) *BridgeError {
	return &BridgeError{
		Code:       CodeInternal,
		Message:    "state database unavailable",
		Reason:     reason,
		Suggestion: "check the state.driver and state.dsn settings",
	}
}

// NewMigrationFailed is returned when a schema migration cannot be applied.
func NewMigrationFailed(name string, cause error) *BridgeError {
	return &BridgeError{
		Code:    CodeInternal,
		Message: fmt.Sprintf("migration failed: %s", name),
		Cause:   cause,
	}
}
