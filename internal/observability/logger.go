// Package observability provides structured operation logging and audit
// summaries for the d1bridge gateway.
//
// Every operation emits one entry: request id, operation, backend mode,
// HTTP status, execution time, outcome and error (if any). Error text is
// masked before it is written anywhere.
package observability

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"
)

// Outcomes of an operation.
const (
	OutcomeSuccess  = "success"
	OutcomeError    = "error"
	OutcomeRejected = "rejected"
)

// topN bounds the ranked lists of an AuditSummary.
const topN = 5

// OperationLogEntry contains all required fields for operation logging.
type OperationLogEntry struct {
	// RequestID is the unique identifier for this request.
	RequestID string

	// Operation is the matched operation name, e.g. "query" or "not_found".
	Operation string

	// Mode is the backend that served the operation. Empty when no backend
	// was selected.
	Mode string

	// Method and Path of the request.
	Method string
	Path   string

	// Status is the HTTP status returned.
	Status int

	// ExecutionTime is how long the operation took. Must be non-negative.
	ExecutionTime time.Duration

	// Outcome is "success", "error" or "rejected".
	Outcome string

	// Error contains the error message if the operation failed.
	Error string
}

// Validate checks that all required fields are present.
func (e *OperationLogEntry) Validate() error {
	if e.RequestID == "" {
		return fmt.Errorf("observability: request_id is required")
	}
	if e.Operation == "" {
		return fmt.Errorf("observability: operation is required")
	}
	if e.ExecutionTime < 0 {
		return fmt.Errorf("observability: execution_time cannot be negative")
	}
	return nil
}

// OperationLogger is the interface for operation logging.
type OperationLogger interface {
	// LogOperation logs one operation.
	// Returns an error if logging fails or the entry is invalid.
	LogOperation(ctx context.Context, entry OperationLogEntry) error

	// GetAuditSummary returns aggregated audit statistics, or an error if
	// the entries cannot be read.
	GetAuditSummary(ctx context.Context) (*AuditSummary, error)
}

// AuditSummary represents aggregated audit statistics. It never carries
// request payloads or result rows.
type AuditSummary struct {
	SuccessCount  int             `json:"success_count"`
	FailureCount  int             `json:"failure_count"`
	TopErrors     []ErrorStat     `json:"top_errors"`
	TopOperations []OperationStat `json:"top_operations"`
	ModeCounts    map[string]int  `json:"mode_counts"`
}

// ErrorStat represents error message statistics.
type ErrorStat struct {
	Error string `json:"error"`
	Count int    `json:"count"`
}

// OperationStat represents operation statistics.
type OperationStat struct {
	Operation string `json:"operation"`
	Count     int    `json:"count"`
}

// NewAuditSummary returns an empty summary.
func NewAuditSummary() *AuditSummary {
	return &AuditSummary{
		TopErrors:     []ErrorStat{},
		TopOperations: []OperationStat{},
		ModeCounts:    map[string]int{},
	}
}

// jsonLogOutput is the structured format for JSON logs.
type jsonLogOutput struct {
	Timestamp       string `json:"timestamp"`
	Level           string `json:"level"`
	RequestID       string `json:"request_id"`
	Operation       string `json:"operation"`
	Mode            string `json:"mode,omitempty"`
	Method          string `json:"method,omitempty"`
	Path            string `json:"path,omitempty"`
	Status          int    `json:"status"`
	ExecutionTimeMs int64  `json:"execution_time_ms"`
	Outcome         string `json:"outcome"`
	Error           string `json:"error,omitempty"`
}

func formatEntry(entry OperationLogEntry) ([]byte, error) {
	level := "info"
	if entry.Error != "" {
		level = "error"
	}
	output := jsonLogOutput{
		Timestamp:       time.Now().UTC().Format(time.RFC3339),
		Level:           level,
		RequestID:       entry.RequestID,
		Operation:       entry.Operation,
		Mode:            entry.Mode,
		Method:          entry.Method,
		Path:            entry.Path,
		Status:          entry.Status,
		ExecutionTimeMs: entry.ExecutionTime.Milliseconds(),
		Outcome:         entry.Outcome,
		Error:           entry.Error,
	}
	data, err := json.Marshal(output)
	if err != nil {
		return nil, fmt.Errorf("observability: failed to marshal log: %w", err)
	}
	return append(data, '\n'), nil
}

// JSONLogger implements OperationLogger with JSON lines output.
type JSONLogger struct {
	writer  io.Writer
	entries []OperationLogEntry // Track entries for audit summary
	mu      sync.RWMutex
}

// NewJSONLogger creates a new JSON logger writing to the given writer.
func NewJSONLogger(w io.Writer) *JSONLogger {
	return &JSONLogger{
		writer:  w,
		entries: make([]OperationLogEntry, 0),
	}
}

// LogOperation logs an operation as one JSON line.
func (l *JSONLogger) LogOperation(ctx context.Context, entry OperationLogEntry) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("observability: context error: %w", err)
	}
	if err := entry.Validate(); err != nil {
		return err
	}
	entry.Error = Mask(entry.Error)

	data, err := formatEntry(entry)
	if err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, err := l.writer.Write(data); err != nil {
		return fmt.Errorf("observability: failed to write log: %w", err)
	}
	l.entries = append(l.entries, entry)
	return nil
}

// GetAuditSummary returns aggregated statistics of the logged entries.
func (l *JSONLogger) GetAuditSummary(ctx context.Context) (*AuditSummary, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	summary := NewAuditSummary()
	errorCounts := make(map[string]int)
	operationCounts := make(map[string]int)

	for _, entry := range l.entries {
		if entry.Outcome == OutcomeSuccess {
			summary.SuccessCount++
		} else {
			summary.FailureCount++
		}
		if entry.Error != "" {
			errorCounts[entry.Error]++
		}
		operationCounts[entry.Operation]++
		if entry.Mode != "" {
			summary.ModeCounts[entry.Mode]++
		}
	}

	for msg, count := range errorCounts {
		summary.TopErrors = append(summary.TopErrors, ErrorStat{Error: msg, Count: count})
	}
	sort.Slice(summary.TopErrors, func(i, j int) bool {
		a, b := summary.TopErrors[i], summary.TopErrors[j]
		return a.Count > b.Count || (a.Count == b.Count && a.Error < b.Error)
	})
	if len(summary.TopErrors) > topN {
		summary.TopErrors = summary.TopErrors[:topN]
	}

	for op, count := range operationCounts {
		summary.TopOperations = append(summary.TopOperations, OperationStat{Operation: op, Count: count})
	}
	sort.Slice(summary.TopOperations, func(i, j int) bool {
		a, b := summary.TopOperations[i], summary.TopOperations[j]
		return a.Count > b.Count || (a.Count == b.Count && a.Operation < b.Operation)
	})
	if len(summary.TopOperations) > topN {
		summary.TopOperations = summary.TopOperations[:topN]
	}

	return summary, nil
}

// NoopLogger is a logger that discards all logs.
// Useful for testing or when logging is disabled.
type NoopLogger struct{}

// NewNoopLogger creates a new no-op logger.
func NewNoopLogger() *NoopLogger {
	return &NoopLogger{}
}

// LogOperation does nothing and always succeeds.
func (l *NoopLogger) LogOperation(ctx context.Context, entry OperationLogEntry) error {
	return nil
}

// GetAuditSummary returns an empty summary for the no-op logger.
func (l *NoopLogger) GetAuditSummary(ctx context.Context) (*AuditSummary, error) {
	return NewAuditSummary(), nil
}
