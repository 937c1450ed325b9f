package observability

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/canonica-labs/d1bridge/internal/storage"
)

// PersistentLogger implements OperationLogger on the audit_logs table of
// the state store, so the audit trail survives gateway restarts.
type PersistentLogger struct {
	db     *storage.DB
	mu     sync.Mutex
	writer io.Writer // optional: also write JSON lines
}

// NewPersistentLogger creates a logger that persists audit entries.
func NewPersistentLogger(db *storage.DB) (*PersistentLogger, error) {
	return NewPersistentLoggerWithWriter(db, nil)
}

// NewPersistentLoggerWithWriter creates a logger that persists to both the
// state store and a writer.
func NewPersistentLoggerWithWriter(db *storage.DB, w io.Writer) (*PersistentLogger, error) {
	if db == nil {
		return nil, fmt.Errorf("observability: database connection is required for persistent logging")
	}
	return &PersistentLogger{
		db:     db,
		writer: w,
	}, nil
}

// LogOperation persists an operation log entry.
func (l *PersistentLogger) LogOperation(ctx context.Context, entry OperationLogEntry) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("observability: context error: %w", err)
	}
	if err := entry.Validate(); err != nil {
		return err
	}
	entry.Error = Mask(entry.Error)

	_, err := l.db.ExecContext(ctx, l.db.Rebind(`
		INSERT INTO audit_logs (
			request_id, operation, mode, method, path, status,
			execution_time_ms, outcome, error_message, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`),
		entry.RequestID,
		entry.Operation,
		nullableString(entry.Mode),
		entry.Method,
		entry.Path,
		entry.Status,
		entry.ExecutionTime.Milliseconds(),
		entry.Outcome,
		nullableString(entry.Error),
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("observability: failed to persist audit log: %w", err)
	}

	if l.writer != nil {
		if data, err := formatEntry(entry); err == nil {
			l.mu.Lock()
			l.writer.Write(data)
			l.mu.Unlock()
		}
	}
	return nil
}

// GetAuditSummary returns aggregated statistics from the persisted entries.
// Any failure of the state store is returned instead of a partial summary.
func (l *PersistentLogger) GetAuditSummary(ctx context.Context) (*AuditSummary, error) {
	summary := NewAuditSummary()

	if err := l.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM audit_logs WHERE outcome = 'success'`).
		Scan(&summary.SuccessCount); err != nil {
		return nil, fmt.Errorf("observability: failed to count successes: %w", err)
	}
	if err := l.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM audit_logs WHERE outcome != 'success'`).
		Scan(&summary.FailureCount); err != nil {
		return nil, fmt.Errorf("observability: failed to count failures: %w", err)
	}

	err := l.scanGroups(ctx, fmt.Sprintf(`
		SELECT error_message, COUNT(*) AS cnt
		FROM audit_logs
		WHERE error_message IS NOT NULL AND error_message != ''
		GROUP BY error_message
		ORDER BY cnt DESC, error_message
		LIMIT %d`, topN), func(key string, count int) {
		summary.TopErrors = append(summary.TopErrors, ErrorStat{Error: key, Count: count})
	})
	if err != nil {
		return nil, err
	}

	err = l.scanGroups(ctx, fmt.Sprintf(`
		SELECT operation, COUNT(*) AS cnt
		FROM audit_logs
		GROUP BY operation
		ORDER BY cnt DESC, operation
		LIMIT %d`, topN), func(key string, count int) {
		summary.TopOperations = append(summary.TopOperations, OperationStat{Operation: key, Count: count})
	})
	if err != nil {
		return nil, err
	}

	err = l.scanGroups(ctx, `
		SELECT mode, COUNT(*) FROM audit_logs WHERE mode IS NOT NULL GROUP BY mode`,
		func(key string, count int) {
			summary.ModeCounts[key] = count
		})
	if err != nil {
		return nil, err
	}

	return summary, nil
}

// scanGroups runs a (key, count) aggregate and hands each row to add.
func (l *PersistentLogger) scanGroups(ctx context.Context, query string, add func(key string, count int)) error {
	rows, err := l.db.QueryContext(ctx, query)
	if err != nil {
		return fmt.Errorf("observability: failed to summarize audit log: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var key string
		var count int
		if err := rows.Scan(&key, &count); err != nil {
			return fmt.Errorf("observability: failed to scan audit summary: %w", err)
		}
		add(key, count)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("observability: failed to summarize audit log: %w", err)
	}
	return nil
}

// nullableString converts empty strings to nil for SQL NULL.
func nullableString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
