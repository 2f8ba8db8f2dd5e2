// Package sqlite provides a durable core.AuditLedger backed by SQLite. The
// database file persists the audit trail across sessions and crashes; WAL
// mode keeps concurrent turn recording from blocking readers.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/hupe1980/agentloop/core"
)

// Ledger implements core.AuditLedger using SQLite.
type Ledger struct {
	db *sql.DB
}

// New opens (creating if necessary) the audit database at dbPath and
// initializes the schema.
func New(dbPath string) (*Ledger, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create ledger directory: %w", err)
		}
	}

	// WAL mode for better concurrency between recording turns and audit reads.
	dsn := dbPath + "?_journal=WAL&_sync=NORMAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open ledger database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping ledger database: %w", err)
	}

	l := &Ledger{db: db}
	if err := l.initSchema(); err != nil {
		return nil, fmt.Errorf("initialize ledger schema: %w", err)
	}
	return l, nil
}

func (l *Ledger) initSchema() error {
	query := `
	CREATE TABLE IF NOT EXISTS tool_invocations (
		id TEXT PRIMARY KEY,
		timestamp INTEGER NOT NULL,
		session_id TEXT NOT NULL,
		tool_name TEXT NOT NULL,
		arguments TEXT NOT NULL,
		result TEXT NOT NULL DEFAULT '',
		error TEXT NOT NULL DEFAULT ''
	);
	CREATE INDEX IF NOT EXISTS idx_tool_invocations_session ON tool_invocations(session_id, timestamp DESC);
	`
	if _, err := l.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Record appends one audit record. Any storage failure is reported as
// core.ErrAuditUnavailable so the engine fails the step instead of merging
// an un-audited tool result.
func (l *Ledger) Record(ctx context.Context, rec core.AuditRecord) error {
	query := `
		INSERT INTO tool_invocations (id, timestamp, session_id, tool_name, arguments, result, error)
		VALUES (?, ?, ?, ?, ?, ?, ?)`

	_, err := l.db.ExecContext(ctx, query,
		rec.ID, rec.Timestamp.UnixNano(), rec.SessionID, rec.ToolName,
		rec.Arguments, rec.Result, rec.Error,
	)
	if err != nil {
		return fmt.Errorf("%w: %v", core.ErrAuditUnavailable, err)
	}
	return nil
}

// List returns up to limit records newest-first, optionally filtered by session.
func (l *Ledger) List(ctx context.Context, sessionID string, limit int) ([]core.AuditRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, timestamp, session_id, tool_name, arguments, result, error
		FROM tool_invocations`
	args := []any{}
	if sessionID != "" {
		query += ` WHERE session_id = ?`
		args = append(args, sessionID)
	}
	query += ` ORDER BY timestamp DESC LIMIT ?`
	args = append(args, limit)

	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrAuditUnavailable, err)
	}
	defer rows.Close()

	var records []core.AuditRecord
	for rows.Next() {
		var rec core.AuditRecord
		var ts int64
		if err := rows.Scan(&rec.ID, &ts, &rec.SessionID, &rec.ToolName, &rec.Arguments, &rec.Result, &rec.Error); err != nil {
			return nil, fmt.Errorf("scan audit row: %w", err)
		}
		rec.Timestamp = time.Unix(0, ts).UTC()
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrAuditUnavailable, err)
	}
	return records, nil
}

// Close releases the underlying database handle.
func (l *Ledger) Close() error {
	return l.db.Close()
}
