package core

import (
	"context"
	"errors"
	"time"
)

// ErrAuditUnavailable signals that the underlying audit store could not
// accept a record. The engine must treat this as a step failure: a tool
// result is never merged into conversation state without a corresponding
// durable audit record.
var ErrAuditUnavailable = errors.New("audit ledger unavailable")

// AuditRecord is the immutable fact written for every tool invocation
// attempt, including failed attempts. Exactly one of Result or Error is set.
type AuditRecord struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	SessionID string    `json:"session_id"`
	ToolName  string    `json:"tool_name"`
	Arguments string    `json:"arguments"`        // serialized JSON object
	Result    string    `json:"result,omitempty"` // serialized tool output
	Error     string    `json:"error,omitempty"`  // serialized failure
}

// AuditLedger is a durable, append-only record of tool invocations,
// queryable by session and recency. No update or delete operation is
// exposed; retention is an external operational concern.
type AuditLedger interface {
	// Record appends one record. It never fails silently: if the store is
	// unavailable it returns an error matching ErrAuditUnavailable.
	Record(ctx context.Context, rec AuditRecord) error

	// List returns up to limit records newest-first. An empty sessionID
	// returns the global ledger tail.
	List(ctx context.Context, sessionID string, limit int) ([]AuditRecord, error)
}
