package audit

import (
	"context"
	"sync"

	"github.com/hupe1980/agentloop/core"
)

// InMemoryLedger is a process-local AuditLedger. Records are held in append
// order and served newest-first. Safe for concurrent use; suited to tests
// and ephemeral demos; production deployments should use the sqlite
// backend so the trail survives a crash.
type InMemoryLedger struct {
	mu      sync.RWMutex
	records []core.AuditRecord
	failing bool
}

// NewInMemoryLedger constructs an empty in-memory ledger.
func NewInMemoryLedger() *InMemoryLedger {
	return &InMemoryLedger{}
}

// SetUnavailable toggles simulated store unavailability. Test hook for
// exercising the engine's audit-before-merge behavior.
func (l *InMemoryLedger) SetUnavailable(failing bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.failing = failing
}

// Record appends one record or fails with core.ErrAuditUnavailable.
func (l *InMemoryLedger) Record(_ context.Context, rec core.AuditRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.failing {
		return core.ErrAuditUnavailable
	}
	l.records = append(l.records, rec)
	return nil
}

// List returns up to limit records newest-first, optionally filtered by session.
func (l *InMemoryLedger) List(_ context.Context, sessionID string, limit int) ([]core.AuditRecord, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if limit <= 0 {
		limit = 50
	}
	out := make([]core.AuditRecord, 0, limit)
	for i := len(l.records) - 1; i >= 0 && len(out) < limit; i-- {
		if sessionID != "" && l.records[i].SessionID != sessionID {
			continue
		}
		out = append(out, l.records[i])
	}
	return out, nil
}
