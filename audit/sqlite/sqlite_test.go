package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/hupe1980/agentloop/core"
)

var _ core.AuditLedger = (*Ledger)(nil)

func newTestLedger(t *testing.T) *Ledger {
	t.Helper()
	l, err := New(filepath.Join(t.TempDir(), "audit.sqlite3"))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	t.Cleanup(func() { _ = l.Close() })
	return l
}

func TestLedger_RecordAndList(t *testing.T) {
	ctx := context.Background()
	l := newTestLedger(t)

	base := time.Now().UTC()
	records := []core.AuditRecord{
		{ID: "r1", Timestamp: base, SessionID: "s1", ToolName: "search", Arguments: `{"q":"x"}`, Result: `{"hits":[]}`},
		{ID: "r2", Timestamp: base.Add(time.Millisecond), SessionID: "s1", ToolName: "fetch_url", Arguments: `{"url":"u"}`, Error: "tool error [TIMEOUT] in fetch_url: deadline exceeded"},
		{ID: "r3", Timestamp: base.Add(2 * time.Millisecond), SessionID: "s2", ToolName: "search", Arguments: `{}`, Result: `"ok"`},
	}
	for _, rec := range records {
		if err := l.Record(ctx, rec); err != nil {
			t.Fatalf("Record(%s) failed: %v", rec.ID, err)
		}
	}

	got, err := l.List(ctx, "s1", 10)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 records for s1, got %d", len(got))
	}
	if got[0].ID != "r2" || got[1].ID != "r1" {
		t.Fatalf("expected newest-first order [r2 r1], got [%s %s]", got[0].ID, got[1].ID)
	}
	if got[0].Error == "" || got[0].Result != "" {
		t.Fatalf("failed attempt should carry error, not result: %+v", got[0])
	}

	global, err := l.List(ctx, "", 2)
	if err != nil {
		t.Fatalf("global List failed: %v", err)
	}
	if len(global) != 2 || global[0].ID != "r3" {
		t.Fatalf("expected bounded global tail starting at r3, got %+v", global)
	}
}

func TestLedger_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "audit.sqlite3")

	l, err := New(path)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	rec := core.AuditRecord{ID: "r1", Timestamp: time.Now().UTC(), SessionID: "s1", ToolName: "search", Arguments: "{}", Result: `"ok"`}
	if err := l.Record(ctx, rec); err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	if err := l.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	reopened, err := New(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer func() { _ = reopened.Close() }()

	got, err := reopened.List(ctx, "s1", 1)
	if err != nil {
		t.Fatalf("List after reopen failed: %v", err)
	}
	if len(got) != 1 || got[0].ID != "r1" || got[0].ToolName != "search" {
		t.Fatalf("record did not survive reopen: %+v", got)
	}
}
