package audit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hupe1980/agentloop/core"
)

var _ core.AuditLedger = (*InMemoryLedger)(nil)

func record(session, tool string) core.AuditRecord {
	return core.AuditRecord{
		Timestamp: time.Now().UTC(),
		SessionID: session,
		ToolName:  tool,
		Arguments: "{}",
		Result:    `"ok"`,
	}
}

func TestInMemoryLedger_ListNewestFirst(t *testing.T) {
	ctx := context.Background()
	l := NewInMemoryLedger()

	for _, tool := range []string{"first", "second", "third"} {
		if err := l.Record(ctx, record("s1", tool)); err != nil {
			t.Fatalf("Record failed: %v", err)
		}
	}
	_ = l.Record(ctx, record("s2", "other"))

	got, err := l.List(ctx, "s1", 2)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(got) != 2 || got[0].ToolName != "third" || got[1].ToolName != "second" {
		t.Fatalf("expected newest-first tail [third second], got %+v", got)
	}

	global, err := l.List(ctx, "", 10)
	if err != nil {
		t.Fatalf("global List failed: %v", err)
	}
	if len(global) != 4 || global[0].ToolName != "other" {
		t.Fatalf("expected global tail of 4 records, got %+v", global)
	}
}

func TestInMemoryLedger_Unavailable(t *testing.T) {
	l := NewInMemoryLedger()
	l.SetUnavailable(true)
	err := l.Record(context.Background(), record("s1", "search"))
	if !errors.Is(err, core.ErrAuditUnavailable) {
		t.Fatalf("expected ErrAuditUnavailable, got %v", err)
	}
}
