package core

import (
	"errors"
	"testing"
)

func TestConversation_PendingAndFinalNeverBothSet(t *testing.T) {
	c := NewConversation("s1")
	c.BeginTurn("hello")

	if err := c.SetPendingAction("search", map[string]any{"q": "x"}); err != nil {
		t.Fatalf("SetPendingAction failed: %v", err)
	}
	if err := c.SetFinalAnswer("done"); err == nil {
		t.Fatal("expected SetFinalAnswer to fail with an action outstanding")
	} else if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}

	if err := c.ClearPendingAction(ToolResult{ToolName: "search", Content: `{"hits":[]}`}); err != nil {
		t.Fatalf("ClearPendingAction failed: %v", err)
	}
	if err := c.SetFinalAnswer("done"); err != nil {
		t.Fatalf("SetFinalAnswer failed: %v", err)
	}
	if err := c.SetPendingAction("search", nil); err == nil {
		t.Fatal("expected SetPendingAction to fail after final answer")
	}
}

func TestConversation_DoublePendingRejected(t *testing.T) {
	c := NewConversation("s1")
	c.BeginTurn("hi")
	if err := c.SetPendingAction("a", nil); err != nil {
		t.Fatalf("first SetPendingAction failed: %v", err)
	}
	err := c.SetPendingAction("b", nil)
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
	var te *TransitionError
	if !errors.As(err, &te) || te.Op != "set_pending_action" {
		t.Fatalf("expected TransitionError for set_pending_action, got %#v", err)
	}
}

func TestConversation_ClearPendingRequiresMatchingTool(t *testing.T) {
	c := NewConversation("s1")
	c.BeginTurn("hi")
	if err := c.ClearPendingAction(ToolResult{ToolName: "search"}); err == nil {
		t.Fatal("expected error with no action outstanding")
	}
	_ = c.SetPendingAction("search", nil)
	if err := c.ClearPendingAction(ToolResult{ToolName: "fetch_url"}); err == nil {
		t.Fatal("expected error for mismatched tool name")
	}
	if err := c.ClearPendingAction(ToolResult{ToolName: "search", Content: "ok"}); err != nil {
		t.Fatalf("matching clear failed: %v", err)
	}
	last := c.Messages[len(c.Messages)-1]
	if last.Role != RoleToolResult || last.ActionName != "search" {
		t.Fatalf("expected tool-result message, got %+v", last)
	}
	if c.LastToolResult == nil || c.LastToolResult.Content != "ok" {
		t.Fatalf("LastToolResult not recorded: %+v", c.LastToolResult)
	}
}

func TestConversation_CloneIsDeep(t *testing.T) {
	c := NewConversation("s1")
	c.BeginTurn("hello")
	_ = c.SetPendingAction("search", map[string]any{"q": "x"})

	clone := c.Clone()
	if clone == c {
		t.Error("Clone should be a different pointer")
	}
	clone.Pending.Arguments["q"] = "mutated"
	clone.AppendMessage(NewAssistantMessage("extra"))

	if c.Pending.Arguments["q"] != "x" {
		t.Error("clone mutation leaked into original arguments")
	}
	if len(c.Messages) != 1 {
		t.Errorf("clone append leaked into original history: %d messages", len(c.Messages))
	}
}

func TestConversation_BeginTurnClearsPriorTurn(t *testing.T) {
	c := NewConversation("s1")
	c.BeginTurn("first")
	if err := c.SetFinalAnswer("answer"); err != nil {
		t.Fatalf("SetFinalAnswer failed: %v", err)
	}

	c.BeginTurn("second")
	if c.FinalAnswer != nil || c.Outcome != nil || c.Pending != nil {
		t.Fatal("BeginTurn should clear terminal fields")
	}
	if len(c.Messages) != 3 {
		t.Fatalf("expected history to be preserved across turns, got %d messages", len(c.Messages))
	}
}
