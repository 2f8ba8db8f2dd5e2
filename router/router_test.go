package router

import (
	"testing"

	"github.com/hupe1980/agentloop/core"
)

func TestDecide_OrderOfChecks(t *testing.T) {
	answer := "done"

	tests := []struct {
		name     string
		mutate   func(c *core.Conversation)
		expected Decision
	}{
		{
			name:     "fresh turn consults model",
			mutate:   func(c *core.Conversation) {},
			expected: DecisionConsultModel,
		},
		{
			name: "pending action invokes tool",
			mutate: func(c *core.Conversation) {
				c.Pending = &core.PendingAction{Name: "search"}
			},
			expected: DecisionInvokeTool,
		},
		{
			name: "final answer terminates",
			mutate: func(c *core.Conversation) {
				c.FinalAnswer = &answer
			},
			expected: DecisionTerminate,
		},
		{
			// Unreachable through the mutation primitives, but the decision
			// function must stay total over every struct value.
			name: "final answer wins over pending",
			mutate: func(c *core.Conversation) {
				c.FinalAnswer = &answer
				c.Pending = &core.PendingAction{Name: "search"}
			},
			expected: DecisionTerminate,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := core.NewConversation("s1")
			c.BeginTurn("hi")
			tt.mutate(c)
			if got := Decide(c); got != tt.expected {
				t.Fatalf("Decide() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestDecide_IsPure(t *testing.T) {
	c := core.NewConversation("s1")
	c.BeginTurn("hello")
	before := len(c.Messages)

	for i := 0; i < 3; i++ {
		if got := Decide(c); got != DecisionConsultModel {
			t.Fatalf("repeated Decide changed result: %v", got)
		}
	}
	if len(c.Messages) != before || c.Pending != nil || c.FinalAnswer != nil {
		t.Fatal("Decide must not mutate the conversation")
	}
}

func TestKeywordPrefilter(t *testing.T) {
	pf := NewKeywordPrefilter()
	if trigger, ok := pf.Match("please SEARCH the docs"); !ok || trigger != "search" {
		t.Fatalf("expected search trigger, got %q ok=%v", trigger, ok)
	}
	if _, ok := pf.Match("just chatting"); ok {
		t.Fatal("expected no trigger")
	}

	custom := NewKeywordPrefilter("weather")
	if _, ok := custom.Match("search something"); ok {
		t.Fatal("custom triggers should replace defaults")
	}
}
