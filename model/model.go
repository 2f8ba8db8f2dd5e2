package model

import (
	"context"
	"sync"

	"github.com/hupe1980/agentloop/core"
)

// ToolSpec declaratively exposes a callable tool to a model provider.
// Parameters is a JSON Schema object (draft agnostic, minimal subset expected).
type ToolSpec struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// ResolveOutcome applies the port contract to a provider response that may
// contain both free text and a tool request: the action always wins, because
// the engine cannot terminate while an action is pending. An empty response
// (no text, no action) is left to the caller to reject as a protocol error.
func ResolveOutcome(text string, action *core.ActionRequest) core.ModelOutcome {
	if action != nil {
		return core.ModelOutcome{Action: action}
	}
	return core.ReplyOutcome(text)
}

// Mock is a scripted in-memory core.ModelPort useful for tests & examples.
// Each call to Complete consumes the next scripted step in order; when the
// script is exhausted the last step repeats.
type Mock struct {
	mu    sync.Mutex
	steps []mockStep
	calls int
}

type mockStep struct {
	outcome core.ModelOutcome
	err     error
}

// NewMock constructs an empty mock port. A mock with no script replies
// with an empty final answer.
func NewMock() *Mock { return &Mock{} }

// QueueReply scripts a final reply as the next outcome.
func (m *Mock) QueueReply(text string) *Mock {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.steps = append(m.steps, mockStep{outcome: core.ReplyOutcome(text)})
	return m
}

// QueueAction scripts a tool request as the next outcome.
func (m *Mock) QueueAction(name string, args map[string]any) *Mock {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.steps = append(m.steps, mockStep{outcome: core.ActionOutcome(name, args)})
	return m
}

// QueueError scripts a failure as the next outcome.
func (m *Mock) QueueError(err error) *Mock {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.steps = append(m.steps, mockStep{err: err})
	return m
}

// Calls returns how many times Complete has been invoked.
func (m *Mock) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Complete implements core.ModelPort by replaying the script.
func (m *Mock) Complete(ctx context.Context, _ []core.Message) (core.ModelOutcome, error) {
	if err := ctx.Err(); err != nil {
		return core.ModelOutcome{}, core.ErrModelUnavailable
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if len(m.steps) == 0 {
		return core.ReplyOutcome(""), nil
	}
	idx := m.calls - 1
	if idx >= len(m.steps) {
		idx = len(m.steps) - 1
	}
	step := m.steps[idx]
	if step.err != nil {
		return core.ModelOutcome{}, step.err
	}
	return step.outcome, nil
}
