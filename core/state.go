package core

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidTransition is matched (via errors.Is) by every TransitionError.
// It signals a programming-contract violation in the turn state machine and
// is fatal to the turn that triggered it.
var ErrInvalidTransition = errors.New("invalid state transition")

// TransitionError describes a rejected conversation mutation, naming the
// primitive that was attempted and why it violated an invariant.
type TransitionError struct {
	Op     string // mutation primitive, e.g. "set_pending_action"
	Reason string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("invalid state transition in %s: %s", e.Op, e.Reason)
}

// Is reports ErrInvalidTransition equivalence so callers can classify with
// errors.Is without depending on the concrete type.
func (e *TransitionError) Is(target error) bool { return target == ErrInvalidTransition }

// PendingAction is an assistant-requested tool call awaiting execution.
// At most one exists per conversation at any time; it is cleared the instant
// the corresponding tool result is merged.
type PendingAction struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

// ToolResult captures the serialized outcome of the most recent tool
// invocation merged into a conversation.
type ToolResult struct {
	ToolName string `json:"tool_name"`
	Content  string `json:"content"`
}

// OutcomeKind classifies how a turn reached its terminal state.
type OutcomeKind string

const (
	// OutcomeCompleted means the model produced a final reply.
	OutcomeCompleted OutcomeKind = "completed"
	// OutcomeFailed means a collaborator failure ended the turn; Outcome.Err
	// carries the surfaced error text.
	OutcomeFailed OutcomeKind = "failed"
	// OutcomeStepBudgetExceeded means the model/tool loop hit the configured
	// round-trip budget before terminating on its own.
	OutcomeStepBudgetExceeded OutcomeKind = "step_budget_exceeded"
	// OutcomeCancelled means the turn was cancelled between steps by the
	// caller's context.
	OutcomeCancelled OutcomeKind = "cancelled"
)

// Outcome is the terminal result attached to a conversation when a turn
// reaches DONE. Failed turns carry an error description instead of a final
// answer so callers can always render something for the user.
type Outcome struct {
	Kind OutcomeKind `json:"kind"`
	Err  string      `json:"error,omitempty"`
}

// Conversation is the aggregate root for one session: ordered message
// history, at most one pending action, the last merged tool result and the
// terminal answer or outcome of the most recent turn.
//
// Contract: the engine is the only writer; every engine step consumes one
// value and mutates it through the append primitives below, each of which
// enforces the two structural invariants:
//
//   - FinalAnswer set  => Pending is nil
//   - Pending set      => FinalAnswer is nil
//
// Readers (API layer, UI) must only ever receive Clone() snapshots.
type Conversation struct {
	SessionID      string         `json:"session_id"`
	Messages       []Message      `json:"messages"`
	Pending        *PendingAction `json:"pending_action,omitempty"`
	LastToolResult *ToolResult    `json:"last_tool_result,omitempty"`
	FinalAnswer    *string        `json:"final_answer,omitempty"`
	Outcome        *Outcome       `json:"outcome,omitempty"`
	Created        time.Time      `json:"created"`
	Updated        time.Time      `json:"updated"`
}

// NewConversation creates an empty conversation for the given session id.
func NewConversation(sessionID string) *Conversation {
	now := time.Now().UTC()
	return &Conversation{SessionID: sessionID, Messages: []Message{}, Created: now, Updated: now}
}

// BeginTurn prepares the conversation for a new turn: the previous turn's
// terminal fields are cleared and the user message is appended. A pending
// action left behind by a failed turn is discarded rather than replayed.
func (c *Conversation) BeginTurn(userText string) {
	c.FinalAnswer = nil
	c.Outcome = nil
	c.Pending = nil
	c.LastToolResult = nil
	c.AppendMessage(NewUserMessage(userText))
}

// AppendMessage appends a message to history. History is append-only;
// insertion order is the causal conversation order.
func (c *Conversation) AppendMessage(m Message) {
	c.Messages = append(c.Messages, m)
	c.Updated = time.Now().UTC()
}

// SetPendingAction records a model-requested tool call awaiting execution.
// It fails if an action is already outstanding or the turn has terminated
// with a final answer.
func (c *Conversation) SetPendingAction(name string, args map[string]any) error {
	if c.Pending != nil {
		return &TransitionError{Op: "set_pending_action", Reason: fmt.Sprintf("action %q already outstanding", c.Pending.Name)}
	}
	if c.FinalAnswer != nil {
		return &TransitionError{Op: "set_pending_action", Reason: "final answer already set"}
	}
	c.Pending = &PendingAction{Name: name, Arguments: args}
	c.Updated = time.Now().UTC()
	return nil
}

// ClearPendingAction merges a tool result: the outstanding action is
// cleared, the result is recorded and a tool-result message is appended in
// one step. It fails if no action is outstanding or the result does not
// belong to it.
func (c *Conversation) ClearPendingAction(result ToolResult) error {
	if c.Pending == nil {
		return &TransitionError{Op: "clear_pending_action", Reason: "no action outstanding"}
	}
	if result.ToolName != c.Pending.Name {
		return &TransitionError{Op: "clear_pending_action", Reason: fmt.Sprintf("result for %q does not match outstanding action %q", result.ToolName, c.Pending.Name)}
	}
	c.Pending = nil
	c.LastToolResult = &result
	c.AppendMessage(NewToolResultMessage(result.ToolName, result.Content))
	return nil
}

// DropPendingAction discards the outstanding action without merging a
// result. Used when a turn ends in failure so the next turn starts clean.
func (c *Conversation) DropPendingAction() {
	c.Pending = nil
	c.Updated = time.Now().UTC()
}

// SetFinalAnswer terminates the turn with the model's reply, appending it
// to history. It fails while an action is still outstanding: the engine
// cannot terminate with an unexecuted tool call.
func (c *Conversation) SetFinalAnswer(text string) error {
	if c.Pending != nil {
		return &TransitionError{Op: "set_final_answer", Reason: fmt.Sprintf("action %q still outstanding", c.Pending.Name)}
	}
	c.AppendMessage(NewAssistantMessage(text))
	c.FinalAnswer = &text
	c.Outcome = &Outcome{Kind: OutcomeCompleted}
	return nil
}

// Finish attaches a terminal outcome without a final answer (failure,
// budget exhaustion, cancellation).
func (c *Conversation) Finish(o Outcome) {
	c.Outcome = &o
	c.Updated = time.Now().UTC()
}

// Clone returns a deep copy safe for independent mutation. Maps, slices and
// optional fields are copied so a snapshot never aliases live state.
func (c *Conversation) Clone() *Conversation {
	clone := &Conversation{
		SessionID: c.SessionID,
		Messages:  make([]Message, len(c.Messages)),
		Created:   c.Created,
		Updated:   c.Updated,
	}
	copy(clone.Messages, c.Messages)
	if c.Pending != nil {
		args := make(map[string]any, len(c.Pending.Arguments))
		for k, v := range c.Pending.Arguments {
			args[k] = v
		}
		clone.Pending = &PendingAction{Name: c.Pending.Name, Arguments: args}
	}
	if c.LastToolResult != nil {
		res := *c.LastToolResult
		clone.LastToolResult = &res
	}
	if c.FinalAnswer != nil {
		answer := *c.FinalAnswer
		clone.FinalAnswer = &answer
	}
	if c.Outcome != nil {
		outcome := *c.Outcome
		clone.Outcome = &outcome
	}
	return clone
}
