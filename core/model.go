package core

import (
	"context"
	"errors"
	"fmt"
)

// ErrModelUnavailable signals a transient provider failure (network error,
// timeout, 5xx). Callers may retry; the engine treats it as a step failure.
var ErrModelUnavailable = errors.New("model unavailable")

// ProtocolError signals a malformed provider response that cannot be mapped
// onto a ModelOutcome. Not retryable; surfaced to the caller.
type ProtocolError struct {
	Provider string
	Reason   string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("model protocol error (%s): %s", e.Provider, e.Reason)
}

// ModelOutcome is the normalized result of one model consultation: exactly
// one of Action or Reply is non-nil. Providers that return both a natural
// language reply and a tool request must resolve to the action, since the
// engine cannot terminate while an action is pending.
type ModelOutcome struct {
	Action *ActionRequest
	Reply  *FinalReply
}

// ActionRequest is a model-requested tool invocation.
type ActionRequest struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

// FinalReply is a model reply that terminates the turn.
type FinalReply struct {
	Text string `json:"text"`
}

// ActionOutcome wraps an ActionRequest as a ModelOutcome.
func ActionOutcome(name string, args map[string]any) ModelOutcome {
	return ModelOutcome{Action: &ActionRequest{Name: name, Arguments: args}}
}

// ReplyOutcome wraps a FinalReply as a ModelOutcome.
func ReplyOutcome(text string) ModelOutcome {
	return ModelOutcome{Reply: &FinalReply{Text: text}}
}

// ModelPort turns conversation history into either a free-text reply or a
// structured action request. Implementations adapt a concrete provider
// (Anthropic, OpenAI, a local runtime, a scripted mock) behind this single
// method and map provider failures onto ErrModelUnavailable or
// *ProtocolError.
//
// Complete is a blocking network call; implementations must honor ctx
// cancellation and deadlines.
type ModelPort interface {
	Complete(ctx context.Context, history []Message) (ModelOutcome, error)
}
