// Package router decides the next step of a conversation turn. The decision
// function is pure and total: no I/O, no side effects, fully deterministic
// given the conversation value. This keeps routing independently testable
// and lets the policy be swapped without touching the engine.
//
// The policy implemented here is model-driven: the only inputs are whether a
// final answer is set and whether an action is outstanding. Keyword-based
// pre-routing exists as a separate, optional strategy (KeywordPrefilter)
// layered outside the state machine and never participates in transitions.
package router

import "github.com/hupe1980/agentloop/core"

// Decision is the next step chosen for a turn.
type Decision int

const (
	// DecisionConsultModel asks the model port for the next outcome.
	DecisionConsultModel Decision = iota
	// DecisionInvokeTool executes the outstanding pending action.
	DecisionInvokeTool
	// DecisionTerminate ends the turn.
	DecisionTerminate
)

// String returns the decision name for logs.
func (d Decision) String() string {
	switch d {
	case DecisionConsultModel:
		return "consult_model"
	case DecisionInvokeTool:
		return "invoke_tool"
	case DecisionTerminate:
		return "terminate"
	default:
		return "unknown"
	}
}

// Decide classifies the current conversation into the next step:
//
//  1. Final answer set            -> terminate
//  2. Pending action outstanding  -> invoke tool
//  3. Otherwise                   -> consult model
//
// Decide never returns an error; mapping collaborator failures onto
// transitions is the engine's job alone.
func Decide(c *core.Conversation) Decision {
	if c.FinalAnswer != nil {
		return DecisionTerminate
	}
	if c.Pending != nil {
		return DecisionInvokeTool
	}
	return DecisionConsultModel
}
