package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hupe1980/agentloop/core"
	"github.com/hupe1980/agentloop/logging"
	"github.com/hupe1980/agentloop/router"
)

// runTurn advances the conversation until it reaches a terminal outcome.
// All exits attach an outcome to the conversation; the caller persists it.
func (e *Engine) runTurn(ctx context.Context, conv *core.Conversation) {
	turnID := uuid.NewString()
	log := logging.WithTurn(e.logger, conv.SessionID, turnID)

	log.Info("turn.start")

	steps := 0

	for {
		// Cancellation is honored between steps; a model or tool call
		// already in flight is interrupted through its own context.
		if err := ctx.Err(); err != nil {
			conv.DropPendingAction()
			conv.Finish(core.Outcome{Kind: core.OutcomeCancelled, Err: err.Error()})
			log.Info("turn.cancelled", "steps", steps)

			return
		}

		switch router.Decide(conv) {
		case router.DecisionTerminate:
			log.Info("turn.done", "steps", steps)

			return

		case router.DecisionConsultModel:
			if steps >= e.config.StepBudget {
				conv.Finish(core.Outcome{
					Kind: core.OutcomeStepBudgetExceeded,
					Err:  fmt.Sprintf("step budget of %d exhausted", e.config.StepBudget),
				})
				log.Warn("turn.budget_exceeded", "budget", e.config.StepBudget)

				return
			}

			steps++

			if !e.consultModel(ctx, log, conv) {
				return
			}

		case router.DecisionInvokeTool:
			if !e.invokeTool(ctx, log, conv) {
				return
			}
		}
	}
}

// consultModel asks the model port for the next move and applies it to the
// conversation. It returns false when the turn has reached a terminal
// failure and the loop must stop.
func (e *Engine) consultModel(ctx context.Context, log logging.Logger, conv *core.Conversation) bool {
	start := time.Now()

	outcome, err := e.completeWithRetry(ctx, conv.Messages)

	logging.LogModelCall(log, time.Since(start), err == nil, err)

	if err != nil {
		e.failTurn(conv, fmt.Errorf("model consultation: %w", err))

		return false
	}

	if outcome.Action != nil {
		if err := conv.SetPendingAction(outcome.Action.Name, outcome.Action.Arguments); err != nil {
			e.failTurn(conv, err)

			return false
		}

		return true
	}

	if outcome.Reply != nil {
		if err := conv.SetFinalAnswer(outcome.Reply.Text); err != nil {
			e.failTurn(conv, err)

			return false
		}

		return true
	}

	e.failTurn(conv, &core.ProtocolError{Provider: "port", Reason: "model outcome carries neither action nor reply"})

	return false
}

// invokeTool executes the outstanding action through the gateway, writes
// the audit record and merges the result. The record is written before the
// result reaches the conversation; if the ledger is unavailable the turn
// fails and the result is discarded. Failed invocations are recorded too.
func (e *Engine) invokeTool(ctx context.Context, log logging.Logger, conv *core.Conversation) bool {
	pending := conv.Pending

	rec := core.AuditRecord{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC(),
		SessionID: conv.SessionID,
		ToolName:  pending.Name,
		Arguments: marshalJSON(pending.Arguments),
	}

	start := time.Now()

	// The record must outlive the caller: a turn cancelled while the tool
	// was running still has to leave the completed call on the ledger.
	recordCtx := context.WithoutCancel(ctx)

	value, invokeErr := e.invokeWithRetry(ctx, pending.Name, pending.Arguments)

	logging.LogToolCall(log, pending.Name, time.Since(start), invokeErr == nil, invokeErr)

	if invokeErr != nil {
		rec.Error = invokeErr.Error()

		if recErr := e.ledger.Record(recordCtx, rec); recErr != nil {
			log.Error("audit.record.failed", "tool", pending.Name, "error", recErr)
			e.failTurn(conv, fmt.Errorf("audit record: %w", recErr))

			return false
		}

		e.failTurn(conv, fmt.Errorf("tool %q: %w", pending.Name, invokeErr))

		return false
	}

	rec.Result = marshalJSON(value)

	if recErr := e.ledger.Record(recordCtx, rec); recErr != nil {
		log.Error("audit.record.failed", "tool", pending.Name, "error", recErr)
		e.failTurn(conv, fmt.Errorf("audit record: %w", recErr))

		return false
	}

	if err := conv.ClearPendingAction(core.ToolResult{ToolName: pending.Name, Content: rec.Result}); err != nil {
		e.failTurn(conv, err)

		return false
	}

	return true
}

// completeWithRetry calls the model port, retrying transient unavailability
// up to the configured attempt count.
func (e *Engine) completeWithRetry(ctx context.Context, history []core.Message) (core.ModelOutcome, error) {
	var (
		outcome core.ModelOutcome
		err     error
	)

	for attempt := 0; attempt <= e.config.MaxRetries; attempt++ {
		if attempt > 0 {
			if !e.sleep(ctx, e.config.RetryBackoff) {
				return core.ModelOutcome{}, ctx.Err()
			}
		}

		outcome, err = e.model.Complete(ctx, history)
		if err == nil {
			return outcome, nil
		}

		if !errors.Is(err, core.ErrModelUnavailable) {
			return core.ModelOutcome{}, err
		}
	}

	return core.ModelOutcome{}, err
}

// invokeWithRetry calls the tool gateway, retrying timeouts only. Unknown
// tools, validation failures and execution errors are not transient.
func (e *Engine) invokeWithRetry(ctx context.Context, name string, args map[string]any) (any, error) {
	var (
		value any
		err   error
	)

	for attempt := 0; attempt <= e.config.MaxRetries; attempt++ {
		if attempt > 0 {
			if !e.sleep(ctx, e.config.RetryBackoff) {
				return nil, ctx.Err()
			}
		}

		value, err = e.tools.Invoke(ctx, name, args)
		if err == nil {
			return value, nil
		}

		var toolErr *core.ToolError
		if !errors.As(err, &toolErr) || toolErr.Code != core.ToolCodeTimeout {
			return nil, err
		}
	}

	return nil, err
}

// failTurn drops any outstanding action and finishes the turn with a
// failure outcome carrying the error text.
func (e *Engine) failTurn(conv *core.Conversation, err error) {
	conv.DropPendingAction()
	conv.Finish(core.Outcome{Kind: core.OutcomeFailed, Err: err.Error()})
}

func (e *Engine) sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// marshalJSON serializes a value for the audit ledger. Serialization
// failures degrade to a quoted string rather than dropping the record.
func marshalJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%q", fmt.Sprint(v))
	}

	return string(b)
}
