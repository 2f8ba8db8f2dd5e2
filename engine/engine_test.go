package engine

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentloop/audit"
	auditsqlite "github.com/hupe1980/agentloop/audit/sqlite"
	"github.com/hupe1980/agentloop/core"
	"github.com/hupe1980/agentloop/model"
	"github.com/hupe1980/agentloop/session"
	"github.com/hupe1980/agentloop/tool"
)

func newEchoRegistry(t *testing.T) *tool.Registry {
	t.Helper()

	registry := tool.NewRegistry()
	registry.Register(tool.NewFunctionTool(
		"search", "Search the document index.",
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"q": map[string]any{"type": "string"},
			},
			"required": []string{"q"},
		},
		func(_ context.Context, args map[string]any) (any, error) {
			return map[string]any{"hits": []string{fmt.Sprintf("doc about %v", args["q"])}}, nil
		},
	))

	return registry
}

func TestStartOrContinueTurn_FinalReply(t *testing.T) {
	mock := model.NewMock().QueueReply("hi")
	ledger := audit.NewInMemoryLedger()
	e := New(mock, newEchoRegistry(t), func(o *Options) { o.Ledger = ledger })

	conv, err := e.StartOrContinueTurn(context.Background(), "s1", "hello")
	require.NoError(t, err)

	require.NotNil(t, conv.FinalAnswer)
	assert.Equal(t, "hi", *conv.FinalAnswer)
	require.NotNil(t, conv.Outcome)
	assert.Equal(t, core.OutcomeCompleted, conv.Outcome.Kind)
	assert.Nil(t, conv.Pending)
	assert.Equal(t, 1, mock.Calls())

	// No tool ran, so the ledger stays empty.
	recs, err := ledger.List(context.Background(), "s1", 0)
	require.NoError(t, err)
	assert.Empty(t, recs)

	require.Len(t, conv.Messages, 2)
	assert.Equal(t, core.RoleUser, conv.Messages[0].Role)
	assert.Equal(t, core.RoleAssistant, conv.Messages[1].Role)
}

func TestStartOrContinueTurn_ToolRoundTrip(t *testing.T) {
	mock := model.NewMock().
		QueueAction("search", map[string]any{"q": "weather"}).
		QueueReply("found it")
	ledger := audit.NewInMemoryLedger()
	e := New(mock, newEchoRegistry(t), func(o *Options) { o.Ledger = ledger })

	conv, err := e.StartOrContinueTurn(context.Background(), "s1", "search the weather")
	require.NoError(t, err)

	require.NotNil(t, conv.FinalAnswer)
	assert.Equal(t, "found it", *conv.FinalAnswer)
	assert.Nil(t, conv.Pending)
	require.NotNil(t, conv.LastToolResult)
	assert.Equal(t, "search", conv.LastToolResult.ToolName)
	assert.Equal(t, 2, mock.Calls())

	recs, err := ledger.List(context.Background(), "s1", 0)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "search", recs[0].ToolName)
	assert.Contains(t, recs[0].Arguments, "weather")
	assert.NotEmpty(t, recs[0].Result)
	assert.Empty(t, recs[0].Error)

	// user, tool result, assistant
	require.Len(t, conv.Messages, 3)
	assert.Equal(t, core.RoleToolResult, conv.Messages[1].Role)
	assert.Equal(t, "search", conv.Messages[1].ActionName)
}

func TestStartOrContinueTurn_UnknownTool(t *testing.T) {
	mock := model.NewMock().QueueAction("no_such_tool", map[string]any{})
	ledger := audit.NewInMemoryLedger()
	e := New(mock, newEchoRegistry(t), func(o *Options) { o.Ledger = ledger })

	conv, err := e.StartOrContinueTurn(context.Background(), "s1", "do the thing")
	require.NoError(t, err)

	assert.Nil(t, conv.FinalAnswer)
	assert.Nil(t, conv.Pending)
	require.NotNil(t, conv.Outcome)
	assert.Equal(t, core.OutcomeFailed, conv.Outcome.Kind)
	assert.Contains(t, conv.Outcome.Err, core.ToolCodeUnknown)

	// The failed attempt is still on the ledger.
	recs, err := ledger.List(context.Background(), "s1", 0)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "no_such_tool", recs[0].ToolName)
	assert.Empty(t, recs[0].Result)
	assert.NotEmpty(t, recs[0].Error)
}

func TestStartOrContinueTurn_StepBudget(t *testing.T) {
	// The script's last step repeats, so the model keeps requesting tools.
	mock := model.NewMock().QueueAction("search", map[string]any{"q": "loop"})
	ledger := audit.NewInMemoryLedger()
	e := New(mock, newEchoRegistry(t), func(o *Options) {
		o.Config.StepBudget = 3
		o.Ledger = ledger
	})

	conv, err := e.StartOrContinueTurn(context.Background(), "s1", "go")
	require.NoError(t, err)

	require.NotNil(t, conv.Outcome)
	assert.Equal(t, core.OutcomeStepBudgetExceeded, conv.Outcome.Kind)
	assert.Equal(t, 3, mock.Calls())

	recs, err := ledger.List(context.Background(), "s1", 0)
	require.NoError(t, err)
	assert.Len(t, recs, 3)
}

func TestStartOrContinueTurn_SessionBusy(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})

	registry := tool.NewRegistry()
	registry.Register(tool.NewFunctionTool(
		"block", "Blocks until released.", map[string]any{"type": "object", "properties": map[string]any{}},
		func(_ context.Context, _ map[string]any) (any, error) {
			close(started)
			<-release

			return "done", nil
		},
	))

	mock := model.NewMock().
		QueueAction("block", map[string]any{}).
		QueueReply("finished")
	e := New(mock, registry)

	done := make(chan error, 1)

	go func() {
		_, err := e.StartOrContinueTurn(context.Background(), "s1", "first")
		done <- err
	}()

	<-started

	_, err := e.StartOrContinueTurn(context.Background(), "s1", "second")
	assert.ErrorIs(t, err, ErrSessionBusy)

	// Other sessions are unaffected.
	other := New(model.NewMock().QueueReply("hi"), registry)
	_, err = other.StartOrContinueTurn(context.Background(), "s2", "hello")
	assert.NoError(t, err)

	close(release)
	require.NoError(t, <-done)

	// The session is free again once the turn finishes.
	conv, err := e.StartOrContinueTurn(context.Background(), "s1", "third")
	require.NoError(t, err)
	require.NotNil(t, conv.FinalAnswer)
}

func TestStartOrContinueTurn_AuditUnavailable(t *testing.T) {
	mock := model.NewMock().
		QueueAction("search", map[string]any{"q": "x"}).
		QueueReply("never reached")
	ledger := audit.NewInMemoryLedger()
	ledger.SetUnavailable(true)
	e := New(mock, newEchoRegistry(t), func(o *Options) { o.Ledger = ledger })

	conv, err := e.StartOrContinueTurn(context.Background(), "s1", "search x")
	require.NoError(t, err)

	require.NotNil(t, conv.Outcome)
	assert.Equal(t, core.OutcomeFailed, conv.Outcome.Kind)
	assert.Contains(t, conv.Outcome.Err, core.ErrAuditUnavailable.Error())

	// The result never reached the conversation.
	assert.Nil(t, conv.LastToolResult)
	assert.Nil(t, conv.Pending)

	for _, m := range conv.Messages {
		assert.NotEqual(t, core.RoleToolResult, m.Role)
	}
}

func TestStartOrContinueTurn_CancelledBeforeFirstStep(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	mock := model.NewMock().QueueReply("unused")
	e := New(mock, newEchoRegistry(t))

	conv, err := e.StartOrContinueTurn(ctx, "s1", "hello")
	require.NoError(t, err)

	require.NotNil(t, conv.Outcome)
	assert.Equal(t, core.OutcomeCancelled, conv.Outcome.Kind)
	assert.Equal(t, 0, mock.Calls())
}

// cancellingGateway completes one invocation and cancels the turn context,
// simulating a caller that gives up while a tool is running.
type cancellingGateway struct {
	cancel context.CancelFunc
}

func (g *cancellingGateway) Invoke(_ context.Context, _ string, _ map[string]any) (any, error) {
	g.cancel()

	return "partial", nil
}

func TestStartOrContinueTurn_CancelledBetweenSteps(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mock := model.NewMock().
		QueueAction("search", map[string]any{}).
		QueueReply("unreached")
	ledger := audit.NewInMemoryLedger()
	e := New(mock, &cancellingGateway{cancel: cancel}, func(o *Options) { o.Ledger = ledger })

	conv, err := e.StartOrContinueTurn(ctx, "s1", "go")
	require.NoError(t, err)

	require.NotNil(t, conv.Outcome)
	assert.Equal(t, core.OutcomeCancelled, conv.Outcome.Kind)
	assert.Nil(t, conv.FinalAnswer)
	assert.Equal(t, 1, mock.Calls())

	// The tool call that completed before cancellation stays recorded and
	// its result stays merged.
	recs, err := ledger.List(context.Background(), "s1", 0)
	require.NoError(t, err)
	assert.Len(t, recs, 1)
	require.NotNil(t, conv.LastToolResult)
}

func TestStartOrContinueTurn_CancelledTurnStillRecordsOnSqlite(t *testing.T) {
	ledger, err := auditsqlite.New(filepath.Join(t.TempDir(), "audit.db"))
	require.NoError(t, err)
	defer ledger.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mock := model.NewMock().
		QueueAction("search", map[string]any{}).
		QueueReply("unreached")
	e := New(mock, &cancellingGateway{cancel: cancel}, func(o *Options) { o.Ledger = ledger })

	conv, err := e.StartOrContinueTurn(ctx, "s1", "go")
	require.NoError(t, err)

	require.NotNil(t, conv.Outcome)
	assert.Equal(t, core.OutcomeCancelled, conv.Outcome.Kind)

	// The completed call survived the cancelled caller context.
	recs, err := ledger.List(context.Background(), "s1", 0)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "search", recs[0].ToolName)
	assert.NotEmpty(t, recs[0].Result)
}

func TestStartOrContinueTurn_ModelRetry(t *testing.T) {
	mock := model.NewMock().
		QueueError(core.ErrModelUnavailable).
		QueueReply("recovered")
	e := New(mock, newEchoRegistry(t), func(o *Options) {
		o.Config.MaxRetries = 1
		o.Config.RetryBackoff = time.Millisecond
	})

	conv, err := e.StartOrContinueTurn(context.Background(), "s1", "hello")
	require.NoError(t, err)

	require.NotNil(t, conv.FinalAnswer)
	assert.Equal(t, "recovered", *conv.FinalAnswer)
	assert.Equal(t, 2, mock.Calls())
}

func TestStartOrContinueTurn_ModelUnavailableFailsTurn(t *testing.T) {
	mock := model.NewMock().QueueError(core.ErrModelUnavailable)
	e := New(mock, newEchoRegistry(t))

	conv, err := e.StartOrContinueTurn(context.Background(), "s1", "hello")
	require.NoError(t, err)

	require.NotNil(t, conv.Outcome)
	assert.Equal(t, core.OutcomeFailed, conv.Outcome.Kind)
	assert.Contains(t, conv.Outcome.Err, core.ErrModelUnavailable.Error())
	assert.Equal(t, 1, mock.Calls())
}

func TestStartOrContinueTurn_RejectsEmptyInput(t *testing.T) {
	e := New(model.NewMock(), newEchoRegistry(t))

	_, err := e.StartOrContinueTurn(context.Background(), "", "hello")
	assert.Error(t, err)

	_, err = e.StartOrContinueTurn(context.Background(), "s1", "   ")
	assert.Error(t, err)
}

func TestStartOrContinueTurn_FailureDoesNotPoisonSession(t *testing.T) {
	mock := model.NewMock().
		QueueError(errors.New("boom")).
		QueueReply("back on track")
	e := New(mock, newEchoRegistry(t))

	conv, err := e.StartOrContinueTurn(context.Background(), "s1", "first")
	require.NoError(t, err)
	require.NotNil(t, conv.Outcome)
	assert.Equal(t, core.OutcomeFailed, conv.Outcome.Kind)

	conv, err = e.StartOrContinueTurn(context.Background(), "s1", "second")
	require.NoError(t, err)
	require.NotNil(t, conv.FinalAnswer)
	assert.Equal(t, "back on track", *conv.FinalAnswer)
	assert.Equal(t, core.OutcomeCompleted, conv.Outcome.Kind)
}

func TestGetState(t *testing.T) {
	store := session.NewInMemoryStore()
	e := New(model.NewMock().QueueReply("hi"), newEchoRegistry(t), func(o *Options) { o.Store = store })

	_, err := e.GetState("missing")
	assert.ErrorIs(t, err, core.ErrSessionNotFound)

	_, err = e.StartOrContinueTurn(context.Background(), "s1", "hello")
	require.NoError(t, err)

	snap, err := e.GetState("s1")
	require.NoError(t, err)
	require.NotNil(t, snap.FinalAnswer)

	// Snapshots never alias live state.
	snap.Messages[0].Content = "tampered"

	again, err := e.GetState("s1")
	require.NoError(t, err)
	assert.Equal(t, "hello", again.Messages[0].Content)
}

func TestGetAudit(t *testing.T) {
	mock := model.NewMock().
		QueueAction("search", map[string]any{"q": "a"}).
		QueueAction("search", map[string]any{"q": "b"}).
		QueueReply("done")
	e := New(mock, newEchoRegistry(t))

	_, err := e.StartOrContinueTurn(context.Background(), "s1", "go")
	require.NoError(t, err)

	recs, err := e.GetAudit(context.Background(), "s1", 0)
	require.NoError(t, err)
	require.Len(t, recs, 2)

	// Newest first.
	assert.Contains(t, recs[0].Arguments, "b")
	assert.Contains(t, recs[1].Arguments, "a")
}
