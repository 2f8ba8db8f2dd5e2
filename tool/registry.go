package tool

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sort"
	"sync"
	"time"

	"github.com/hupe1980/agentloop/core"
	"github.com/hupe1980/agentloop/logging"
	"github.com/hupe1980/agentloop/model"
)

// RegistryOptions configures a Registry.
type RegistryOptions struct {
	// Timeout bounds every invocation; expiry yields a TIMEOUT tool error.
	// 0 disables the per-call deadline (the caller's ctx still applies).
	Timeout time.Duration
	// Logger receives structured invocation logs. Defaults to NoOp.
	Logger logging.Logger
}

// Registry is the concrete core.ToolGateway: it resolves logical tool names
// to registered implementations and executes them with a per-call deadline
// and panic containment. It performs no auditing; recording invocations is
// the engine's responsibility.
//
// Registration is thread-safe; complete it during initialization before
// starting turns to avoid replacing tools mid-conversation.
type Registry struct {
	mu      sync.RWMutex
	tools   map[string]Tool
	timeout time.Duration
	logger  logging.Logger
}

// NewRegistry constructs an empty registry with a 30s default invocation timeout.
func NewRegistry(optFns ...func(o *RegistryOptions)) *Registry {
	opts := RegistryOptions{
		Timeout: 30 * time.Second,
		Logger:  logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Registry{tools: make(map[string]Tool), timeout: opts.Timeout, logger: opts.Logger}
}

// Register makes a tool available for invocation by its name. A tool with
// the same name replaces the previous registration.
func (r *Registry) Register(t Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[t.Name()] = t
}

// Specs returns the tool specifications to expose to a model provider,
// sorted by name for deterministic declarations.
func (r *Registry) Specs() []model.ToolSpec {
	r.mu.RLock()
	defer r.mu.RUnlock()
	specs := make([]model.ToolSpec, 0, len(r.tools))
	for _, t := range r.tools {
		specs = append(specs, model.ToolSpec{Name: t.Name(), Description: t.Description(), Parameters: t.Parameters()})
	}
	sort.Slice(specs, func(i, j int) bool { return specs[i].Name < specs[j].Name })
	return specs
}

// Invoke implements core.ToolGateway. Failures are always *core.ToolError:
// UNKNOWN_TOOL for unresolved names, TIMEOUT when the deadline expires
// before the tool returns, EXECUTION_ERROR for panics and other failures.
func (r *Registry) Invoke(ctx context.Context, name string, args map[string]any) (any, error) {
	r.mu.RLock()
	impl, ok := r.tools[name]
	r.mu.RUnlock()
	if !ok {
		return nil, core.NewToolError(name, "tool not registered", core.ToolCodeUnknown)
	}

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	r.logger.Debug("tool.invoke.start", "tool", name)
	start := time.Now()

	type callResult struct {
		value any
		err   error
	}
	done := make(chan callResult, 1)

	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				r.logger.Error("tool.invoke.panic", "tool", name, "recover", rec)
				done <- callResult{err: &core.ToolError{
					Tool:    name,
					Message: fmt.Sprintf("panic: %v", rec),
					Code:    core.ToolCodeExecution,
					Details: string(debug.Stack()),
				}}
			}
		}()
		value, err := impl.Call(ctx, args)
		done <- callResult{value: value, err: err}
	}()

	select {
	case <-ctx.Done():
		// Only a deadline counts as a timeout; caller cancellation must not
		// be classified as transient.
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			r.logger.Warn("tool.invoke.timeout", "tool", name, "duration_ms", time.Since(start).Milliseconds())
			return nil, core.NewToolError(name, ctx.Err().Error(), core.ToolCodeTimeout)
		}
		r.logger.Warn("tool.invoke.cancelled", "tool", name, "duration_ms", time.Since(start).Milliseconds())
		return nil, core.NewToolError(name, ctx.Err().Error(), core.ToolCodeExecution)
	case res := <-done:
		r.logger.Info(
			"tool.invoke.done",
			"tool", name,
			"duration_ms", time.Since(start).Milliseconds(),
			"error", res.err != nil,
		)
		if res.err != nil {
			if toolErr, ok := res.err.(*core.ToolError); ok {
				return nil, toolErr
			}
			return nil, core.NewToolError(name, res.err.Error(), core.ToolCodeExecution)
		}
		return res.value, nil
	}
}
