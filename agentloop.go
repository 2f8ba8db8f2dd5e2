// Package agentloop provides a high-level façade over the turn engine and
// its service abstractions (model ports, tools, sessions, the audit ledger
// & logging). Most applications interact with this package by:
//  1. Creating an AgentLoop via New() with a model port (optionally
//     overriding the default in-memory services)
//  2. Registering one or more tools
//  3. Running turns with Chat()
//
// The façade delegates orchestration to engine.Engine while keeping setup
// and usage ergonomics concise. All defaults are safe for local development
// and testing; production deployments typically supply the sqlite-backed
// ledger and index plus a structured logger.
package agentloop

import (
	"context"

	"github.com/hupe1980/agentloop/audit"
	"github.com/hupe1980/agentloop/core"
	"github.com/hupe1980/agentloop/engine"
	"github.com/hupe1980/agentloop/logging"
	"github.com/hupe1980/agentloop/session"
	"github.com/hupe1980/agentloop/tool"
)

// Options configures the AgentLoop instance.
type Options struct {
	// Engine configuration (step budget, retries)
	EngineConfig engine.Config

	// Stores (default to in-memory implementations if not provided)
	Store  core.ConversationStore
	Ledger core.AuditLedger

	// Logger (defaults to NoOp logger if nil)
	Logger logging.Logger
}

// AgentLoop is the high-level façade aggregating the engine and its services.
type AgentLoop struct {
	opts     Options
	registry *tool.Registry
	engine   *engine.Engine
}

// New creates a new AgentLoop around the given model port. Any unset
// service is initialized with an in-memory implementation.
func New(port core.ModelPort, optFns ...func(o *Options)) *AgentLoop {
	opts := Options{
		EngineConfig: engine.DefaultConfig(),
		Store:        session.NewInMemoryStore(),
		Ledger:       audit.NewInMemoryLedger(),
		Logger:       logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	registry := tool.NewRegistry(func(o *tool.RegistryOptions) {
		o.Logger = opts.Logger
	})

	e := engine.New(port, registry, func(o *engine.Options) {
		o.Config = opts.EngineConfig
		o.Store = opts.Store
		o.Ledger = opts.Ledger
		o.Logger = opts.Logger
	})

	return &AgentLoop{opts: opts, registry: registry, engine: e}
}

// RegisterTool adds a tool to the underlying registry. Registered tools
// become invocable by name and are advertised to model ports via Specs.
func (l *AgentLoop) RegisterTool(t tool.Tool) { l.registry.Register(t) }

// Registry exposes the tool registry, e.g. to pass Specs() to a model port.
func (l *AgentLoop) Registry() *tool.Registry { return l.registry }

// Chat runs one turn for the session and returns the terminal conversation
// snapshot.
func (l *AgentLoop) Chat(ctx context.Context, sessionID, input string) (*core.Conversation, error) {
	return l.engine.StartOrContinueTurn(ctx, sessionID, input)
}

// State returns the session's conversation snapshot.
func (l *AgentLoop) State(sessionID string) (*core.Conversation, error) {
	return l.engine.GetState(sessionID)
}

// Audit returns the session's tool invocation records, newest first.
func (l *AgentLoop) Audit(ctx context.Context, sessionID string, limit int) ([]core.AuditRecord, error) {
	return l.engine.GetAudit(ctx, sessionID, limit)
}
