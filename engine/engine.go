package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/hupe1980/agentloop/audit"
	"github.com/hupe1980/agentloop/core"
	"github.com/hupe1980/agentloop/logging"
	"github.com/hupe1980/agentloop/session"
)

// ErrSessionBusy is returned when a turn is started for a session that
// already has a turn in flight. The caller should retry once the running
// turn has finished; the engine never queues turns.
var ErrSessionBusy = errors.New("engine: session busy")

// Config controls turn execution.
type Config struct {
	// StepBudget caps the number of model consultations per turn. A turn
	// that reaches the cap finishes with OutcomeStepBudgetExceeded.
	StepBudget int

	// MaxRetries is the number of additional attempts for transient model
	// and tool failures within a single step. Zero disables retries.
	MaxRetries int

	// RetryBackoff is the pause between retry attempts.
	RetryBackoff time.Duration
}

// DefaultConfig returns the configuration used when none is supplied.
func DefaultConfig() Config {
	return Config{
		StepBudget:   10,
		MaxRetries:   0,
		RetryBackoff: 200 * time.Millisecond,
	}
}

// Options configures the engine.
type Options struct {
	Config Config

	// Store holds conversations between turns. Defaults to an in-memory
	// store.
	Store core.ConversationStore

	// Ledger receives one record per tool invocation. Defaults to an
	// in-memory ledger.
	Ledger core.AuditLedger

	Logger logging.Logger
}

// Engine runs agent turns against a model port and a tool gateway.
type Engine struct {
	model  core.ModelPort
	tools  core.ToolGateway
	store  core.ConversationStore
	ledger core.AuditLedger
	logger logging.Logger
	config Config

	mu       sync.Mutex
	inflight map[string]struct{}
}

// New creates an engine for the given model port and tool gateway.
func New(model core.ModelPort, tools core.ToolGateway, optFns ...func(o *Options)) *Engine {
	opts := Options{
		Config: DefaultConfig(),
		Logger: logging.NewDefaultSlogLogger(),
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Config.StepBudget <= 0 {
		opts.Config.StepBudget = DefaultConfig().StepBudget
	}
	if opts.Config.RetryBackoff <= 0 {
		opts.Config.RetryBackoff = DefaultConfig().RetryBackoff
	}
	if opts.Store == nil {
		opts.Store = session.NewInMemoryStore()
	}
	if opts.Ledger == nil {
		opts.Ledger = audit.NewInMemoryLedger()
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}

	return &Engine{
		model:    model,
		tools:    tools,
		store:    opts.Store,
		ledger:   opts.Ledger,
		logger:   opts.Logger,
		config:   opts.Config,
		inflight: make(map[string]struct{}),
	}
}

// StartOrContinueTurn appends userText to the session's conversation and
// runs the turn loop until the conversation reaches a terminal outcome.
// It returns the resulting conversation snapshot. A second call for the
// same session while a turn is running fails with ErrSessionBusy.
func (e *Engine) StartOrContinueTurn(ctx context.Context, sessionID, userText string) (*core.Conversation, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, fmt.Errorf("engine: session id must not be empty")
	}
	if strings.TrimSpace(userText) == "" {
		return nil, fmt.Errorf("engine: user input must not be empty")
	}

	if !e.acquire(sessionID) {
		return nil, fmt.Errorf("%w: session %q", ErrSessionBusy, sessionID)
	}
	defer e.release(sessionID)

	conv, err := e.store.GetOrCreate(sessionID)
	if err != nil {
		return nil, fmt.Errorf("load conversation: %w", err)
	}

	conv.BeginTurn(userText)

	e.runTurn(ctx, conv)

	if err := e.store.Put(conv); err != nil {
		return nil, fmt.Errorf("persist conversation: %w", err)
	}

	return conv, nil
}

// GetState returns a snapshot of the session's conversation. It fails
// with core.ErrSessionNotFound when the session does not exist.
func (e *Engine) GetState(sessionID string) (*core.Conversation, error) {
	return e.store.Get(sessionID)
}

// GetAudit returns the session's tool invocation records, newest first.
func (e *Engine) GetAudit(ctx context.Context, sessionID string, limit int) ([]core.AuditRecord, error) {
	return e.ledger.List(ctx, sessionID, limit)
}

func (e *Engine) acquire(sessionID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.inflight[sessionID]; ok {
		return false
	}

	e.inflight[sessionID] = struct{}{}

	return true
}

func (e *Engine) release(sessionID string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	delete(e.inflight, sessionID)
}
