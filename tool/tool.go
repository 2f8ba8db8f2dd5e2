// Package tool implements the capability subsystem that lets the engine
// invoke structured tools (APIs, retrieval, computations) with schema
// validated arguments and consistent error handling. The Registry type is
// the concrete core.ToolGateway used in production wiring.
package tool

import (
	"context"

	"github.com/hupe1980/agentloop/core"
)

// Tool defines a single invocable capability.
//
// Tool implementations should:
//   - Provide clear, descriptive names (snake_case recommended) and descriptions
//   - Define proper JSON schema for parameters
//   - Honor ctx cancellation in Call
//   - Be safe for concurrent use
type Tool interface {
	// Name returns the unique identifier for this tool.
	Name() string

	// Description returns a human-readable description of what this tool does.
	// It is provided to the model to help it decide when to use the tool.
	Description() string

	// Parameters returns a JSON schema describing the expected input format.
	Parameters() map[string]any

	// Call executes the tool with already-parsed arguments. The returned
	// value must be JSON-serializable; failures should be *core.ToolError.
	Call(ctx context.Context, args map[string]any) (any, error)
}

// ToolError is re-exported from core for convenience at tool call sites.
type ToolError = core.ToolError

// ValidationError represents parameter validation errors with detailed information.
type ValidationError struct {
	Field   string `json:"field"`   // Field that failed validation
	Value   any    `json:"value"`   // Value that was provided
	Message string `json:"message"` // Human-readable error message
}

func (e *ValidationError) Error() string {
	return "validation error for field '" + e.Field + "': " + e.Message
}
