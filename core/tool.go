package core

import (
	"context"
	"fmt"
)

// Tool error codes used by gateways to classify invocation failures.
const (
	// ToolCodeUnknown means the requested tool name is not registered.
	ToolCodeUnknown = "UNKNOWN_TOOL"
	// ToolCodeValidation means the arguments failed schema validation.
	ToolCodeValidation = "VALIDATION_ERROR"
	// ToolCodeExecution means the tool ran and failed.
	ToolCodeExecution = "EXECUTION_ERROR"
	// ToolCodeTimeout means the tool exceeded its invocation deadline.
	ToolCodeTimeout = "TIMEOUT"
)

// ToolError represents errors that occur during tool resolution or execution.
type ToolError struct {
	Tool    string `json:"tool"`              // Name of the tool that failed
	Message string `json:"message"`           // Error message
	Code    string `json:"code"`              // Error code for categorization
	Details any    `json:"details,omitempty"` // Additional error details
}

func (e *ToolError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("tool error [%s] in %s: %s", e.Code, e.Tool, e.Message)
	}
	return fmt.Sprintf("tool error in %s: %s", e.Tool, e.Message)
}

// NewToolError creates a new ToolError with the specified details.
func NewToolError(tool, message, code string) *ToolError {
	return &ToolError{Tool: tool, Message: message, Code: code}
}

// ToolGateway invokes a named capability with arguments, returning a
// JSON-serializable result or a *ToolError. The gateway is responsible for
// name resolution only: routing a logical tool name to whichever backend
// serves it. It performs no auditing; recording invocations is the engine's
// responsibility so a call is recorded even when a gateway would have
// skipped its own bookkeeping.
type ToolGateway interface {
	Invoke(ctx context.Context, name string, args map[string]any) (any, error)
}
