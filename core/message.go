package core

import "time"

// Role identifies the author class of a message in conversation history.
type Role string

const (
	// RoleUser marks a message supplied by the end user.
	RoleUser Role = "user"
	// RoleAssistant marks a message produced by the model.
	RoleAssistant Role = "assistant"
	// RoleToolResult marks the serialized result of a tool invocation.
	RoleToolResult Role = "tool-result"
)

// Message is one turn-unit of conversation history. Messages are immutable
// once appended; their position in Conversation.Messages is the causal
// conversation order.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
	// ActionName is set only for tool-result messages and names the tool
	// that produced the content.
	ActionName string    `json:"action_name,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// NewUserMessage constructs a user message stamped with the current UTC time.
func NewUserMessage(text string) Message {
	return Message{Role: RoleUser, Content: text, CreatedAt: time.Now().UTC()}
}

// NewAssistantMessage constructs an assistant message stamped with the current UTC time.
func NewAssistantMessage(text string) Message {
	return Message{Role: RoleAssistant, Content: text, CreatedAt: time.Now().UTC()}
}

// NewToolResultMessage constructs a tool-result message carrying the
// serialized output of the named tool.
func NewToolResultMessage(toolName, serialized string) Message {
	return Message{Role: RoleToolResult, Content: serialized, ActionName: toolName, CreatedAt: time.Now().UTC()}
}
