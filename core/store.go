package core

import "errors"

// ErrSessionNotFound is returned by ConversationStore.Get for unknown ids.
var ErrSessionNotFound = errors.New("session not found")

// ConversationStore persists conversations keyed by session id. The store
// holds the authoritative copy: implementations must hand out clones on Get
// and store clones on Put so no caller ever aliases the stored value.
type ConversationStore interface {
	// Get returns a snapshot of the conversation, or ErrSessionNotFound.
	Get(sessionID string) (*Conversation, error)

	// GetOrCreate returns a snapshot of the conversation, creating an empty
	// one on first contact with the session id.
	GetOrCreate(sessionID string) (*Conversation, error)

	// Put stores a snapshot of the conversation as the new authoritative
	// state for its session id.
	Put(c *Conversation) error
}
