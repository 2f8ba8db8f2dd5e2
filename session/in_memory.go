package session

import (
	"sync"

	"github.com/hupe1980/agentloop/core"
)

// InMemoryStore is a volatile ConversationStore implementation storing
// conversations in a process local map. It is safe for concurrent access and
// best suited for tests or ephemeral demo servers. Every conversation is
// cloned on both read and write so no caller ever aliases the stored value.
type InMemoryStore struct {
	mu            sync.RWMutex
	conversations map[string]*core.Conversation
}

// NewInMemoryStore constructs an empty in-memory conversation store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{conversations: make(map[string]*core.Conversation)}
}

// Get returns a snapshot of an existing conversation or core.ErrSessionNotFound.
func (s *InMemoryStore) Get(sessionID string) (*core.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.conversations[sessionID]
	if !ok {
		return nil, core.ErrSessionNotFound
	}
	return c.Clone(), nil
}

// GetOrCreate returns a snapshot, creating an empty conversation lazily on
// first contact with the session id.
func (s *InMemoryStore) GetOrCreate(sessionID string) (*core.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.conversations[sessionID]
	if !ok {
		c = core.NewConversation(sessionID)
		s.conversations[sessionID] = c
	}
	return c.Clone(), nil
}

// Put stores a clone of the provided conversation as the new authoritative state.
func (s *InMemoryStore) Put(c *core.Conversation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conversations[c.SessionID] = c.Clone()
	return nil
}
