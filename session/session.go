package session

import (
	"context"
	"sync"
	"time"

	"github.com/hupe1980/agentloop/core"
)

// Session is a durable conversational container: the ordered role-tagged
// message history of one conversation plus a mutable key/value state bag
// shared across runs. It is safe for concurrent access.
//
// Contract:
//   - Message and state mutations update the Updated timestamp
//   - Messages returns a defensive copy to avoid external mutation
//   - Clone performs deep copies of maps/slices for safe divergence.
type Session struct {
	ID       string         `json:"id"`
	Messages []core.Content `json:"messages"`
	State    map[string]any `json:"state"`
	Created  time.Time      `json:"created"`
	Updated  time.Time      `json:"updated"`
	mu       sync.RWMutex
}

// NewSession creates an empty session with the given ID.
func NewSession(id string) *Session {
	now := time.Now()
	return &Session{ID: id, Messages: []core.Content{}, State: map[string]any{}, Created: now, Updated: now}
}

// Append adds messages to the end of the conversation history.
func (s *Session) Append(messages ...core.Content) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Messages = append(s.Messages, messages...)
	s.Updated = time.Now()
}

// SetMessages replaces the conversation history wholesale. Callers that feed
// a session into a run and persist the run's full history afterwards use this
// rather than computing an append delta.
func (s *Session) SetMessages(messages []core.Content) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Messages = make([]core.Content, len(messages))
	copy(s.Messages, messages)
	s.Updated = time.Now()
}

// History returns a copy of the conversation history.
func (s *Session) History() []core.Content {
	s.mu.RLock()
	defer s.mu.RUnlock()
	messages := make([]core.Content, len(s.Messages))
	copy(messages, s.Messages)
	return messages
}

// Len returns the number of messages in the history.
func (s *Session) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.Messages)
}

// GetState returns the value and existence flag for a state key.
func (s *Session) GetState(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.State[key]
	return v, ok
}

// SetState sets a key/value pair in session state.
func (s *Session) SetState(key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.State[key] = value
	s.Updated = time.Now()
}

// ApplyStateDelta merges the provided key/value pairs into State.
func (s *Session) ApplyStateDelta(delta map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, v := range delta {
		s.State[k] = v
	}
	s.Updated = time.Now()
}

// Clone returns a deep copy of the session safe for independent mutation.
func (s *Session) Clone() *Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	clone := &Session{ID: s.ID, Messages: make([]core.Content, len(s.Messages)), State: make(map[string]any, len(s.State)), Created: s.Created, Updated: s.Updated}
	copy(clone.Messages, s.Messages)
	for k, v := range s.State {
		clone.State[k] = v
	}
	return clone
}

// Store persists sessions keyed by ID. Get lazily creates a session when the
// ID is unknown, so callers never handle a missing-session case: ask for an
// ID, use the session, save it back.
type Store interface {
	Get(ctx context.Context, id string) (*Session, error)
	Save(ctx context.Context, sess *Session) error
	Delete(ctx context.Context, id string) error
}
