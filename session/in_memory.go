// Package session provides implementations of the conversation memory store:
// a volatile in-memory store for tests and an SQLite-backed store that
// persists transcripts across restarts. Both return turns in insertion order
// and never mutate or delete an appended turn.
package session

import (
	"sync"

	"github.com/momentumhq/momentum/core"
)

// InMemoryStore is a volatile core.SessionStore keeping transcripts in a
// process-local map. Safe for concurrent access; returned sessions are clones
// so callers cannot mutate internal state.
type InMemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*core.Session
}

// NewInMemoryStore constructs an empty in-memory session store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{sessions: make(map[string]*core.Session)}
}

// Get returns an existing session (clone) or creates one lazily.
func (s *InMemoryStore) Get(threadID string) (*core.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[threadID]
	if !ok {
		sess = core.NewSession(threadID)
		s.sessions[threadID] = sess
	}
	return sess.Clone(), nil
}

// AppendEvent adds an event to an existing or newly created session.
func (s *InMemoryStore) AppendEvent(threadID string, ev core.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[threadID]
	if !ok {
		sess = core.NewSession(threadID)
		s.sessions[threadID] = sess
	}
	sess.AddEvent(ev)
	return nil
}
