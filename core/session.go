package core

import (
	"sync"
	"time"
)

// Session is the per-thread conversation container: an ordered, append-only
// event transcript. It is safe for concurrent access.
//
// Contract:
//   - AddEvent appends and updates the Updated timestamp
//   - Events returns a defensive copy in insertion order
//   - History filters to user/assistant/tool roles for model replay
//   - No event is ever mutated or deleted
type Session struct {
	ID      string    `json:"id"`
	Events  []Event   `json:"events"`
	Created time.Time `json:"created"`
	Updated time.Time `json:"updated"`
	mu      sync.RWMutex
}

// NewSession creates an empty session for the given thread id.
func NewSession(id string) *Session {
	now := time.Now().UTC()
	return &Session{ID: id, Events: []Event{}, Created: now, Updated: now}
}

// AddEvent appends an event to the transcript.
func (s *Session) AddEvent(ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Events = append(s.Events, ev)
	s.Updated = time.Now().UTC()
}

// GetEvents returns a copy of the full transcript in insertion order.
func (s *Session) GetEvents() []Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	events := make([]Event, len(s.Events))
	copy(events, s.Events)
	return events
}

// History returns the turns suitable for replay into the model: user,
// assistant and tool roles, in insertion order.
func (s *Session) History() []Content {
	s.mu.RLock()
	defer s.mu.RUnlock()
	allowed := map[string]bool{"user": true, "assistant": true, "tool": true}
	res := make([]Content, 0, len(s.Events))
	for _, ev := range s.Events {
		if ev.Content == nil || !allowed[ev.Content.Role] {
			continue
		}
		res = append(res, *ev.Content)
	}
	return res
}

// Clone returns a deep copy of the session safe for independent use.
func (s *Session) Clone() *Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	clone := &Session{ID: s.ID, Events: make([]Event, len(s.Events)), Created: s.Created, Updated: s.Updated}
	copy(clone.Events, s.Events)
	return clone
}

// SessionStore persists per-thread transcripts. Implementations must return
// events in insertion order and support unbounded append.
type SessionStore interface {
	// Get returns the session for a thread id, creating it lazily.
	Get(threadID string) (*Session, error)
	// AppendEvent adds one turn to a thread's transcript.
	AppendEvent(threadID string, ev Event) error
}
