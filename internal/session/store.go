// Package session owns the in-memory conversation state. A session exists
// only between a participant's first message and the expiry sweep; nothing
// here survives a restart.
package session

import (
	"sync"
	"time"
)

// Role identifies who produced a Turn.
type Role string

const (
	RoleUser  Role = "user"
	RoleAgent Role = "agent"
)

// Turn is one message in a conversation, append-only within a session.
type Turn struct {
	Role Role
	Text string
}

// Expired is the immutable snapshot of an evicted session handed to the
// sweep for analysis.
type Expired struct {
	Identity string
	Endpoint string
	Turns    []Turn
}

// Clock abstracts time for testability.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

type entry struct {
	turns        []Turn
	lastActivity time.Time
	endpoint     string
}

// Store is a guarded mapping of conversation identity to ordered message
// history. The request path appends turns; the background sweep evicts
// idle sessions. A single coarse mutex protects the map — per-identity
// traffic is serialized by the messaging platform, and cross-identity
// contention is negligible at this scale.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*entry
	clock    Clock
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{
		sessions: make(map[string]*entry),
		clock:    realClock{},
	}
}

// NewStoreWithClock creates a Store with a custom clock (for testing).
func NewStoreWithClock(clock Clock) *Store {
	return &Store{
		sessions: make(map[string]*entry),
		clock:    clock,
	}
}

// Append records a turn for the given identity, creating the session on
// first contact, and refreshes the activity timestamp. The returned slice
// is a snapshot of the full history after the append.
func (s *Store) Append(identity, endpoint string, turn Turn) []Turn {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.sessions[identity]
	if !ok {
		e = &entry{}
		s.sessions[identity] = e
	}
	e.turns = append(e.turns, turn)
	e.lastActivity = s.clock.Now()
	e.endpoint = endpoint

	out := make([]Turn, len(e.turns))
	copy(out, e.turns)
	return out
}

// History returns a snapshot of the identity's turns and whether a session
// is currently active.
func (s *Store) History(identity string) ([]Turn, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.sessions[identity]
	if !ok {
		return nil, false
	}
	out := make([]Turn, len(e.turns))
	copy(out, e.turns)
	return out, true
}

// Len returns the number of active sessions.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// CollectExpired evicts every session whose last activity is older than
// timeout and returns snapshots of the evicted histories. Collection and
// eviction happen atomically under the lock, so sessions created (or
// touched) concurrently are never lost mid-iteration; analysis of the
// snapshots happens outside the lock.
func (s *Store) CollectExpired(timeout time.Duration) []Expired {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	var expired []Expired
	for identity, e := range s.sessions {
		if now.Sub(e.lastActivity) <= timeout {
			continue
		}
		turns := make([]Turn, len(e.turns))
		copy(turns, e.turns)
		expired = append(expired, Expired{
			Identity: identity,
			Endpoint: e.endpoint,
			Turns:    turns,
		})
		delete(s.sessions, identity)
	}
	return expired
}
