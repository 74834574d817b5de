package chain

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Store is the SessionStore contract from spec.md §4.2. An alternative
// backing store (e.g. a remote key-value service) must preserve these
// semantics, including atomic replace; all of its errors must be
// normalized to *SessionError kinds.
type Store interface {
	Get(id uuid.UUID) (*Session, error)
	Save(s *Session) error
	Delete(id uuid.UUID) bool
	Cleanup(ttl time.Duration) []uuid.UUID
}

// MemoryStore is the reference SessionStore: a map guarded by a mutex,
// grounded on the teacher's package-level
// `playgrounds = map[uuid.UUID]*models.Playground{}` in
// backtester-api/router/handler.go, promoted into a proper owned type
// per DESIGN NOTES ("the store IS the owner").
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]*Session
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[uuid.UUID]*Session),
	}
}

func (s *MemoryStore) Get(id uuid.UUID) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[id]
	if !ok {
		return nil, NewNotFoundError(id)
	}

	return session.clone(), nil
}

// Save inserts or replaces the record for s.ID. If the caller left
// UpdatedAt stale (equal to what's already stored, or zero), Save
// bumps it to now — mirroring spec.md §4.2's "bumps updated_at to now
// if caller hasn't".
func (s *MemoryStore) Save(session *Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	if existing, ok := s.sessions[session.ID]; ok {
		if session.UpdatedAt.Equal(existing.UpdatedAt) || session.UpdatedAt.IsZero() {
			session.UpdatedAt = now
		}
	} else if session.UpdatedAt.IsZero() {
		session.UpdatedAt = now
	}

	s.sessions[session.ID] = session.clone()
	return nil
}

func (s *MemoryStore) Delete(id uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[id]; !ok {
		return false
	}

	delete(s.sessions, id)
	return true
}

// Cleanup removes every session whose updated_at+ttl has elapsed, or
// whose state is Completed/Error, and returns the reclaimed ids so the
// caller (SessionManager) can evict their cached paths too.
func (s *MemoryStore) Cleanup(ttl time.Duration) []uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	var reclaimed []uuid.UUID

	for id, session := range s.sessions {
		if !session.active(now, ttl) {
			reclaimed = append(reclaimed, id)
			delete(s.sessions, id)
		}
	}

	return reclaimed
}
