package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// memoryStore implements Store with an in-memory map. Expiry is evaluated
// lazily on access; a periodic sweep (cleanup.go) removes idle entries that
// are never touched again.
type memoryStore struct {
	mu       sync.Mutex
	sessions map[string]*Session
	locks    map[string]*sync.Mutex
	ttl      time.Duration
	now      func() time.Time
}

// NewMemoryStore creates an in-memory session store. A non-positive ttl uses
// DefaultTTL.
func NewMemoryStore(ttl time.Duration) Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &memoryStore{
		sessions: make(map[string]*Session),
		locks:    make(map[string]*sync.Mutex),
		ttl:      ttl,
		now:      time.Now,
	}
}

// GetOrCreate returns the live session for id, or a fresh one when id is
// empty, unknown, or expired.
func (s *memoryStore) GetOrCreate(_ context.Context, id string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()

	if id != "" {
		if sess, ok := s.sessions[id]; ok {
			if now.Sub(sess.LastActivity) > s.ttl {
				delete(s.sessions, id)
				delete(s.locks, id)
				slog.Debug("expired session evicted", "session_id", id)
			} else {
				sess.LastActivity = now
				return sess, nil
			}
		}
	}

	sess := &Session{
		ID:           uuid.NewString(),
		CreatedAt:    now,
		LastActivity: now,
		Collected:    make(map[string]string),
		History:      []Message{},
		Stage:        StageInitial,
	}
	s.sessions[sess.ID] = sess
	slog.Debug("session created", "session_id", sess.ID)
	return sess, nil
}

// Get returns the session or ErrNotFound.
func (s *memoryStore) Get(_ context.Context, id string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	if s.now().Sub(sess.LastActivity) > s.ttl {
		delete(s.sessions, id)
		delete(s.locks, id)
		return nil, ErrNotFound
	}
	return sess, nil
}

// Delete removes the session.
func (s *memoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[id]; !ok {
		return ErrNotFound
	}
	delete(s.sessions, id)
	delete(s.locks, id)
	return nil
}

// Lock acquires the per-session turn lock. Concurrent turns against the same
// session id serialize here instead of interleaving writes to the collected
// slots map.
func (s *memoryStore) Lock(id string) func() {
	s.mu.Lock()
	mu, ok := s.locks[id]
	if !ok {
		mu = &sync.Mutex{}
		s.locks[id] = mu
	}
	s.mu.Unlock()

	mu.Lock()
	return mu.Unlock
}

// CleanupExpired removes all sessions idle longer than the TTL.
func (s *memoryStore) CleanupExpired(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	var removed int64
	for id, sess := range s.sessions {
		if now.Sub(sess.LastActivity) > s.ttl {
			delete(s.sessions, id)
			delete(s.locks, id)
			removed++
		}
	}

	// Lock may be called with ids that never had a session (a lookup of an
	// unknown id still locks before checking); drop those entries too.
	for id := range s.locks {
		if _, ok := s.sessions[id]; !ok {
			delete(s.locks, id)
		}
	}
	return removed, nil
}

var _ Store = (*memoryStore)(nil)
