// Package session provides submission session stores.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/garyjia/sales-report-bot/internal/application/port"
	"github.com/garyjia/sales-report-bot/internal/domain/entity"
)

// MemoryStore keeps sessions in process memory. A session expires ttl after
// its last save; expired sessions are invisible to Get and removed by Sweep.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[int64]entity.Session
	ttl      time.Duration
	now      func() time.Time
}

// NewMemoryStore creates a store; ttl <= 0 disables expiry
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		sessions: make(map[int64]entity.Session),
		ttl:      ttl,
		now:      time.Now,
	}
}

func (s *MemoryStore) expired(sess entity.Session, now time.Time) bool {
	return s.ttl > 0 && now.Sub(sess.UpdatedAt) > s.ttl
}

// Get returns a copy of the user's live session
func (s *MemoryStore) Get(_ context.Context, userID int64) (*entity.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[userID]
	if !ok || s.expired(sess, s.now()) {
		return nil, nil
	}
	return &sess, nil
}

// Save stores a copy of the session and refreshes its expiry
func (s *MemoryStore) Save(_ context.Context, sess *entity.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess.UpdatedAt = s.now()
	s.sessions[sess.UserID] = *sess
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, userID)
	return nil
}

// Sweep drops expired sessions and returns how many were removed
func (s *MemoryStore) Sweep(_ context.Context) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for id, sess := range s.sessions {
		if s.expired(sess, now) {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}

// Len returns the number of stored sessions, expired ones included
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

var _ port.SessionStore = (*MemoryStore)(nil)
