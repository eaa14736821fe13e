package apptest

import (
	"context"
	"sync"

	"github.com/garyjia/sales-report-bot/internal/domain/entity"
)

// Sessions is a port.SessionStore without expiry
type Sessions struct {
	mu   sync.Mutex
	byID map[int64]entity.Session
}

// NewSessions creates an empty session store
func NewSessions() *Sessions {
	return &Sessions{byID: map[int64]entity.Session{}}
}

func (s *Sessions) Get(_ context.Context, userID int64) (*entity.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.byID[userID]
	if !ok {
		return nil, nil
	}
	return &sess, nil
}

func (s *Sessions) Save(_ context.Context, session *entity.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byID[session.UserID] = *session
	return nil
}

func (s *Sessions) Delete(_ context.Context, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.byID, userID)
	return nil
}

// Put stores a session as is
func (s *Sessions) Put(session entity.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byID[session.UserID] = session
}
