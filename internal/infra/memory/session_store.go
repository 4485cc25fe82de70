package memory

import (
	"context"
	"sync"

	"exam-simulator/internal/app"
	"exam-simulator/internal/domain"
)

// SessionStore is an in-memory implementation of app.SessionStore and
// app.ResultStore. Snapshots live in a separate map so resume-after-eviction
// behaves like a real backing store.
type SessionStore struct {
	mu        sync.RWMutex
	sessions  map[string]*app.Session
	snapshots map[string]domain.SessionSnapshot
	results   map[string]domain.ExamResult
}

func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions:  make(map[string]*app.Session),
		snapshots: make(map[string]domain.SessionSnapshot),
		results:   make(map[string]domain.ExamResult),
	}
}

func (s *SessionStore) Put(_ context.Context, session *app.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.ID()] = session
	s.snapshots[session.ID()] = session.Snapshot()
	return nil
}

func (s *SessionStore) Get(sessionID string) (*app.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[sessionID]
	return session, ok
}

func (s *SessionStore) Resume(_ context.Context, sessionID string) (*app.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if session, ok := s.sessions[sessionID]; ok {
		return session, nil
	}
	snap, ok := s.snapshots[sessionID]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	session := app.RestoreSession(snap)
	s.sessions[sessionID] = session
	return session, nil
}

func (s *SessionStore) Save(_ context.Context, session *app.Session) error {
	snap := session.Snapshot()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshots[session.ID()] = snap
	return nil
}

// Remove clears the persisted snapshot only; the live session entry stays so
// completion remains idempotent until Drop.
func (s *SessionStore) Remove(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.snapshots, sessionID)
	return nil
}

func (s *SessionStore) Drop(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
}

func (s *SessionStore) SaveResult(_ context.Context, sessionID string, result domain.ExamResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results[sessionID] = result
	return nil
}

func (s *SessionStore) GetResult(_ context.Context, sessionID string) (domain.ExamResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result, ok := s.results[sessionID]
	if !ok {
		return domain.ExamResult{}, domain.ErrResultNotFound
	}
	return result, nil
}
