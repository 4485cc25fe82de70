package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"exam-simulator/internal/app"
	"exam-simulator/internal/domain"
	goredis "github.com/redis/go-redis/v9"
)

// SessionStore is a Redis-aware implementation of app.SessionStore and
// app.ResultStore. Live sessions stay in a local map so the in-process event
// fan-out keeps working; Redis holds the JSON snapshot written after every
// mutation, which is what a restarted instance resumes from.
type SessionStore struct {
	client   *goredis.Client
	ttl      time.Duration
	mu       sync.RWMutex
	sessions map[string]*app.Session
}

func NewSessionStore(client *goredis.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{
		client:   client,
		ttl:      ttl,
		sessions: make(map[string]*app.Session),
	}
}

func (s *SessionStore) Put(ctx context.Context, session *app.Session) error {
	s.mu.Lock()
	s.sessions[session.ID()] = session
	s.mu.Unlock()
	return s.writeSnapshot(ctx, session)
}

func (s *SessionStore) Get(sessionID string) (*app.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[sessionID]
	return session, ok
}

func (s *SessionStore) Resume(ctx context.Context, sessionID string) (*app.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if session, ok := s.sessions[sessionID]; ok {
		return session, nil
	}

	raw, err := s.client.Get(ctx, s.sessionKey(sessionID)).Bytes()
	if err == goredis.Nil {
		return nil, domain.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load session snapshot: %w", err)
	}
	var snap domain.SessionSnapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, fmt.Errorf("unmarshal session snapshot: %w", err)
	}

	session := app.RestoreSession(snap)
	s.sessions[sessionID] = session
	return session, nil
}

func (s *SessionStore) Save(ctx context.Context, session *app.Session) error {
	return s.writeSnapshot(ctx, session)
}

// Remove clears the persisted snapshot; the live entry survives until Drop.
func (s *SessionStore) Remove(ctx context.Context, sessionID string) error {
	return s.client.Del(ctx, s.sessionKey(sessionID)).Err()
}

func (s *SessionStore) Drop(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
}

func (s *SessionStore) SaveResult(ctx context.Context, sessionID string, result domain.ExamResult) error {
	raw, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	return s.client.Set(ctx, s.resultKey(sessionID), raw, s.ttl).Err()
}

func (s *SessionStore) GetResult(ctx context.Context, sessionID string) (domain.ExamResult, error) {
	raw, err := s.client.Get(ctx, s.resultKey(sessionID)).Bytes()
	if err == goredis.Nil {
		return domain.ExamResult{}, domain.ErrResultNotFound
	}
	if err != nil {
		return domain.ExamResult{}, fmt.Errorf("load result: %w", err)
	}
	var result domain.ExamResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return domain.ExamResult{}, fmt.Errorf("unmarshal result: %w", err)
	}
	return result, nil
}

func (s *SessionStore) writeSnapshot(ctx context.Context, session *app.Session) error {
	raw, err := json.Marshal(session.Snapshot())
	if err != nil {
		return fmt.Errorf("marshal session snapshot: %w", err)
	}
	return s.client.Set(ctx, s.sessionKey(session.ID()), raw, s.ttl).Err()
}

func (s *SessionStore) sessionKey(sessionID string) string {
	return "exam:session:" + sessionID
}

func (s *SessionStore) resultKey(sessionID string) string {
	return "exam:result:" + sessionID
}
