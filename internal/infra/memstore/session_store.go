package memstore

import (
	"context"
	"fmt"
	"sync"

	"clm-paralegal/internal/domain"
	"clm-paralegal/internal/domain/model"
	"clm-paralegal/internal/domain/ports/repository"
	"clm-paralegal/internal/infra/metrics"
)

var _ repository.SessionStore = (*SessionStore)(nil)

// SessionStore keeps sessions in process memory for the life of the process.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*model.Session
	locks    *keyedMutex
}

func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*model.Session),
		locks:    newKeyedMutex(),
	}
}

func (s *SessionStore) Init(_ context.Context, sessionID string) error {
	if sessionID == "" {
		return fmt.Errorf("empty session id: %w", domain.ErrInvalidInput)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[sessionID]; !ok {
		s.sessions[sessionID] = model.NewSession(sessionID)
	}
	return nil
}

func (s *SessionStore) SetProfileFact(_ context.Context, sessionID, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		return notFound(sessionID)
	}
	sess.SetProfileFact(key, value)
	return nil
}

func (s *SessionStore) AppendMessage(_ context.Context, sessionID string, role model.Role, content string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		return notFound(sessionID)
	}
	sess.AddMessage(role, content)
	return nil
}

func (s *SessionStore) Get(_ context.Context, sessionID string) (*model.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		metrics.IncSessionLookup("memory", "miss")
		return nil, notFound(sessionID)
	}
	metrics.IncSessionLookup("memory", "hit")
	return sess.Clone(), nil
}

func (s *SessionStore) Lock(ctx context.Context, sessionID string) (func(), error) {
	return s.locks.Lock(ctx, sessionID)
}

func notFound(id string) error {
	return fmt.Errorf("session %q: %w", id, domain.ErrSessionNotFound)
}
