package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// inMemoryStore implements Store using an in-memory map. The store mutex
// serializes every transition, which satisfies the at-most-one in-flight
// transition per session contract. Expired sessions are dropped lazily
// on access.
type inMemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	ttl      time.Duration
	maxTurns int
}

// Begin implements Store.
func (s *inMemoryStore) Begin(ctx context.Context, query string, questions []string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sessions == nil {
		return nil, ErrStoreClosed
	}

	now := time.Now()
	sess := &Session{
		ID:               uuid.NewString(),
		OriginalQuery:    query,
		PendingQuestions: questions,
		Status:           StatusAwaitingClarification,
		CreatedAt:        now,
		UpdatedAt:        now,
		Version:          1,
	}

	s.sessions[sess.ID] = sess
	return copySession(sess), nil
}

// Get implements Store.
func (s *inMemoryStore) Get(ctx context.Context, id string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.getLocked(id)
	if err != nil {
		return nil, err
	}
	return copySession(sess), nil
}

// RecordClarification implements Store.
func (s *inMemoryStore) RecordClarification(ctx context.Context, id, question, answer string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.getLocked(id)
	if err != nil {
		return nil, err
	}
	if sess.Status != StatusAwaitingClarification {
		return nil, ErrTerminalState
	}

	applyClarification(sess, question, answer, s.maxTurns)
	s.touchLocked(sess)
	return copySession(sess), nil
}

// SetPending implements Store.
func (s *inMemoryStore) SetPending(ctx context.Context, id string, questions []string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.getLocked(id)
	if err != nil {
		return nil, err
	}
	if sess.Status != StatusAwaitingClarification {
		return nil, ErrTerminalState
	}

	sess.PendingQuestions = questions
	s.touchLocked(sess)
	return copySession(sess), nil
}

// Resolve implements Store.
func (s *inMemoryStore) Resolve(ctx context.Context, id string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.getLocked(id)
	if err != nil {
		return nil, err
	}
	if sess.Status == StatusAbandoned {
		return nil, ErrTerminalState
	}

	sess.Status = StatusResolved
	sess.PendingQuestions = nil
	s.touchLocked(sess)
	return copySession(sess), nil
}

// Abandon implements Store.
func (s *inMemoryStore) Abandon(ctx context.Context, id string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.getLocked(id)
	if err != nil {
		return nil, err
	}
	if sess.Status != StatusAwaitingClarification {
		return copySession(sess), nil
	}

	sess.Status = StatusAbandoned
	sess.PendingQuestions = nil
	s.touchLocked(sess)
	return copySession(sess), nil
}

// Close implements Store.
func (s *inMemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions = nil
	return nil
}

// getLocked resolves an id to a live session, dropping it when the
// inactivity window has passed. Caller holds the write lock.
func (s *inMemoryStore) getLocked(id string) (*Session, error) {
	sess, exists := s.sessions[id]
	if !exists {
		return nil, ErrNotFound
	}

	if s.ttl > 0 && time.Since(sess.UpdatedAt) > s.ttl {
		delete(s.sessions, id)
		return nil, ErrNotFound
	}
	return sess, nil
}

func (s *inMemoryStore) touchLocked(sess *Session) {
	sess.UpdatedAt = time.Now()
	sess.Version++
}

// copySession hands callers their own copy so store state cannot be
// mutated outside a transition.
func copySession(s *Session) *Session {
	out := *s
	out.PendingQuestions = append([]string(nil), s.PendingQuestions...)
	out.Turns = append([]ClarificationTurn(nil), s.Turns...)
	return &out
}
