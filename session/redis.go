package session

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "clara:session:"

// redisStore implements Store using Redis. Transitions run inside a WATCH
// transaction with a version check, so a racing transition on the same
// session fails with ErrVersionConflict instead of interleaving. Expiry
// rides on the key TTL.
type redisStore struct {
	client   *redis.Client
	ttl      time.Duration
	maxTurns int
}

// Begin implements Store.
func (s *redisStore) Begin(ctx context.Context, query string, questions []string) (*Session, error) {
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

	val, err := json.Marshal(sess)
	if err != nil {
		return nil, err
	}

	if err := s.client.Set(ctx, redisKeyPrefix+sess.ID, val, s.ttl).Err(); err != nil {
		return nil, err
	}
	return sess, nil
}

// Get implements Store.
func (s *redisStore) Get(ctx context.Context, id string) (*Session, error) {
	val, err := s.client.Get(ctx, redisKeyPrefix+id).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var sess Session
	if err := json.Unmarshal([]byte(val), &sess); err != nil {
		return nil, err
	}

	// Refresh TTL on read
	_ = s.client.Expire(ctx, redisKeyPrefix+id, s.ttl).Err()

	return &sess, nil
}

// RecordClarification implements Store.
func (s *redisStore) RecordClarification(ctx context.Context, id, question, answer string) (*Session, error) {
	return s.transition(ctx, id, func(sess *Session) error {
		if sess.Status != StatusAwaitingClarification {
			return ErrTerminalState
		}
		applyClarification(sess, question, answer, s.maxTurns)
		return nil
	})
}

// SetPending implements Store.
func (s *redisStore) SetPending(ctx context.Context, id string, questions []string) (*Session, error) {
	return s.transition(ctx, id, func(sess *Session) error {
		if sess.Status != StatusAwaitingClarification {
			return ErrTerminalState
		}
		sess.PendingQuestions = questions
		return nil
	})
}

// Resolve implements Store.
func (s *redisStore) Resolve(ctx context.Context, id string) (*Session, error) {
	return s.transition(ctx, id, func(sess *Session) error {
		if sess.Status == StatusAbandoned {
			return ErrTerminalState
		}
		sess.Status = StatusResolved
		sess.PendingQuestions = nil
		return nil
	})
}

// Abandon implements Store.
func (s *redisStore) Abandon(ctx context.Context, id string) (*Session, error) {
	return s.transition(ctx, id, func(sess *Session) error {
		if sess.Status != StatusAwaitingClarification {
			return nil
		}
		sess.Status = StatusAbandoned
		sess.PendingQuestions = nil
		return nil
	})
}

// Close implements Store.
func (s *redisStore) Close() error {
	return s.client.Close()
}

// transition applies mutate inside an optimistic-lock transaction.
func (s *redisStore) transition(ctx context.Context, id string, mutate func(*Session) error) (*Session, error) {
	key := redisKeyPrefix + id
	var out *Session

	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		val, err := tx.Get(ctx, key).Result()
		if errors.Is(err, redis.Nil) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}

		var sess Session
		if err := json.Unmarshal([]byte(val), &sess); err != nil {
			return err
		}

		if err := mutate(&sess); err != nil {
			return err
		}

		sess.Version++
		sess.UpdatedAt = time.Now()

		newVal, err := json.Marshal(&sess)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, newVal, s.ttl)
			return nil
		})
		if err != nil {
			return err
		}

		out = &sess
		return nil
	}, key)

	if errors.Is(err, redis.TxFailedErr) {
		return nil, ErrVersionConflict
	}
	if err != nil {
		return nil, err
	}
	return out, nil
}
