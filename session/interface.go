package session

import (
	"context"
	"errors"
)

// Common errors for session store operations.
var (
	ErrInvalidConfig    = errors.New("invalid configuration")
	ErrInvalidStoreType = errors.New("invalid store type")
	ErrVersionConflict  = errors.New("session version conflict")
	ErrNotFound         = errors.New("session not found")
	ErrTerminalState    = errors.New("session already resolved or abandoned")
	ErrStoreClosed      = errors.New("session store closed")
)

// Store owns all clarification dialogue state. Transitions on a single
// session are serialized; a concurrent transition on the same session
// surfaces as ErrVersionConflict on the driver that detects it.
type Store interface {
	// Begin creates a session for an ambiguous query, with the questions
	// the caller is about to ask. Initial status is awaiting_clarification.
	// Returns ErrStoreClosed once the store has been closed.
	Begin(ctx context.Context, query string, questions []string) (*Session, error)

	// Get retrieves a session by ID. Returns ErrNotFound for unknown or
	// expired sessions.
	Get(ctx context.Context, id string) (*Session, error)

	// RecordClarification records one answered turn. Reaching the turn
	// budget transitions the session to resolved. Returns ErrTerminalState
	// if the session is not awaiting clarification.
	RecordClarification(ctx context.Context, id, question, answer string) (*Session, error)

	// SetPending replaces the pending questions for the next turn.
	SetPending(ctx context.Context, id string, questions []string) (*Session, error)

	// Resolve marks the dialogue complete; no further clarification is
	// recorded for this session.
	Resolve(ctx context.Context, id string) (*Session, error)

	// Abandon cancels the dialogue. Abandoning a terminal session is a no-op.
	Abandon(ctx context.Context, id string) (*Session, error)

	// Close closes the store and releases any resources.
	Close() error
}
