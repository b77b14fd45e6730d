package clara

import (
	"errors"

	"github.com/clararag/clara/llm"
	"github.com/clararag/clara/retrieval"
)

// Input errors are surfaced immediately to the caller with no state mutated.
var (
	ErrEmptyQuery       = errors.New("empty query")
	ErrEmptyAnswer      = errors.New("empty clarification answer")
	ErrSessionNotFound  = errors.New("unknown session")
	ErrSessionAbandoned = errors.New("session abandoned")
)

// IsInputError reports whether err is the caller's fault. Retrying the
// same call will not help.
func IsInputError(err error) bool {
	return errors.Is(err, ErrEmptyQuery) ||
		errors.Is(err, ErrEmptyAnswer) ||
		errors.Is(err, ErrSessionNotFound) ||
		errors.Is(err, ErrSessionAbandoned)
}

// IsRetryable reports whether err is a transient port failure. The engine
// leaves sessions consistent on these, so retrying the identical call is safe.
func IsRetryable(err error) bool {
	return errors.Is(err, retrieval.ErrUnavailable) ||
		errors.Is(err, llm.ErrUnavailable) ||
		errors.Is(err, llm.ErrTimeout)
}
