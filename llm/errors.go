package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// Generation failures fall into two buckets the caller can act on:
// ErrTimeout means the deadline expired, ErrUnavailable covers transport
// and quota errors. Both are retryable.
var (
	ErrUnavailable = errors.New("generation unavailable")
	ErrTimeout     = errors.New("generation timeout")
)

// wrapTransportErr maps a request error to the retryable taxonomy,
// preserving the deadline signal when the context expired.
func wrapTransportErr(ctx context.Context, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || ctx.Err() == context.DeadlineExceeded {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}

// wrapStatusErr maps a non-200 API response to the retryable taxonomy.
// Only throttling, server errors, and upstream timeouts are retryable;
// other client errors such as a bad request or a rejected key come back
// unwrapped so callers do not retry them.
func wrapStatusErr(statusCode int, body string) error {
	switch {
	case statusCode == http.StatusRequestTimeout || statusCode == http.StatusGatewayTimeout:
		return fmt.Errorf("%w: API request failed with status %d: %s", ErrTimeout, statusCode, body)
	case statusCode == http.StatusTooManyRequests || statusCode >= 500:
		return fmt.Errorf("%w: API request failed with status %d: %s", ErrUnavailable, statusCode, body)
	default:
		return fmt.Errorf("API request failed with status %d: %s", statusCode, body)
	}
}
