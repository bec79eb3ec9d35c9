package llm

import (
	"errors"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// IsRetryable classifies an OpenAI-compatible API error. Rate limiting and
// server-side failures are transient; auth and malformed-request errors are
// permanent and must fail fast without burning retry budget.
func IsRetryable(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.HTTPStatusCode {
		case http.StatusTooManyRequests,
			http.StatusInternalServerError,
			http.StatusBadGateway,
			http.StatusServiceUnavailable,
			http.StatusGatewayTimeout:
			return true
		default:
			return false
		}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		switch reqErr.HTTPStatusCode {
		case http.StatusUnauthorized, http.StatusForbidden, http.StatusBadRequest, http.StatusNotFound:
			return false
		}
		// Transport-level failures (connection reset, DNS) surface as
		// RequestError with a zero or 5xx status.
		return true
	}
	// Unknown error shapes: treat as transient network trouble.
	return true
}

// RetryDelay returns the exponential backoff delay before retry attempt n
// (0-based): base, 2*base, 4*base, capped at 10s.
func RetryDelay(attempt int, base time.Duration) time.Duration {
	if base <= 0 {
		base = 500 * time.Millisecond
	}
	d := base << uint(attempt)
	if max := 10 * time.Second; d > max {
		return max
	}
	return d
}
