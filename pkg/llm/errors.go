package llm

import (
	"errors"
	"fmt"

	"github.com/randalmurphal/graphchat/pkg/retry"
)

// Sentinel errors.
var (
	// ErrModelNotConfigured indicates InitChatModel got an empty model spec,
	// usually because LLM_MODEL is unset.
	ErrModelNotConfigured = errors.New("no chat model configured (set LLM_MODEL, e.g. openai:gpt-4o-mini)")

	// ErrUnknownProvider indicates a model spec names no registered provider.
	ErrUnknownProvider = errors.New("unknown model provider")

	// ErrMissingAPIKey indicates a provider needs a key that is not set.
	ErrMissingAPIKey = errors.New("API key not set")

	ErrUnavailable    = errors.New("LLM service unavailable")
	ErrRateLimited    = errors.New("rate limited")
	ErrInvalidRequest = errors.New("invalid request")
	ErrTimeout        = errors.New("request timed out")
)

// Error wraps a provider failure.
type Error struct {
	Op        string
	Err       error
	Retryable bool
}

// NewError creates an Error.
func NewError(op string, err error, retryable bool) *Error {
	return &Error{Op: op, Err: err, Retryable: retryable}
}

func (e *Error) Error() string {
	return fmt.Sprintf("llm %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// IsRetryable reports whether err is worth another attempt. An *Error
// decides for itself; anything else falls back to retry.IsRetryable.
func IsRetryable(err error) bool {
	var llmErr *Error
	if errors.As(err, &llmErr) {
		return llmErr.Retryable
	}
	return retry.IsRetryable(err)
}

// httpError wraps a non-2xx provider response, classifying it for retries.
func httpError(op string, status int, message, endpoint string) *Error {
	herr := &retry.HTTPError{StatusCode: status, Message: message, Endpoint: endpoint}

	var sentinel error
	switch {
	case status == 429:
		sentinel = ErrRateLimited
	case status == 400, status == 404, status == 422:
		sentinel = ErrInvalidRequest
	case status >= 500:
		sentinel = ErrUnavailable
	}

	var err error = herr
	if sentinel != nil {
		err = fmt.Errorf("%w: %w", sentinel, herr)
	}
	return NewError(op, err, retry.IsRetryable(herr))
}
