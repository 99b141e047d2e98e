// Package retry classifies failures from model providers and tools and
// retries the transient ones with exponential backoff.
package retry

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// Category says how a failure should be handled.
type Category int

const (
	// CategoryTransient: retrying will likely help (rate limits, 5xx, timeouts).
	CategoryTransient Category = iota

	// CategoryPermanent: retrying won't help (auth, bad config, cancellation).
	CategoryPermanent

	// CategoryInvalidOutput: the provider answered with something unusable,
	// such as malformed tool-call JSON. Not retried automatically.
	CategoryInvalidOutput
)

func (c Category) String() string {
	switch c {
	case CategoryTransient:
		return "transient"
	case CategoryPermanent:
		return "permanent"
	case CategoryInvalidOutput:
		return "invalid_output"
	default:
		return "unknown"
	}
}

// CategorizedError wraps an error with its category and attempt count.
type CategorizedError struct {
	Err      error
	Category Category
	Attempts int

	// Op describes what was being attempted.
	Op string
}

func (e *CategorizedError) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("%s: %s (category: %s, attempts: %d)", e.Op, e.Err, e.Category, e.Attempts)
	}
	return fmt.Sprintf("%s (category: %s, attempts: %d)", e.Err, e.Category, e.Attempts)
}

func (e *CategorizedError) Unwrap() error { return e.Err }

// Transient marks err as worth retrying.
func Transient(err error, op string) *CategorizedError {
	return &CategorizedError{Err: err, Category: CategoryTransient, Op: op}
}

// Permanent marks err as final.
func Permanent(err error, op string) *CategorizedError {
	return &CategorizedError{Err: err, Category: CategoryPermanent, Op: op}
}

// Categorize decides how err should be handled. Unknown errors are permanent.
func Categorize(err error) Category {
	if err == nil {
		return CategoryPermanent
	}

	var catErr *CategorizedError
	if errors.As(err, &catErr) {
		return catErr.Category
	}

	if errors.Is(err, context.Canceled) {
		return CategoryPermanent
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return CategoryTransient
	}

	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		switch {
		case httpErr.StatusCode == 408, httpErr.StatusCode == 409, httpErr.StatusCode == 429:
			return CategoryTransient
		case httpErr.StatusCode >= 500:
			return CategoryTransient
		default:
			return CategoryPermanent
		}
	}

	var jsonErr *JSONParseError
	if errors.As(err, &jsonErr) {
		return CategoryInvalidOutput
	}

	var timeoutErr *TimeoutError
	if errors.As(err, &timeoutErr) {
		return CategoryTransient
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return CategoryTransient
	}

	return CategoryPermanent
}

// IsRetryable reports whether err is transient.
func IsRetryable(err error) bool {
	return Categorize(err) == CategoryTransient
}
