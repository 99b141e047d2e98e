package retry

import (
	"fmt"
	"time"
)

// HTTPError is a non-2xx response from a provider or tool endpoint.
type HTTPError struct {
	StatusCode int
	Message    string
	Endpoint   string
}

func (e *HTTPError) Error() string {
	if e.Endpoint != "" {
		return fmt.Sprintf("HTTP %d at %s: %s", e.StatusCode, e.Endpoint, e.Message)
	}
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

// JSONParseError indicates unparseable JSON from a model, typically tool-call
// arguments.
type JSONParseError struct {
	Input   string
	Message string
}

func (e *JSONParseError) Error() string {
	return fmt.Sprintf("JSON parse error: %s", e.Message)
}

// TimeoutError indicates an operation exceeded its deadline.
type TimeoutError struct {
	Operation string
	After     time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("timeout after %s: %s", e.After, e.Operation)
}
