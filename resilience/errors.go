package resilience

import (
	"fmt"
	"net/http"
	"time"
)

// CircuitOpenError is returned when the breaker rejects a call before any
// attempt is made. RetryAfter tells the caller how long to back off.
type CircuitOpenError struct {
	Service    string
	RetryAfter time.Duration
}

func (e *CircuitOpenError) Error() string {
	return fmt.Sprintf("circuit breaker for %s is open", e.Service)
}

// NonRetryableError wraps a failure classified as permanent. The attempt loop
// stops immediately when one is observed.
type NonRetryableError struct {
	Service string
	Reason  string
	Cause   error
}

func (e *NonRetryableError) Error() string {
	return fmt.Sprintf("%s for %s: %v", e.Reason, e.Service, e.Cause)
}

func (e *NonRetryableError) Unwrap() error { return e.Cause }

// RetryExhaustedError wraps the last observed failure after the attempt
// budget is consumed. The cause is always a retryable-classified error.
type RetryExhaustedError struct {
	Service  string
	Attempts int
	Cause    error
}

func (e *RetryExhaustedError) Error() string {
	return fmt.Sprintf("all %d attempts failed for %s: %v", e.Attempts, e.Service, e.Cause)
}

func (e *RetryExhaustedError) Unwrap() error { return e.Cause }

// HTTPError is the structured failure an operation returns when the upstream
// answered with a non-success status. Headers keep the original response
// headers so the classifier can inspect rate-limit metadata.
type HTTPError struct {
	StatusCode int
	Headers    http.Header
	URL        string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("unexpected status %d from %s", e.StatusCode, e.URL)
}

// Header does a case-insensitive header lookup, tolerating a nil header map.
func (e *HTTPError) Header(key string) string {
	if e.Headers == nil {
		return ""
	}
	return e.Headers.Get(key)
}

// NetworkErrorKind categorizes transport-level failures that carry no HTTP status.
type NetworkErrorKind int

const (
	NetworkOther NetworkErrorKind = iota
	NetworkTimeout
	NetworkConnRefused
)

func (k NetworkErrorKind) String() string {
	switch k {
	case NetworkTimeout:
		return "timeout"
	case NetworkConnRefused:
		return "connection_refused"
	default:
		return "other"
	}
}

// NetworkError wraps a transport-level failure with its category.
type NetworkError struct {
	Kind  NetworkErrorKind
	Cause error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error (%s): %v", e.Kind, e.Cause)
}

func (e *NetworkError) Unwrap() error { return e.Cause }
