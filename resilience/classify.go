package resilience

import (
	"errors"
	"net"
	"os"
	"strconv"
	"syscall"
	"time"
)

// Disposition is the outcome of classifying a raw failure.
type Disposition int

const (
	// DispositionRetryable means the failure is transient and worth retrying.
	DispositionRetryable Disposition = iota
	// DispositionNonRetryable means the failure is permanent; retrying wastes budget.
	DispositionNonRetryable
)

func (d Disposition) String() string {
	if d == DispositionNonRetryable {
		return "non_retryable"
	}
	return "retryable"
}

// Classification is the classifier's verdict on one failure.
type Classification struct {
	Disposition Disposition
	// Reason is a short tag describing the rule that fired.
	Reason string
	// RetryAfter is a backoff hint, set only for rate-limit conditions.
	RetryAfter time.Duration
}

// Rate-limit header conventions of the repository-metadata upstream.
const (
	headerRateLimitRemaining = "X-RateLimit-Remaining"
	headerRetryAfter         = "Retry-After"
)

// defaultRateLimitRetryAfter applies when the upstream rate-limits without a
// Retry-After header.
const defaultRateLimitRetryAfter = 60 * time.Second

// Classifier maps raw failures to dispositions. The classification table is
// service-agnostic except for the 403 rate-limit carve-out, which applies
// only to services registered as rate-limit aware.
type Classifier struct {
	rateLimitAware map[string]bool
}

// NewClassifier creates a classifier. Services listed in rateLimitAware get
// the 403 + zero-remaining-quota treatment; a plain 403 stays non-retryable
// for everyone.
func NewClassifier(rateLimitAware ...string) *Classifier {
	aware := make(map[string]bool, len(rateLimitAware))
	for _, s := range rateLimitAware {
		aware[s] = true
	}
	return &Classifier{rateLimitAware: aware}
}

// Classify evaluates the classification table in order:
//
//  1. Status 400, 401, 404, 422: non-retryable client errors.
//  2. Status 403 on a service without rate-limit handling: access forbidden.
//  3. Status 403 with an exhausted quota header: retryable rate limit,
//     Retry-After propagated (default 60s).
//  4. Status >= 500: retryable server error.
//  5. Transport failures (timeout, connection refused/reset): retryable.
//  6. Anything else: retryable. Unknown failures are more often transient
//     than permanent, so the table fails open toward retrying.
func (c *Classifier) Classify(service string, err error) Classification {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		switch {
		case isPermanentClientStatus(httpErr.StatusCode):
			return Classification{
				Disposition: DispositionNonRetryable,
				Reason:      "client_error",
			}
		case httpErr.StatusCode == 403:
			if c.rateLimitAware[service] && httpErr.Header(headerRateLimitRemaining) == "0" {
				return Classification{
					Disposition: DispositionRetryable,
					Reason:      "rate_limited",
					RetryAfter:  parseRetryAfter(httpErr.Header(headerRetryAfter)),
				}
			}
			return Classification{
				Disposition: DispositionNonRetryable,
				Reason:      "access_forbidden",
			}
		case httpErr.StatusCode >= 500:
			return Classification{
				Disposition: DispositionRetryable,
				Reason:      "server_error",
			}
		}
	}

	if isNetworkFailure(err) {
		return Classification{
			Disposition: DispositionRetryable,
			Reason:      "network_error",
		}
	}

	return Classification{
		Disposition: DispositionRetryable,
		Reason:      "unknown_error",
	}
}

func isPermanentClientStatus(status int) bool {
	switch status {
	case 400, 401, 404, 422:
		return true
	}
	return false
}

// parseRetryAfter reads a Retry-After value in seconds, falling back to the
// upstream's documented default.
func parseRetryAfter(value string) time.Duration {
	if value == "" {
		return defaultRateLimitRetryAfter
	}
	secs, err := strconv.Atoi(value)
	if err != nil || secs < 0 {
		return defaultRateLimitRetryAfter
	}
	return time.Duration(secs) * time.Second
}

// isNetworkFailure reports whether err is a transport-level failure.
func isNetworkFailure(err error) bool {
	var netErr *NetworkError
	if errors.As(err, &netErr) {
		return true
	}
	var timeout net.Error
	if errors.As(err, &timeout) && timeout.Timeout() {
		return true
	}
	return os.IsTimeout(err) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET)
}

// NewNetworkError wraps a transport failure with its category so operations
// can surface structured errors without leaking net internals.
func NewNetworkError(err error) *NetworkError {
	kind := NetworkOther
	var timeout net.Error
	switch {
	case errors.As(err, &timeout) && timeout.Timeout(), os.IsTimeout(err):
		kind = NetworkTimeout
	case errors.Is(err, syscall.ECONNREFUSED), errors.Is(err, syscall.ECONNRESET):
		kind = NetworkConnRefused
	}
	return &NetworkError{Kind: kind, Cause: err}
}
