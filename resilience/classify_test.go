package resilience

import (
	"context"
	"errors"
	"net/http"
	"syscall"
	"testing"
	"time"
)

func httpErr(status int, headers map[string]string) *HTTPError {
	h := http.Header{}
	for k, v := range headers {
		h.Set(k, v)
	}
	return &HTTPError{StatusCode: status, Headers: h, URL: "https://example.test"}
}

func TestClassify_PermanentClientErrors(t *testing.T) {
	c := NewClassifier()

	for _, status := range []int{400, 401, 404, 422} {
		cls := c.Classify("svc", httpErr(status, nil))
		if cls.Disposition != DispositionNonRetryable {
			t.Errorf("status %d: expected non-retryable, got %s", status, cls.Disposition)
		}
		if cls.Reason != "client_error" {
			t.Errorf("status %d: expected client_error, got %s", status, cls.Reason)
		}
	}
}

func TestClassify_ForbiddenWithoutRateLimitHandling(t *testing.T) {
	c := NewClassifier()

	// Even with an exhausted quota header, a service that is not registered
	// as rate-limit aware treats 403 as permanent.
	cls := c.Classify("svc", httpErr(403, map[string]string{"X-RateLimit-Remaining": "0"}))
	if cls.Disposition != DispositionNonRetryable {
		t.Errorf("expected non-retryable, got %s", cls.Disposition)
	}
	if cls.Reason != "access_forbidden" {
		t.Errorf("expected access_forbidden, got %s", cls.Reason)
	}
}

func TestClassify_RateLimitedForbidden(t *testing.T) {
	c := NewClassifier(ServiceGitHubAPI)

	cls := c.Classify(ServiceGitHubAPI, httpErr(403, map[string]string{
		"X-RateLimit-Remaining": "0",
		"Retry-After":           "120",
	}))
	if cls.Disposition != DispositionRetryable {
		t.Errorf("expected retryable, got %s", cls.Disposition)
	}
	if cls.Reason != "rate_limited" {
		t.Errorf("expected rate_limited, got %s", cls.Reason)
	}
	if cls.RetryAfter != 120*time.Second {
		t.Errorf("expected Retry-After 120s, got %v", cls.RetryAfter)
	}
}

func TestClassify_RateLimitedDefaultRetryAfter(t *testing.T) {
	c := NewClassifier(ServiceGitHubAPI)

	tests := []map[string]string{
		{"X-RateLimit-Remaining": "0"},                         // missing
		{"X-RateLimit-Remaining": "0", "Retry-After": "soon"},  // unparseable
		{"X-RateLimit-Remaining": "0", "Retry-After": "-5"},    // negative
	}
	for _, headers := range tests {
		cls := c.Classify(ServiceGitHubAPI, httpErr(403, headers))
		if cls.RetryAfter != 60*time.Second {
			t.Errorf("headers %v: expected default 60s, got %v", headers, cls.RetryAfter)
		}
	}
}

func TestClassify_ForbiddenWithRemainingQuota(t *testing.T) {
	c := NewClassifier(ServiceGitHubAPI)

	// 403 with quota left means a private or blocked resource, not rate limiting.
	cls := c.Classify(ServiceGitHubAPI, httpErr(403, map[string]string{"X-RateLimit-Remaining": "42"}))
	if cls.Disposition != DispositionNonRetryable {
		t.Errorf("expected non-retryable, got %s", cls.Disposition)
	}
	if cls.Reason != "access_forbidden" {
		t.Errorf("expected access_forbidden, got %s", cls.Reason)
	}
}

func TestClassify_ServerErrors(t *testing.T) {
	c := NewClassifier()

	for _, status := range []int{500, 502, 503, 504} {
		cls := c.Classify("svc", httpErr(status, nil))
		if cls.Disposition != DispositionRetryable {
			t.Errorf("status %d: expected retryable, got %s", status, cls.Disposition)
		}
		if cls.Reason != "server_error" {
			t.Errorf("status %d: expected server_error, got %s", status, cls.Reason)
		}
	}
}

func TestClassify_NetworkErrors(t *testing.T) {
	c := NewClassifier()

	tests := []error{
		&NetworkError{Kind: NetworkTimeout, Cause: context.DeadlineExceeded},
		&NetworkError{Kind: NetworkConnRefused, Cause: syscall.ECONNREFUSED},
		syscall.ECONNREFUSED,
		syscall.ECONNRESET,
	}
	for _, err := range tests {
		cls := c.Classify("svc", err)
		if cls.Disposition != DispositionRetryable {
			t.Errorf("%v: expected retryable, got %s", err, cls.Disposition)
		}
		if cls.Reason != "network_error" {
			t.Errorf("%v: expected network_error, got %s", err, cls.Reason)
		}
	}
}

func TestClassify_UnknownErrorsFailOpen(t *testing.T) {
	c := NewClassifier()

	cls := c.Classify("svc", errors.New("something odd"))
	if cls.Disposition != DispositionRetryable {
		t.Errorf("expected retryable for unknown error, got %s", cls.Disposition)
	}
	if cls.Reason != "unknown_error" {
		t.Errorf("expected unknown_error, got %s", cls.Reason)
	}
}

func TestNewNetworkError_Categorization(t *testing.T) {
	tests := []struct {
		err  error
		want NetworkErrorKind
	}{
		{syscall.ECONNREFUSED, NetworkConnRefused},
		{syscall.ECONNRESET, NetworkConnRefused},
		{errors.New("dial tcp: something"), NetworkOther},
	}

	for _, tt := range tests {
		got := NewNetworkError(tt.err)
		if got.Kind != tt.want {
			t.Errorf("NewNetworkError(%v).Kind = %s, want %s", tt.err, got.Kind, tt.want)
		}
		if !errors.Is(got, tt.err) {
			t.Errorf("NewNetworkError(%v) should wrap its cause", tt.err)
		}
	}
}
