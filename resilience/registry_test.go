package resilience

import (
	"context"
	"reflect"
	"sync"
	"testing"
	"time"
)

func TestDefaultServiceConfigs_SeededTable(t *testing.T) {
	configs := DefaultServiceConfigs()

	gh, ok := configs[ServiceGitHubAPI]
	if !ok {
		t.Fatal("expected github_api in the seeded table")
	}
	if gh.Retry.MaxAttempts != 3 || gh.Retry.BaseDelay != 2*time.Second || gh.Retry.MaxDelay != 30*time.Second {
		t.Errorf("unexpected github_api retry config: %+v", gh.Retry)
	}
	if gh.CircuitBreaker.FailureThreshold != 5 || gh.CircuitBreaker.RecoveryTimeout != 60*time.Second {
		t.Errorf("unexpected github_api breaker config: %+v", gh.CircuitBreaker)
	}
	if !gh.RateLimitAware {
		t.Error("github_api must be rate-limit aware")
	}

	sc, ok := configs[ServiceHTTPScraper]
	if !ok {
		t.Fatal("expected http_scraper in the seeded table")
	}
	if sc.Retry.MaxAttempts != 2 || sc.Retry.BaseDelay != time.Second || sc.Retry.MaxDelay != 10*time.Second {
		t.Errorf("unexpected http_scraper retry config: %+v", sc.Retry)
	}
	if sc.CircuitBreaker.FailureThreshold != 3 || sc.CircuitBreaker.RecoveryTimeout != 30*time.Second {
		t.Errorf("unexpected http_scraper breaker config: %+v", sc.CircuitBreaker)
	}
	if sc.RateLimitAware {
		t.Error("http_scraper must not be rate-limit aware")
	}
}

func TestHandler_ServicesSorted(t *testing.T) {
	h := newTestHandler()

	got := h.Services()
	want := []string{ServiceGitHubAPI, ServiceHTTPScraper}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Services() = %v, want %v", got, want)
	}
}

func TestHandler_Known(t *testing.T) {
	h := newTestHandler()

	if !h.Known(ServiceGitHubAPI) || !h.Known(ServiceHTTPScraper) {
		t.Error("seeded services must be known")
	}
	if h.Known("billing") {
		t.Error("unconfigured services must not be known")
	}
}

func TestHandler_StatusUnknownSentinel(t *testing.T) {
	h := newTestHandler()

	// A configured service that never executed has no breaker yet.
	st := h.Status(ServiceGitHubAPI)
	if st.State != "unknown" {
		t.Errorf("expected unknown sentinel, got %s", st.State)
	}
	if st.Service != ServiceGitHubAPI {
		t.Errorf("expected service name carried through, got %s", st.Service)
	}
	if st.FailureCount != 0 || st.LastFailureTime != nil || st.NextAttemptTime != nil {
		t.Errorf("expected zeroed status, got %+v", st)
	}
}

func TestHandler_StatusAfterExecution(t *testing.T) {
	h := newTestHandler(WithServiceConfig("svc", fastServiceConfig(1, 5)))

	_, _ = Execute(context.Background(), h, "svc", func(ctx context.Context) (string, error) {
		return "ok", nil
	})

	st := h.Status("svc")
	if st.State != "closed" {
		t.Errorf("expected closed after success, got %s", st.State)
	}
}

func TestHandler_ResetReclosesBreaker(t *testing.T) {
	h := newTestHandler(WithServiceConfig("svc", fastServiceConfig(1, 1)))

	_, _ = Execute(context.Background(), h, "svc", func(ctx context.Context) (string, error) {
		return "", httpErr(500, nil)
	})
	if h.Status("svc").State != "open" {
		t.Fatalf("expected open breaker, got %s", h.Status("svc").State)
	}

	h.Reset("svc")

	if h.Status("svc").State != "closed" {
		t.Errorf("expected closed after reset, got %s", h.Status("svc").State)
	}

	// Reset of a never-executed service is a no-op, not a panic.
	h.Reset("billing")
	if h.Status("billing").State != "unknown" {
		t.Errorf("expected unknown for never-executed service, got %s", h.Status("billing").State)
	}
}

func TestHandler_UnknownServiceGetsLibraryDefaults(t *testing.T) {
	h := newTestHandler()

	_, cfg := h.breakerFor("adhoc")
	def := DefaultRetryConfig()
	if cfg.Retry.MaxAttempts != def.MaxAttempts || cfg.Retry.BaseDelay != def.BaseDelay {
		t.Errorf("expected library defaults for unknown service, got %+v", cfg.Retry)
	}
	if cfg.CircuitBreaker.FailureThreshold != 5 {
		t.Errorf("expected default threshold 5, got %d", cfg.CircuitBreaker.FailureThreshold)
	}
}

func TestHandler_BreakerForIsIdempotent(t *testing.T) {
	h := newTestHandler()

	cb1, _ := h.breakerFor(ServiceGitHubAPI)
	cb2, _ := h.breakerFor(ServiceGitHubAPI)
	if cb1 != cb2 {
		t.Error("breakerFor must return the same instance per service")
	}
}

func TestHandler_ConcurrentBreakerCreation(t *testing.T) {
	h := newTestHandler()

	var wg sync.WaitGroup
	breakers := make([]*CircuitBreaker, 50)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			cb, _ := h.breakerFor("svc")
			breakers[i] = cb
		}(i)
	}
	wg.Wait()

	for i := 1; i < 50; i++ {
		if breakers[i] != breakers[0] {
			t.Fatal("concurrent breakerFor calls must converge on one instance")
		}
	}
}

func TestHandler_BreakerIsolationBetweenServices(t *testing.T) {
	h := newTestHandler(
		WithServiceConfig("a", fastServiceConfig(1, 1)),
		WithServiceConfig("b", fastServiceConfig(1, 1)),
	)

	_, _ = Execute(context.Background(), h, "a", func(ctx context.Context) (string, error) {
		return "", httpErr(500, nil)
	})

	if h.Status("a").State != "open" {
		t.Fatalf("expected service a open, got %s", h.Status("a").State)
	}

	// Service b is untouched by a's failures.
	result, err := Execute(context.Background(), h, "b", func(ctx context.Context) (string, error) {
		return "fine", nil
	})
	if err != nil || result != "fine" {
		t.Errorf("service b must be unaffected, got result=%s err=%v", result, err)
	}
}
