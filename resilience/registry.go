package resilience

import (
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/PrakyathReddy/StackDebt-sub001/logger"
)

// Known upstream service names.
const (
	// ServiceGitHubAPI is the source-repository metadata upstream.
	ServiceGitHubAPI = "github_api"
	// ServiceHTTPScraper is the HTTP header scraper upstream.
	ServiceHTTPScraper = "http_scraper"
)

// ServiceConfig bundles the per-service retry and breaker configuration.
type ServiceConfig struct {
	Retry          RetryConfig          `mapstructure:"retry"`
	CircuitBreaker CircuitBreakerConfig `mapstructure:"circuit_breaker"`
	// RateLimitAware enables the 403 rate-limit carve-out for this service.
	RateLimitAware bool `mapstructure:"rate_limit_aware"`
}

// DefaultServiceConfigs returns the seeded configuration table for the known
// upstreams. The metadata service gets a stricter failure threshold than the
// scraper because its outages are longer-lived.
func DefaultServiceConfigs() map[string]ServiceConfig {
	return map[string]ServiceConfig{
		ServiceGitHubAPI: {
			Retry: RetryConfig{
				MaxAttempts:     3,
				BaseDelay:       2 * time.Second,
				MaxDelay:        30 * time.Second,
				ExponentialBase: 2.0,
				Jitter:          true,
			},
			CircuitBreaker: CircuitBreakerConfig{
				FailureThreshold: 5,
				RecoveryTimeout:  60 * time.Second,
			},
			RateLimitAware: true,
		},
		ServiceHTTPScraper: {
			Retry: RetryConfig{
				MaxAttempts:     2,
				BaseDelay:       time.Second,
				MaxDelay:        10 * time.Second,
				ExponentialBase: 2.0,
				Jitter:          true,
			},
			CircuitBreaker: CircuitBreakerConfig{
				FailureThreshold: 3,
				RecoveryTimeout:  30 * time.Second,
			},
		},
	}
}

// Observer receives resilience events for metrics. Implementations must not
// call back into the Handler or its breakers.
type Observer interface {
	// ObserveAttempt is called after every completed attempt.
	ObserveAttempt(service string, attempt int, err error)
	// ObserveStateChange is called on every breaker transition.
	ObserveStateChange(service string, from, to State)
	// ObserveRejection is called when an open breaker rejects a call.
	ObserveRejection(service string)
}

// Handler owns the ServiceName -> (CircuitBreaker, config) map and exposes
// the retry orchestrator as a single callable surface. It is safe for
// concurrent use; construct one at the process root and inject it.
type Handler struct {
	log        *logger.Logger
	classifier *Classifier
	observer   Observer
	jitterSrc  func() float64
	now        func() time.Time

	mu       sync.RWMutex
	configs  map[string]ServiceConfig
	breakers map[string]*CircuitBreaker
}

// Option customizes a Handler.
type Option func(*Handler)

// WithServiceConfig registers or overrides the configuration for one service.
func WithServiceConfig(service string, cfg ServiceConfig) Option {
	return func(h *Handler) {
		h.configs[service] = cfg
	}
}

// WithServiceConfigs merges a whole configuration table, overriding seeded
// defaults per service.
func WithServiceConfigs(configs map[string]ServiceConfig) Option {
	return func(h *Handler) {
		for name, cfg := range configs {
			h.configs[name] = cfg
		}
	}
}

// WithObserver attaches a metrics observer.
func WithObserver(obs Observer) Option {
	return func(h *Handler) {
		h.observer = obs
	}
}

// WithClassifier replaces the classifier derived from the service table.
func WithClassifier(c *Classifier) Option {
	return func(h *Handler) {
		h.classifier = c
	}
}

// WithClock replaces the wall clock. For tests.
func WithClock(now func() time.Time) Option {
	return func(h *Handler) {
		h.now = now
	}
}

// WithJitterSource replaces the jitter random source. src must return values
// uniform in [0, 1). For tests.
func WithJitterSource(src func() float64) Option {
	return func(h *Handler) {
		h.jitterSrc = src
	}
}

// NewHandler creates a Handler seeded with the default service table.
func NewHandler(log *logger.Logger, opts ...Option) *Handler {
	h := &Handler{
		log:       log.WithComponent("resilience"),
		jitterSrc: rand.Float64,
		now:       time.Now,
		configs:   DefaultServiceConfigs(),
		breakers:  make(map[string]*CircuitBreaker),
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.classifier == nil {
		var aware []string
		for name, cfg := range h.configs {
			if cfg.RateLimitAware {
				aware = append(aware, name)
			}
		}
		h.classifier = NewClassifier(aware...)
	}
	return h
}

// breakerFor returns the breaker and effective config for a service, lazily
// creating both with defaults on first use.
func (h *Handler) breakerFor(service string) (*CircuitBreaker, ServiceConfig) {
	h.mu.RLock()
	cb, ok := h.breakers[service]
	cfg := h.serviceConfigLocked(service)
	h.mu.RUnlock()
	if ok {
		return cb, cfg
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	// Another caller may have created it between the locks.
	if cb, ok = h.breakers[service]; ok {
		return cb, cfg
	}

	bc := cfg.CircuitBreaker
	userHook := bc.OnStateChange
	bc.OnStateChange = func(svc string, from, to State) {
		h.logStateChange(svc, from, to)
		if h.observer != nil {
			h.observer.ObserveStateChange(svc, from, to)
		}
		if userHook != nil {
			userHook(svc, from, to)
		}
	}

	cb = NewCircuitBreaker(service, bc)
	cb.now = h.now
	h.breakers[service] = cb
	return cb, cfg
}

// serviceConfigLocked resolves the effective config. Callers must hold h.mu.
func (h *Handler) serviceConfigLocked(service string) ServiceConfig {
	if cfg, ok := h.configs[service]; ok {
		return cfg
	}
	return ServiceConfig{
		Retry:          DefaultRetryConfig(),
		CircuitBreaker: DefaultCircuitBreakerConfig(),
	}
}

// logStateChange mirrors the transition's severity: probing and recovery are
// routine, reopening after a failed probe is a warning, tripping is an error.
func (h *Handler) logStateChange(service string, from, to State) {
	fields := map[string]interface{}{
		"service": service,
		"from":    from.String(),
		"to":      to.String(),
	}
	switch {
	case to == StateHalfOpen:
		h.log.Info("Circuit breaker probing for recovery", fields)
	case to == StateClosed:
		h.log.Info("Circuit breaker recovered", fields)
	case to == StateOpen && from == StateHalfOpen:
		h.log.Warn("Circuit breaker failed during recovery, back to open", fields)
	default:
		h.log.Error("Circuit breaker opened", fields)
	}
}

// Services returns the sorted names of every configured or lazily created
// service.
func (h *Handler) Services() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	seen := make(map[string]bool, len(h.configs)+len(h.breakers))
	names := make([]string, 0, len(h.configs)+len(h.breakers))
	for name := range h.configs {
		seen[name] = true
		names = append(names, name)
	}
	for name := range h.breakers {
		if !seen[name] {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// Known reports whether a service is in the configuration table.
func (h *Handler) Known(service string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.configs[service]
	return ok
}

// Status returns a read-only snapshot for a service. A service that never
// executed reports the "unknown" state sentinel with zero counters.
func (h *Handler) Status(service string) Status {
	h.mu.RLock()
	cb, ok := h.breakers[service]
	h.mu.RUnlock()

	if !ok {
		return Status{Service: service, State: "unknown"}
	}
	return cb.Status()
}

// Reset forces a service's breaker back to closed. No-op for services that
// never executed.
func (h *Handler) Reset(service string) {
	h.mu.RLock()
	cb, ok := h.breakers[service]
	h.mu.RUnlock()

	if !ok {
		return
	}
	cb.Reset()
	h.log.Info("Circuit breaker manually reset", map[string]interface{}{
		"service": service,
	})
}
