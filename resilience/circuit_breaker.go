package resilience

import (
	"sync"
	"time"
)

// State represents the circuit breaker state.
type State int

const (
	// StateClosed allows requests to pass through.
	StateClosed State = iota
	// StateOpen rejects all requests until the recovery timeout elapses.
	StateOpen
	// StateHalfOpen lets a probe request test whether the service recovered.
	StateHalfOpen
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// CircuitBreakerConfig configures a circuit breaker.
type CircuitBreakerConfig struct {
	// FailureThreshold is the number of consecutive matching failures before
	// the circuit opens.
	FailureThreshold int `mapstructure:"failure_threshold" validate:"gte=1"`
	// RecoveryTimeout is how long the circuit stays open before a probe is allowed.
	RecoveryTimeout time.Duration `mapstructure:"recovery_timeout" validate:"gte=0"`
	// FailurePredicate reports whether an error counts toward the threshold.
	// Errors it rejects pass through without touching the failure count.
	// A nil predicate counts every error.
	FailurePredicate func(error) bool `mapstructure:"-"`
	// OnStateChange is called after every state transition.
	OnStateChange func(service string, from, to State) `mapstructure:"-"`
}

// DefaultCircuitBreakerConfig returns the library-wide breaker defaults.
func DefaultCircuitBreakerConfig() CircuitBreakerConfig {
	return CircuitBreakerConfig{
		FailureThreshold: 5,
		RecoveryTimeout:  60 * time.Second,
	}
}

// CircuitBreaker gates execution for one service based on recent failure
// history. One instance exists per service name and lives for the process
// lifetime; all state is guarded by its own mutex so independent services
// never contend.
type CircuitBreaker struct {
	service string
	config  CircuitBreakerConfig
	now     func() time.Time

	mu          sync.Mutex
	state       State
	failures    int
	lastFailure time.Time
	nextAttempt time.Time
}

// NewCircuitBreaker creates a circuit breaker for a service.
func NewCircuitBreaker(service string, config CircuitBreakerConfig) *CircuitBreaker {
	if config.FailureThreshold <= 0 {
		config.FailureThreshold = 5
	}
	if config.RecoveryTimeout < 0 {
		config.RecoveryTimeout = 0
	}
	return &CircuitBreaker{
		service: service,
		config:  config,
		now:     time.Now,
		state:   StateClosed,
	}
}

// CanExecute reports whether a call may be attempted. When the circuit is
// open and the recovery timeout has elapsed, the check and the transition to
// half-open happen under the same lock, so concurrent callers observe a
// consistent probe window. It never blocks.
func (cb *CircuitBreaker) CanExecute() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateClosed:
		return true
	case StateOpen:
		if !cb.nextAttempt.IsZero() && !cb.now().Before(cb.nextAttempt) {
			cb.toState(StateHalfOpen)
			return true
		}
		return false
	case StateHalfOpen:
		return true
	default:
		return false
	}
}

// RecordSuccess resets the failure history. In half-open state it closes the
// circuit.
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == StateHalfOpen {
		cb.toState(StateClosed)
	}
	cb.failures = 0
	cb.lastFailure = time.Time{}
	cb.nextAttempt = time.Time{}
}

// RecordFailure counts a failed operation. Errors rejected by the configured
// failure predicate are ignored entirely, so a breaker can be scoped to one
// error family while unrelated errors pass through unaffected.
func (cb *CircuitBreaker) RecordFailure(err error) {
	if cb.config.FailurePredicate != nil && !cb.config.FailurePredicate(err) {
		return
	}

	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failures++
	cb.lastFailure = cb.now()

	switch cb.state {
	case StateHalfOpen:
		// Probe failed, back to open for another recovery window.
		cb.nextAttempt = cb.now().Add(cb.config.RecoveryTimeout)
		cb.toState(StateOpen)
	case StateClosed:
		if cb.failures >= cb.config.FailureThreshold {
			cb.nextAttempt = cb.now().Add(cb.config.RecoveryTimeout)
			cb.toState(StateOpen)
		}
	}
}

// State returns the current state without triggering transitions.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// Status returns a read-only snapshot of the breaker.
func (cb *CircuitBreaker) Status() Status {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	st := Status{
		Service:      cb.service,
		State:        cb.state.String(),
		FailureCount: cb.failures,
	}
	if !cb.lastFailure.IsZero() {
		t := cb.lastFailure
		st.LastFailureTime = &t
	}
	if !cb.nextAttempt.IsZero() {
		t := cb.nextAttempt
		st.NextAttemptTime = &t
	}
	return st
}

// Reset forces the breaker back to closed with zero counters. Administrative
// operation, not used on the request path.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failures = 0
	cb.lastFailure = time.Time{}
	cb.nextAttempt = time.Time{}
	cb.toState(StateClosed)
}

// toState transitions to a new state. Callers must hold cb.mu.
func (cb *CircuitBreaker) toState(to State) {
	if cb.state == to {
		return
	}
	from := cb.state
	cb.state = to

	// next_attempt_time is meaningful only while open.
	if to != StateOpen {
		cb.nextAttempt = time.Time{}
	}

	if cb.config.OnStateChange != nil {
		cb.config.OnStateChange(cb.service, from, to)
	}
}

// Status is a read-only snapshot of one breaker, shaped for the
// external-services admin surface.
type Status struct {
	Service         string     `json:"service_name"`
	State           string     `json:"state"`
	FailureCount    int        `json:"failure_count"`
	LastFailureTime *time.Time `json:"last_failure_time"`
	NextAttemptTime *time.Time `json:"next_attempt_time"`
}
