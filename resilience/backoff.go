package resilience

import (
	"math"
	"math/rand"
	"time"
)

// minJitterDelay is the floor applied to jittered delays so a coincidental
// near-zero draw cannot starve the backoff schedule.
const minJitterDelay = 100 * time.Millisecond

// jitterFraction is the amplitude of the random perturbation (±25%).
const jitterFraction = 0.25

// RetryConfig configures retry behavior for one service. Zero values are
// replaced with library defaults when resolved.
type RetryConfig struct {
	// MaxAttempts is the maximum number of attempts, including the first.
	MaxAttempts int `mapstructure:"max_attempts" validate:"gte=1"`
	// BaseDelay is the delay before the second attempt.
	BaseDelay time.Duration `mapstructure:"base_delay" validate:"gt=0"`
	// MaxDelay caps the exponential growth.
	MaxDelay time.Duration `mapstructure:"max_delay" validate:"gtefield=BaseDelay"`
	// ExponentialBase is the growth factor between attempts.
	ExponentialBase float64 `mapstructure:"exponential_base" validate:"gt=1"`
	// Jitter perturbs each delay by ±25% to avoid synchronized retry storms.
	Jitter bool `mapstructure:"jitter"`
}

// DefaultRetryConfig returns the library-wide retry defaults.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:     3,
		BaseDelay:       time.Second,
		MaxDelay:        60 * time.Second,
		ExponentialBase: 2.0,
		Jitter:          true,
	}
}

// withDefaults fills zero fields from the library defaults.
func (c RetryConfig) withDefaults() RetryConfig {
	def := DefaultRetryConfig()
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = def.MaxAttempts
	}
	if c.BaseDelay <= 0 {
		c.BaseDelay = def.BaseDelay
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = def.MaxDelay
	}
	if c.ExponentialBase <= 1 {
		c.ExponentialBase = def.ExponentialBase
	}
	return c
}

// Delay returns the backoff before attempt k+1, where attempt is the number
// of attempts already made (zero-based). With jitter disabled the result is
// exactly min(maxDelay, baseDelay * exponentialBase^attempt).
func Delay(attempt int, cfg RetryConfig) time.Duration {
	return delayWithSource(attempt, cfg, rand.Float64)
}

// delayWithSource computes the delay using src for the jitter draw. src must
// return values uniform in [0, 1); it is injectable so tests can pin it.
func delayWithSource(attempt int, cfg RetryConfig, src func() float64) time.Duration {
	d := float64(cfg.BaseDelay) * math.Pow(cfg.ExponentialBase, float64(attempt))
	if d > float64(cfg.MaxDelay) {
		d = float64(cfg.MaxDelay)
	}

	if !cfg.Jitter {
		return time.Duration(d)
	}

	// Uniform draw in [-25%, +25%] of the capped delay, then floor so the
	// schedule can never collapse to zero.
	d += (src()*2 - 1) * jitterFraction * d
	if d < float64(minJitterDelay) {
		d = float64(minJitterDelay)
	}
	return time.Duration(d)
}
