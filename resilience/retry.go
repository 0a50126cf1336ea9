package resilience

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// circuitOpenRetryAfter is the fixed hint carried by fast-fail rejections.
const circuitOpenRetryAfter = 60 * time.Second

var tracer = otel.Tracer("github.com/PrakyathReddy/StackDebt-sub001/resilience")

// Operation is one unit of work against an upstream service. It performs its
// own I/O and honors ctx for cancellation and per-attempt timeouts.
type Operation[T any] func(ctx context.Context) (T, error)

// Execute runs op with the service's configured retry policy and circuit
// breaker. It returns the operation's result, or one of *CircuitOpenError,
// *NonRetryableError, *RetryExhaustedError, or the context's error if the
// caller gave up.
func Execute[T any](ctx context.Context, h *Handler, service string, op Operation[T]) (T, error) {
	var override *RetryConfig
	return execute(ctx, h, service, override, op)
}

// ExecuteWithConfig is Execute with the retry policy overridden for this call.
// The service's breaker still applies.
func ExecuteWithConfig[T any](ctx context.Context, h *Handler, service string, cfg RetryConfig, op Operation[T]) (T, error) {
	return execute(ctx, h, service, &cfg, op)
}

func execute[T any](ctx context.Context, h *Handler, service string, override *RetryConfig, op Operation[T]) (result T, err error) {
	var zero T

	cb, svcCfg := h.breakerFor(service)

	ctx, span := tracer.Start(ctx, "resilience.execute",
		trace.WithAttributes(attribute.String("service.upstream", service)))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	if !cb.CanExecute() {
		if h.observer != nil {
			h.observer.ObserveRejection(service)
		}
		span.SetAttributes(attribute.Bool("resilience.rejected", true))
		return zero, &CircuitOpenError{Service: service, RetryAfter: circuitOpenRetryAfter}
	}

	cfg := svcCfg.Retry
	if override != nil {
		cfg = *override
	}
	cfg = cfg.withDefaults()

	var lastErr error

	for attempt := 0; attempt < cfg.MaxAttempts; attempt++ {
		if ctx.Err() != nil {
			return zero, ctx.Err()
		}

		result, opErr := op(ctx)
		if opErr == nil {
			cb.RecordSuccess()
			if h.observer != nil {
				h.observer.ObserveAttempt(service, attempt, nil)
			}
			span.SetAttributes(attribute.Int("resilience.attempts", attempt+1))
			return result, nil
		}

		// The caller abandoned the call; the attempt never really completed,
		// so it does not count against the breaker.
		if errors.Is(opErr, context.Canceled) || errors.Is(opErr, context.DeadlineExceeded) {
			if ctx.Err() != nil {
				return zero, ctx.Err()
			}
		}

		lastErr = opErr
		cb.RecordFailure(opErr)
		if h.observer != nil {
			h.observer.ObserveAttempt(service, attempt, opErr)
		}

		cls := h.classifier.Classify(service, opErr)
		span.AddEvent("attempt_failed", trace.WithAttributes(
			attribute.Int("attempt", attempt+1),
			attribute.String("classification", cls.Reason),
		))

		if cls.Disposition == DispositionNonRetryable {
			h.log.Warn("Non-retryable error", map[string]interface{}{
				"service": service,
				"reason":  cls.Reason,
				"error":   opErr.Error(),
			})
			return zero, &NonRetryableError{Service: service, Reason: cls.Reason, Cause: opErr}
		}

		if attempt == cfg.MaxAttempts-1 {
			h.log.Error("All retry attempts failed", map[string]interface{}{
				"service":  service,
				"attempts": cfg.MaxAttempts,
				"error":    opErr.Error(),
			})
			break
		}

		delay := delayWithSource(attempt, cfg, h.jitterSrc)
		h.log.Warn("Attempt failed, retrying", map[string]interface{}{
			"service":  service,
			"attempt":  attempt + 1,
			"attempts": cfg.MaxAttempts,
			"reason":   cls.Reason,
			"delay":    delay.String(),
			"error":    opErr.Error(),
		})

		// Suspend only this call; concurrent executes keep running.
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, ctx.Err()
		case <-timer.C:
		}
	}

	return zero, &RetryExhaustedError{Service: service, Attempts: cfg.MaxAttempts, Cause: lastErr}
}
