package observability

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/PrakyathReddy/StackDebt-sub001/resilience"
)

// ResilienceMetrics holds the instruments fed by the resilience layer. It
// implements resilience.Observer.
type ResilienceMetrics struct {
	attemptTotal    metric.Int64Counter
	stateTransition metric.Int64Counter
	rejectionTotal  metric.Int64Counter
}

// NewResilienceMetrics creates the resilience instruments on the given meter.
func NewResilienceMetrics(meter metric.Meter) (*ResilienceMetrics, error) {
	attemptTotal, err := meter.Int64Counter("resilience.attempt.total",
		metric.WithDescription("Total upstream attempts, by service and outcome"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating resilience.attempt.total counter: %w", err)
	}

	stateTransition, err := meter.Int64Counter("resilience.breaker.transition.total",
		metric.WithDescription("Circuit breaker state transitions"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating resilience.breaker.transition.total counter: %w", err)
	}

	rejectionTotal, err := meter.Int64Counter("resilience.breaker.rejection.total",
		metric.WithDescription("Calls rejected by an open circuit breaker"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating resilience.breaker.rejection.total counter: %w", err)
	}

	return &ResilienceMetrics{
		attemptTotal:    attemptTotal,
		stateTransition: stateTransition,
		rejectionTotal:  rejectionTotal,
	}, nil
}

// ObserveAttempt records one completed attempt.
func (m *ResilienceMetrics) ObserveAttempt(service string, attempt int, err error) {
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	m.attemptTotal.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String("service", service),
		attribute.String("outcome", outcome),
	))
}

// ObserveStateChange records a breaker transition.
func (m *ResilienceMetrics) ObserveStateChange(service string, from, to resilience.State) {
	m.stateTransition.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String("service", service),
		attribute.String("from", from.String()),
		attribute.String("to", to.String()),
	))
}

// ObserveRejection records a fast-fail rejection by an open breaker.
func (m *ResilienceMetrics) ObserveRejection(service string) {
	m.rejectionTotal.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String("service", service),
	))
}
