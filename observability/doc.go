// Package observability provides OpenTelemetry tracing and metrics for the
// service, including the metric instruments fed by the resilience layer.
//
//	tp, _ := observability.InitTracer(ctx, observability.DefaultTracerConfig("stackdebt"))
//	defer tp.Shutdown(ctx)
//
//	mp, _ := observability.InitMeter(ctx, observability.DefaultMeterConfig("stackdebt"))
//	defer mp.Shutdown(ctx)
//
//	metrics, _ := observability.NewResilienceMetrics(observability.Meter("stackdebt"))
//	h := resilience.NewHandler(log, resilience.WithObserver(metrics))
package observability
