// Package observability provides OpenTelemetry tracing and metrics for
// live query subscriptions.
//
// Tracing:
//
//	tp, err := observability.InitTracer(ctx, &cfg.Tracing)
//	defer tp.Shutdown(ctx)
//
// Metrics:
//
//	mp, err := observability.InitMeter(ctx, &cfg.Metrics)
//	defer mp.Shutdown(ctx)
//
//	metrics, err := observability.NewMetrics(observability.Meter("livequery"))
//	metrics.SubscriptionStarted(ctx, "streaming")
//
// Without InitTracer/InitMeter the global providers are no-ops and every
// instrument call is free.
package observability
