package observability

import (
	"context"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/kbukum/livequery/errors"
)

// Subscription statuses recorded on spans and metrics.
const (
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
	StatusFailed    = "failed"
)

// SubscriptionContext tracks one subscription from start to end.
type SubscriptionContext struct {
	ID            string
	OperationName string
	Transport     string
	StartTime     time.Time
	Metrics       *Metrics

	span      trace.Span
	snapshots atomic.Int64
}

// NewSubscriptionContext creates a subscription context.
// If metrics is nil, metric recording is silently skipped.
func NewSubscriptionContext(id, operationName, transport string, metrics *Metrics) *SubscriptionContext {
	return &SubscriptionContext{
		ID:            id,
		OperationName: operationName,
		Transport:     transport,
		StartTime:     time.Now(),
		Metrics:       metrics,
		span:          trace.SpanFromContext(context.Background()),
	}
}

type subscriptionContextKey struct{}

// WithSubscriptionContext stores a SubscriptionContext in the context.
func WithSubscriptionContext(ctx context.Context, sc *SubscriptionContext) context.Context {
	return context.WithValue(ctx, subscriptionContextKey{}, sc)
}

// SubscriptionContextFromContext retrieves the SubscriptionContext from
// context, or nil.
func SubscriptionContextFromContext(ctx context.Context) *SubscriptionContext {
	if sc, ok := ctx.Value(subscriptionContextKey{}).(*SubscriptionContext); ok {
		return sc
	}
	return nil
}

// Start opens the subscription span and records the start metric.
func (sc *SubscriptionContext) Start(ctx context.Context, spanName string) context.Context {
	ctx, sc.span = StartSpan(ctx, spanName, trace.WithSpanKind(trace.SpanKindClient))
	sc.span.SetAttributes(
		attribute.String(AttrSubscriptionID, sc.ID),
		attribute.String(AttrOperationName, sc.OperationName),
		transportAttr(sc.Transport),
	)
	sc.Metrics.SubscriptionStarted(ctx, sc.Transport)
	return WithSubscriptionContext(ctx, sc)
}

// Snapshot records one delivered snapshot.
func (sc *SubscriptionContext) Snapshot(ctx context.Context) {
	sc.snapshots.Add(1)
	sc.Metrics.RecordSnapshot(ctx, sc.Transport)
}

// Reconnect records one reconnect attempt on the span and the counter.
func (sc *SubscriptionContext) Reconnect(ctx context.Context, attempt int, delay time.Duration) {
	sc.span.AddEvent("reconnect", trace.WithAttributes(
		attribute.Int("attempt", attempt),
		attribute.Int64("backoff_ms", delay.Milliseconds()),
	))
	sc.Metrics.RecordReconnect(ctx)
}

// End closes the span and records the end metrics. err is nil unless the
// status is StatusFailed. Call it once.
func (sc *SubscriptionContext) End(ctx context.Context, status string, err error) {
	if err != nil {
		code := string(errors.ErrCodeInternal)
		if appErr, ok := errors.AsAppError(err); ok {
			code = string(appErr.Code)
		}
		sc.span.RecordError(err)
		sc.span.SetStatus(codes.Error, err.Error())
		sc.span.SetAttributes(attribute.String(AttrErrorCode, code))
		sc.Metrics.RecordError(ctx, code, sc.Transport)
	}
	sc.span.SetAttributes(
		attribute.String(AttrStatus, status),
		attribute.Int64(AttrSnapshots, sc.snapshots.Load()),
	)
	sc.span.End()
	sc.Metrics.SubscriptionEnded(ctx, sc.Transport, status, sc.Duration())
}

// Duration returns the elapsed time since the subscription started.
func (sc *SubscriptionContext) Duration() time.Duration {
	return time.Since(sc.StartTime)
}
