package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/kbukum/livequery/logger"
)

// InitMeter initializes the OpenTelemetry meter provider.
// Returns a MeterProvider that should be shut down on application exit.
func InitMeter(ctx context.Context, config *MeterConfig) (*sdkmetric.MeterProvider, error) {
	opts := []otlpmetrichttp.Option{
		otlpmetrichttp.WithEndpoint(config.Endpoint),
	}
	if config.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}

	exporter, err := otlpmetrichttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating metric exporter: %w", err)
	}

	res, err := newResource(config.ServiceName, config.ServiceVersion, config.Environment)
	if err != nil {
		return nil, fmt.Errorf("creating resource: %w", err)
	}

	readerOpts := []sdkmetric.PeriodicReaderOption{}
	if config.Interval > 0 {
		readerOpts = append(readerOpts, sdkmetric.WithInterval(config.Interval))
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, readerOpts...)),
		sdkmetric.WithResource(res),
	)

	otel.SetMeterProvider(mp)

	logger.Info("meter initialized", logger.Fields(
		"service", config.ServiceName,
		"endpoint", config.Endpoint,
		"interval", config.Interval.String(),
	))

	return mp, nil
}

// Meter returns a named meter from the global provider.
func Meter(name string) metric.Meter {
	return otel.Meter(name)
}

// Metrics holds the subscription instruments. A nil *Metrics records
// nothing.
type Metrics struct {
	subscriptionsActive  metric.Int64UpDownCounter
	subscriptionDuration metric.Float64Histogram
	snapshotsTotal       metric.Int64Counter
	reconnectsTotal      metric.Int64Counter
	errorsTotal          metric.Int64Counter
}

// NewMetrics creates metric instruments on the given meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	subscriptionsActive, err := meter.Int64UpDownCounter("livequery.subscriptions.active",
		metric.WithDescription("Number of currently open subscriptions"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating livequery.subscriptions.active counter: %w", err)
	}

	subscriptionDuration, err := meter.Float64Histogram("livequery.subscription.duration",
		metric.WithDescription("Lifetime of subscriptions in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating livequery.subscription.duration histogram: %w", err)
	}

	snapshotsTotal, err := meter.Int64Counter("livequery.snapshots.total",
		metric.WithDescription("Total number of result snapshots delivered"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating livequery.snapshots.total counter: %w", err)
	}

	reconnectsTotal, err := meter.Int64Counter("livequery.reconnects.total",
		metric.WithDescription("Total number of event stream reconnect attempts"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating livequery.reconnects.total counter: %w", err)
	}

	errorsTotal, err := meter.Int64Counter("livequery.errors.total",
		metric.WithDescription("Total subscription failures by error code"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating livequery.errors.total counter: %w", err)
	}

	return &Metrics{
		subscriptionsActive:  subscriptionsActive,
		subscriptionDuration: subscriptionDuration,
		snapshotsTotal:       snapshotsTotal,
		reconnectsTotal:      reconnectsTotal,
		errorsTotal:          errorsTotal,
	}, nil
}

// SubscriptionStarted increments the open subscription count.
func (m *Metrics) SubscriptionStarted(ctx context.Context, transport string) {
	if m == nil {
		return
	}
	m.subscriptionsActive.Add(ctx, 1, metric.WithAttributes(transportAttr(transport)))
}

// SubscriptionEnded decrements the open subscription count and records its
// lifetime.
func (m *Metrics) SubscriptionEnded(ctx context.Context, transport, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.subscriptionsActive.Add(ctx, -1, metric.WithAttributes(transportAttr(transport)))
	m.subscriptionDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		transportAttr(transport),
		attribute.String(AttrStatus, status),
	))
}

// RecordSnapshot counts one delivered snapshot.
func (m *Metrics) RecordSnapshot(ctx context.Context, transport string) {
	if m == nil {
		return
	}
	m.snapshotsTotal.Add(ctx, 1, metric.WithAttributes(transportAttr(transport)))
}

// RecordReconnect counts one reconnect attempt.
func (m *Metrics) RecordReconnect(ctx context.Context) {
	if m == nil {
		return
	}
	m.reconnectsTotal.Add(ctx, 1)
}

// RecordError counts a subscription failure by error code.
func (m *Metrics) RecordError(ctx context.Context, code, transport string) {
	if m == nil {
		return
	}
	m.errorsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String(AttrErrorCode, code),
		transportAttr(transport),
	))
}
