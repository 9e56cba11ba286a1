package link

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/kbukum/livequery/bridge"
	"github.com/kbukum/livequery/encoder"
	"github.com/kbukum/livequery/eventsource"
	"github.com/kbukum/livequery/logger"
	"github.com/kbukum/livequery/observability"
	"github.com/kbukum/livequery/operation"
	"github.com/kbukum/livequery/pipeline"
	"github.com/kbukum/livequery/reconcile"
)

// LiveLink runs subscriptions and live queries over a server-sent event
// stream, reconstructing each snapshot from the baseline and patches the
// server pushes.
type LiveLink struct {
	endpoint string
	cfg      eventsource.Config
	opts     options
}

// NewLiveLink creates a live link for the event-stream endpoint.
func NewLiveLink(endpoint string, cfg eventsource.Config, opts ...Option) *LiveLink {
	cfg.ApplyDefaults()
	return &LiveLink{endpoint: endpoint, cfg: cfg, opts: applyOptions("link.live", opts)}
}

// Subscribe implements Link. The operation's authorization header, if any,
// travels as the authorization query parameter.
func (l *LiveLink) Subscribe(ctx context.Context, op *operation.Operation, obs bridge.Observer) Subscription {
	req, err := encoder.Encode(l.endpoint, op, op.Header("authorization"))
	if err != nil {
		return Fail(ctx, obs, err)
	}

	id := uuid.NewString()
	log := l.opts.log.WithFields(logger.Fields(
		logger.FieldSubscriptionID, id,
		logger.FieldOperationName, op.Name(),
		logger.FieldTransport, operation.TransportStreaming.String(),
	))

	sc := observability.NewSubscriptionContext(id, op.Name(), operation.TransportStreaming.String(), l.opts.metrics)
	ctx = sc.Start(ctx, observability.SpanSubscription)

	srcOpts := []eventsource.Option{
		eventsource.WithLogger(log),
		eventsource.WithReconnectHook(func(attempt int, delay time.Duration, _ error) {
			sc.Reconnect(ctx, attempt, delay)
		}),
	}
	if l.opts.connector != nil {
		srcOpts = append(srcOpts, eventsource.WithConnector(l.opts.connector))
	}
	src := eventsource.Open(ctx, l.cfg, req, srcOpts...)
	rec := reconcile.New(src, reconcile.WithLogger(log))
	snapshots := pipeline.Tap(pipeline.From[*operation.Result](rec), func(_ context.Context, res *operation.Result) error {
		fields := logger.Fields("bytes", len(res.Data), "errors", len(res.Errors))
		if rev, ok := rec.Revision(); ok {
			fields[logger.FieldRevision] = rev
		}
		log.Debug("snapshot", fields)
		return nil
	})

	log.Debug("subscribing")
	t := &tracked{ctx: ctx, sc: sc, inner: obs}
	t.handle = bridge.Subscribe(ctx, snapshots.Iter(ctx), src, t, bridge.WithID(id), bridge.WithLogger(log))
	go t.watch()
	return t
}
