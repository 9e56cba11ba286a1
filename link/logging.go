package link

import (
	"context"
	"time"

	"github.com/kbukum/livequery/bridge"
	"github.com/kbukum/livequery/logger"
	"github.com/kbukum/livequery/operation"
)

// WithLogging returns a Middleware that logs the outcome of each operation.
func WithLogging(log *logger.Logger) Middleware {
	log = logger.OrComponent(log, "link")
	return func(next Link) Link {
		return Func(func(ctx context.Context, op *operation.Operation, obs bridge.Observer) Subscription {
			fields := logger.Fields(
				logger.FieldOperationName, op.Name(),
				logger.FieldTransport, operation.Select(op).String(),
			)
			log.Debug("operation subscribed", fields)
			return next.Subscribe(ctx, op, &loggingObserver{inner: obs, log: log, fields: fields, start: time.Now()})
		})
	}
}

type loggingObserver struct {
	inner     bridge.Observer
	log       *logger.Logger
	fields    map[string]interface{}
	start     time.Time
	snapshots int
}

func (o *loggingObserver) Next(res *operation.Result) {
	o.snapshots++
	o.inner.Next(res)
}

func (o *loggingObserver) Error(err error) {
	fields := logger.MergeWithDuration(logger.MergeWithError(o.outcome(), err), time.Since(o.start))
	o.log.Error("operation failed", fields)
	o.inner.Error(err)
}

func (o *loggingObserver) Complete() {
	o.log.Debug("operation complete", logger.MergeWithDuration(o.outcome(), time.Since(o.start)))
	o.inner.Complete()
}

func (o *loggingObserver) outcome() map[string]interface{} {
	out := make(map[string]interface{}, len(o.fields)+1)
	for k, v := range o.fields {
		out[k] = v
	}
	out["snapshots"] = o.snapshots
	return out
}
