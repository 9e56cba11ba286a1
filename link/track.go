package link

import (
	"context"
	"sync"

	"github.com/kbukum/livequery/bridge"
	"github.com/kbukum/livequery/observability"
	"github.com/kbukum/livequery/operation"
)

// tracked ties a subscription's span and metrics to its outcome. Exactly one
// of complete, failure or cancel ends the span.
type tracked struct {
	ctx    context.Context
	sc     *observability.SubscriptionContext
	inner  bridge.Observer
	once   sync.Once
	handle *bridge.Handle
}

func (t *tracked) Next(res *operation.Result) {
	t.sc.Snapshot(t.ctx)
	t.inner.Next(res)
}

func (t *tracked) Error(err error) {
	t.end(observability.StatusFailed, err)
	t.inner.Error(err)
}

func (t *tracked) Complete() {
	t.end(observability.StatusCompleted, nil)
	t.inner.Complete()
}

func (t *tracked) end(status string, err error) {
	t.once.Do(func() { t.sc.End(t.ctx, status, err) })
}

// Cancel implements Subscription.
func (t *tracked) Cancel() {
	t.handle.Cancel()
	t.end(observability.StatusCancelled, nil)
}

// watch ends the span when the subscription stops without an outcome, such
// as after its context is cancelled.
func (t *tracked) watch() {
	<-t.handle.Done()
	t.end(observability.StatusCancelled, nil)
}

// Done implements Subscription.
func (t *tracked) Done() <-chan struct{} {
	return t.handle.Done()
}
