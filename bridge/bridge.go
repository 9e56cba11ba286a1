// Package bridge delivers the snapshots of a subscription to an observer
// and gives the caller a handle to cancel it.
//
// Each subscription runs on one goroutine that pulls from the snapshot
// iterator and calls the observer synchronously, so snapshots arrive in
// wire order and the stream is read no faster than the observer consumes.
package bridge

import (
	"context"
	stderrors "errors"
	"io"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/kbukum/livequery/logger"
	"github.com/kbukum/livequery/operation"
	"github.com/kbukum/livequery/pipeline"
)

// Option configures a subscription.
type Option func(*options)

type options struct {
	id  string
	log *logger.Logger
}

// WithID sets the subscription id used in logs. A random UUID is used
// otherwise.
func WithID(id string) Option {
	return func(o *options) { o.id = id }
}

// WithLogger sets the logger.
func WithLogger(l *logger.Logger) Option {
	return func(o *options) { o.log = l }
}

// Handle controls a running subscription.
type Handle struct {
	id       string
	cancel   context.CancelFunc
	closer   io.Closer
	once     sync.Once
	canceled atomic.Bool
	done     chan struct{}
	log      *logger.Logger
}

// Subscribe starts delivering snapshots from src to obs and returns at once.
// closer releases the underlying connection on Cancel; when nil, src is
// closed instead. Cancelling ctx behaves like Cancel.
func Subscribe(ctx context.Context, src pipeline.Iterator[*operation.Result], closer io.Closer, obs Observer, opts ...Option) *Handle {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.id == "" {
		o.id = uuid.NewString()
	}
	if closer == nil {
		closer = src
	}

	ctx, cancel := context.WithCancel(ctx)
	h := &Handle{
		id:     o.id,
		cancel: cancel,
		closer: closer,
		done:   make(chan struct{}),
		log:    logger.OrComponent(o.log, "bridge").WithFields(logger.Fields(logger.FieldSubscriptionID, o.id)),
	}
	go h.run(ctx, src, obs)
	return h
}

// ID returns the subscription id.
func (h *Handle) ID() string { return h.id }

// Done is closed when the subscription goroutine has exited.
func (h *Handle) Done() <-chan struct{} { return h.done }

// Cancel stops the subscription: the connection is closed before Cancel
// returns and the observer receives no further calls. A call already in
// progress on the subscription goroutine is allowed to finish. Cancel is
// idempotent and safe to call from an observer callback.
func (h *Handle) Cancel() {
	h.once.Do(func() {
		h.canceled.Store(true)
		h.cancel()
		if err := h.closer.Close(); err != nil {
			h.log.Debug("close after cancel", logger.Fields(logger.FieldError, err.Error()))
		}
		h.log.Debug("subscription cancelled")
	})
}

func (h *Handle) run(ctx context.Context, src pipeline.Iterator[*operation.Result], obs Observer) {
	defer close(h.done)
	defer h.cancel()

	delivered := 0
	err := pipeline.Drain(pipeline.From(src), func(ctx context.Context, res *operation.Result) error {
		if h.stopped(ctx) {
			return errStopped
		}
		delivered++
		obs.Next(res)
		return nil
	}).Run(ctx)

	if stderrors.Is(err, errStopped) || h.stopped(ctx) {
		return
	}
	if err != nil {
		h.log.Debug("subscription failed", logger.Fields(
			logger.FieldError, err.Error(), "snapshots", delivered))
		obs.Error(err)
		return
	}
	h.log.Debug("subscription complete", logger.Fields("snapshots", delivered))
	obs.Complete()
}

var errStopped = stderrors.New("subscription stopped")

// stopped reports whether delivery must stop: the handle was cancelled or
// the caller's context is done.
func (h *Handle) stopped(ctx context.Context) bool {
	if h.canceled.Load() {
		return true
	}
	if ctx.Err() != nil {
		h.Cancel()
		return true
	}
	return false
}
