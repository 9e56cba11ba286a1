package bridge

import (
	"context"
	"sync"

	"github.com/kbukum/livequery/operation"
)

// Observer receives the outcome of one subscription. Next is called for
// every snapshot, in order; at most one of Error or Complete follows.
// Calls are made from the subscription's goroutine and the next snapshot is
// not read until Next returns.
type Observer interface {
	Next(res *operation.Result)
	Error(err error)
	Complete()
}

// ObserverFuncs adapts plain functions to Observer. Nil fields are ignored.
type ObserverFuncs struct {
	NextFunc     func(*operation.Result)
	ErrorFunc    func(error)
	CompleteFunc func()
}

// Next implements Observer.
func (o ObserverFuncs) Next(res *operation.Result) {
	if o.NextFunc != nil {
		o.NextFunc(res)
	}
}

// Error implements Observer.
func (o ObserverFuncs) Error(err error) {
	if o.ErrorFunc != nil {
		o.ErrorFunc(err)
	}
}

// Complete implements Observer.
func (o ObserverFuncs) Complete() {
	if o.CompleteFunc != nil {
		o.CompleteFunc()
	}
}

// ChannelObserver hands snapshots to a channel consumer. The channel is
// unbuffered: Next returns only once the consumer has received the
// snapshot, so a slower consumer holds the stream back.
type ChannelObserver struct {
	ctx     context.Context
	results chan *operation.Result
	once    sync.Once
	mu      sync.Mutex
	err     error
}

// NewChannelObserver creates a ChannelObserver. A delivery still waiting for
// the consumer is dropped once ctx is done, so an abandoned consumer never
// stalls the subscription goroutine.
func NewChannelObserver(ctx context.Context) *ChannelObserver {
	return &ChannelObserver{ctx: ctx, results: make(chan *operation.Result)}
}

// Results returns the snapshot channel. It is closed after completion or
// failure; check Err afterwards.
func (c *ChannelObserver) Results() <-chan *operation.Result {
	return c.results
}

// Err returns the failure that ended the stream, or nil on completion.
func (c *ChannelObserver) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Next implements Observer.
func (c *ChannelObserver) Next(res *operation.Result) {
	select {
	case c.results <- res:
	case <-c.ctx.Done():
	}
}

// Error implements Observer.
func (c *ChannelObserver) Error(err error) {
	c.mu.Lock()
	c.err = err
	c.mu.Unlock()
	c.finish()
}

// Complete implements Observer.
func (c *ChannelObserver) Complete() {
	c.finish()
}

func (c *ChannelObserver) finish() {
	c.once.Do(func() { close(c.results) })
}
