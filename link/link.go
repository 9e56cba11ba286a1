// Package link composes the stages an operation passes through on its way
// to the server: middlewares such as authentication, a split between the
// streaming and request/response transports, and the transports
// themselves.
//
//	l := link.From(
//		link.Split(operation.IsStreaming, live, http),
//		link.WithAuth(provider, link.AuthOptions{Template: "grafbase"}),
//	)
//	sub := l.Subscribe(ctx, op, observer)
//	defer sub.Cancel()
package link

import (
	"context"

	"github.com/kbukum/livequery/bridge"
	"github.com/kbukum/livequery/operation"
)

// Subscription is a running operation.
type Subscription interface {
	// Cancel stops delivery and releases the connection. It is idempotent.
	Cancel()
	// Done is closed once nothing more will be delivered.
	Done() <-chan struct{}
}

// Link executes an operation and reports its results to obs. Subscribe
// returns at once; results arrive on another goroutine.
type Link interface {
	Subscribe(ctx context.Context, op *operation.Operation, obs bridge.Observer) Subscription
}

// Func adapts an ordinary function to the Link interface.
type Func func(ctx context.Context, op *operation.Operation, obs bridge.Observer) Subscription

// Subscribe implements Link.
func (f Func) Subscribe(ctx context.Context, op *operation.Operation, obs bridge.Observer) Subscription {
	return f(ctx, op, obs)
}

// Middleware wraps a Link with cross-cutting behavior.
type Middleware func(Link) Link

// Chain composes multiple middlewares into one. Middlewares are applied
// in order: the first middleware is outermost.
//
// Chain(a, b, c)(l) is equivalent to a(b(c(l))).
func Chain(middlewares ...Middleware) Middleware {
	return func(inner Link) Link {
		for i := len(middlewares) - 1; i >= 0; i-- {
			inner = middlewares[i](inner)
		}
		return inner
	}
}

// From wraps terminal with middlewares, the first one outermost.
func From(terminal Link, middlewares ...Middleware) Link {
	return Chain(middlewares...)(terminal)
}

// Split routes each operation to left when test reports true, otherwise to
// right.
func Split(test func(*operation.Operation) bool, left, right Link) Link {
	return Func(func(ctx context.Context, op *operation.Operation, obs bridge.Observer) Subscription {
		if test(op) {
			return left.Subscribe(ctx, op, obs)
		}
		return right.Subscribe(ctx, op, obs)
	})
}

// Fail returns a subscription that reports err to obs and ends.
func Fail(ctx context.Context, obs bridge.Observer, err error) Subscription {
	return bridge.Subscribe(ctx, failed{err: err}, nil, obs)
}

type failed struct{ err error }

func (f failed) Next(context.Context) (*operation.Result, bool, error) { return nil, false, f.err }
func (f failed) Close() error                                        { return nil }
