package link

import (
	"context"
	"sync"
	"time"

	"github.com/kbukum/livequery/bridge"
	"github.com/kbukum/livequery/credential"
	"github.com/kbukum/livequery/operation"
)

// AuthOptions configure WithAuth.
type AuthOptions struct {
	// Template is passed to the token provider.
	Template string
	// AllowAnonymous subscribes without an authorization header when the
	// provider has no token.
	AllowAnonymous bool
	// Leeway tolerates clock skew when checking token expiry.
	Leeway time.Duration
}

// WithAuth fetches a token before the inner link is subscribed and sets
// it as "authorization: Bearer <token>" on a copy of the operation. A
// failed fetch or an unusable token is reported to the observer and the
// inner link is never subscribed.
func WithAuth(provider credential.TokenProvider, opts AuthOptions) Middleware {
	return func(next Link) Link {
		return Func(func(ctx context.Context, op *operation.Operation, obs bridge.Observer) Subscription {
			ctx, cancel := context.WithCancel(ctx)
			s := &lazySubscription{cancel: cancel, done: make(chan struct{})}
			go s.run(ctx, func(ctx context.Context) (Subscription, error) {
				token, err := credential.Fetch(ctx, provider,
					credential.FetchOptions{Template: opts.Template},
					credential.CheckOptions{AllowAnonymous: opts.AllowAnonymous, Leeway: opts.Leeway})
				if err != nil {
					return nil, err
				}
				authed := op
				if token != "" {
					authed = op.WithHeader("authorization", "Bearer "+token)
				}
				return next.Subscribe(ctx, authed, obs), nil
			}, obs)
			return s
		})
	}
}

// lazySubscription stands in for an inner subscription that is created
// after an asynchronous step.
type lazySubscription struct {
	mu        sync.Mutex
	inner     Subscription
	cancelled bool
	cancel    context.CancelFunc
	done      chan struct{}
}

func (s *lazySubscription) run(ctx context.Context, start func(context.Context) (Subscription, error), obs bridge.Observer) {
	defer close(s.done)
	defer s.cancel()

	inner, err := start(ctx)

	s.mu.Lock()
	if s.cancelled {
		s.mu.Unlock()
		if inner != nil {
			inner.Cancel()
			<-inner.Done()
		}
		return
	}
	s.inner = inner
	s.mu.Unlock()

	if err != nil {
		if ctx.Err() == nil {
			obs.Error(err)
		}
		return
	}
	<-inner.Done()
}

// Cancel implements Subscription.
func (s *lazySubscription) Cancel() {
	s.mu.Lock()
	if s.cancelled {
		s.mu.Unlock()
		return
	}
	s.cancelled = true
	inner := s.inner
	s.mu.Unlock()

	s.cancel()
	if inner != nil {
		inner.Cancel()
	}
}

// Done implements Subscription.
func (s *lazySubscription) Done() <-chan struct{} {
	return s.done
}
