package pipeline

import "context"

// Iterator is the contract every stage of a live stream implements: the
// event source yields raw events, the reconciler yields snapshots.
type Iterator[T any] interface {
	// Next blocks until the stage has a value. It returns (zero, false, nil)
	// once the stream ended normally and a non-nil error once it failed.
	Next(ctx context.Context) (T, bool, error)
	// Close tears the stage down along with everything upstream of it.
	Close() error
}

// Pipeline is a stage chain that is not pulled until Collect, Drain or Iter.
type Pipeline[T any] struct {
	create func(ctx context.Context) Iterator[T]
}

// Runnable delivers a stream once Run is called.
type Runnable struct {
	run func(ctx context.Context) error
}

// Run delivers values until the stream ends, a stage or the sink fails, or
// ctx is done.
func (r *Runnable) Run(ctx context.Context) error {
	return r.run(ctx)
}

// From wraps an existing stage.
func From[T any](iter Iterator[T]) *Pipeline[T] {
	return &Pipeline[T]{
		create: func(_ context.Context) Iterator[T] {
			return iter
		},
	}
}

// FromSlice replays a recorded sequence, such as the events of a captured
// stream, as a stage.
func FromSlice[T any](items []T) *Pipeline[T] {
	return &Pipeline[T]{
		create: func(_ context.Context) Iterator[T] {
			return &replayIter[T]{items: items}
		},
	}
}

// Drain hands every value to sink. A value counts as acknowledged once sink
// returns, and the upstream stage is not pulled again before that, so a slow
// observer holds back the network read and patch application. The stage is
// closed when Run returns.
func Drain[T any](p *Pipeline[T], sink func(context.Context, T) error) *Runnable {
	return &Runnable{
		run: func(ctx context.Context) error {
			iter := p.create(ctx)
			defer iter.Close()
			for {
				val, ok, err := iter.Next(ctx)
				if err != nil || !ok {
					return err
				}
				if err := sink(ctx, val); err != nil {
					return err
				}
			}
		},
	}
}

// Collect pulls a finite stream to its end. Snapshots produced before a
// failure are returned together with the error.
func Collect[T any](ctx context.Context, p *Pipeline[T]) ([]T, error) {
	var out []T
	err := Drain(p, func(_ context.Context, v T) error {
		out = append(out, v)
		return nil
	}).Run(ctx)
	return out, err
}

// Iter opens the stage chain for manual pulling. The caller must Close it.
func (p *Pipeline[T]) Iter(ctx context.Context) Iterator[T] {
	return p.create(ctx)
}

type replayIter[T any] struct {
	items []T
	next  int
}

func (it *replayIter[T]) Next(_ context.Context) (T, bool, error) {
	if it.next == len(it.items) {
		var zero T
		return zero, false, nil
	}
	v := it.items[it.next]
	it.next++
	return v, true, nil
}

func (it *replayIter[T]) Close() error { return nil }
