// Package pipeline provides the pull-based iterator the live transport is
// built from.
//
// Pipelines are lazy: no work happens until values are pulled via Collect
// or Drain. Each stage pulls from the previous stage on demand, so a slow
// consumer holds back the producer without any explicit buffering. The
// event source, the patch reconciler and the stream bridge are all stages:
//
//	src := eventsource.Open(ctx, cfg, req)      // Iterator[RawEvent]
//	snapshots := reconcile.New(src)             // Iterator[*operation.Result]
//	pipeline.Drain(pipeline.From(snapshots), deliver).Run(ctx)
//
// Tap observes values in flight without altering them.
package pipeline
