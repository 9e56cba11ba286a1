// Package eventsource maintains a server-sent event stream that survives
// transient failures.
//
// A Source connects lazily on the first Next call, frames the body with
// package sse and yields one RawEvent per data event. Dropped connections,
// 5xx responses and idle connections are re-established with exponential
// backoff and the last event id; the consumer never sees those failures.
// Fatal failures are reported once as a KindError event, and the stream ends
// with KindTerminal when the server completes it.
//
//	src := eventsource.Open(ctx, cfg, req)
//	defer src.Close()
//	for {
//	    ev, ok, err := src.Next(ctx)
//	    ...
//	}
package eventsource
