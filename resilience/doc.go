// Package resilience provides the backoff policy shared by the event channel
// reconnect loop and the request/response client.
//
// Retry runs a call until it succeeds, a non-retryable error occurs, or the
// attempts are spent. Long-lived loops that manage their own attempts use
// Backoff and Wait directly:
//
//	for attempt := 1; ; attempt++ {
//	    if err := connect(); err == nil {
//	        break
//	    }
//	    if err := resilience.Wait(ctx, cfg.Backoff(attempt)); err != nil {
//	        return err
//	    }
//	}
package resilience
