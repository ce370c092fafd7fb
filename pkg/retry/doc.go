// Package retry runs an operation under a bounded attempt budget with a
// configurable delay schedule.
//
// # Overview
//
// The connection manager spends most of its failure handling here: room
// dials run under the endpoint's fixed count/delay budget, and any caller
// facing a transient fault can reuse the same loop. A Config describes the
// schedule; Do and DoWithResult drive it.
//
// # Profiles
//
//   - DefaultConfig(): 3 attempts, 100ms growing to 5s, jittered. The
//     general profile for one-off transient faults.
//   - Fixed(n, d): n attempts separated by exactly d, no growth and no
//     jitter. The room connect profile, where the count * delay bound is
//     part of the endpoint's contract.
//
// # Usage
//
// Dialing a room under the endpoint's budget:
//
//	conn, err := retry.DoWithResult(ctx, retry.Fixed(4, 10*time.Second),
//	    func() (*transport.Conn, error) {
//	        return transport.Dial(ctx, url, timeout)
//	    })
//
// Refusing to spend the budget on a hopeless error:
//
//	if room == "" {
//	    return retry.NonRetryable(errors.ErrNoRoom)
//	}
//
// Do surfaces a NonRetryable error at once; everything else is retried
// until the attempts run out, and the final error wraps the last failure.
//
// # Scope
//
// The package is deliberately small: no circuit breaking, no metrics, no
// error classification. Callers decide what is worth retrying, either by
// marking errors NonRetryable or by classifying before they call.
//
// # Context Cancellation
//
// Cancellation is honored between attempts and during backoff sleeps; the
// returned error wraps ctx.Err() so callers can match it.
//
// # Thread Safety
//
// All functions are safe for concurrent use. Jitter draws from one
// mutex-guarded source shared across loops.
package retry
