// Package errors provides standardized error handling patterns for basebot
// components.
//
// # Overview
//
// A long-lived chat client sees three kinds of failure, and each wants a
// different reaction. The package sorts every error into one of them:
//
//   - Transient: a retry may clear it
//   - Invalid: bad input; no retry can fix it
//   - Fatal: the endpoint's run loop should end
//
// The classification drives every retry decision in the engine. The
// connection manager retries transient transport faults through a forced
// reconnect; invalid conditions such as a missing room fail the call
// immediately; fatal conditions terminate an endpoint's run loop.
//
// # Error Classification
//
// An error's class comes from three sources, consulted in order. A
// ClassifiedError anywhere in the chain decides outright. Failing that,
// known sentinels map to their class. As a last resort the message text is
// scanned for markers such as "timeout" or "fatal", which covers errors
// surfacing from third-party transport code. Everything stays compatible
// with errors.Is and errors.As, so wrapping never hides a sentinel.
//
// # Quick Start
//
// Return sentinels for the conditions the protocol distinguishes:
//
//	if c.roomName == "" {
//	    return errors.ErrNoRoom
//	}
//
// Add context when passing a failure upward:
//
//	if err := tr.Send(ctx, pkt); err != nil {
//	    return errors.WrapTransient(err, "Client", "Send", "write frame")
//	}
//
// Branch on the class where the retry decision lives:
//
//	if err := c.receiveOnce(ctx); err != nil {
//	    if errors.IsTransient(err) {
//	        // forced reconnect, then retry
//	    }
//	}
//
// # Error Wrapping Pattern
//
// All error wrapping follows the standardized format:
//
//	"component.method: action failed: %w"
//
// This format enables consistent log parsing and debugging across the
// engine. Three wrapper functions provide classification-aware wrapping:
//
//	errors.WrapTransient(err, "Transport", "Receive", "read frame")
//	errors.WrapInvalid(err, "Supervisor", "respawn", "build replacement")
//	errors.WrapFatal(err, "Client", "Connect", "configuration")
//
// The generic Wrap() preserves the original error's classification:
//
//	errors.Wrap(err, "Client", "Connect", "dial")
//
// # Standard Error Variables
//
// Pre-defined variables cover the conditions the protocol distinguishes:
//
//   - Endpoint lifecycle: ErrAlreadyStarted, ErrNotStarted,
//     ErrAlreadyStopped, ErrShuttingDown
//   - Connection: ErrNoRoom, ErrNoConnection, ErrConnectionClosed,
//     ErrConnectionTimeout, ErrTransport
//   - Frames: ErrMalformedFrame, ErrMissingReply
//   - Back-pressure: ErrThrottled
//   - Configuration: ErrInvalidConfig, ErrMissingConfig,
//     ErrNoEndpointFactory
//
// Use these instead of ad-hoc messages so callers can match with errors.Is:
//
//	if errors.Is(err, errors.ErrNoConnection) {
//	    // not connected and not connecting: retry only if opted in
//	}
//
// # Retry Configuration
//
// RetryConfig carries a classification-aware retry policy. The chat
// protocol's reconnect contract uses a fixed inter-attempt delay, which
// FixedRetryConfig expresses directly:
//
//	rc := errors.FixedRetryConfig(4, 10*time.Second)
//	for attempt := 0; ; attempt++ {
//	    err := op()
//	    if err == nil {
//	        return nil
//	    }
//	    if !rc.ShouldRetry(err, attempt) {
//	        return err
//	    }
//	    time.Sleep(rc.BackoffDelay(attempt))
//	}
//
// ToRetryConfig bridges to the pkg/retry framework when a caller wants
// retry.Do to own the loop.
//
// # Thread Safety
//
// Classification and wrapping never mutate shared state, and the sentinel
// variables are never reassigned, so everything here may be used from any
// goroutine. A ClassifiedError must not be modified after it escapes.
package errors
