// Package worker provides a generic, thread-safe worker pool for concurrent task processing.
//
// # Overview
//
// The worker package implements a worker pool with:
//   - Generic type support for type-safe work processing
//   - Bounded queues with backpressure (non-blocking submit)
//   - Context-aware cancellation and graceful shutdown
//   - Panic containment per work item
//   - Always-on statistics plus optional Prometheus metrics
//
// Its primary consumer is the bot layer: command and trigger handlers run on
// an endpoint's receive loop, where the server's responsiveness timeout
// punishes slow work, so anything long-running is submitted to a Pool and
// the handler returns immediately.
//
// # Usage
//
//	type chatTask struct {
//	    ReplyTo string
//	    Text    string
//	}
//
//	pool := worker.NewPool[chatTask](
//	    4,   // workers
//	    64,  // queue size
//	    func(ctx context.Context, task chatTask) error {
//	        _, err := bot.SendChat(ctx, task.Text, task.ReplyTo, nil)
//	        return err
//	    },
//	)
//
//	if err := pool.Start(ctx); err != nil {
//	    return err
//	}
//	defer pool.Stop(5 * time.Second)
//
//	if err := pool.Submit(chatTask{ReplyTo: msg.ID, Text: "Pong!"}); err != nil {
//	    if errors.Is(err, worker.ErrQueueFull) {
//	        // overloaded: drop or reply with a busy notice
//	    }
//	}
//
// With Prometheus metrics:
//
//	registry := metric.NewMetricsRegistry()
//	pool := worker.NewPool[chatTask](
//	    4, 64, process,
//	    worker.WithMetricsRegistry[chatTask](registry, "bot_tasks"),
//	)
//
// Exposed series: <prefix>_queue_depth, <prefix>_utilization,
// <prefix>_submitted_total, <prefix>_processed_total, <prefix>_failed_total,
// <prefix>_dropped_total, <prefix>_processing_duration_seconds (by status).
//
// # Design Decisions
//
// Submit is non-blocking: a full queue returns ErrQueueFull instead of
// stalling the caller. On a chat endpoint the caller is the receive loop,
// which must never block, so overload surfaces as dropped work rather than
// as a frozen connection.
//
// Stop(timeout) closes the work channel, lets workers drain the queue, and
// waits up to the timeout; ErrStopTimeout reports workers that did not
// finish. Worker count is fixed at construction; there is no dynamic
// scaling.
//
// Processors are usually user-written handlers, so a panic inside one is
// recovered, logged and counted as a failed item; the worker goroutine
// survives it.
//
// # Thread Safety
//
// All public methods are safe for concurrent use. Statistics use atomic
// operations; lifecycle transitions are guarded by a mutex. Start can only
// succeed once, Submit fails before Start and after Stop, and Stop is
// idempotent.
package worker
