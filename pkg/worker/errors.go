package worker

import "errors"

// Sentinel errors returned by Pool operations.
var (
	// ErrPoolNotStarted reports Submit before Start.
	ErrPoolNotStarted = errors.New("worker pool not started")

	// ErrPoolStopped reports Submit after Stop.
	ErrPoolStopped = errors.New("worker pool stopped")

	// ErrPoolAlreadyStarted reports a second Start on a running pool.
	ErrPoolAlreadyStarted = errors.New("worker pool already started")

	// ErrQueueFull reports that the queue was at capacity and the item was
	// dropped. Callers decide whether to retry or shed the work.
	ErrQueueFull = errors.New("worker pool queue full")

	// ErrNilProcessor is the panic value for NewPool without a processor.
	ErrNilProcessor = errors.New("processor function cannot be nil")

	// ErrStopTimeout reports workers still busy when the Stop deadline hit.
	ErrStopTimeout = errors.New("timeout waiting for workers to stop")
)
