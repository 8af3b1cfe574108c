package driving

import "context"

// Scheduler triggers due connectors and recovers expired leases.
type Scheduler interface {
	// Start begins running scheduled tasks.
	// Blocks until Stop is called or ctx is cancelled.
	Start(ctx context.Context) error

	// Stop gracefully stops all running tasks.
	Stop() error
}

// Dispatcher consumes triggers from a queue and runs the orchestrator.
type Dispatcher interface {
	// Serve processes deliveries until ctx is cancelled.
	Serve(ctx context.Context) error
}

// Relay drains committed landed events to the event publisher.
type Relay interface {
	// Flush publishes pending events once and returns how many were relayed.
	Flush(ctx context.Context) (int, error)

	// Serve flushes periodically until ctx is cancelled.
	Serve(ctx context.Context) error
}
