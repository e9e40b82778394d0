package core

import (
	"context"
)

// JobDispatcher defines the contract for a system that can accept and queue
// background jobs for asynchronous processing. This interface decouples the
// source of work (e.g., the poll sweeper) from the job execution mechanism.
type JobDispatcher interface {
	// Dispatch accepts a PR key and queues it for processing.
	// It returns an error if the job cannot be queued, for example, if the
	// queue is full, providing a mechanism for backpressure.
	Dispatch(ctx context.Context, key string) error
	// Stop drains the queue and waits for in-flight jobs.
	Stop()
}

// Job represents a single, executable unit of work that can be processed by the
// application's job dispatcher.
type Job interface {
	// Run executes the job's logic for the record identified by key.
	Run(ctx context.Context, key string) error
}
