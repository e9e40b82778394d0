// Package jobs defines background tasks such as polling pull requests whose
// review has not arrived yet.
package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/sevigo/bounty-warden/internal/core"
)

const queueSize = 100

// dispatcher implements core.JobDispatcher and manages a pool of worker goroutines
// that run a job for each queued PR key.
type dispatcher struct {
	job        core.Job       // Job implementation executed by each worker.
	jobQueue   chan string    // Queue of PR keys.
	queued     sync.Map       // Keys waiting in the queue or being processed.
	maxWorkers int            // Number of concurrent workers.
	wg         sync.WaitGroup // Tracks active workers for graceful shutdown.
	mu         sync.RWMutex   // Guards closed against sends on a closed queue.
	closed     bool
	ctx        context.Context
	cancel     context.CancelFunc
	logger     *slog.Logger
}

// NewDispatcher initializes a dispatcher with a worker pool.
// If maxWorkers is 0 or negative, it defaults to 1.
func NewDispatcher(job core.Job, maxWorkers int, logger *slog.Logger) core.JobDispatcher {
	if maxWorkers <= 0 {
		maxWorkers = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	d := &dispatcher{
		job:        job,
		maxWorkers: maxWorkers,
		jobQueue:   make(chan string, queueSize),
		ctx:        ctx,
		cancel:     cancel,
		logger:     logger,
	}
	d.startWorkers()
	return d
}

func (d *dispatcher) startWorkers() {
	for i := range d.maxWorkers {
		d.wg.Add(1)
		go d.startWorker(i)
	}
}

// startWorker processes keys from the queue until it's closed.
func (d *dispatcher) startWorker(workerID int) {
	defer d.wg.Done()
	d.logger.Debug("starting poll worker", "id", workerID)

	for key := range d.jobQueue {
		d.process(workerID, key)
	}

	d.logger.Debug("shutting down poll worker", "id", workerID)
}

func (d *dispatcher) process(workerID int, key string) {
	defer d.queued.Delete(key)
	d.logger.Debug("worker processing job", "worker_id", workerID, "pr", key)

	if err := d.job.Run(d.ctx, key); err != nil {
		d.logger.Error("poll job failed", "pr", key, "error", err)
	}
}

// Dispatch queues a PR key for processing. A key that is already queued or
// running is accepted without being queued twice.
func (d *dispatcher) Dispatch(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return fmt.Errorf("dispatcher is stopped, cannot accept poll job for %s", key)
	}
	if _, loaded := d.queued.LoadOrStore(key, struct{}{}); loaded {
		return nil
	}

	select {
	case d.jobQueue <- key:
		return nil
	default:
		d.queued.Delete(key)
		return fmt.Errorf("job queue is full, cannot accept poll job for %s", key)
	}
}

// Stop gracefully shuts down the dispatcher, waiting for queued jobs to finish.
func (d *dispatcher) Stop() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.jobQueue)
	d.mu.Unlock()

	d.logger.Info("stopping dispatcher and waiting for jobs to finish")
	d.wg.Wait()
	d.cancel()
	d.logger.Info("all poll jobs have finished")
}
