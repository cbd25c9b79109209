// Package queue provides asynchronous job execution for background work.
//
// Producers enqueue named jobs with string arguments; a Worker dequeues them
// and dispatches to registered handlers. The queue decouples request-time
// operations (such as requesting an archive) from the slow work they trigger.
package queue

import (
	"context"
	"fmt"
	"sync"

	"github.com/marmos91/vaultfs/internal/logger"
)

// Job is a unit of background work identified by a handler name.
type Job struct {
	// Name selects the handler that will process the job.
	Name string

	// Args carries the job parameters. Values are plain strings so jobs
	// stay serializable regardless of the queue transport.
	Args map[string]string
}

// Handler processes a single job. A returned error marks the job as failed;
// failed jobs are logged and dropped, not retried.
type Handler func(ctx context.Context, job Job) error

// Queue accepts jobs for asynchronous execution.
type Queue interface {
	// Enqueue submits a job. It returns an error if the queue is full or
	// has been closed.
	Enqueue(ctx context.Context, job Job) error
}

// MemoryQueue is an in-process Queue backed by a buffered channel.
type MemoryQueue struct {
	jobs chan Job

	mu     sync.Mutex
	closed bool
}

// NewMemoryQueue creates a queue holding at most capacity pending jobs.
func NewMemoryQueue(capacity int) *MemoryQueue {
	if capacity <= 0 {
		capacity = 64
	}
	return &MemoryQueue{jobs: make(chan Job, capacity)}
}

// Enqueue submits a job without blocking. A full queue is reported as an
// error so callers can surface backpressure instead of stalling requests.
func (q *MemoryQueue) Enqueue(ctx context.Context, job Job) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return fmt.Errorf("queue is closed")
	}

	select {
	case q.jobs <- job:
		return nil
	default:
		return fmt.Errorf("queue is full (capacity %d)", cap(q.jobs))
	}
}

// close stops accepting jobs. Pending jobs remain readable.
func (q *MemoryQueue) close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.closed {
		q.closed = true
		close(q.jobs)
	}
}

// Worker dispatches jobs from a MemoryQueue to registered handlers.
//
// The worker runs a single goroutine, so jobs execute one at a time in
// enqueue order. Register all handlers before calling Start.
type Worker struct {
	queue    *MemoryQueue
	handlers map[string]Handler
	doneCh   chan struct{}
	started  bool
}

// NewWorker creates a worker bound to the given queue.
func NewWorker(queue *MemoryQueue) *Worker {
	return &Worker{
		queue:    queue,
		handlers: make(map[string]Handler),
		doneCh:   make(chan struct{}),
	}
}

// Register binds a handler to a job name. Registering a duplicate name
// replaces the previous handler.
func (w *Worker) Register(name string, handler Handler) {
	w.handlers[name] = handler
}

// Start begins processing jobs in a background goroutine.
//
// Safe to call once; subsequent calls are no-ops.
func (w *Worker) Start(ctx context.Context) {
	if w.started {
		return
	}
	w.started = true

	logger.Info("Starting job worker: handlers=%d", len(w.handlers))
	go w.run(ctx)
}

func (w *Worker) run(ctx context.Context) {
	defer close(w.doneCh)

	for {
		select {
		case <-ctx.Done():
			return
		case job, ok := <-w.queue.jobs:
			if !ok {
				return
			}
			w.dispatch(ctx, job)
		}
	}
}

func (w *Worker) dispatch(ctx context.Context, job Job) {
	handler, ok := w.handlers[job.Name]
	if !ok {
		logger.Warn("No handler registered for job %q, dropping", job.Name)
		return
	}

	logger.Debug("Processing job %q", job.Name)
	if err := handler(ctx, job); err != nil {
		logger.Error("Job %q failed: %v", job.Name, err)
		return
	}
	logger.Debug("Job %q completed", job.Name)
}

// Stop closes the queue and waits for the worker to drain pending jobs or
// for the context to expire.
func (w *Worker) Stop(ctx context.Context) error {
	w.queue.close()

	if !w.started {
		return nil
	}

	select {
	case <-w.doneCh:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("timeout waiting for job worker to stop: %w", ctx.Err())
	}
}
