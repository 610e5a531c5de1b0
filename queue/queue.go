// Package queue runs background jobs on a parallel worker pool, decoupled
// from the request path. Jobs carry a uniqueness key: enqueueing a second job
// with an active identical key is suppressed for the key's uniqueness window.
// Delivery is at-least-once within the process; callers make job bodies
// idempotent.
package queue

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Job is one unit of background work.
type Job struct {
	// Key deduplicates concurrent identical jobs. Empty disables dedup.
	Key string

	// UniqueFor is how long the Key suppresses duplicate enqueues. The key
	// is released early when the job finishes.
	UniqueFor time.Duration

	// Tries is the maximum number of attempts (default 1).
	Tries int

	// Backoff holds the wait before each retry; the last entry repeats when
	// attempts outnumber entries.
	Backoff []time.Duration

	// Timeout bounds each attempt's execution context.
	Timeout time.Duration

	// Run executes the job. A nil error marks the attempt successful.
	Run func(ctx context.Context) error
}

// Queue is a fixed-size worker pool consuming enqueued jobs.
type Queue struct {
	jobs    chan *Job
	wg      sync.WaitGroup
	workers int

	mu     sync.Mutex
	active map[string]time.Time // key -> uniqueness window expiry
	closed bool
}

// New creates a Queue with the given worker count and buffer capacity and
// starts the workers.
func New(workers, capacity int) *Queue {
	if workers <= 0 {
		workers = 1
	}
	q := &Queue{
		jobs:    make(chan *Job, capacity),
		workers: workers,
		active:  make(map[string]time.Time),
	}
	for i := 0; i < workers; i++ {
		q.wg.Add(1)
		go q.worker(i)
	}
	return q
}

// Enqueue submits a job. It returns false when the job was suppressed by an
// active uniqueness key, the buffer is full, or the queue is closed.
func (q *Queue) Enqueue(job *Job) bool {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return false
	}
	if job.Key != "" {
		if expiry, ok := q.active[job.Key]; ok && time.Now().Before(expiry) {
			q.mu.Unlock()
			slog.Debug("job suppressed by uniqueness key", "key", job.Key)
			return false
		}
		window := job.UniqueFor
		if window <= 0 {
			window = time.Hour
		}
		q.active[job.Key] = time.Now().Add(window)
	}
	q.mu.Unlock()

	select {
	case q.jobs <- job:
		return true
	default:
		q.release(job.Key)
		slog.Warn("job queue full, dropping job", "key", job.Key)
		return false
	}
}

// Close stops accepting jobs, drains the buffer, and waits for running jobs.
func (q *Queue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	q.mu.Unlock()

	close(q.jobs)
	q.wg.Wait()
}

func (q *Queue) worker(id int) {
	defer q.wg.Done()
	for job := range q.jobs {
		q.process(id, job)
		q.release(job.Key)
	}
}

func (q *Queue) release(key string) {
	if key == "" {
		return
	}
	q.mu.Lock()
	delete(q.active, key)
	q.mu.Unlock()
}

// process runs the job's attempt loop: each attempt gets a fresh bounded
// context; failures wait out the backoff before the next try.
func (q *Queue) process(workerID int, job *Job) {
	tries := job.Tries
	if tries <= 0 {
		tries = 1
	}

	var lastErr error
	for attempt := 1; attempt <= tries; attempt++ {
		if attempt > 1 {
			time.Sleep(backoffFor(job.Backoff, attempt-2))
		}

		lastErr = q.runAttempt(job)
		if lastErr == nil {
			if attempt > 1 {
				slog.Info("job succeeded after retry",
					"key", job.Key, "worker", workerID, "attempt", attempt)
			}
			return
		}
		slog.Warn("job attempt failed",
			"key", job.Key, "worker", workerID, "attempt", attempt, "error", lastErr)
	}

	slog.Error("job failed after exhausting retries",
		"key", job.Key, "worker", workerID, "tries", tries, "error", lastErr)
}

// runAttempt executes one attempt under the job timeout, converting a panic
// into an error so a broken job cannot take down the worker.
func (q *Queue) runAttempt(job *Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job panicked: %v", r)
		}
	}()

	ctx := context.Background()
	if job.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, job.Timeout)
		defer cancel()
	}
	return job.Run(ctx)
}

// backoffFor returns the wait before retry index i; the last configured
// entry repeats, and a missing schedule defaults to 30s.
func backoffFor(backoff []time.Duration, i int) time.Duration {
	if len(backoff) == 0 {
		return 30 * time.Second
	}
	if i >= len(backoff) {
		i = len(backoff) - 1
	}
	return backoff[i]
}
