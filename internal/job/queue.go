package job

import (
	"context"
	"errors"
)

// DefaultQueueCapacity is the number of jobs that may wait for the worker.
const DefaultQueueCapacity = 3

// ErrQueueFull is returned when a job is submitted to a full queue.
var ErrQueueFull = errors.New("queue is full")

// Queue is the fixed-capacity FIFO of jobs waiting for the worker.
// A job stops counting against the capacity as soon as the worker takes it.
type Queue struct {
	ch chan *Job
}

// NewQueue creates a queue holding at most capacity waiting jobs.
func NewQueue(capacity int) *Queue {
	if capacity <= 0 {
		capacity = DefaultQueueCapacity
	}
	return &Queue{ch: make(chan *Job, capacity)}
}

// Submit enqueues j without blocking.
// Returns ErrQueueFull if the queue is at capacity.
func (q *Queue) Submit(j *Job) error {
	select {
	case q.ch <- j:
		return nil
	default:
		return ErrQueueFull
	}
}

// Next blocks until a job is available or ctx is done.
func (q *Queue) Next(ctx context.Context) (*Job, error) {
	select {
	case j := <-q.ch:
		return j, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Len returns the number of waiting jobs.
func (q *Queue) Len() int {
	return len(q.ch)
}

// Cap returns the queue capacity.
func (q *Queue) Cap() int {
	return cap(q.ch)
}
