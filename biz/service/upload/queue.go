package upload

import (
	"context"
	"sync"
)

// Queue delivers jobs to workers at least once.
type Queue interface {
	Enqueue(ctx context.Context, job Job) error
	// Dequeue blocks until a job is available or ctx ends.
	Dequeue(ctx context.Context) (*Delivery, error)
	Len(ctx context.Context) (int64, error)
	Name() string
}

// Delivery is a dequeued job that must be acknowledged once handled.
type Delivery struct {
	Job Job
	ack func(ctx context.Context) error
}

// Ack removes the job from the queue for good.
func (d *Delivery) Ack(ctx context.Context) error {
	if d.ack == nil {
		return nil
	}
	return d.ack(ctx)
}

// MemoryQueue is an in-process bounded queue. Jobs are lost on restart.
type MemoryQueue struct {
	ch     chan Job
	mu     sync.RWMutex
	closed bool
}

func NewMemoryQueue(size int) *MemoryQueue {
	if size <= 0 {
		size = 256
	}
	return &MemoryQueue{ch: make(chan Job, size)}
}

func (q *MemoryQueue) Name() string { return "memory" }

// Enqueue never blocks; a full queue is reported as ErrQueueFull.
func (q *MemoryQueue) Enqueue(ctx context.Context, job Job) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return ErrQueueClosed
	}
	select {
	case q.ch <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return ErrQueueFull
	}
}

func (q *MemoryQueue) Dequeue(ctx context.Context) (*Delivery, error) {
	select {
	case job, ok := <-q.ch:
		if !ok {
			return nil, ErrQueueClosed
		}
		return &Delivery{Job: job}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (q *MemoryQueue) Len(context.Context) (int64, error) {
	return int64(len(q.ch)), nil
}

// Close stops accepting jobs. Queued jobs are still delivered.
func (q *MemoryQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.closed {
		q.closed = true
		close(q.ch)
	}
}
