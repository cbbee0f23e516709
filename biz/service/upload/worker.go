package upload

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/yi-nology/docvault/pkg/logging"
	"github.com/yi-nology/docvault/pkg/metrics"
)

// Processor handles one job.
type Processor interface {
	Process(ctx context.Context, job Job) error
}

// Pool runs a fixed number of workers consuming one queue.
type Pool struct {
	queue       Queue
	processor   Processor
	concurrency int
}

func NewPool(queue Queue, processor Processor, concurrency int) *Pool {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Pool{queue: queue, processor: processor, concurrency: concurrency}
}

// Run blocks until ctx ends and all workers have returned.
func (p *Pool) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for i := 0; i < p.concurrency; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			p.loop(ctx, id)
		}(i)
	}
	logging.Info("upload workers started",
		logging.Int("concurrency", p.concurrency),
		logging.String("queue", p.queue.Name()),
	)
	wg.Wait()
	logging.Info("upload workers stopped")
}

func (p *Pool) loop(ctx context.Context, id int) {
	backoff := 100 * time.Millisecond
	for {
		d, err := p.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, ErrQueueClosed) {
				return
			}
			logging.Warn("dequeue upload job", logging.Int("worker", id), logging.Err(err))
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
			if backoff < 5*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = 100 * time.Millisecond
		p.observeDepth(ctx)

		err = p.processor.Process(ctx, d.Job)
		if err != nil {
			logging.Warn("upload job finished with error",
				logging.Int("worker", id),
				logging.String("job_id", d.Job.JobID),
				logging.Uint("version_id", d.Job.VersionID),
				logging.Err(err),
			)
		}
		// Interrupted jobs stay unacknowledged so a restart can recover them.
		if ctx.Err() != nil {
			return
		}
		if err := d.Ack(ctx); err != nil {
			logging.Warn("ack upload job", logging.String("job_id", d.Job.JobID), logging.Err(err))
		}
	}
}

func (p *Pool) observeDepth(ctx context.Context) {
	if n, err := p.queue.Len(ctx); err == nil {
		metrics.SetQueueDepth(p.queue.Name(), n)
	}
}
