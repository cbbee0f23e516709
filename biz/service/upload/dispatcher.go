package upload

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/yi-nology/docvault/pkg/logging"
	"github.com/yi-nology/docvault/pkg/metrics"
)

// Dispatcher hands upload jobs to the queue. When the queue cannot take a
// job the version is marked FAILED before Submit returns.
type Dispatcher struct {
	queue Queue
	store *VersionStore
	now   func() time.Time
}

func NewDispatcher(queue Queue, store *VersionStore) *Dispatcher {
	return &Dispatcher{queue: queue, store: store, now: time.Now}
}

// Submit enqueues an upload of versionID from sourcePath.
func (d *Dispatcher) Submit(ctx context.Context, versionID uint, sourcePath string) (Job, error) {
	job := Job{
		JobID:      uuid.NewString(),
		VersionID:  versionID,
		SourcePath: sourcePath,
		EnqueuedAt: d.now().UTC(),
	}

	if err := d.queue.Enqueue(ctx, job); err != nil {
		metrics.RecordDispatchFailure()
		cause := fmt.Errorf("%w: %v", ErrDispatchUnavailable, err)
		if markErr := d.store.MarkDispatchFailed(ctx, versionID, cause); markErr != nil {
			logging.Error("record dispatch failure",
				logging.Uint("version_id", versionID),
				logging.Err(markErr),
			)
		}
		return job, cause
	}

	if n, err := d.queue.Len(ctx); err == nil {
		metrics.SetQueueDepth(d.queue.Name(), n)
	}
	logging.WithContext(ctx).Info("upload job queued",
		logging.String("job_id", job.JobID),
		logging.Uint("version_id", versionID),
	)
	return job, nil
}
