package upload

import (
	"context"
	"time"

	"github.com/yi-nology/docvault/biz/dal/db"
	"github.com/yi-nology/docvault/biz/dal/model"
	"github.com/yi-nology/docvault/pkg/logging"
	"github.com/yi-nology/docvault/pkg/metrics"
	"gorm.io/gorm"
)

// Reaper fails UPLOADING versions whose claim outlived the hard time limit,
// which only happens when a worker died mid-upload.
type Reaper struct {
	db         *gorm.DB
	store      *VersionStore
	versionDAO *db.DocumentVersionDAO
	staleAfter time.Duration
	batchSize  int
	dispatcher *Dispatcher
	now        func() time.Time
}

// NewReaper creates a reaper. With a non-nil dispatcher, expired versions
// that still have a staged file are queued again.
func NewReaper(dbConn *gorm.DB, store *VersionStore, staleAfter time.Duration, dispatcher *Dispatcher) *Reaper {
	return &Reaper{
		db:         dbConn,
		store:      store,
		versionDAO: db.NewDocumentVersionDAO(),
		staleAfter: staleAfter,
		batchSize:  100,
		dispatcher: dispatcher,
		now:        time.Now,
	}
}

// Sweep expires stale claims once and returns how many were failed.
func (r *Reaper) Sweep(ctx context.Context) (int, error) {
	cutoff := r.now().Add(-r.staleAfter)
	stale, err := r.versionDAO.ListStale(ctx, r.db, cutoff, r.batchSize)
	if err != nil {
		return 0, err
	}

	reaped := 0
	for i := range stale {
		candidate := &stale[i]
		v, expired, err := r.store.Expire(ctx, candidate.ID, candidate.ClaimToken, cutoff)
		if err != nil {
			logging.Warn("expire stale upload", logging.Uint("version_id", candidate.ID), logging.Err(err))
			continue
		}
		if !expired {
			continue
		}
		reaped++
		logging.Warn("upload claim expired", logging.Uint("version_id", v.ID))

		if r.dispatcher != nil && v.SourcePath != "" {
			if _, err := r.dispatcher.Submit(ctx, v.ID, v.SourcePath); err != nil {
				logging.Warn("requeue expired upload", logging.Uint("version_id", v.ID), logging.Err(err))
			}
		}
	}
	metrics.RecordReaped(reaped)
	return reaped, nil
}

// RedeliverPending queues every PENDING version again. The in-memory queue
// loses its jobs on restart, so those versions would otherwise never be
// claimed. A version whose staged file is gone is failed by the pipeline.
func (r *Reaper) RedeliverPending(ctx context.Context) (int, error) {
	if r.dispatcher == nil {
		return 0, nil
	}
	pending, err := r.versionDAO.ListByState(ctx, r.db, model.UploadPending, 0)
	if err != nil {
		return 0, err
	}
	queued := 0
	for i := range pending {
		v := &pending[i]
		if _, err := r.dispatcher.Submit(ctx, v.ID, v.SourcePath); err != nil {
			logging.Warn("redeliver pending upload", logging.Uint("version_id", v.ID), logging.Err(err))
			continue
		}
		queued++
	}
	return queued, nil
}

// Run sweeps every interval until ctx ends.
func (r *Reaper) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		if _, err := r.Sweep(ctx); err != nil && ctx.Err() == nil {
			logging.Warn("reaper sweep failed", logging.Err(err))
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
