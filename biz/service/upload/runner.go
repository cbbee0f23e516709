package upload

import (
	"context"
	"time"

	"github.com/yi-nology/docvault/pkg/logging"
	"github.com/yi-nology/docvault/pkg/metrics"
	"github.com/yi-nology/docvault/pkg/retry"
	"github.com/yi-nology/docvault/pkg/storage"
)

// RunnerConfig bounds retries and the duration of a single attempt.
type RunnerConfig struct {
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	SoftTimeLimit  time.Duration
	HardTimeLimit  time.Duration
}

// Runner executes a job through the pipeline, retrying transport failures
// with exponential backoff. Every retry claims the version again.
type Runner struct {
	pipeline *Pipeline
	cfg      RunnerConfig
}

func NewRunner(pipeline *Pipeline, cfg RunnerConfig) *Runner {
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	return &Runner{pipeline: pipeline, cfg: cfg}
}

// Process runs job until it succeeds, fails permanently, or retries run out.
// The returned error is the last attempt's.
func (r *Runner) Process(ctx context.Context, job Job) error {
	ctx = logging.WithFields(ctx,
		logging.String("job_id", job.JobID),
		logging.Uint("version_id", job.VersionID),
	)
	log := logging.WithContext(ctx)

	cfg := retry.Config{
		MaxAttempts: r.cfg.MaxRetries + 1,
		InitialWait: r.cfg.InitialBackoff,
		MaxWait:     r.cfg.MaxBackoff,
		Multiplier:  2.0,
		Jitter:      0.2,
		ShouldRetry: storage.IsRetryable,
		OnRetry: func(attempt int, err error, wait time.Duration) {
			metrics.RecordUploadRetry()
			log.Info("retrying upload",
				logging.Int("attempt", attempt),
				logging.Duration("backoff", wait),
				logging.Err(err),
			)
		},
	}

	return retry.Do(ctx, cfg, func(int) error {
		return r.attempt(ctx, job)
	})
}

func (r *Runner) attempt(ctx context.Context, job Job) error {
	if r.cfg.HardTimeLimit > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.cfg.HardTimeLimit)
		defer cancel()
	}
	if soft := r.cfg.SoftTimeLimit; soft > 0 {
		timer := time.AfterFunc(soft, func() {
			metrics.RecordSoftLimitExceeded()
			logging.WithContext(ctx).Warn("upload exceeded soft time limit", logging.Duration("limit", soft))
		})
		defer timer.Stop()
	}
	return r.pipeline.Run(ctx, job.VersionID, job.SourcePath)
}
