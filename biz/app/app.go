// Package app wires the configuration into the components shared by the
// HTTP server, the upload worker and the maintenance commands.
package app

import (
	"context"
	"errors"
	"fmt"
	"sync"

	goredis "github.com/redis/go-redis/v9"
	"github.com/yi-nology/docvault/biz/dal/db"
	"github.com/yi-nology/docvault/biz/service"
	"github.com/yi-nology/docvault/biz/service/locator"
	"github.com/yi-nology/docvault/biz/service/upload"
	"github.com/yi-nology/docvault/pkg/config"
	"github.com/yi-nology/docvault/pkg/database"
	"github.com/yi-nology/docvault/pkg/lock"
	"github.com/yi-nology/docvault/pkg/logging"
	"github.com/yi-nology/docvault/pkg/redis"
	"github.com/yi-nology/docvault/pkg/storage/resolver"
	"github.com/yi-nology/docvault/pkg/validator"
	"gorm.io/gorm"
)

const lockPrefix = "docvault:lock:"

// App holds the running components.
type App struct {
	Config *config.Config

	DB    *gorm.DB
	Redis *goredis.Client

	Queue      upload.Queue
	Store      *upload.VersionStore
	Dispatcher *upload.Dispatcher
	Runner     *upload.Runner
	Reaper     *upload.Reaper
	Service    *service.Service
}

// New connects to the database and Redis and builds the upload pipeline
// and the document service. Call Close when done.
func New(cfg *config.Config) (*App, error) {
	dbConn, err := database.Open(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return assemble(cfg, dbConn)
}

func assemble(cfg *config.Config, dbConn *gorm.DB) (*App, error) {
	a := &App{Config: cfg, DB: dbConn}

	var err error
	a.Redis, err = redis.NewClient(cfg.Redis)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("connect redis: %w", err)
	}

	w := cfg.Worker
	var locker lock.Locker = lock.NewLocal()
	if a.Redis != nil {
		locker = lock.NewRedis(a.Redis, lockPrefix, w.LockTTL, w.LockTTL)
	}

	switch w.Queue {
	case "redis":
		if a.Redis == nil {
			a.Close()
			return nil, errors.New("worker.queue=redis requires redis.enabled")
		}
		a.Queue = upload.NewRedisQueue(a.Redis, w.QueueKey)
	default:
		a.Queue = upload.NewMemoryQueue(w.QueueSize)
	}

	a.Store = upload.NewVersionStore(dbConn, locker)
	a.Dispatcher = upload.NewDispatcher(a.Queue, a.Store)
	pipeline := upload.NewPipeline(dbConn, a.Store, resolver.New(cfg.Storage.MediaRoot))
	a.Runner = upload.NewRunner(pipeline, upload.RunnerConfig{
		MaxRetries:     w.MaxRetries,
		InitialBackoff: w.InitialBackoff,
		MaxBackoff:     w.MaxBackoff,
		SoftTimeLimit:  w.SoftTimeLimit,
		HardTimeLimit:  w.HardTimeLimit,
	})
	// A claim older than the hard limit plus grace belongs to a dead worker.
	a.Reaper = upload.NewReaper(dbConn, a.Store, w.HardTimeLimit+w.ReapGrace, a.Dispatcher)

	a.Service = service.NewService(dbConn, a.Dispatcher, locator.New(cfg.Storage.MediaRoot), service.Options{
		TmpDir:  cfg.Storage.TmpDir,
		Uploads: validator.NewUploadConfig(cfg.Upload.MaxSize, cfg.Upload.AllowedTypes),
	})
	return a, nil
}

// Migrate creates or updates the tables.
func (a *App) Migrate() error {
	return db.AutoMigrate(a.DB)
}

// SharedQueue reports whether jobs outlive this process.
func (a *App) SharedQueue() bool {
	_, ok := a.Queue.(*upload.RedisQueue)
	return ok
}

// RecoverQueue moves jobs left unacknowledged by a crashed worker back to
// the Redis queue. With the in-memory queue the jobs of the previous
// process are gone, so every PENDING version is dispatched again.
func (a *App) RecoverQueue(ctx context.Context) error {
	rq, ok := a.Queue.(*upload.RedisQueue)
	if !ok {
		n, err := a.Reaper.RedeliverPending(ctx)
		if err != nil {
			return fmt.Errorf("redeliver pending uploads: %w", err)
		}
		if n > 0 {
			logging.Info("redelivered pending uploads", logging.Int("count", n))
		}
		return nil
	}
	n, err := rq.Recover(ctx)
	if err != nil {
		return fmt.Errorf("recover queue: %w", err)
	}
	if n > 0 {
		logging.Info("recovered unacknowledged upload jobs", logging.Int("count", n))
	}
	return nil
}

// StartWorkers runs the worker pool and the reaper until ctx ends. The
// returned func blocks until both have stopped.
func (a *App) StartWorkers(ctx context.Context) (wait func()) {
	var wg sync.WaitGroup
	pool := upload.NewPool(a.Queue, a.Runner, a.Config.Worker.Concurrency)

	wg.Add(2)
	go func() {
		defer wg.Done()
		pool.Run(ctx)
	}()
	go func() {
		defer wg.Done()
		a.Reaper.Run(ctx, a.Config.Worker.ReapInterval)
	}()
	return wg.Wait
}

// Drain processes queued jobs in the calling goroutine until the queue is
// empty. Commands use it when no separate worker consumes the queue.
func (a *App) Drain(ctx context.Context) (int, error) {
	processed := 0
	for {
		n, err := a.Queue.Len(ctx)
		if err != nil {
			return processed, err
		}
		if n == 0 {
			return processed, nil
		}
		d, err := a.Queue.Dequeue(ctx)
		if err != nil {
			return processed, err
		}
		if err := a.Runner.Process(ctx, d.Job); err != nil {
			logging.Warn("upload failed", logging.Uint("version_id", d.Job.VersionID), logging.Err(err))
		}
		if err := d.Ack(ctx); err != nil {
			logging.Warn("ack upload job", logging.String("job_id", d.Job.JobID), logging.Err(err))
		}
		processed++
	}
}

// Close releases the database and Redis connections.
func (a *App) Close() {
	if mq, ok := a.Queue.(*upload.MemoryQueue); ok {
		mq.Close()
	}
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			logging.Warn("close redis", logging.Err(err))
		}
	}
	if a.DB != nil {
		if sqlDB, err := a.DB.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
}
