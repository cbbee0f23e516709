// Package upload moves staged files to their storage backends
// asynchronously and tracks every version through
// PENDING -> UPLOADING -> READY | FAILED.
package upload

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/yi-nology/docvault/biz/dal/db"
	"github.com/yi-nology/docvault/pkg/logging"
	"github.com/yi-nology/docvault/pkg/metrics"
	"github.com/yi-nology/docvault/pkg/storage"
	"gorm.io/gorm"
)

// ProviderResolver returns the provider serving a backend kind.
type ProviderResolver interface {
	Resolve(kind storage.Kind, options storage.Options) (storage.Provider, error)
}

// Pipeline runs one upload attempt: claim, transfer, then commit or fail.
type Pipeline struct {
	db         *gorm.DB
	store      *VersionStore
	backendDAO *db.StorageBackendDAO
	resolver   ProviderResolver
}

func NewPipeline(dbConn *gorm.DB, store *VersionStore, resolver ProviderResolver) *Pipeline {
	return &Pipeline{
		db:         dbConn,
		store:      store,
		backendDAO: db.NewStorageBackendDAO(),
		resolver:   resolver,
	}
}

// Store returns the state store used by the pipeline.
func (p *Pipeline) Store() *VersionStore {
	return p.store
}

// Run uploads the staged file of a version. The temp file is removed only
// after the READY state is committed. An empty sourcePath falls back to the
// path recorded on the version.
func (p *Pipeline) Run(ctx context.Context, versionID uint, sourcePath string) error {
	claim, err := p.store.Claim(ctx, versionID)
	if err != nil {
		return err
	}
	if sourcePath == "" {
		sourcePath = claim.Version.SourcePath
	}

	ctx = logging.WithFields(ctx,
		logging.Uint("version_id", versionID),
		logging.Int("attempt", claim.Version.Attempts),
	)
	log := logging.WithContext(ctx)

	if _, statErr := os.Stat(sourcePath); statErr != nil {
		cause := fmt.Errorf("%w: %s", storage.ErrSourceMissing, sourcePath)
		if !errors.Is(statErr, fs.ErrNotExist) {
			cause = fmt.Errorf("stat source %s: %w", sourcePath, statErr)
		}
		p.fail(ctx, claim, "", 0, cause)
		return cause
	}

	backend, err := p.backendDAO.GetByID(ctx, p.db, claim.Version.StorageBackendID)
	if err != nil {
		cause := fmt.Errorf("load storage backend %d: %w", claim.Version.StorageBackendID, err)
		p.fail(ctx, claim, "", 0, cause)
		return cause
	}
	kind := string(backend.Kind)

	provider, err := p.resolver.Resolve(backend.Kind, backend.Config)
	if err != nil {
		p.fail(ctx, claim, kind, 0, err)
		return err
	}

	started := time.Now()
	locator, err := provider.Upload(ctx, sourcePath, claim.Version.StorageKey)
	elapsed := time.Since(started)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && !storage.IsRetryable(err) && !storage.IsConfiguration(err) {
			err = &storage.TransferError{Kind: backend.Kind, Op: "upload", Err: fmt.Errorf("%w: %v", ctxErr, err)}
		}
		p.fail(ctx, claim, kind, elapsed, err)
		return err
	}

	if err := p.store.Commit(ctx, claim, locator); err != nil {
		metrics.RecordUpload(kind, "stale", elapsed)
		log.Warn("upload finished but result was not recorded",
			logging.String("locator", locator), logging.Err(err))
		return err
	}
	metrics.RecordUpload(kind, "ready", elapsed)

	if err := os.Remove(sourcePath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Warn("remove staged file", logging.String("path", sourcePath), logging.Err(err))
	}
	log.Info("upload ready",
		logging.String("backend", kind),
		logging.String("locator", locator),
		logging.Duration("elapsed", elapsed),
	)
	return nil
}

// fail counts the failed attempt and records the cause on the version.
func (p *Pipeline) fail(ctx context.Context, claim *Claim, kind string, elapsed time.Duration, cause error) {
	log := logging.WithContext(ctx)
	if kind == "" {
		kind = "unknown"
	}
	metrics.RecordUpload(kind, "failed", elapsed)
	if err := p.store.Fail(ctx, claim, cause); err != nil {
		log.Warn("record upload failure", logging.Err(err), logging.NamedError("cause", cause))
		return
	}
	log.Warn("upload failed", logging.String("backend", kind), logging.Err(cause))
}
