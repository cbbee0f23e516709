package upload

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"github.com/yi-nology/docvault/biz/dal/db"
	"github.com/yi-nology/docvault/biz/dal/model"
	"github.com/yi-nology/docvault/pkg/lock"
	"github.com/yi-nology/docvault/pkg/storage"
	"gorm.io/gorm"
)

type stubProvider struct {
	kind storage.Kind

	mu    sync.Mutex
	calls int
	// upload is called with the 1-based call number.
	upload func(ctx context.Context, call int, sourcePath, key string) (string, error)
}

func (s *stubProvider) Kind() storage.Kind { return s.kind }

func (s *stubProvider) Upload(ctx context.Context, sourcePath, key string) (string, error) {
	s.mu.Lock()
	s.calls++
	call := s.calls
	s.mu.Unlock()
	return s.upload(ctx, call, sourcePath, key)
}

func (s *stubProvider) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type stubResolver map[storage.Kind]storage.Provider

func (r stubResolver) Resolve(kind storage.Kind, _ storage.Options) (storage.Provider, error) {
	if p, ok := r[kind]; ok {
		return p, nil
	}
	return nil, &storage.UnsupportedBackendError{Kind: kind}
}

type fixture struct {
	db       *gorm.DB
	store    *VersionStore
	pipeline *Pipeline
	backend  *model.StorageBackend
}

func newFixture(t *testing.T, kind storage.Kind, resolver ProviderResolver) *fixture {
	t.Helper()
	dbConn := db.SetupTestDB(t)
	t.Cleanup(func() { db.CleanupTestDB(t, dbConn) })

	store := NewVersionStore(dbConn, lock.NewLocal())
	return &fixture{
		db:       dbConn,
		store:    store,
		pipeline: NewPipeline(dbConn, store, resolver),
		backend:  db.CreateTestBackend(t, dbConn, "backend-"+string(kind), kind, storage.Options{}),
	}
}

// pendingVersion creates a PENDING version with a staged file and returns it.
func (f *fixture) pendingVersion(t *testing.T) (*model.DocumentVersion, string) {
	t.Helper()
	src := filepath.Join(t.TempDir(), "staged_doc.txt")
	require.NoError(t, os.WriteFile(src, []byte("document body"), 0o600))

	_, v := db.CreateTestDocument(t, f.db, "hub-a", f.backend, model.UploadPending, "hub-a/doc/doc.txt")
	require.NoError(t, db.NewDocumentVersionDAO().ApplyUpdates(context.Background(), f.db, v.ID,
		map[string]any{"source_path": src}))
	v.SourcePath = src
	return v, src
}

func (f *fixture) reload(t *testing.T, id uint) *model.DocumentVersion {
	t.Helper()
	v, err := db.NewDocumentVersionDAO().GetByID(context.Background(), f.db, id)
	require.NoError(t, err)
	return v
}

// uploadCount reads docvault_uploads_total for one backend and outcome.
func uploadCount(t *testing.T, backend, outcome string) float64 {
	t.Helper()
	families, err := prometheus.DefaultGatherer.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != "docvault_uploads_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			labels := map[string]string{}
			for _, lp := range m.GetLabel() {
				labels[lp.GetName()] = lp.GetValue()
			}
			if labels["backend"] == backend && labels["outcome"] == outcome {
				return m.GetCounter().GetValue()
			}
		}
	}
	return 0
}
