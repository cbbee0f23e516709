package app

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yi-nology/docvault/biz/dal/db"
	"github.com/yi-nology/docvault/biz/dal/model"
	"github.com/yi-nology/docvault/biz/service"
	"github.com/yi-nology/docvault/pkg/common"
	"github.com/yi-nology/docvault/pkg/config"
	"github.com/yi-nology/docvault/pkg/storage"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Storage.MediaRoot = t.TempDir()
	cfg.Storage.TmpDir = filepath.Join(cfg.Storage.MediaRoot, "tmp_uploads")
	cfg.Worker.InitialBackoff = 0
	return cfg
}

func TestMemoryQueueUploadIsDrainedInProcess(t *testing.T) {
	cfg := testConfig(t)
	a, err := assemble(cfg, db.SetupTestDB(t))
	require.NoError(t, err)
	t.Cleanup(a.Close)
	require.NoError(t, a.Migrate())
	assert.False(t, a.SharedQueue())

	backend := db.CreateTestBackend(t, a.DB, "local", storage.KindLocal, nil)
	ctx := common.ContextWithHubRole(common.ContextWithUserID(context.Background(), "u-1"), "editor")
	res, err := a.Service.InitiateUpload(ctx, &service.UploadInput{
		HubKey:           "ops",
		Title:            "runbook",
		StorageBackendID: backend.ID,
		FileName:         "runbook.md",
		Content:          strings.NewReader("# runbook"),
	})
	require.NoError(t, err)

	n, err := a.Drain(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	v, err := a.Service.Logic().GetVersion(ctx, res.Version.ID)
	require.NoError(t, err)
	assert.Equal(t, model.UploadReady, v.UploadState)
	data, err := os.ReadFile(filepath.Join(cfg.Storage.MediaRoot, v.StorageKey))
	require.NoError(t, err)
	assert.Equal(t, "# runbook", string(data))
}

func TestRedisQueueSelected(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := testConfig(t)
	cfg.Redis.Enabled = true
	cfg.Redis.Address = mr.Addr()
	cfg.Worker.Queue = "redis"

	a, err := assemble(cfg, db.SetupTestDB(t))
	require.NoError(t, err)
	t.Cleanup(a.Close)

	assert.True(t, a.SharedQueue())
	assert.Equal(t, "redis", a.Queue.Name())
	require.NoError(t, a.RecoverQueue(context.Background()))
}

func TestRedisQueueWithoutRedis(t *testing.T) {
	cfg := testConfig(t)
	cfg.Worker.Queue = "redis"

	_, err := assemble(cfg, db.SetupTestDB(t))
	assert.Error(t, err)
}

func TestRecoverQueueRedeliversPendingAfterRestart(t *testing.T) {
	cfg := testConfig(t)
	dbConn := db.SetupTestDB(t)
	before, err := assemble(cfg, dbConn)
	require.NoError(t, err)
	require.NoError(t, before.Migrate())

	backend := db.CreateTestBackend(t, dbConn, "local", storage.KindLocal, nil)
	ctx := common.ContextWithHubRole(common.ContextWithUserID(context.Background(), "u-1"), "editor")
	res, err := before.Service.InitiateUpload(ctx, &service.UploadInput{
		HubKey:           "ops",
		Title:            "handover",
		StorageBackendID: backend.ID,
		FileName:         "handover.md",
		Content:          strings.NewReader("# handover"),
	})
	require.NoError(t, err)

	// The process stops before a worker picks the job up.
	after, err := assemble(cfg, dbConn)
	require.NoError(t, err)
	t.Cleanup(after.Close)

	n, err := after.Drain(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	require.NoError(t, after.RecoverQueue(ctx))
	n, err = after.Drain(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	v, err := after.Service.Logic().GetVersion(ctx, res.Version.ID)
	require.NoError(t, err)
	assert.Equal(t, model.UploadReady, v.UploadState)
}
