package upload

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yi-nology/docvault/biz/dal/db"
	"github.com/yi-nology/docvault/biz/dal/model"
	"github.com/yi-nology/docvault/pkg/storage"
	"github.com/yi-nology/docvault/pkg/storage/resolver"
)

func TestPipelineLocalSuccess(t *testing.T) {
	media := t.TempDir()
	f := newFixture(t, storage.KindLocal, resolver.New(media))
	v, src := f.pendingVersion(t)

	require.NoError(t, f.pipeline.Run(context.Background(), v.ID, src))

	got := f.reload(t, v.ID)
	assert.Equal(t, model.UploadReady, got.UploadState)
	assert.Equal(t, "storage/local/hub-a/doc/doc.txt", got.StorageKey)
	assert.NotNil(t, got.UploadedAt)
	assert.Empty(t, got.ErrorMessage)
	assert.Empty(t, got.ClaimToken)
	assert.Equal(t, 1, got.Attempts)

	data, err := os.ReadFile(filepath.Join(media, "storage", "local", "hub-a", "doc", "doc.txt"))
	require.NoError(t, err)
	assert.Equal(t, "document body", string(data))

	_, err = os.Stat(src)
	assert.True(t, os.IsNotExist(err), "staged file must be removed after success")
}

func TestPipelineProviderFailureKeepsSource(t *testing.T) {
	provider := &stubProvider{kind: storage.KindS3, upload: func(context.Context, int, string, string) (string, error) {
		return "", &storage.TransferError{Kind: storage.KindS3, Op: "put object", Err: errors.New("connection reset")}
	}}
	f := newFixture(t, storage.KindS3, stubResolver{storage.KindS3: provider})
	v, src := f.pendingVersion(t)

	err := f.pipeline.Run(context.Background(), v.ID, src)
	require.Error(t, err)
	assert.True(t, storage.IsRetryable(err))

	got := f.reload(t, v.ID)
	assert.Equal(t, model.UploadFailed, got.UploadState)
	assert.Contains(t, got.ErrorMessage, "connection reset")
	assert.Equal(t, "hub-a/doc/doc.txt", got.StorageKey, "logical key is kept on failure")
	assert.Nil(t, got.UploadedAt)

	_, statErr := os.Stat(src)
	assert.NoError(t, statErr, "staged file must survive a failed upload")
}

func TestPipelineMissingSourcePersistsFailure(t *testing.T) {
	provider := &stubProvider{kind: storage.KindS3, upload: func(context.Context, int, string, string) (string, error) {
		return "s3://never/called", nil
	}}
	f := newFixture(t, storage.KindS3, stubResolver{storage.KindS3: provider})
	v, src := f.pendingVersion(t)
	require.NoError(t, os.Remove(src))

	err := f.pipeline.Run(context.Background(), v.ID, src)
	require.ErrorIs(t, err, storage.ErrSourceMissing)
	assert.False(t, storage.IsRetryable(err))
	assert.Zero(t, provider.Calls())

	got := f.reload(t, v.ID)
	assert.Equal(t, model.UploadFailed, got.UploadState)
	assert.True(t, strings.HasPrefix(got.ErrorMessage, "source file missing"), got.ErrorMessage)
}

func TestPipelineUnsupportedBackend(t *testing.T) {
	f := newFixture(t, storage.KindBlob, resolver.New(t.TempDir()))
	v, src := f.pendingVersion(t)
	before := uploadCount(t, "BLOB", "failed")

	err := f.pipeline.Run(context.Background(), v.ID, src)
	var unsupported *storage.UnsupportedBackendError
	require.ErrorAs(t, err, &unsupported)

	got := f.reload(t, v.ID)
	assert.Equal(t, model.UploadFailed, got.UploadState)
	assert.Contains(t, got.ErrorMessage, "BLOB")
	assert.Equal(t, before+1, uploadCount(t, "BLOB", "failed"))
}

func TestPipelineTruncatesErrorMessage(t *testing.T) {
	long := strings.Repeat("é", 3*MaxErrorMessageLen)
	provider := &stubProvider{kind: storage.KindS3, upload: func(context.Context, int, string, string) (string, error) {
		return "", errors.New(long)
	}}
	f := newFixture(t, storage.KindS3, stubResolver{storage.KindS3: provider})
	v, src := f.pendingVersion(t)

	require.Error(t, f.pipeline.Run(context.Background(), v.ID, src))
	got := f.reload(t, v.ID)
	assert.Equal(t, MaxErrorMessageLen, len([]rune(got.ErrorMessage)))
}

func TestPipelineRejectsBusyAndReadyVersions(t *testing.T) {
	provider := &stubProvider{kind: storage.KindS3, upload: func(context.Context, int, string, string) (string, error) {
		return "s3://docs/hub-a/doc/doc.txt", nil
	}}
	f := newFixture(t, storage.KindS3, stubResolver{storage.KindS3: provider})
	ctx := context.Background()

	busy, src := f.pendingVersion(t)
	_, err := f.store.Claim(ctx, busy.ID)
	require.NoError(t, err)
	assert.ErrorIs(t, f.pipeline.Run(ctx, busy.ID, src), ErrVersionBusy)

	ready, src2 := f.pendingVersion(t)
	require.NoError(t, f.pipeline.Run(ctx, ready.ID, src2))
	assert.ErrorIs(t, f.pipeline.Run(ctx, ready.ID, src2), ErrAlreadyReady)
	assert.Equal(t, 1, provider.Calls())

	assert.ErrorIs(t, f.pipeline.Run(ctx, 424242, src), ErrVersionNotFound)
}

func TestPipelineConcurrentRunsUploadOnce(t *testing.T) {
	release := make(chan struct{})
	provider := &stubProvider{kind: storage.KindS3, upload: func(ctx context.Context, _ int, _, key string) (string, error) {
		<-release
		return "s3://docs/" + key, nil
	}}
	f := newFixture(t, storage.KindS3, stubResolver{storage.KindS3: provider})
	v, src := f.pendingVersion(t)

	const runners = 6
	errs := make(chan error, runners)
	var wg sync.WaitGroup
	for i := 0; i < runners; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- f.pipeline.Run(context.Background(), v.ID, src)
		}()
	}

	require.Eventually(t, func() bool { return provider.Calls() == 1 }, 5*time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()
	close(errs)

	succeeded := 0
	for err := range errs {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, ErrVersionBusy), errors.Is(err, ErrAlreadyReady):
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, provider.Calls())
	assert.Equal(t, model.UploadReady, f.reload(t, v.ID).UploadState)
}

func TestCommitKeepsFirstUploadedAt(t *testing.T) {
	provider := &stubProvider{kind: storage.KindS3, upload: func(context.Context, int, string, string) (string, error) {
		return "s3://docs/hub-a/doc/doc.txt", nil
	}}
	f := newFixture(t, storage.KindS3, stubResolver{storage.KindS3: provider})
	v, src := f.pendingVersion(t)

	first := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, db.NewDocumentVersionDAO().ApplyUpdates(context.Background(), f.db, v.ID, map[string]any{
		"upload_state": model.UploadFailed,
		"uploaded_at":  first,
	}))

	require.NoError(t, f.pipeline.Run(context.Background(), v.ID, src))
	got := f.reload(t, v.ID)
	require.NotNil(t, got.UploadedAt)
	assert.True(t, got.UploadedAt.Equal(first), "uploaded_at changed to %s", got.UploadedAt)
}

func TestStaleClaimCannotCommit(t *testing.T) {
	f := newFixture(t, storage.KindS3, stubResolver{})
	v, _ := f.pendingVersion(t)
	ctx := context.Background()

	claim, err := f.store.Claim(ctx, v.ID)
	require.NoError(t, err)

	_, expired, err := f.store.Expire(ctx, v.ID, claim.Token, time.Now().Add(time.Minute))
	require.NoError(t, err)
	require.True(t, expired)

	assert.ErrorIs(t, f.store.Commit(ctx, claim, "s3://docs/x"), ErrStaleClaim)
	assert.ErrorIs(t, f.store.Fail(ctx, claim, errors.New("late")), ErrStaleClaim)

	got := f.reload(t, v.ID)
	assert.Equal(t, model.UploadFailed, got.UploadState)
	assert.Equal(t, "upload claim expired", got.ErrorMessage)
}

func TestClaimClearsPreviousError(t *testing.T) {
	f := newFixture(t, storage.KindS3, stubResolver{})
	v, _ := f.pendingVersion(t)
	ctx := context.Background()
	require.NoError(t, db.NewDocumentVersionDAO().ApplyUpdates(ctx, f.db, v.ID, map[string]any{
		"upload_state":  model.UploadFailed,
		"error_message": "previous failure",
	}))

	claim, err := f.store.Claim(ctx, v.ID)
	require.NoError(t, err)
	assert.Equal(t, model.UploadUploading, claim.Version.UploadState)

	got := f.reload(t, v.ID)
	assert.Equal(t, model.UploadUploading, got.UploadState)
	assert.Empty(t, got.ErrorMessage)
	assert.NotNil(t, got.ClaimedAt)
}
