package upload

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yi-nology/docvault/biz/dal/model"
	"github.com/yi-nology/docvault/pkg/storage"
)

func TestMemoryQueueFullAndClosed(t *testing.T) {
	ctx := context.Background()
	q := NewMemoryQueue(1)

	require.NoError(t, q.Enqueue(ctx, Job{JobID: "a", VersionID: 1}))
	assert.ErrorIs(t, q.Enqueue(ctx, Job{JobID: "b", VersionID: 2}), ErrQueueFull)

	n, err := q.Len(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	q.Close()
	assert.ErrorIs(t, q.Enqueue(ctx, Job{JobID: "c"}), ErrQueueClosed)

	d, err := q.Dequeue(ctx)
	require.NoError(t, err)
	assert.Equal(t, "a", d.Job.JobID)
	require.NoError(t, d.Ack(ctx))

	_, err = q.Dequeue(ctx)
	assert.ErrorIs(t, err, ErrQueueClosed)
}

func TestMemoryQueueDequeueHonoursContext(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := NewMemoryQueue(4).Dequeue(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func newRedisQueue(t *testing.T) (*RedisQueue, *miniredis.Miniredis, redis.UniversalClient) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisQueue(client, "docvault:test:uploads"), mr, client
}

func TestRedisQueueDeliversInOrderAndRecovers(t *testing.T) {
	ctx := context.Background()
	q, mr, _ := newRedisQueue(t)

	require.NoError(t, q.Enqueue(ctx, Job{JobID: "first", VersionID: 1, SourcePath: "/tmp/a"}))
	require.NoError(t, q.Enqueue(ctx, Job{JobID: "second", VersionID: 2, SourcePath: "/tmp/b"}))

	d1, err := q.Dequeue(ctx)
	require.NoError(t, err)
	assert.Equal(t, "first", d1.Job.JobID)
	assert.Equal(t, uint(1), d1.Job.VersionID)
	assert.Equal(t, "/tmp/a", d1.Job.SourcePath)

	d2, err := q.Dequeue(ctx)
	require.NoError(t, err)
	assert.Equal(t, "second", d2.Job.JobID)

	require.NoError(t, d1.Ack(ctx))
	processing, err := mr.List("docvault:test:uploads:processing")
	require.NoError(t, err)
	assert.Len(t, processing, 1)

	// second was never acknowledged, as if its worker crashed
	recovered, err := q.Recover(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, recovered)

	n, err := q.Len(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	again, err := q.Dequeue(ctx)
	require.NoError(t, err)
	assert.Equal(t, "second", again.Job.JobID)
}

func TestRedisQueueDropsMalformedPayloads(t *testing.T) {
	ctx := context.Background()
	q, mr, client := newRedisQueue(t)

	require.NoError(t, client.LPush(ctx, "docvault:test:uploads", "{not json").Err())
	require.NoError(t, q.Enqueue(ctx, Job{JobID: "good", VersionID: 9}))

	d, err := q.Dequeue(ctx)
	require.NoError(t, err)
	assert.Equal(t, "good", d.Job.JobID)

	processing, err := mr.List("docvault:test:uploads:processing")
	require.NoError(t, err)
	assert.Equal(t, 1, len(processing))
}

func TestRedisQueueDequeueStopsWithContext(t *testing.T) {
	q, _, _ := newRedisQueue(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := q.Dequeue(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDispatcherMarksVersionFailedWhenQueueRejects(t *testing.T) {
	f := newFixture(t, storage.KindS3, stubResolver{})
	first, src1 := f.pendingVersion(t)
	second, src2 := f.pendingVersion(t)
	ctx := context.Background()

	d := NewDispatcher(NewMemoryQueue(1), f.store)

	job, err := d.Submit(ctx, first.ID, src1)
	require.NoError(t, err)
	assert.NotEmpty(t, job.JobID)
	assert.Equal(t, first.ID, job.VersionID)
	assert.Equal(t, model.UploadPending, f.reload(t, first.ID).UploadState)

	_, err = d.Submit(ctx, second.ID, src2)
	require.ErrorIs(t, err, ErrDispatchUnavailable)
	assert.ErrorIs(t, err, ErrDispatchUnavailable)

	got := f.reload(t, second.ID)
	assert.Equal(t, model.UploadFailed, got.UploadState)
	assert.Contains(t, got.ErrorMessage, "background worker unavailable")
}

func TestDispatchFailureLeavesClaimedVersionAlone(t *testing.T) {
	f := newFixture(t, storage.KindS3, stubResolver{})
	v, src := f.pendingVersion(t)
	ctx := context.Background()

	_, err := f.store.Claim(ctx, v.ID)
	require.NoError(t, err)

	q := NewMemoryQueue(1)
	q.Close()
	_, err = NewDispatcher(q, f.store).Submit(ctx, v.ID, src)
	require.ErrorIs(t, err, ErrDispatchUnavailable)
	assert.Equal(t, model.UploadUploading, f.reload(t, v.ID).UploadState)
}

func TestDispatchFailureKeepsPreviousFailure(t *testing.T) {
	f := newFixture(t, storage.KindS3, stubResolver{})
	v, src := f.pendingVersion(t)
	ctx := context.Background()

	claim, err := f.store.Claim(ctx, v.ID)
	require.NoError(t, err)
	require.NoError(t, f.store.Fail(ctx, claim, errors.New("connection reset")))

	q := NewMemoryQueue(1)
	q.Close()
	_, err = NewDispatcher(q, f.store).Submit(ctx, v.ID, src)
	require.ErrorIs(t, err, ErrDispatchUnavailable)

	got := f.reload(t, v.ID)
	assert.Equal(t, model.UploadFailed, got.UploadState)
	assert.Equal(t, "connection reset", got.ErrorMessage)
}
