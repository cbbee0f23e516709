package lock

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisLocker(t *testing.T, acquireTimeout time.Duration) (*RedisLocker, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedis(client, "test:lock:", 10*time.Second, acquireTimeout), mr
}

func lockers(t *testing.T) map[string]Locker {
	redisLocker, _ := newRedisLocker(t, 5*time.Second)
	return map[string]Locker{
		"local": NewLocal(),
		"redis": redisLocker,
	}
}

func TestWithLockIsExclusive(t *testing.T) {
	for name, l := range lockers(t) {
		t.Run(name, func(t *testing.T) {
			var inside, maxInside int32
			var wg sync.WaitGroup
			for i := 0; i < 8; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					err := WithLock(context.Background(), l, "version:1", func() error {
						n := atomic.AddInt32(&inside, 1)
						for {
							m := atomic.LoadInt32(&maxInside)
							if n <= m || atomic.CompareAndSwapInt32(&maxInside, m, n) {
								break
							}
						}
						time.Sleep(5 * time.Millisecond)
						atomic.AddInt32(&inside, -1)
						return nil
					})
					assert.NoError(t, err)
				}()
			}
			wg.Wait()
			assert.Equal(t, int32(1), maxInside)
		})
	}
}

func TestDistinctKeysDoNotBlock(t *testing.T) {
	for name, l := range lockers(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			id1, err := l.Acquire(ctx, "version:1")
			require.NoError(t, err)
			id2, err := l.Acquire(ctx, "version:2")
			require.NoError(t, err)
			require.NoError(t, l.Release(ctx, "version:1", id1))
			require.NoError(t, l.Release(ctx, "version:2", id2))
		})
	}
}

func TestLocalAcquireRespectsContext(t *testing.T) {
	l := NewLocal()
	id, err := l.Acquire(context.Background(), "k")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = l.Acquire(ctx, "k")
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	require.NoError(t, l.Release(context.Background(), "k", id))
	_, err = l.Acquire(context.Background(), "k")
	assert.NoError(t, err)
}

func TestLocalReleaseWithStaleIDIsIgnored(t *testing.T) {
	l := NewLocal()
	id, err := l.Acquire(context.Background(), "k")
	require.NoError(t, err)
	require.NoError(t, l.Release(context.Background(), "k", "someone-else"))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = l.Acquire(ctx, "k")
	assert.Error(t, err, "lock must still be held by the real owner")
	require.NoError(t, l.Release(context.Background(), "k", id))
}

func TestRedisAcquireTimeout(t *testing.T) {
	l, mr := newRedisLocker(t, 100*time.Millisecond)
	ctx := context.Background()

	id, err := l.Acquire(ctx, "k")
	require.NoError(t, err)
	assert.True(t, mr.Exists("test:lock:k"))

	_, err = l.Acquire(ctx, "k")
	assert.True(t, errors.Is(err, ErrTimeout), "got %v", err)

	require.NoError(t, l.Release(ctx, "k", id))
	assert.False(t, mr.Exists("test:lock:k"))
}

func TestRedisReleaseOnlyByOwner(t *testing.T) {
	l, mr := newRedisLocker(t, time.Second)
	ctx := context.Background()

	_, err := l.Acquire(ctx, "k")
	require.NoError(t, err)
	require.NoError(t, l.Release(ctx, "k", "not-the-owner"))
	assert.True(t, mr.Exists("test:lock:k"))
}
