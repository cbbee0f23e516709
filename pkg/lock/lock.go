// Package lock provides keyed exclusive locks used to serialise state
// changes of a single document version across workers.
package lock

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrTimeout is returned when a lock could not be obtained in time.
var ErrTimeout = errors.New("timeout acquiring lock")

// Locker grants exclusive ownership of a key.
type Locker interface {
	// Acquire blocks until the key is owned or ctx ends, and returns an
	// owner id to pass to Release.
	Acquire(ctx context.Context, key string) (string, error)
	// Release gives up ownership if id still owns the key.
	Release(ctx context.Context, key, id string) error
}

// WithLock runs fn while holding key.
func WithLock(ctx context.Context, l Locker, key string, fn func() error) error {
	id, err := l.Acquire(ctx, key)
	if err != nil {
		return fmt.Errorf("acquire %s: %w", key, err)
	}
	defer func() {
		// Release must outlive a cancelled ctx or the key stays held until TTL.
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		_ = l.Release(releaseCtx, key, id)
	}()
	return fn()
}
