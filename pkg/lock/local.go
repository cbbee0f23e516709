package lock

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// LocalLocker implements Locker inside one process.
type LocalLocker struct {
	mu    sync.Mutex
	slots map[string]*slot
}

type slot struct {
	ch    chan struct{}
	owner string
	refs  int
}

// NewLocal creates an in-process Locker.
func NewLocal() *LocalLocker {
	return &LocalLocker{slots: make(map[string]*slot)}
}

func (l *LocalLocker) Acquire(ctx context.Context, key string) (string, error) {
	l.mu.Lock()
	s, ok := l.slots[key]
	if !ok {
		s = &slot{ch: make(chan struct{}, 1)}
		l.slots[key] = s
	}
	s.refs++
	l.mu.Unlock()

	select {
	case s.ch <- struct{}{}:
		id := uuid.NewString()
		l.mu.Lock()
		s.owner = id
		l.mu.Unlock()
		return id, nil
	case <-ctx.Done():
		l.unref(key, s)
		return "", ctx.Err()
	}
}

func (l *LocalLocker) Release(_ context.Context, key, id string) error {
	if id == "" {
		return nil
	}
	l.mu.Lock()
	s, ok := l.slots[key]
	if !ok || s.owner != id {
		l.mu.Unlock()
		return nil
	}
	s.owner = ""
	l.mu.Unlock()

	<-s.ch
	l.unref(key, s)
	return nil
}

func (l *LocalLocker) unref(key string, s *slot) {
	l.mu.Lock()
	defer l.mu.Unlock()
	s.refs--
	if s.refs == 0 && l.slots[key] == s {
		delete(l.slots, key)
	}
}
