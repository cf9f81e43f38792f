package locking

import (
	"context"
	"errors"
	"sync"
	"time"
)

// LocalLocker serializes callers within one process
type LocalLocker struct {
	mu      sync.Mutex
	slots   map[string]chan struct{}
	timeout time.Duration
}

func NewLocalLocker(timeout time.Duration) *LocalLocker {
	return &LocalLocker{
		slots:   make(map[string]chan struct{}),
		timeout: timeout,
	}
}

func (l *LocalLocker) Acquire(ctx context.Context, key string) (Release, error) {
	slot := l.slot(key)

	waitCtx, cancel := waitContext(ctx, l.timeout)
	defer cancel()

	select {
	case slot <- struct{}{}:
	case <-waitCtx.Done():
		if errors.Is(waitCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			return nil, ErrTimeout
		}
		return nil, waitCtx.Err()
	}

	var once sync.Once
	return func(context.Context) error {
		once.Do(func() { <-slot })
		return nil
	}, nil
}

func (l *LocalLocker) slot(key string) chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()

	slot, ok := l.slots[key]
	if !ok {
		slot = make(chan struct{}, 1)
		l.slots[key] = slot
	}
	return slot
}
