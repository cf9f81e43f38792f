// Package locking serializes match-then-mutate sections across resolutions.
package locking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Gobusters/ectologger"

	ferrors "github.com/Ramsey-B/fern/pkg/errors"
)

// ResolutionKey guards every resolution against the contact store
const ResolutionKey = "contacts:resolution"

const (
	BackendLocal = "local"
	BackendFile  = "file"
	BackendRedis = "redis"
)

// ErrTimeout is returned when a lock is not obtained in time
var ErrTimeout = errors.New("timed out waiting for lock")

// Release gives a held lock back
type Release func(ctx context.Context) error

// Locker grants exclusive sections by key
type Locker interface {
	Acquire(ctx context.Context, key string) (Release, error)
}

// WithLock runs fn while holding key. A failed release is logged, the result
// of fn is returned.
func WithLock(ctx context.Context, locker Locker, logger ectologger.Logger, key string, fn func(ctx context.Context) error) error {
	release, err := locker.Acquire(ctx, key)
	if errors.Is(err, ErrTimeout) {
		return ferrors.NewLockTimeoutError(key, err)
	}
	if err != nil {
		return fmt.Errorf("failed to acquire %s: %w", key, err)
	}
	defer func() {
		if err := release(ctx); err != nil {
			logger.WithContext(ctx).WithError(err).Warnf("failed to release lock %s", key)
		}
	}()

	return fn(ctx)
}

// waitContext bounds ctx by timeout when one is set
func waitContext(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}
