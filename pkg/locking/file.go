package locking

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
)

const fileRetryDelay = 25 * time.Millisecond

// FileLocker holds an advisory lock file per key so that several processes
// sharing one SQLite database resolve one at a time.
type FileLocker struct {
	dir     string
	local   *LocalLocker
	timeout time.Duration
}

func NewFileLocker(dir string, timeout time.Duration) (*FileLocker, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create lock directory: %w", err)
	}
	return &FileLocker{
		dir:     dir,
		local:   NewLocalLocker(timeout),
		timeout: timeout,
	}, nil
}

// Path returns the lock file used for key
func (l *FileLocker) Path(key string) string {
	name := strings.NewReplacer(":", "-", "/", "-", string(os.PathSeparator), "-").Replace(key)
	return filepath.Join(l.dir, name+".lock")
}

func (l *FileLocker) Acquire(ctx context.Context, key string) (Release, error) {
	// goroutines of this process queue up before touching the file
	releaseLocal, err := l.local.Acquire(ctx, key)
	if err != nil {
		return nil, err
	}

	waitCtx, cancel := waitContext(ctx, l.timeout)
	defer cancel()

	fileLock := flock.New(l.Path(key))
	ok, err := fileLock.TryLockContext(waitCtx, fileRetryDelay)
	if err != nil || !ok {
		_ = releaseLocal(ctx)
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return nil, ErrTimeout
		}
		if err == nil {
			err = ErrTimeout
		}
		return nil, fmt.Errorf("failed to lock %s: %w", fileLock.Path(), err)
	}

	return func(ctx context.Context) error {
		defer releaseLocal(ctx)
		if err := fileLock.Unlock(); err != nil {
			return fmt.Errorf("failed to unlock %s: %w", fileLock.Path(), err)
		}
		return nil
	}, nil
}
