package locking_test

import (
	"context"
	"errors"
	"net/http"
	"os"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ferrors "github.com/Ramsey-B/fern/pkg/errors"
	"github.com/Ramsey-B/fern/pkg/locking"
	"github.com/Ramsey-B/fern/pkg/redis"
)

func getTestLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}

func lockers(t *testing.T) map[string]func(timeout time.Duration) locking.Locker {
	dir := t.TempDir()
	return map[string]func(timeout time.Duration) locking.Locker{
		"local": func(timeout time.Duration) locking.Locker {
			return locking.NewLocalLocker(timeout)
		},
		"file": func(timeout time.Duration) locking.Locker {
			locker, err := locking.NewFileLocker(dir, timeout)
			require.NoError(t, err)
			return locker
		},
	}
}

func TestLockerMutualExclusion(t *testing.T) {
	for name, newLocker := range lockers(t) {
		t.Run(name, func(t *testing.T) {
			locker := newLocker(5 * time.Second)
			ctx := context.Background()

			var (
				wg      sync.WaitGroup
				inside  atomic.Int32
				maxSeen atomic.Int32
				counter int
			)
			for range 20 {
				wg.Add(1)
				go func() {
					defer wg.Done()
					err := locking.WithLock(ctx, locker, getTestLogger(), locking.ResolutionKey, func(context.Context) error {
						n := inside.Add(1)
						if n > maxSeen.Load() {
							maxSeen.Store(n)
						}
						counter++
						time.Sleep(time.Millisecond)
						inside.Add(-1)
						return nil
					})
					assert.NoError(t, err)
				}()
			}
			wg.Wait()

			assert.Equal(t, 20, counter)
			assert.Equal(t, int32(1), maxSeen.Load())
		})
	}
}

func TestLockerTimeout(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	fileHolder, err := locking.NewFileLocker(dir, time.Second)
	require.NoError(t, err)
	fileWaiter, err := locking.NewFileLocker(dir, 50*time.Millisecond)
	require.NoError(t, err)
	local := locking.NewLocalLocker(50 * time.Millisecond)

	tests := []struct {
		name   string
		holder locking.Locker
		waiter locking.Locker
	}{
		{"local", local, local},
		{"file held by another process", fileHolder, fileWaiter},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			release, err := tt.holder.Acquire(ctx, locking.ResolutionKey)
			require.NoError(t, err)

			_, err = tt.waiter.Acquire(ctx, locking.ResolutionKey)
			assert.ErrorIs(t, err, locking.ErrTimeout)

			require.NoError(t, release(ctx))

			again, err := tt.waiter.Acquire(ctx, locking.ResolutionKey)
			require.NoError(t, err)
			require.NoError(t, again(ctx))
		})
	}
}

func TestLockerHonoursCancellation(t *testing.T) {
	locker := locking.NewLocalLocker(0)
	release, err := locker.Acquire(context.Background(), "k")
	require.NoError(t, err)
	defer release(context.Background())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = locker.Acquire(ctx, "k")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLocalLockerKeysAreIndependent(t *testing.T) {
	locker := locking.NewLocalLocker(10 * time.Millisecond)
	ctx := context.Background()

	first, err := locker.Acquire(ctx, "a")
	require.NoError(t, err)
	second, err := locker.Acquire(ctx, "b")
	require.NoError(t, err)

	require.NoError(t, first(ctx))
	require.NoError(t, first(ctx), "releasing twice is harmless")
	require.NoError(t, second(ctx))
}

func TestWithLockReturnsCallbackError(t *testing.T) {
	boom := errors.New("boom")
	locker := locking.NewLocalLocker(time.Second)

	err := locking.WithLock(context.Background(), locker, getTestLogger(), "k", func(context.Context) error {
		return boom
	})
	assert.ErrorIs(t, err, boom)

	release, err := locker.Acquire(context.Background(), "k")
	require.NoError(t, err, "the lock is released after a failing callback")
	require.NoError(t, release(context.Background()))
}

func TestWithLockTimeoutIsRetryable(t *testing.T) {
	ctx := context.Background()
	locker := locking.NewLocalLocker(20 * time.Millisecond)
	release, err := locker.Acquire(ctx, locking.ResolutionKey)
	require.NoError(t, err)
	defer release(ctx)

	called := false
	err = locking.WithLock(ctx, locker, getTestLogger(), locking.ResolutionKey, func(context.Context) error {
		called = true
		return nil
	})

	require.Error(t, err)
	assert.False(t, called)
	assert.ErrorIs(t, err, locking.ErrTimeout)
	assert.Equal(t, ferrors.KindLockTimeout, ferrors.KindOf(err))

	httpErr := err.(*ferrors.ContactError).ToHTTPError()
	assert.Equal(t, http.StatusServiceUnavailable, httperror.GetStatusCode(httpErr))
	assert.Equal(t, "acquire_lock", httpErr.Meta["operation"])
	assert.Equal(t, locking.ResolutionKey, httpErr.Meta["target_id"])
}

func TestFileLockerPath(t *testing.T) {
	locker, err := locking.NewFileLocker(t.TempDir(), time.Second)
	require.NoError(t, err)

	assert.Contains(t, locker.Path(locking.ResolutionKey), "contacts-resolution.lock")
}

func TestRedisLocker(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	host := os.Getenv("REDIS_HOST")
	if host == "" {
		t.Skip("REDIS_HOST is not set")
	}
	port, err := strconv.Atoi(os.Getenv("REDIS_PORT"))
	if err != nil {
		port = 6379
	}

	ctx := context.Background()
	client, err := redis.NewClient(ctx, redis.Config{Host: host, Port: port}, getTestLogger())
	require.NoError(t, err)
	defer client.Close()

	key := "test:" + strconv.FormatInt(time.Now().UnixNano(), 10)
	holder := locking.NewRedisLocker(client, 5*time.Second, time.Second)
	waiter := locking.NewRedisLocker(client, 5*time.Second, 50*time.Millisecond)

	release, err := holder.Acquire(ctx, key)
	require.NoError(t, err)

	_, err = waiter.Acquire(ctx, key)
	assert.ErrorIs(t, err, locking.ErrTimeout)

	require.NoError(t, release(ctx))
	assert.ErrorIs(t, release(ctx), redis.ErrLockNotHeld)

	again, err := waiter.Acquire(ctx, key)
	require.NoError(t, err)
	require.NoError(t, again(ctx))
}
