package locking

import (
	"context"
	"errors"
	"time"

	"github.com/Ramsey-B/fern/pkg/redis"
)

// RedisLocker serializes resolutions across service replicas
type RedisLocker struct {
	locker  *redis.Locker
	ttl     time.Duration
	timeout time.Duration
}

// NewRedisLocker creates a locker whose locks expire after ttl so that a
// crashed holder cannot block resolutions forever.
func NewRedisLocker(client *redis.Client, ttl, timeout time.Duration) *RedisLocker {
	return &RedisLocker{
		locker:  redis.NewLocker(client, "fern:lock:"),
		ttl:     ttl,
		timeout: timeout,
	}
}

func (l *RedisLocker) Acquire(ctx context.Context, key string) (Release, error) {
	lock, err := l.locker.TryAcquire(ctx, key, l.ttl, l.timeout)
	if errors.Is(err, redis.ErrLockNotAcquired) {
		return nil, ErrTimeout
	}
	if err != nil {
		return nil, err
	}
	return lock.Release, nil
}
