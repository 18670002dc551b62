package cache

import (
	"context"
	"errors"
	"time"

	"github.com/bsm/redislock"
)

// ErrLocked is returned when another worker holds the lock.
var ErrLocked = errors.New("platform/cache: lock held elsewhere")

// Locker runs functions under a Redis lock.
type Locker struct {
	client *redislock.Client
}

func NewLocker(client redislock.RedisClient) *Locker {
	return &Locker{client: redislock.New(client)}
}

// WithLock obtains key for ttl, runs fn and releases the lock. It returns
// ErrLocked without running fn when the key is already held.
func (l *Locker) WithLock(ctx context.Context, key string, ttl time.Duration, fn func(context.Context) error) error {
	lock, err := l.client.Obtain(ctx, key, ttl, nil)
	if errors.Is(err, redislock.ErrNotObtained) {
		return ErrLocked
	}
	if err != nil {
		return err
	}
	defer func() {
		_ = lock.Release(context.WithoutCancel(ctx))
	}()
	return fn(ctx)
}
