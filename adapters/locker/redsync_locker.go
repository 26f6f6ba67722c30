package locker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	"github.com/redis/go-redis/v9"
)

// ErrLockNotAcquired is returned when another instance holds the key for too long.
var ErrLockNotAcquired = errors.New("lock not acquired")

// RedsyncLocker serializes keys across instances through Redis.
type RedsyncLocker struct {
	rs     *redsync.Redsync
	prefix string
	expiry time.Duration
	tries  int
}

// NewRedsyncLocker holds each lock for at most expiry, which must exceed the
// longest critical section. Waiters retry for roughly tries * 100ms.
func NewRedsyncLocker(client redis.UniversalClient, expiry time.Duration, tries int) *RedsyncLocker {
	pool := goredis.NewPool(client)
	return &RedsyncLocker{
		rs:     redsync.New(pool),
		prefix: "walletauth:lock:",
		expiry: expiry,
		tries:  tries,
	}
}

func (l *RedsyncLocker) Lock(ctx context.Context, key string) (func(), error) {
	mutex := l.rs.NewMutex(l.prefix+key,
		redsync.WithExpiry(l.expiry),
		redsync.WithTries(l.tries),
		redsync.WithRetryDelay(100*time.Millisecond),
	)

	if err := mutex.LockContext(ctx); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: %s: %v", ErrLockNotAcquired, key, err)
	}

	return func() {
		// nolint:errcheck
		mutex.UnlockContext(context.Background())
	}, nil
}
