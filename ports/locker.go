package ports

import "context"

// Locker serializes work on a key, in process or across instances
type Locker interface {
	// Lock blocks until the key is held or ctx is done. The returned func releases it.
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

// RateLimiter decides whether another request under key is allowed
type RateLimiter interface {
	Allow(ctx context.Context, key string) (allowed bool, err error)
}
