package caching

import (
	"context"
	"errors"
	"time"

	"github.com/go-redis/cache/v9"
	"github.com/redis/go-redis/v9"
)

type Cache interface {
	Get(ctx context.Context, key string, target any) error
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// UseCache returns the cached value under key or computes, stores and returns it.
// A failed store is ignored; a failed read other than a miss is returned.
func UseCache[T any](ctx context.Context, c Cache, key string, ttl time.Duration, callback func() (T, error)) (T, error) {
	var v T
	if ttl <= 0 {
		return callback()
	}

	err := c.Get(ctx, key, &v)
	if !errors.Is(err, cache.ErrCacheMiss) {
		return v, err
	}

	v, err = callback()
	if err != nil {
		return v, err
	}

	// fire and forget
	//nolint:errcheck
	c.Set(ctx, key, v, ttl)
	return v, nil
}

type CacheRedis struct {
	instance *cache.Cache
}

func (c *CacheRedis) Get(ctx context.Context, key string, target any) error {
	return c.instance.Get(ctx, key, target)
}

func (c *CacheRedis) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	return c.instance.Set(&cache.Item{
		Ctx:   ctx,
		Key:   key,
		Value: value,
		TTL:   ttl,
	})
}

// Delete removes key. Deleting a missing key is not an error.
func (c *CacheRedis) Delete(ctx context.Context, key string) error {
	if err := c.instance.Delete(ctx, key); err != nil && !errors.Is(err, cache.ErrCacheMiss) {
		return err
	}
	return nil
}

// NewCacheRedis builds a cache backed by client with a small local tier.
func NewCacheRedis(client redis.UniversalClient, localTTL time.Duration) *CacheRedis {
	return &CacheRedis{cache.New(&cache.Options{
		Redis:      client,
		LocalCache: cache.NewTinyLFU(10000, localTTL),
	})}
}

// NewCacheLocal builds a process-local cache whose entries live for ttl.
func NewCacheLocal(size int, ttl time.Duration) *CacheRedis {
	return &CacheRedis{cache.New(&cache.Options{
		LocalCache: cache.NewTinyLFU(size, ttl),
	})}
}
