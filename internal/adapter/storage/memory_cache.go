package storage

import (
	"context"
	"sync"
	"time"

	"github.com/rl1809/order-desk/internal/port"
)

// MemoryCache is the in-process stand-in for RedisAdapter when REDIS_ADDR is
// unset. It implements port.CacheRepository and port.Locker.
type MemoryCache struct {
	mu        sync.Mutex
	keys      map[string]time.Time
	sequences map[string]int64
	locks     map[string]time.Time
	now       func() time.Time
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		keys:      make(map[string]time.Time),
		sequences: make(map[string]int64),
		locks:     make(map[string]time.Time),
		now:       time.Now,
	}
}

func (c *MemoryCache) SetIdempotency(ctx context.Context, key string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if exp, ok := c.keys[key]; ok && now.Before(exp) {
		return false, nil
	}
	c.keys[key] = now.Add(idempotencyKeyTTL)
	return true, nil
}

func (c *MemoryCache) ReleaseIdempotency(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.keys, key)
	return nil
}

func (c *MemoryCache) NextSequence(ctx context.Context, key string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.sequences[key]++
	return c.sequences[key], nil
}

func (c *MemoryCache) Lock(ctx context.Context, key string, ttl time.Duration) (func(context.Context) error, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if exp, ok := c.locks[key]; ok && now.Before(exp) {
		return nil, port.ErrLockNotObtained
	}
	exp := now.Add(ttl)
	c.locks[key] = exp

	return func(context.Context) error {
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.locks[key].Equal(exp) {
			delete(c.locks, key)
		}
		return nil
	}, nil
}
