package storage

import (
	"context"
	"errors"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"

	"github.com/rl1809/order-desk/internal/port"
)

const (
	sequenceKeyPrefix = "seq:"
	lockKeyPrefix     = "lock:"
	idempotencyKeyTTL = 24 * time.Hour
	sequenceKeyTTL    = 48 * time.Hour
)

// nextSequenceScript increments the counter and sets its expiry on first use,
// so daily sequence keys do not accumulate.
var nextSequenceScript = redis.NewScript(`
local key = KEYS[1]
local ttl = tonumber(ARGV[1])

local current = redis.call('INCR', key)
if current == 1 then
	redis.call('EXPIRE', key, ttl)
end

return current
`)

type RedisAdapter struct {
	client *redis.Client
	locker *redislock.Client
}

func NewRedisAdapter(client *redis.Client) *RedisAdapter {
	return &RedisAdapter{
		client: client,
		locker: redislock.New(client),
	}
}

func (r *RedisAdapter) SetIdempotency(ctx context.Context, key string) (bool, error) {
	ok, err := r.client.SetNX(ctx, key, 1, idempotencyKeyTTL).Result()
	if err != nil {
		return false, err
	}

	return ok, nil
}

func (r *RedisAdapter) ReleaseIdempotency(ctx context.Context, key string) error {
	return r.client.Del(ctx, key).Err()
}

func (r *RedisAdapter) NextSequence(ctx context.Context, key string) (int64, error) {
	ttl := int64(sequenceKeyTTL / time.Second)
	return nextSequenceScript.Run(ctx, r.client, []string{sequenceKeyPrefix + key}, ttl).Int64()
}

func (r *RedisAdapter) Lock(ctx context.Context, key string, ttl time.Duration) (func(context.Context) error, error) {
	lock, err := r.locker.Obtain(ctx, lockKeyPrefix+key, ttl, nil)
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, port.ErrLockNotObtained
	}
	if err != nil {
		return nil, err
	}

	return func(ctx context.Context) error {
		err := lock.Release(ctx)
		if errors.Is(err, redislock.ErrLockNotHeld) {
			return nil
		}
		return err
	}, nil
}

func (r *RedisAdapter) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
