package port

import (
	"context"
	"errors"
	"time"
)

var ErrLockNotObtained = errors.New("lock not obtained")

type CacheRepository interface {
	// SetIdempotency sets a key for idempotency check, returns false if already exists
	SetIdempotency(ctx context.Context, key string) (bool, error)

	// ReleaseIdempotency drops a claimed key so the request can be retried
	ReleaseIdempotency(ctx context.Context, key string) error

	// NextSequence atomically increments and returns the counter at key
	NextSequence(ctx context.Context, key string) (int64, error)
}

type Locker interface {
	// Lock obtains an exclusive lease on key, returns ErrLockNotObtained if held elsewhere
	Lock(ctx context.Context, key string, ttl time.Duration) (release func(context.Context) error, err error)
}
