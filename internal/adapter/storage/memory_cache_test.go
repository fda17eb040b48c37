package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rl1809/order-desk/internal/port"
)

func TestMemoryCache_Idempotency(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache()

	ok, err := c.SetIdempotency(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, _ = c.SetIdempotency(ctx, "k")
	assert.False(t, ok)

	now := time.Now()
	c.now = func() time.Time { return now.Add(idempotencyKeyTTL + time.Second) }
	ok, _ = c.SetIdempotency(ctx, "k")
	assert.True(t, ok, "expired key should be claimable again")
}

func TestMemoryCache_ReleaseIdempotency(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache()

	ok, _ := c.SetIdempotency(ctx, "k")
	require.True(t, ok)
	require.NoError(t, c.ReleaseIdempotency(ctx, "k"))

	ok, _ = c.SetIdempotency(ctx, "k")
	assert.True(t, ok, "released key should be claimable again")
	assert.NoError(t, c.ReleaseIdempotency(ctx, "never-claimed"))
}

func TestMemoryCache_Sequence(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache()

	a, _ := c.NextSequence(ctx, "order")
	b, _ := c.NextSequence(ctx, "order")
	other, _ := c.NextSequence(ctx, "po")

	assert.Equal(t, int64(1), a)
	assert.Equal(t, int64(2), b)
	assert.Equal(t, int64(1), other)
}

func TestMemoryCache_Lock(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache()

	release, err := c.Lock(ctx, "order:1", time.Minute)
	require.NoError(t, err)

	_, err = c.Lock(ctx, "order:1", time.Minute)
	assert.True(t, errors.Is(err, port.ErrLockNotObtained))

	_, err = c.Lock(ctx, "order:2", time.Minute)
	assert.NoError(t, err)

	require.NoError(t, release(ctx))
	_, err = c.Lock(ctx, "order:1", time.Minute)
	assert.NoError(t, err)
}
