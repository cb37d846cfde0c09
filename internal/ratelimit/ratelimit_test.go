package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func testLocker(t *testing.T, l Locker) {
	ctx := context.Background()

	token, ok, err := l.TryLock(ctx, "export:1", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = l.TryLock(ctx, "export:1", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, l.Release(ctx, "export:1", "someone-else"))
	_, ok, _ = l.TryLock(ctx, "export:1", time.Minute)
	assert.False(t, ok)

	require.NoError(t, l.Release(ctx, "export:1", token))
	_, ok, err = l.TryLock(ctx, "export:1", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	_, _, err = l.TryLock(ctx, "", time.Minute)
	assert.ErrorIs(t, err, ErrEmptyKey)
	_, _, err = l.TryLock(ctx, "k", 0)
	assert.ErrorIs(t, err, ErrInvalidTTL)
}

func TestMemoryLocker(t *testing.T) {
	testLocker(t, NewMemoryLocker())
}

func TestRedisLocker(t *testing.T) {
	_, client := newRedis(t)
	testLocker(t, NewRedisLocker(client))
}

func TestMemoryLockerExpires(t *testing.T) {
	l := NewMemoryLocker()
	now := time.Now()
	l.now = func() time.Time { return now }

	_, ok, _ := l.TryLock(context.Background(), "k", time.Second)
	require.True(t, ok)

	now = now.Add(2 * time.Second)
	_, ok, _ = l.TryLock(context.Background(), "k", time.Second)
	assert.True(t, ok)
}

func TestMemoryBucketRefills(t *testing.T) {
	b := NewMemoryBucket()
	now := time.Now()
	b.now = func() time.Time { return now }
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		res, err := b.Allow(ctx, "k", 1, 3)
		require.NoError(t, err)
		assert.True(t, res.Allowed)
	}
	res, err := b.Allow(ctx, "k", 1, 3)
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Equal(t, time.Second, res.RetryAfter)

	now = now.Add(time.Second)
	res, err = b.Allow(ctx, "k", 1, 3)
	require.NoError(t, err)
	assert.True(t, res.Allowed)
}

func TestMemoryBucketDropsIdleBuckets(t *testing.T) {
	b := NewMemoryBucket()
	now := time.Now()
	b.now = func() time.Time { return now }
	ctx := context.Background()

	for _, ip := range []string{"10.0.0.1", "10.0.0.2", "10.0.0.3"} {
		_, err := b.Allow(ctx, ip, 1, 3)
		require.NoError(t, err)
	}
	assert.Len(t, b.buckets, 3)

	now = now.Add(sweepEvery + bucketTTL(1, 3))
	_, err := b.Allow(ctx, "10.0.0.4", 1, 3)
	require.NoError(t, err)
	assert.Len(t, b.buckets, 1)
	assert.Contains(t, b.buckets, "10.0.0.4")
}

func TestMemoryLockerDropsExpiredLeases(t *testing.T) {
	l := NewMemoryLocker()
	now := time.Now()
	l.now = func() time.Time { return now }
	ctx := context.Background()

	_, ok, err := l.TryLock(ctx, "a", time.Second)
	require.NoError(t, err)
	require.True(t, ok)
	_, ok, err = l.TryLock(ctx, "b", time.Hour)
	require.NoError(t, err)
	require.True(t, ok)

	now = now.Add(sweepEvery + time.Second)
	_, ok, err = l.TryLock(ctx, "c", time.Second)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Len(t, l.leases, 2)
	assert.NotContains(t, l.leases, "a")
}

func TestTokenBucketRedis(t *testing.T) {
	_, client := newRedis(t)
	b := NewTokenBucket(client)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		res, err := b.Allow(ctx, "bucket", 0.001, 2)
		require.NoError(t, err)
		assert.True(t, res.Allowed)
	}
	res, err := b.Allow(ctx, "bucket", 0.001, 2)
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Equal(t, 0, res.Remaining)
	// roughly 1000s for one token at 0.001/s, not truncated to a whole token
	assert.InDelta(t, 1000, res.RetryAfter.Seconds(), 5)
}

func TestAuthLimiter(t *testing.T) {
	a := NewAuthLimiter(NewMemoryBucket(), 0.001, 2)
	ctx := context.Background()

	_, err := a.Allow(ctx, "login", "10.0.0.1")
	require.NoError(t, err)
	_, err = a.Allow(ctx, "login", "10.0.0.1")
	require.NoError(t, err)

	wait, err := a.Allow(ctx, "login", "10.0.0.1")
	assert.ErrorIs(t, err, ErrRateLimited)
	assert.Greater(t, wait, time.Duration(0))

	_, err = a.Allow(ctx, "login", "10.0.0.2")
	assert.NoError(t, err)
	_, err = a.Allow(ctx, "signup", "10.0.0.1")
	assert.NoError(t, err)
}

func TestCheckBucket(t *testing.T) {
	_, err := NewMemoryBucket().Allow(context.Background(), "", 1, 1)
	assert.ErrorIs(t, err, ErrInvalidBucket)
	_, err = NewMemoryBucket().Allow(context.Background(), "k", 0, 1)
	assert.ErrorIs(t, err, ErrInvalidBucket)
	_, err = NewMemoryBucket().Allow(context.Background(), "k", 1, 0)
	assert.ErrorIs(t, err, ErrInvalidBucket)
}
