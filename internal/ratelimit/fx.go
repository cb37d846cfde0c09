package ratelimit

import (
	redis "github.com/redis/go-redis/v9"
	"go.uber.org/fx"
)

const (
	authRate  = 0.2
	authBurst = 10
)

var Module = fx.Module("rate.limit",
	fx.Provide(NewLocker),
	fx.Provide(NewLimiter),
	fx.Provide(func(l Limiter) *AuthLimiter { return NewAuthLimiter(l, authRate, authBurst) }),
)

// NewLocker picks the redis locker when a client is configured.
func NewLocker(client *redis.Client) Locker {
	if client == nil {
		return NewMemoryLocker()
	}
	return NewRedisLocker(client)
}

func NewLimiter(client *redis.Client) Limiter {
	if client == nil {
		return NewMemoryBucket()
	}
	return NewTokenBucket(client)
}
