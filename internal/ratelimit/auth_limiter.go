package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

const keyAuthAttempt = "cbam:auth:%s:%s"

var ErrRateLimited = errors.New("rate_limited")

// AuthLimiter throttles credential endpoints per client address.
type AuthLimiter struct {
	limiter Limiter
	rate    float64
	burst   int
}

// NewAuthLimiter allows burst attempts, then one every 1/rate seconds.
func NewAuthLimiter(limiter Limiter, rate float64, burst int) *AuthLimiter {
	return &AuthLimiter{limiter: limiter, rate: rate, burst: burst}
}

// Allow returns ErrRateLimited with the wait time when the client is over its
// budget. Limiter failures are returned as-is; callers decide whether to fail open.
func (a *AuthLimiter) Allow(ctx context.Context, action, clientIP string) (time.Duration, error) {
	key := fmt.Sprintf(keyAuthAttempt, action, strings.TrimSpace(clientIP))
	res, err := a.limiter.Allow(ctx, key, a.rate, a.burst)
	if err != nil {
		return 0, err
	}
	if !res.Allowed {
		return res.RetryAfter, ErrRateLimited
	}
	return 0, nil
}
