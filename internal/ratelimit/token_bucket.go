package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// The bucket refills continuously at rate tokens per second up to burst.
// Tokens are returned as a string because redis truncates Lua numbers to
// integers in replies.
const tokenBucketScript = `
local rate = tonumber(ARGV[1])
local burst = tonumber(ARGV[2])
local ttl = tonumber(ARGV[3])

local clock = redis.call("TIME")
local now = (clock[1] * 1000) + math.floor(clock[2] / 1000)

local state = redis.call("HMGET", KEYS[1], "tokens", "ts")
local tokens = tonumber(state[1])
local ts = tonumber(state[2])

if tokens == nil then
  tokens = burst
else
  local elapsed = math.max(0, now - ts)
  tokens = math.min(burst, tokens + (elapsed / 1000) * rate)
end

local allowed = 0
if tokens >= 1 then
  allowed = 1
  tokens = tokens - 1
end

redis.call("HSET", KEYS[1], "tokens", tokens, "ts", now)
redis.call("PEXPIRE", KEYS[1], ttl)

return {allowed, tostring(tokens), now}
`

var (
	ErrInvalidBucket  = errors.New("invalid_rate_limit_bucket")
	errScriptResponse = errors.New("unexpected rate limit script response")
)

// Limiter admits one request per call when the bucket under key has a token.
type Limiter interface {
	Allow(ctx context.Context, key string, rate float64, burst int) (*RateLimitResult, error)
}

type RateLimitResult struct {
	Allowed    bool
	Limit      int
	Remaining  int
	ResetTime  time.Time
	RetryAfter time.Duration
}

// TokenBucket keeps buckets in redis so limits hold across replicas.
type TokenBucket struct {
	client *redis.Client
	script *redis.Script
}

func NewTokenBucket(client *redis.Client) *TokenBucket {
	return &TokenBucket{
		client: client,
		script: redis.NewScript(tokenBucketScript),
	}
}

func (t *TokenBucket) Allow(ctx context.Context, key string, rate float64, burst int) (*RateLimitResult, error) {
	if err := checkBucket(key, rate, burst); err != nil {
		return &RateLimitResult{}, err
	}

	ttl := bucketTTL(rate, burst)
	reply, err := t.script.Run(ctx, t.client, []string{key}, rate, burst, ttl.Milliseconds()).Slice()
	if err != nil {
		return &RateLimitResult{}, err
	}
	if len(reply) != 3 {
		return &RateLimitResult{}, errScriptResponse
	}

	allowed, ok := reply[0].(int64)
	if !ok {
		return &RateLimitResult{}, errScriptResponse
	}
	raw, ok := reply[1].(string)
	if !ok {
		return &RateLimitResult{}, errScriptResponse
	}
	tokens, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return &RateLimitResult{}, fmt.Errorf("%w: %v", errScriptResponse, err)
	}
	nowMillis, _ := reply[2].(int64)

	return newResult(allowed == 1, tokens, rate, burst, time.UnixMilli(nowMillis)), nil
}

func newResult(allowed bool, tokens, rate float64, burst int, now time.Time) *RateLimitResult {
	res := &RateLimitResult{
		Allowed:   allowed,
		Limit:     burst,
		Remaining: int(tokens),
	}
	if !allowed {
		res.RetryAfter = time.Duration((1 - tokens) / rate * float64(time.Second))
	}
	res.ResetTime = now.Add(res.RetryAfter)
	return res
}

// bucketTTL keeps an idle bucket around for twice the time it takes to refill.
func bucketTTL(rate float64, burst int) time.Duration {
	seconds := math.Max(1, math.Ceil(float64(burst)/rate*2))
	return time.Duration(seconds) * time.Second
}

func checkBucket(key string, rate float64, burst int) error {
	switch {
	case key == "":
		return fmt.Errorf("%w: empty key", ErrInvalidBucket)
	case rate <= 0 || math.IsNaN(rate):
		return fmt.Errorf("%w: rate must be positive", ErrInvalidBucket)
	case burst <= 0:
		return fmt.Errorf("%w: burst must be positive", ErrInvalidBucket)
	}
	return nil
}
