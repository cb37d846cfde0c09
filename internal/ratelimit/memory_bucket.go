package ratelimit

import (
	"context"
	"math"
	"sync"
	"time"
)

// sweepEvery bounds how often idle entries are dropped from the in-memory
// bucket and lease maps.
const sweepEvery = time.Minute

// MemoryBucket is the single-process Limiter used when redis is not configured.
// It follows the same refill rules as the redis script, and idle buckets are
// dropped once their TTL passes.
type MemoryBucket struct {
	mu        sync.Mutex
	buckets   map[string]*bucketState
	now       func() time.Time
	lastSweep time.Time
}

type bucketState struct {
	tokens  float64
	ts      time.Time
	expires time.Time
}

func NewMemoryBucket() *MemoryBucket {
	return &MemoryBucket{buckets: make(map[string]*bucketState), now: time.Now}
}

func (m *MemoryBucket) Allow(_ context.Context, key string, rate float64, burst int) (*RateLimitResult, error) {
	if err := checkBucket(key, rate, burst); err != nil {
		return &RateLimitResult{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	m.sweepLocked(now)

	ttl := bucketTTL(rate, burst)
	state, ok := m.buckets[key]
	if !ok || now.Sub(state.ts) > ttl {
		state = &bucketState{tokens: float64(burst), ts: now}
		m.buckets[key] = state
	} else {
		elapsed := now.Sub(state.ts).Seconds()
		if elapsed < 0 {
			elapsed = 0
		}
		state.tokens = math.Min(float64(burst), state.tokens+elapsed*rate)
		state.ts = now
	}

	state.expires = now.Add(ttl)

	allowed := state.tokens >= 1
	if allowed {
		state.tokens--
	}
	return newResult(allowed, state.tokens, rate, burst, now), nil
}

func (m *MemoryBucket) sweepLocked(now time.Time) {
	if now.Sub(m.lastSweep) < sweepEvery {
		return
	}
	m.lastSweep = now
	for key, state := range m.buckets {
		if now.After(state.expires) {
			delete(m.buckets, key)
		}
	}
}
