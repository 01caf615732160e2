package server

import (
	"sync"
	"time"
)

// rateLimiter is a fixed-window in-memory limiter keyed by caller identity.
// It protects the login endpoint against credential stuffing; anything more
// elaborate belongs in front of the service.
type rateLimiter struct {
	mu       sync.Mutex
	limit    int
	window   time.Duration
	buckets  map[string]*rateBucket
	lastScan time.Time
}

type rateBucket struct {
	count   int
	resetAt time.Time
}

func newRateLimiter(limit int, window time.Duration) *rateLimiter {
	return &rateLimiter{
		limit:    limit,
		window:   window,
		buckets:  make(map[string]*rateBucket),
		lastScan: time.Now(),
	}
}

func (r *rateLimiter) Allow(key string) bool {
	now := time.Now()

	r.mu.Lock()
	defer r.mu.Unlock()

	if now.Sub(r.lastScan) > r.window {
		for k, b := range r.buckets {
			if now.After(b.resetAt) {
				delete(r.buckets, k)
			}
		}
		r.lastScan = now
	}

	b, ok := r.buckets[key]
	if !ok || now.After(b.resetAt) {
		r.buckets[key] = &rateBucket{count: 1, resetAt: now.Add(r.window)}
		return true
	}

	if b.count >= r.limit {
		return false
	}
	b.count++
	return true
}
