package middleware

import (
	"context"
	"sync"
	"time"
)

const (
	memoryIdleTTL       = 5 * time.Minute
	memorySweepInterval = time.Minute
)

type memoryBucket struct {
	hits     []time.Time
	lastSeen time.Time
}

// MemoryRateLimiter keeps windows in process. It backs RedisRateLimiter while
// Redis is unreachable and serves tests.
type MemoryRateLimiter struct {
	now func() time.Time

	mu        sync.Mutex
	buckets   map[string]*memoryBucket
	lastSweep time.Time
}

func NewMemoryRateLimiter() *MemoryRateLimiter {
	return &MemoryRateLimiter{
		now:       time.Now,
		buckets:   make(map[string]*memoryBucket),
		lastSweep: time.Now(),
	}
}

func (l *MemoryRateLimiter) Allow(_ context.Context, bucket string, limit int) Quota {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.sweep(now)

	b, ok := l.buckets[bucket]
	if !ok {
		b = &memoryBucket{}
		l.buckets[bucket] = b
	}
	b.lastSeen = now

	cutoff := now.Add(-rateWindow)
	kept := b.hits[:0]
	for _, at := range b.hits {
		if at.After(cutoff) {
			kept = append(kept, at)
		}
	}
	b.hits = kept

	resetAt := now.Add(rateWindow)
	if len(b.hits) > 0 {
		resetAt = b.hits[0].Add(rateWindow)
	}

	if len(b.hits) >= limit {
		return Quota{Allowed: false, Remaining: 0, ResetAt: resetAt}
	}
	b.hits = append(b.hits, now)
	return Quota{Allowed: true, Remaining: limit - len(b.hits), ResetAt: resetAt}
}

// sweep drops idle buckets. Callers hold mu.
func (l *MemoryRateLimiter) sweep(now time.Time) {
	if now.Sub(l.lastSweep) < memorySweepInterval {
		return
	}
	l.lastSweep = now
	for key, b := range l.buckets {
		if now.Sub(b.lastSeen) > memoryIdleTTL {
			delete(l.buckets, key)
		}
	}
}
