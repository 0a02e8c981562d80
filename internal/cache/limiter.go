package cache

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter decides whether another attempt under key is allowed right now.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// MemoryLimiter keeps one token bucket per key in process memory.
// maxAttempts tokens refill evenly over window.
type MemoryLimiter struct {
	mu       sync.Mutex
	limit    rate.Limit
	burst    int
	buckets  map[string]*bucket
	idleTTL  time.Duration
	lastScan time.Time
	now      func() time.Time
}

type bucket struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

func NewMemoryLimiter(maxAttempts int, window time.Duration) *MemoryLimiter {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	return &MemoryLimiter{
		limit:   rate.Every(window / time.Duration(maxAttempts)),
		burst:   maxAttempts,
		buckets: map[string]*bucket{},
		idleTTL: 2 * window,
		now:     time.Now,
	}
}

func (m *MemoryLimiter) Allow(_ context.Context, key string) (bool, error) {
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	b := m.buckets[key]
	if b == nil {
		b = &bucket{lim: rate.NewLimiter(m.limit, m.burst)}
		m.buckets[key] = b
	}
	b.lastSeen = now
	allowed := b.lim.AllowN(now, 1)

	if now.Sub(m.lastScan) > m.idleTTL {
		m.evictIdle(now)
		m.lastScan = now
	}
	return allowed, nil
}

// Len is the number of tracked keys.
func (m *MemoryLimiter) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.buckets)
}

func (m *MemoryLimiter) evictIdle(now time.Time) {
	for k, b := range m.buckets {
		if now.Sub(b.lastSeen) > m.idleTTL {
			delete(m.buckets, k)
		}
	}
}
