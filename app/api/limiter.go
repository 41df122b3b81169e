package api

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const limiterIdle = time.Hour

type limiterEntry struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// viewerLimiter keeps one token bucket per viewer so a single noisy client
// cannot use up the interaction budget of everyone else. Buckets idle for
// an hour are dropped.
type viewerLimiter struct {
	rate  rate.Limit
	burst int
	now   func() time.Time

	mu        sync.Mutex
	limiters  map[string]*limiterEntry
	lastPrune time.Time
}

func newViewerLimiter(r float64, burst int) *viewerLimiter {
	return &viewerLimiter{
		rate:     rate.Limit(r),
		burst:    max(burst, 1),
		now:      time.Now,
		limiters: make(map[string]*limiterEntry),
	}
}

func (l *viewerLimiter) Allow(viewerID string) bool {
	l.mu.Lock()
	now := l.now()
	if now.Sub(l.lastPrune) > limiterIdle {
		l.pruneLocked(now)
	}

	entry, ok := l.limiters[viewerID]
	if !ok {
		entry = &limiterEntry{limiter: rate.NewLimiter(l.rate, l.burst)}
		l.limiters[viewerID] = entry
	}
	entry.lastAccess = now
	limiter := entry.limiter
	l.mu.Unlock()

	return limiter.AllowN(now, 1)
}

func (l *viewerLimiter) pruneLocked(now time.Time) {
	threshold := now.Add(-limiterIdle)
	for id, entry := range l.limiters {
		if entry.lastAccess.Before(threshold) {
			delete(l.limiters, id)
		}
	}
	l.lastPrune = now
}

func (l *viewerLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.limiters)
}
