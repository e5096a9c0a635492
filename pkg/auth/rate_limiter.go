package auth

import (
	"context"
	"sync"
	"time"
)

// RateLimiter decides whether a request identified by key may proceed
type RateLimiter interface {
	Allow(ctx context.Context, key string) (bool, error)
	// Limit is the number of requests allowed per window, reported to
	// rejected callers
	Limit() int
}

// SlidingWindowLimiter allows at most limit requests per key within any
// windowSize span. Keys idle for a whole window are swept out by Allow at
// most once per window.
type SlidingWindowLimiter struct {
	mu         sync.Mutex
	windows    map[string]*window
	limit      int
	windowSize time.Duration
	lastSweep  time.Time
	now        func() time.Time
}

type window struct {
	requests []time.Time
}

// NewSlidingWindowLimiter creates a new sliding window rate limiter
func NewSlidingWindowLimiter(limit int, windowSize time.Duration) *SlidingWindowLimiter {
	return &SlidingWindowLimiter{
		windows:    make(map[string]*window),
		limit:      limit,
		windowSize: windowSize,
		now:        time.Now,
	}
}

// Allow checks if a request is allowed
func (l *SlidingWindowLimiter) Allow(ctx context.Context, key string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	windowStart := now.Add(-l.windowSize)

	if now.Sub(l.lastSweep) >= l.windowSize {
		l.prune(windowStart)
		l.lastSweep = now
	}

	w, exists := l.windows[key]
	if !exists {
		w = &window{}
		l.windows[key] = w
	}

	kept := w.requests[:0]
	for _, reqTime := range w.requests {
		if reqTime.After(windowStart) {
			kept = append(kept, reqTime)
		}
	}
	w.requests = kept

	if len(w.requests) >= l.limit {
		return false, nil
	}

	w.requests = append(w.requests, now)
	return true, nil
}

// Limit returns the number of requests allowed per window
func (l *SlidingWindowLimiter) Limit() int {
	return l.limit
}

// prune drops keys with no requests after windowStart. Callers hold l.mu.
func (l *SlidingWindowLimiter) prune(windowStart time.Time) {
	for key, w := range l.windows {
		if len(w.requests) == 0 || !w.requests[len(w.requests)-1].After(windowStart) {
			delete(l.windows, key)
		}
	}
}

var _ RateLimiter = (*SlidingWindowLimiter)(nil)
