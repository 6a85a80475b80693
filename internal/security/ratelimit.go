package security

import (
	"errors"
	"sync"
	"time"
)

// ErrRateLimited is returned when a key exceeds its limit.
var ErrRateLimited = errors.New("rate limit exceeded")

// RateLimiter is a sliding-window limiter keyed by caller (the gateway
// uses the client address). A limit of zero or less disables it.
type RateLimiter struct {
	mu      sync.Mutex
	limit   int
	window  time.Duration
	windows map[string][]time.Time
	now     func() time.Time
}

// NewRateLimiter allows limit events per key within window.
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		limit:   limit,
		window:  window,
		windows: make(map[string][]time.Time),
		now:     time.Now,
	}
}

// Allow records one event for key, or returns ErrRateLimited.
func (rl *RateLimiter) Allow(key string) error {
	if rl.limit <= 0 {
		return nil
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	events := evict(rl.windows[key], now.Add(-rl.window))
	if len(events) >= rl.limit {
		rl.windows[key] = events
		return ErrRateLimited
	}
	rl.windows[key] = append(events, now)
	return nil
}

// Prune forgets keys with no event inside the window.
func (rl *RateLimiter) Prune() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := rl.now().Add(-rl.window)
	for key, events := range rl.windows {
		if events = evict(events, cutoff); len(events) == 0 {
			delete(rl.windows, key)
		} else {
			rl.windows[key] = events
		}
	}
}

// Keys returns how many callers are tracked.
func (rl *RateLimiter) Keys() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.windows)
}

// evict drops events before cutoff. Events are in chronological order.
func evict(events []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(events) && events[i].Before(cutoff) {
		i++
	}
	return events[i:]
}
