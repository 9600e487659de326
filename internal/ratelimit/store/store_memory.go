package store

import (
	"context"
	"sync"
	"time"

	"yeirin/internal/ratelimit/models"
)

// InMemory is a per-process sliding window log. Limits are not shared
// between instances; use the Redis store for that.
type InMemory struct {
	mu      sync.Mutex
	buckets map[string]*slidingWindow
	now     func() time.Time
}

type slidingWindow struct {
	timestamps []time.Time
}

type Option func(*InMemory)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *InMemory) { s.now = now }
}

func NewInMemory(opts ...Option) *InMemory {
	s := &InMemory{buckets: make(map[string]*slidingWindow), now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Allow records one request against key if the window has room.
func (s *InMemory) Allow(_ context.Context, key string, policy models.Policy) (*models.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	sw := s.buckets[key]
	if sw == nil {
		sw = &slidingWindow{}
		s.buckets[key] = sw
	}
	sw.cleanup(now, policy.Window)

	if len(sw.timestamps) >= policy.Limit {
		resetAt := sw.timestamps[0].Add(policy.Window)
		return &models.Result{
			Allowed:    false,
			Limit:      policy.Limit,
			Remaining:  0,
			ResetAt:    resetAt,
			RetryAfter: retryAfter(resetAt.Sub(now)),
		}, nil
	}
	sw.timestamps = append(sw.timestamps, now)
	return &models.Result{
		Allowed:   true,
		Limit:     policy.Limit,
		Remaining: policy.Limit - len(sw.timestamps),
		ResetAt:   sw.timestamps[0].Add(policy.Window),
	}, nil
}

// Sweep drops buckets with no request inside window. Run periodically so
// one-off clients do not accumulate.
func (s *InMemory) Sweep(window time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	removed := 0
	for key, sw := range s.buckets {
		sw.cleanup(now, window)
		if len(sw.timestamps) == 0 {
			delete(s.buckets, key)
			removed++
		}
	}
	return removed
}

func (sw *slidingWindow) cleanup(now time.Time, window time.Duration) {
	cutoff := now.Add(-window)
	i := 0
	for ; i < len(sw.timestamps); i++ {
		if sw.timestamps[i].After(cutoff) {
			break
		}
	}
	sw.timestamps = sw.timestamps[i:]
}

// retryAfter rounds up to whole seconds, never below one.
func retryAfter(d time.Duration) int {
	secs := int((d + time.Second - 1) / time.Second)
	if secs < 1 {
		return 1
	}
	return secs
}
