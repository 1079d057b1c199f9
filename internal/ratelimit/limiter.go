// Package ratelimit implements a fixed-window request limiter keyed by
// (client, tier). State is process-local; multi-instance deployments need a
// shared backend behind the same interface.
package ratelimit

import (
	"sync"
	"time"

	"github.com/puzpuzpuz/xsync/v4"
)

// Tier is a named rate-limit policy.
type Tier struct {
	Name        string
	MaxRequests int
	Window      time.Duration
}

// Decision is the outcome of a single admission check.
type Decision struct {
	Allowed bool
	// Remaining is the number of further requests admissible in the
	// current window, never negative.
	Remaining int
	// ResetAt is the end of the current window.
	ResetAt time.Time
	// Total is the number of hits observed in the current window,
	// including this one.
	Total int
	// Limit echoes the tier's MaxRequests for response headers.
	Limit int
}

// RetryAfter returns the whole seconds a rejected caller should wait,
// rounded up, at least 1.
func (d Decision) RetryAfter(now time.Time) int {
	secs := int((d.ResetAt.Sub(now) + time.Second - 1) / time.Second)
	if secs < 1 {
		secs = 1
	}
	return secs
}

// bucket holds the window state for one (client, tier) pair. Each bucket is
// guarded by its own mutex so concurrent requests for the same key serialize
// against each other only, never globally.
type bucket struct {
	mu          sync.Mutex
	windowStart time.Time
	count       int
}

// Limiter admits or rejects requests per (clientKey, tier). Buckets are
// created lazily and evicted by Sweep once idle.
type Limiter struct {
	buckets *xsync.Map[string, *bucket]
	// sweepIdleWindows is the K in the eviction rule: a bucket whose
	// window ended more than K windows ago is removed.
	sweepIdleWindows int
	now              func() time.Time
}

// Option configures a Limiter.
type Option func(*Limiter)

// WithClock overrides the limiter's time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) { l.now = now }
}

// WithSweepIdleWindows sets how many elapsed windows make a bucket eligible
// for eviction. Values below 1 are clamped to 1.
func WithSweepIdleWindows(k int) Option {
	return func(l *Limiter) {
		if k < 1 {
			k = 1
		}
		l.sweepIdleWindows = k
	}
}

// New creates a Limiter.
func New(opts ...Option) *Limiter {
	l := &Limiter{
		buckets:          xsync.NewMap[string, *bucket](),
		sweepIdleWindows: 4,
		now:              time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Check records a hit for clientKey under tier and decides admission.
// A request arriving exactly at the window boundary starts a fresh window.
func (l *Limiter) Check(clientKey string, tier Tier) Decision {
	key := clientKey + "|" + tier.Name
	now := l.now()

	b, _ := l.buckets.LoadOrCompute(key, func() (*bucket, bool) {
		return &bucket{}, false
	})

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.windowStart.IsZero() || !now.Before(b.windowStart.Add(tier.Window)) {
		b.windowStart = now
		b.count = 0
	}
	b.count++

	remaining := tier.MaxRequests - b.count
	if remaining < 0 {
		remaining = 0
	}

	return Decision{
		Allowed:   b.count <= tier.MaxRequests,
		Remaining: remaining,
		ResetAt:   b.windowStart.Add(tier.Window),
		Total:     b.count,
		Limit:     tier.MaxRequests,
	}
}

// Sweep removes buckets idle for more than sweepIdleWindows windows and
// returns how many were evicted. Only buckets whose window has already
// elapsed are touched, so a racing Check either recomputes a fresh bucket
// or resets the detached one; no in-window count is ever lost.
func (l *Limiter) Sweep(window time.Duration) int {
	now := l.now()
	idle := window * time.Duration(l.sweepIdleWindows)

	evicted := 0
	l.buckets.Range(func(key string, b *bucket) bool {
		b.mu.Lock()
		stale := !b.windowStart.IsZero() && now.Sub(b.windowStart) > idle
		b.mu.Unlock()
		if stale {
			l.buckets.Delete(key)
			evicted++
		}
		return true
	})
	return evicted
}

// Size returns the current number of live buckets.
func (l *Limiter) Size() int {
	return l.buckets.Size()
}
