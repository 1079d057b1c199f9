package ratelimit

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// fakeClock is a mutable time source for limiter tests.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

var searchTier = Tier{Name: "search", MaxRequests: 5, Window: time.Minute}

// N requests inside one window are admitted, the N+1th is rejected, and a
// fresh window admits again with count 1.
func TestWindowBound(t *testing.T) {
	clock := newFakeClock()
	l := New(WithClock(clock.Now))

	for i := 0; i < searchTier.MaxRequests; i++ {
		d := l.Check("ip:1.2.3.4", searchTier)
		if !d.Allowed {
			t.Fatalf("request %d rejected, want admitted", i+1)
		}
		if d.Total != i+1 {
			t.Errorf("request %d: Total = %d", i+1, d.Total)
		}
		if d.Remaining != searchTier.MaxRequests-i-1 {
			t.Errorf("request %d: Remaining = %d", i+1, d.Remaining)
		}
	}

	d := l.Check("ip:1.2.3.4", searchTier)
	if d.Allowed {
		t.Fatal("6th request in window admitted, want rejected")
	}
	if d.Remaining != 0 {
		t.Errorf("rejected decision Remaining = %d, want 0", d.Remaining)
	}
	if ra := d.RetryAfter(clock.Now()); ra <= 0 {
		t.Errorf("RetryAfter = %d, want > 0", ra)
	}

	clock.Advance(time.Minute)
	d = l.Check("ip:1.2.3.4", searchTier)
	if !d.Allowed || d.Total != 1 {
		t.Errorf("after window elapse: Allowed=%v Total=%d, want true/1", d.Allowed, d.Total)
	}
}

// The window boundary belongs to the new window.
func TestBoundaryStartsFreshWindow(t *testing.T) {
	clock := newFakeClock()
	l := New(WithClock(clock.Now))

	first := l.Check("k", searchTier)
	clock.Advance(searchTier.Window) // exactly at the boundary

	d := l.Check("k", searchTier)
	if !d.Allowed || d.Total != 1 {
		t.Errorf("boundary request: Allowed=%v Total=%d, want true/1", d.Allowed, d.Total)
	}
	if !d.ResetAt.After(first.ResetAt) {
		t.Error("fresh window should push ResetAt forward")
	}
}

func TestKeysAndTiersIsolated(t *testing.T) {
	clock := newFakeClock()
	l := New(WithClock(clock.Now))
	mutate := Tier{Name: "mutate", MaxRequests: 2, Window: time.Minute}

	for i := 0; i < searchTier.MaxRequests; i++ {
		l.Check("a", searchTier)
	}
	if d := l.Check("a", searchTier); d.Allowed {
		t.Error("key a should be exhausted on search tier")
	}
	if d := l.Check("b", searchTier); !d.Allowed {
		t.Error("key b must be unaffected by key a")
	}
	if d := l.Check("a", mutate); !d.Allowed {
		t.Error("tier mutate must be unaffected by tier search for the same key")
	}
}

// Property: M concurrent requests against a tier admitting N resolve to
// exactly N admits, never more.
func TestConcurrentAdmitsNeverExceedLimit(t *testing.T) {
	l := New()
	tier := Tier{Name: "burst", MaxRequests: 25, Window: time.Minute}

	const workers = 100
	var admitted atomic.Int64
	var wg sync.WaitGroup
	start := make(chan struct{})

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			if l.Check("shared", tier).Allowed {
				admitted.Add(1)
			}
		}()
	}
	close(start)
	wg.Wait()

	if got := admitted.Load(); got != int64(tier.MaxRequests) {
		t.Errorf("admitted %d of %d concurrent requests, want exactly %d",
			got, workers, tier.MaxRequests)
	}
}

func TestSweepEvictsOnlyIdleBuckets(t *testing.T) {
	clock := newFakeClock()
	l := New(WithClock(clock.Now), WithSweepIdleWindows(4))

	l.Check("old", searchTier)
	clock.Advance(5 * time.Minute)
	l.Check("fresh", searchTier)

	if evicted := l.Sweep(searchTier.Window); evicted != 1 {
		t.Errorf("Sweep evicted %d, want 1", evicted)
	}
	if l.Size() != 1 {
		t.Errorf("Size = %d after sweep, want 1", l.Size())
	}

	// The evicted key starts over cleanly.
	if d := l.Check("old", searchTier); !d.Allowed || d.Total != 1 {
		t.Errorf("re-created bucket: Allowed=%v Total=%d", d.Allowed, d.Total)
	}
}

// Sweep running concurrently with checks must not corrupt admission counts
// for buckets still inside their window.
func TestSweepConcurrentWithChecks(t *testing.T) {
	l := New(WithSweepIdleWindows(1))
	tier := Tier{Name: "t", MaxRequests: 1000, Window: time.Minute}

	stop := make(chan struct{})
	var sweeper sync.WaitGroup
	sweeper.Add(1)
	go func() {
		defer sweeper.Done()
		for {
			select {
			case <-stop:
				return
			default:
				l.Sweep(tier.Window)
			}
		}
	}()

	var admitted atomic.Int64
	var workers sync.WaitGroup
	for i := 0; i < 8; i++ {
		workers.Add(1)
		go func() {
			defer workers.Done()
			for j := 0; j < 50; j++ {
				if l.Check("hot", tier).Allowed {
					admitted.Add(1)
				}
			}
		}()
	}

	workers.Wait()
	close(stop)
	sweeper.Wait()

	if got := admitted.Load(); got != 400 {
		t.Errorf("admitted %d, want 400 (all inside window and under limit)", got)
	}
}

func TestRetryAfterRoundsUp(t *testing.T) {
	now := time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)
	d := Decision{ResetAt: now.Add(1500 * time.Millisecond)}
	if got := d.RetryAfter(now); got != 2 {
		t.Errorf("RetryAfter = %d, want 2", got)
	}

	d = Decision{ResetAt: now.Add(-time.Second)}
	if got := d.RetryAfter(now); got != 1 {
		t.Errorf("RetryAfter for past reset = %d, want 1", got)
	}
}
