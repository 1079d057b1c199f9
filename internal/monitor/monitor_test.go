package monitor

import (
	"strings"
	"sync"
	"testing"
	"time"
)

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

func defaultThresholds() HealthThresholds {
	return HealthThresholds{ErrorRate: 0.05, LatencyP95MS: 1000}
}

func TestRequestIDFormat(t *testing.T) {
	now := time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)
	id := NewRequestID(now)

	if !strings.HasPrefix(id, "req_1788") {
		t.Errorf("id %q missing req_<epochms> prefix", id)
	}
	parts := strings.Split(id, "_")
	if len(parts) != 3 {
		t.Fatalf("id %q should have three segments", id)
	}
	if len(parts[2]) != 8 {
		t.Errorf("random suffix %q should be 8 chars", parts[2])
	}

	if NewRequestID(now) == id {
		t.Error("two ids for the same instant should differ")
	}
}

func TestEndRequestRecordsEntryAndCounters(t *testing.T) {
	clock := newFakeClock()
	r := New(defaultThresholds(), WithClock(clock.Now))
	defer r.Close()

	h := r.StartRequest("search_profiles", "GET")
	clock.Advance(120 * time.Millisecond)
	entry := r.EndRequest(h, Outcome{
		Status: 200, IP: "1.2.3.4", UserAgent: "agent/1", RequestSize: 10, ResponseSize: 90,
	})

	if entry.DurationMS != 120 {
		t.Errorf("DurationMS = %v, want 120", entry.DurationMS)
	}
	if entry.RequestID != h.RequestID {
		t.Error("entry should carry the handle's request id")
	}
	if r.RawEntryCount() != 1 {
		t.Errorf("RawEntryCount = %d, want 1", r.RawEntryCount())
	}

	s := r.GetHealthSummary()
	if s.TotalRequests != 1 || s.TotalErrors != 0 {
		t.Errorf("summary totals = %d/%d", s.TotalRequests, s.TotalErrors)
	}
}

// Property: p50 <= p95 <= p99 <= max for any non-empty duration set.
func TestPercentileMonotonicity(t *testing.T) {
	sets := [][]float64{
		{5},
		{1, 2},
		{9, 1, 5, 3, 7},
		{100, 100, 100},
		{0.5, 900, 3, 42, 7, 7, 7, 1000, 2},
	}

	for _, durations := range sets {
		p50 := Percentile(durations, 0.50)
		p95 := Percentile(durations, 0.95)
		p99 := Percentile(durations, 0.99)

		max := durations[0]
		for _, d := range durations {
			if d > max {
				max = d
			}
		}

		if p50 > p95 || p95 > p99 || p99 > max {
			t.Errorf("set %v: p50=%v p95=%v p99=%v max=%v violates monotonicity",
				durations, p50, p95, p99, max)
		}
	}
}

func TestPercentileIndexing(t *testing.T) {
	durations := []float64{10, 20, 30, 40, 50, 60, 70, 80, 90, 100}

	// floor(0.5*10) = 5 -> sixth element.
	if got := Percentile(durations, 0.50); got != 60 {
		t.Errorf("p50 = %v, want 60", got)
	}
	// floor(0.99*10) = 9 -> last element.
	if got := Percentile(durations, 0.99); got != 100 {
		t.Errorf("p99 = %v, want 100", got)
	}
	if got := Percentile(nil, 0.95); got != 0 {
		t.Errorf("empty set percentile = %v, want 0", got)
	}
}

func TestRedact(t *testing.T) {
	payload := map[string]any{
		"name":  "Jane",
		"email": "jane@example.com",
		"auth": map[string]any{
			"password":   "hunter2",
			"augToken":   "abc",
			"session_id": "keepme",
		},
		"profiles": []any{
			map[string]any{"contact_email": "x@y.z", "bio": "hello"},
		},
		"count": 3,
	}

	got := Redact(payload)

	if got["email"] != redactedPlaceholder {
		t.Error("email not redacted")
	}
	auth := got["auth"].(map[string]any)
	if auth["password"] != redactedPlaceholder || auth["augToken"] != redactedPlaceholder {
		t.Error("nested sensitive keys not redacted")
	}
	if auth["session_id"] != "keepme" {
		t.Error("non-sensitive nested value altered")
	}
	inner := got["profiles"].([]any)[0].(map[string]any)
	if inner["contact_email"] != redactedPlaceholder {
		t.Error("sensitive key inside array not redacted")
	}
	if inner["bio"] != "hello" || got["name"] != "Jane" || got["count"] != 3 {
		t.Error("non-sensitive values altered")
	}

	// Input untouched.
	if payload["email"] != "jane@example.com" {
		t.Error("Redact mutated its input")
	}
}

// Property: redact(redact(x)) == redact(x).
func TestRedactIdempotent(t *testing.T) {
	payload := map[string]any{
		"password": "x",
		"nested":   map[string]any{"api_key": "k", "ok": "v"},
		"list":     []any{map[string]any{"token": "t"}},
	}

	once := Redact(payload)
	twice := Redact(once)

	if !mapsEqual(once, twice) {
		t.Errorf("redact not idempotent: %v vs %v", once, twice)
	}
}

func mapsEqual(a, b map[string]any) bool {
	if len(a) != len(b) {
		return false
	}
	for k, av := range a {
		bv, ok := b[k]
		if !ok {
			return false
		}
		switch avt := av.(type) {
		case map[string]any:
			bvt, ok := bv.(map[string]any)
			if !ok || !mapsEqual(avt, bvt) {
				return false
			}
		case []any:
			bvt, ok := bv.([]any)
			if !ok || len(avt) != len(bvt) {
				return false
			}
			for i := range avt {
				am, aok := avt[i].(map[string]any)
				bm, bok := bvt[i].(map[string]any)
				if aok && bok {
					if !mapsEqual(am, bm) {
						return false
					}
				} else if avt[i] != bvt[i] {
					return false
				}
			}
		default:
			if av != bv {
				return false
			}
		}
	}
	return true
}

func TestHealthClassification(t *testing.T) {
	tests := []struct {
		name      string
		errorRate float64
		p95       float64
		want      HealthStatus
	}{
		{"all under thresholds", 0.01, 200, HealthHealthy},
		{"error rate exceeded", 0.07, 200, HealthDegraded},
		{"latency exceeded", 0.01, 1200, HealthDegraded},
		{"error rate doubled", 0.11, 200, HealthUnhealthy},
		{"latency doubled", 0.01, 2100, HealthUnhealthy},
		{"both exceeded one doubled", 0.07, 2100, HealthUnhealthy},
	}

	r := New(defaultThresholds())
	defer r.Close()

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := r.classify(tt.errorRate, tt.p95); got != tt.want {
				t.Errorf("classify(%v, %v) = %q, want %q", tt.errorRate, tt.p95, got, tt.want)
			}
		})
	}
}

func TestHealthSummaryTopEndpoints(t *testing.T) {
	clock := newFakeClock()
	r := New(defaultThresholds(), WithClock(clock.Now))
	defer r.Close()

	record := func(endpoint string, status int, dur time.Duration) {
		h := r.StartRequest(endpoint, "GET")
		clock.Advance(dur)
		r.EndRequest(h, Outcome{Status: status})
	}

	record("fast_ok", 200, 10*time.Millisecond)
	record("slow_ok", 200, 400*time.Millisecond)
	record("failing", 500, 50*time.Millisecond)
	record("failing", 500, 50*time.Millisecond)
	record("failing", 200, 50*time.Millisecond)

	s := r.GetHealthSummary()
	if s.TotalRequests != 5 || s.TotalErrors != 2 {
		t.Fatalf("totals = %d/%d, want 5/2", s.TotalRequests, s.TotalErrors)
	}
	if len(s.TopErrorEndpoints) == 0 || s.TopErrorEndpoints[0].Endpoint != "failing" {
		t.Errorf("TopErrorEndpoints = %+v", s.TopErrorEndpoints)
	}
	if len(s.TopSlowEndpoints) == 0 || s.TopSlowEndpoints[0].Endpoint != "slow_ok" {
		t.Errorf("TopSlowEndpoints = %+v", s.TopSlowEndpoints)
	}
}

func TestRollupFoldsAndPurges(t *testing.T) {
	clock := newFakeClock()
	r := New(defaultThresholds(), WithClock(clock.Now),
		WithRetention(Retention{Raw: time.Hour, Hourly: 24 * time.Hour, Daily: 7 * 24 * time.Hour}))
	defer r.Close()

	// Two old entries on one endpoint, then advance past the raw horizon.
	for i := 0; i < 2; i++ {
		h := r.StartRequest("search_profiles", "GET")
		clock.Advance(100 * time.Millisecond)
		r.EndRequest(h, Outcome{Status: 200})
	}
	h := r.StartRequest("search_profiles", "GET")
	clock.Advance(100 * time.Millisecond)
	r.EndRequest(h, Outcome{Status: 500})

	clock.Advance(2 * time.Hour)
	h = r.StartRequest("search_profiles", "GET")
	clock.Advance(50 * time.Millisecond)
	r.EndRequest(h, Outcome{Status: 200})

	r.Rollup()

	if got := r.RawEntryCount(); got != 1 {
		t.Errorf("RawEntryCount after rollup = %d, want 1 (fresh entry kept)", got)
	}

	hourly := r.GetHourlyPerformance()
	if len(hourly) != 2 {
		t.Fatalf("hourly windows = %d, want 2 (folded old hour + live hour)", len(hourly))
	}
	old := hourly[0]
	if old.TotalRequests != 3 || old.FailedRequests != 1 {
		t.Errorf("folded aggregate = %+v", old)
	}
	if old.P50ResponseMS <= 0 || old.P95ResponseMS < old.P50ResponseMS {
		t.Errorf("aggregate percentiles implausible: %+v", old)
	}
}

func TestRollupDailyFolding(t *testing.T) {
	clock := newFakeClock()
	r := New(defaultThresholds(), WithClock(clock.Now),
		WithRetention(Retention{Raw: time.Hour, Hourly: 12 * time.Hour, Daily: 7 * 24 * time.Hour}))
	defer r.Close()

	h := r.StartRequest("mcp_profiles", "GET")
	clock.Advance(80 * time.Millisecond)
	r.EndRequest(h, Outcome{Status: 200})

	// First rollup folds raw into hourly; a day later the hourly window is
	// past its horizon and folds into daily.
	clock.Advance(2 * time.Hour)
	r.Rollup()
	clock.Advance(24 * time.Hour)
	r.Rollup()

	daily := r.GetDailyAnalytics()
	if len(daily) != 1 {
		t.Fatalf("daily aggregates = %d, want 1", len(daily))
	}
	if daily[0].Endpoint != "mcp_profiles" || daily[0].TotalRequests != 1 {
		t.Errorf("daily aggregate = %+v", daily[0])
	}

	if got := len(r.GetHourlyPerformance()); got != 0 {
		t.Errorf("hourly aggregates after daily folding = %d, want 0", got)
	}
}
