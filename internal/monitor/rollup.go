package monitor

import (
	"fmt"
	"sort"
	"time"
)

// AggregatedMetric is a rollup of many RequestLogEntry values for one
// endpoint and time bucket.
type AggregatedMetric struct {
	Endpoint       string    `json:"endpoint"`
	WindowStart    time.Time `json:"window_start"`
	TotalRequests  int64     `json:"total_requests"`
	FailedRequests int64     `json:"failed_requests"`
	P50ResponseMS  float64   `json:"p50_response_ms"`
	P95ResponseMS  float64   `json:"p95_response_ms"`
	P99ResponseMS  float64   `json:"p99_response_ms"`
	// Throughput is requests per minute over the window.
	Throughput float64 `json:"throughput"`
}

// Percentile returns the q-quantile of durations using sorted indexing at
// floor(q*n), 0-indexed and clamped to n-1. Empty input yields 0.
func Percentile(durations []float64, q float64) float64 {
	if len(durations) == 0 {
		return 0
	}
	sorted := make([]float64, len(durations))
	copy(sorted, durations)
	sort.Float64s(sorted)

	idx := int(q * float64(len(sorted)))
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	if idx < 0 {
		idx = 0
	}
	return sorted[idx]
}

func hourKey(endpoint string, t time.Time) string {
	return fmt.Sprintf("%s|%s", endpoint, t.UTC().Truncate(time.Hour).Format("2006-01-02T15"))
}

func dayKey(endpoint string, t time.Time) string {
	return fmt.Sprintf("%s|%s", endpoint, t.UTC().Truncate(24*time.Hour).Format("2006-01-02"))
}

// aggregate computes one metric from a group of entries sharing an endpoint
// and window.
func aggregate(endpoint string, windowStart time.Time, windowLen time.Duration, entries []RequestLogEntry) AggregatedMetric {
	durations := make([]float64, 0, len(entries))
	var failed int64
	for _, e := range entries {
		durations = append(durations, e.DurationMS)
		if e.Status >= 400 {
			failed++
		}
	}

	minutes := windowLen.Minutes()
	if minutes <= 0 {
		minutes = 1
	}

	return AggregatedMetric{
		Endpoint:       endpoint,
		WindowStart:    windowStart,
		TotalRequests:  int64(len(entries)),
		FailedRequests: failed,
		P50ResponseMS:  Percentile(durations, 0.50),
		P95ResponseMS:  Percentile(durations, 0.95),
		P99ResponseMS:  Percentile(durations, 0.99),
		Throughput:     float64(len(entries)) / minutes,
	}
}

// merge folds b into a. Percentiles of merged windows are count-weighted
// averages: exact recomputation would require retaining raw durations,
// which the retention policy exists to avoid.
func merge(a, b AggregatedMetric) AggregatedMetric {
	total := a.TotalRequests + b.TotalRequests
	if total == 0 {
		return a
	}
	wa := float64(a.TotalRequests) / float64(total)
	wb := float64(b.TotalRequests) / float64(total)

	if b.WindowStart.Before(a.WindowStart) {
		a.WindowStart = b.WindowStart
	}
	a.FailedRequests += b.FailedRequests
	a.P50ResponseMS = a.P50ResponseMS*wa + b.P50ResponseMS*wb
	a.P95ResponseMS = a.P95ResponseMS*wa + b.P95ResponseMS*wb
	a.P99ResponseMS = a.P99ResponseMS*wa + b.P99ResponseMS*wb
	a.Throughput += b.Throughput
	a.TotalRequests = total
	return a
}

// groupEntries buckets entries by endpoint and truncated timestamp.
func groupEntries(entries []RequestLogEntry, trunc time.Duration) map[string][]RequestLogEntry {
	groups := make(map[string][]RequestLogEntry)
	for _, e := range entries {
		key := fmt.Sprintf("%s|%d", e.Endpoint, e.Timestamp.UTC().Truncate(trunc).Unix())
		groups[key] = append(groups[key], e)
	}
	return groups
}

// Rollup folds raw entries older than the raw horizon into hourly
// aggregates, hourly aggregates older than the hourly horizon into daily
// ones, and drops daily aggregates past their horizon. Runs on the cron
// schedule; also callable directly from tests and shutdown.
func (r *Recorder) Rollup() {
	r.rollupMu.Lock()
	defer r.rollupMu.Unlock()

	now := r.now()
	rawCutoff := now.Add(-r.retention.Raw)

	// Detach expired raw entries under the entry lock, fold them outside it.
	r.mu.Lock()
	var expired, kept []RequestLogEntry
	for _, e := range r.entries {
		if e.Timestamp.Before(rawCutoff) {
			expired = append(expired, e)
		} else {
			kept = append(kept, e)
		}
	}
	r.entries = kept
	r.mu.Unlock()

	for _, group := range groupEntries(expired, time.Hour) {
		windowStart := group[0].Timestamp.UTC().Truncate(time.Hour)
		endpoint := group[0].Endpoint
		metric := aggregate(endpoint, windowStart, time.Hour, group)

		key := hourKey(endpoint, windowStart)
		if existing, ok := r.hourly.Get(key); ok {
			metric = merge(existing, metric)
		}
		r.hourly.Set(key, metric)
	}

	hourlyCutoff := now.Add(-r.retention.Hourly)
	var fold []AggregatedMetric
	var foldKeys []string
	r.hourly.Range(func(key string, m AggregatedMetric) bool {
		if m.WindowStart.Before(hourlyCutoff) {
			fold = append(fold, m)
			foldKeys = append(foldKeys, key)
		}
		return true
	})
	for i, m := range fold {
		key := dayKey(m.Endpoint, m.WindowStart)
		day := m
		day.WindowStart = m.WindowStart.UTC().Truncate(24 * time.Hour)
		if existing, ok := r.daily.Get(key); ok {
			day = merge(existing, day)
		}
		r.daily.Set(key, day)
		r.hourly.Delete(foldKeys[i])
	}

	dailyCutoff := now.Add(-r.retention.Daily)
	var dropKeys []string
	r.daily.Range(func(key string, m AggregatedMetric) bool {
		if m.WindowStart.Before(dailyCutoff) {
			dropKeys = append(dropKeys, key)
		}
		return true
	})
	for _, key := range dropKeys {
		r.daily.Delete(key)
	}
}

// GetHourlyPerformance returns hourly aggregates: folded history plus
// groups computed live from the not-yet-rolled raw log.
func (r *Recorder) GetHourlyPerformance() []AggregatedMetric {
	merged := make(map[string]AggregatedMetric)

	r.hourly.Range(func(key string, m AggregatedMetric) bool {
		merged[key] = m
		return true
	})

	r.mu.Lock()
	raw := make([]RequestLogEntry, len(r.entries))
	copy(raw, r.entries)
	r.mu.Unlock()

	for _, group := range groupEntries(raw, time.Hour) {
		windowStart := group[0].Timestamp.UTC().Truncate(time.Hour)
		metric := aggregate(group[0].Endpoint, windowStart, time.Hour, group)
		key := hourKey(group[0].Endpoint, windowStart)
		if existing, ok := merged[key]; ok {
			metric = merge(existing, metric)
		}
		merged[key] = metric
	}

	return sortedMetrics(merged)
}

// GetDailyAnalytics returns daily aggregates, including hourly history and
// raw entries folded up to day resolution on the fly.
func (r *Recorder) GetDailyAnalytics() []AggregatedMetric {
	merged := make(map[string]AggregatedMetric)

	r.daily.Range(func(key string, m AggregatedMetric) bool {
		merged[key] = m
		return true
	})

	fold := func(endpoint string, windowStart time.Time, m AggregatedMetric) {
		key := dayKey(endpoint, windowStart)
		m.WindowStart = windowStart.UTC().Truncate(24 * time.Hour)
		if existing, ok := merged[key]; ok {
			m = merge(existing, m)
		}
		merged[key] = m
	}

	r.hourly.Range(func(_ string, m AggregatedMetric) bool {
		fold(m.Endpoint, m.WindowStart, m)
		return true
	})

	r.mu.Lock()
	raw := make([]RequestLogEntry, len(r.entries))
	copy(raw, r.entries)
	r.mu.Unlock()

	for _, group := range groupEntries(raw, 24*time.Hour) {
		windowStart := group[0].Timestamp.UTC().Truncate(24 * time.Hour)
		fold(group[0].Endpoint, windowStart, aggregate(group[0].Endpoint, windowStart, 24*time.Hour, group))
	}

	return sortedMetrics(merged)
}

func sortedMetrics(m map[string]AggregatedMetric) []AggregatedMetric {
	out := make([]AggregatedMetric, 0, len(m))
	for _, v := range m {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].WindowStart.Equal(out[j].WindowStart) {
			return out[i].Endpoint < out[j].Endpoint
		}
		return out[i].WindowStart.Before(out[j].WindowStart)
	})
	return out
}
