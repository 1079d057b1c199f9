// Package monitor times requests, records outcomes, and rolls raw request
// logs up into hourly and daily aggregates so memory stays bounded under
// sustained load. All hot-path operations (StartRequest, EndRequest,
// HealthSummary) avoid scanning the raw log.
package monitor

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/maypok86/otter"
	"github.com/puzpuzpuz/xsync/v4"
)

// recentWindow is the per-endpoint ring size used for live p95 estimates.
const recentWindow = 256

// RequestLogEntry is one completed request. Append-only; purged after the
// rollup job folds it into an hourly aggregate.
type RequestLogEntry struct {
	RequestID    string
	Endpoint     string
	Method       string
	Status       int
	IP           string
	UserAgent    string
	RequestSize  int64
	ResponseSize int64
	DurationMS   float64
	ErrorCode    string
	ErrorMessage string
	Timestamp    time.Time
}

// Handle ties StartRequest to its EndRequest.
type Handle struct {
	RequestID string
	Endpoint  string
	Method    string
	start     time.Time
}

// Outcome carries the completion data for EndRequest.
type Outcome struct {
	Status       int
	IP           string
	UserAgent    string
	RequestSize  int64
	ResponseSize int64
	ErrorCode    string
	ErrorMessage string
}

// endpointStats are the live counters for one endpoint. Counter fields are
// atomic; the recent-duration ring has its own small mutex so HealthSummary
// never scans the raw log.
type endpointStats struct {
	requests   atomic.Int64
	errors     atomic.Int64
	totalDurMS atomic.Int64

	mu     sync.Mutex
	recent [recentWindow]float64
	pos    int
	filled int
}

// HealthThresholds configure the healthy/degraded/unhealthy classification.
// An exceeded threshold degrades the status; a doubled one marks the
// service unhealthy.
type HealthThresholds struct {
	ErrorRate    float64
	LatencyP95MS float64
}

// Retention bounds the memory held by raw entries and aggregates.
type Retention struct {
	Raw    time.Duration
	Hourly time.Duration
	Daily  time.Duration
}

// Recorder is the monitoring service. Constructed, not global; the rollup
// sweep is an explicit method so schedules and tests drive it directly.
type Recorder struct {
	thresholds HealthThresholds
	retention  Retention

	live *xsync.Map[string, *endpointStats]

	mu      sync.Mutex
	entries []RequestLogEntry

	rollupMu sync.Mutex
	hourly   otter.Cache[string, AggregatedMetric]
	daily    otter.Cache[string, AggregatedMetric]

	now func() time.Time
}

// Option configures a Recorder.
type Option func(*Recorder)

// WithClock overrides the recorder's time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(r *Recorder) { r.now = now }
}

// WithRetention overrides the retention horizons.
func WithRetention(ret Retention) Option {
	return func(r *Recorder) { r.retention = ret }
}

// New creates a Recorder with the given health thresholds.
func New(thresholds HealthThresholds, opts ...Option) *Recorder {
	hourly, err := otter.MustBuilder[string, AggregatedMetric](4096).
		Cost(func(_ string, _ AggregatedMetric) uint32 { return 1 }).
		Build()
	if err != nil {
		panic("monitor: failed to create hourly aggregate cache: " + err.Error())
	}
	daily, err := otter.MustBuilder[string, AggregatedMetric](1024).
		Cost(func(_ string, _ AggregatedMetric) uint32 { return 1 }).
		Build()
	if err != nil {
		panic("monitor: failed to create daily aggregate cache: " + err.Error())
	}

	r := &Recorder{
		thresholds: thresholds,
		retention: Retention{
			Raw:    3 * time.Hour,
			Hourly: 48 * time.Hour,
			Daily:  14 * 24 * time.Hour,
		},
		live:   xsync.NewMap[string, *endpointStats](),
		hourly: hourly,
		daily:  daily,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// NewRequestID generates an id of the form req_<epochms>_<random>.
func NewRequestID(now time.Time) string {
	suffix := strings.ReplaceAll(uuid.New().String(), "-", "")[:8]
	return fmt.Sprintf("req_%d_%s", now.UnixMilli(), suffix)
}

// StartRequest begins timing a request.
func (r *Recorder) StartRequest(endpoint, method string) Handle {
	now := r.now()
	return Handle{
		RequestID: NewRequestID(now),
		Endpoint:  endpoint,
		Method:    method,
		start:     now,
	}
}

// EndRequest computes the duration, appends the log entry, and updates the
// endpoint's live counters. It must be reachable on every exit path,
// including timeouts and panics; the orchestrator calls it from a defer.
func (r *Recorder) EndRequest(h Handle, out Outcome) RequestLogEntry {
	now := r.now()
	durMS := float64(now.Sub(h.start).Microseconds()) / 1000.0

	entry := RequestLogEntry{
		RequestID:    h.RequestID,
		Endpoint:     h.Endpoint,
		Method:       h.Method,
		Status:       out.Status,
		IP:           out.IP,
		UserAgent:    out.UserAgent,
		RequestSize:  out.RequestSize,
		ResponseSize: out.ResponseSize,
		DurationMS:   durMS,
		ErrorCode:    out.ErrorCode,
		ErrorMessage: out.ErrorMessage,
		Timestamp:    now,
	}

	r.mu.Lock()
	r.entries = append(r.entries, entry)
	r.mu.Unlock()

	stats, _ := r.live.LoadOrCompute(h.Endpoint, func() (*endpointStats, bool) {
		return &endpointStats{}, false
	})
	stats.record(entry)

	return entry
}

func (s *endpointStats) record(entry RequestLogEntry) {
	s.requests.Add(1)
	if entry.Status >= 400 {
		s.errors.Add(1)
	}
	s.totalDurMS.Add(int64(entry.DurationMS))

	s.mu.Lock()
	s.recent[s.pos] = entry.DurationMS
	s.pos = (s.pos + 1) % recentWindow
	if s.filled < recentWindow {
		s.filled++
	}
	s.mu.Unlock()
}

// recentDurations copies the live ring for percentile estimation.
func (s *endpointStats) recentDurations() []float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]float64, s.filled)
	copy(out, s.recent[:s.filled])
	return out
}

// HealthStatus classifies overall service health.
type HealthStatus string

const (
	HealthHealthy   HealthStatus = "healthy"
	HealthDegraded  HealthStatus = "degraded"
	HealthUnhealthy HealthStatus = "unhealthy"
)

// EndpointLoad summarizes one endpoint inside a health summary.
type EndpointLoad struct {
	Endpoint string  `json:"endpoint"`
	Requests int64   `json:"requests"`
	Errors   int64   `json:"errors,omitempty"`
	AvgMS    float64 `json:"avg_ms"`
}

// HealthSummary is the live service health view. Computed from the live
// per-endpoint counters in O(endpoints); never scans the raw log.
type HealthSummary struct {
	Status            HealthStatus   `json:"status"`
	TotalRequests     int64          `json:"total_requests"`
	TotalErrors       int64          `json:"total_errors"`
	OverallErrorRate  float64        `json:"overall_error_rate"`
	AverageResponseMS float64        `json:"average_response_ms"`
	P95ResponseMS     float64        `json:"p95_response_ms"`
	TopErrorEndpoints []EndpointLoad `json:"top_error_endpoints"`
	TopSlowEndpoints  []EndpointLoad `json:"top_slow_endpoints"`
}

// GetHealthSummary derives the current health from live counters.
func (r *Recorder) GetHealthSummary() HealthSummary {
	var total, errors, totalDur int64
	var loads []EndpointLoad
	var allRecent []float64

	r.live.Range(func(endpoint string, s *endpointStats) bool {
		req := s.requests.Load()
		errs := s.errors.Load()
		dur := s.totalDurMS.Load()

		total += req
		errors += errs
		totalDur += dur

		avg := 0.0
		if req > 0 {
			avg = float64(dur) / float64(req)
		}
		loads = append(loads, EndpointLoad{Endpoint: endpoint, Requests: req, Errors: errs, AvgMS: avg})
		allRecent = append(allRecent, s.recentDurations()...)
		return true
	})

	summary := HealthSummary{Status: HealthHealthy}
	summary.TotalRequests = total
	summary.TotalErrors = errors
	if total > 0 {
		summary.OverallErrorRate = float64(errors) / float64(total)
		summary.AverageResponseMS = float64(totalDur) / float64(total)
	}
	summary.P95ResponseMS = Percentile(allRecent, 0.95)

	byErrors := make([]EndpointLoad, len(loads))
	copy(byErrors, loads)
	sort.Slice(byErrors, func(i, j int) bool { return byErrors[i].Errors > byErrors[j].Errors })
	bySlow := make([]EndpointLoad, len(loads))
	copy(bySlow, loads)
	sort.Slice(bySlow, func(i, j int) bool { return bySlow[i].AvgMS > bySlow[j].AvgMS })

	summary.TopErrorEndpoints = topN(byErrors, 5, func(l EndpointLoad) bool { return l.Errors > 0 })
	summary.TopSlowEndpoints = topN(bySlow, 5, func(l EndpointLoad) bool { return l.Requests > 0 })

	summary.Status = r.classify(summary.OverallErrorRate, summary.P95ResponseMS)
	return summary
}

func (r *Recorder) classify(errorRate, p95 float64) HealthStatus {
	errExceeded := r.thresholds.ErrorRate > 0 && errorRate >= r.thresholds.ErrorRate
	latExceeded := r.thresholds.LatencyP95MS > 0 && p95 >= r.thresholds.LatencyP95MS
	if !errExceeded && !latExceeded {
		return HealthHealthy
	}

	errDoubled := r.thresholds.ErrorRate > 0 && errorRate >= 2*r.thresholds.ErrorRate
	latDoubled := r.thresholds.LatencyP95MS > 0 && p95 >= 2*r.thresholds.LatencyP95MS
	if errDoubled || latDoubled {
		return HealthUnhealthy
	}
	return HealthDegraded
}

func topN(loads []EndpointLoad, n int, keep func(EndpointLoad) bool) []EndpointLoad {
	out := make([]EndpointLoad, 0, n)
	for _, l := range loads {
		if !keep(l) {
			continue
		}
		out = append(out, l)
		if len(out) == n {
			break
		}
	}
	return out
}

// RawEntryCount returns the number of unrolled raw log entries.
func (r *Recorder) RawEntryCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Close releases the aggregate caches.
func (r *Recorder) Close() {
	r.hourly.Close()
	r.daily.Close()
}
