package api

import (
	"net/http"

	"github.com/profilemesh/gateway/internal/monitor"
	"github.com/profilemesh/gateway/internal/server"
)

// Health answers GET /healthz with the live health summary. The summary is
// computed from live counters, so this stays cheap under load.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	summary := h.recorder.GetHealthSummary()

	status := http.StatusOK
	if summary.Status == monitor.HealthUnhealthy {
		status = http.StatusServiceUnavailable
	}
	server.WriteJSON(w, status, summary)
}

// HourlyMetrics answers GET /admin/metrics/hourly.
func (h *Handlers) HourlyMetrics(w http.ResponseWriter, r *http.Request) {
	metrics := h.recorder.GetHourlyPerformance()
	server.WriteJSON(w, http.StatusOK, map[string]any{"metrics": metrics, "count": len(metrics)})
}

// DailyMetrics answers GET /admin/metrics/daily.
func (h *Handlers) DailyMetrics(w http.ResponseWriter, r *http.Request) {
	metrics := h.recorder.GetDailyAnalytics()
	server.WriteJSON(w, http.StatusOK, map[string]any{"metrics": metrics, "count": len(metrics)})
}
