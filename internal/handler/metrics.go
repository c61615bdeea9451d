package handler

import (
	"fmt"
	"net/http"
	"slices"

	"github.com/warden/warden/internal/metrics"
)

// MetricsHandler exposes in-memory metrics.
type MetricsHandler struct {
	snapshotter metrics.Snapshotter
}

// NewMetricsHandler creates a new MetricsHandler.
func NewMetricsHandler(snapshotter metrics.Snapshotter) *MetricsHandler {
	return &MetricsHandler{snapshotter: snapshotter}
}

// Metrics returns metrics in Prometheus exposition format.
func (h *MetricsHandler) Metrics(w http.ResponseWriter, r *http.Request) {
	if h.snapshotter == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}

	snap := h.snapshotter.Snapshot()

	w.Header().Set("Content-Type", "text/plain; version=0.0.4")

	writeLabeled(w, "warden_registrations_total", "outcome", snap.Registrations)
	writeLabeled(w, "warden_logins_total", "outcome", snap.Logins)
	writeLabeled(w, "warden_session_resolutions_total", "outcome", snap.SessionResolutions)
	writeLabeled(w, "warden_profile_updates_total", "outcome", snap.ProfileUpdates)
	writeLabeled(w, "warden_rate_limited_total", "route", snap.RateLimited)

	writeMetric(w, "warden_password_hash_duration_seconds_count %d\n", snap.HashDurationCount)
	writeMetric(w, "warden_password_hash_duration_seconds_sum %.6f\n", float64(snap.HashDurationTotalNs)/1e9)
}

// writeLabeled emits one line per label value in sorted order.
func writeLabeled(w http.ResponseWriter, name, label string, values map[string]uint64) {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		writeMetric(w, "%s{%s=%q} %d\n", name, label, k, values[k])
	}
}

func writeMetric(w http.ResponseWriter, format string, args ...any) {
	_, _ = fmt.Fprintf(w, format, args...)
}
