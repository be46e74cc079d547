package handler

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/chatcat/chatcat/internal/metrics"
)

// MetricsHandler exposes metrics for scraping and a JSON summary for humans.
type MetricsHandler struct {
	exposition  http.Handler
	snapshotter metrics.Snapshotter
}

// NewMetricsHandler creates a new MetricsHandler. Either argument may be nil,
// in which case the matching endpoint answers 503.
func NewMetricsHandler(gatherer prometheus.Gatherer, snapshotter metrics.Snapshotter) *MetricsHandler {
	h := &MetricsHandler{snapshotter: snapshotter}
	if gatherer != nil {
		h.exposition = promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
	}
	return h
}

// Metrics serves the Prometheus exposition format.
// GET /metrics
func (h *MetricsHandler) Metrics(w http.ResponseWriter, r *http.Request) {
	if h.exposition == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	h.exposition.ServeHTTP(w, r)
}

// MetricsSummary is the JSON view of the in-process counters.
type MetricsSummary struct {
	Extractions       map[string]uint64 `json:"extractions"`
	ExtractionSeconds float64           `json:"extraction_seconds_total"`
	ContextsStored    uint64            `json:"contexts_stored"`
	ContextLookups    map[string]uint64 `json:"context_lookups"`
	Completions       map[string]uint64 `json:"completions"`
	CompletionSeconds float64           `json:"completion_seconds_total"`
	RateLimited       map[string]uint64 `json:"rate_limited"`
	AccountEvents     map[string]uint64 `json:"account_events"`
}

// Summary returns the in-process counters as JSON.
// GET /metrics/summary
func (h *MetricsHandler) Summary(w http.ResponseWriter, r *http.Request) {
	if h.snapshotter == nil {
		writeError(w, http.StatusServiceUnavailable, "UNAVAILABLE", "metrics not configured")
		return
	}

	snap := h.snapshotter.Snapshot()
	writeJSON(w, http.StatusOK, MetricsSummary{
		Extractions:       snap.Extractions,
		ExtractionSeconds: float64(snap.ExtractionTotalNs) / 1e9,
		ContextsStored:    snap.ContextsStored,
		ContextLookups:    snap.ContextLookups,
		Completions:       snap.Completions,
		CompletionSeconds: float64(snap.CompletionTotalNs) / 1e9,
		RateLimited:       snap.RateLimited,
		AccountEvents:     snap.AccountEvents,
	})
}
