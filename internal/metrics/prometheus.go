package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "chatcat"

// PrometheusRecorder exports metrics through a Prometheus registry.
type PrometheusRecorder struct {
	extractionDuration *prometheus.HistogramVec
	contextsStored     prometheus.Counter
	contextLookups     *prometheus.CounterVec
	completionDuration *prometheus.HistogramVec
	rateLimited        *prometheus.CounterVec
	accountEvents      *prometheus.CounterVec
}

// NewPrometheus registers the application metrics on reg.
func NewPrometheus(reg prometheus.Registerer) *PrometheusRecorder {
	f := promauto.With(reg)
	return &PrometheusRecorder{
		extractionDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "extraction_duration_seconds",
			Help:      "Duration of page fetch and paragraph extraction by status.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 15},
		}, []string{"status"}), // status: success, failed
		contextsStored: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "contexts_stored_total",
			Help:      "Total number of website contexts stored.",
		}),
		contextLookups: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "chat",
			Name:      "context_lookups_total",
			Help:      "Total number of context lookups by result.",
		}, []string{"result"}), // result: hit, miss
		completionDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "chat",
			Name:      "completion_duration_seconds",
			Help:      "Duration of upstream completion calls by status.",
			Buckets:   []float64{0.25, 0.5, 1, 2, 4, 8, 15, 30, 60},
		}, []string{"status"}),
		rateLimited: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "rate_limited_total",
			Help:      "Total number of requests rejected by the rate limiter by bucket.",
		}, []string{"bucket"}),
		accountEvents: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "accounts",
			Name:      "events_total",
			Help:      "Total number of account events by type.",
		}, []string{"event"}),
	}
}

// ObserveExtraction records an extraction outcome and its duration.
func (p *PrometheusRecorder) ObserveExtraction(status string, duration time.Duration) {
	p.extractionDuration.WithLabelValues(status).Observe(duration.Seconds())
}

// IncContextStored increments the stored context counter.
func (p *PrometheusRecorder) IncContextStored() {
	p.contextsStored.Inc()
}

// IncContextLookup increments the lookup counter for result.
func (p *PrometheusRecorder) IncContextLookup(result string) {
	p.contextLookups.WithLabelValues(result).Inc()
}

// ObserveCompletion records a completion outcome and its duration.
func (p *PrometheusRecorder) ObserveCompletion(status string, duration time.Duration) {
	p.completionDuration.WithLabelValues(status).Observe(duration.Seconds())
}

// IncRateLimited increments the rejection counter for bucket.
func (p *PrometheusRecorder) IncRateLimited(bucket string) {
	p.rateLimited.WithLabelValues(bucket).Inc()
}

// IncAccountEvent increments the account event counter.
func (p *PrometheusRecorder) IncAccountEvent(event string) {
	p.accountEvents.WithLabelValues(event).Inc()
}

// Multi fans every event out to each recorder.
type Multi []Recorder

// ObserveExtraction implements Recorder.
func (m Multi) ObserveExtraction(status string, duration time.Duration) {
	for _, r := range m {
		r.ObserveExtraction(status, duration)
	}
}

// IncContextStored implements Recorder.
func (m Multi) IncContextStored() {
	for _, r := range m {
		r.IncContextStored()
	}
}

// IncContextLookup implements Recorder.
func (m Multi) IncContextLookup(result string) {
	for _, r := range m {
		r.IncContextLookup(result)
	}
}

// ObserveCompletion implements Recorder.
func (m Multi) ObserveCompletion(status string, duration time.Duration) {
	for _, r := range m {
		r.ObserveCompletion(status, duration)
	}
}

// IncRateLimited implements Recorder.
func (m Multi) IncRateLimited(bucket string) {
	for _, r := range m {
		r.IncRateLimited(bucket)
	}
}

// IncAccountEvent implements Recorder.
func (m Multi) IncAccountEvent(event string) {
	for _, r := range m {
		r.IncAccountEvent(event)
	}
}
