package metrics

import "time"

// NoopRecorder implements Recorder with no-op methods.
type NoopRecorder struct{}

// NewNoop returns a Recorder that discards all metrics.
func NewNoop() Recorder {
	return &NoopRecorder{}
}

// ObserveExtraction is a no-op.
func (n *NoopRecorder) ObserveExtraction(status string, duration time.Duration) {}

// IncContextStored is a no-op.
func (n *NoopRecorder) IncContextStored() {}

// IncContextLookup is a no-op.
func (n *NoopRecorder) IncContextLookup(result string) {}

// ObserveCompletion is a no-op.
func (n *NoopRecorder) ObserveCompletion(status string, duration time.Duration) {}

// IncRateLimited is a no-op.
func (n *NoopRecorder) IncRateLimited(bucket string) {}

// IncAccountEvent is a no-op.
func (n *NoopRecorder) IncAccountEvent(event string) {}
