// Package metrics provides lightweight hooks for instrumentation.
package metrics

import "time"

// Recorder captures metric events for the application.
// Implementations can expose these to Prometheus or keep them in memory.
type Recorder interface {
	// Ingestion metrics
	ObserveExtraction(status string, duration time.Duration) // status: "success" or "failed"
	IncContextStored()

	// Chat metrics
	IncContextLookup(result string)                          // result: "hit" or "miss"
	ObserveCompletion(status string, duration time.Duration) // status: "success" or an error kind

	// Edge metrics
	IncRateLimited(bucket string)
	IncAccountEvent(event string) // event: "registered", "login", "login_failed"
}

// Snapshotter exposes a snapshot of current metrics.
type Snapshotter interface {
	Snapshot() Snapshot
}
