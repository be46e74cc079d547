package metrics

import (
	"sync"
	"sync/atomic"
	"time"
)

// Snapshot captures current in-memory counters.
type Snapshot struct {
	Extractions       map[string]uint64
	ExtractionTotalNs int64
	ContextsStored    uint64
	ContextLookups    map[string]uint64
	Completions       map[string]uint64
	CompletionTotalNs int64
	RateLimited       map[string]uint64
	AccountEvents     map[string]uint64
}

// InMemoryRecorder stores metrics in memory for tests and the JSON metrics view.
type InMemoryRecorder struct {
	contextsStored    uint64
	extractionTotalNs int64
	completionTotalNs int64

	mu             sync.Mutex
	extractions    map[string]uint64
	contextLookups map[string]uint64
	completions    map[string]uint64
	rateLimited    map[string]uint64
	accountEvents  map[string]uint64
}

// NewInMemory returns a Recorder that stores counters in memory.
func NewInMemory() *InMemoryRecorder {
	return &InMemoryRecorder{
		extractions:    make(map[string]uint64),
		contextLookups: make(map[string]uint64),
		completions:    make(map[string]uint64),
		rateLimited:    make(map[string]uint64),
		accountEvents:  make(map[string]uint64),
	}
}

// Snapshot returns a copy of the counters.
func (m *InMemoryRecorder) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	return Snapshot{
		Extractions:       copyCounts(m.extractions),
		ExtractionTotalNs: atomic.LoadInt64(&m.extractionTotalNs),
		ContextsStored:    atomic.LoadUint64(&m.contextsStored),
		ContextLookups:    copyCounts(m.contextLookups),
		Completions:       copyCounts(m.completions),
		CompletionTotalNs: atomic.LoadInt64(&m.completionTotalNs),
		RateLimited:       copyCounts(m.rateLimited),
		AccountEvents:     copyCounts(m.accountEvents),
	}
}

// ObserveExtraction records an extraction outcome and its duration.
func (m *InMemoryRecorder) ObserveExtraction(status string, duration time.Duration) {
	atomic.AddInt64(&m.extractionTotalNs, duration.Nanoseconds())
	m.inc(m.extractions, status)
}

// IncContextStored increments the stored context counter.
func (m *InMemoryRecorder) IncContextStored() {
	atomic.AddUint64(&m.contextsStored, 1)
}

// IncContextLookup increments the lookup counter for result.
func (m *InMemoryRecorder) IncContextLookup(result string) {
	m.inc(m.contextLookups, result)
}

// ObserveCompletion records a completion outcome and its duration.
func (m *InMemoryRecorder) ObserveCompletion(status string, duration time.Duration) {
	atomic.AddInt64(&m.completionTotalNs, duration.Nanoseconds())
	m.inc(m.completions, status)
}

// IncRateLimited increments the rejection counter for bucket.
func (m *InMemoryRecorder) IncRateLimited(bucket string) {
	m.inc(m.rateLimited, bucket)
}

// IncAccountEvent increments the account event counter.
func (m *InMemoryRecorder) IncAccountEvent(event string) {
	m.inc(m.accountEvents, event)
}

func (m *InMemoryRecorder) inc(counts map[string]uint64, label string) {
	m.mu.Lock()
	counts[label]++
	m.mu.Unlock()
}

func copyCounts(src map[string]uint64) map[string]uint64 {
	dst := make(map[string]uint64, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
