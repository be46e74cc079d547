package ratelimit

import (
	"context"
	"sync"
	"time"
)

// MemoryCounter keeps fixed-window counters in process memory.
type MemoryCounter struct {
	mu      sync.Mutex
	windows map[windowKey]*window
	now     func() time.Time

	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

type windowKey struct {
	bucket   string
	identity string
	window   time.Duration
}

type window struct {
	count   int64
	resetAt time.Time
}

// NewMemoryCounter creates an empty MemoryCounter.
func NewMemoryCounter() *MemoryCounter {
	return &MemoryCounter{
		windows: make(map[windowKey]*window),
		now:     time.Now,
	}
}

// HitWindow increments the counter for the current window, starting a new
// window when the previous one has rolled over.
func (m *MemoryCounter) HitWindow(_ context.Context, bucket, identity string, d time.Duration) (int64, time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	key := windowKey{bucket: bucket, identity: identity, window: d}

	w, ok := m.windows[key]
	if !ok || !now.Before(w.resetAt) {
		w = &window{resetAt: now.Add(d)}
		m.windows[key] = w
	}
	w.count++

	return w.count, w.resetAt, nil
}

// Sweep drops windows that have rolled over and returns how many were removed.
func (m *MemoryCounter) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	removed := 0
	for k, w := range m.windows {
		if !now.Before(w.resetAt) {
			delete(m.windows, k)
			removed++
		}
	}
	return removed
}

// StartSweeper runs Sweep every interval until Stop is called.
func (m *MemoryCounter) StartSweeper(interval time.Duration) {
	m.stop = make(chan struct{})
	m.done = make(chan struct{})

	go func() {
		defer close(m.done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				m.Sweep()
			case <-m.stop:
				return
			}
		}
	}()
}

// Stop halts the sweeper started by StartSweeper. Later calls only wait.
func (m *MemoryCounter) Stop(ctx context.Context) error {
	if m.stop == nil {
		return nil
	}
	m.stopOnce.Do(func() { close(m.stop) })

	select {
	case <-m.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
