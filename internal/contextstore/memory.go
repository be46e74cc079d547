package contextstore

import (
	"container/list"
	"context"
	"sync"
	"time"
)

// MemoryBackend keeps contexts in process memory.
//
// Entries are evicted least-recently-used once MaxEntries is reached, and
// expire after TTL when TTL is positive.
type MemoryBackend struct {
	mu         sync.Mutex
	entries    map[string]*list.Element
	order      *list.List
	maxEntries int
	ttl        time.Duration
	now        func() time.Time
}

type memoryEntry struct {
	key       string
	text      string
	expiresAt time.Time
}

// NewMemoryBackend creates a MemoryBackend. maxEntries <= 0 means unbounded;
// ttl <= 0 means entries never expire.
func NewMemoryBackend(maxEntries int, ttl time.Duration) *MemoryBackend {
	return &MemoryBackend{
		entries:    make(map[string]*list.Element),
		order:      list.New(),
		maxEntries: maxEntries,
		ttl:        ttl,
		now:        time.Now,
	}
}

// Save stores text under key.
func (m *MemoryBackend) Save(_ context.Context, key, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry := &memoryEntry{key: key, text: text}
	if m.ttl > 0 {
		entry.expiresAt = m.now().Add(m.ttl)
	}

	if el, ok := m.entries[key]; ok {
		el.Value = entry
		m.order.MoveToFront(el)
		return nil
	}

	m.entries[key] = m.order.PushFront(entry)

	for m.maxEntries > 0 && m.order.Len() > m.maxEntries {
		m.removeElement(m.order.Back())
	}

	return nil
}

// Load returns the text stored under key, or ErrNotFound.
func (m *MemoryBackend) Load(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	el, ok := m.entries[key]
	if !ok {
		return "", ErrNotFound
	}

	entry := el.Value.(*memoryEntry)
	if !entry.expiresAt.IsZero() && !m.now().Before(entry.expiresAt) {
		m.removeElement(el)
		return "", ErrNotFound
	}

	m.order.MoveToFront(el)
	return entry.text, nil
}

// Len returns the number of stored entries, including expired ones not yet evicted.
func (m *MemoryBackend) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.order.Len()
}

func (m *MemoryBackend) removeElement(el *list.Element) {
	if el == nil {
		return
	}
	m.order.Remove(el)
	delete(m.entries, el.Value.(*memoryEntry).key)
}
