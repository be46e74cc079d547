package contextstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/chatcat/chatcat/internal/cache"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestStore_PutGet(t *testing.T) {
	t.Parallel()

	store := New(NewMemoryBackend(0, 0), discardLogger())
	ctx := context.Background()

	texts := []string{"Hello. World.", "a", "multi\nline text with <p> markup left in"}
	for _, text := range texts {
		key, err := store.Put(ctx, text)
		if err != nil {
			t.Fatalf("Put(%q) failed: %v", text, err)
		}
		if got := store.Get(ctx, key); got != text {
			t.Errorf("Get(Put(%q)) = %q", text, got)
		}
	}
}

func TestStore_PutNeverRepeatsKeys(t *testing.T) {
	t.Parallel()

	store := New(NewMemoryBackend(0, 0), discardLogger())
	ctx := context.Background()

	seen := make(map[string]bool)
	for i := 0; i < 500; i++ {
		key, err := store.Put(ctx, fmt.Sprintf("text %d", i))
		if err != nil {
			t.Fatalf("Put failed: %v", err)
		}
		if seen[key] {
			t.Fatalf("Put returned duplicate key %s", key)
		}
		seen[key] = true
	}
}

func TestStore_GetUnknownKeyReturnsSentinel(t *testing.T) {
	t.Parallel()

	store := New(NewMemoryBackend(0, 0), discardLogger())

	if got := store.Get(context.Background(), "user_00000000000000000000000000000000"); got != NoContext {
		t.Errorf("Get(unknown) = %q, want sentinel", got)
	}
	if got := store.Get(context.Background(), ""); got != NoContext {
		t.Errorf("Get(\"\") = %q, want sentinel", got)
	}
}

type failingBackend struct{}

func (failingBackend) Save(context.Context, string, string) error {
	return errors.New("backend down")
}

func (failingBackend) Load(context.Context, string) (string, error) {
	return "", errors.New("backend down")
}

func TestStore_BackendFailures(t *testing.T) {
	t.Parallel()

	store := New(failingBackend{}, discardLogger())
	ctx := context.Background()

	if _, err := store.Put(ctx, "text"); err == nil {
		t.Error("expected Put to fail when the backend fails")
	}
	if got := store.Get(ctx, "user_x"); got != NoContext {
		t.Errorf("Get on failing backend = %q, want sentinel", got)
	}
}

func TestStore_KeyFuncError(t *testing.T) {
	t.Parallel()

	backend := NewMemoryBackend(0, 0)
	store := New(backend, discardLogger(), WithKeyFunc(func() (string, error) {
		return "", errors.New("entropy exhausted")
	}))

	if _, err := store.Put(context.Background(), "text"); err == nil {
		t.Fatal("expected Put to fail")
	}
	if backend.Len() != 0 {
		t.Errorf("backend should be untouched, has %d entries", backend.Len())
	}
}

func TestStore_ConcurrentAccess(t *testing.T) {
	t.Parallel()

	store := New(NewMemoryBackend(0, 0), discardLogger())
	ctx := context.Background()

	const workers = 32
	const perWorker = 50

	var wg sync.WaitGroup
	errs := make(chan error, workers)

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				text := fmt.Sprintf("worker %d item %d", w, i)
				key, err := store.Put(ctx, text)
				if err != nil {
					errs <- err
					return
				}
				if got := store.Get(ctx, key); got != text {
					errs <- fmt.Errorf("read-your-writes violated: got %q want %q", got, text)
					return
				}
			}
		}(w)
	}

	wg.Wait()
	close(errs)

	for err := range errs {
		t.Error(err)
	}
}

func TestMemoryBackend_EvictsLeastRecentlyUsed(t *testing.T) {
	t.Parallel()

	m := NewMemoryBackend(2, 0)
	ctx := context.Background()

	_ = m.Save(ctx, "a", "A")
	_ = m.Save(ctx, "b", "B")

	// Touch a so b becomes the eviction candidate.
	if _, err := m.Load(ctx, "a"); err != nil {
		t.Fatalf("Load(a) failed: %v", err)
	}

	_ = m.Save(ctx, "c", "C")

	if _, err := m.Load(ctx, "b"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected b to be evicted, got %v", err)
	}
	for _, key := range []string{"a", "c"} {
		if _, err := m.Load(ctx, key); err != nil {
			t.Errorf("expected %s to survive, got %v", key, err)
		}
	}
	if m.Len() != 2 {
		t.Errorf("Len = %d, want 2", m.Len())
	}
}

func TestMemoryBackend_TTL(t *testing.T) {
	t.Parallel()

	m := NewMemoryBackend(0, time.Hour)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }
	ctx := context.Background()

	_ = m.Save(ctx, "k", "text")

	now = now.Add(59 * time.Minute)
	if _, err := m.Load(ctx, "k"); err != nil {
		t.Fatalf("entry expired early: %v", err)
	}

	now = now.Add(2 * time.Minute)
	if _, err := m.Load(ctx, "k"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after TTL, got %v", err)
	}
	if m.Len() != 0 {
		t.Errorf("expired entry should be dropped, Len = %d", m.Len())
	}
}

func TestRedisBackend(t *testing.T) {
	t.Parallel()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	store := New(NewRedisBackend(cache.NewWithClient(client), time.Hour), discardLogger())
	ctx := context.Background()

	key, err := store.Put(ctx, "Hello. World.")
	if err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if got := store.Get(ctx, key); got != "Hello. World." {
		t.Errorf("Get = %q", got)
	}

	mr.FastForward(2 * time.Hour)

	if got := store.Get(ctx, key); got != NoContext {
		t.Errorf("Get after expiry = %q, want sentinel", got)
	}
}
