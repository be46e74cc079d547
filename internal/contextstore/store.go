// Package contextstore binds scraped page text to generated context keys.
//
// The Store only exposes Put and Get. Text lives in a pluggable Backend: the
// in-memory backend is the default, and a Redis backend can be selected for
// deployments that want contexts to survive restarts.
package contextstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/chatcat/chatcat/internal/auth"
)

// NoContext is the sentinel returned by Get for unknown keys.
const NoContext = "No context available for this API key."

// ErrNotFound is returned by a Backend when the key is absent.
var ErrNotFound = errors.New("context not found")

// Backend persists context text. Implementations must be safe for concurrent use.
type Backend interface {
	Save(ctx context.Context, key, text string) error
	Load(ctx context.Context, key string) (string, error)
}

// KeyFunc generates a fresh context key.
type KeyFunc func() (string, error)

// Store is the process-wide context store.
type Store struct {
	backend Backend
	newKey  KeyFunc
	logger  *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithKeyFunc overrides key generation.
func WithKeyFunc(fn KeyFunc) Option {
	return func(s *Store) { s.newKey = fn }
}

// New creates a Store over backend.
func New(backend Backend, logger *slog.Logger, opts ...Option) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Store{
		backend: backend,
		newKey:  auth.GenerateContextKey,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Put stores text under a freshly generated key and returns the key.
func (s *Store) Put(ctx context.Context, text string) (string, error) {
	key, err := s.newKey()
	if err != nil {
		return "", fmt.Errorf("generate key: %w", err)
	}

	if err := s.backend.Save(ctx, key, text); err != nil {
		return "", fmt.Errorf("save context: %w", err)
	}

	return key, nil
}

// Get returns the text stored under key, or NoContext when there is none.
// Backend failures are logged and also resolve to NoContext.
func (s *Store) Get(ctx context.Context, key string) string {
	text, err := s.backend.Load(ctx, key)
	if err == nil {
		return text
	}

	if !errors.Is(err, ErrNotFound) {
		s.logger.Error("context lookup failed",
			slog.String("error", err.Error()),
			slog.String("key_prefix", keyPrefix(key)),
		)
	}

	return NoContext
}

// keyPrefix returns a loggable prefix of a context key.
func keyPrefix(key string) string {
	const n = len(auth.ContextKeyPrefix) + 6
	if len(key) <= n {
		return key
	}
	return key[:n]
}
