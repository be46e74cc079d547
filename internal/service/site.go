package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/chatcat/chatcat/internal/apperr"
	"github.com/chatcat/chatcat/internal/extractor"
	"github.com/chatcat/chatcat/internal/metrics"
	"github.com/chatcat/chatcat/internal/model"
	"github.com/chatcat/chatcat/internal/repository"
)

// Site errors.
var (
	ErrMissingURL = errors.New("no URL provided")
)

// Extractor turns a URL into page text.
type Extractor interface {
	Extract(ctx context.Context, url string) (string, error)
}

// ContextWriter stores page text and returns its key.
type ContextWriter interface {
	Put(ctx context.Context, text string) (string, error)
}

// KeyRegistry records which keys belong to which user.
type KeyRegistry interface {
	AppendAPIKey(ctx context.Context, key *model.APIKey) error
	ListAPIKeys(ctx context.Context, userID string) ([]*model.APIKey, error)
}

// ScriptRenderer produces the embeddable snippet for a key.
type ScriptRenderer interface {
	IntegrationScript(apiKey string) (string, error)
}

// ProcessResult is the outcome of processing a website.
type ProcessResult struct {
	APIKey          string
	IntegrationCode string
}

// SiteService turns websites into chat contexts owned by users.
type SiteService struct {
	extractor Extractor
	contexts  ContextWriter
	keys      KeyRegistry
	scripts   ScriptRenderer
	logger    *slog.Logger
	metrics   metrics.Recorder
}

// NewSiteService creates a new SiteService.
func NewSiteService(ex Extractor, contexts ContextWriter, keys KeyRegistry, scripts ScriptRenderer, logger *slog.Logger, recorder metrics.Recorder) *SiteService {
	if logger == nil {
		logger = slog.Default()
	}
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &SiteService{
		extractor: ex,
		contexts:  contexts,
		keys:      keys,
		scripts:   scripts,
		logger:    logger,
		metrics:   recorder,
	}
}

// Process extracts rawURL, stores the text under a new key, appends the key to
// userID's list and renders the integration snippet.
//
// Steps run in that order, so a failed extraction leaves nothing behind. A
// failed append after a successful store leaves an orphaned context that no
// caller ever learns the key of.
func (s *SiteService) Process(ctx context.Context, userID, rawURL string) (*ProcessResult, error) {
	const op = "site.process"

	if rawURL == "" {
		return nil, &apperr.Error{Kind: apperr.BadRequest, Op: op, Msg: "No URL provided", Err: ErrMissingURL}
	}

	start := time.Now()
	text, err := s.extractor.Extract(ctx, rawURL)
	if err != nil {
		s.metrics.ObserveExtraction("failed", time.Since(start))
		s.logger.Error("extraction failed",
			slog.String("url", rawURL),
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		if errors.Is(err, extractor.ErrInvalidURL) {
			return nil, &apperr.Error{Kind: apperr.BadRequest, Op: op, Msg: "Invalid URL", Err: err}
		}
		return nil, &apperr.Error{Kind: apperr.InternalError, Op: op, Msg: "Failed to extract content from URL", Err: err}
	}
	s.metrics.ObserveExtraction("success", time.Since(start))

	key, err := s.contexts.Put(ctx, text)
	if err != nil {
		s.logger.Error("context store failed",
			slog.String("url", rawURL),
			slog.String("error", err.Error()),
		)
		return nil, &apperr.Error{Kind: apperr.InternalError, Op: op, Msg: "Failed to store content", Err: err}
	}
	s.metrics.IncContextStored()

	err = s.keys.AppendAPIKey(ctx, &model.APIKey{
		Key:       key,
		UserID:    userID,
		SourceURL: rawURL,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		s.logger.Error("api key append failed",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, &apperr.Error{Kind: apperr.Unauthenticated, Op: op, Msg: "User not logged in", Err: err}
		}
		return nil, &apperr.Error{Kind: apperr.InternalError, Op: op, Msg: "Failed to save API key", Err: err}
	}

	script, err := s.scripts.IntegrationScript(key)
	if err != nil {
		return nil, apperr.Wrap(apperr.InternalError, op, err)
	}

	s.logger.Info("website processed",
		slog.String("user_id", userID),
		slog.String("url", rawURL),
		slog.Int("chars", len(text)),
	)

	return &ProcessResult{APIKey: key, IntegrationCode: script}, nil
}

// ListKeys returns userID's keys in issue order.
func (s *SiteService) ListKeys(ctx context.Context, userID string) ([]string, error) {
	keys, err := s.keys.ListAPIKeys(ctx, userID)
	if err != nil {
		return nil, apperr.Wrap(apperr.InternalError, "site.list_keys", err)
	}
	return model.Keys(keys), nil
}
