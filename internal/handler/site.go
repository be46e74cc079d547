package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/chatcat/chatcat/internal/auth"
	"github.com/chatcat/chatcat/internal/handler/dto"
	"github.com/chatcat/chatcat/internal/middleware"
	"github.com/chatcat/chatcat/internal/service"
)

// Sites turns websites into chat contexts and lists a user's keys.
type Sites interface {
	Process(ctx context.Context, userID, rawURL string) (*service.ProcessResult, error)
	ListKeys(ctx context.Context, userID string) ([]string, error)
}

// SiteHandler handles website processing for logged-in users.
type SiteHandler struct {
	sites        Sites
	logger       *slog.Logger
	allowPrivate bool
}

// NewSiteHandler creates a new SiteHandler. allowPrivate permits URLs that
// point at loopback or private addresses.
func NewSiteHandler(sites Sites, logger *slog.Logger, allowPrivate bool) *SiteHandler {
	return &SiteHandler{sites: sites, logger: logger, allowPrivate: allowPrivate}
}

// ProcessURL extracts a website and issues an API key for it.
// POST /process_url
func (h *SiteHandler) ProcessURL(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	if userID == "" {
		writeError(w, http.StatusUnauthorized, "UNAUTHENTICATED", "User not logged in")
		return
	}

	var req dto.ProcessURLRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.URL != "" {
		if err := middleware.ValidateSourceURL(req.URL, h.allowPrivate); err != nil {
			writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
			return
		}
	}

	result, err := h.sites.Process(r.Context(), userID, req.URL)
	if err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ProcessURLResponse{
		Message:         "Processing complete",
		APIKey:          result.APIKey,
		IntegrationCode: result.IntegrationCode,
	})
}

// ListAPIKeys returns the caller's keys in issue order.
// GET /user/api_keys
func (h *SiteHandler) ListAPIKeys(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	if userID == "" {
		writeError(w, http.StatusUnauthorized, "UNAUTHENTICATED", "User not logged in")
		return
	}

	keys, err := h.sites.ListKeys(r.Context(), userID)
	if err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.APIKeysResponse{APIKeys: keys})
}
