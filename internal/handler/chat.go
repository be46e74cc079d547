package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/chatcat/chatcat/internal/handler/dto"
	"github.com/chatcat/chatcat/internal/middleware"
)

// Responder answers a visitor message against a stored context.
type Responder interface {
	Respond(ctx context.Context, apiKey, message string) (string, error)
}

// DesignRenderer renders the embeddable chat widget for a key.
type DesignRenderer interface {
	Design(apiKey string) (string, error)
}

// ChatHandler serves the public widget endpoints.
type ChatHandler struct {
	responder Responder
	designs   DesignRenderer
	logger    *slog.Logger
}

// NewChatHandler creates a new ChatHandler.
func NewChatHandler(responder Responder, designs DesignRenderer, logger *slog.Logger) *ChatHandler {
	return &ChatHandler{responder: responder, designs: designs, logger: logger}
}

// Chat answers a visitor message.
// POST /chat
func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	var req dto.ChatRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := middleware.ValidateChatInput(req.Input); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}
	if err := middleware.ValidateAPIKey(req.APIKey); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}

	reply, err := h.responder.Respond(r.Context(), req.APIKey, req.Input)
	if err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ChatResponse{Response: reply})
}

// Design returns the chat widget markup for the key in the query string.
// GET /chatbot-design?api_key=...
func (h *ChatHandler) Design(w http.ResponseWriter, r *http.Request) {
	apiKey := r.URL.Query().Get("api_key")
	if apiKey == "" {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "API key is required")
		return
	}
	if err := middleware.ValidateAPIKey(apiKey); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}

	markup, err := h.designs.Design(apiKey)
	if err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(markup))
}
