package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/chatcat/chatcat/internal/handler/dto"
	"github.com/chatcat/chatcat/internal/middleware"
	"github.com/chatcat/chatcat/internal/model"
)

// Accounts registers and authenticates users.
type Accounts interface {
	Register(ctx context.Context, email, password string) (*model.User, error)
	Login(ctx context.Context, email, password string) (*model.User, error)
}

// SessionIssuer sets and clears the login cookie.
type SessionIssuer interface {
	Issue(w http.ResponseWriter, userID string) error
	Clear(w http.ResponseWriter)
}

// AccountHandler handles registration and login endpoints.
type AccountHandler struct {
	accounts Accounts
	sessions SessionIssuer
	logger   *slog.Logger
}

// NewAccountHandler creates a new AccountHandler.
func NewAccountHandler(accounts Accounts, sessions SessionIssuer, logger *slog.Logger) *AccountHandler {
	return &AccountHandler{accounts: accounts, sessions: sessions, logger: logger}
}

// Register creates an account.
// POST /register
func (h *AccountHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req dto.CredentialsRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := middleware.ValidateCredentials(req.Email, req.Password); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}

	if _, err := h.accounts.Register(r.Context(), req.Email, req.Password); err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.MessageResponse{Message: "User registered successfully"})
}

// Login checks credentials and starts a session.
// POST /login
func (h *AccountHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req dto.CredentialsRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := middleware.ValidateCredentials(req.Email, req.Password); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}

	user, err := h.accounts.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}

	if err := h.sessions.Issue(w, user.ID); err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.MessageResponse{Message: "Logged in successfully"})
}

// Logout ends the session. It succeeds whether or not one existed.
// POST /logout
func (h *AccountHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.sessions.Clear(w)
	writeJSON(w, http.StatusOK, dto.MessageResponse{Message: "Logged out successfully"})
}
