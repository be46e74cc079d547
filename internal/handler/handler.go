// Package handler provides HTTP request handlers.
package handler

import (
	"encoding/json"
	"errors"
	"html/template"
	"log/slog"
	"net/http"

	"github.com/chatcat/chatcat/internal/apperr"
	"github.com/chatcat/chatcat/internal/handler/dto"
	"github.com/chatcat/chatcat/internal/middleware"
)

var indexTemplate = template.Must(template.New("index").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>ChatCat</title>
</head>
<body>
<h1>ChatCat</h1>
<p>Turn any website into a chatbot. Register, log in, submit a URL and paste the
integration snippet into your page.</p>
<ul>
<li><code>POST /register</code> and <code>POST /login</code> with <code>{"email", "password"}</code></li>
<li><code>POST /process_url</code> with <code>{"url"}</code> returns an API key and snippet</li>
<li><code>GET /user/api_keys</code> lists your keys</li>
<li><code>POST /chat</code> with <code>{"input", "api_key"}</code></li>
</ul>
<p>Widget host: {{.BaseURL}}</p>
</body>
</html>
`))

// Handler serves the service's static pages and fallbacks.
type Handler struct {
	baseURL string
}

// New creates a new Handler instance.
func New(baseURL string) *Handler {
	return &Handler{baseURL: baseURL}
}

// Index renders the landing page.
// GET /
func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_ = indexTemplate.Execute(w, struct{ BaseURL string }{h.baseURL})
}

// NotFound handles 404 responses.
func (h *Handler) NotFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusNotFound, "NOT_FOUND", "resource not found")
}

// MethodNotAllowed handles 405 responses.
func (h *Handler) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed")
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, dto.ErrorResponse{Error: message, Code: code})
}

// decodeJSON reads a JSON body into v and writes the error reply when it
// cannot. It reports whether the handler should continue.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", "Request body too large")
			return false
		}
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return false
	}
	return true
}

// writeAppError maps a classified error to its status code and client message.
// Unclassified errors become 500 without exposing their text.
func writeAppError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	kind := apperr.KindOf(err)
	status := apperr.HTTPStatus(kind)

	message := defaultMessage(kind)
	var e *apperr.Error
	if errors.As(err, &e) && e.Msg != "" {
		message = e.Msg
	}

	if status >= http.StatusInternalServerError {
		logger.Error("request failed",
			slog.String("request_id", middleware.GetRequestID(r.Context())),
			slog.String("path", r.URL.Path),
			slog.String("kind", string(kind)),
			slog.String("error", err.Error()),
		)
	}

	writeError(w, status, string(kind), message)
}

func defaultMessage(kind apperr.Kind) string {
	switch kind {
	case apperr.BadRequest:
		return "Bad request"
	case apperr.Unauthenticated:
		return "User not logged in"
	case apperr.RateLimited:
		return "Rate limit exceeded"
	case apperr.NetworkError:
		return "Network error: completion service unreachable"
	case apperr.UpstreamError:
		return "Completion service error"
	default:
		return "Internal server error"
	}
}
