package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/chatcat/chatcat/internal/apperr"
	"github.com/chatcat/chatcat/internal/handler/dto"
	"github.com/chatcat/chatcat/internal/widget"
)

type stubResponder struct {
	mu       sync.Mutex
	reply    string
	err      error
	calls    int
	lastKey  string
	lastText string
}

func (s *stubResponder) Respond(_ context.Context, apiKey, message string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls++
	s.lastKey = apiKey
	s.lastText = message
	if apiKey == "" || message == "" {
		return "", apperr.New(apperr.BadRequest, "chat.respond", "Input and API key are required")
	}
	if s.err != nil {
		return "", s.err
	}
	return s.reply, nil
}

func newTestRenderer(t *testing.T) *widget.Renderer {
	t.Helper()
	r, err := widget.NewRenderer("https://chat.example.com")
	if err != nil {
		t.Fatalf("NewRenderer() error = %v", err)
	}
	return r
}

func TestChatHandler_Chat(t *testing.T) {
	responder := &stubResponder{reply: "We are open 9 to 5."}
	h := NewChatHandler(responder, newTestRenderer(t), discardLogger())

	req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(`{"input":"  When are you open?  ","api_key":"user_abc"}`))
	rec := httptest.NewRecorder()

	h.Chat(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var body dto.ChatResponse
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body.Response != "We are open 9 to 5." {
		t.Errorf("response = %q", body.Response)
	}
	if responder.lastText != "  When are you open?  " {
		t.Errorf("input must reach the gateway verbatim, got %q", responder.lastText)
	}
	if responder.lastKey != "user_abc" {
		t.Errorf("key = %q", responder.lastKey)
	}
}

func TestChatHandler_ChatErrors(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		err         error
		wantStatus  int
		wantMessage string
	}{
		{
			name:        "missing input",
			body:        `{"api_key":"user_abc"}`,
			wantStatus:  http.StatusBadRequest,
			wantMessage: "Input and API key are required",
		},
		{
			name:        "missing key",
			body:        `{"input":"hi"}`,
			wantStatus:  http.StatusBadRequest,
			wantMessage: "Input and API key are required",
		},
		{
			name:        "input too long",
			body:        `{"input":"` + strings.Repeat("a", 4001) + `","api_key":"user_abc"}`,
			wantStatus:  http.StatusBadRequest,
			wantMessage: "input exceeds maximum length",
		},
		{
			name:        "network failure",
			body:        `{"input":"hi","api_key":"user_abc"}`,
			err:         apperr.Wrap(apperr.NetworkError, "chat.respond", errors.New("dial tcp: i/o timeout")),
			wantStatus:  http.StatusServiceUnavailable,
			wantMessage: "Network error: completion service unreachable",
		},
		{
			name:        "upstream failure",
			body:        `{"input":"hi","api_key":"user_abc"}`,
			err:         apperr.Wrap(apperr.UpstreamError, "chat.respond", errors.New("invalid api key")),
			wantStatus:  http.StatusInternalServerError,
			wantMessage: "Completion service error",
		},
		{
			name:        "unexpected failure",
			body:        `{"input":"hi","api_key":"user_abc"}`,
			err:         apperr.Wrap(apperr.InternalError, "chat.respond", errors.New("boom")),
			wantStatus:  http.StatusInternalServerError,
			wantMessage: "Internal server error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewChatHandler(&stubResponder{err: tt.err}, newTestRenderer(t), discardLogger())

			req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()

			h.Chat(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if body := decodeError(t, rec); body.Error != tt.wantMessage {
				t.Errorf("message = %q, want %q", body.Error, tt.wantMessage)
			}
		})
	}
}

func TestChatHandler_Design(t *testing.T) {
	h := NewChatHandler(&stubResponder{}, newTestRenderer(t), discardLogger())

	req := httptest.NewRequest(http.MethodGet, "/chatbot-design?api_key=user_abc", nil)
	rec := httptest.NewRecorder()

	h.Design(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("expected text/html, got %s", ct)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "user_abc") {
		t.Error("widget should embed the key")
	}
	if !strings.Contains(body, "chat.example.com") {
		t.Error("widget should post to the configured host")
	}
}

func TestChatHandler_DesignMissingKey(t *testing.T) {
	h := NewChatHandler(&stubResponder{}, newTestRenderer(t), discardLogger())

	req := httptest.NewRequest(http.MethodGet, "/chatbot-design", nil)
	rec := httptest.NewRecorder()

	h.Design(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rec.Code)
	}
	if body := decodeError(t, rec); body.Error != "API key is required" {
		t.Errorf("unexpected error: %s", body.Error)
	}
}
