package middleware

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/chatcat/chatcat/internal/auth"
)

type stubSessions struct {
	userID string
	err    error
}

func (s stubSessions) CurrentUserID(*http.Request) (string, error) {
	return s.userID, s.err
}

func TestRequireSession(t *testing.T) {
	t.Parallel()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Run("valid session", func(t *testing.T) {
		t.Parallel()

		var seen string
		handler := RequireSession(stubSessions{userID: "01HUSER"}, logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen = auth.UserIDFromContext(r.Context())
		}))

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/user/api_keys", nil))

		if rec.Code != http.StatusOK {
			t.Errorf("status = %d, want 200", rec.Code)
		}
		if seen != "01HUSER" {
			t.Errorf("user ID in context = %q", seen)
		}
	})

	t.Run("no session", func(t *testing.T) {
		t.Parallel()

		called := false
		handler := RequireSession(stubSessions{err: errors.New("no valid session")}, logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			called = true
		}))

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/process_url", nil))

		if rec.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", rec.Code)
		}
		if called {
			t.Error("handler ran without a session")
		}
		if !strings.Contains(rec.Body.String(), `"error":"User not logged in"`) {
			t.Errorf("unexpected body: %s", rec.Body.String())
		}
	})
}
