package middleware

import (
	"log/slog"
	"net/http"

	"github.com/chatcat/chatcat/internal/auth"
)

// SessionReader resolves the logged-in user of a request.
type SessionReader interface {
	CurrentUserID(r *http.Request) (string, error)
}

// RequireSession rejects requests without a valid login session with 401 and
// stores the user ID in the request context for handlers.
func RequireSession(sessions SessionReader, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, err := sessions.CurrentUserID(r)
			if err != nil {
				logger.Debug("session rejected",
					slog.String("request_id", GetRequestID(r.Context())),
					slog.String("path", r.URL.Path),
					slog.String("error", err.Error()),
				)
				writeError(w, http.StatusUnauthorized, "UNAUTHENTICATED", "User not logged in")
				return
			}

			ctx := auth.ContextWithUserID(r.Context(), userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
