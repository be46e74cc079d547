package auth

import "context"

type contextKey string

const userIDContextKey contextKey = "user_id"

// ContextWithUserID stores the authenticated user's ID on the context.
func ContextWithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDContextKey, userID)
}

// UserIDFromContext returns the authenticated user's ID, or "" when the
// request carries no session.
func UserIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(userIDContextKey).(string)
	return id
}
