// Package middleware holds the HTTP middleware shared by the gateway routes.
package middleware

import (
	"context"
	"net/http"
	"strings"
)

// ActorHeader names the caller on whose behalf a request is made. It is
// used for audit attribution only and is not authenticated.
const ActorHeader = "X-Actor-ID"

// Context key type to avoid collisions
type contextKey string

const actorIDKey contextKey = "actor_id"

// GetActorIDFromContext retrieves the actor ID from context
func GetActorIDFromContext(ctx context.Context) string {
	if val, ok := ctx.Value(actorIDKey).(string); ok {
		return val
	}
	return ""
}

// WithActorID adds an actor ID to the context
func WithActorID(ctx context.Context, actorID string) context.Context {
	return context.WithValue(ctx, actorIDKey, actorID)
}

// ExtractActor copies the X-Actor-ID header into the request context
func ExtractActor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if actor := strings.TrimSpace(r.Header.Get(ActorHeader)); actor != "" {
			r = r.WithContext(WithActorID(r.Context(), actor))
		}
		next.ServeHTTP(w, r)
	})
}
