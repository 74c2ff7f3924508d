package context

import (
	"context"
	"net/http"
)

// AuthenticatedUser is the identity-service principal carried on a request.
// This service stores no users of its own.
type AuthenticatedUser struct {
	UserID     int
	ClientID   int
	Username   string
	Backoffice bool
}

type contextKey string

const (
	authenticatedUserContextKey = contextKey("authenticatedUser")
)

func ContextSetAuthenticatedUser(r *http.Request, user *AuthenticatedUser) *http.Request {
	ctx := context.WithValue(r.Context(), authenticatedUserContextKey, user)
	return r.WithContext(ctx)
}

func ContextGetAuthenticatedUser(r *http.Request) *AuthenticatedUser {
	user, ok := r.Context().Value(authenticatedUserContextKey).(*AuthenticatedUser)
	if !ok {
		return nil
	}

	return user
}
