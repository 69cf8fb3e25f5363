package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/leavedesk/apiserver/internal/identity"
	"github.com/leavedesk/apiserver/internal/services"
	"github.com/leavedesk/apiserver/internal/store"
	"github.com/leavedesk/apiserver/types"
)

// RequireAuth resolves the caller's identity and loads the matching user
// record into the request context. A deleted user's token stops working
// immediately because the lookup runs on every request.
func RequireAuth(resolver identity.Resolver, users *services.UserService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, err := resolver.Resolve(r)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}

			user, err := users.GetByID(r.Context(), userID)
			if err != nil {
				if errors.Is(err, store.ErrNotFound) {
					writeError(w, http.StatusUnauthorized, "unauthorized")
					return
				}
				writeServiceError(w, err, "failed to load user")
				return
			}

			ctx := context.WithValue(r.Context(), contextUserKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// requireRole rejects callers whose role is not in the allowed set. It must
// run after RequireAuth.
func requireRole(roles ...types.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, err := currentUser(r.Context())
			if err != nil {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}

			for _, role := range roles {
				if user.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			writeError(w, http.StatusForbidden, "insufficient role")
		})
	}
}
