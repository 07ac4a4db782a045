package rbac

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/odyssey-erp/peopledesk/internal/roles"
	"github.com/odyssey-erp/peopledesk/internal/shared"
)

// RoleResolver loads the roles of a user.
type RoleResolver interface {
	RolesForUser(ctx context.Context, userID int64) ([]roles.Name, error)
}

// Middleware wires RBAC authorization helpers for HTTP handlers.
type Middleware struct {
	Service RoleResolver
	Logger  *slog.Logger
}

// RequireRole ensures the current user holds at least one of names. With no
// names it only requires an authenticated user. The resolved Identity is
// stored in the request context.
func (m Middleware) RequireRole(names ...roles.Name) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, ok := IdentityFromContext(r.Context())
			if !ok {
				userID, found := shared.CurrentUserID(r.Context())
				if !found {
					http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
					return
				}
				assigned, err := m.Service.RolesForUser(r.Context(), userID)
				if err != nil {
					if m.Logger != nil {
						m.Logger.Error("rbac require role", slog.Any("error", err))
					}
					http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
					return
				}
				identity = Identity{UserID: userID, Roles: assigned}
				r = r.WithContext(WithIdentity(r.Context(), identity))
			}
			if len(names) > 0 && !identity.HasAny(names...) {
				http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAdmin is RequireRole(roles.Admin).
func (m Middleware) RequireAdmin() func(http.Handler) http.Handler {
	return m.RequireRole(roles.Admin)
}
