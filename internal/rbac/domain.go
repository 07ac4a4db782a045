package rbac

import (
	"context"

	"github.com/odyssey-erp/peopledesk/internal/roles"
)

// Identity describes the authenticated actor of a request.
type Identity struct {
	UserID int64
	Roles  []roles.Name
}

// HasAny reports whether the identity holds at least one of names.
func (i Identity) HasAny(names ...roles.Name) bool {
	for _, want := range names {
		for _, have := range i.Roles {
			if have == want {
				return true
			}
		}
	}
	return false
}

// IsAdmin reports whether the identity holds the admin role.
func (i Identity) IsAdmin() bool {
	return i.HasAny(roles.Admin)
}

type identityContextKey struct{}

// WithIdentity stores the identity in context.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityContextKey{}, id)
}

// IdentityFromContext extracts the identity resolved by Middleware.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityContextKey{}).(Identity)
	return id, ok
}
