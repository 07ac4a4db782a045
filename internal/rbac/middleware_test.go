package rbac_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/peopledesk/internal/rbac"
	"github.com/odyssey-erp/peopledesk/internal/roles"
	"github.com/odyssey-erp/peopledesk/internal/shared"
)

type stubResolver struct {
	roles map[int64][]roles.Name
	err   error
	calls int
}

func (s *stubResolver) RolesForUser(_ context.Context, userID int64) ([]roles.Name, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.roles[userID], nil
}

func serve(t *testing.T, mw func(http.Handler) http.Handler, ctx context.Context) (*httptest.ResponseRecorder, rbac.Identity) {
	t.Helper()
	var seen rbac.Identity
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := rbac.IdentityFromContext(r.Context())
		require.True(t, ok)
		seen = id
		w.WriteHeader(http.StatusNoContent)
	})
	req := httptest.NewRequest(http.MethodGet, "/", nil).WithContext(ctx)
	res := httptest.NewRecorder()
	mw(next).ServeHTTP(res, req)
	return res, seen
}

func TestRequireRoleUnauthenticated(t *testing.T) {
	m := rbac.Middleware{Service: &stubResolver{}}
	res, _ := serve(t, m.RequireRole(roles.Admin), context.Background())
	assert.Equal(t, http.StatusUnauthorized, res.Code)
}

func TestRequireRoleWithTokenIdentity(t *testing.T) {
	resolver := &stubResolver{roles: map[int64][]roles.Name{7: {roles.Admin}}}
	m := rbac.Middleware{Service: resolver}
	ctx := shared.ContextWithUserID(context.Background(), 7)

	res, identity := serve(t, m.RequireAdmin(), ctx)
	assert.Equal(t, http.StatusNoContent, res.Code)
	assert.Equal(t, int64(7), identity.UserID)
	assert.True(t, identity.IsAdmin())
}

func TestRequireRoleForbidden(t *testing.T) {
	resolver := &stubResolver{roles: map[int64][]roles.Name{3: {roles.Employee}}}
	m := rbac.Middleware{Service: resolver}
	ctx := shared.ContextWithUserID(context.Background(), 3)

	res, _ := serve(t, m.RequireRole(roles.Admin), ctx)
	assert.Equal(t, http.StatusForbidden, res.Code)

	res, identity := serve(t, m.RequireRole(), ctx)
	assert.Equal(t, http.StatusNoContent, res.Code)
	assert.False(t, identity.IsAdmin())
}

func TestRequireRoleReusesIdentity(t *testing.T) {
	resolver := &stubResolver{}
	m := rbac.Middleware{Service: resolver}
	ctx := rbac.WithIdentity(context.Background(), rbac.Identity{UserID: 9, Roles: []roles.Name{roles.Employee}})

	res, _ := serve(t, m.RequireRole(roles.Employee), ctx)
	assert.Equal(t, http.StatusNoContent, res.Code)
	assert.Zero(t, resolver.calls)
}

func TestRequireRoleResolverFailure(t *testing.T) {
	m := rbac.Middleware{Service: &stubResolver{err: errors.New("boom")}}
	ctx := shared.ContextWithUserID(context.Background(), 1)
	res, _ := serve(t, m.RequireRole(), ctx)
	assert.Equal(t, http.StatusInternalServerError, res.Code)
}
