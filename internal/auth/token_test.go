package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/peopledesk/internal/shared"
)

func TestTokenRoundTrip(t *testing.T) {
	issuer := NewTokenIssuer("secret", time.Minute)
	token, err := issuer.Issue(12)
	require.NoError(t, err)

	id, err := issuer.Parse(token.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, int64(12), id)
}

func TestTokenRejectsOtherSecretAndExpiry(t *testing.T) {
	issuer := NewTokenIssuer("secret", time.Minute)
	token, err := issuer.Issue(3)
	require.NoError(t, err)

	_, err = NewTokenIssuer("other", time.Minute).Parse(token.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidToken)

	later := NewTokenIssuer("secret", time.Minute)
	later.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = later.Parse(token.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenMiddleware(t *testing.T) {
	issuer := NewTokenIssuer("secret", time.Minute)
	token, err := issuer.Issue(8)
	require.NoError(t, err)

	var seen int64
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = shared.UserIDFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})
	mw := TokenMiddleware(issuer, nil)(next)

	req := httptest.NewRequest(http.MethodGet, "/users/employees", nil)
	req.Header.Set("Authorization", "Bearer "+token.AccessToken)
	res := httptest.NewRecorder()
	mw.ServeHTTP(res, req)
	assert.Equal(t, http.StatusNoContent, res.Code)
	assert.Equal(t, int64(8), seen)

	seen = 0
	req = httptest.NewRequest(http.MethodGet, "/users/employees", nil)
	res = httptest.NewRecorder()
	mw.ServeHTTP(res, req)
	assert.Equal(t, http.StatusNoContent, res.Code)
	assert.Zero(t, seen)

	req = httptest.NewRequest(http.MethodGet, "/users/employees", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	res = httptest.NewRecorder()
	mw.ServeHTTP(res, req)
	assert.Equal(t, http.StatusUnauthorized, res.Code)
}
