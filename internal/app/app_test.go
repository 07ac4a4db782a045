package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"

	"github.com/odyssey-erp/peopledesk/internal/auth"
	"github.com/odyssey-erp/peopledesk/internal/i18n"
	"github.com/odyssey-erp/peopledesk/internal/observability"
	"github.com/odyssey-erp/peopledesk/internal/rbac"
	"github.com/odyssey-erp/peopledesk/internal/roles"
	"github.com/odyssey-erp/peopledesk/internal/shared"
	"github.com/odyssey-erp/peopledesk/jobs"
	_ "github.com/odyssey-erp/peopledesk/testing"
)

func TestLoadConfig(t *testing.T) {
	t.Setenv("SESSION_SECRET", "s")
	t.Setenv("CSRF_SECRET", "c")
	t.Setenv("JWT_SECRET", "j")
	t.Setenv("DEFAULT_LANGUAGE", "id")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.AppAddr)
	assert.Equal(t, 12*time.Hour, cfg.JWTTTL)
	assert.Equal(t, time.Hour, cfg.BonusTotalsTTL)
	assert.Equal(t, language.Indonesian, cfg.Language())
	assert.False(t, cfg.IsProduction())
}

func TestLoadStoreConfigSkipsSecrets(t *testing.T) {
	t.Setenv("SESSION_SECRET", "")
	t.Setenv("PG_DSN", "postgres://x@db/peopledesk")
	t.Setenv("DEFAULT_LANGUAGE", "en")

	cfg, err := LoadStoreConfig()
	require.NoError(t, err)
	assert.Equal(t, "postgres://x@db/peopledesk", cfg.PGDSN)
	assert.Equal(t, "127.0.0.1:6379", cfg.RedisAddr)

	t.Setenv("DEFAULT_LANGUAGE", "not a tag!")
	_, err = LoadStoreConfig()
	assert.Error(t, err)
}

func TestLoadConfigRequiresSecrets(t *testing.T) {
	t.Setenv("SESSION_SECRET", "s")
	t.Setenv("CSRF_SECRET", "c")
	t.Setenv("JWT_SECRET", "")
	_, err := LoadConfig()
	assert.Error(t, err)
}

type rbacResolver struct {
	admins map[int64]bool
}

func (r rbacResolver) RolesForUser(ctx context.Context, id int64) ([]roles.Name, error) {
	if r.admins[id] {
		return []roles.Name{roles.Admin}, nil
	}
	return []roles.Name{roles.Employee}, nil
}

func newTestRouter(t *testing.T) (http.Handler, *auth.TokenIssuer) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	catalog, err := i18n.NewCatalog(language.English)
	require.NoError(t, err)
	tokens := auth.NewTokenIssuer("jwt-secret", time.Hour)
	cfg := &Config{AppEnv: "test", AppRequestTimeout: 5 * time.Second}
	resolver := rbacResolver{admins: map[int64]bool{1: true}}
	router := NewRouter(RouterParams{
		Logger:         NewLogger(cfg),
		Config:         cfg,
		SessionManager: shared.NewSessionManager(client, shared.SessionConfig{CookieName: "pd_session", Secret: "secret", TTL: time.Hour}),
		CSRFManager:    shared.NewCSRFManager("csrf"),
		Catalog:        catalog,
		Tokens:         tokens,
		RBACMiddleware: rbac.Middleware{Service: resolver},
		JobHandler:     jobs.NewHandler(nil, nil, nil),
		Metrics:        observability.NewMetrics(),
	})
	return router, tokens
}

func TestRouterSmoke(t *testing.T) {
	router, tokens := newTestRouter(t)

	res := httptest.NewRecorder()
	router.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, res.Code)
	assert.Equal(t, "nosniff", res.Header().Get("X-Content-Type-Options"))

	res = httptest.NewRecorder()
	router.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusSeeOther, res.Code)
	assert.Equal(t, "/auth/login", res.Header().Get("Location"))

	res = httptest.NewRecorder()
	router.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/static/css/app.css", nil))
	assert.Equal(t, http.StatusOK, res.Code)
	assert.Equal(t, "public, max-age=3600", res.Header().Get("Cache-Control"))

	res = httptest.NewRecorder()
	router.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/jobs/health", nil))
	assert.Equal(t, http.StatusOK, res.Code)

	token, err := tokens.Issue(1)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token.AccessToken)
	res = httptest.NewRecorder()
	router.ServeHTTP(res, req)
	assert.Equal(t, "/users", res.Header().Get("Location"))
}

func TestRouterCSRF(t *testing.T) {
	router, tokens := newTestRouter(t)

	res := httptest.NewRecorder()
	router.ServeHTTP(res, httptest.NewRequest(http.MethodPost, "/jobs/bonus-totals/refresh", nil))
	assert.Equal(t, http.StatusForbidden, res.Code, "cookie clients need a csrf token")

	token, err := tokens.Issue(1)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/jobs/bonus-totals/refresh", nil)
	req.Header.Set("Authorization", "Bearer "+token.AccessToken)
	res = httptest.NewRecorder()
	router.ServeHTTP(res, req)
	assert.Equal(t, http.StatusServiceUnavailable, res.Code, "bearer clients skip csrf and reach the handler")

	req = httptest.NewRequest(http.MethodPost, "/jobs/bonus-totals/refresh", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	res = httptest.NewRecorder()
	router.ServeHTTP(res, req)
	assert.Equal(t, http.StatusUnauthorized, res.Code)
}

func TestMethodOverride(t *testing.T) {
	r := chi.NewRouter()
	r.Use(methodOverride)
	r.Delete("/users/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	form := url.Values{methodOverrideField: {"delete"}}
	req := httptest.NewRequest(http.MethodPost, "/users/4", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	res := httptest.NewRecorder()
	r.ServeHTTP(res, req)
	assert.Equal(t, http.StatusNoContent, res.Code)

	form = url.Values{methodOverrideField: {"GET"}}
	req = httptest.NewRequest(http.MethodPost, "/users/4", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	res = httptest.NewRecorder()
	r.ServeHTTP(res, req)
	assert.Equal(t, http.StatusMethodNotAllowed, res.Code)
}

func TestTestingPackageEnablesTestMode(t *testing.T) {
	refreshTestMode()
	assert.True(t, InTestMode())
}
