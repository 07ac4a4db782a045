package auth

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/odyssey-erp/peopledesk/internal/platform/httpx"
	"github.com/odyssey-erp/peopledesk/internal/shared"
)

// HasBearer reports whether r carries an Authorization bearer token.
func HasBearer(r *http.Request) bool {
	_, ok := bearerToken(r)
	return ok
}

// TokenMiddleware binds the subject of a valid bearer token to the request.
// Requests without a bearer token pass through untouched.
func TokenMiddleware(issuer *TokenIssuer, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, ok := bearerToken(r)
			if !ok {
				next.ServeHTTP(w, r)
				return
			}
			userID, err := issuer.Parse(raw)
			if err != nil {
				if logger != nil {
					logger.Warn("bearer token rejected", slog.String("path", r.URL.Path), slog.Any("error", err))
				}
				httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "invalid bearer token")
				return
			}
			next.ServeHTTP(w, r.WithContext(shared.ContextWithUserID(r.Context(), userID)))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
