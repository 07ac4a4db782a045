package shared

import "context"

type sessionContextKey struct{}

type userIDContextKey struct{}

// ContextWithSession stores the session in context.
func ContextWithSession(ctx context.Context, sess *Session) context.Context {
	return context.WithValue(ctx, sessionContextKey{}, sess)
}

// SessionFromContext extracts the session from context.
func SessionFromContext(ctx context.Context) *Session {
	sess, _ := ctx.Value(sessionContextKey{}).(*Session)
	return sess
}

// ContextWithUserID binds an authenticated user id that did not come from the session,
// such as the subject of a bearer token.
func ContextWithUserID(ctx context.Context, id int64) context.Context {
	return context.WithValue(ctx, userIDContextKey{}, id)
}

// UserIDFromContext returns the id stored by ContextWithUserID.
func UserIDFromContext(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(userIDContextKey{}).(int64)
	return id, ok && id > 0
}

// CurrentUserID returns the authenticated user from a bearer token or, failing
// that, the session.
func CurrentUserID(ctx context.Context) (int64, bool) {
	if id, ok := UserIDFromContext(ctx); ok {
		return id, true
	}
	if sess := SessionFromContext(ctx); sess != nil {
		return sess.UserID()
	}
	return 0, false
}
