package middleware

import (
	"context"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"finitefield.org/hanko-portal/internal/portal/observability"
	"finitefield.org/hanko-portal/internal/portal/session"
)

type sessionContextKey string

const requestSessionKey sessionContextKey = "portal.session"

// SessionStore abstracts the session store for middleware integration.
type SessionStore interface {
	Load(http.ResponseWriter, *http.Request) (*session.Session, error)
	New(http.ResponseWriter, *http.Request) *session.Session
}

// Session attaches the per-request session handle to the context. Expired or
// unreadable sessions are replaced by an empty one.
func Session(store SessionStore) func(http.Handler) http.Handler {
	if store == nil {
		panic("session store is required")
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			logger := observability.FromContext(r.Context())

			sess, err := store.Load(w, r)
			switch {
			case errors.Is(err, session.ErrExpired):
				logger.Info("session expired: resetting")
				sess = store.New(w, r)
				if err := sess.Signout(r.Context()); err != nil {
					logger.Warn("session reset failed", zap.Error(err))
				}
			case err != nil || sess == nil:
				if err != nil {
					logger.Error("session load failed", zap.Error(err))
				}
				sess = store.New(w, r)
			}

			next.ServeHTTP(w, r.WithContext(ContextWithSession(r.Context(), sess)))
		})
	}
}

// ContextWithSession stores sess on ctx.
func ContextWithSession(ctx context.Context, sess *session.Session) context.Context {
	return context.WithValue(ctx, requestSessionKey, sess)
}

// SessionFromContext retrieves the session attached to this request.
func SessionFromContext(ctx context.Context) (*session.Session, bool) {
	if ctx == nil {
		return nil, false
	}
	sess, ok := ctx.Value(requestSessionKey).(*session.Session)
	return sess, ok && sess != nil
}
