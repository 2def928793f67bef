package middleware

import (
	"context"
	"net/http"

	sessiongate "github.com/kestrelworks/sessiongate"
)

type sessionContextKey struct{}

// SessionFromContext returns the session injected by [Guard], when present.
func SessionFromContext(ctx context.Context) (*sessiongate.Session, bool) {
	sess, ok := ctx.Value(sessionContextKey{}).(*sessiongate.Session)
	return sess, ok
}

// Guard rejects requests without a decodable session cookie, validates the
// session against the identity service, and injects the session into the
// request context. Validation failing open still admits the request; only an
// authoritative rejection produces a 401.
func Guard(engine *sessiongate.Engine) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			sess, ok := sessionFromCookie(engine, r)
			if !ok {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			ctx := sessiongate.WithRequestPath(r.Context(), r.URL.Path)
			ctx = sessiongate.WithTenantID(ctx, sess.TenantID)

			res, err := engine.ValidateSession(ctx, sess)
			if err != nil || !res.Valid {
				clearCookie(w, engine.CookieName())
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			ctx = context.WithValue(ctx, sessionContextKey{}, sess)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func sessionFromCookie(engine *sessiongate.Engine, r *http.Request) (*sessiongate.Session, bool) {
	cookie, err := r.Cookie(engine.CookieName())
	if err != nil || cookie.Value == "" {
		return nil, false
	}

	sess, err := engine.DecodeCookie(cookie.Value)
	if err != nil {
		return nil, false
	}

	return sess, true
}

func clearCookie(w http.ResponseWriter, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
