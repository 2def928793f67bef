package middleware

import (
	"net/http"
	"strings"

	sessiongate "github.com/kestrelworks/sessiongate"
)

// ResetGate pins sessions that authenticated with a temporary password to
// the reset page until the password is changed.
//
// The decision matrix:
//
//   - no session → redirect to the login page unless the path is on the
//     unauthenticated allow-list.
//   - flagged session off the reset page → redirect to the reset page.
//   - unflagged session on the reset page → forced sign-out and redirect
//     away.
//
// In both conflict cases the live password-status probe gets the last word;
// when it disagrees with the session flag a signed override cookie is set so
// later requests follow the backend without a re-login.
func ResetGate(engine *sessiongate.Engine) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				next.ServeHTTP(w, r)
				return
			}

			gate := engine.GateConfig()
			path := r.URL.Path

			sess, ok := sessionFromCookie(engine, r)
			if !ok {
				if allowedPath(gate, path) {
					next.ServeHTTP(w, r)
					return
				}
				engine.NoteGateRedirect(r.Context(), nil, path, gate.LoginPath)
				http.Redirect(w, r, gate.LoginPath, http.StatusFound)
				return
			}

			flagged := sess.NeedsPasswordReset
			if cookie, err := r.Cookie(gate.OverrideCookieName); err == nil {
				if v, err := engine.DecodeResetOverride(cookie.Value); err == nil {
					flagged = v
				}
			}

			ctx := sessiongate.WithTenantID(r.Context(), sess.TenantID)
			onResetPage := path == gate.ResetPath

			switch {
			case flagged && !onResetPage:
				// Before pinning the user, let the backend overrule a stale
				// session flag.
				if st := engine.LivePasswordStatus(ctx, sess); st.Checked && !st.NeedsReset {
					setOverrideCookie(w, engine, gate, false)
					next.ServeHTTP(w, r)
					return
				}
				engine.NoteGateRedirect(ctx, sess, path, gate.ResetPath)
				http.Redirect(w, r, gate.ResetPath, http.StatusFound)

			case !flagged && onResetPage:
				if st := engine.LivePasswordStatus(ctx, sess); st.Checked && st.NeedsReset {
					setOverrideCookie(w, engine, gate, true)
					next.ServeHTTP(w, r)
					return
				}
				// A session with no pending reset has no business on the
				// reset page; treat it as a completed flow.
				_ = engine.Logout(ctx, sess)
				clearCookie(w, engine.CookieName())
				clearCookie(w, gate.OverrideCookieName)
				engine.NoteGateRedirect(ctx, sess, path, gate.PostResetPath)
				http.Redirect(w, r, gate.PostResetPath, http.StatusFound)

			default:
				next.ServeHTTP(w, r)
			}
		})
	}
}

func allowedPath(gate sessiongate.GateConfig, path string) bool {
	for _, p := range gate.AllowPaths {
		if path == p || strings.HasPrefix(path, p+"/") {
			return true
		}
	}
	return false
}

func setOverrideCookie(w http.ResponseWriter, engine *sessiongate.Engine, gate sessiongate.GateConfig, needsReset bool) {
	value, err := engine.EncodeResetOverride(needsReset)
	if err != nil {
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     gate.OverrideCookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   int(gate.OverrideCookieTTL.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
