package middleware

import (
	"net/http"

	"github.com/ayutenn/skeleton/internal/session"
)

// RequireLogin guards browser pages that need an authenticated session.
//
// BROWSERS GET REDIRECTS, NOT 401s:
// Unlike an API, a page should never dead-end a human on a bare error
// response. An anonymous visitor gets an info flash ("Login is required.")
// and lands on the login page; after logging in they can navigate back.
// The guarded handler never runs.
func RequireLogin(loginURL string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess, ok := session.FromContext(r.Context())
			if !ok || !sess.IsAuthenticated() {
				if ok {
					sess.Info("Login is required.")
				}
				http.Redirect(w, r, loginURL, http.StatusSeeOther)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
