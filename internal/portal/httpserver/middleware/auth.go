package middleware

import (
	"net/http"

	"go.uber.org/zap"

	"finitefield.org/hanko-portal/internal/portal/guard"
	"finitefield.org/hanko-portal/internal/portal/observability"
)

// RequireSession lets authenticated visitors through and sends everyone else
// to the login page with the original location in the from parameter. htmx
// requests receive 401 with HX-Redirect instead of a redirect.
func RequireSession() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess, _ := SessionFromContext(r.Context())
			decision := guard.Decide(guard.LocationFromRequest(r), sess.IsAuthenticated())
			if decision.Render {
				next.ServeHTTP(w, r)
				return
			}

			target := decision.Redirect.URL()
			observability.FromContext(r.Context()).Debug("guard redirect", zap.String("target", target))
			Navigate(w, r, target, http.StatusUnauthorized)
		})
	}
}

// Navigate sends the browser to target. Plain requests get a 303 See Other (302
// for GET); htmx requests get HX-Redirect with htmxStatus.
func Navigate(w http.ResponseWriter, r *http.Request, target string, htmxStatus int) {
	if IsHTMXRequest(r.Context()) {
		w.Header().Set("HX-Redirect", target)
		w.WriteHeader(htmxStatus)
		return
	}
	status := http.StatusSeeOther
	if r.Method == http.MethodGet || r.Method == http.MethodHead {
		status = http.StatusFound
	}
	http.Redirect(w, r, target, status)
}
