package middleware

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"finitefield.org/hanko-portal/internal/portal/guard"
	"finitefield.org/hanko-portal/internal/portal/rbac"
)

// RequireRoleParam compares the role path parameter with the session role.
// A mismatch is sent to the visitor's own dashboard; roles without a dashboard
// are not found. It must run after RequireSession.
func RequireRoleParam(param string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requested := rbac.Role(strings.ToLower(chi.URLParam(r, param)))
			if !rbac.Known.Has(requested) {
				http.NotFound(w, r)
				return
			}

			sess, _ := SessionFromContext(r.Context())
			user, err := sess.UserInfo()
			if err != nil {
				Navigate(w, r, guard.LoginPath, http.StatusUnauthorized)
				return
			}
			own := rbac.DashboardRole(user.Role)
			if own != requested {
				Navigate(w, r, rbac.DashboardPath(string(own)), http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
