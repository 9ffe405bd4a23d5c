package httpserver

import (
	"net/http"

	"go.uber.org/zap"

	"finitefield.org/hanko-portal/internal/portal/guard"
	custommw "finitefield.org/hanko-portal/internal/portal/httpserver/middleware"
	"finitefield.org/hanko-portal/internal/portal/observability"
	"finitefield.org/hanko-portal/internal/portal/templates/auth"
	"finitefield.org/hanko-portal/internal/portal/templates/dashboard"
)

func dashboardHandler(w http.ResponseWriter, r *http.Request) {
	sess := requestSession(r)
	user, err := sess.UserInfo()
	if err != nil {
		observability.FromContext(r.Context()).Warn("dashboard without user", zap.Error(err))
		custommw.Navigate(w, r, guard.LoginPath, http.StatusUnauthorized)
		return
	}
	render(w, r, dashboard.Page(dashboard.PageData{
		User:       user,
		ExpiresAt:  sess.ExpiresAt(),
		CSRFToken:  custommw.CSRFTokenFromContext(r.Context()),
		CSRFField:  auth.CSRFField,
		LogoutPath: logoutPath,
	}), http.StatusOK)
}
