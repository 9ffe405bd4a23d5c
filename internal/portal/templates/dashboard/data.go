package dashboard

import (
	"time"

	"finitefield.org/hanko-portal/internal/portal/rbac"
	"finitefield.org/hanko-portal/internal/portal/session"
)

// PageData is the state rendered on a role dashboard.
type PageData struct {
	User session.User
	// ExpiresAt is the absolute session expiry; zero hides it.
	ExpiresAt  time.Time
	CSRFToken  string
	CSRFField  string
	LogoutPath string
}

func (d PageData) role() string {
	return string(rbac.Normalise(d.User.Role))
}

func (d PageData) heading() string {
	if rbac.Normalise(d.User.Role) == rbac.RoleAdmin {
		return "Admin Dashboard"
	}
	return "User Dashboard"
}

func (d PageData) expiresISO() string {
	return d.ExpiresAt.UTC().Format(time.RFC3339)
}
