package rbac

import "strings"

// Role represents an account tier reported by the auth API.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

// Roles captures a list of roles and exposes membership checks.
type Roles []Role

// Has returns true if the provided role exists in the set.
func (rs Roles) Has(role Role) bool {
	for _, r := range rs {
		if r == role {
			return true
		}
	}
	return false
}

// Known lists the roles with a dedicated dashboard.
var Known = Roles{RoleAdmin, RoleUser}

// Normalise converts a raw role claim into its canonical form. Empty values
// fall back to RoleUser so a dashboard target can always be computed.
func Normalise(raw string) Role {
	role := Role(strings.ToLower(strings.TrimSpace(raw)))
	if role == "" {
		return RoleUser
	}
	return role
}

// DashboardRole maps a raw role onto a role with a dashboard. Unknown roles
// get the user dashboard.
func DashboardRole(raw string) Role {
	role := Normalise(raw)
	if !Known.Has(role) {
		return RoleUser
	}
	return role
}

// DashboardPath returns the landing page for the role, e.g. "/admin/dashboard".
func DashboardPath(raw string) string {
	return "/" + string(DashboardRole(raw)) + "/dashboard"
}
