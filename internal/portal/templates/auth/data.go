package auth

import "finitefield.org/hanko-portal/internal/portal/forms"

// CSRFField is the hidden form field carrying the CSRF token.
const CSRFField = "csrf_token"

// LoginPageData encapsulates rendering state for the login screen.
type LoginPageData struct {
	Form         *forms.LoginForm
	CSRFToken    string
	LoginPath    string
	RegisterPath string
}

func (d LoginPageData) form() *forms.LoginForm {
	if d.Form == nil {
		return &forms.LoginForm{}
	}
	return d.Form
}

// RegisterPageData encapsulates rendering state for the registration screen.
type RegisterPageData struct {
	Form         *forms.RegisterForm
	CSRFToken    string
	LoginPath    string
	RegisterPath string
}

func (d RegisterPageData) form() *forms.RegisterForm {
	if d.Form == nil {
		return &forms.RegisterForm{}
	}
	return d.Form
}

func busy(disabled bool) string {
	if disabled {
		return "true"
	}
	return "false"
}
