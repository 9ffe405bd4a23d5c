package httpserver

import (
	"context"
	"errors"
	"net/http"

	"github.com/a-h/templ"
	"go.uber.org/zap"

	"finitefield.org/hanko-portal/internal/portal/authapi"
	"finitefield.org/hanko-portal/internal/portal/forms"
	"finitefield.org/hanko-portal/internal/portal/guard"
	custommw "finitefield.org/hanko-portal/internal/portal/httpserver/middleware"
	"finitefield.org/hanko-portal/internal/portal/observability"
	"finitefield.org/hanko-portal/internal/portal/session"
	"finitefield.org/hanko-portal/internal/portal/templates/auth"
)

const (
	statusLoggedOut  = "logged_out"
	loggedOutMessage = "You have been logged out."
)

type authHandlers struct {
	login    *forms.LoginFlow
	register *forms.RegisterFlow
}

func (h *authHandlers) LoginForm(w http.ResponseWriter, r *http.Request) {
	if target, ok := forms.AlreadyAuthenticated(requestSession(r)); ok {
		http.Redirect(w, r, target, http.StatusFound)
		return
	}

	form := &forms.LoginForm{From: fromParam(r.URL.Query().Get(guard.FromParam))}
	if r.URL.Query().Get("status") == statusLoggedOut {
		form.Notices = append(form.Notices, forms.NewNotice(forms.NoticeSuccess, loggedOutMessage))
	}
	h.renderLogin(w, r, form, http.StatusOK)
}

func (h *authHandlers) LoginSubmit(w http.ResponseWriter, r *http.Request) {
	sess := requestSession(r)
	if target, ok := forms.AlreadyAuthenticated(sess); ok {
		custommw.Navigate(w, r, target, http.StatusNoContent)
		return
	}

	form := &forms.LoginForm{
		Email:    r.PostFormValue("email"),
		Password: r.PostFormValue("password"),
		From:     fromParam(r.PostFormValue(guard.FromParam)),
	}
	err := h.login.Submit(r.Context(), sess, form)
	if form.Redirect {
		custommw.Navigate(w, r, form.RedirectTo, http.StatusNoContent)
		return
	}
	if clientGone(r, err) {
		return
	}

	status := failureStatus(r.Context(), err, http.StatusUnauthorized)
	observability.FromContext(r.Context()).Info("login failed",
		zap.Int("status", status),
		zap.String("phase", form.Phase.String()),
		zap.Error(err),
	)
	h.renderLogin(w, r, form, status)
}

func (h *authHandlers) RegisterForm(w http.ResponseWriter, r *http.Request) {
	if target, ok := forms.AlreadyAuthenticated(requestSession(r)); ok {
		http.Redirect(w, r, target, http.StatusFound)
		return
	}
	h.renderRegister(w, r, &forms.RegisterForm{}, http.StatusOK)
}

func (h *authHandlers) RegisterSubmit(w http.ResponseWriter, r *http.Request) {
	if target, ok := forms.AlreadyAuthenticated(requestSession(r)); ok {
		custommw.Navigate(w, r, target, http.StatusNoContent)
		return
	}

	form := &forms.RegisterForm{
		Name:     r.PostFormValue("name"),
		Email:    r.PostFormValue("email"),
		Password: r.PostFormValue("password"),
	}
	err := h.register.Submit(r.Context(), form)
	if err == nil {
		h.renderRegister(w, r, form, http.StatusOK)
		return
	}
	if clientGone(r, err) {
		return
	}

	status := failureStatus(r.Context(), err, http.StatusUnprocessableEntity)
	observability.FromContext(r.Context()).Info("registration failed",
		zap.Int("status", status),
		zap.Error(err),
	)
	h.renderRegister(w, r, form, status)
}

func (h *authHandlers) Logout(w http.ResponseWriter, r *http.Request) {
	if sess, ok := custommw.SessionFromContext(r.Context()); ok {
		if err := sess.Signout(r.Context()); err != nil {
			observability.FromContext(r.Context()).Error("signout failed", zap.Error(err))
		}
	}
	custommw.Navigate(w, r, guard.LoginPath+"?status="+statusLoggedOut, http.StatusNoContent)
}

func (h *authHandlers) renderLogin(w http.ResponseWriter, r *http.Request, form *forms.LoginForm, status int) {
	render(w, r, auth.LoginPage(auth.LoginPageData{
		Form:         form,
		CSRFToken:    custommw.CSRFTokenFromContext(r.Context()),
		LoginPath:    guard.LoginPath,
		RegisterPath: registerPath,
	}), status)
}

func (h *authHandlers) renderRegister(w http.ResponseWriter, r *http.Request, form *forms.RegisterForm, status int) {
	render(w, r, auth.RegisterPage(auth.RegisterPageData{
		Form:         form,
		CSRFToken:    custommw.CSRFTokenFromContext(r.Context()),
		LoginPath:    guard.LoginPath,
		RegisterPath: registerPath,
	}), status)
}

func homeHandler(w http.ResponseWriter, r *http.Request) {
	if target, ok := forms.AlreadyAuthenticated(requestSession(r)); ok {
		http.Redirect(w, r, target, http.StatusFound)
		return
	}
	http.Redirect(w, r, guard.LoginPath, http.StatusFound)
}

// render writes c with status. htmx only swaps 2xx responses, so failed
// submissions it initiated are answered with 200.
func render(w http.ResponseWriter, r *http.Request, c templ.Component, status int) {
	if custommw.IsHTMXRequest(r.Context()) {
		status = http.StatusOK
	}
	templ.Handler(c, templ.WithStatus(status)).ServeHTTP(w, r)
}

func requestSession(r *http.Request) *session.Session {
	sess, _ := custommw.SessionFromContext(r.Context())
	return sess
}

// fromParam keeps only safe same-site destinations.
func fromParam(raw string) string {
	loc, ok := guard.SafeFrom(raw)
	if !ok {
		return ""
	}
	return loc.String()
}

func clientGone(r *http.Request, err error) bool {
	return errors.Is(err, context.Canceled) && r.Context().Err() != nil
}

func failureStatus(ctx context.Context, err error, rejected int) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, context.DeadlineExceeded) && ctx.Err() != nil:
		return http.StatusGatewayTimeout
	}
	if _, ok := authapi.AsServerError(err); ok {
		return rejected
	}
	if authapi.IsTransport(err) || errors.Is(err, authapi.ErrMalformedResponse) {
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}
