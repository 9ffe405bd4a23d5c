package forms

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"finitefield.org/hanko-portal/internal/portal/authapi"
	"finitefield.org/hanko-portal/internal/portal/connectivity"
	"finitefield.org/hanko-portal/internal/portal/guard"
	"finitefield.org/hanko-portal/internal/portal/rbac"
)

// LoginForm holds the login form values and submission state.
type LoginForm struct {
	Email    string
	Password string
	// From is the page the visitor was sent away from, if any.
	From string

	Phase    Phase
	Disabled bool
	Error    *authapi.ErrorBody
	// Redirect is set once the session is persisted; RedirectTo is the target.
	Redirect   bool
	RedirectTo string
	Notices    []Notice
}

// Button derives the submit control from the form state.
func (f *LoginForm) Button() Button {
	return buttonFor(f.Phase, f.Disabled, loginLabel)
}

// EmailError is the inline message rendered under the email field.
func (f *LoginForm) EmailError() string {
	return f.Error.Field("message")
}

// KeepPassword reports whether the typed password should survive a re-render.
func (f *LoginForm) KeepPassword() bool {
	return f.Phase == PhaseFailed
}

func (f *LoginForm) begin() {
	f.Phase = PhaseSubmitting
	f.Disabled = true
	f.Error = nil
	f.Redirect = false
	f.RedirectTo = ""
	f.Notices = nil
}

func (f *LoginForm) fail(body *authapi.ErrorBody, notice string) {
	f.Phase = PhaseFailed
	f.Disabled = false
	f.Error = body
	if notice != "" {
		f.Notices = append(f.Notices, errorNotice(notice))
	}
}

// LoginFlow submits login forms to the auth API.
type LoginFlow struct {
	api    authapi.Service
	online connectivity.Checker
}

// NewLoginFlow constructs a LoginFlow. A nil checker assumes the network is up.
func NewLoginFlow(api authapi.Service, online connectivity.Checker) *LoginFlow {
	if online == nil {
		online = connectivity.Static(true)
	}
	return &LoginFlow{api: api, online: online}
}

// Submit runs one submission. The form is updated in place on every path; the
// returned error reports why a submission did not succeed.
func (l *LoginFlow) Submit(ctx context.Context, sess Session, form *LoginForm) error {
	form.begin()

	resp, err := l.api.Login(ctx, authapi.Credentials{
		Email:    strings.TrimSpace(form.Email),
		Password: form.Password,
	})
	if err != nil {
		l.failFrom(ctx, form, err)
		return err
	}

	err = sess.Authenticate(ctx, resp.Token, func() {
		form.Phase = PhaseSuccess
		form.Email = ""
		form.Password = ""
		form.Error = nil
		form.Disabled = false
		form.Redirect = true
		form.RedirectTo = l.target(sess, form.From)
	})
	if err != nil {
		form.fail(nil, MsgLoginFailed)
		return fmt.Errorf("forms: persist session: %w", err)
	}
	return nil
}

func (l *LoginFlow) failFrom(ctx context.Context, form *LoginForm, err error) {
	if body, ok := serverBody(err); ok {
		form.fail(body, body.LoginErr)
		return
	}
	if errors.Is(err, context.Canceled) {
		// the visitor navigated away; nobody is left to notify
		form.fail(nil, "")
		return
	}
	if authapi.IsTransport(err) {
		form.fail(nil, transportMessage(ctx, l.online, MsgLoginFailed))
		return
	}
	form.fail(nil, MsgLoginFailed)
}

func (l *LoginFlow) target(sess Session, from string) string {
	if loc, ok := guard.SafeFrom(from); ok {
		return loc.String()
	}
	user, err := sess.UserInfo()
	if err != nil {
		return guard.LoginPath
	}
	return rbac.DashboardPath(user.Role)
}
