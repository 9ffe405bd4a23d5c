// Package forms models the login and registration forms as small state machines
// driven by submissions to the auth API.
package forms

import (
	"context"
	"time"

	"finitefield.org/hanko-portal/internal/portal/authapi"
	"finitefield.org/hanko-portal/internal/portal/connectivity"
	"finitefield.org/hanko-portal/internal/portal/rbac"
	"finitefield.org/hanko-portal/internal/portal/session"
)

// Notification texts shown when no response was received.
const (
	MsgOffline             = "Internet connection failed!"
	MsgLoginFailed         = "Login failed! Please try again."
	MsgRegistrationFailed  = "Registration failed! Please try again."
	noticeAutoClose        = 3 * time.Second
	loginLabel             = "Login"
	registerLabel          = "Register"
	defaultRegisterSuccess = "Registration successful!"
)

// Phase is the position of a form in its submission lifecycle.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseSubmitting
	PhaseSuccess
	PhaseFailed
)

func (p Phase) String() string {
	switch p {
	case PhaseSubmitting:
		return "submitting"
	case PhaseSuccess:
		return "success"
	case PhaseFailed:
		return "failed"
	default:
		return "idle"
	}
}

// NoticeLevel selects the notification style.
type NoticeLevel string

const (
	NoticeSuccess NoticeLevel = "success"
	NoticeError   NoticeLevel = "error"
)

// Notice is a transient notification.
type Notice struct {
	Level     NoticeLevel
	Text      string
	AutoClose time.Duration
}

// NewNotice builds a notice that closes after three seconds.
func NewNotice(level NoticeLevel, text string) Notice {
	return Notice{Level: level, Text: text, AutoClose: noticeAutoClose}
}

func errorNotice(text string) Notice {
	return NewNotice(NoticeError, text)
}

// Button is the submit control derived from the form state.
type Button struct {
	Label    string
	Loading  bool
	Disabled bool
}

func buttonFor(phase Phase, disabled bool, label string) Button {
	if phase == PhaseSubmitting {
		return Button{Loading: true, Disabled: true}
	}
	return Button{Label: label, Disabled: disabled}
}

// Session is the subset of the session handle used by the flows.
type Session interface {
	IsAuthenticated() bool
	UserInfo() (session.User, error)
	Authenticate(ctx context.Context, token string, onDone func()) error
}

// AlreadyAuthenticated returns the dashboard of a signed-in visitor.
func AlreadyAuthenticated(sess Session) (string, bool) {
	if sess == nil || !sess.IsAuthenticated() {
		return "", false
	}
	user, err := sess.UserInfo()
	if err != nil {
		return "", false
	}
	return rbac.DashboardPath(user.Role), true
}

func transportMessage(ctx context.Context, checker connectivity.Checker, fallback string) string {
	if checker != nil && !checker.Online(ctx) {
		return MsgOffline
	}
	return fallback
}

// serverBody copies the structured error body out of err.
func serverBody(err error) (*authapi.ErrorBody, bool) {
	se, ok := authapi.AsServerError(err)
	if !ok {
		return nil, false
	}
	body := se.Body
	return &body, true
}
