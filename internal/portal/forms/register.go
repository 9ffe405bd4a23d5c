package forms

import (
	"context"
	"errors"
	"strings"

	"finitefield.org/hanko-portal/internal/portal/authapi"
	"finitefield.org/hanko-portal/internal/portal/connectivity"
)

// RegisterForm holds the registration form values and submission state.
type RegisterForm struct {
	Name     string
	Email    string
	Password string

	Phase    Phase
	Disabled bool
	Error    *authapi.ErrorBody
	Notices  []Notice
}

// Button derives the submit control from the form state.
func (f *RegisterForm) Button() Button {
	return buttonFor(f.Phase, f.Disabled, registerLabel)
}

// FieldError returns the inline error for name, email or password.
func (f *RegisterForm) FieldError(field string) string {
	switch field {
	case "name", "email", "password":
		return f.Error.Field(field)
	}
	return ""
}

// KeepPassword reports whether the typed password should survive a re-render.
// It is never echoed; the browser keeps its own value.
func (f *RegisterForm) KeepPassword() bool {
	return f.Phase == PhaseFailed
}

func (f *RegisterForm) begin() {
	f.Phase = PhaseSubmitting
	f.Disabled = true
	f.Error = nil
	f.Notices = nil
}

func (f *RegisterForm) fail(body *authapi.ErrorBody, notice string) {
	f.Phase = PhaseFailed
	f.Disabled = false
	f.Error = body
	if notice != "" {
		f.Notices = append(f.Notices, errorNotice(notice))
	}
}

// RegisterFlow submits registration forms to the auth API.
type RegisterFlow struct {
	api    authapi.Service
	online connectivity.Checker
}

// NewRegisterFlow constructs a RegisterFlow. A nil checker assumes the network is up.
func NewRegisterFlow(api authapi.Service, online connectivity.Checker) *RegisterFlow {
	if online == nil {
		online = connectivity.Static(true)
	}
	return &RegisterFlow{api: api, online: online}
}

// Submit runs one registration. Success leaves the visitor signed out.
func (r *RegisterFlow) Submit(ctx context.Context, form *RegisterForm) error {
	form.begin()

	resp, err := r.api.Register(ctx, authapi.Registration{
		Name:     strings.TrimSpace(form.Name),
		Email:    strings.TrimSpace(form.Email),
		Password: form.Password,
	})
	if err != nil {
		r.failFrom(ctx, form, err)
		return err
	}

	message := strings.TrimSpace(resp.Message)
	if message == "" {
		message = defaultRegisterSuccess
	}
	form.Phase = PhaseSuccess
	form.Disabled = false
	form.Error = nil
	form.Name = ""
	form.Email = ""
	form.Password = ""
	form.Notices = append(form.Notices, NewNotice(NoticeSuccess, message))
	return nil
}

func (r *RegisterFlow) failFrom(ctx context.Context, form *RegisterForm, err error) {
	if body, ok := serverBody(err); ok {
		form.fail(body, body.Message)
		return
	}
	if errors.Is(err, context.Canceled) {
		form.fail(nil, "")
		return
	}
	if authapi.IsTransport(err) {
		form.fail(nil, transportMessage(ctx, r.online, MsgRegistrationFailed))
		return
	}
	form.fail(nil, MsgRegistrationFailed)
}
