package authapi

import (
	"errors"
	"fmt"
	"strings"
)

// ErrMalformedResponse indicates a 2xx response that could not be used.
var ErrMalformedResponse = errors.New("authapi: malformed response")

// ErrorBody is the structured error payload returned by the auth API.
// Every field is optional.
type ErrorBody struct {
	LoginErr string `json:"loginErr,omitempty"`
	Message  string `json:"message,omitempty"`
	Name     string `json:"name,omitempty"`
	Email    string `json:"email,omitempty"`
	Password string `json:"password,omitempty"`
}

// Field returns the inline error for the named form field.
func (b *ErrorBody) Field(name string) string {
	if b == nil {
		return ""
	}
	switch name {
	case "name":
		return b.Name
	case "email":
		return b.Email
	case "password":
		return b.Password
	case "message":
		return b.Message
	}
	return ""
}

// ServerError is returned when the API answered with a non-2xx status.
type ServerError struct {
	Op     string
	Status int
	Body   ErrorBody
	// Raw holds the response body when it was not a JSON error payload.
	Raw string
}

func (e *ServerError) Error() string {
	detail := e.Body.LoginErr
	if detail == "" {
		detail = e.Body.Message
	}
	if detail == "" {
		detail = strings.TrimSpace(e.Raw)
	}
	if detail == "" {
		return fmt.Sprintf("authapi: %s: status %d", e.Op, e.Status)
	}
	return fmt.Sprintf("authapi: %s: status %d: %s", e.Op, e.Status, detail)
}

// TransportError is returned when no response was received.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("authapi: %s: request failed: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// AsServerError reports whether err carries a server response.
func AsServerError(err error) (*ServerError, bool) {
	var se *ServerError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}

// IsTransport reports whether err is a transport failure.
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}
