package session

import (
	"context"
	"net/http"
	"time"
)

// User captures the identity decoded from the auth token.
type User struct {
	ID    string `json:"_id"`
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
	Role  string `json:"role"`
}

// Record is the persisted session payload.
type Record struct {
	ID         string    `json:"id,omitempty"`
	Token      string    `json:"token"`
	User       *User     `json:"user,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
	LastActive time.Time `json:"lastActive"`
	ExpiresAt  time.Time `json:"expiresAt,omitempty"`
}

func (r *Record) clone() *Record {
	if r == nil {
		return nil
	}
	copied := *r
	if r.User != nil {
		u := *r.User
		copied.User = &u
	}
	return &copied
}

// Backend persists session records on behalf of a browser. Read returns a nil
// record without error when the browser holds no session.
type Backend interface {
	Read(ctx context.Context, r *http.Request) (*Record, error)
	Write(ctx context.Context, w http.ResponseWriter, rec *Record) error
	Clear(ctx context.Context, w http.ResponseWriter, r *http.Request) error
}

// CookieOptions describes the browser cookie shared by both backends.
type CookieOptions struct {
	Name     string
	Path     string
	Domain   string
	Secure   bool
	HTTPOnly *bool
	SameSite http.SameSite
	Now      func() time.Time
}

func (o CookieOptions) withDefaults() CookieOptions {
	if o.Name == "" {
		o.Name = defaultCookieName
	}
	if o.Path == "" {
		o.Path = defaultCookiePath
	}
	if o.SameSite == http.SameSiteDefaultMode {
		o.SameSite = http.SameSiteLaxMode
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

func (o CookieOptions) httpOnly() bool {
	if o.HTTPOnly == nil {
		return true
	}
	return *o.HTTPOnly
}

func (o CookieOptions) cookie(value string, expires time.Time) *http.Cookie {
	c := &http.Cookie{
		Name:     o.Name,
		Value:    value,
		Path:     o.Path,
		Domain:   o.Domain,
		Secure:   o.Secure,
		HttpOnly: o.httpOnly(),
		SameSite: o.SameSite,
	}
	if !expires.IsZero() {
		expiry := expires.UTC()
		c.Expires = expiry
		remaining := expiry.Sub(o.Now())
		if remaining <= 0 {
			c.MaxAge = -1
		} else {
			c.MaxAge = int(remaining.Round(time.Second).Seconds())
		}
	}
	return c
}

func (o CookieOptions) expired() *http.Cookie {
	return &http.Cookie{
		Name:     o.Name,
		Value:    "",
		Path:     o.Path,
		Domain:   o.Domain,
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		Secure:   o.Secure,
		HttpOnly: o.httpOnly(),
		SameSite: o.SameSite,
	}
}
