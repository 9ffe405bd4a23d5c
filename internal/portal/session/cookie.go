package session

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gorilla/securecookie"
)

const (
	defaultCookieName = "portal_session"
	defaultCookiePath = "/"
)

// CookieBackend stores the full record in a signed (and optionally encrypted) cookie.
type CookieBackend struct {
	opts  CookieOptions
	codec *securecookie.SecureCookie
}

// NewCookieBackend builds a cookie backend. A hash key is mandatory; the block key enables encryption.
func NewCookieBackend(opts CookieOptions, hashKey, blockKey []byte) (*CookieBackend, error) {
	if len(hashKey) == 0 {
		return nil, fmt.Errorf("%w: hash key is required", ErrInvalidConfig)
	}
	if len(blockKey) == 0 {
		blockKey = nil
	}
	codec := securecookie.New(hashKey, blockKey)
	codec.SetSerializer(securecookie.JSONEncoder{})
	// record expiry is enforced by the store
	codec.MaxAge(0)
	return &CookieBackend{
		opts:  opts.withDefaults(),
		codec: codec,
	}, nil
}

// Read decodes the session cookie. Undecodable cookies are treated as absent.
func (b *CookieBackend) Read(_ context.Context, r *http.Request) (*Record, error) {
	cookie, err := r.Cookie(b.opts.Name)
	if err != nil || cookie.Value == "" {
		return nil, nil
	}
	var rec Record
	if err := b.codec.Decode(b.opts.Name, cookie.Value, &rec); err != nil {
		return nil, nil
	}
	return &rec, nil
}

// Write encodes the record into the response cookie.
func (b *CookieBackend) Write(_ context.Context, w http.ResponseWriter, rec *Record) error {
	if rec == nil {
		return fmt.Errorf("session: nil record")
	}
	encoded, err := b.codec.Encode(b.opts.Name, rec)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	http.SetCookie(w, b.opts.cookie(encoded, rec.ExpiresAt))
	return nil
}

// Clear expires the session cookie.
func (b *CookieBackend) Clear(_ context.Context, w http.ResponseWriter, _ *http.Request) error {
	http.SetCookie(w, b.opts.expired())
	return nil
}
