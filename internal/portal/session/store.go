package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
)

const (
	defaultLifetime    = 12 * time.Hour
	defaultIdleTimeout = 30 * time.Minute
	touchInterval      = time.Minute
)

// ErrExpired indicates the stored session is no longer valid due to idle, absolute or token expiry.
var ErrExpired = errors.New("session expired")

// ErrInvalidConfig indicates the store was initialised with missing or invalid options.
var ErrInvalidConfig = errors.New("session: invalid config")

// ErrNoSession is returned by UserInfo when no user has been persisted.
var ErrNoSession = errors.New("session: no authenticated user")

// Config controls lifecycle limits for the store.
type Config struct {
	Backend     Backend
	Decoder     TokenDecoder
	Lifetime    time.Duration
	IdleTimeout time.Duration
	Now         func() time.Time
}

// Store loads and persists the per-browser session through a Backend.
type Store struct {
	backend     Backend
	decoder     TokenDecoder
	lifetime    time.Duration
	idleTimeout time.Duration
	now         func() time.Time
}

// NewStore constructs a Store using the provided configuration.
func NewStore(cfg Config) (*Store, error) {
	if cfg.Backend == nil {
		return nil, fmt.Errorf("%w: backend is required", ErrInvalidConfig)
	}
	if cfg.Lifetime <= 0 {
		cfg.Lifetime = defaultLifetime
	}
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = defaultIdleTimeout
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Decoder == nil {
		cfg.Decoder = NewTokenDecoder(nil, cfg.Now)
	}
	return &Store{
		backend:     cfg.Backend,
		decoder:     cfg.Decoder,
		lifetime:    cfg.Lifetime,
		idleTimeout: cfg.IdleTimeout,
		now:         cfg.Now,
	}, nil
}

// Load retrieves the session for the request. It must run before the response
// body is written since activity refreshes rewrite the cookie. Expired
// sessions are reported with ErrExpired and no session.
func (s *Store) Load(w http.ResponseWriter, r *http.Request) (*Session, error) {
	ctx := r.Context()
	rec, err := s.backend.Read(ctx, r)
	if err != nil {
		return nil, err
	}
	sess := s.New(w, r)
	if rec == nil {
		return sess, nil
	}

	now := s.now().UTC()
	if s.isExpired(rec, now) {
		return nil, ErrExpired
	}
	if _, err := s.decoder.Decode(rec.Token); err != nil {
		// covers tokens that expired while the record was still live
		return nil, ErrExpired
	}

	sess.rec = rec
	if now.Sub(rec.LastActive) >= touchInterval {
		touched := rec.clone()
		touched.LastActive = now
		if err := s.backend.Write(ctx, w, touched); err != nil {
			return nil, fmt.Errorf("session: refresh activity: %w", err)
		}
		sess.rec = touched
	}
	return sess, nil
}

// New returns an empty session bound to the request and response.
func (s *Store) New(w http.ResponseWriter, r *http.Request) *Session {
	return &Session{store: s, w: w, r: r}
}

func (s *Store) isExpired(rec *Record, now time.Time) bool {
	if !rec.ExpiresAt.IsZero() && !now.Before(rec.ExpiresAt.UTC()) {
		return true
	}
	last := rec.LastActive
	if last.IsZero() {
		last = rec.CreatedAt
	}
	return s.idleTimeout > 0 && !last.IsZero() && now.Sub(last) > s.idleTimeout
}

// Session is the explicit session handle for one request.
type Session struct {
	store *Store
	w     http.ResponseWriter
	r     *http.Request
	rec   *Record
}

// Authenticate decodes the token, persists token and user, then calls onDone.
// onDone runs only after the write completed; on failure it is not called and
// the session keeps its previous state.
func (s *Session) Authenticate(ctx context.Context, token string, onDone func()) error {
	claims, err := s.store.decoder.Decode(token)
	if err != nil {
		return err
	}

	now := s.store.now().UTC()
	expires := now.Add(s.store.lifetime)
	if claims.ExpiresAt != nil && claims.ExpiresAt.Time.Before(expires) {
		expires = claims.ExpiresAt.Time.UTC()
	}
	user := claims.User()
	rec := &Record{
		Token:      token,
		User:       &user,
		CreatedAt:  now,
		LastActive: now,
		ExpiresAt:  expires,
	}

	if err := s.store.backend.Write(ctx, s.w, rec); err != nil {
		return fmt.Errorf("session: persist: %w", err)
	}
	s.rec = rec
	if onDone != nil {
		onDone()
	}
	return nil
}

// IsAuthenticated reports whether a valid-looking token is present.
func (s *Session) IsAuthenticated() bool {
	if s == nil || s.rec == nil || s.rec.Token == "" {
		return false
	}
	_, err := s.store.decoder.Decode(s.rec.Token)
	return err == nil
}

// UserInfo returns the last persisted user.
func (s *Session) UserInfo() (User, error) {
	if s == nil || s.rec == nil || s.rec.User == nil {
		return User{}, ErrNoSession
	}
	return *s.rec.User, nil
}

// ExpiresAt returns the absolute expiry of the persisted session.
func (s *Session) ExpiresAt() time.Time {
	if s == nil || s.rec == nil {
		return time.Time{}
	}
	return s.rec.ExpiresAt
}

// Signout clears the persisted session.
func (s *Session) Signout(ctx context.Context) error {
	if err := s.store.backend.Clear(ctx, s.w, s.r); err != nil {
		return fmt.Errorf("session: clear: %w", err)
	}
	s.rec = nil
	return nil
}
