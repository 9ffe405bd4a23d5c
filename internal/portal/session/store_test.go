package session

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestStore(t *testing.T) (*Store, *fixedClock) {
	t.Helper()

	clock := &fixedClock{current: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)}
	httpOnly := true
	backend, err := NewCookieBackend(CookieOptions{
		Name:     "test_session",
		HTTPOnly: &httpOnly,
		Now:      clock.Now,
	}, testHashKey, testBlockKey)
	if err != nil {
		t.Fatalf("NewCookieBackend error: %v", err)
	}
	store, err := NewStore(Config{
		Backend:     backend,
		Lifetime:    2 * time.Hour,
		IdleTimeout: 10 * time.Minute,
		Now:         clock.Now,
	})
	if err != nil {
		t.Fatalf("NewStore error: %v", err)
	}
	return store, clock
}

func authenticatedCookie(t *testing.T, store *Store, token string) *http.Cookie {
	t.Helper()

	rec := httptest.NewRecorder()
	sess, err := store.Load(rec, httptest.NewRequest(http.MethodPost, "/login", nil))
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if err := sess.Authenticate(context.Background(), token, nil); err != nil {
		t.Fatalf("Authenticate error: %v", err)
	}
	cookie := findCookie(rec.Result().Cookies(), "test_session")
	if cookie == nil {
		t.Fatalf("expected session cookie to be set")
	}
	return cookie
}

func TestAuthenticateRunsCallbackAfterPersist(t *testing.T) {
	store, clock := newTestStore(t)

	rec := httptest.NewRecorder()
	sess, err := store.Load(rec, httptest.NewRequest(http.MethodPost, "/login", nil))
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if sess.IsAuthenticated() {
		t.Fatalf("fresh session must not be authenticated")
	}
	if _, err := sess.UserInfo(); !errors.Is(err, ErrNoSession) {
		t.Fatalf("expected ErrNoSession, got %v", err)
	}

	token := signToken(t, nil, adminClaims(clock.current.Add(time.Hour)))
	called := false
	err = sess.Authenticate(context.Background(), token, func() {
		called = true
		if !sess.IsAuthenticated() {
			t.Errorf("expected authenticated session inside completion callback")
		}
		if len(rec.Header().Values("Set-Cookie")) == 0 {
			t.Errorf("expected cookie to be written before completion callback")
		}
	})
	if err != nil {
		t.Fatalf("Authenticate error: %v", err)
	}
	if !called {
		t.Fatalf("expected completion callback")
	}

	user, err := sess.UserInfo()
	if err != nil {
		t.Fatalf("UserInfo error: %v", err)
	}
	if user.Role != "admin" || user.ID != "u-1" {
		t.Fatalf("unexpected user: %+v", user)
	}
	// token expiry caps the session lifetime
	if !sess.ExpiresAt().Equal(clock.current.Add(time.Hour)) {
		t.Fatalf("unexpected expiry: %v", sess.ExpiresAt())
	}
}

func TestLoadRestoresPersistedSession(t *testing.T) {
	store, clock := newTestStore(t)
	token := signToken(t, nil, adminClaims(clock.current.Add(time.Hour)))
	cookie := authenticatedCookie(t, store, token)

	clock.current = clock.current.Add(2 * time.Minute)
	req := httptest.NewRequest(http.MethodGet, "/admin/dashboard", nil)
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	sess, err := store.Load(rec, req)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if !sess.IsAuthenticated() {
		t.Fatalf("expected restored session to be authenticated")
	}
	if sess.rec == nil || sess.rec.Token != token {
		t.Fatalf("unexpected token restored")
	}
	if refreshed := findCookie(rec.Result().Cookies(), "test_session"); refreshed == nil {
		t.Fatalf("expected activity refresh to rewrite the cookie")
	}
}

func TestLoadReportsIdleExpiry(t *testing.T) {
	store, clock := newTestStore(t)
	cookie := authenticatedCookie(t, store, signToken(t, nil, adminClaims(time.Time{})))

	clock.current = clock.current.Add(11 * time.Minute)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookie)
	if _, err := store.Load(httptest.NewRecorder(), req); !errors.Is(err, ErrExpired) {
		t.Fatalf("expected ErrExpired after idle timeout, got %v", err)
	}
}

func TestLoadReportsTokenExpiry(t *testing.T) {
	store, clock := newTestStore(t)
	cookie := authenticatedCookie(t, store, signToken(t, nil, adminClaims(clock.current.Add(5*time.Minute))))

	clock.current = clock.current.Add(6 * time.Minute)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookie)
	if _, err := store.Load(httptest.NewRecorder(), req); !errors.Is(err, ErrExpired) {
		t.Fatalf("expected ErrExpired after token expiry, got %v", err)
	}
}

func TestLoadIgnoresTamperedCookie(t *testing.T) {
	store, _ := newTestStore(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "test_session", Value: "tampered"})
	sess, err := store.Load(httptest.NewRecorder(), req)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if sess.IsAuthenticated() {
		t.Fatalf("tampered cookie must not authenticate")
	}
}

func TestSignoutClearsCookie(t *testing.T) {
	store, clock := newTestStore(t)
	cookie := authenticatedCookie(t, store, signToken(t, nil, adminClaims(clock.current.Add(time.Hour))))

	req := httptest.NewRequest(http.MethodPost, "/logout", nil)
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	sess, err := store.Load(rec, req)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if err := sess.Signout(context.Background()); err != nil {
		t.Fatalf("Signout error: %v", err)
	}
	if sess.IsAuthenticated() {
		t.Fatalf("expected signed out session")
	}
	cleared := findCookie(rec.Result().Cookies(), "test_session")
	if cleared == nil || cleared.MaxAge >= 0 {
		t.Fatalf("expected expired cookie, got %+v", cleared)
	}
}

type failingBackend struct {
	Backend
}

func (failingBackend) Read(context.Context, *http.Request) (*Record, error) {
	return nil, nil
}

func (failingBackend) Write(context.Context, http.ResponseWriter, *Record) error {
	return errors.New("disk full")
}

func TestAuthenticateFailsLoudlyOnWriteError(t *testing.T) {
	store, err := NewStore(Config{Backend: failingBackend{}})
	if err != nil {
		t.Fatalf("NewStore error: %v", err)
	}
	sess, err := store.Load(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/login", nil))
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}

	called := false
	err = sess.Authenticate(context.Background(), signToken(t, nil, adminClaims(time.Time{})), func() { called = true })
	if err == nil {
		t.Fatalf("expected persist error")
	}
	if called {
		t.Fatalf("completion callback must not run when the write fails")
	}
	if sess.IsAuthenticated() {
		t.Fatalf("session must stay unauthenticated after a failed write")
	}
}

func TestAuthenticateRejectsUndecodableToken(t *testing.T) {
	store, _ := newTestStore(t)
	sess := store.New(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/login", nil))

	if err := sess.Authenticate(context.Background(), "garbage", func() { t.Fatalf("unexpected callback") }); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestNewStoreRequiresBackend(t *testing.T) {
	if _, err := NewStore(Config{}); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
	if _, err := NewCookieBackend(CookieOptions{}, nil, nil); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig for missing hash key, got %v", err)
	}
}
