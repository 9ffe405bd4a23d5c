package testutil

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"finitefield.org/hanko-portal/internal/portal/authapi"
	"finitefield.org/hanko-portal/internal/portal/connectivity"
	"finitefield.org/hanko-portal/internal/portal/httpserver"
	"finitefield.org/hanko-portal/internal/portal/httpserver/middleware"
	"finitefield.org/hanko-portal/internal/portal/session"
)

// SessionHashKey signs session cookies issued by NewServer.
var SessionHashKey = []byte("testutil-hash-key-0123456789abcdef")

// ServerOption customises the HTTP server configuration for tests.
type ServerOption func(*httpserver.Config)

// WithAPI wires a custom auth API implementation.
func WithAPI(api authapi.Service) ServerOption {
	return func(cfg *httpserver.Config) {
		cfg.API = api
	}
}

// WithConnectivity overrides the connectivity checker.
func WithConnectivity(checker connectivity.Checker) ServerOption {
	return func(cfg *httpserver.Config) {
		cfg.Connectivity = checker
	}
}

// WithSessions overrides the session store.
func WithSessions(store middleware.SessionStore) ServerOption {
	return func(cfg *httpserver.Config) {
		cfg.Sessions = store
	}
}

// WithRequestTimeout bounds each request handled by the server.
func WithRequestTimeout(d time.Duration) ServerOption {
	return func(cfg *httpserver.Config) {
		cfg.RequestTimeout = d
	}
}

// WithLogger sets the server logger.
func WithLogger(logger *zap.Logger) ServerOption {
	return func(cfg *httpserver.Config) {
		cfg.Logger = logger
	}
}

// NewSessionStore returns a cookie-backed store signed with SessionHashKey.
func NewSessionStore(t testing.TB) *session.Store {
	t.Helper()

	backend, err := session.NewCookieBackend(session.CookieOptions{}, SessionHashKey, nil)
	if err != nil {
		t.Fatalf("session backend: %v", err)
	}
	store, err := session.NewStore(session.Config{Backend: backend})
	if err != nil {
		t.Fatalf("session store: %v", err)
	}
	return store
}

// NewServer constructs an httptest server running the portal HTTP stack with sensible defaults.
func NewServer(t testing.TB, opts ...ServerOption) *httptest.Server {
	t.Helper()

	cfg := httpserver.Config{
		Address:      ":0",
		Sessions:     NewSessionStore(t),
		API:          &authapi.StaticService{},
		Connectivity: connectivity.Static(true),
		CSRF: middleware.CSRFConfig{
			CookieName: "portal_csrf",
			HeaderName: "X-CSRF-Token",
		},
	}

	for _, opt := range opts {
		opt(&cfg)
	}

	srv, err := httpserver.New(cfg)
	if err != nil {
		t.Fatalf("httpserver.New: %v", err)
	}
	ts := httptest.NewServer(srv.Handler)
	t.Cleanup(ts.Close)
	return ts
}

// IssueToken returns a JWT shaped like the ones the auth API hands out.
func IssueToken(t testing.TB, role string) string {
	t.Helper()

	claims := session.Claims{
		UserID: "user-1",
		Name:   "Test User",
		Email:  "tester@example.com",
		Role:   role,
	}
	claims.ExpiresAt = jwt.NewNumericDate(time.Now().Add(time.Hour))
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("auth-api-secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}
