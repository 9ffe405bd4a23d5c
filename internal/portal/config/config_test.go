package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadWithDefaults(t *testing.T) {
	cfg, err := Load(WithEnvMap(nil), WithoutSystemEnv(), WithEnvFile(""))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Server.Address != ":8080" {
		t.Errorf("expected default address :8080, got %s", cfg.Server.Address)
	}
	if cfg.API.BaseURL != defaultAPIBaseURL {
		t.Errorf("unexpected api base url: %s", cfg.API.BaseURL)
	}
	if cfg.API.OnlineCheckInterval != 3*time.Second {
		t.Errorf("unexpected online check interval: %s", cfg.API.OnlineCheckInterval)
	}
	if len(cfg.API.OnlineCheckTargets) != 2 || cfg.API.OnlineCheckTargets[0] != "1.1.1.1:53" {
		t.Errorf("unexpected online check targets: %v", cfg.API.OnlineCheckTargets)
	}
	if cfg.Server.RequestTimeout != 30*time.Second {
		t.Errorf("unexpected request timeout: %s", cfg.Server.RequestTimeout)
	}
	if cfg.Session.Store != StoreCookie {
		t.Errorf("expected cookie store by default, got %s", cfg.Session.Store)
	}
	if cfg.Session.CookieName != "portal_session" {
		t.Errorf("unexpected session cookie name: %s", cfg.Session.CookieName)
	}
	if cfg.Session.CookieSecure {
		t.Errorf("expected insecure cookies in local environment")
	}
	if !cfg.IsLocal() {
		t.Errorf("expected local environment by default")
	}
}

func TestLoadWithOverrides(t *testing.T) {
	env := map[string]string{
		"PORTAL_ENV":                   "production",
		"PORTAL_HTTP_ADDR":             ":9090",
		"PORTAL_API_BASE_URL":          "https://auth.example.com/api",
		"PORTAL_API_TIMEOUT":           "5s",
		"PORTAL_SESSION_STORE":         "REDIS",
		"PORTAL_REDIS_URL":             "redis://127.0.0.1:6379/1",
		"PORTAL_SESSION_HASH_KEY":      "0123456789abcdef0123456789abcdef",
		"PORTAL_SESSION_BLOCK_KEY":     "abcdefghijklmnop",
		"PORTAL_SESSION_LIFETIME":      "2h",
		"PORTAL_ONLINE_CHECK_INTERVAL": "10s",
		"PORTAL_ONLINE_CHECK_TARGETS":  " 10.0.0.1:53 , gateway.internal:80 ",
		"PORTAL_HTTP_REQUEST_TIMEOUT":  "12s",
	}

	cfg, err := Load(WithEnvMap(env), WithoutSystemEnv(), WithEnvFile(""))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Server.Address != ":9090" {
		t.Errorf("unexpected address: %s", cfg.Server.Address)
	}
	if cfg.API.Timeout != 5*time.Second {
		t.Errorf("unexpected api timeout: %s", cfg.API.Timeout)
	}
	if cfg.Session.Store != StoreRedis {
		t.Errorf("expected redis store, got %s", cfg.Session.Store)
	}
	if cfg.Session.Lifetime != 2*time.Hour {
		t.Errorf("unexpected lifetime: %s", cfg.Session.Lifetime)
	}
	if !cfg.Session.CookieSecure {
		t.Errorf("expected secure cookies outside local environment")
	}
	if cfg.API.OnlineCheckInterval != 10*time.Second {
		t.Errorf("unexpected online check interval: %s", cfg.API.OnlineCheckInterval)
	}
	targets := cfg.API.OnlineCheckTargets
	if len(targets) != 2 || targets[0] != "10.0.0.1:53" || targets[1] != "gateway.internal:80" {
		t.Errorf("unexpected online check targets: %v", targets)
	}
	if cfg.Server.RequestTimeout != 12*time.Second {
		t.Errorf("unexpected request timeout: %s", cfg.Server.RequestTimeout)
	}
}

func TestLoadValidation(t *testing.T) {
	env := map[string]string{
		"PORTAL_ENV":                  "production",
		"PORTAL_API_BASE_URL":         "ftp://nowhere",
		"PORTAL_SESSION_STORE":        "redis",
		"PORTAL_SESSION_BLOCK_KEY":    "short",
		"PORTAL_ONLINE_CHECK_TARGETS": "no-port",
		"PORTAL_HTTP_REQUEST_TIMEOUT": "-1s",
	}

	_, err := Load(WithEnvMap(env), WithoutSystemEnv(), WithEnvFile(""))
	var validationErr *ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}

	want := map[string]bool{
		"PORTAL_API_BASE_URL":         true,
		"PORTAL_REDIS_URL":            true,
		"PORTAL_SESSION_HASH_KEY":     true,
		"PORTAL_SESSION_BLOCK_KEY":    true,
		"PORTAL_ONLINE_CHECK_TARGETS": true,
		"PORTAL_HTTP_REQUEST_TIMEOUT": true,
	}
	fields := validationErr.Fields()
	if len(fields) != len(want) {
		t.Fatalf("unexpected fields: %v", fields)
	}
	for _, field := range fields {
		if !want[field] {
			t.Errorf("unexpected invalid field %s", field)
		}
	}
}

func TestLoadReadsDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	content := "PORTAL_HTTP_ADDR=:7070\nPORTAL_LOG_LEVEL=debug\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}

	cfg, err := Load(WithEnvFile(path), WithoutSystemEnv(), WithEnvMap(map[string]string{
		"PORTAL_LOG_LEVEL": "warn",
	}))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Server.Address != ":7070" {
		t.Errorf("expected dotenv address, got %s", cfg.Server.Address)
	}
	if cfg.LogLevel != "warn" {
		t.Errorf("expected explicit map to win over dotenv, got %s", cfg.LogLevel)
	}
}

func TestLoadIgnoresMissingDotEnv(t *testing.T) {
	_, err := Load(WithEnvFile(filepath.Join(t.TempDir(), "missing.env")), WithoutSystemEnv())
	if err != nil {
		t.Fatalf("expected missing dotenv to be ignored, got %v", err)
	}
}
