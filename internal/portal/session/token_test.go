package session

import (
	"errors"
	"testing"
	"time"
)

func TestDecoderReadsUnverifiedClaims(t *testing.T) {
	clock := &fixedClock{current: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)}
	token := signToken(t, nil, adminClaims(clock.current.Add(time.Hour)))

	claims, err := NewTokenDecoder(nil, clock.Now).Decode(token)
	if err != nil {
		t.Fatalf("Decode error: %v", err)
	}
	user := claims.User()
	if user.ID != "u-1" || user.Role != "admin" || user.Email != "ada@example.com" || user.Name != "Ada" {
		t.Fatalf("unexpected user: %+v", user)
	}
}

func TestDecoderRejectsExpiredToken(t *testing.T) {
	clock := &fixedClock{current: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)}
	token := signToken(t, nil, adminClaims(clock.current.Add(-time.Minute)))

	if _, err := NewTokenDecoder(nil, clock.Now).Decode(token); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
	if _, err := NewTokenDecoder([]byte("issuer-secret"), clock.Now).Decode(token); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired from verifying decoder, got %v", err)
	}
}

func TestDecoderRejectsMissingRoleAndGarbage(t *testing.T) {
	claims := adminClaims(time.Time{})
	claims.Role = ""
	token := signToken(t, nil, claims)

	decoder := NewTokenDecoder(nil, nil)
	if _, err := decoder.Decode(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for missing role, got %v", err)
	}
	if _, err := decoder.Decode("not-a-jwt"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for garbage, got %v", err)
	}
	if _, err := decoder.Decode("  "); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for empty token, got %v", err)
	}
}

func TestDecoderVerifiesSignatureWhenSecretConfigured(t *testing.T) {
	token := signToken(t, []byte("issuer-secret"), adminClaims(time.Time{}))

	if _, err := NewTokenDecoder([]byte("issuer-secret"), nil).Decode(token); err != nil {
		t.Fatalf("expected valid signature, got %v", err)
	}
	if _, err := NewTokenDecoder([]byte("other-secret"), nil).Decode(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for bad signature, got %v", err)
	}
}
