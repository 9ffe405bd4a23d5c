package session

import (
	"net/http"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type fixedClock struct {
	current time.Time
}

func (c *fixedClock) Now() time.Time {
	return c.current
}

var (
	testHashKey  = []byte("12345678901234567890123456789012")
	testBlockKey = []byte("abcdefghijklmnopqrstuv0123456789")
)

func signToken(t *testing.T, secret []byte, claims Claims) string {
	t.Helper()
	if secret == nil {
		secret = []byte("issuer-secret")
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

func adminClaims(expires time.Time) Claims {
	claims := Claims{
		UserID: "u-1",
		Name:   "Ada",
		Email:  "ada@example.com",
		Role:   "admin",
	}
	if !expires.IsZero() {
		claims.ExpiresAt = jwt.NewNumericDate(expires)
	}
	return claims
}

func findCookie(cookies []*http.Cookie, name string) *http.Cookie {
	for _, c := range cookies {
		if c.Name == name {
			return c
		}
	}
	return nil
}
