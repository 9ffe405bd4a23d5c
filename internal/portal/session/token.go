package session

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken indicates the token could not be decoded into a usable identity.
var ErrInvalidToken = errors.New("session: invalid token")

// ErrTokenExpired indicates the token carries an exp claim in the past.
var ErrTokenExpired = errors.New("session: token expired")

// Claims mirrors the payload issued by the auth API.
type Claims struct {
	UserID string `json:"_id"`
	Name   string `json:"name,omitempty"`
	Email  string `json:"email,omitempty"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// User builds the profile persisted alongside the token.
func (c *Claims) User() User {
	return User{
		ID:    c.UserID,
		Name:  c.Name,
		Email: c.Email,
		Role:  strings.ToLower(strings.TrimSpace(c.Role)),
	}
}

// TokenDecoder turns an opaque token into claims.
type TokenDecoder interface {
	Decode(token string) (*Claims, error)
}

type jwtDecoder struct {
	secret []byte
	now    func() time.Time
}

// NewTokenDecoder returns a decoder for JWTs issued by the auth API. With an
// empty secret the signature is not checked, the portal only reads identity
// for navigation. A non-empty secret enables HMAC verification.
func NewTokenDecoder(secret []byte, now func() time.Time) TokenDecoder {
	if now == nil {
		now = time.Now
	}
	return &jwtDecoder{secret: secret, now: now}
}

func (d *jwtDecoder) Decode(token string) (*Claims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, fmt.Errorf("%w: empty token", ErrInvalidToken)
	}

	claims := &Claims{}
	if len(d.secret) == 0 {
		if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
		}
		if claims.ExpiresAt != nil && !d.now().Before(claims.ExpiresAt.Time) {
			return nil, ErrTokenExpired
		}
	} else {
		parser := jwt.NewParser(
			jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"}),
			jwt.WithTimeFunc(d.now),
		)
		_, err := parser.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
			return d.secret, nil
		})
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
		}
	}

	if strings.TrimSpace(claims.Role) == "" {
		return nil, fmt.Errorf("%w: missing role claim", ErrInvalidToken)
	}
	return claims, nil
}
