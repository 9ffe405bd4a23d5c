package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/securecookie"
	"github.com/redis/go-redis/v9"
)

const defaultRedisPrefix = "portal:session:"

// ErrRedisUnavailable wraps failures talking to Redis.
var ErrRedisUnavailable = errors.New("session: redis unavailable")

// RedisBackend stores records in Redis; the browser only holds a signed session id.
type RedisBackend struct {
	client   redis.Cmdable
	opts     CookieOptions
	codec    *securecookie.SecureCookie
	prefix   string
	fallback time.Duration
}

// RedisConfig configures NewRedisBackend.
type RedisConfig struct {
	Client  redis.Cmdable
	Cookie  CookieOptions
	HashKey []byte
	Prefix  string
	// TTL applies to records without an expiry.
	TTL time.Duration
}

// NewRedisBackend builds a Redis-backed session backend.
func NewRedisBackend(cfg RedisConfig) (*RedisBackend, error) {
	if cfg.Client == nil {
		return nil, fmt.Errorf("%w: redis client is required", ErrInvalidConfig)
	}
	if len(cfg.HashKey) == 0 {
		return nil, fmt.Errorf("%w: hash key is required", ErrInvalidConfig)
	}
	prefix := cfg.Prefix
	if prefix == "" {
		prefix = defaultRedisPrefix
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = defaultLifetime
	}
	codec := securecookie.New(cfg.HashKey, nil)
	codec.MaxAge(0)
	return &RedisBackend{
		client:   cfg.Client,
		opts:     cfg.Cookie.withDefaults(),
		codec:    codec,
		prefix:   prefix,
		fallback: ttl,
	}, nil
}

// Read resolves the session id cookie and loads the record.
func (b *RedisBackend) Read(ctx context.Context, r *http.Request) (*Record, error) {
	id, ok := b.sessionID(r)
	if !ok {
		return nil, nil
	}
	raw, err := b.client.Get(ctx, b.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get: %v", ErrRedisUnavailable, err)
	}
	var rec Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("session: decode redis record: %w", err)
	}
	rec.ID = id
	return &rec, nil
}

// Write stores the record and issues the id cookie. Records without an id get a fresh one.
func (b *RedisBackend) Write(ctx context.Context, w http.ResponseWriter, rec *Record) error {
	if rec == nil {
		return fmt.Errorf("session: nil record")
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("session: encode redis record: %w", err)
	}

	ttl := b.fallback
	if !rec.ExpiresAt.IsZero() {
		ttl = rec.ExpiresAt.Sub(b.opts.Now())
		if ttl <= 0 {
			return ErrExpired
		}
	}
	if err := b.client.Set(ctx, b.key(rec.ID), payload, ttl).Err(); err != nil {
		return fmt.Errorf("%w: set: %v", ErrRedisUnavailable, err)
	}

	encoded, err := b.codec.Encode(b.opts.Name, rec.ID)
	if err != nil {
		return fmt.Errorf("encode session id: %w", err)
	}
	http.SetCookie(w, b.opts.cookie(encoded, rec.ExpiresAt))
	return nil
}

// Clear deletes the stored record and expires the id cookie.
func (b *RedisBackend) Clear(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	http.SetCookie(w, b.opts.expired())
	id, ok := b.sessionID(r)
	if !ok {
		return nil
	}
	if err := b.client.Del(ctx, b.key(id)).Err(); err != nil {
		return fmt.Errorf("%w: del: %v", ErrRedisUnavailable, err)
	}
	return nil
}

func (b *RedisBackend) sessionID(r *http.Request) (string, bool) {
	if r == nil {
		return "", false
	}
	cookie, err := r.Cookie(b.opts.Name)
	if err != nil || cookie.Value == "" {
		return "", false
	}
	var id string
	if err := b.codec.Decode(b.opts.Name, cookie.Value, &id); err != nil || id == "" {
		return "", false
	}
	return id, true
}

func (b *RedisBackend) key(id string) string {
	return b.prefix + id
}
