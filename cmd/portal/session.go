package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gorilla/securecookie"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"finitefield.org/hanko-portal/internal/portal/config"
	"finitefield.org/hanko-portal/internal/portal/session"
)

// buildSessionStore wires the configured backend. The returned func releases it.
func buildSessionStore(ctx context.Context, cfg config.Config, logger *zap.Logger) (*session.Store, func(), error) {
	sc := cfg.Session
	hashKey := []byte(sc.HashKey)
	if len(hashKey) == 0 {
		// local only, validation requires a key elsewhere
		hashKey = securecookie.GenerateRandomKey(32)
		logger.Warn("PORTAL_SESSION_HASH_KEY not set; using an ephemeral key, sessions end on restart")
	}

	cookie := session.CookieOptions{
		Name:     sc.CookieName,
		Secure:   sc.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	}

	var (
		backend session.Backend
		release = func() {}
	)
	switch sc.Store {
	case config.StoreRedis:
		opts, err := redis.ParseURL(sc.RedisURL)
		if err != nil {
			return nil, nil, fmt.Errorf("parse redis url: %w", err)
		}
		client := redis.NewClient(opts)
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("%w: ping: %v", session.ErrRedisUnavailable, err)
		}
		rb, err := session.NewRedisBackend(session.RedisConfig{
			Client:  client,
			Cookie:  cookie,
			HashKey: hashKey,
			Prefix:  sc.RedisPrefix,
			TTL:     sc.Lifetime,
		})
		if err != nil {
			_ = client.Close()
			return nil, nil, err
		}
		backend = rb
		release = func() {
			if err := client.Close(); err != nil {
				logger.Warn("close redis client", zap.Error(err))
			}
		}
	default:
		cb, err := session.NewCookieBackend(cookie, hashKey, []byte(sc.BlockKey))
		if err != nil {
			return nil, nil, err
		}
		backend = cb
	}

	var secret []byte
	if sc.TokenSecret != "" {
		secret = []byte(sc.TokenSecret)
	}
	store, err := session.NewStore(session.Config{
		Backend:     backend,
		Decoder:     session.NewTokenDecoder(secret, nil),
		Lifetime:    sc.Lifetime,
		IdleTimeout: sc.IdleTimeout,
	})
	if err != nil {
		release()
		return nil, nil, err
	}
	return store, release, nil
}
