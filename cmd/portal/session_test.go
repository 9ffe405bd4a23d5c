package main

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"finitefield.org/hanko-portal/internal/portal/config"
	"finitefield.org/hanko-portal/internal/portal/session"
)

func TestBuildSessionStoreCookie(t *testing.T) {
	cfg, err := config.Load(config.WithoutSystemEnv(), config.WithEnvFile(""), config.WithEnvMap(map[string]string{}))
	require.NoError(t, err)

	store, release, err := buildSessionStore(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	require.NotNil(t, store)
	release()
}

func TestBuildSessionStoreRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg, err := config.Load(config.WithoutSystemEnv(), config.WithEnvFile(""), config.WithEnvMap(map[string]string{
		"PORTAL_SESSION_STORE": "redis",
		"PORTAL_REDIS_URL":     "redis://" + mr.Addr() + "/0",
	}))
	require.NoError(t, err)

	store, release, err := buildSessionStore(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	require.NotNil(t, store)
	release()

	mr.Close()
	_, _, err = buildSessionStore(context.Background(), cfg, zap.NewNop())
	require.True(t, errors.Is(err, session.ErrRedisUnavailable), "expected redis unavailable, got %v", err)
}
