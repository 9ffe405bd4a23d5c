package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"finitefield.org/hanko-portal/internal/portal/authapi"
	"finitefield.org/hanko-portal/internal/portal/config"
	"finitefield.org/hanko-portal/internal/portal/connectivity"
	"finitefield.org/hanko-portal/internal/portal/httpserver"
	"finitefield.org/hanko-portal/internal/portal/httpserver/middleware"
	"finitefield.org/hanko-portal/internal/portal/observability"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Error("portal stopped", zap.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	api, err := authapi.NewClient(cfg.API.BaseURL, &http.Client{Timeout: cfg.API.Timeout})
	if err != nil {
		return err
	}

	monitor, err := connectivity.NewMonitor(connectivity.Options{
		Targets:  cfg.API.OnlineCheckTargets,
		Interval: cfg.API.OnlineCheckInterval,
		Timeout:  cfg.API.OnlineCheckTimeout,
		Logger:   logger,
	})
	if err != nil {
		return err
	}
	go monitor.Run(ctx)

	sessions, closeSessions, err := buildSessionStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeSessions()

	srv, err := httpserver.New(httpserver.Config{
		Address:        cfg.Server.Address,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		IdleTimeout:    cfg.Server.IdleTimeout,
		RequestTimeout: cfg.Server.RequestTimeout,
		Sessions:       sessions,
		API:            api,
		Connectivity:   monitor,
		Logger:         logger,
		CSRF: middleware.CSRFConfig{
			CookieName: cfg.CSRF.CookieName,
			HeaderName: cfg.CSRF.HeaderName,
			Secure:     cfg.Session.CookieSecure,
		},
	})
	if err != nil {
		return err
	}

	serveErr := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	logger.Info("portal listening",
		zap.String("address", cfg.Server.Address),
		zap.String("environment", cfg.Environment),
		zap.String("api", cfg.API.BaseURL),
		zap.String("session_store", cfg.Session.Store),
	)

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	logger.Info("portal stopped")
	return nil
}
