package httpserver

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"finitefield.org/hanko-portal/internal/portal/authapi"
	"finitefield.org/hanko-portal/internal/portal/connectivity"
	"finitefield.org/hanko-portal/internal/portal/forms"
	"finitefield.org/hanko-portal/internal/portal/guard"
	custommw "finitefield.org/hanko-portal/internal/portal/httpserver/middleware"
	"finitefield.org/hanko-portal/internal/portal/observability"
	"finitefield.org/hanko-portal/public"
)

const (
	registerPath = "/register"
	logoutPath   = "/logout"
)

// Config holds runtime options for the portal HTTP server.
type Config struct {
	Address        string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	RequestTimeout time.Duration

	Sessions     custommw.SessionStore
	API          authapi.Service
	Connectivity connectivity.Checker
	Logger       *zap.Logger
	CSRF         custommw.CSRFConfig
}

// New constructs the HTTP server with middleware stack and embedded assets.
func New(cfg Config) (*http.Server, error) {
	if cfg.Sessions == nil {
		return nil, errors.New("httpserver: session store is required")
	}
	if cfg.API == nil {
		return nil, errors.New("httpserver: auth api is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	router := chi.NewRouter()
	router.Use(chimw.RequestID)
	router.Use(chimw.RealIP)
	router.Use(observability.InjectLogger(logger))
	router.Use(observability.RequestLogger())
	router.Use(chimw.Recoverer)
	router.Use(chimw.Timeout(durationOr(cfg.RequestTimeout, 60*time.Second)))

	staticContent, err := public.StaticFS()
	if err != nil {
		return nil, fmt.Errorf("httpserver: embed static: %w", err)
	}
	router.Handle("/public/static/*", http.StripPrefix("/public/static/", http.FileServer(http.FS(staticContent))))
	router.Get("/healthz", healthHandler)

	auth := &authHandlers{
		login:    forms.NewLoginFlow(cfg.API, cfg.Connectivity),
		register: forms.NewRegisterFlow(cfg.API, cfg.Connectivity),
	}

	router.Group(func(r chi.Router) {
		r.Use(custommw.HTMX())
		r.Use(custommw.NoStore())
		r.Use(custommw.Session(cfg.Sessions))
		r.Use(custommw.CSRF(cfg.CSRF))

		r.Get("/", homeHandler)
		r.Get(guard.LoginPath, auth.LoginForm)
		r.Post(guard.LoginPath, auth.LoginSubmit)
		r.Get(registerPath, auth.RegisterForm)
		r.Post(registerPath, auth.RegisterSubmit)
		r.Post(logoutPath, auth.Logout)

		r.Route("/{role}/dashboard", func(r chi.Router) {
			r.Use(custommw.RequireSession())
			r.Use(custommw.RequireRoleParam("role"))
			r.Get("/", dashboardHandler)
		})
	})

	return &http.Server{
		Addr:         cfg.Address,
		Handler:      router,
		ReadTimeout:  durationOr(cfg.ReadTimeout, 10*time.Second),
		WriteTimeout: durationOr(cfg.WriteTimeout, 30*time.Second),
		IdleTimeout:  durationOr(cfg.IdleTimeout, 60*time.Second),
	}, nil
}

func durationOr(value, fallback time.Duration) time.Duration {
	if value <= 0 {
		return fallback
	}
	return value
}

func healthHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}
