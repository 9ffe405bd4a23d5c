package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultEnvFile             = ".env"
	defaultAddress             = ":8080"
	defaultEnvironment         = "local"
	defaultLogLevel            = "info"
	defaultReadTimeout         = 10 * time.Second
	defaultWriteTimeout        = 30 * time.Second
	defaultIdleTimeout         = 60 * time.Second
	defaultRequestTimeout      = 30 * time.Second
	defaultAPIBaseURL          = "http://localhost:5000/api"
	defaultAPITimeout          = 8 * time.Second
	defaultOnlineCheckInterval = 3 * time.Second
	defaultOnlineCheckTimeout  = 2 * time.Second
	defaultOnlineCheckTargets  = "1.1.1.1:53,8.8.8.8:53"
	defaultSessionStore        = StoreCookie
	defaultSessionCookieName   = "portal_session"
	defaultSessionLifetime     = 12 * time.Hour
	defaultSessionIdleTimeout  = 30 * time.Minute
	defaultSessionRedisPrefix  = "portal:session:"
	defaultCSRFCookieName      = "portal_csrf"
	defaultCSRFHeaderName      = "X-CSRF-Token"
	minHashKeyLength           = 32
)

const (
	// StoreCookie keeps the whole session record inside an encrypted cookie.
	StoreCookie = "cookie"
	// StoreRedis keeps the session record in Redis and only an id in the cookie.
	StoreRedis = "redis"
)

// Config captures all runtime configuration organised by concern.
type Config struct {
	Environment string
	LogLevel    string
	Server      ServerConfig
	API         APIConfig
	Session     SessionConfig
	CSRF        CSRFConfig
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Address      string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration

	// RequestTimeout bounds a single request including the upstream API call.
	RequestTimeout time.Duration
}

// APIConfig points at the remote auth API.
type APIConfig struct {
	BaseURL             string
	Timeout             time.Duration
	OnlineCheckInterval time.Duration
	OnlineCheckTimeout  time.Duration

	// OnlineCheckTargets are host:port pairs dialled to tell whether the
	// network is up. They must not be the API host.
	OnlineCheckTargets []string
}

// SessionConfig controls session persistence.
type SessionConfig struct {
	Store        string
	CookieName   string
	HashKey      string
	BlockKey     string
	CookieSecure bool
	Lifetime     time.Duration
	IdleTimeout  time.Duration
	RedisURL     string
	RedisPrefix  string
	TokenSecret  string
}

// CSRFConfig controls the double-submit cookie.
type CSRFConfig struct {
	CookieName string
	HeaderName string
}

// IsLocal reports whether the portal runs in a developer environment.
func (c Config) IsLocal() bool {
	switch strings.ToLower(c.Environment) {
	case "", "local", "dev", "development", "test":
		return true
	default:
		return false
	}
}

// ValidationError is returned when required configuration fields are missing or invalid.
type ValidationError struct {
	fields []string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation failed: missing or invalid fields [%s]", strings.Join(e.fields, ", "))
}

// Fields returns a copy of the missing/invalid field list.
func (e *ValidationError) Fields() []string {
	out := make([]string, len(e.fields))
	copy(out, e.fields)
	return out
}

// Option customises Load behaviour.
type Option func(*loaderOptions)

type loaderOptions struct {
	envFile      string
	envMap       map[string]string
	useSystemEnv bool
}

// WithEnvFile overrides the .env file path used for local overrides. An empty path disables it.
func WithEnvFile(path string) Option {
	return func(o *loaderOptions) {
		o.envFile = path
	}
}

// WithEnvMap supplies explicit values that take precedence over every other source.
func WithEnvMap(values map[string]string) Option {
	return func(o *loaderOptions) {
		o.envMap = values
	}
}

// WithoutSystemEnv ignores the process environment.
func WithoutSystemEnv() Option {
	return func(o *loaderOptions) {
		o.useSystemEnv = false
	}
}

// Load resolves configuration with precedence dotenv < OS env < explicit env map.
func Load(opts ...Option) (Config, error) {
	options := loaderOptions{
		envFile:      defaultEnvFile,
		useSystemEnv: true,
	}
	for _, opt := range opts {
		opt(&options)
	}

	values, err := loadDotEnv(options.envFile)
	if err != nil {
		return Config{}, err
	}
	if options.useSystemEnv {
		for _, entry := range os.Environ() {
			key, value, ok := strings.Cut(entry, "=")
			if !ok || strings.TrimSpace(key) == "" {
				continue
			}
			values[key] = value
		}
	}
	for key, value := range options.envMap {
		values[key] = value
	}

	lookup := func(key string) (string, bool) {
		v, ok := values[key]
		if !ok || strings.TrimSpace(v) == "" {
			return "", false
		}
		return strings.TrimSpace(v), true
	}

	cfg := Config{
		Environment: stringWithDefault(lookup, "PORTAL_ENV", defaultEnvironment),
		LogLevel:    stringWithDefault(lookup, "PORTAL_LOG_LEVEL", defaultLogLevel),
		Server: ServerConfig{
			Address:        stringWithDefault(lookup, "PORTAL_HTTP_ADDR", defaultAddress),
			ReadTimeout:    durationWithDefault(lookup, "PORTAL_HTTP_READ_TIMEOUT", defaultReadTimeout),
			WriteTimeout:   durationWithDefault(lookup, "PORTAL_HTTP_WRITE_TIMEOUT", defaultWriteTimeout),
			IdleTimeout:    durationWithDefault(lookup, "PORTAL_HTTP_IDLE_TIMEOUT", defaultIdleTimeout),
			RequestTimeout: durationWithDefault(lookup, "PORTAL_HTTP_REQUEST_TIMEOUT", defaultRequestTimeout),
		},
		API: APIConfig{
			BaseURL:             stringWithDefault(lookup, "PORTAL_API_BASE_URL", defaultAPIBaseURL),
			Timeout:             durationWithDefault(lookup, "PORTAL_API_TIMEOUT", defaultAPITimeout),
			OnlineCheckInterval: durationWithDefault(lookup, "PORTAL_ONLINE_CHECK_INTERVAL", defaultOnlineCheckInterval),
			OnlineCheckTimeout:  durationWithDefault(lookup, "PORTAL_ONLINE_CHECK_TIMEOUT", defaultOnlineCheckTimeout),
			OnlineCheckTargets:  listWithDefault(lookup, "PORTAL_ONLINE_CHECK_TARGETS", defaultOnlineCheckTargets),
		},
		Session: SessionConfig{
			Store:        strings.ToLower(stringWithDefault(lookup, "PORTAL_SESSION_STORE", defaultSessionStore)),
			CookieName:   stringWithDefault(lookup, "PORTAL_SESSION_COOKIE", defaultSessionCookieName),
			HashKey:      stringWithDefault(lookup, "PORTAL_SESSION_HASH_KEY", ""),
			BlockKey:     stringWithDefault(lookup, "PORTAL_SESSION_BLOCK_KEY", ""),
			CookieSecure: boolWithDefault(lookup, "PORTAL_SESSION_COOKIE_SECURE", false),
			Lifetime:     durationWithDefault(lookup, "PORTAL_SESSION_LIFETIME", defaultSessionLifetime),
			IdleTimeout:  durationWithDefault(lookup, "PORTAL_SESSION_IDLE_TIMEOUT", defaultSessionIdleTimeout),
			RedisURL:     stringWithDefault(lookup, "PORTAL_REDIS_URL", ""),
			RedisPrefix:  stringWithDefault(lookup, "PORTAL_REDIS_PREFIX", defaultSessionRedisPrefix),
			TokenSecret:  stringWithDefault(lookup, "PORTAL_TOKEN_SECRET", ""),
		},
		CSRF: CSRFConfig{
			CookieName: stringWithDefault(lookup, "PORTAL_CSRF_COOKIE", defaultCSRFCookieName),
			HeaderName: stringWithDefault(lookup, "PORTAL_CSRF_HEADER", defaultCSRFHeaderName),
		},
	}
	if !cfg.IsLocal() {
		// secure cookies unless explicitly disabled
		cfg.Session.CookieSecure = boolWithDefault(lookup, "PORTAL_SESSION_COOKIE_SECURE", true)
	}

	if err := validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func validate(cfg Config) error {
	var fields []string

	if strings.TrimSpace(cfg.Server.Address) == "" {
		fields = append(fields, "PORTAL_HTTP_ADDR")
	}
	if cfg.Server.RequestTimeout <= 0 {
		fields = append(fields, "PORTAL_HTTP_REQUEST_TIMEOUT")
	}
	if u, err := url.Parse(cfg.API.BaseURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		fields = append(fields, "PORTAL_API_BASE_URL")
	}
	if cfg.API.Timeout <= 0 {
		fields = append(fields, "PORTAL_API_TIMEOUT")
	}
	if cfg.API.OnlineCheckInterval <= 0 {
		fields = append(fields, "PORTAL_ONLINE_CHECK_INTERVAL")
	}
	if !validTargets(cfg.API.OnlineCheckTargets) {
		fields = append(fields, "PORTAL_ONLINE_CHECK_TARGETS")
	}
	switch cfg.Session.Store {
	case StoreCookie:
	case StoreRedis:
		if cfg.Session.RedisURL == "" {
			fields = append(fields, "PORTAL_REDIS_URL")
		}
	default:
		fields = append(fields, "PORTAL_SESSION_STORE")
	}
	if cfg.Session.HashKey == "" && !cfg.IsLocal() {
		fields = append(fields, "PORTAL_SESSION_HASH_KEY")
	}
	if cfg.Session.HashKey != "" && len(cfg.Session.HashKey) < minHashKeyLength {
		fields = append(fields, "PORTAL_SESSION_HASH_KEY")
	}
	switch len(cfg.Session.BlockKey) {
	case 0, 16, 24, 32:
	default:
		fields = append(fields, "PORTAL_SESSION_BLOCK_KEY")
	}
	if cfg.Session.Lifetime <= 0 {
		fields = append(fields, "PORTAL_SESSION_LIFETIME")
	}

	if len(fields) > 0 {
		return &ValidationError{fields: fields}
	}
	return nil
}

func loadDotEnv(path string) (map[string]string, error) {
	values := make(map[string]string)
	if strings.TrimSpace(path) == "" {
		return values, nil
	}
	read, err := godotenv.Read(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return values, nil
		}
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	for key, value := range read {
		values[key] = value
	}
	return values, nil
}

func stringWithDefault(lookup func(string) (string, bool), key, fallback string) string {
	if v, ok := lookup(key); ok {
		return v
	}
	return fallback
}

func durationWithDefault(lookup func(string) (string, bool), key string, fallback time.Duration) time.Duration {
	v, ok := lookup(key)
	if !ok {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func listWithDefault(lookup func(string) (string, bool), key, fallback string) []string {
	raw := stringWithDefault(lookup, key, fallback)
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func validTargets(targets []string) bool {
	if len(targets) == 0 {
		return false
	}
	for _, target := range targets {
		host, port, err := net.SplitHostPort(target)
		if err != nil || host == "" || port == "" {
			return false
		}
	}
	return true
}

func boolWithDefault(lookup func(string) (string, bool), key string, fallback bool) bool {
	v, ok := lookup(key)
	if !ok {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}
