package app

import (
	"os"
	"strings"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
)

// Session backends.
const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
)

const defaultAddr = "0.0.0.0:8080"

// Config holds the complete application configuration, loadable from
// environment variables (STOREFRONT_ prefix), flags, or YAML config files.
type Config struct {
	Addr            string        `default:"0.0.0.0:8080" usage:"Storefront listen address"`
	GraphQLURL      string        `default:"http://localhost:3003/graphql" usage:"GraphQL API endpoint" flag:"graphql-url"`
	AuthURL         string        `default:"http://localhost:3001" usage:"Auth service base URL" flag:"auth-url"`
	UploadsURL      string        `default:"http://localhost:3006" usage:"Upload service base URL" flag:"uploads-url"`
	UpstreamTimeout time.Duration `default:"10s" usage:"Timeout for calls to the API services" flag:"upstream-timeout"`
	Session         SessionConfig
	RateLimit       RateLimitConfig
	LoginRateLimit  LoginRateLimitConfig
	CORS            CORSConfig
	Graceful        GracefulConfig
}

// SessionConfig selects where browser sessions are kept.
type SessionConfig struct {
	Backend      string        `default:"memory" usage:"Session store: memory, postgres or redis"`
	CookieName   string        `default:"mercado_session" usage:"Session cookie name" flag:"cookie-name"`
	CookieSecure bool          `default:"false" usage:"Mark the session cookie Secure" flag:"cookie-secure"`
	DatabaseURL  string        `usage:"PostgreSQL URL for the postgres backend (or DATABASE_URL)" flag:"database-url"`
	RedisAddr    string        `usage:"Redis address or URL for the redis backend (or REDIS_URL)" flag:"redis-addr"`
	TTL          time.Duration `default:"720h" usage:"Idle lifetime of a session"`
}

// RateLimitConfig controls a sliding window rate limiter.
type RateLimitConfig struct {
	Max    int           `default:"100" usage:"Max requests per window"`
	Window time.Duration `default:"1m"  usage:"Rate limit window duration"`
}

// LoginRateLimitConfig throttles sign-in attempts per email.
type LoginRateLimitConfig struct {
	Max    int           `default:"5"  usage:"Max login attempts per email per window"`
	Window time.Duration `default:"5m" usage:"Login attempt window"`
}

// CORSConfig controls Cross-Origin Resource Sharing headers on the JSON
// endpoints.
type CORSConfig struct {
	Origins          []string `default:"*" usage:"Allowed CORS origins"`
	AllowCredentials bool     `default:"false" usage:"Allow credentials (cookies, auth headers)" flag:"cors-credentials"`
}

// GracefulConfig controls graceful shutdown timing.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `default:"3s"  usage:"Delay after readiness=false before shutdown" flag:"readiness-delay"`
	ShutdownTimeout time.Duration `default:"15s" usage:"Maximum shutdown duration" flag:"shutdown-timeout"`
}

// LoadConfig loads configuration from environment variables, YAML config
// files and flags, then applies platform defaults.
func LoadConfig() (*Config, error) {
	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "STOREFRONT",
		Files:     []string{"config.yaml", "/etc/storefront/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults(os.LookupEnv)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks that the selected session backend is usable.
func (c *Config) Validate() error {
	switch c.Session.Backend {
	case BackendMemory:
	case BackendPostgres:
		if c.Session.DatabaseURL == "" {
			return errors.New("postgres sessions need a database URL: set STOREFRONT_SESSION_DATABASE_URL or DATABASE_URL")
		}
	case BackendRedis:
		if c.Session.RedisAddr == "" {
			return errors.New("redis sessions need an address: set STOREFRONT_SESSION_REDIS_ADDR or REDIS_URL")
		}
	default:
		return errors.Errorf("unknown session backend %q", c.Session.Backend)
	}
	if c.LoginRateLimit.Max <= 0 || c.LoginRateLimit.Window <= 0 {
		return errors.New("login rate limit must be positive")
	}
	return nil
}

// applyPlatformDefaults maps the plain environment names used by hosting
// platforms and by earlier deployments of the storefront onto Config. A
// value already set through STOREFRONT_ variables, flags or files wins,
// except for fields still holding their default.
func (c *Config) applyPlatformDefaults(lookup func(string) (string, bool)) {
	env := func(key string) string {
		v, _ := lookup(key)
		return strings.TrimSpace(v)
	}
	if port := env("PORT"); port != "" && c.Addr == defaultAddr {
		c.Addr = "0.0.0.0:" + port
	}
	if c.Session.DatabaseURL == "" {
		c.Session.DatabaseURL = env("DATABASE_URL")
	}
	if c.Session.RedisAddr == "" {
		c.Session.RedisAddr = env("REDIS_URL")
	}
	fallback := func(dst *string, def, key string) {
		if v := env(key); v != "" && *dst == def {
			*dst = v
		}
	}
	fallback(&c.GraphQLURL, "http://localhost:3003/graphql", "VITE_GRAPHQL_URL")
	fallback(&c.AuthURL, "http://localhost:3001", "VITE_AUTH_URL")
	fallback(&c.UploadsURL, "http://localhost:3006", "VITE_UPLOADS_URL")
}
