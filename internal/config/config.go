// Package config provides application configuration management.
// Configuration is loaded from environment variables following 12-factor principles,
// with an optional .env file for local development.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"

	"github.com/chatcat/chatcat/internal/ratelimit"
)

// DevSessionSecret signs sessions in development when SESSION_SECRET is unset.
const DevSessionSecret = "chatcat-development-session-secret"

// Backend names accepted by CONTEXT_STORE and RATE_LIMIT_BACKEND.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// Config holds all application configuration.
// All fields are populated from environment variables.
type Config struct {
	// Application settings
	AppEnv  string `env:"APP_ENV" envDefault:"development"`
	AppPort int    `env:"APP_PORT" envDefault:"8080"`

	// Public origin of this service, used in widget snippets (e.g., https://chat.example.com)
	PublicBaseURL string `env:"PUBLIC_BASE_URL" envDefault:"http://localhost:8080"`

	// Database (PostgreSQL)
	DatabaseURL       string        `env:"DATABASE_URL,required,notEmpty"`
	DBMaxConns        int32         `env:"DB_MAX_CONNS" envDefault:"10"`
	DBMinConns        int32         `env:"DB_MIN_CONNS" envDefault:"2"`
	DBMaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" envDefault:"5m"`

	// Cache (Redis). Optional unless a redis backend is selected.
	RedisURL string `env:"REDIS_URL"`

	// Logging
	LogLevel          string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat         string `env:"LOG_FORMAT" envDefault:"json"`
	LogFile           string `env:"LOG_FILE"`
	LogFileMaxSizeMB  int    `env:"LOG_FILE_MAX_SIZE_MB" envDefault:"100"`
	LogFileMaxBackups int    `env:"LOG_FILE_MAX_BACKUPS" envDefault:"5"`
	LogFileMaxAgeDays int    `env:"LOG_FILE_MAX_AGE_DAYS" envDefault:"28"`

	// Server timeouts
	ReadTimeout     time.Duration `env:"READ_TIMEOUT" envDefault:"5s"`
	WriteTimeout    time.Duration `env:"WRITE_TIMEOUT" envDefault:"90s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`

	// Sessions
	SessionSecret string        `env:"SESSION_SECRET"`
	SessionTTL    time.Duration `env:"SESSION_TTL" envDefault:"168h"`

	// Context store
	ContextStore      string        `env:"CONTEXT_STORE" envDefault:"memory"`
	ContextMaxEntries int           `env:"CONTEXT_MAX_ENTRIES" envDefault:"10000"`
	ContextTTL        time.Duration `env:"CONTEXT_TTL" envDefault:"0s"`

	// Rate limiting
	RateLimitEnabled bool   `env:"RATE_LIMIT_ENABLED" envDefault:"true"`
	RateLimitBackend string `env:"RATE_LIMIT_BACKEND" envDefault:"memory"`
	RateLimitDefault string `env:"RATE_LIMIT_DEFAULT" envDefault:"200/day,50/hour"`
	RateLimitStrict  string `env:"RATE_LIMIT_STRICT" envDefault:"5/minute"`

	// Website extraction
	FetchTimeout      time.Duration `env:"FETCH_TIMEOUT" envDefault:"15s"`
	FetchMaxBytes     int64         `env:"FETCH_MAX_BYTES" envDefault:"5242880"`
	FetchAllowPrivate bool          `env:"FETCH_ALLOW_PRIVATE" envDefault:"false"`

	// Completion provider (Together AI)
	TogetherAPIKey    string        `env:"TOGETHER_API_KEY,required,notEmpty"`
	CompletionBaseURL string        `env:"COMPLETION_BASE_URL" envDefault:"https://api.together.xyz/v1"`
	CompletionModel   string        `env:"COMPLETION_MODEL" envDefault:"meta-llama/Meta-Llama-3.1-8B-Instruct-Turbo"`
	CompletionTimeout time.Duration `env:"COMPLETION_TIMEOUT" envDefault:"60s"`
	CompletionRPS     float64       `env:"COMPLETION_RPS" envDefault:"0"`
	CompletionBurst   int           `env:"COMPLETION_BURST" envDefault:"1"`

	// CORS configuration
	// Comma-separated list of allowed origins; "*" lets the widget embed anywhere.
	CORSAllowedOrigins string `env:"CORS_ALLOWED_ORIGINS" envDefault:"*"`

	// Request body size limit in bytes (default 1MB)
	MaxRequestBodySize int64 `env:"MAX_REQUEST_BODY_SIZE" envDefault:"1048576"`

	// UsingDevSessionSecret is set by Load when SESSION_SECRET was empty in development.
	UsingDevSessionSecret bool
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// GetCORSAllowedOrigins parses the comma-separated origins string into a slice.
func (c *Config) GetCORSAllowedOrigins() []string {
	if c.CORSAllowedOrigins == "" {
		return nil
	}

	origins := strings.Split(c.CORSAllowedOrigins, ",")
	result := make([]string, 0, len(origins))

	for _, origin := range origins {
		trimmed := strings.TrimSpace(origin)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}

// DefaultRules returns the limits applied to every route.
func (c *Config) DefaultRules() ([]ratelimit.Rule, error) {
	return ratelimit.ParseRules(c.RateLimitDefault)
}

// StrictRules returns the extra limits on the expensive routes.
func (c *Config) StrictRules() ([]ratelimit.Rule, error) {
	return ratelimit.ParseRules(c.RateLimitStrict)
}

// Validate checks values that struct tags cannot express.
func (c *Config) Validate() error {
	switch c.ContextStore {
	case BackendMemory, BackendRedis:
	default:
		return fmt.Errorf("CONTEXT_STORE must be %q or %q, got %q", BackendMemory, BackendRedis, c.ContextStore)
	}

	switch c.RateLimitBackend {
	case BackendMemory, BackendRedis:
	default:
		return fmt.Errorf("RATE_LIMIT_BACKEND must be %q or %q, got %q", BackendMemory, BackendRedis, c.RateLimitBackend)
	}

	if c.RedisURL == "" && (c.ContextStore == BackendRedis || c.RateLimitBackend == BackendRedis) {
		return errors.New("REDIS_URL is required when a redis backend is selected")
	}

	if _, err := c.DefaultRules(); err != nil {
		return fmt.Errorf("RATE_LIMIT_DEFAULT: %w", err)
	}
	if _, err := c.StrictRules(); err != nil {
		return fmt.Errorf("RATE_LIMIT_STRICT: %w", err)
	}

	if c.SessionSecret == "" {
		if !c.IsDevelopment() {
			return errors.New("SESSION_SECRET is required outside development")
		}
		c.SessionSecret = DevSessionSecret
		c.UsingDevSessionSecret = true
	}

	if c.FetchMaxBytes <= 0 {
		return errors.New("FETCH_MAX_BYTES must be positive")
	}
	if c.CompletionRPS < 0 {
		return errors.New("COMPLETION_RPS must not be negative")
	}

	return nil
}

// Load reads .env if present, parses environment variables and validates the
// result. Returns an error if required variables are missing.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to read .env: %w", err)
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}
