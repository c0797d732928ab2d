// Package config loads gateway settings from the environment.
package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/subosito/gotenv"
)

// Config holds all configuration for the agent gateway.
type Config struct {
	Host     string
	Port     int
	Version  string
	LogLevel string

	OpenAI      OpenAIConfig
	Backend     BackendConfig
	Telemetry   TelemetryConfig
	Audit       AuditConfig
	RateLimit   RateLimitConfig
	TurnTimeout time.Duration

	// PermissionsFile, when set, replaces the built-in role table.
	PermissionsFile string
}

type OpenAIConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

type BackendConfig struct {
	URL     string
	Token   string
	Timeout time.Duration
}

type TelemetryConfig struct {
	Enabled      bool
	OTLPEndpoint string
	Insecure     bool
	ServiceName  string
	Version      string
	SampleRatio  float64
}

type AuditConfig struct {
	Driver     string
	DSN        string
	APIEnabled bool

	// Retention is how long events are kept; zero disables pruning.
	Retention     time.Duration
	SweepInterval time.Duration
}

// RateLimitConfig is a per-client-IP budget of Requests per Window.
type RateLimitConfig struct {
	Requests int
	Window   time.Duration
}

// LoadDotEnv reads the given .env files (default ".env") into the process
// environment without overriding variables that are already set. Missing
// files are ignored.
func LoadDotEnv(paths ...string) {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := gotenv.Load(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			log.Warn().Err(err).Str("file", p).Msg("Failed to load env file")
		}
	}
}

// Load reads configuration from environment variables with sensible defaults.
func Load() *Config {
	version := envStr("APP_VERSION", "1.0.0")
	return &Config{
		Host:     envStr("HOST", "0.0.0.0"),
		Port:     envInt("PORT", 3001),
		Version:  version,
		LogLevel: envStr("LOG_LEVEL", "info"),
		OpenAI: OpenAIConfig{
			APIKey:  envStr("OPENAI_API_KEY", ""),
			BaseURL: envStr("OPENAI_BASE_URL", ""),
			Model:   envStr("OPENAI_MODEL", "gpt-4-turbo-preview"),
			Timeout: envDuration("LLM_TIMEOUT", 30*time.Second),
		},
		Backend: BackendConfig{
			URL:     envStr("LARAVEL_API_URL", "http://localhost:8000/api"),
			Token:   envStr("LARAVEL_API_TOKEN", ""),
			Timeout: envDuration("BACKEND_TIMEOUT", 15*time.Second),
		},
		Telemetry: TelemetryConfig{
			Enabled:      envBool("OTEL_ENABLED", false),
			OTLPEndpoint: envStr("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:     envBool("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName:  envStr("OTEL_SERVICE_NAME", "prima-agent-gateway"),
			Version:      version,
			SampleRatio:  envFloat("OTEL_TRACES_SAMPLER_ARG", 1),
		},
		Audit: AuditConfig{
			Driver:     envStr("AUDIT_DRIVER", "memory"),
			DSN:        envStr("AUDIT_DSN", "audit.db"),
			APIEnabled: envBool("AUDIT_API_ENABLED", false),

			Retention:     envDuration("AUDIT_RETENTION", 30*24*time.Hour),
			SweepInterval: envDuration("AUDIT_SWEEP_INTERVAL", time.Hour),
		},
		RateLimit: RateLimitConfig{
			Requests: envInt("API_RATE_LIMIT", 100),
			Window:   envDuration("API_RATE_WINDOW", time.Minute),
		},
		TurnTimeout:     envDuration("TURN_TIMEOUT", 60*time.Second),
		PermissionsFile: envStr("PERMISSIONS_FILE", ""),
	}
}

// Validate reports settings the gateway cannot start without.
func (c *Config) Validate() error {
	var errs []error
	if c.OpenAI.APIKey == "" {
		errs = append(errs, errors.New("OPENAI_API_KEY is required"))
	}
	if c.Backend.URL == "" {
		errs = append(errs, errors.New("LARAVEL_API_URL is required"))
	}
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, errors.New("PORT must be between 1 and 65535"))
	}
	switch c.Audit.Driver {
	case "memory", "sqlite":
	default:
		errs = append(errs, errors.New("AUDIT_DRIVER must be memory or sqlite"))
	}
	return errors.Join(errs...)
}

// Level parses LogLevel, falling back to info.
func (c *Config) Level() zerolog.Level {
	lvl, err := zerolog.ParseLevel(strings.ToLower(c.LogLevel))
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

// envDuration accepts Go durations ("30s") or a bare number of milliseconds.
func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if ms, err := strconv.Atoi(v); err == nil {
		return time.Duration(ms) * time.Millisecond
	}
	log.Warn().Str("key", key).Str("value", v).Msg("Invalid duration, using default")
	return fallback
}
