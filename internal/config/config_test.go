package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	for _, k := range []string{"PORT", "OPENAI_MODEL", "API_RATE_LIMIT", "LLM_TIMEOUT", "AUDIT_DRIVER", "AUDIT_RETENTION", "OTEL_TRACES_SAMPLER_ARG", "OTEL_EXPORTER_OTLP_INSECURE"} {
		t.Setenv(k, "")
	}
	cfg := Load()

	assert.Equal(t, 3001, cfg.Port)
	assert.Equal(t, "gpt-4-turbo-preview", cfg.OpenAI.Model)
	assert.Equal(t, 100, cfg.RateLimit.Requests)
	assert.Equal(t, time.Minute, cfg.RateLimit.Window)
	assert.Equal(t, 30*time.Second, cfg.OpenAI.Timeout)
	assert.Equal(t, 15*time.Second, cfg.Backend.Timeout)
	assert.Equal(t, 60*time.Second, cfg.TurnTimeout)
	assert.Equal(t, "memory", cfg.Audit.Driver)
	assert.False(t, cfg.Audit.APIEnabled)
	assert.Equal(t, 720*time.Hour, cfg.Audit.Retention)
	assert.Equal(t, 1.0, cfg.Telemetry.SampleRatio)
	assert.True(t, cfg.Telemetry.Insecure)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("PORT", "8080")
	t.Setenv("LLM_TIMEOUT", "5s")
	t.Setenv("BACKEND_TIMEOUT", "2500")
	t.Setenv("AUDIT_API_ENABLED", "true")
	t.Setenv("API_RATE_LIMIT", "not-a-number")
	t.Setenv("OTEL_TRACES_SAMPLER_ARG", "0.1")

	cfg := Load()
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, 5*time.Second, cfg.OpenAI.Timeout)
	assert.Equal(t, 2500*time.Millisecond, cfg.Backend.Timeout)
	assert.True(t, cfg.Audit.APIEnabled)
	assert.Equal(t, 100, cfg.RateLimit.Requests)
	assert.Equal(t, 0.1, cfg.Telemetry.SampleRatio)
}

func TestValidate(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	cfg := Load()
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "OPENAI_API_KEY")

	cfg.OpenAI.APIKey = "sk"
	assert.NoError(t, cfg.Validate())

	cfg.Audit.Driver = "mongo"
	assert.Error(t, cfg.Validate())
}

func TestLevel(t *testing.T) {
	assert.Equal(t, zerolog.DebugLevel, (&Config{LogLevel: "DEBUG"}).Level())
	assert.Equal(t, zerolog.InfoLevel, (&Config{LogLevel: "chatty"}).Level())
}

func TestLoadDotEnv_DoesNotOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("OPENAI_MODEL=from-file\nLARAVEL_API_TOKEN=file-token\n"), 0o600))

	t.Setenv("OPENAI_MODEL", "from-env")
	t.Setenv("LARAVEL_API_TOKEN", "")
	os.Unsetenv("LARAVEL_API_TOKEN")

	LoadDotEnv(path, filepath.Join(dir, "missing.env"))

	assert.Equal(t, "from-env", os.Getenv("OPENAI_MODEL"))
	assert.Equal(t, "file-token", os.Getenv("LARAVEL_API_TOKEN"))
}
