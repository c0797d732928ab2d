package server

import (
	"context"
	"testing"

	"github.com/primaai/agent-gateway/internal/config"
	"github.com/primaai/agent-gateway/internal/telemetry"
)

// SetTelemetryInit swaps tracing setup for the duration of t.
func SetTelemetryInit(t testing.TB, fn func(context.Context, config.TelemetryConfig) (telemetry.Shutdown, error)) {
	t.Helper()
	prev := initTelemetry
	initTelemetry = fn
	t.Cleanup(func() { initTelemetry = prev })
}
