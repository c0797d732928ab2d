package server_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/primaai/agent-gateway/internal/config"
	"github.com/primaai/agent-gateway/internal/llm"
	"github.com/primaai/agent-gateway/internal/telemetry"
	"github.com/primaai/agent-gateway/pkg/models"
	"github.com/primaai/agent-gateway/pkg/server"
)

type replayModel struct {
	replies []*llm.Reply
	n       int
}

func (m *replayModel) Complete(ctx context.Context, req llm.Request) (*llm.Reply, error) {
	r := m.replies[m.n]
	m.n++
	return r, nil
}

func testConfig(backendURL string) *config.Config {
	return &config.Config{
		Host:        "127.0.0.1",
		Port:        3001,
		Version:     "test",
		Backend:     config.BackendConfig{URL: backendURL, Token: "tok", Timeout: time.Second},
		Audit:       config.AuditConfig{Driver: "memory", APIEnabled: true},
		RateLimit:   config.RateLimitConfig{Requests: 100, Window: time.Minute},
		TurnTimeout: 5 * time.Second,
	}
}

func TestServer_EndToEnd(t *testing.T) {
	var backendHits int
	laravel := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		backendHits++
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"id":"v1","name":"Trattoria"}]`))
	}))
	defer laravel.Close()

	model := &replayModel{replies: []*llm.Reply{
		{FunctionCall: &llm.FunctionCall{Name: "search_venues", Arguments: `{"cuisine":"Italian"}`}},
		{Content: "I found Trattoria for you."},
	}}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	srv, err := server.NewWithConfig(ctx, testConfig(laravel.URL), server.Options{Model: model})
	require.NoError(t, err)
	defer srv.ShutdownFunc(context.Background())
	assert.Equal(t, "127.0.0.1:3001", srv.Addr())

	ts := httptest.NewServer(srv.Handler)
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/api/chat", "application/json",
		strings.NewReader(`{"message":"italian please","context":{"role":"guest"}}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body models.ChatResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "I found Trattoria for you.", body.Message)
	require.Len(t, body.FunctionCalls, 1)
	assert.True(t, body.FunctionCalls[0].Result.Success)
	assert.Equal(t, 1, backendHits)

	events, err := srv.Audit.ListAuditEvents(context.Background(), models.AuditFilter{})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "search_venues", events[0].Operation)
}

func TestServer_PermissionsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "permissions.yaml")
	require.NoError(t, os.WriteFile(path, []byte("roles:\n  guest: []\n"), 0o600))

	model := &replayModel{replies: []*llm.Reply{{Content: "hello"}}}
	cfg := testConfig("http://127.0.0.1:1")
	cfg.PermissionsFile = path

	srv, err := server.NewWithConfig(context.Background(), cfg, server.Options{Model: model})
	require.NoError(t, err)
	defer srv.ShutdownFunc(context.Background())

	cfg.PermissionsFile = filepath.Join(t.TempDir(), "missing.yaml")
	_, err = server.NewWithConfig(context.Background(), cfg, server.Options{Model: model})
	assert.Error(t, err)
}

func TestServer_FailedStartShutsDownTelemetry(t *testing.T) {
	var shutdowns int
	server.SetTelemetryInit(t, func(context.Context, config.TelemetryConfig) (telemetry.Shutdown, error) {
		return func(context.Context) error {
			shutdowns++
			return nil
		}, nil
	})
	model := &replayModel{replies: []*llm.Reply{{Content: "hello"}}}

	cfg := testConfig("http://127.0.0.1:1")
	cfg.PermissionsFile = filepath.Join(t.TempDir(), "missing.yaml")
	_, err := server.NewWithConfig(context.Background(), cfg, server.Options{Model: model})
	require.Error(t, err)
	assert.Equal(t, 1, shutdowns)

	cfg = testConfig("http://127.0.0.1:1")
	cfg.Audit.Driver = "postgres"
	_, err = server.NewWithConfig(context.Background(), cfg, server.Options{Model: model})
	require.Error(t, err)
	assert.Equal(t, 2, shutdowns)

	srv, err := server.NewWithConfig(context.Background(), testConfig("http://127.0.0.1:1"), server.Options{Model: model})
	require.NoError(t, err)
	assert.Equal(t, 2, shutdowns)
	require.NoError(t, srv.ShutdownFunc(context.Background()))
	assert.Equal(t, 3, shutdowns)
}
