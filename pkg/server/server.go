// Package server wires the gateway's components into a ready HTTP handler.
//
// Usage:
//
//	srv, err := server.New(ctx)
//	http.ListenAndServe(srv.Addr(), srv.Handler)
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"

	"github.com/rs/zerolog/log"

	"github.com/primaai/agent-gateway/internal/api"
	"github.com/primaai/agent-gateway/internal/api/handlers"
	"github.com/primaai/agent-gateway/internal/audit"
	"github.com/primaai/agent-gateway/internal/backend"
	"github.com/primaai/agent-gateway/internal/chat"
	"github.com/primaai/agent-gateway/internal/config"
	"github.com/primaai/agent-gateway/internal/llm"
	"github.com/primaai/agent-gateway/internal/operations"
	"github.com/primaai/agent-gateway/internal/permissions"
	"github.com/primaai/agent-gateway/internal/retention"
	"github.com/primaai/agent-gateway/internal/telemetry"
	"github.com/primaai/agent-gateway/pkg/models"
)

// Server holds the initialized gateway.
type Server struct {
	// Handler is the HTTP handler with all routes and middleware.
	Handler http.Handler

	// Config is the configuration the server was built from.
	Config *config.Config

	// Audit is the dispatch audit store.
	Audit audit.Store

	// ShutdownFunc should be called on graceful shutdown to flush telemetry
	// and close the audit store.
	ShutdownFunc func(context.Context) error
}

// Options overrides components, mainly for tests.
type Options struct {
	// Model replaces the OpenAI adapter.
	Model llm.Model
	// HTTPClient is used for backend calls.
	HTTPClient *http.Client
}

// New loads configuration from the environment and builds the server.
func New(ctx context.Context) (*Server, error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return NewWithConfig(ctx, cfg, Options{})
}

var initTelemetry = telemetry.Init

// NewWithConfig builds the server from an explicit configuration. ctx bounds
// background goroutines such as the rate limiter's sweeper. Tracing is shut
// down again when a later component fails to start.
func NewWithConfig(ctx context.Context, cfg *config.Config, opts Options) (*Server, error) {
	shutdownTelemetry, err := initTelemetry(ctx, cfg.Telemetry)
	if err != nil {
		return nil, fmt.Errorf("init telemetry: %w", err)
	}
	fail := func(err error) (*Server, error) {
		if serr := shutdownTelemetry(ctx); serr != nil {
			log.Warn().Err(serr).Msg("Telemetry shutdown after failed start")
		}
		return nil, err
	}

	client := backend.New(backend.Config{
		BaseURL:    cfg.Backend.URL,
		Token:      cfg.Backend.Token,
		Timeout:    cfg.Backend.Timeout,
		HTTPClient: opts.HTTPClient,
	})
	registry := operations.Default(client)
	policy, err := loadPolicy(cfg.PermissionsFile, registry.Names())
	if err != nil {
		return fail(err)
	}
	dispatcher := operations.NewDispatcher(registry, policy, cfg.Backend.Timeout)
	log.Info().Strs("operations", registry.Names()).Msg("Operation registry initialized")

	auditStore, err := audit.Open(ctx, cfg.Audit.Driver, cfg.Audit.DSN)
	if err != nil {
		return fail(fmt.Errorf("open audit store: %w", err))
	}
	log.Info().Str("driver", cfg.Audit.Driver).Msg("Audit store initialized")
	if cfg.Audit.Retention > 0 {
		go retention.NewJanitor(auditStore, cfg.Audit.SweepInterval, cfg.Audit.Retention).Start(ctx)
	}

	model := opts.Model
	if model == nil {
		model = llm.NewBreaker(llm.NewOpenAI(llm.OpenAIConfig{
			APIKey:  cfg.OpenAI.APIKey,
			BaseURL: cfg.OpenAI.BaseURL,
			Model:   cfg.OpenAI.Model,
			Timeout: cfg.OpenAI.Timeout,
		}), llm.BreakerConfig{})
		log.Info().Str("model", cfg.OpenAI.Model).Msg("Language model initialized")
	}

	orchestrator := chat.New(model, dispatcher,
		chat.WithRecorder(audit.NewRecorder(auditStore)),
		chat.WithTurnTimeout(cfg.TurnTimeout),
	)

	var exposed audit.Store
	if cfg.Audit.APIEnabled {
		exposed = auditStore
	}
	h := handlers.New(orchestrator, exposed, cfg.Version)

	return &Server{
		Handler: api.NewRouter(ctx, cfg, h),
		Config:  cfg,
		Audit:   auditStore,
		ShutdownFunc: func(ctx context.Context) error {
			return errors.Join(shutdownTelemetry(ctx), auditStore.Close())
		},
	}, nil
}

// Addr is the listen address from the configuration.
func (s *Server) Addr() string {
	return net.JoinHostPort(s.Config.Host, strconv.Itoa(s.Config.Port))
}

func loadPolicy(path string, known []string) (permissions.Policy, error) {
	if path == "" {
		return permissions.Default(), nil
	}
	table, err := permissions.LoadFile(path, known)
	if err != nil {
		return nil, fmt.Errorf("load permissions: %w", err)
	}
	for _, role := range models.Roles {
		log.Info().Str("role", string(role)).Strs("operations", table.Permitted(role)).Msg("Permissions loaded")
	}
	return table, nil
}
