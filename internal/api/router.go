// Package api assembles the gateway's HTTP surface.
package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/primaai/agent-gateway/internal/api/handlers"
	"github.com/primaai/agent-gateway/internal/api/middleware"
	"github.com/primaai/agent-gateway/internal/config"
)

// MaxRequestBytes caps inbound bodies.
const MaxRequestBytes = 1 << 20

// NewRouter creates the HTTP router with all API routes. ctx bounds the
// rate limiter's background sweeper.
func NewRouter(ctx context.Context, cfg *config.Config, h *handlers.Handlers) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogger("/health"))
	r.Use(chimw.Recoverer)
	r.Use(middleware.Telemetry)
	r.Use(middleware.SecurityHeaders)
	r.Use(cors.Handler(cors.Options{
		AllowOriginFunc:  func(*http.Request, string) bool { return true },
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"X-Request-Id", middleware.TraceHeader},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", h.Health)
	r.Get("/version", h.GetVersion)

	limited := chi.Chain(
		middleware.RateLimit(ctx, cfg.RateLimit.Requests, cfg.RateLimit.Window),
		middleware.MaxBodyBytes(MaxRequestBytes),
	)

	r.Route("/api", func(r chi.Router) {
		r.Use(limited...)
		r.Post("/chat", h.Chat)

		r.Route("/v1", func(r chi.Router) {
			r.Post("/chat", h.Chat)
			if cfg.Audit.APIEnabled {
				r.Get("/audit", h.ListAudit)
			}
		})
	})

	return r
}
