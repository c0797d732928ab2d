// Package handlers implements the HTTP handlers for the agent gateway.
package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/primaai/agent-gateway/internal/audit"
	"github.com/primaai/agent-gateway/pkg/models"
)

// ChatService runs one conversational turn.
type ChatService interface {
	Handle(ctx context.Context, req models.ChatRequest) (*models.ChatResponse, error)
}

// Handlers holds all handler dependencies.
type Handlers struct {
	Orchestrator ChatService
	Audit        audit.Store
	Version      string
	Service      string

	now func() time.Time
}

// New creates a new Handlers instance with all dependencies. auditStore may
// be nil when the audit endpoint is disabled.
func New(chat ChatService, auditStore audit.Store, version string) *Handlers {
	return &Handlers{
		Orchestrator: chat,
		Audit:        auditStore,
		Version:      version,
		Service:      "prima-agent-gateway",
		now:          time.Now,
	}
}

// ── Health & Info ───────────────────────────────────────────

func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status":    "ok",
		"timestamp": models.FormatTimestamp(h.now()),
	})
}

func (h *Handlers) GetVersion(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"version": h.Version,
		"service": h.Service,
	})
}

// ── Helpers ─────────────────────────────────────────────────

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
