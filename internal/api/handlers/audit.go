package handlers

import (
	"net/http"
	"strconv"

	"github.com/primaai/agent-gateway/internal/audit"
	"github.com/primaai/agent-gateway/pkg/models"
)

const maxAuditLimit = 500

// ListAudit handles GET /api/v1/audit. Stored arguments are already redacted.
func (h *Handlers) ListAudit(w http.ResponseWriter, r *http.Request) {
	if h.Audit == nil {
		respondError(w, http.StatusNotFound, "Audit trail is disabled")
		return
	}

	q := r.URL.Query()
	limit := audit.DefaultListLimit
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			respondError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxAuditLimit)
	}

	events, err := h.Audit.ListAuditEvents(r.Context(), models.AuditFilter{
		SessionID: q.Get("session_id"),
		Role:      models.Role(q.Get("role")),
		Operation: q.Get("operation"),
		Limit:     limit,
	})
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to list audit events")
		return
	}
	if events == nil {
		events = []models.AuditEvent{}
	}
	respondJSON(w, http.StatusOK, events)
}
