package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/kaptinlin/jsonschema"
	"github.com/rs/zerolog/log"

	"github.com/primaai/agent-gateway/pkg/models"
)

var chatRequestSchema = mustCompile(`{
	"type": "object",
	"properties": {
		"message":   {"type": "string", "minLength": 1},
		"userId":    {"type": "string"},
		"sessionId": {"type": "string"},
		"context":   {"type": "object"}
	},
	"required": ["message"]
}`)

func mustCompile(schema string) *jsonschema.Schema {
	s, err := jsonschema.NewCompiler().Compile([]byte(schema))
	if err != nil {
		panic("compile request schema: " + err.Error())
	}
	return s
}

// Chat handles POST /api/chat. Operation failures come back as a normal
// reply; only a failed turn is a 500, and its cause is never echoed.
func (h *Handlers) Chat(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(w, http.StatusRequestEntityTooLarge, "Request body too large")
			return
		}
		respondInvalid(w, "could not read request body")
		return
	}

	var doc interface{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		respondInvalid(w, "body must be valid JSON")
		return
	}
	if result := chatRequestSchema.Validate(doc); !result.IsValid() {
		respondInvalid(w, fmt.Sprint(result.Error()))
		return
	}

	var req models.ChatRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		respondInvalid(w, err.Error())
		return
	}

	resp, err := h.Orchestrator.Handle(r.Context(), req)
	if err != nil {
		log.Error().Err(err).Str("user_id", req.UserID).Str("session_id", req.SessionID).Msg("Chat request failed")
		respondJSON(w, http.StatusInternalServerError, map[string]string{
			"error":   "Internal server error",
			"message": "Failed to process chat request",
		})
		return
	}
	respondJSON(w, http.StatusOK, resp)
}

func respondInvalid(w http.ResponseWriter, details interface{}) {
	respondJSON(w, http.StatusBadRequest, map[string]interface{}{
		"error":   "Invalid request format",
		"details": details,
	})
}
