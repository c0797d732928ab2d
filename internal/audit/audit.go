// Package audit persists one record per dispatched operation. Arguments are
// redacted before they reach a Store.
package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/primaai/agent-gateway/internal/redact"
	"github.com/primaai/agent-gateway/pkg/models"
)

// DefaultListLimit caps ListAuditEvents when the filter sets no limit.
const DefaultListLimit = 100

// Store persists audit events.
type Store interface {
	// CreateAuditEvent persists an audit event.
	CreateAuditEvent(ctx context.Context, event *models.AuditEvent) error

	// ListAuditEvents returns filtered audit events, newest first.
	ListAuditEvents(ctx context.Context, filter models.AuditFilter) ([]models.AuditEvent, error)

	// PurgeAuditEvents deletes events recorded before cutoff and returns how
	// many were removed.
	PurgeAuditEvents(ctx context.Context, cutoff time.Time) (int, error)

	// Ping checks if the store is reachable.
	Ping(ctx context.Context) error

	// Close releases all resources held by the store.
	Close() error
}

// Entry is what the orchestrator knows about one dispatch.
type Entry struct {
	SessionID string
	UserID    string
	Role      models.Role
	Call      models.FunctionCall
	Result    models.FunctionResult
	Duration  time.Duration
}

// Recorder turns entries into events. Write failures are logged and
// swallowed: auditing never fails a turn.
type Recorder struct {
	store Store
}

// NewRecorder creates a Recorder. A nil store disables recording.
func NewRecorder(s Store) *Recorder {
	return &Recorder{store: s}
}

// Record writes one event for e.
func (r *Recorder) Record(ctx context.Context, e Entry) {
	if r == nil || r.store == nil {
		return
	}
	event := &models.AuditEvent{
		ID:         uuid.New().String(),
		Timestamp:  time.Now().UTC(),
		SessionID:  e.SessionID,
		UserID:     e.UserID,
		Role:       e.Role,
		Operation:  e.Call.Name,
		Arguments:  redact.Map(e.Call.Arguments),
		Success:    e.Result.Success,
		Error:      e.Result.Error,
		DurationMs: e.Duration.Milliseconds(),
	}
	if err := r.store.CreateAuditEvent(ctx, event); err != nil {
		log.Error().Err(err).Str("operation", e.Call.Name).Msg("Failed to write audit event")
	}
}
