package audit

import (
	"context"
	"sync"
	"time"

	"github.com/primaai/agent-gateway/pkg/models"
)

// DefaultMemoryCapacity bounds MemoryStore when no capacity is given.
const DefaultMemoryCapacity = 1000

// MemoryStore keeps the most recent events in a bounded ring.
type MemoryStore struct {
	mu       sync.RWMutex
	events   []models.AuditEvent
	capacity int
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an in-memory store holding at most capacity events.
func NewMemoryStore(capacity int) *MemoryStore {
	if capacity <= 0 {
		capacity = DefaultMemoryCapacity
	}
	return &MemoryStore{capacity: capacity}
}

func (m *MemoryStore) CreateAuditEvent(_ context.Context, event *models.AuditEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, *event)
	if over := len(m.events) - m.capacity; over > 0 {
		m.events = append(m.events[:0:0], m.events[over:]...)
	}
	return nil
}

func (m *MemoryStore) ListAuditEvents(_ context.Context, filter models.AuditFilter) ([]models.AuditEvent, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []models.AuditEvent
	for i := len(m.events) - 1; i >= 0; i-- { // newest first
		e := m.events[i]
		if !matches(e, filter) {
			continue
		}
		result = append(result, e)
		if len(result) >= limit {
			break
		}
	}
	return result, nil
}

func (m *MemoryStore) PurgeAuditEvents(_ context.Context, cutoff time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.events[:0]
	for _, e := range m.events {
		if e.Timestamp.Before(cutoff) {
			continue
		}
		kept = append(kept, e)
	}
	purged := len(m.events) - len(kept)
	m.events = kept
	return purged, nil
}

func (m *MemoryStore) Ping(_ context.Context) error { return nil }

func (m *MemoryStore) Close() error { return nil }

func matches(e models.AuditEvent, f models.AuditFilter) bool {
	if f.SessionID != "" && e.SessionID != f.SessionID {
		return false
	}
	if f.Role != "" && e.Role != f.Role {
		return false
	}
	if f.Operation != "" && e.Operation != f.Operation {
		return false
	}
	return true
}
