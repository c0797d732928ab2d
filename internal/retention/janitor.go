// Package retention prunes the audit trail. The janitor runs as a background
// goroutine and stops when its context is canceled.
package retention

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/primaai/agent-gateway/internal/audit"
)

// DefaultAuditRetention is how long audit events are kept.
const DefaultAuditRetention = 30 * 24 * time.Hour

// Janitor periodically purges audit events older than the retention window.
type Janitor struct {
	store     audit.Store
	interval  time.Duration
	retention time.Duration
	now       func() time.Time
}

// NewJanitor creates a janitor. Intervals under a minute are raised to an hour.
func NewJanitor(s audit.Store, interval, retention time.Duration) *Janitor {
	if interval < time.Minute {
		interval = time.Hour
	}
	if retention <= 0 {
		retention = DefaultAuditRetention
	}
	return &Janitor{store: s, interval: interval, retention: retention, now: time.Now}
}

// Start runs one sweep immediately, then one per interval. It blocks until
// ctx is canceled.
func (j *Janitor) Start(ctx context.Context) {
	log.Info().
		Dur("interval", j.interval).
		Dur("retention", j.retention).
		Msg("Retention janitor started")

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	j.RunOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Retention janitor stopped")
			return
		case <-ticker.C:
			j.RunOnce(ctx)
		}
	}
}

// RunOnce performs a single sweep and returns the number of purged events.
func (j *Janitor) RunOnce(ctx context.Context) int {
	start := j.now()
	cutoff := start.Add(-j.retention)
	purged, err := j.store.PurgeAuditEvents(ctx, cutoff)
	if err != nil {
		log.Warn().Err(err).Msg("Retention janitor: purge failed")
		return 0
	}
	if purged > 0 {
		log.Info().
			Int("purged_audit", purged).
			Time("cutoff", cutoff).
			Dur("elapsed", time.Since(start)).
			Msg("Retention cycle complete")
	}
	return purged
}
