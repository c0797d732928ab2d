package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/primaai/agent-gateway/pkg/models"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS audit_events (
	id          TEXT PRIMARY KEY,
	timestamp   TEXT NOT NULL,
	session_id  TEXT NOT NULL DEFAULT '',
	user_id     TEXT NOT NULL DEFAULT '',
	role        TEXT NOT NULL,
	operation   TEXT NOT NULL,
	arguments   TEXT NOT NULL DEFAULT '{}',
	success     INTEGER NOT NULL,
	error       TEXT NOT NULL DEFAULT '',
	duration_ms INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_audit_events_timestamp ON audit_events(timestamp);
CREATE INDEX IF NOT EXISTS idx_audit_events_session ON audit_events(session_id);
`

// Fixed-width so lexical order is chronological.
const sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z"

// SQLiteStore persists audit events to an embedded SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

var _ Store = (*SQLiteStore)(nil)

// OpenSQLite opens the database at dsn and applies the schema. Use
// ":memory:" for a throwaway database.
func OpenSQLite(ctx context.Context, dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open audit db: %w", err)
	}
	// A single connection keeps ":memory:" databases coherent and serializes writers.
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping audit db: %w", err)
	}
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply audit schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) CreateAuditEvent(ctx context.Context, event *models.AuditEvent) error {
	args, err := json.Marshal(event.Arguments)
	if err != nil {
		return fmt.Errorf("encode audit arguments: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO audit_events (id, timestamp, session_id, user_id, role, operation, arguments, success, error, duration_ms)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		event.ID,
		event.Timestamp.UTC().Format(sqliteTimeLayout),
		event.SessionID,
		event.UserID,
		string(event.Role),
		event.Operation,
		string(args),
		event.Success,
		event.Error,
		event.DurationMs,
	)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

func (s *SQLiteStore) ListAuditEvents(ctx context.Context, filter models.AuditFilter) ([]models.AuditEvent, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}

	var (
		where []string
		args  []interface{}
	)
	if filter.SessionID != "" {
		where = append(where, "session_id = ?")
		args = append(args, filter.SessionID)
	}
	if filter.Role != "" {
		where = append(where, "role = ?")
		args = append(args, string(filter.Role))
	}
	if filter.Operation != "" {
		where = append(where, "operation = ?")
		args = append(args, filter.Operation)
	}

	q := `SELECT id, timestamp, session_id, user_id, role, operation, arguments, success, error, duration_ms FROM audit_events`
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY timestamp DESC, rowid DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()

	var result []models.AuditEvent
	for rows.Next() {
		var (
			e        models.AuditEvent
			ts, role string
			rawArgs  string
		)
		if err := rows.Scan(&e.ID, &ts, &e.SessionID, &e.UserID, &role, &e.Operation, &rawArgs, &e.Success, &e.Error, &e.DurationMs); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		e.Role = models.Role(role)
		if e.Timestamp, err = time.Parse(sqliteTimeLayout, ts); err != nil {
			return nil, fmt.Errorf("parse audit timestamp: %w", err)
		}
		if rawArgs != "" && rawArgs != "null" {
			if err := json.Unmarshal([]byte(rawArgs), &e.Arguments); err != nil {
				return nil, fmt.Errorf("decode audit arguments: %w", err)
			}
		}
		result = append(result, e)
	}
	return result, rows.Err()
}

func (s *SQLiteStore) PurgeAuditEvents(ctx context.Context, cutoff time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM audit_events WHERE timestamp < ?`, cutoff.UTC().Format(sqliteTimeLayout))
	if err != nil {
		return 0, fmt.Errorf("purge audit events: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("purge audit events: %w", err)
	}
	return int(n), nil
}

func (s *SQLiteStore) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

func (s *SQLiteStore) Close() error { return s.db.Close() }
