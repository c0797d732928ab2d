// Package models holds the types shared between the gateway's core packages
// and its HTTP surface.
package models

import (
	"time"
)

// ── Roles ────────────────────────────────────────────────────

// Role is the caller's access tier. It gates which operations the model is
// offered and which the dispatcher will execute.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleManager Role = "manager"
	RoleStaff   Role = "staff"
	RoleUser    Role = "user"
	RoleGuest   Role = "guest"
)

// DefaultRole is used when a chat request carries no role.
const DefaultRole = RoleUser

// Roles lists every known role, most privileged first.
var Roles = []Role{RoleAdmin, RoleManager, RoleStaff, RoleUser, RoleGuest}

// ParseRole reports whether s names a known role.
func ParseRole(s string) (Role, bool) {
	for _, r := range Roles {
		if string(r) == s {
			return r, true
		}
	}
	return Role(s), false
}

// ── Function Calling ─────────────────────────────────────────

// FunctionDefinition describes an operation to the language model.
// Parameters is a JSON Schema object.
type FunctionDefinition struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Parameters  map[string]interface{} `json:"parameters"`
}

// Required returns the top-level required parameter names, in schema order.
func (d FunctionDefinition) Required() []string {
	switch req := d.Parameters["required"].(type) {
	case []string:
		return req
	case []interface{}:
		out := make([]string, 0, len(req))
		for _, r := range req {
			if s, ok := r.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// FunctionCall is an operation invocation emitted by the model, with its
// argument payload already parsed.
type FunctionCall struct {
	Name      string                 `json:"name"`
	Arguments map[string]interface{} `json:"arguments"`
}

// FunctionResult is the normalized outcome of executing one FunctionCall.
type FunctionResult struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// Failure builds an unsuccessful result.
func Failure(msg string) FunctionResult {
	return FunctionResult{Success: false, Error: msg}
}

// FunctionCallRecord is one attempted call as reported back to the client.
type FunctionCallRecord struct {
	Name      string                 `json:"name"`
	Arguments map[string]interface{} `json:"arguments"`
	Result    FunctionResult         `json:"result"`
}

// ── Chat ─────────────────────────────────────────────────────

// ChatRequest is the inbound body of POST /api/chat.
type ChatRequest struct {
	Message   string                 `json:"message"`
	UserID    string                 `json:"userId,omitempty"`
	SessionID string                 `json:"sessionId,omitempty"`
	Context   map[string]interface{} `json:"context,omitempty"`
}

// Role extracts the caller role from the request context, defaulting to
// DefaultRole when absent. Unrecognized values are returned as-is so they
// resolve to an empty permission set.
func (r ChatRequest) Role() Role {
	if r.Context == nil {
		return DefaultRole
	}
	s, ok := r.Context["role"].(string)
	if !ok || s == "" {
		return DefaultRole
	}
	role, _ := ParseRole(s)
	return role
}

// ChatResponse is the outbound body of a completed turn.
type ChatResponse struct {
	Message       string               `json:"message"`
	FunctionCalls []FunctionCallRecord `json:"functionCalls,omitempty"`
	SessionID     string               `json:"sessionId"`
	Timestamp     string               `json:"timestamp"`
}

// TimestampFormat matches JavaScript's Date.toISOString output.
const TimestampFormat = "2006-01-02T15:04:05.000Z07:00"

// FormatTimestamp renders t in UTC with millisecond precision.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampFormat)
}

// ── Audit ────────────────────────────────────────────────────

// AuditEvent records one dispatch. Arguments are stored redacted.
type AuditEvent struct {
	ID         string                 `json:"id"`
	Timestamp  time.Time              `json:"timestamp"`
	SessionID  string                 `json:"session_id,omitempty"`
	UserID     string                 `json:"user_id,omitempty"`
	Role       Role                   `json:"role"`
	Operation  string                 `json:"operation"`
	Arguments  map[string]interface{} `json:"arguments,omitempty"`
	Success    bool                   `json:"success"`
	Error      string                 `json:"error,omitempty"`
	DurationMs int64                  `json:"duration_ms"`
}

// AuditFilter provides query options for listing audit events.
type AuditFilter struct {
	SessionID string
	Role      Role
	Operation string
	Limit     int
}
