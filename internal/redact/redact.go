// Package redact masks sensitive fields before data reaches logs, traces or
// the audit trail.
package redact

import (
	"strings"
)

// Sentinel replaces the value of every sensitive field.
const Sentinel = "[REDACTED]"

// sensitiveFields are matched case-insensitively as substrings of map keys.
var sensitiveFields = []string{
	"email",
	"guestEmail",
	"phone",
	"guestPhone",
	"password",
	"token",
	"apiKey",
	"creditCard",
	"ssn",
}

// IsSensitiveKey reports whether key names a field that must never be logged.
func IsSensitiveKey(key string) bool {
	lower := strings.ToLower(key)
	for _, f := range sensitiveFields {
		if strings.Contains(lower, strings.ToLower(f)) {
			return true
		}
	}
	return false
}

// Value returns a structurally identical copy of v with every sensitive
// mapping value replaced by Sentinel, at any nesting depth. The input is
// never mutated.
func Value(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		return Map(t)
	case map[string]string:
		out := make(map[string]string, len(t))
		for k, val := range t {
			if IsSensitiveKey(k) {
				out[k] = Sentinel
			} else {
				out[k] = val
			}
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, item := range t {
			out[i] = Value(item)
		}
		return out
	case []map[string]interface{}:
		out := make([]map[string]interface{}, len(t))
		for i, item := range t {
			out[i] = Map(item)
		}
		return out
	default:
		return v
	}
}

// Map is Value specialised to JSON objects.
func Map(m map[string]interface{}) map[string]interface{} {
	if m == nil {
		return nil
	}
	out := make(map[string]interface{}, len(m))
	for k, val := range m {
		if IsSensitiveKey(k) {
			out[k] = Sentinel
			continue
		}
		out[k] = Value(val)
	}
	return out
}

// Fields builds a log payload of a message and its redacted data.
func Fields(message string, data interface{}) map[string]interface{} {
	if data == nil {
		return map[string]interface{}{"message": message}
	}
	return map[string]interface{}{
		"message": message,
		"data":    Value(data),
	}
}
