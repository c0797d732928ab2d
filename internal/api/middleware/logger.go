package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// TraceHeader carries the request's trace id back to the caller.
const TraceHeader = "X-Trace-Id"

// RequestLogger emits one structured line per request. Requests to a quiet
// path (health probes) are logged at debug level unless they fail. Query
// strings and bodies are never logged; both may carry guest details.
func RequestLogger(quiet ...string) func(http.Handler) http.Handler {
	quietPaths := make(map[string]bool, len(quiet))
	for _, p := range quiet {
		quietPaths[p] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sr := recordStatus(w)

			next.ServeHTTP(sr, r)

			event := requestEvent(sr.status, quietPaths[r.URL.Path])
			if route := routePattern(r); route != "" {
				event = event.Str("route", route)
			}
			if traceID := sr.Header().Get(TraceHeader); traceID != "" {
				event = event.Str("trace_id", traceID)
			}
			event.
				Str("request_id", chimw.GetReqID(r.Context())).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", sr.status).
				Int("bytes", sr.written).
				Dur("duration", time.Since(start)).
				Str("client_ip", clientIP(r)).
				Msg("request")
		})
	}
}

func requestEvent(status int, quiet bool) *zerolog.Event {
	switch {
	case status >= 500:
		return log.Error()
	case status >= 400:
		return log.Warn()
	case quiet:
		return log.Debug()
	default:
		return log.Info()
	}
}

func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		return rctx.RoutePattern()
	}
	return ""
}
