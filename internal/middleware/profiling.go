// Package middleware provides HTTP middleware for the API server.
package middleware

import (
	"log/slog"
	"net/http"
	"net/http/pprof"
	"strings"
)

// ProfilingConfig configures the pprof middleware.
type ProfilingConfig struct {
	// Enabled exposes /debug/pprof endpoints. Development only; pprof
	// leaks runtime internals and must never face production traffic.
	Enabled bool

	Environment string
}

// Profiling intercepts /debug/pprof/* and serves the runtime profiles.
// Requests outside that prefix fall through to the next handler. Enabling
// it in a production environment is refused regardless of the flag.
func Profiling(config ProfilingConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !config.Enabled {
			return next
		}
		if config.Environment == "production" || config.Environment == "prod" {
			slog.Error("refusing to enable profiling in production", "environment", config.Environment)
			return next
		}

		slog.Warn("pprof endpoints enabled", "environment", config.Environment)

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !strings.HasPrefix(r.URL.Path, "/debug/pprof") {
				next.ServeHTTP(w, r)
				return
			}
			switch r.URL.Path {
			case "/debug/pprof/cmdline":
				pprof.Cmdline(w, r)
			case "/debug/pprof/profile":
				pprof.Profile(w, r)
			case "/debug/pprof/symbol":
				pprof.Symbol(w, r)
			case "/debug/pprof/trace":
				pprof.Trace(w, r)
			default:
				// Index serves /debug/pprof/ and the named profiles
				// (heap, goroutine, block, mutex, allocs).
				pprof.Index(w, r)
			}
		})
	}
}
