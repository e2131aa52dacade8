// Package middleware provides HTTP middleware components for the API server.
package middleware

import (
	"net/http"
	"strconv"
	"strings"
)

// CORSConfig holds the configuration for CORS middleware.
type CORSConfig struct {
	AllowedOrigins   []string // explicit allowlist, no wildcards
	AllowedMethods   []string
	AllowedHeaders   []string
	AllowCredentials bool
	MaxAge           int // preflight cache duration in seconds
}

// cors carries the precomputed header values so per-request work is a map
// lookup and a few header writes.
type cors struct {
	origins     map[string]bool
	methods     string
	headers     string
	credentials bool
	maxAge      string
}

// CORS returns a middleware enforcing the origin allowlist. Only origins
// listed verbatim in cfg.AllowedOrigins are accepted; an empty list disables
// CORS handling entirely. Preflight OPTIONS requests are answered without
// reaching the wrapped handler.
func CORS(cfg CORSConfig) func(http.Handler) http.Handler {
	c := &cors{
		origins:     make(map[string]bool, len(cfg.AllowedOrigins)),
		methods:     strings.Join(cfg.AllowedMethods, ", "),
		headers:     strings.Join(cfg.AllowedHeaders, ", "),
		credentials: cfg.AllowCredentials,
	}
	for _, origin := range cfg.AllowedOrigins {
		if origin = strings.TrimSpace(origin); origin != "" {
			c.origins[origin] = true
		}
	}
	if cfg.MaxAge > 0 {
		c.maxAge = strconv.Itoa(cfg.MaxAge)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(c.origins) == 0 {
				next.ServeHTTP(w, r)
				return
			}

			origin := r.Header.Get("Origin")
			if origin == "" {
				// Same-origin request, nothing to negotiate
				next.ServeHTTP(w, r)
				return
			}

			if !c.origins[origin] {
				http.Error(w, "Origin not allowed", http.StatusForbidden)
				return
			}

			h := w.Header()
			h.Set("Access-Control-Allow-Origin", origin)
			h.Add("Vary", "Origin")
			if c.credentials {
				h.Set("Access-Control-Allow-Credentials", "true")
			}

			// Method and header lists only matter on the preflight response
			if r.Method == http.MethodOptions {
				h.Set("Access-Control-Allow-Methods", c.methods)
				h.Set("Access-Control-Allow-Headers", c.headers)
				if c.maxAge != "" {
					h.Set("Access-Control-Max-Age", c.maxAge)
				}
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
