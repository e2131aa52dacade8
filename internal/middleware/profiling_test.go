package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func profiledHandler(cfg ProfilingConfig) http.Handler {
	api := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		io.WriteString(w, "feed")
	})
	return Profiling(cfg)(api)
}

func TestProfiling_DisabledPassesThrough(t *testing.T) {
	handler := profiledHandler(ProfilingConfig{Enabled: false, Environment: "development"})

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/debug/pprof/", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if rec.Body.String() != "feed" {
		t.Errorf("disabled profiling should fall through to the API, got body %q", rec.Body.String())
	}
}

func TestProfiling_RefusedInProduction(t *testing.T) {
	for _, env := range []string{"production", "prod"} {
		t.Run(env, func(t *testing.T) {
			handler := profiledHandler(ProfilingConfig{Enabled: true, Environment: env})

			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/debug/pprof/", nil))

			if rec.Body.String() != "feed" {
				t.Errorf("profiling in %s should be refused, got body %q", env, rec.Body.String())
			}
		})
	}
}

func TestProfiling_ServesIndex(t *testing.T) {
	handler := profiledHandler(ProfilingConfig{Enabled: true, Environment: "development"})

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/debug/pprof/", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if !strings.Contains(rec.Body.String(), "goroutine") {
		t.Errorf("index page should list profiles, got %q", rec.Body.String())
	}
}

func TestProfiling_ServesNamedProfiles(t *testing.T) {
	handler := profiledHandler(ProfilingConfig{Enabled: true, Environment: "development"})

	paths := []string{
		"/debug/pprof/heap",
		"/debug/pprof/goroutine",
		"/debug/pprof/cmdline",
		"/debug/pprof/symbol",
	}
	for _, path := range paths {
		t.Run(path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))

			if rec.Code != http.StatusOK {
				t.Errorf("GET %s status = %d, want %d", path, rec.Code, http.StatusOK)
			}
		})
	}
}

func TestProfiling_NonDebugPathsReachAPI(t *testing.T) {
	handler := profiledHandler(ProfilingConfig{Enabled: true, Environment: "development"})

	for _, path := range []string{"/feed", "/swipes", "/health"} {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))

		if rec.Body.String() != "feed" {
			t.Errorf("GET %s should reach the API handler, got body %q", path, rec.Body.String())
		}
	}
}
