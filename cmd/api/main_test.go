// Package main contains lifecycle tests for the API server.
package main

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"testing"
	"time"
)

// startServer listens on a free port, serves handler in the background, and
// returns the server together with a channel that closes once Serve returns.
func startServer(t *testing.T, handler http.Handler) (*http.Server, chan struct{}) {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}

	server := &http.Server{
		Addr:         ln.Addr().String(),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	stopped := make(chan struct{})
	go func() {
		if err := server.Serve(ln); err != nil && err != http.ErrServerClosed {
			t.Errorf("server error: %v", err)
		}
		close(stopped)
	}()

	// Wait until the listener accepts connections
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		conn, err := net.Dial("tcp", server.Addr)
		if err == nil {
			conn.Close()
			return server, stopped
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("server failed to start in time")
	return nil, nil
}

func TestGracefulShutdown_LogsLifecycle(t *testing.T) {
	var logBuf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&logBuf, nil))

	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"healthy"}`))
	})

	server, stopped := startServer(t, mux)
	logger.Info("starting server", "addr", server.Addr)

	resp, err := http.Get("http://" + server.Addr + "/health")
	if err != nil {
		t.Fatalf("health check failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected status 200 from /health, got %d", resp.StatusCode)
	}

	logger.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		t.Errorf("server shutdown error: %v", err)
	}
	logger.Info("server stopped")

	select {
	case <-stopped:
	case <-time.After(15 * time.Second):
		t.Fatal("server failed to stop in time")
	}

	logs := logBuf.String()
	startIdx := strings.Index(logs, "starting server")
	shutdownIdx := strings.Index(logs, "shutting down server")
	stoppedIdx := strings.Index(logs, "server stopped")
	if startIdx == -1 || shutdownIdx == -1 || stoppedIdx == -1 {
		t.Fatalf("missing lifecycle log lines:\n%s", logs)
	}
	if !(startIdx < shutdownIdx && shutdownIdx < stoppedIdx) {
		t.Errorf("lifecycle logs out of order:\n%s", logs)
	}
}

// A feed request that is in flight when shutdown begins must still get its
// response before the server stops.
func TestGracefulShutdown_InFlightFeedRequest(t *testing.T) {
	handlerStarted := make(chan struct{})
	handlerRelease := make(chan struct{})

	mux := http.NewServeMux()
	mux.HandleFunc("/feed", func(w http.ResponseWriter, r *http.Request) {
		close(handlerStarted)
		<-handlerRelease

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"entries":[],"next_page":1}`))
	})

	server, stopped := startServer(t, mux)

	type result struct {
		resp *http.Response
		err  error
	}
	requestDone := make(chan result, 1)
	go func() {
		resp, err := http.Get("http://" + server.Addr + "/feed")
		requestDone <- result{resp, err}
	}()

	select {
	case <-handlerStarted:
	case <-time.After(2 * time.Second):
		t.Fatal("handler did not start in time")
	}

	shutdownDone := make(chan struct{})
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			t.Errorf("shutdown error: %v", err)
		}
		close(shutdownDone)
	}()

	// Let shutdown begin before the handler finishes
	time.Sleep(50 * time.Millisecond)
	close(handlerRelease)

	var res result
	select {
	case res = <-requestDone:
	case <-time.After(5 * time.Second):
		t.Fatal("in-flight request did not complete")
	}
	select {
	case <-shutdownDone:
	case <-time.After(15 * time.Second):
		t.Fatal("shutdown did not complete")
	}
	<-stopped

	if res.err != nil {
		t.Fatalf("in-flight request failed: %v", res.err)
	}
	defer res.resp.Body.Close()
	if res.resp.StatusCode != http.StatusOK {
		t.Errorf("expected status 200, got %d", res.resp.StatusCode)
	}
	body, _ := io.ReadAll(res.resp.Body)
	if !strings.Contains(string(body), "entries") {
		t.Errorf("expected feed body, got %s", body)
	}
}

func TestSignalNotify_ShutdownSignals(t *testing.T) {
	signals := []struct {
		name string
		sig  syscall.Signal
	}{
		{"SIGINT", syscall.SIGINT},
		{"SIGTERM", syscall.SIGTERM},
	}

	for _, tc := range signals {
		t.Run(tc.name, func(t *testing.T) {
			quit := make(chan os.Signal, 1)
			signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
			defer signal.Stop(quit)

			go func() {
				time.Sleep(50 * time.Millisecond)
				syscall.Kill(syscall.Getpid(), tc.sig)
			}()

			select {
			case sig := <-quit:
				if sig != tc.sig {
					t.Errorf("expected %v, got %v", tc.sig, sig)
				}
			case <-time.After(2 * time.Second):
				t.Errorf("did not receive %v in time", tc.sig)
			}
		})
	}
}
