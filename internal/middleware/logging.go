// Package middleware provides HTTP middleware components for the API server.
package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"time"
)

type userIDKey struct{}
type errorCodeKey struct{}

// SetUserID stores the authenticated user's ID in the context. Called by the
// auth middleware after the bearer token checks out.
func SetUserID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, userIDKey{}, id)
}

// GetUserID retrieves the user ID from context. Returns empty string if not present.
func GetUserID(ctx context.Context) string {
	if id, ok := ctx.Value(userIDKey{}).(string); ok {
		return id
	}
	return ""
}

// SetErrorCode stores the error code a handler is about to respond with.
func SetErrorCode(ctx context.Context, code string) context.Context {
	return context.WithValue(ctx, errorCodeKey{}, code)
}

// GetErrorCode retrieves the error code from context. Returns empty string if not present.
func GetErrorCode(ctx context.Context) string {
	if code, ok := ctx.Value(errorCodeKey{}).(string); ok {
		return code
	}
	return ""
}

// responseWriter captures status, size, and a handler-derived context for
// the access log line.
type responseWriter struct {
	http.ResponseWriter
	statusCode  int
	size        int
	wroteHeader bool
	ctx         context.Context
}

func newResponseWriter(w http.ResponseWriter) *responseWriter {
	return &responseWriter{
		ResponseWriter: w,
		statusCode:     http.StatusOK,
	}
}

// responseContextSetter is implemented by response writers that accept a
// handler-derived context so values set after the middleware chain ran
// (such as the error code) can still reach the access log.
type responseContextSetter interface {
	setContext(ctx context.Context)
}

func (rw *responseWriter) setContext(ctx context.Context) {
	rw.ctx = ctx
}

// Unwrap returns the wrapped http.ResponseWriter.
func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// UpdateResponseContext propagates a handler-derived context back to the
// logging middleware's response writer. Handlers call SetErrorCode on a
// derived context, which never reaches the middleware's r.Context(), so the
// updated context travels through the writer instead. The call walks the
// wrapper chain via Unwrap and is a no-op on writers that don't participate.
func UpdateResponseContext(w http.ResponseWriter, ctx context.Context) {
	for w != nil {
		if setter, ok := w.(responseContextSetter); ok {
			setter.setContext(ctx)
			return
		}
		u, ok := w.(interface{ Unwrap() http.ResponseWriter })
		if !ok {
			return
		}
		w = u.Unwrap()
	}
}

// WriteHeader records the first status code; later calls are ignored,
// matching net/http behavior.
func (rw *responseWriter) WriteHeader(code int) {
	if rw.wroteHeader {
		return
	}
	rw.statusCode = code
	rw.wroteHeader = true
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	rw.size += n
	return n, err
}

// NewLogger returns JSON logs at info level in production, text logs at
// debug level everywhere else.
func NewLogger(env string) *slog.Logger {
	if env == "production" {
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
}

func levelFor(status int) slog.Level {
	switch {
	case status >= 500:
		return slog.LevelError
	case status >= 400:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}

// Logging emits one structured line per request: method, path, status,
// latency, sizes, plus request/user/trace IDs and the error code when set.
//
// A panicking handler produces no line; keep the recovery middleware
// outside this one.
func Logging(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := newResponseWriter(w)

			next.ServeHTTP(rw, r)

			// Prefer the handler-derived context pushed through the writer.
			logCtx := r.Context()
			if rw.ctx != nil {
				logCtx = rw.ctx
			}

			attrs := []slog.Attr{
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", rw.statusCode),
				slog.Int64("latency_ms", time.Since(start).Milliseconds()),
				slog.Int("size", rw.size),
			}
			if requestID := GetRequestID(logCtx); requestID != "" {
				attrs = append(attrs, slog.String("request_id", requestID))
			}
			if userID := GetUserID(logCtx); userID != "" {
				attrs = append(attrs, slog.String("user_id", userID))
			}
			// Join log lines to traces when the request is sampled.
			if traceID := GetTraceID(r); traceID != "" {
				attrs = append(attrs, slog.String("trace_id", traceID))
			}
			if rw.statusCode >= 400 {
				if errorCode := GetErrorCode(logCtx); errorCode != "" {
					attrs = append(attrs, slog.String("error_code", errorCode))
				}
			}

			logger.LogAttrs(logCtx, levelFor(rw.statusCode), "request completed", attrs...)
		})
	}
}
