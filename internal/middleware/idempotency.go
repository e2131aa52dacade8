package middleware

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/swipehire/swipehire-api/internal/idempotency"
)

// IdempotencyKeyHeader is the HTTP header clients send to deduplicate retries.
const IdempotencyKeyHeader = "Idempotency-Key"

type idempotencyKeyContextKey struct{}

// SetIdempotencyKey stores the idempotency key in the context.
func SetIdempotencyKey(ctx context.Context, key string) context.Context {
	return context.WithValue(ctx, idempotencyKeyContextKey{}, key)
}

// GetIdempotencyKey retrieves the idempotency key from context. Returns empty string if not present.
func GetIdempotencyKey(ctx context.Context) string {
	if key, ok := ctx.Value(idempotencyKeyContextKey{}).(string); ok {
		return key
	}
	return ""
}

// idempotencyResponseWriter tees the response so a successful body can be
// cached after the handler returns.
type idempotencyResponseWriter struct {
	http.ResponseWriter
	statusCode int
	body       bytes.Buffer
	written    bool
}

func newIdempotencyResponseWriter(w http.ResponseWriter) *idempotencyResponseWriter {
	return &idempotencyResponseWriter{
		ResponseWriter: w,
		statusCode:     http.StatusOK,
	}
}

func (w *idempotencyResponseWriter) WriteHeader(statusCode int) {
	if !w.written {
		w.statusCode = statusCode
		w.written = true
	}
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *idempotencyResponseWriter) Write(b []byte) (int, error) {
	n, err := w.ResponseWriter.Write(b)
	w.body.Write(b)
	return n, err
}

// Unwrap returns the wrapped http.ResponseWriter.
func (w *idempotencyResponseWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

func writeKeyError(w http.ResponseWriter, r *http.Request, code, message string) {
	UpdateResponseContext(w, SetErrorCode(r.Context(), code))
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusBadRequest)
	io.WriteString(w, `{"error":"`+code+`","message":"`+message+`"}`)
}

// Idempotency requires an Idempotency-Key header on POSTs to the given
// routes. A repeated key replays the cached response instead of re-running
// the handler; first responses with 2xx status are cached.
func Idempotency(repo idempotency.Repository, routes map[string]bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost || !routes[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}

			key := r.Header.Get(IdempotencyKeyHeader)
			if key == "" {
				writeKeyError(w, r, "missing_idempotency_key",
					"Idempotency-Key header is required for this request")
				return
			}
			if err := idempotency.ValidateKey(key); err != nil {
				if errors.Is(err, idempotency.ErrKeyTooLong) {
					writeKeyError(w, r, "idempotency_key_too_long",
						"Idempotency-Key exceeds maximum length of 64 characters")
				} else {
					writeKeyError(w, r, "invalid_idempotency_key",
						"Invalid Idempotency-Key format")
				}
				return
			}

			ctx := SetIdempotencyKey(r.Context(), key)
			r = r.WithContext(ctx)

			existing, err := repo.Get(key)
			if err == nil {
				slog.InfoContext(ctx, "replaying cached idempotent response",
					"key", key,
					"status", existing.ResponseStatusCode,
				)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(existing.ResponseStatusCode)
				io.WriteString(w, existing.ResponseBody)
				return
			}
			if !errors.Is(err, idempotency.ErrKeyNotFound) {
				// Storage trouble must not block writes; run without dedup.
				slog.ErrorContext(ctx, "failed to check idempotency key", "key", key, "error", err)
				next.ServeHTTP(w, r)
				return
			}

			capture := newIdempotencyResponseWriter(w)
			next.ServeHTTP(capture, r)

			if capture.statusCode < 200 || capture.statusCode >= 300 {
				return
			}

			body := capture.body.String()
			record := &idempotency.Record{
				Key:                key,
				Method:             r.Method,
				Route:              r.URL.Path,
				UserID:             GetUserID(ctx),
				ResponseHash:       idempotency.HashResponse(body),
				Status:             idempotency.StatusCompleted,
				ResponseBody:       body,
				ResponseStatusCode: capture.statusCode,
			}
			if err := repo.Store(record); err != nil {
				// Response already sent, nothing to do but log.
				slog.ErrorContext(ctx, "failed to store idempotency key", "key", key, "error", err)
			}
		})
	}
}
