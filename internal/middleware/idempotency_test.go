package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/swipehire/swipehire-api/internal/idempotency"
)

const swipeResponse = `{"swipe_id":"sw-1","matched":true,"match_id":"m-1"}`

// swipeEndpoint wraps handler with idempotency on POST /swipes and counts calls.
func swipeEndpoint(repo idempotency.Repository, handler http.HandlerFunc) (http.Handler, *int) {
	calls := 0
	counted := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		handler(w, r)
	})
	return Idempotency(repo, map[string]bool{"/swipes": true})(counted), &calls
}

func recordSwipe(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	w.Write([]byte(swipeResponse))
}

func postSwipe(handler http.Handler, key string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/swipes", nil)
	if key != "" {
		req.Header.Set(IdempotencyKeyHeader, key)
	}
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	return w
}

func TestIdempotency_MissingKey(t *testing.T) {
	handler, calls := swipeEndpoint(idempotency.NewInMemoryRepository(), recordSwipe)

	w := postSwipe(handler, "")

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
	if !strings.Contains(w.Body.String(), "missing_idempotency_key") {
		t.Errorf("expected missing_idempotency_key error, got %s", w.Body.String())
	}
	if *calls != 0 {
		t.Errorf("handler ran %d times, want 0", *calls)
	}
}

func TestIdempotency_KeyTooLong(t *testing.T) {
	handler, _ := swipeEndpoint(idempotency.NewInMemoryRepository(), recordSwipe)

	w := postSwipe(handler, strings.Repeat("a", idempotency.MaxKeyLength+1))

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
	if !strings.Contains(w.Body.String(), "idempotency_key_too_long") {
		t.Errorf("expected idempotency_key_too_long error, got %s", w.Body.String())
	}
}

func TestIdempotency_FirstRequestIsStored(t *testing.T) {
	repo := idempotency.NewInMemoryRepository()
	handler, calls := swipeEndpoint(repo, recordSwipe)

	w := postSwipe(handler, "seeker-1:item-9")

	if *calls != 1 {
		t.Fatalf("handler ran %d times, want 1", *calls)
	}
	if w.Code != http.StatusCreated {
		t.Errorf("status = %d, want 201", w.Code)
	}

	stored, err := repo.Get("seeker-1:item-9")
	if err != nil {
		t.Fatalf("expected key to be stored: %v", err)
	}
	if stored.ResponseBody != swipeResponse {
		t.Error("stored response body does not match the response sent")
	}
	if stored.ResponseStatusCode != http.StatusCreated {
		t.Errorf("stored status = %d, want 201", stored.ResponseStatusCode)
	}
	if stored.Route != "/swipes" {
		t.Errorf("stored route = %q, want /swipes", stored.Route)
	}
}

func TestIdempotency_RetryReplaysCachedResponse(t *testing.T) {
	handler, calls := swipeEndpoint(idempotency.NewInMemoryRepository(), recordSwipe)

	first := postSwipe(handler, "seeker-1:item-9")
	retry := postSwipe(handler, "seeker-1:item-9")

	if *calls != 1 {
		t.Errorf("handler ran %d times, want 1", *calls)
	}
	if retry.Code != first.Code {
		t.Errorf("retry status = %d, want %d", retry.Code, first.Code)
	}
	if retry.Body.String() != first.Body.String() {
		t.Errorf("retry body = %s, want %s", retry.Body.String(), first.Body.String())
	}
}

func TestIdempotency_GetPassesThrough(t *testing.T) {
	handler, calls := swipeEndpoint(idempotency.NewInMemoryRepository(), recordSwipe)

	req := httptest.NewRequest(http.MethodGet, "/swipes", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if *calls != 1 {
		t.Errorf("handler ran %d times, want 1", *calls)
	}
	if w.Code != http.StatusCreated {
		t.Errorf("status = %d, want 201", w.Code)
	}
}

func TestIdempotency_UnconfiguredRoutePassesThrough(t *testing.T) {
	repo := idempotency.NewInMemoryRepository()
	called := false
	handler := Idempotency(repo, map[string]bool{"/swipes": true})(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			called = true
			w.WriteHeader(http.StatusOK)
		}))

	req := httptest.NewRequest(http.MethodPost, "/telemetry/playback", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if !called {
		t.Error("handler should run for routes outside the idempotent set")
	}
	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
}

func TestIdempotency_ErrorResponsesNotCached(t *testing.T) {
	repo := idempotency.NewInMemoryRepository()
	handler, calls := swipeEndpoint(repo, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		w.Write([]byte(`{"error":{"code":"self_swipe"}}`))
	})

	postSwipe(handler, "seeker-1:item-1")

	if _, err := repo.Get("seeker-1:item-1"); !errors.Is(err, idempotency.ErrKeyNotFound) {
		t.Error("error responses must not be cached")
	}

	// A retry after a failure gets a fresh attempt.
	postSwipe(handler, "seeker-1:item-1")
	if *calls != 2 {
		t.Errorf("handler ran %d times, want 2", *calls)
	}
}

func TestIdempotency_KeyAvailableInContext(t *testing.T) {
	var captured string
	handler, _ := swipeEndpoint(idempotency.NewInMemoryRepository(), func(w http.ResponseWriter, r *http.Request) {
		captured = GetIdempotencyKey(r.Context())
		recordSwipe(w, r)
	})

	postSwipe(handler, "seeker-1:item-2")

	if captured != "seeker-1:item-2" {
		t.Errorf("context key = %q, want seeker-1:item-2", captured)
	}
}

func TestIdempotency_ConcurrentRetries(t *testing.T) {
	repo := idempotency.NewInMemoryRepository()
	var mu sync.Mutex
	calls := 0
	handler := Idempotency(repo, map[string]bool{"/swipes": true})(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			mu.Lock()
			calls++
			mu.Unlock()
			time.Sleep(20 * time.Millisecond)
			recordSwipe(w, r)
		}))

	const retries = 5
	var wg sync.WaitGroup
	responses := make([]*httptest.ResponseRecorder, retries)
	for i := 0; i < retries; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			responses[idx] = postSwipe(handler, "seeker-1:item-burst")
		}(i)
	}
	wg.Wait()

	for i, w := range responses {
		if w.Code != http.StatusCreated {
			t.Errorf("request %d: status = %d, want 201", i, w.Code)
		}
		if w.Body.String() != swipeResponse {
			t.Errorf("request %d: unexpected body %s", i, w.Body.String())
		}
	}

	// In-flight duplicates may each reach the handler; the repository still
	// keeps exactly one record for the key.
	stored, err := repo.Get("seeker-1:item-burst")
	if err != nil {
		t.Fatalf("expected key to be stored: %v", err)
	}
	if stored.ResponseBody != swipeResponse {
		t.Error("stored response body does not match")
	}
}
