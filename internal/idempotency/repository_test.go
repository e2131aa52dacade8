package idempotency

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func completedRecord(key string) *Record {
	return &Record{
		Key:                key,
		Method:             "POST",
		Route:              "/swipes",
		UserID:             "user-1",
		Status:             StatusCompleted,
		ResponseBody:       `{"id":"swipe-1"}`,
		ResponseHash:       HashResponse(`{"id":"swipe-1"}`),
		ResponseStatusCode: 201,
	}
}

func TestValidateKey(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		wantErr error
	}{
		{"valid key", "client-key-123", nil},
		{"at max length", strings.Repeat("a", MaxKeyLength), nil},
		{"empty key", "", ErrInvalidKey},
		{"too long", strings.Repeat("a", MaxKeyLength+1), ErrKeyTooLong},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := ValidateKey(tt.key); !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateKey(%q) = %v, want %v", tt.key, err, tt.wantErr)
			}
		})
	}
}

func TestRepository_StoreAndGet(t *testing.T) {
	repo := NewInMemoryRepository()
	record := completedRecord("key-1")

	if err := repo.Store(record); err != nil {
		t.Fatalf("Store() returned error: %v", err)
	}

	got, err := repo.Get("key-1")
	if err != nil {
		t.Fatalf("Get() returned error: %v", err)
	}
	if got.ResponseBody != record.ResponseBody || got.ResponseStatusCode != 201 {
		t.Errorf("cached response not preserved: %+v", got)
	}
	if got.CreatedAt.IsZero() {
		t.Error("expected CreatedAt to be set")
	}

	// Returned record is a copy.
	got.ResponseBody = "mutated"
	again, _ := repo.Get("key-1")
	if again.ResponseBody != record.ResponseBody {
		t.Error("mutation of returned record leaked into the repository")
	}
}

func TestRepository_Store_Duplicate(t *testing.T) {
	repo := NewInMemoryRepository()

	if err := repo.Store(completedRecord("key-1")); err != nil {
		t.Fatal(err)
	}
	if err := repo.Store(completedRecord("key-1")); !errors.Is(err, ErrKeyExists) {
		t.Errorf("duplicate Store() error = %v, want ErrKeyExists", err)
	}
}

func TestRepository_Get_Missing(t *testing.T) {
	repo := NewInMemoryRepository()
	if _, err := repo.Get("nope"); !errors.Is(err, ErrKeyNotFound) {
		t.Errorf("Get() error = %v, want ErrKeyNotFound", err)
	}
}

func TestRepository_DeleteOlderThan(t *testing.T) {
	repo := NewInMemoryRepository()

	old := completedRecord("old-key")
	old.CreatedAt = time.Now().Add(-48 * time.Hour)
	if err := repo.Store(old); err != nil {
		t.Fatal(err)
	}
	if err := repo.Store(completedRecord("fresh-key")); err != nil {
		t.Fatal(err)
	}

	deleted, err := repo.DeleteOlderThan(24 * time.Hour)
	if err != nil {
		t.Fatalf("DeleteOlderThan() returned error: %v", err)
	}
	if deleted != 1 {
		t.Errorf("deleted = %d, want 1", deleted)
	}

	if _, err := repo.Get("old-key"); !errors.Is(err, ErrKeyNotFound) {
		t.Error("old key should have been deleted")
	}
	if _, err := repo.Get("fresh-key"); err != nil {
		t.Error("fresh key should have survived cleanup")
	}
}

func TestHashResponse_Deterministic(t *testing.T) {
	a := HashResponse(`{"id":"1"}`)
	b := HashResponse(`{"id":"1"}`)
	c := HashResponse(`{"id":"2"}`)

	if a != b {
		t.Error("hash must be deterministic")
	}
	if a == c {
		t.Error("different bodies must hash differently")
	}
	if len(a) != 64 {
		t.Errorf("hash length = %d, want 64 hex chars", len(a))
	}
}
