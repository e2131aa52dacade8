package feedcache

import (
	"context"
	"errors"
	"testing"
	"time"
)

func testSession(viewerID string) *Session {
	s := NewSession(viewerID, "go", "kinds=job_opening")
	s.Ranked = []RankedEntry{
		{ItemID: "c1", Score: 180.5},
		{ItemID: "c2", Score: 120},
		{ItemID: "c3", Score: 45},
	}
	s.MarkViewed("c1")
	s.MarkLiked("c1")
	return s
}

func TestInMemoryStore_PutGet(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()

	if err := store.Put(ctx, testSession("u1"), time.Minute); err != nil {
		t.Fatalf("Put() returned error: %v", err)
	}

	got, err := store.Get(ctx, "u1")
	if err != nil {
		t.Fatalf("Get() returned error: %v", err)
	}
	if len(got.Ranked) != 3 || got.Ranked[0].ItemID != "c1" || got.Ranked[0].Score != 180.5 {
		t.Errorf("ranked order not preserved: %+v", got.Ranked)
	}
	if _, ok := got.Viewed["c1"]; !ok {
		t.Error("viewed set not preserved")
	}
	if !got.Matches("go", "kinds=job_opening") {
		t.Error("fingerprint not preserved")
	}
	if got.Matches("react", "kinds=job_opening") {
		t.Error("different query must not match")
	}
}

func TestInMemoryStore_GetMissing(t *testing.T) {
	store := NewInMemoryStore()

	_, err := store.Get(context.Background(), "nobody")
	if !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Get() error = %v, want ErrSessionNotFound", err)
	}
}

func TestInMemoryStore_Expiry(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()

	now := time.Now()
	store.now = func() time.Time { return now }

	if err := store.Put(ctx, testSession("u1"), time.Minute); err != nil {
		t.Fatal(err)
	}

	now = now.Add(30 * time.Second)
	if _, err := store.Get(ctx, "u1"); err != nil {
		t.Errorf("session expired early: %v", err)
	}

	now = now.Add(31 * time.Second)
	if _, err := store.Get(ctx, "u1"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Get() after TTL error = %v, want ErrSessionNotFound", err)
	}
}

func TestInMemoryStore_Delete(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()

	if err := store.Put(ctx, testSession("u1"), time.Minute); err != nil {
		t.Fatal(err)
	}
	if err := store.Delete(ctx, "u1"); err != nil {
		t.Fatalf("Delete() returned error: %v", err)
	}
	if _, err := store.Get(ctx, "u1"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Get() after delete error = %v, want ErrSessionNotFound", err)
	}

	// Deleting a missing session is not an error.
	if err := store.Delete(ctx, "nobody"); err != nil {
		t.Errorf("Delete() of missing session returned error: %v", err)
	}
}

func TestInMemoryStore_CopiesOnReadAndWrite(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()

	original := testSession("u1")
	if err := store.Put(ctx, original, time.Minute); err != nil {
		t.Fatal(err)
	}

	// Mutating the caller's session must not affect the stored copy.
	original.MarkViewed("c2")

	got, err := store.Get(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := got.Viewed["c2"]; ok {
		t.Error("store aliased the caller's session on Put")
	}

	// Mutating a returned session must not affect the stored copy.
	got.Ranked[0].ItemID = "mutated"
	again, err := store.Get(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if again.Ranked[0].ItemID != "c1" {
		t.Error("store aliased the stored session on Get")
	}
}

func TestInMemoryStore_DefaultTTL(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()

	now := time.Now()
	store.now = func() time.Time { return now }

	if err := store.Put(ctx, testSession("u1"), 0); err != nil {
		t.Fatal(err)
	}

	now = now.Add(DefaultSessionTTL - time.Second)
	if _, err := store.Get(ctx, "u1"); err != nil {
		t.Errorf("session with default TTL expired early: %v", err)
	}
}
