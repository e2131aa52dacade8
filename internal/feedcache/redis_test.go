package feedcache

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

// TestRedisStore_RoundTrip tests the Redis session store with a real Redis
// instance. This test requires a Redis instance running on localhost:6379.
// Skip this test if Redis is not available.
func TestRedisStore_RoundTrip(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr: "localhost:6379",
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		t.Skip("Redis not available, skipping integration test")
	}
	defer client.Close()

	store := NewRedisStore(client)
	viewerID := "test-viewer-" + strconv.FormatInt(time.Now().UnixNano(), 10)
	ctx = context.Background()

	session := NewSession(viewerID, "kubernetes", "location=berlin")
	session.Ranked = []RankedEntry{
		{ItemID: "c1", Score: 210},
		{ItemID: "c2", Score: 64.25},
	}
	session.MarkViewed("c1")
	session.MarkLiked("c2")

	if err := store.Put(ctx, session, time.Minute); err != nil {
		t.Fatalf("Put() returned error: %v", err)
	}
	defer store.Delete(ctx, viewerID)

	got, err := store.Get(ctx, viewerID)
	if err != nil {
		t.Fatalf("Get() returned error: %v", err)
	}

	if !got.Matches("kubernetes", "location=berlin") {
		t.Error("fingerprint not preserved across Redis round trip")
	}
	if len(got.Ranked) != 2 || got.Ranked[1].Score != 64.25 {
		t.Errorf("ranked order not preserved: %+v", got.Ranked)
	}
	if _, ok := got.Viewed["c1"]; !ok {
		t.Error("viewed set not preserved")
	}
	if _, ok := got.Liked["c2"]; !ok {
		t.Error("liked set not preserved")
	}

	if err := store.Delete(ctx, viewerID); err != nil {
		t.Fatalf("Delete() returned error: %v", err)
	}
	if _, err := store.Get(ctx, viewerID); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Get() after delete error = %v, want ErrSessionNotFound", err)
	}
}
