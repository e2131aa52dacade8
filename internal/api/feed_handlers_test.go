package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/swipehire/swipehire-api/internal/content"
	"github.com/swipehire/swipehire-api/internal/feedcache"
	"github.com/swipehire/swipehire-api/internal/interaction"
	"github.com/swipehire/swipehire-api/internal/profile"
)

type feedTestEnv struct {
	handlers     *FeedHandlers
	items        *content.InMemoryRepository
	profiles     *profile.InMemoryRepository
	interactions *interaction.InMemoryRepository
	sessions     *feedcache.InMemoryStore
}

func newFeedTestEnv() *feedTestEnv {
	items := content.NewInMemoryRepository()
	profiles := profile.NewInMemoryRepository()
	interactions := interaction.NewInMemoryRepository()
	sessions := feedcache.NewInMemoryStore()

	handlers := NewFeedHandlers(FeedHandlersConfig{
		Items:        items,
		Profiles:     profiles,
		Interactions: interactions,
		Sessions:     sessions,
		SessionTTL:   30 * time.Minute,
	})

	return &feedTestEnv{
		handlers:     handlers,
		items:        items,
		profiles:     profiles,
		interactions: interactions,
		sessions:     sessions,
	}
}

// seedFeedItems creates approved items from distinct authors, each one hour
// older than the previous.
func (env *feedTestEnv) seedFeedItems(count int) []*content.Item {
	items := make([]*content.Item, count)
	for i := 0; i < count; i++ {
		item := &content.Item{
			AuthorID:   fmt.Sprintf("author-%d", i),
			Kind:       content.KindIntroduction,
			Caption:    fmt.Sprintf("Test item %d", i),
			VideoURL:   fmt.Sprintf("https://cdn.example.com/v/%d.mp4", i),
			Moderation: content.ModerationApproved,
		}
		if err := env.items.Create(item); err != nil {
			panic(err)
		}
		items[i] = item
	}
	return items
}

func decodeFeedResponse(t *testing.T, w *httptest.ResponseRecorder) FeedResponse {
	t.Helper()
	var resp FeedResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode feed response: %v", err)
	}
	return resp
}

func TestFeed_ReturnsRankedPage(t *testing.T) {
	env := newFeedTestEnv()
	env.seedFeedItems(5)

	req := httptest.NewRequest(http.MethodGet, "/feed?viewer_id=viewer-1", nil)
	w := httptest.NewRecorder()
	env.handlers.Feed(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	resp := decodeFeedResponse(t, w)
	if len(resp.Entries) != 5 {
		t.Errorf("expected 5 entries, got %d", len(resp.Entries))
	}
	if resp.SessionID != "viewer-1" {
		t.Errorf("expected session ID viewer-1, got %q", resp.SessionID)
	}
	if resp.HasMore {
		t.Error("expected has_more=false for a pool smaller than the page")
	}
	if got := w.Header().Get(FeedSessionHeader); got != "viewer-1" {
		t.Errorf("expected %s header viewer-1, got %q", FeedSessionHeader, got)
	}
	for _, entry := range resp.Entries {
		if entry.Item == nil {
			t.Fatal("expected every entry to carry an item")
		}
	}
}

func TestFeed_ScoresDescending(t *testing.T) {
	env := newFeedTestEnv()
	env.seedFeedItems(20)

	req := httptest.NewRequest(http.MethodGet, "/feed?viewer_id=viewer-1&page_size=20", nil)
	w := httptest.NewRecorder()
	env.handlers.Feed(w, req)

	resp := decodeFeedResponse(t, w)
	for i := 1; i < len(resp.Entries); i++ {
		if resp.Entries[i].Score > resp.Entries[i-1].Score {
			t.Errorf("entry %d score %f exceeds entry %d score %f", i, resp.Entries[i].Score, i-1, resp.Entries[i-1].Score)
		}
	}
}

func TestFeed_SecondPageReplaysCachedOrder(t *testing.T) {
	env := newFeedTestEnv()
	env.seedFeedItems(25)

	// First page ranks the pool and caches the order
	req := httptest.NewRequest(http.MethodGet, "/feed?viewer_id=viewer-1&page_size=10", nil)
	w := httptest.NewRecorder()
	env.handlers.Feed(w, req)
	first := decodeFeedResponse(t, w)

	if !first.HasMore {
		t.Fatal("expected has_more=true on the first of three pages")
	}

	session, err := env.sessions.Get(req.Context(), "viewer-1")
	if err != nil {
		t.Fatalf("expected cached session after first page: %v", err)
	}
	cachedOrder := make([]string, len(session.Ranked))
	for i, entry := range session.Ranked {
		cachedOrder[i] = entry.ItemID
	}

	// Second page must serve the next window of the same cached order
	req = httptest.NewRequest(http.MethodGet, "/feed?viewer_id=viewer-1&page=1&page_size=10", nil)
	w = httptest.NewRecorder()
	env.handlers.Feed(w, req)
	second := decodeFeedResponse(t, w)

	if len(second.Entries) != 10 {
		t.Fatalf("expected 10 entries on page 1, got %d", len(second.Entries))
	}
	for i, entry := range second.Entries {
		if entry.Item.ID != cachedOrder[10+i] {
			t.Errorf("page 1 entry %d: expected item %s from cached order, got %s", i, cachedOrder[10+i], entry.Item.ID)
		}
	}

	// First-page items must not repeat on the second page
	firstIDs := make(map[string]bool, len(first.Entries))
	for _, entry := range first.Entries {
		firstIDs[entry.Item.ID] = true
	}
	for _, entry := range second.Entries {
		if firstIDs[entry.Item.ID] {
			t.Errorf("item %s appeared on both pages", entry.Item.ID)
		}
	}
}

func TestFeed_QueryChangeStartsFreshSession(t *testing.T) {
	env := newFeedTestEnv()
	items := env.seedFeedItems(5)
	items[0].Caption = "golang backend engineer"
	if err := env.items.Update(items[0]); err != nil {
		t.Fatalf("failed to update item: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/feed?viewer_id=viewer-1", nil)
	w := httptest.NewRecorder()
	env.handlers.Feed(w, req)

	session, err := env.sessions.Get(req.Context(), "viewer-1")
	if err != nil {
		t.Fatalf("expected cached session: %v", err)
	}
	if session.Query != "" {
		t.Fatalf("expected empty query on first session, got %q", session.Query)
	}

	// Same viewer with a query: session is stale, pool is re-ranked and only
	// matching items survive the query filter
	req = httptest.NewRequest(http.MethodGet, "/feed?viewer_id=viewer-1&q=golang", nil)
	w = httptest.NewRecorder()
	env.handlers.Feed(w, req)

	resp := decodeFeedResponse(t, w)
	if len(resp.Entries) != 1 {
		t.Fatalf("expected 1 entry matching the query, got %d", len(resp.Entries))
	}
	if resp.Entries[0].Item.ID != items[0].ID {
		t.Errorf("expected the matching item, got %s", resp.Entries[0].Item.ID)
	}

	session, err = env.sessions.Get(req.Context(), "viewer-1")
	if err != nil {
		t.Fatalf("expected cached session after re-rank: %v", err)
	}
	if session.Query != "golang" {
		t.Errorf("expected session rebuilt for query golang, got %q", session.Query)
	}
}

func TestFeed_ViewedCarriesAcrossReRank(t *testing.T) {
	env := newFeedTestEnv()
	env.seedFeedItems(5)

	req := httptest.NewRequest(http.MethodGet, "/feed?viewer_id=viewer-1", nil)
	w := httptest.NewRecorder()
	env.handlers.Feed(w, req)
	first := decodeFeedResponse(t, w)

	// Filter change forces a re-rank but keeps the viewed set
	req = httptest.NewRequest(http.MethodGet, "/feed?viewer_id=viewer-1&kinds=introduction", nil)
	w = httptest.NewRecorder()
	env.handlers.Feed(w, req)

	session, err := env.sessions.Get(req.Context(), "viewer-1")
	if err != nil {
		t.Fatalf("expected cached session: %v", err)
	}
	for _, entry := range first.Entries {
		if _, ok := session.Viewed[entry.Item.ID]; !ok {
			t.Errorf("expected item %s to stay marked viewed after re-rank", entry.Item.ID)
		}
	}
}

func TestFeed_AnonymousViewerGetsSessionKey(t *testing.T) {
	env := newFeedTestEnv()
	env.seedFeedItems(15)

	req := httptest.NewRequest(http.MethodGet, "/feed?page_size=10", nil)
	w := httptest.NewRecorder()
	env.handlers.Feed(w, req)

	resp := decodeFeedResponse(t, w)
	if resp.SessionID == "" {
		t.Fatal("expected a session ID for an anonymous viewer")
	}

	// Continuing with the header replays the same session
	req = httptest.NewRequest(http.MethodGet, "/feed?page=1&page_size=10", nil)
	req.Header.Set(FeedSessionHeader, resp.SessionID)
	w = httptest.NewRecorder()
	env.handlers.Feed(w, req)

	second := decodeFeedResponse(t, w)
	if second.SessionID != resp.SessionID {
		t.Errorf("expected session %s to continue, got %s", resp.SessionID, second.SessionID)
	}
	if len(second.Entries) != 5 {
		t.Errorf("expected 5 entries on the final page, got %d", len(second.Entries))
	}
	if second.HasMore {
		t.Error("expected has_more=false on the final page")
	}
}

func TestFeed_DeletedItemSkippedInPage(t *testing.T) {
	env := newFeedTestEnv()
	env.seedFeedItems(5)

	req := httptest.NewRequest(http.MethodGet, "/feed?viewer_id=viewer-1", nil)
	w := httptest.NewRecorder()
	env.handlers.Feed(w, req)

	session, err := env.sessions.Get(req.Context(), "viewer-1")
	if err != nil {
		t.Fatalf("expected cached session: %v", err)
	}
	deletedID := session.Ranked[0].ItemID
	if err := env.items.Delete(deletedID); err != nil {
		t.Fatalf("failed to delete item: %v", err)
	}

	// Replaying the session skips the deleted item without failing
	req = httptest.NewRequest(http.MethodGet, "/feed?viewer_id=viewer-1", nil)
	w = httptest.NewRecorder()
	env.handlers.Feed(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	resp := decodeFeedResponse(t, w)
	if len(resp.Entries) != 4 {
		t.Errorf("expected 4 entries after deletion, got %d", len(resp.Entries))
	}
	for _, entry := range resp.Entries {
		if entry.Item.ID == deletedID {
			t.Errorf("deleted item %s served in page", deletedID)
		}
	}
}

func TestFeed_AuthorAttached(t *testing.T) {
	env := newFeedTestEnv()
	env.seedFeedItems(3)

	if err := env.profiles.UpsertAuthor(&profile.Author{
		ID:          "author-0",
		DisplayName: "Recruiter Zero",
		Role:        profile.RoleRecruiter,
	}); err != nil {
		t.Fatalf("failed to seed author: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/feed?viewer_id=viewer-1", nil)
	w := httptest.NewRecorder()
	env.handlers.Feed(w, req)

	resp := decodeFeedResponse(t, w)
	var found bool
	for _, entry := range resp.Entries {
		if entry.Item.AuthorID == "author-0" {
			found = true
			if entry.Author == nil || entry.Author.DisplayName != "Recruiter Zero" {
				t.Error("expected author profile attached to entry")
			}
		} else if entry.Author != nil {
			t.Errorf("expected no author for %s, got %s", entry.Item.AuthorID, entry.Author.ID)
		}
	}
	if !found {
		t.Fatal("expected an entry from author-0")
	}
}

func TestFeed_InvalidKindFilter(t *testing.T) {
	env := newFeedTestEnv()
	env.seedFeedItems(3)

	req := httptest.NewRequest(http.MethodGet, "/feed?kinds=karaoke", nil)
	w := httptest.NewRecorder()
	env.handlers.Feed(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", w.Code)
	}
	var errResp ErrorResponse
	if err := json.NewDecoder(w.Body).Decode(&errResp); err != nil {
		t.Fatalf("failed to decode error response: %v", err)
	}
	if errResp.Error.Code != ErrCodeValidation {
		t.Errorf("expected code %s, got %s", ErrCodeValidation, errResp.Error.Code)
	}
}

func TestFeed_InvalidPaginationParams(t *testing.T) {
	env := newFeedTestEnv()
	env.seedFeedItems(3)

	tests := []struct {
		name  string
		query string
	}{
		{name: "negative page", query: "page=-1"},
		{name: "non-numeric page", query: "page=abc"},
		{name: "zero page size", query: "page_size=0"},
		{name: "negative page size", query: "page_size=-5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/feed?"+tt.query, nil)
			w := httptest.NewRecorder()
			env.handlers.Feed(w, req)

			if w.Code != http.StatusBadRequest {
				t.Errorf("expected status 400, got %d", w.Code)
			}
		})
	}
}

func TestFeed_PageSizeCapped(t *testing.T) {
	env := newFeedTestEnv()
	env.seedFeedItems(3)

	req := httptest.NewRequest(http.MethodGet, "/feed?page_size=500", nil)
	w := httptest.NewRecorder()
	env.handlers.Feed(w, req)

	resp := decodeFeedResponse(t, w)
	if resp.PageSize != MaxFeedPageSize {
		t.Errorf("expected page size capped at %d, got %d", MaxFeedPageSize, resp.PageSize)
	}
}

func TestFeed_MethodNotAllowed(t *testing.T) {
	env := newFeedTestEnv()

	req := httptest.NewRequest(http.MethodPost, "/feed", nil)
	w := httptest.NewRecorder()
	env.handlers.Feed(w, req)

	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected status 405, got %d", w.Code)
	}
}

func TestFeed_PageBeyondEnd(t *testing.T) {
	env := newFeedTestEnv()
	env.seedFeedItems(3)

	req := httptest.NewRequest(http.MethodGet, "/feed?viewer_id=viewer-1&page=10", nil)
	w := httptest.NewRecorder()
	env.handlers.Feed(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	resp := decodeFeedResponse(t, w)
	if len(resp.Entries) != 0 {
		t.Errorf("expected empty page beyond the ranked pool, got %d entries", len(resp.Entries))
	}
	if resp.HasMore {
		t.Error("expected has_more=false beyond the pool")
	}
}

func TestFeed_PageZeroReloadReRanks(t *testing.T) {
	env := newFeedTestEnv()
	env.seedFeedItems(3)

	req := httptest.NewRequest(http.MethodGet, "/feed?viewer_id=viewer-1", nil)
	w := httptest.NewRecorder()
	env.handlers.Feed(w, req)
	first := decodeFeedResponse(t, w)
	if len(first.Entries) != 3 {
		t.Fatalf("expected 3 entries on first load, got %d", len(first.Entries))
	}

	// An item published after the first load must show up on the next
	// page-0 request rather than waiting out the session TTL.
	fresh := &content.Item{
		AuthorID:   "author-new",
		Kind:       content.KindJobOpening,
		Caption:    "Backend engineer wanted",
		VideoURL:   "https://cdn.example.com/v/new.mp4",
		Moderation: content.ModerationApproved,
	}
	if err := env.items.Create(fresh); err != nil {
		t.Fatalf("failed to create item: %v", err)
	}

	req = httptest.NewRequest(http.MethodGet, "/feed?viewer_id=viewer-1", nil)
	w = httptest.NewRecorder()
	env.handlers.Feed(w, req)
	second := decodeFeedResponse(t, w)

	found := false
	for _, entry := range second.Entries {
		if entry.Item.ID == fresh.ID {
			found = true
		}
	}
	if !found {
		t.Fatal("expected page-0 reload to re-rank and include the new item")
	}

	// The re-rank keeps the viewed set, so everything served on the first
	// load stays marked as viewed in the new session.
	session, err := env.sessions.Get(req.Context(), "viewer-1")
	if err != nil {
		t.Fatalf("expected cached session after reload: %v", err)
	}
	for _, entry := range first.Entries {
		if _, ok := session.Viewed[entry.Item.ID]; !ok {
			t.Errorf("item %s served on the first load is missing from the viewed set", entry.Item.ID)
		}
	}
}
