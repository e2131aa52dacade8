package content

import (
	"errors"
	"testing"
	"time"
)

func newTestItem(authorID string, kind Kind) *Item {
	return &Item{
		AuthorID:   authorID,
		Kind:       kind,
		Caption:    "test caption",
		Tags:       []string{"go", "backend"},
		VideoURL:   "https://cdn.example.com/v/test.mp4",
		Moderation: ModerationApproved,
	}
}

func TestCreate_GeneratesIDAndTimestamps(t *testing.T) {
	repo := NewInMemoryRepository()

	item := newTestItem("author1", KindIntroduction)
	if err := repo.Create(item); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if item.ID == "" {
		t.Error("expected generated ID")
	}
	if item.CreatedAt.IsZero() {
		t.Error("expected CreatedAt to be set")
	}

	got, err := repo.GetByID(item.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.Caption != "test caption" {
		t.Errorf("expected caption to round-trip, got %q", got.Caption)
	}
}

func TestCreate_RejectsInvalidItems(t *testing.T) {
	repo := NewInMemoryRepository()

	tests := []struct {
		name    string
		mutate  func(*Item)
		wantErr error
	}{
		{"invalid kind", func(i *Item) { i.Kind = "podcast" }, ErrInvalidKind},
		{"invalid moderation", func(i *Item) { i.Moderation = "unknown" }, ErrInvalidModerationState},
		{"missing video URL", func(i *Item) { i.VideoURL = "" }, ErrMissingVideoURL},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			item := newTestItem("author1", KindTip)
			tt.mutate(item)
			if err := repo.Create(item); !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestGetByID_NotFound(t *testing.T) {
	repo := NewInMemoryRepository()

	if _, err := repo.GetByID("missing"); !errors.Is(err, ErrItemNotFound) {
		t.Errorf("expected ErrItemNotFound, got %v", err)
	}
}

func TestListRecent_OrderAndLimit(t *testing.T) {
	repo := NewInMemoryRepository()

	now := time.Now()
	for i := 0; i < 5; i++ {
		item := newTestItem("author1", KindCulture)
		item.CreatedAt = now.Add(-time.Duration(i) * time.Hour)
		if err := repo.Create(item); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
	}

	items, err := repo.ListRecent(3)
	if err != nil {
		t.Fatalf("ListRecent failed: %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("expected 3 items, got %d", len(items))
	}
	for i := 1; i < len(items); i++ {
		if items[i-1].CreatedAt.Before(items[i].CreatedAt) {
			t.Errorf("items not ordered newest first at index %d", i)
		}
	}
}

func TestListByAuthor(t *testing.T) {
	repo := NewInMemoryRepository()

	for i := 0; i < 3; i++ {
		if err := repo.Create(newTestItem("authorA", KindTip)); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
	}
	if err := repo.Create(newTestItem("authorB", KindTip)); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	items, err := repo.ListByAuthor("authorA")
	if err != nil {
		t.Fatalf("ListByAuthor failed: %v", err)
	}
	if len(items) != 3 {
		t.Errorf("expected 3 items for authorA, got %d", len(items))
	}
	for _, item := range items {
		if item.AuthorID != "authorA" {
			t.Errorf("unexpected author %q", item.AuthorID)
		}
	}
}

func TestIncrementEngagement(t *testing.T) {
	repo := NewInMemoryRepository()

	item := newTestItem("author1", KindJobOpening)
	if err := repo.Create(item); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	actions := []EngagementAction{ActionView, ActionView, ActionLike, ActionShare, ActionComment}
	var got *Item
	var err error
	for _, a := range actions {
		got, err = repo.IncrementEngagement(item.ID, a)
		if err != nil {
			t.Fatalf("IncrementEngagement(%s) failed: %v", a, err)
		}
	}

	if got.Engagement.Views != 2 || got.Engagement.Likes != 1 ||
		got.Engagement.Shares != 1 || got.Engagement.Comments != 1 {
		t.Errorf("unexpected counters: %+v", got.Engagement)
	}

	if _, err := repo.IncrementEngagement(item.ID, "bookmark"); !errors.Is(err, ErrInvalidAction) {
		t.Errorf("expected ErrInvalidAction, got %v", err)
	}
	if _, err := repo.IncrementEngagement("missing", ActionView); !errors.Is(err, ErrItemNotFound) {
		t.Errorf("expected ErrItemNotFound, got %v", err)
	}
}

func TestEngagementRate(t *testing.T) {
	tests := []struct {
		name string
		e    Engagement
		want float64
	}{
		{"zero views", Engagement{Likes: 5}, 0},
		{"basic", Engagement{Views: 100, Likes: 10, Shares: 5, Comments: 10}, 0.3},
		{"shares weighted double", Engagement{Views: 10, Shares: 5}, 1.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.e.Rate(); got != tt.want {
				t.Errorf("Rate() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDelete(t *testing.T) {
	repo := NewInMemoryRepository()

	item := newTestItem("author1", KindDayInLife)
	if err := repo.Create(item); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if err := repo.Delete(item.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := repo.GetByID(item.ID); !errors.Is(err, ErrItemNotFound) {
		t.Errorf("expected ErrItemNotFound after delete, got %v", err)
	}
	if err := repo.Delete(item.ID); !errors.Is(err, ErrItemNotFound) {
		t.Errorf("expected ErrItemNotFound on double delete, got %v", err)
	}
}

func TestRepositoryReturnsCopies(t *testing.T) {
	repo := NewInMemoryRepository()

	item := newTestItem("author1", KindIntroduction)
	if err := repo.Create(item); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	got, err := repo.GetByID(item.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	got.Caption = "mutated"

	again, err := repo.GetByID(item.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if again.Caption == "mutated" {
		t.Error("repository exposed internal state to mutation")
	}
}
