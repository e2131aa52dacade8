package content

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Common errors for content operations.
var (
	ErrItemNotFound = errors.New("content item not found")
)

// EngagementAction identifies a viewer engagement increment.
type EngagementAction string

// Valid engagement actions.
const (
	ActionView    EngagementAction = "view"
	ActionLike    EngagementAction = "like"
	ActionShare   EngagementAction = "share"
	ActionComment EngagementAction = "comment"
)

// ErrInvalidAction is returned for an unknown engagement action.
var ErrInvalidAction = errors.New("invalid engagement action")

// Repository defines the interface for content item data operations.
type Repository interface {
	// Create inserts a new item with a generated UUID.
	Create(item *Item) error

	// Update updates the mutable fields of an existing item.
	Update(item *Item) error

	// Delete removes an item permanently.
	Delete(id string) error

	// GetByID retrieves an item by its UUID.
	GetByID(id string) (*Item, error)

	// ListRecent returns up to limit items ordered by created_at DESC,
	// id ASC (tie-breaker). This is the candidate pool for feed ranking.
	ListRecent(limit int) ([]*Item, error)

	// ListByAuthor returns all items by the given author, newest first.
	ListByAuthor(authorID string) ([]*Item, error)

	// IncrementEngagement applies a single engagement action to an item.
	IncrementEngagement(id string, action EngagementAction) (*Item, error)
}

// InMemoryRepository is an in-memory implementation of Repository.
// Thread-safe via RWMutex.
type InMemoryRepository struct {
	mu    sync.RWMutex
	items map[string]*Item
}

// NewInMemoryRepository creates a new in-memory content repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		items: make(map[string]*Item),
	}
}

// Create inserts a new item with a generated UUID.
func (r *InMemoryRepository) Create(item *Item) error {
	if err := item.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	if item.ID == "" {
		item.ID = uuid.New().String()
	}
	if item.CreatedAt.IsZero() {
		item.CreatedAt = now
	}
	item.UpdatedAt = now

	itemCopy := *item
	r.items[item.ID] = &itemCopy

	return nil
}

// Update updates the mutable fields of an existing item.
// Engagement counters are not touched; use IncrementEngagement.
func (r *InMemoryRepository) Update(item *Item) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.items[item.ID]
	if !ok {
		return ErrItemNotFound
	}

	existing.Caption = item.Caption
	existing.Tags = item.Tags
	existing.ThumbnailURL = item.ThumbnailURL
	existing.Moderation = item.Moderation
	existing.UpdatedAt = time.Now()

	return nil
}

// Delete removes an item permanently.
func (r *InMemoryRepository) Delete(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[id]; !ok {
		return ErrItemNotFound
	}
	delete(r.items, id)

	return nil
}

// GetByID retrieves an item by its UUID.
func (r *InMemoryRepository) GetByID(id string) (*Item, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	item, ok := r.items[id]
	if !ok {
		return nil, ErrItemNotFound
	}

	itemCopy := *item
	return &itemCopy, nil
}

// ListRecent returns up to limit items ordered by created_at DESC, id ASC.
func (r *InMemoryRepository) ListRecent(limit int) ([]*Item, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	candidates := make([]*Item, 0, len(r.items))
	for _, item := range r.items {
		candidates = append(candidates, item)
	}

	sortItemsByCreatedDesc(candidates)

	if limit > 0 && len(candidates) > limit {
		candidates = candidates[:limit]
	}

	// Return deep copies to prevent external mutation
	copies := make([]*Item, len(candidates))
	for i, item := range candidates {
		itemCopy := *item
		copies[i] = &itemCopy
	}

	return copies, nil
}

// ListByAuthor returns all items by the given author, newest first.
func (r *InMemoryRepository) ListByAuthor(authorID string) ([]*Item, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var candidates []*Item
	for _, item := range r.items {
		if item.AuthorID == authorID {
			candidates = append(candidates, item)
		}
	}

	sortItemsByCreatedDesc(candidates)

	copies := make([]*Item, len(candidates))
	for i, item := range candidates {
		itemCopy := *item
		copies[i] = &itemCopy
	}

	return copies, nil
}

// IncrementEngagement applies a single engagement action to an item.
// Returns a copy of the updated item.
func (r *InMemoryRepository) IncrementEngagement(id string, action EngagementAction) (*Item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	item, ok := r.items[id]
	if !ok {
		return nil, ErrItemNotFound
	}

	switch action {
	case ActionView:
		item.Engagement.Views++
	case ActionLike:
		item.Engagement.Likes++
	case ActionShare:
		item.Engagement.Shares++
	case ActionComment:
		item.Engagement.Comments++
	default:
		return nil, ErrInvalidAction
	}
	item.UpdatedAt = time.Now()

	itemCopy := *item
	return &itemCopy, nil
}

// sortItemsByCreatedDesc sorts items by created_at DESC, then by ID ASC for
// tie-breaking. This provides stable ordering for the feed candidate pool.
func sortItemsByCreatedDesc(items []*Item) {
	sort.Slice(items, func(i, j int) bool {
		if items[i].CreatedAt.After(items[j].CreatedAt) {
			return true
		}
		if items[i].CreatedAt.Before(items[j].CreatedAt) {
			return false
		}
		return items[i].ID < items[j].ID
	})
}
