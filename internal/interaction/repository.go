package interaction

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Common errors for interaction operations.
var (
	ErrFollowNotFound = errors.New("follow not found")
)

// Repository defines the interface for interaction data operations.
type Repository interface {
	// RecordSwipe stores a directional swipe. Swipes are append-only.
	RecordSwipe(swipe *Swipe) error

	// ListSwipes returns all swipes by a viewer, oldest first.
	ListSwipes(userID string) ([]*Swipe, error)

	// Follow records that a viewer follows an author. Idempotent.
	Follow(userID, authorID string) error

	// Unfollow removes a follow. Returns ErrFollowNotFound if absent.
	Unfollow(userID, authorID string) error

	// Follows returns the set of author IDs the viewer follows.
	Follows(userID string) (map[string]bool, error)
}

// InMemoryRepository is an in-memory implementation of Repository.
// Thread-safe via RWMutex.
type InMemoryRepository struct {
	mu      sync.RWMutex
	swipes  map[string][]*Swipe        // userID -> swipes in insertion order
	follows map[string]map[string]bool // userID -> author set
}

// NewInMemoryRepository creates a new in-memory interaction repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		swipes:  make(map[string][]*Swipe),
		follows: make(map[string]map[string]bool),
	}
}

// RecordSwipe stores a directional swipe.
func (r *InMemoryRepository) RecordSwipe(swipe *Swipe) error {
	if err := swipe.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if swipe.ID == "" {
		swipe.ID = uuid.New().String()
	}
	if swipe.CreatedAt.IsZero() {
		swipe.CreatedAt = time.Now()
	}

	swipeCopy := *swipe
	r.swipes[swipe.UserID] = append(r.swipes[swipe.UserID], &swipeCopy)

	return nil
}

// ListSwipes returns all swipes by a viewer, oldest first.
func (r *InMemoryRepository) ListSwipes(userID string) ([]*Swipe, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	swipes := r.swipes[userID]
	copies := make([]*Swipe, len(swipes))
	for i, s := range swipes {
		swipeCopy := *s
		copies[i] = &swipeCopy
	}

	return copies, nil
}

// Follow records that a viewer follows an author.
func (r *InMemoryRepository) Follow(userID, authorID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.follows[userID] == nil {
		r.follows[userID] = make(map[string]bool)
	}
	r.follows[userID][authorID] = true

	return nil
}

// Unfollow removes a follow.
func (r *InMemoryRepository) Unfollow(userID, authorID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	set := r.follows[userID]
	if set == nil || !set[authorID] {
		return ErrFollowNotFound
	}
	delete(set, authorID)

	return nil
}

// Follows returns the set of author IDs the viewer follows.
func (r *InMemoryRepository) Follows(userID string) (map[string]bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	set := r.follows[userID]
	result := make(map[string]bool, len(set))
	for id := range set {
		result[id] = true
	}

	return result, nil
}
