package profile

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Common errors for profile operations.
var (
	ErrAuthorNotFound = errors.New("author profile not found")
	ErrViewerNotFound = errors.New("viewer profile not found")
)

// Repository defines the interface for profile data operations.
type Repository interface {
	// UpsertAuthor inserts or replaces an author profile.
	UpsertAuthor(author *Author) error

	// GetAuthor retrieves an author profile by ID.
	GetAuthor(id string) (*Author, error)

	// GetAuthors batch-returns author profiles keyed by author ID.
	// Missing authors are omitted from the result, not errors.
	GetAuthors(ids []string) (map[string]*Author, error)

	// UpsertViewer inserts or replaces a viewer profile.
	UpsertViewer(viewer *ViewerProfile) error

	// GetViewer retrieves a viewer profile by user ID.
	GetViewer(userID string) (*ViewerProfile, error)
}

// InMemoryRepository is an in-memory implementation of Repository.
// Thread-safe via RWMutex.
type InMemoryRepository struct {
	mu      sync.RWMutex
	authors map[string]*Author
	viewers map[string]*ViewerProfile
}

// NewInMemoryRepository creates a new in-memory profile repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		authors: make(map[string]*Author),
		viewers: make(map[string]*ViewerProfile),
	}
}

// UpsertAuthor inserts or replaces an author profile.
func (r *InMemoryRepository) UpsertAuthor(author *Author) error {
	if err := author.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	if author.ID == "" {
		author.ID = uuid.New().String()
	}
	if existing, ok := r.authors[author.ID]; ok {
		author.CreatedAt = existing.CreatedAt
	} else if author.CreatedAt.IsZero() {
		author.CreatedAt = now
	}
	author.UpdatedAt = now

	authorCopy := *author
	r.authors[author.ID] = &authorCopy

	return nil
}

// GetAuthor retrieves an author profile by ID.
func (r *InMemoryRepository) GetAuthor(id string) (*Author, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	author, ok := r.authors[id]
	if !ok {
		return nil, ErrAuthorNotFound
	}

	authorCopy := *author
	return &authorCopy, nil
}

// GetAuthors batch-returns author profiles keyed by author ID.
func (r *InMemoryRepository) GetAuthors(ids []string) (map[string]*Author, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make(map[string]*Author, len(ids))
	for _, id := range ids {
		if author, ok := r.authors[id]; ok {
			authorCopy := *author
			result[id] = &authorCopy
		}
	}

	return result, nil
}

// UpsertViewer inserts or replaces a viewer profile.
func (r *InMemoryRepository) UpsertViewer(viewer *ViewerProfile) error {
	if !ValidRole(viewer.Role) {
		return ErrInvalidRole
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	viewerCopy := *viewer
	r.viewers[viewer.UserID] = &viewerCopy

	return nil
}

// GetViewer retrieves a viewer profile by user ID.
func (r *InMemoryRepository) GetViewer(userID string) (*ViewerProfile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	viewer, ok := r.viewers[userID]
	if !ok {
		return nil, ErrViewerNotFound
	}

	viewerCopy := *viewer
	return &viewerCopy, nil
}
