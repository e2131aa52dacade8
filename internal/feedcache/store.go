// Package feedcache stores per-viewer feed sessions so that a ranked order
// is computed once per feed load and later pages slice the cached order
// instead of re-ranking (and re-rolling discovery randomness).
package feedcache

import (
	"context"
	"errors"
	"time"
)

// ErrSessionNotFound is returned when no session exists for a viewer.
var ErrSessionNotFound = errors.New("feed session not found")

// DefaultSessionTTL is how long a cached feed order stays valid. A new
// feed load (page 0) always replaces the session regardless of TTL.
const DefaultSessionTTL = 30 * time.Minute

// RankedEntry is one position in a cached feed order.
type RankedEntry struct {
	ItemID string  `cbor:"id"`
	Score  float64 `cbor:"score"`
}

// Session is the cached state of one feed-browsing session: the frozen
// ranked order plus the items the viewer has seen or liked while paging.
type Session struct {
	// ViewerID identifies the session owner. Anonymous viewers get a
	// per-connection session ID instead of a user ID.
	ViewerID string `cbor:"viewer_id"`

	// Query and FiltersKey fingerprint the request that produced the
	// order; a page request with a different fingerprint re-ranks.
	Query      string `cbor:"query"`
	FiltersKey string `cbor:"filters_key"`

	Ranked []RankedEntry `cbor:"ranked"`

	// Viewed and Liked accumulate across the session and feed the
	// viewed-penalty and inferred-like signals on the next re-rank.
	Viewed map[string]struct{} `cbor:"viewed"`
	Liked  map[string]struct{} `cbor:"liked"`

	CreatedAt time.Time `cbor:"created_at"`
}

// NewSession creates an empty session for a viewer.
func NewSession(viewerID, query, filtersKey string) *Session {
	return &Session{
		ViewerID:   viewerID,
		Query:      query,
		FiltersKey: filtersKey,
		Viewed:     make(map[string]struct{}),
		Liked:      make(map[string]struct{}),
		CreatedAt:  time.Now().UTC(),
	}
}

// Matches reports whether the session was built for the same query and
// structured filters.
func (s *Session) Matches(query, filtersKey string) bool {
	return s.Query == query && s.FiltersKey == filtersKey
}

// MarkViewed records that the viewer has seen an item in this session.
func (s *Session) MarkViewed(itemID string) {
	if s.Viewed == nil {
		s.Viewed = make(map[string]struct{})
	}
	s.Viewed[itemID] = struct{}{}
}

// MarkLiked records a positive swipe on an item in this session.
func (s *Session) MarkLiked(itemID string) {
	if s.Liked == nil {
		s.Liked = make(map[string]struct{})
	}
	s.Liked[itemID] = struct{}{}
}

// Store defines the interface for feed session storage.
// This allows for different backends (in-memory, Redis, etc.).
type Store interface {
	// Get returns the session for a viewer, or ErrSessionNotFound.
	Get(ctx context.Context, viewerID string) (*Session, error)

	// Put stores a session under the viewer ID with the given TTL.
	Put(ctx context.Context, session *Session, ttl time.Duration) error

	// Delete removes a viewer's session. Deleting a missing session
	// is not an error.
	Delete(ctx context.Context, viewerID string) error
}
