package feedcache

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	session   *Session
	expiresAt time.Time
}

// InMemoryStore implements Store using an in-memory map with per-entry
// expiry. Thread-safe for concurrent access. Suitable for development and
// single-instance deployments; production uses RedisStore.
type InMemoryStore struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	now     func() time.Time
}

// NewInMemoryStore creates a new in-memory session store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

// Get returns the session for a viewer, or ErrSessionNotFound if missing
// or expired.
func (s *InMemoryStore) Get(ctx context.Context, viewerID string) (*Session, error) {
	s.mu.RLock()
	entry, ok := s.entries[viewerID]
	s.mu.RUnlock()

	if !ok {
		return nil, ErrSessionNotFound
	}
	if s.now().After(entry.expiresAt) {
		s.mu.Lock()
		delete(s.entries, viewerID)
		s.mu.Unlock()
		return nil, ErrSessionNotFound
	}
	return copySession(entry.session), nil
}

// Put stores a session under the viewer ID. A non-positive TTL falls back
// to DefaultSessionTTL.
func (s *InMemoryStore) Put(ctx context.Context, session *Session, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[session.ViewerID] = memoryEntry{
		session:   copySession(session),
		expiresAt: s.now().Add(ttl),
	}
	return nil
}

// Delete removes a viewer's session.
func (s *InMemoryStore) Delete(ctx context.Context, viewerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, viewerID)
	return nil
}

// copySession returns a deep copy so callers can't mutate stored state.
func copySession(in *Session) *Session {
	out := &Session{
		ViewerID:   in.ViewerID,
		Query:      in.Query,
		FiltersKey: in.FiltersKey,
		Ranked:     make([]RankedEntry, len(in.Ranked)),
		Viewed:     make(map[string]struct{}, len(in.Viewed)),
		Liked:      make(map[string]struct{}, len(in.Liked)),
		CreatedAt:  in.CreatedAt,
	}
	copy(out.Ranked, in.Ranked)
	for id := range in.Viewed {
		out.Viewed[id] = struct{}{}
	}
	for id := range in.Liked {
		out.Liked[id] = struct{}{}
	}
	return out
}
