package feedcache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/redis/go-redis/v9"

	"github.com/swipehire/swipehire-api/internal/tracing"
)

// RedisStore implements Store on Redis with CBOR-encoded sessions, so
// feed sessions survive API restarts and are shared across instances.
type RedisStore struct {
	client    *redis.Client
	keyPrefix string
}

// NewRedisStore creates a Redis-backed session store.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{
		client:    client,
		keyPrefix: "feed:session:",
	}
}

// wireSession is the CBOR wire form of a Session. Sets are flattened to
// string slices for compact encoding.
type wireSession struct {
	ViewerID   string        `cbor:"1,keyasint"`
	Query      string        `cbor:"2,keyasint"`
	FiltersKey string        `cbor:"3,keyasint"`
	Ranked     []RankedEntry `cbor:"4,keyasint"`
	Viewed     []string      `cbor:"5,keyasint"`
	Liked      []string      `cbor:"6,keyasint"`
	CreatedAt  time.Time     `cbor:"7,keyasint"`
}

func (s *RedisStore) key(viewerID string) string {
	return s.keyPrefix + viewerID
}

// Get returns the session for a viewer, or ErrSessionNotFound.
func (s *RedisStore) Get(ctx context.Context, viewerID string) (*Session, error) {
	ctx, end := tracing.StartCacheSpan(ctx, "get")
	session, err := s.get(ctx, viewerID)
	if errors.Is(err, ErrSessionNotFound) {
		// A miss is a normal outcome, not a span error
		end(nil)
	} else {
		end(err)
	}
	return session, err
}

func (s *RedisStore) get(ctx context.Context, viewerID string) (*Session, error) {
	data, err := s.client.Get(ctx, s.key(viewerID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read feed session: %w", err)
	}

	var wire wireSession
	if err := cbor.Unmarshal(data, &wire); err != nil {
		return nil, fmt.Errorf("failed to decode feed session: %w", err)
	}

	session := &Session{
		ViewerID:   wire.ViewerID,
		Query:      wire.Query,
		FiltersKey: wire.FiltersKey,
		Ranked:     wire.Ranked,
		Viewed:     make(map[string]struct{}, len(wire.Viewed)),
		Liked:      make(map[string]struct{}, len(wire.Liked)),
		CreatedAt:  wire.CreatedAt,
	}
	for _, id := range wire.Viewed {
		session.Viewed[id] = struct{}{}
	}
	for _, id := range wire.Liked {
		session.Liked[id] = struct{}{}
	}
	return session, nil
}

// Put stores a session under the viewer ID. A non-positive TTL falls back
// to DefaultSessionTTL.
func (s *RedisStore) Put(ctx context.Context, session *Session, ttl time.Duration) (err error) {
	ctx, end := tracing.StartCacheSpan(ctx, "put")
	defer func() { end(err) }()

	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}

	wire := wireSession{
		ViewerID:   session.ViewerID,
		Query:      session.Query,
		FiltersKey: session.FiltersKey,
		Ranked:     session.Ranked,
		Viewed:     setToSlice(session.Viewed),
		Liked:      setToSlice(session.Liked),
		CreatedAt:  session.CreatedAt,
	}

	data, err := cbor.Marshal(wire)
	if err != nil {
		return fmt.Errorf("failed to encode feed session: %w", err)
	}

	if err := s.client.Set(ctx, s.key(session.ViewerID), data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to write feed session: %w", err)
	}
	return nil
}

// Delete removes a viewer's session.
func (s *RedisStore) Delete(ctx context.Context, viewerID string) (err error) {
	ctx, end := tracing.StartCacheSpan(ctx, "delete")
	defer func() { end(err) }()

	if delErr := s.client.Del(ctx, s.key(viewerID)).Err(); delErr != nil {
		return fmt.Errorf("failed to delete feed session: %w", delErr)
	}
	return nil
}

func setToSlice(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	return out
}
