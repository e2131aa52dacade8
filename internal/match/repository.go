package match

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Repository defines the interface for match data operations.
type Repository interface {
	// Create stores a new match in the sourced stage. Returns
	// ErrDuplicateMatch if an open match already exists for the same
	// seeker/recruiter/job triple.
	Create(match *Match) (*Match, error)

	// GetByID retrieves a match by its UUID.
	GetByID(id string) (*Match, error)

	// ListForUser returns matches where the user is either participant,
	// newest first.
	ListForUser(userID string) ([]*Match, error)

	// Advance moves a match to the next forward stage.
	Advance(id, actorID, note string) (*Match, error)

	// Reject moves a match to the rejected stage.
	Reject(id, actorID, note string) (*Match, error)

	// MoveStage moves a match to an explicit non-terminal-source stage,
	// forward or back.
	MoveStage(id string, target Stage, actorID, note string) (*Match, error)
}

// InMemoryRepository is an in-memory implementation of Repository.
// Thread-safe via RWMutex.
type InMemoryRepository struct {
	mu      sync.RWMutex
	matches map[string]*Match // UUID -> Match
	pairs   map[string]string // seeker:recruiter:job -> UUID of open match
}

// NewInMemoryRepository creates a new in-memory match repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		matches: make(map[string]*Match),
		pairs:   make(map[string]string),
	}
}

func pairKey(seekerID, recruiterID, jobItemID string) string {
	return seekerID + ":" + recruiterID + ":" + jobItemID
}

// Create stores a new match in the sourced stage.
func (r *InMemoryRepository) Create(match *Match) (*Match, error) {
	if err := match.Validate(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	key := pairKey(match.SeekerID, match.RecruiterID, match.JobItemID)
	if existingID, ok := r.pairs[key]; ok {
		if existing := r.matches[existingID]; existing != nil && !existing.Stage.Terminal() {
			return nil, ErrDuplicateMatch
		}
	}

	now := time.Now()
	stored := copyMatch(match)
	stored.ID = uuid.New().String()
	stored.Stage = StageSourced
	stored.History = nil
	stored.CreatedAt = now
	stored.UpdatedAt = now

	r.matches[stored.ID] = stored
	r.pairs[key] = stored.ID

	return copyMatch(stored), nil
}

// GetByID retrieves a match by its UUID.
func (r *InMemoryRepository) GetByID(id string) (*Match, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	match, ok := r.matches[id]
	if !ok {
		return nil, ErrMatchNotFound
	}
	return copyMatch(match), nil
}

// ListForUser returns matches where the user is either participant,
// newest first.
func (r *InMemoryRepository) ListForUser(userID string) ([]*Match, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*Match
	for _, match := range r.matches {
		if match.SeekerID == userID || match.RecruiterID == userID {
			out = append(out, copyMatch(match))
		}
	}
	sortMatchesByCreatedDesc(out)
	return out, nil
}

// Advance moves a match to the next forward stage.
func (r *InMemoryRepository) Advance(id, actorID, note string) (*Match, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	match, ok := r.matches[id]
	if !ok {
		return nil, ErrMatchNotFound
	}

	next, err := match.Stage.Next()
	if err != nil {
		return nil, err
	}
	r.transition(match, next, actorID, note)
	return copyMatch(match), nil
}

// Reject moves a match to the rejected stage.
func (r *InMemoryRepository) Reject(id, actorID, note string) (*Match, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	match, ok := r.matches[id]
	if !ok {
		return nil, ErrMatchNotFound
	}
	if match.Stage.Terminal() {
		return nil, ErrTerminalStage
	}
	r.transition(match, StageRejected, actorID, note)
	return copyMatch(match), nil
}

// MoveStage moves a match to an explicit stage.
func (r *InMemoryRepository) MoveStage(id string, target Stage, actorID, note string) (*Match, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	match, ok := r.matches[id]
	if !ok {
		return nil, ErrMatchNotFound
	}
	if !target.IsValid() {
		return nil, ErrInvalidStage
	}
	if match.Stage.Terminal() {
		return nil, ErrTerminalStage
	}
	if !match.Stage.CanMoveTo(target) {
		return nil, ErrInvalidTransition
	}
	r.transition(match, target, actorID, note)
	return copyMatch(match), nil
}

// transition applies a stage change and records it in the history.
// Callers must hold the write lock.
func (r *InMemoryRepository) transition(match *Match, to Stage, actorID, note string) {
	now := time.Now()
	match.History = append(match.History, StageChange{
		From:    match.Stage,
		To:      to,
		ActorID: actorID,
		Note:    note,
		At:      now,
	})
	match.Stage = to
	match.UpdatedAt = now
}

func copyMatch(in *Match) *Match {
	out := *in
	if in.History != nil {
		out.History = make([]StageChange, len(in.History))
		copy(out.History, in.History)
	}
	return &out
}

func sortMatchesByCreatedDesc(matches []*Match) {
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].CreatedAt.After(matches[j].CreatedAt) {
			return true
		}
		if matches[i].CreatedAt.Before(matches[j].CreatedAt) {
			return false
		}
		return matches[i].ID < matches[j].ID
	})
}
