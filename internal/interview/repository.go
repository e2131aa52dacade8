package interview

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Repository defines the interface for interview data operations.
type Repository interface {
	// Schedule stores a new interview in the scheduled status.
	Schedule(interview *Interview) (*Interview, error)

	// GetByID retrieves an interview by its UUID.
	GetByID(id string) (*Interview, error)

	// ListForMatch returns a match's interviews, soonest first.
	ListForMatch(matchID string) ([]*Interview, error)

	// Reschedule moves an unsettled interview to a new start time.
	Reschedule(id string, startsAt time.Time) (*Interview, error)

	// Complete marks an unsettled interview as completed.
	Complete(id, notes string) (*Interview, error)

	// Cancel marks an unsettled interview as cancelled.
	Cancel(id, notes string) (*Interview, error)
}

// InMemoryRepository is an in-memory implementation of Repository.
// Thread-safe via RWMutex.
type InMemoryRepository struct {
	mu         sync.RWMutex
	interviews map[string]*Interview
	now        func() time.Time
}

// NewInMemoryRepository creates a new in-memory interview repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		interviews: make(map[string]*Interview),
		now:        time.Now,
	}
}

// Schedule stores a new interview in the scheduled status.
func (r *InMemoryRepository) Schedule(interview *Interview) (*Interview, error) {
	now := r.now()
	if err := interview.Validate(now); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	stored := *interview
	stored.ID = uuid.New().String()
	stored.Status = StatusScheduled
	if stored.Duration <= 0 {
		stored.Duration = DefaultDuration
	}
	stored.CreatedAt = now
	stored.UpdatedAt = now

	r.interviews[stored.ID] = &stored

	out := stored
	return &out, nil
}

// GetByID retrieves an interview by its UUID.
func (r *InMemoryRepository) GetByID(id string) (*Interview, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	interview, ok := r.interviews[id]
	if !ok {
		return nil, ErrInterviewNotFound
	}
	out := *interview
	return &out, nil
}

// ListForMatch returns a match's interviews, soonest first.
func (r *InMemoryRepository) ListForMatch(matchID string) ([]*Interview, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*Interview
	for _, interview := range r.interviews {
		if interview.MatchID == matchID {
			cp := *interview
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].StartsAt.Equal(out[j].StartsAt) {
			return out[i].StartsAt.Before(out[j].StartsAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// Reschedule moves an unsettled interview to a new start time.
func (r *InMemoryRepository) Reschedule(id string, startsAt time.Time) (*Interview, error) {
	now := r.now()
	if startsAt.Before(now) {
		return nil, ErrPastStartTime
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	interview, ok := r.interviews[id]
	if !ok {
		return nil, ErrInterviewNotFound
	}
	if interview.Status.Settled() {
		return nil, ErrAlreadySettled
	}

	interview.StartsAt = startsAt
	interview.Status = StatusRescheduled
	interview.UpdatedAt = now

	out := *interview
	return &out, nil
}

// Complete marks an unsettled interview as completed.
func (r *InMemoryRepository) Complete(id, notes string) (*Interview, error) {
	return r.settle(id, StatusCompleted, notes)
}

// Cancel marks an unsettled interview as cancelled.
func (r *InMemoryRepository) Cancel(id, notes string) (*Interview, error) {
	return r.settle(id, StatusCancelled, notes)
}

func (r *InMemoryRepository) settle(id string, status Status, notes string) (*Interview, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	interview, ok := r.interviews[id]
	if !ok {
		return nil, ErrInterviewNotFound
	}
	if interview.Status.Settled() {
		return nil, ErrAlreadySettled
	}

	interview.Status = status
	if notes != "" {
		interview.Notes = notes
	}
	interview.UpdatedAt = r.now()

	out := *interview
	return &out, nil
}
