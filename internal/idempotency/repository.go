package idempotency

import (
	"sync"
	"time"
)

// InMemoryRepository keeps records in a map. Suitable for single-instance
// deployments and tests; cached responses do not survive restarts.
type InMemoryRepository struct {
	mu      sync.RWMutex
	records map[string]*Record
}

func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{records: make(map[string]*Record)}
}

func (r *InMemoryRepository) Get(key string) (*Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	record, ok := r.records[key]
	if !ok {
		return nil, ErrKeyNotFound
	}
	return clone(record), nil
}

func (r *InMemoryRepository) Store(record *Record) error {
	if err := ValidateKey(record.Key); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.records[record.Key]; exists {
		return ErrKeyExists
	}

	stored := clone(record)
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now()
	}
	r.records[record.Key] = stored
	return nil
}

func (r *InMemoryRepository) DeleteOlderThan(duration time.Duration) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := time.Now().Add(-duration)
	var deleted int64
	for key, record := range r.records {
		if record.CreatedAt.Before(cutoff) {
			delete(r.records, key)
			deleted++
		}
	}
	return deleted, nil
}

// clone keeps callers from mutating stored records through the returned pointer.
func clone(record *Record) *Record {
	if record == nil {
		return nil
	}
	out := *record
	return &out
}
