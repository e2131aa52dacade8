// Package idempotency provides models and services for idempotency key
// management. Swipe and engagement writes are retried freely by mobile
// clients on flaky networks, so duplicate POSTs must collapse to one
// recorded action.
package idempotency

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"
)

// Status constants for idempotency keys.
//
// StatusCompleted indicates that the request has finished and a stable
// response has been persisted.
//
// StatusProcessing is reserved for marking a key while the first request
// is still in-flight, for proper concurrent duplicate handling.
const (
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
)

// MaxKeyLength bounds client-supplied keys. A UUID plus a short client
// prefix fits comfortably.
const MaxKeyLength = 64

var (
	ErrKeyNotFound = errors.New("idempotency key not found")
	ErrKeyExists   = errors.New("idempotency key already exists")
	ErrInvalidKey  = errors.New("invalid idempotency key")
	ErrKeyTooLong  = errors.New("idempotency key exceeds maximum length of 64 characters")
)

// Record is a stored idempotency key together with the response it caches.
type Record struct {
	Key                string    `json:"key"`
	Method             string    `json:"method"`
	Route              string    `json:"route"`
	UserID             string    `json:"user_id,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
	ResponseHash       string    `json:"response_hash"`
	Status             string    `json:"status"`
	ResponseBody       string    `json:"response_body"`
	ResponseStatusCode int       `json:"response_status_code"`
}

// ValidateKey rejects empty keys and keys longer than MaxKeyLength.
func ValidateKey(key string) error {
	if key == "" {
		return ErrInvalidKey
	}
	if len(key) > MaxKeyLength {
		return ErrKeyTooLong
	}
	return nil
}

// HashResponse returns the SHA-256 hex digest of a cached response body,
// used to verify integrity when a cached response is replayed.
func HashResponse(responseBody string) string {
	digest := sha256.Sum256([]byte(responseBody))
	return hex.EncodeToString(digest[:])
}

// Repository persists idempotency records.
type Repository interface {
	// Get returns the record for key, or ErrKeyNotFound.
	Get(key string) (*Record, error)

	// Store saves a new record, or returns ErrKeyExists for a duplicate key.
	Store(record *Record) error

	// DeleteOlderThan removes records created before now minus duration and
	// returns how many were removed. Cleanup jobs call this to bound growth.
	DeleteOlderThan(duration time.Duration) (int64, error)
}
