// Package interaction provides models and repository for viewer swipes,
// follows, and connections, plus the preference signals inferred from them.
package interaction

import (
	"errors"
	"time"

	"github.com/swipehire/swipehire-api/internal/content"
)

// Direction of a swipe.
type Direction string

// Valid swipe directions.
const (
	DirectionPositive Direction = "positive"
	DirectionNegative Direction = "negative"
)

// TargetType identifies what a swipe was made against.
type TargetType string

// Valid swipe target types.
const (
	TargetContent TargetType = "content"
	TargetJob     TargetType = "job"
	TargetAuthor  TargetType = "author"
)

// Validation errors.
var (
	ErrInvalidDirection  = errors.New("invalid swipe direction")
	ErrInvalidTargetType = errors.New("invalid swipe target type")
	ErrMissingTarget     = errors.New("swipe target ID is required")
)

// Swipe is a single directional interaction by a viewer against a target.
// TargetAuthorID, TargetKind, and TargetTags carry the context needed to
// infer preferences without re-fetching the target record.
type Swipe struct {
	ID             string       `json:"id"`
	UserID         string       `json:"user_id"`
	TargetID       string       `json:"target_id"`
	TargetType     TargetType   `json:"target_type"`
	TargetAuthorID string       `json:"target_author_id,omitempty"`
	TargetKind     content.Kind `json:"target_kind,omitempty"`
	TargetTags     []string     `json:"target_tags,omitempty"`
	Direction      Direction    `json:"direction"`

	CreatedAt time.Time `json:"created_at"`
}

// Validate checks the swipe for required fields and valid enums.
func (s *Swipe) Validate() error {
	switch s.Direction {
	case DirectionPositive, DirectionNegative:
	default:
		return ErrInvalidDirection
	}
	switch s.TargetType {
	case TargetContent, TargetJob, TargetAuthor:
	default:
		return ErrInvalidTargetType
	}
	if s.TargetID == "" {
		return ErrMissingTarget
	}
	return nil
}

// Follow is an explicit follow of an author by a viewer. Treated as a
// strong positive signal, distinct from inferred preference.
type Follow struct {
	UserID    string    `json:"user_id"`
	AuthorID  string    `json:"author_id"`
	CreatedAt time.Time `json:"created_at"`
}
