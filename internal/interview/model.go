// Package interview provides models and repository for interview
// scheduling on matches that reach the interview stage.
package interview

import (
	"errors"
	"time"
)

// Common errors for interview operations.
var (
	ErrInterviewNotFound = errors.New("interview not found")
	ErrInvalidStatus     = errors.New("invalid interview status")
	ErrPastStartTime     = errors.New("interview start time is in the past")
	ErrAlreadySettled    = errors.New("interview is already completed or cancelled")
	ErrMissingMatch      = errors.New("interview requires a match")
)

// Status of a scheduled interview.
type Status string

const (
	StatusScheduled   Status = "scheduled"
	StatusRescheduled Status = "rescheduled"
	StatusCompleted   Status = "completed"
	StatusCancelled   Status = "cancelled"
)

// IsValid reports whether s is a known status.
func (s Status) IsValid() bool {
	switch s {
	case StatusScheduled, StatusRescheduled, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// Settled reports whether the interview can no longer change.
func (s Status) Settled() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// Interview is a scheduled conversation between the participants of a
// match.
type Interview struct {
	ID      string `json:"id"`
	MatchID string `json:"match_id"`

	// ScheduledBy is the user who created the slot, normally the
	// recruiter.
	ScheduledBy string `json:"scheduled_by"`

	StartsAt time.Time     `json:"starts_at"`
	Duration time.Duration `json:"duration"`

	// MeetingURL is the external video-call link. Call hosting is out of
	// scope; only the link is stored.
	MeetingURL string `json:"meeting_url,omitempty"`
	Notes      string `json:"notes,omitempty"`

	Status    Status    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Validate checks a new interview before scheduling.
func (i *Interview) Validate(now time.Time) error {
	if i.MatchID == "" {
		return ErrMissingMatch
	}
	if i.StartsAt.Before(now) {
		return ErrPastStartTime
	}
	return nil
}

// DefaultDuration is used when a slot is scheduled without a duration.
const DefaultDuration = 30 * time.Minute
