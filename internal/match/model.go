// Package match provides models and repository for recruiter/seeker matches
// and the hiring pipeline a match moves through.
package match

import (
	"errors"
	"time"
)

// Common errors for match operations.
var (
	ErrMatchNotFound      = errors.New("match not found")
	ErrInvalidStage       = errors.New("invalid pipeline stage")
	ErrTerminalStage      = errors.New("match is in a terminal stage")
	ErrInvalidTransition  = errors.New("invalid stage transition")
	ErrDuplicateMatch     = errors.New("match already exists for this pair")
	ErrMissingParticipant = errors.New("match requires both seeker and recruiter")
)

// Stage is a position in the hiring pipeline.
type Stage string

const (
	StageSourced   Stage = "sourced"
	StageScreening Stage = "screening"
	StageInterview Stage = "interview"
	StageOffer     Stage = "offer"
	StageHired     Stage = "hired"
	StageRejected  Stage = "rejected"
)

// pipelineOrder is the forward path through the pipeline. Rejected is
// reachable from any non-terminal stage and is not part of the path.
var pipelineOrder = []Stage{
	StageSourced,
	StageScreening,
	StageInterview,
	StageOffer,
	StageHired,
}

// IsValid reports whether s is a known stage.
func (s Stage) IsValid() bool {
	switch s {
	case StageSourced, StageScreening, StageInterview, StageOffer, StageHired, StageRejected:
		return true
	}
	return false
}

// Terminal reports whether a match in this stage can still move.
func (s Stage) Terminal() bool {
	return s == StageHired || s == StageRejected
}

// Next returns the next forward stage, or an error if s is terminal or
// unknown.
func (s Stage) Next() (Stage, error) {
	if s.Terminal() {
		return "", ErrTerminalStage
	}
	for i, stage := range pipelineOrder {
		if stage == s {
			return pipelineOrder[i+1], nil
		}
	}
	return "", ErrInvalidStage
}

// CanMoveTo reports whether a direct move from s to target is allowed.
// Any non-terminal stage may move to any other non-terminal stage or to
// rejected; terminal stages never move.
func (s Stage) CanMoveTo(target Stage) bool {
	if s.Terminal() || !target.IsValid() {
		return false
	}
	return target != s
}

// StageChange is one entry in a match's pipeline history.
type StageChange struct {
	From    Stage     `json:"from"`
	To      Stage     `json:"to"`
	ActorID string    `json:"actor_id"`
	Note    string    `json:"note,omitempty"`
	At      time.Time `json:"at"`
}

// Match represents a mutual positive swipe between a seeker and a
// recruiter, optionally anchored to a specific job opening.
type Match struct {
	ID          string `json:"id"`
	SeekerID    string `json:"seeker_id"`
	RecruiterID string `json:"recruiter_id"`

	// JobItemID is the job-opening content item the match formed around,
	// if any. Empty for profile-level matches.
	JobItemID string `json:"job_item_id,omitempty"`

	Stage   Stage         `json:"stage"`
	History []StageChange `json:"history,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Validate checks that the match has both participants and a known stage.
func (m *Match) Validate() error {
	if m.SeekerID == "" || m.RecruiterID == "" {
		return ErrMissingParticipant
	}
	if m.Stage != "" && !m.Stage.IsValid() {
		return ErrInvalidStage
	}
	return nil
}
