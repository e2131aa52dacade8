// Package content provides the content item model and repository for
// SwipeHire video posts.
package content

import (
	"errors"
	"time"
)

// Kind identifies the category of a content item.
type Kind string

// Valid content kinds.
const (
	KindIntroduction Kind = "introduction"
	KindJobOpening   Kind = "job_opening"
	KindCulture      Kind = "culture"
	KindTip          Kind = "tip"
	KindDayInLife    Kind = "day_in_life"
)

// AllKinds lists every valid content kind.
var AllKinds = []Kind{
	KindIntroduction,
	KindJobOpening,
	KindCulture,
	KindTip,
	KindDayInLife,
}

// ValidKind checks whether a kind string is one of the fixed content kinds.
func ValidKind(k Kind) bool {
	switch k {
	case KindIntroduction, KindJobOpening, KindCulture, KindTip, KindDayInLife:
		return true
	}
	return false
}

// ModerationState identifies the moderation status of a content item.
type ModerationState string

// Valid moderation states.
const (
	ModerationApproved ModerationState = "approved"
	ModerationPending  ModerationState = "pending"
	ModerationRejected ModerationState = "rejected"
)

// Validation errors for content items.
var (
	ErrInvalidKind            = errors.New("invalid content kind")
	ErrInvalidModerationState = errors.New("invalid moderation state")
	ErrMissingVideoURL        = errors.New("video URL is required")
)

// Engagement holds the engagement counters for a content item.
type Engagement struct {
	Views    int64 `json:"views"`
	Likes    int64 `json:"likes"`
	Shares   int64 `json:"shares"`
	Comments int64 `json:"comments"`
}

// Rate returns the normalized engagement rate:
// (likes + 2*shares + comments) / views. Zero views yields zero.
func (e Engagement) Rate() float64 {
	if e.Views <= 0 {
		return 0
	}
	return float64(e.Likes+2*e.Shares+e.Comments) / float64(e.Views)
}

// Item represents a single feed post (video) with author, kind, tags,
// and engagement counters.
type Item struct {
	ID           string          `json:"id"`
	AuthorID     string          `json:"author_id"`
	Kind         Kind            `json:"kind"`
	Caption      string          `json:"caption"`
	Tags         []string        `json:"tags,omitempty"`
	VideoURL     string          `json:"video_url"`
	ThumbnailURL string          `json:"thumbnail_url,omitempty"`
	Engagement   Engagement      `json:"engagement"`
	Moderation   ModerationState `json:"moderation"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Playable reports whether the item has a non-empty playable media reference.
// Items that are not playable are excluded from ranking, not penalized.
func (i *Item) Playable() bool {
	return i.VideoURL != ""
}

// Validate checks that the item has a valid kind, moderation state,
// and a playable media reference.
func (i *Item) Validate() error {
	if !ValidKind(i.Kind) {
		return ErrInvalidKind
	}
	switch i.Moderation {
	case ModerationApproved, ModerationPending, ModerationRejected:
	default:
		return ErrInvalidModerationState
	}
	if i.VideoURL == "" {
		return ErrMissingVideoURL
	}
	return nil
}

// HasTag reports whether the item carries the given tag (case-sensitive).
func (i *Item) HasTag(tag string) bool {
	for _, t := range i.Tags {
		if t == tag {
			return true
		}
	}
	return false
}
