package feed

import (
	"github.com/swipehire/swipehire-api/internal/content"
	"github.com/swipehire/swipehire-api/internal/profile"
)

// Viewer bundles everything the engine knows about the current viewer:
// declared profile, explicit follows, inferred preference signals, and
// session state. All fields tolerate nil; a zero Viewer is an anonymous
// viewer and every personalization term contributes zero.
type Viewer struct {
	// Profile is the viewer's structured profile. Nil for anonymous viewers.
	Profile *profile.ViewerProfile

	// Follows is the set of author IDs the viewer explicitly follows.
	Follows map[string]bool

	// LikedAuthors is the inferred set of authors from positive history.
	LikedAuthors map[string]bool

	// KindCounts counts positive interactions per content kind.
	KindCounts map[content.Kind]int

	// PositiveTotal is the total positive interaction count behind KindCounts.
	PositiveTotal int

	// TagCounts counts lowercased tags across positive history.
	TagCounts map[string]int

	// Viewed is the session-scoped set of content IDs already seen.
	Viewed map[string]bool

	// Liked is the session-scoped set of content IDs already liked. Liked
	// items are exempt from the viewed penalty so content the viewer engaged
	// with keeps its ranking on a re-rank.
	Liked map[string]bool
}

// EngagedAuthor reports whether the viewer follows the author or has them
// in the inferred liked-author set.
func (v *Viewer) EngagedAuthor(authorID string) bool {
	return v.Follows[authorID] || v.LikedAuthors[authorID]
}

// HasViewed reports whether the content ID is in the session viewed set.
func (v *Viewer) HasViewed(contentID string) bool {
	return v.Viewed[contentID]
}

// HasLiked reports whether the content ID is in the session liked set.
func (v *Viewer) HasLiked(contentID string) bool {
	return v.Liked[contentID]
}
