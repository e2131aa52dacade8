package interaction

import (
	"strings"

	"github.com/swipehire/swipehire-api/internal/content"
)

// Signals holds the implicit preference weights inferred from a viewer's
// positive interaction history. All maps are non-nil, possibly empty.
type Signals struct {
	// LikedAuthors is the set of authors the viewer swiped positively on,
	// either directly or via their content.
	LikedAuthors map[string]bool

	// KindCounts counts positive interactions per content kind.
	KindCounts map[content.Kind]int

	// PositiveTotal is the total number of positive interactions.
	PositiveTotal int

	// TagCounts counts occurrences of lowercased tags across positive
	// interactions.
	TagCounts map[string]int
}

// EmptySignals returns signals with no inferred preferences.
// Used for anonymous viewers.
func EmptySignals() Signals {
	return Signals{
		LikedAuthors: make(map[string]bool),
		KindCounts:   make(map[content.Kind]int),
		TagCounts:    make(map[string]int),
	}
}

// BuildSignals folds a viewer's swipe history into preference signals.
// Only positive swipes contribute; negative swipes are ignored rather than
// counted against a target.
func BuildSignals(swipes []*Swipe) Signals {
	s := EmptySignals()

	for _, swipe := range swipes {
		if swipe.Direction != DirectionPositive {
			continue
		}
		s.PositiveTotal++

		switch swipe.TargetType {
		case TargetAuthor:
			s.LikedAuthors[swipe.TargetID] = true
		default:
			if swipe.TargetAuthorID != "" {
				s.LikedAuthors[swipe.TargetAuthorID] = true
			}
		}

		if swipe.TargetKind != "" {
			s.KindCounts[swipe.TargetKind]++
		}
		for _, tag := range swipe.TargetTags {
			tag = strings.ToLower(strings.TrimSpace(tag))
			if tag != "" {
				s.TagCounts[tag]++
			}
		}
	}

	return s
}
