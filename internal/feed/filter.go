package feed

import (
	"strings"

	"github.com/swipehire/swipehire-api/internal/content"
	"github.com/swipehire/swipehire-api/internal/profile"
)

// Filters is the structured pre-scoring filter for a feed request.
// Zero-value fields are not applied.
type Filters struct {
	// Kinds is a content-kind allow-list.
	Kinds []content.Kind `json:"kinds,omitempty"`

	// AuthorRoles is an author-kind allow-list (seeker/recruiter).
	AuthorRoles []profile.Role `json:"author_roles,omitempty"`

	// Location is a substring match against the author location. The
	// literal token "remote" always passes.
	Location string `json:"location,omitempty"`

	// Skills requires overlap between the requested skills and the item
	// tags or author skills.
	Skills []string `json:"skills,omitempty"`
}

// Empty reports whether no structured filter is set.
func (f Filters) Empty() bool {
	return len(f.Kinds) == 0 && len(f.AuthorRoles) == 0 && f.Location == "" && len(f.Skills) == 0
}

// Filter applies the pre-scoring pipeline, in order: moderation/media
// exclusion, free-text query, then structured filters. Excluded items are
// dropped, never penalized. Items whose author record is missing keep
// their content-only fields matchable and fail author-dependent filters.
func Filter(pool []*content.Item, authors map[string]*profile.Author, query string, f Filters) []*content.Item {
	query = strings.ToLower(strings.TrimSpace(query))

	var kept []*content.Item
	for _, item := range pool {
		if item.Moderation == content.ModerationRejected || !item.Playable() {
			continue
		}

		author := authors[item.AuthorID]

		if query != "" && !matchesQuery(item, author, query) {
			continue
		}
		if !matchesFilters(item, author, f) {
			continue
		}

		kept = append(kept, item)
	}
	return kept
}

// matchesQuery checks the concatenated searchable text of an item for a
// case-insensitive substring match.
func matchesQuery(item *content.Item, author *profile.Author, query string) bool {
	var b strings.Builder
	b.WriteString(item.Caption)
	b.WriteByte(' ')
	for _, tag := range item.Tags {
		b.WriteString(tag)
		b.WriteByte(' ')
	}
	if author != nil {
		b.WriteString(author.DisplayName)
		b.WriteByte(' ')
		b.WriteString(author.Headline)
		b.WriteByte(' ')
		b.WriteString(author.CompanyName)
		b.WriteByte(' ')
		for _, skill := range author.Skills {
			b.WriteString(skill)
			b.WriteByte(' ')
		}
	}
	return strings.Contains(strings.ToLower(b.String()), query)
}

// matchesFilters applies the structured filters.
func matchesFilters(item *content.Item, author *profile.Author, f Filters) bool {
	if len(f.Kinds) > 0 && !kindAllowed(item.Kind, f.Kinds) {
		return false
	}

	if len(f.AuthorRoles) > 0 {
		if author == nil || !roleAllowed(author.Role, f.AuthorRoles) {
			return false
		}
	}

	if f.Location != "" {
		if author == nil {
			return false
		}
		loc := strings.ToLower(author.Location)
		want := strings.ToLower(strings.TrimSpace(f.Location))
		// Remote authors match any location filter.
		if !strings.Contains(loc, "remote") && !strings.Contains(loc, want) {
			return false
		}
	}

	if len(f.Skills) > 0 && !skillOverlap(item, author, f.Skills) {
		return false
	}

	return true
}

func kindAllowed(kind content.Kind, allowed []content.Kind) bool {
	for _, k := range allowed {
		if kind == k {
			return true
		}
	}
	return false
}

func roleAllowed(role profile.Role, allowed []profile.Role) bool {
	for _, r := range allowed {
		if role == r {
			return true
		}
	}
	return false
}

// skillOverlap reports whether any requested skill overlaps an item tag or
// author skill: a case-insensitive match where one contains the other.
func skillOverlap(item *content.Item, author *profile.Author, requested []string) bool {
	var have []string
	have = append(have, item.Tags...)
	if author != nil {
		have = append(have, author.Skills...)
	}

	for _, want := range requested {
		wantLower := strings.ToLower(strings.TrimSpace(want))
		if wantLower == "" {
			continue
		}
		for _, h := range have {
			hLower := strings.ToLower(h)
			if strings.Contains(hLower, wantLower) || strings.Contains(wantLower, hLower) {
				return true
			}
		}
	}
	return false
}
