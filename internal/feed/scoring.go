package feed

import (
	"math/rand"
	"strings"
	"time"

	"github.com/swipehire/swipehire-api/internal/content"
	"github.com/swipehire/swipehire-api/internal/profile"
)

// clamp bounds a score to [0, max].
func clamp(score, max float64) float64 {
	if score < 0 {
		return 0
	}
	if score > max {
		return max
	}
	return score
}

// EngagementScore computes the popularity term from raw counters plus the
// normalized engagement rate, clamped to w.Max.
func EngagementScore(e content.Engagement, w EngagementWeights) float64 {
	score := float64(e.Likes)*w.Like +
		float64(e.Views)*w.View +
		float64(e.Shares)*w.Share +
		float64(e.Comments)*w.Comment +
		e.Rate()*w.Rate
	return clamp(score, w.Max)
}

// RecencyScore computes the step-function recency term for an item of the
// given age. Ages past the last bucket score zero. The buckets are
// monotonic non-increasing in age, so a strictly more recent item always
// scores weakly higher.
func RecencyScore(age time.Duration, buckets []RecencyBucket) float64 {
	if age < 0 {
		age = 0
	}
	hours := age.Hours()
	for _, b := range buckets {
		if hours < b.MaxAgeHours {
			return b.Score
		}
	}
	return 0
}

// PreferredKindScore is proportional to how often the viewer's positive
// history involved this content kind.
func PreferredKindScore(kind content.Kind, kindCounts map[content.Kind]int, positiveTotal int, max float64) float64 {
	if positiveTotal <= 0 {
		return 0
	}
	share := float64(kindCounts[kind]) / float64(positiveTotal)
	return clamp(share*max, max)
}

// TagAffinityScore is proportional to the overlap between item tags and
// tags present in the viewer's positive-interaction history.
func TagAffinityScore(tags []string, tagCounts map[string]int, per, max float64) float64 {
	if len(tagCounts) == 0 {
		return 0
	}
	matches := 0
	for _, tag := range tags {
		if tagCounts[strings.ToLower(tag)] > 0 {
			matches++
		}
	}
	return clamp(float64(matches)*per, max)
}

// SkillRelevanceScore is proportional to the count of item tags matching
// the viewer's declared skills (case-insensitive).
func SkillRelevanceScore(tags, skills []string, per, max float64) float64 {
	if len(tags) == 0 || len(skills) == 0 {
		return 0
	}
	matches := 0
	for _, tag := range tags {
		for _, skill := range skills {
			if strings.EqualFold(tag, skill) {
				matches++
				break
			}
		}
	}
	return clamp(float64(matches)*per, max)
}

// IndustryScore awards a flat bonus when the author's company industry
// matches one of the viewer's preferred job categories.
func IndustryScore(industry string, preferredCategories []string, flat float64) float64 {
	if industry == "" {
		return 0
	}
	for _, cat := range preferredCategories {
		if strings.EqualFold(industry, cat) {
			return flat
		}
	}
	return 0
}

// RoleKindScore awards a flat per-kind bonus depending on the viewer role:
// recruiters favor introduction content, seekers favor job openings,
// culture posts, and tips.
func RoleKindScore(role profile.Role, kind content.Kind, w *Weights) float64 {
	switch role {
	case profile.RoleRecruiter:
		return w.RecruiterKindBonus[kind]
	case profile.RoleSeeker:
		return w.SeekerKindBonus[kind]
	}
	return 0
}

// LocationScore compares viewer and author locations token-wise. A shared
// city token (the segment before the first comma) scores cityBonus; any
// other shared token scores regionBonus.
func LocationScore(viewerLoc, authorLoc string, cityBonus, regionBonus float64) float64 {
	if viewerLoc == "" || authorLoc == "" {
		return 0
	}

	viewerCity, viewerRegion := splitLocation(viewerLoc)
	authorCity, authorRegion := splitLocation(authorLoc)

	if viewerCity != "" && viewerCity == authorCity {
		return cityBonus
	}
	for _, vt := range viewerRegion {
		for _, at := range authorRegion {
			if vt == at {
				return regionBonus
			}
		}
	}
	return 0
}

// splitLocation splits "City, Region, Country" into a lowercased city token
// and the remaining lowercased region tokens.
func splitLocation(loc string) (string, []string) {
	parts := strings.Split(loc, ",")
	city := strings.ToLower(strings.TrimSpace(parts[0]))
	var region []string
	for _, p := range parts[1:] {
		p = strings.ToLower(strings.TrimSpace(p))
		if p != "" {
			region = append(region, p)
		}
	}
	return city, region
}

// CultureFitScore is proportional to the overlap between the author's
// culture traits and the viewer's culture preferences.
func CultureFitScore(traits, preferences []string, max float64) float64 {
	if len(traits) == 0 || len(preferences) == 0 {
		return 0
	}
	matches := 0
	for _, pref := range preferences {
		for _, trait := range traits {
			if strings.EqualFold(pref, trait) {
				matches++
				break
			}
		}
	}
	share := float64(matches) / float64(len(preferences))
	return clamp(share*max, max)
}

// QualityScore awards small flat bonuses for long captions, three or more
// tags, and thumbnail presence.
func QualityScore(item *content.Item, w *Weights) float64 {
	score := 0.0
	if len(item.Caption) >= w.QualityCaptionLength {
		score += w.QualityCaptionBonus
	}
	if len(item.Tags) >= 3 {
		score += w.QualityTagsBonus
	}
	if item.ThumbnailURL != "" {
		score += w.QualityThumbnailBonus
	}
	return score
}

// RarityScore awards a flat bonus when the item's kind appears in less
// than the threshold share of the whole candidate pool.
func RarityScore(kind content.Kind, kindFrequency map[content.Kind]float64, w DiversityWeights) float64 {
	if freq, ok := kindFrequency[kind]; ok && freq < w.RarityThreshold {
		return w.RarityBonus
	}
	return 0
}

// DiscoveryScore draws the per-item random exploration term and adds the
// flat unseen bonus when the author is unengaged and the item unseen this
// session. This is the only randomized term in the engine; it is drawn
// once per item per ranking pass.
func DiscoveryScore(rng *rand.Rand, engagedAuthor, viewed bool, w DiscoveryWeights) float64 {
	score := rng.Float64() * w.RandomMax
	if !engagedAuthor && !viewed {
		score += w.UnseenFlat
	}
	return score
}

// diversityState tracks per-kind and per-author occurrence counts across a
// single ranking pass. It is an explicit accumulator threaded through the
// pass so the term functions stay referentially transparent.
type diversityState struct {
	kindCounts   map[content.Kind]int
	authorCounts map[string]int
}

func newDiversityState() *diversityState {
	return &diversityState{
		kindCounts:   make(map[content.Kind]int),
		authorCounts: make(map[string]int),
	}
}

// penalty records the item's kind and author and returns the accumulated
// repetition penalty: once a kind exceeds KindCap occurrences or an author
// exceeds AuthorCap, the penalty grows proportionally to the excess.
func (d *diversityState) penalty(item *content.Item, w DiversityWeights) float64 {
	d.kindCounts[item.Kind]++
	d.authorCounts[item.AuthorID]++

	penalty := 0.0
	if excess := d.kindCounts[item.Kind] - w.KindCap; excess > 0 {
		penalty += float64(excess) * w.KindPenaltyPer
	}
	if excess := d.authorCounts[item.AuthorID] - w.AuthorCap; excess > 0 {
		penalty += float64(excess) * w.AuthorPenaltyPer
	}
	return penalty
}
