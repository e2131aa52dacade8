package feed

import (
	"math/rand"
	"sort"
	"time"

	"github.com/swipehire/swipehire-api/internal/content"
	"github.com/swipehire/swipehire-api/internal/profile"
)

// DefaultPageSize is used when a request does not specify one.
const DefaultPageSize = 10

// MaxPageSize bounds a single page.
const MaxPageSize = 50

// ScoredItem is a content item with its composite ranking score.
type ScoredItem struct {
	Item  *content.Item `json:"item"`
	Score float64       `json:"score"`
}

// Rank filters and scores the whole candidate pool, returning the full
// ranked order, highest score first. Ties keep their original pool order
// (stable sort).
//
// The pass is pure aside from the discovery draws taken from rng. Rank
// scores every item exactly once; callers paginate the returned order with
// Paginate so later pages never reshuffle. Passing nil weights uses
// DefaultWeights; passing a nil rng seeds from the current time, which is
// the intended fresh-order-per-reload behavior.
func Rank(pool []*content.Item, authors map[string]*profile.Author, viewer Viewer, query string, filters Filters, w *Weights, rng *rand.Rand) []ScoredItem {
	if w == nil {
		w = DefaultWeights()
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	// Kind rarity is measured against the whole candidate pool, before
	// filtering, so a niche kind stays "rare" even under a narrow filter.
	kindFrequency := poolKindFrequency(pool)

	filtered := Filter(pool, authors, query, filters)

	now := time.Now()
	diversity := newDiversityState()

	ranked := make([]ScoredItem, 0, len(filtered))
	for _, item := range filtered {
		score := scoreItem(item, authors[item.AuthorID], &viewer, kindFrequency, diversity, w, rng, now)
		ranked = append(ranked, ScoredItem{Item: item, Score: score})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})

	return ranked
}

// scoreItem sums the independent scoring terms for one item. Each term is
// clamped to its stated maximum before summation; the final score is
// clamped to a minimum of zero.
func scoreItem(item *content.Item, author *profile.Author, viewer *Viewer, kindFrequency map[content.Kind]float64, diversity *diversityState, w *Weights, rng *rand.Rand, now time.Time) float64 {
	score := EngagementScore(item.Engagement, w.Engagement)
	score += RecencyScore(now.Sub(item.CreatedAt), w.RecencyBuckets)

	engaged := viewer.EngagedAuthor(item.AuthorID)
	if engaged {
		score += w.EngagedAuthorBonus
	}

	score += PreferredKindScore(item.Kind, viewer.KindCounts, viewer.PositiveTotal, w.PreferredKindMax)
	score += TagAffinityScore(item.Tags, viewer.TagCounts, w.TagAffinityPer, w.TagAffinityMax)

	if p := viewer.Profile; p != nil {
		score += SkillRelevanceScore(item.Tags, p.Skills, w.SkillRelevancePer, w.SkillRelevanceMax)
		score += RoleKindScore(p.Role, item.Kind, w)
		if author != nil {
			score += IndustryScore(author.CompanyIndustry, p.PreferredCategories, w.IndustryBonus)
			score += LocationScore(p.Location, author.Location, w.LocationCityBonus, w.LocationRegionBonus)
			score += CultureFitScore(author.CultureTraits, p.CulturePreferences, w.CultureFitMax)
		}
	}

	score += QualityScore(item, w)
	score -= diversity.penalty(item, w.Diversity)
	score += RarityScore(item.Kind, kindFrequency, w.Diversity)

	viewed := viewer.HasViewed(item.ID)
	score += DiscoveryScore(rng, engaged, viewed, w.Discovery)
	if viewed && !viewer.HasLiked(item.ID) {
		score -= w.ViewedPenalty
	}

	if score < 0 {
		score = 0
	}
	return score
}

// poolKindFrequency computes the share of each content kind in the pool.
func poolKindFrequency(pool []*content.Item) map[content.Kind]float64 {
	freq := make(map[content.Kind]float64)
	if len(pool) == 0 {
		return freq
	}
	for _, item := range pool {
		freq[item.Kind]++
	}
	total := float64(len(pool))
	for kind := range freq {
		freq[kind] /= total
	}
	return freq
}

// Paginate returns the contiguous slice of a ranked order for the given
// page, plus whether further pages exist. Page indexes are zero-based.
func Paginate(ranked []ScoredItem, pageIndex, pageSize int) ([]*content.Item, bool) {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	if pageIndex < 0 {
		pageIndex = 0
	}

	start := pageIndex * pageSize
	if start >= len(ranked) {
		return []*content.Item{}, false
	}

	end := start + pageSize
	if end > len(ranked) {
		end = len(ranked)
	}

	items := make([]*content.Item, 0, end-start)
	for _, s := range ranked[start:end] {
		items = append(items, s.Item)
	}

	return items, end < len(ranked)
}
