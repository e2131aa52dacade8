package feed

import "github.com/swipehire/swipehire-api/internal/content"

// EngagementWeights defines how raw engagement counters combine into the
// engagement term before clamping.
type EngagementWeights struct {
	Like    float64 `json:"like"`    // per-like contribution (default: 0.4)
	View    float64 `json:"view"`    // per-view contribution (default: 0.02)
	Share   float64 `json:"share"`   // per-share contribution (default: 1.0)
	Comment float64 `json:"comment"` // per-comment contribution (default: 0.5)
	Rate    float64 `json:"rate"`    // engagement-rate multiplier (default: 20)
	Max     float64 `json:"max"`     // clamp ceiling (default: 80)
}

// RecencyBucket maps a maximum age in hours to the score awarded while the
// item is younger than that.
type RecencyBucket struct {
	MaxAgeHours float64 `json:"max_age_hours"`
	Score       float64 `json:"score"`
}

// DiversityWeights defines the anti-repetition penalties applied during a
// single ranking pass.
type DiversityWeights struct {
	KindCap          int     `json:"kind_cap"`           // occurrences before kind penalty (default: 3)
	AuthorCap        int     `json:"author_cap"`         // occurrences before author penalty (default: 2)
	KindPenaltyPer   float64 `json:"kind_penalty_per"`   // per excess occurrence (default: 15)
	AuthorPenaltyPer float64 `json:"author_penalty_per"` // per excess occurrence (default: 70)
	RarityThreshold  float64 `json:"rarity_threshold"`   // pool frequency below which a kind is rare (default: 0.15)
	RarityBonus      float64 `json:"rarity_bonus"`       // flat bonus for rare kinds (default: 20)
}

// DiscoveryWeights defines the exploration terms.
type DiscoveryWeights struct {
	RandomMax  float64 `json:"random_max"`  // per-item random term upper bound, exclusive (default: 25)
	UnseenFlat float64 `json:"unseen_flat"` // flat bonus for unengaged author + unseen item (default: 15)
}

// Weights holds every tunable constant of the ranking engine. Each term is
// clamped to its stated maximum before summation so no single factor can
// dominate the composite score.
type Weights struct {
	Engagement EngagementWeights `json:"engagement"`

	// RecencyBuckets is a step function of item age, evaluated in order.
	// Ages past the last bucket score zero.
	RecencyBuckets []RecencyBucket `json:"recency_buckets"`

	EngagedAuthorBonus float64 `json:"engaged_author_bonus"` // flat, followed or inferred-liked author (default: 50)
	PreferredKindMax   float64 `json:"preferred_kind_max"`   // proportional to history share (default: 30)
	TagAffinityPer     float64 `json:"tag_affinity_per"`     // per matched history tag (default: 5)
	TagAffinityMax     float64 `json:"tag_affinity_max"`     // clamp (default: 20)
	SkillRelevancePer  float64 `json:"skill_relevance_per"`  // per tag matching a declared skill (default: 10)
	SkillRelevanceMax  float64 `json:"skill_relevance_max"`  // clamp (default: 40)
	IndustryBonus      float64 `json:"industry_bonus"`       // flat, industry in preferred categories (default: 25)

	// RoleKindBonus awards a flat bonus per content kind depending on the
	// viewer's role. Recruiters favor introductions; seekers favor job
	// openings, culture, and tips.
	RecruiterKindBonus map[content.Kind]float64 `json:"recruiter_kind_bonus"`
	SeekerKindBonus    map[content.Kind]float64 `json:"seeker_kind_bonus"`

	LocationCityBonus   float64 `json:"location_city_bonus"`   // shared city token (default: 30)
	LocationRegionBonus float64 `json:"location_region_bonus"` // shared region token (default: 15)
	CultureFitMax       float64 `json:"culture_fit_max"`       // proportional to trait overlap (default: 25)

	QualityCaptionBonus   float64 `json:"quality_caption_bonus"`   // caption >= QualityCaptionLength (default: 8)
	QualityCaptionLength  int     `json:"quality_caption_length"`  // default: 100
	QualityTagsBonus      float64 `json:"quality_tags_bonus"`      // >= 3 tags (default: 6)
	QualityThumbnailBonus float64 `json:"quality_thumbnail_bonus"` // thumbnail present (default: 6)

	Diversity DiversityWeights `json:"diversity"`
	Discovery DiscoveryWeights `json:"discovery"`

	ViewedPenalty float64 `json:"viewed_penalty"` // flat penalty for session-viewed items (default: 80)
}

// DefaultWeights returns the default ranking weight configuration.
//
// The defaults layer explicit anti-repetition and exploration terms onto a
// base popularity/recency score. Each personalization term is bounded so
// the feed degrades gracefully to engagement+recency+discovery for
// anonymous viewers.
func DefaultWeights() *Weights {
	return &Weights{
		Engagement: EngagementWeights{
			Like:    0.4,
			View:    0.02,
			Share:   1.0,
			Comment: 0.5,
			Rate:    20,
			Max:     80,
		},
		RecencyBuckets: []RecencyBucket{
			{MaxAgeHours: 3, Score: 70},
			{MaxAgeHours: 12, Score: 55},
			{MaxAgeHours: 24, Score: 45},
			{MaxAgeHours: 48, Score: 35},
			{MaxAgeHours: 72, Score: 25},
			{MaxAgeHours: 168, Score: 15},
		},
		EngagedAuthorBonus: 50,
		PreferredKindMax:   30,
		TagAffinityPer:     5,
		TagAffinityMax:     20,
		SkillRelevancePer:  10,
		SkillRelevanceMax:  40,
		IndustryBonus:      25,
		RecruiterKindBonus: map[content.Kind]float64{
			content.KindIntroduction: 40,
		},
		SeekerKindBonus: map[content.Kind]float64{
			content.KindJobOpening: 40,
			content.KindCulture:    25,
			content.KindTip:        20,
		},
		LocationCityBonus:   30,
		LocationRegionBonus: 15,
		CultureFitMax:       25,

		QualityCaptionBonus:   8,
		QualityCaptionLength:  100,
		QualityTagsBonus:      6,
		QualityThumbnailBonus: 6,

		Diversity: DiversityWeights{
			KindCap:        3,
			AuthorCap:      2,
			KindPenaltyPer: 15,
			// Strong enough that a followed author's third item in a pass
			// ranks below unengaged alternatives with comparable base scores.
			AuthorPenaltyPer: 70,
			RarityThreshold:  0.15,
			RarityBonus:      20,
		},
		Discovery: DiscoveryWeights{
			RandomMax:  25,
			UnseenFlat: 15,
		},

		ViewedPenalty: 80,
	}
}
