package feed

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/swipehire/swipehire-api/internal/content"
)

// CalibrationConfig represents the JSON structure of the calibration file.
type CalibrationConfig struct {
	Version string  `json:"version"` // Config version for future compatibility
	Weights Weights `json:"weights"` // Weight overrides (partial allowed)
}

// LoadCalibration loads ranking weights from a JSON calibration file.
// If the file doesn't exist or can't be parsed, returns default weights
// with an error so startup can log and continue.
func LoadCalibration(filePath string) (*Weights, error) {
	if filePath == "" {
		return DefaultWeights(), nil
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		slog.Warn("failed to read feed calibration file, using defaults",
			"path", filePath,
			"error", err)
		return DefaultWeights(), fmt.Errorf("failed to read calibration file: %w", err)
	}

	var config CalibrationConfig
	if err := json.Unmarshal(data, &config); err != nil {
		slog.Warn("failed to parse feed calibration file, using defaults",
			"path", filePath,
			"error", err)
		return DefaultWeights(), fmt.Errorf("failed to parse calibration file: %w", err)
	}

	return MergeCalibration(DefaultWeights(), &config.Weights), nil
}

// MergeCalibration merges override weights onto base weights. Only
// non-zero scalar values, non-empty bucket lists, and non-empty bonus maps
// from the override are applied, so the calibration file may be partial.
func MergeCalibration(base *Weights, override *Weights) *Weights {
	if base == nil {
		return DefaultWeights()
	}
	if override == nil {
		result := *base
		return &result
	}

	result := *base

	mergeFloat(&result.Engagement.Like, override.Engagement.Like)
	mergeFloat(&result.Engagement.View, override.Engagement.View)
	mergeFloat(&result.Engagement.Share, override.Engagement.Share)
	mergeFloat(&result.Engagement.Comment, override.Engagement.Comment)
	mergeFloat(&result.Engagement.Rate, override.Engagement.Rate)
	mergeFloat(&result.Engagement.Max, override.Engagement.Max)

	if len(override.RecencyBuckets) > 0 {
		result.RecencyBuckets = override.RecencyBuckets
	}

	mergeFloat(&result.EngagedAuthorBonus, override.EngagedAuthorBonus)
	mergeFloat(&result.PreferredKindMax, override.PreferredKindMax)
	mergeFloat(&result.TagAffinityPer, override.TagAffinityPer)
	mergeFloat(&result.TagAffinityMax, override.TagAffinityMax)
	mergeFloat(&result.SkillRelevancePer, override.SkillRelevancePer)
	mergeFloat(&result.SkillRelevanceMax, override.SkillRelevanceMax)
	mergeFloat(&result.IndustryBonus, override.IndustryBonus)

	if len(override.RecruiterKindBonus) > 0 {
		result.RecruiterKindBonus = copyKindBonus(override.RecruiterKindBonus)
	}
	if len(override.SeekerKindBonus) > 0 {
		result.SeekerKindBonus = copyKindBonus(override.SeekerKindBonus)
	}

	mergeFloat(&result.LocationCityBonus, override.LocationCityBonus)
	mergeFloat(&result.LocationRegionBonus, override.LocationRegionBonus)
	mergeFloat(&result.CultureFitMax, override.CultureFitMax)

	mergeFloat(&result.QualityCaptionBonus, override.QualityCaptionBonus)
	if override.QualityCaptionLength != 0 {
		result.QualityCaptionLength = override.QualityCaptionLength
	}
	mergeFloat(&result.QualityTagsBonus, override.QualityTagsBonus)
	mergeFloat(&result.QualityThumbnailBonus, override.QualityThumbnailBonus)

	if override.Diversity.KindCap != 0 {
		result.Diversity.KindCap = override.Diversity.KindCap
	}
	if override.Diversity.AuthorCap != 0 {
		result.Diversity.AuthorCap = override.Diversity.AuthorCap
	}
	mergeFloat(&result.Diversity.KindPenaltyPer, override.Diversity.KindPenaltyPer)
	mergeFloat(&result.Diversity.AuthorPenaltyPer, override.Diversity.AuthorPenaltyPer)
	mergeFloat(&result.Diversity.RarityThreshold, override.Diversity.RarityThreshold)
	mergeFloat(&result.Diversity.RarityBonus, override.Diversity.RarityBonus)

	mergeFloat(&result.Discovery.RandomMax, override.Discovery.RandomMax)
	mergeFloat(&result.Discovery.UnseenFlat, override.Discovery.UnseenFlat)

	mergeFloat(&result.ViewedPenalty, override.ViewedPenalty)

	return &result
}

func mergeFloat(dst *float64, override float64) {
	if override != 0 {
		*dst = override
	}
}

func copyKindBonus(m map[content.Kind]float64) map[content.Kind]float64 {
	out := make(map[content.Kind]float64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
