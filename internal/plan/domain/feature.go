package domain

import (
	"sort"
	"strings"
)

// FeatureResponse is the shape shared by plan features and override features.
type FeatureResponse struct {
	ID            string  `json:"id"`
	FeatureName   string  `json:"feature_name"`
	FeatureValue  *string `json:"feature_value"`
	IsIncluded    bool    `json:"is_included"`
	IsHighlighted bool    `json:"is_highlighted"`
	SortOrder     int     `json:"sort_order"`
}

// FeatureInput is an admin-supplied feature. Nil IsIncluded means included;
// nil SortOrder takes a position-derived default.
type FeatureInput struct {
	FeatureName   string  `json:"feature_name"`
	FeatureValue  *string `json:"feature_value"`
	IsIncluded    *bool   `json:"is_included"`
	IsHighlighted bool    `json:"is_highlighted"`
	SortOrder     *int    `json:"sort_order"`
}

// NormalizeFeatures drops repeated feature names, keeping the first
// occurrence, and stable-sorts the rest by sort order.
func NormalizeFeatures(features []FeatureResponse) []FeatureResponse {
	seen := make(map[string]struct{}, len(features))
	out := make([]FeatureResponse, 0, len(features))
	for _, f := range features {
		if _, ok := seen[f.FeatureName]; ok {
			continue
		}
		seen[f.FeatureName] = struct{}{}
		out = append(out, f)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].SortOrder < out[j].SortOrder
	})
	return out
}

// ValidateFeatureInputs requires a name on every feature.
func ValidateFeatureInputs(features []FeatureInput) error {
	for _, f := range features {
		if strings.TrimSpace(f.FeatureName) == "" {
			return ErrInvalidFeatureName
		}
	}
	return nil
}

// Included reports the stored is_included value for an input.
func (f FeatureInput) Included() bool {
	return f.IsIncluded == nil || *f.IsIncluded
}

// Order returns the explicit sort order, or def when none was given.
func (f FeatureInput) Order(def int) int {
	if f.SortOrder != nil {
		return *f.SortOrder
	}
	return def
}

// ToFeatureResponse maps a stored plan feature.
func ToFeatureResponse(f Feature) FeatureResponse {
	return FeatureResponse{
		ID:            f.ID.String(),
		FeatureName:   f.FeatureName,
		FeatureValue:  f.FeatureValue,
		IsIncluded:    f.IsIncluded,
		IsHighlighted: f.IsHighlighted,
		SortOrder:     f.SortOrder,
	}
}

// SortFeatures stable-sorts by sort order without dropping duplicates.
func SortFeatures(features []FeatureResponse) []FeatureResponse {
	out := append([]FeatureResponse(nil), features...)
	if out == nil {
		out = []FeatureResponse{}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].SortOrder < out[j].SortOrder
	})
	return out
}
