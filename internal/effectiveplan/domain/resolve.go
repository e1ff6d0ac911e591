package domain

import (
	"sort"

	"github.com/bwmarrin/snowflake"
	plandomain "github.com/smallbiznis/lawdirectory/internal/plan/domain"
	plangroupdomain "github.com/smallbiznis/lawdirectory/internal/plangroup/domain"
)

const (
	OverrideTypeGlobal = "global"
	OverrideTypeGroup  = "group"
)

type GroupRef struct {
	ID   snowflake.ID
	Name string
}

// GroupOverride is an active override row together with its feature rows.
type GroupOverride struct {
	Override plangroupdomain.Override
	Features []plangroupdomain.OverrideFeature
}

type EffectivePlan struct {
	ID                 string                       `json:"id"`
	Name               string                       `json:"name"`
	DisplayName        string                       `json:"display_name"`
	PriceCents         int64                        `json:"price_cents"`
	PriceDisplay       string                       `json:"price_display"`
	BillingPeriod      string                       `json:"billing_period"`
	Description        *string                      `json:"description"`
	IsRecommended      bool                         `json:"is_recommended"`
	SortOrder          int                          `json:"sort_order"`
	Features           []plandomain.FeatureResponse `json:"features"`
	HasMarketOverride  bool                         `json:"has_dma_override"`
	OverrideType       string                       `json:"override_type"`
	PriceOverridden    bool                         `json:"price_overridden"`
	FeaturesOverridden bool                         `json:"features_overridden"`
	GroupID            *string                      `json:"group_id,omitempty"`
	GroupName          *string                      `json:"group_name,omitempty"`
	OverrideID         *string                      `json:"override_id,omitempty"`
}

// Resolve applies group overrides over the global plans. overrides is keyed
// by plan id and is ignored when group is nil. Plans come out in sort order.
func Resolve(plans []plandomain.PlanWithFeatures, group *GroupRef, overrides map[snowflake.ID]GroupOverride) []EffectivePlan {
	ordered := append([]plandomain.PlanWithFeatures(nil), plans...)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Plan.SortOrder < ordered[j].Plan.SortOrder
	})

	out := make([]EffectivePlan, 0, len(ordered))
	for _, item := range ordered {
		plan := globalPlan(item)

		override, ok := overrides[item.Plan.ID]
		if group == nil || !ok {
			out = append(out, plan)
			continue
		}

		o := override.Override
		if o.PriceCents != nil {
			plan.PriceCents = *o.PriceCents
		}
		if o.PriceDisplay != nil {
			plan.PriceDisplay = *o.PriceDisplay
		}
		if o.Description != nil {
			plan.Description = o.Description
		}
		if o.HasCustomFeatures {
			plan.Features = overrideFeatures(override.Features)
		}

		groupID := group.ID.String()
		groupName := group.Name
		overrideID := o.ID.String()
		plan.HasMarketOverride = true
		plan.OverrideType = OverrideTypeGroup
		plan.PriceOverridden = o.PriceCents != nil
		plan.FeaturesOverridden = o.HasCustomFeatures
		plan.GroupID = &groupID
		plan.GroupName = &groupName
		plan.OverrideID = &overrideID
		out = append(out, plan)
	}
	return out
}

func globalPlan(item plandomain.PlanWithFeatures) EffectivePlan {
	p := item.Plan
	features := make([]plandomain.FeatureResponse, 0, len(item.Features))
	for _, f := range item.Features {
		features = append(features, plandomain.ToFeatureResponse(f))
	}
	return EffectivePlan{
		ID:            p.ID.String(),
		Name:          p.Name,
		DisplayName:   p.DisplayName,
		PriceCents:    p.PriceCents,
		PriceDisplay:  p.PriceDisplay,
		BillingPeriod: p.BillingPeriod,
		Description:   p.Description,
		IsRecommended: p.IsRecommended,
		SortOrder:     p.SortOrder,
		Features:      plandomain.NormalizeFeatures(features),
		OverrideType:  OverrideTypeGlobal,
	}
}

func overrideFeatures(rows []plangroupdomain.OverrideFeature) []plandomain.FeatureResponse {
	features := make([]plandomain.FeatureResponse, 0, len(rows))
	for _, f := range rows {
		features = append(features, plandomain.FeatureResponse{
			ID:            f.ID.String(),
			FeatureName:   f.FeatureName,
			FeatureValue:  f.FeatureValue,
			IsIncluded:    f.IsIncluded,
			IsHighlighted: f.IsHighlighted,
			SortOrder:     f.SortOrder,
		})
	}
	return plandomain.NormalizeFeatures(features)
}
