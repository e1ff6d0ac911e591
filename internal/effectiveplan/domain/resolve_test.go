package domain

import (
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/google/go-cmp/cmp"
	plandomain "github.com/smallbiznis/lawdirectory/internal/plan/domain"
	plangroupdomain "github.com/smallbiznis/lawdirectory/internal/plangroup/domain"
)

func strPtr(v string) *string { return &v }
func i64Ptr(v int64) *int64    { return &v }

func testPlans() []plandomain.PlanWithFeatures {
	return []plandomain.PlanWithFeatures{
		{
			Plan: plandomain.Plan{ID: 20, Name: "premium", PriceCents: 99000, PriceDisplay: "$990", Description: strPtr("Top"), SortOrder: 2},
			Features: []plandomain.Feature{
				{ID: 1, FeatureName: "Leads", SortOrder: 2},
				{ID: 2, FeatureName: "Profile", SortOrder: 1},
				{ID: 3, FeatureName: "Leads", SortOrder: 0},
			},
		},
		{
			Plan:     plandomain.Plan{ID: 10, Name: "basic", PriceCents: 0, PriceDisplay: "$0", SortOrder: 1},
			Features: []plandomain.Feature{{ID: 4, FeatureName: "Profile", SortOrder: 1}},
		},
	}
}

func names(features []plandomain.FeatureResponse) []string {
	out := make([]string, 0, len(features))
	for _, f := range features {
		out = append(out, f.FeatureName+"#"+f.ID)
	}
	return out
}

func TestResolveGlobalOnly(t *testing.T) {
	got := Resolve(testPlans(), nil, nil)

	if diff := cmp.Diff([]string{"basic", "premium"}, []string{got[0].Name, got[1].Name}); diff != "" {
		t.Fatalf("plan order (-want +got):\n%s", diff)
	}
	for _, p := range got {
		if p.PriceOverridden || p.FeaturesOverridden || p.HasMarketOverride {
			t.Fatalf("plan %s flagged as overridden", p.Name)
		}
		if p.OverrideType != OverrideTypeGlobal || p.GroupID != nil || p.OverrideID != nil {
			t.Fatalf("plan %s: unexpected override attribution %+v", p.Name, p)
		}
	}
	if diff := cmp.Diff([]string{"Profile#2", "Leads#1"}, names(got[1].Features)); diff != "" {
		t.Fatalf("premium features (-want +got):\n%s", diff)
	}
}

func TestResolveGroupOverrideFieldByField(t *testing.T) {
	group := &GroupRef{ID: 7, Name: "Southeast"}
	overrides := map[snowflake.ID]GroupOverride{
		20: {Override: plangroupdomain.Override{ID: 99, GroupID: 7, PlanID: 20, PriceDisplay: strPtr("$1,490"), PriceCents: i64Ptr(149000)}},
	}

	got := Resolve(testPlans(), group, overrides)
	premium := got[1]

	want := EffectivePlan{
		ID:                 "20",
		Name:               "premium",
		PriceCents:         149000,
		PriceDisplay:       "$1,490",
		Description:        strPtr("Top"),
		SortOrder:          2,
		HasMarketOverride:  true,
		OverrideType:       OverrideTypeGroup,
		PriceOverridden:    true,
		FeaturesOverridden: false,
		GroupID:            strPtr("7"),
		GroupName:          strPtr("Southeast"),
		OverrideID:         strPtr("99"),
	}
	if diff := cmp.Diff(want, premium, cmp.FilterPath(func(p cmp.Path) bool {
		return p.String() == "Features"
	}, cmp.Ignore())); diff != "" {
		t.Fatalf("premium (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"Profile#2", "Leads#1"}, names(premium.Features)); diff != "" {
		t.Fatalf("global features expected (-want +got):\n%s", diff)
	}

	if got[0].OverrideType != OverrideTypeGlobal {
		t.Fatalf("plan without override row should stay global, got %s", got[0].OverrideType)
	}
}

func TestResolveIgnoresStaleOverrideFeatures(t *testing.T) {
	group := &GroupRef{ID: 7, Name: "Southeast"}
	overrides := map[snowflake.ID]GroupOverride{
		20: {
			Override: plangroupdomain.Override{ID: 99, PlanID: 20, HasCustomFeatures: false},
			Features: []plangroupdomain.OverrideFeature{{ID: 50, FeatureName: "Stale"}},
		},
	}

	premium := Resolve(testPlans(), group, overrides)[1]
	if premium.FeaturesOverridden {
		t.Fatal("features_overridden should be false")
	}
	if diff := cmp.Diff([]string{"Profile#2", "Leads#1"}, names(premium.Features)); diff != "" {
		t.Fatalf("features (-want +got):\n%s", diff)
	}
}

func TestResolveCustomFeaturesReplaceGlobal(t *testing.T) {
	group := &GroupRef{ID: 7, Name: "Southeast"}
	overrides := map[snowflake.ID]GroupOverride{
		20: {
			Override: plangroupdomain.Override{ID: 99, PlanID: 20, HasCustomFeatures: true},
			Features: []plangroupdomain.OverrideFeature{
				{ID: 51, FeatureName: "Concierge", SortOrder: 3},
				{ID: 52, FeatureName: "Badge", SortOrder: 1},
				{ID: 53, FeatureName: "Concierge", SortOrder: 0},
			},
		},
		10: {Override: plangroupdomain.Override{ID: 98, PlanID: 10, HasCustomFeatures: true}},
	}

	got := Resolve(testPlans(), group, overrides)
	if diff := cmp.Diff([]string{"Badge#52", "Concierge#51"}, names(got[1].Features)); diff != "" {
		t.Fatalf("premium features (-want +got):\n%s", diff)
	}
	if !got[1].FeaturesOverridden || got[1].PriceOverridden {
		t.Fatalf("unexpected flags %+v", got[1])
	}
	if len(got[0].Features) != 0 {
		t.Fatalf("empty custom list should clear features, got %v", names(got[0].Features))
	}
	if got[1].PriceCents != 99000 || got[1].PriceDisplay != "$990" {
		t.Fatalf("nil override fields should inherit global price, got %d %s", got[1].PriceCents, got[1].PriceDisplay)
	}
}

func TestResolveWithoutGroupIgnoresOverrides(t *testing.T) {
	overrides := map[snowflake.ID]GroupOverride{
		20: {Override: plangroupdomain.Override{ID: 99, PlanID: 20, PriceCents: i64Ptr(1)}},
	}
	got := Resolve(testPlans(), nil, overrides)
	if got[1].PriceCents != 99000 {
		t.Fatalf("override applied without group membership")
	}
}
