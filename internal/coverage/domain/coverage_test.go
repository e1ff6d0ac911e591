package domain

import (
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/assert"
)

func strPtr(v string) *string { return &v }

func TestParseTier(t *testing.T) {
	assert.Equal(t, TierPremium, ParseTier(" Premium "))
	assert.Equal(t, TierBasic, ParseTier("basic"))
	assert.Equal(t, TierFree, ParseTier(""))
	assert.Equal(t, TierFree, ParseTier("gold"))
	assert.True(t, TierPremium.Rank() > TierEnhanced.Rank())
	assert.True(t, TierEnhanced.Rank() > TierBasic.Rank())
	assert.True(t, TierBasic.Rank() > TierFree.Rank())
}

func TestUnionLawyerIDsKeepsFirstSeenOrder(t *testing.T) {
	office := []snowflake.ID{3, 1}
	firm := []snowflake.ID{1, 4}
	area := []snowflake.ID{5, 3, 4}

	assert.Equal(t, []snowflake.ID{3, 1, 4, 5}, UnionLawyerIDs(office, firm, area))
	assert.Empty(t, UnionLawyerIDs(nil, nil, nil))
}

func TestEffectiveTier(t *testing.T) {
	lawyer := Lawyer{ID: 7, SubscriptionType: strPtr("basic")}

	assert.Equal(t, TierPremium, EffectiveTier(lawyer, map[snowflake.ID]Tier{7: TierPremium}))
	assert.Equal(t, TierBasic, EffectiveTier(lawyer, map[snowflake.ID]Tier{8: TierPremium}))
	assert.Equal(t, TierBasic, EffectiveTier(lawyer, nil))
	assert.Equal(t, TierFree, EffectiveTier(Lawyer{ID: 9}, nil))
}

func TestMergeFallbackDedupsAndKeepsCurrentFirst(t *testing.T) {
	current := []CoveredLawyer{{Lawyer: Lawyer{ID: 2}, Tier: TierPremium}}
	fallback := []CoveredLawyer{
		{Lawyer: Lawyer{ID: 1}, Tier: TierFree},
		{Lawyer: Lawyer{ID: 2}, Tier: TierFree},
	}

	merged := MergeFallback(current, fallback)
	if assert.Len(t, merged, 2) {
		assert.Equal(t, snowflake.ID(2), merged[0].Lawyer.ID)
		assert.Equal(t, TierPremium, merged[0].Tier)
		assert.Equal(t, snowflake.ID(1), merged[1].Lawyer.ID)
	}

	assert.Equal(t, fallback, MergeFallback(nil, fallback))
}

func TestGroupByTier(t *testing.T) {
	lawyers := []CoveredLawyer{
		{Lawyer: Lawyer{ID: 1}, Tier: TierFree},
		{Lawyer: Lawyer{ID: 2}, Tier: TierPremium},
		{Lawyer: Lawyer{ID: 3}, Tier: TierFree},
		{Lawyer: Lawyer{ID: 4}, Tier: TierBasic},
	}
	defs := []TierDefinition{
		{Name: TierFree, SortOrder: 3},
		{Name: TierPremium, SortOrder: 1},
		{Name: TierEnhanced, SortOrder: 2},
	}

	grouping := GroupByTier(lawyers, defs)

	assert.Equal(t, []Tier{TierPremium, TierEnhanced, TierFree}, grouping.Order)
	assert.Len(t, grouping.Groups[TierPremium], 1)
	assert.Empty(t, grouping.Groups[TierEnhanced])
	assert.NotNil(t, grouping.Groups[TierEnhanced])
	if assert.Len(t, grouping.Groups[TierFree], 2) {
		assert.Equal(t, snowflake.ID(1), grouping.Groups[TierFree][0].Lawyer.ID)
		assert.Equal(t, snowflake.ID(3), grouping.Groups[TierFree][1].Lawyer.ID)
	}
	_, hasBasic := grouping.Groups[TierBasic]
	assert.False(t, hasBasic, "basic has no definition")
}

func TestGroupByTierIgnoresDuplicateDefinitions(t *testing.T) {
	grouping := GroupByTier(nil, []TierDefinition{
		{Name: TierFree, SortOrder: 1},
		{Name: TierFree, SortOrder: 9},
	})
	assert.Equal(t, []Tier{TierFree}, grouping.Order)
}
