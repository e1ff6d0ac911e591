package domain

import (
	"sort"

	"github.com/bwmarrin/snowflake"
)

// CoveredLawyer is a lawyer annotated with the tier that applies in the resolved market.
type CoveredLawyer struct {
	Lawyer Lawyer
	Tier   Tier
}

type TierDefinition struct {
	Name        Tier
	DisplayName string
	SortOrder   int
}

// Grouping maps each defined tier to its lawyers. Order lists the keys by sort order.
type Grouping struct {
	Order  []Tier
	Groups map[Tier][]CoveredLawyer
}

// UnionLawyerIDs merges id sets and keeps the first-seen order.
func UnionLawyerIDs(sources ...[]snowflake.ID) []snowflake.ID {
	seen := make(map[snowflake.ID]struct{})
	out := make([]snowflake.ID, 0)
	for _, ids := range sources {
		for _, id := range ids {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	return out
}

// EffectiveTier picks the market override, then the lawyer default, then free.
func EffectiveTier(lawyer Lawyer, overrides map[snowflake.ID]Tier) Tier {
	if tier, ok := overrides[lawyer.ID]; ok && tier.Valid() {
		return tier
	}
	return lawyer.DefaultTier()
}

// MergeFallback appends fallback entries not already present in current.
func MergeFallback(current, fallback []CoveredLawyer) []CoveredLawyer {
	out := make([]CoveredLawyer, 0, len(current)+len(fallback))
	seen := make(map[snowflake.ID]struct{}, len(current)+len(fallback))
	for _, list := range [][]CoveredLawyer{current, fallback} {
		for _, item := range list {
			if _, ok := seen[item.Lawyer.ID]; ok {
				continue
			}
			seen[item.Lawyer.ID] = struct{}{}
			out = append(out, item)
		}
	}
	return out
}

// GroupByTier partitions lawyers by tier. Every definition yields a key, even
// an empty one; lawyers whose tier has no definition are left out.
func GroupByTier(lawyers []CoveredLawyer, definitions []TierDefinition) Grouping {
	defs := make([]TierDefinition, 0, len(definitions))
	seen := make(map[Tier]struct{}, len(definitions))
	for _, def := range definitions {
		if _, ok := seen[def.Name]; ok {
			continue
		}
		seen[def.Name] = struct{}{}
		defs = append(defs, def)
	}
	sort.SliceStable(defs, func(i, j int) bool {
		return defs[i].SortOrder < defs[j].SortOrder
	})

	grouping := Grouping{
		Order:  make([]Tier, 0, len(defs)),
		Groups: make(map[Tier][]CoveredLawyer, len(defs)),
	}
	for _, def := range defs {
		grouping.Order = append(grouping.Order, def.Name)
		grouping.Groups[def.Name] = []CoveredLawyer{}
	}
	for _, lawyer := range lawyers {
		if _, ok := grouping.Groups[lawyer.Tier]; !ok {
			continue
		}
		grouping.Groups[lawyer.Tier] = append(grouping.Groups[lawyer.Tier], lawyer)
	}
	return grouping
}
