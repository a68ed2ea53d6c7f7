// Package optimizer decides which road assets receive which maintenance
// treatment under a fixed budget split, and projects the resulting
// fleet-average condition. All functions are pure: inputs are never mutated
// and identical inputs produce identical results.
package optimizer

import (
	"math"
	"sort"

	"github.com/pavemetrics/asset-cli/internal/model"
)

// Method selects the ranking order used to spend each category's sub-budget.
type Method string

const (
	// MethodImpact spends on the assets that gain the most condition points first.
	MethodImpact Method = "impact"
	// MethodCost spends on the cheapest treatments first, maximizing assets touched.
	MethodCost Method = "cost"
	// MethodBenefit spends on the best improvement-per-dollar first.
	MethodBenefit Method = "benefit"
)

// ParseMethod maps a method string to its Method tag.
func ParseMethod(s string) (Method, bool) {
	switch Method(s) {
	case MethodImpact, MethodCost, MethodBenefit:
		return Method(s), true
	}
	return "", false
}

// BudgetSplit holds the sub-budget for each of the four maintenance
// categories. Amounts are currency and must be non-negative; the sum need
// not equal any stated total.
type BudgetSplit struct {
	PreventiveMaintenance float64 `json:"preventive_maintenance"`
	MinorRehabilitation   float64 `json:"minor_rehabilitation"`
	MajorRehabilitation   float64 `json:"major_rehabilitation"`
	Reconstruction        float64 `json:"reconstruction"`
}

// ForCategory returns the sub-budget assigned to the given category.
func (s BudgetSplit) ForCategory(c model.Category) float64 {
	switch c {
	case model.CategoryPreventive:
		return s.PreventiveMaintenance
	case model.CategoryMinorRehab:
		return s.MinorRehabilitation
	case model.CategoryMajorRehab:
		return s.MajorRehabilitation
	case model.CategoryReconstruction:
		return s.Reconstruction
	default:
		return 0
	}
}

// SplitFromAllocation converts a stored budget allocation to a BudgetSplit.
func SplitFromAllocation(b model.BudgetAllocation) BudgetSplit {
	return BudgetSplit{
		PreventiveMaintenance: b.PreventiveMaintenance,
		MinorRehabilitation:   b.MinorRehabilitation,
		MajorRehabilitation:   b.MajorRehabilitation,
		Reconstruction:        b.Reconstruction,
	}
}

// ImpactResult summarizes the projected outcome of spending a budget split
// across the asset fleet.
type ImpactResult struct {
	// ProjectedPCI is the fleet-average condition after applying all
	// affordable treatments, rounded to the nearest integer for parity with
	// the 0-100 PCI scale. Zero when the fleet is empty.
	ProjectedPCI float64 `json:"projected_pci"`
	// ImprovedAssets counts assets that received a treatment.
	ImprovedAssets int `json:"improved_assets"`
	// UnaddressedAssets counts assets that received none.
	UnaddressedAssets int `json:"unaddressed_assets"`
}

// candidate pairs an asset index with its per-treatment cost for ranking.
type candidate struct {
	idx  int
	cost float64
}

// CalculateBudgetImpact assigns treatments greedily, one category at a time
// in fixed order (preventive -> minor rehab -> major rehab -> reconstruction),
// and projects the fleet-average condition.
//
// Within a category, eligible untreated assets are ranked per method and the
// sub-budget is consumed greedily: an asset too expensive for the remaining
// sub-budget is skipped and stays available to later categories. Each asset
// receives at most one treatment per call. Condition gains are capped at 100.
//
// The function is total over well-typed input: empty fleets, zero budgets,
// and missing category types all produce a result, never an error. Negative
// costs or lengths are not validated here; callers validate upstream.
func CalculateBudgetImpact(assets []model.RoadAsset, types []model.MaintenanceType, split BudgetSplit, method Method) ImpactResult {
	if len(assets) == 0 {
		return ImpactResult{}
	}

	// Working copies; caller-supplied assets are never written to.
	conditions := make([]int, len(assets))
	for i, a := range assets {
		conditions[i] = a.Condition
	}
	treated := make([]bool, len(assets))

	for _, cat := range model.Categories() {
		mt, ok := typeForCategory(types, cat)
		if !ok {
			// No treatment defined for this category; its sub-budget is
			// unspendable and the category is skipped.
			continue
		}

		remaining := split.ForCategory(cat)
		if remaining <= 0 {
			continue
		}

		// Eligible, untreated candidates with their treatment cost.
		var cands []candidate
		for i := range assets {
			if treated[i] || !mt.AppliesTo(conditions[i]) {
				continue
			}
			cands = append(cands, candidate{idx: i, cost: mt.CostPerMile * assets[i].LengthMiles})
		}

		orderCandidates(cands, assets, mt, method)

		for _, c := range cands {
			if remaining < c.cost {
				continue
			}
			remaining -= c.cost
			treated[c.idx] = true
			conditions[c.idx] += mt.ConditionImprovement
			if conditions[c.idx] > 100 {
				conditions[c.idx] = 100
			}
		}
	}

	improved := 0
	sum := 0
	for i := range assets {
		if treated[i] {
			improved++
		}
		sum += conditions[i]
	}

	return ImpactResult{
		ProjectedPCI:      math.Round(float64(sum) / float64(len(assets))),
		ImprovedAssets:    improved,
		UnaddressedAssets: len(assets) - improved,
	}
}

// typeForCategory returns the maintenance type for a category. When a tenant
// defines several types in the same category, the lowest ID wins so the
// choice is deterministic.
func typeForCategory(types []model.MaintenanceType, cat model.Category) (model.MaintenanceType, bool) {
	var best model.MaintenanceType
	found := false
	for _, mt := range types {
		if mt.Category != cat {
			continue
		}
		if !found || mt.ID < best.ID {
			best = mt
			found = true
		}
	}
	return best, found
}

// orderCandidates sorts candidates per the optimization method. All methods
// break ties by ascending asset ID so results are stable across calls.
func orderCandidates(cands []candidate, assets []model.RoadAsset, mt model.MaintenanceType, method Method) {
	less := func(i, j int) bool {
		return assets[cands[i].idx].ID < assets[cands[j].idx].ID
	}

	switch method {
	case MethodCost:
		less = func(i, j int) bool {
			if cands[i].cost != cands[j].cost {
				return cands[i].cost < cands[j].cost
			}
			return assets[cands[i].idx].ID < assets[cands[j].idx].ID
		}
	case MethodBenefit:
		less = func(i, j int) bool {
			bi := benefitRatio(mt.ConditionImprovement, cands[i].cost)
			bj := benefitRatio(mt.ConditionImprovement, cands[j].cost)
			if bi != bj {
				return bi > bj
			}
			return assets[cands[i].idx].ID < assets[cands[j].idx].ID
		}
	case MethodImpact:
		// ConditionImprovement is constant within a category, so impact
		// ordering reduces to the ascending-ID tie-break.
	}

	sort.Slice(cands, less)
}

// benefitRatio is condition improvement per dollar. Zero-cost treatments
// rank first.
func benefitRatio(improvement int, cost float64) float64 {
	if cost == 0 {
		return math.Inf(1)
	}
	return float64(improvement) / cost
}
