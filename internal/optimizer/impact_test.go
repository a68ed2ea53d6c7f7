package optimizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pavemetrics/asset-cli/internal/model"
)

func asset(id int64, condition int, miles float64) model.RoadAsset {
	return model.RoadAsset{ID: id, Condition: condition, LengthMiles: miles}
}

// fourTypes returns one maintenance type per category with the conventional
// cost/invasiveness ordering.
func fourTypes() []model.MaintenanceType {
	return []model.MaintenanceType{
		{ID: 1, Category: model.CategoryPreventive, Name: "Crack Seal", CostPerMile: 5000, ConditionImprovement: 5, MinCondition: 70, MaxCondition: 100},
		{ID: 2, Category: model.CategoryMinorRehab, Name: "Thin Overlay", CostPerMile: 40000, ConditionImprovement: 15, MinCondition: 50, MaxCondition: 69},
		{ID: 3, Category: model.CategoryMajorRehab, Name: "Mill and Fill", CostPerMile: 150000, ConditionImprovement: 30, MinCondition: 30, MaxCondition: 49},
		{ID: 4, Category: model.CategoryReconstruction, Name: "Full Depth Reclamation", CostPerMile: 500000, ConditionImprovement: 60, MinCondition: 0, MaxCondition: 29},
	}
}

func TestCalculateBudgetImpactEmptyFleet(t *testing.T) {
	t.Parallel()

	result := CalculateBudgetImpact(nil, fourTypes(), BudgetSplit{PreventiveMaintenance: 1e6}, MethodImpact)

	assert.Equal(t, 0, result.ImprovedAssets)
	assert.Equal(t, 0, result.UnaddressedAssets)
	assert.Equal(t, 0.0, result.ProjectedPCI)
}

func TestCalculateBudgetImpactSingleTypeGolden(t *testing.T) {
	t.Parallel()

	// 3 assets [40, 70, 90], one type applicable to [30,60] at $10k/mile,
	// +20 improvement, 1 mile each.
	assets := []model.RoadAsset{
		asset(1, 40, 1),
		asset(2, 70, 1),
		asset(3, 90, 1),
	}
	types := []model.MaintenanceType{
		{ID: 1, Category: model.CategoryPreventive, CostPerMile: 10000, ConditionImprovement: 20, MinCondition: 30, MaxCondition: 60},
	}

	t.Run("sufficient budget treats the eligible asset", func(t *testing.T) {
		t.Parallel()
		result := CalculateBudgetImpact(assets, types, BudgetSplit{PreventiveMaintenance: 10000}, MethodImpact)

		assert.Equal(t, 1, result.ImprovedAssets)
		assert.Equal(t, 2, result.UnaddressedAssets)
		assert.Equal(t, 73.0, result.ProjectedPCI) // (60+70+90)/3 rounded
	})

	t.Run("insufficient budget treats nothing", func(t *testing.T) {
		t.Parallel()
		result := CalculateBudgetImpact(assets, types, BudgetSplit{PreventiveMaintenance: 5000}, MethodImpact)

		assert.Equal(t, 0, result.ImprovedAssets)
		assert.Equal(t, 3, result.UnaddressedAssets)
		assert.Equal(t, 67.0, result.ProjectedPCI) // (40+70+90)/3 rounded
	})
}

func TestCalculateBudgetImpactIneligibleAlwaysUnaddressed(t *testing.T) {
	t.Parallel()

	// Condition 95 sits outside [30,60] regardless of budget size.
	assets := []model.RoadAsset{asset(1, 95, 1)}
	types := []model.MaintenanceType{
		{ID: 1, Category: model.CategoryPreventive, CostPerMile: 100, ConditionImprovement: 10, MinCondition: 30, MaxCondition: 60},
	}

	result := CalculateBudgetImpact(assets, types, BudgetSplit{PreventiveMaintenance: 1e9}, MethodCost)

	assert.Equal(t, 0, result.ImprovedAssets)
	assert.Equal(t, 1, result.UnaddressedAssets)
}

func TestCalculateBudgetImpactCountInvariant(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		assets []model.RoadAsset
		split  BudgetSplit
		method Method
	}{
		{
			name:   "mixed fleet partial budget",
			assets: []model.RoadAsset{asset(1, 80, 2), asset(2, 55, 1), asset(3, 35, 3), asset(4, 10, 0.5), asset(5, 99, 1)},
			split:  BudgetSplit{PreventiveMaintenance: 10000, MinorRehabilitation: 40000, MajorRehabilitation: 100000, Reconstruction: 0},
			method: MethodBenefit,
		},
		{
			name:   "zero budget",
			assets: []model.RoadAsset{asset(1, 80, 2), asset(2, 55, 1)},
			split:  BudgetSplit{},
			method: MethodCost,
		},
		{
			name:   "huge budget",
			assets: []model.RoadAsset{asset(1, 80, 2), asset(2, 55, 1), asset(3, 35, 3), asset(4, 10, 0.5)},
			split:  BudgetSplit{PreventiveMaintenance: 1e9, MinorRehabilitation: 1e9, MajorRehabilitation: 1e9, Reconstruction: 1e9},
			method: MethodImpact,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			result := CalculateBudgetImpact(tt.assets, fourTypes(), tt.split, tt.method)
			assert.Equal(t, len(tt.assets), result.ImprovedAssets+result.UnaddressedAssets)
		})
	}
}

func TestCalculateBudgetImpactMonotonicity(t *testing.T) {
	t.Parallel()

	assets := []model.RoadAsset{
		asset(1, 75, 1), asset(2, 82, 2), asset(3, 55, 1.5),
		asset(4, 42, 1), asset(5, 15, 2), asset(6, 68, 0.5),
	}
	types := fourTypes()

	base := BudgetSplit{PreventiveMaintenance: 5000, MinorRehabilitation: 30000, MajorRehabilitation: 0, Reconstruction: 0}
	baseResult := CalculateBudgetImpact(assets, types, base, MethodBenefit)

	// Growing any single sub-budget never shrinks the outcome.
	for _, grown := range []BudgetSplit{
		{PreventiveMaintenance: 50000, MinorRehabilitation: 30000},
		{PreventiveMaintenance: 5000, MinorRehabilitation: 300000},
		{PreventiveMaintenance: 5000, MinorRehabilitation: 30000, MajorRehabilitation: 200000},
		{PreventiveMaintenance: 5000, MinorRehabilitation: 30000, Reconstruction: 1.5e6},
	} {
		result := CalculateBudgetImpact(assets, types, grown, MethodBenefit)
		assert.GreaterOrEqual(t, result.ImprovedAssets, baseResult.ImprovedAssets)
		assert.GreaterOrEqual(t, result.ProjectedPCI, baseResult.ProjectedPCI)
	}
}

func TestCalculateBudgetImpactDeterminism(t *testing.T) {
	t.Parallel()

	assets := []model.RoadAsset{
		asset(3, 55, 1), asset(1, 55, 1), asset(2, 55, 1), asset(4, 60, 1),
	}
	split := BudgetSplit{MinorRehabilitation: 85000}

	first := CalculateBudgetImpact(assets, fourTypes(), split, MethodCost)
	second := CalculateBudgetImpact(assets, fourTypes(), split, MethodCost)

	assert.Equal(t, first, second)
}

func TestCalculateBudgetImpactDoesNotMutateInputs(t *testing.T) {
	t.Parallel()

	assets := []model.RoadAsset{asset(1, 40, 1), asset(2, 55, 1)}
	types := fourTypes()
	original := make([]model.RoadAsset, len(assets))
	copy(original, assets)

	CalculateBudgetImpact(assets, types, BudgetSplit{
		PreventiveMaintenance: 1e6, MinorRehabilitation: 1e6,
		MajorRehabilitation: 1e6, Reconstruction: 1e6,
	}, MethodImpact)

	assert.Equal(t, original, assets)
}

func TestCalculateBudgetImpactOneTreatmentPerAsset(t *testing.T) {
	t.Parallel()

	// Asset at condition 45 is eligible for both overlapping types; only the
	// earlier-processed category may claim it.
	assets := []model.RoadAsset{asset(1, 45, 1)}
	types := []model.MaintenanceType{
		{ID: 1, Category: model.CategoryPreventive, CostPerMile: 1000, ConditionImprovement: 10, MinCondition: 40, MaxCondition: 60},
		{ID: 2, Category: model.CategoryMinorRehab, CostPerMile: 1000, ConditionImprovement: 10, MinCondition: 40, MaxCondition: 60},
	}

	result := CalculateBudgetImpact(assets, types, BudgetSplit{PreventiveMaintenance: 1e6, MinorRehabilitation: 1e6}, MethodImpact)

	assert.Equal(t, 1, result.ImprovedAssets)
	assert.Equal(t, 55.0, result.ProjectedPCI) // 45+10, not 45+20
}

func TestCalculateBudgetImpactSkippedAssetStaysAvailable(t *testing.T) {
	t.Parallel()

	// The preventive budget cannot afford the 10-mile asset; the minor rehab
	// category, whose range also covers it, picks it up instead.
	assets := []model.RoadAsset{asset(1, 55, 10)}
	types := []model.MaintenanceType{
		{ID: 1, Category: model.CategoryPreventive, CostPerMile: 5000, ConditionImprovement: 5, MinCondition: 50, MaxCondition: 60},
		{ID: 2, Category: model.CategoryMinorRehab, CostPerMile: 2000, ConditionImprovement: 15, MinCondition: 50, MaxCondition: 60},
	}
	split := BudgetSplit{PreventiveMaintenance: 10000, MinorRehabilitation: 20000}

	result := CalculateBudgetImpact(assets, types, split, MethodImpact)

	assert.Equal(t, 1, result.ImprovedAssets)
	assert.Equal(t, 70.0, result.ProjectedPCI)
}

func TestCalculateBudgetImpactConditionCappedAt100(t *testing.T) {
	t.Parallel()

	assets := []model.RoadAsset{asset(1, 95, 1)}
	types := []model.MaintenanceType{
		{ID: 1, Category: model.CategoryPreventive, CostPerMile: 1000, ConditionImprovement: 20, MinCondition: 90, MaxCondition: 100},
	}

	result := CalculateBudgetImpact(assets, types, BudgetSplit{PreventiveMaintenance: 5000}, MethodImpact)

	assert.Equal(t, 100.0, result.ProjectedPCI)
}

func TestCalculateBudgetImpactMissingCategorySkipped(t *testing.T) {
	t.Parallel()

	// Only a reconstruction type exists; the other three sub-budgets are
	// unspendable but do not error.
	assets := []model.RoadAsset{asset(1, 10, 1), asset(2, 80, 1)}
	types := []model.MaintenanceType{
		{ID: 4, Category: model.CategoryReconstruction, CostPerMile: 100000, ConditionImprovement: 60, MinCondition: 0, MaxCondition: 29},
	}
	split := BudgetSplit{
		PreventiveMaintenance: 1e6, MinorRehabilitation: 1e6,
		MajorRehabilitation: 1e6, Reconstruction: 100000,
	}

	result := CalculateBudgetImpact(assets, types, split, MethodBenefit)

	assert.Equal(t, 1, result.ImprovedAssets)
	assert.Equal(t, 75.0, result.ProjectedPCI) // ((10+60)+80)/2
}

func TestCalculateBudgetImpactCostOrdering(t *testing.T) {
	t.Parallel()

	// Budget covers only the cheapest two treatments; cost ordering must pick
	// the short segments regardless of listed order.
	assets := []model.RoadAsset{
		asset(1, 55, 5), // $50k
		asset(2, 55, 1), // $10k
		asset(3, 55, 2), // $20k
	}
	types := []model.MaintenanceType{
		{ID: 1, Category: model.CategoryPreventive, CostPerMile: 10000, ConditionImprovement: 10, MinCondition: 50, MaxCondition: 60},
	}

	result := CalculateBudgetImpact(assets, types, BudgetSplit{PreventiveMaintenance: 30000}, MethodCost)

	assert.Equal(t, 2, result.ImprovedAssets)
	// Assets 2 and 3 improve to 65; asset 1 stays at 55.
	assert.Equal(t, 62.0, result.ProjectedPCI) // (55+65+65)/3 = 61.67 -> 62
}

func TestCalculateBudgetImpactBenefitOrdering(t *testing.T) {
	t.Parallel()

	// Benefit ordering is improvement per dollar: with constant improvement
	// within a category it favors the cheapest asset, here id 2.
	assets := []model.RoadAsset{
		asset(1, 55, 4),
		asset(2, 55, 1),
	}
	types := []model.MaintenanceType{
		{ID: 1, Category: model.CategoryPreventive, CostPerMile: 10000, ConditionImprovement: 10, MinCondition: 50, MaxCondition: 60},
	}

	result := CalculateBudgetImpact(assets, types, BudgetSplit{PreventiveMaintenance: 10000}, MethodBenefit)

	require.Equal(t, 1, result.ImprovedAssets)
	assert.Equal(t, 60.0, result.ProjectedPCI) // (55+65)/2
}

func TestCalculateBudgetImpactImpactTieBreakByID(t *testing.T) {
	t.Parallel()

	// Identical assets: the ascending-ID tie-break means id 1 is treated
	// when the budget covers only one of them.
	assets := []model.RoadAsset{asset(2, 55, 1), asset(1, 55, 1)}
	types := []model.MaintenanceType{
		{ID: 1, Category: model.CategoryPreventive, CostPerMile: 10000, ConditionImprovement: 10, MinCondition: 50, MaxCondition: 60},
	}

	first := CalculateBudgetImpact(assets, types, BudgetSplit{PreventiveMaintenance: 10000}, MethodImpact)
	second := CalculateBudgetImpact([]model.RoadAsset{assets[1], assets[0]}, types, BudgetSplit{PreventiveMaintenance: 10000}, MethodImpact)

	// Input order must not change who wins.
	assert.Equal(t, first, second)
	assert.Equal(t, 1, first.ImprovedAssets)
}

func TestParseMethod(t *testing.T) {
	t.Parallel()

	for _, valid := range []string{"impact", "cost", "benefit"} {
		m, ok := ParseMethod(valid)
		assert.True(t, ok)
		assert.Equal(t, Method(valid), m)
	}

	_, ok := ParseMethod("greedy")
	assert.False(t, ok)
}

func TestSplitFromAllocation(t *testing.T) {
	t.Parallel()

	alloc := model.BudgetAllocation{
		PreventiveMaintenance: 1,
		MinorRehabilitation:   2,
		MajorRehabilitation:   3,
		Reconstruction:        4,
	}

	split := SplitFromAllocation(alloc)

	assert.Equal(t, BudgetSplit{PreventiveMaintenance: 1, MinorRehabilitation: 2, MajorRehabilitation: 3, Reconstruction: 4}, split)
	assert.Equal(t, 1.0, split.ForCategory(model.CategoryPreventive))
	assert.Equal(t, 4.0, split.ForCategory(model.CategoryReconstruction))
}
