package optimizer

import "github.com/pavemetrics/asset-cli/internal/model"

// Scenario is a named budget split with its projected outcome, used for
// side-by-side comparison in the UI and reports.
type Scenario struct {
	Name   string       `json:"name"`
	Method Method       `json:"method"`
	Split  BudgetSplit  `json:"split"`
	Result ImpactResult `json:"result"`
}

// scenarioSpec fixes a scenario's name, method, and percentage weights.
// Weights are fractions of the total budget in category order and are pinned
// by golden tests; changing them changes stored report output.
type scenarioSpec struct {
	name    string
	method  Method
	weights [model.NumCategories]float64
}

var scenarioSpecs = []scenarioSpec{
	{"Condition-Driven", MethodImpact, [model.NumCategories]float64{0.10, 0.20, 0.30, 0.40}},
	{"Cost-Efficient", MethodCost, [model.NumCategories]float64{0.40, 0.30, 0.20, 0.10}},
	{"Balanced", MethodBenefit, [model.NumCategories]float64{0.25, 0.25, 0.25, 0.25}},
	{"Preventive-First", MethodBenefit, [model.NumCategories]float64{0.50, 0.25, 0.15, 0.10}},
}

// GenerateBudgetScenarios builds the fixed, ordered scenario list for a total
// budget. Each scenario's outcome is computed via CalculateBudgetImpact, so
// the two components never disagree. Output order is significant: the UI
// selects scenarios by index.
func GenerateBudgetScenarios(totalBudget float64, assets []model.RoadAsset, types []model.MaintenanceType) []Scenario {
	scenarios := make([]Scenario, 0, len(scenarioSpecs))
	for _, spec := range scenarioSpecs {
		split := BudgetSplit{
			PreventiveMaintenance: totalBudget * spec.weights[model.CategoryPreventive],
			MinorRehabilitation:   totalBudget * spec.weights[model.CategoryMinorRehab],
			MajorRehabilitation:   totalBudget * spec.weights[model.CategoryMajorRehab],
			Reconstruction:        totalBudget * spec.weights[model.CategoryReconstruction],
		}
		scenarios = append(scenarios, Scenario{
			Name:   spec.name,
			Method: spec.method,
			Split:  split,
			Result: CalculateBudgetImpact(assets, types, split, spec.method),
		})
	}
	return scenarios
}
