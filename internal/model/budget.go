package model

import "time"

// BudgetAllocation is a stored fiscal-year budget split across the four
// maintenance categories. At most one allocation per tenant and fiscal year
// is active at a time; the store enforces that on activation.
type BudgetAllocation struct {
	ID                    string    `json:"id"`
	TenantID              string    `json:"tenant_id"`
	FiscalYear            int       `json:"fiscal_year"`
	TotalBudget           float64   `json:"total_budget"`
	PreventiveMaintenance float64   `json:"preventive_maintenance"`
	MinorRehabilitation   float64   `json:"minor_rehabilitation"`
	MajorRehabilitation   float64   `json:"major_rehabilitation"`
	Reconstruction        float64   `json:"reconstruction"`
	Active                bool      `json:"active"`
	CreatedAt             time.Time `json:"created_at"`
	UpdatedAt             time.Time `json:"updated_at"`
}

// Amounts returns the four category amounts in category processing order.
func (b BudgetAllocation) Amounts() [NumCategories]float64 {
	return [NumCategories]float64{
		b.PreventiveMaintenance,
		b.MinorRehabilitation,
		b.MajorRehabilitation,
		b.Reconstruction,
	}
}

// Allocated returns the sum of the four category amounts. The UI warns when
// this diverges from TotalBudget; callers may under- or over-allocate.
func (b BudgetAllocation) Allocated() float64 {
	var total float64
	for _, amt := range b.Amounts() {
		total += amt
	}
	return total
}
