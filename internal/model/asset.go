package model

import "time"

// SurfaceType describes a road asset's pavement surface.
type SurfaceType string

const (
	SurfaceAsphalt  SurfaceType = "asphalt"
	SurfaceConcrete SurfaceType = "concrete"
	SurfaceGravel   SurfaceType = "gravel"
	SurfaceChipSeal SurfaceType = "chip_seal"
)

// RoadAsset is a single managed road segment. Condition is a PCI score,
// 0-100, higher is better.
type RoadAsset struct {
	ID            int64       `json:"id"`
	TenantID      string      `json:"tenant_id"`
	Name          string      `json:"name"`
	Location      string      `json:"location,omitempty"`
	SurfaceType   SurfaceType `json:"surface_type"`
	Condition     int         `json:"condition"`
	LengthMiles   float64     `json:"length_miles"`
	Latitude      float64     `json:"latitude,omitempty"`
	Longitude     float64     `json:"longitude,omitempty"`
	LastInspected *time.Time  `json:"last_inspected,omitempty"`
	CreatedAt     time.Time   `json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`
}

// Category identifies one of the four fixed maintenance categories, ordered
// from least to most invasive. The zero value is CategoryPreventive.
type Category int

const (
	CategoryPreventive Category = iota
	CategoryMinorRehab
	CategoryMajorRehab
	CategoryReconstruction

	// NumCategories is the number of fixed maintenance categories.
	NumCategories
)

// Categories returns all categories in processing order, least invasive first.
func Categories() [NumCategories]Category {
	return [NumCategories]Category{
		CategoryPreventive,
		CategoryMinorRehab,
		CategoryMajorRehab,
		CategoryReconstruction,
	}
}

func (c Category) String() string {
	switch c {
	case CategoryPreventive:
		return "preventive_maintenance"
	case CategoryMinorRehab:
		return "minor_rehabilitation"
	case CategoryMajorRehab:
		return "major_rehabilitation"
	case CategoryReconstruction:
		return "reconstruction"
	default:
		return "unknown"
	}
}

// Label returns the human-readable category name used in reports.
func (c Category) Label() string {
	switch c {
	case CategoryPreventive:
		return "Preventive Maintenance"
	case CategoryMinorRehab:
		return "Minor Rehabilitation"
	case CategoryMajorRehab:
		return "Major Rehabilitation"
	case CategoryReconstruction:
		return "Reconstruction"
	default:
		return "Unknown"
	}
}

// ParseCategory maps a stored category string back to its Category.
func ParseCategory(s string) (Category, bool) {
	for _, c := range Categories() {
		if c.String() == s {
			return c, true
		}
	}
	return 0, false
}

// MaintenanceType is a treatment that can be applied to road assets whose
// condition falls within [MinCondition, MaxCondition] (inclusive).
type MaintenanceType struct {
	ID                   int64    `json:"id"`
	TenantID             string   `json:"tenant_id"`
	Category             Category `json:"category"`
	Name                 string   `json:"name"`
	CostPerMile          float64  `json:"cost_per_mile"`
	ConditionImprovement int      `json:"condition_improvement"`
	MinCondition         int      `json:"min_condition"`
	MaxCondition         int      `json:"max_condition"`
}

// AppliesTo reports whether an asset at the given condition is eligible
// for this treatment.
func (mt MaintenanceType) AppliesTo(condition int) bool {
	return condition >= mt.MinCondition && condition <= mt.MaxCondition
}
