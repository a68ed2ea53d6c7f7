// Package store persists road assets, maintenance types, budget allocations,
// and moisture readings behind a driver-agnostic interface with sqlite and
// postgres implementations.
package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/pavemetrics/asset-cli/internal/model"
)

// ErrNotFound is returned when a requested record does not exist for the
// tenant. Callers should test with eris.Is.
var ErrNotFound = eris.New("store: not found")

// AssetFilter specifies criteria for listing road assets. Zero values mean
// "no filter".
type AssetFilter struct {
	TenantID     string            `json:"tenant_id"`
	SurfaceType  model.SurfaceType `json:"surface_type,omitempty"`
	MaxCondition int               `json:"max_condition,omitempty"`
	Limit        int               `json:"limit,omitempty"`
	Offset       int               `json:"offset,omitempty"`
}

// Store defines the persistence interface for the asset management toolkit.
// All reads and writes are tenant scoped; tenancy is a data filter here,
// authorization happens upstream.
type Store interface {
	// Road assets
	CreateAsset(ctx context.Context, a model.RoadAsset) (*model.RoadAsset, error)
	GetAsset(ctx context.Context, tenantID string, id int64) (*model.RoadAsset, error)
	UpdateAsset(ctx context.Context, a model.RoadAsset) error
	DeleteAsset(ctx context.Context, tenantID string, id int64) error
	ListAssets(ctx context.Context, filter AssetFilter) ([]model.RoadAsset, error)
	BulkInsertAssets(ctx context.Context, assets []model.RoadAsset) (int, error)

	// Maintenance types
	UpsertMaintenanceType(ctx context.Context, mt model.MaintenanceType) (*model.MaintenanceType, error)
	ListMaintenanceTypes(ctx context.Context, tenantID string) ([]model.MaintenanceType, error)

	// Budget allocations
	CreateAllocation(ctx context.Context, b model.BudgetAllocation) (*model.BudgetAllocation, error)
	GetAllocation(ctx context.Context, tenantID, id string) (*model.BudgetAllocation, error)
	ListAllocations(ctx context.Context, tenantID string) ([]model.BudgetAllocation, error)
	ActiveAllocation(ctx context.Context, tenantID string, fiscalYear int) (*model.BudgetAllocation, error)
	SetActiveAllocation(ctx context.Context, tenantID, id string) error

	// Moisture readings
	BulkInsertReadings(ctx context.Context, readings []model.MoistureReading) (int, error)
	ListReadings(ctx context.Context, tenantID string, assetID int64, limit int) ([]model.MoistureReading, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
