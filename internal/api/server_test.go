package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/pavemetrics/asset-cli/internal/model"
	"github.com/pavemetrics/asset-cli/internal/optimizer"
	"github.com/pavemetrics/asset-cli/internal/store"
)

func init() {
	// Replace global logger with a no-op to avoid noisy request logs in tests.
	zap.ReplaceGlobals(zap.NewNop())
}

func newTestServer(t *testing.T) (*Server, store.Store) {
	t.Helper()
	s, err := store.NewSQLite(filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)
	require.NoError(t, s.Migrate(context.Background()))
	t.Cleanup(func() { s.Close() })
	return NewServer(s, Options{DefaultTenant: "default"}), s
}

func doJSON(t *testing.T, handler http.Handler, method, path string, body any, tenant string) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if tenant != "" {
		req.Header.Set(TenantHeader, tenant)
	}

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v))
	return v
}

func TestHealth(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t)
	rec := doJSON(t, srv.Router(), http.MethodGet, "/health", nil, "")

	assert.Equal(t, http.StatusOK, rec.Code)
	body := decode[map[string]string](t, rec)
	assert.Equal(t, "ok", body["status"])
}

func TestAssetCRUD(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t)
	router := srv.Router()

	create := model.RoadAsset{
		Name:        "Main St",
		SurfaceType: model.SurfaceAsphalt,
		Condition:   72,
		LengthMiles: 2.5,
	}

	rec := doJSON(t, router, http.MethodPost, "/api/assets", create, "city-a")
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decode[model.RoadAsset](t, rec)
	assert.NotZero(t, created.ID)
	assert.Equal(t, "city-a", created.TenantID)

	rec = doJSON(t, router, http.MethodGet, "/api/assets/1", nil, "city-a")
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[model.RoadAsset](t, rec)
	assert.Equal(t, "Main St", got.Name)

	created.Condition = 80
	rec = doJSON(t, router, http.MethodPut, "/api/assets/1", created, "city-a")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/api/assets", nil, "city-a")
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[[]model.RoadAsset](t, rec)
	require.Len(t, list, 1)
	assert.Equal(t, 80, list[0].Condition)

	rec = doJSON(t, router, http.MethodDelete, "/api/assets/1", nil, "city-a")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/api/assets/1", nil, "city-a")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAssetValidation(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t)
	router := srv.Router()

	tests := []struct {
		name  string
		asset model.RoadAsset
	}{
		{"missing name", model.RoadAsset{SurfaceType: model.SurfaceAsphalt, Condition: 50, LengthMiles: 1}},
		{"missing surface", model.RoadAsset{Name: "x", Condition: 50, LengthMiles: 1}},
		{"condition too high", model.RoadAsset{Name: "x", SurfaceType: model.SurfaceAsphalt, Condition: 101, LengthMiles: 1}},
		{"zero length", model.RoadAsset{Name: "x", SurfaceType: model.SurfaceAsphalt, Condition: 50}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doJSON(t, router, http.MethodPost, "/api/assets", tt.asset, "city-a")
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestTenantIsolation(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t)
	router := srv.Router()

	asset := model.RoadAsset{Name: "Main St", SurfaceType: model.SurfaceAsphalt, Condition: 72, LengthMiles: 2.5}
	rec := doJSON(t, router, http.MethodPost, "/api/assets", asset, "city-a")
	require.Equal(t, http.StatusCreated, rec.Code)

	// Other tenants cannot see the asset; a missing header uses the default
	// tenant, which also has nothing.
	rec = doJSON(t, router, http.MethodGet, "/api/assets/1", nil, "city-b")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/api/assets", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[[]model.RoadAsset](t, rec)
	assert.Empty(t, list)
}

func TestAllocationLifecycle(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t)
	router := srv.Router()

	alloc := model.BudgetAllocation{
		FiscalYear:            2026,
		TotalBudget:           1_000_000,
		PreventiveMaintenance: 250_000,
		MinorRehabilitation:   250_000,
		MajorRehabilitation:   250_000,
		Reconstruction:        250_000,
	}

	rec := doJSON(t, router, http.MethodPost, "/api/budgets", alloc, "city-a")
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decode[model.BudgetAllocation](t, rec)
	require.NotEmpty(t, created.ID)
	assert.False(t, created.Active)

	rec = doJSON(t, router, http.MethodPost, "/api/budgets/"+created.ID+"/activate", nil, "city-a")
	require.Equal(t, http.StatusOK, rec.Code)
	activated := decode[model.BudgetAllocation](t, rec)
	assert.True(t, activated.Active)

	rec = doJSON(t, router, http.MethodPost, "/api/budgets/no-such-id/activate", nil, "city-a")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/api/budgets", nil, "city-a")
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[[]model.BudgetAllocation](t, rec)
	assert.Len(t, list, 1)
}

func seedFleet(t *testing.T, s store.Store, tenant string) {
	t.Helper()
	ctx := context.Background()

	_, err := s.CreateAsset(ctx, model.RoadAsset{
		TenantID: tenant, Name: "Good Rd", SurfaceType: model.SurfaceAsphalt,
		Condition: 85, LengthMiles: 1,
	})
	require.NoError(t, err)
	_, err = s.CreateAsset(ctx, model.RoadAsset{
		TenantID: tenant, Name: "Fair Rd", SurfaceType: model.SurfaceAsphalt,
		Condition: 40, LengthMiles: 1,
	})
	require.NoError(t, err)

	_, err = s.UpsertMaintenanceType(ctx, model.MaintenanceType{
		TenantID: tenant, Category: model.CategoryMajorRehab, Name: "Mill and Fill",
		CostPerMile: 10_000, ConditionImprovement: 30, MinCondition: 30, MaxCondition: 49,
	})
	require.NoError(t, err)
}

func TestImpactEndpoint(t *testing.T) {
	t.Parallel()

	srv, s := newTestServer(t)
	router := srv.Router()
	seedFleet(t, s, "city-a")

	req := impactRequest{
		Split:  optimizer.BudgetSplit{MajorRehabilitation: 10_000},
		Method: "benefit",
	}
	rec := doJSON(t, router, http.MethodPost, "/api/impact", req, "city-a")

	require.Equal(t, http.StatusOK, rec.Code)
	result := decode[optimizer.ImpactResult](t, rec)
	// Fair Rd goes 40 -> 70; mean of 85 and 70 is 77.5, rounded to 78.
	assert.Equal(t, 78.0, result.ProjectedPCI)
	assert.Equal(t, 1, result.ImprovedAssets)
	assert.Equal(t, 1, result.UnaddressedAssets)
}

func TestImpactEndpointBadMethod(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t)
	rec := doJSON(t, srv.Router(), http.MethodPost, "/api/impact",
		impactRequest{Method: "random"}, "city-a")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestScenariosEndpoint(t *testing.T) {
	t.Parallel()

	srv, s := newTestServer(t)
	router := srv.Router()
	seedFleet(t, s, "city-a")

	rec := doJSON(t, router, http.MethodGet, "/api/scenarios?total=100000", nil, "city-a")

	require.Equal(t, http.StatusOK, rec.Code)
	scenarios := decode[[]optimizer.Scenario](t, rec)
	require.Len(t, scenarios, 4)
	assert.Equal(t, "Condition-Driven", scenarios[0].Name)
	assert.Equal(t, "Cost-Efficient", scenarios[1].Name)
	assert.Equal(t, "Balanced", scenarios[2].Name)
	assert.Equal(t, "Preventive-First", scenarios[3].Name)

	rec = doJSON(t, router, http.MethodGet, "/api/scenarios", nil, "city-a")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMoistureEndpoint(t *testing.T) {
	t.Parallel()

	srv, s := newTestServer(t)
	router := srv.Router()
	seedFleet(t, s, "city-a")

	readings := decode[[]model.MoistureReading](t,
		doJSON(t, router, http.MethodGet, "/api/moisture", nil, "city-a"))
	assert.Empty(t, readings)

	_, err := s.BulkInsertReadings(context.Background(), []model.MoistureReading{
		{TenantID: "city-a", RoadAssetID: 1, Latitude: 30.27, Longitude: -97.74, ReadingValue: 42.5},
	})
	require.NoError(t, err)

	rec := doJSON(t, router, http.MethodGet, "/api/moisture?asset_id=1", nil, "city-a")
	require.Equal(t, http.StatusOK, rec.Code)
	readings = decode[[]model.MoistureReading](t, rec)
	require.Len(t, readings, 1)
	assert.Equal(t, 42.5, readings[0].ReadingValue)

	rec = doJSON(t, router, http.MethodGet, "/api/moisture?asset_id=abc", nil, "city-a")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHotspotsEndpointNoZones(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t)
	rec := doJSON(t, srv.Router(), http.MethodGet, "/api/hotspots", nil, "city-a")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())
}

func TestRateLimit(t *testing.T) {
	t.Parallel()

	s, err := store.NewSQLite(filepath.Join(t.TempDir(), "rate.db"))
	require.NoError(t, err)
	require.NoError(t, s.Migrate(context.Background()))
	t.Cleanup(func() { s.Close() })

	srv := NewServer(s, Options{RequestsPerSecond: 1})
	router := srv.Router()

	// Burst of 2 is allowed, the third is rejected.
	for i := 0; i < 2; i++ {
		rec := doJSON(t, router, http.MethodGet, "/health", nil, "")
		require.Equal(t, http.StatusOK, rec.Code)
	}
	rec := doJSON(t, router, http.MethodGet, "/health", nil, "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}
