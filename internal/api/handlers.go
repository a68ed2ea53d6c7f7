package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/pavemetrics/asset-cli/internal/hotspot"
	"github.com/pavemetrics/asset-cli/internal/model"
	"github.com/pavemetrics/asset-cli/internal/optimizer"
	"github.com/pavemetrics/asset-cli/internal/store"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// assets

func (s *Server) handleListAssets(w http.ResponseWriter, r *http.Request) {
	filter := store.AssetFilter{TenantID: s.tenant(r)}

	q := r.URL.Query()
	if v := q.Get("surface_type"); v != "" {
		filter.SurfaceType = model.SurfaceType(v)
	}
	if v := q.Get("max_condition"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid max_condition")
			return
		}
		filter.MaxCondition = n
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		filter.Limit = n
	}
	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid offset")
			return
		}
		filter.Offset = n
	}

	assets, err := s.store.ListAssets(r.Context(), filter)
	if err != nil {
		s.internalError(w, "list assets", err)
		return
	}
	if assets == nil {
		assets = []model.RoadAsset{}
	}
	respondJSON(w, http.StatusOK, assets)
}

func (s *Server) handleCreateAsset(w http.ResponseWriter, r *http.Request) {
	var a model.RoadAsset
	if err := json.NewDecoder(r.Body).Decode(&a); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validateAsset(a); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	a.TenantID = s.tenant(r)

	created, err := s.store.CreateAsset(r.Context(), a)
	if err != nil {
		s.internalError(w, "create asset", err)
		return
	}
	respondJSON(w, http.StatusCreated, created)
}

func (s *Server) handleGetAsset(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	asset, err := s.store.GetAsset(r.Context(), s.tenant(r), id)
	if eris.Is(err, store.ErrNotFound) {
		respondError(w, http.StatusNotFound, "asset not found")
		return
	}
	if err != nil {
		s.internalError(w, "get asset", err)
		return
	}
	respondJSON(w, http.StatusOK, asset)
}

func (s *Server) handleUpdateAsset(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var a model.RoadAsset
	if err := json.NewDecoder(r.Body).Decode(&a); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validateAsset(a); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	a.ID = id
	a.TenantID = s.tenant(r)

	err := s.store.UpdateAsset(r.Context(), a)
	if eris.Is(err, store.ErrNotFound) {
		respondError(w, http.StatusNotFound, "asset not found")
		return
	}
	if err != nil {
		s.internalError(w, "update asset", err)
		return
	}
	respondJSON(w, http.StatusOK, a)
}

func (s *Server) handleDeleteAsset(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	err := s.store.DeleteAsset(r.Context(), s.tenant(r), id)
	if eris.Is(err, store.ErrNotFound) {
		respondError(w, http.StatusNotFound, "asset not found")
		return
	}
	if err != nil {
		s.internalError(w, "delete asset", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// budgets

func (s *Server) handleListAllocations(w http.ResponseWriter, r *http.Request) {
	allocs, err := s.store.ListAllocations(r.Context(), s.tenant(r))
	if err != nil {
		s.internalError(w, "list allocations", err)
		return
	}
	if allocs == nil {
		allocs = []model.BudgetAllocation{}
	}
	respondJSON(w, http.StatusOK, allocs)
}

func (s *Server) handleCreateAllocation(w http.ResponseWriter, r *http.Request) {
	var b model.BudgetAllocation
	if err := json.NewDecoder(r.Body).Decode(&b); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if b.FiscalYear <= 0 {
		respondError(w, http.StatusBadRequest, "fiscal_year is required")
		return
	}
	if b.TotalBudget < 0 || b.PreventiveMaintenance < 0 || b.MinorRehabilitation < 0 ||
		b.MajorRehabilitation < 0 || b.Reconstruction < 0 {
		respondError(w, http.StatusBadRequest, "budget amounts must be non-negative")
		return
	}
	b.TenantID = s.tenant(r)
	b.Active = false

	created, err := s.store.CreateAllocation(r.Context(), b)
	if err != nil {
		s.internalError(w, "create allocation", err)
		return
	}
	respondJSON(w, http.StatusCreated, created)
}

func (s *Server) handleActivateAllocation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	err := s.store.SetActiveAllocation(r.Context(), s.tenant(r), id)
	if eris.Is(err, store.ErrNotFound) {
		respondError(w, http.StatusNotFound, "allocation not found")
		return
	}
	if err != nil {
		s.internalError(w, "activate allocation", err)
		return
	}

	alloc, err := s.store.GetAllocation(r.Context(), s.tenant(r), id)
	if err != nil {
		s.internalError(w, "read activated allocation", err)
		return
	}
	respondJSON(w, http.StatusOK, alloc)
}

// optimizer

type impactRequest struct {
	Split  optimizer.BudgetSplit `json:"split"`
	Method string                `json:"method"`
}

func (s *Server) handleImpact(w http.ResponseWriter, r *http.Request) {
	var req impactRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	method := optimizer.MethodBenefit
	if req.Method != "" {
		m, ok := optimizer.ParseMethod(req.Method)
		if !ok {
			respondError(w, http.StatusBadRequest, "unknown method "+strconv.Quote(req.Method))
			return
		}
		method = m
	}

	tenant := s.tenant(r)
	assets, types, ok := s.loadFleet(w, r, tenant)
	if !ok {
		return
	}

	result := optimizer.CalculateBudgetImpact(assets, types, req.Split, method)
	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleScenarios(w http.ResponseWriter, r *http.Request) {
	total, err := strconv.ParseFloat(r.URL.Query().Get("total"), 64)
	if err != nil || total < 0 {
		respondError(w, http.StatusBadRequest, "invalid total")
		return
	}

	tenant := s.tenant(r)
	assets, types, ok := s.loadFleet(w, r, tenant)
	if !ok {
		return
	}

	scenarios := optimizer.GenerateBudgetScenarios(total, assets, types)
	respondJSON(w, http.StatusOK, scenarios)
}

// loadFleet fetches every asset and maintenance type for the tenant.
func (s *Server) loadFleet(w http.ResponseWriter, r *http.Request, tenant string) ([]model.RoadAsset, []model.MaintenanceType, bool) {
	assets, err := s.store.ListAssets(r.Context(), store.AssetFilter{TenantID: tenant})
	if err != nil {
		s.internalError(w, "list assets", err)
		return nil, nil, false
	}
	types, err := s.store.ListMaintenanceTypes(r.Context(), tenant)
	if err != nil {
		s.internalError(w, "list maintenance types", err)
		return nil, nil, false
	}
	return assets, types, true
}

// moisture

func (s *Server) handleHotspots(w http.ResponseWriter, r *http.Request) {
	threshold := 30.0
	if v := r.URL.Query().Get("threshold"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid threshold")
			return
		}
		threshold = f
	}

	readings, err := s.store.ListReadings(r.Context(), s.tenant(r), 0, 0)
	if err != nil {
		s.internalError(w, "list readings", err)
		return
	}

	hotspots := hotspot.Detect(s.zones, readings, threshold)
	if hotspots == nil {
		hotspots = []hotspot.Hotspot{}
	}
	respondJSON(w, http.StatusOK, hotspots)
}

func (s *Server) handleMoisture(w http.ResponseWriter, r *http.Request) {
	var assetID int64
	if v := r.URL.Query().Get("asset_id"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid asset_id")
			return
		}
		assetID = n
	}

	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	readings, err := s.store.ListReadings(r.Context(), s.tenant(r), assetID, limit)
	if err != nil {
		s.internalError(w, "list readings", err)
		return
	}
	if readings == nil {
		readings = []model.MoistureReading{}
	}
	respondJSON(w, http.StatusOK, readings)
}

// helpers

func (s *Server) internalError(w http.ResponseWriter, action string, err error) {
	zap.L().Error("api: "+action, zap.Error(err))
	respondError(w, http.StatusInternalServerError, "internal error")
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		respondError(w, http.StatusBadRequest, "invalid asset id")
		return 0, false
	}
	return id, true
}

func validateAsset(a model.RoadAsset) error {
	if a.Name == "" {
		return eris.New("name is required")
	}
	if a.SurfaceType == "" {
		return eris.New("surface_type is required")
	}
	if a.Condition < 0 || a.Condition > 100 {
		return eris.Errorf("condition %d out of range [0,100]", a.Condition)
	}
	if a.LengthMiles <= 0 {
		return eris.New("length_miles must be positive")
	}
	return nil
}
