// Package api exposes the asset inventory, budget allocations, and the
// optimizer over HTTP. Every request is scoped to a tenant via the
// X-Tenant-ID header.
package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/pavemetrics/asset-cli/internal/hotspot"
	"github.com/pavemetrics/asset-cli/internal/store"
)

// TenantHeader carries the tenant identifier on every API request.
const TenantHeader = "X-Tenant-ID"

// Server holds the dependencies shared by all handlers.
type Server struct {
	store         store.Store
	zones         []hotspot.Zone
	defaultTenant string
	limiter       *rate.Limiter
}

// Options configures a Server.
type Options struct {
	// DefaultTenant is used when a request omits the X-Tenant-ID header.
	DefaultTenant string
	// Zones are the polygons evaluated by the hotspot endpoint.
	Zones []hotspot.Zone
	// RequestsPerSecond caps the request rate across all clients. Zero
	// disables rate limiting.
	RequestsPerSecond float64
}

// NewServer creates a Server backed by the given store.
func NewServer(s store.Store, opts Options) *Server {
	if opts.DefaultTenant == "" {
		opts.DefaultTenant = "default"
	}

	var limiter *rate.Limiter
	if opts.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), int(opts.RequestsPerSecond)*2)
	}

	return &Server{
		store:         s,
		zones:         opts.Zones,
		defaultTenant: opts.DefaultTenant,
		limiter:       limiter,
	}
}

// Router builds the chi route tree with logging, CORS, and rate limiting.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", TenantHeader},
		MaxAge:         300,
	}))
	r.Use(s.logRequests)
	r.Use(s.rateLimit)

	r.Get("/health", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Route("/assets", func(r chi.Router) {
			r.Get("/", s.handleListAssets)
			r.Post("/", s.handleCreateAsset)
			r.Get("/{id}", s.handleGetAsset)
			r.Put("/{id}", s.handleUpdateAsset)
			r.Delete("/{id}", s.handleDeleteAsset)
		})

		r.Route("/budgets", func(r chi.Router) {
			r.Get("/", s.handleListAllocations)
			r.Post("/", s.handleCreateAllocation)
			r.Post("/{id}/activate", s.handleActivateAllocation)
		})

		r.Post("/impact", s.handleImpact)
		r.Get("/scenarios", s.handleScenarios)
		r.Get("/hotspots", s.handleHotspots)
		r.Get("/moisture", s.handleMoisture)
	})

	return r
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		zap.L().Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("tenant", s.tenant(r)),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

func (s *Server) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.limiter != nil && !s.limiter.Allow() {
			respondError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// tenant resolves the request's tenant, falling back to the configured
// default.
func (s *Server) tenant(r *http.Request) string {
	if t := r.Header.Get(TenantHeader); t != "" {
		return t
	}
	return s.defaultTenant
}

type errorResponse struct {
	Error string `json:"error"`
}

func respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(body); err != nil {
		zap.L().Error("api: encode response", zap.Error(err))
	}
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, errorResponse{Error: msg})
}
