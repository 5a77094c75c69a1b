package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/facegate/facegate/application/service"
	"github.com/facegate/facegate/infrastructure/api/middleware"
)

// HealthRouter exposes liveness and readiness endpoints.
type HealthRouter struct {
	health *service.Health
	logger *slog.Logger
}

// NewHealthRouter creates a new HealthRouter.
func NewHealthRouter(health *service.Health, logger *slog.Logger) *HealthRouter {
	if logger == nil {
		logger = slog.Default()
	}
	return &HealthRouter{
		health: health,
		logger: logger,
	}
}

// Routes returns the chi router for health endpoints.
func (rt *HealthRouter) Routes() chi.Router {
	router := chi.NewRouter()

	router.Get("/", rt.Live)
	router.Get("/ready", rt.Ready)
	router.Get("/full", rt.Full)

	return router
}

// Live handles GET /health. It only confirms the process is serving.
func (rt *HealthRouter) Live(w http.ResponseWriter, _ *http.Request) {
	middleware.WriteJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// Ready handles GET /health/ready. The store must be reachable.
func (rt *HealthRouter) Ready(w http.ResponseWriter, req *http.Request) {
	if err := rt.health.Ready(req.Context()); err != nil {
		rt.logger.WarnContext(req.Context(), "readiness check failed", "error", err)
		middleware.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "not ready",
			"error":  err.Error(),
		})
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// Full handles GET /health/full with per-component detail.
func (rt *HealthRouter) Full(w http.ResponseWriter, req *http.Request) {
	report := rt.health.Full(req.Context())

	status := http.StatusOK
	if report.Status != service.StatusOK {
		status = http.StatusServiceUnavailable
	}
	middleware.WriteJSON(w, status, report)
}
