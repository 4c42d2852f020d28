package handlers

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/upb/llm-tenant-gateway/utils"
)

// HealthChecker reports whether a dependency can serve requests
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// AvailabilityChecker reports whether the completion provider answers
type AvailabilityChecker interface {
	IsAvailable(ctx context.Context) bool
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// HealthHandler handles health-related HTTP requests
type HealthHandler struct {
	db       HealthChecker
	provider AvailabilityChecker
	logger   *zap.Logger
}

// NewHealthHandler creates a new HealthHandler. db and provider may be nil.
func NewHealthHandler(db HealthChecker, provider AvailabilityChecker, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{
		db:       db,
		provider: provider,
		logger:   logger,
	}
}

// HandleHealth handles GET /healthz
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	_ = utils.WriteOK(w, HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// HandleReadiness handles GET /readyz.
// Only the archive database gates readiness; provider availability is
// reported but an unreachable provider still leaves the session usable.
func (h *HealthHandler) HandleReadiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	checks := make(map[string]string)
	healthy := true

	if h.db == nil {
		checks["database"] = "disabled"
	} else if err := h.db.HealthCheck(ctx); err != nil {
		h.logger.Warn("database health check failed", zap.Error(err))
		checks["database"] = "unhealthy"
		healthy = false
	} else {
		checks["database"] = "healthy"
	}

	if h.provider != nil {
		if h.provider.IsAvailable(ctx) {
			checks["provider"] = "available"
		} else {
			checks["provider"] = "unavailable"
		}
	}

	status := "healthy"
	httpStatus := http.StatusOK
	if !healthy {
		status = "unhealthy"
		httpStatus = http.StatusServiceUnavailable
	}

	response := HealthResponse{
		Status:    status,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Checks:    checks,
	}
	if err := utils.WriteJSON(w, httpStatus, utils.SuccessResponse{Data: response}); err != nil {
		h.logger.Error("failed to write readiness response", zap.Error(err))
	}
}
