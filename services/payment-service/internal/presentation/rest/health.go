package rest

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/obkaraca/sportsmaker-backend-sub001/pkg/postgres"
)

const serviceName = "payment-service"

// HealthHandler provides HTTP health check endpoints for the payment-service.
type HealthHandler struct {
	db     postgres.Pinger
	logger *slog.Logger
}

// NewHealthHandler creates a new HealthHandler. A nil db reports ready
// without checking storage.
func NewHealthHandler(db postgres.Pinger, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{
		db:     db,
		logger: logger,
	}
}

// healthResponse represents the health check response body.
type healthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
}

// Health is the liveness probe endpoint.
func (h *HealthHandler) Health(w http.ResponseWriter, _ *http.Request) {
	h.write(w, http.StatusOK, "UP")
}

// Ready is the readiness probe endpoint. It fails while the database is
// unreachable.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	if h.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := postgres.HealthCheck(ctx, h.db); err != nil {
			h.logger.Warn("readiness check failed", slog.String("error", err.Error()))
			h.write(w, http.StatusServiceUnavailable, "NOT_READY")
			return
		}
	}
	h.write(w, http.StatusOK, "READY")
}

func (h *HealthHandler) write(w http.ResponseWriter, code int, status string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)

	resp := healthResponse{
		Status:  status,
		Service: serviceName,
	}

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.logger.Error("failed to encode health response", slog.String("error", err.Error()))
	}
}
