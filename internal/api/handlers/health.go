package handlers

import (
	"net/http"

	"github.com/wonny/marketpulse/internal/store"
	"github.com/wonny/marketpulse/pkg/config"
	"github.com/wonny/marketpulse/pkg/logger"
)

// HealthHandler reports service and store health
type HealthHandler struct {
	store  store.Store
	logger *logger.Logger
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(st store.Store, log *logger.Logger) *HealthHandler {
	return &HealthHandler{
		store:  st,
		logger: log,
	}
}

// GetHealth returns 200 when the store answers, 503 otherwise
// GET /health
func (h *HealthHandler) GetHealth(w http.ResponseWriter, r *http.Request) {
	status, err := store.HealthCheck(r.Context(), h.store)

	body := map[string]interface{}{
		"service": config.AppName,
		"version": config.Version,
		"store":   status,
	}

	if err != nil {
		h.logger.WithError(err).Warn("Health check failed")
		body["status"] = "unhealthy"
		respondJSON(w, http.StatusServiceUnavailable, body)
		return
	}

	if count, err := h.store.Count(r.Context()); err == nil {
		body["rows"] = count
	}
	body["status"] = "ok"
	respondJSON(w, http.StatusOK, body)
}
