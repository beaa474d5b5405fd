// Package handlers contains the HTTP handlers for the rate gate API.
package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"rate-gate/internal/common/logging"
	"rate-gate/internal/config"
	"rate-gate/internal/limiter"
	"rate-gate/internal/store"
)

// Handlers holds the dependencies shared by all HTTP handlers
type Handlers struct {
	store   store.Store
	limiter *limiter.Limiter
	config  *config.Config
	logger  logging.Logger
}

// New creates a new Handlers instance
func New(s store.Store, l *limiter.Limiter, cfg *config.Config) *Handlers {
	return &Handlers{
		store:   s,
		limiter: l,
		config:  cfg,
		logger:  logging.GetGlobalLogger().WithFields(logging.Field{Key: "component", Value: "handlers"}),
	}
}

// HealthCheck reports whether the service and its counter store are usable
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	// Ping the counter store when the backend supports it
	if hc, ok := h.store.(interface{ Health() error }); ok {
		if err := hc.Health(); err != nil {
			h.logger.Warn("Counter store unhealthy", logging.Field{Key: "error", Value: err.Error()})
			http.Error(w, "Counter store unhealthy", http.StatusServiceUnavailable)
			return
		}
	}

	health := map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now(),
		"storage":   h.config.StorageType,
		"version":   "1.0.0",
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(health)
}

// GetQuota reports the current rate limit state for an identifier without
// consuming any quota
func (h *Handlers) GetQuota(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	identifier := vars["identifier"]

	decision, err := h.limiter.Inspect(r.Context(), identifier)
	if err != nil {
		h.logger.Error("Failed to inspect quota", err, logging.Field{Key: "identifier", Value: identifier})
		http.Error(w, "Failed to read quota", http.StatusInternalServerError)
		return
	}

	response := map[string]interface{}{
		"identifier": identifier,
		"allowed":    decision.Allowed,
		"limit":      decision.Limit,
		"remaining":  decision.Remaining,
		"reset_at":   decision.ResetAt,
	}
	if !decision.Allowed {
		response["retry_after_seconds"] = int64(decision.RetryAfter / time.Second)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

// ResetQuota clears an identifier's counters, granting it a fresh window
func (h *Handlers) ResetQuota(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	identifier := vars["identifier"]

	if err := h.limiter.Reset(r.Context(), identifier); err != nil {
		h.logger.Error("Failed to reset quota", err, logging.Field{Key: "identifier", Value: identifier})
		http.Error(w, "Failed to reset quota", http.StatusInternalServerError)
		return
	}

	h.logger.Info("Quota reset", logging.Field{Key: "identifier", Value: identifier})

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"identifier": identifier,
		"reset":      true,
	})
}

// Ping is a minimal endpoint that sits behind the rate limiter
func (h *Handlers) Ping(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message": "pong",
	})
}
