package app

import (
	"github.com/gorilla/mux"
	"rate-gate/internal/handlers"
	"rate-gate/internal/limiter"
	"rate-gate/internal/middleware"
)

// SetupRoutes configures all HTTP routes for the application
func SetupRoutes(router *mux.Router, h *handlers.Handlers, l *limiter.Limiter) {
	// Request IDs and request logging on every route
	router.Use(middleware.RequestIDMiddleware)
	router.Use(middleware.LoggingMiddleware)

	// Health check and quota administration bypass the limiter
	router.HandleFunc("/health", h.HealthCheck).Methods("GET")
	router.HandleFunc("/admin/quota/{identifier}", h.GetQuota).Methods("GET")
	router.HandleFunc("/admin/quota/{identifier}", h.ResetQuota).Methods("DELETE")

	// Everything under /api is rate limited
	api := router.PathPrefix("/api").Subrouter()
	api.Use(limiter.Middleware(l))
	api.HandleFunc("/ping", h.Ping).Methods("GET")
}
