package handlers

import (
	"encoding/json"
	"net/http"
)

const (
	serviceName = "tijzi-backend"
	// Version is reported by / and /health
	Version = "1.0.0"
)

// HealthHandler serves the liveness and smoke-test endpoints
type HealthHandler struct{}

// NewHealthHandler creates a new health handler
func NewHealthHandler() *HealthHandler {
	return &HealthHandler{}
}

// HandleRoot handles GET /
func (h *HealthHandler) HandleRoot(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]any{
		"message":   "Tijzi Backend is working!",
		"status":    "OK",
		"version":   Version,
		"endpoints": []string{"/", "/health", "/test", "/auth/send-code", "/auth/verify-code"},
	})
}

// ServeHTTP handles GET /health
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": serviceName,
		"version": Version,
	})
}

// HandleTest handles GET /test
func (h *HealthHandler) HandleTest(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]string{
		"test":    "success",
		"backend": "running",
		"message": "All systems operational",
	})
}

// HandlePing handles POST /ping and echoes the JSON body back.
// An empty or non-JSON body is echoed as null.
func (h *HealthHandler) HandlePing(w http.ResponseWriter, r *http.Request) {
	var data any
	if err := json.NewDecoder(r.Body).Decode(&data); err != nil {
		data = nil
	}
	respondWithJSON(w, http.StatusOK, map[string]any{
		"message":       "POST endpoint working",
		"received_data": data,
		"status":        "ok",
	})
}
