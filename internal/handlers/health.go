package handlers

import "net/http"

// HealthHandler reports process liveness.
type HealthHandler struct{}

// Handle responds to GET /healthz.
func (h HealthHandler) Handle(w http.ResponseWriter, r *http.Request) {
	respond(r.Context(), w, http.StatusOK, map[string]string{"status": "ok"}, "Service is healthy")
}
