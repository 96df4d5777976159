package handlers

import (
	"net/http"

	"github.com/marmos91/ussdgw/pkg/session"
)

// HealthHandler exposes liveness, readiness and detailed store health for
// the gateway. The only backing store is the session/KV layer; there is no
// direct "is the upstream reachable" probe since the upstream is dialed
// fresh on every turn and a slow upstream must not fail the gateway's own
// readiness.
type HealthHandler struct {
	sessions *session.Store
}

// NewHealthHandler creates a new health handler bound to sessions.
func NewHealthHandler(sessions *session.Store) *HealthHandler {
	return &HealthHandler{sessions: sessions}
}

// services reports the health of every backing service the gateway's health
// contract names, keyed "redis" and "session" since the session store is
// itself backed by the embedded KV layer.
func (h *HealthHandler) services() (map[string]string, bool) {
	healthy := h.sessions != nil && h.sessions.Healthy()
	status := "unhealthy"
	if healthy {
		status = "healthy"
	}
	return map[string]string{"redis": status, "session": status}, healthy
}

// Liveness handles GET /health - simple liveness probe. Returns 200 as long
// as the process is serving HTTP; it never inspects the session store, so a
// slow or down KV layer cannot fail the gateway's own liveness.
func (h *HealthHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthyResponse(map[string]string{"service": "ussdgw"}))
}

// Readiness handles GET /health/ready - the shape the aggregator's health
// contract names: {status, timestamp, data:{services:{redis, session}}}.
// Returns 503 when the session/KV layer is unreachable.
func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	services, healthy := h.services()

	if !healthy {
		writeJSON(w, http.StatusServiceUnavailable, unhealthyResponseWithData(map[string]any{"services": services}))
		return
	}
	writeJSON(w, http.StatusOK, healthyResponse(map[string]any{"services": services}))
}

// Stores handles GET /health/stores - the detailed per-store breakdown.
func (h *HealthHandler) Stores(w http.ResponseWriter, r *http.Request) {
	services, healthy := h.services()

	if !healthy {
		writeJSON(w, http.StatusServiceUnavailable, unhealthyResponseWithData(services))
		return
	}
	writeJSON(w, http.StatusOK, healthyResponse(services))
}
