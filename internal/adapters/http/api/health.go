package api

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/okian/palantir/pkg/metrics"
)

const readyTimeout = 3 * time.Second

// Pinger checks upstream reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler serves metrics and readiness.
type HealthHandler struct {
	pinger Pinger
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(p Pinger) *HealthHandler {
	return &HealthHandler{pinger: p}
}

// HandleHealth handles GET /healthz requests with the Prometheus exposition.
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{}).ServeHTTP(w, r)
}

// HandleReady handles GET /readyz requests. It answers 503 when the palantir
// server does not respond.
func (h *HealthHandler) HandleReady(w http.ResponseWriter, r *http.Request) {
	const op = "api.readyz"
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()
	if err := h.pinger.Ping(ctx); err != nil {
		writeError(w, http.StatusServiceUnavailable, "unready", WrapKind(op, ErrUnready, err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
