package handler

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/rs/zerolog/log"
)

// Probe reports whether one dependency is reachable.
type Probe func(ctx context.Context) error

// HealthHandler answers 503 when any probe fails so a load balancer drains
// the instance.
type HealthHandler struct {
	probes  map[string]Probe
	timeout time.Duration
}

func NewHealthHandler(timeout time.Duration, probes map[string]Probe) *HealthHandler {
	return &HealthHandler{probes: probes, timeout: timeout}
}

type HealthResponse struct {
	Status     string            `json:"status"`
	Checks     map[string]string `json:"checks"`
	ServerTime time.Time         `json:"serverTime"`
}

// GET /health
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	names := make([]string, 0, len(h.probes))
	for name := range h.probes {
		names = append(names, name)
	}
	sort.Strings(names)

	resp := HealthResponse{Status: "ok", Checks: make(map[string]string, len(names))}
	status := http.StatusOK
	for _, name := range names {
		if err := h.probes[name](ctx); err != nil {
			log.Warn().Err(err).Str("dependency", name).Msg("health check failed")
			resp.Checks[name] = "unreachable"
			resp.Status = "degraded"
			status = http.StatusServiceUnavailable
			continue
		}
		resp.Checks[name] = "ok"
	}
	resp.ServerTime = time.Now().UTC()

	writeJSON(w, status, resp)
}
