package health

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"decisionflow/pkg/logger"
)

// Check probes one dependency of the agent.
type Check struct {
	Name string
	Fn   func(ctx context.Context) error
}

// Handler serves liveness and readiness probes.
type Handler struct {
	version string
	checks  []Check
	timeout time.Duration
	log     *logger.Logger
}

// NewHandler creates a probe handler for the given dependency checks.
func NewHandler(version string, checks ...Check) *Handler {
	return &Handler{
		version: version,
		checks:  checks,
		timeout: 5 * time.Second,
		log:     logger.Get(),
	}
}

type checkResult struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

type probeResponse struct {
	Status  string                 `json:"status"`
	Version string                 `json:"version,omitempty"`
	Checks  map[string]checkResult `json:"checks,omitempty"`
}

// Liveness reports that the process is up.
func (h *Handler) Liveness(w http.ResponseWriter, _ *http.Request) {
	writeProbe(w, http.StatusOK, probeResponse{Status: "ok", Version: h.version})
}

// Readiness runs every dependency check and fails if any dependency is
// unreachable.
func (h *Handler) Readiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	resp := probeResponse{Status: "ok", Version: h.version, Checks: make(map[string]checkResult)}
	status := http.StatusOK
	for _, check := range h.checks {
		if err := check.Fn(ctx); err != nil {
			h.log.Warnw("readiness check failed", "check", check.Name, "error", err)
			resp.Checks[check.Name] = checkResult{Status: "down", Error: err.Error()}
			resp.Status = "degraded"
			status = http.StatusServiceUnavailable
			continue
		}
		resp.Checks[check.Name] = checkResult{Status: "up"}
	}
	writeProbe(w, status, resp)
}

func writeProbe(w http.ResponseWriter, status int, resp probeResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}
