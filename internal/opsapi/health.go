/*
Package opsapi implements the ops-only HTTP surface spec.md §1 carves out of
scope: not the REST API over elements/tags/search (that stays unbuilt), only
liveness/readiness probes, a read-only procedure-status view over the
coordinator, a manual-import trigger, and a Prometheus /metrics endpoint.
Grounded directly in the teacher's internal/api package (health.go,
server.go) with the domain routes (auth, comic, tag, ...) replaced by the
coordinator/pipeline views this core actually exposes.
*/
package opsapi

import (
	"log/slog"
	"net/http"

	"github.com/nikvoid/nndb-core/internal/platform/constants"
)

// HealthDependencies holds the injectable dependency checkers for system
// probes, mirroring the teacher's api.HealthDependencies.
type HealthDependencies struct {
	CheckDatabase func() error
	CheckCache    func() error
}

type healthHandler struct {
	dependencies HealthDependencies
	logger       *slog.Logger
}

// NewHealthHandlers constructs the liveness and readiness [http.HandlerFunc] pair.
func NewHealthHandlers(deps HealthDependencies, logger *slog.Logger) (liveness, readiness http.HandlerFunc) {
	h := &healthHandler{dependencies: deps, logger: logger}
	return h.liveness, h.readiness
}

func (h *healthHandler) liveness(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"app":     constants.AppName,
		"version": constants.AppVersion,
	})
}

func (h *healthHandler) readiness(w http.ResponseWriter, _ *http.Request) {
	type checkResult struct {
		Name  string `json:"name"`
		OK    bool   `json:"ok"`
		Error string `json:"error,omitempty"`
	}

	results := make([]checkResult, 0, 2)
	ready := true

	if h.dependencies.CheckDatabase != nil {
		r := checkResult{Name: "postgres", OK: true}
		if err := h.dependencies.CheckDatabase(); err != nil {
			r.OK = false
			r.Error = err.Error()
			ready = false
			h.logger.Error("readiness check failed", slog.String("dependency", "postgres"), slog.Any("error", err))
		}
		results = append(results, r)
	}

	if h.dependencies.CheckCache != nil {
		r := checkResult{Name: "redis", OK: true}
		if err := h.dependencies.CheckCache(); err != nil {
			r.OK = false
			r.Error = err.Error()
			ready = false
			h.logger.Error("readiness check failed", slog.String("dependency", "redis"), slog.Any("error", err))
		}
		results = append(results, r)
	}

	status := "ready"
	code := http.StatusOK
	if !ready {
		status = "degraded"
		code = http.StatusServiceUnavailable
	}

	writeJSON(w, code, map[string]any{
		"status": status,
		"checks": results,
	})
}
