package opsapi

import (
	"context"
	"net/http"

	"github.com/nikvoid/nndb-core/internal/coordinator"
)

// procedureView is the JSON projection of a [coordinator.State], keyed by
// procedure name for the status endpoint.
type procedureView struct {
	Running bool   `json:"running"`
	Done    uint32 `json:"done"`
	Total   uint32 `json:"total"`
}

type procedureHandler struct {
	registry *coordinator.Registry
	// baseCtx is the application-lifetime context the triggered workflow
	// runs under — deliberately not the request's context, since the
	// manual import outlives the HTTP request that triggered it.
	baseCtx context.Context
	trigger func(context.Context)
}

// NewProcedureHandler builds the read-only status view and manual-import
// trigger over the coordinator registry (spec.md §4.6). trigger is called
// with baseCtx, not the triggering request's context, so the import keeps
// running after the HTTP response is sent.
func NewProcedureHandler(baseCtx context.Context, registry *coordinator.Registry, trigger func(context.Context)) *procedureHandler {
	return &procedureHandler{baseCtx: baseCtx, registry: registry, trigger: trigger}
}

// status handles GET /procedures — a snapshot of every workflow's guard
// state, the same (done, total) pair spec.md §4.6 says must be externally
// observable.
func (h *procedureHandler) status(w http.ResponseWriter, r *http.Request) {
	views := make(map[string]procedureView, 5)
	for name, proc := range h.registry.All() {
		s := proc.State()
		views[name] = procedureView{Running: s.Running, Done: s.Done, Total: s.Total}
	}
	writeJSON(w, http.StatusOK, map[string]any{"procedures": views})
}

// triggerImport handles POST /procedures/import — fires the manual import
// composite (spec.md §4.8) as a fire-and-forget task and returns
// immediately; progress is then visible via status.
func (h *procedureHandler) triggerImport(w http.ResponseWriter, r *http.Request) {
	h.trigger(h.baseCtx)
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "triggered"})
}
