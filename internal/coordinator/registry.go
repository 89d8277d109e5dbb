package coordinator

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/nikvoid/nndb-core/internal/platform/constants"
)

// Registry holds the five named procedures the pipeline driver runs
// (spec.md §4.6).
type Registry struct {
	ScanFiles     *Procedure
	UpdateMeta    *Procedure
	GroupElements *Procedure
	MakeThumbs    *Procedure
	FetchWikis    *Procedure
}

// NewRegistry constructs and registers all five procedures.
func NewRegistry(reg prometheus.Registerer) *Registry {
	return &Registry{
		ScanFiles:     New(reg, constants.ProcedureScanFiles),
		UpdateMeta:    New(reg, constants.ProcedureUpdateMeta),
		GroupElements: New(reg, constants.ProcedureGroupElements),
		MakeThumbs:    New(reg, constants.ProcedureMakeThumbs),
		FetchWikis:    New(reg, constants.ProcedureFetchWikis),
	}
}

// All returns every procedure keyed by name, for the ops-status endpoint.
func (r *Registry) All() map[string]*Procedure {
	return map[string]*Procedure{
		r.ScanFiles.Name():     r.ScanFiles,
		r.UpdateMeta.Name():    r.UpdateMeta,
		r.GroupElements.Name(): r.GroupElements,
		r.MakeThumbs.Name():    r.MakeThumbs,
		r.FetchWikis.Name():   r.FetchWikis,
	}
}
