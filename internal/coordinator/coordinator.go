/*
Package coordinator implements the at-most-one-running procedure guard
spec.md §4.6 requires for every long-running maintenance workflow (scan,
metadata update, grouping, thumbnailing, wiki sync). Grounded directly in
the original implementation's util::Procedure/ProcedureGuard/ProcedureUpdater
(backend/src/util.rs): an atomic running flag plus a (done, total) pair,
reset to zero on completion via a defer in place of Rust's Drop. Exposed as
Prometheus gauges (client_golang) instead of the original's ops-status JSON
endpoint, since this core's HTTP surface only needs to read current values,
not own them.
*/
package coordinator

import (
	"sync"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/nikvoid/nndb-core/pkg/uuidv7"
)

// State is the point-in-time status of a [Procedure].
type State struct {
	Running bool
	Done    uint32
	Total   uint32
}

// Procedure guards one maintenance workflow against concurrent runs. The
// zero value is ready to use.
type Procedure struct {
	name string

	running atomic.Bool
	mu      sync.Mutex
	done    uint32
	total   uint32

	gaugeRunning prometheus.Gauge
	gaugeDone    prometheus.Gauge
	gaugeTotal   prometheus.Gauge
}

// New constructs a named [Procedure] and registers its gauges, grounded in
// the original's per-workflow static Procedure instances (SCAN_FILES_LOCK,
// UPDATE_METADATA_LOCK, GROUP_ELEMENTS_LOCK, MAKE_THUMBNAILS_LOCK,
// FETCH_WIKI_LOCK).
func New(registry prometheus.Registerer, name string) *Procedure {
	p := &Procedure{
		name: name,
		gaugeRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "nndb_procedure_running",
			Help:        "Whether a named procedure is currently running (1) or idle (0).",
			ConstLabels: prometheus.Labels{"procedure": name},
		}),
		gaugeDone: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "nndb_procedure_done_total",
			Help:        "Completed action count of the procedure's current (or last) run.",
			ConstLabels: prometheus.Labels{"procedure": name},
		}),
		gaugeTotal: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "nndb_procedure_action_total",
			Help:        "Total action count of the procedure's current (or last) run.",
			ConstLabels: prometheus.Labels{"procedure": name},
		}),
	}
	if registry != nil {
		registry.MustRegister(p.gaugeRunning, p.gaugeDone, p.gaugeTotal)
	}
	return p
}

// Name returns the procedure's identifier (one of the
// constants.Procedure... names).
func (p *Procedure) Name() string { return p.name }

// Guard is returned by [Procedure.Begin] and must be released via Release
// (typically `defer guard.Release()`) once the workflow finishes.
type Guard struct {
	p *Procedure
	// RunID is a time-ordered correlation id minted fresh for this run,
	// carried through the run's context (ctxutil.WithRunID) so every log
	// line the workflow emits can be tied back to one invocation.
	RunID string
}

// Begin claims the procedure if it is not already running. Returns
// ok=false without side effects if another run is in progress — callers
// should treat this as a no-op, not an error (spec.md §4.6: "a second
// trigger while one is already running is a no-op, not queued").
func (p *Procedure) Begin() (*Guard, bool) {
	if !p.running.CompareAndSwap(false, true) {
		return nil, false
	}
	p.gaugeRunning.Set(1)
	return &Guard{p: p, RunID: uuidv7.New()}, true
}

// SetTotal records the total action count for the current run and resets
// the done counter to zero.
func (g *Guard) SetTotal(total int) {
	g.p.mu.Lock()
	g.p.done = 0
	g.p.total = uint32(total)
	g.p.mu.Unlock()
	g.p.gaugeDone.Set(0)
	g.p.gaugeTotal.Set(float64(total))
}

// Increment saturates at total: it is a no-op once done has reached it.
func (g *Guard) Increment() {
	g.p.mu.Lock()
	if g.p.done < g.p.total {
		g.p.done++
	}
	done := g.p.done
	g.p.mu.Unlock()
	g.p.gaugeDone.Set(float64(done))
}

// Release marks the procedure idle again and zeroes its progress counters,
// mirroring ProcedureGuard's Drop impl.
func (g *Guard) Release() {
	g.p.mu.Lock()
	g.p.done = 0
	g.p.total = 0
	g.p.mu.Unlock()
	g.p.gaugeDone.Set(0)
	g.p.gaugeTotal.Set(0)
	g.p.gaugeRunning.Set(0)
	g.p.running.Store(false)
}

// State reports the procedure's current status.
func (p *Procedure) State() State {
	if !p.running.Load() {
		return State{}
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return State{Running: true, Done: p.done, Total: p.total}
}
