package signature

import (
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/nikvoid/nndb-core/internal/platform/constants"
)

// groups mirrors the original's local Groups registry: a set of
// (group id, member ids) pairs built up as ungrouped elements find a
// neighbor within [constants.SignatureDistanceThreshold].
type groups struct {
	mu      sync.Mutex
	byGroup map[int64][]int64
	byElem  map[int64]int64
}

func newGroups() *groups {
	return &groups{byGroup: make(map[int64][]int64), byElem: make(map[int64]int64)}
}

func (g *groups) add(groupID, elemID int64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if cur, ok := g.byElem[elemID]; !ok || cur != groupID {
		g.byGroup[groupID] = append(g.byGroup[groupID], elemID)
		g.byElem[elemID] = groupID
	}
}

func (g *groups) getGroup(elemID int64) (int64, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	id, ok := g.byElem[elemID]
	return id, ok
}

// Progress reports an ungrouped element finishing its all-pairs comparison,
// for wiring to a coordinator.Guard.
type Progress func()

// Group compares every ungrouped element against the full signature set and
// assigns group ids to newly-discovered clusters, exactly mirroring
// group_elements_by_signature's three-tier group id resolution: reuse the
// neighbor's existing group, else reuse a group already assigned this scan
// to the neighbor, else mint a new one. Parallelized across ungrouped
// elements with golang.org/x/sync/errgroup in place of rayon's par_iter.
func Group(all []Meta, nextGroupID int64, onProgress Progress) []Assignment {
	var ungrouped []Meta
	for _, m := range all {
		if m.GroupID == nil {
			ungrouped = append(ungrouped, m)
		}
	}

	reg := newGroups()
	var nextID int64 = nextGroupID
	// assignMu makes group resolution and registration of a pair one step,
	// so two workers cannot mint separate groups for the same neighbors.
	var assignMu sync.Mutex

	var g errgroup.Group
	g.SetLimit(runtime.NumCPU()) // mirrors rayon's par_iter, which defaults to one worker per core

	for _, ungroup := range ungrouped {
		ungroup := ungroup
		g.Go(func() error {
			for _, pot := range all {
				if pot.ElementID == ungroup.ElementID {
					continue
				}
				if Distance(ungroup.Vector, pot.Vector) >= constants.SignatureDistanceThreshold {
					continue
				}

				assignMu.Lock()
				var groupID int64
				switch {
				case pot.GroupID != nil:
					groupID = *pot.GroupID
				default:
					if id, ok := reg.getGroup(pot.ElementID); ok {
						groupID = id
					} else {
						nextID++
						groupID = nextID
					}
				}

				reg.add(groupID, ungroup.ElementID)
				reg.add(groupID, pot.ElementID)
				assignMu.Unlock()
			}
			if onProgress != nil {
				onProgress()
			}
			return nil
		})
	}
	_ = g.Wait()

	assignments := make([]Assignment, 0, len(reg.byGroup))
	for groupID, members := range reg.byGroup {
		assignments = append(assignments, Assignment{GroupID: groupID, ElementIDs: members})
	}
	return assignments
}
