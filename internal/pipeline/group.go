package pipeline

import (
	"context"
	"log/slog"

	"github.com/nikvoid/nndb-core/internal/media/signature"
)

// GroupElements clusters still-image elements by perceptual-signature
// distance (spec.md §4.5), mirroring group_elements_by_signature: read
// every signature, compare ungrouped ones against the full set, and
// persist the resulting assignments. A second call while one is already
// running is a no-op.
func (d *Driver) GroupElements(ctx context.Context) (int, error) {
	guard, ok := d.procs.GroupElements.Begin()
	if !ok {
		return 0, nil
	}
	defer guard.Release()
	ctx, log := d.runContext(ctx, guard)

	rows, err := d.store.Signatures(ctx)
	if err != nil {
		return 0, err
	}

	metas := make([]signature.Meta, len(rows))
	var maxGroupID int64 = 1
	var ungrouped int
	for i, r := range rows {
		metas[i] = signature.Meta{ElementID: r.ElementID, Vector: r.Vector, GroupID: r.GroupID}
		if r.GroupID != nil {
			if *r.GroupID > maxGroupID {
				maxGroupID = *r.GroupID
			}
		} else {
			ungrouped++
		}
	}
	guard.SetTotal(ungrouped)

	assignments := signature.Group(metas, maxGroupID+1, guard.Increment)
	log.Debug("signature grouping pass complete", slog.Int("ungrouped", ungrouped), slog.Int("groups_formed", len(assignments)))

	for _, a := range assignments {
		groupID := a.GroupID
		if _, err := d.store.AddToGroup(ctx, a.ElementIDs, &groupID); err != nil {
			return len(assignments), err
		}
	}

	return len(assignments), nil
}
