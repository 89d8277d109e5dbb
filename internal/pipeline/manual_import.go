package pipeline

import (
	"context"
	"log/slog"
)

// ManualImport runs scan -> fetch -> group -> thumbnail strictly
// sequentially (spec.md §4.8), the composite the ops surface exposes as a
// fire-and-forget task. Each stage still goes through its own coordinator
// guard, so a ManualImport overlapping with an already-running periodic
// invocation of one of its stages simply skips that stage rather than
// racing it — the same no-op-on-busy contract every workflow has.
func (d *Driver) ManualImport(ctx context.Context) error {
	scanned, err := d.ScanFiles(ctx)
	if err != nil {
		return err
	}
	d.logger.Info("manual import: scan stage done", slog.Int("admitted", scanned))

	fetched, err := d.UpdateMetadata(ctx)
	if err != nil {
		return err
	}
	d.logger.Info("manual import: fetch stage done", slog.Int("updated", fetched))

	grouped, err := d.GroupElements(ctx)
	if err != nil {
		return err
	}
	d.logger.Info("manual import: group stage done", slog.Int("groups", grouped))

	thumbed, err := d.MakeThumbnails(ctx)
	if err != nil {
		return err
	}
	d.logger.Info("manual import: thumbnail stage done", slog.Int("thumbnails", thumbed))

	return nil
}

// RunManualImport launches [Driver.ManualImport] as a fire-and-forget task,
// logging failures instead of propagating them — the shape the ops surface
// needs for a "trigger and return immediately" HTTP/CLI action.
func (d *Driver) RunManualImport(ctx context.Context) {
	go func() {
		if err := d.ManualImport(ctx); err != nil {
			d.logger.Error("manual import failed", slog.Any("error", err))
		}
	}()
}
