package pipeline

import (
	"context"
	"log/slog"
	"time"
)

// Run starts all five maintenance workflows on their own independent,
// deliberately desynchronized intervals (spec.md §4.8), mirroring
// task_with_interval/blocking_task_with_interval: fire immediately, sleep
// for the interval, repeat, until ctx is canceled. Each workflow already
// guards itself against overlap via its coordinator.Procedure, so staggered
// or overlapping fires are harmless.
func (d *Driver) Run(ctx context.Context) {
	go d.runOnInterval(ctx, "scan_files", d.scanInterval, func(ctx context.Context) (int, error) {
		return d.ScanFiles(ctx)
	})
	go d.runOnInterval(ctx, "update_metadata", d.metadataInterval, func(ctx context.Context) (int, error) {
		return d.UpdateMetadata(ctx)
	})
	go d.runOnInterval(ctx, "group_elements", d.groupInterval, func(ctx context.Context) (int, error) {
		return d.GroupElements(ctx)
	})
	go d.runOnInterval(ctx, "make_thumbnails", d.thumbnailInterval, func(ctx context.Context) (int, error) {
		return d.MakeThumbnails(ctx)
	})
	go d.runOnInterval(ctx, "fetch_wikis", d.wikiInterval, func(ctx context.Context) (int, error) {
		return d.FetchWikis(ctx)
	})
}

func (d *Driver) runOnInterval(ctx context.Context, name string, interval time.Duration, task func(context.Context) (int, error)) {
	for {
		n, err := task(ctx)
		if err != nil {
			d.logger.Error("scheduled workflow failed", slog.String("workflow", name), slog.Any("error", err))
		} else if n > 0 {
			d.logger.Info("scheduled workflow completed", slog.String("workflow", name), slog.Int("count", n))
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(interval):
		}
	}
}
