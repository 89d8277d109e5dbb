package pipeline

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/nikvoid/nndb-core/internal/media/fetcher"
	"github.com/nikvoid/nndb-core/internal/model"
	"github.com/nikvoid/nndb-core/internal/platform/ctxutil"
	"github.com/nikvoid/nndb-core/internal/storage"
)

// UpdateMetadata fetches external metadata for every pending import,
// grouped by fetcher so each fetcher's own rate limiting governs its own
// group, and all groups run concurrently — mirrors update_metadata's
// group_by(importer_id) + FuturesUnordered fan-out. A second call while one
// is already running is a no-op.
func (d *Driver) UpdateMetadata(ctx context.Context) (int, error) {
	guard, ok := d.procs.UpdateMeta.Begin()
	if !ok {
		return 0, nil
	}
	defer guard.Release()
	ctx, log := d.runContext(ctx, guard)

	sources := make([]model.Source, 0, len(d.fetchers))
	bySource := make(map[model.Source]fetcher.Fetcher, len(d.fetchers))
	for _, f := range d.fetchers {
		sources = append(sources, f.Source())
		bySource[f.Source()] = f
	}

	imports, err := d.store.PendingImports(ctx, sources)
	if err != nil {
		return 0, err
	}
	log.Debug("metadata update run starting", slog.Int("pending", len(imports)))
	guard.SetTotal(len(imports))

	groups := make(map[model.Source][]model.PendingImport, len(bySource))
	for _, imp := range imports {
		groups[imp.Fetcher] = append(groups[imp.Fetcher], imp)
	}

	g, gctx := errgroup.WithContext(ctx)
	var processed int

	for source, group := range groups {
		f, ok := bySource[source]
		if !ok || !f.Available() {
			for range group {
				guard.Increment()
			}
			continue
		}
		f := f
		group := group
		g.Go(func() error {
			for _, imp := range group {
				if err := gctx.Err(); err != nil {
					return err
				}
				d.updateOne(gctx, f, imp)
				guard.Increment()
				processed++
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return processed, err
	}
	return processed, nil
}

// updateOne fetches and records a single (element, fetcher) outcome. Errors
// are logged and turned into a FetchFail outcome rather than aborting the
// whole group, matching the original's per-import error! + continue.
func (d *Driver) updateOne(ctx context.Context, f fetcher.Fetcher, imp model.PendingImport) {
	log := ctxutil.GetLogger(ctx)
	fp := fetcher.PendingImport{ElementID: imp.ElementID, OrigFilename: imp.OrigFilename}

	outcome := storage.FetchOutcome{Kind: storage.FetchNotSupported}
	if f.Supported(fp) {
		meta, err := f.Fetch(ctx, fp)
		switch {
		case err != nil:
			log.Error("failed to fetch metadata",
				slog.Int64("element_id", imp.ElementID), slog.String("source", string(f.Source())), slog.Any("error", err))
			outcome = storage.FetchOutcome{Kind: storage.FetchFail}
		case meta == nil:
			outcome = storage.FetchOutcome{Kind: storage.FetchNotSupported}
		default:
			d.canonicalizeTags(ctx, meta.Tags)
			outcome = storage.FetchOutcome{Kind: storage.FetchSuccess, Meta: meta}
		}
	}

	if err := d.store.AddMetadata(ctx, imp.ElementID, f.Source(), outcome); err != nil {
		log.Error("failed to add metadata",
			slog.Int64("element_id", imp.ElementID), slog.String("source", string(f.Source())), slog.Any("error", err))
	}
}

// canonicalizeTags rewrites each seed's name to its alias target in place,
// mirroring the original importer's per-tag lookup_alias call in its Pixiv
// fetcher (backend/src/import/pixiv.rs).
func (d *Driver) canonicalizeTags(ctx context.Context, tags []model.TagSeed) {
	for i, t := range tags {
		if canonical, ok := d.aliasCache.LookupAliasName(ctx, t.Name); ok {
			tags[i].Name = canonical
		}
	}
}
