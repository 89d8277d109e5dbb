package pipeline

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/nikvoid/nndb-core/internal/media/thumbnail"
	"github.com/nikvoid/nndb-core/internal/platform/ctxutil"
)

// MakeThumbnails generates a thumbnail for every element missing one,
// mirroring make_thumbnails: animated elements are skipped entirely when no
// ffmpeg binary is configured, fanned out over a bounded worker pool in
// place of rayon's into_par_iter. A second call while one is already
// running is a no-op.
func (d *Driver) MakeThumbnails(ctx context.Context) (int, error) {
	guard, ok := d.procs.MakeThumbs.Begin()
	if !ok {
		return 0, nil
	}
	defer guard.Release()
	ctx, _ = d.runContext(ctx, guard)

	elems, err := d.store.ElementsWithoutThumbnail(ctx, d.ffmpegPath != "")
	if err != nil {
		return 0, err
	}
	guard.SetTotal(len(elems))

	var mu sync.Mutex
	var done []int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())

	for _, e := range elems {
		e := e
		g.Go(func() error {
			log := ctxutil.GetLogger(gctx)
			defer guard.Increment()
			if err := gctx.Err(); err != nil {
				return err
			}

			src := filepath.Join(d.elementPoolPath, e.Filename)
			dst := filepath.Join(d.thumbnailsFolder, thumbFilename(e.Filename))

			var err error
			if e.Animated {
				err = thumbnail.MakeAnimation(gctx, d.ffmpegPath, src, dst)
			} else {
				err = thumbnail.MakeImage(src, dst)
			}
			if err != nil {
				log.Error("failed to make thumbnail",
					slog.String("filename", e.Filename), slog.Any("error", err))
				return nil
			}

			mu.Lock()
			done = append(done, e.ID)
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return 0, err
	}

	if len(done) > 0 {
		if err := d.store.AddThumbnails(ctx, done); err != nil {
			return 0, err
		}
	}

	return len(done), nil
}

// FixThumbnails reconciles has_thumb with what actually exists on disk in
// the thumbnails folder, mirroring fix_thumbnails: clear every mark, then
// restore it only for elements with a matching file on disk. Guarded by
// the same MakeThumbs procedure since both mutate thumbnail state.
func (d *Driver) FixThumbnails(ctx context.Context) (int, error) {
	guard, ok := d.procs.MakeThumbs.Begin()
	if !ok {
		return 0, nil
	}
	defer guard.Release()
	ctx, _ = d.runContext(ctx, guard)

	if err := d.store.RemoveThumbnails(ctx); err != nil {
		return 0, err
	}

	elems, err := d.store.ElementsWithoutThumbnail(ctx, true)
	if err != nil {
		return 0, err
	}
	guard.SetTotal(len(elems))

	entries, err := os.ReadDir(d.thumbnailsFolder)
	if err != nil {
		return 0, err
	}
	stems := make(map[string]bool, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		stems[strings.TrimSuffix(name, filepath.Ext(name))] = true
	}

	var ids []int64
	for _, e := range elems {
		stem := strings.SplitN(e.Filename, ".", 2)[0]
		if stems[stem] {
			ids = append(ids, e.ID)
		}
		guard.Increment()
	}

	if len(ids) > 0 {
		if err := d.store.AddThumbnails(ctx, ids); err != nil {
			return 0, err
		}
	}

	return len(ids), nil
}

// thumbFilename swaps the element's stored extension for ".jpeg" — both
// MakeImage and MakeAnimation always encode/mux to JPEG (spec.md §4.5:
// "jpeg files named hex(hash).jpeg").
func thumbFilename(filename string) string {
	stem := strings.TrimSuffix(filename, filepath.Ext(filename))
	return stem + ".jpeg"
}
