package pipeline

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/nikvoid/nndb-core/internal/coordinator"
	"github.com/nikvoid/nndb-core/internal/media/hasher"
	"github.com/nikvoid/nndb-core/internal/platform/apperr"
	"github.com/nikvoid/nndb-core/internal/platform/constants"
	"github.com/nikvoid/nndb-core/internal/platform/ctxutil"
	"github.com/nikvoid/nndb-core/internal/storage"
)

// ScanFiles walks the input folder for new media files, hashes and parses
// each one, and admits them in chunks (spec.md §4.8). A second call while
// one is already running is a no-op. Mirrors scan_files: a CPU-bound
// producer (walk+hash, here fanned out over a worker pool instead of one
// spawn_blocking closure) feeding a bounded channel into a single
// storage-admission consumer.
func (d *Driver) ScanFiles(ctx context.Context) (int, error) {
	guard, ok := d.procs.ScanFiles.Begin()
	if !ok {
		return 0, nil
	}
	defer guard.Release()
	ctx, log := d.runContext(ctx, guard)

	existing, err := d.store.Hashes(ctx)
	if err != nil {
		return 0, err
	}
	seen := make(map[[16]byte]bool, len(existing))
	for _, h := range existing {
		seen[h] = true
	}

	paths, err := d.walkMediaFiles()
	if err != nil {
		return 0, err
	}
	guard.SetTotal(len(paths))

	admissions := make(chan storage.Admission, constants.ScanChannelBuffer)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(admissions)
		return d.hashFiles(gctx, paths, seen, guard, admissions)
	})

	var admitted int
	g.Go(func() error {
		n, err := d.consumeAdmissions(gctx, admissions)
		admitted = n
		return err
	})

	if err := g.Wait(); err != nil {
		return admitted, err
	}

	if admitted > 0 {
		if err := d.queryCache.InvalidateAll(ctx); err != nil {
			log.Warn("failed to invalidate query cache after scan", slog.Any("error", err))
		}
	}

	return admitted, nil
}

func (d *Driver) walkMediaFiles() ([]string, error) {
	var paths []string
	err := filepath.WalkDir(d.inputFolder, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			d.logger.Error("failed to walk entry", slog.String("path", path), slog.Any("error", err))
			return nil
		}
		if entry.IsDir() {
			return nil
		}
		ext := strings.TrimPrefix(filepath.Ext(path), ".")
		if _, ok := hasher.IsMediaFile(ext); ok {
			paths = append(paths, path)
		}
		return nil
	})
	return paths, err
}

// hashFiles reads and hashes every path, reporting progress via guard and
// pushing results onto out. Parallelized with a bounded worker count since
// hashing and signature extraction are CPU-bound, the same tradeoff the
// original makes by running its closure inside spawn_blocking. seen holds
// the content hashes already admitted in prior scans; matching files are
// skipped before being pushed downstream, sparing the consumer a redundant
// round trip for the common case of re-scanning an input folder.
func (d *Driver) hashFiles(ctx context.Context, paths []string, seen map[[16]byte]bool, guard *coordinator.Guard, out chan<- storage.Admission) error {
	log := ctxutil.GetLogger(ctx)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(scanWorkerCount)

	for _, path := range paths {
		path := path
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			defer guard.Increment()

			data, err := os.ReadFile(path)
			if err != nil {
				log.Error("failed to read file", slog.String("path", path), slog.Any("error", apperr.FileUnreadable(path, err)))
				return nil
			}

			admission := d.hasher.Hash(gctx, path, data)
			if seen[admission.Hash] {
				return nil
			}

			select {
			case out <- admission:
			case <-gctx.Done():
				return gctx.Err()
			}
			return nil
		})
	}

	return g.Wait()
}

// consumeAdmissions batches incoming admissions into
// [constants.AdmissionChunkSize] groups and flushes each via
// storage.Store.AddElements, the bounded producer/consumer split spec.md
// §4.8 and §5 require.
func (d *Driver) consumeAdmissions(ctx context.Context, in <-chan storage.Admission) (int, error) {
	log := ctxutil.GetLogger(ctx)
	var total int
	chunk := make([]storage.Admission, 0, constants.AdmissionChunkSize)

	flush := func() error {
		if len(chunk) == 0 {
			return nil
		}
		n, err := d.store.AddElements(ctx, chunk)
		total += n
		chunk = chunk[:0]
		if err != nil {
			log.Error("admission batch had failures", slog.Any("error", err))
		}
		return nil
	}

	for admission := range in {
		chunk = append(chunk, admission)
		if len(chunk) >= constants.AdmissionChunkSize {
			if err := flush(); err != nil {
				return total, err
			}
		}
	}

	if err := flush(); err != nil {
		return total, err
	}

	return total, nil
}

// scanWorkerCount bounds the hashing fan-out; chosen well above typical
// core counts since hashing is interleaved with blocking file reads.
const scanWorkerCount = 8
