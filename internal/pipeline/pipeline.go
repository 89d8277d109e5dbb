/*
Package pipeline owns the five maintenance workflows spec.md §4.6 names —
scan_files, update_metadata, group_elements, make_thumbnails, fetch_wikis —
plus the periodic scheduler that triggers them. Grounded directly in the
original implementation's backend/src/service.rs: the same guard-or-no-op
shape for every workflow (each wraps a [coordinator.Procedure]), the same
bounded-channel producer/consumer split for scanning, and the same
errgroup-driven fan-out for metadata updates in place of
FuturesUnordered/rayon.
*/
package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/nikvoid/nndb-core/internal/coordinator"
	"github.com/nikvoid/nndb-core/internal/media/fetcher"
	"github.com/nikvoid/nndb-core/internal/media/hasher"
	"github.com/nikvoid/nndb-core/internal/platform/ctxutil"
	"github.com/nikvoid/nndb-core/internal/storage"
	"github.com/nikvoid/nndb-core/internal/storage/cache"
)

// Driver wires the storage layer, fetchers, hasher, and procedure registry
// together into the runnable workflow set.
type Driver struct {
	store      storage.Store
	hasher     *hasher.Hasher
	fetchers   []fetcher.Fetcher
	procs      *coordinator.Registry
	queryCache *cache.QueryCache
	aliasCache *cache.AliasCache
	logger     *slog.Logger

	inputFolder      string
	elementPoolPath  string
	thumbnailsFolder string
	ffmpegPath       string
	danbooruBase     string

	scanInterval      time.Duration
	metadataInterval  time.Duration
	groupInterval     time.Duration
	thumbnailInterval time.Duration
	wikiInterval      time.Duration
}

// Config bundles Driver's construction-time dependencies.
type Config struct {
	Store           storage.Store
	Hasher          *hasher.Hasher
	Fetchers        []fetcher.Fetcher
	Procedures      *coordinator.Registry
	QueryCache      *cache.QueryCache
	AliasCache      *cache.AliasCache
	Logger          *slog.Logger
	InputFolder      string
	ElementPoolPath  string
	ThumbnailsFolder string
	FFmpegPath       string
	DanbooruBase     string

	ScanInterval      time.Duration
	MetadataInterval  time.Duration
	GroupInterval     time.Duration
	ThumbnailInterval time.Duration
	WikiInterval      time.Duration
}

// runContext stamps ctx with guard.RunID and a logger scoped to that run,
// so every log line a workflow emits during its run carries the same
// run_id (ctxkey.KeyRunID / ctxkey.KeyLogger, set via ctxutil).
func (d *Driver) runContext(ctx context.Context, guard *coordinator.Guard) (context.Context, *slog.Logger) {
	log := d.logger.With(slog.String("run_id", guard.RunID))
	ctx = ctxutil.WithRunID(ctx, guard.RunID)
	ctx = ctxutil.WithLogger(ctx, log)
	return ctx, log
}

func NewDriver(cfg Config) *Driver {
	return &Driver{
		store:            cfg.Store,
		hasher:           cfg.Hasher,
		fetchers:         cfg.Fetchers,
		procs:            cfg.Procedures,
		queryCache:       cfg.QueryCache,
		aliasCache:       cfg.AliasCache,
		logger:           cfg.Logger,
		inputFolder:      cfg.InputFolder,
		elementPoolPath:  cfg.ElementPoolPath,
		thumbnailsFolder: cfg.ThumbnailsFolder,
		ffmpegPath:       cfg.FFmpegPath,
		danbooruBase:     cfg.DanbooruBase,

		scanInterval:      cfg.ScanInterval,
		metadataInterval:  cfg.MetadataInterval,
		groupInterval:     cfg.GroupInterval,
		thumbnailInterval: cfg.ThumbnailInterval,
		wikiInterval:      cfg.WikiInterval,
	}
}
