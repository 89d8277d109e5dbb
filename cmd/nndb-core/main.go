/*
Nndb-core is the entry point for the media ingestion daemon.

It owns no business logic: wiring the storage layer, caches, parsers,
fetchers, coordinator, and pipeline driver together, then running the ops
HTTP surface and the periodic scheduler until shutdown. Grounded in the
teacher's cmd/api/main.go startup sequence (logger -> config -> storage ->
migrations -> wiring -> server -> graceful shutdown), generalized to also
start the background pipeline driver spec.md's cmd/api equivalent never had.

Usage:

	go run ./cmd/nndb-core

Startup Sequence:

 1. Logger: structured JSON logging (slog).
 2. Config: load and validate environment variables.
 3. Storage: connect to Postgres and Redis.
 4. Migrations: run the append-only migration sequence.
 5. Wiring: construct parsers, fetchers, hasher, coordinator, pipeline driver.
 6. Run: start the periodic scheduler and the ops HTTP server; wait for
    shutdown signal.
*/
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/nikvoid/nndb-core/internal/coordinator"
	"github.com/nikvoid/nndb-core/internal/media/fetcher"
	"github.com/nikvoid/nndb-core/internal/media/hasher"
	"github.com/nikvoid/nndb-core/internal/media/signature"
	"github.com/nikvoid/nndb-core/internal/opsapi"
	"github.com/nikvoid/nndb-core/internal/pipeline"
	"github.com/nikvoid/nndb-core/internal/platform/config"
	"github.com/nikvoid/nndb-core/internal/platform/constants"
	"github.com/nikvoid/nndb-core/internal/platform/migration"
	pgstore "github.com/nikvoid/nndb-core/internal/platform/postgres"
	redisstore "github.com/nikvoid/nndb-core/internal/platform/redis"
	"github.com/nikvoid/nndb-core/internal/storage"
	"github.com/nikvoid/nndb-core/internal/storage/cache"
)

func main() {
	if err := run(); err != nil {
		slog.Error("application_startup_failed", slog.Any("error", err))
		os.Exit(1)
	}
}

func run() error {
	// # 1. Logger
	level := slog.LevelInfo
	rawLog := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	log := rawLog.With(slog.String("app", constants.AppName))
	slog.SetDefault(log)

	log.Info("nndb_core_initializing")

	// # 2. Configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	if cfg.Debug {
		debugLog := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
		log = debugLog.With(slog.String("app", constants.AppName))
		slog.SetDefault(log)
		log.Debug("debug_logging_enabled")
	}

	log.Info("configuration_loaded",
		slog.String("environment", cfg.Environment),
		slog.Bool("testing_mode", cfg.TestingMode),
		slog.Bool("auto_scan_files", cfg.AutoScanFiles),
	)

	startupCtx, startupCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer startupCancel()

	// # 3. PostgreSQL
	pool, err := pgstore.NewPool(startupCtx, cfg.DatabaseURL, log)
	if err != nil {
		return fmt.Errorf("connect to postgres: %w", err)
	}
	defer pool.Close()

	// # 4. Redis
	rdb, err := redisstore.NewClient(startupCtx, cfg.RedisURL, log)
	if err != nil {
		return fmt.Errorf("connect to redis: %w", err)
	}
	defer func() {
		if cerr := rdb.Close(); cerr != nil {
			log.Error("redis close error", slog.Any("error", cerr))
		}
	}()

	// # 5. Migrations
	migration.SetElementPoolPath(cfg.ElementPoolPath)
	migration.SetPixivAvailable(cfg.PixivAvailable())
	if err := migration.RunUp(startupCtx, pool, log); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	// # 6. Storage + caches
	store := storage.NewPostgresStore(pool, cfg.ElementPoolPath, cfg.TestingMode)
	queryCache := cache.NewQueryCache(rdb)
	aliasCache := cache.NewAliasCache(rdb)

	aliases, err := store.TagAliases(startupCtx)
	if err != nil {
		return fmt.Errorf("load tag aliases: %w", err)
	}
	if err := aliasCache.Reload(startupCtx, aliases); err != nil {
		return fmt.Errorf("prime alias cache: %w", err)
	}

	// # 7. Parsers, hasher
	h := hasher.New(signature.DefaultExtractor{}, aliasCache.LookupAliasName)

	// # 8. Fetchers (closed variant set, spec.md §4.4)
	var pixivCreds *fetcher.Credentials
	if cfg.PixivAvailable() {
		pixivCreds = &fetcher.Credentials{
			ClientID:     cfg.PixivClientID,
			ClientSecret: cfg.PixivClientSecret,
			RefreshToken: cfg.PixivRefreshToken,
		}
	}
	fetchers := fetcher.Variants(fetcher.NewPixiv(pixivCreds))

	// # 9. Coordinator + pipeline driver
	metricsReg := prometheus.DefaultRegisterer
	procs := coordinator.NewRegistry(metricsReg)

	driver := pipeline.NewDriver(pipeline.Config{
		Store:            store,
		Hasher:           h,
		Fetchers:         fetchers,
		Procedures:       procs,
		QueryCache:       queryCache,
		AliasCache:       aliasCache,
		Logger:           log,
		InputFolder:      cfg.InputFolder,
		ElementPoolPath:  cfg.ElementPoolPath,
		ThumbnailsFolder: cfg.ThumbnailsFolder,
		FFmpegPath:       cfg.FFmpegPath,
		DanbooruBase:     cfg.DanbooruBaseURL,

		ScanInterval:      cfg.ScanInterval.Duration(),
		MetadataInterval:  cfg.MetadataInterval.Duration(),
		GroupInterval:     cfg.GroupInterval.Duration(),
		ThumbnailInterval: cfg.ThumbnailInterval.Duration(),
		WikiInterval:      cfg.WikiInterval.Duration(),
	})

	appCtx, appCancel := context.WithCancel(context.Background())
	defer appCancel()

	if cfg.AutoScanFiles {
		driver.Run(appCtx)
	} else {
		log.Info("auto_scan_files disabled; periodic scheduler not started")
	}

	// # 10. Ops HTTP surface
	opsServer := opsapi.NewServer(opsapi.Deps{
		Port: cfg.OpsPort,
		Health: opsapi.HealthDependencies{
			CheckDatabase: func() error { return pgstore.Ping(context.Background(), pool) },
			CheckCache:    func() error { return redisstore.Ping(context.Background(), rdb) },
		},
		Procedures:    procs,
		TriggerImport: driver.RunManualImport,
		BaseCtx:       appCtx,
		Logger:        log,
	})

	shutdownErr := make(chan error, 1)
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)

	go func() {
		if err := opsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			shutdownErr <- fmt.Errorf("ops_server_crash: %w", err)
		}
	}()

	log.Info("nndb_core_running", slog.String("ops_port", cfg.OpsPort))

	select {
	case sig := <-quit:
		log.Info("shutdown_signal_received", slog.String("signal", sig.String()))
	case err := <-shutdownErr:
		return err
	}

	appCancel()
	log.Info("shutting_down", slog.Duration("timeout", constants.ShutdownTimeout))
	if err := opsServer.Shutdown(constants.ShutdownTimeout); err != nil {
		return fmt.Errorf("ops_server_shutdown_failed: %w", err)
	}

	log.Info("graceful_shutdown_complete")
	return nil
}
