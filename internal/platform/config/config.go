/*
Package config handles application-wide settings and environment parsing.

It leverages 'caarlos0/env' to map OS environment variables into a strongly-typed
Go struct, providing early validation and default values.

Usage:

	cfg, err := config.Load()
	if err != nil {
	    log.Fatal(err)
	}

Architecture:

  - Immutability: Once loaded, configuration is read-only.
  - DI-Friendly: Passed to core components (storage, pipeline, coordinator) via constructors.
  - Zero Hidden State: No global variables are used to store config.

Loading configuration from a file is out of scope for this core — only
env-var driven config is supported, matching spec.md §1.
*/
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// # Configuration Schema

// ReadMode is the parsed READ_MODE setting. The scan producer does not
// consult it: it always reads and hashes files on a parallel worker pool,
// and no sequential read path exists.
type ReadMode string

const (
	ReadModeParallel   ReadMode = "parallel"
	ReadModeSequential ReadMode = "sequential"
)

// Config holds all runtime configuration for the ingestion core, covering
// every key spec.md §6 names under "Configuration surface".
type Config struct {
	// Environment / ops surface
	OpsPort     string `env:"OPS_PORT"     envDefault:"8090"`
	Environment string `env:"ENVIRONMENT"  envDefault:"development"`
	Debug       bool   `env:"DEBUG"        envDefault:"false"`
	LogLevel    string `env:"LOG_LEVEL"    envDefault:"info"`
	LogFile     string `env:"LOG_FILE"`

	// Storage (db_url)
	DatabaseURL   string `env:"DATABASE_URL,required"`
	MigrationPath string `env:"MIGRATION_PATH" envDefault:"./migrations"`

	// Cache (query-id cache, alias cache)
	RedisURL string `env:"REDIS_URL,required"`

	// testing_mode: affects duplicate and move-vs-copy behavior.
	TestingMode bool `env:"TESTING_MODE" envDefault:"false"`

	// auto_scan_files: enables the periodic pipeline driver.
	AutoScanFiles bool `env:"AUTO_SCAN_FILES" envDefault:"true"`

	// element_pool, thumbnails_folder, input_folder: filesystem paths.
	InputFolder      string `env:"INPUT_FOLDER,required"`
	ElementPoolPath  string `env:"ELEMENT_POOL_PATH,required"`
	ThumbnailsFolder string `env:"THUMBNAILS_FOLDER,required"`
	StaticFolder     string `env:"STATIC_FOLDER"`

	// ffmpeg_path: optional; absence disables animation thumbnails.
	FFmpegPath string `env:"FFMPEG_PATH"`

	// read_files: scan concurrency mode.
	ReadMode ReadMode `env:"READ_MODE" envDefault:"parallel"`

	// Periodic invocation intervals, deliberately desynchronized (spec.md §4.8).
	ScanInterval     DurationSeconds `env:"SCAN_INTERVAL_SECONDS"      envDefault:"300"`
	MetadataInterval DurationSeconds `env:"METADATA_INTERVAL_SECONDS"  envDefault:"180"`
	GroupInterval    DurationSeconds `env:"GROUP_INTERVAL_SECONDS"     envDefault:"240"`
	ThumbnailInterval DurationSeconds `env:"THUMBNAIL_INTERVAL_SECONDS" envDefault:"360"`
	WikiInterval     DurationSeconds `env:"WIKI_INTERVAL_SECONDS"      envDefault:"3600"`

	// Per-fetcher credential blocks (spec.md §6).
	PixivRefreshToken string `env:"PIXIV_REFRESH_TOKEN"`
	PixivClientID     string `env:"PIXIV_CLIENT_ID"`
	PixivClientSecret string `env:"PIXIV_CLIENT_SECRET"`

	// Danbooru wiki sync (fetch_wikis workflow).
	DanbooruBaseURL string `env:"DANBOORU_BASE_URL" envDefault:"https://danbooru.donmai.us"`
}

// DurationSeconds lets caarlos0/env parse a plain integer env var into a
// time.Duration field via its TextUnmarshaler support.
type DurationSeconds struct {
	Seconds int
}

// Duration converts to a time.Duration for use with time.Sleep/time.Timer.
func (d DurationSeconds) Duration() time.Duration {
	return time.Duration(d.Seconds) * time.Second
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *DurationSeconds) UnmarshalText(text []byte) error {
	var n int
	if _, err := fmt.Sscanf(string(text), "%d", &n); err != nil {
		return fmt.Errorf("config: invalid duration seconds %q: %w", text, err)
	}
	d.Seconds = n
	return nil
}

// # Configuration Loading

// Load parses environment variables into a [Config] struct.
func Load() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config: failed to parse environment variables: %w", err)
	}

	return cfg, nil
}

// IsDevelopment reports whether the process is running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// AnimationThumbsEnabled reports whether an external ffmpeg-class tool is
// configured; absence silently disables animation thumbnails (spec.md §4.5).
func (c *Config) AnimationThumbsEnabled() bool {
	return c.FFmpegPath != ""
}

// PixivAvailable reports whether Pixiv credentials are present in config.
func (c *Config) PixivAvailable() bool {
	return c.PixivRefreshToken != "" && c.PixivClientID != "" && c.PixivClientSecret != ""
}
