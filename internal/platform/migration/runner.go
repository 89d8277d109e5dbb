/*
Package migration runs schema migrations with support for embedded named
procedures — compiled Go callbacks invoked after a migration's SQL statements
are applied, inside the same transaction.

# Architecture

spec.md §4.1 requires migrations that can embed *named procedures* parsed out
of the migration text, each returning {continue, break}; on break the whole
transaction rolls back and the process exits so an operator can fill in
missing configuration (e.g. fetcher credentials) before re-running. That
control-flow shape cannot be expressed with golang-migrate's Up()-only model,
so this package is a from-scratch runner grounded directly in the original
nndb backend's `dao/sqlite/migrate.rs`, kept in the teacher's package/doc
idiom (RunUp(ctx, pool, logger) entrypoint, slog-based logging).

Migration files live under sql/*.sql, embedded at build time. A line of the
form:

	-- RUN <procedure_name>

inside a migration's SQL marks a point, after that migration's statements
have executed, where the named Go procedure (registered via [Register]) runs
against the same transaction.
*/
package migration

import (
	"context"
	"crypto/sha256"
	"embed"
	"encoding/hex"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nikvoid/nndb-core/internal/platform/apperr"
)

//go:embed sql/*.sql
var migrationFS embed.FS

// ControlFlow is the outcome of a named procedure: whether the migration run
// should continue to the next migration or break (roll back and halt).
type ControlFlow int

const (
	Continue ControlFlow = iota
	Break
)

// Proc is a compiled migration procedure, invoked with the run's context and
// the in-flight transaction; returning Break halts the whole run.
type Proc func(ctx context.Context, tx pgx.Tx) (ControlFlow, error)

// registry holds all procedures a migration's "-- RUN <name>" lines may reference.
var registry = map[string]Proc{}

// Register adds a named procedure to the registry. Call from an init() in
// the package that implements the procedure (see procs.go).
func Register(name string, proc Proc) {
	registry[name] = proc
}

type migrationFile struct {
	version     int
	description string
	sql         string
	checksum    string
}

// RunUp applies all pending migrations inside one transaction, running any
// embedded named procedures in order. A procedure returning [Break] rolls
// back the entire transaction and terminates the process with status 0 —
// the operator is expected to fill in the missing configuration it asked for
// and re-run.
func RunUp(ctx context.Context, pool *pgxpool.Pool, logger *slog.Logger) error {
	migrations, err := loadMigrations()
	if err != nil {
		return fmt.Errorf("migration: failed to load embedded sql: %w", err)
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("migration: failed to begin transaction: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback(ctx)
		}
	}()

	if err := ensureMigrationsTable(ctx, tx); err != nil {
		return err
	}

	applied, err := listApplied(ctx, tx)
	if err != nil {
		return err
	}

	for _, mig := range migrations {
		if cksum, ok := applied[mig.version]; ok {
			if cksum != mig.checksum {
				return apperr.MigrationChecksumMismatch(fmt.Sprintf("%04d_%s", mig.version, mig.description))
			}
			continue
		}

		logger.Info("migration_applying",
			slog.Int("version", mig.version),
			slog.String("description", mig.description),
		)

		if _, err := tx.Exec(ctx, mig.sql); err != nil {
			return fmt.Errorf("migration: failed to apply %04d_%s: %w", mig.version, mig.description, err)
		}

		for _, procName := range extractProcNames(mig.sql) {
			proc, ok := registry[procName]
			if !ok {
				return fmt.Errorf("migration: no such procedure registered: %q", procName)
			}

			logger.Info("migration_procedure_running",
				slog.String("procedure", procName),
				slog.String("migration", mig.description),
			)

			flow, err := proc(ctx, tx)
			if err != nil {
				return fmt.Errorf("migration: procedure %q failed: %w", procName, err)
			}
			if flow == Break {
				_ = tx.Rollback(ctx)
				logger.Warn("migration_procedure_break",
					slog.String("procedure", procName),
					slog.String("action", "rolled back, awaiting operator input, exiting"),
				)
				os.Exit(0)
			}
		}

		if err := recordMigration(ctx, tx, mig); err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("migration: commit failed: %w", err)
	}
	committed = true

	logger.Info("migration_up_to_date", slog.Int("applied", len(migrations)))
	return nil
}

func ensureMigrationsTable(ctx context.Context, tx pgx.Tx) error {
	const stmt = `
CREATE TABLE IF NOT EXISTS core.schema_migrations (
	version     integer PRIMARY KEY,
	description text NOT NULL,
	checksum    text NOT NULL,
	applied_at  timestamptz NOT NULL DEFAULT now()
)`
	if _, err := tx.Exec(ctx, "CREATE SCHEMA IF NOT EXISTS core"); err != nil {
		return fmt.Errorf("migration: failed to create schema: %w", err)
	}
	if _, err := tx.Exec(ctx, stmt); err != nil {
		return fmt.Errorf("migration: failed to ensure migrations table: %w", err)
	}
	return nil
}

func listApplied(ctx context.Context, tx pgx.Tx) (map[int]string, error) {
	rows, err := tx.Query(ctx, "SELECT version, checksum FROM core.schema_migrations")
	if err != nil {
		return nil, fmt.Errorf("migration: failed to list applied migrations: %w", err)
	}
	defer rows.Close()

	applied := make(map[int]string)
	for rows.Next() {
		var version int
		var checksum string
		if err := rows.Scan(&version, &checksum); err != nil {
			return nil, fmt.Errorf("migration: failed to scan applied row: %w", err)
		}
		applied[version] = checksum
	}
	return applied, rows.Err()
}

func recordMigration(ctx context.Context, tx pgx.Tx, mig migrationFile) error {
	_, err := tx.Exec(ctx,
		"INSERT INTO core.schema_migrations (version, description, checksum) VALUES ($1, $2, $3)",
		mig.version, mig.description, mig.checksum,
	)
	if err != nil {
		return fmt.Errorf("migration: failed to record %04d_%s: %w", mig.version, mig.description, err)
	}
	return nil
}

// extractProcNames parses "-- RUN <name>" marker lines out of migration SQL,
// mirroring get_procs in the original backend's migrate.rs.
func extractProcNames(sql string) []string {
	var names []string
	for _, line := range strings.Split(sql, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "-- RUN") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) >= 3 {
			names = append(names, fields[2])
		}
	}
	return names
}

func loadMigrations() ([]migrationFile, error) {
	entries, err := fs.ReadDir(migrationFS, "sql")
	if err != nil {
		return nil, err
	}

	var migrations []migrationFile
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}

		version, description, err := parseFilename(entry.Name())
		if err != nil {
			return nil, err
		}

		content, err := migrationFS.ReadFile("sql/" + entry.Name())
		if err != nil {
			return nil, err
		}

		sum := sha256.Sum256(content)
		migrations = append(migrations, migrationFile{
			version:     version,
			description: description,
			sql:         string(content),
			checksum:    hex.EncodeToString(sum[:]),
		})
	}

	sort.Slice(migrations, func(i, j int) bool { return migrations[i].version < migrations[j].version })
	return migrations, nil
}

// parseFilename parses "0001_init.sql" into (1, "init").
func parseFilename(name string) (int, string, error) {
	base := strings.TrimSuffix(name, ".sql")
	parts := strings.SplitN(base, "_", 2)
	if len(parts) != 2 {
		return 0, "", fmt.Errorf("migration: malformed filename %q", name)
	}

	var version int
	if _, err := fmt.Sscanf(parts[0], "%d", &version); err != nil {
		return 0, "", fmt.Errorf("migration: malformed version in %q: %w", name, err)
	}

	return version, parts[1], nil
}
