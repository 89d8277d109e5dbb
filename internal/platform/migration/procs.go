package migration

import (
	"context"
	"os"
	"path/filepath"

	"github.com/jackc/pgx/v5"
)

// elementPoolPath is the directory admitted files live under. It must be set
// via [SetElementPoolPath] before [RunUp] runs any procedure that touches the
// filesystem (grounded in the original backend's CONFIG.element_pool.path
// usage inside migrate.rs's run_proc).
var elementPoolPath string

// pixivAvailable mirrors Fetcher::Pixiv.available() from the original
// backend — whether Pixiv credentials are configured.
var pixivAvailable bool

// SetElementPoolPath configures the pool directory used by filesystem-aware
// procedures. Call once during startup wiring, before [RunUp].
func SetElementPoolPath(path string) { elementPoolPath = path }

// SetPixivAvailable records whether Pixiv credentials are configured, for
// procedures that gate on it.
func SetPixivAvailable(available bool) { pixivAvailable = available }

func init() {
	Register("backfill_file_time", backfillFileTime)
	Register("backfill_pixiv_credentials_check", backfillPixivCredentialsCheck)
}

// backfillFileTime derives file_time from the filesystem modification time
// for every element that predates the column, grounded directly in
// add_file_time from the original backend's migrate.rs.
func backfillFileTime(ctx context.Context, tx pgx.Tx) (ControlFlow, error) {
	rows, err := tx.Query(ctx, "SELECT id, filename FROM core.element WHERE file_time IS NULL")
	if err != nil {
		return Continue, err
	}

	type pending struct {
		id       int64
		filename string
	}
	var targets []pending
	for rows.Next() {
		var p pending
		if err := rows.Scan(&p.id, &p.filename); err != nil {
			rows.Close()
			return Continue, err
		}
		targets = append(targets, p)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return Continue, err
	}

	for _, p := range targets {
		info, err := os.Stat(filepath.Join(elementPoolPath, p.filename))
		if err != nil {
			// Best-effort backfill: a missing pool file just leaves file_time null.
			continue
		}

		if _, err := tx.Exec(ctx,
			"UPDATE core.element SET file_time = $1 WHERE id = $2",
			info.ModTime(), p.id,
		); err != nil {
			return Continue, err
		}
	}

	return Continue, nil
}

// backfillPixivCredentialsCheck mirrors add_raw_pixiv_meta's credential gate
// from the original backend: if any Pixiv-sourced metadata rows are missing
// their raw_meta payload and Pixiv isn't configured, halt the migration
// instead of silently leaving those rows incomplete — the operator fills in
// the credential env vars and re-runs. Unlike the original's interactive
// stdin prompt (CLI-only, not appropriate for an unattended service
// startup), this always breaks rather than asking for a choice; `skip` is
// expressed by clearing the affected rows out-of-band before re-running.
func backfillPixivCredentialsCheck(ctx context.Context, tx pgx.Tx) (ControlFlow, error) {
	var pending int
	err := tx.QueryRow(ctx,
		`SELECT count(*) FROM core.metadata WHERE source = 'pixiv' AND raw_meta IS NULL`,
	).Scan(&pending)
	if err != nil {
		return Continue, err
	}

	if pending > 0 && !pixivAvailable {
		return Break, nil
	}

	return Continue, nil
}
