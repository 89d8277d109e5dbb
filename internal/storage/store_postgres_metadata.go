package storage

import (
	"context"

	"github.com/nikvoid/nndb-core/internal/model"
	"github.com/nikvoid/nndb-core/internal/platform/dberr"
)

// PendingImports cross-joins every currently-available fetcher with all
// elements, anti-joined against FetchStatus, yielding the work list for the
// update_metadata workflow (spec.md §4.4, §4.6).
func (s *PostgresStore) PendingImports(ctx context.Context, fetchers []model.Source) ([]model.PendingImport, error) {
	if len(fetchers) == 0 {
		return nil, nil
	}

	names := make([]string, len(fetchers))
	for i, f := range fetchers {
		names[i] = string(f)
	}

	rows, err := s.pool.Query(ctx, `
		SELECT e.id, e.orig_filename, f.fetcher
		FROM core.element e
		CROSS JOIN unnest($1::text[]) AS f(fetcher)
		LEFT JOIN core.fetch_status fs ON fs.element_id = e.id AND fs.fetcher = f.fetcher
		WHERE fs.element_id IS NULL AND NOT e.broken`, names)
	if err != nil {
		return nil, dberr.Wrap(err, "list pending imports")
	}
	defer rows.Close()

	var pending []model.PendingImport
	for rows.Next() {
		var p model.PendingImport
		var fetcher string
		if err := rows.Scan(&p.ElementID, &p.OrigFilename, &fetcher); err != nil {
			return nil, dberr.Wrap(err, "scan pending import")
		}
		p.Fetcher = model.Source(fetcher)
		pending = append(pending, p)
	}
	return pending, rows.Err()
}

// AddMetadata records one fetcher outcome for one element, atomically:
// successes merge tags and metadata; NotSupported/Fail outcomes only record
// the fetch_status marker so PendingImports stops offering this pair again
// (spec.md §4.4, §7).
func (s *PostgresStore) AddMetadata(ctx context.Context, elementID int64, fetcher model.Source, outcome FetchOutcome) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return dberr.Wrap(err, "begin add metadata transaction")
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback(ctx)
		}
	}()

	supported := outcome.Kind != FetchNotSupported
	failedNow := outcome.Kind == FetchFail
	initialFailed := 0
	if failedNow {
		initialFailed = 1
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO core.fetch_status (element_id, fetcher, supported, failed)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (element_id, fetcher) DO UPDATE SET
			supported = EXCLUDED.supported,
			failed = core.fetch_status.failed + CASE WHEN $5 THEN 1 ELSE 0 END`,
		elementID, string(fetcher), supported, initialFailed, failedNow,
	); err != nil {
		return dberr.Wrap(err, "record fetch status")
	}

	if outcome.Kind == FetchSuccess && outcome.Meta != nil {
		if _, err := tx.Exec(ctx, `
			INSERT INTO core.metadata (element_id, source, src_link, src_time, ext_group, raw_meta)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (element_id, source) DO UPDATE SET
				src_link = EXCLUDED.src_link,
				src_time = EXCLUDED.src_time,
				ext_group = EXCLUDED.ext_group,
				raw_meta = EXCLUDED.raw_meta`,
			elementID, string(fetcher), outcome.Meta.SrcLink, outcome.Meta.SrcTime,
			outcome.Meta.ExtGroup, outcome.Meta.RawMeta,
		); err != nil {
			return dberr.Wrap(err, "insert fetched metadata")
		}
		if len(outcome.Meta.Tags) > 0 {
			if _, err := addTagsTx(ctx, tx, &elementID, outcome.Meta.Tags); err != nil {
				return err
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return dberr.Wrap(err, "commit add metadata transaction")
	}
	committed = true
	return nil
}

// UnmarkFailedImports clears the Fail marker so the next metadata-update
// cycle reattempts (spec.md §7 retry_imports). It deletes every failed
// fetch_status row, so the failure count is discarded along with the marker.
func (s *PostgresStore) UnmarkFailedImports(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "DELETE FROM core.fetch_status WHERE failed > 0")
	return dberr.Wrap(err, "unmark failed imports")
}

// AddWikis bulk-inserts externally-fetched tag documentation pages,
// replacing any prior page for the same tag (spec.md §4.6 fetch_wikis).
func (s *PostgresStore) AddWikis(ctx context.Context, entries []WikiEntry) error {
	if len(entries) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return dberr.Wrap(err, "begin add wikis transaction")
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback(ctx)
		}
	}()

	for _, e := range entries {
		if _, err := tx.Exec(ctx, `
			INSERT INTO core.tag_wiki (tag_name, body, fetched_at)
			VALUES ($1, $2, $3)
			ON CONFLICT (tag_name) DO UPDATE SET body = EXCLUDED.body, fetched_at = EXCLUDED.fetched_at`,
			normalizeTagName(e.TagName), e.Body, e.FetchedAt,
		); err != nil {
			return dberr.Wrap(err, "upsert tag wiki")
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return dberr.Wrap(err, "commit add wikis transaction")
	}
	committed = true
	return nil
}
