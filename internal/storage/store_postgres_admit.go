package storage

import (
	"context"
	"encoding/hex"
	"fmt"
	"path/filepath"

	"github.com/hashicorp/go-multierror"
	"github.com/jackc/pgx/v5"

	"github.com/nikvoid/nndb-core/internal/model"
	"github.com/nikvoid/nndb-core/internal/platform/apperr"
	"github.com/nikvoid/nndb-core/internal/platform/dberr"
)

// AddElements admits a batch of hashed, parsed files (spec.md §4.1).
func (s *PostgresStore) AddElements(ctx context.Context, batch []Admission) (int, error) {
	if len(batch) == 0 {
		return 0, nil
	}

	var errs *multierror.Error
	admitted := 0

	for _, a := range batch {
		ok, err := s.admitOne(ctx, a)
		if err != nil {
			errs = multierror.Append(errs, fmt.Errorf("admit %s: %w", a.OrigFilename, err))
			continue
		}
		if ok {
			admitted++
		}
	}

	return admitted, errs.ErrorOrNil()
}

func (s *PostgresStore) admitOne(ctx context.Context, a Admission) (bool, error) {
	var exists bool
	if err := s.pool.QueryRow(ctx,
		"SELECT EXISTS(SELECT 1 FROM core.element WHERE hash = $1)", a.Hash[:],
	).Scan(&exists); err != nil {
		return false, dberr.Wrap(err, "check duplicate hash")
	}

	if exists {
		if !s.testingMode {
			_ = removeQuiet(a.SourcePath)
		}
		return false, nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return false, dberr.Wrap(err, "begin admit transaction")
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback(ctx)
		}
	}()

	poolFilename := hex.EncodeToString(a.Hash[:]) + filepath.Ext(a.OrigFilename)

	var elementID int64
	err = tx.QueryRow(ctx, `
		INSERT INTO core.element (hash, filename, orig_filename, broken, animated)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`,
		a.Hash[:], poolFilename, a.OrigFilename, a.Broken, a.Animated,
	).Scan(&elementID)
	if err != nil {
		return false, dberr.Wrap(err, "insert element")
	}

	if len(a.Metadata.Tags) > 0 {
		if _, err := addTagsTx(ctx, tx, &elementID, a.Metadata.Tags); err != nil {
			return false, err
		}
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO core.metadata (element_id, source, src_link, src_time, ext_group, raw_meta)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		elementID, a.MetaSource, a.Metadata.SrcLink, a.Metadata.SrcTime, a.Metadata.ExtGroup, a.Metadata.RawMeta,
	); err != nil {
		return false, dberr.Wrap(err, "insert metadata")
	}

	if a.Signature != nil {
		vec := make([]int16, len(a.Signature))
		for i, v := range a.Signature {
			vec[i] = int16(v)
		}
		if _, err := tx.Exec(ctx,
			"INSERT INTO core.signature (element_id, vector) VALUES ($1, $2)",
			elementID, vec,
		); err != nil {
			return false, dberr.Wrap(err, "insert signature")
		}
	}

	destPath := filepath.Join(s.elementPoolPath, poolFilename)
	if err := moveOrCopy(a.SourcePath, destPath, s.testingMode); err != nil {
		return false, apperr.FileUnreadable(a.SourcePath, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return false, dberr.Wrap(err, "commit admit transaction")
	}
	committed = true

	return true, nil
}

// Hashes returns every known content hash, used to prime the scan
// workflow's in-memory dedupe set.
func (s *PostgresStore) Hashes(ctx context.Context) ([][16]byte, error) {
	rows, err := s.pool.Query(ctx, "SELECT hash FROM core.element")
	if err != nil {
		return nil, dberr.Wrap(err, "list hashes")
	}
	defer rows.Close()

	var hashes [][16]byte
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, dberr.Wrap(err, "scan hash")
		}
		var h [16]byte
		copy(h[:], raw)
		hashes = append(hashes, h)
	}
	return hashes, rows.Err()
}

// addTagsTx upserts tag rows by name inside an existing transaction,
// optionally linking them to elementID and incrementing each tag's count
// only on the first insertion of the (element, tag) pair — this is what
// keeps repeated AddTags calls idempotent (spec.md §8).
func addTagsTx(ctx context.Context, tx pgx.Tx, elementID *int64, seeds []model.TagSeed) ([]model.Tag, error) {
	tags := make([]model.Tag, 0, len(seeds))

	for _, seed := range seeds {
		name := normalizeTagName(seed.Name)
		if name == "" {
			continue
		}

		var tag model.Tag
		var tagType string
		err := tx.QueryRow(ctx, `
			INSERT INTO core.tag (name, alt_name, tag_type)
			VALUES ($1, $2, $3)
			ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
			RETURNING id, name, alt_name, tag_type, count, group_id, hidden`,
			name, seed.AltName, string(seed.Type),
		).Scan(&tag.ID, &tag.Name, &tag.AltName, &tagType, &tag.Count, &tag.GroupID, &tag.Hidden)
		if err != nil {
			return nil, dberr.Wrap(err, "upsert tag")
		}
		tag.Type = model.TagType(tagType)

		if elementID != nil {
			ct, err := tx.Exec(ctx, `
				INSERT INTO core.element_tag (element_id, tag_id)
				VALUES ($1, $2)
				ON CONFLICT DO NOTHING`,
				*elementID, tag.ID,
			)
			if err != nil {
				return nil, dberr.Wrap(err, "link element tag")
			}
			if ct.RowsAffected() == 1 {
				if _, err := tx.Exec(ctx,
					"UPDATE core.tag SET count = count + 1 WHERE id = $1", tag.ID,
				); err != nil {
					return nil, dberr.Wrap(err, "increment tag count")
				}
				tag.Count++
			}
		}

		tags = append(tags, tag)
	}

	return tags, nil
}
