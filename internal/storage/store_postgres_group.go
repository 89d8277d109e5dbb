package storage

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/nikvoid/nndb-core/internal/model"
	"github.com/nikvoid/nndb-core/internal/platform/dberr"
)

// AddToGroup creates or reuses a signature group id and updates each
// element's signature row, returning the group id (spec.md §4.5).
func (s *PostgresStore) AddToGroup(ctx context.Context, elementIDs []int64, groupID *int64) (int64, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, dberr.Wrap(err, "begin add to group transaction")
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback(ctx)
		}
	}()

	var gid int64
	if groupID != nil {
		gid = *groupID
	} else {
		if err := tx.QueryRow(ctx, "INSERT INTO core.tag_group DEFAULT VALUES RETURNING id").Scan(&gid); err != nil {
			return 0, dberr.Wrap(err, "create signature group")
		}
	}

	if _, err := tx.Exec(ctx,
		"UPDATE core.signature SET group_id = $1 WHERE element_id = ANY($2)", gid, elementIDs,
	); err != nil {
		return 0, dberr.Wrap(err, "assign signature group")
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, dberr.Wrap(err, "commit add to group transaction")
	}
	committed = true
	return gid, nil
}

// ClearGroups removes every signature group assignment in bulk (spec.md
// §4.5). The group_elements workflow does not call it; it only groups
// elements that have no group yet.
func (s *PostgresStore) ClearGroups(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "UPDATE core.signature SET group_id = NULL")
	return dberr.Wrap(err, "clear signature groups")
}

// AssociatedElements returns the groupings an element participates in: its
// perceptual-signature group, and any external-source groups (spec.md
// §4.1).
func (s *PostgresStore) AssociatedElements(ctx context.Context, id int64) (model.AssociatedElements, error) {
	var assoc model.AssociatedElements

	var sigGroup *int64
	if err := s.pool.QueryRow(ctx,
		"SELECT group_id FROM core.signature WHERE element_id = $1", id,
	).Scan(&sigGroup); err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return assoc, dberr.Wrap(err, "read signature group")
	}
	if sigGroup != nil {
		members, err := s.groupMembers(ctx,
			"SELECT element_id FROM core.signature WHERE group_id = $1", *sigGroup)
		if err != nil {
			return assoc, err
		}
		assoc.SignatureGroup = &model.GroupMembers{GroupID: *sigGroup, Members: members}
	}

	rows, err := s.pool.Query(ctx,
		"SELECT DISTINCT ext_group FROM core.metadata WHERE element_id = $1 AND ext_group IS NOT NULL", id)
	if err != nil {
		return assoc, dberr.Wrap(err, "list ext groups")
	}
	defer rows.Close()

	var extGroups []int64
	for rows.Next() {
		var g int64
		if err := rows.Scan(&g); err != nil {
			return assoc, dberr.Wrap(err, "scan ext group")
		}
		extGroups = append(extGroups, g)
	}
	if err := rows.Err(); err != nil {
		return assoc, err
	}

	for _, g := range extGroups {
		members, err := s.groupMembers(ctx,
			"SELECT DISTINCT element_id FROM core.metadata WHERE ext_group = $1", g)
		if err != nil {
			return assoc, err
		}
		assoc.ExtGroups = append(assoc.ExtGroups, model.GroupMembers{GroupID: g, Members: members})
	}

	return assoc, nil
}

func (s *PostgresStore) groupMembers(ctx context.Context, query string, groupID int64) ([]int64, error) {
	rows, err := s.pool.Query(ctx, query, groupID)
	if err != nil {
		return nil, dberr.Wrap(err, "list group members")
	}
	defer rows.Close()

	var members []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, dberr.Wrap(err, "scan group member")
		}
		members = append(members, id)
	}
	return members, rows.Err()
}

// Signatures returns every still-image element's perceptual signature plus
// its current group assignment (spec.md §4.5).
func (s *PostgresStore) Signatures(ctx context.Context) ([]model.Signature, error) {
	rows, err := s.pool.Query(ctx, "SELECT element_id, vector, group_id FROM core.signature")
	if err != nil {
		return nil, dberr.Wrap(err, "list signatures")
	}
	defer rows.Close()

	var out []model.Signature
	for rows.Next() {
		var sig model.Signature
		var vec []int16
		if err := rows.Scan(&sig.ElementID, &vec, &sig.GroupID); err != nil {
			return nil, dberr.Wrap(err, "scan signature")
		}
		for i := 0; i < len(vec) && i < len(sig.Vector); i++ {
			sig.Vector[i] = int8(vec[i])
		}
		out = append(out, sig)
	}
	return out, rows.Err()
}

// ElementsWithoutThumbnail lists elements missing a thumbnail, optionally
// excluding animated ones (spec.md §4.6 make_thumbnails: animated elements
// are skipped entirely when no ffmpeg binary is configured).
func (s *PostgresStore) ElementsWithoutThumbnail(ctx context.Context, includeAnimated bool) ([]model.Element, error) {
	query := "SELECT id, hash, filename, orig_filename, broken, has_thumb, animated, add_time, file_time " +
		"FROM core.element WHERE has_thumb = false"
	if !includeAnimated {
		query += " AND animated = false"
	}

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, dberr.Wrap(err, "list elements without thumbnail")
	}
	defer rows.Close()

	var out []model.Element
	for rows.Next() {
		var e model.Element
		var hash []byte
		if err := rows.Scan(&e.ID, &hash, &e.Filename, &e.OrigFilename, &e.Broken, &e.HasThumb, &e.Animated, &e.AddTime, &e.FileTime); err != nil {
			return nil, dberr.Wrap(err, "scan element")
		}
		copy(e.Hash[:], hash)
		out = append(out, e)
	}
	return out, rows.Err()
}

// AddThumbnails sets has_thumb for the given elements.
func (s *PostgresStore) AddThumbnails(ctx context.Context, ids []int64) error {
	_, err := s.pool.Exec(ctx, "UPDATE core.element SET has_thumb = true WHERE id = ANY($1)", ids)
	return dberr.Wrap(err, "mark thumbnails added")
}

// RemoveThumbnails clears has_thumb for every element, ahead of a
// fix_thumbnails sweep (spec.md §4.8).
func (s *PostgresStore) RemoveThumbnails(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "UPDATE core.element SET has_thumb = false")
	return dberr.Wrap(err, "clear thumbnails")
}
