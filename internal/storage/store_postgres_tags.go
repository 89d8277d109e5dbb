package storage

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/nikvoid/nndb-core/internal/model"
	"github.com/nikvoid/nndb-core/internal/platform/dberr"
)

// AddTags upserts tag rows by name, linking them to elementID when given.
func (s *PostgresStore) AddTags(ctx context.Context, elementID *int64, tags []model.TagSeed) ([]model.Tag, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, dberr.Wrap(err, "begin add tags transaction")
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback(ctx)
		}
	}()

	result, err := addTagsTx(ctx, tx, elementID, tags)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, dberr.Wrap(err, "commit add tags transaction")
	}
	committed = true

	return result, nil
}

func scanTag(row pgx.Row) (model.Tag, error) {
	var tag model.Tag
	var tagType string
	err := row.Scan(&tag.ID, &tag.Name, &tag.AltName, &tagType, &tag.Count, &tag.GroupID, &tag.Hidden)
	tag.Type = model.TagType(tagType)
	return tag, err
}

// TagByID looks up a single tag by id.
func (s *PostgresStore) TagByID(ctx context.Context, id int64) (model.Tag, error) {
	row := s.pool.QueryRow(ctx,
		"SELECT id, name, alt_name, tag_type, count, group_id, hidden FROM core.tag WHERE id = $1", id)
	tag, err := scanTag(row)
	if err != nil {
		return model.Tag{}, dberr.Wrap(err, "get tag by id")
	}
	return tag, nil
}

// TagByName looks up a single tag by its canonical name.
func (s *PostgresStore) TagByName(ctx context.Context, name string) (model.Tag, error) {
	row := s.pool.QueryRow(ctx,
		"SELECT id, name, alt_name, tag_type, count, group_id, hidden FROM core.tag WHERE name = $1",
		normalizeTagName(name))
	tag, err := scanTag(row)
	if err != nil {
		return model.Tag{}, dberr.Wrap(err, "get tag by name")
	}
	return tag, nil
}

// RemoveTagFromElement deletes one ElementTag row and decrements the tag's
// count, mirroring the increment done on insertion in addTagsTx.
func (s *PostgresStore) RemoveTagFromElement(ctx context.Context, elementID, tagID int64) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return dberr.Wrap(err, "begin remove tag transaction")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	ct, err := tx.Exec(ctx,
		"DELETE FROM core.element_tag WHERE element_id = $1 AND tag_id = $2", elementID, tagID)
	if err != nil {
		return dberr.Wrap(err, "delete element tag")
	}
	if ct.RowsAffected() == 1 {
		if _, err := tx.Exec(ctx,
			"UPDATE core.tag SET count = GREATEST(count - 1, 0) WHERE id = $1", tagID,
		); err != nil {
			return dberr.Wrap(err, "decrement tag count")
		}
	}

	return dberr.Wrap(tx.Commit(ctx), "commit remove tag transaction")
}

// UpdateTag applies patch to a tag. If the name changed, the prior name is
// kept reachable by inserting it as an alias (conflict-skip, spec.md §4.1).
func (s *PostgresStore) UpdateTag(ctx context.Context, id int64, patch TagPatch) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return dberr.Wrap(err, "begin update tag transaction")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if patch.Name != nil {
		var oldName string
		if err := tx.QueryRow(ctx, "SELECT name FROM core.tag WHERE id = $1", id).Scan(&oldName); err != nil {
			return dberr.Wrap(err, "read tag name")
		}
		newName := normalizeTagName(*patch.Name)
		if newName != oldName {
			if _, err := tx.Exec(ctx,
				"INSERT INTO core.tag_alias (alias, tag_id) VALUES ($1, $2) ON CONFLICT DO NOTHING",
				oldName, id,
			); err != nil {
				return dberr.Wrap(err, "insert supplanted name as alias")
			}
		}
		if _, err := tx.Exec(ctx, "UPDATE core.tag SET name = $1 WHERE id = $2", newName, id); err != nil {
			return dberr.Wrap(err, "update tag name")
		}
	}
	if patch.AltName != nil {
		if _, err := tx.Exec(ctx, "UPDATE core.tag SET alt_name = $1 WHERE id = $2", *patch.AltName, id); err != nil {
			return dberr.Wrap(err, "update tag alt name")
		}
	}
	if patch.Type != nil {
		if _, err := tx.Exec(ctx, "UPDATE core.tag SET tag_type = $1 WHERE id = $2", string(*patch.Type), id); err != nil {
			return dberr.Wrap(err, "update tag type")
		}
	}
	if patch.Hidden != nil {
		if _, err := tx.Exec(ctx, "UPDATE core.tag SET hidden = $1 WHERE id = $2", *patch.Hidden, id); err != nil {
			return dberr.Wrap(err, "update tag hidden")
		}
	}

	return dberr.Wrap(tx.Commit(ctx), "commit update tag transaction")
}

// AliasTag links `from` and `to` into the same signature-independent tag
// group (spec.md §4.1's alias_tag semantics): if from==to, it detaches the
// tag from any group instead; otherwise `to` is created if missing
// (inheriting `from`'s tag type), a shared group id is allocated unless one
// of the two already carries one, and both tags' group_id is set to it.
// Both tags survive as distinct rows — this is group linkage, not a merge.
func (s *PostgresStore) AliasTag(ctx context.Context, from, to string) error {
	fromName, toName := normalizeTagName(from), normalizeTagName(to)

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return dberr.Wrap(err, "begin alias tag transaction")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var fromID int64
	var fromType string
	var fromGroupID *int64
	if err := tx.QueryRow(ctx, "SELECT id, tag_type, group_id FROM core.tag WHERE name = $1", fromName).
		Scan(&fromID, &fromType, &fromGroupID); err != nil {
		return dberr.Wrap(err, "resolve alias source tag")
	}

	if fromName == toName {
		if fromGroupID == nil {
			return dberr.Wrap(tx.Commit(ctx), "commit alias tag transaction")
		}
		if _, err := tx.Exec(ctx, "UPDATE core.tag SET group_id = NULL WHERE id = $1", fromID); err != nil {
			return dberr.Wrap(err, "detach tag from group")
		}
		return dberr.Wrap(tx.Commit(ctx), "commit alias tag transaction")
	}

	var toID int64
	var toGroupID *int64
	err = tx.QueryRow(ctx, "SELECT id, group_id FROM core.tag WHERE name = $1", toName).Scan(&toID, &toGroupID)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		if err := tx.QueryRow(ctx,
			"INSERT INTO core.tag (name, tag_type) VALUES ($1, $2) RETURNING id",
			toName, fromType,
		).Scan(&toID); err != nil {
			return dberr.Wrap(err, "create alias target tag")
		}
	case err != nil:
		return dberr.Wrap(err, "resolve alias target tag")
	}

	groupID := fromGroupID
	if groupID == nil {
		groupID = toGroupID
	}
	if groupID == nil {
		var newGroupID int64
		if err := tx.QueryRow(ctx, "INSERT INTO core.tag_group DEFAULT VALUES RETURNING id").Scan(&newGroupID); err != nil {
			return dberr.Wrap(err, "allocate tag group")
		}
		groupID = &newGroupID
	}

	if _, err := tx.Exec(ctx,
		"UPDATE core.tag SET group_id = $1 WHERE id IN ($2, $3)", *groupID, fromID, toID,
	); err != nil {
		return dberr.Wrap(err, "set shared tag group")
	}

	return dberr.Wrap(tx.Commit(ctx), "commit alias tag transaction")
}

// TagAliases returns every alias->tag mapping, used to rebuild the in-memory
// alias cache on startup and after wiki-sync.
func (s *PostgresStore) TagAliases(ctx context.Context) ([]model.TagAlias, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT ta.alias, ta.tag_id, t.name
		FROM core.tag_alias ta
		JOIN core.tag t ON t.id = ta.tag_id`)
	if err != nil {
		return nil, dberr.Wrap(err, "list tag aliases")
	}
	defer rows.Close()

	var aliases []model.TagAlias
	for rows.Next() {
		var a model.TagAlias
		if err := rows.Scan(&a.Alias, &a.TagID, &a.TagName); err != nil {
			return nil, dberr.Wrap(err, "scan tag alias")
		}
		aliases = append(aliases, a)
	}
	return aliases, rows.Err()
}

// TagCompletions does a case-insensitive contains-match over name or
// alt_name, excluding hidden tags, ordered by count descending.
func (s *PostgresStore) TagCompletions(ctx context.Context, substring string, limit int) ([]model.Tag, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, name, alt_name, tag_type, count, group_id, hidden
		FROM core.tag
		WHERE NOT hidden AND (name ILIKE '%' || $1 || '%' OR alt_name ILIKE '%' || $1 || '%')
		ORDER BY count DESC
		LIMIT $2`, substring, limit)
	if err != nil {
		return nil, dberr.Wrap(err, "tag completions")
	}
	defer rows.Close()

	var tags []model.Tag
	for rows.Next() {
		tag, err := scanTag(rows)
		if err != nil {
			return nil, dberr.Wrap(err, "scan tag completion")
		}
		tags = append(tags, tag)
	}
	return tags, rows.Err()
}

// UpdateTagCount zeroes every tag's count, then recomputes it from the
// aggregate count over ElementTag — a periodic consistency repair (spec.md
// §4.1).
func (s *PostgresStore) UpdateTagCount(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE core.tag t
		SET count = sub.cnt
		FROM (
			SELECT tag_id, count(*) AS cnt FROM core.element_tag GROUP BY tag_id
		) sub
		WHERE t.id = sub.tag_id`)
	if err != nil {
		return dberr.Wrap(err, "recompute tag counts")
	}
	_, err = s.pool.Exec(ctx, `
		UPDATE core.tag SET count = 0
		WHERE id NOT IN (SELECT tag_id FROM core.element_tag)`)
	return dberr.Wrap(err, "zero orphaned tag counts")
}
