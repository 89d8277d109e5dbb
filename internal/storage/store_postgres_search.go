package storage

import (
	"context"
	"strconv"
	"strings"

	"github.com/nikvoid/nndb-core/internal/model"
	"github.com/nikvoid/nndb-core/internal/platform/dberr"
)

// SearchElements evaluates a resolved [SearchQuery] (spec.md §4.7): each
// positive tag id must be present either literally or via a tag that shares
// its group (alias expansion), negative tag ids must all be absent, and no
// hidden tag outside that positive match may be present — with no positive
// terms, any hidden tag at all excludes the element. Meta substrings are
// matched against raw_meta. A query with PositiveUnresolved set matches
// nothing, per spec.md's "unknown positive tag yields an empty result" rule.
func (s *PostgresStore) SearchElements(ctx context.Context, q SearchQuery, offset, limit, tagLimit int) (SearchResult, error) {
	if q.PositiveUnresolved {
		return SearchResult{}, nil
	}

	var where []string
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return placeholder(len(args))
	}

	where = append(where, "NOT e.broken")

	for _, id := range q.PositiveTagIDs {
		idArg := arg(id)
		where = append(where, `EXISTS (
			SELECT 1 FROM core.element_tag et
			JOIN core.tag t ON t.id = et.tag_id
			WHERE et.element_id = e.id
			AND (t.id = `+idArg+` OR t.group_id = (SELECT group_id FROM core.tag WHERE id = `+idArg+`)))`)
	}
	for _, id := range q.NegativeTagIDs {
		where = append(where, "NOT EXISTS (SELECT 1 FROM core.element_tag et WHERE et.element_id = e.id AND et.tag_id = "+arg(id)+")")
	}
	if len(q.PositiveTagIDs) == 0 {
		where = append(where, `NOT EXISTS (
			SELECT 1 FROM core.element_tag et
			JOIN core.tag t ON t.id = et.tag_id
			WHERE et.element_id = e.id AND t.hidden)`)
	} else {
		posArg := arg(q.PositiveTagIDs)
		where = append(where, `NOT EXISTS (
			SELECT 1 FROM core.element_tag et
			JOIN core.tag t ON t.id = et.tag_id
			WHERE et.element_id = e.id AND t.hidden
			AND t.id <> ALL(`+posArg+`)
			AND (t.group_id IS NULL OR t.group_id NOT IN (
				SELECT group_id FROM core.tag WHERE id = ANY(`+posArg+`) AND group_id IS NOT NULL)))`)
	}
	for _, sub := range q.MetaSubstrings {
		where = append(where, "EXISTS (SELECT 1 FROM core.metadata m WHERE m.element_id = e.id AND m.raw_meta ILIKE '%' || "+arg(sub)+" || '%')")
	}
	if q.SignatureGroup != nil {
		where = append(where, "EXISTS (SELECT 1 FROM core.signature s WHERE s.element_id = e.id AND s.group_id = "+arg(*q.SignatureGroup)+")")
	}
	if q.ExtGroup != nil {
		where = append(where, "EXISTS (SELECT 1 FROM core.metadata m WHERE m.element_id = e.id AND m.ext_group = "+arg(*q.ExtGroup)+")")
	}

	whereClause := strings.Join(where, " AND ")

	var total int
	countQuery := "SELECT count(*) FROM core.element e WHERE " + whereClause
	if err := s.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return SearchResult{}, dberr.Wrap(err, "count search results")
	}

	pageArgs := append(append([]any{}, args...), limit, offset)
	pageQuery := "SELECT e.id, e.hash, e.filename, e.orig_filename, e.broken, e.has_thumb, e.animated, e.add_time, e.file_time " +
		"FROM core.element e WHERE " + whereClause +
		" ORDER BY e.add_time DESC LIMIT " + placeholder(len(args)+1) + " OFFSET " + placeholder(len(args)+2)

	rows, err := s.pool.Query(ctx, pageQuery, pageArgs...)
	if err != nil {
		return SearchResult{}, dberr.Wrap(err, "query search results")
	}
	defer rows.Close()

	var elements []model.Element
	for rows.Next() {
		var e model.Element
		var hash []byte
		if err := rows.Scan(&e.ID, &hash, &e.Filename, &e.OrigFilename, &e.Broken, &e.HasThumb, &e.Animated, &e.AddTime, &e.FileTime); err != nil {
			return SearchResult{}, dberr.Wrap(err, "scan search result")
		}
		copy(e.Hash[:], hash)
		elements = append(elements, e)
	}
	if err := rows.Err(); err != nil {
		return SearchResult{}, dberr.Wrap(err, "iterate search results")
	}

	selArgs := append(append([]any{}, args...), tagLimit)
	selectionRows, err := s.pool.Query(ctx, `
		SELECT t.id, t.name, t.alt_name, t.tag_type, t.count, t.group_id, t.hidden
		FROM core.tag t
		JOIN core.element_tag et ON et.tag_id = t.id
		WHERE et.element_id IN (SELECT e.id FROM core.element e WHERE `+whereClause+`) AND NOT t.hidden
		GROUP BY t.id
		ORDER BY count(*) DESC
		LIMIT `+placeholder(len(args)+1), selArgs...)
	if err != nil {
		return SearchResult{}, dberr.Wrap(err, "query selection tags")
	}
	defer selectionRows.Close()

	var selection []model.Tag
	for selectionRows.Next() {
		tag, err := scanTag(selectionRows)
		if err != nil {
			return SearchResult{}, dberr.Wrap(err, "scan selection tag")
		}
		selection = append(selection, tag)
	}
	if err := selectionRows.Err(); err != nil {
		return SearchResult{}, dberr.Wrap(err, "iterate selection tags")
	}

	return SearchResult{Elements: elements, SelectionTags: selection, Total: total}, nil
}

// ElementData returns one element plus its aggregated metadata and tags.
func (s *PostgresStore) ElementData(ctx context.Context, id int64) (ElementData, error) {
	var data ElementData

	var hash []byte
	err := s.pool.QueryRow(ctx, `
		SELECT id, hash, filename, orig_filename, broken, has_thumb, animated, add_time, file_time
		FROM core.element WHERE id = $1`, id,
	).Scan(&data.Element.ID, &hash, &data.Element.Filename, &data.Element.OrigFilename,
		&data.Element.Broken, &data.Element.HasThumb, &data.Element.Animated,
		&data.Element.AddTime, &data.Element.FileTime)
	if err != nil {
		return ElementData{}, dberr.Wrap(err, "get element")
	}
	copy(data.Element.Hash[:], hash)

	tagRows, err := s.pool.Query(ctx, `
		SELECT t.id, t.name, t.alt_name, t.tag_type, t.count, t.group_id, t.hidden
		FROM core.tag t
		JOIN core.element_tag et ON et.tag_id = t.id
		WHERE et.element_id = $1
		ORDER BY t.tag_type, t.name`, id)
	if err != nil {
		return ElementData{}, dberr.Wrap(err, "list element tags")
	}
	defer tagRows.Close()
	for tagRows.Next() {
		tag, err := scanTag(tagRows)
		if err != nil {
			return ElementData{}, dberr.Wrap(err, "scan element tag")
		}
		data.Tags = append(data.Tags, tag)
	}
	if err := tagRows.Err(); err != nil {
		return ElementData{}, err
	}

	metaRows, err := s.pool.Query(ctx, `
		SELECT element_id, source, src_link, src_time, ext_group, raw_meta
		FROM core.metadata WHERE element_id = $1`, id)
	if err != nil {
		return ElementData{}, dberr.Wrap(err, "list element metadata")
	}
	defer metaRows.Close()
	for metaRows.Next() {
		var m model.Metadata
		var source string
		if err := metaRows.Scan(&m.ElementID, &source, &m.SrcLink, &m.SrcTime, &m.ExtGroup, &m.RawMeta); err != nil {
			return ElementData{}, dberr.Wrap(err, "scan element metadata")
		}
		m.Source = model.Source(source)
		data.Metadata = append(data.Metadata, m)
	}
	if err := metaRows.Err(); err != nil {
		return ElementData{}, err
	}

	return data, nil
}

// Summary returns the aggregate catalogue overview (spec.md §4.1).
func (s *PostgresStore) Summary(ctx context.Context) (model.Summary, error) {
	var sum model.Summary
	err := s.pool.QueryRow(ctx, `
		SELECT
			(SELECT count(*) FROM core.element),
			(SELECT count(*) FROM core.tag),
			(SELECT count(DISTINCT group_id) FROM core.signature WHERE group_id IS NOT NULL)`,
	).Scan(&sum.ElementCount, &sum.TagCount, &sum.GroupCount)
	return sum, dberr.Wrap(err, "get summary")
}

func placeholder(n int) string {
	return "$" + strconv.Itoa(n)
}
