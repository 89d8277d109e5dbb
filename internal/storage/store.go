/*
Package storage owns the connection pool to the catalogue database and
exposes the coarse set of operations spec.md §4.1 names. All write
operations are transactional at the operation boundary; batch operations
(AddElements) run one transaction per entry so a single bad entry cannot
abort the rest of the batch (spec.md §5 Failure isolation).

The [Store] interface is the contract the pipeline driver, coordinator, and
search evaluator depend on — [PostgresStore] is the only implementation, but
keeping the interface in this package (rather than behind the consumer, as
the teacher's domain packages do) matches the teacher's
internal/core/tag-style split of a storage-owned interface plus a
storage-owned Postgres implementation, generalized because this core has one
storage consumer (the pipeline), not many services each wanting their own
narrow view.
*/
package storage

import (
	"context"
	"time"

	"github.com/nikvoid/nndb-core/internal/model"
)

// Admission is one file ready to become an [model.Element], produced by the
// hasher (spec.md §4.3) and consumed by [Store.AddElements].
type Admission struct {
	Hash         [16]byte
	SourcePath   string // absolute path of the incoming file, for the move/copy step
	OrigFilename string
	Animated     bool
	Broken       bool
	Signature    *[544]int8
	Metadata     model.ElementMetadata
	MetaSource   model.Source
}

// FetchOutcome is the result of one fetcher attempt against one element
// (spec.md §4.4).
type FetchOutcome struct {
	Kind    FetchOutcomeKind
	Meta    *model.ElementMetadata
}

type FetchOutcomeKind int

const (
	FetchSuccess FetchOutcomeKind = iota
	FetchNotSupported
	FetchFail
)

// TagPatch describes a partial update to a [model.Tag] (spec.md §4.1
// update_tag). Nil fields are left unchanged.
type TagPatch struct {
	Name    *string
	AltName *string
	Type    *model.TagType
	Hidden  *bool
}

// SearchResult is the payload [Store.SearchElements] returns: the page of
// matched elements, the top-K selection tags for the whole matched set, and
// the total match count (spec.md §4.7).
type SearchResult struct {
	Elements      []model.Element
	SelectionTags []model.Tag
	Total         int
}

// ElementData is an element plus its normalized metadata aggregated across
// all sources (spec.md §4.1 get_element_data).
type ElementData struct {
	Element  model.Element
	Tags     []model.Tag
	Metadata []model.Metadata
}

// WikiEntry is one page of externally-sourced tag documentation (spec.md
// §4.1 add_wikis — backs the fetch_wikis workflow, spec.md §4.6).
type WikiEntry struct {
	TagName string
	Body    string
	FetchedAt time.Time
}

// SearchQuery is the resolved form of a parsed search query (spec.md §4.7):
// tag names/groups have already been looked up to ids by the caller
// ([github.com/nikvoid/nndb-core/internal/tagquery].Evaluator); storage only
// ever sees ids, never query syntax.
type SearchQuery struct {
	// PositiveTagIDs/NegativeTagIDs are resolved tag ids from + and ! terms.
	PositiveTagIDs []int64
	NegativeTagIDs []int64
	// PositiveUnresolved is true if any positive term failed to resolve to
	// an existing tag — per spec.md §4.7 the whole query then matches nothing.
	PositiveUnresolved bool
	// MetaSubstrings are meta:"..." terms, matched against raw_meta.
	MetaSubstrings []string
	// SignatureGroup restricts to group:N, if present.
	SignatureGroup *int64
	// ExtGroup restricts to extgroup:N, if present.
	ExtGroup *int64
	// Raw is the original query string, used as the cache key.
	Raw string
}

// Store is the catalogue's full operation contract (spec.md §4.1).
type Store interface {
	// AddElements admits a batch of hashed, parsed files. Returns the count
	// of newly admitted elements; duplicates are silently skipped. Each
	// entry runs in its own transaction so one failure does not abort the
	// batch (spec.md §5).
	AddElements(ctx context.Context, batch []Admission) (int, error)

	// Hashes returns every known content hash, used to prime the scan
	// workflow's in-memory dedupe set.
	Hashes(ctx context.Context) ([][16]byte, error)

	// AddTags upserts tag rows by name. If elementID is non-nil, also
	// upserts ElementTag rows, incrementing tag.count on first insertion of
	// the pair. One transaction.
	AddTags(ctx context.Context, elementID *int64, tags []model.TagSeed) ([]model.Tag, error)

	// PendingImports cross-joins every currently-available fetcher with all
	// elements, anti-joined against FetchStatus.
	PendingImports(ctx context.Context, fetchers []model.Source) ([]model.PendingImport, error)

	// AddMetadata records one fetcher outcome for one element, atomically.
	AddMetadata(ctx context.Context, elementID int64, fetcher model.Source, outcome FetchOutcome) error

	// AddToGroup creates or reuses a signature group id and updates each
	// element's signature row. Returns the group id.
	AddToGroup(ctx context.Context, elementIDs []int64, groupID *int64) (int64, error)

	// SearchElements evaluates the parsed query (spec.md §4.7) and returns a
	// page of results plus selection tags and the total match count.
	SearchElements(ctx context.Context, q SearchQuery, offset, limit, tagLimit int) (SearchResult, error)

	// ElementData returns one element plus its aggregated metadata and tags.
	ElementData(ctx context.Context, id int64) (ElementData, error)

	// AssociatedElements returns the groupings an element participates in.
	AssociatedElements(ctx context.Context, id int64) (model.AssociatedElements, error)

	// UpdateTagCount zeroes every tag's count, then recomputes it from the
	// aggregate count over ElementTag.
	UpdateTagCount(ctx context.Context) error

	// TagCompletions does a case-insensitive contains-match over tag_name or
	// alt_name, excluding hidden tags, ordered by count descending.
	TagCompletions(ctx context.Context, substring string, limit int) ([]model.Tag, error)

	// AddThumbnails sets has_thumb for the given elements.
	AddThumbnails(ctx context.Context, ids []int64) error

	// RemoveThumbnails clears has_thumb for every element.
	RemoveThumbnails(ctx context.Context) error

	// TagByID and TagByName look up a single tag.
	TagByID(ctx context.Context, id int64) (model.Tag, error)
	TagByName(ctx context.Context, name string) (model.Tag, error)

	// RemoveTagFromElement deletes one ElementTag row and decrements the
	// tag's count.
	RemoveTagFromElement(ctx context.Context, elementID, tagID int64) error

	// UpdateTag applies patch to a tag. If the name changed, the prior name
	// is inserted as an alias to this tag (conflict-skip).
	UpdateTag(ctx context.Context, id int64, patch TagPatch) error

	// AliasTag implements the alias_tag semantics of spec.md §4.1.
	AliasTag(ctx context.Context, from, to string) error

	// TagAliases returns every alias->tag mapping, used to rebuild the
	// in-memory alias cache on startup and after wiki-sync.
	TagAliases(ctx context.Context) ([]model.TagAlias, error)

	// UnmarkFailedImports clears the Fail marker so the next metadata-update
	// cycle reattempts (spec.md §7 retry_imports).
	UnmarkFailedImports(ctx context.Context) error

	// ClearGroups removes every signature group assignment in bulk.
	ClearGroups(ctx context.Context) error

	// Signatures returns every still-image element's perceptual signature
	// plus its current group assignment, the input to the group_elements
	// workflow (spec.md §4.5).
	Signatures(ctx context.Context) ([]model.Signature, error)

	// ElementsWithoutThumbnail lists elements missing a thumbnail,
	// excluding animated elements when ffmpeg is unavailable (the caller
	// passes includeAnimated=false in that case) — spec.md §4.6
	// make_thumbnails.
	ElementsWithoutThumbnail(ctx context.Context, includeAnimated bool) ([]model.Element, error)

	// AddWikis bulk-inserts externally-fetched tag documentation pages.
	AddWikis(ctx context.Context, entries []WikiEntry) error

	// Summary returns the aggregate catalogue overview.
	Summary(ctx context.Context) (model.Summary, error)
}
