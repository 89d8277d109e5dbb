/*
Package model defines the core data types of the ingestion pipeline
(spec.md §3 Data Model). These are plain structs shared by the storage
layer, hasher, parsers, fetchers, grouper, and pipeline driver — no package
here owns persistence; [github.com/nikvoid/nndb-core/internal/storage] does.
*/
package model

import "time"

// TagType classifies a [Tag]'s role. Unknown types fall back to [TagTag]
// (spec.md §6, path-tag sidechannel).
type TagType string

const (
	TagService   TagType = "service"
	TagArtist    TagType = "artist"
	TagCharacter TagType = "character"
	TagTitle     TagType = "title"
	TagMetadata  TagType = "metadata"
	TagTag       TagType = "tag"
)

// ParseTagType maps a raw string to a known [TagType], falling back to
// [TagTag] for anything unrecognized — used by the path-tag sidechannel
// parser (spec.md §6) where "unknown types fall back to the generic tag type".
func ParseTagType(s string) TagType {
	switch TagType(s) {
	case TagService, TagArtist, TagCharacter, TagTitle, TagMetadata, TagTag:
		return TagType(s)
	default:
		return TagTag
	}
}

// Source identifies the origin of a [Metadata] row — either an in-place
// parser or an external fetcher (spec.md §4.3/§4.4).
type Source string

const (
	SourcePassthrough Source = "passthrough"
	SourceNovelAI     Source = "novelai"
	SourceWebui       Source = "webui"
	SourcePixiv       Source = "pixiv"
)

// Element is an admitted media file (spec.md §3).
type Element struct {
	ID           int64
	Hash         [16]byte
	Filename     string
	OrigFilename string
	Broken       bool
	HasThumb     bool
	Animated     bool
	AddTime      time.Time
	FileTime     *time.Time
}

// Signature is a fixed-length perceptual fingerprint of a still image,
// associated 1:1 with an [Element]. Animated elements never have one
// (spec.md §3 invariant: Element.animated XOR signature-present).
type Signature struct {
	ElementID int64
	Vector    [544]int8
	GroupID   *int64
}

// Tag is a normalized, lowercase identifier (spec.md §3).
type Tag struct {
	ID      int64
	Name    string
	AltName *string
	Type    TagType
	Count   int
	GroupID *int64
	Hidden  bool
}

// TagAlias maps a non-canonical name to a canonical tag id/name pair.
type TagAlias struct {
	Alias   string
	TagID   int64
	TagName string
}

// Metadata is a per-(element, source) provenance row (spec.md §3).
type Metadata struct {
	ElementID int64
	Source    Source
	SrcLink   *string
	SrcTime   *time.Time
	ExtGroup  *int64
	RawMeta   *string
}

// FetchStatus records whether a fetcher applies to an element and how many
// attempts have failed (spec.md §3).
type FetchStatus struct {
	ElementID int64
	Fetcher   Source
	Supported bool
	Failed    int
}

// PendingImport is a derived (element, fetcher) pair with no [FetchStatus]
// row yet, for every currently-available fetcher (spec.md §3). Not
// persisted — computed by [github.com/nikvoid/nndb-core/internal/storage.Store.PendingImports].
type PendingImport struct {
	ElementID    int64
	OrigFilename string
	Fetcher      Source
}

// ElementMetadata is the normalized record a [Parser] or [Fetcher] produces:
// tags plus optional provenance fields (spec.md §4.3/§4.4). Named
// ElementMetadata (not just "Metadata") to distinguish the in-flight
// extraction result from the persisted [Metadata] row it becomes.
type ElementMetadata struct {
	SrcLink  *string
	SrcTime  *time.Time
	ExtGroup *int64
	RawMeta  *string
	Tags     []TagSeed
}

// TagSeed is a (name, alt_name, type) triple emitted by a parser/fetcher or
// the path-tag sidechannel, not yet resolved to a [Tag] id.
type TagSeed struct {
	Name    string
	AltName *string
	Type    TagType
}

// NewTagSeed builds a [TagSeed]. name is kept as given; storage canonicalizes
// it when the tag is written.
func NewTagSeed(name string, altName *string, typ TagType) TagSeed {
	return TagSeed{Name: name, AltName: altName, Type: typ}
}

// AssociatedElements describes the groupings an element participates in
// (spec.md §4.1 get_associated_elements): by perceptual signature and by
// each external-group identifier it carries.
type AssociatedElements struct {
	SignatureGroup *GroupMembers
	ExtGroups      []GroupMembers
}

// GroupMembers is one grouping's id and the element ids sharing it.
type GroupMembers struct {
	GroupID int64
	Members []int64
}

// Summary is the aggregate catalogue overview (spec.md §4.1 get_summary).
type Summary struct {
	ElementCount int64
	TagCount     int64
	GroupCount   int64
}
