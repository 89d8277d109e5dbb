/*
Package hasher turns raw file bytes into a [storage.Admission] (spec.md
§4.3): content hash, parser dispatch, signature extraction, and the
TAG.-prefixed path sidechannel. Grounded in the original implementation's
util::hash_file (backend/src/util.rs), generalized from its single
synchronous function into an injectable [SignatureExtractor] so the
out-of-scope perceptual-signature algorithm can be swapped in without
touching this package.
*/
package hasher

import (
	"context"
	"crypto/md5"
	"path/filepath"
	"strings"

	"github.com/nikvoid/nndb-core/internal/media/parser"
	"github.com/nikvoid/nndb-core/internal/media/signature"
	"github.com/nikvoid/nndb-core/internal/model"
	"github.com/nikvoid/nndb-core/internal/platform/constants"
	"github.com/nikvoid/nndb-core/internal/storage"
)

var (
	imageExts     = map[string]bool{"png": true, "jpeg": true, "jpg": true, "gif": true, "avif": true, "webp": true}
	animationExts = map[string]bool{"mp4": true, "mov": true, "webm": true, "m4v": true}
)

// IsMediaFile reports whether ext (without the leading dot, any case) is a
// recognized image or animation extension (spec.md §4.3 scan filter).
func IsMediaFile(ext string) (animated, ok bool) {
	e := strings.ToLower(strings.TrimPrefix(ext, "."))
	if imageExts[e] {
		return false, true
	}
	if animationExts[e] {
		return true, true
	}
	return false, false
}

// SignatureExtractor computes a perceptual signature for a still image's
// raw bytes, or reports broken=true if the image failed to decode. The
// concrete algorithm is an external collaborator (spec.md Non-goals); this
// package only depends on the contract.
type SignatureExtractor interface {
	Extract(data []byte) (sig signature.Vector, broken bool)
}

// Hasher derives [storage.Admission] records from file bytes.
type Hasher struct {
	sigExtractor SignatureExtractor
	lookupAlias  func(ctx context.Context, alias string) (string, bool)
}

// New builds a Hasher. lookupAlias resolves a parsed tag name to its
// canonical alias target (e.g.
// [github.com/nikvoid/nndb-core/internal/storage/cache.AliasCache.LookupAliasName]);
// pass a function that always returns ("", false) to disable canonicalization.
func New(sigExtractor SignatureExtractor, lookupAlias func(ctx context.Context, alias string) (string, bool)) *Hasher {
	return &Hasher{sigExtractor: sigExtractor, lookupAlias: lookupAlias}
}

// Hash computes the full admission record for one file. path is the
// absolute source path (used only for filename/extension/path-tags), data
// is its full contents (already read once by the scan producer). Every
// extracted tag name is canonicalized through the alias cache before it
// becomes part of the returned Admission (spec.md §4.3, mirroring the
// original importer's per-parse lookup_alias call).
func (h *Hasher) Hash(ctx context.Context, path string, data []byte) storage.Admission {
	hash := md5.Sum(data)
	origFilename := filepath.Base(path)
	ext := strings.TrimPrefix(filepath.Ext(origFilename), ".")

	animated, _ := IsMediaFile(ext)

	var sig *signature.Vector
	broken := false
	if !animated {
		v, isBroken := h.sigExtractor.Extract(data)
		broken = isBroken
		if !isBroken {
			sig = &v
		}
	}

	prefab := parser.Prefab{Path: path, Data: data}
	chosen := parser.Scan(prefab)

	meta, err := chosen.Parse(prefab)
	if err != nil {
		// Parser mismatch at extraction time degrades to passthrough
		// metadata rather than failing the whole admission (spec.md §7).
		meta = model.ElementMetadata{
			Tags: []model.TagSeed{model.NewTagSeed("unknown_source", nil, model.TagMetadata)},
		}
	}

	meta.Tags = append(meta.Tags, pathTags(path)...)
	h.canonicalizeTags(ctx, meta.Tags)

	return storage.Admission{
		Hash:         hash,
		SourcePath:   path,
		OrigFilename: origFilename,
		Animated:     animated,
		Broken:       broken,
		Signature:    sig,
		Metadata:     meta,
		MetaSource:   chosen.Source(),
	}
}

// canonicalizeTags rewrites each seed's name to its alias target in place,
// when one is cached, so a freshly-parsed tag resolves to the same tag row
// a search or a prior alias_tag call would.
func (h *Hasher) canonicalizeTags(ctx context.Context, tags []model.TagSeed) {
	for i, t := range tags {
		if canonical, ok := h.lookupAlias(ctx, t.Name); ok {
			tags[i].Name = canonical
		}
	}
}

// pathTags implements the TAG.<type>.<name>.<type>.<name>... directory
// sidechannel (spec.md §6), mirroring util::get_tags_from_path exactly:
// any path segment starting with the trigger contributes (type, name)
// pairs from the remaining dot-separated fields.
func pathTags(path string) []model.TagSeed {
	var tags []model.TagSeed

	for _, seg := range strings.Split(filepath.ToSlash(filepath.Dir(path)), "/") {
		if !strings.HasPrefix(seg, constants.TagTrigger) {
			continue
		}
		fields := strings.Split(strings.TrimPrefix(seg, constants.TagTrigger), ".")
		for i := 0; i+1 < len(fields); i += 2 {
			typ, name := fields[i], fields[i+1]
			if name == "" {
				continue
			}
			tags = append(tags, model.NewTagSeed(name, nil, model.ParseTagType(typ)))
		}
	}

	return tags
}
