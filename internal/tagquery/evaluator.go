package tagquery

import (
	"context"

	"github.com/nikvoid/nndb-core/internal/model"
	"github.com/nikvoid/nndb-core/internal/storage"
)

// Evaluator resolves parsed [Term]s into a storage.SearchQuery, the form
// storage.Store.SearchElements consumes (spec.md §4.7). It depends only on
// the two lookups it actually needs, supplied as plain functions so callers
// don't have to implement an interface just to wire a store and an alias
// cache together.
type Evaluator struct {
	tagByName   func(ctx context.Context, name string) (model.Tag, error)
	lookupAlias func(ctx context.Context, alias string) (int64, bool)
}

// NewEvaluator builds an [Evaluator] over storage.Store.TagByName and
// [github.com/nikvoid/nndb-core/internal/storage/cache.AliasCache.LookupAlias].
func NewEvaluator(
	tagByName func(ctx context.Context, name string) (model.Tag, error),
	lookupAlias func(ctx context.Context, alias string) (int64, bool),
) *Evaluator {
	return &Evaluator{tagByName: tagByName, lookupAlias: lookupAlias}
}

// Evaluate resolves a raw query string to a storage.SearchQuery. Unknown
// positive tags set PositiveUnresolved, per spec.md's "unknown positive tag
// matches nothing" rule; unknown negative tags are simply dropped (a
// negative term about a nonexistent tag restricts nothing).
func (e *Evaluator) Evaluate(ctx context.Context, query string) storage.SearchQuery {
	sq := storage.SearchQuery{Raw: query}

	for _, term := range Parse(query) {
		switch term.Kind {
		case TermTag:
			tag, err := e.tagByName(ctx, term.Tag)
			if err != nil {
				if aliasID, ok := e.lookupAlias(ctx, term.Tag); ok {
					if term.Positive {
						sq.PositiveTagIDs = append(sq.PositiveTagIDs, aliasID)
					} else {
						sq.NegativeTagIDs = append(sq.NegativeTagIDs, aliasID)
					}
					continue
				}
				if term.Positive {
					sq.PositiveUnresolved = true
				}
				continue
			}
			if term.Positive {
				sq.PositiveTagIDs = append(sq.PositiveTagIDs, tag.ID)
			} else {
				sq.NegativeTagIDs = append(sq.NegativeTagIDs, tag.ID)
			}
		case TermGroup:
			id := term.GroupID
			sq.SignatureGroup = &id
		case TermExtGroup:
			id := term.GroupID
			sq.ExtGroup = &id
		case TermMeta:
			sq.MetaSubstrings = append(sq.MetaSubstrings, term.Meta)
		case TermRaw:
			// matches nothing, deliberately ignored (spec.md §4.7)
		}
	}

	return sq
}
