/*
Package fetcher implements the closed set of external-metadata fetchers
(spec.md §4.4): currently just Pixiv. Grounded in the original
implementation's backend/src/import/pixiv.rs — same filename-pattern
support check, same cache-then-network fetch order, same tag/artist
extraction shape — adapted to net/http plus golang.org/x/time/rate and
cenkalti/backoff/v4 in place of pixivcrab's bespoke client and moka's
async cache.
*/
package fetcher

import (
	"context"

	"github.com/nikvoid/nndb-core/internal/model"
)

// PendingImport is the (element, fetcher) pair a [Fetcher] is asked about,
// mirroring model.PendingImport without pulling in the storage dependency.
type PendingImport struct {
	ElementID    int64
	OrigFilename string
}

// Fetcher retrieves metadata for a file from an external source.
type Fetcher interface {
	// Source identifies which [model.Source] this fetcher produces.
	Source() model.Source
	// Supported reports whether import's filename matches this fetcher's
	// expected naming pattern, independent of network availability.
	Supported(imp PendingImport) bool
	// Available reports whether credentials/configuration let this fetcher
	// make requests right now.
	Available() bool
	// Fetch retrieves metadata, or (nil, nil) if the remote source has no
	// record for this import (e.g. a deleted upstream post).
	Fetch(ctx context.Context, imp PendingImport) (*model.ElementMetadata, error)
}

// Variants is the closed set of fetchers wired into the pipeline (spec.md
// §4.4 Non-goals: no runtime-pluggable fetchers).
func Variants(p *Pixiv) []Fetcher {
	return []Fetcher{p}
}
