/*
Package parser implements the closed set of in-place metadata extractors
(spec.md §4.3): Passthrough, NovelAI, and Webui. Grounded in the original
implementation's backend/src/import/mod.rs dispatch and its per-format
novelai.rs/webui.rs extraction logic — the same "strongest signal wins"
ordering (Webui, then NovelAI, then Passthrough) and the same prompt-tag
splitting rules.
*/
package parser

import (
	"github.com/nikvoid/nndb-core/internal/model"
)

// Prefab is the file data the scan pipeline hands to a [Parser] at hash time
// (spec.md §4.3): the source file path plus the raw bytes already read once for
// hashing, so no parser needs to reopen the file.
type Prefab struct {
	Path string
	Data []byte
}

// Parser extracts [model.ElementMetadata] from one file's bytes.
type Parser interface {
	// Source identifies which [model.Source] this parser produces.
	Source() model.Source
	// CanParse reports whether this parser's signature is present.
	CanParse(p Prefab) bool
	// Parse extracts metadata. Only called after CanParse returned true.
	Parse(p Prefab) (model.ElementMetadata, error)
}

// variants is the closed, ordered set of parsers (spec.md §4.3 Non-goals:
// "no plugin system for new parsers at runtime" — the set is fixed at
// compile time). Order matters: Scan tries the most specific format first.
var variants = []Parser{
	webuiParser{},
	novelAIParser{},
}

// Scan decides which parser applies to element, falling back to
// Passthrough when none of the specific formats match (mirrors
// Parser::scan in the original importer).
func Scan(p Prefab) Parser {
	for _, v := range variants {
		if v.CanParse(p) {
			return v
		}
	}
	return passthroughParser{}
}
