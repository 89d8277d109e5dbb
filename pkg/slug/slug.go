/*
Package slug canonicalizes free-form strings into tag identifiers
(spec.md §3 Tag invariant: "whitespace and punctuation collapsed to
underscore; leading/trailing underscores trimmed").

Transformation Pipeline:

 1. NFD Normalization: Decomposes accented chars (é -> e + accent).
 2. Accent Stripping: Removes combining marks, keeping non-Latin scripts
    (e.g. Cyrillic, CJK) intact — tag names are not restricted to ASCII.
 3. Lowercasing.
 4. Sanitization: Collapses runs of whitespace/punctuation into "_".
 5. Clean-up: Trims leading/trailing underscores.
*/
package slug

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// tagIllegal mirrors the original backend's TAG_REX: whitespace and a fixed
// punctuation class collapse to a single separator.
var tagIllegal = regexp.MustCompile(`[\s:,.@#$*'"` + "`" + `|%{}\[\]]+`)

// Tag converts an arbitrary Unicode string into a canonical tag name.
func Tag(s string) string {
	t := transform.Chain(norm.NFD, transform.RemoveFunc(isMn))
	result, _, _ := transform.String(t, s)

	result = strings.ToLower(result)
	result = tagIllegal.ReplaceAllString(result, "_")
	result = strings.Trim(result, "_")

	return result
}

// IsTagIllegal reports whether s contains the tag-illegal character class,
// used by the search query parser (spec.md §4.7) to decide whether a term
// should be treated as a tag or kept raw.
func IsTagIllegal(s string) bool {
	return tagIllegal.MatchString(s)
}

// isMn reports whether r is a Unicode non-spacing mark (e.g. accents).
func isMn(r rune) bool {
	return unicode.Is(unicode.Mn, r)
}
