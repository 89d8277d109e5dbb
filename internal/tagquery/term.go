/*
Package tagquery parses the search-query DSL (spec.md §4.7) into a sequence
of [Term] values, then resolves that sequence against a tag/alias lookup
into a [github.com/nikvoid/nndb-core/internal/storage.SearchQuery] storage
can evaluate without ever seeing query syntax.

Grounded in the original implementation's common::search module: the same
term grammar (bare tag, !negated tag, group:N, extgroup:N, meta:"..."), the
same quote-aware whitespace tokenizer, and the same "anything else is Raw
and matches nothing" fallback.
*/
package tagquery

import (
	"strconv"
	"strings"

	"github.com/nikvoid/nndb-core/pkg/slug"
)

// TermKind discriminates a parsed [Term].
type TermKind int

const (
	// TermTag is a bare tag reference; Positive is false for a !negated tag.
	TermTag TermKind = iota
	// TermGroup is a group:N signature-group reference.
	TermGroup
	// TermExtGroup is an extgroup:N external-group reference.
	TermExtGroup
	// TermMeta is a meta:"..." external-metadata substring search.
	TermMeta
	// TermRaw is text that matched none of the above and is ignored by the
	// evaluator — never an error, per spec.md's permissive query grammar.
	TermRaw
)

// Term is one parsed element of a search query.
type Term struct {
	Kind     TermKind
	Tag      string
	Positive bool
	GroupID  int64
	Meta     string
	Raw      string
}

// Parse tokenizes query into [Term]s. Tokens are whitespace-separated
// except inside a pair of double quotes, matching the original grammar's
// "meta:\"quoted text with spaces\"" support.
func Parse(query string) []Term {
	var terms []Term
	for _, tok := range tokenize(query) {
		if t, ok := parseTerm(tok); ok {
			terms = append(terms, t)
		}
	}
	return terms
}

func tokenize(query string) []string {
	var tokens []string
	var cur strings.Builder
	inQuote := false

	flush := func() {
		if cur.Len() > 0 {
			tokens = append(tokens, cur.String())
			cur.Reset()
		}
	}

	for _, ch := range query {
		switch {
		case ch == '"':
			inQuote = !inQuote
			cur.WriteRune(ch)
		case isSpace(ch) && !inQuote:
			flush()
		default:
			cur.WriteRune(ch)
		}
	}
	flush()

	return tokens
}

func isSpace(r rune) bool {
	switch r {
	case ' ', '\t', '\n', '\r', '\v', '\f':
		return true
	default:
		return false
	}
}

// parseTerm classifies one whitespace-delimited token. Returns ok=false
// only for an empty token (the tokenizer already discards those, so this
// is mostly defensive).
func parseTerm(tok string) (Term, bool) {
	if tok == "" {
		return Term{}, false
	}

	if idx := strings.Index(tok, ":"); idx >= 0 {
		left, right := tok[:idx], tok[idx+1:]
		right = strings.Trim(right, `"`)

		switch left {
		case "group":
			if id, err := strconv.ParseInt(right, 10, 64); err == nil {
				return Term{Kind: TermGroup, GroupID: id}, true
			}
		case "extgroup":
			if id, err := strconv.ParseInt(right, 10, 64); err == nil {
				return Term{Kind: TermExtGroup, GroupID: id}, true
			}
		case "meta":
			return Term{Kind: TermMeta, Meta: right}, true
		}
		return Term{Kind: TermRaw, Raw: tok}, true
	}

	// Any term containing the tag-illegal class (TAG_REX in the original
	// search module) is not a valid bare tag.
	if !slug.IsTagIllegal(tok) {
		positive := !strings.HasPrefix(tok, "!")
		name := tok
		if !positive {
			name = tok[1:]
		}
		return Term{Kind: TermTag, Positive: positive, Tag: name}, true
	}

	return Term{Kind: TermRaw, Raw: tok}, true
}
