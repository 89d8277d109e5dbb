package tagquery_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nikvoid/nndb-core/internal/tagquery"
)

func TestParse(t *testing.T) {
	query := `abc def sad !tag grp:1 group:1 extgroup:50 тег !нетег meta:"quo ted: sequence" end`
	terms := tagquery.Parse(query)

	want := []tagquery.Term{
		{Kind: tagquery.TermTag, Positive: true, Tag: "abc"},
		{Kind: tagquery.TermTag, Positive: true, Tag: "def"},
		{Kind: tagquery.TermTag, Positive: true, Tag: "sad"},
		{Kind: tagquery.TermTag, Positive: false, Tag: "tag"},
		{Kind: tagquery.TermRaw, Raw: "grp:1"},
		{Kind: tagquery.TermGroup, GroupID: 1},
		{Kind: tagquery.TermExtGroup, GroupID: 50},
		{Kind: tagquery.TermTag, Positive: true, Tag: "тег"},
		{Kind: tagquery.TermTag, Positive: false, Tag: "нетег"},
		{Kind: tagquery.TermMeta, Meta: "quo ted: sequence"},
		{Kind: tagquery.TermTag, Positive: true, Tag: "end"},
	}

	assert.Equal(t, want, terms)
}

func TestParse_EmptyAndWhitespace(t *testing.T) {
	assert.Empty(t, tagquery.Parse(""))
	assert.Empty(t, tagquery.Parse("   \t  "))
}

func TestParse_IllegalTagCharsFallBackToRaw(t *testing.T) {
	terms := tagquery.Parse("foo,bar")
	want := []tagquery.Term{{Kind: tagquery.TermRaw, Raw: "foo,bar"}}
	assert.Equal(t, want, terms)
}
