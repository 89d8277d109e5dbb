package slug_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nikvoid/nndb-core/pkg/slug"
)

func TestTag(t *testing.T) {
	cases := map[string]string{
		"  Sunset Beach  ":  "sunset_beach",
		"Alice (artist)":    "alice_(artist)",
		"foo.bar,baz":        "foo_bar_baz",
		"___trim___":         "trim",
		"Sólo Leveling":      "solo_leveling",
		"тег":                "тег",
	}

	for in, want := range cases {
		assert.Equal(t, want, slug.Tag(in), "input %q", in)
	}
}

func TestIsTagIllegal(t *testing.T) {
	assert.False(t, slug.IsTagIllegal("alice"))
	assert.True(t, slug.IsTagIllegal("grp:1"))
	assert.True(t, slug.IsTagIllegal("foo bar"))
}
