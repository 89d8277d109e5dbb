package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParsePrompt(t *testing.T) {
	got := parsePrompt("1girl, (masterpiece:1.2), {best quality}, blue|red hair, simple background")
	want := []string{"1girl", "masterpiece", "best quality", "blue", "red hair", "simple background"}
	assert.Equal(t, want, got)
}

func TestTrimBraces(t *testing.T) {
	assert.Equal(t, "masterpiece", trimBraces("{{masterpiece}}"))
	assert.Equal(t, "plain", trimBraces("plain"))
	assert.Equal(t, "(mismatched]", trimBraces("(mismatched]"))
}
