package hasher_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nikvoid/nndb-core/internal/media/hasher"
	"github.com/nikvoid/nndb-core/internal/media/signature"
)

type stubExtractor struct {
	broken bool
}

func (s stubExtractor) Extract([]byte) (signature.Vector, bool) {
	return signature.Vector{}, s.broken
}

func noAlias(context.Context, string) (string, bool) { return "", false }

func TestHasher_Hash_Passthrough(t *testing.T) {
	h := hasher.New(stubExtractor{}, noAlias)
	admission := h.Hash(context.Background(), "/pool/TAG.artist.alice/photo.gif", []byte("not a real gif"))

	assert.False(t, admission.Animated)
	assert.Equal(t, "photo.gif", admission.OrigFilename)
	assert.NotNil(t, admission.Signature)

	found := false
	for _, tag := range admission.Metadata.Tags {
		if tag.Name == "alice" {
			found = true
		}
	}
	assert.True(t, found, "expected path-derived tag 'alice'")
}

func TestHasher_Hash_Animated(t *testing.T) {
	h := hasher.New(stubExtractor{}, noAlias)
	admission := h.Hash(context.Background(), "/pool/clip.mp4", []byte("fake"))

	assert.True(t, admission.Animated)
	assert.Nil(t, admission.Signature)
}

func TestHasher_Hash_CanonicalizesTagsThroughAliasCache(t *testing.T) {
	lookup := func(_ context.Context, alias string) (string, bool) {
		if alias == "alice" {
			return "alice_(artist)", true
		}
		return "", false
	}
	h := hasher.New(stubExtractor{}, lookup)
	admission := h.Hash(context.Background(), "/pool/TAG.artist.alice/photo.gif", []byte("not a real gif"))

	var names []string
	for _, tag := range admission.Metadata.Tags {
		names = append(names, tag.Name)
	}
	assert.Contains(t, names, "alice_(artist)")
	assert.NotContains(t, names, "alice")
}

func TestIsMediaFile(t *testing.T) {
	anim, ok := hasher.IsMediaFile("MP4")
	assert.True(t, ok)
	assert.True(t, anim)

	anim, ok = hasher.IsMediaFile("png")
	assert.True(t, ok)
	assert.False(t, anim)

	_, ok = hasher.IsMediaFile("txt")
	assert.False(t, ok)
}
