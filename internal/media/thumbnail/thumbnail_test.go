package thumbnail_test

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nikvoid/nndb-core/internal/media/thumbnail"
)

func TestMakeImage(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.png")
	dst := filepath.Join(dir, "thumb.jpeg")

	img := image.NewRGBA(image.Rect(0, 0, 800, 400))
	for y := 0; y < 400; y++ {
		for x := 0; x < 800; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 255), G: uint8(y % 255), B: 0, A: 255})
		}
	}

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	require.NoError(t, os.WriteFile(src, buf.Bytes(), 0o644))

	require.NoError(t, thumbnail.MakeImage(src, dst))

	out, err := os.Open(dst)
	require.NoError(t, err)
	defer out.Close()

	decoded, err := jpeg.Decode(out)
	require.NoError(t, err)

	bounds := decoded.Bounds()
	assert.LessOrEqual(t, bounds.Dx(), 256)
	assert.LessOrEqual(t, bounds.Dy(), 256)
	assert.Equal(t, 256, bounds.Dx(), "2:1 aspect ratio should hit the width cap")
}

func TestMakeAnimation_NoFFmpegConfigured(t *testing.T) {
	err := thumbnail.MakeAnimation(context.Background(), "", "src.mp4", "dst.png")
	assert.Error(t, err)
}
