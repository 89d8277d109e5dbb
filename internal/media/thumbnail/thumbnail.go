/*
Package thumbnail generates still and animated thumbnails (spec.md §4.5).
Still-image thumbnailing uses the standard library's image codecs (the
example pack has no image-processing dependency to reach for instead, and
resize-and-save is a narrow, self-contained operation not worth an external
dependency); animation thumbnailing always shells out to ffmpeg as an
external collaborator, exactly as the original's make_thumbnail_anim does
(backend/src/util.rs) — the spec names "the external thumbnail encoder...
a video thumbnailer invoked as a child process" as deliberately out of
scope, so this package only owns the child-process invocation, not decoding.
*/
package thumbnail

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"os"
	"os/exec"

	"github.com/nikvoid/nndb-core/internal/platform/constants"
)

// jpegQuality is the encode quality for still thumbnails; generous enough
// that thumbnail artifacting stays invisible at the bounded display size.
const jpegQuality = 90

// MakeImage reads src, downsizes it to fit within
// [constants.ThumbnailMaxWidth]x[constants.ThumbnailMaxHeight] preserving
// aspect ratio, and writes a JPEG to dst (spec.md §4.5: "write to the
// thumbnails directory as hex(hash).jpeg") — mirrors make_thumbnail_image.
func MakeImage(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return fmt.Errorf("thumbnail: read source: %w", err)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("thumbnail: decode image: %w", err)
	}

	bounds := img.Bounds()
	ratio := float64(bounds.Dx()) / float64(bounds.Dy())

	var width, height int
	if ratio > 1.0 {
		width = constants.ThumbnailMaxWidth
		height = int(float64(constants.ThumbnailMaxHeight) / ratio)
	} else {
		width = int(float64(constants.ThumbnailMaxWidth) * ratio)
		height = constants.ThumbnailMaxHeight
	}
	width = clamp(width, 1, constants.ThumbnailMaxWidth)
	height = clamp(height, 1, constants.ThumbnailMaxHeight)

	thumb := resize(img, width, height)

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("thumbnail: create destination: %w", err)
	}
	defer out.Close()

	return jpeg.Encode(out, thumb, &jpeg.Options{Quality: jpegQuality})
}

// resize performs a nearest-neighbor downscale. No general-purpose image
// resampling library appears anywhere in the example pack, so this stays a
// small direct implementation rather than reaching for an ungrounded
// dependency just for this one operation.
func resize(src image.Image, width, height int) image.Image {
	bounds := src.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, width, height))

	for y := 0; y < height; y++ {
		srcY := bounds.Min.Y + y*bounds.Dy()/height
		for x := 0; x < width; x++ {
			srcX := bounds.Min.X + x*bounds.Dx()/width
			dst.Set(x, y, src.At(srcX, srcY))
		}
	}

	return dst
}

func clamp(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

// MakeAnimation invokes ffmpeg to extract a single representative frame
// scaled to fit the thumbnail bounds, mirroring make_thumbnail_anim
// exactly (same filter graph, same -frames:v 1). ffmpegPath empty means no
// animation thumbnailing is configured, matching the original's
// CONFIG.ffmpeg_path being optional.
func MakeAnimation(ctx context.Context, ffmpegPath, src, dst string) error {
	if ffmpegPath == "" {
		return fmt.Errorf("thumbnail: ffmpeg needed to generate animation thumbnail")
	}

	filter := fmt.Sprintf(
		"thumbnail,scale=%d:%d:force_original_aspect_ratio=decrease",
		constants.ThumbnailMaxWidth, constants.ThumbnailMaxHeight,
	)

	cmd := exec.CommandContext(ctx, ffmpegPath,
		"-i", src,
		"-y", "-hide_banner", "-loglevel", "error",
		"-vf", filter,
		"-frames:v", "1",
		dst,
	)

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("thumbnail: ffmpeg: %w", err)
	}
	return nil
}
