package signature

import (
	"bytes"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
)

// gridSize is chosen so 8 neighbor-diffs per cell plus a half-grid raw
// luminance pass sums to exactly [constants.SignatureLength] (8*8*8 + 8*4 =
// 544): an 8x8 grid of average-luminance samples, each compared against its
// 8 neighbors (wrapping at the edges), plus raw per-cell luminance for the
// grid's top half.
const gridSize = 8

// DefaultExtractor is a stand-in perceptual-signature algorithm. spec.md
// names the real image-signature vector library as an external
// collaborator out of this project's scope ("only their interface
// contract specified"); this type exists so the hasher and grouper have a
// concrete, swappable implementation to run against rather than depending
// on one that cannot ship here. Production deployments are expected to
// provide their own [hasher.SignatureExtractor] backed by that library.
type DefaultExtractor struct{}

// Extract decodes data as an image and derives a fixed-length gradient
// signature; broken=true if the bytes do not decode as a supported format.
func (DefaultExtractor) Extract(data []byte) (Vector, bool) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return Vector{}, true
	}

	cells := luminanceGrid(img, gridSize)

	var vec Vector
	idx := 0
	for y := 0; y < gridSize; y++ {
		for x := 0; x < gridSize; x++ {
			for _, d := range neighborOffsets {
				nx, ny := wrap(x+d.dx), wrap(y+d.dy)
				diff := cells[y][x] - cells[ny][nx]
				vec[idx] = clampInt8(diff)
				idx++
			}
		}
	}
	// 8*8*8 = 512 neighbor-diff components above; the remaining 32 slots of
	// the 544-length vector carry raw luminance for the grid's top half.
	for y := 0; y < gridSize/2; y++ {
		for x := 0; x < gridSize; x++ {
			vec[idx] = clampInt8(cells[y][x] - 128)
			idx++
		}
	}

	return vec, false
}

type offset struct{ dx, dy int }

var neighborOffsets = []offset{
	{-1, -1}, {0, -1}, {1, -1},
	{-1, 0}, {1, 0},
	{-1, 1}, {0, 1}, {1, 1},
}

func wrap(v int) int {
	if v < 0 {
		return gridSize - 1
	}
	if v >= gridSize {
		return 0
	}
	return v
}

func clampInt8(v int) int8 {
	if v > 127 {
		return 127
	}
	if v < -128 {
		return -128
	}
	return int8(v)
}

// luminanceGrid averages each cell of a gridSize x gridSize partition of
// img down to a 0-255 luminance value.
func luminanceGrid(img image.Image, n int) [][]int {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w == 0 || h == 0 {
		return make2D(n)
	}

	grid := make2D(n)
	counts := make([][]int, n)
	for i := range counts {
		counts[i] = make([]int, n)
	}

	for py := 0; py < h; py++ {
		for px := 0; px < w; px++ {
			r, g, b, _ := img.At(bounds.Min.X+px, bounds.Min.Y+py).RGBA()
			lum := (int(r>>8)*299 + int(g>>8)*587 + int(b>>8)*114) / 1000

			cellX := px * n / w
			cellY := py * n / h
			if cellX >= n {
				cellX = n - 1
			}
			if cellY >= n {
				cellY = n - 1
			}
			grid[cellY][cellX] += lum
			counts[cellY][cellX]++
		}
	}

	for y := 0; y < n; y++ {
		for x := 0; x < n; x++ {
			if counts[y][x] > 0 {
				grid[y][x] /= counts[y][x]
			}
		}
	}

	return grid
}

func make2D(n int) [][]int {
	grid := make([][]int, n)
	for i := range grid {
		grid[i] = make([]int, n)
	}
	return grid
}
