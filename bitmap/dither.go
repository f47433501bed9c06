package bitmap

import (
	"image"
	"image/color"
	"sort"

	"github.com/disintegration/imaging"
	"github.com/makeworld-the-better-one/dither/v2"
)

// tap is one error-diffusion target relative to the current pixel.
type tap struct {
	dx, dy int
	num    int
}

// Kernel is an error-diffusion kernel. BelowRows is how many rows below the
// current one receive error, which is also the depth of the carry buffer
// exchanged between adjacent tiles.
type Kernel struct {
	Name      string
	div       int
	taps      []tap
	BelowRows int
}

var (
	// FloydSteinberg is the default error-diffusion kernel.
	FloydSteinberg = Kernel{
		Name: "floyd-steinberg",
		div:  16,
		taps: []tap{
			{1, 0, 7},
			{-1, 1, 3}, {0, 1, 5}, {1, 1, 1},
		},
		BelowRows: 1,
	}

	// Atkinson diffuses six eighths of the error, washing out highlights.
	Atkinson = Kernel{
		Name: "atkinson",
		div:  8,
		taps: []tap{
			{1, 0, 1}, {2, 0, 1},
			{-1, 1, 1}, {0, 1, 1}, {1, 1, 1},
			{0, 2, 1},
		},
		BelowRows: 2,
	}

	// Burkes is a wider single-pass variant of Stucki.
	Burkes = Kernel{
		Name: "burkes",
		div:  32,
		taps: []tap{
			{1, 0, 8}, {2, 0, 4},
			{-2, 1, 2}, {-1, 1, 4}, {0, 1, 8}, {1, 1, 4}, {2, 1, 2},
		},
		BelowRows: 1,
	}
)

var kernels = map[string]Kernel{
	FloydSteinberg.Name: FloydSteinberg,
	Atkinson.Name:       Atkinson,
	Burkes.Name:         Burkes,
}

// KernelByName returns a registered kernel. The empty name selects
// Floyd-Steinberg.
func KernelByName(name string) (Kernel, bool) {
	if name == "" {
		return FloydSteinberg, true
	}
	k, ok := kernels[name]
	return k, ok
}

// AllKernels returns a sorted list of registered kernel names.
func AllKernels() []string {
	keys := make([]string, 0, len(kernels))
	for k := range kernels {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Dither quantises the gray buffer in place to {0, 255} by error diffusion.
//
// initial seeds the pending-error rows at the top of the buffer with the
// error a preceding tile diffused past its bottom edge; the returned carry
// holds the error this tile diffused past its own bottom edge, shaped
// [BelowRows][width]. Threading the carry of tile i into tile i+1 makes the
// tile seam invisible: the concatenated output equals dithering the
// uncropped image.
//
// Accumulators are 32-bit so intermediate values up to ±255 beyond the byte
// range do not wrap; quantisation saturates.
func (k Kernel) Dither(gray []int32, width, height, threshold int, initial [][]int32) [][]int32 {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	// pending[r] is the error already diffused into row (current + r).
	depth := k.BelowRows + 1
	pending := make([][]int32, depth)
	for i := range pending {
		pending[i] = make([]int32, width)
	}
	for r := 0; r < len(initial) && r < depth; r++ {
		copy(pending[r], initial[r])
	}

	for y := range height {
		row := pending[0]
		for x := range width {
			idx := y*width + x
			old := gray[idx] + row[x]
			var quantized int32
			if old >= int32(threshold) {
				quantized = 255
			}
			gray[idx] = quantized
			err := old - quantized
			for _, t := range k.taps {
				tx := x + t.dx
				if tx < 0 || tx >= width {
					continue
				}
				if t.dy == 0 {
					row[tx] += err * int32(t.num) / int32(k.div)
				} else {
					pending[t.dy][tx] += err * int32(t.num) / int32(k.div)
				}
			}
		}
		// rotate: row done, shift pending rows up
		for i := range row {
			row[i] = 0
		}
		first := pending[0]
		copy(pending, pending[1:])
		pending[depth-1] = first
	}

	carry := make([][]int32, k.BelowRows)
	for i := range carry {
		carry[i] = make([]int32, width)
		copy(carry[i], pending[i])
	}
	return carry
}

// ThumbDitherFunc is a decorative dither for thumbnails; fidelity with the
// print path is not required there.
type ThumbDitherFunc func(img image.Image) image.Image

// diffusionThumb wraps a dither/v2 matrix the way the print previews never
// are: whole-image, no carryover.
func diffusionThumb(matrix dither.ErrorDiffusionMatrix, gamma float64) ThumbDitherFunc {
	return func(img image.Image) image.Image {
		dithered := image.NewRGBA(img.Bounds())
		d := dither.NewDitherer([]color.Color{color.Black, color.White})
		d.Matrix = matrix
		d.Draw(dithered, dithered.Bounds(), imaging.AdjustGamma(img, gamma), image.Point{})
		return dithered
	}
}

var (
	// ThumbFloydSteinberg dithers a thumbnail with Floyd-Steinberg.
	ThumbFloydSteinberg = diffusionThumb(dither.FloydSteinberg, 1.5)
	// ThumbAtkinson dithers a thumbnail with Atkinson.
	ThumbAtkinson = diffusionThumb(dither.Atkinson, 3.0)
)
