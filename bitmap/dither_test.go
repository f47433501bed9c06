package bitmap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// gradient fills a width x height buffer with a vertical gray ramp.
func gradient(width, height int) []int32 {
	g := make([]int32, width*height)
	for y := range height {
		v := int32(y * 255 / max(height-1, 1))
		for x := range width {
			g[y*width+x] = v
		}
	}
	return g
}

// TestDither_seamFreedom splits a 552x1000 gradient into two 552x500 tiles
// and threads the error carry of the first into the second. The
// concatenated output must equal dithering the uncropped image, pixel for
// pixel.
func TestDither_seamFreedom(t *testing.T) {
	const w, h = PrintHeadWidth, 1000

	for _, k := range []Kernel{FloydSteinberg, Atkinson, Burkes} {
		t.Run(k.Name, func(t *testing.T) {
			whole := gradient(w, h)
			k.Dither(whole, w, h, DefaultThreshold, nil)
			wantBinary := Binarize(whole, DefaultThreshold)

			top := gradient(w, h)[:w*h/2]
			bottom := gradient(w, h)[w*h/2:]
			carry := k.Dither(top, w, h/2, DefaultThreshold, nil)
			require.Len(t, carry, k.BelowRows)
			k.Dither(bottom, w, h/2, DefaultThreshold, carry)

			got := Binarize(append(top, bottom...), DefaultThreshold)
			assert.Equal(t, wantBinary, got, "tile seam visible for %s", k.Name)
		})
	}
}

func TestDither_quantisesToBlackAndWhite(t *testing.T) {
	const w, h = 64, 64
	g := gradient(w, h)
	FloydSteinberg.Dither(g, w, h, DefaultThreshold, nil)
	for i, v := range g {
		if v != 0 && v != 255 {
			t.Fatalf("pixel %d = %d, want 0 or 255", i, v)
		}
	}
}

// TestDither_preservesInkBudget: error diffusion keeps the overall density
// close to the source. A flat mid-gray at 25% must produce roughly 75% ink
// under threshold semantics (dark = ink).
func TestDither_preservesInkBudget(t *testing.T) {
	const w, h = 100, 100
	g := make([]int32, w*h)
	for i := range g {
		g[i] = 64 // dark-ish gray
	}
	FloydSteinberg.Dither(g, w, h, DefaultThreshold, nil)
	binary := Binarize(g, DefaultThreshold)
	var ink int
	for _, b := range binary {
		ink += int(b)
	}
	frac := float64(ink) / float64(len(binary))
	assert.InDelta(t, 1.0-64.0/255.0, frac, 0.03, "ink fraction drifted")
}

func TestKernelByName(t *testing.T) {
	tests := []struct {
		name   string
		want   string
		wantOK bool
	}{
		{"", "floyd-steinberg", true},
		{"floyd-steinberg", "floyd-steinberg", true},
		{"atkinson", "atkinson", true},
		{"burkes", "burkes", true},
		{"sierra", "", false},
	}
	for _, tt := range tests {
		k, ok := KernelByName(tt.name)
		if ok != tt.wantOK || (ok && k.Name != tt.want) {
			t.Errorf("KernelByName(%q) = %q, %v", tt.name, k.Name, ok)
		}
	}
}

func TestBinarize(t *testing.T) {
	g := []int32{0, 127, 128, 255}
	assert.Equal(t, []uint8{1, 1, 0, 0}, Binarize(g, 128))
}
