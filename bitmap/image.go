// Package bitmap converts source bitmaps into packed 1-bit print data:
// grayscale, error-diffusion dithering with cross-tile error carryover,
// binarization, column/row-major packing, run-length compression and
// simulation previews.
package bitmap

import (
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg"
	_ "image/png"
	"os"

	"github.com/disintegration/imaging"
	"golang.org/x/image/draw"
)

const (
	// PrintHeadWidth is the fixed pixel width of the print head.
	PrintHeadWidth = 552

	// DefaultThreshold is the default threshold for dark pixels.
	DefaultThreshold = 128
)

// white is the gray value transparent pixels take when the background is
// cleared.
const white = 255

// LoadImage decodes an image file.
func LoadImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image file: %w", err)
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	return img, nil
}

// ColorToGray converts a color to its 8-bit luminance using the ITU-R 601
// weights.
func ColorToGray(c color.Color) uint8 {
	if gray, ok := c.(color.Gray); ok {
		return gray.Y
	}
	r, g, b, _ := c.RGBA()
	gray := (299*r + 587*g + 114*b) / 1000
	return uint8(gray >> 8)
}

// ResizeToHead scales the image so its width equals the print head width,
// preserving aspect ratio. Images already at head width pass through.
func ResizeToHead(img image.Image) image.Image {
	if img.Bounds().Dx() == PrintHeadWidth {
		return img
	}
	targetHeight := (img.Bounds().Dy()*PrintHeadWidth + img.Bounds().Dx()/2) / img.Bounds().Dx()
	if targetHeight < 1 {
		targetHeight = 1
	}
	resized := image.NewRGBA(image.Rect(0, 0, PrintHeadWidth, targetHeight))
	draw.CatmullRom.Scale(resized, resized.Bounds(), img, img.Bounds(), draw.Over, nil)
	return resized
}

// Mirror flips the image along the vertical axis.
func Mirror(img image.Image) image.Image {
	return imaging.FlipH(img)
}

// ToGray flattens the image into a row-major buffer of 8-bit gray values held
// in 32-bit cells, the working representation of the dither stage. When
// clearBackground is set, transparent pixels become white instead of
// premultiplied black.
func ToGray(img image.Image, clearBackground bool) ([]int32, int, int) {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	gray := make([]int32, w*h)
	for y := range h {
		for x := range w {
			c := img.At(bounds.Min.X+x, bounds.Min.Y+y)
			_, _, _, a := c.RGBA()
			if a == 0 && clearBackground {
				gray[y*w+x] = white
				continue
			}
			gray[y*w+x] = int32(ColorToGray(c))
		}
	}
	return gray, w, h
}

// Binarize maps a gray buffer to 1-bit values: 1 (ink) below the threshold,
// 0 otherwise.
func Binarize(gray []int32, threshold int) []uint8 {
	binary := make([]uint8, len(gray))
	for i, g := range gray {
		if int(g) < threshold {
			binary[i] = 1
		}
	}
	return binary
}
