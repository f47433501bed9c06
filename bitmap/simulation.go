package bitmap

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"

	"github.com/mxsdk/mxprint/rowdata"
)

// SimulationImage renders binary pixels back into a black-and-white image:
// exactly what the print head will lay down, dither pattern included.
func SimulationImage(binary []uint8, width, height int) image.Image {
	img := image.NewGray(image.Rect(0, 0, width, height))
	for y := range height {
		for x := range width {
			if binary[y*width+x] != 0 {
				img.SetGray(x, y, color.Gray{Y: 0})
			} else {
				img.SetGray(x, y, color.Gray{Y: 255})
			}
		}
	}
	return img
}

// SimulationFromPacked reconstructs the preview from packed (and possibly
// compressed) row bytes by running the printer-side decode.
func SimulationFromPacked(data []byte, width, height int, compressed bool, dir rowdata.RowLayoutDirection) image.Image {
	if compressed {
		data = Decompress(data)
	}
	var binary []uint8
	if dir == rowdata.RowLayoutHorizontal {
		binary = UnpackRowMajor(data, width, height)
	} else {
		binary = UnpackColumnMajor(data, width, height)
	}
	return SimulationImage(binary, width, height)
}

// SavePNG writes an image to path.
func SavePNG(img image.Image, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create preview file: %w", err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		return fmt.Errorf("failed to encode preview: %w", err)
	}
	return nil
}
