package bitmap

import (
	"fmt"
	"image"
	"log/slog"
	"os"

	"github.com/disintegration/imaging"

	"github.com/mxsdk/mxprint/fileman"
	"github.com/mxsdk/mxprint/rowdata"
)

// Options control the bitmap-to-row-data pipeline.
type Options struct {
	Threshold         int  // binarization threshold, DefaultThreshold when 0
	ClearBackground   bool // transparent pixels become white
	Dithering         bool
	Kernel            Kernel // zero value selects Floyd-Steinberg
	Compress          bool
	FlipHorizontally  bool
	Simulation        bool // write per-row preview images
	ThumbToSimulation bool // replace the thumb with the first row's preview
}

func (o *Options) kernel() Kernel {
	if o.Kernel.Name == "" {
		return FloydSteinberg
	}
	return o.Kernel
}

func (o *Options) threshold() int {
	if o.Threshold <= 0 {
		return DefaultThreshold
	}
	return o.Threshold
}

// BitmapToMultiRowData runs the full pipeline over every row image: load,
// orient, grayscale, dither, binarize, pack, compress, persist. For a cropped
// image set the dither error is carried across row boundaries, so the
// concatenated rows print without seams.
func BitmapToMultiRowData(fm *fileman.Manager, mri *rowdata.MultiRowImage, opts Options) (*rowdata.MultiRowData, error) {
	if len(mri.RowImages) == 0 {
		return nil, fmt.Errorf("no row images to process")
	}
	out := &rowdata.MultiRowData{
		Compress:           opts.Compress,
		RowLayoutDirection: mri.RowLayoutDirection,
		ThumbPath:          mri.ThumbPath,
	}
	var carry [][]int32
	for i, ri := range mri.RowImages {
		rd, preview, nextCarry, err := processRow(fm, ri, mri, opts, carry)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		carry = nextCarry
		out.Rows = append(out.Rows, rd)
		if preview != "" {
			out.ImagePaths = append(out.ImagePaths, preview)
			if opts.ThumbToSimulation && i == 0 {
				out.ThumbPath = preview
			}
		}
	}
	slog.Debug("row data generated",
		"rows", len(out.Rows), "bytes", out.TotalDataLength(), "compress", out.Compress)
	return out, nil
}

func processRow(fm *fileman.Manager, ri *rowdata.RowImage, mri *rowdata.MultiRowImage, opts Options, carry [][]int32) (*rowdata.RowData, string, [][]int32, error) {
	img, err := LoadImage(ri.ImagePath)
	if err != nil {
		return nil, "", nil, err
	}
	if opts.FlipHorizontally {
		img = Mirror(img)
	}
	img = ResizeToHead(img)

	gray, w, h := ToGray(img, opts.ClearBackground)

	var nextCarry [][]int32
	if opts.Dithering {
		k := opts.kernel()
		if mri.IsCroppedImageSet {
			// Adjacent tiles of one source: thread the carried error row
			// instead of synthesising context, so the output matches an
			// uncropped dither exactly.
			nextCarry = k.Dither(gray, w, h, opts.threshold(), carry)
		} else {
			gray, h = padContext(gray, w, h, ri.TopBeyondDistance, ri.BottomBeyondDistance, k, opts.threshold())
		}
	}
	binary := Binarize(gray, opts.threshold())

	var packed []byte
	if mri.RowLayoutDirection == rowdata.RowLayoutHorizontal {
		packed = PackRowMajor(binary, w, h)
	} else {
		packed = PackColumnMajor(binary, w, h)
	}
	if opts.Compress {
		packed = Compress(packed)
	}

	path := fm.NewDataFile()
	if err := os.WriteFile(path, packed, 0o644); err != nil {
		return nil, "", nil, fmt.Errorf("failed to persist row data: %w", err)
	}
	rd := &rowdata.RowData{DataPath: path, DataLength: len(packed), Compress: opts.Compress}

	var preview string
	if opts.Simulation {
		preview = fm.NewImageFile()
		if err := SavePNG(SimulationImage(binary, w, h), preview); err != nil {
			return nil, "", nil, err
		}
	}
	return rd, preview, nextCarry, nil
}

// padContext extends the gray buffer with white context rows above and below,
// dithers the padded buffer and crops the context back off. The context rows
// soak up boundary error for standalone tiles.
func padContext(gray []int32, w, h, top, bottom int, k Kernel, threshold int) ([]int32, int) {
	if top < 0 {
		top = 0
	}
	if bottom < 0 {
		bottom = 0
	}
	padded := make([]int32, (top+h+bottom)*w)
	for i := range top * w {
		padded[i] = white
	}
	copy(padded[top*w:], gray)
	for i := (top + h) * w; i < len(padded); i++ {
		padded[i] = white
	}
	k.Dither(padded, w, top+h+bottom, threshold, nil)
	return padded[top*w : (top+h)*w], h
}

// Thumbnail renders a decorative dithered thumbnail of the source image,
// fitWidth pixels wide.
func Thumbnail(img image.Image, fitWidth int, dfn ThumbDitherFunc) image.Image {
	if fitWidth > 0 && img.Bounds().Dx() > fitWidth {
		img = imaging.Resize(img, fitWidth, 0, imaging.Lanczos)
	}
	if dfn == nil {
		dfn = ThumbFloydSteinberg
	}
	return dfn(img)
}
