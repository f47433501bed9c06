package bitmap

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mxsdk/mxprint/fileman"
	"github.com/mxsdk/mxprint/rowdata"
)

func writePNG(t *testing.T, path string, img image.Image) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
}

// rampImage is a PrintHeadWidth-wide vertical gradient.
func rampImage(height int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, PrintHeadWidth, height))
	for y := range height {
		v := uint8(y * 255 / max(height-1, 1))
		for x := range PrintHeadWidth {
			img.Set(x, y, color.RGBA{v, v, v, 255})
		}
	}
	return img
}

func TestBitmapToMultiRowData(t *testing.T) {
	dir := t.TempDir()
	fm, err := fileman.New(filepath.Join(dir, "cache"))
	require.NoError(t, err)

	imgPath := filepath.Join(dir, "src.png")
	writePNG(t, imgPath, rampImage(64))

	mri := &rowdata.MultiRowImage{
		RowImages: []*rowdata.RowImage{{ImagePath: imgPath}},
	}
	data, err := BitmapToMultiRowData(fm, mri, Options{
		Dithering:  true,
		Compress:   true,
		Simulation: true,
	})
	require.NoError(t, err)

	require.Len(t, data.Rows, 1)
	assert.True(t, data.Compress)
	assert.Equal(t, 1, data.CompressValue())
	require.Len(t, data.ImagePaths, 1)

	rd := data.Rows[0]
	b, err := rd.Data()
	require.NoError(t, err)
	assert.Equal(t, rd.DataLength, len(b))

	// decompressed row must be the packed size: 552 cols x ceil(64/8) bytes
	raw := Decompress(b)
	assert.Len(t, raw, PrintHeadWidth*8)

	// preview must exist and decode
	f, err := os.Open(data.ImagePaths[0])
	require.NoError(t, err)
	defer f.Close()
	img, err := png.Decode(f)
	require.NoError(t, err)
	assert.Equal(t, PrintHeadWidth, img.Bounds().Dx())
	assert.Equal(t, 64, img.Bounds().Dy())
}

// TestBitmapToMultiRowData_croppedSet: two tiles of one gradient with error
// carry must reproduce the uncropped dither. The packed rows concatenated
// and unpacked equal the whole image's binary output.
func TestBitmapToMultiRowData_croppedSet(t *testing.T) {
	dir := t.TempDir()
	fm, err := fileman.New(filepath.Join(dir, "cache"))
	require.NoError(t, err)

	const h = 200
	whole := rampImage(h)
	wholePath := filepath.Join(dir, "whole.png")
	writePNG(t, wholePath, whole)

	topPath := filepath.Join(dir, "top.png")
	bottomPath := filepath.Join(dir, "bottom.png")
	top := image.NewRGBA(image.Rect(0, 0, PrintHeadWidth, h/2))
	bottom := image.NewRGBA(image.Rect(0, 0, PrintHeadWidth, h/2))
	for y := range h / 2 {
		for x := range PrintHeadWidth {
			top.Set(x, y, whole.At(x, y))
			bottom.Set(x, y, whole.At(x, y+h/2))
		}
	}
	writePNG(t, topPath, top)
	writePNG(t, bottomPath, bottom)

	opts := Options{Dithering: true}

	wholeData, err := BitmapToMultiRowData(fm, &rowdata.MultiRowImage{
		RowImages:         []*rowdata.RowImage{{ImagePath: wholePath}},
		IsCroppedImageSet: true,
	}, opts)
	require.NoError(t, err)

	tiledData, err := BitmapToMultiRowData(fm, &rowdata.MultiRowImage{
		RowImages: []*rowdata.RowImage{
			{ImagePath: topPath, BottomBeyondDistance: 8},
			{ImagePath: bottomPath, TopBeyondDistance: 8},
		},
		IsCroppedImageSet: true,
	}, opts)
	require.NoError(t, err)

	wantPacked, err := wholeData.Rows[0].Data()
	require.NoError(t, err)
	want := UnpackColumnMajor(wantPacked, PrintHeadWidth, h)

	topPacked, err := tiledData.Rows[0].Data()
	require.NoError(t, err)
	bottomPacked, err := tiledData.Rows[1].Data()
	require.NoError(t, err)
	got := append(
		UnpackColumnMajor(topPacked, PrintHeadWidth, h/2),
		UnpackColumnMajor(bottomPacked, PrintHeadWidth, h/2)...)

	assert.Equal(t, want, got, "tile seam visible in factory output")
}

func TestResizeToHead(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 1104, 100))
	resized := ResizeToHead(img)
	assert.Equal(t, PrintHeadWidth, resized.Bounds().Dx())
	assert.Equal(t, 50, resized.Bounds().Dy())

	same := ResizeToHead(rampImage(10))
	assert.Equal(t, 10, same.Bounds().Dy())
}

func TestSimulationFromPacked(t *testing.T) {
	binary := []uint8{1, 0, 0, 1}
	packed := PackColumnMajor(binary, 2, 2)
	img := SimulationFromPacked(packed, 2, 2, false, rowdata.RowLayoutVertical)
	g := img.(*image.Gray)
	assert.Equal(t, uint8(0), g.GrayAt(0, 0).Y)
	assert.Equal(t, uint8(255), g.GrayAt(1, 0).Y)
	assert.Equal(t, uint8(255), g.GrayAt(0, 1).Y)
	assert.Equal(t, uint8(0), g.GrayAt(1, 1).Y)
}
