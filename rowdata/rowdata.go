// Package rowdata holds printer-ready row payloads and the source image
// descriptions they are produced from. Row bytes live on disk so that a
// multi-page job never holds more than one row in memory at a time.
package rowdata

import (
	"fmt"
	"os"
)

// RowLayoutDirection marks how row images were cut from the source.
type RowLayoutDirection int

const (
	RowLayoutVertical RowLayoutDirection = iota
	RowLayoutHorizontal
)

// RowData is a single print row, materialised on disk.
type RowData struct {
	DataPath   string
	DataLength int
	Compress   bool
}

// TotalPacketCount returns the number of chunks of usefulDataLen bytes needed
// to carry this row, the final chunk padded.
func (r *RowData) TotalPacketCount(usefulDataLen int) int {
	if usefulDataLen <= 0 || r.DataLength == 0 {
		return 0
	}
	return (r.DataLength + usefulDataLen - 1) / usefulDataLen
}

// Data reads the row bytes back from disk.
func (r *RowData) Data() ([]byte, error) {
	b, err := os.ReadFile(r.DataPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read row data: %w", err)
	}
	return b, nil
}

// MultiRowData is an ordered sequence of print rows plus the preview artefacts
// generated alongside them.
type MultiRowData struct {
	Rows               []*RowData
	ImagePaths         []string // per-row simulation previews
	ThumbPath          string
	Compress           bool
	RowLayoutDirection RowLayoutDirection
}

func (m *MultiRowData) HasData() bool {
	return m != nil && len(m.Rows) > 0 && m.TotalDataLength() > 0
}

func (m *MultiRowData) TotalRowCount() int {
	return len(m.Rows)
}

func (m *MultiRowData) TotalDataLength() int {
	var total int
	for _, r := range m.Rows {
		total += r.DataLength
	}
	return total
}

// TotalPacketCount is the packet count for the given useful payload size.
// The rows form one contiguous stream on the wire, so the count is against
// the total byte length, not per row.
func (m *MultiRowData) TotalPacketCount(usefulDataLen int) int {
	if usefulDataLen <= 0 {
		return 0
	}
	return (m.TotalDataLength() + usefulDataLen - 1) / usefulDataLen
}

func (m *MultiRowData) Row(i int) (*RowData, error) {
	if i < 0 || i >= len(m.Rows) {
		return nil, fmt.Errorf("row index %d out of range (%d rows)", i, len(m.Rows))
	}
	return m.Rows[i], nil
}

// CompressValue is the compress flag signalled to the printer: 1 when the row
// data is run-length encoded, 0 otherwise.
func (m *MultiRowData) CompressValue() int {
	if m.Compress {
		return 1
	}
	return 0
}

// LogoData is the single-blob variant of MultiRowData used for logo flash
// payloads.
type LogoData struct {
	Data     []byte
	Compress bool
}

func (l *LogoData) HasData() bool {
	return l != nil && len(l.Data) > 0
}

func (l *LogoData) CompressValue() int {
	if l.Compress {
		return 1
	}
	return 0
}

// RowImage is one source tile of a print job.
type RowImage struct {
	ImagePath string

	// Heights of white context rows padded above and below a standalone
	// tile for dithering and cropped off again before packing. Tiles of a
	// cropped image set ignore them; their dither error is carried from
	// tile to tile instead (see MultiRowImage.IsCroppedImageSet).
	TopBeyondDistance    int
	BottomBeyondDistance int
}

// MultiRowImage describes a print job before rasterisation.
type MultiRowImage struct {
	RowImages          []*RowImage
	ThumbPath          string
	RowLayoutDirection RowLayoutDirection

	// IsCroppedImageSet marks RowImages as successive tiles of one source
	// image. Dither error is carried across tile boundaries in that case.
	IsCroppedImageSet bool
}
