package packet

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/mxsdk/mxprint/rowdata"
)

// DefaultProgressPrecision is the number of decimals kept when rounding the
// transfer progress.
const DefaultProgressPrecision = 2

var (
	ErrNoData     = errors.New("packet engine has no payload")
	ErrNotStarted = errors.New("transfer not started")
	ErrExhausted  = errors.New("payload has no more packets")
)

// MultiRowPacket yields successive framed chunks of a MultiRowData payload.
// The rows form one contiguous byte stream: a packet may carry the tail of
// one row and the head of the next, so the packet count is
// ceil(totalDataLen/usefulLen) regardless of row sizes. Only one row's bytes
// are held in memory at a time.
//
// The engine is not safe for concurrent use: the connection manager drives
// it from its dispatch goroutine.
type MultiRowPacket struct {
	data *rowdata.MultiRowData

	fh       byte
	sizeCode byte

	totalDataLen     int
	totalPacketCount int
	totalRowCount    int

	index  int // packets emitted so far
	offset int // payload bytes consumed so far

	row                     int // row last loaded; advances when the next packet needs its bytes
	rowStart                int // stream offset of that row's first byte
	rowBytes                []byte
	indexInCurrentRowPacket int // packets emitted since this row was loaded, one that crossed into it included

	usefulPacketDataLength int
	fullPacketDataLen      int

	lastFrame []byte // current packet as last framed, for NAK re-emits

	progress          float64
	ProgressPrecision int

	startTime   time.Time
	currentTime time.Time

	started bool
}

// Set arms the engine with a payload and frame header. Any previous transfer
// state is discarded.
func (p *MultiRowPacket) Set(data *rowdata.MultiRowData, fh byte) {
	p.Clear()
	p.data = data
	p.fh = fh
}

// Clear returns the engine to idle.
func (p *MultiRowPacket) Clear() {
	*p = MultiRowPacket{ProgressPrecision: p.ProgressPrecision}
}

func (p *MultiRowPacket) HasData() bool {
	return p.data.HasData()
}

func (p *MultiRowPacket) Started() bool { return p.started }

// Start begins streaming using the payload size the printer selected with
// its first request. Totals and progress are computed against that size.
func (p *MultiRowPacket) Start(sizeCode byte) error {
	if !p.HasData() {
		return ErrNoData
	}
	useful := PayloadSize(sizeCode)
	if useful == 0 {
		return fmt.Errorf("invalid size code 0x%02X", sizeCode)
	}
	p.sizeCode = sizeCode
	p.usefulPacketDataLength = useful
	p.fullPacketDataLen = headerLen + useful + trailerLen
	p.totalDataLen = p.data.TotalDataLength()
	p.totalPacketCount = (p.totalDataLen + useful - 1) / useful
	p.totalRowCount = p.data.TotalRowCount()
	p.index = 0
	p.offset = 0
	p.rowStart = 0
	p.indexInCurrentRowPacket = 0
	p.startTime = time.Now()
	p.currentTime = p.startTime
	p.started = true
	return p.loadRow(0)
}

func (p *MultiRowPacket) loadRow(i int) error {
	row, err := p.data.Row(i)
	if err != nil {
		return err
	}
	b, err := row.Data()
	if err != nil {
		return err
	}
	if len(b) != row.DataLength {
		return fmt.Errorf("row %d length mismatch: %d on disk, %d recorded", i, len(b), row.DataLength)
	}
	p.row = i
	p.rowBytes = b
	return nil
}

func (p *MultiRowPacket) CurrentRow() int { return p.row }
func (p *MultiRowPacket) IndexInCurrentRow() int { return p.indexInCurrentRowPacket }
func (p *MultiRowPacket) Index() int { return p.index }
func (p *MultiRowPacket) TotalPackets() int { return p.totalPacketCount }
func (p *MultiRowPacket) TotalDataLen() int { return p.totalDataLen }
func (p *MultiRowPacket) StartTime() time.Time { return p.startTime }
func (p *MultiRowPacket) CurrentTime() time.Time { return p.currentTime }

// HasNextPacket reports whether payload bytes remain.
func (p *MultiRowPacket) HasNextPacket() bool {
	return p.started && p.offset < p.totalDataLen
}

// AtRowBoundary reports whether the stream cursor sits exactly at the end of
// a row with further rows remaining: the pause point for
// wait-for-print-complete pacing.
func (p *MultiRowPacket) AtRowBoundary() bool {
	return p.started && p.row+1 < p.totalRowCount &&
		p.offset == p.rowStart+len(p.rowBytes)
}

// NextPacket frames and returns the next chunk, advancing the cursor across
// row boundaries as needed.
func (p *MultiRowPacket) NextPacket() ([]byte, error) {
	if !p.started {
		return nil, ErrNotStarted
	}
	if !p.HasNextPacket() {
		return nil, ErrExhausted
	}
	n := min(p.usefulPacketDataLength, p.totalDataLen-p.offset)
	payload := make([]byte, 0, n)
	for len(payload) < n {
		if p.offset+len(payload) == p.rowStart+len(p.rowBytes) {
			p.rowStart += len(p.rowBytes)
			if err := p.loadRow(p.row + 1); err != nil {
				return nil, err
			}
			p.indexInCurrentRowPacket = 0
		}
		rel := p.offset + len(payload) - p.rowStart
		take := min(n-len(payload), len(p.rowBytes)-rel)
		payload = append(payload, p.rowBytes[rel:rel+take]...)
	}
	seq := byte(p.index % 256)
	p.lastFrame = frame(p.fh, p.sizeCode, seq, payload)
	p.offset += n
	p.index++
	p.indexInCurrentRowPacket++
	p.currentTime = time.Now()
	return p.lastFrame, nil
}

// CurrentPacket re-returns the packet emitted last, byte for byte. Used to
// answer a NAK.
func (p *MultiRowPacket) CurrentPacket() []byte {
	return p.lastFrame
}

// InvalidateProgress recomputes the rounded progress fraction and reports
// whether it changed. Progress is monotone non-decreasing for one payload.
func (p *MultiRowPacket) InvalidateProgress() bool {
	if p.totalPacketCount == 0 {
		return false
	}
	prec := p.ProgressPrecision
	if prec <= 0 {
		prec = DefaultProgressPrecision
	}
	pow := math.Pow(10, float64(prec))
	next := math.Round(float64(p.index)/float64(p.totalPacketCount)*pow) / pow
	if next <= p.progress {
		return false
	}
	p.progress = next
	return true
}

func (p *MultiRowPacket) Progress() float64 { return p.progress }
