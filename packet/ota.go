package packet

import (
	"fmt"
	"math"
	"time"
)

// OtaPacket streams a single in-memory blob: OTA firmware images and logo
// flash payloads. Same wire framing as MultiRowPacket, no row cursor.
type OtaPacket struct {
	data []byte
	fh   byte

	sizeCode byte

	totalDataLen     int
	totalPacketCount int
	index            int

	usefulPacketDataLength int
	fullPacketDataLen      int

	lastFrame []byte

	progress          float64
	ProgressPrecision int

	startTime   time.Time
	currentTime time.Time

	started bool
}

func (p *OtaPacket) Set(data []byte, fh byte) {
	p.Clear()
	p.data = data
	p.fh = fh
}

func (p *OtaPacket) Clear() {
	*p = OtaPacket{ProgressPrecision: p.ProgressPrecision}
}

func (p *OtaPacket) HasData() bool { return len(p.data) > 0 }

func (p *OtaPacket) Started() bool { return p.started }

func (p *OtaPacket) Start(sizeCode byte) error {
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
	p.totalDataLen = len(p.data)
	p.totalPacketCount = (len(p.data) + useful - 1) / useful
	p.index = 0
	p.startTime = time.Now()
	p.currentTime = p.startTime
	p.started = true
	return nil
}

func (p *OtaPacket) HasNextPacket() bool {
	return p.started && p.index < p.totalPacketCount
}

func (p *OtaPacket) NextPacket() ([]byte, error) {
	if !p.started {
		return nil, ErrNotStarted
	}
	if !p.HasNextPacket() {
		return nil, ErrExhausted
	}
	off := p.index * p.usefulPacketDataLength
	end := min(off+p.usefulPacketDataLength, len(p.data))
	seq := byte(p.index % 256)
	p.lastFrame = frame(p.fh, p.sizeCode, seq, p.data[off:end])
	p.index++
	p.currentTime = time.Now()
	return p.lastFrame, nil
}

func (p *OtaPacket) CurrentPacket() []byte { return p.lastFrame }

func (p *OtaPacket) Index() int { return p.index }
func (p *OtaPacket) TotalPackets() int { return p.totalPacketCount }
func (p *OtaPacket) TotalDataLen() int { return p.totalDataLen }
func (p *OtaPacket) StartTime() time.Time { return p.startTime }
func (p *OtaPacket) CurrentTime() time.Time { return p.currentTime }

func (p *OtaPacket) InvalidateProgress() bool {
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

func (p *OtaPacket) Progress() float64 { return p.progress }
