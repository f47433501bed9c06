package mxprint

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/mxsdk/mxprint/packet"
)

// Command frame: 0xAA 0x55 | len16 | opcode16 | params | crc16, all
// big-endian. len16 counts everything after itself (opcode + params + crc);
// the CRC covers opcode + params.
var framePrefix = []byte{0xAA, 0x55}

const (
	frameLenFieldSize = 2
	frameOpcodeSize   = 2
	frameCrcSize      = 2
	frameMinSize      = len("\xAA\x55") + frameLenFieldSize + frameOpcodeSize + frameCrcSize
)

// FrameCommand builds a command frame for an opcode and raw parameter bytes.
func FrameCommand(opcode uint16, params []byte) []byte {
	buf := make([]byte, 0, frameMinSize+len(params))
	buf = append(buf, framePrefix...)
	buf = binary.BigEndian.AppendUint16(buf, uint16(frameOpcodeSize+len(params)+frameCrcSize))
	buf = binary.BigEndian.AppendUint16(buf, opcode)
	buf = append(buf, params...)
	crc := packet.CRC16(buf[len(framePrefix)+frameLenFieldSize:])
	return binary.BigEndian.AppendUint16(buf, crc)
}

// Frame is a parsed printer frame.
type Frame struct {
	Opcode uint16
	Params []byte
}

// ParseFrame parses a single framed message. The CRC must verify.
func ParseFrame(data []byte) (Frame, error) {
	var f Frame
	if len(data) < frameMinSize {
		return f, fmt.Errorf("frame too short: %d bytes", len(data))
	}
	if !bytes.HasPrefix(data, framePrefix) {
		return f, fmt.Errorf("bad frame prefix % x", data[:2])
	}
	length := int(binary.BigEndian.Uint16(data[2:4]))
	if len(data) < 4+length {
		return f, fmt.Errorf("truncated frame: want %d, have %d", 4+length, len(data)-4)
	}
	body := data[4 : 4+length]
	want := binary.BigEndian.Uint16(body[len(body)-frameCrcSize:])
	if got := packet.CRC16(body[:len(body)-frameCrcSize]); got != want {
		return f, fmt.Errorf("crc mismatch: %04x != %04x", got, want)
	}
	f.Opcode = binary.BigEndian.Uint16(body[:frameOpcodeSize])
	f.Params = body[frameOpcodeSize : len(body)-frameCrcSize]
	return f, nil
}

// FrameLen returns the total length of the frame starting at data, or 0 if
// data does not yet hold a complete header.
func FrameLen(data []byte) int {
	if len(data) < 4 || !bytes.HasPrefix(data, framePrefix) {
		return 0
	}
	return 4 + int(binary.BigEndian.Uint16(data[2:4]))
}
