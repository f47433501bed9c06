package mxprint

import (
	"bytes"
	"testing"
)

func TestFrameCommand(t *testing.T) {
	framed := FrameCommand(OpReadBattery, nil)

	// AA 55 | len=0004 | opcode=0018 | crc
	want := []byte{0xAA, 0x55, 0x00, 0x04, 0x00, 0x18}
	if !bytes.Equal(framed[:6], want) {
		t.Errorf("frame header = % x, want % x", framed[:6], want)
	}
	if len(framed) != 8 {
		t.Errorf("frame length = %d, want 8", len(framed))
	}
}

func TestFrame_roundTrip(t *testing.T) {
	tests := []struct {
		name   string
		opcode uint16
		params []byte
	}{
		{"no params", OpRestart, nil},
		{"battery reply", OpReadBattery, []byte{0x55}},
		{"parameters", OpWritePrinterParameters, []byte{0x00, 0x02, 0x58, 0x02, 0x58, 0x00, 0x00}},
		{"print notification", OpPrintCompleted, []byte{0, 1, 0, 3, 0, 2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			framed := FrameCommand(tt.opcode, tt.params)
			f, err := ParseFrame(framed)
			if err != nil {
				t.Fatalf("ParseFrame() error = %v", err)
			}
			if f.Opcode != tt.opcode {
				t.Errorf("opcode = %04x, want %04x", f.Opcode, tt.opcode)
			}
			if !bytes.Equal(f.Params, tt.params) {
				t.Errorf("params = % x, want % x", f.Params, tt.params)
			}
		})
	}
}

func TestParseFrame_rejects(t *testing.T) {
	good := FrameCommand(OpReadBattery, []byte{0x55})

	t.Run("bad prefix", func(t *testing.T) {
		bad := append([]byte{}, good...)
		bad[0] = 0xAB
		if _, err := ParseFrame(bad); err == nil {
			t.Error("accepted bad prefix")
		}
	})
	t.Run("bad crc", func(t *testing.T) {
		bad := append([]byte{}, good...)
		bad[len(bad)-1] ^= 0xFF
		if _, err := ParseFrame(bad); err == nil {
			t.Error("accepted bad crc")
		}
	})
	t.Run("truncated", func(t *testing.T) {
		if _, err := ParseFrame(good[:5]); err == nil {
			t.Error("accepted truncated frame")
		}
	})
}

func TestFrameLen(t *testing.T) {
	framed := FrameCommand(OpReadBattery, []byte{0x55})
	if got := FrameLen(framed); got != len(framed) {
		t.Errorf("FrameLen = %d, want %d", got, len(framed))
	}
	if got := FrameLen(framed[:3]); got != 0 {
		t.Errorf("FrameLen of partial header = %d, want 0", got)
	}
	if got := FrameLen([]byte{0x00, 0x01, 0x02, 0x03}); got != 0 {
		t.Errorf("FrameLen of garbage = %d, want 0", got)
	}
}
