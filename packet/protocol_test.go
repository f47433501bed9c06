package packet

import (
	"bytes"
	"testing"
)

func TestPayloadSize(t *testing.T) {
	want := map[byte]int{
		SOH: 128, STX: 512, STXA: 1024, STXB: 2048,
		STXC: 5120, STXD: 10240, STXE: 124,
	}
	for code, size := range want {
		if got := PayloadSize(code); got != size {
			t.Errorf("PayloadSize(0x%02X) = %d, want %d", code, got, size)
		}
	}
	if got := PayloadSize(0x42); got != 0 {
		t.Errorf("PayloadSize(0x42) = %d, want 0", got)
	}
}

func TestControlClassification(t *testing.T) {
	tests := []struct {
		name                string
		data                []byte
		isReq, isNak, isEot bool
	}{
		{"plain request", []byte{ReqData}, true, false, false},
		{"request with size code", []byte{ReqData, STX}, true, false, false},
		{"nak", []byte{NAK}, false, true, false},
		{"nak beside request", []byte{ReqData, NAK}, false, true, false},
		{"eot", []byte{EOT}, false, false, true},
		{"eot wins over nak", []byte{NAK, EOT}, false, false, true},
		{"eot wins over request", []byte{ReqData, EOT}, false, false, true},
		{"noise", []byte{0x00, 0x01}, false, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRequestData(tt.data); got != tt.isReq {
				t.Errorf("IsRequestData(% x) = %v, want %v", tt.data, got, tt.isReq)
			}
			if got := IsNAK(tt.data); got != tt.isNak {
				t.Errorf("IsNAK(% x) = %v, want %v", tt.data, got, tt.isNak)
			}
			if got := IsEOT(tt.data); got != tt.isEot {
				t.Errorf("IsEOT(% x) = %v, want %v", tt.data, got, tt.isEot)
			}
		})
	}
}

func TestFrame_layout(t *testing.T) {
	payload := []byte{0xDE, 0xAD, 0xBE, 0xEF}
	framed := frame(0x07, STXE, 0xAB, payload)

	if len(framed) != 4+124+2 {
		t.Fatalf("frame length = %d, want %d", len(framed), 4+124+2)
	}
	if framed[0] != 0x07 || framed[1] != STXE {
		t.Errorf("header = % x, want fh=07 size=%02x", framed[:2], STXE)
	}
	if framed[2] != 0xAB || framed[3] != ^byte(0xAB) {
		t.Errorf("seq bytes = % x, want ab 54", framed[2:4])
	}
	if !bytes.Equal(framed[4:8], payload) {
		t.Errorf("payload = % x, want % x", framed[4:8], payload)
	}
	// padded tail must be the filler byte
	for i := 8; i < len(framed)-2; i++ {
		if framed[i] != padByte {
			t.Fatalf("filler at %d = %02x, want %02x", i, framed[i], padByte)
		}
	}
	if !Verify(framed) {
		t.Error("framed packet does not verify")
	}
	if got := Payload(framed); len(got) != 124 {
		t.Errorf("Payload length = %d, want 124", len(got))
	}
}

func TestSizeCodeIn(t *testing.T) {
	if code, ok := SizeCodeIn([]byte{ReqData, STX}); !ok || code != STX {
		t.Errorf("SizeCodeIn(N STX) = %02x %v", code, ok)
	}
	if _, ok := SizeCodeIn([]byte{ReqData}); ok {
		t.Error("SizeCodeIn(N) found a size code in none")
	}
}
