package packet

import "testing"

func TestCRC16(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want uint16
	}{
		{
			name: "check string",
			data: []byte("123456789"),
			want: 0x31C3, // CRC-16/XMODEM check value
		},
		{
			name: "empty",
			data: nil,
			want: 0x0000,
		},
		{
			name: "single zero byte",
			data: []byte{0x00},
			want: 0x0000,
		},
		{
			name: "single 0xFF",
			data: []byte{0xFF},
			want: 0x1EF0,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CRC16(tt.data); got != tt.want {
				t.Errorf("CRC16() = %04x, want %04x", got, tt.want)
			}
		})
	}
}

func TestCRC16_framedRoundTrip(t *testing.T) {
	// every framed packet must verify, whatever the payload
	payloads := [][]byte{
		{},
		{0x00},
		{0xFF, 0x00, 0xFF},
		make([]byte, 128),
	}
	for i := range 256 {
		payloads = append(payloads, []byte{byte(i), byte(255 - i), byte(i)})
	}
	for _, p := range payloads {
		framed := frame(0, SOH, 0, p)
		if !Verify(framed) {
			t.Errorf("Verify(frame(% x)) = false, want true", p)
		}
	}
}

func TestVerify_corruption(t *testing.T) {
	framed := frame(0, SOH, 3, []byte{1, 2, 3})
	for i := range framed {
		bad := make([]byte, len(framed))
		copy(bad, framed)
		bad[i] ^= 0x01
		if Verify(bad) {
			// flipping the fh byte is not covered by the CRC but breaks
			// nothing structural; every other flip must be caught
			if i == 0 {
				continue
			}
			t.Errorf("Verify accepted corruption at byte %d", i)
		}
	}
}
