package bitmap

import (
	"bytes"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCompress(t *testing.T) {
	tests := []struct {
		name string
		in   []byte
		want []byte
	}{
		{
			name: "empty",
			in:   nil,
			want: []byte{},
		},
		{
			name: "lone byte",
			in:   []byte{0x42},
			want: []byte{0x01, 0x42},
		},
		{
			name: "short run",
			in:   []byte{0xFF, 0xFF},
			want: []byte{0x02, 0xFF},
		},
		{
			name: "mixed",
			in:   []byte{0x00, 0x00, 0x00, 0x07, 0xFF, 0xFF},
			want: []byte{0x03, 0x00, 0x01, 0x07, 0x02, 0xFF},
		},
		{
			name: "run splits at 255",
			in:   bytes.Repeat([]byte{0xAA}, 300),
			want: []byte{0xFF, 0xAA, 0x2D, 0xAA},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Compress(tt.in))
		})
	}
}

// TestCompress_roundTrip: the firmware decoder (mirrored by Decompress) must
// reconstruct any input exactly.
func TestCompress_roundTrip(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	inputs := [][]byte{
		bytes.Repeat([]byte{0x00}, 4096), // blank row
		bytes.Repeat([]byte{0xFF}, 255),
		bytes.Repeat([]byte{0xFF}, 256),
	}
	// dithered-looking data: short runs with noise
	noisy := make([]byte, 2048)
	for i := range noisy {
		noisy[i] = byte(r.Intn(4)) * 0x55
	}
	inputs = append(inputs, noisy)
	for i, in := range inputs {
		out := Decompress(Compress(in))
		if len(in) == 0 {
			assert.Empty(t, out)
			continue
		}
		assert.Equal(t, in, out, "input %d", i)
	}
}
