package bitmap

// Packing of 1-bit pixels into the "data72" wire layout. Column-major is the
// order vertical-head printers consume; row-major serves horizontal row
// layouts. In both, the first pixel of a group of eight lands in bit 7.

// PackColumnMajor packs binary pixels column by column: bit (7 - row%8) of
// byte (col*ceil(h/8) + row/8) encodes pixel (col, row).
func PackColumnMajor(binary []uint8, width, height int) []byte {
	bytesPerCol := (height + 7) / 8
	out := make([]byte, width*bytesPerCol)
	for x := range width {
		for y := range height {
			if binary[y*width+x] != 0 {
				out[x*bytesPerCol+y/8] |= 1 << (7 - y%8)
			}
		}
	}
	return out
}

// PackRowMajor packs binary pixels row by row: bit (7 - col%8) of byte
// (row*ceil(w/8) + col/8) encodes pixel (col, row).
func PackRowMajor(binary []uint8, width, height int) []byte {
	bytesPerRow := (width + 7) / 8
	out := make([]byte, height*bytesPerRow)
	for y := range height {
		for x := range width {
			if binary[y*width+x] != 0 {
				out[y*bytesPerRow+x/8] |= 1 << (7 - x%8)
			}
		}
	}
	return out
}

// UnpackColumnMajor is the printer-side decode of PackColumnMajor, used by
// the simulation preview and tests.
func UnpackColumnMajor(data []byte, width, height int) []uint8 {
	bytesPerCol := (height + 7) / 8
	binary := make([]uint8, width*height)
	for x := range width {
		for y := range height {
			if data[x*bytesPerCol+y/8]&(1<<(7-y%8)) != 0 {
				binary[y*width+x] = 1
			}
		}
	}
	return binary
}

// UnpackRowMajor is the printer-side decode of PackRowMajor.
func UnpackRowMajor(data []byte, width, height int) []uint8 {
	bytesPerRow := (width + 7) / 8
	binary := make([]uint8, width*height)
	for y := range height {
		for x := range width {
			if data[y*bytesPerRow+x/8]&(1<<(7-x%8)) != 0 {
				binary[y*width+x] = 1
			}
		}
	}
	return binary
}
