package render

import "image/color"

// RGBA is a palette entry.
type RGBA = color.RGBA

// SpinPalette maps a shade in [0, 255] onto a blue-white-red ramp: 0 is fully
// down, 255 fully up and the midpoint white.
func SpinPalette() []RGBA {
	p := make([]RGBA, 256)
	for i := range p {
		if i < 128 {
			f := uint8(i * 2)
			p[i] = RGBA{R: f, G: f, B: 255, A: 255}
			continue
		}
		f := uint8((255 - i) * 2)
		p[i] = RGBA{R: 255, G: f, B: f, A: 255}
	}
	return p
}

// fillPaletteRGBA converts cell values into RGBA pixels using a palette. When
// the palette is empty the buffer is cleared to transparent black.
func fillPaletteRGBA(buf []byte, cells []uint8, palette []RGBA) {
	if len(palette) == 0 {
		clear(buf[:len(cells)*4])
		return
	}

	last := len(palette) - 1
	for i, c := range cells {
		idx := min(int(c), last)
		base := i * 4
		col := palette[idx]
		buf[base+0] = col.R
		buf[base+1] = col.G
		buf[base+2] = col.B
		buf[base+3] = col.A
	}
}
