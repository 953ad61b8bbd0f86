package dat

import (
	"image/color"
	"math"
)

// DatasetColor is an index into the 216 color palette used for light and
// minimap colors.
type DatasetColor uint16

// IndexToRGB converts a palette index into its color. Indexes past the end
// of the palette are clamped.
func IndexToRGB(idx int) (r, g, b uint8) {
	if idx < 0 {
		idx = 0
	}
	if idx > 215 {
		idx = 215
	}
	return uint8(idx%6) * 51, uint8(idx/6%6) * 51, uint8(idx/36%6) * 51
}

// RGB16ToIndex finds the palette index closest to a 15-bit color stored in
// the low bits of v: 5 bits of red, then green, then blue.
func RGB16ToIndex(v uint16) int {
	r := float64((v & 0x1F) << 3)
	g := float64(((v >> 5) & 0x1F) << 3)
	b := float64(((v >> 10) & 0x1F) << 3)
	idx := int(math.Round(r/51)) + int(math.Round(g/51))*6 + int(math.Round(b/51))*36
	if idx < 0 {
		return 0
	}
	if idx > 215 {
		return 215
	}
	return idx
}

// RGBA implements color.Color.
func (c DatasetColor) RGBA() (r, g, b, a uint32) {
	cr, cg, cb := IndexToRGB(int(c))
	return color.RGBA{R: cr, G: cg, B: cb, A: 0xFF}.RGBA()
}
