package spr

// This file contains the run-length pixel codec shared by spr and pic
// blocks.

import (
	"encoding/binary"
	"image"
	"image/color"

	"github.com/golang/glog"
)

// Size is the width and height of every sprite.
const Size = 32

// transparentBelow is the alpha under which a pixel is written as
// transparent in the standard (RGB) variant.
const transparentBelow = 10

func bytesPerPixel(transparency bool) int {
	if transparency {
		return 4
	}
	return 3
}

// DecodePixels decodes the run-length encoded pixels of one sprite.
//
// The data is a sequence of (transparent u16, colored u16) pairs, each
// followed by the colored pixels: RGB, or RGBA when transparency is set.
// Pixels are laid out row by row. Runs past the end of the canvas are
// ignored, as are fewer than four trailing bytes. A colored run cut short
// ends decoding, and the pixels drawn so far are returned.
func DecodePixels(data []byte, transparency bool) (*image.NRGBA, error) {
	img := image.NewNRGBA(image.Rect(0, 0, Size, Size))
	bpp := bytesPerPixel(transparency)

	px := 0
	pos := 0
	for pos+4 <= len(data) && px < Size*Size {
		transparent := int(binary.LittleEndian.Uint16(data[pos:]))
		colored := int(binary.LittleEndian.Uint16(data[pos+2:]))
		pos += 4
		px += transparent

		if pos+colored*bpp > len(data) {
			glog.V(2).Infof("spr: run at pixel %d wants %d colored pixels, %d bytes left; keeping the partial sprite", px, colored, len(data)-pos)
			break
		}
		for i := 0; i < colored; i++ {
			c := color.NRGBA{R: data[pos], G: data[pos+1], B: data[pos+2], A: 0xFF}
			if transparency {
				c.A = data[pos+3]
				// Fully transparent but coloured pixels are treated as opaque.
				if c.A == 0 && (c.R != 0 || c.G != 0 || c.B != 0) {
					c.A = 0xFF
				}
			}
			pos += bpp
			if px < Size*Size {
				img.SetNRGBA(px%Size, px/Size, c)
			}
			px++
		}
	}
	return img, nil
}

// EncodePixels is the inverse of DecodePixels. The image is read from its
// top-left corner; pixels outside of it count as transparent.
func EncodePixels(img image.Image, transparency bool) []byte {
	bpp := bytesPerPixel(transparency)
	b := img.Bounds()

	var out []byte
	transparent := 0
	var colored []byte

	flush := func() {
		out = binary.LittleEndian.AppendUint16(out, uint16(transparent))
		out = binary.LittleEndian.AppendUint16(out, uint16(len(colored)/bpp))
		out = append(out, colored...)
		transparent = 0
		colored = colored[:0]
	}

	for y := 0; y < Size; y++ {
		for x := 0; x < Size; x++ {
			var c color.NRGBA
			if p := image.Pt(b.Min.X+x, b.Min.Y+y); p.In(b) {
				c = color.NRGBAModel.Convert(img.At(p.X, p.Y)).(color.NRGBA)
			}
			isTransparent := c.A < transparentBelow
			if transparency {
				isTransparent = c.A == 0
			}

			if isTransparent {
				if len(colored) > 0 {
					flush()
				}
				transparent++
				continue
			}
			colored = append(colored, c.R, c.G, c.B)
			if transparency {
				colored = append(colored, c.A)
			}
		}
	}
	if len(colored) > 0 || transparent > 0 {
		flush()
	}
	return out
}
