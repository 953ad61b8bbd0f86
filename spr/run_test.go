package spr

import (
	"image"
	"image/color"
	"testing"

	"badc0de.net/pkg/tibia-assets/ttesting"
)

// checkerSprite returns a sprite whose pixels are either fully opaque or
// fully transparent.
func checkerSprite() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, Size, Size))
	for y := 0; y < Size; y++ {
		for x := 0; x < Size; x++ {
			if (x/3+y/5)%2 == 0 || x == 31 {
				continue
			}
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(x * 8), G: uint8(y * 8), B: 0x40, A: 0xFF})
		}
	}
	return img
}

func assertSamePixels(t *testing.T, name string, got, want image.Image) {
	t.Helper()
	t.Run(name, func(t *testing.T) {
		for y := 0; y < Size; y++ {
			for x := 0; x < Size; x++ {
				g := color.NRGBAModel.Convert(got.At(x, y))
				w := color.NRGBAModel.Convert(want.At(x, y))
				if g != w {
					t.Fatalf("pixel (%d,%d): got %v; want %v", x, y, g, w)
				}
			}
		}
	})
}

func TestPixelsRoundTrip(t *testing.T) {
	src := checkerSprite()
	for _, transparency := range []bool{false, true} {
		data := EncodePixels(src, transparency)
		got, err := DecodePixels(data, transparency)
		if err != nil {
			t.Fatalf("transparency=%t: %v", transparency, err)
		}
		assertSamePixels(t, "round trip", got, src)
	}
}

func TestEncodePixelsRuns(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, Size, Size))
	img.SetNRGBA(2, 0, color.NRGBA{R: 1, G: 2, B: 3, A: 0xFF})
	img.SetNRGBA(3, 0, color.NRGBA{R: 4, G: 5, B: 6, A: 0xFF})
	img.SetNRGBA(4, 0, color.NRGBA{R: 9, G: 9, B: 9, A: 5}) // below threshold

	want := []byte{
		2, 0, 2, 0, 1, 2, 3, 4, 5, 6,
		0xFC, 0x03, 0, 0, // the remaining 1020 pixels
	}
	ttesting.AssertEqualBytes(t, "standard", EncodePixels(img, false), want)

	want = []byte{
		2, 0, 3, 0, 1, 2, 3, 0xFF, 4, 5, 6, 0xFF, 9, 9, 9, 5,
		0xFB, 0x03, 0, 0,
	}
	ttesting.AssertEqualBytes(t, "extended", EncodePixels(img, true), want)
}

func TestDecodePixelsAlpha(t *testing.T) {
	data := []byte{
		0, 0, 3, 0,
		10, 20, 30, 0, // coloured with zero alpha: forced opaque
		0, 0, 0, 0, // black with zero alpha: stays transparent
		7, 7, 7, 0x80,
	}
	img, err := DecodePixels(data, true)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got := img.NRGBAAt(0, 0); got != (color.NRGBA{R: 10, G: 20, B: 30, A: 0xFF}) {
		t.Errorf("pixel 0: got %v", got)
	}
	if got := img.NRGBAAt(1, 0); got.A != 0 {
		t.Errorf("pixel 1: got %v; want transparent", got)
	}
	if got := img.NRGBAAt(2, 0); got.A != 0x80 {
		t.Errorf("pixel 2: got %v; want alpha 0x80", got)
	}
}

func TestDecodePixelsWrapsRows(t *testing.T) {
	data := []byte{30, 0, 4, 0, 1, 1, 1, 2, 2, 2, 3, 3, 3, 4, 4, 4}
	img, err := DecodePixels(data, false)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	ttesting.AssertEqualInt(t, "row 0 col 31", int(img.NRGBAAt(31, 0).R), 2)
	ttesting.AssertEqualInt(t, "row 1 col 0", int(img.NRGBAAt(0, 1).R), 3)
	ttesting.AssertEqualInt(t, "row 1 col 1", int(img.NRGBAAt(1, 1).R), 4)
	ttesting.AssertEqualInt(t, "row 1 col 2 alpha", int(img.NRGBAAt(2, 1).A), 0)
}

func TestDecodePixelsTruncated(t *testing.T) {
	img, err := DecodePixels([]byte{0, 0, 1, 0, 0xFF, 0, 0, 0, 0, 2, 0, 1, 2, 3}, false)
	if err != nil {
		t.Fatalf("got error %v; want the partial sprite", err)
	}
	ttesting.AssertEqualBool(t, "first run drawn", img.NRGBAAt(0, 0) == color.NRGBA{R: 0xFF, A: 0xFF}, true)
	ttesting.AssertEqualBool(t, "cut run not drawn", img.NRGBAAt(1, 0) == color.NRGBA{}, true)
	ttesting.AssertEqualBool(t, "rest transparent", img.NRGBAAt(Size-1, Size-1) == color.NRGBA{}, true)
}
