// Package export writes sprites and composited items as image files.
package export

import (
	"image"
	"image/color"
	"image/draw"
	"image/gif"
	"image/png"
	"io"
	"time"

	"github.com/HugoSmits86/nativewebp"
	"github.com/andybons/gogif"
	"github.com/ericpauley/go-quantize/quantize"
	"github.com/pkg/errors"
)

// Formats.
const (
	PNG  = "png"
	WebP = "webp"
	GIF  = "gif"
)

// Encode writes a single image. GIF output gets a median cut palette with
// color 0 reserved for transparency.
func Encode(w io.Writer, img image.Image, format string) error {
	var err error
	switch format {
	case PNG:
		err = png.Encode(w, img)
	case WebP:
		err = nativewebp.Encode(w, img, nil)
	case GIF:
		err = gif.Encode(w, paletted(img), nil)
	default:
		return errors.Errorf("export: unknown format %q", format)
	}
	return errors.Wrapf(err, "export: encoding %s", format)
}

// paletted quantizes img down to 255 colors plus transparency.
func paletted(img image.Image) *image.Paletted {
	quantizer := gogif.MedianCutQuantizer{NumColor: 255}
	pal := image.NewPaletted(img.Bounds(), nil)
	quantizer.Quantize(pal, img.Bounds(), img, image.Point{})

	// Quantize only fills in pal by copying every pixel, so the image is
	// drawn again into a palette with color.Transparent first.
	out := image.NewPaletted(img.Bounds(), append(color.Palette{color.Transparent}, pal.Palette...))
	draw.Draw(out, img.Bounds(), img, img.Bounds().Min, draw.Over)
	return out
}

// EncodeAnimation writes frames as a looping GIF sharing one palette. A
// frame without a matching delay is shown for 100ms.
func EncodeAnimation(w io.Writer, frames []image.Image, delays []time.Duration) error {
	if len(frames) == 0 {
		return errors.New("export: no frames")
	}
	if len(frames) == 1 {
		return Encode(w, frames[0], GIF)
	}
	palette := append(color.Palette{color.Transparent}, quantize.MedianCutQuantizer{}.Quantize(make(color.Palette, 0, 255), mosaic(frames))...)

	g := &gif.GIF{BackgroundIndex: 0}
	for i, frame := range frames {
		b := frame.Bounds()
		pal := image.NewPaletted(b, palette)
		draw.Draw(pal, b, frame, b.Min, draw.Over)

		delay := 10
		if i < len(delays) {
			delay = max(int(delays[i]/(10*time.Millisecond)), 2)
		}
		g.Image = append(g.Image, pal)
		g.Delay = append(g.Delay, delay)
		g.Disposal = append(g.Disposal, gif.DisposalBackground)
	}
	return errors.Wrap(gif.EncodeAll(w, g), "export: encoding animation")
}

// mosaic stacks frames vertically so one palette can be computed for all of
// them.
func mosaic(frames []image.Image) image.Image {
	w, h := 0, 0
	for _, f := range frames {
		w = max(w, f.Bounds().Dx())
		h += f.Bounds().Dy()
	}
	out := image.NewNRGBA(image.Rect(0, 0, w, h))
	y := 0
	for _, f := range frames {
		b := f.Bounds()
		draw.Draw(out, image.Rect(0, y, b.Dx(), y+b.Dy()), f, b.Min, draw.Src)
		y += b.Dy()
	}
	return out
}
