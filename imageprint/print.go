// Package imageprint prints images on terminal.
//
// This package has an API with no stability guarantees.
package imageprint

import (
	"bufio"
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	ic "image/color"
	"image/png"
	"io"

	"github.com/gookit/color"
	"github.com/pkg/errors"
)

// Mode selects how pixels reach the terminal.
type Mode int

const (
	// ModeTrueColor draws two characters per pixel on a 24bit background.
	ModeTrueColor Mode = iota
	// Mode256 leaves the color escapes to gookit/color, which falls back to
	// the 256 color palette where the terminal needs it.
	Mode256
	// ModeNoColor draws shades of ascii art only.
	ModeNoColor
	// ModeITerm sends a PNG with iTerm2's inline image escape.
	ModeITerm
	// ModeRasTerm picks the Kitty, iTerm or sixel protocol the terminal
	// supports.
	ModeRasTerm
)

// Printer draws images to W.
type Printer struct {
	W    io.Writer
	Mode Mode
	// Blanks draws every pixel as spaces instead of shades.
	Blanks bool
	// Name is passed on to terminals that show a file name.
	Name string
}

// Print draws img.
func (p *Printer) Print(img image.Image) error {
	switch p.Mode {
	case ModeITerm:
		return p.printITerm(img)
	case ModeRasTerm:
		return rasterTerm(p.W, img)
	}
	w := bufio.NewWriter(p.W)
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			p.shade(w, img.At(x, y))
		}
		if p.Mode != ModeNoColor {
			fmt.Fprint(w, "\x1b[0m")
		}
		fmt.Fprint(w, "\n")
	}
	return errors.Wrap(w.Flush(), "imageprint")
}

func shadeChars(r, g, b uint32) string {
	a := ((r + g + b) / 3) >> 8
	switch {
	case a < 32:
		return ".."
	case a < 64:
		return "--"
	case a < 128:
		return "=="
	default:
		return "##"
	}
}

func (p *Printer) shade(w io.Writer, col ic.Color) {
	cR, cG, cB, cA := col.RGBA()
	if cA == 0 {
		if p.Mode == ModeNoColor {
			fmt.Fprint(w, "  ")
		} else {
			fmt.Fprint(w, "\x1b[0m  ")
		}
		return
	}
	s := "  "
	if !p.Blanks {
		s = shadeChars(cR, cG, cB)
	}
	switch p.Mode {
	case ModeNoColor:
		fmt.Fprint(w, s)
	case Mode256:
		fmt.Fprint(w, color.RGB(uint8(cR>>8), uint8(cG>>8), uint8(cB>>8), true).Sprint(s))
	default:
		fmt.Fprintf(w, "\x1b[48;2;%d;%d;%dm%s\x1b[0m", uint8(cR>>8), uint8(cG>>8), uint8(cB>>8), s)
	}
}

// printITerm draws an image using iTerm2's escape sequences.
//
// https://www.iterm2.com/documentation-images.html
func (p *Printer) printITerm(i image.Image) error {
	name := base64.StdEncoding.EncodeToString([]byte(p.Name))
	b := &bytes.Buffer{}
	bEnc := base64.NewEncoder(base64.StdEncoding, b)
	if err := png.Encode(bEnc, i); err != nil {
		return errors.Wrap(err, "imageprint")
	}
	bEnc.Close()
	_, err := fmt.Fprintf(p.W, "\n\033]1337;File=name=%s;inline=1;size=%d,width=%dpx;height=%dpx:%s\a\n", name, b.Len(), i.Bounds().Size().X, i.Bounds().Size().Y, b.String())
	return errors.Wrap(err, "imageprint")
}

// Detect returns the best mode the terminal is known to support.
func Detect() Mode {
	if rasterCapable() {
		return ModeRasTerm
	}
	return ModeTrueColor
}
