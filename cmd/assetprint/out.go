package main

import (
	"image"
	"os"

	"github.com/golang/glog"
	"github.com/nfnt/resize"

	"badc0de.net/pkg/tibia-assets/imageprint"
)

func out(img image.Image) bool {
	if *downsize {
		termSize, err := GetTermSize()
		if err == nil {
			if (termSize.WSXPixel != 0 && termSize.WSYPixel != 0) && (*rasterm || *iterm) {
				// Prefer printing out in native size if there's a chance we print out an image rather than pixels.
				img = resize.Thumbnail(termSize.WSXPixel/2, termSize.WSYPixel/2, img, resize.Lanczos3)
			} else if termSize.WSCol != 0 && termSize.WSRow != 0 {
				// Every pixel takes two columns.
				img = resize.Thumbnail(termSize.WSCol/2, termSize.WSRow, img, resize.Lanczos3)
			}
		}
	}

	p := &imageprint.Printer{W: os.Stdout, Blanks: *blanks, Name: "image.png"}
	switch {
	case *rasterm:
		p.Mode = imageprint.ModeRasTerm
	case !*col:
		p.Mode = imageprint.ModeNoColor
	case *iterm:
		p.Mode = imageprint.ModeITerm
	case *col256:
		p.Mode = imageprint.Mode256
	default:
		p.Mode = imageprint.ModeTrueColor
	}
	if err := p.Print(img); err != nil {
		glog.Errorf("%v", err)
		return false
	}
	return true
}
