package spr

// This file contains spr package's functions shaped after the image
// package's Decode and DecodeConfig. The spr signature differs between
// client versions, so the format is not registered with image.RegisterFormat.

import (
	"encoding/binary"
	"image"
	"image/color"
	"io"

	"github.com/pkg/errors"
)

// DecodeConfig returns the image.Config shared by every sprite in a sprite
// set.
func DecodeConfig(r io.Reader) (image.Config, error) {
	var h [headerSize]byte
	if _, err := io.ReadFull(r, h[:]); err != nil {
		return image.Config{}, errors.Wrap(err, "spr: could not read header")
	}
	return image.Config{Width: Size, Height: Size, ColorModel: color.NRGBAModel}, nil
}

// DecodeFirst returns the first non-empty sprite of a sprite set. The
// reader must also be an io.Seeker.
func DecodeFirst(r io.Reader, transparency bool) (image.Image, error) {
	rs, ok := r.(io.ReadSeeker)
	if !ok {
		return nil, errors.New("spr: reader must be a ReadSeeker")
	}
	var h Header
	if err := readHeader(rs, &h); err != nil {
		return nil, err
	}
	for id := 1; id <= int(h.SpriteCount); id++ {
		if _, err := rs.Seek(0, io.SeekStart); err != nil {
			return nil, errors.Wrap(err, "spr: rewinding")
		}
		img, err := DecodeOne(rs, id, transparency)
		if err != nil {
			return nil, err
		}
		if img != nil {
			return img, nil
		}
	}
	return nil, errors.Errorf("spr: all %d sprites are empty", h.SpriteCount)
}

func readHeader(rs io.ReadSeeker, h *Header) error {
	if _, err := rs.Seek(0, io.SeekStart); err != nil {
		return errors.Wrap(err, "spr: rewinding")
	}
	var b [headerSize]byte
	if _, err := io.ReadFull(rs, b[:]); err != nil {
		return errors.Wrap(err, "spr: could not read header")
	}
	h.Signature = binary.LittleEndian.Uint32(b[:])
	h.SpriteCount = binary.LittleEndian.Uint32(b[4:])
	return nil
}
