package spr

// This file contains code directly related to decoding and encoding the
// spr file format.

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"image"
	"io"

	"github.com/golang/glog"
	"github.com/nfnt/resize"
	"github.com/pkg/errors"

	"badc0de.net/pkg/tibia-assets/codec"
)

// colorKey optionally precedes the size of a sprite block.
var colorKey = []byte{0xFF, 0x00, 0xFF}

const headerSize = 8

// Header is the fixed beginning of a spr file.
type Header struct {
	Signature   uint32
	SpriteCount uint32
}

// SpriteSet holds the raw blocks of all sprites in a spr file. Sprite ids
// start at 1; id 0 means "no sprite".
type SpriteSet struct {
	Signature uint32
	// Transparency selects the RGBA pixel variant.
	Transparency bool

	blocks [][]byte // indexed by id-1; empty for missing sprites
}

// Options controls a bulk decode.
type Options struct {
	Transparency bool
	Progress     codec.Progress
}

// Decode reads a whole spr file.
func Decode(b []byte, transparency bool) (*SpriteSet, []codec.Warning, error) {
	return DecodeContext(context.Background(), b, Options{Transparency: transparency})
}

// DecodeContext reads a whole spr file, reporting progress and stopping
// early if ctx is cancelled. Sprites whose offset lies outside of the file
// are left empty and reported as warnings.
func DecodeContext(ctx context.Context, b []byte, o Options) (*SpriteSet, []codec.Warning, error) {
	if len(b) < headerSize {
		return nil, nil, errors.Wrapf(codec.ErrMalformedHeader, "spr: file is %d bytes, shorter than the header", len(b))
	}
	h := Header{
		Signature:   binary.LittleEndian.Uint32(b),
		SpriteCount: binary.LittleEndian.Uint32(b[4:]),
	}
	tableEnd := uint64(headerSize) + uint64(h.SpriteCount)*4
	if tableEnd > uint64(len(b)) {
		return nil, nil, errors.Wrapf(codec.ErrUnexpectedEOF, "spr: offset table for %d sprites ends at %d, file is %d bytes", h.SpriteCount, tableEnd, len(b))
	}

	count := int(h.SpriteCount)
	offsets := make([]uint32, count)
	for i := range offsets {
		offsets[i] = binary.LittleEndian.Uint32(b[headerSize+i*4:])
	}

	s := &SpriteSet{
		Signature:    h.Signature,
		Transparency: o.Transparency,
		blocks:       make([][]byte, count),
	}
	var warnings []codec.Warning
	tr := codec.NewTracker(ctx, o.Progress, count)

	// next is the nearest non-zero offset after the current sprite.
	next := uint32(len(b))
	nextValid := false
	for i := count - 1; i >= 0; i-- {
		off := offsets[i]
		end := uint32(len(b))
		if nextValid {
			end = next
		}
		if off != 0 {
			next, nextValid = off, true
		}
		if err := tr.Step(); err != nil {
			return nil, nil, errors.Wrap(err, "spr")
		}
		if off == 0 {
			continue
		}
		if uint64(off) >= uint64(len(b)) || end < off || uint64(end) > uint64(len(b)) {
			warnings = append(warnings, codec.Warning{
				Record: fmt.Sprintf("sprite %d", i+1),
				Err:    errors.Wrapf(codec.ErrUnexpectedEOF, "offset %d to %d outside of %d byte file", off, end, len(b)),
			})
			continue
		}
		s.blocks[i] = b[off:end:end]
	}
	tr.Finish()
	glog.V(2).Infof("spr: signature %08x, %d sprites, %d warnings", h.Signature, count, len(warnings))
	return s, warnings, nil
}

// Len returns the sprite count, which is also the highest valid id.
func (s *SpriteSet) Len() int {
	return len(s.blocks)
}

// Raw returns the stored block of a sprite, including the optional color
// key and the size prefix. It is nil for missing sprites.
func (s *SpriteSet) Raw(id int) []byte {
	if id < 1 || id > len(s.blocks) {
		return nil
	}
	return s.blocks[id-1]
}

// pixelData strips the color key and the size prefix from a block.
func pixelData(block []byte) []byte {
	if bytes.HasPrefix(block, colorKey) {
		block = block[len(colorKey):]
	}
	if len(block) < 2 {
		return block
	}
	size := int(binary.LittleEndian.Uint16(block))
	block = block[2:]
	if size < len(block) {
		block = block[:size]
	}
	return block
}

// Sprite decodes the sprite with the passed id. Missing sprites, including
// id 0, return a nil image and no error.
func (s *SpriteSet) Sprite(id int) (image.Image, error) {
	block := s.Raw(id)
	if len(block) == 0 {
		return nil, nil
	}
	img, err := DecodePixels(pixelData(block), s.Transparency)
	if err != nil {
		return nil, errors.Wrapf(err, "spr: sprite %d", id)
	}
	return img, nil
}

// Replace encodes img as the sprite with the passed id, growing the set if
// the id is past its end. Images that are not 32x32 are scaled first.
func (s *SpriteSet) Replace(id int, img image.Image) error {
	if id < 1 {
		return fmt.Errorf("spr: cannot replace sprite %d", id)
	}
	if sz := img.Bounds().Size(); sz.X != Size || sz.Y != Size {
		glog.V(2).Infof("spr: scaling %v image for sprite %d", sz, id)
		img = resize.Resize(Size, Size, img, resize.NearestNeighbor)
	}
	data := EncodePixels(img, s.Transparency)

	block := make([]byte, 0, len(colorKey)+2+len(data))
	block = append(block, colorKey...)
	block = binary.LittleEndian.AppendUint16(block, uint16(len(data)))
	block = append(block, data...)

	for len(s.blocks) < id {
		s.blocks = append(s.blocks, nil)
	}
	s.blocks[id-1] = block
	return nil
}

// Encode writes the sprite set, recomputing the offset table. Missing
// sprites keep their ids and get offset 0.
func (s *SpriteSet) Encode() []byte {
	size := headerSize + len(s.blocks)*4
	for _, block := range s.blocks {
		size += len(block)
	}
	out := make([]byte, headerSize+len(s.blocks)*4, size)
	binary.LittleEndian.PutUint32(out, s.Signature)
	binary.LittleEndian.PutUint32(out[4:], uint32(len(s.blocks)))
	for i, block := range s.blocks {
		if len(block) == 0 {
			continue
		}
		binary.LittleEndian.PutUint32(out[headerSize+i*4:], uint32(len(out)))
		out = append(out, block...)
	}
	return out
}

// maxBlockSize is the largest pixel block a 32x32 sprite can need: every
// other pixel transparent.
func maxBlockSize(transparency bool) int {
	return Size*Size/2*4 + Size*Size*bytesPerPixel(transparency)
}

// DecodeOne accepts an io.ReadSeeker positioned at the beginning of a
// spr-formatted file (a sprite set file), finds the image with the passed
// id, and returns it without reading the rest of the file. A missing
// sprite returns a nil image and no error.
func DecodeOne(r io.ReadSeeker, which int, transparency bool) (image.Image, error) {
	var h Header
	if err := binary.Read(r, binary.LittleEndian, &h); err != nil {
		return nil, errors.Wrapf(codec.ErrMalformedHeader, "spr: could not read header: %v", err)
	}
	if which < 1 || uint32(which) > h.SpriteCount {
		return nil, nil
	}
	if _, err := r.Seek(int64(headerSize+(which-1)*4), io.SeekStart); err != nil {
		return nil, errors.Wrap(err, "spr: seeking to offset table")
	}

	var ptr uint32
	if err := binary.Read(r, binary.LittleEndian, &ptr); err != nil {
		return nil, errors.Wrapf(codec.ErrUnexpectedEOF, "spr: could not read offset of sprite %d: %v", which, err)
	}
	if ptr == 0 {
		return nil, nil
	}
	if _, err := r.Seek(int64(ptr), io.SeekStart); err != nil {
		return nil, errors.Wrapf(err, "spr: seeking to sprite %d", which)
	}
	return DecodeUpcoming(r, transparency)
}

// DecodeUpcoming decodes a single block of spr-format data: an optional
// color key, a size and the pixel runs. This is used in both pic and spr
// files.
func DecodeUpcoming(r io.Reader, transparency bool) (image.Image, error) {
	// The first three bytes are either the color key, or the size followed by
	// the first byte of pixel data.
	var head [3]byte
	n, err := io.ReadFull(r, head[:])
	if err != nil && !(err == io.ErrUnexpectedEOF && n == 2) {
		return nil, errors.Wrapf(codec.ErrUnexpectedEOF, "spr: could not read block prefix: %v", err)
	}

	var size int
	var lead []byte
	if n == 3 && bytes.Equal(head[:], colorKey) {
		var sz [2]byte
		if _, err := io.ReadFull(r, sz[:]); err != nil {
			return nil, errors.Wrapf(codec.ErrUnexpectedEOF, "spr: could not read block size: %v", err)
		}
		size = int(binary.LittleEndian.Uint16(sz[:]))
	} else {
		size = int(binary.LittleEndian.Uint16(head[:]))
		lead = head[2:n]
		if len(lead) > size {
			lead = lead[:size]
		}
	}
	if limit := maxBlockSize(transparency); size > limit {
		return nil, fmt.Errorf("spr: block too large; got %d, want <= %d", size, limit)
	}

	buf := make([]byte, size)
	copy(buf, lead)
	if _, err := io.ReadFull(r, buf[len(lead):]); err != nil {
		return nil, errors.Wrapf(codec.ErrUnexpectedEOF, "spr: block of %d bytes: %v", size, err)
	}
	return DecodePixels(buf, transparency)
}
