// Package sheet decodes the LZMA-compressed BMP sprite sheets used by newer
// Tibia clients, and crops individual sprites out of them using the
// client's catalog-content.json.
//
// A sheet file consists of:
//
//	zero padding
//	magic 70 0A FA 80 24
//	compressed size, 7 bits per byte, high bit = more bytes follow
//	LZMA properties: 1 byte lc/lp/pb, 4 bytes dictionary size
//	8 bytes of nominal uncompressed size (not trustworthy)
//	LZMA1 stream
//
// The stream decompresses to a BMP image.
package sheet

import (
	"bytes"
	"encoding/binary"
	"image"
	"image/draw"
	"io"

	"github.com/golang/glog"
	"github.com/pkg/errors"
	"github.com/ulikunitz/xz/lzma"
	"golang.org/x/image/bmp"

	"badc0de.net/pkg/tibia-assets/codec"
)

// Magic precedes the LZMA header of every sheet.
var Magic = []byte{0x70, 0x0A, 0xFA, 0x80, 0x24}

// header is what remains after the container has been stripped.
type header struct {
	props   [5]byte
	lc      int
	lp      int
	pb      int
	dictCap uint32
	payload []byte
}

func parseHeader(b []byte) (*header, error) {
	pos := 0
	for pos < len(b) && b[pos] == 0 {
		pos++
	}
	if len(b)-pos < len(Magic) || !bytes.Equal(b[pos:pos+len(Magic)], Magic) {
		return nil, errors.Wrapf(codec.ErrMalformedHeader, "sheet: no magic at offset %d", pos)
	}
	pos += len(Magic)

	// Size of the compressed data; read only to skip it.
	for {
		if pos >= len(b) {
			return nil, errors.Wrap(codec.ErrUnexpectedEOF, "sheet: compressed size")
		}
		c := b[pos]
		pos++
		if c&0x80 == 0 {
			break
		}
	}

	if len(b)-pos < 5+8 {
		return nil, errors.Wrap(codec.ErrUnexpectedEOF, "sheet: lzma properties")
	}
	h := &header{}
	copy(h.props[:], b[pos:pos+5])
	h.dictCap = binary.LittleEndian.Uint32(b[pos+1 : pos+5])
	pos += 5 + 8

	prop := int(h.props[0])
	if prop >= 9*5*5 {
		prop /= 9
	}
	h.lc = prop % 9
	prop /= 9
	h.lp = prop % 5
	h.pb = prop / 5
	h.payload = b[pos:]
	return h, nil
}

// alone builds a classic 13-byte .lzma header in front of the payload.
func alone(props [5]byte, payload []byte) io.Reader {
	hdr := make([]byte, 13)
	copy(hdr, props[:])
	for i := 5; i < 13; i++ {
		hdr[i] = 0xFF
	}
	return io.MultiReader(bytes.NewReader(hdr), bytes.NewReader(payload))
}

// decodePrimary decompresses the payload with the parameters derived from
// the properties byte. The stream must end with an end-of-stream marker.
func decodePrimary(h *header) ([]byte, error) {
	var props [5]byte
	props[0] = byte((h.pb*5+h.lp)*9 + h.lc)
	binary.LittleEndian.PutUint32(props[1:], h.dictCap)
	r, err := lzma.NewReader(alone(props, h.payload))
	if err != nil {
		return nil, err
	}
	return io.ReadAll(r)
}

// decodeFallback decompresses with the properties exactly as stored. A
// stream that ends without an end-of-stream marker is accepted as long as
// it produced data.
func decodeFallback(h *header) ([]byte, error) {
	r, err := lzma.NewReader(alone(h.props, h.payload))
	if err != nil {
		return nil, err
	}
	out, truncated, err := drain(r)
	if err != nil {
		return nil, err
	}
	if truncated {
		if len(out) == 0 {
			return nil, io.ErrUnexpectedEOF
		}
		glog.V(2).Infof("sheet: stream without end marker, %d bytes recovered", len(out))
	}
	return out, nil
}

// drain reads r to the end. The decoder reports io.ErrUnexpectedEOF when
// the input runs out before an end marker, while still holding decoded
// bytes; those are collected by reading on until io.EOF or no progress.
func drain(r io.Reader) ([]byte, bool, error) {
	var buf bytes.Buffer
	p := make([]byte, 32*1024)
	truncated := false
	for {
		n, err := r.Read(p)
		buf.Write(p[:n])
		switch err {
		case nil:
		case io.EOF:
			return buf.Bytes(), truncated, nil
		case io.ErrUnexpectedEOF:
			if truncated && n == 0 {
				return buf.Bytes(), true, nil
			}
			truncated = true
		default:
			return buf.Bytes(), truncated, err
		}
	}
}

// DecompressBMP strips the container and returns the decompressed BMP
// bytes.
func DecompressBMP(b []byte) ([]byte, error) {
	h, err := parseHeader(b)
	if err != nil {
		return nil, err
	}
	out, errPrimary := decodePrimary(h)
	if errPrimary == nil {
		return out, nil
	}
	glog.V(2).Infof("sheet: primary lzma decode failed (%v), retrying with stored header", errPrimary)
	out, errFallback := decodeFallback(h)
	if errFallback != nil {
		return nil, errors.Wrapf(codec.ErrLZMADecodeFailure, "sheet: primary: %v; fallback: %v", errPrimary, errFallback)
	}
	return out, nil
}

// Decompress decodes a sheet file into an NRGBA bitmap.
func Decompress(b []byte) (*image.NRGBA, error) {
	raw, err := DecompressBMP(b)
	if err != nil {
		return nil, err
	}
	img, err := bmp.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, errors.Wrap(err, "sheet: decoding bmp")
	}
	if n, ok := img.(*image.NRGBA); ok {
		return n, nil
	}
	out := image.NewNRGBA(img.Bounds())
	draw.Draw(out, out.Bounds(), img, img.Bounds().Min, draw.Src)
	return out, nil
}

// Compress writes img as a sheet file. The stream carries an end-of-stream
// marker, so it decodes on the primary path.
func Compress(img image.Image) ([]byte, error) {
	var raw bytes.Buffer
	if err := bmp.Encode(&raw, img); err != nil {
		return nil, errors.Wrap(err, "sheet: encoding bmp")
	}

	var stream bytes.Buffer
	cfg := lzma.WriterConfig{
		Properties:   &lzma.Properties{LC: 3, LP: 0, PB: 2},
		DictCap:      1 << 20,
		SizeInHeader: true,
		Size:         int64(raw.Len()),
		EOSMarker:    true,
	}
	w, err := cfg.NewWriter(&stream)
	if err != nil {
		return nil, errors.Wrap(err, "sheet: lzma writer")
	}
	if _, err := w.Write(raw.Bytes()); err != nil {
		return nil, errors.Wrap(err, "sheet: compressing")
	}
	if err := w.Close(); err != nil {
		return nil, errors.Wrap(err, "sheet: finishing stream")
	}
	return wrap(stream.Bytes()), nil
}

// wrap puts the container around a classic .lzma stream (13-byte header
// included).
func wrap(stream []byte) []byte {
	out := append([]byte{}, Magic...)
	n := uint64(len(stream))
	for n >= 0x80 {
		out = append(out, byte(n)|0x80)
		n >>= 7
	}
	out = append(out, byte(n))
	return append(out, stream...)
}
