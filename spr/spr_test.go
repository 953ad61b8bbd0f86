package spr

import (
	"bytes"
	"context"
	"encoding/binary"
	"image"
	"image/color"
	"testing"

	"github.com/pkg/errors"

	"badc0de.net/pkg/tibia-assets/codec"
	"badc0de.net/pkg/tibia-assets/ttesting"
)

var red = color.NRGBA{R: 0xFF, A: 0xFF}

// redBlock is a complete sprite block, color key included, for an opaque
// red sprite.
func redBlock() []byte {
	runs := []byte{0, 0, 0, 4} // 0 transparent, 1024 colored
	for i := 0; i < Size*Size; i++ {
		runs = append(runs, 0xFF, 0, 0)
	}
	b := append([]byte{}, colorKey...)
	b = binary.LittleEndian.AppendUint16(b, uint16(len(runs)))
	return append(b, runs...)
}

// twoSpriteFile has an empty sprite 1 and a red sprite 2 at offset 20.
func twoSpriteFile() []byte {
	b := []byte{
		1, 0, 0, 0, // signature
		2, 0, 0, 0, // count
		0, 0, 0, 0, // sprite 1
		20, 0, 0, 0, // sprite 2
		0, 0, 0, 0, // unreferenced
	}
	return append(b, redBlock()...)
}

func assertAllRed(t *testing.T, img image.Image) {
	t.Helper()
	if img == nil {
		t.Fatalf("got no image; want red sprite")
	}
	ttesting.AssertEqualInt(t, "width", img.Bounds().Dx(), Size)
	ttesting.AssertEqualInt(t, "height", img.Bounds().Dy(), Size)
	for y := 0; y < Size; y++ {
		for x := 0; x < Size; x++ {
			if c := color.NRGBAModel.Convert(img.At(x, y)); c != red {
				t.Fatalf("pixel (%d,%d): got %v; want %v", x, y, c, red)
			}
		}
	}
}

func TestDecode(t *testing.T) {
	s, warnings, err := Decode(twoSpriteFile(), false)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	ttesting.AssertEqualInt(t, "warnings", len(warnings), 0)
	ttesting.AssertEqualInt(t, "count", s.Len(), 2)
	ttesting.AssertEqualUint32(t, "signature", s.Signature, 1)

	for _, id := range []int{0, 1, 3} {
		img, err := s.Sprite(id)
		if err != nil || img != nil {
			t.Errorf("sprite %d: got (%v, %v); want no sprite", id, img, err)
		}
	}
	img, err := s.Sprite(2)
	if err != nil {
		t.Fatalf("sprite 2: %v", err)
	}
	assertAllRed(t, img)
}

func TestEncode(t *testing.T) {
	s, _, err := Decode(twoSpriteFile(), false)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	b := s.Encode()
	ttesting.AssertEqualUint32(t, "offset 1", binary.LittleEndian.Uint32(b[8:]), 0)
	ttesting.AssertEqualUint32(t, "offset 2", binary.LittleEndian.Uint32(b[12:]), 16)
	ttesting.AssertEqualBytes(t, "sprite 2 block", b[16:], redBlock())

	again, _, err := Decode(b, false)
	if err != nil {
		t.Fatalf("decode again: %v", err)
	}
	ttesting.AssertEqualBytes(t, "stable", again.Encode(), b)
}

func TestDecodeStructuralErrors(t *testing.T) {
	if _, _, err := Decode([]byte{1, 0, 0}, false); !errors.Is(err, codec.ErrMalformedHeader) {
		t.Errorf("short header: got %v; want ErrMalformedHeader", err)
	}
	b := []byte{1, 0, 0, 0, 3, 0, 0, 0, 0, 0, 0, 0}
	if _, _, err := Decode(b, false); !errors.Is(err, codec.ErrUnexpectedEOF) {
		t.Errorf("short table: got %v; want ErrUnexpectedEOF", err)
	}
}

func TestDecodeBadOffset(t *testing.T) {
	b := twoSpriteFile()
	binary.LittleEndian.PutUint32(b[8:], 0xFFFF) // sprite 1 past the end
	s, warnings, err := Decode(b, false)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	ttesting.AssertEqualInt(t, "warnings", len(warnings), 1)
	if len(warnings) == 1 {
		ttesting.AssertEqualString(t, "record", warnings[0].Record, "sprite 1")
	}
	img, _ := s.Sprite(2)
	assertAllRed(t, img)
}

func TestDecodeProgressAndCancel(t *testing.T) {
	b := []byte{1, 0, 0, 0}
	b = binary.LittleEndian.AppendUint32(b, 450)
	b = append(b, make([]byte, 450*4)...)

	var calls []int
	_, _, err := DecodeContext(context.Background(), b, Options{Progress: func(done, total int) {
		calls = append(calls, done)
		if total != 450 {
			t.Errorf("total: got %d; want 450", total)
		}
	}})
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	ttesting.AssertEqualInt(t, "progress calls", len(calls), 3)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s, _, err := DecodeContext(ctx, b, Options{})
	if !errors.Is(err, context.Canceled) || s != nil {
		t.Errorf("got (%v, %v); want (nil, context.Canceled)", s, err)
	}
}

func TestReplace(t *testing.T) {
	s := &SpriteSet{Signature: 7, Transparency: true}

	big := image.NewNRGBA(image.Rect(0, 0, 64, 64))
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			big.SetNRGBA(x, y, red)
		}
	}
	if err := s.Replace(3, big); err != nil {
		t.Fatalf("replace: %v", err)
	}
	if err := s.Replace(0, big); err == nil {
		t.Errorf("replace 0: want error")
	}
	ttesting.AssertEqualInt(t, "grown", s.Len(), 3)

	again, _, err := Decode(s.Encode(), true)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	ttesting.AssertEqualInt(t, "count", again.Len(), 3)
	if img, _ := again.Sprite(2); img != nil {
		t.Errorf("sprite 2: got an image; want none")
	}
	img, err := again.Sprite(3)
	if err != nil {
		t.Fatalf("sprite 3: %v", err)
	}
	assertAllRed(t, img)
}

// keylessFile has a single red sprite whose block has no color key.
func keylessFile() []byte {
	b := []byte{
		1, 0, 0, 0, // signature
		1, 0, 0, 0, // count
		12, 0, 0, 0, // sprite 1
	}
	return append(b, redBlock()[len(colorKey):]...)
}

func TestDecodeOneWithoutColorKey(t *testing.T) {
	s, _, err := Decode(keylessFile(), false)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	img, err := s.Sprite(1)
	if err != nil {
		t.Fatalf("sprite 1: %v", err)
	}
	assertAllRed(t, img)

	img, err = DecodeOne(bytes.NewReader(keylessFile()), 1, false)
	if err != nil {
		t.Fatalf("decode one: %v", err)
	}
	assertAllRed(t, img)

	img, err = DecodeUpcoming(bytes.NewReader([]byte{0, 0}), false)
	if err != nil {
		t.Fatalf("empty block: %v", err)
	}
	ttesting.AssertEqualInt(t, "empty block width", img.Bounds().Dx(), Size)
}

func TestDecodeOne(t *testing.T) {
	r := bytes.NewReader(twoSpriteFile())
	img, err := DecodeOne(r, 2, false)
	if err != nil {
		t.Fatalf("decode one: %v", err)
	}
	assertAllRed(t, img)

	if img, err := DecodeOne(bytes.NewReader(twoSpriteFile()), 1, false); img != nil || err != nil {
		t.Errorf("sprite 1: got (%v, %v); want no sprite", img, err)
	}
	if img, err := DecodeOne(bytes.NewReader(twoSpriteFile()), 9, false); img != nil || err != nil {
		t.Errorf("sprite 9: got (%v, %v); want no sprite", img, err)
	}

	img, err = DecodeFirst(bytes.NewReader(twoSpriteFile()), false)
	if err != nil {
		t.Fatalf("decode first: %v", err)
	}
	assertAllRed(t, img)

	cfg, err := DecodeConfig(bytes.NewReader(twoSpriteFile()))
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	ttesting.AssertEqualInt(t, "config width", cfg.Width, Size)
}
