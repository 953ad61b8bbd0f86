package spr

import (
	"fmt"
	"image"
	"image/color"
)

// ExampleSpriteSet_Replace builds a sprite set from scratch, writes it out
// and reads a sprite back.
func ExampleSpriteSet_Replace() {
	img := image.NewNRGBA(image.Rect(0, 0, Size, Size))
	img.SetNRGBA(5, 5, color.NRGBA{G: 0xFF, A: 0xFF})

	s := &SpriteSet{Signature: 0x4868ECC9}
	if err := s.Replace(2, img); err != nil {
		fmt.Printf("failed to replace sprite: %s", err)
		return
	}

	s, _, err := Decode(s.Encode(), false)
	if err != nil {
		fmt.Printf("failed to decode spr: %s", err)
		return
	}
	spr, err := s.Sprite(2)
	if err != nil {
		fmt.Printf("failed to decode sprite: %s", err)
		return
	}
	fmt.Printf("sprites: %d\n", s.Len())
	fmt.Printf("image: %dx%d\n", spr.Bounds().Size().X, spr.Bounds().Size().Y)
	_, g, _, _ := spr.At(5, 5).RGBA()
	fmt.Printf("green at 5,5: %t\n", g == 0xFFFF)
	// Output:
	// sprites: 2
	// image: 32x32
	// green at 5,5: true
}
