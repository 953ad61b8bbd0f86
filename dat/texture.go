package dat

import (
	"encoding/binary"

	"github.com/bradfitz/iter"
	"github.com/pkg/errors"

	"badc0de.net/pkg/tibia-assets/codec"
)

// DefaultCropSize and DefaultFrameDuration fill in a frame group built
// without them.
const (
	DefaultCropSize      = 32
	DefaultFrameDuration = 75
)

// FrameDuration is the range a single animation frame is shown for, in
// milliseconds.
type FrameDuration struct {
	Min, Max uint32
}

// Animation holds the timing of a frame group with more than one frame.
type Animation struct {
	Async      uint8
	LoopCount  uint32
	StartPhase uint8
	Durations  []FrameDuration
}

// FrameGroup is one texture descriptor. Items, effects and missiles have
// exactly one; outfits have one per group type (idle, moving).
type FrameGroup struct {
	Type      uint8 // outfits only
	Width     uint8
	Height    uint8
	CropSize  uint8 // present only when Width or Height is over 1
	Layers    uint8
	PatternX  uint8
	PatternY  uint8
	PatternZ  uint8
	Frames    uint8
	Animation *Animation // nil when Frames <= 1
	SpriteIDs []uint32
}

// SpriteCount is the number of sprite ids the descriptor's dimensions call
// for.
func (g *FrameGroup) SpriteCount() int {
	return int(g.Width) * int(g.Height) * int(g.PatternX) * int(g.PatternY) * int(g.PatternZ) * int(g.Layers) * int(g.Frames)
}

// SpriteIndex returns the position in SpriteIDs of the sprite drawn at tile
// (tx, ty) of the given frame, pattern and layer.
func (g *FrameGroup) SpriteIndex(frame, z, y, x, layer, ty, tx int) int {
	idx := frame
	idx = idx*int(g.PatternZ) + z
	idx = idx*int(g.PatternY) + y
	idx = idx*int(g.PatternX) + x
	idx = idx*int(g.Layers) + layer
	idx = idx*int(g.Height) + ty
	idx = idx*int(g.Width) + tx
	return idx
}

// Texture is the parsed form of a thing's texture descriptor.
type Texture struct {
	Groups []FrameGroup
}

// SpriteIDs returns the sprite ids of all groups in order.
func (t *Texture) SpriteIDs() []uint32 {
	var out []uint32
	for _, g := range t.Groups {
		out = append(out, g.SpriteIDs...)
	}
	return out
}

func spriteIDWidth(extended bool) int {
	if extended {
		return 4
	}
	return 2
}

// cursor reads from a byte slice, failing with ErrUnexpectedEOF.
type cursor struct {
	b   []byte
	pos int
}

func (c *cursor) take(n int, what string) ([]byte, error) {
	if n < 0 || len(c.b)-c.pos < n {
		return nil, errors.Wrapf(codec.ErrUnexpectedEOF, "%s: want %d bytes at offset %d, have %d", what, n, c.pos, len(c.b)-c.pos)
	}
	out := c.b[c.pos : c.pos+n]
	c.pos += n
	return out, nil
}

func (c *cursor) u8(what string) (byte, error) {
	b, err := c.take(1, what)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

// readFrameGroup parses one descriptor at the cursor.
func readFrameGroup(c *cursor, outfit, extended bool) (FrameGroup, error) {
	var g FrameGroup
	if outfit {
		t, err := c.u8("frame group type")
		if err != nil {
			return g, err
		}
		g.Type = t
	}
	wh, err := c.take(2, "width and height")
	if err != nil {
		return g, err
	}
	g.Width, g.Height = wh[0], wh[1]
	if g.Width > 1 || g.Height > 1 {
		if g.CropSize, err = c.u8("crop size"); err != nil {
			return g, err
		}
	}
	dims, err := c.take(5, "layers, patterns and frames")
	if err != nil {
		return g, err
	}
	g.Layers, g.PatternX, g.PatternY, g.PatternZ, g.Frames = dims[0], dims[1], dims[2], dims[3], dims[4]

	if g.Frames > 1 {
		detail, err := c.take(1+4+1+int(g.Frames)*8, "animation details")
		if err != nil {
			return g, err
		}
		a := &Animation{
			Async:      detail[0],
			LoopCount:  binary.LittleEndian.Uint32(detail[1:]),
			StartPhase: detail[5],
		}
		for i := range iter.N(int(g.Frames)) {
			d := detail[6+i*8:]
			a.Durations = append(a.Durations, FrameDuration{
				Min: binary.LittleEndian.Uint32(d),
				Max: binary.LittleEndian.Uint32(d[4:]),
			})
		}
		g.Animation = a
	}

	width := spriteIDWidth(extended)
	n := g.SpriteCount()
	ids, err := c.take(n*width, "sprite ids")
	if err != nil {
		return g, err
	}
	g.SpriteIDs = make([]uint32, n)
	for i := range g.SpriteIDs {
		if extended {
			g.SpriteIDs[i] = binary.LittleEndian.Uint32(ids[i*4:])
		} else {
			g.SpriteIDs[i] = uint32(binary.LittleEndian.Uint16(ids[i*2:]))
		}
	}
	return g, nil
}

// readTexture parses a whole descriptor at the cursor: one frame group, or
// for outfits a group count followed by that many groups.
func readTexture(c *cursor, outfit, extended bool) (*Texture, error) {
	groups := 1
	if outfit {
		n, err := c.u8("frame group count")
		if err != nil {
			return nil, err
		}
		groups = int(n)
	}
	t := &Texture{}
	for i := range iter.N(groups) {
		g, err := readFrameGroup(c, outfit, extended)
		if err != nil {
			return nil, errors.Wrapf(err, "frame group %d", i)
		}
		t.Groups = append(t.Groups, g)
	}
	return t, nil
}

// Texture parses the thing's texture descriptor.
func (t *Thing) Texture(extended bool) (*Texture, error) {
	if t.Missing() {
		return nil, errors.Errorf("dat: %s %d has no texture", t.Category, t.ID)
	}
	c := &cursor{b: t.TextureBytes}
	tex, err := readTexture(c, t.Category == CategoryOutfit, extended)
	if err != nil {
		return nil, errors.Wrapf(err, "dat: %s %d", t.Category, t.ID)
	}
	if c.pos != len(c.b) {
		return nil, errors.Wrapf(codec.ErrUnsupportedSpriteIDWidth, "dat: %s %d: %d bytes left after texture", t.Category, t.ID, len(c.b)-c.pos)
	}
	return tex, nil
}

// SpriteIDs returns the sprite ids of all of the thing's frame groups.
func (t *Thing) SpriteIDs(extended bool) ([]uint32, error) {
	tex, err := t.Texture(extended)
	if err != nil {
		return nil, err
	}
	return tex.SpriteIDs(), nil
}

// SetSpriteIDs replaces the sprite ids of one frame group and rebuilds the
// texture bytes. The number of ids must match the group's dimensions.
func (t *Thing) SetSpriteIDs(extended bool, group int, ids []uint32) error {
	tex, err := t.Texture(extended)
	if err != nil {
		return err
	}
	if group < 0 || group >= len(tex.Groups) {
		return errors.Errorf("dat: %s %d has no frame group %d", t.Category, t.ID, group)
	}
	if want := tex.Groups[group].SpriteCount(); len(ids) != want {
		return errors.Errorf("dat: %s %d frame group %d takes %d sprite ids, got %d", t.Category, t.ID, group, want, len(ids))
	}
	tex.Groups[group].SpriteIDs = append([]uint32(nil), ids...)
	b, err := buildTexture(tex.Groups, t.Category == CategoryOutfit, extended)
	if err != nil {
		return errors.Wrapf(err, "dat: %s %d", t.Category, t.ID)
	}
	t.TextureBytes = b
	return nil
}

// BuildTexture serializes a single frame group descriptor, as used by
// items, effects and missiles. A zero crop size and missing frame
// durations get the defaults.
func BuildTexture(g FrameGroup, extended bool) ([]byte, error) {
	return buildTexture([]FrameGroup{g}, false, extended)
}

// BuildOutfitTexture serializes an outfit's frame groups.
func BuildOutfitTexture(groups []FrameGroup, extended bool) ([]byte, error) {
	return buildTexture(groups, true, extended)
}

func buildTexture(groups []FrameGroup, outfit, extended bool) ([]byte, error) {
	var out []byte
	if outfit {
		if len(groups) > 0xFF {
			return nil, errors.Errorf("%d frame groups", len(groups))
		}
		out = append(out, byte(len(groups)))
	}
	for i, g := range groups {
		if len(g.SpriteIDs) != g.SpriteCount() {
			return nil, errors.Errorf("frame group %d has %d sprite ids, dimensions call for %d", i, len(g.SpriteIDs), g.SpriteCount())
		}
		if outfit {
			out = append(out, g.Type)
		}
		out = append(out, g.Width, g.Height)
		if g.Width > 1 || g.Height > 1 {
			crop := g.CropSize
			if crop == 0 {
				crop = DefaultCropSize
			}
			out = append(out, crop)
		}
		out = append(out, g.Layers, g.PatternX, g.PatternY, g.PatternZ, g.Frames)
		if g.Frames > 1 {
			a := g.Animation
			if a == nil {
				a = &Animation{}
			}
			out = append(out, a.Async)
			out = binary.LittleEndian.AppendUint32(out, a.LoopCount)
			out = append(out, a.StartPhase)
			for f := range iter.N(int(g.Frames)) {
				d := FrameDuration{Min: DefaultFrameDuration, Max: DefaultFrameDuration}
				if f < len(a.Durations) {
					d = a.Durations[f]
				}
				out = binary.LittleEndian.AppendUint32(out, d.Min)
				out = binary.LittleEndian.AppendUint32(out, d.Max)
			}
		}
		for _, id := range g.SpriteIDs {
			if extended {
				out = binary.LittleEndian.AppendUint32(out, id)
				continue
			}
			if id > 0xFFFF {
				return nil, errors.Wrapf(codec.ErrUnsupportedSpriteIDWidth, "sprite id %d does not fit in 2 bytes", id)
			}
			out = binary.LittleEndian.AppendUint16(out, uint16(id))
		}
	}
	return out, nil
}

// placeholder is the texture written for a missing thing: unit dimensions
// and a single empty sprite.
func placeholder(outfit, extended bool) []byte {
	var out []byte
	if outfit {
		out = append(out, 1, 0) // one idle frame group
	}
	for range iter.N(7) {
		out = append(out, 1)
	}
	return append(out, make([]byte, spriteIDWidth(extended))...)
}
