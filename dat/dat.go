// Package dat reads and writes Tibia.dat, the client's catalog of things:
// items, outfits, effects and missiles. Each thing is a list of flags
// followed by a texture descriptor naming the sprites that draw it.
//
// The width of sprite ids in the descriptors (2 or 4 bytes) is not recorded
// in the file; callers pass it in as the extended mode, and it must match
// the accompanying sprite set.
package dat

import (
	"context"
	"encoding/binary"
	"fmt"

	"github.com/golang/glog"
	"github.com/pkg/errors"

	"badc0de.net/pkg/tibia-assets/codec"
)

const headerSize = 4 + 4*2

// Header is the fixed beginning of a dat file. ItemCount is the highest
// item id rather than the number of items.
type Header struct {
	Signature                                         uint32
	ItemCount, OutfitCount, EffectCount, MissileCount uint16
}

// Catalog holds all things of a dat file, indexed by category and id.
type Catalog struct {
	Signature uint32
	Extended  bool

	things [4][]*Thing
}

// NewCatalog creates an empty catalog.
func NewCatalog(signature uint32, extended bool) *Catalog {
	return &Catalog{Signature: signature, Extended: extended}
}

// Header returns the header Encode would write.
func (c *Catalog) Header() Header {
	h := Header{Signature: c.Signature}
	if n := len(c.things[CategoryItem]); n > 0 {
		h.ItemCount = CategoryItem.FirstID() - 1 + uint16(n)
	}
	h.OutfitCount = uint16(len(c.things[CategoryOutfit]))
	h.EffectCount = uint16(len(c.things[CategoryEffect]))
	h.MissileCount = uint16(len(c.things[CategoryMissile]))
	return h
}

// MaxID returns the highest id in the category, or 0 if it is empty.
func (c *Catalog) MaxID(cat Category) uint16 {
	n := len(c.things[cat])
	if n == 0 {
		return 0
	}
	return cat.FirstID() - 1 + uint16(n)
}

// MaxItemID returns the highest item id.
func (c *Catalog) MaxItemID() uint16 {
	return c.MaxID(CategoryItem)
}

// MaxOutfitID returns the highest outfit id.
func (c *Catalog) MaxOutfitID() uint16 {
	return c.MaxID(CategoryOutfit)
}

// Thing returns the thing with the passed category and id, or nil.
func (c *Catalog) Thing(cat Category, id uint16) *Thing {
	if cat < CategoryItem || cat > CategoryMissile || id < cat.FirstID() {
		return nil
	}
	i := int(id - cat.FirstID())
	if i >= len(c.things[cat]) {
		return nil
	}
	return c.things[cat][i]
}

// Item returns the item with the passed client id, or nil.
func (c *Catalog) Item(id uint16) *Thing {
	return c.Thing(CategoryItem, id)
}

// Things returns the things of a category in id order. Missing things are
// nil.
func (c *Catalog) Things(cat Category) []*Thing {
	return c.things[cat]
}

// Put stores the thing at its category and id, growing the category if
// needed. Ids skipped over become missing things.
func (c *Catalog) Put(t *Thing) error {
	if t.Category < CategoryItem || t.Category > CategoryMissile {
		return fmt.Errorf("dat: bad category %d", int(t.Category))
	}
	if t.ID < t.Category.FirstID() {
		return fmt.Errorf("dat: %s id %d is below %d", t.Category, t.ID, t.Category.FirstID())
	}
	i := int(t.ID - t.Category.FirstID())
	for len(c.things[t.Category]) <= i {
		c.things[t.Category] = append(c.things[t.Category], nil)
	}
	c.things[t.Category][i] = t
	return nil
}

// Options controls a decode.
type Options struct {
	// Extended selects 4-byte sprite ids instead of 2-byte ones.
	Extended bool
	Progress codec.Progress
}

// Decode reads a whole dat file.
func Decode(b []byte, extended bool) (*Catalog, []codec.Warning, error) {
	return DecodeContext(context.Background(), b, Options{Extended: extended})
}

// DecodeContext reads a whole dat file, reporting progress and stopping
// early if ctx is cancelled. Any structural problem, such as an unknown
// flag or a truncated descriptor, fails the whole decode.
func DecodeContext(ctx context.Context, b []byte, o Options) (*Catalog, []codec.Warning, error) {
	if len(b) < headerSize {
		return nil, nil, errors.Wrapf(codec.ErrMalformedHeader, "dat: file is %d bytes, shorter than the header", len(b))
	}
	le := binary.LittleEndian
	h := Header{
		Signature:    le.Uint32(b),
		ItemCount:    le.Uint16(b[4:]),
		OutfitCount:  le.Uint16(b[6:]),
		EffectCount:  le.Uint16(b[8:]),
		MissileCount: le.Uint16(b[10:]),
	}
	counts := [4]int{0, int(h.OutfitCount), int(h.EffectCount), int(h.MissileCount)}
	if int(h.ItemCount) >= int(CategoryItem.FirstID()) {
		counts[CategoryItem] = int(h.ItemCount) - int(CategoryItem.FirstID()) + 1
	}
	total := counts[0] + counts[1] + counts[2] + counts[3]

	c := &Catalog{Signature: h.Signature, Extended: o.Extended}
	cur := &cursor{b: b, pos: headerSize}
	tr := codec.NewTracker(ctx, o.Progress, total)
	var warnings []codec.Warning

	for _, cat := range Categories {
		c.things[cat] = make([]*Thing, counts[cat])
		for i := range c.things[cat] {
			id := cat.FirstID() + uint16(i)
			t, tex, err := readThing(cur, cat, id, o.Extended)
			if err != nil {
				return nil, nil, errors.Wrapf(err, "dat: %s %d", cat, id)
			}
			for gi, g := range tex.Groups {
				if g.SpriteCount() == 0 {
					warnings = append(warnings, codec.Warning{
						Record: fmt.Sprintf("%s %d", cat, id),
						Err:    fmt.Errorf("frame group %d has a zero dimension", gi),
					})
				}
			}
			c.things[cat][i] = t
			if err := tr.Step(); err != nil {
				return nil, nil, errors.Wrap(err, "dat")
			}
		}
	}
	tr.Finish()

	if rest := len(b) - cur.pos; rest > 0 {
		warnings = append(warnings, codec.Warning{
			Record: "file",
			Err:    fmt.Errorf("%d trailing bytes after the last missile", rest),
		})
	}
	glog.V(2).Infof("dat: signature %08x, %d items, %d outfits, %d effects, %d missiles, %d warnings",
		h.Signature, counts[CategoryItem], counts[CategoryOutfit], counts[CategoryEffect], counts[CategoryMissile], len(warnings))
	return c, warnings, nil
}

// readThing reads one thing's flags and texture descriptor.
func readThing(cur *cursor, cat Category, id uint16, extended bool) (*Thing, *Texture, error) {
	t := NewThing(cat, id)
	for {
		at := cur.pos
		fb, err := cur.u8("flag")
		if err != nil {
			return nil, nil, err
		}
		if fb == flagLast {
			break
		}
		f := Flag(fb)
		if !f.Known() {
			return nil, nil, errors.Wrapf(codec.ErrUnknownFlagByte, "0x%02X at offset %d", fb, at)
		}

		var payload []byte
		if f == FlagMarketItem {
			hdr, err := cur.take(marketHeaderSize, "market header")
			if err != nil {
				return nil, nil, err
			}
			nameLen := int(binary.LittleEndian.Uint16(hdr[marketHeaderSize-2:]))
			rest, err := cur.take(nameLen+4, "market name, vocation and level")
			if err != nil {
				return nil, nil, err
			}
			payload = append(append([]byte{}, hdr...), rest...)
		} else if n := f.payloadSize(); n > 0 {
			p, err := cur.take(n, f.String())
			if err != nil {
				return nil, nil, err
			}
			payload = append([]byte{}, p...)
		}
		t.flags[f] = payload
	}

	start := cur.pos
	tex, err := readTexture(cur, cat == CategoryOutfit, extended)
	if err != nil {
		return nil, nil, err
	}
	t.TextureBytes = append([]byte{}, cur.b[start:cur.pos]...)
	glog.V(3).Infof("dat: %s %d: %d flags, %d texture bytes", cat, id, len(t.flags), len(t.TextureBytes))
	return t, tex, nil
}

// Encode writes the catalog. Flags are written in table order. Missing
// things keep their ids and are written as placeholders.
func Encode(c *Catalog) ([]byte, error) {
	h := c.Header()
	le := binary.LittleEndian
	out := make([]byte, 0, headerSize)
	out = le.AppendUint32(out, h.Signature)
	out = le.AppendUint16(out, h.ItemCount)
	out = le.AppendUint16(out, h.OutfitCount)
	out = le.AppendUint16(out, h.EffectCount)
	out = le.AppendUint16(out, h.MissileCount)

	for _, cat := range Categories {
		for i, t := range c.things[cat] {
			if t.Missing() {
				out = append(out, flagLast)
				out = append(out, placeholder(cat == CategoryOutfit, c.Extended)...)
				continue
			}
			for _, f := range t.Flags() {
				p := t.flags[f]
				if !f.validPayload(p) {
					return nil, errors.Errorf("dat: %s %d: %d byte payload does not fit %s", cat, cat.FirstID()+uint16(i), len(p), f)
				}
				out = append(out, byte(f))
				out = append(out, p...)
			}
			out = append(out, flagLast)
			out = append(out, t.TextureBytes...)
		}
	}
	return out, nil
}

// ApplyChanges sets and unsets flags on the things with the passed ids.
// Flags that are newly set get a zero payload; flags that are already set
// keep theirs. Missing ids are skipped.
func ApplyChanges(c *Catalog, cat Category, ids []uint16, set, unset []Flag) int {
	changed := 0
	for _, id := range ids {
		t := c.Thing(cat, id)
		if t == nil {
			continue
		}
		for _, f := range set {
			if !f.Known() || t.Has(f) {
				continue
			}
			t.Set(f, f.zeroPayload())
		}
		for _, f := range unset {
			t.Unset(f)
		}
		changed++
	}
	return changed
}
