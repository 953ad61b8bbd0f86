// Package appearances reads and writes the appearance catalog shipped with
// newer Tibia clients (appearances.dat, a protocol buffer message).
//
// The catalog is walked generically with the wire package instead of
// generated message types, so that unknown fields and flags survive and
// new client versions do not require regenerating code.
package appearances

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/golang/glog"
	"github.com/pkg/errors"

	"badc0de.net/pkg/tibia-assets/codec"
	"badc0de.net/pkg/tibia-assets/wire"
)

// Category is the kind of appearance; it matches the top-level field
// number the appearance is stored under.
type Category int

const (
	CategoryObject Category = iota + 1
	CategoryOutfit
	CategoryEffect
	CategoryMissile
)

func (c Category) String() string {
	switch c {
	case CategoryObject:
		return "object"
	case CategoryOutfit:
		return "outfit"
	case CategoryEffect:
		return "effect"
	case CategoryMissile:
		return "missile"
	default:
		return fmt.Sprintf("category %d", int(c))
	}
}

// ParseCategory is the inverse of Category.String.
func ParseCategory(s string) (Category, error) {
	for c := CategoryObject; c <= CategoryMissile; c++ {
		if c.String() == s {
			return c, nil
		}
	}
	return 0, fmt.Errorf("appearances: unknown category %q", s)
}

// Appearance is a single entry of the catalog.
type Appearance struct {
	ID          uint32
	Category    Category
	Name        string
	Description string

	// FrameGroups holds the sprite ids of each frame group, in order.
	FrameGroups [][]uint32
	// SpriteIDs is all of FrameGroups, flattened.
	SpriteIDs []uint32

	Flags map[string]FlagValue

	// Raw is the encoded message this appearance was decoded from. Encode
	// writes it back unchanged; clear it after editing other fields.
	Raw []byte
}

// Catalog holds all appearances, grouped by category.
type Catalog struct {
	Objects  []*Appearance
	Outfits  []*Appearance
	Effects  []*Appearance
	Missiles []*Appearance

	index map[Category]map[uint32]*Appearance
}

// All returns the appearances of the passed category.
func (c *Catalog) All(cat Category) []*Appearance {
	switch cat {
	case CategoryObject:
		return c.Objects
	case CategoryOutfit:
		return c.Outfits
	case CategoryEffect:
		return c.Effects
	case CategoryMissile:
		return c.Missiles
	}
	return nil
}

// Add appends an appearance to the list for its category.
func (c *Catalog) Add(a *Appearance) {
	switch a.Category {
	case CategoryObject:
		c.Objects = append(c.Objects, a)
	case CategoryOutfit:
		c.Outfits = append(c.Outfits, a)
	case CategoryEffect:
		c.Effects = append(c.Effects, a)
	case CategoryMissile:
		c.Missiles = append(c.Missiles, a)
	default:
		glog.Warningf("appearances: dropping appearance %d with invalid category %v", a.ID, a.Category)
		return
	}
	if c.index != nil {
		c.index[a.Category][a.ID] = a
	}
}

// ByID looks up an appearance. If ids are duplicated, the last one wins.
func (c *Catalog) ByID(cat Category, id uint32) (*Appearance, bool) {
	if c.index == nil {
		c.index = make(map[Category]map[uint32]*Appearance)
		for cc := CategoryObject; cc <= CategoryMissile; cc++ {
			c.index[cc] = make(map[uint32]*Appearance)
			for _, a := range c.All(cc) {
				c.index[cc][a.ID] = a
			}
		}
	}
	a, ok := c.index[cat][id]
	return a, ok
}

// Decode parses a whole appearance catalog.
func Decode(b []byte) (*Catalog, []codec.Warning, error) {
	return DecodeContext(context.Background(), b, nil)
}

// DecodeContext parses a catalog, reporting progress and honouring
// cancellation between appearances.
//
// An appearance whose message is malformed is skipped and reported as a
// warning. Malformed top-level framing aborts the whole decode.
func DecodeContext(ctx context.Context, b []byte, progress codec.Progress) (*Catalog, []codec.Warning, error) {
	var top []wire.Field
	if err := wire.Walk(b, func(f wire.Field) error {
		if f.Type == wire.BytesType && f.Num >= wire.Number(CategoryObject) && f.Num <= wire.Number(CategoryMissile) {
			top = append(top, f)
		}
		return nil
	}); err != nil {
		return nil, nil, errors.Wrap(err, "appearances: top level")
	}

	c := &Catalog{}
	var warnings []codec.Warning
	tr := codec.NewTracker(ctx, progress, len(top))
	for i, f := range top {
		cat := Category(f.Num)
		a, err := decodeAppearance(f.Bytes, cat)
		if err != nil {
			warnings = append(warnings, codec.Warning{
				Record: fmt.Sprintf("%v #%d", cat, i),
				Err:    err,
			})
		} else {
			c.Add(a)
		}
		if err := tr.Step(); err != nil {
			return nil, nil, err
		}
	}
	tr.Finish()
	glog.V(2).Infof("appearances: %d objects, %d outfits, %d effects, %d missiles, %d warnings",
		len(c.Objects), len(c.Outfits), len(c.Effects), len(c.Missiles), len(warnings))
	return c, warnings, nil
}

func decodeAppearance(b []byte, cat Category) (*Appearance, error) {
	a := &Appearance{Category: cat, Raw: b}
	err := wire.Walk(b, func(f wire.Field) error {
		switch {
		case f.Num == 1 && f.Type == wire.VarintType:
			a.ID = uint32(f.Varint)
		case f.Num == 2 && f.Type == wire.BytesType:
			ids, err := decodeFrameGroup(f.Bytes)
			if err != nil {
				return errors.Wrap(err, "frame group")
			}
			a.FrameGroups = append(a.FrameGroups, ids)
			a.SpriteIDs = append(a.SpriteIDs, ids...)
		case f.Num == 3 && f.Type == wire.BytesType:
			flags, err := decodeFlags(f.Bytes)
			if err != nil {
				return errors.Wrap(err, "flags")
			}
			a.Flags = flags
		case f.Num == 4 && f.Type == wire.BytesType:
			a.Name = strings.ToValidUTF8(string(f.Bytes), "")
		case f.Num == 5 && f.Type == wire.BytesType:
			a.Description = strings.ToValidUTF8(string(f.Bytes), "")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return a, nil
}

func decodeFrameGroup(b []byte) ([]uint32, error) {
	var ids []uint32
	err := wire.Walk(b, func(f wire.Field) error {
		if f.Num != 3 || f.Type != wire.BytesType {
			return nil
		}
		return wire.Walk(f.Bytes, func(f wire.Field) error {
			if f.Num != 5 {
				return nil
			}
			switch f.Type {
			case wire.VarintType:
				ids = append(ids, uint32(f.Varint))
			case wire.BytesType:
				vs, err := wire.Packed(f.Bytes)
				if err != nil {
					return errors.Wrap(err, "packed sprite ids")
				}
				for _, v := range vs {
					ids = append(ids, uint32(v))
				}
			}
			return nil
		})
	})
	return ids, err
}

// Encode serializes the catalog. Appearances that still carry Raw bytes are
// written back verbatim; others are built from their fields.
func Encode(c *Catalog) []byte {
	var out []byte
	for cat := CategoryObject; cat <= CategoryMissile; cat++ {
		for _, a := range c.All(cat) {
			msg := a.Raw
			if msg == nil {
				msg = encodeAppearance(a)
			}
			out = wire.AppendBytes(out, wire.Number(cat), msg)
		}
	}
	return out
}

func encodeAppearance(a *Appearance) []byte {
	var b []byte
	b = wire.AppendVarint(b, 1, uint64(a.ID))

	groups := a.FrameGroups
	if groups == nil && len(a.SpriteIDs) > 0 {
		groups = [][]uint32{a.SpriteIDs}
	}
	for _, ids := range groups {
		vs := make([]uint64, len(ids))
		for i, id := range ids {
			vs[i] = uint64(id)
		}
		info := wire.AppendPacked(nil, 5, vs)
		b = wire.AppendBytes(b, 2, wire.AppendBytes(nil, 3, info))
	}

	if len(a.Flags) > 0 {
		b = wire.AppendBytes(b, 3, encodeFlags(a.Flags))
	}
	if a.Name != "" {
		b = wire.AppendBytes(b, 4, []byte(a.Name))
	}
	if a.Description != "" {
		b = wire.AppendBytes(b, 5, []byte(a.Description))
	}
	return b
}

// fieldFromName parses the "flag_N" / "field_N" fallback names.
func fieldFromName(name, prefix string) (wire.Number, bool) {
	if !strings.HasPrefix(name, prefix) {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimPrefix(name, prefix))
	if err != nil || n <= 0 {
		return 0, false
	}
	return wire.Number(n), true
}

func sortedKeys(m map[wire.Number][]byte) []wire.Number {
	keys := make([]wire.Number, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
