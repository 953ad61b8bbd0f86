package dat

import (
	"encoding/binary"
	"fmt"
	"sort"

	"golang.org/x/text/encoding/charmap"
)

// Category is one of the four lists of things in a dataset.
type Category int

const (
	CategoryItem Category = iota
	CategoryOutfit
	CategoryEffect
	CategoryMissile
)

// Categories lists the categories in file order.
var Categories = []Category{CategoryItem, CategoryOutfit, CategoryEffect, CategoryMissile}

func (c Category) String() string {
	switch c {
	case CategoryItem:
		return "item"
	case CategoryOutfit:
		return "outfit"
	case CategoryEffect:
		return "effect"
	case CategoryMissile:
		return "missile"
	default:
		return fmt.Sprintf("Category(%d)", int(c))
	}
}

// FirstID is the id of the first thing in the category.
func (c Category) FirstID() uint16 {
	if c == CategoryItem {
		return 100
	}
	return 1
}

// Thing is one entry in a dataset: an item, outfit, effect or missile.
type Thing struct {
	Category Category
	ID       uint16

	// flags maps each set flag to its payload, nil for flags without one.
	flags map[Flag][]byte

	// TextureBytes holds the texture descriptor exactly as read. An empty
	// descriptor marks a missing thing.
	TextureBytes []byte
}

// NewThing creates a thing without any flags or texture.
func NewThing(c Category, id uint16) *Thing {
	return &Thing{Category: c, ID: id, flags: make(map[Flag][]byte)}
}

// Missing reports whether the thing has no texture and is written as a
// placeholder.
func (t *Thing) Missing() bool {
	return t == nil || len(t.TextureBytes) == 0
}

// Has reports whether the flag is set.
func (t *Thing) Has(f Flag) bool {
	_, ok := t.flags[f]
	return ok
}

// Flags returns the set flags in table order.
func (t *Thing) Flags() []Flag {
	out := make([]Flag, 0, len(t.flags))
	for f := range t.flags {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Payload returns the raw bytes following the flag id.
func (t *Thing) Payload(f Flag) []byte {
	return t.flags[f]
}

// Set sets a flag with a raw payload, which must match the flag's format.
func (t *Thing) Set(f Flag, payload []byte) error {
	if !f.Known() {
		return fmt.Errorf("dat: cannot set unknown flag 0x%02X", uint8(f))
	}
	if !f.validPayload(payload) {
		return fmt.Errorf("dat: %d byte payload does not fit %s", len(payload), f)
	}
	if t.flags == nil {
		t.flags = make(map[Flag][]byte)
	}
	t.flags[f] = payload
	return nil
}

// SetValues sets a fixed-format flag from its numeric values.
func (t *Thing) SetValues(f Flag, vals ...int) error {
	if f == FlagMarketItem {
		return fmt.Errorf("dat: %s has no numeric form; use SetMarketInfo", f)
	}
	p, err := f.encodeValues(vals)
	if err != nil {
		return err
	}
	return t.Set(f, p)
}

// Unset removes a flag together with its payload.
func (t *Thing) Unset(f Flag) {
	delete(t.flags, f)
}

// Values returns the numeric values of a fixed-format flag.
func (t *Thing) Values(f Flag) ([]int, bool) {
	p, ok := t.flags[f]
	if !ok {
		return nil, false
	}
	return f.decodeValues(p), true
}

func (t *Thing) value(f Flag, i int) int {
	vals, _ := t.Values(f)
	if i < len(vals) {
		return vals[i]
	}
	return 0
}

// GroundSpeed is the speed of a ground tile, or 0.
func (t *Thing) GroundSpeed() uint16 {
	return uint16(t.value(FlagGround, 0))
}

// LightInfo describes the light a thing emits.
type LightInfo struct {
	Strength uint16
	Color    DatasetColor
}

// LightInfo returns the thing's light, zero if it emits none.
func (t *Thing) LightInfo() LightInfo {
	return LightInfo{Strength: uint16(t.value(FlagHasLight, 0)), Color: DatasetColor(t.value(FlagHasLight, 1))}
}

// Offset is the drawing displacement of the thing.
func (t *Thing) Offset() (x, y int) {
	return t.value(FlagHasOffset, 0), t.value(FlagHasOffset, 1)
}

// Elevation is how far things stacked on top are lifted.
func (t *Thing) Elevation() int {
	return t.value(FlagHasElevation, 0)
}

// MinimapColor returns the color shown on the minimap and whether there is
// one.
func (t *Thing) MinimapColor() (DatasetColor, bool) {
	if !t.Has(FlagShowOnMinimap) {
		return 0, false
	}
	return DatasetColor(t.value(FlagShowOnMinimap, 0)), true
}

// MarketInfo is the typed form of the MarketItem payload.
type MarketInfo struct {
	Category uint16
	TradeAs  uint16
	ShowAs   uint16
	Name     string
	Vocation uint16
	Level    uint16
}

// MarketInfo decodes the MarketItem payload.
func (t *Thing) MarketInfo() (MarketInfo, bool) {
	p, ok := t.flags[FlagMarketItem]
	if !ok || !FlagMarketItem.validPayload(p) {
		return MarketInfo{}, false
	}
	le := binary.LittleEndian
	nameLen := int(le.Uint16(p[6:]))
	name, err := charmap.ISO8859_1.NewDecoder().Bytes(p[marketHeaderSize : marketHeaderSize+nameLen])
	if err != nil {
		name = p[marketHeaderSize : marketHeaderSize+nameLen]
	}
	rest := p[marketHeaderSize+nameLen:]
	return MarketInfo{
		Category: le.Uint16(p[0:]),
		TradeAs:  le.Uint16(p[2:]),
		ShowAs:   le.Uint16(p[4:]),
		Name:     string(name),
		Vocation: le.Uint16(rest[0:]),
		Level:    le.Uint16(rest[2:]),
	}, true
}

// SetMarketInfo encodes m as the MarketItem payload.
func (t *Thing) SetMarketInfo(m MarketInfo) error {
	name, err := charmap.ISO8859_1.NewEncoder().Bytes([]byte(m.Name))
	if err != nil {
		return fmt.Errorf("dat: market name %q: %v", m.Name, err)
	}
	if len(name) > 0xFFFF {
		return fmt.Errorf("dat: market name is %d bytes long", len(name))
	}
	le := binary.LittleEndian
	p := make([]byte, 0, marketHeaderSize+len(name)+4)
	p = le.AppendUint16(p, m.Category)
	p = le.AppendUint16(p, m.TradeAs)
	p = le.AppendUint16(p, m.ShowAs)
	p = le.AppendUint16(p, uint16(len(name)))
	p = append(p, name...)
	p = le.AppendUint16(p, m.Vocation)
	p = le.AppendUint16(p, m.Level)
	return t.Set(FlagMarketItem, p)
}
