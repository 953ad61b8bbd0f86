package appearances

import (
	"context"
	"testing"

	"github.com/pkg/errors"

	"badc0de.net/pkg/tibia-assets/ttesting"
	"badc0de.net/pkg/tibia-assets/wire"
)

func buildObject(id uint64, name string, packed bool, ids ...uint64) []byte {
	var info []byte
	if packed {
		info = wire.AppendPacked(info, 5, ids)
	} else {
		for _, sid := range ids {
			info = wire.AppendVarint(info, 5, sid)
		}
	}
	var flags []byte
	flags = wire.AppendVarint(flags, 1, 1)  // bank
	flags = wire.AppendVarint(flags, 27, 8) // height
	light := wire.AppendVarint(nil, 1, 3)
	light = wire.AppendVarint(light, 2, 215)
	flags = wire.AppendBytes(flags, 23, light)
	market := wire.AppendVarint(nil, 1, 17)
	market = wire.AppendBytes(market, 4, []byte("sword"))
	flags = wire.AppendBytes(flags, 36, market)
	flags = wire.AppendVarint(flags, 40, 0)

	var b []byte
	b = wire.AppendVarint(b, 1, id)
	b = wire.AppendBytes(b, 2, wire.AppendBytes(nil, 3, info))
	b = wire.AppendBytes(b, 3, flags)
	b = wire.AppendBytes(b, 4, []byte(name))
	b = append(b, 0x35, 1, 2, 3, 4) // field 6, fixed32: skipped
	return b
}

func TestDecode(t *testing.T) {
	var cat []byte
	cat = wire.AppendBytes(cat, 1, buildObject(100, "sword", true, 1, 2, 300))
	cat = wire.AppendBytes(cat, 1, buildObject(101, "shield", false, 7, 8))
	cat = wire.AppendBytes(cat, 2, wire.AppendVarint(nil, 1, 5))
	cat = wire.AppendVarint(cat, 9, 12345) // unrelated top-level field
	cat = wire.AppendBytes(cat, 4, wire.AppendVarint(nil, 1, 7))

	c, warnings, err := Decode(cat)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	ttesting.AssertEqualInt(t, "warnings", len(warnings), 0)
	ttesting.AssertEqualInt(t, "objects", len(c.Objects), 2)
	ttesting.AssertEqualInt(t, "outfits", len(c.Outfits), 1)
	ttesting.AssertEqualInt(t, "effects", len(c.Effects), 0)
	ttesting.AssertEqualInt(t, "missiles", len(c.Missiles), 1)

	sword, ok := c.ByID(CategoryObject, 100)
	if !ok {
		t.Fatalf("object 100 not found")
	}
	ttesting.AssertEqualString(t, "name", sword.Name, "sword")
	ttesting.AssertEqualInt(t, "packed sprite count", len(sword.SpriteIDs), 3)
	if len(sword.SpriteIDs) == 3 {
		ttesting.AssertEqualUint32(t, "third sprite id", sword.SpriteIDs[2], 300)
	}
	ttesting.AssertEqualBool(t, "bank", sword.Has("bank"), true)
	ttesting.AssertEqualBool(t, "flag_40 false", sword.Has("flag_40"), false)
	if v := sword.Flags["height"]; v.Kind != FlagInt || v.Int != 8 {
		t.Errorf("height: got %+v; want integer 8", v)
	}
	light := sword.Flags["light"]
	if light.Kind != FlagMessage || light.Fields["brightness"] != uint64(3) || light.Fields["color"] != uint64(215) {
		t.Errorf("light: got %v", light)
	}
	market := sword.Flags["market"]
	if market.Fields["category"] != uint64(17) || market.Fields["name"] != "sword" {
		t.Errorf("market: got %v", market)
	}

	shield, _ := c.ByID(CategoryObject, 101)
	ttesting.AssertEqualInt(t, "repeated sprite count", len(shield.SpriteIDs), 2)
}

func TestDecodeSkipsBrokenAppearance(t *testing.T) {
	var cat []byte
	cat = wire.AppendBytes(cat, 1, buildObject(100, "ok", true, 1))
	cat = wire.AppendBytes(cat, 1, []byte{0x08, 0x80}) // unterminated id varint
	cat = wire.AppendBytes(cat, 3, []byte{0x0B})       // group wire type
	cat = wire.AppendBytes(cat, 1, buildObject(102, "also ok", true, 2))

	c, warnings, err := Decode(cat)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	ttesting.AssertEqualInt(t, "warnings", len(warnings), 2)
	ttesting.AssertEqualInt(t, "objects", len(c.Objects), 2)
	if len(warnings) == 2 && !errors.Is(warnings[1].Err, wire.ErrGroupWireType) {
		t.Errorf("second warning: got %v; want group wire type", warnings[1].Err)
	}
}

func TestDecodeFatal(t *testing.T) {
	cat := wire.AppendBytes(nil, 1, buildObject(100, "x", true, 1))
	cat = append(cat, 0x0A, 0x7F) // claims 127 bytes
	if _, _, err := Decode(cat); err == nil {
		t.Errorf("expected error for truncated top-level field")
	}
}

func TestDecodeCancelled(t *testing.T) {
	var cat []byte
	for i := 0; i < 3; i++ {
		cat = wire.AppendBytes(cat, 1, buildObject(uint64(100+i), "x", true, 1))
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	c, _, err := DecodeContext(ctx, cat, nil)
	if !errors.Is(err, context.Canceled) || c != nil {
		t.Errorf("got (%v, %v); want (nil, context.Canceled)", c, err)
	}
}

func TestEncodeRoundTrip(t *testing.T) {
	src := &Catalog{}
	src.Add(&Appearance{
		ID:          100,
		Category:    CategoryObject,
		Name:        "torch",
		Description: "lit",
		FrameGroups: [][]uint32{{1, 2}, {3}},
		Flags: map[string]FlagValue{
			"take":    {Kind: FlagBool, Bool: true},
			"flag_99": {Kind: FlagInt, Int: 42},
			"light":   {Kind: FlagMessage, Fields: map[string]interface{}{"brightness": uint64(7), "field_9": "x"}},
		},
	})
	src.Add(&Appearance{ID: 3, Category: CategoryEffect, SpriteIDs: []uint32{9}})

	c, warnings, err := Decode(Encode(src))
	if err != nil || len(warnings) != 0 {
		t.Fatalf("decode: %v %v", err, warnings)
	}
	a, ok := c.ByID(CategoryObject, 100)
	if !ok {
		t.Fatalf("object 100 missing")
	}
	ttesting.AssertEqualString(t, "name", a.Name, "torch")
	ttesting.AssertEqualString(t, "description", a.Description, "lit")
	ttesting.AssertEqualInt(t, "frame groups", len(a.FrameGroups), 2)
	ttesting.AssertEqualInt(t, "sprites", len(a.SpriteIDs), 3)
	ttesting.AssertEqualBool(t, "take", a.Has("take"), true)
	ttesting.AssertEqualString(t, "flag_99", a.Flags["flag_99"].String(), "42")
	ttesting.AssertEqualString(t, "light", a.Flags["light"].String(), "{brightness:7 field_9:x}")

	e, ok := c.ByID(CategoryEffect, 3)
	if !ok || len(e.SpriteIDs) != 1 || e.SpriteIDs[0] != 9 {
		t.Errorf("effect 3: got %+v", e)
	}

	// Unchanged appearances are written back byte for byte.
	ttesting.AssertEqualBytes(t, "raw re-emit", Encode(c), Encode(src))
}
