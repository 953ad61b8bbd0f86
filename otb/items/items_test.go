package itemsotb

import (
	"bytes"
	"strings"
	"testing"

	"badc0de.net/pkg/tibia-assets/dat"
	"badc0de.net/pkg/tibia-assets/otb"
	"badc0de.net/pkg/tibia-assets/ttesting"
)

func testItems() *Items {
	items := NewEmpty(otb.Version{Major: 3, Minor: uint32(CLIENT_VERSION_860), Build: 42, CSD: "test items"})
	ground := items.CreateItem(ITEM_GROUP_GROUND, 100)
	ground.Attrs().Name = otb.String("grass")
	items.CreateItem(ITEM_GROUP_NONE, 101)
	return items
}

// testCatalog has dataset items 100 to maxID. Item 100 is a ground tile,
// item 101 a stackable light source.
func testCatalog(t *testing.T, maxID uint16) *dat.Catalog {
	t.Helper()
	tex, err := dat.BuildTexture(dat.FrameGroup{Width: 1, Height: 1, Layers: 1, PatternX: 1, PatternY: 1, PatternZ: 1, Frames: 1, SpriteIDs: []uint32{1}}, false)
	if err != nil {
		t.Fatalf("failed to build texture: %s", err)
	}
	c := dat.NewCatalog(0x4A10, false)
	for id := uint16(100); id <= maxID; id++ {
		thing := dat.NewThing(dat.CategoryItem, id)
		thing.TextureBytes = tex
		switch id {
		case 100:
			must(t, thing.SetValues(dat.FlagGround, 150))
			must(t, thing.Set(dat.FlagUnpassable, nil))
			must(t, thing.Set(dat.FlagUnmoveable, nil))
		case 101:
			must(t, thing.Set(dat.FlagPickupable, nil))
			must(t, thing.Set(dat.FlagStackable, nil))
			must(t, thing.SetValues(dat.FlagHasLight, 7, 215))
		}
		must(t, c.Put(thing))
	}
	return c
}

func must(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
}

func TestNew(t *testing.T) {
	otb, err := New(bytes.NewReader(testItems().Encode()))
	if err != nil {
		t.Fatalf("failed to parse otb: %s", err)
	}

	ttesting.AssertEqualUint32(t, "correct major version", otb.Version.Major, 3)
	ttesting.AssertInRangeUint32(t, "correct minor version", otb.Version.Minor, uint32(CLIENT_VERSION_854), uint32(CLIENT_VERSION_870))
	ttesting.AssertEqualString(t, "csd", otb.Version.CSD, "test items")
	ttesting.AssertEqualInt(t, "item count", len(otb.Items), 2)
	ttesting.AssertEqualInt(t, "client id count", len(otb.ClientIDToArrayIndex), 2)
	ttesting.AssertEqualInt(t, "server id count", len(otb.ServerIDToArrayIndex), 2)
	ttesting.AssertEqualUint16(t, "min server id", otb.MinServerID, 100)
	ttesting.AssertEqualUint16(t, "max server id", otb.MaxServerID, 101)

	item, err := otb.ItemByClientID(100)
	if err != nil {
		t.Fatalf("failed to find item: %s", err)
	}
	ttesting.AssertEqualString(t, "name", item.Name(), "grass")
	ttesting.AssertEqualBool(t, "group", item.Group() == ITEM_GROUP_GROUND, true)

	if _, err := otb.ItemByServerID(5000); err == nil {
		t.Errorf("got no error for an unknown server id")
	}
}

func TestSyncFromDataset(t *testing.T) {
	items := testItems()
	ground, _ := items.ItemByServerID(100)
	ground.SetFlags(FLAG_FLOORCHANGEDOWN | FLAG_PICKUPABLE | FLAG_MOVEABLE)
	light, _ := items.ItemByServerID(101)
	light.Attrs().Speed = otb.Uint16(10)

	updated := items.SyncFromDataset(testCatalog(t, 101))
	ttesting.AssertEqualInt(t, "updated items", updated, 2)

	ttesting.AssertEqualUint32(t, "ground flags", uint32(ground.Flags()), uint32(FLAG_FLOORCHANGEDOWN|FLAG_BLOCK_SOLID))
	ttesting.AssertEqualUint16(t, "ground speed", *ground.Attrs().Speed, 150)
	_, lit := ground.Light()
	ttesting.AssertEqualBool(t, "ground has no light", lit, false)

	ttesting.AssertEqualUint32(t, "light flags", uint32(light.Flags()), uint32(FLAG_PICKUPABLE|FLAG_STACKABLE|FLAG_MOVEABLE))
	ttesting.AssertEqualBool(t, "speed removed", light.Attrs().Speed == nil, true)
	l, lit := light.Light()
	ttesting.AssertEqualBool(t, "has light", lit, true)
	ttesting.AssertEqualUint16(t, "light level", l.Level, 7)
	ttesting.AssertEqualUint16(t, "light color", l.Color, 215)

	back, err := Decode(items.Encode())
	if err != nil {
		t.Fatalf("failed to parse synced otb: %s", err)
	}
	item, _ := back.ItemByServerID(100)
	ttesting.AssertEqualUint16(t, "speed written", *item.Attrs().Speed, 150)
}

func TestFlagMismatches(t *testing.T) {
	items := testItems()
	ground, _ := items.ItemByServerID(100)
	ground.SetFlags(FLAG_BLOCK_SOLID | FLAG_HANGABLE | FLAG_MOVEABLE)

	got := items.FlagMismatches(testCatalog(t, 101))
	ttesting.AssertEqualInt(t, "mismatch count", len(got), 2)
	if len(got) != 2 {
		return
	}
	ttesting.AssertEqualBool(t, "hangable", got[0].Flag == FLAG_HANGABLE && got[0].DatFlag == dat.FlagHangable && !got[0].Inverted, true)
	ttesting.AssertEqualBool(t, "moveable", got[1].Flag == FLAG_MOVEABLE && got[1].DatFlag == dat.FlagUnmoveable && got[1].Inverted, true)
	ttesting.AssertEqualUint16(t, "server id", got[1].ServerID, 100)
}

func TestCreateMissing(t *testing.T) {
	items := testItems()
	created := items.CreateMissing(testCatalog(t, 104))
	ttesting.AssertEqualInt(t, "created", created, 3)
	ttesting.AssertEqualInt(t, "item count", len(items.Items), 5)
	for cid := uint16(102); cid <= 104; cid++ {
		item, err := items.ItemByClientID(cid)
		if err != nil {
			t.Errorf("client id %d: %s", cid, err)
			continue
		}
		ttesting.AssertEqualUint16(t, "server id follows client id", item.ServerID(), cid)
	}
	ttesting.AssertEqualInt(t, "nothing left to create", items.CreateMissing(testCatalog(t, 104)), 0)
}

func TestDuplicateItem(t *testing.T) {
	items := testItems()
	ground, _ := items.ItemByServerID(100)
	ground.SetFlags(FLAG_BLOCK_SOLID)
	ground.Node().SetRaw(0x99, []byte{1, 2, 3})

	dup, err := items.DuplicateItem(100)
	if err != nil {
		t.Fatalf("failed to duplicate: %s", err)
	}
	ttesting.AssertEqualUint16(t, "new server id", dup.ServerID(), 102)
	ttesting.AssertEqualUint16(t, "client id copied", dup.ClientID(), 100)
	ttesting.AssertEqualUint32(t, "flags copied", uint32(dup.Flags()), uint32(FLAG_BLOCK_SOLID))
	ttesting.AssertEqualString(t, "name copied", dup.Name(), "grass")

	*dup.Attrs().Name = "dirt"
	ttesting.AssertEqualString(t, "source name untouched", ground.Name(), "grass")

	back, err := Decode(items.Encode())
	if err != nil {
		t.Fatalf("failed to parse otb: %s", err)
	}
	item, err := back.ItemByServerID(102)
	if err != nil {
		t.Fatalf("duplicate not written: %s", err)
	}
	raw, _ := item.Node().Raw(0x99)
	ttesting.AssertEqualBytes(t, "unknown attribute copied", raw, []byte{1, 2, 3})

	if _, err := items.DuplicateItem(999); err == nil {
		t.Errorf("got no error duplicating an unknown server id")
	}
}

func TestAddXMLInfo(t *testing.T) {
	items := testItems()
	xml := `<?xml version="1.0"?>
<items>
	<item id="100" article="a" name="patch of grass">
		<attribute key="description" value="It is green."/>
	</item>
	<item fromid="101" toid="103" name="stone"/>
	<item id="20001" name="water"/>
</items>`
	if err := items.AddXMLInfo(strings.NewReader(xml)); err != nil {
		t.Fatalf("failed to add xml info: %s", err)
	}
	ground, _ := items.ItemByServerID(100)
	ttesting.AssertEqualString(t, "name", ground.Name(), "patch of grass")
	ttesting.AssertEqualString(t, "article", ground.Article(), "a")
	ttesting.AssertEqualString(t, "description", ground.Description(), "It is green.")
	stone, _ := items.ItemByServerID(101)
	ttesting.AssertEqualString(t, "range name", stone.Name(), "stone")
}

func TestEnumStrings(t *testing.T) {
	ttesting.AssertEqualString(t, "flags", (FLAG_BLOCK_SOLID | FLAG_MOVEABLE | FLAG_FORCEUSE).String(), "block solid, moveable, force use")
	ttesting.AssertEqualString(t, "no flags", ItemsFlags(0).String(), "")
	ttesting.AssertEqualString(t, "group", ITEM_GROUP_FLUID.String(), "fluid")
	ttesting.AssertEqualString(t, "bad group", ItemGroup(99).String(), "invalid item group")
	ttesting.AssertEqualString(t, "version", CLIENT_VERSION_860.String(), "8.60")
	ttesting.AssertEqualString(t, "old version", ClientVersion(19).String(), "8.60 (old)")
	ttesting.AssertEqualString(t, "unknown version", ClientVersion(0).String(), "client version 0 unknown")
}
