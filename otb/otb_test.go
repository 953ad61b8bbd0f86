package otb

import (
	"context"
	"fmt"
	"testing"

	"github.com/pkg/errors"

	"badc0de.net/pkg/tibia-assets/codec"
	"badc0de.net/pkg/tibia-assets/ttesting"
)

// sampleFile is a root with two item nodes. The first item has flags made
// of marker bytes, which are written raw, a name that needs escaping, and an
// attribute without a typed form.
func sampleFile() []byte {
	return []byte{
		0, 0, 0, 0,       // header
		NODE_START, 0x00, // root
		0, 0, 0, 0,       // flags
		NODE_START, 0x01,
		0xFF, 0, 0, 0,                         // flags 0xFF
		16, 2, 0, 100, 0,                      // server id
		17, 2, 0, 200, 0,                      // client id
		18, 3, 0, 'a', ESCAPE_CHAR, 0xFE, 'b', // name
		0x99, 1, 0, 7,                         // unknown
		NODE_END,
		NODE_START, 0x02,
		0, 0, 0, 0,
		16, 2, 0, 101, 0,
		NODE_END,
		NODE_END,
	}
}

func TestDecode(t *testing.T) {
	tree, err := Decode(sampleFile())
	if err != nil {
		t.Fatalf("failed to parse otb: %s", err)
	}
	ttesting.AssertEqualInt(t, "node count", len(tree.Nodes), 3)
	ttesting.AssertEqualInt(t, "root children", len(tree.Children(0)), 2)
	if len(tree.Children(0)) != 2 {
		return
	}
	ttesting.AssertEqualInt(t, "first child", tree.Children(0)[0], 1)
	ttesting.AssertEqualInt(t, "second child", tree.Children(0)[1], 2)

	item := tree.Node(1)
	ttesting.AssertEqualInt(t, "item parent", item.Parent, 0)
	ttesting.AssertEqualUint32(t, "item flags", item.Flags, 0xFF)
	if item.Attrs.ServerID == nil || item.Attrs.ClientID == nil || item.Attrs.Name == nil {
		t.Fatalf("typed attributes missing: %+v", item.Attrs)
	}
	ttesting.AssertEqualUint16(t, "server id", *item.Attrs.ServerID, 100)
	ttesting.AssertEqualUint16(t, "client id", *item.Attrs.ClientID, 200)
	ttesting.AssertEqualString(t, "latin-1 name", *item.Attrs.Name, "aþb")
	raw, ok := item.Raw(0x99)
	ttesting.AssertEqualBool(t, "unknown attribute kept", ok, true)
	ttesting.AssertEqualBytes(t, "unknown attribute data", raw, []byte{7})
	ttesting.AssertEqualInt(t, "raw attribute count", len(item.RawAttrs()), 4)
	ttesting.AssertEqualBool(t, "no speed", item.Attrs.Speed == nil, true)
}

func TestEncodeRoundTrip(t *testing.T) {
	in := sampleFile()
	tree, err := Decode(in)
	if err != nil {
		t.Fatalf("failed to parse otb: %s", err)
	}
	ttesting.AssertEqualBytes(t, "re-encoded file", Encode(tree), in)
}

func TestFlagsAreNotEscaped(t *testing.T) {
	in := []byte{
		0, 0, 0, 0,
		NODE_START, 0x00, 0, 0, 0, 0,
		NODE_START, 0x01, 0xFF, 0, 0, 0,
		16, 2, 0, 100, 0,
		NODE_END,
		NODE_END,
	}
	tree, err := Decode(in)
	if err != nil {
		t.Fatalf("failed to parse otb: %s", err)
	}
	ttesting.AssertEqualUint32(t, "flags", tree.Node(1).Flags, 0xFF)
	ttesting.AssertEqualUint16(t, "server id after flags", *tree.Node(1).Attrs.ServerID, 100)
	ttesting.AssertEqualBytes(t, "re-encoded file", Encode(tree), in)

	n := New(0)
	n.Node(n.AddNode(0, 1)).Flags = 0xFDFEFF01
	want := []byte{0, 0, 0, 0, NODE_START, 0, 0, 0, 0, 0, NODE_START, 1, 0x01, 0xFF, 0xFE, 0xFD, NODE_END, NODE_END}
	ttesting.AssertEqualBytes(t, "marker bytes in flags written raw", Encode(n), want)
	back, err := Decode(want)
	if err != nil {
		t.Fatalf("failed to parse otb: %s", err)
	}
	ttesting.AssertEqualUint32(t, "marker flags", back.Node(1).Flags, 0xFDFEFF01)
	ttesting.AssertEqualInt(t, "node count", len(back.Nodes), 2)
}

func TestEncodeChangedAttributes(t *testing.T) {
	tree, err := Decode(sampleFile())
	if err != nil {
		t.Fatalf("failed to parse otb: %s", err)
	}
	item := tree.Node(1)
	item.Attrs.ServerID = Uint16(300)
	item.Attrs.ClientID = nil
	item.Attrs.Speed = Uint16(150)

	back, err := Decode(Encode(tree))
	if err != nil {
		t.Fatalf("failed to parse re-encoded otb: %s", err)
	}
	got := back.Node(1)
	ttesting.AssertEqualUint16(t, "changed server id", *got.Attrs.ServerID, 300)
	ttesting.AssertEqualBool(t, "cleared client id", got.Attrs.ClientID == nil, true)
	ttesting.AssertEqualUint16(t, "added speed", *got.Attrs.Speed, 150)
	ttesting.AssertEqualString(t, "name kept", *got.Attrs.Name, "aþb")

	var order []Attribute
	for _, r := range got.RawAttrs() {
		order = append(order, r.ID)
	}
	ttesting.AssertEqualString(t, "attribute order", fmt.Sprint(order), fmt.Sprint([]Attribute{ATTR_SERVERID, ATTR_NAME, ATTR_SPEED, 0x99}))
}

func TestEncodeKeepsNarrowWeight(t *testing.T) {
	n := New(0)
	item := n.AddNode(0, 1)
	n.Node(item).SetRaw(ATTR_WEIGHT, []byte{0xF4, 0x01})
	n.Node(item).Attrs.Weight = Uint32(500)

	tree, err := Decode(Encode(n))
	if err != nil {
		t.Fatalf("failed to parse otb: %s", err)
	}
	raw, _ := tree.Node(1).Raw(ATTR_WEIGHT)
	ttesting.AssertEqualBytes(t, "unchanged weight keeps its width", raw, []byte{0xF4, 0x01})

	tree.Node(1).Attrs.Weight = Uint32(600)
	tree, err = Decode(Encode(tree))
	if err != nil {
		t.Fatalf("failed to parse otb: %s", err)
	}
	raw, _ = tree.Node(1).Raw(ATTR_WEIGHT)
	ttesting.AssertEqualBytes(t, "changed weight is written as u32", raw, []byte{0x58, 0x02, 0, 0})
}

func TestEncodeTypedAttributes(t *testing.T) {
	n := New(0)
	n.Root().Attrs.Version = &Version{Major: 3, Minor: 57, Build: 1, CSD: "OTB 3.57.1"}
	item := n.Node(n.AddNode(0, 1))
	item.Attrs.Weapon = &Weapon{Attack: 20, Defense: 12}
	item.Attrs.Light = &Light{Level: 7, Color: 215}
	item.Attrs.Decay = &Decay{To: 2, Time: 60}
	item.Attrs.UpgradeClassification = Uint8(3)
	item.Attrs.Corpse = Bool(true)
	item.Attrs.Ammo = Bool(false)
	item.Attrs.CyclopediaItem = Uint16(4)

	tree, err := Decode(Encode(n))
	if err != nil {
		t.Fatalf("failed to parse otb: %s", err)
	}
	v := tree.Root().Attrs.Version
	if v == nil {
		t.Fatalf("root version missing")
	}
	ttesting.AssertEqualUint32(t, "minor version", v.Minor, 57)
	ttesting.AssertEqualString(t, "csd", v.CSD, "OTB 3.57.1")
	raw, _ := tree.Root().Raw(ATTR_ROOT_VERSION)
	ttesting.AssertEqualInt(t, "version attribute size", len(raw), 12+128)

	got := tree.Node(1).Attrs
	ttesting.AssertEqualBool(t, "weapon", *got.Weapon == Weapon{Attack: 20, Defense: 12}, true)
	ttesting.AssertEqualBool(t, "light", *got.Light == Light{Level: 7, Color: 215}, true)
	ttesting.AssertEqualBool(t, "decay", *got.Decay == Decay{To: 2, Time: 60}, true)
	ttesting.AssertEqualInt(t, "upgrade classification", int(*got.UpgradeClassification), 3)
	ttesting.AssertEqualBool(t, "corpse", *got.Corpse, true)
	ttesting.AssertEqualBool(t, "ammo", *got.Ammo, false)
	ttesting.AssertEqualUint16(t, "cyclopedia item", *got.CyclopediaItem, 4)
}

func TestDecodeErrors(t *testing.T) {
	good := sampleFile()
	noStart := append([]byte{}, good...)
	noStart[4] = 0x00

	tests := []struct {
		name string
		in   []byte
		want error
	}{
		{"empty", nil, codec.ErrMalformedHeader},
		{"no start marker", noStart, codec.ErrMalformedHeader},
		{"unterminated", good[:len(good)-1], codec.ErrMalformedHeader},
		{"short flags", []byte{0, 0, 0, 0, NODE_START, 0, 1, 2, NODE_END}, codec.ErrUnexpectedEOF},
		{"short attribute", []byte{0, 0, 0, 0, NODE_START, 0, 0, 0, 0, 0, 16, 5, 0, 1, NODE_END}, codec.ErrUnexpectedEOF},
		{"short length", []byte{0, 0, 0, 0, NODE_START, 0, 0, 0, 0, 0, 16, 5, NODE_END}, codec.ErrUnexpectedEOF},
		{"trailing escape", []byte{0, 0, 0, 0, NODE_START, 0, 0, 0, 0, 0, ESCAPE_CHAR}, codec.ErrUnexpectedEOF},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			tree, err := Decode(test.in)
			if !errors.Is(err, test.want) {
				t.Errorf("got error %v; want %v", err, test.want)
			}
			if tree != nil {
				t.Errorf("got a partial tree")
			}
		})
	}
}

func TestWalk(t *testing.T) {
	n := New(0)
	a := n.AddNode(0, 1)
	b := n.AddNode(0, 2)
	n.AddNode(a, 3)
	n.AddNode(b, 4)
	n.AddNode(a, 5)

	var got []string
	n.Walk(0, func(idx, depth int) bool {
		got = append(got, fmt.Sprintf("%d@%d", n.Node(idx).Type, depth))
		return true
	})
	ttesting.AssertEqualString(t, "pre-order", fmt.Sprint(got), "[0@0 1@1 3@2 5@2 2@1 4@2]")

	got = nil
	n.Walk(0, func(idx, depth int) bool {
		got = append(got, fmt.Sprint(n.Node(idx).Type))
		return idx != a
	})
	ttesting.AssertEqualString(t, "pruned", fmt.Sprint(got), "[0 1 2 4]")

	back, err := Decode(Encode(n))
	if err != nil {
		t.Fatalf("failed to parse otb: %s", err)
	}
	ttesting.AssertEqualBytes(t, "nested round trip", Encode(back), Encode(n))
	ttesting.AssertEqualInt(t, "children of second node", len(back.Children(1)), 2)
}

func TestDecodeProgressAndCancel(t *testing.T) {
	n := New(0)
	for i := 0; i < 450; i++ {
		n.Node(n.AddNode(0, 1)).Attrs.ServerID = Uint16(uint16(100 + i))
	}
	b := Encode(n)

	var calls []int
	total := 0
	_, err := DecodeContext(context.Background(), b, Options{Progress: func(done, all int) {
		calls = append(calls, done)
		total = all
	}})
	if err != nil {
		t.Fatalf("failed to parse otb: %s", err)
	}
	ttesting.AssertEqualInt(t, "progress calls", len(calls), 3)
	ttesting.AssertEqualInt(t, "total nodes", total, 451)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	tree, err := DecodeContext(ctx, b, Options{})
	ttesting.AssertEqualBool(t, "cancelled", errors.Is(err, context.Canceled), true)
	ttesting.AssertEqualBool(t, "no partial tree", tree == nil, true)
}
