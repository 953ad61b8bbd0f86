package itemsotb

import (
	"fmt"
	"strings"
)

// ClientVersion is the minor version of an items.otb file, naming the
// client protocol it targets.
type ClientVersion uint32

// Client versions this package compares against. The full list of minor
// versions is in clientVersionNames.
const (
	CLIENT_VERSION_854 = ClientVersion(17)
	CLIENT_VERSION_860 = ClientVersion(20)
	CLIENT_VERSION_870 = ClientVersion(23)
)

var clientVersionNames = []string{
	1: "7.50", 2: "7.55", 3: "7.60 / 7.70", 4: "7.80", 5: "7.90", 6: "7.92",
	7: "8.00", 8: "8.10", 9: "8.11", 10: "8.20", 11: "8.30", 12: "8.40",
	13: "8.41", 14: "8.42", 15: "8.50", 16: "8.54 (bad)", 17: "8.54",
	18: "8.55", 19: "8.60 (old)", 20: "8.60", 21: "8.61", 22: "8.62",
	23: "8.70",
}

func (v ClientVersion) String() string {
	if int(v) < len(clientVersionNames) && clientVersionNames[v] != "" {
		return clientVersionNames[v]
	}
	return fmt.Sprintf("client version %d unknown", uint32(v))
}

// ItemGroup is the overarching group of an item, stored as its node type.
type ItemGroup int

const (
	ITEM_GROUP_NONE ItemGroup = iota
	ITEM_GROUP_GROUND
	ITEM_GROUP_CONTAINER
	ITEM_GROUP_WEAPON     // deprecated
	ITEM_GROUP_AMMUNITION // deprecated
	ITEM_GROUP_ARMOR      // deprecated
	ITEM_GROUP_CHARGES
	ITEM_GROUP_TELEPORT   // deprecated
	ITEM_GROUP_MAGICFIELD // deprecated
	ITEM_GROUP_WRITEABLE  // deprecated
	ITEM_GROUP_KEY        // deprecated
	ITEM_GROUP_SPLASH
	ITEM_GROUP_FLUID
	ITEM_GROUP_DOOR // deprecated
	ITEM_GROUP_DEPRECATED
	ITEM_GROUP_LAST
)

var itemGroupNames = [...]string{
	"none", "ground", "container", "weapon", "ammunition", "armor", "charges",
	"teleport", "magic field", "writeable", "key", "splash", "fluid", "door",
	"deprecated", "last (invalid value)",
}

func (g ItemGroup) String() string {
	if g < 0 || int(g) >= len(itemGroupNames) {
		return "invalid item group"
	}
	return itemGroupNames[g]
}

// ItemsFlags is the flag word of an item node.
type ItemsFlags uint32

const (
	FLAG_BLOCK_SOLID ItemsFlags = 1 << iota
	FLAG_BLOCK_PROJECTILE
	FLAG_BLOCK_PATHFIND
	FLAG_HAS_HEIGHT
	FLAG_USEABLE
	FLAG_PICKUPABLE
	FLAG_MOVEABLE
	FLAG_STACKABLE
	FLAG_FLOORCHANGEDOWN
	FLAG_FLOORCHANGENORTH
	FLAG_FLOORCHANGEEAST
	FLAG_FLOORCHANGESOUTH
	FLAG_FLOORCHANGEWEST
	FLAG_ALWAYSONTOP
	FLAG_READABLE
	FLAG_ROTABLE
	FLAG_HANGABLE
	FLAG_VERTICAL
	FLAG_HORIZONTAL
	FLAG_CANNOTDECAY
	FLAG_ALLOWDISTREAD
	FLAG_UNUSED
	FLAG_CLIENTCHARGES // deprecated
	FLAG_LOOKTHROUGH
	FLAG_ANIMATION
	FLAG_FULLGROUND
	FLAG_FORCEUSE

	FLAG_LAST
)

// flagNames is indexed by bit position.
var flagNames = [...]string{
	"block solid", "block projectile", "block pathfind", "has height",
	"useable", "pickupable", "moveable", "stackable", "floor change down",
	"floor change north", "floor change east", "floor change south",
	"floor change west", "always on top", "readable", "rotable", "hangable",
	"vertical", "horizontal", "cannot decay", "allow dist read", "unused",
	"client charges", "lookthrough", "animation", "full ground", "force use",
}

// String lists the names of the set flags, comma separated. Bits without a
// name are left out.
func (f ItemsFlags) String() string {
	var out []string
	for i, name := range flagNames {
		if f&(1<<i) != 0 {
			out = append(out, name)
		}
	}
	return strings.Join(out, ", ")
}
