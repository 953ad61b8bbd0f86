package itemsotb

import (
	"github.com/golang/glog"
	"github.com/pkg/errors"

	"badc0de.net/pkg/tibia-assets/dat"
	"badc0de.net/pkg/tibia-assets/otb"
)

// flagSource ties an items.otb flag to the dataset flag it is derived from.
type flagSource struct {
	otb ItemsFlags
	dat dat.Flag
}

// syncedFlags are set exactly when the dataset item has the matching flag.
var syncedFlags = []flagSource{
	{FLAG_BLOCK_SOLID, dat.FlagUnpassable},
	{FLAG_BLOCK_PROJECTILE, dat.FlagBlockMissile},
	{FLAG_BLOCK_PATHFIND, dat.FlagBlockPathfind},
	{FLAG_HAS_HEIGHT, dat.FlagHasElevation},
	{FLAG_USEABLE, dat.FlagUsable},
	{FLAG_PICKUPABLE, dat.FlagPickupable},
	{FLAG_STACKABLE, dat.FlagStackable},
	{FLAG_ALWAYSONTOP, dat.FlagOnTop},
	{FLAG_ROTABLE, dat.FlagRotatable},
	{FLAG_HANGABLE, dat.FlagHangable},
	{FLAG_VERTICAL, dat.FlagHookVertical},
	{FLAG_HORIZONTAL, dat.FlagHookHorizontal},
	{FLAG_ANIMATION, dat.FlagAnimateAlways},
	{FLAG_FULLGROUND, dat.FlagFullGround},
	{FLAG_FORCEUSE, dat.FlagForceUse},
}

// syncedMask covers every flag DatasetFlags decides. Other bits, such as the
// floor change directions, have no dataset counterpart and are left alone.
var syncedMask = func() ItemsFlags {
	m := FLAG_MOVEABLE | FLAG_READABLE
	for _, s := range syncedFlags {
		m |= s.otb
	}
	return m
}()

// DatasetFlags computes the items.otb flags implied by a dataset item.
func DatasetFlags(t *dat.Thing) ItemsFlags {
	var f ItemsFlags
	for _, s := range syncedFlags {
		if t.Has(s.dat) {
			f |= s.otb
		}
	}
	if !t.Has(dat.FlagUnmoveable) {
		f |= FLAG_MOVEABLE
	}
	if t.Has(dat.FlagWritable) || t.Has(dat.FlagWritableOnce) {
		f |= FLAG_READABLE
	}
	return f
}

// SyncFromDataset copies flags, ground speed and light from the dataset to
// every item with a client id present in c. Speed and light are removed
// from items whose dataset entry has none. It returns the number of items
// updated.
func (items *Items) SyncFromDataset(c *dat.Catalog) int {
	updated := 0
	for i := range items.Items {
		item := &items.Items[i]
		cid := item.ClientID()
		if cid == 0 {
			continue
		}
		t := c.Item(cid)
		if t.Missing() {
			continue
		}

		flags := item.Flags()&^syncedMask | DatasetFlags(t)
		if flags != item.Flags() {
			glog.V(3).Infof("itemsotb: server id %d: flags %08x -> %08x", item.ServerID(), uint32(item.Flags()), uint32(flags))
		}
		item.SetFlags(flags)

		attrs := item.Attrs()
		if t.Has(dat.FlagGround) {
			attrs.Speed = otb.Uint16(t.GroundSpeed())
		} else {
			attrs.Speed = nil
		}
		if t.Has(dat.FlagHasLight) {
			l := t.LightInfo()
			attrs.Light = &otb.Light{Level: l.Strength, Color: uint16(l.Color)}
		} else {
			attrs.Light = nil
		}
		updated++
	}
	glog.V(2).Infof("itemsotb: synced %d of %d items from the dataset", updated, len(items.Items))
	return updated
}

// Mismatch is an items.otb flag that disagrees with the dataset.
type Mismatch struct {
	ServerID, ClientID uint16
	Flag               ItemsFlags
	DatFlag            dat.Flag
	// Inverted is set when the conflict is between a flag and the dataset
	// flag meaning its opposite, as with moveable and Unmoveable.
	Inverted bool
}

// FlagMismatches lists flags set in items.otb that the dataset does not
// back: a flag whose dataset counterpart is absent, or moveable on an item
// the dataset marks Unmoveable.
func (items *Items) FlagMismatches(c *dat.Catalog) []Mismatch {
	var out []Mismatch
	for i := range items.Items {
		item := &items.Items[i]
		t := c.Item(item.ClientID())
		if t.Missing() {
			continue
		}
		flags := item.Flags()
		for _, s := range syncedFlags {
			if flags&s.otb != 0 && !t.Has(s.dat) {
				out = append(out, Mismatch{ServerID: item.ServerID(), ClientID: item.ClientID(), Flag: s.otb, DatFlag: s.dat})
			}
		}
		if flags&FLAG_MOVEABLE != 0 && t.Has(dat.FlagUnmoveable) {
			out = append(out, Mismatch{ServerID: item.ServerID(), ClientID: item.ClientID(), Flag: FLAG_MOVEABLE, DatFlag: dat.FlagUnmoveable, Inverted: true})
		}
	}
	return out
}

// nextServerID returns one more than the highest server id in use.
func (items *Items) nextServerID() uint16 {
	if len(items.ServerIDToArrayIndex) == 0 {
		return minServerID
	}
	return items.MaxServerID + 1
}

func (items *Items) addItem(group ItemGroup) *Item {
	idx := items.Tree.AddNode(0, uint8(group))
	items.Items = append(items.Items, Item{items: items, node: idx})
	return &items.Items[len(items.Items)-1]
}

// CreateItem appends a new item with the next free server id.
func (items *Items) CreateItem(group ItemGroup, clientID uint16) *Item {
	item := items.createItem(group, items.nextServerID(), clientID)
	items.reindex()
	return item
}

func (items *Items) createItem(group ItemGroup, serverID, clientID uint16) *Item {
	item := items.addItem(group)
	item.Attrs().ServerID = otb.Uint16(serverID)
	item.Attrs().ClientID = otb.Uint16(clientID)
	return item
}

// DuplicateItem copies an item, with all of its flags and attributes, to a
// new item with the next free server id.
func (items *Items) DuplicateItem(serverID uint16) (*Item, error) {
	src, err := items.ItemByServerID(serverID)
	if err != nil {
		return nil, errors.Wrap(err, "itemsotb: duplicate")
	}
	from := src.Node()
	typ, flags, attrs := from.Type, from.Flags, from.Attrs.Clone()
	raw := from.RawAttrs()

	sid := items.nextServerID()
	item := items.addItem(ItemGroup(typ))
	n := item.Node()
	n.Flags = flags
	for _, r := range raw {
		if r.ID != otb.ATTR_SERVERID {
			n.SetRaw(r.ID, r.Data)
		}
	}
	n.Attrs = attrs
	n.Attrs.ServerID = otb.Uint16(sid)
	items.reindex()
	return item, nil
}

// CreateMissing adds an item for every dataset client id, from the first
// item id up to the highest, that no item refers to yet. It returns the
// number of items created.
func (items *Items) CreateMissing(c *dat.Catalog) int {
	created := 0
	sid := items.nextServerID()
	for cid := int(dat.CategoryItem.FirstID()); cid <= int(c.MaxItemID()); cid++ {
		if _, ok := items.ClientIDToArrayIndex[uint16(cid)]; ok {
			continue
		}
		items.createItem(ITEM_GROUP_NONE, sid, uint16(cid))
		sid++
		created++
	}
	items.reindex()
	glog.V(2).Infof("itemsotb: created %d missing items", created)
	return created
}
