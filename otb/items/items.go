// Package itemsotb gives meaning to the nodes of an items.otb file: the root
// node carries the file version, and each of its children is an item whose
// node type is the item group.
package itemsotb

import (
	"context"
	"io"

	"github.com/golang/glog"
	"github.com/pkg/errors"

	"badc0de.net/pkg/tibia-assets/codec"
	"badc0de.net/pkg/tibia-assets/otb"
)

const (
	// GenericMajorVersion marks an items.otb not tied to a client version.
	GenericMajorVersion = 0xFFFFFFFF

	// minServerID is where server ids start; 20000 and up are reserved for
	// fluid descriptions.
	minServerID = 100
)

// Items is an items.otb file with its items indexed by server and client id.
type Items struct {
	Tree    *otb.Tree
	Version otb.Version
	Items   []Item

	ClientIDToArrayIndex map[uint16]int
	ServerIDToArrayIndex map[uint16]int

	MinClientID, MaxClientID uint16
	MinServerID, MaxServerID uint16
}

// Item is a view of a single item node. It stays valid when items are added.
type Item struct {
	items *Items
	node  int

	// TODO(ivucica): Consider making XML data public or merging it into OTB data.
	xml *xmlItem
}

// New reads an items.otb file from a given reader.
func New(r io.Reader) (*Items, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "itemsotb: reading file")
	}
	return Decode(b)
}

// Decode parses an items.otb file held in memory.
func Decode(b []byte) (*Items, error) {
	return DecodeContext(context.Background(), b, otb.Options{})
}

// DecodeContext parses an items.otb file, passing progress reporting and
// cancellation on to the tree decoder.
func DecodeContext(ctx context.Context, b []byte, o otb.Options) (*Items, error) {
	t, err := otb.DecodeContext(ctx, b, o)
	if err != nil {
		return nil, errors.Wrap(err, "itemsotb")
	}
	return FromTree(t)
}

// NewEmpty creates an items file with no items and the passed version.
func NewEmpty(v otb.Version) *Items {
	t := otb.New(0)
	t.Root().Attrs.Version = &v
	items, _ := FromTree(t)
	return items
}

// FromTree interprets a decoded tree. Versions other than the ones this
// package was written against are logged and accepted.
func FromTree(t *otb.Tree) (*Items, error) {
	root := t.Root()
	if root == nil {
		return nil, errors.Wrap(codec.ErrMalformedHeader, "itemsotb: nil root node")
	}
	items := &Items{Tree: t}

	if v := root.Attrs.Version; v != nil {
		items.Version = *v
		glog.V(2).Infof("items.otb version %d.%d.%d, csd %s", v.Major, v.Minor, v.Build, v.CSD)
		switch {
		case v.Major == GenericMajorVersion:
			glog.Warning("generic items.otb found, skipping version check")
		case v.Major != 3:
			glog.Warningf("itemsotb: unexpected major version: got %d, want %d", v.Major, 3)
		case ClientVersion(v.Minor) < CLIENT_VERSION_854:
			glog.Warningf("itemsotb: minor version %d (%s) is older than %s", v.Minor, ClientVersion(v.Minor), CLIENT_VERSION_854)
		}
	} else {
		glog.Warning("itemsotb: root node has no version attribute")
	}

	for _, idx := range t.Children(0) {
		items.Items = append(items.Items, Item{items: items, node: idx})
	}
	items.reindex()
	return items, nil
}

// reindex rebuilds the id lookups after items were added or renumbered.
func (items *Items) reindex() {
	items.ClientIDToArrayIndex = make(map[uint16]int)
	items.ServerIDToArrayIndex = make(map[uint16]int)
	items.MinClientID, items.MaxClientID = 0xFFFF, 0 // largest 16bit int; we reduce it below
	items.MinServerID, items.MaxServerID = 19999, 0  // 20000 is where other descriptions may begin, like fluids

	for i := range items.Items {
		item := &items.Items[i]
		if id := item.ClientID(); id != 0 {
			items.ClientIDToArrayIndex[id] = i
			items.MinClientID = min(items.MinClientID, id)
			items.MaxClientID = max(items.MaxClientID, id)
		}
		if id := item.ServerID(); id != 0 {
			if prev, dup := items.ServerIDToArrayIndex[id]; dup {
				glog.Warningf("itemsotb: server id %d used by items %d and %d", id, prev, i)
			}
			items.ServerIDToArrayIndex[id] = i
			items.MinServerID = min(items.MinServerID, id)
			items.MaxServerID = max(items.MaxServerID, id)
		}
	}
}

// Encode serializes the file, with every item change applied.
func (items *Items) Encode() []byte {
	return otb.Encode(items.Tree)
}

// ItemByServerID allows lookup of an item stored in an items.otb file based on
// its persistent 'server' ID, which stays fixed between versions, and is used
// by the server-side data storage, by map files, etc.
func (items *Items) ItemByServerID(serverID uint16) (*Item, error) {
	if idx, ok := items.ServerIDToArrayIndex[serverID]; ok {
		return &items.Items[idx], nil
	}
	return nil, errors.Errorf("item not found with server id: %d", serverID)
}

// ItemByClientID allows lookup of an item stored in an items.otb file based on
// its ID used by the network protocol and associated data files.
func (items *Items) ItemByClientID(clientID uint16) (*Item, error) {
	if idx, ok := items.ClientIDToArrayIndex[clientID]; ok {
		return &items.Items[idx], nil
	}
	return nil, errors.Errorf("item not found with client id: %d", clientID)
}

// Node returns the tree node backing the item.
func (i *Item) Node() *otb.Node {
	return i.items.Tree.Node(i.node)
}

// Group returns the item group, stored as the node type.
func (i *Item) Group() ItemGroup {
	return ItemGroup(i.Node().Type)
}

// Flags returns the item's flag bits.
func (i *Item) Flags() ItemsFlags {
	return ItemsFlags(i.Node().Flags)
}

// SetFlags replaces the item's flag bits.
func (i *Item) SetFlags(f ItemsFlags) {
	i.Node().Flags = uint32(f)
}

// Attrs returns the typed attributes, for reading and changing.
func (i *Item) Attrs() *otb.Attributes {
	return &i.Node().Attrs
}

// Name returns the name of the item. This may be sourced from XML, if loaded.
func (i *Item) Name() string {
	if i.xml != nil {
		return i.xml.Name
	}
	if name := i.Attrs().Name; name != nil {
		return *name
	}
	return "unnamed item"
}

// Article returns the name of the item. This will only be sourced from XML, if
// loaded.
//
// If empty, no article should be used; otherwise, in singular, prefix with
// article and a space.
func (i *Item) Article() string {
	if i.xml != nil {
		return i.xml.Article
	}
	return ""
}

// Description returns the description of the item. This may be sourced from XML, if loaded.
//
// If multiple descriptions are supplied, only the first one will be used.
func (i *Item) Description() string {
	if i.xml != nil && len(i.xml.Attributes["description"]) > 0 {
		return i.xml.Attributes["description"][0]
	}
	if name := i.Attrs().Name; name != nil {
		return *name
	}
	return ""
}

// ClientID returns the item client ID for the client version for which this OTB
// is intended. If the item does not exist in this client version, zero is
// returned.
func (i *Item) ClientID() uint16 {
	if id := i.Attrs().ClientID; id != nil {
		return *id
	}
	return 0
}

// ServerID returns the item server ID. If the item does not have a server ID
// (which would be highly irregular for an item that appears in the otb file),
// zero is returned.
func (i *Item) ServerID() uint16 {
	if id := i.Attrs().ServerID; id != nil {
		return *id
	}
	return 0
}

// Light returns the item's light attribute, if it has one.
func (i *Item) Light() (otb.Light, bool) {
	if l := i.Attrs().Light; l != nil {
		return *l, true
	}
	return otb.Light{}, false
}
