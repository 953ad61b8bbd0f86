// Package things joins the three datafiles describing an item: items.otb for
// its server id and name, Tibia.dat for its flags and texture, and Tibia.spr
// for the sprites the texture refers to.
package things

import (
	"image"
	"sync"

	"github.com/golang/glog"
	"github.com/pkg/errors"

	"badc0de.net/pkg/tibia-assets/dat"
	"badc0de.net/pkg/tibia-assets/otb/items"
	"badc0de.net/pkg/tibia-assets/spr"
)

// Item is an item as seen through all registered datafiles. The items.otb
// half is nil when no items.otb was added.
type Item struct {
	otb     *itemsotb.Item
	dataset *dat.Thing

	parent *Things
}

type itemFrame struct {
	ClientID       uint16
	Frame, X, Y, Z int
}

// Things is the registry of loaded datafiles. It is safe for concurrent
// lookups and compositing once all files are added.
type Things struct {
	items     *itemsotb.Items
	dataset   *dat.Catalog
	spriteSet *spr.SpriteSet

	imgLock sync.Mutex
	img     map[itemFrame]image.Image
}

func New() (*Things, error) {
	return &Things{img: make(map[itemFrame]image.Image)}, nil
}

func (t *Things) AddItemsOTB(i *itemsotb.Items) error {
	t.items = i
	return nil
}

func (t *Things) AddTibiaDataset(d *dat.Catalog) error {
	t.dataset = d
	t.dropFrames()
	return nil
}

func (t *Things) AddSpriteSet(s *spr.SpriteSet) error {
	t.spriteSet = s
	t.dropFrames()
	return nil
}

func (t *Things) dropFrames() {
	t.imgLock.Lock()
	t.img = make(map[itemFrame]image.Image)
	t.imgLock.Unlock()
}

// ItemsOTB, TibiaDataset and SpriteSet return the registered files, or nil.
func (t *Things) ItemsOTB() *itemsotb.Items { return t.items }
func (t *Things) TibiaDataset() *dat.Catalog { return t.dataset }
func (t *Things) SpriteSet() *spr.SpriteSet { return t.spriteSet }

func (t *Things) TibiaDatasetSignature() uint32 {
	if t.dataset == nil {
		return 0
	}
	return t.dataset.Signature
}

func (t *Things) SpriteSetSignature() uint32 {
	if t.spriteSet == nil {
		return 0
	}
	return t.spriteSet.Signature
}

// Item looks an item up by its server id. This needs items.otb.
func (t *Things) Item(serverID uint16) (*Item, error) {
	if t.items == nil {
		return nil, errors.New("things: no items.otb to look server ids up in")
	}
	otb, err := t.items.ItemByServerID(serverID)
	if err != nil {
		return nil, errors.Wrap(err, "things")
	}
	return t.itemWith(otb, otb.ClientID())
}

// ItemWithClientID looks an item up by its client id. The items.otb half is
// filled in if items.otb is registered and knows the client id.
func (t *Things) ItemWithClientID(clientID uint16) (*Item, error) {
	var otb *itemsotb.Item
	if t.items != nil {
		itm, err := t.items.ItemByClientID(clientID)
		if err != nil {
			glog.V(2).Infof("things: client id %d not in items.otb: %v", clientID, err)
		} else {
			otb = itm
		}
	}
	return t.itemWith(otb, clientID)
}

func (t *Things) itemWith(otb *itemsotb.Item, clientID uint16) (*Item, error) {
	if t.dataset == nil {
		return nil, errors.New("things: no dataset registered")
	}
	d := t.dataset.Item(clientID)
	if d.Missing() {
		return nil, errors.Errorf("things: client id %d not in dataset", clientID)
	}
	return &Item{otb: otb, dataset: d, parent: t}, nil
}

// ClientID returns the id the item has in the dataset.
func (i *Item) ClientID() uint16 {
	return i.dataset.ID
}

// ServerID returns the items.otb id, or 0 without items.otb.
func (i *Item) ServerID() uint16 {
	if i.otb == nil {
		return 0
	}
	return i.otb.ServerID()
}

// OTB returns the items.otb half of the item, or nil.
func (i *Item) OTB() *itemsotb.Item {
	return i.otb
}

// Dataset returns the dataset entry of the item.
func (i *Item) Dataset() *dat.Thing {
	return i.dataset
}

func (i *Item) Name() string {
	if i.otb == nil {
		return ""
	}
	return i.otb.Name()
}

func (i *Item) LightInfo() dat.LightInfo {
	return i.dataset.LightInfo()
}
