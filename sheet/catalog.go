package sheet

import (
	"encoding/json"
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/golang/glog"
	"github.com/pkg/errors"
	xdraw "golang.org/x/image/draw"
)

// Entry is one element of catalog-content.json.
type Entry struct {
	File          string `json:"file"`
	Type          string `json:"type"`
	SpriteType    int    `json:"spritetype,omitempty"`
	FirstSpriteID uint32 `json:"firstspriteid,omitempty"`
	LastSpriteID  uint32 `json:"lastspriteid,omitempty"`
	Area          int    `json:"area,omitempty"`
	Version       int    `json:"version,omitempty"`
}

// TypeSprite is the Type of entries that describe sprite sheets.
const TypeSprite = "sprite"

// Contains reports whether the sprite id is stored in this entry's sheet.
func (e Entry) Contains(id uint32) bool {
	return e.Type == TypeSprite && id >= e.FirstSpriteID && id <= e.LastSpriteID
}

// SpriteSize returns the size of every sprite in the sheet, which depends
// on the sheet's sprite type.
func (e Entry) SpriteSize() image.Point {
	switch e.SpriteType {
	case 1:
		return image.Pt(32, 64)
	case 2:
		return image.Pt(64, 32)
	case 3:
		return image.Pt(64, 64)
	default:
		return image.Pt(32, 32)
	}
}

// SpriteRect returns where sprite id lies within a sheet sheetWidth pixels
// wide. Sprites are laid out row by row.
func (e Entry) SpriteRect(id uint32, sheetWidth int) (image.Rectangle, error) {
	if !e.Contains(id) {
		return image.Rectangle{}, fmt.Errorf("sheet: sprite %d not in %s [%d, %d]", id, e.File, e.FirstSpriteID, e.LastSpriteID)
	}
	sz := e.SpriteSize()
	cols := sheetWidth / sz.X
	if cols == 0 {
		return image.Rectangle{}, fmt.Errorf("sheet: %s is %d pixels wide, narrower than a sprite", e.File, sheetWidth)
	}
	idx := int(id - e.FirstSpriteID)
	at := image.Pt((idx%cols)*sz.X, (idx/cols)*sz.Y)
	return image.Rectangle{Min: at, Max: at.Add(sz)}, nil
}

// Catalog is the parsed catalog-content.json.
type Catalog []Entry

// ReadCatalog parses catalog-content.json.
func ReadCatalog(r io.Reader) (Catalog, error) {
	var c Catalog
	if err := json.NewDecoder(r).Decode(&c); err != nil {
		return nil, errors.Wrap(err, "sheet: parsing catalog")
	}
	return c, nil
}

// LoadCatalog reads catalog-content.json from disk.
func LoadCatalog(path string) (Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "sheet: opening catalog")
	}
	defer f.Close()
	return ReadCatalog(f)
}

// Sheets returns only the sprite sheet entries.
func (c Catalog) Sheets() []Entry {
	var out []Entry
	for _, e := range c {
		if e.Type == TypeSprite {
			out = append(out, e)
		}
	}
	return out
}

// Find returns the sheet entry holding the sprite id.
func (c Catalog) Find(id uint32) (Entry, bool) {
	for _, e := range c {
		if e.Contains(id) {
			return e, true
		}
	}
	return Entry{}, false
}

// Sprite crops the sprite with the passed id out of a decompressed sheet.
func Sprite(sheet image.Image, e Entry, id uint32) (*image.NRGBA, error) {
	r, err := e.SpriteRect(id, sheet.Bounds().Dx())
	if err != nil {
		return nil, err
	}
	r = r.Add(sheet.Bounds().Min)
	if !r.In(sheet.Bounds()) {
		return nil, fmt.Errorf("sheet: sprite %d at %v is outside of %s (%v)", id, r, e.File, sheet.Bounds())
	}
	out := image.NewNRGBA(image.Rect(0, 0, r.Dx(), r.Dy()))
	xdraw.Copy(out, image.Point{}, sheet, r, xdraw.Src, nil)
	return out, nil
}

// Cache loads sheets from a directory on demand and keeps them
// decompressed.
type Cache struct {
	dir     string
	catalog Catalog

	mu     sync.Mutex
	sheets map[string]*image.NRGBA
}

// NewCache creates a cache reading sheet files relative to dir.
func NewCache(dir string, c Catalog) *Cache {
	return &Cache{dir: dir, catalog: c, sheets: make(map[string]*image.NRGBA)}
}

// Catalog returns the catalog the cache was created with.
func (c *Cache) Catalog() Catalog {
	return c.catalog
}

// Sheet returns the decompressed sheet for an entry.
func (c *Cache) Sheet(e Entry) (*image.NRGBA, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if img, ok := c.sheets[e.File]; ok {
		return img, nil
	}
	b, err := os.ReadFile(filepath.Join(c.dir, e.File))
	if err != nil {
		return nil, errors.Wrapf(err, "sheet: reading %s", e.File)
	}
	img, err := Decompress(b)
	if err != nil {
		return nil, errors.Wrapf(err, "sheet: %s", e.File)
	}
	glog.V(2).Infof("sheet: loaded %s (%v), sprites %d-%d", e.File, img.Bounds().Size(), e.FirstSpriteID, e.LastSpriteID)
	c.sheets[e.File] = img
	return img, nil
}

// Sprite finds, loads and crops the sprite with the passed id.
func (c *Cache) Sprite(id uint32) (*image.NRGBA, error) {
	e, ok := c.catalog.Find(id)
	if !ok {
		return nil, fmt.Errorf("sheet: sprite %d is not in the catalog", id)
	}
	img, err := c.Sheet(e)
	if err != nil {
		return nil, err
	}
	return Sprite(img, e, id)
}
