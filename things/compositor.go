package things

import (
	"image"
	"image/draw"
	"time"

	"github.com/golang/glog"
	"github.com/pkg/errors"
	xdraw "golang.org/x/image/draw"

	"badc0de.net/pkg/tibia-assets/dat"
	"badc0de.net/pkg/tibia-assets/spr"
)

func (i *Item) graphics() (*dat.FrameGroup, error) {
	tex, err := i.dataset.Texture(i.parent.dataset.Extended)
	if err != nil {
		return nil, errors.Wrapf(err, "things: item %d", i.dataset.ID)
	}
	if len(tex.Groups) == 0 {
		return nil, errors.Errorf("things: item %d has no frame group", i.dataset.ID)
	}
	return &tex.Groups[0], nil
}

// GraphicsSize is the size of a composited frame in pixels.
func (i *Item) GraphicsSize() struct{ W, H int } {
	gfx, err := i.graphics()
	if err != nil {
		return struct{ W, H int }{}
	}
	return struct{ W, H int }{W: int(gfx.Width) * spr.Size, H: int(gfx.Height) * spr.Size}
}

// Frames is the number of animation frames, at least 1.
func (i *Item) Frames() int {
	gfx, err := i.graphics()
	if err != nil || gfx.Frames == 0 {
		return 1
	}
	return int(gfx.Frames)
}

// FrameDuration is how long the frame is shown. Items without timing data
// use dat.DefaultFrameDuration.
func (i *Item) FrameDuration(frame int) time.Duration {
	gfx, err := i.graphics()
	if err != nil || gfx.Animation == nil || len(gfx.Animation.Durations) == 0 {
		return dat.DefaultFrameDuration * time.Millisecond
	}
	d := gfx.Animation.Durations[frame%len(gfx.Animation.Durations)]
	return time.Duration(d.Min) * time.Millisecond
}

// ItemFrame composites one animation frame of the item for the given
// pattern position. Positions and frames wrap around the item's counts.
// The returned image is shared between callers and must not be modified.
func (i *Item) ItemFrame(idx int, x, y, z int) (image.Image, error) {
	if i.parent.spriteSet == nil {
		return nil, errors.New("things: no sprite set registered")
	}
	gfx, err := i.graphics()
	if err != nil {
		return nil, err
	}
	if gfx.SpriteCount() == 0 {
		return nil, errors.Errorf("things: item %d has an empty texture", i.dataset.ID)
	}

	x %= int(gfx.PatternX)
	y %= int(gfx.PatternY)
	z %= int(gfx.PatternZ)
	idx %= int(gfx.Frames)
	key := itemFrame{ClientID: i.dataset.ID, Frame: idx, X: x, Y: y, Z: z}

	i.parent.imgLock.Lock()
	img, ok := i.parent.img[key]
	i.parent.imgLock.Unlock()
	if ok {
		return img, nil
	}

	img, err = i.composite(gfx, idx, x, y, z)
	if err != nil {
		return nil, err
	}
	i.parent.imgLock.Lock()
	i.parent.img[key] = img
	i.parent.imgLock.Unlock()
	return img, nil
}

// composite draws all layers of a frame. Tiles are counted from the bottom
// right, where the item's anchor is.
func (i *Item) composite(gfx *dat.FrameGroup, idx, x, y, z int) (image.Image, error) {
	w, h := int(gfx.Width), int(gfx.Height)
	img := image.NewRGBA(image.Rect(0, 0, w*spr.Size, h*spr.Size))
	glog.V(3).Infof("compositing image for client id %d: frame %d pattern %d,%d,%d - %dx%d tiles, %d layers", i.dataset.ID, idx, x, y, z, w, h, gfx.Layers)

	for layer := 0; layer < int(gfx.Layers); layer++ {
		for ty := 0; ty < h; ty++ {
			for tx := 0; tx < w; tx++ {
				n := gfx.SpriteIndex(idx, z, y, x, layer, ty, tx)
				if n >= len(gfx.SpriteIDs) {
					return nil, errors.Errorf("things: item %d: sprite index %d past %d sprite ids", i.dataset.ID, n, len(gfx.SpriteIDs))
				}
				id := gfx.SpriteIDs[n]
				if id == 0 {
					continue
				}
				src, err := i.parent.spriteSet.Sprite(int(id))
				if err != nil {
					return nil, errors.Wrapf(err, "things: item %d", i.dataset.ID)
				}
				if src == nil {
					continue
				}
				r := image.Rect(
					(w-tx-1)*spr.Size, (h-ty-1)*spr.Size,
					(w-tx)*spr.Size, (h-ty)*spr.Size)
				draw.Draw(img, r, src, image.Point{}, draw.Over)
			}
		}
	}
	return img, nil
}

// Thumbnail scales the first frame to fit a size x size square, keeping the
// aspect ratio.
func (i *Item) Thumbnail(size int) (image.Image, error) {
	src, err := i.ItemFrame(0, 0, 0, 0)
	if err != nil {
		return nil, err
	}
	b := src.Bounds()
	w, h := size, size
	if b.Dx() > b.Dy() {
		h = size * b.Dy() / b.Dx()
	} else if b.Dy() > b.Dx() {
		w = size * b.Dx() / b.Dy()
	}
	dst := image.NewRGBA(image.Rect(0, 0, max(w, 1), max(h, 1)))
	xdraw.NearestNeighbor.Scale(dst, dst.Bounds(), src, b, xdraw.Over, nil)
	return dst, nil
}
