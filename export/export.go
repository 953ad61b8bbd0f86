package export

import (
	"context"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/golang/glog"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"badc0de.net/pkg/tibia-assets/codec"
	"badc0de.net/pkg/tibia-assets/dat"
	"badc0de.net/pkg/tibia-assets/sheet"
	"badc0de.net/pkg/tibia-assets/spr"
	"badc0de.net/pkg/tibia-assets/things"
)

// Options controls a bulk export.
type Options struct {
	Format   string
	Workers  int
	Dir      string
	Progress codec.Progress
}

// Frames is what a job renders. A job with no frames is skipped.
type Frames struct {
	Images []image.Image
	Delays []time.Duration
}

// Job renders the i-th file of an export and names it, without extension.
type Job func(i int) (name string, f Frames, err error)

// Run renders and writes n files on o.Workers goroutines. The first error
// stops the export. It returns the number of files written.
func Run(parent context.Context, n int, job Job, o Options) (int, error) {
	if o.Workers < 1 {
		o.Workers = 1
	}
	if err := os.MkdirAll(o.Dir, 0o755); err != nil {
		return 0, errors.Wrap(err, "export")
	}

	g, ctx := errgroup.WithContext(parent)
	g.SetLimit(o.Workers)

	var (
		mu      sync.Mutex
		written int
		tr      = codec.NewTracker(ctx, o.Progress, n)
	)
	for i := 0; i < n; i++ {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			name, f, err := job(i)
			if err != nil {
				return err
			}
			if len(f.Images) > 0 {
				if err := write(filepath.Join(o.Dir, name+"."+o.Format), f, o.Format); err != nil {
					return err
				}
			}
			mu.Lock()
			defer mu.Unlock()
			if len(f.Images) > 0 {
				written++
			}
			return tr.Step()
		})
	}
	err := g.Wait()
	if err == nil && parent.Err() != nil {
		err = errors.Wrap(parent.Err(), "export")
	}
	tr.Finish()
	glog.V(2).Infof("export: wrote %d of %d files to %s", written, n, o.Dir)
	return written, err
}

func write(path string, f Frames, format string) error {
	out, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "export")
	}
	if format == GIF {
		err = EncodeAnimation(out, f.Images, f.Delays)
	} else {
		err = Encode(out, f.Images[0], format)
	}
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	return errors.Wrapf(err, "export: %s", path)
}

// Sprites writes every sprite of s as <id>.<format>. Empty sprites are
// skipped.
func Sprites(ctx context.Context, s *spr.SpriteSet, o Options) (int, error) {
	return Run(ctx, s.Len(), func(i int) (string, Frames, error) {
		id := i + 1
		img, err := s.Sprite(id)
		if err != nil || img == nil {
			return "", Frames{}, err
		}
		return fmt.Sprint(id), Frames{Images: []image.Image{img}}, nil
	}, o)
}

// Items writes every dataset item composited as <client id>.<format>. GIF
// output holds all animation frames; other formats the first frame only.
func Items(ctx context.Context, th *things.Things, o Options) (int, error) {
	c := th.TibiaDataset()
	if c == nil {
		return 0, errors.New("export: no dataset")
	}
	first := dat.CategoryItem.FirstID()
	n := int(c.MaxItemID()) - int(first) + 1
	return Run(ctx, max(n, 0), func(i int) (string, Frames, error) {
		id := first + uint16(i)
		if c.Item(id).Missing() {
			return "", Frames{}, nil
		}
		itm, err := th.ItemWithClientID(id)
		if err != nil {
			return "", Frames{}, err
		}
		frames := 1
		if o.Format == GIF {
			frames = itm.Frames()
		}
		var f Frames
		for fr := 0; fr < frames; fr++ {
			img, err := itm.ItemFrame(fr, 0, 0, 0)
			if err != nil {
				return "", Frames{}, err
			}
			f.Images = append(f.Images, img)
			f.Delays = append(f.Delays, itm.FrameDuration(fr))
		}
		return fmt.Sprint(id), f, nil
	}, o)
}

// SheetSprites writes every sprite of every sheet in the cache's catalog as
// <id>.<format>.
func SheetSprites(ctx context.Context, c *sheet.Cache, o Options) (int, error) {
	var ids []uint32
	for _, e := range c.Catalog().Sheets() {
		for id := uint64(e.FirstSpriteID); id <= uint64(e.LastSpriteID); id++ {
			ids = append(ids, uint32(id))
		}
	}
	return Run(ctx, len(ids), func(i int) (string, Frames, error) {
		img, err := c.Sprite(ids[i])
		if err != nil {
			return "", Frames{}, err
		}
		return fmt.Sprint(ids[i]), Frames{Images: []image.Image{img}}, nil
	}, o)
}
