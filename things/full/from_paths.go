// Package full is a helper to populate things.Things from datafiles on disk
// or over HTTP.
package full

import (
	"context"
	"io"

	"github.com/golang/glog"
	"github.com/pkg/errors"

	"badc0de.net/pkg/tibia-assets/codec"
	tdat "badc0de.net/pkg/tibia-assets/dat"
	"badc0de.net/pkg/tibia-assets/otb"
	"badc0de.net/pkg/tibia-assets/otb/items"
	"badc0de.net/pkg/tibia-assets/paths"
	"badc0de.net/pkg/tibia-assets/spr"
	"badc0de.net/pkg/tibia-assets/things"
)

// Paths names the datafiles to load. Any path left empty is skipped; items.xml
// is only read together with items.otb.
type Paths struct {
	ItemsOTB, ItemsXML string
	TibiaDat, TibiaSpr string

	Extended     bool
	Transparency bool

	// Progress, if set, is passed to each bulk decoder.
	Progress codec.Progress
}

// FromPaths populates a things.Things datastructure using datafiles found
// at passed paths.
func FromPaths(p Paths) (*things.Things, error) {
	return FromPathsContext(context.Background(), p)
}

// FromPathsContext is FromPaths with cancellation.
func FromPathsContext(ctx context.Context, p Paths) (*things.Things, error) {
	t, err := things.New()
	if err != nil {
		return nil, errors.Wrap(err, "creating thing registry")
	}

	if p.ItemsOTB != "" {
		glog.V(2).Infof("full.FromPaths(): opening items otb: %q", p.ItemsOTB)
		b, err := readAll(p.ItemsOTB)
		if err != nil {
			return nil, errors.Wrap(err, "opening items otb file for add")
		}
		itemsOTB, err := itemsotb.DecodeContext(ctx, b, otb.Options{Progress: p.Progress})
		if err != nil {
			return nil, errors.Wrap(err, "parsing items otb for add")
		}
		t.AddItemsOTB(itemsOTB)

		if p.ItemsXML != "" {
			glog.V(2).Infof("full.FromPaths(): opening items xml: %q", p.ItemsXML)
			f, err := paths.NoFindOpen(p.ItemsXML)
			if err != nil {
				return nil, errors.Wrap(err, "opening items xml file for add")
			}
			err = itemsOTB.AddXMLInfo(f)
			f.Close()
			if err != nil {
				return nil, errors.Wrap(err, "parsing items xml for add")
			}
		}
	}

	if p.TibiaDat != "" {
		glog.V(2).Infof("full.FromPaths(): opening tibia dat: %q", p.TibiaDat)
		b, err := readAll(p.TibiaDat)
		if err != nil {
			return nil, errors.Wrap(err, "opening tibia dat file for add")
		}
		dataset, warnings, err := tdat.DecodeContext(ctx, b, tdat.Options{Extended: p.Extended, Progress: p.Progress})
		if err != nil {
			return nil, errors.Wrap(err, "parsing tibia dat for add")
		}
		logWarnings("tibia dat", warnings)
		t.AddTibiaDataset(dataset)
	}

	if p.TibiaSpr != "" {
		glog.V(2).Infof("full.FromPaths(): opening tibia spr: %q", p.TibiaSpr)
		b, err := readAll(p.TibiaSpr)
		if err != nil {
			return nil, errors.Wrap(err, "opening tibia spr file for add")
		}
		spriteset, warnings, err := spr.DecodeContext(ctx, b, spr.Options{Transparency: p.Transparency, Progress: p.Progress})
		if err != nil {
			return nil, errors.Wrap(err, "parsing tibia spr for add")
		}
		logWarnings("tibia spr", warnings)
		t.AddSpriteSet(spriteset)
	}

	return t, nil
}

func readAll(path string) ([]byte, error) {
	f, err := paths.NoFindOpen(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

func logWarnings(what string, warnings []codec.Warning) {
	for _, w := range warnings {
		glog.Warningf("%s: %v", what, w)
	}
}
