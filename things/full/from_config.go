package full

import (
	"context"

	"github.com/golang/glog"

	"badc0de.net/pkg/tibia-assets/config"
	"badc0de.net/pkg/tibia-assets/paths"
	"badc0de.net/pkg/tibia-assets/things"
)

// FromDefaultPaths finds all datafiles supported by things using default
// filepaths as found by the paths package, and adds them to the Things
// structure. Files that are not found are skipped.
//
// spr can be excluded due to its size.
//
// Appropriate for tests or web frontends. Inappropriate for servers or clients
// where the path should be specifiable by the user on the command line.
func FromDefaultPaths(withSpr bool) (*things.Things, error) {
	p := PathsFromConfig(config.Default())
	if !withSpr {
		p.TibiaSpr = ""
	}
	return FromPaths(p)
}

// FromConfig loads the files the config names.
func FromConfig(ctx context.Context, cfg *config.Config) (*things.Things, error) {
	return FromPathsContext(ctx, PathsFromConfig(cfg))
}

// PathsFromConfig resolves the config's file names with paths.Find. Names
// that cannot be found resolve to empty paths.
func PathsFromConfig(cfg *config.Config) Paths {
	return Paths{
		ItemsOTB:     find(cfg.Files.ItemsOTB),
		ItemsXML:     find(cfg.Files.ItemsXML),
		TibiaDat:     find(cfg.Files.TibiaDat),
		TibiaSpr:     find(cfg.Files.TibiaSpr),
		Extended:     cfg.Codec.Extended,
		Transparency: cfg.Codec.Transparency,
	}
}

func find(name string) string {
	if name == "" {
		return ""
	}
	path := paths.Find(name)
	if path == "" {
		glog.Warningf("full: %q not found, skipping", name)
	}
	return path
}
