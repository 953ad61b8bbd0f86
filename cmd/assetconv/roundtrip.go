package main

import (
	"bytes"
	"context"
	"fmt"
	"os"

	"github.com/golang/glog"
	"github.com/pkg/errors"

	"badc0de.net/pkg/tibia-assets/codec"
	"badc0de.net/pkg/tibia-assets/config"
	"badc0de.net/pkg/tibia-assets/dat"
	"badc0de.net/pkg/tibia-assets/otb"
	itemsotb "badc0de.net/pkg/tibia-assets/otb/items"
	"badc0de.net/pkg/tibia-assets/paths"
	"badc0de.net/pkg/tibia-assets/spr"
	"badc0de.net/pkg/tibia-assets/things/full"
)

func read(name string) ([]byte, error) {
	if name == "" {
		return nil, errors.New("no input file configured")
	}
	b, err := paths.ReadFile(name)
	return b, errors.Wrapf(err, "reading %s", name)
}

func logWarnings(what string, warnings []codec.Warning) {
	for _, w := range warnings {
		glog.Warningf("%s: %s", what, w)
	}
}

// finish reports whether a re-encoded file equals its input, and writes it
// out when args name an output path.
func finish(what string, in, out []byte, args []string) error {
	if bytes.Equal(in, out) {
		fmt.Printf("%s: identical, %d bytes\n", what, len(out))
	} else {
		fmt.Printf("%s: differs, %d bytes in, %d bytes out\n", what, len(in), len(out))
	}
	if len(args) == 0 {
		return nil
	}
	return errors.Wrap(os.WriteFile(args[0], out, 0o644), "writing output")
}

func datRoundTrip(ctx context.Context, cfg *config.Config, args []string) error {
	in, err := read(full.PathsFromConfig(cfg).TibiaDat)
	if err != nil {
		return err
	}
	c, warnings, err := dat.DecodeContext(ctx, in, dat.Options{Extended: cfg.Codec.Extended, Progress: progress("dat")})
	if err != nil {
		return err
	}
	logWarnings("dat", warnings)
	out, err := dat.Encode(c)
	if err != nil {
		return err
	}
	return finish("dat", in, out, args)
}

func sprRoundTrip(ctx context.Context, cfg *config.Config, args []string) error {
	in, err := read(full.PathsFromConfig(cfg).TibiaSpr)
	if err != nil {
		return err
	}
	s, warnings, err := spr.DecodeContext(ctx, in, spr.Options{Transparency: cfg.Codec.Transparency, Progress: progress("spr")})
	if err != nil {
		return err
	}
	logWarnings("spr", warnings)
	return finish("spr", in, s.Encode(), args)
}

func otbRoundTrip(ctx context.Context, cfg *config.Config, args []string) error {
	in, err := read(full.PathsFromConfig(cfg).ItemsOTB)
	if err != nil {
		return err
	}
	items, err := itemsotb.DecodeContext(ctx, in, otb.Options{Progress: progress("otb")})
	if err != nil {
		return err
	}
	return finish("otb", in, items.Encode(), args)
}
