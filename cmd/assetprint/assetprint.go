// Command assetprint prints a sprite, an item or a sheet sprite to the
// terminal.
package main

import (
	"context"
	"flag"
	"os"

	"badc0de.net/pkg/flagutil/v1"
	"github.com/golang/glog"

	"badc0de.net/pkg/tibia-assets/config"
	"badc0de.net/pkg/tibia-assets/things"
	"badc0de.net/pkg/tibia-assets/things/full"
)

var (
	sprID    = flag.Int("spr", 0, "sprite to print")
	itemID   = flag.Int("item", 0, "server ID of item to print")
	citemID  = flag.Int("citem", 0, "client ID of item to print")
	sheetID  = flag.Int("sheet_sprite", 0, "sprite ID to print from the sprite sheets")
	frame    = flag.Int("frame", 0, "animation frame of the item to print")
	col      = flag.Bool("col", true, "whether to use color at all")
	col256   = flag.Bool("col256", false, "whether to use 256 col instead of 24 bit")
	iterm    = flag.Bool("iterm", false, "whether to print with iterm escape code instead of 24 bit")
	rasterm  = flag.Bool("rasterm", false, "whether to print with kitty, iterm or sixel graphics, whichever the terminal supports")
	blanks   = flag.Bool("blanks", true, "whether to just use colored blanks instead of some bad ascii art")
	downsize = flag.Bool("downsize", true, "whether to shrink images to fit the terminal")

	cfgFlags = config.RegisterFlags(flag.CommandLine)
	cfg      *config.Config
)

func thingsOpen() *things.Things {
	th, err := full.FromConfig(context.Background(), cfg)
	if err != nil {
		glog.Errorf("loading datafiles: %v", err)
		return nil
	}
	return th
}

func main() {
	flagutil.Parse()
	flag.Set("logtostderr", "true")

	var err error
	if cfg, err = config.Load("", cfgFlags); err != nil {
		glog.Exitf("%v", err)
	}

	ok := true
	if *sprID != 0 {
		ok = sprHandler(*sprID) && ok
	}
	if *itemID != 0 || *citemID != 0 {
		th := thingsOpen()
		if th == nil {
			os.Exit(1)
		}
		if *itemID != 0 {
			ok = itemHandler(th, *itemID) && ok
		}
		if *citemID != 0 {
			ok = citemHandler(th, *citemID, *frame, 0, 0, 0) && ok
		}
	}
	if *sheetID != 0 {
		ok = sheetHandler(*sheetID) && ok
	}
	if !ok {
		os.Exit(1)
	}
}
