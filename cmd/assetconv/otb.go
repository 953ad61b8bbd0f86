package main

import (
	"context"
	"fmt"
	"os"

	"github.com/pkg/errors"

	"badc0de.net/pkg/tibia-assets/config"
	"badc0de.net/pkg/tibia-assets/dat"
	"badc0de.net/pkg/tibia-assets/otb"
	itemsotb "badc0de.net/pkg/tibia-assets/otb/items"
	"badc0de.net/pkg/tibia-assets/things/full"
)

// loadItemsAndDataset reads the configured items.otb and Tibia.dat.
func loadItemsAndDataset(ctx context.Context, cfg *config.Config) (*itemsotb.Items, *dat.Catalog, error) {
	p := full.PathsFromConfig(cfg)
	b, err := read(p.ItemsOTB)
	if err != nil {
		return nil, nil, err
	}
	items, err := itemsotb.DecodeContext(ctx, b, otb.Options{})
	if err != nil {
		return nil, nil, err
	}
	if b, err = read(p.TibiaDat); err != nil {
		return nil, nil, err
	}
	c, warnings, err := dat.DecodeContext(ctx, b, dat.Options{Extended: cfg.Codec.Extended})
	if err != nil {
		return nil, nil, err
	}
	logWarnings("dat", warnings)
	return items, c, nil
}

func writeItems(items *itemsotb.Items, args []string) error {
	if len(args) != 1 {
		return errors.New("want exactly one output path")
	}
	return errors.Wrap(os.WriteFile(args[0], items.Encode(), 0o644), "writing items.otb")
}

func otbCheck(ctx context.Context, cfg *config.Config, args []string) error {
	items, c, err := loadItemsAndDataset(ctx, cfg)
	if err != nil {
		return err
	}
	mismatches := items.FlagMismatches(c)
	for _, m := range mismatches {
		if m.Inverted {
			fmt.Printf("server id %d (client id %d): %s set, but dataset has %s\n", m.ServerID, m.ClientID, m.Flag, m.DatFlag)
		} else {
			fmt.Printf("server id %d (client id %d): %s set, but dataset lacks %s\n", m.ServerID, m.ClientID, m.Flag, m.DatFlag)
		}
	}
	fmt.Printf("%d mismatches\n", len(mismatches))
	return nil
}

func otbSync(ctx context.Context, cfg *config.Config, args []string) error {
	items, c, err := loadItemsAndDataset(ctx, cfg)
	if err != nil {
		return err
	}
	fmt.Printf("updated %d items\n", items.SyncFromDataset(c))
	return writeItems(items, args)
}

func otbMissing(ctx context.Context, cfg *config.Config, args []string) error {
	items, c, err := loadItemsAndDataset(ctx, cfg)
	if err != nil {
		return err
	}
	fmt.Printf("created %d items\n", items.CreateMissing(c))
	return writeItems(items, args)
}
