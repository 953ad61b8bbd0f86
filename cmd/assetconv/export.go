package main

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/pkg/errors"

	"badc0de.net/pkg/tibia-assets/config"
	"badc0de.net/pkg/tibia-assets/export"
	"badc0de.net/pkg/tibia-assets/paths"
	"badc0de.net/pkg/tibia-assets/sheet"
	"badc0de.net/pkg/tibia-assets/spr"
	"badc0de.net/pkg/tibia-assets/things/full"
)

func exportOptions(cfg *config.Config, what string) export.Options {
	return export.Options{
		Format:   cfg.Export.Format,
		Workers:  cfg.Export.Workers,
		Dir:      filepath.Join(cfg.Export.Dir, what),
		Progress: progress("export " + what),
	}
}

func reportExport(what string, n int, err error) error {
	if err != nil {
		return errors.Wrapf(err, "after %d %s", n, what)
	}
	fmt.Printf("wrote %d %s\n", n, what)
	return nil
}

func exportSprites(ctx context.Context, cfg *config.Config, args []string) error {
	b, err := read(full.PathsFromConfig(cfg).TibiaSpr)
	if err != nil {
		return err
	}
	s, warnings, err := spr.DecodeContext(ctx, b, spr.Options{Transparency: cfg.Codec.Transparency, Progress: progress("spr")})
	if err != nil {
		return err
	}
	logWarnings("spr", warnings)
	n, err := export.Sprites(ctx, s, exportOptions(cfg, "sprites"))
	return reportExport("sprites", n, err)
}

func exportItems(ctx context.Context, cfg *config.Config, args []string) error {
	th, err := full.FromConfig(ctx, cfg)
	if err != nil {
		return err
	}
	n, err := export.Items(ctx, th, exportOptions(cfg, "items"))
	return reportExport("items", n, err)
}

func exportSheet(ctx context.Context, cfg *config.Config, args []string) error {
	catalogPath := paths.Find(cfg.Files.CatalogContent)
	if catalogPath == "" {
		return errors.Errorf("%s not found", cfg.Files.CatalogContent)
	}
	c, err := sheet.LoadCatalog(catalogPath)
	if err != nil {
		return err
	}
	dir := cfg.Files.SheetDir
	if dir == "" {
		dir = filepath.Dir(catalogPath)
	}
	n, err := export.SheetSprites(ctx, sheet.NewCache(dir, c), exportOptions(cfg, "sheet"))
	return reportExport("sheet sprites", n, err)
}
