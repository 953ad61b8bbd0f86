package main

import (
	"path/filepath"

	"github.com/golang/glog"

	"badc0de.net/pkg/tibia-assets/paths"
	"badc0de.net/pkg/tibia-assets/sheet"
	"badc0de.net/pkg/tibia-assets/spr"
)

// sprHandler reads a single sprite without loading the whole file.
func sprHandler(idx int) bool {
	f, err := paths.Open(cfg.Files.TibiaSpr)
	if err != nil {
		glog.Errorf("opening spr: %v", err)
		return false
	}
	defer f.Close()

	img, err := spr.DecodeOne(f, idx, cfg.Codec.Transparency)
	if err != nil {
		glog.Errorf("error decoding spr: %v", err)
		return false
	}
	if img == nil {
		glog.Errorf("sprite %d is empty", idx)
		return false
	}
	return out(img)
}

func sheetHandler(idx int) bool {
	catalogPath := paths.Find(cfg.Files.CatalogContent)
	if catalogPath == "" {
		glog.Errorf("%s not found", cfg.Files.CatalogContent)
		return false
	}
	c, err := sheet.LoadCatalog(catalogPath)
	if err != nil {
		glog.Errorf("%v", err)
		return false
	}
	dir := cfg.Files.SheetDir
	if dir == "" {
		dir = filepath.Dir(catalogPath)
	}
	img, err := sheet.NewCache(dir, c).Sprite(uint32(idx))
	if err != nil {
		glog.Errorf("%v", err)
		return false
	}
	return out(img)
}
