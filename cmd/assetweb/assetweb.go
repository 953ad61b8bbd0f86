// Command assetweb serves previews of the configured datafiles over HTTP.
package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"path/filepath"

	"badc0de.net/pkg/flagutil/v1"
	"github.com/common-nighthawk/go-figure"
	"github.com/golang/glog"
	"github.com/gorilla/handlers"

	"badc0de.net/pkg/tibia-assets/appearances"
	"badc0de.net/pkg/tibia-assets/config"
	"badc0de.net/pkg/tibia-assets/paths"
	"badc0de.net/pkg/tibia-assets/sheet"
	"badc0de.net/pkg/tibia-assets/things/full"
	"badc0de.net/pkg/tibia-assets/web"
)

var (
	quiet    = flag.Bool("quiet", false, "do not print the banner")
	cfgFlags = config.RegisterFlags(flag.CommandLine)
)

// loadAppearances reads the appearance catalog and its sprite sheets, if
// both can be found. Either may be missing.
func loadAppearances(cfg *config.Config) (*appearances.Catalog, *sheet.Cache) {
	var app *appearances.Catalog
	if b, err := paths.ReadFile(cfg.Files.Appearances); err != nil {
		glog.V(2).Infof("no appearances: %v", err)
	} else if c, warnings, err := appearances.Decode(b); err != nil {
		glog.Warningf("appearances: %v", err)
	} else {
		for _, w := range warnings {
			glog.Warningf("appearances: %v", w)
		}
		app = c
	}

	catalogPath := paths.Find(cfg.Files.CatalogContent)
	if catalogPath == "" {
		return app, nil
	}
	c, err := sheet.LoadCatalog(catalogPath)
	if err != nil {
		glog.Warningf("%v", err)
		return app, nil
	}
	dir := cfg.Files.SheetDir
	if dir == "" {
		dir = filepath.Dir(catalogPath)
	}
	return app, sheet.NewCache(dir, c)
}

func main() {
	flagutil.Parse()

	cfg, err := config.Load("", cfgFlags)
	if err != nil {
		glog.Exitf("%v", err)
	}
	if !*quiet {
		figure.NewFigure("tibia-assets", "", true).Print()
	}

	th, err := full.FromConfig(context.Background(), cfg)
	if err != nil {
		glog.Exitf("loading datafiles: %v", err)
	}
	o := web.Options{Thumbnail: cfg.Web.Thumbnail}
	o.Appearances, o.Sheets = loadAppearances(cfg)
	if p := paths.Find(cfg.Files.TibiaSpr); p != "" {
		if s, err := os.Stat(p); err == nil {
			o.ModTime = s.ModTime()
		}
	}

	h := web.NewHandler(th, o)
	srv := handlers.CombinedLoggingHandler(os.Stderr, handlers.CompressHandler(h.Router()))

	glog.Infof("listening on %s", cfg.Web.Listen)
	glog.Fatal(http.ListenAndServe(cfg.Web.Listen, srv))
}
