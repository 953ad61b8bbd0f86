package config

import (
	"flag"

	"badc0de.net/pkg/tibia-assets/paths"
)

// Flags are the command line overrides of a Config. Only flags the user
// actually passed override the file.
type Flags struct {
	fs *flag.FlagSet

	config string
	cfg    Config
}

// RegisterFlags adds the config flags to fs. The defaults shown in help
// are those of Default.
func RegisterFlags(fs *flag.FlagSet) *Flags {
	f := &Flags{fs: fs, cfg: *Default()}
	fs.StringVar(&f.config, "config", "", "Path to a YAML config file")

	paths.SetupFilePathFlag(fs, f.cfg.Files.TibiaDat, "tibia_dat", &f.cfg.Files.TibiaDat)
	paths.SetupFilePathFlag(fs, f.cfg.Files.TibiaSpr, "tibia_spr", &f.cfg.Files.TibiaSpr)
	paths.SetupFilePathFlag(fs, f.cfg.Files.ItemsOTB, "items_otb", &f.cfg.Files.ItemsOTB)
	paths.SetupFilePathFlag(fs, f.cfg.Files.ItemsXML, "items_xml", &f.cfg.Files.ItemsXML)
	fs.StringVar(&f.cfg.Files.Appearances, "appearances", f.cfg.Files.Appearances, "Path to the appearances catalog")
	fs.StringVar(&f.cfg.Files.CatalogContent, "catalog_content", f.cfg.Files.CatalogContent, "Path to catalog-content.json")
	fs.StringVar(&f.cfg.Files.SheetDir, "sheet_dir", f.cfg.Files.SheetDir, "Directory with sprite sheet files")

	fs.BoolVar(&f.cfg.Codec.Extended, "extended", f.cfg.Codec.Extended, "Files use 32-bit sprite ids")
	fs.BoolVar(&f.cfg.Codec.Transparency, "transparency", f.cfg.Codec.Transparency, "Sprites carry an alpha channel")

	fs.StringVar(&f.cfg.Export.Format, "format", f.cfg.Export.Format, "Export format: png, webp or gif")
	fs.IntVar(&f.cfg.Export.Workers, "workers", f.cfg.Export.Workers, "Concurrent export workers")
	fs.StringVar(&f.cfg.Export.Dir, "out", f.cfg.Export.Dir, "Export directory")

	fs.StringVar(&f.cfg.Web.Listen, "listen", f.cfg.Web.Listen, "Address the preview server listens on")
	fs.UintVar(&f.cfg.Web.Thumbnail, "thumbnail", f.cfg.Web.Thumbnail, "Thumbnail edge in pixels")
	return f
}

// ConfigPath returns the explicit config path if provided via -config.
func (f *Flags) ConfigPath() string {
	return f.config
}

// apply copies the flags that were set on the command line into cfg.
func (f *Flags) apply(cfg *Config) {
	f.fs.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "tibia_dat":
			cfg.Files.TibiaDat = f.cfg.Files.TibiaDat
		case "tibia_spr":
			cfg.Files.TibiaSpr = f.cfg.Files.TibiaSpr
		case "items_otb":
			cfg.Files.ItemsOTB = f.cfg.Files.ItemsOTB
		case "items_xml":
			cfg.Files.ItemsXML = f.cfg.Files.ItemsXML
		case "appearances":
			cfg.Files.Appearances = f.cfg.Files.Appearances
		case "catalog_content":
			cfg.Files.CatalogContent = f.cfg.Files.CatalogContent
		case "sheet_dir":
			cfg.Files.SheetDir = f.cfg.Files.SheetDir
		case "extended":
			cfg.Codec.Extended = f.cfg.Codec.Extended
		case "transparency":
			cfg.Codec.Transparency = f.cfg.Codec.Transparency
		case "format":
			cfg.Export.Format = f.cfg.Export.Format
		case "workers":
			cfg.Export.Workers = f.cfg.Export.Workers
		case "out":
			cfg.Export.Dir = f.cfg.Export.Dir
		case "listen":
			cfg.Web.Listen = f.cfg.Web.Listen
		case "thumbnail":
			cfg.Web.Thumbnail = f.cfg.Web.Thumbnail
		}
	})
}
