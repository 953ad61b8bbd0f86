// Package config holds the settings shared by the asset tools: where the
// datafiles are, how they are decoded, and how images are exported and
// served.
package config

import (
	"runtime"

	"github.com/pkg/errors"
)

// Config holds all tool settings.
type Config struct {
	Files  FilesConfig  `yaml:"files"`
	Codec  CodecConfig  `yaml:"codec"`
	Export ExportConfig `yaml:"export"`
	Web    WebConfig    `yaml:"web"`
}

// FilesConfig names the datafiles. Relative names are looked up with
// paths.Find.
type FilesConfig struct {
	TibiaDat       string `yaml:"tibia_dat"`
	TibiaSpr       string `yaml:"tibia_spr"`
	ItemsOTB       string `yaml:"items_otb"`
	ItemsXML       string `yaml:"items_xml"`
	Appearances    string `yaml:"appearances"`
	CatalogContent string `yaml:"catalog_content"`
	SheetDir       string `yaml:"sheet_dir"` // directory holding the sheet files catalog-content.json names
}

// CodecConfig holds the format switches that the files do not carry.
type CodecConfig struct {
	Extended     bool `yaml:"extended"`     // 32-bit sprite ids
	Transparency bool `yaml:"transparency"` // RGBA sprite runs
}

// ExportConfig holds bulk image export settings.
type ExportConfig struct {
	Format  string `yaml:"format"` // png, webp or gif
	Workers int    `yaml:"workers"`
	Dir     string `yaml:"dir"`
}

// WebConfig holds preview server settings.
type WebConfig struct {
	Listen    string `yaml:"listen"`
	Thumbnail uint   `yaml:"thumbnail"` // edge of data-URL thumbnails, in pixels
}

// Export formats.
const (
	FormatPNG  = "png"
	FormatWebP = "webp"
	FormatGIF  = "gif"
)

// Default returns a Config with the datafile names of a standard client
// install.
func Default() *Config {
	return &Config{
		Files: FilesConfig{
			TibiaDat:       "Tibia.dat",
			TibiaSpr:       "Tibia.spr",
			ItemsOTB:       "items.otb",
			ItemsXML:       "items.xml",
			Appearances:    "appearances.dat",
			CatalogContent: "catalog-content.json",
		},
		Export: ExportConfig{
			Format:  FormatPNG,
			Workers: runtime.NumCPU(),
			Dir:     "export",
		},
		Web: WebConfig{
			Listen:    ":8080",
			Thumbnail: 64,
		},
	}
}

// Validate reports settings no tool can work with.
func (c *Config) Validate() error {
	switch c.Export.Format {
	case FormatPNG, FormatWebP, FormatGIF:
	default:
		return errors.Errorf("config: unknown export format %q", c.Export.Format)
	}
	if c.Export.Workers < 1 {
		return errors.Errorf("config: export workers must be at least 1, got %d", c.Export.Workers)
	}
	if c.Web.Thumbnail == 0 {
		return errors.New("config: thumbnail size must not be zero")
	}
	return nil
}
