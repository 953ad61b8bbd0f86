package main

import (
	"context"
	"fmt"
	"os"

	"badc0de.net/pkg/tibia-assets/appearances"
	"badc0de.net/pkg/tibia-assets/config"
)

func appearancesSummary(ctx context.Context, cfg *config.Config, args []string) error {
	b, err := read(cfg.Files.Appearances)
	if err != nil {
		return err
	}
	c, warnings, err := appearances.DecodeContext(ctx, b, progress("appearances"))
	if err != nil {
		return err
	}
	logWarnings("appearances", warnings)

	for cat := appearances.CategoryObject; cat <= appearances.CategoryMissile; cat++ {
		all := c.All(cat)
		named, sprites := 0, 0
		for _, a := range all {
			if a.Name != "" {
				named++
			}
			sprites += len(a.SpriteIDs)
		}
		fmt.Printf("%-8s %6d appearances, %6d named, %8d sprite references\n", cat, len(all), named, sprites)
	}
	return nil
}

func printConfig(ctx context.Context, cfg *config.Config, args []string) error {
	b, err := cfg.Marshal()
	if err != nil {
		return err
	}
	_, err = os.Stdout.Write(b)
	return err
}
