// Command assetconv converts, checks and exports Tibia datafiles.
//
// Usage:
//
//	assetconv [flags] <command> [args]
//
// Input files default to those named by the config; see -config.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sort"

	"badc0de.net/pkg/flagutil/v1"
	"github.com/golang/glog"

	"badc0de.net/pkg/tibia-assets/config"
)

var cfgFlags = config.RegisterFlags(flag.CommandLine)

type command struct {
	usage string
	run   func(ctx context.Context, cfg *config.Config, args []string) error
}

var commands = map[string]command{
	"dat-roundtrip":  {"[out]: decode and re-encode Tibia.dat", datRoundTrip},
	"spr-roundtrip":  {"[out]: decode and re-encode Tibia.spr", sprRoundTrip},
	"otb-roundtrip":  {"[out]: decode and re-encode items.otb", otbRoundTrip},
	"dat-edit":       {"-ids 100,101 [-category item] [-set Flag,...] [-unset Flag,...] out: change dataset flags", datEdit},
	"otb-check":      {": list items.otb flags the dataset does not back", otbCheck},
	"otb-sync":       {"out: copy flags, speed and light from Tibia.dat to items.otb", otbSync},
	"otb-missing":    {"out: add items.otb items for dataset items it lacks", otbMissing},
	"export-sprites": {": write every sprite of Tibia.spr to the export directory", exportSprites},
	"export-items":   {": write every dataset item, composited, to the export directory", exportItems},
	"export-sheet":   {": write every sprite of the sprite sheets to the export directory", exportSheet},
	"appearances":    {": summarize the appearance catalog", appearancesSummary},
	"config":         {": print the effective config", printConfig},
}

func usage() {
	fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [flags] <command> [args]\n\ncommands:\n", os.Args[0])
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(flag.CommandLine.Output(), "  %s %s\n", name, commands[name].usage)
	}
	fmt.Fprintf(flag.CommandLine.Output(), "\nflags:\n")
	flag.PrintDefaults()
}

func main() {
	flag.Usage = usage
	flagutil.Parse()
	flag.Set("logtostderr", "true")

	if flag.NArg() < 1 {
		usage()
		os.Exit(2)
	}
	cmd, ok := commands[flag.Arg(0)]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command %q\n", flag.Arg(0))
		usage()
		os.Exit(2)
	}

	cfg, err := config.Load("", cfgFlags)
	if err != nil {
		glog.Exitf("%v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := cmd.run(ctx, cfg, flag.Args()[1:]); err != nil {
		glog.Exitf("%s: %v", flag.Arg(0), err)
	}
}

// progress logs bulk decode and export progress.
func progress(what string) func(done, total int) {
	return func(done, total int) {
		glog.Infof("%s: %d/%d", what, done, total)
	}
}
