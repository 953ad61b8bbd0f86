package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"badc0de.net/pkg/tibia-assets/config"
	"badc0de.net/pkg/tibia-assets/dat"
	"badc0de.net/pkg/tibia-assets/things/full"
)

func parseCategory(s string) (dat.Category, error) {
	for _, c := range dat.Categories {
		if c.String() == s {
			return c, nil
		}
	}
	return 0, errors.Errorf("unknown category %q", s)
}

func parseIDs(s string) ([]uint16, error) {
	var ids []uint16
	for _, f := range strings.Split(s, ",") {
		if f = strings.TrimSpace(f); f == "" {
			continue
		}
		from, to, isRange := strings.Cut(f, "-")
		lo, err := strconv.ParseUint(from, 10, 16)
		if err != nil {
			return nil, errors.Wrapf(err, "id %q", f)
		}
		hi := lo
		if isRange {
			if hi, err = strconv.ParseUint(to, 10, 16); err != nil {
				return nil, errors.Wrapf(err, "id %q", f)
			}
		}
		for id := lo; id <= hi; id++ {
			ids = append(ids, uint16(id))
		}
	}
	return ids, nil
}

func parseFlags(s string) ([]dat.Flag, error) {
	var flags []dat.Flag
	for _, name := range strings.Split(s, ",") {
		if name = strings.TrimSpace(name); name == "" {
			continue
		}
		f, ok := dat.FlagByName(name)
		if !ok {
			return nil, errors.Errorf("unknown flag %q", name)
		}
		flags = append(flags, f)
	}
	return flags, nil
}

func datEdit(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("dat-edit", flag.ContinueOnError)
	category := fs.String("category", "item", "thing category: item, outfit, effect or missile")
	idList := fs.String("ids", "", "comma separated ids or ranges, such as 100,200-210")
	setList := fs.String("set", "", "comma separated flags to set")
	unsetList := fs.String("unset", "", "comma separated flags to unset")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("want exactly one output path")
	}

	cat, err := parseCategory(*category)
	if err != nil {
		return err
	}
	ids, err := parseIDs(*idList)
	if err != nil {
		return err
	}
	set, err := parseFlags(*setList)
	if err != nil {
		return err
	}
	unset, err := parseFlags(*unsetList)
	if err != nil {
		return err
	}

	in, err := read(full.PathsFromConfig(cfg).TibiaDat)
	if err != nil {
		return err
	}
	c, warnings, err := dat.DecodeContext(ctx, in, dat.Options{Extended: cfg.Codec.Extended})
	if err != nil {
		return err
	}
	logWarnings("dat", warnings)

	fmt.Printf("changed %d things\n", dat.ApplyChanges(c, cat, ids, set, unset))
	out, err := dat.Encode(c)
	if err != nil {
		return err
	}
	return errors.Wrap(os.WriteFile(fs.Arg(0), out, 0o644), "writing dataset")
}
