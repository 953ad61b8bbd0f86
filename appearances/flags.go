package appearances

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pkg/errors"

	"badc0de.net/pkg/tibia-assets/wire"
)

// flagNames maps field numbers of the flags message to names. Numbers
// missing here are reported as "flag_N".
var flagNames = map[wire.Number]string{
	1: "bank", 2: "clip", 3: "bottom", 4: "top", 5: "container",
	6: "cumulative", 7: "usable", 8: "forceuse", 9: "multiuse",
	10: "write", 11: "write_once", 12: "liquidpool", 13: "unpass",
	14: "unmove", 15: "unsight", 16: "avoid", 17: "no_movement_animation",
	18: "take", 19: "liquidcontainer", 20: "hang", 21: "hook",
	22: "rotate", 23: "light", 24: "dont_hide", 25: "translucent",
	26: "shift", 27: "height", 28: "lying_object", 29: "animate_always",
	30: "automap", 31: "lenshelp", 32: "fullbank", 33: "ignore_look",
	34: "clothes", 35: "default_action", 36: "market", 37: "wrap",
	38: "unwrap", 39: "topeffect", 42: "corpse", 43: "player_corpse",
	44: "cyclopediaitem", 45: "ammo", 46: "show_off_socket",
	47: "reportable", 48: "upgradeclassification",
}

var flagNumbers = func() map[string]wire.Number {
	m := make(map[string]wire.Number, len(flagNames))
	for n, s := range flagNames {
		m[s] = n
	}
	return m
}()

// subFieldNames names the fields of the sub-messages that have a known
// layout. Other sub-message fields are reported as "field_N".
var subFieldNames = map[string]map[wire.Number]string{
	"light": {1: "brightness", 2: "color"},
	"market": {
		1: "category",
		2: "trade_as_object_id",
		3: "show_as_object_id",
		4: "name",
		5: "restrict_to_vocation",
		6: "minimum_level",
	},
	"upgradeclassification": {1: "upgrade_classification"},
}

// FlagName returns the name used for a flag field number.
func FlagName(num wire.Number) string {
	if s, ok := flagNames[num]; ok {
		return s
	}
	return fmt.Sprintf("flag_%d", num)
}

// FlagKind tells which of FlagValue's members is meaningful.
type FlagKind int

const (
	FlagBool FlagKind = iota
	FlagInt
	FlagMessage
)

// FlagValue is the value of one appearance flag. A varint of 0 or 1 is a
// boolean; other varints are integers; length-delimited values are decoded
// as a sub-message whose Fields hold uint64 or string values.
type FlagValue struct {
	Kind   FlagKind
	Bool   bool
	Int    uint64
	Fields map[string]interface{}
}

func (v FlagValue) String() string {
	switch v.Kind {
	case FlagBool:
		return fmt.Sprintf("%t", v.Bool)
	case FlagInt:
		return fmt.Sprintf("%d", v.Int)
	default:
		keys := make([]string, 0, len(v.Fields))
		for k := range v.Fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, len(keys))
		for i, k := range keys {
			parts[i] = fmt.Sprintf("%s:%v", k, v.Fields[k])
		}
		return "{" + strings.Join(parts, " ") + "}"
	}
}

// Has reports whether the flag is present and not false.
func (a *Appearance) Has(flag string) bool {
	v, ok := a.Flags[flag]
	if !ok {
		return false
	}
	return v.Kind != FlagBool || v.Bool
}

func decodeFlags(b []byte) (map[string]FlagValue, error) {
	flags := make(map[string]FlagValue)
	err := wire.Walk(b, func(f wire.Field) error {
		name := FlagName(f.Num)
		switch f.Type {
		case wire.VarintType:
			if f.Varint <= 1 {
				flags[name] = FlagValue{Kind: FlagBool, Bool: f.Varint == 1}
			} else {
				flags[name] = FlagValue{Kind: FlagInt, Int: f.Varint}
			}
		case wire.BytesType:
			fields, err := decodeSubMessage(f.Bytes, name)
			if err != nil {
				return errors.Wrapf(err, "flag %s", name)
			}
			flags[name] = FlagValue{Kind: FlagMessage, Fields: fields}
		}
		return nil
	})
	return flags, err
}

func decodeSubMessage(b []byte, flag string) (map[string]interface{}, error) {
	names := subFieldNames[flag]
	fields := make(map[string]interface{})
	err := wire.Walk(b, func(f wire.Field) error {
		key, ok := names[f.Num]
		if !ok {
			key = fmt.Sprintf("field_%d", f.Num)
		}
		if f.Type == wire.BytesType {
			fields[key] = strings.ToValidUTF8(string(f.Bytes), "")
		} else {
			fields[key] = f.Varint
		}
		return nil
	})
	return fields, err
}

func encodeFlags(flags map[string]FlagValue) []byte {
	byNum := make(map[wire.Number][]byte, len(flags))
	for name, v := range flags {
		num, ok := flagNumbers[name]
		if !ok {
			if num, ok = fieldFromName(name, "flag_"); !ok {
				continue
			}
		}
		var b []byte
		switch v.Kind {
		case FlagBool:
			var x uint64
			if v.Bool {
				x = 1
			}
			b = wire.AppendVarint(nil, num, x)
		case FlagInt:
			b = wire.AppendVarint(nil, num, v.Int)
		case FlagMessage:
			b = wire.AppendBytes(nil, num, encodeSubMessage(v.Fields, name))
		}
		byNum[num] = b
	}
	var out []byte
	for _, num := range sortedKeys(byNum) {
		out = append(out, byNum[num]...)
	}
	return out
}

func encodeSubMessage(fields map[string]interface{}, flag string) []byte {
	numbers := make(map[string]wire.Number)
	for n, s := range subFieldNames[flag] {
		numbers[s] = n
	}
	byNum := make(map[wire.Number][]byte, len(fields))
	for key, v := range fields {
		num, ok := numbers[key]
		if !ok {
			if num, ok = fieldFromName(key, "field_"); !ok {
				continue
			}
		}
		switch x := v.(type) {
		case string:
			byNum[num] = wire.AppendBytes(nil, num, []byte(x))
		case uint64:
			byNum[num] = wire.AppendVarint(nil, num, x)
		case uint32:
			byNum[num] = wire.AppendVarint(nil, num, uint64(x))
		case int:
			byNum[num] = wire.AppendVarint(nil, num, uint64(x))
		}
	}
	var out []byte
	for _, num := range sortedKeys(byNum) {
		out = append(out, byNum[num]...)
	}
	return out
}
