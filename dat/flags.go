package dat

import (
	"encoding/binary"
	"fmt"
)

// Flag is the id of one property in a thing's property list.
type Flag uint8

const (
	FlagGround Flag = iota
	FlagGroundBorder
	FlagOnBottom
	FlagOnTop
	FlagContainer
	FlagStackable
	FlagForceUse
	FlagMultiUse
	FlagWritable
	FlagWritableOnce
	FlagFluidContainer
	FlagIsFluid
	FlagUnpassable
	FlagUnmoveable
	FlagBlockMissile
	FlagBlockPathfind
	FlagNoMoveAnimation
	FlagPickupable
	FlagHangable
	FlagHookVertical
	FlagHookHorizontal
	FlagRotatable
	FlagHasLight
	FlagDontHide
	FlagTranslucent
	FlagHasOffset
	FlagHasElevation
	FlagLyingObject
	FlagAnimateAlways
	FlagShowOnMinimap
	FlagLensHelp
	FlagFullGround
	FlagIgnoreLook
	FlagIsCloth
	FlagMarketItem
	FlagDefaultAction
	FlagWrappable
	FlagUnwrappable
	FlagTopEffect
	FlagUsable

	FlagUpgradeClassification Flag = 0x2F

	// flagLast ends a thing's property list.
	flagLast = 0xFF
)

// field describes one little-endian value in a flag payload.
type field struct {
	size   int
	signed bool
}

var (
	u16 = field{size: 2}
	i16 = field{size: 2, signed: true}
)

type flagInfo struct {
	name   string
	fields []field
}

// marketHeaderSize is the fixed part of a MarketItem payload; its last two
// bytes are the length of the name that follows.
const marketHeaderSize = 8

var flagTable = map[Flag]flagInfo{
	FlagGround:                {"Ground", []field{u16}},
	FlagGroundBorder:          {"GroundBorder", nil},
	FlagOnBottom:              {"OnBottom", nil},
	FlagOnTop:                 {"OnTop", nil},
	FlagContainer:             {"Container", nil},
	FlagStackable:             {"Stackable", nil},
	FlagForceUse:              {"ForceUse", nil},
	FlagMultiUse:              {"MultiUse", nil},
	FlagWritable:              {"Writable", []field{u16}},
	FlagWritableOnce:          {"WritableOnce", []field{u16}},
	FlagFluidContainer:        {"FluidContainer", nil},
	FlagIsFluid:               {"IsFluid", nil},
	FlagUnpassable:            {"Unpassable", nil},
	FlagUnmoveable:            {"Unmoveable", nil},
	FlagBlockMissile:          {"BlockMissile", nil},
	FlagBlockPathfind:         {"BlockPathfind", nil},
	FlagNoMoveAnimation:       {"NoMoveAnimation", nil},
	FlagPickupable:            {"Pickupable", nil},
	FlagHangable:              {"Hangable", nil},
	FlagHookVertical:          {"HookVertical", nil},
	FlagHookHorizontal:        {"HookHorizontal", nil},
	FlagRotatable:             {"Rotatable", nil},
	FlagHasLight:              {"HasLight", []field{u16, u16}},
	FlagDontHide:              {"DontHide", nil},
	FlagTranslucent:           {"Translucent", nil},
	FlagHasOffset:             {"HasOffset", []field{i16, i16}},
	FlagHasElevation:          {"HasElevation", []field{u16}},
	FlagLyingObject:           {"LyingObject", nil},
	FlagAnimateAlways:         {"AnimateAlways", nil},
	FlagShowOnMinimap:         {"ShowOnMinimap", []field{u16}},
	FlagLensHelp:              {"LensHelp", []field{u16}},
	FlagFullGround:            {"FullGround", nil},
	FlagIgnoreLook:            {"IgnoreLook", nil},
	FlagIsCloth:               {"IsCloth", []field{u16}},
	FlagMarketItem:            {"MarketItem", nil},
	FlagDefaultAction:         {"DefaultAction", []field{u16}},
	FlagWrappable:             {"Wrappable", nil},
	FlagUnwrappable:           {"Unwrappable", nil},
	FlagTopEffect:             {"TopEffect", nil},
	FlagUsable:                {"Usable", nil},
	FlagUpgradeClassification: {"UpgradeClassification", []field{u16}},
}

// flagOrder lists the known flags in the order they are written.
var flagOrder = func() []Flag {
	var out []Flag
	for f := Flag(0); f < flagLast; f++ {
		if _, ok := flagTable[f]; ok {
			out = append(out, f)
		}
	}
	return out
}()

var flagsByName = func() map[string]Flag {
	m := make(map[string]Flag, len(flagTable))
	for f, info := range flagTable {
		m[info.name] = f
	}
	return m
}()

func (f Flag) String() string {
	if info, ok := flagTable[f]; ok {
		return info.name
	}
	return fmt.Sprintf("Flag(0x%02X)", uint8(f))
}

// Known reports whether the flag is in the flag table.
func (f Flag) Known() bool {
	_, ok := flagTable[f]
	return ok
}

// FlagByName finds a flag by the name String returns for it.
func FlagByName(name string) (Flag, bool) {
	f, ok := flagsByName[name]
	return f, ok
}

// Flags returns all known flags in table order.
func Flags() []Flag {
	return append([]Flag(nil), flagOrder...)
}

// payloadSize is the number of bytes following the flag id, or -1 if the
// size depends on the payload itself.
func (f Flag) payloadSize() int {
	if f == FlagMarketItem {
		return -1
	}
	n := 0
	for _, fl := range flagTable[f].fields {
		n += fl.size
	}
	return n
}

// zeroPayload is the payload a flag gets when it is set without a value.
func (f Flag) zeroPayload() []byte {
	if f == FlagMarketItem {
		return make([]byte, marketHeaderSize+4)
	}
	if n := f.payloadSize(); n > 0 {
		return make([]byte, n)
	}
	return nil
}

// validPayload reports whether p has the shape the flag requires.
func (f Flag) validPayload(p []byte) bool {
	if f == FlagMarketItem {
		if len(p) < marketHeaderSize {
			return false
		}
		nameLen := int(binary.LittleEndian.Uint16(p[marketHeaderSize-2:]))
		return len(p) == marketHeaderSize+nameLen+4
	}
	return len(p) == f.payloadSize()
}

// decodeValues splits a fixed-format payload into its values.
func (f Flag) decodeValues(p []byte) []int {
	var out []int
	for _, fl := range flagTable[f].fields {
		if len(p) < fl.size {
			break
		}
		v := binary.LittleEndian.Uint16(p)
		if fl.signed {
			out = append(out, int(int16(v)))
		} else {
			out = append(out, int(v))
		}
		p = p[fl.size:]
	}
	return out
}

// encodeValues is the inverse of decodeValues.
func (f Flag) encodeValues(vals []int) ([]byte, error) {
	fields := flagTable[f].fields
	if len(vals) != len(fields) {
		return nil, fmt.Errorf("dat: %s takes %d values, got %d", f, len(fields), len(vals))
	}
	var out []byte
	for i, fl := range fields {
		v := vals[i]
		if fl.signed && (v < -1<<15 || v >= 1<<15) || !fl.signed && (v < 0 || v >= 1<<16) {
			return nil, fmt.Errorf("dat: %s value %d out of range", f, v)
		}
		out = binary.LittleEndian.AppendUint16(out, uint16(v))
	}
	return out, nil
}
