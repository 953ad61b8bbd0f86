package otb

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
)

// Attribute is the id of a tagged property inside a node.
type Attribute uint8

// Attribute ids with a typed representation in Attributes. Every other id is
// kept only in the node's raw table.
const (
	ATTR_ROOT_VERSION           Attribute = 0x01
	ATTR_SERVERID               Attribute = 16
	ATTR_CLIENTID               Attribute = 17
	ATTR_NAME                   Attribute = 18
	ATTR_SPEED                  Attribute = 20
	ATTR_WEIGHT                 Attribute = 23
	ATTR_WEAPON                 Attribute = 24
	ATTR_ARMOR                  Attribute = 26
	ATTR_DECAY                  Attribute = 31
	ATTR_MINIMAPCOLOR           Attribute = 33
	ATTR_LIGHT                  Attribute = 42
	ATTR_WAREID                 Attribute = 45
	ATTR_UPGRADE_CLASSIFICATION Attribute = 53
	ATTR_WEAROUT                Attribute = 54
	ATTR_CLOCKEXPIRE            Attribute = 55
	ATTR_EXPIRE                 Attribute = 56
	ATTR_EXPIRESTOP             Attribute = 57
	ATTR_CORPSE                 Attribute = 58
	ATTR_PLAYERCORPSE           Attribute = 59
	ATTR_AMMO                   Attribute = 60
	ATTR_SHOWOFFSOCKET          Attribute = 61
	ATTR_REPORTABLE             Attribute = 62
	ATTR_CHANGEDTOEXPIRE        Attribute = 63
	ATTR_CYCLOPEDIAITEM         Attribute = 64
)

const csdSize = 128

// Version is the payload of the root node's version attribute.
type Version struct {
	Major, Minor, Build uint32
	// CSD is a free-form description, stored as a NUL-padded 128 byte field.
	CSD string
}

// Weapon holds the attack and defense values of a weapon.
type Weapon struct {
	Attack, Defense uint16
}

// Decay names the item an item decays into and after how long.
type Decay struct {
	To, Time uint16
}

// Light is the light level and color of an item.
type Light struct {
	Level, Color uint16
}

// Attributes is the typed view of a node's properties. A nil field means the
// attribute is not present.
type Attributes struct {
	Version               *Version
	ServerID              *uint16
	ClientID              *uint16
	Name                  *string
	Speed                 *uint16
	Weight                *uint32
	Weapon                *Weapon
	Armor                 *uint16
	Decay                 *Decay
	MinimapColor          *uint16
	Light                 *Light
	WareID                *uint16
	UpgradeClassification *uint8

	Wearout       *bool
	ClockExpire   *bool
	Expire        *bool
	ExpireStop    *bool
	Corpse        *bool
	PlayerCorpse  *bool
	Ammo          *bool
	ShowOffSocket *bool
	Reportable    *bool

	ChangedToExpire *uint16
	CyclopediaItem  *uint16
}

// Uint8, Uint16, Uint32, Bool and String return pointers to their argument,
// for filling in Attributes.
func Uint8(v uint8) *uint8 { return &v }
func Uint16(v uint16) *uint16 { return &v }
func Uint32(v uint32) *uint32 { return &v }
func Bool(v bool) *bool { return &v }
func String(v string) *string { return &v }

// Clone returns a copy that shares no pointers with a.
func (a Attributes) Clone() Attributes {
	out := Attributes{}
	for i := range typedAttrs {
		if b := typedAttrs[i].encode(&a); b != nil {
			typedAttrs[i].decode(&out, b)
		}
	}
	return out
}

// typedAttr binds an attribute id to the field holding it. decode reports
// false when the raw bytes do not form a valid value. encode returns nil
// when the field is unset.
type typedAttr struct {
	id     Attribute
	decode func(a *Attributes, data []byte) bool
	encode func(a *Attributes) []byte
	equal  func(x, y *Attributes) bool
}

// typedAttrs is in serialization order.
var typedAttrs = []typedAttr{
	u16Attr(ATTR_SERVERID, func(a *Attributes) **uint16 { return &a.ServerID }),
	u16Attr(ATTR_CLIENTID, func(a *Attributes) **uint16 { return &a.ClientID }),
	{
		id: ATTR_NAME,
		decode: func(a *Attributes, data []byte) bool {
			s, err := charmap.ISO8859_1.NewDecoder().Bytes(data)
			if err != nil {
				return false
			}
			a.Name = String(string(s))
			return true
		},
		encode: func(a *Attributes) []byte {
			if a.Name == nil {
				return nil
			}
			b, _ := encoding.ReplaceUnsupported(charmap.ISO8859_1.NewEncoder()).Bytes([]byte(*a.Name))
			return append([]byte{}, b...)
		},
		equal: func(x, y *Attributes) bool { return eqPtr(x.Name, y.Name) },
	},
	{
		id: ATTR_WEIGHT,
		decode: func(a *Attributes, data []byte) bool {
			switch {
			case len(data) >= 4:
				a.Weight = Uint32(binary.LittleEndian.Uint32(data))
			case len(data) >= 2:
				a.Weight = Uint32(uint32(binary.LittleEndian.Uint16(data)))
			default:
				return false
			}
			return true
		},
		encode: func(a *Attributes) []byte {
			if a.Weight == nil {
				return nil
			}
			return binary.LittleEndian.AppendUint32(nil, *a.Weight)
		},
		equal: func(x, y *Attributes) bool { return eqPtr(x.Weight, y.Weight) },
	},
	u16Attr(ATTR_SPEED, func(a *Attributes) **uint16 { return &a.Speed }),
	u16Attr(ATTR_ARMOR, func(a *Attributes) **uint16 { return &a.Armor }),
	pairAttr(ATTR_WEAPON, func(a *Attributes) (*uint16, *uint16, bool) {
		if a.Weapon == nil {
			return nil, nil, false
		}
		return &a.Weapon.Attack, &a.Weapon.Defense, true
	}, func(a *Attributes) { a.Weapon = &Weapon{} }, func(x, y *Attributes) bool { return eqPtr(x.Weapon, y.Weapon) }),
	pairAttr(ATTR_LIGHT, func(a *Attributes) (*uint16, *uint16, bool) {
		if a.Light == nil {
			return nil, nil, false
		}
		return &a.Light.Level, &a.Light.Color, true
	}, func(a *Attributes) { a.Light = &Light{} }, func(x, y *Attributes) bool { return eqPtr(x.Light, y.Light) }),
	u16Attr(ATTR_MINIMAPCOLOR, func(a *Attributes) **uint16 { return &a.MinimapColor }),
	u16Attr(ATTR_WAREID, func(a *Attributes) **uint16 { return &a.WareID }),
	{
		id: ATTR_UPGRADE_CLASSIFICATION,
		decode: func(a *Attributes, data []byte) bool {
			if len(data) < 1 {
				return false
			}
			a.UpgradeClassification = Uint8(data[0])
			return true
		},
		encode: func(a *Attributes) []byte {
			if a.UpgradeClassification == nil {
				return nil
			}
			return []byte{*a.UpgradeClassification}
		},
		equal: func(x, y *Attributes) bool { return eqPtr(x.UpgradeClassification, y.UpgradeClassification) },
	},
	pairAttr(ATTR_DECAY, func(a *Attributes) (*uint16, *uint16, bool) {
		if a.Decay == nil {
			return nil, nil, false
		}
		return &a.Decay.To, &a.Decay.Time, true
	}, func(a *Attributes) { a.Decay = &Decay{} }, func(x, y *Attributes) bool { return eqPtr(x.Decay, y.Decay) }),
	boolAttr(ATTR_WEAROUT, func(a *Attributes) **bool { return &a.Wearout }),
	boolAttr(ATTR_CLOCKEXPIRE, func(a *Attributes) **bool { return &a.ClockExpire }),
	boolAttr(ATTR_EXPIRE, func(a *Attributes) **bool { return &a.Expire }),
	boolAttr(ATTR_EXPIRESTOP, func(a *Attributes) **bool { return &a.ExpireStop }),
	boolAttr(ATTR_CORPSE, func(a *Attributes) **bool { return &a.Corpse }),
	boolAttr(ATTR_PLAYERCORPSE, func(a *Attributes) **bool { return &a.PlayerCorpse }),
	boolAttr(ATTR_AMMO, func(a *Attributes) **bool { return &a.Ammo }),
	boolAttr(ATTR_SHOWOFFSOCKET, func(a *Attributes) **bool { return &a.ShowOffSocket }),
	boolAttr(ATTR_REPORTABLE, func(a *Attributes) **bool { return &a.Reportable }),
	u16Attr(ATTR_CHANGEDTOEXPIRE, func(a *Attributes) **uint16 { return &a.ChangedToExpire }),
	u16Attr(ATTR_CYCLOPEDIAITEM, func(a *Attributes) **uint16 { return &a.CyclopediaItem }),
	{
		id: ATTR_ROOT_VERSION,
		decode: func(a *Attributes, data []byte) bool {
			if len(data) < 12 {
				return false
			}
			le := binary.LittleEndian
			v := &Version{Major: le.Uint32(data), Minor: le.Uint32(data[4:]), Build: le.Uint32(data[8:])}
			csd := data[12:]
			if i := bytes.IndexByte(csd, 0); i >= 0 {
				csd = csd[:i]
			}
			v.CSD = string(csd)
			a.Version = v
			return true
		},
		encode: func(a *Attributes) []byte {
			if a.Version == nil {
				return nil
			}
			le := binary.LittleEndian
			out := make([]byte, 0, 12+csdSize)
			out = le.AppendUint32(out, a.Version.Major)
			out = le.AppendUint32(out, a.Version.Minor)
			out = le.AppendUint32(out, a.Version.Build)
			csd := make([]byte, csdSize)
			copy(csd[:csdSize-1], a.Version.CSD)
			return append(out, csd...)
		},
		equal: func(x, y *Attributes) bool { return eqPtr(x.Version, y.Version) },
	},
}

var typedByID = func() map[Attribute]*typedAttr {
	m := make(map[Attribute]*typedAttr, len(typedAttrs))
	for i := range typedAttrs {
		m[typedAttrs[i].id] = &typedAttrs[i]
	}
	return m
}()

func eqPtr[T comparable](x, y *T) bool {
	if x == nil || y == nil {
		return x == y
	}
	return *x == *y
}

func u16Attr(id Attribute, field func(a *Attributes) **uint16) typedAttr {
	return typedAttr{
		id: id,
		decode: func(a *Attributes, data []byte) bool {
			if len(data) < 2 {
				return false
			}
			*field(a) = Uint16(binary.LittleEndian.Uint16(data))
			return true
		},
		encode: func(a *Attributes) []byte {
			v := *field(a)
			if v == nil {
				return nil
			}
			return binary.LittleEndian.AppendUint16(nil, *v)
		},
		equal: func(x, y *Attributes) bool { return eqPtr(*field(x), *field(y)) },
	}
}

func pairAttr(id Attribute, fields func(a *Attributes) (*uint16, *uint16, bool), alloc func(a *Attributes), equal func(x, y *Attributes) bool) typedAttr {
	return typedAttr{
		id: id,
		decode: func(a *Attributes, data []byte) bool {
			if len(data) < 4 {
				return false
			}
			alloc(a)
			first, second, _ := fields(a)
			*first = binary.LittleEndian.Uint16(data)
			*second = binary.LittleEndian.Uint16(data[2:])
			return true
		},
		encode: func(a *Attributes) []byte {
			first, second, ok := fields(a)
			if !ok {
				return nil
			}
			out := binary.LittleEndian.AppendUint16(nil, *first)
			return binary.LittleEndian.AppendUint16(out, *second)
		},
		equal: equal,
	}
}

// boolAttr reads a flag attribute. An empty payload counts as true; it is
// written back as a single byte.
func boolAttr(id Attribute, field func(a *Attributes) **bool) typedAttr {
	return typedAttr{
		id: id,
		decode: func(a *Attributes, data []byte) bool {
			*field(a) = Bool(len(data) == 0 || data[0] != 0)
			return true
		},
		encode: func(a *Attributes) []byte {
			v := *field(a)
			if v == nil {
				return nil
			}
			if *v {
				return []byte{1}
			}
			return []byte{0}
		},
		equal: func(x, y *Attributes) bool { return eqPtr(*field(x), *field(y)) },
	}
}

// RawAttr is one property as it was read.
type RawAttr struct {
	ID   Attribute
	Data []byte
}

// decodeProps parses a node's property triples into the raw table and the
// typed attributes.
func decodeProps(data []byte) (Attributes, []RawAttr, error) {
	var attrs Attributes
	var raw []RawAttr
	pos := 0
	for pos < len(data) {
		id := Attribute(data[pos])
		if len(data)-pos < 3 {
			return attrs, nil, fmt.Errorf("attribute %d: length field cut short at offset %d", id, pos)
		}
		n := int(binary.LittleEndian.Uint16(data[pos+1:]))
		pos += 3
		if len(data)-pos < n {
			return attrs, nil, fmt.Errorf("attribute %d: want %d bytes, have %d", id, n, len(data)-pos)
		}
		v := append([]byte{}, data[pos:pos+n]...)
		pos += n
		raw = setRaw(raw, id, v)
		if ta, ok := typedByID[id]; ok {
			ta.decode(&attrs, v)
		}
	}
	return attrs, raw, nil
}

func setRaw(raw []RawAttr, id Attribute, data []byte) []RawAttr {
	for i := range raw {
		if raw[i].ID == id {
			raw[i].Data = data
			return raw
		}
	}
	return append(raw, RawAttr{ID: id, Data: data})
}

func findRaw(raw []RawAttr, id Attribute) ([]byte, bool) {
	for _, r := range raw {
		if r.ID == id {
			return r.Data, true
		}
	}
	return nil, false
}

// encodeProps writes the property triples. Typed attributes come first, in
// fixed order: a value that still matches what was read is written with its
// original bytes, a changed one is derived from the typed field, a cleared
// one is dropped. Raw bytes that never formed a valid typed value are kept.
// Ids without a typed form follow in the order they were read.
func encodeProps(attrs *Attributes, raw []RawAttr) []byte {
	var out []byte
	add := func(id Attribute, data []byte) {
		out = append(out, byte(id))
		out = binary.LittleEndian.AppendUint16(out, uint16(len(data)))
		out = append(out, data...)
	}
	for i := range typedAttrs {
		ta := &typedAttrs[i]
		rb, hasRaw := findRaw(raw, ta.id)
		var fromRaw Attributes
		rawValid := hasRaw && ta.decode(&fromRaw, rb)
		switch {
		case ta.encode(attrs) != nil:
			if rawValid && ta.equal(&fromRaw, attrs) {
				add(ta.id, rb)
			} else {
				add(ta.id, ta.encode(attrs))
			}
		case hasRaw && !rawValid:
			add(ta.id, rb)
		}
	}
	for _, r := range raw {
		if _, ok := typedByID[r.ID]; !ok {
			add(r.ID, r.Data)
		}
	}
	return out
}
