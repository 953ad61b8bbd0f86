// Package wire walks protocol buffer wire-format data without a schema.
//
// It is the low-level layer used by the appearances package. Only the two
// wire types that carry data in appearance catalogs (varint and
// length-delimited) are surfaced; fixed-width fields are skipped and groups
// are rejected.
package wire

import (
	"fmt"

	"github.com/pkg/errors"
	"google.golang.org/protobuf/encoding/protowire"

	"badc0de.net/pkg/tibia-assets/codec"
)

// ErrGroupWireType is returned when a deprecated start/end group field is
// encountered.
var ErrGroupWireType = errors.New("wire: group wire types are not supported")

// Field number and wire type of a single field.
type (
	Number = protowire.Number
	Type   = protowire.Type
)

const (
	VarintType  = protowire.VarintType
	Fixed64Type = protowire.Fixed64Type
	BytesType   = protowire.BytesType
	Fixed32Type = protowire.Fixed32Type
)

// ReadVarint decodes the little-endian base-128 integer starting at pos. It
// returns the value and the number of bytes it occupied.
//
// At most ten bytes are examined; a sequence that is still continuing after
// that, or that runs off the end of b, is codec.ErrInvalidVarint.
func ReadVarint(b []byte, pos int) (uint64, int, error) {
	if pos < 0 || pos >= len(b) {
		return 0, 0, errors.Wrapf(codec.ErrUnexpectedEOF, "wire: varint at %d of %d", pos, len(b))
	}
	v, n := protowire.ConsumeVarint(b[pos:])
	if n < 0 {
		return 0, 0, errors.Wrapf(codec.ErrInvalidVarint, "wire: at %d: %v", pos, protowire.ParseError(n))
	}
	return v, n, nil
}

// ReadTag decodes the field tag starting at pos into its field number and
// wire type.
func ReadTag(b []byte, pos int) (Number, Type, int, error) {
	v, n, err := ReadVarint(b, pos)
	if err != nil {
		return 0, 0, 0, err
	}
	num, typ := protowire.DecodeTag(v)
	return num, typ, n, nil
}

// Field is one decoded field. For VarintType, Varint holds the value; for
// BytesType, Bytes aliases the input buffer.
type Field struct {
	Num    Number
	Type   Type
	Varint uint64
	Bytes  []byte
}

func (f Field) String() string {
	if f.Type == BytesType {
		return fmt.Sprintf("field %d: %d bytes", f.Num, len(f.Bytes))
	}
	return fmt.Sprintf("field %d: %d", f.Num, f.Varint)
}

// Walk calls fn for every varint and length-delimited field in b, in order.
// Fixed-width fields are skipped. Walking stops at the first error, either
// from decoding or returned by fn.
func Walk(b []byte, fn func(Field) error) error {
	pos := 0
	for pos < len(b) {
		num, typ, n, err := ReadTag(b, pos)
		if err != nil {
			return err
		}
		pos += n

		f := Field{Num: num, Type: typ}
		switch typ {
		case VarintType:
			v, n, err := ReadVarint(b, pos)
			if err != nil {
				return errors.Wrapf(err, "wire: field %d", num)
			}
			pos += n
			f.Varint = v
		case BytesType:
			l, n, err := ReadVarint(b, pos)
			if err != nil {
				return errors.Wrapf(err, "wire: length of field %d", num)
			}
			pos += n
			if l > uint64(len(b)-pos) {
				return errors.Wrapf(codec.ErrUnexpectedEOF, "wire: field %d wants %d bytes, %d left", num, l, len(b)-pos)
			}
			f.Bytes = b[pos : pos+int(l)]
			pos += int(l)
		case Fixed64Type:
			if len(b)-pos < 8 {
				return errors.Wrapf(codec.ErrUnexpectedEOF, "wire: fixed64 field %d", num)
			}
			pos += 8
			continue
		case Fixed32Type:
			if len(b)-pos < 4 {
				return errors.Wrapf(codec.ErrUnexpectedEOF, "wire: fixed32 field %d", num)
			}
			pos += 4
			continue
		default:
			return errors.Wrapf(ErrGroupWireType, "field %d has wire type %d", num, typ)
		}

		if err := fn(f); err != nil {
			return err
		}
	}
	return nil
}

// Packed decodes a packed run of varints.
func Packed(b []byte) ([]uint64, error) {
	var out []uint64
	for pos := 0; pos < len(b); {
		v, n, err := ReadVarint(b, pos)
		if err != nil {
			return out, err
		}
		out = append(out, v)
		pos += n
	}
	return out, nil
}

// AppendVarint appends a varint field.
func AppendVarint(b []byte, num Number, v uint64) []byte {
	b = protowire.AppendTag(b, num, VarintType)
	return protowire.AppendVarint(b, v)
}

// AppendBytes appends a length-delimited field.
func AppendBytes(b []byte, num Number, v []byte) []byte {
	b = protowire.AppendTag(b, num, BytesType)
	return protowire.AppendBytes(b, v)
}

// AppendPacked appends vs as a single packed length-delimited field.
func AppendPacked(b []byte, num Number, vs []uint64) []byte {
	var packed []byte
	for _, v := range vs {
		packed = protowire.AppendVarint(packed, v)
	}
	return AppendBytes(b, num, packed)
}
