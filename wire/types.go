package wire

import "github.com/anirudhraja/protocodec/schema"

// ===== PROTOBUF WIRE FORMAT TYPES =====

// WireType represents protobuf wire format types
type WireType int32

const (
	WireVarint     WireType = 0 // int32, int64, uint32, uint64, sint32, sint64, bool, enum
	WireFixed64    WireType = 1 // fixed64, sfixed64, double
	WireBytes      WireType = 2 // string, bytes, embedded messages, packed repeated fields
	WireStartGroup WireType = 3 // deprecated, rejected
	WireEndGroup   WireType = 4 // deprecated, rejected
	WireFixed32    WireType = 5 // fixed32, sfixed32, float
)

// String returns a human-readable name for the wire type.
func (w WireType) String() string {
	switch w {
	case WireVarint:
		return "varint"
	case WireFixed64:
		return "fixed64"
	case WireBytes:
		return "bytes"
	case WireStartGroup:
		return "start_group"
	case WireEndGroup:
		return "end_group"
	case WireFixed32:
		return "fixed32"
	default:
		return "unknown"
	}
}

// Supported reports whether the runtime can read values of this wire type.
func (w WireType) Supported() bool {
	switch w {
	case WireVarint, WireFixed64, WireBytes, WireFixed32:
		return true
	}
	return false
}

// FieldNumber represents a protobuf field number
type FieldNumber int32

// MaxFieldNumber is the largest encodable field number (2^29-1).
const MaxFieldNumber FieldNumber = schema.MaxFieldNumber

// Tag represents a protobuf field tag (field number + wire type)
type Tag uint64

// MakeTag creates a tag from field number and wire type
func MakeTag(fieldNumber FieldNumber, wireType WireType) Tag {
	return Tag(uint64(fieldNumber)<<3 | uint64(wireType))
}

// ParseTag parses a tag into field number and wire type
func ParseTag(tag Tag) (FieldNumber, WireType) {
	return FieldNumber(tag >> 3), WireType(tag & 0x7)
}

// WireTypeOf returns the wire type a singular value of the given field type
// is written with.
func WireTypeOf(ft *schema.FieldType) WireType {
	switch ft.Kind {
	case schema.KindPrimitive:
		switch ft.PrimitiveType {
		case schema.TypeString, schema.TypeBytes:
			return WireBytes
		case schema.TypeFloat, schema.TypeFixed32, schema.TypeSfixed32:
			return WireFixed32
		case schema.TypeDouble, schema.TypeFixed64, schema.TypeSfixed64:
			return WireFixed64
		default:
			return WireVarint
		}
	case schema.KindEnum:
		return WireVarint
	default:
		return WireBytes
	}
}
