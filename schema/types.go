package schema

import "sync"

// ProtoRepo represents a collection of .proto files and their definitions.
type ProtoRepo struct {
	ProtoFiles map[string]*ProtoFile `json:"proto_files"`
}

// ProtoFile represents a single .proto file
type ProtoFile struct {
	Name     string     `json:"name"`     // file.proto
	Package  string     `json:"package"`  // package name
	Syntax   string     `json:"syntax"`   // proto2 or proto3
	Imports  []*Import  `json:"imports"`  // imported files
	Messages []*Message `json:"messages"` // message definitions
	Enums    []*Enum    `json:"enums"`    // enum definitions
	Services []*Service `json:"services"` // service definitions
}

const (
	SyntaxProto2 = "proto2"
	SyntaxProto3 = "proto3"
)

// Import represents an import statement
type Import struct {
	Path   string `json:"path"`   // "google/protobuf/timestamp.proto"
	Public bool   `json:"public"` // public import
	Weak   bool   `json:"weak"`   // weak import
}

// Message describes one message type. Descriptors are built once and must not
// be mutated after they are handed to a registry.
type Message struct {
	Name        string     `json:"name"`         // "MsgBid"
	FullName    string     `json:"full_name"`    // "auction.v1.MsgBid", set by the registry
	Fields      []*Field   `json:"fields"`       // regular fields
	NestedTypes []*Message `json:"nested_types"` // nested messages
	NestedEnums []*Enum    `json:"nested_enums"` // nested enums
	OneofGroups []*Oneof   `json:"oneof_groups"` // oneof groups and their member fields
	MapEntry    bool       `json:"map_entry"`    // synthetic map entry type

	once  sync.Once
	index *messageIndex
}

// Field represents a message field
type Field struct {
	Name         string     `json:"name"`          // "bidder"
	Number       int32      `json:"number"`        // 1
	Label        FieldLabel `json:"label"`         // optional, required, repeated, packed
	Type         FieldType  `json:"type"`          // field type information
	DefaultValue string     `json:"default_value"` // default value (proto2)
	JsonName     string     `json:"json_name"`     // JSON field name, lowerCamel of Name when empty
}

// Oneof represents a oneof group
type Oneof struct {
	Name   string   `json:"name"`   // "sum"
	Fields []*Field `json:"fields"` // fields in this oneof
}

// FieldLabel represents field labels
type FieldLabel string

const (
	LabelOptional FieldLabel = "optional"
	LabelRequired FieldLabel = "required"
	LabelRepeated FieldLabel = "repeated" // one tag per element
	LabelPacked   FieldLabel = "packed"   // repeated, encoded as a single length-delimited blob
)

// IsRepeated reports whether the field holds a list.
func (f *Field) IsRepeated() bool {
	return f.Label == LabelRepeated || f.Label == LabelPacked
}

// IsPacked reports whether the field is written in packed form.
func (f *Field) IsPacked() bool {
	return f.Label == LabelPacked
}

// IsMap reports whether the field is a map field.
func (f *Field) IsMap() bool {
	return f.Type.Kind == KindMap
}

// Packable reports whether a repeated field of this type may use packed encoding.
func (f *Field) Packable() bool {
	switch f.Type.Kind {
	case KindEnum:
		return true
	case KindPrimitive:
		return IsPackedType(f.Type.PrimitiveType)
	}
	return false
}

// FieldType represents field type information
type FieldType struct {
	Kind          TypeKind      `json:"kind"`                     // primitive, message, enum, map
	PrimitiveType PrimitiveType `json:"primitive_type,omitempty"` // for primitive types
	MessageType   string        `json:"message_type,omitempty"`   // for message types: "cosmos.base.v1beta1.Coin"
	EnumType      string        `json:"enum_type,omitempty"`      // for enum types
	MapKey        *FieldType    `json:"map_key,omitempty"`        // for map key type
	MapValue      *FieldType    `json:"map_value,omitempty"`      // for map value type
}

// TypeKind represents the kind of field type
type TypeKind string

const (
	KindPrimitive TypeKind = "primitive"
	KindMessage   TypeKind = "message"
	KindEnum      TypeKind = "enum"
	KindMap       TypeKind = "map"
)

// PrimitiveType represents protobuf primitive types
type PrimitiveType string

const (
	TypeDouble   PrimitiveType = "double"
	TypeFloat    PrimitiveType = "float"
	TypeInt64    PrimitiveType = "int64"
	TypeUint64   PrimitiveType = "uint64"
	TypeInt32    PrimitiveType = "int32"
	TypeFixed64  PrimitiveType = "fixed64"
	TypeFixed32  PrimitiveType = "fixed32"
	TypeBool     PrimitiveType = "bool"
	TypeString   PrimitiveType = "string"
	TypeBytes    PrimitiveType = "bytes"
	TypeUint32   PrimitiveType = "uint32"
	TypeSfixed32 PrimitiveType = "sfixed32"
	TypeSfixed64 PrimitiveType = "sfixed64"
	TypeSint32   PrimitiveType = "sint32"
	TypeSint64   PrimitiveType = "sint64"
)

var packedEligible = map[PrimitiveType]struct{}{
	TypeDouble:   {},
	TypeFloat:    {},
	TypeInt64:    {},
	TypeUint64:   {},
	TypeInt32:    {},
	TypeFixed64:  {},
	TypeFixed32:  {},
	TypeBool:     {},
	TypeUint32:   {},
	TypeSfixed32: {},
	TypeSfixed64: {},
	TypeSint32:   {},
	TypeSint64:   {},
}

// IsPackedType checks and returns if the Primitive type is packed for repeated label
func IsPackedType(t PrimitiveType) bool {
	_, ok := packedEligible[t]
	return ok
}

// Is64Bit reports whether values of t are 64-bit integers.
func Is64Bit(t PrimitiveType) bool {
	switch t {
	case TypeInt64, TypeUint64, TypeSint64, TypeFixed64, TypeSfixed64:
		return true
	}
	return false
}

// IsValidMapKey reports whether t may be used as a map key.
func IsValidMapKey(ft *FieldType) bool {
	if ft == nil || ft.Kind != KindPrimitive {
		return false
	}
	switch ft.PrimitiveType {
	case TypeDouble, TypeFloat, TypeBytes:
		return false
	}
	return true
}

var primitiveNames = map[string]PrimitiveType{
	"double":   TypeDouble,
	"float":    TypeFloat,
	"int64":    TypeInt64,
	"uint64":   TypeUint64,
	"int32":    TypeInt32,
	"fixed64":  TypeFixed64,
	"fixed32":  TypeFixed32,
	"bool":     TypeBool,
	"string":   TypeString,
	"bytes":    TypeBytes,
	"uint32":   TypeUint32,
	"sfixed32": TypeSfixed32,
	"sfixed64": TypeSfixed64,
	"sint32":   TypeSint32,
	"sint64":   TypeSint64,
}

// LookupPrimitive maps a .proto scalar keyword to its PrimitiveType.
func LookupPrimitive(name string) (PrimitiveType, bool) {
	t, ok := primitiveNames[name]
	return t, ok
}

// Enum represents an enum definition
type Enum struct {
	Name       string       `json:"name"`        // "BidStatus"
	FullName   string       `json:"full_name"`   // set by the registry
	Values     []*EnumValue `json:"values"`      // enum values, first one is the default
	AllowAlias bool         `json:"allow_alias"` // allow_alias option
}

// EnumValue represents an enum value
type EnumValue struct {
	Name   string `json:"name"`   // "BID_STATUS_OPEN"
	Number int32  `json:"number"` // 1
}

// ValueByName returns the value declared with the given name.
func (e *Enum) ValueByName(name string) (*EnumValue, bool) {
	for _, v := range e.Values {
		if v.Name == name {
			return v, true
		}
	}
	return nil, false
}

// ValueByNumber returns the first value declared with the given number.
func (e *Enum) ValueByNumber(n int32) (*EnumValue, bool) {
	for _, v := range e.Values {
		if v.Number == n {
			return v, true
		}
	}
	return nil, false
}

// Default returns the number of the first declared value, or 0 for an empty enum.
func (e *Enum) Default() int32 {
	if len(e.Values) == 0 {
		return 0
	}
	return e.Values[0].Number
}

// Service represents a service definition
type Service struct {
	Name    string    `json:"name"`    // "Msg"
	Methods []*Method `json:"methods"` // service methods
}

// Method represents a service method
type Method struct {
	Name            string `json:"name"`             // "Bid"
	InputType       string `json:"input_type"`       // "MsgBid"
	OutputType      string `json:"output_type"`      // "MsgBidResponse"
	ClientStreaming bool   `json:"client_streaming"` // stream input
	ServerStreaming bool   `json:"server_streaming"` // stream output
}
