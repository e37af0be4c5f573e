package message

import (
	"math"
	"strconv"
	"strings"

	"github.com/anirudhraja/protocodec/schema"
)

// Default returns the value an absent field reads as: an empty list or map
// for repeated and map fields, nil for message fields, the declared proto2
// default when present, the first declared value for enums and the zero
// value otherwise.
func Default(f *schema.Field, r Resolver) interface{} {
	switch {
	case f.IsMap():
		return map[interface{}]interface{}{}
	case f.IsRepeated():
		return []interface{}{}
	}
	switch f.Type.Kind {
	case schema.KindMessage:
		return nil
	case schema.KindEnum:
		return enumDefault(f, r)
	}
	if f.DefaultValue != "" {
		if v, ok := ParseDefault(f.Type.PrimitiveType, f.DefaultValue); ok {
			return v
		}
	}
	return Zero(f.Type.PrimitiveType)
}

func enumDefault(f *schema.Field, r Resolver) interface{} {
	if r == nil {
		return int32(0)
	}
	e, err := r.GetEnum(f.Type.EnumType)
	if err != nil {
		return int32(0)
	}
	if f.DefaultValue != "" {
		if ev, ok := e.ValueByName(f.DefaultValue); ok {
			return ev.Number
		}
	}
	return e.Default()
}

// Zero returns the canonical zero value of a primitive type.
func Zero(t schema.PrimitiveType) interface{} {
	switch t {
	case schema.TypeInt32, schema.TypeSint32, schema.TypeSfixed32:
		return int32(0)
	case schema.TypeInt64, schema.TypeSint64, schema.TypeSfixed64:
		return int64(0)
	case schema.TypeUint32, schema.TypeFixed32:
		return uint32(0)
	case schema.TypeUint64, schema.TypeFixed64:
		return uint64(0)
	case schema.TypeFloat:
		return float32(0)
	case schema.TypeDouble:
		return float64(0)
	case schema.TypeBool:
		return false
	case schema.TypeString:
		return ""
	case schema.TypeBytes:
		return []byte{}
	}
	return nil
}

// ParseDefault parses a proto2 [default = ...] literal for a primitive type.
func ParseDefault(t schema.PrimitiveType, raw string) (interface{}, bool) {
	switch t {
	case schema.TypeInt32, schema.TypeSint32, schema.TypeSfixed32:
		n, err := strconv.ParseInt(raw, 0, 32)
		return int32(n), err == nil
	case schema.TypeInt64, schema.TypeSint64, schema.TypeSfixed64:
		n, err := strconv.ParseInt(raw, 0, 64)
		return n, err == nil
	case schema.TypeUint32, schema.TypeFixed32:
		n, err := strconv.ParseUint(raw, 0, 32)
		return uint32(n), err == nil
	case schema.TypeUint64, schema.TypeFixed64:
		n, err := strconv.ParseUint(raw, 0, 64)
		return n, err == nil
	case schema.TypeFloat:
		f, ok := parseFloatLiteral(raw, 32)
		return float32(f), ok
	case schema.TypeDouble:
		return parseFloatLiteral(raw, 64)
	case schema.TypeBool:
		b, err := strconv.ParseBool(raw)
		return b, err == nil
	case schema.TypeString:
		return raw, true
	case schema.TypeBytes:
		return []byte(raw), true
	}
	return nil, false
}

func parseFloatLiteral(raw string, bits int) (float64, bool) {
	switch strings.ToLower(raw) {
	case "inf", "+inf":
		return math.Inf(1), true
	case "-inf":
		return math.Inf(-1), true
	case "nan":
		return math.NaN(), true
	}
	f, err := strconv.ParseFloat(raw, bits)
	return f, err == nil
}
