// Package convert moves messages to and from plain Go objects and JSON, and
// verifies plain objects against a message type.
package convert

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"

	"github.com/anirudhraja/protocodec/message"
	"github.com/anirudhraja/protocodec/schema"
)

var base64Encodings = []*base64.Encoding{
	base64.StdEncoding,
	base64.RawStdEncoding,
	base64.URLEncoding,
	base64.RawURLEncoding,
}

func mismatch(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", message.ErrTypeMismatch, fmt.Sprintf(format, args...))
}

// FromObject builds a message of type desc from a plain object keyed by proto
// field name or JSON name. A *message.Message is returned unchanged.
//
// Fields are read in ascending field-number order, so when an object sets
// several members of one oneof the highest-numbered member wins. Nil values
// and unknown keys are ignored.
func FromObject(obj interface{}, desc *schema.Message, r message.Resolver) (*message.Message, error) {
	if m, ok := obj.(*message.Message); ok {
		return m, nil
	}
	src, ok := obj.(map[string]interface{})
	if !ok {
		return nil, mismatch("%s: object expected, got %T", desc.TypeName(), obj)
	}
	return fromObject(src, desc, r)
}

func fromObject(src map[string]interface{}, desc *schema.Message, r message.Resolver) (*message.Message, error) {
	m := message.New(desc, r)
	for _, f := range desc.OrderedFields() {
		v, ok := lookupField(src, f)
		if !ok || v == nil {
			continue
		}
		nv, err := fieldFromObject(f, v, r)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", f.Name, err)
		}
		if err := m.SetField(f, nv); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// lookupField finds f's value by proto name, then by JSON name.
func lookupField(src map[string]interface{}, f *schema.Field) (interface{}, bool) {
	if v, ok := src[f.Name]; ok {
		return v, true
	}
	v, ok := src[schema.JSONName(f)]
	return v, ok
}

func fieldFromObject(f *schema.Field, v interface{}, r message.Resolver) (interface{}, error) {
	switch {
	case f.IsMap():
		rv := reflect.ValueOf(v)
		if rv.Kind() != reflect.Map {
			return nil, mismatch("object expected, got %T", v)
		}
		out := make(map[interface{}]interface{}, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			k, err := mapKeyFromObject(f.Type.MapKey, iter.Key().Interface())
			if err != nil {
				return nil, err
			}
			ev := iter.Value().Interface()
			if ev == nil {
				return nil, mismatch("null value for key %v", k)
			}
			val, err := valueFromObject(f.Type.MapValue, ev, r)
			if err != nil {
				return nil, fmt.Errorf("[%v]: %w", k, err)
			}
			out[k] = val
		}
		return out, nil
	case f.IsRepeated():
		rv := reflect.ValueOf(v)
		if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
			return nil, mismatch("array expected, got %T", v)
		}
		out := make([]interface{}, rv.Len())
		for i := range out {
			ev := rv.Index(i).Interface()
			if ev == nil {
				return nil, mismatch("null element at %d", i)
			}
			val, err := valueFromObject(&f.Type, ev, r)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			out[i] = val
		}
		return out, nil
	}
	return valueFromObject(&f.Type, v, r)
}

func valueFromObject(ft *schema.FieldType, v interface{}, r message.Resolver) (interface{}, error) {
	switch ft.Kind {
	case schema.KindMessage:
		return messageFromObject(ft, v, r)
	case schema.KindEnum:
		return enumFromObject(ft, v, r)
	case schema.KindPrimitive:
		return primitiveFromObject(ft.PrimitiveType, v)
	}
	return nil, mismatch("unsupported field kind %s", ft.Kind)
}

func messageFromObject(ft *schema.FieldType, v interface{}, r message.Resolver) (interface{}, error) {
	desc, err := message.ResolveMessage(ft, r)
	if err != nil {
		return nil, err
	}
	if sub, ok := v.(*message.Message); ok {
		if sub.Descriptor() != desc {
			return nil, mismatch("expected %s, got %s", desc.TypeName(), sub.Descriptor().TypeName())
		}
		return sub, nil
	}
	v, err = wellKnownInput(desc.TypeName(), v)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", message.ErrTypeMismatch, err)
	}
	src, ok := v.(map[string]interface{})
	if !ok {
		return nil, mismatch("object expected, got %T", v)
	}
	return fromObject(src, desc, r)
}

// enumFromObject accepts a declared value name or any number that fits int32.
// Numbers need not be declared, matching open enum semantics.
func enumFromObject(ft *schema.FieldType, v interface{}, r message.Resolver) (interface{}, error) {
	if name, ok := v.(string); ok {
		e, err := message.ResolveEnum(ft, r)
		if err != nil {
			return nil, err
		}
		if ev, ok := e.ValueByName(name); ok {
			return ev.Number, nil
		}
		return nil, mismatch("unknown value %q for enum %s", name, e.FullName)
	}
	if !isGoNumber(v) {
		return nil, mismatch("enum value expected, got %T", v)
	}
	n, err := signed[int32](v)
	if err != nil {
		return nil, mismatch("enum value: %v", err)
	}
	return n, nil
}

func primitiveFromObject(t schema.PrimitiveType, v interface{}) (interface{}, error) {
	var (
		out interface{}
		err error
	)
	switch t {
	case schema.TypeInt32, schema.TypeSint32, schema.TypeSfixed32:
		out, err = signed[int32](v)
	case schema.TypeInt64, schema.TypeSint64, schema.TypeSfixed64:
		out, err = signed[int64](v)
	case schema.TypeUint32, schema.TypeFixed32:
		out, err = unsigned[uint32](v)
	case schema.TypeUint64, schema.TypeFixed64:
		out, err = unsigned[uint64](v)
	case schema.TypeFloat:
		var f float64
		f, err = coerceToFloat64(v)
		out = float32(f)
	case schema.TypeDouble:
		out, err = coerceToFloat64(v)
	case schema.TypeBool:
		switch x := v.(type) {
		case bool:
			out = x
		case string:
			out, err = strconv.ParseBool(x)
		default:
			err = fmt.Errorf("expected bool, got %T", v)
		}
	case schema.TypeString:
		switch x := v.(type) {
		case string:
			out = x
		case json.Number:
			out = x.String()
		default:
			err = fmt.Errorf("expected string, got %T", v)
		}
	case schema.TypeBytes:
		out, err = bytesFromObject(v)
	default:
		err = fmt.Errorf("unknown primitive type %s", t)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", message.ErrTypeMismatch, t, err)
	}
	return out, nil
}

// bytesFromObject accepts a []byte (copied), a base64 string in any of the
// standard alphabets, or an array of byte values.
func bytesFromObject(v interface{}) ([]byte, error) {
	switch x := v.(type) {
	case []byte:
		return append([]byte{}, x...), nil
	case string:
		for _, enc := range base64Encodings {
			if b, err := enc.DecodeString(x); err == nil {
				return b, nil
			}
		}
		return nil, fmt.Errorf("invalid base64 string")
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, fmt.Errorf("expected bytes, got %T", v)
	}
	out := make([]byte, rv.Len())
	for i := range out {
		b, err := unsigned[uint8](rv.Index(i).Interface())
		if err != nil {
			return nil, fmt.Errorf("byte %d: %w", i, err)
		}
		out[i] = b
	}
	return out, nil
}

// mapKeyFromObject parses a map key. Object keys arrive as strings; typed Go
// maps may carry native keys.
func mapKeyFromObject(ft *schema.FieldType, k interface{}) (interface{}, error) {
	if ft.PrimitiveType == schema.TypeBool {
		if s, ok := k.(string); ok {
			b, err := strconv.ParseBool(s)
			if err != nil {
				return nil, mismatch("boolean key expected, got %q", s)
			}
			return b, nil
		}
	}
	key, err := primitiveFromObject(ft.PrimitiveType, k)
	if err != nil {
		return nil, fmt.Errorf("key %v: %w", k, err)
	}
	return key, nil
}
