package message

import (
	"fmt"
	"math"
	"reflect"
	"strings"

	"github.com/anirudhraja/protocodec/schema"
)

// normalize converts v to the canonical representation of field f: a single
// value for singular fields, []interface{} for repeated fields and
// map[interface{}]interface{} for map fields.
func normalize(f *schema.Field, v interface{}, r Resolver) (interface{}, error) {
	switch {
	case f.IsMap():
		return normalizeMap(&f.Type, v, r)
	case f.IsRepeated():
		return normalizeList(&f.Type, v, r)
	default:
		return checkSingular(&f.Type, v, r)
	}
}

func normalizeList(ft *schema.FieldType, v interface{}, r Resolver) (interface{}, error) {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, fmt.Errorf("%w: repeated field needs a slice, got %T", ErrTypeMismatch, v)
	}
	out := make([]interface{}, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		ev, err := checkSingular(ft, rv.Index(i).Interface(), r)
		if err != nil {
			return nil, fmt.Errorf("[%d]: %w", i, err)
		}
		out[i] = ev
	}
	return out, nil
}

func normalizeMap(ft *schema.FieldType, v interface{}, r Resolver) (interface{}, error) {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Map {
		return nil, fmt.Errorf("%w: map field needs a map, got %T", ErrTypeMismatch, v)
	}
	out := make(map[interface{}]interface{}, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		k, err := checkSingular(ft.MapKey, iter.Key().Interface(), r)
		if err != nil {
			return nil, fmt.Errorf("key: %w", err)
		}
		val, err := checkSingular(ft.MapValue, iter.Value().Interface(), r)
		if err != nil {
			return nil, fmt.Errorf("[%v]: %w", k, err)
		}
		out[k] = val
	}
	return out, nil
}

// checkSingular validates one value against a non-repeated field type and
// returns it in canonical form. Plain int is accepted for every integer kind
// when it is in range.
func checkSingular(ft *schema.FieldType, v interface{}, r Resolver) (interface{}, error) {
	switch ft.Kind {
	case schema.KindEnum:
		return toInt32(v)
	case schema.KindMessage:
		return checkMessage(ft, v, r)
	case schema.KindPrimitive:
		return checkPrimitive(ft.PrimitiveType, v)
	}
	return nil, fmt.Errorf("%w: cannot hold a %s value directly", ErrTypeMismatch, ft.Kind)
}

func checkMessage(ft *schema.FieldType, v interface{}, r Resolver) (interface{}, error) {
	sub, ok := v.(*Message)
	if !ok || sub == nil {
		return nil, fmt.Errorf("%w: expected *message.Message, got %T", ErrTypeMismatch, v)
	}
	if r != nil {
		want, err := r.GetMessage(ft.MessageType)
		if err != nil {
			return nil, err
		}
		if sub.desc != want {
			return nil, fmt.Errorf("%w: expected %s, got %s", ErrTypeMismatch, want.TypeName(), sub.desc.TypeName())
		}
		return sub, nil
	}
	if !sameTypeName(ft.MessageType, sub.desc.TypeName()) {
		return nil, fmt.Errorf("%w: expected %s, got %s", ErrTypeMismatch, ft.MessageType, sub.desc.TypeName())
	}
	return sub, nil
}

func sameTypeName(ref, name string) bool {
	ref = strings.TrimPrefix(ref, ".")
	return ref == name || strings.HasSuffix(ref, "."+name) || strings.HasSuffix(name, "."+ref)
}

func checkPrimitive(t schema.PrimitiveType, v interface{}) (interface{}, error) {
	switch t {
	case schema.TypeInt32, schema.TypeSint32, schema.TypeSfixed32:
		return toInt32(v)
	case schema.TypeInt64, schema.TypeSint64, schema.TypeSfixed64:
		switch x := v.(type) {
		case int64:
			return x, nil
		case int32:
			return int64(x), nil
		case int:
			return int64(x), nil
		}
	case schema.TypeUint32, schema.TypeFixed32:
		switch x := v.(type) {
		case uint32:
			return x, nil
		case int:
			if x >= 0 && uint64(x) <= math.MaxUint32 {
				return uint32(x), nil
			}
		}
	case schema.TypeUint64, schema.TypeFixed64:
		switch x := v.(type) {
		case uint64:
			return x, nil
		case uint32:
			return uint64(x), nil
		case int:
			if x >= 0 {
				return uint64(x), nil
			}
		}
	case schema.TypeFloat:
		switch x := v.(type) {
		case float32:
			return x, nil
		case float64:
			return float32(x), nil
		}
	case schema.TypeDouble:
		switch x := v.(type) {
		case float64:
			return x, nil
		case float32:
			return float64(x), nil
		}
	case schema.TypeBool:
		if x, ok := v.(bool); ok {
			return x, nil
		}
	case schema.TypeString:
		if x, ok := v.(string); ok {
			return x, nil
		}
	case schema.TypeBytes:
		if x, ok := v.([]byte); ok {
			return x, nil
		}
	}
	return nil, fmt.Errorf("%w: %T cannot hold a %s value", ErrTypeMismatch, v, t)
}

func toInt32(v interface{}) (interface{}, error) {
	switch x := v.(type) {
	case int32:
		return x, nil
	case int:
		if x >= math.MinInt32 && x <= math.MaxInt32 {
			return int32(x), nil
		}
		return nil, fmt.Errorf("%w: %d overflows int32", ErrTypeMismatch, x)
	}
	return nil, fmt.Errorf("%w: expected int32, got %T", ErrTypeMismatch, v)
}
