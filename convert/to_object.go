package convert

import (
	"encoding/base64"
	"math"
	"strconv"

	"github.com/anirudhraja/protocodec/message"
	"github.com/anirudhraja/protocodec/schema"
)

// BytesFormat selects how bytes fields are rendered by ToObject.
type BytesFormat int

const (
	BytesNative BytesFormat = iota // []byte
	BytesBase64                    // standard base64 string
	BytesArray                     // []interface{} of byte values
)

// LongsFormat selects how 64-bit integer fields are rendered by ToObject.
type LongsFormat int

const (
	LongsNative LongsFormat = iota // int64 / uint64
	LongsString                    // decimal string
	LongsNumber                    // float64, lossy above 2^53
)

// EnumsFormat selects how enum fields are rendered by ToObject.
type EnumsFormat int

const (
	EnumsNumber EnumsFormat = iota
	EnumsString
)

// ToObjectOptions controls the plain form produced by ToObject.
type ToObjectOptions struct {
	// Defaults emits absent fields with their default values. Absent message
	// fields are emitted as nil; absent oneof members are never emitted.
	Defaults bool
	// Arrays emits empty lists for absent repeated fields.
	Arrays bool
	// Objects emits empty objects for absent map fields.
	Objects bool
	// Oneofs adds a key per set oneof group holding the active member's name.
	Oneofs bool
	// JSONNames keys fields by their JSON name instead of the proto name.
	JSONNames bool
	// JSON renders non-finite floats as strings and well-known types in their
	// protobuf JSON forms.
	JSON bool

	Bytes BytesFormat
	Longs LongsFormat
	Enums EnumsFormat
}

// ToObject converts m into a map keyed by field name. Map fields become
// map[string]interface{} with stringified keys and repeated fields become
// []interface{}.
func ToObject(m *message.Message, opts ToObjectOptions) map[string]interface{} {
	if m == nil {
		return nil
	}
	desc := m.Descriptor()
	r := m.Resolver()
	out := make(map[string]interface{}, m.Len())

	for _, f := range desc.OrderedFields() {
		key := f.Name
		if opts.JSONNames {
			key = schema.JSONName(f)
		}
		group := desc.OneofOf(f)

		v, ok := m.GetField(f)
		if !ok {
			if group != nil {
				continue
			}
			switch {
			case f.IsMap():
				if opts.Defaults || opts.Objects {
					out[key] = map[string]interface{}{}
				}
			case f.IsRepeated():
				if opts.Defaults || opts.Arrays {
					out[key] = []interface{}{}
				}
			case opts.Defaults:
				out[key] = convertValue(&f.Type, message.Default(f, r), r, opts)
			}
			continue
		}

		switch {
		case f.IsMap():
			entries, _ := v.(map[interface{}]interface{})
			obj := make(map[string]interface{}, len(entries))
			for k, ev := range entries {
				obj[mapKeyString(k)] = convertValue(f.Type.MapValue, ev, r, opts)
			}
			out[key] = obj
		case f.IsRepeated():
			list, _ := v.([]interface{})
			arr := make([]interface{}, len(list))
			for i, ev := range list {
				arr[i] = convertValue(&f.Type, ev, r, opts)
			}
			out[key] = arr
		default:
			out[key] = convertValue(&f.Type, v, r, opts)
		}

		if group != nil && opts.Oneofs {
			out[group.Name] = key
		}
	}
	return out
}

// convertValue renders one canonical value (never a list or map).
func convertValue(ft *schema.FieldType, v interface{}, r message.Resolver, opts ToObjectOptions) interface{} {
	switch ft.Kind {
	case schema.KindMessage:
		sub, _ := v.(*message.Message)
		if sub == nil {
			return nil
		}
		if opts.JSON {
			if wk, ok := wellKnownOutput(sub, opts); ok {
				return wk
			}
		}
		return ToObject(sub, opts)
	case schema.KindEnum:
		n, _ := v.(int32)
		if opts.Enums == EnumsString {
			if e, err := message.ResolveEnum(ft, r); err == nil {
				if ev, ok := e.ValueByNumber(n); ok {
					return ev.Name
				}
			}
		}
		return n
	}

	switch x := v.(type) {
	case int64:
		switch opts.Longs {
		case LongsString:
			return strconv.FormatInt(x, 10)
		case LongsNumber:
			return float64(x)
		}
	case uint64:
		switch opts.Longs {
		case LongsString:
			return strconv.FormatUint(x, 10)
		case LongsNumber:
			return float64(x)
		}
	case float32:
		if opts.JSON {
			if s, ok := nonFinite(float64(x)); ok {
				return s
			}
		}
	case float64:
		if opts.JSON {
			if s, ok := nonFinite(x); ok {
				return s
			}
		}
	case []byte:
		switch opts.Bytes {
		case BytesBase64:
			return base64.StdEncoding.EncodeToString(x)
		case BytesArray:
			arr := make([]interface{}, len(x))
			for i, b := range x {
				arr[i] = int(b)
			}
			return arr
		}
		return append([]byte{}, x...)
	}
	return v
}

func nonFinite(f float64) (string, bool) {
	switch {
	case math.IsNaN(f):
		return "NaN", true
	case math.IsInf(f, 1):
		return "Infinity", true
	case math.IsInf(f, -1):
		return "-Infinity", true
	}
	return "", false
}

func mapKeyString(k interface{}) string {
	switch x := k.(type) {
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case int32:
		return strconv.FormatInt(int64(x), 10)
	case int64:
		return strconv.FormatInt(x, 10)
	case uint32:
		return strconv.FormatUint(uint64(x), 10)
	case uint64:
		return strconv.FormatUint(x, 10)
	}
	return ""
}
