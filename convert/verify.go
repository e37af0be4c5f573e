package convert

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"

	"github.com/anirudhraja/protocodec/message"
	"github.com/anirudhraja/protocodec/schema"
)

// VerifyError describes the first structural problem Verify found. Its
// message has the form "<fieldPath>: <expected> expected".
type VerifyError struct {
	Path   string
	Reason string
}

func (e *VerifyError) Error() string {
	if e.Path == "" {
		return e.Reason
	}
	return e.Path + ": " + e.Reason
}

// Unwrap makes every verification failure match message.ErrTypeMismatch.
func (e *VerifyError) Unwrap() error { return message.ErrTypeMismatch }

func (e *VerifyError) under(name string) *VerifyError {
	if e.Path == "" {
		e.Path = name
	} else {
		e.Path = name + "." + e.Path
	}
	return e
}

func expected(path, label string) *VerifyError {
	return &VerifyError{Path: path, Reason: label + " expected"}
}

// Verify checks obj against the message type desc. Every object it accepts
// converts with FromObject; it is stricter than FromObject about 32-bit
// integers and strings given in the other's form. It returns nil or a
// *VerifyError and never modifies obj.
//
// Absent keys and nil values are skipped alike, except for required fields.
// Keys the descriptor does not declare are ignored.
func Verify(obj interface{}, desc *schema.Message, r message.Resolver) error {
	if m, ok := obj.(*message.Message); ok {
		obj = ToObject(m, ToObjectOptions{})
	}
	src, ok := obj.(map[string]interface{})
	if !ok {
		return &VerifyError{Reason: "object expected"}
	}
	if err := verifyMessage(src, desc, r); err != nil {
		return err
	}
	return nil
}

func verifyMessage(src map[string]interface{}, desc *schema.Message, r message.Resolver) *VerifyError {
	active := make(map[string]struct{})
	for _, f := range desc.OrderedFields() {
		v, ok := lookupField(src, f)
		if !ok || v == nil {
			if f.Label == schema.LabelRequired {
				return &VerifyError{Reason: fmt.Sprintf("missing required '%s'", f.Name)}
			}
			continue
		}
		if o := desc.OneofOf(f); o != nil {
			if _, dup := active[o.Name]; dup {
				return &VerifyError{Path: o.Name, Reason: "multiple values"}
			}
			active[o.Name] = struct{}{}
		}
		if err := verifyField(f, v, r); err != nil {
			return err
		}
	}
	return nil
}

func verifyField(f *schema.Field, v interface{}, r message.Resolver) *VerifyError {
	switch {
	case f.IsMap():
		rv := reflect.ValueOf(v)
		if rv.Kind() != reflect.Map {
			return expected(f.Name, "object")
		}
		keys := rv.MapKeys()
		sort.Slice(keys, func(i, j int) bool {
			return fmt.Sprint(keys[i].Interface()) < fmt.Sprint(keys[j].Interface())
		})
		keyType := string(f.Type.MapKey.PrimitiveType)
		for _, k := range keys {
			if label, ok := verifyMapKey(f.Type.MapKey, k.Interface()); !ok {
				return expected(f.Name, label)
			}
			label, nested := verifyValue(f.Type.MapValue, rv.MapIndex(k).Interface(), r)
			if nested != nil {
				return nested.under(f.Name)
			}
			if label != "" {
				return expected(f.Name, label+"{k:"+keyType+"}")
			}
		}
		return nil
	case f.IsRepeated():
		rv := reflect.ValueOf(v)
		if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
			return expected(f.Name, "array")
		}
		for i := 0; i < rv.Len(); i++ {
			label, nested := verifyValue(&f.Type, rv.Index(i).Interface(), r)
			if nested != nil {
				return nested.under(f.Name)
			}
			if label != "" {
				return expected(f.Name, label+"[]")
			}
		}
		return nil
	}
	label, nested := verifyValue(&f.Type, v, r)
	if nested != nil {
		return nested.under(f.Name)
	}
	if label != "" {
		return expected(f.Name, label)
	}
	return nil
}

// verifyValue checks one element. It returns the expected-type label when v
// does not fit, or the error found inside a nested message.
func verifyValue(ft *schema.FieldType, v interface{}, r message.Resolver) (string, *VerifyError) {
	switch ft.Kind {
	case schema.KindMessage:
		desc, err := message.ResolveMessage(ft, r)
		if err != nil {
			return "object", nil
		}
		if sub, ok := v.(*message.Message); ok {
			if sub.Descriptor() != desc {
				return "object", nil
			}
			return "", verifyMessage(ToObject(sub, ToObjectOptions{}), desc, r)
		}
		obj, err := wellKnownInput(desc.TypeName(), v)
		if err != nil {
			return "object", nil
		}
		src, ok := obj.(map[string]interface{})
		if !ok {
			return "object", nil
		}
		return "", verifyMessage(src, desc, r)
	case schema.KindEnum:
		if !validEnum(ft, v, r) {
			return "enum value", nil
		}
		return "", nil
	}
	if label, ok := verifyPrimitive(ft.PrimitiveType, v); !ok {
		return label, nil
	}
	return "", nil
}

func validEnum(ft *schema.FieldType, v interface{}, r message.Resolver) bool {
	e, err := message.ResolveEnum(ft, r)
	if name, ok := v.(string); ok {
		if err != nil {
			return false
		}
		_, ok := e.ValueByName(name)
		return ok
	}
	if !isGoNumber(v) {
		return false
	}
	n, cerr := signed[int32](v)
	if cerr != nil {
		return false
	}
	if err != nil {
		return true
	}
	_, ok := e.ValueByNumber(n)
	return ok
}

// verifyPrimitive reports whether v fits t, and otherwise the label naming
// what was expected.
func verifyPrimitive(t schema.PrimitiveType, v interface{}) (string, bool) {
	switch t {
	case schema.TypeInt32, schema.TypeSint32, schema.TypeSfixed32:
		_, err := signed[int32](v)
		return "integer", isGoNumber(v) && err == nil
	case schema.TypeUint32, schema.TypeFixed32:
		_, err := unsigned[uint32](v)
		return "integer", isGoNumber(v) && err == nil
	case schema.TypeInt64, schema.TypeSint64, schema.TypeSfixed64:
		_, err := signed[int64](v)
		return "integer|Long", isLongLike(v) && err == nil
	case schema.TypeUint64, schema.TypeFixed64:
		_, err := unsigned[uint64](v)
		return "integer|Long", isLongLike(v) && err == nil
	case schema.TypeFloat, schema.TypeDouble:
		if s, ok := v.(string); ok {
			return "number", s == "NaN" || s == "Infinity" || s == "-Infinity"
		}
		return "number", isGoNumber(v)
	case schema.TypeBool:
		_, ok := v.(bool)
		return "boolean", ok
	case schema.TypeString:
		_, ok := v.(string)
		return "string", ok
	case schema.TypeBytes:
		_, err := bytesFromObject(v)
		return "buffer", err == nil
	}
	return string(t), false
}

func isLongLike(v interface{}) bool {
	switch v.(type) {
	case string, map[string]interface{}:
		return true
	}
	return isGoNumber(v)
}

// verifyMapKey checks a map key, which plain objects carry as a string.
func verifyMapKey(ft *schema.FieldType, k interface{}) (string, bool) {
	switch ft.PrimitiveType {
	case schema.TypeString:
		_, ok := k.(string)
		return "string key", ok
	case schema.TypeBool:
		_, err := mapKeyFromObject(ft, k)
		return "boolean key", err == nil
	}
	label := "integer key"
	if schema.Is64Bit(ft.PrimitiveType) {
		label = "integer|Long key"
	}
	if _, ok := k.(json.Number); !ok && !isGoInteger(k) {
		if _, ok := k.(string); !ok {
			return label, false
		}
	}
	_, err := mapKeyFromObject(ft, k)
	return label, err == nil
}
