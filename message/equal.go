package message

import (
	"bytes"
	"math"

	"github.com/anirudhraja/protocodec/schema"
)

// Equal reports whether two messages have the same type, the same present
// fields with equal values and the same unknown bytes. NaN equals NaN.
func (m *Message) Equal(o *Message) bool {
	if m == nil || o == nil {
		return m == o
	}
	if m.desc != o.desc && m.desc.TypeName() != o.desc.TypeName() {
		return false
	}
	if m.Len() != o.Len() || !bytes.Equal(m.unknown, o.unknown) {
		return false
	}
	equal := true
	m.Range(func(f *schema.Field, v interface{}) bool {
		ov, ok := o.GetField(f)
		if !ok || !valueEqual(v, ov) {
			equal = false
		}
		return equal
	})
	return equal
}

func valueEqual(a, b interface{}) bool {
	switch x := a.(type) {
	case float32:
		y, ok := b.(float32)
		return ok && (x == y || (isNaN32(x) && isNaN32(y)))
	case float64:
		y, ok := b.(float64)
		return ok && (x == y || (math.IsNaN(x) && math.IsNaN(y)))
	case []byte:
		y, ok := b.([]byte)
		return ok && bytes.Equal(x, y)
	case *Message:
		y, ok := b.(*Message)
		return ok && x.Equal(y)
	case []interface{}:
		y, ok := b.([]interface{})
		if !ok || len(x) != len(y) {
			return false
		}
		for i := range x {
			if !valueEqual(x[i], y[i]) {
				return false
			}
		}
		return true
	case map[interface{}]interface{}:
		y, ok := b.(map[interface{}]interface{})
		if !ok || len(x) != len(y) {
			return false
		}
		for k, xv := range x {
			yv, ok := y[k]
			if !ok || !valueEqual(xv, yv) {
				return false
			}
		}
		return true
	default:
		return a == b
	}
}

func isNaN32(f float32) bool { return f != f }
