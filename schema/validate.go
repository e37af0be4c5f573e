package schema

import (
	"errors"
	"fmt"
)

// Field number limits from the protobuf language guide.
const (
	MinFieldNumber      = 1
	MaxFieldNumber      = 1<<29 - 1
	FirstReservedNumber = 19000
	LastReservedNumber  = 19999
)

const (
	errInvalidDescriptor   = "invalid descriptor"
	errReservedFieldNumber = "field number is in the reserved range 19000-19999"
)

// ErrInvalidSchema is wrapped by every ValidationError.
var ErrInvalidSchema = errors.New("protocodec: invalid schema")

// ValidationError reports a schema defect in a named type.
type ValidationError struct {
	Type   string // message or enum name
	Field  string // field or value name, empty for type-level problems
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: %s", e.Type, e.Reason)
	}
	return fmt.Sprintf("%s.%s: %s", e.Type, e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrInvalidSchema }

// ValidateFieldNumber checks the 1..2^29-1 range and the reserved block.
func ValidateFieldNumber(n int32) error {
	if n < MinFieldNumber || n > MaxFieldNumber {
		return fmt.Errorf("field number %d out of range [%d, %d]", n, MinFieldNumber, MaxFieldNumber)
	}
	if n >= FirstReservedNumber && n <= LastReservedNumber {
		return errors.New(errReservedFieldNumber)
	}
	return nil
}

// ValidateMessage checks a single message descriptor, not its nested types.
func ValidateMessage(m *Message) error {
	if m == nil {
		return &ValidationError{Type: "<nil>", Reason: errInvalidDescriptor}
	}
	name := m.TypeName()
	fail := func(field, format string, args ...interface{}) error {
		return &ValidationError{Type: name, Field: field, Reason: fmt.Sprintf(format, args...)}
	}

	numbers := make(map[int32]string)
	names := make(map[string]struct{})
	check := func(f *Field, inOneof bool) error {
		if f == nil {
			return fail("", "nil field")
		}
		if f.Name == "" {
			return fail(fmt.Sprint(f.Number), "field has no name")
		}
		if err := ValidateFieldNumber(f.Number); err != nil {
			return fail(f.Name, "%v", err)
		}
		if prev, ok := numbers[f.Number]; ok {
			return fail(f.Name, "field number %d already used by %q", f.Number, prev)
		}
		numbers[f.Number] = f.Name
		if _, ok := names[f.Name]; ok {
			return fail(f.Name, "duplicate field name")
		}
		names[f.Name] = struct{}{}

		switch f.Label {
		case "", LabelOptional, LabelRequired, LabelRepeated, LabelPacked:
		default:
			return fail(f.Name, "unknown label %q", f.Label)
		}
		if err := validateType(&f.Type); err != nil {
			return fail(f.Name, "%v", err)
		}
		if f.IsPacked() && !f.Packable() {
			return fail(f.Name, "packed is only valid for repeated scalar numeric and enum fields")
		}
		if f.IsMap() && f.IsRepeated() {
			return fail(f.Name, "map fields cannot be repeated")
		}
		if inOneof && (f.IsRepeated() || f.IsMap() || f.Label == LabelRequired) {
			return fail(f.Name, "oneof members must be singular")
		}
		return nil
	}

	for _, f := range m.Fields {
		if err := check(f, false); err != nil {
			return err
		}
	}
	groups := make(map[string]struct{})
	for _, o := range m.OneofGroups {
		if o.Name == "" {
			return fail("", "oneof group has no name")
		}
		if _, ok := groups[o.Name]; ok {
			return fail(o.Name, "duplicate oneof group")
		}
		groups[o.Name] = struct{}{}
		if len(o.Fields) == 0 {
			return fail(o.Name, "oneof group has no fields")
		}
		for _, f := range o.Fields {
			if err := check(f, true); err != nil {
				return err
			}
		}
	}
	return nil
}

func validateType(ft *FieldType) error {
	switch ft.Kind {
	case KindPrimitive:
		if _, ok := packedEligible[ft.PrimitiveType]; ok {
			return nil
		}
		if ft.PrimitiveType == TypeString || ft.PrimitiveType == TypeBytes {
			return nil
		}
		return fmt.Errorf("unknown primitive type %q", ft.PrimitiveType)
	case KindMessage:
		if ft.MessageType == "" {
			return errors.New("message field without message type")
		}
	case KindEnum:
		if ft.EnumType == "" {
			return errors.New("enum field without enum type")
		}
	case KindMap:
		if !IsValidMapKey(ft.MapKey) {
			return errors.New("map key must be an integral, bool or string type")
		}
		if ft.MapValue == nil {
			return errors.New("map field without value type")
		}
		if ft.MapValue.Kind == KindMap {
			return errors.New("map value cannot be a map")
		}
		return validateType(ft.MapValue)
	default:
		return fmt.Errorf("unknown type kind %q", ft.Kind)
	}
	return nil
}

// ValidateEnum checks value uniqueness and, when requireZeroFirst is set,
// that the first value is zero (proto3 rule).
func ValidateEnum(e *Enum, requireZeroFirst bool) error {
	if e == nil {
		return &ValidationError{Type: "<nil>", Reason: errInvalidDescriptor}
	}
	name := e.FullName
	if name == "" {
		name = e.Name
	}
	if len(e.Values) == 0 {
		return &ValidationError{Type: name, Reason: "enum has no values"}
	}
	if requireZeroFirst && e.Values[0].Number != 0 {
		return &ValidationError{Type: name, Field: e.Values[0].Name, Reason: "first enum value must be zero"}
	}
	seenNames := make(map[string]struct{})
	seenNumbers := make(map[int32]string)
	for _, v := range e.Values {
		if _, ok := seenNames[v.Name]; ok {
			return &ValidationError{Type: name, Field: v.Name, Reason: "duplicate enum value name"}
		}
		seenNames[v.Name] = struct{}{}
		if prev, ok := seenNumbers[v.Number]; ok && !e.AllowAlias {
			return &ValidationError{Type: name, Field: v.Name, Reason: fmt.Sprintf("number %d already used by %q (set allow_alias)", v.Number, prev)}
		}
		seenNumbers[v.Number] = v.Name
	}
	return nil
}
