// Package message holds the dynamic message instance that the codec and the
// plain-object converter operate on.
package message

import (
	"errors"
	"fmt"

	"github.com/anirudhraja/protocodec/schema"
)

var (
	// ErrTypeMismatch indicates a value whose Go type does not fit the field kind.
	ErrTypeMismatch = errors.New("protocodec: type mismatch")

	// ErrUnknownField indicates a field name the descriptor does not declare.
	ErrUnknownField = errors.New("protocodec: unknown field")
)

// Resolver looks up the descriptors that message- and enum-typed fields refer to.
// *registry.Registry implements it.
type Resolver interface {
	GetMessage(name string) (*schema.Message, error)
	GetEnum(name string) (*schema.Enum, error)
}

// oneofValue is the single active variant of a oneof group.
type oneofValue struct {
	field *schema.Field
	value interface{}
}

// Message is a dynamic instance of a schema.Message. Absent fields are not
// stored; Get resolves their defaults from the descriptor at read time.
//
// A Message is owned by its creator and is not safe for concurrent mutation.
type Message struct {
	desc     *schema.Message
	resolver Resolver
	fields   map[int32]interface{}
	oneofs   map[string]oneofValue
	unknown  []byte
}

// New creates an empty message of the given type.
func New(desc *schema.Message, r Resolver) *Message {
	return &Message{
		desc:     desc,
		resolver: r,
		fields:   make(map[int32]interface{}),
		oneofs:   make(map[string]oneofValue),
	}
}

// Descriptor returns the message's type.
func (m *Message) Descriptor() *schema.Message { return m.desc }

// Resolver returns the resolver the message was created with.
func (m *Message) Resolver() Resolver { return m.resolver }

func (m *Message) lookup(name string) (*schema.Field, error) {
	f := m.desc.FieldByName(name)
	if f == nil {
		return nil, fmt.Errorf("%w: %s.%s", ErrUnknownField, m.desc.TypeName(), name)
	}
	return f, nil
}

// Has reports whether the named field holds a value.
func (m *Message) Has(name string) bool {
	f := m.desc.FieldByName(name)
	if f == nil {
		return false
	}
	_, ok := m.GetField(f)
	return ok
}

// Get returns the named field's value, or its default when absent. It returns
// nil for names the descriptor does not declare.
func (m *Message) Get(name string) interface{} {
	f := m.desc.FieldByName(name)
	if f == nil {
		return nil
	}
	if v, ok := m.GetField(f); ok {
		return v
	}
	return Default(f, m.resolver)
}

// GetField returns the stored value of f and whether it is present.
func (m *Message) GetField(f *schema.Field) (interface{}, bool) {
	if o := m.desc.OneofOf(f); o != nil {
		active, ok := m.oneofs[o.Name]
		if !ok || active.field.Number != f.Number {
			return nil, false
		}
		return active.value, true
	}
	v, ok := m.fields[f.Number]
	return v, ok
}

// Set assigns the named field. Setting a oneof member replaces whichever
// member of the group was set before.
func (m *Message) Set(name string, v interface{}) error {
	f, err := m.lookup(name)
	if err != nil {
		return err
	}
	return m.SetField(f, v)
}

// SetField assigns f after checking v against the field kind. Repeated fields
// take a slice, map fields a map; typed slices and maps are normalized.
// A nil value, an empty slice or an empty map clears the field, since none
// of them has a wire form.
func (m *Message) SetField(f *schema.Field, v interface{}) error {
	if v == nil {
		m.ClearField(f)
		return nil
	}
	nv, err := normalize(f, v, m.resolver)
	if err != nil {
		return fmt.Errorf("%s.%s: %w", m.desc.TypeName(), f.Name, err)
	}
	switch x := nv.(type) {
	case []interface{}:
		if len(x) == 0 {
			m.ClearField(f)
			return nil
		}
	case map[interface{}]interface{}:
		if len(x) == 0 {
			m.ClearField(f)
			return nil
		}
	}
	m.store(f, nv)
	return nil
}

// store assigns a value already in canonical form.
func (m *Message) store(f *schema.Field, v interface{}) {
	if o := m.desc.OneofOf(f); o != nil {
		m.oneofs[o.Name] = oneofValue{field: f, value: v}
		return
	}
	m.fields[f.Number] = v
}

// Append adds one element to a repeated field.
func (m *Message) Append(name string, v interface{}) error {
	f, err := m.lookup(name)
	if err != nil {
		return err
	}
	return m.AppendField(f, v)
}

// AppendField adds one element to the repeated field f.
func (m *Message) AppendField(f *schema.Field, v interface{}) error {
	if !f.IsRepeated() {
		return fmt.Errorf("%w: %s.%s is not repeated", ErrTypeMismatch, m.desc.TypeName(), f.Name)
	}
	ev, err := checkSingular(&f.Type, v, m.resolver)
	if err != nil {
		return fmt.Errorf("%s.%s: %w", m.desc.TypeName(), f.Name, err)
	}
	m.appendCanonical(f, ev)
	return nil
}

func (m *Message) appendCanonical(f *schema.Field, v interface{}) {
	list, _ := m.fields[f.Number].([]interface{})
	m.fields[f.Number] = append(list, v)
}

// PutMapEntry stores one key/value pair in the map field f.
func (m *Message) PutMapEntry(f *schema.Field, key, value interface{}) error {
	if !f.IsMap() {
		return fmt.Errorf("%w: %s.%s is not a map", ErrTypeMismatch, m.desc.TypeName(), f.Name)
	}
	k, err := checkSingular(f.Type.MapKey, key, m.resolver)
	if err != nil {
		return fmt.Errorf("%s.%s key: %w", m.desc.TypeName(), f.Name, err)
	}
	v, err := checkSingular(f.Type.MapValue, value, m.resolver)
	if err != nil {
		return fmt.Errorf("%s.%s value: %w", m.desc.TypeName(), f.Name, err)
	}
	entries, _ := m.fields[f.Number].(map[interface{}]interface{})
	if entries == nil {
		entries = make(map[interface{}]interface{})
		m.fields[f.Number] = entries
	}
	entries[k] = v
	return nil
}

// Clear removes the named field.
func (m *Message) Clear(name string) {
	if f := m.desc.FieldByName(name); f != nil {
		m.ClearField(f)
	}
}

// ClearField removes f. Clearing a oneof member that is not active is a no-op.
func (m *Message) ClearField(f *schema.Field) {
	if o := m.desc.OneofOf(f); o != nil {
		if active, ok := m.oneofs[o.Name]; ok && active.field.Number == f.Number {
			delete(m.oneofs, o.Name)
		}
		return
	}
	delete(m.fields, f.Number)
}

// WhichOneof returns the active member of the named group, or nil.
func (m *Message) WhichOneof(group string) *schema.Field {
	active, ok := m.oneofs[group]
	if !ok {
		return nil
	}
	return active.field
}

// Range calls fn for each present field in ascending field-number order until
// fn returns false.
func (m *Message) Range(fn func(f *schema.Field, v interface{}) bool) {
	for _, f := range m.desc.OrderedFields() {
		v, ok := m.GetField(f)
		if !ok {
			continue
		}
		if !fn(f, v) {
			return
		}
	}
}

// Len returns the number of present fields.
func (m *Message) Len() int {
	return len(m.fields) + len(m.oneofs)
}

// Unknown returns the raw bytes of fields the schema did not recognize.
func (m *Message) Unknown() []byte { return m.unknown }

// SetUnknown replaces the preserved unknown-field bytes.
func (m *Message) SetUnknown(b []byte) { m.unknown = b }

// AppendUnknown adds raw field bytes to the preserved unknown set.
func (m *Message) AppendUnknown(b []byte) { m.unknown = append(m.unknown, b...) }

// NewChild creates an empty message of the type referenced by a message-typed
// field (or map value).
func (m *Message) NewChild(ft *schema.FieldType) (*Message, error) {
	desc, err := ResolveMessage(ft, m.resolver)
	if err != nil {
		return nil, err
	}
	return New(desc, m.resolver), nil
}

// ResolveMessage returns the descriptor of a message-typed field type.
func ResolveMessage(ft *schema.FieldType, r Resolver) (*schema.Message, error) {
	if ft.Kind != schema.KindMessage {
		return nil, fmt.Errorf("%w: %s is not a message type", ErrTypeMismatch, ft.Kind)
	}
	if r == nil {
		return nil, fmt.Errorf("resolver is required to resolve message type %s", ft.MessageType)
	}
	return r.GetMessage(ft.MessageType)
}

// ResolveEnum returns the descriptor of an enum-typed field type.
func ResolveEnum(ft *schema.FieldType, r Resolver) (*schema.Enum, error) {
	if r == nil {
		return nil, fmt.Errorf("resolver is required to resolve enum type %s", ft.EnumType)
	}
	return r.GetEnum(ft.EnumType)
}
