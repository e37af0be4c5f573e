package wire

import (
	"fmt"
	"sort"

	"github.com/anirudhraja/protocodec/message"
	"github.com/anirudhraja/protocodec/schema"
)

// Map entries are encoded as nested messages with the key in field 1 and the
// value in field 2.
const (
	mapKeyField   FieldNumber = 1
	mapValueField FieldNumber = 2
)

// MapDecoder handles map decoding operations
type MapDecoder struct {
	md *MessageDecoder
}

// MapEncoder handles map encoding operations
type MapEncoder struct {
	me *MessageEncoder
}

// NewMapDecoder creates a new map decoder
func NewMapDecoder(md *MessageDecoder) *MapDecoder {
	return &MapDecoder{md: md}
}

// NewMapEncoder creates a new map encoder
func NewMapEncoder(me *MessageEncoder) *MapEncoder {
	return &MapEncoder{me: me}
}

// DECODER METHODS

// DecodeMapEntry reads one length-delimited entry and stores it in m. A
// missing key or value takes its type's default; a repeated key overwrites.
func (mdec *MapDecoder) DecodeMapEntry(m *message.Message, field *schema.Field) error {
	raw, err := NewBytesDecoder(mdec.md.decoder).DecodeRawBytes()
	if err != nil {
		return err
	}

	keyType, valueType := field.Type.MapKey, field.Type.MapValue
	entry := &MessageDecoder{
		decoder:  NewDecoder(raw),
		resolver: mdec.md.resolver,
		cfg:      mdec.md.cfg,
		depth:    mdec.md.depth + 1,
	}
	if entry.depth > entry.cfg.maxDepth() {
		return ErrMaxDepthExceeded
	}

	var key, value interface{}
	for entry.decoder.More() {
		fieldNumber, wireType, err := entry.decoder.DecodeTag()
		if err != nil {
			return err
		}

		switch {
		case fieldNumber == mapKeyField && wireType == WireTypeOf(keyType):
			key, err = NewScalarDecoder(entry.decoder, entry.cfg).Decode(keyType)
			if err != nil {
				return fmt.Errorf("map key: %w", err)
			}
		case fieldNumber == mapValueField && wireType == WireTypeOf(valueType):
			var into *message.Message
			if cur, ok := value.(*message.Message); ok {
				into = cur
			}
			value, err = entry.decodeValue(m, valueType, into)
			if err != nil {
				return fmt.Errorf("map value: %w", err)
			}
		default:
			if err := entry.decoder.SkipField(wireType); err != nil {
				return err
			}
		}
	}

	if key == nil {
		key = message.Zero(keyType.PrimitiveType)
	}
	if value == nil {
		value, err = mdec.defaultValue(m, valueType)
		if err != nil {
			return err
		}
	}
	return m.PutMapEntry(field, key, value)
}

func (mdec *MapDecoder) defaultValue(m *message.Message, ft *schema.FieldType) (interface{}, error) {
	switch ft.Kind {
	case schema.KindMessage:
		return m.NewChild(ft)
	case schema.KindEnum:
		e, err := message.ResolveEnum(ft, mdec.md.resolver)
		if err != nil {
			return nil, err
		}
		return e.Default(), nil
	default:
		return message.Zero(ft.PrimitiveType), nil
	}
}

// ENCODER METHODS

// EncodeMap writes one tagged entry per key, in ascending key order.
func (menc *MapEncoder) EncodeMap(fieldNumber FieldNumber, ft *schema.FieldType, entries map[interface{}]interface{}) error {
	keys := make([]interface{}, 0, len(entries))
	for k := range entries {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return lessMapKey(keys[i], keys[j]) })

	for _, k := range keys {
		if err := menc.EncodeMapEntry(fieldNumber, ft, k, entries[k]); err != nil {
			return fmt.Errorf("map entry %v: %w", k, err)
		}
	}
	return nil
}

// EncodeMapEntry writes a single tagged entry.
func (menc *MapEncoder) EncodeMapEntry(fieldNumber FieldNumber, ft *schema.FieldType, key, value interface{}) error {
	entry := NewEncoder()

	entry.EncodeTag(mapKeyField, WireTypeOf(ft.MapKey))
	if err := NewScalarEncoder(entry, menc.me.cfg).Encode(ft.MapKey, key); err != nil {
		return err
	}

	entry.EncodeTag(mapValueField, WireTypeOf(ft.MapValue))
	nested := &MessageEncoder{encoder: entry, cfg: menc.me.cfg, depth: menc.me.depth + 1}
	if err := nested.encodeValue(entry, ft.MapValue, value); err != nil {
		return err
	}

	menc.me.encoder.EncodeTag(fieldNumber, WireBytes)
	menc.me.encoder.EncodeBytes(entry.Bytes())
	return nil
}

// lessMapKey orders canonical map keys of the same type.
func lessMapKey(a, b interface{}) bool {
	switch x := a.(type) {
	case string:
		if y, ok := b.(string); ok {
			return x < y
		}
	case int32:
		if y, ok := b.(int32); ok {
			return x < y
		}
	case int64:
		if y, ok := b.(int64); ok {
			return x < y
		}
	case uint32:
		if y, ok := b.(uint32); ok {
			return x < y
		}
	case uint64:
		if y, ok := b.(uint64); ok {
			return x < y
		}
	case bool:
		if y, ok := b.(bool); ok {
			return !x && y
		}
	}
	return fmt.Sprint(a) < fmt.Sprint(b)
}
