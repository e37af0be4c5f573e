package wire

import (
	"github.com/anirudhraja/protocodec/message"
	"github.com/anirudhraja/protocodec/schema"
)

// MessageDecoder handles message decoding operations
type MessageDecoder struct {
	decoder  *Decoder
	resolver message.Resolver
	cfg      Config
	depth    int
}

// MessageEncoder handles message encoding operations
type MessageEncoder struct {
	encoder *Encoder
	cfg     Config
	depth   int
}

// NewMessageDecoder creates a new message decoder
func NewMessageDecoder(d *Decoder, r message.Resolver, cfg Config) *MessageDecoder {
	return &MessageDecoder{decoder: d, resolver: r, cfg: cfg}
}

// NewMessageEncoder creates a new message encoder
func NewMessageEncoder(e *Encoder, cfg Config) *MessageEncoder {
	return &MessageEncoder{encoder: e, cfg: cfg}
}

// DecodeMessage decodes data as a message of type desc. On any error no
// message is returned.
func DecodeMessage(data []byte, desc *schema.Message, r message.Resolver, cfg Config) (*message.Message, error) {
	m := message.New(desc, r)
	if err := NewMessageDecoder(NewDecoder(data), r, cfg).DecodeInto(m); err != nil {
		return nil, err
	}
	return m, nil
}

// EncodeMessage encodes m into a fresh buffer.
func EncodeMessage(m *message.Message, cfg Config) ([]byte, error) {
	e := NewEncoder()
	if err := NewMessageEncoder(e, cfg).EncodeMessage(m); err != nil {
		return nil, err
	}
	return e.Bytes(), nil
}

// DECODER METHODS

// DecodeInto reads fields until the input is exhausted and merges them into m.
// Singular fields are overwritten, repeated fields appended and singular
// message fields merged.
func (md *MessageDecoder) DecodeInto(m *message.Message) error {
	if md.depth > md.cfg.maxDepth() {
		return ErrMaxDepthExceeded
	}

	desc := m.Descriptor()
	d := md.decoder
	for d.More() {
		start := d.pos
		fieldNumber, wireType, err := d.DecodeTag()
		if err != nil {
			return err
		}

		field := desc.FieldByNumber(int32(fieldNumber))
		if field == nil || !acceptsWireType(field, wireType) {
			if err := d.SkipField(wireType); err != nil {
				return err
			}
			if md.cfg.PreserveUnknownFields {
				m.AppendUnknown(d.buf[start:d.pos])
			}
			continue
		}

		if err := md.decodeField(m, field, wireType); err != nil {
			return wrapDecodingFieldError(err, field.Name)
		}
	}

	for _, field := range desc.RequiredFields() {
		if _, ok := m.GetField(field); !ok {
			return wrapDecodingFieldError(ErrRequiredFieldMissing, field.Name)
		}
	}
	return nil
}

// acceptsWireType reports whether a value of the given wire type belongs to
// field. Packable repeated fields take both the packed and unpacked forms.
func acceptsWireType(field *schema.Field, wireType WireType) bool {
	if field.IsMap() {
		return wireType == WireBytes
	}
	expected := WireTypeOf(&field.Type)
	if field.IsRepeated() && field.Packable() {
		return wireType == expected || wireType == WireBytes
	}
	return wireType == expected
}

func (md *MessageDecoder) decodeField(m *message.Message, field *schema.Field, wireType WireType) error {
	if field.IsMap() {
		return NewMapDecoder(md).DecodeMapEntry(m, field)
	}

	if field.IsRepeated() {
		if field.Packable() && wireType == WireBytes {
			elems, err := NewScalarDecoder(md.decoder, md.cfg).DecodePacked(&field.Type)
			if err != nil {
				return err
			}
			for _, v := range elems {
				if err := m.AppendField(field, v); err != nil {
					return err
				}
			}
			return nil
		}
		v, err := md.decodeValue(m, &field.Type, nil)
		if err != nil {
			return err
		}
		return m.AppendField(field, v)
	}

	var existing *message.Message
	if field.Type.Kind == schema.KindMessage {
		if cur, ok := m.GetField(field); ok {
			existing, _ = cur.(*message.Message)
		}
	}
	v, err := md.decodeValue(m, &field.Type, existing)
	if err != nil {
		return err
	}
	return m.SetField(field, v)
}

// decodeValue reads one singular value. For message types the payload is
// merged into into when it is non-nil.
func (md *MessageDecoder) decodeValue(parent *message.Message, ft *schema.FieldType, into *message.Message) (interface{}, error) {
	if ft.Kind != schema.KindMessage {
		return NewScalarDecoder(md.decoder, md.cfg).Decode(ft)
	}

	raw, err := NewBytesDecoder(md.decoder).DecodeRawBytes()
	if err != nil {
		return nil, err
	}
	if into == nil {
		into, err = parent.NewChild(ft)
		if err != nil {
			return nil, err
		}
	}
	nested := &MessageDecoder{
		decoder:  NewDecoder(raw),
		resolver: md.resolver,
		cfg:      md.cfg,
		depth:    md.depth + 1,
	}
	if err := nested.DecodeInto(into); err != nil {
		return nil, err
	}
	return into, nil
}

// ENCODER METHODS

// EncodeMessage writes the present fields of m in ascending field-number
// order, followed by any preserved unknown fields.
func (me *MessageEncoder) EncodeMessage(m *message.Message) error {
	if me.depth > me.cfg.maxDepth() {
		return ErrMaxDepthExceeded
	}

	var err error
	m.Range(func(field *schema.Field, value interface{}) bool {
		if err = me.encodeField(field, value); err != nil {
			err = wrapEncodingFieldError(err, field.Name)
			return false
		}
		return true
	})
	if err != nil {
		return err
	}

	me.encoder.WriteRaw(m.Unknown())
	return nil
}

func (me *MessageEncoder) encodeField(field *schema.Field, value interface{}) error {
	fieldNumber := FieldNumber(field.Number)

	if field.IsMap() {
		entries, ok := value.(map[interface{}]interface{})
		if !ok {
			return mismatch("map field value must be map[interface{}]interface{}, got %T", value)
		}
		return NewMapEncoder(me).EncodeMap(fieldNumber, &field.Type, entries)
	}

	if field.IsRepeated() {
		elems, ok := value.([]interface{})
		if !ok {
			return mismatch("repeated field value must be []interface{}, got %T", value)
		}
		if field.IsPacked() && field.Packable() {
			return NewScalarEncoder(me.encoder, me.cfg).EncodePacked(fieldNumber, &field.Type, elems)
		}
		for _, elem := range elems {
			me.encoder.EncodeTag(fieldNumber, WireTypeOf(&field.Type))
			if err := me.encodeValue(me.encoder, &field.Type, elem); err != nil {
				return err
			}
		}
		return nil
	}

	me.encoder.EncodeTag(fieldNumber, WireTypeOf(&field.Type))
	return me.encodeValue(me.encoder, &field.Type, value)
}

// encodeValue writes one singular value without its tag into e.
func (me *MessageEncoder) encodeValue(e *Encoder, ft *schema.FieldType, value interface{}) error {
	if ft.Kind != schema.KindMessage {
		return NewScalarEncoder(e, me.cfg).Encode(ft, value)
	}

	sub, ok := value.(*message.Message)
	if !ok || sub == nil {
		return mismatch("message value must be *message.Message, got %T", value)
	}
	nestedEncoder := NewEncoder()
	nested := &MessageEncoder{encoder: nestedEncoder, cfg: me.cfg, depth: me.depth + 1}
	if err := nested.EncodeMessage(sub); err != nil {
		return err
	}
	e.EncodeBytes(nestedEncoder.Bytes())
	return nil
}

// Convenience methods for direct access

// DecodeMessageInto - convenience method for main decoder
func (d *Decoder) DecodeMessageInto(m *message.Message, cfg Config) error {
	return NewMessageDecoder(d, m.Resolver(), cfg).DecodeInto(m)
}

// EncodeMessage - convenience method for main encoder
func (e *Encoder) EncodeMessage(m *message.Message, cfg Config) error {
	return NewMessageEncoder(e, cfg).EncodeMessage(m)
}
