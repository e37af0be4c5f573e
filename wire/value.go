package wire

import (
	"unicode/utf8"

	"github.com/anirudhraja/protocodec/schema"
)

// ScalarDecoder reads the payload of one scalar or enum value.
type ScalarDecoder struct {
	decoder *Decoder
	cfg     Config
}

// ScalarEncoder writes the payload of one scalar or enum value.
type ScalarEncoder struct {
	encoder *Encoder
	cfg     Config
}

// NewScalarDecoder creates a new scalar decoder
func NewScalarDecoder(d *Decoder, cfg Config) *ScalarDecoder {
	return &ScalarDecoder{decoder: d, cfg: cfg}
}

// NewScalarEncoder creates a new scalar encoder
func NewScalarEncoder(e *Encoder, cfg Config) *ScalarEncoder {
	return &ScalarEncoder{encoder: e, cfg: cfg}
}

// DECODER METHODS

// Decode reads one value of ft and returns it in canonical form. The caller has
// already checked that the wire type matches WireTypeOf(ft).
func (sd *ScalarDecoder) Decode(ft *schema.FieldType) (interface{}, error) {
	if ft.Kind == schema.KindEnum {
		return NewVarintDecoder(sd.decoder).DecodeEnum()
	}
	if ft.Kind != schema.KindPrimitive {
		return nil, mismatch("%s is not a scalar type", ft.Kind)
	}

	vd := NewVarintDecoder(sd.decoder)
	fd := NewFixedDecoder(sd.decoder)
	switch ft.PrimitiveType {
	case schema.TypeInt32:
		return vd.DecodeInt32()
	case schema.TypeInt64:
		return vd.DecodeInt64()
	case schema.TypeUint32:
		return vd.DecodeUint32()
	case schema.TypeUint64:
		return vd.DecodeVarint()
	case schema.TypeSint32:
		return vd.DecodeSint32()
	case schema.TypeSint64:
		return vd.DecodeSint64()
	case schema.TypeBool:
		return vd.DecodeBool()
	case schema.TypeFixed32:
		return fd.DecodeFixed32()
	case schema.TypeSfixed32:
		return fd.DecodeSfixed32()
	case schema.TypeFloat:
		return fd.DecodeFloat32()
	case schema.TypeFixed64:
		return fd.DecodeFixed64()
	case schema.TypeSfixed64:
		return fd.DecodeSfixed64()
	case schema.TypeDouble:
		return fd.DecodeFloat64()
	case schema.TypeString:
		raw, err := NewBytesDecoder(sd.decoder).DecodeRawBytes()
		if err != nil {
			return nil, err
		}
		if sd.cfg.StrictUTF8 && !utf8.Valid(raw) {
			return nil, ErrInvalidUTF8
		}
		return string(raw), nil
	case schema.TypeBytes:
		return NewBytesDecoder(sd.decoder).DecodeBytes()
	default:
		return nil, mismatch("unsupported primitive type %s", ft.PrimitiveType)
	}
}

// DecodePacked reads a packed blob and returns its elements.
func (sd *ScalarDecoder) DecodePacked(ft *schema.FieldType) ([]interface{}, error) {
	raw, err := NewBytesDecoder(sd.decoder).DecodeRawBytes()
	if err != nil {
		return nil, err
	}
	inner := NewScalarDecoder(NewDecoder(raw), sd.cfg)
	var out []interface{}
	for inner.decoder.More() {
		v, err := inner.Decode(ft)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// ENCODER METHODS

// Encode writes the payload of v, which must be in the canonical form for ft.
func (se *ScalarEncoder) Encode(ft *schema.FieldType, v interface{}) error {
	if ft.Kind == schema.KindEnum {
		n, ok := v.(int32)
		if !ok {
			return mismatch("enum value must be int32, got %T", v)
		}
		NewVarintEncoder(se.encoder).EncodeEnum(n)
		return nil
	}
	if ft.Kind != schema.KindPrimitive {
		return mismatch("%s is not a scalar type", ft.Kind)
	}

	ve := NewVarintEncoder(se.encoder)
	fe := NewFixedEncoder(se.encoder)
	ok := true
	switch ft.PrimitiveType {
	case schema.TypeInt32:
		var x int32
		if x, ok = v.(int32); ok {
			ve.EncodeInt32(x)
		}
	case schema.TypeInt64:
		var x int64
		if x, ok = v.(int64); ok {
			ve.EncodeInt64(x)
		}
	case schema.TypeUint32:
		var x uint32
		if x, ok = v.(uint32); ok {
			ve.EncodeUint32(x)
		}
	case schema.TypeUint64:
		var x uint64
		if x, ok = v.(uint64); ok {
			ve.EncodeUint64(x)
		}
	case schema.TypeSint32:
		var x int32
		if x, ok = v.(int32); ok {
			ve.EncodeSint32(x)
		}
	case schema.TypeSint64:
		var x int64
		if x, ok = v.(int64); ok {
			ve.EncodeSint64(x)
		}
	case schema.TypeBool:
		var x bool
		if x, ok = v.(bool); ok {
			ve.EncodeBool(x)
		}
	case schema.TypeFixed32:
		var x uint32
		if x, ok = v.(uint32); ok {
			fe.EncodeFixed32(x)
		}
	case schema.TypeSfixed32:
		var x int32
		if x, ok = v.(int32); ok {
			fe.EncodeSfixed32(x)
		}
	case schema.TypeFloat:
		var x float32
		if x, ok = v.(float32); ok {
			fe.EncodeFloat32(x)
		}
	case schema.TypeFixed64:
		var x uint64
		if x, ok = v.(uint64); ok {
			fe.EncodeFixed64(x)
		}
	case schema.TypeSfixed64:
		var x int64
		if x, ok = v.(int64); ok {
			fe.EncodeSfixed64(x)
		}
	case schema.TypeDouble:
		var x float64
		if x, ok = v.(float64); ok {
			fe.EncodeFloat64(x)
		}
	case schema.TypeString:
		var x string
		if x, ok = v.(string); ok {
			if se.cfg.StrictUTF8 && !utf8.ValidString(x) {
				return ErrInvalidUTF8
			}
			NewBytesEncoder(se.encoder).EncodeString(x)
		}
	case schema.TypeBytes:
		var x []byte
		if x, ok = v.([]byte); ok {
			NewBytesEncoder(se.encoder).EncodeBytes(x)
		}
	default:
		return mismatch("unsupported primitive type %s", ft.PrimitiveType)
	}
	if !ok {
		return mismatch("%T cannot be encoded as %s", v, ft.PrimitiveType)
	}
	return nil
}

// EncodePacked writes elems as a single length-delimited blob under fieldNumber.
// Nothing is written for an empty list.
func (se *ScalarEncoder) EncodePacked(fieldNumber FieldNumber, ft *schema.FieldType, elems []interface{}) error {
	if len(elems) == 0 {
		return nil
	}
	blob := NewEncoderSize(len(elems))
	inner := NewScalarEncoder(blob, se.cfg)
	for _, v := range elems {
		if err := inner.Encode(ft, v); err != nil {
			return err
		}
	}
	se.encoder.EncodeTag(fieldNumber, WireBytes)
	se.encoder.EncodeBytes(blob.Bytes())
	return nil
}
