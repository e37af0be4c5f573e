package wire

import "fmt"

// Decoder handles low-level protobuf wire format decoding
type Decoder struct {
	buf []byte
	pos int
}

// NewDecoder creates a new wire format decoder
func NewDecoder(data []byte) *Decoder {
	return &Decoder{
		buf: data,
		pos: 0,
	}
}

// More reports whether unread bytes remain.
func (d *Decoder) More() bool {
	return d.pos < len(d.buf)
}

// Pos returns the current read offset.
func (d *Decoder) Pos() int {
	return d.pos
}

// Remaining returns the number of unread bytes.
func (d *Decoder) Remaining() int {
	return len(d.buf) - d.pos
}

// SkipField discards one value of the given wire type.
func (d *Decoder) SkipField(wireType WireType) error {
	switch wireType {
	case WireVarint:
		return NewVarintDecoder(d).SkipVarint()
	case WireFixed64:
		if d.Remaining() < 8 {
			return ErrTruncatedMessage
		}
		d.pos += 8
		return nil
	case WireBytes:
		return NewBytesDecoder(d).SkipBytes()
	case WireFixed32:
		if d.Remaining() < 4 {
			return ErrTruncatedMessage
		}
		d.pos += 4
		return nil
	default:
		return fmt.Errorf("%w: %d", ErrUnsupportedWireType, wireType)
	}
}

// Value represents a decoded protobuf value without schema information
type Value struct {
	FieldNumber FieldNumber
	WireType    WireType
	Data        interface{} // uint64 for varint/fixed, []byte for bytes
}

// DecodeField decodes a single field from the current position without a schema.
// It returns nil at end of input.
func (d *Decoder) DecodeField() (*Value, error) {
	if !d.More() {
		return nil, nil
	}

	fieldNumber, wireType, err := d.DecodeTag()
	if err != nil {
		return nil, err
	}

	var data interface{}
	switch wireType {
	case WireVarint:
		data, err = d.DecodeVarint()
	case WireFixed64:
		data, err = d.DecodeFixed64()
	case WireBytes:
		data, err = d.DecodeBytes()
	case WireFixed32:
		var v uint32
		v, err = d.DecodeFixed32()
		data = uint64(v)
	}
	if err != nil {
		return nil, err
	}

	return &Value{
		FieldNumber: fieldNumber,
		WireType:    wireType,
		Data:        data,
	}, nil
}
