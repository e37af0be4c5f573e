package wire

import "fmt"

// EncodeTag writes varint((fieldNumber << 3) | wireType).
func (e *Encoder) EncodeTag(fieldNumber FieldNumber, wireType WireType) {
	e.buf = AppendVarint(e.buf, uint64(MakeTag(fieldNumber, wireType)))
}

// DecodeTag reads a tag and validates both halves. Field numbers in the
// reserved 19000-19999 block are accepted here; only schemas reject them.
func (d *Decoder) DecodeTag() (FieldNumber, WireType, error) {
	raw, err := d.DecodeVarint()
	if err != nil {
		return 0, 0, err
	}
	if raw>>3 == 0 || raw>>3 > uint64(MaxFieldNumber) {
		return 0, 0, fmt.Errorf("%w: %d", ErrInvalidFieldNumber, raw>>3)
	}
	fieldNumber, wireType := ParseTag(Tag(raw))
	if !wireType.Supported() {
		return 0, 0, fmt.Errorf("%w: %d (%s) on field %d", ErrUnsupportedWireType, wireType, wireType, fieldNumber)
	}
	return fieldNumber, wireType, nil
}

// TagSize returns the encoded size of a tag.
func TagSize(fieldNumber FieldNumber) int {
	return VarintSize(uint64(MakeTag(fieldNumber, 0)))
}
