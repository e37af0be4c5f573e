package wire

// BytesDecoder handles length-delimited bytes decoding operations
type BytesDecoder struct {
	decoder *Decoder
}

// BytesEncoder handles length-delimited bytes encoding operations
type BytesEncoder struct {
	encoder *Encoder
}

// NewBytesDecoder creates a new bytes decoder
func NewBytesDecoder(d *Decoder) *BytesDecoder {
	return &BytesDecoder{decoder: d}
}

// NewBytesEncoder creates a new bytes encoder
func NewBytesEncoder(e *Encoder) *BytesEncoder {
	return &BytesEncoder{encoder: e}
}

// DECODER METHODS

// DecodeRawBytes reads the length prefix and returns a sub-slice bounded to
// exactly that many bytes. The slice shares the decoder's buffer.
func (bd *BytesDecoder) DecodeRawBytes() ([]byte, error) {
	vd := NewVarintDecoder(bd.decoder)
	length, err := vd.DecodeVarint()
	if err != nil {
		return nil, err
	}

	d := bd.decoder
	if length > uint64(len(d.buf)-d.pos) {
		return nil, ErrTruncatedMessage
	}

	end := d.pos + int(length)
	data := d.buf[d.pos:end:end]
	d.pos = end

	return data, nil
}

// DecodeBytes decodes a length-delimited byte array into a fresh copy
func (bd *BytesDecoder) DecodeBytes() ([]byte, error) {
	raw, err := bd.DecodeRawBytes()
	if err != nil {
		return nil, err
	}

	// Copy the data to avoid sharing the underlying buffer
	data := make([]byte, len(raw))
	copy(data, raw)
	return data, nil
}

// DecodeString decodes a length-delimited string
func (bd *BytesDecoder) DecodeString() (string, error) {
	raw, err := bd.DecodeRawBytes()
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// SkipBytes skips over a length-delimited byte array
func (bd *BytesDecoder) SkipBytes() error {
	_, err := bd.DecodeRawBytes()
	return err
}

// ENCODER METHODS

// EncodeBytes encodes a byte array as length-delimited
func (be *BytesEncoder) EncodeBytes(data []byte) {
	be.encoder.buf = AppendVarint(be.encoder.buf, uint64(len(data)))
	be.encoder.buf = append(be.encoder.buf, data...)
}

// EncodeString encodes a string as length-delimited bytes
func (be *BytesEncoder) EncodeString(s string) {
	be.encoder.buf = AppendVarint(be.encoder.buf, uint64(len(s)))
	be.encoder.buf = append(be.encoder.buf, s...)
}

// UTILITY FUNCTIONS

// BytesSize returns the size needed to encode the given bytes
func BytesSize(data []byte) int {
	return VarintSize(uint64(len(data))) + len(data)
}

// Convenience methods for direct access

// DecodeBytes - convenience method for main decoder
func (d *Decoder) DecodeBytes() ([]byte, error) {
	bd := NewBytesDecoder(d)
	return bd.DecodeBytes()
}

// EncodeBytes - convenience method for main encoder
func (e *Encoder) EncodeBytes(data []byte) {
	be := NewBytesEncoder(e)
	be.EncodeBytes(data)
}

// EncodeString - convenience method for main encoder
func (e *Encoder) EncodeString(s string) {
	be := NewBytesEncoder(e)
	be.EncodeString(s)
}
