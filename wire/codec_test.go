package wire

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protowire"
)

func TestVarint_Golden(t *testing.T) {
	tests := []struct {
		value   uint64
		encoded []byte
	}{
		{0, []byte{0x00}},
		{1, []byte{0x01}},
		{127, []byte{0x7f}},
		{128, []byte{0x80, 0x01}},
		{150, []byte{0x96, 0x01}},
		{300, []byte{0xac, 0x02}},
		{16383, []byte{0xff, 0x7f}},
		{16384, []byte{0x80, 0x80, 0x01}},
		{math.MaxUint32, []byte{0xff, 0xff, 0xff, 0xff, 0x0f}},
		{math.MaxUint64, []byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0x01}},
	}

	for _, tt := range tests {
		got := AppendVarint(nil, tt.value)
		assert.Equal(t, tt.encoded, got, "encode %d", tt.value)
		assert.Equal(t, len(tt.encoded), VarintSize(tt.value), "size of %d", tt.value)

		d := NewDecoder(tt.encoded)
		v, err := d.DecodeVarint()
		require.NoError(t, err)
		assert.Equal(t, tt.value, v)
		assert.False(t, d.More())
	}
}

func TestVarint_MatchesProtowire(t *testing.T) {
	for shift := 0; shift < 64; shift++ {
		for _, v := range []uint64{1<<shift - 1, 1 << shift, 1<<shift + 1} {
			assert.Equal(t, protowire.AppendVarint(nil, v), AppendVarint(nil, v), "value %d", v)
			assert.Equal(t, protowire.SizeVarint(v), VarintSize(v), "size of %d", v)
		}
	}
}

func TestVarint_Malformed(t *testing.T) {
	tests := []struct {
		name  string
		input []byte
		err   error
	}{
		{"empty", nil, ErrTruncatedMessage},
		{"unterminated", []byte{0x80}, ErrTruncatedMessage},
		{"unterminated long", []byte{0xff, 0xff, 0xff}, ErrTruncatedMessage},
		{"eleven bytes", []byte{0x80, 0x80, 0x80, 0x80, 0x80, 0x80, 0x80, 0x80, 0x80, 0x80, 0x00}, ErrMalformedVarint},
		{"overflows 64 bits", []byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0x02}, ErrMalformedVarint},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewDecoder(tt.input).DecodeVarint()
			assert.ErrorIs(t, err, tt.err)
		})
	}
}

func TestZigZag(t *testing.T) {
	tests32 := []struct {
		value   int32
		encoded uint64
	}{
		{0, 0},
		{-1, 1},
		{1, 2},
		{-2, 3},
		{2147483647, 4294967294},
		{-2147483648, 4294967295},
	}
	for _, tt := range tests32 {
		assert.Equal(t, tt.encoded, EncodeZigZag32(tt.value), "encode %d", tt.value)
		assert.Equal(t, tt.value, DecodeZigZag32(tt.encoded), "decode %d", tt.encoded)
	}

	tests64 := []int64{0, -1, 1, -2, math.MaxInt64, math.MinInt64, 1 << 40, -(1 << 40)}
	for _, v := range tests64 {
		assert.Equal(t, protowire.EncodeZigZag(v), EncodeZigZag64(v), "encode %d", v)
		assert.Equal(t, v, DecodeZigZag64(EncodeZigZag64(v)), "round trip %d", v)
	}
}

func TestVarint_SignedEncoding(t *testing.T) {
	e := NewEncoder()
	NewVarintEncoder(e).EncodeInt32(-1)
	assert.Len(t, e.Bytes(), 10, "negative int32 is sign-extended to ten bytes")

	v, err := NewVarintDecoder(NewDecoder(e.Bytes())).DecodeInt32()
	require.NoError(t, err)
	assert.Equal(t, int32(-1), v)

	e.Reset()
	NewVarintEncoder(e).EncodeSint32(-1)
	assert.Equal(t, []byte{0x01}, e.Bytes())
}

func TestTag(t *testing.T) {
	e := NewEncoder()
	e.EncodeTag(1, WireVarint)
	e.EncodeTag(2, WireBytes)
	e.EncodeTag(MaxFieldNumber, WireFixed32)
	assert.Equal(t, []byte{0x08, 0x12}, e.Bytes()[:2])
	assert.Equal(t, 5, TagSize(MaxFieldNumber))

	d := NewDecoder(e.Bytes())
	for _, want := range []struct {
		n  FieldNumber
		wt WireType
	}{{1, WireVarint}, {2, WireBytes}, {MaxFieldNumber, WireFixed32}} {
		n, wt, err := d.DecodeTag()
		require.NoError(t, err)
		assert.Equal(t, want.n, n)
		assert.Equal(t, want.wt, wt)
	}
}

func TestTag_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		input []byte
		err   error
	}{
		{"field zero", []byte{0x00}, ErrInvalidFieldNumber},
		{"field too large", protowire.AppendVarint(nil, uint64(MaxFieldNumber+1)<<3), ErrInvalidFieldNumber},
		{"start group", protowire.AppendTag(nil, 1, protowire.StartGroupType), ErrUnsupportedWireType},
		{"end group", protowire.AppendTag(nil, 1, protowire.EndGroupType), ErrUnsupportedWireType},
		{"wire type 6", []byte{0x0e}, ErrUnsupportedWireType},
		{"wire type 7", []byte{0x0f}, ErrUnsupportedWireType},
		{"truncated", []byte{0x80}, ErrTruncatedMessage},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := NewDecoder(tt.input).DecodeTag()
			assert.ErrorIs(t, err, tt.err)
		})
	}
}

func TestFixed(t *testing.T) {
	e := NewEncoder()
	fe := NewFixedEncoder(e)
	fe.EncodeFixed32(0xdeadbeef)
	fe.EncodeSfixed32(-5)
	fe.EncodeFloat32(float32(math.Inf(-1)))
	fe.EncodeFixed64(math.MaxUint64)
	fe.EncodeSfixed64(math.MinInt64)
	fe.EncodeFloat64(math.NaN())

	assert.Equal(t, []byte{0xef, 0xbe, 0xad, 0xde}, e.Bytes()[:4], "little-endian")

	fd := NewFixedDecoder(NewDecoder(e.Bytes()))
	u32, err := fd.DecodeFixed32()
	require.NoError(t, err)
	assert.Equal(t, uint32(0xdeadbeef), u32)
	s32, err := fd.DecodeSfixed32()
	require.NoError(t, err)
	assert.Equal(t, int32(-5), s32)
	f32, err := fd.DecodeFloat32()
	require.NoError(t, err)
	assert.True(t, math.IsInf(float64(f32), -1))
	u64, err := fd.DecodeFixed64()
	require.NoError(t, err)
	assert.Equal(t, uint64(math.MaxUint64), u64)
	s64, err := fd.DecodeSfixed64()
	require.NoError(t, err)
	assert.Equal(t, int64(math.MinInt64), s64)
	f64, err := fd.DecodeFloat64()
	require.NoError(t, err)
	assert.True(t, math.IsNaN(f64))

	_, err = NewDecoder([]byte{1, 2, 3}).DecodeFixed32()
	assert.ErrorIs(t, err, ErrTruncatedMessage)
	_, err = NewDecoder([]byte{1, 2, 3, 4, 5, 6, 7}).DecodeFixed64()
	assert.ErrorIs(t, err, ErrTruncatedMessage)
}

func TestBytes(t *testing.T) {
	e := NewEncoder()
	e.EncodeString("testing")
	e.EncodeBytes(nil)
	assert.Equal(t, protowire.AppendBytes(protowire.AppendString(nil, "testing"), nil), e.Bytes())

	input := e.Bytes()
	d := NewDecoder(input)
	b, err := d.DecodeBytes()
	require.NoError(t, err)
	assert.Equal(t, []byte("testing"), b)
	b[0] = 'X'
	assert.Equal(t, byte('t'), input[1], "DecodeBytes copies")

	empty, err := d.DecodeBytes()
	require.NoError(t, err)
	assert.Empty(t, empty)
	assert.False(t, d.More())

	_, err = NewDecoder([]byte{0x05, 'a', 'b'}).DecodeBytes()
	assert.ErrorIs(t, err, ErrTruncatedMessage)

	// a length near 2^64 must not wrap around the bounds check
	huge := protowire.AppendVarint(nil, math.MaxUint64)
	_, err = NewDecoder(append(huge, 'a')).DecodeBytes()
	assert.ErrorIs(t, err, ErrTruncatedMessage)

	assert.Equal(t, 8, BytesSize([]byte("testing")))
}

func TestSkipField(t *testing.T) {
	var b []byte
	b = protowire.AppendTag(b, 1, protowire.VarintType)
	b = protowire.AppendVarint(b, 1<<60)
	b = protowire.AppendTag(b, 2, protowire.Fixed64Type)
	b = protowire.AppendFixed64(b, 7)
	b = protowire.AppendTag(b, 3, protowire.BytesType)
	b = protowire.AppendBytes(b, []byte("skipped"))
	b = protowire.AppendTag(b, 4, protowire.Fixed32Type)
	b = protowire.AppendFixed32(b, 7)

	d := NewDecoder(b)
	for d.More() {
		_, wt, err := d.DecodeTag()
		require.NoError(t, err)
		require.NoError(t, d.SkipField(wt))
	}
	assert.Equal(t, len(b), d.Pos())

	tests := []struct {
		wt    WireType
		input []byte
	}{
		{WireVarint, []byte{0x80}},
		{WireFixed64, []byte{1, 2, 3}},
		{WireBytes, []byte{0x04, 'a'}},
		{WireFixed32, []byte{1}},
	}
	for _, tt := range tests {
		err := NewDecoder(tt.input).SkipField(tt.wt)
		assert.ErrorIs(t, err, ErrTruncatedMessage, "wire type %s", tt.wt)
	}
	assert.ErrorIs(t, NewDecoder(nil).SkipField(WireStartGroup), ErrUnsupportedWireType)
}

func TestDecodeField_Schemaless(t *testing.T) {
	var b []byte
	b = protowire.AppendTag(b, 1, protowire.VarintType)
	b = protowire.AppendVarint(b, 150)
	b = protowire.AppendTag(b, 2, protowire.BytesType)
	b = protowire.AppendString(b, "hi")
	b = protowire.AppendTag(b, 3, protowire.Fixed32Type)
	b = protowire.AppendFixed32(b, 9)

	d := NewDecoder(b)
	var got []*Value
	for {
		v, err := d.DecodeField()
		require.NoError(t, err)
		if v == nil {
			break
		}
		got = append(got, v)
	}
	require.Len(t, got, 3)
	assert.Equal(t, &Value{FieldNumber: 1, WireType: WireVarint, Data: uint64(150)}, got[0])
	assert.Equal(t, &Value{FieldNumber: 2, WireType: WireBytes, Data: []byte("hi")}, got[1])
	assert.Equal(t, &Value{FieldNumber: 3, WireType: WireFixed32, Data: uint64(9)}, got[2])
}

func TestWireType_String(t *testing.T) {
	assert.Equal(t, "varint", WireVarint.String())
	assert.Equal(t, "bytes", WireBytes.String())
	assert.Equal(t, "unknown", WireType(7).String())
}

func TestConfigFromEnv(t *testing.T) {
	base := DefaultConfig()
	assert.Equal(t, base, ConfigFromEnv(base))

	t.Setenv("PROTOCODEC_PRESERVE_UNKNOWN", "true")
	t.Setenv("PROTOCODEC_STRICT_UTF8", "1")
	t.Setenv("PROTOCODEC_MAX_DEPTH", "8")
	assert.Equal(t, Config{PreserveUnknownFields: true, StrictUTF8: true, MaxDepth: 8}, ConfigFromEnv(base))

	// unparsable values leave the base untouched
	t.Setenv("PROTOCODEC_PRESERVE_UNKNOWN", "maybe")
	t.Setenv("PROTOCODEC_STRICT_UTF8", "")
	t.Setenv("PROTOCODEC_MAX_DEPTH", "-3")
	assert.Equal(t, base, ConfigFromEnv(base))
}
