package convert

import (
	"encoding/json"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anirudhraja/protocodec/message"
	"github.com/anirudhraja/protocodec/wire"
)

func TestAuctionExample(t *testing.T) {
	fx := loadFixtures(t)
	desc := fx.desc(t, "auction.v1.MsgBid")
	obj := auctionObject()

	require.NoError(t, Verify(obj, desc, fx.reg))

	m := fx.fromObject(t, "auction.v1.MsgBid", obj)
	want := []byte{
		0x0a, 0x03, 'a', 'b', 'c',
		0x12, 0x0c, 0x0a, 0x05, 'u', 'a', 't', 'o', 'm', 0x12, 0x03, '1', '0', '0',
		0x1a, 0x01, 0x01,
		0x1a, 0x01, 0x02,
	}
	data := encode(t, m)
	assert.Equal(t, want, data)

	decoded, err := wire.DecodeMessage(data, desc, fx.reg, wire.DefaultConfig())
	require.NoError(t, err)
	assert.True(t, m.Equal(decoded))
	assert.Equal(t, obj, ToObject(decoded, ToObjectOptions{}))
}

func TestFromObject_Idempotent(t *testing.T) {
	fx := loadFixtures(t)
	desc := fx.desc(t, "auction.v1.Lot")

	first, err := FromObject(lotObject(), desc, fx.reg)
	require.NoError(t, err)
	second, err := FromObject(first, desc, fx.reg)
	require.NoError(t, err)
	assert.Same(t, first, second)
}

func TestToObject_ReencodesIdentically(t *testing.T) {
	fx := loadFixtures(t)
	desc := fx.desc(t, "auction.v1.Lot")
	original := fx.fromObject(t, "auction.v1.Lot", lotObject())
	want := encode(t, original)

	tests := []struct {
		name string
		opts ToObjectOptions
	}{
		{"native", ToObjectOptions{}},
		{"json", JSONOptions()},
		{"json names", ToObjectOptions{JSONNames: true, Oneofs: true, Enums: EnumsString, Bytes: BytesArray}},
		{"strings", ToObjectOptions{Longs: LongsString, Bytes: BytesBase64, Arrays: true, Objects: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			obj := ToObject(original, tt.opts)
			require.NoError(t, Verify(obj, desc, fx.reg))

			again, err := FromObject(obj, desc, fx.reg)
			require.NoError(t, err)
			assert.Equal(t, want, encode(t, again))
			assert.True(t, original.Equal(again))
		})
	}
}

func TestToObject_Options(t *testing.T) {
	fx := loadFixtures(t)
	m := fx.fromObject(t, "auction.v1.Lot", lotObject())

	native := ToObject(m, ToObjectOptions{})
	assert.Equal(t, int64(-9007199254740993), native["reserve"])
	assert.Equal(t, uint64(math.MaxUint64), native["volume"])
	assert.Equal(t, int32(1), native["status"])
	assert.Equal(t, []byte{0xde, 0xad}, native["memo"])
	assert.Equal(t, map[string]interface{}{"true": "yes", "false": "no"}, native["flags"])
	assert.Equal(t, map[string]interface{}{"seconds": int64(1714557600), "nanos": int32(500000000)}, native["closes_at"])
	assert.NotContains(t, native, "payment")
	assert.NotContains(t, native, "card")

	styled := ToObject(m, ToObjectOptions{
		Longs:     LongsString,
		Enums:     EnumsString,
		Bytes:     BytesBase64,
		Oneofs:    true,
		JSONNames: true,
	})
	assert.Equal(t, "-9007199254740993", styled["reserve"])
	assert.Equal(t, "18446744073709551615", styled["volume"])
	assert.Equal(t, "STATUS_OPEN", styled["status"])
	assert.Equal(t, "3q0=", styled["memo"])
	assert.Equal(t, "wallet", styled["payment"])
	assert.Contains(t, styled, "closesAt")
	assert.Equal(t, map[string]interface{}{"daily": "100", "weekly": "700"}, styled["limits"])

	arrays := ToObject(m, ToObjectOptions{Bytes: BytesArray, Longs: LongsNumber})
	assert.Equal(t, []interface{}{0xde, 0xad}, arrays["memo"])
	assert.Equal(t, []interface{}{int32(1), int32(-2), int32(300)}, arrays["scores"])
	assert.Equal(t, map[string]interface{}{"daily": float64(100), "weekly": float64(700)}, arrays["limits"])
}

func TestToObject_Defaults(t *testing.T) {
	fx := loadFixtures(t)
	empty := message.New(fx.desc(t, "auction.v1.Lot"), fx.reg)

	assert.Empty(t, ToObject(empty, ToObjectOptions{}))

	withArrays := ToObject(empty, ToObjectOptions{Arrays: true})
	assert.Equal(t, map[string]interface{}{
		"scores": []interface{}{},
		"bids":   []interface{}{},
	}, withArrays)

	defaults := ToObject(empty, ToObjectOptions{Defaults: true, Enums: EnumsString})
	assert.Equal(t, "", defaults["name"])
	assert.Equal(t, int64(0), defaults["reserve"])
	assert.Equal(t, float32(0), defaults["ratio"])
	assert.Equal(t, []byte{}, defaults["memo"])
	assert.Equal(t, "STATUS_UNSPECIFIED", defaults["status"])
	assert.Equal(t, []interface{}{}, defaults["scores"])
	assert.Equal(t, map[string]interface{}{}, defaults["limits"])
	assert.Nil(t, defaults["closes_at"])
	assert.Contains(t, defaults, "closes_at")
	assert.NotContains(t, defaults, "card")
	assert.NotContains(t, defaults, "wallet")

	node := message.New(fx.desc(t, "legacy.Node"), fx.reg)
	assert.Equal(t, int32(7), ToObject(node, ToObjectOptions{Defaults: true})["weight"])
}

func TestToObject_EmptyCollectionsRoundTrip(t *testing.T) {
	fx := loadFixtures(t)
	lot := fx.fromObject(t, "auction.v1.Lot", map[string]interface{}{"name": "lot-1"})

	obj := ToObject(lot, ToObjectOptions{Arrays: true, Objects: true})
	assert.Equal(t, []interface{}{}, obj["scores"])
	assert.Equal(t, map[string]interface{}{}, obj["limits"])

	back := fx.fromObject(t, "auction.v1.Lot", obj)
	assert.False(t, back.Has("scores"))
	assert.False(t, back.Has("limits"))
	assert.True(t, lot.Equal(back))
}

func TestToObject_NonFiniteFloats(t *testing.T) {
	fx := loadFixtures(t)
	m := fx.fromObject(t, "auction.v1.Lot", map[string]interface{}{
		"price": "NaN",
		"ratio": "-Infinity",
	})

	native := ToObject(m, ToObjectOptions{})
	assert.True(t, math.IsNaN(native["price"].(float64)))
	assert.True(t, math.IsInf(float64(native["ratio"].(float32)), -1))

	js := ToJSON(m)
	assert.Equal(t, "NaN", js["price"])
	assert.Equal(t, "-Infinity", js["ratio"])
}

func TestFromObject_Coercions(t *testing.T) {
	fx := loadFixtures(t)

	tests := []struct {
		name  string
		obj   map[string]interface{}
		field string
		want  interface{}
	}{
		{"json number beyond 2^53", map[string]interface{}{"reserve": json.Number("9007199254740993")}, "reserve", int64(9007199254740993)},
		{"long object", map[string]interface{}{"reserve": map[string]interface{}{"low": -1, "high": -1}}, "reserve", int64(-1)},
		{"unsigned long object", map[string]interface{}{"volume": map[string]interface{}{"low": 0, "high": 1, "unsigned": true}}, "volume", uint64(1 << 32)},
		{"exponent string", map[string]interface{}{"volume": "1e3"}, "volume", uint64(1000)},
		{"integral float", map[string]interface{}{"delta": 2.0}, "delta", int32(2)},
		{"decimal string", map[string]interface{}{"count": "12"}, "count", uint32(12)},
		{"raw url base64", map[string]interface{}{"memo": "-_8"}, "memo", []byte{0xfb, 0xff}},
		{"padded base64", map[string]interface{}{"memo": "+/8="}, "memo", []byte{0xfb, 0xff}},
		{"byte array", map[string]interface{}{"memo": []interface{}{1, 2}}, "memo", []byte{1, 2}},
		{"enum number", map[string]interface{}{"status": json.Number("2")}, "status", int32(2)},
		{"undeclared enum number", map[string]interface{}{"status": 99}, "status", int32(99)},
		{"bool string", map[string]interface{}{"sealed": "true"}, "sealed", true},
		{"json name", map[string]interface{}{"closesAt": map[string]interface{}{"seconds": 1}}, "closes_at", nil},
		{"keyword field name", map[string]interface{}{"delete": "gone"}, "delete", "gone"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := fx.fromObject(t, "auction.v1.Lot", tt.obj)
			if tt.want == nil {
				assert.True(t, m.Has(tt.field))
				return
			}
			assert.Equal(t, tt.want, m.Get(tt.field))
		})
	}
}

func TestFromObject_WellKnownTypes(t *testing.T) {
	fx := loadFixtures(t)
	at := time.Date(2024, 5, 1, 10, 0, 0, 250, time.UTC)
	m := fx.fromObject(t, "auction.v1.Lot", map[string]interface{}{
		"closes_at": at,
		"extension": 1500 * time.Millisecond,
		"floor":     map[string]interface{}{"value": "3"},
	})

	ts := m.Get("closes_at").(*message.Message)
	assert.Equal(t, at.Unix(), ts.Get("seconds"))
	assert.Equal(t, int32(250), ts.Get("nanos"))

	d := m.Get("extension").(*message.Message)
	assert.Equal(t, int64(1), d.Get("seconds"))
	assert.Equal(t, int32(500000000), d.Get("nanos"))

	floor := m.Get("floor").(*message.Message)
	assert.Equal(t, int64(3), floor.Get("value"))

	js := ToJSON(m)
	assert.Equal(t, "2024-05-01T10:00:00.00000025Z", js["closes_at"])
	assert.Equal(t, "1.500s", js["extension"])
	assert.Equal(t, "3", js["floor"])
}

func TestFromObject_Errors(t *testing.T) {
	fx := loadFixtures(t)
	desc := fx.desc(t, "auction.v1.Lot")

	tests := []struct {
		name string
		obj  interface{}
		path string
	}{
		{"not an object", []interface{}{1}, ""},
		{"nested not an object", map[string]interface{}{"bids": []interface{}{"x"}}, "bids"},
		{"repeated not an array", map[string]interface{}{"scores": 1}, "scores"},
		{"unknown enum name", map[string]interface{}{"status": "STATUS_BOGUS"}, "status"},
		{"negative unsigned", map[string]interface{}{"count": -1}, "count"},
		{"fractional integer", map[string]interface{}{"delta": 1.5}, "delta"},
		{"int32 overflow", map[string]interface{}{"delta": int64(math.MaxInt32) + 1}, "delta"},
		{"invalid base64", map[string]interface{}{"memo": "!!!"}, "memo"},
		{"null element", map[string]interface{}{"scores": []interface{}{nil}}, "scores"},
		{"bad map key", map[string]interface{}{"escrow": map[string]interface{}{"one": map[string]interface{}{}}}, "escrow"},
		{"bad bool key", map[string]interface{}{"flags": map[string]interface{}{"maybe": "x"}}, "flags"},
		{"bad timestamp", map[string]interface{}{"closes_at": "yesterday"}, "closes_at"},
		{"bad duration", map[string]interface{}{"extension": "5m"}, "extension"},
		{"wrong nested field type", map[string]interface{}{"bids": []interface{}{map[string]interface{}{"amount": 1}}}, "bids"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := FromObject(tt.obj, desc, fx.reg)
			require.Error(t, err)
			assert.Nil(t, m)
			assert.True(t, errors.Is(err, wire.ErrTypeMismatch), "got %v", err)
			assert.Contains(t, err.Error(), tt.path)
		})
	}
}

func TestJSON(t *testing.T) {
	fx := loadFixtures(t)
	desc := fx.desc(t, "auction.v1.MsgBid")
	m := fx.fromObject(t, "auction.v1.MsgBid", auctionObject())

	data, err := MarshalJSON(m)
	require.NoError(t, err)
	assert.Equal(t, `{"bid":{"amount":"100","denom":"uatom"},"bidder":"abc","transactions":["AQ==","Ag=="]}`, string(data))

	back, err := UnmarshalJSON(data, desc, fx.reg)
	require.NoError(t, err)
	assert.Equal(t, encode(t, m), encode(t, back))

	_, err = UnmarshalJSON([]byte(`{"bidder":`), desc, fx.reg)
	assert.Error(t, err)
	_, err = UnmarshalJSON([]byte(`[1]`), desc, fx.reg)
	assert.ErrorIs(t, err, wire.ErrTypeMismatch)

	null, err := MarshalJSON(nil)
	require.NoError(t, err)
	assert.Equal(t, "null", string(null))
}

func TestJSON_Lot(t *testing.T) {
	fx := loadFixtures(t)
	desc := fx.desc(t, "auction.v1.Lot")
	m := fx.fromObject(t, "auction.v1.Lot", lotObject())

	data, err := MarshalJSON(m)
	require.NoError(t, err)
	for _, fragment := range []string{
		`"reserve":"-9007199254740993"`,
		`"volume":"18446744073709551615"`,
		`"status":"STATUS_OPEN"`,
		`"memo":"3q0="`,
		`"closes_at":"2024-05-01T10:00:00.5Z"`,
		`"extension":"90.250s"`,
		`"floor":"5"`,
		`"escrow":{"-4":{"denom":"uosmo"},"1":{"amount":"5","denom":"uatom"}}`,
	} {
		assert.Contains(t, string(data), fragment)
	}

	back, err := UnmarshalJSON(data, desc, fx.reg)
	require.NoError(t, err)
	assert.Equal(t, encode(t, m), encode(t, back))
}
