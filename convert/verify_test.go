package convert

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anirudhraja/protocodec/message"
	"github.com/anirudhraja/protocodec/wire"
)

func TestVerify(t *testing.T) {
	fx := loadFixtures(t)

	tests := []struct {
		name     string
		typeName string
		obj      interface{}
		want     string
	}{
		{"auction example", "auction.v1.MsgBid", auctionObject(), ""},
		{"full lot", "auction.v1.Lot", lotObject(), ""},
		{"not an object", "auction.v1.MsgBid", "abc", "object expected"},
		{"nil and unknown keys", "auction.v1.MsgBid", map[string]interface{}{"bidder": nil, "zzz": 1}, ""},
		{"string", "auction.v1.MsgBid", map[string]interface{}{"bidder": 5}, "bidder: string expected"},
		{"nested field", "auction.v1.MsgBid", map[string]interface{}{"bid": map[string]interface{}{"amount": 100}}, "bid.amount: string expected"},
		{"nested not an object", "auction.v1.MsgBid", map[string]interface{}{"bid": "x"}, "bid: object expected"},
		{"repeated not an array", "auction.v1.MsgBid", map[string]interface{}{"transactions": "AQ=="}, "transactions: array expected"},
		{"bytes element", "auction.v1.MsgBid", map[string]interface{}{"transactions": []interface{}{1}}, "transactions: buffer[] expected"},
		{"base64 bytes", "auction.v1.Lot", map[string]interface{}{"memo": "3q0="}, ""},
		{"invalid base64", "auction.v1.Lot", map[string]interface{}{"memo": "not base64!"}, "memo: buffer expected"},
		{"integer element", "auction.v1.Lot", map[string]interface{}{"scores": []interface{}{"1"}}, "scores: integer[] expected"},
		{"long string", "auction.v1.Lot", map[string]interface{}{"reserve": "12"}, ""},
		{"long object", "auction.v1.Lot", map[string]interface{}{"reserve": map[string]interface{}{"low": 1, "high": 0}}, ""},
		{"fractional long", "auction.v1.Lot", map[string]interface{}{"reserve": "1.5"}, "reserve: integer|Long expected"},
		{"negative unsigned", "auction.v1.Lot", map[string]interface{}{"count": -1}, "count: integer expected"},
		{"integer as string", "auction.v1.Lot", map[string]interface{}{"delta": "4"}, "delta: integer expected"},
		{"undeclared enum", "auction.v1.Lot", map[string]interface{}{"status": 9}, "status: enum value expected"},
		{"enum name", "auction.v1.Lot", map[string]interface{}{"status": "STATUS_CLOSED"}, ""},
		{"unknown enum name", "auction.v1.Lot", map[string]interface{}{"status": "STATUS_BOGUS"}, "status: enum value expected"},
		{"boolean", "auction.v1.Lot", map[string]interface{}{"sealed": "true"}, "sealed: boolean expected"},
		{"non-finite number", "auction.v1.Lot", map[string]interface{}{"price": "NaN"}, ""},
		{"number", "auction.v1.Lot", map[string]interface{}{"price": "cheap"}, "price: number expected"},
		{"map value", "auction.v1.Lot", map[string]interface{}{"limits": map[string]interface{}{"d": "x"}}, "limits: integer|Long{k:string} expected"},
		{"map key", "auction.v1.Lot", map[string]interface{}{"escrow": map[string]interface{}{"one": map[string]interface{}{}}}, "escrow: integer key expected"},
		{"map message value", "auction.v1.Lot", map[string]interface{}{"escrow": map[string]interface{}{"1": map[string]interface{}{"denom": 3}}}, "escrow.denom: string expected"},
		{"bool map key", "auction.v1.Lot", map[string]interface{}{"flags": map[string]interface{}{"maybe": "x"}}, "flags: boolean key expected"},
		{"oneof conflict", "auction.v1.Lot", map[string]interface{}{"card": "c", "wallet": 1}, "payment: multiple values"},
		{"repeated message", "auction.v1.Lot", map[string]interface{}{"bids": []interface{}{map[string]interface{}{"amount": true}}}, "bids.amount: string expected"},
		{"timestamp string", "auction.v1.Lot", map[string]interface{}{"closes_at": "2024-05-01T10:00:00Z"}, ""},
		{"bad timestamp", "auction.v1.Lot", map[string]interface{}{"closes_at": "not a time"}, "closes_at: object expected"},
		{"wrapper scalar", "auction.v1.Lot", map[string]interface{}{"floor": "7"}, ""},
		{"required missing", "legacy.Node", map[string]interface{}{}, "missing required 'id'"},
		{"nested required missing", "legacy.Node", map[string]interface{}{"id": 1, "child": map[string]interface{}{}}, "child: missing required 'id'"},
		{"required present", "legacy.Node", map[string]interface{}{"id": 1, "child": map[string]interface{}{"id": 2}}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Verify(tt.obj, fx.desc(t, tt.typeName), fx.reg)
			if tt.want == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.want, err.Error())
			assert.True(t, errors.Is(err, wire.ErrTypeMismatch))

			var verr *VerifyError
			require.True(t, errors.As(err, &verr))
		})
	}
}

func TestVerify_DoesNotMutate(t *testing.T) {
	fx := loadFixtures(t)
	obj := lotObject()
	require.NoError(t, Verify(obj, fx.desc(t, "auction.v1.Lot"), fx.reg))
	assert.Equal(t, lotObject(), obj)
}

func TestVerify_Message(t *testing.T) {
	fx := loadFixtures(t)
	desc := fx.desc(t, "legacy.Node")

	m := message.New(desc, fx.reg)
	err := Verify(m, desc, fx.reg)
	require.Error(t, err)
	assert.Equal(t, "missing required 'id'", err.Error())

	require.NoError(t, m.Set("id", int32(3)))
	assert.NoError(t, Verify(m, desc, fx.reg))
}

func TestVerify_AgreesWithFromObject(t *testing.T) {
	fx := loadFixtures(t)
	desc := fx.desc(t, "auction.v1.Lot")

	for _, memo := range []interface{}{"3q0=", "3q0", "not base64!", []interface{}{1, 2}, []interface{}{256}} {
		obj := map[string]interface{}{"memo": memo}
		_, convErr := FromObject(obj, desc, fx.reg)
		verifyErr := Verify(obj, desc, fx.reg)
		assert.Equal(t, convErr == nil, verifyErr == nil, "memo %v", memo)
	}
}
