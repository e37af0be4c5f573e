package convert

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/anirudhraja/protocodec/message"
	"github.com/anirudhraja/protocodec/registry"
	"github.com/anirudhraja/protocodec/schema"
	"github.com/anirudhraja/protocodec/wire"
)

type fixtures struct {
	reg *registry.Registry
}

func loadFixtures(t *testing.T) *fixtures {
	t.Helper()
	reg := registry.NewRegistry()
	require.NoError(t, reg.LoadSchema("testdata"))
	return &fixtures{reg: reg}
}

func (fx *fixtures) desc(t *testing.T, name string) *schema.Message {
	t.Helper()
	d, err := fx.reg.GetMessage(name)
	require.NoError(t, err)
	return d
}

func (fx *fixtures) fromObject(t *testing.T, name string, obj interface{}) *message.Message {
	t.Helper()
	m, err := FromObject(obj, fx.desc(t, name), fx.reg)
	require.NoError(t, err)
	return m
}

func encode(t *testing.T, m *message.Message) []byte {
	t.Helper()
	b, err := wire.EncodeMessage(m, wire.DefaultConfig())
	require.NoError(t, err)
	return b
}

func auctionObject() map[string]interface{} {
	return map[string]interface{}{
		"bidder": "abc",
		"bid": map[string]interface{}{
			"denom":  "uatom",
			"amount": "100",
		},
		"transactions": []interface{}{[]byte{0x01}, []byte{0x02}},
	}
}

// lotObject sets every field of auction.v1.Lot.
func lotObject() map[string]interface{} {
	return map[string]interface{}{
		"name":    "vase",
		"reserve": int64(-9007199254740993),
		"volume":  uint64(18446744073709551615),
		"delta":   -3,
		"count":   7,
		"sealed":  true,
		"price":   12.5,
		"ratio":   float32(0.25),
		"memo":    []byte{0xde, 0xad},
		"status":  "STATUS_OPEN",
		"scores":  []interface{}{1, -2, 300},
		"limits": map[string]interface{}{
			"daily":  "100",
			"weekly": int64(700),
		},
		"escrow": map[string]interface{}{
			"1":  map[string]interface{}{"denom": "uatom", "amount": "5"},
			"-4": map[string]interface{}{"denom": "uosmo"},
		},
		"flags":     map[string]interface{}{"true": "yes", "false": "no"},
		"wallet":    uint64(42),
		"bids":      []interface{}{map[string]interface{}{"denom": "a", "amount": "1"}},
		"closes_at": "2024-05-01T10:00:00.5Z",
		"extension": "90.25s",
		"floor":     5,
		"delete":    "x",
		"type":      "y",
	}
}
