package wire

import (
	"testing"

	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protodesc"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/reflect/protoregistry"
	"google.golang.org/protobuf/types/descriptorpb"

	"github.com/anirudhraja/protocodec/message"
	"github.com/anirudhraja/protocodec/registry"
)

const (
	optional = descriptorpb.FieldDescriptorProto_LABEL_OPTIONAL
	required = descriptorpb.FieldDescriptorProto_LABEL_REQUIRED
	repeated = descriptorpb.FieldDescriptorProto_LABEL_REPEATED
)

func fdesc(name string, number int32, label descriptorpb.FieldDescriptorProto_Label, typ descriptorpb.FieldDescriptorProto_Type, typeName string) *descriptorpb.FieldDescriptorProto {
	f := &descriptorpb.FieldDescriptorProto{
		Name:   proto.String(name),
		Number: proto.Int32(number),
		Label:  label.Enum(),
		Type:   typ.Enum(),
	}
	if typeName != "" {
		f.TypeName = proto.String(typeName)
	}
	return f
}

func mapEntry(name string, key, value *descriptorpb.FieldDescriptorProto) *descriptorpb.DescriptorProto {
	return &descriptorpb.DescriptorProto{
		Name:    proto.String(name),
		Field:   []*descriptorpb.FieldDescriptorProto{key, value},
		Options: &descriptorpb.MessageOptions{MapEntry: proto.Bool(true)},
	}
}

// fixtureSet describes the schemas used across the codec tests:
//
//	auction.v1: Coin, MsgBid, Lot (every field kind) and the Status enum (proto3)
//	legacy:     Node with a required field and a recursive child (proto2)
func fixtureSet() *descriptorpb.FileDescriptorSet {
	const (
		tString   = descriptorpb.FieldDescriptorProto_TYPE_STRING
		tBytes    = descriptorpb.FieldDescriptorProto_TYPE_BYTES
		tMessage  = descriptorpb.FieldDescriptorProto_TYPE_MESSAGE
		tEnum     = descriptorpb.FieldDescriptorProto_TYPE_ENUM
		tInt32    = descriptorpb.FieldDescriptorProto_TYPE_INT32
		tInt64    = descriptorpb.FieldDescriptorProto_TYPE_INT64
		tUint32   = descriptorpb.FieldDescriptorProto_TYPE_UINT32
		tUint64   = descriptorpb.FieldDescriptorProto_TYPE_UINT64
		tSint32   = descriptorpb.FieldDescriptorProto_TYPE_SINT32
		tSint64   = descriptorpb.FieldDescriptorProto_TYPE_SINT64
		tFixed32  = descriptorpb.FieldDescriptorProto_TYPE_FIXED32
		tFixed64  = descriptorpb.FieldDescriptorProto_TYPE_FIXED64
		tSfixed32 = descriptorpb.FieldDescriptorProto_TYPE_SFIXED32
		tSfixed64 = descriptorpb.FieldDescriptorProto_TYPE_SFIXED64
		tBool     = descriptorpb.FieldDescriptorProto_TYPE_BOOL
		tFloat    = descriptorpb.FieldDescriptorProto_TYPE_FLOAT
		tDouble   = descriptorpb.FieldDescriptorProto_TYPE_DOUBLE
	)

	coin := &descriptorpb.DescriptorProto{
		Name: proto.String("Coin"),
		Field: []*descriptorpb.FieldDescriptorProto{
			fdesc("denom", 1, optional, tString, ""),
			fdesc("amount", 2, optional, tString, ""),
		},
	}
	msgBid := &descriptorpb.DescriptorProto{
		Name: proto.String("MsgBid"),
		Field: []*descriptorpb.FieldDescriptorProto{
			fdesc("bidder", 1, optional, tString, ""),
			fdesc("bid", 2, optional, tMessage, ".auction.v1.Coin"),
			fdesc("transactions", 3, repeated, tBytes, ""),
		},
	}

	card := fdesc("card", 18, optional, tString, "")
	card.OneofIndex = proto.Int32(0)
	wallet := fdesc("wallet", 19, optional, tUint64, "")
	wallet.OneofIndex = proto.Int32(0)

	lot := &descriptorpb.DescriptorProto{
		Name: proto.String("Lot"),
		Field: []*descriptorpb.FieldDescriptorProto{
			fdesc("name", 1, optional, tString, ""),
			fdesc("amount", 2, optional, tInt64, ""),
			fdesc("delta", 3, optional, tSint32, ""),
			fdesc("count", 4, optional, tUint32, ""),
			fdesc("sealed", 5, optional, tBool, ""),
			fdesc("price", 6, optional, tDouble, ""),
			fdesc("ratio", 7, optional, tFloat, ""),
			fdesc("f32", 8, optional, tFixed32, ""),
			fdesc("f64", 9, optional, tFixed64, ""),
			fdesc("sf32", 10, optional, tSfixed32, ""),
			fdesc("sf64", 11, optional, tSfixed64, ""),
			fdesc("memo", 12, optional, tBytes, ""),
			fdesc("status", 13, optional, tEnum, ".auction.v1.Status"),
			fdesc("scores", 14, repeated, tInt32, ""),
			fdesc("notes", 15, repeated, tString, ""),
			fdesc("limits", 16, repeated, tMessage, ".auction.v1.Lot.LimitsEntry"),
			fdesc("reserve", 17, optional, tMessage, ".auction.v1.Coin"),
			card,
			wallet,
			fdesc("escrow", 20, repeated, tMessage, ".auction.v1.Lot.EscrowEntry"),
			fdesc("drift", 21, optional, tSint64, ""),
			fdesc("big", 22, optional, tUint64, ""),
			fdesc("bids", 23, repeated, tMessage, ".auction.v1.Coin"),
			fdesc("small", 24, optional, tInt32, ""),
		},
		NestedType: []*descriptorpb.DescriptorProto{
			mapEntry("LimitsEntry", fdesc("key", 1, optional, tString, ""), fdesc("value", 2, optional, tInt64, "")),
			mapEntry("EscrowEntry", fdesc("key", 1, optional, tInt32, ""), fdesc("value", 2, optional, tMessage, ".auction.v1.Coin")),
		},
		OneofDecl: []*descriptorpb.OneofDescriptorProto{{Name: proto.String("payment")}},
	}

	node := &descriptorpb.DescriptorProto{
		Name: proto.String("Node"),
		Field: []*descriptorpb.FieldDescriptorProto{
			fdesc("id", 1, required, tString, ""),
			fdesc("child", 2, optional, tMessage, ".legacy.Node"),
			fdesc("ids", 3, repeated, tInt32, ""),
		},
	}

	return &descriptorpb.FileDescriptorSet{File: []*descriptorpb.FileDescriptorProto{
		{
			Name:        proto.String("auction/v1/auction.proto"),
			Package:     proto.String("auction.v1"),
			Syntax:      proto.String("proto3"),
			MessageType: []*descriptorpb.DescriptorProto{coin, msgBid, lot},
			EnumType: []*descriptorpb.EnumDescriptorProto{{
				Name: proto.String("Status"),
				Value: []*descriptorpb.EnumValueDescriptorProto{
					{Name: proto.String("STATUS_UNSPECIFIED"), Number: proto.Int32(0)},
					{Name: proto.String("STATUS_OPEN"), Number: proto.Int32(1)},
					{Name: proto.String("STATUS_CLOSED"), Number: proto.Int32(2)},
				},
			}},
		},
		{
			Name:        proto.String("legacy/node.proto"),
			Package:     proto.String("legacy"),
			Syntax:      proto.String("proto2"),
			MessageType: []*descriptorpb.DescriptorProto{node},
		},
	}}
}

type fixtures struct {
	reg   *registry.Registry
	files *protoregistry.Files
}

func loadFixtures(t testing.TB) *fixtures {
	t.Helper()
	set := fixtureSet()
	reg := registry.NewRegistry()
	require.NoError(t, reg.LoadDescriptorSet(set))
	files, err := protodesc.NewFiles(set)
	require.NoError(t, err)
	return &fixtures{reg: reg, files: files}
}

func (fx *fixtures) newMessage(t testing.TB, name string) *message.Message {
	t.Helper()
	desc, err := fx.reg.GetMessage(name)
	require.NoError(t, err)
	return message.New(desc, fx.reg)
}

// dynamicDescriptor returns the protobuf-go view of the same type.
func (fx *fixtures) dynamicDescriptor(t testing.TB, name string) protoreflect.MessageDescriptor {
	t.Helper()
	d, err := fx.files.FindDescriptorByName(protoreflect.FullName(name))
	require.NoError(t, err)
	md, ok := d.(protoreflect.MessageDescriptor)
	require.True(t, ok, "%s is not a message", name)
	return md
}

func (fx *fixtures) coin(t testing.TB, denom, amount string) *message.Message {
	t.Helper()
	c := fx.newMessage(t, "auction.v1.Coin")
	require.NoError(t, c.Set("denom", denom))
	require.NoError(t, c.Set("amount", amount))
	return c
}

func (fx *fixtures) decode(t testing.TB, name string, data []byte, cfg Config) (*message.Message, error) {
	t.Helper()
	desc, err := fx.reg.GetMessage(name)
	require.NoError(t, err)
	return DecodeMessage(data, desc, fx.reg, cfg)
}
