package registry

import "github.com/anirudhraja/protocodec/schema"

const wellKnownPackage = "google.protobuf"

// wellKnownRepo describes the google.protobuf types every registry carries, so
// imports of google/protobuf/*.proto need no files on disk.
func wellKnownRepo() *schema.ProtoRepo {
	wrappers := []struct {
		name string
		t    schema.PrimitiveType
	}{
		{"DoubleValue", schema.TypeDouble},
		{"FloatValue", schema.TypeFloat},
		{"Int64Value", schema.TypeInt64},
		{"UInt64Value", schema.TypeUint64},
		{"Int32Value", schema.TypeInt32},
		{"UInt32Value", schema.TypeUint32},
		{"BoolValue", schema.TypeBool},
		{"StringValue", schema.TypeString},
		{"BytesValue", schema.TypeBytes},
	}
	wrapperFile := wellKnownFile("google/protobuf/wrappers.proto")
	for _, w := range wrappers {
		wrapperFile.Messages = append(wrapperFile.Messages, &schema.Message{
			Name:   w.name,
			Fields: []*schema.Field{scalarField("value", 1, w.t)},
		})
	}

	secondsNanos := func(name string) *schema.Message {
		return &schema.Message{
			Name: name,
			Fields: []*schema.Field{
				scalarField("seconds", 1, schema.TypeInt64),
				scalarField("nanos", 2, schema.TypeInt32),
			},
		}
	}
	timestampFile := wellKnownFile("google/protobuf/timestamp.proto")
	timestampFile.Messages = append(timestampFile.Messages, secondsNanos("Timestamp"))
	durationFile := wellKnownFile("google/protobuf/duration.proto")
	durationFile.Messages = append(durationFile.Messages, secondsNanos("Duration"))
	emptyFile := wellKnownFile("google/protobuf/empty.proto")
	emptyFile.Messages = append(emptyFile.Messages, &schema.Message{Name: "Empty"})

	repo := &schema.ProtoRepo{ProtoFiles: make(map[string]*schema.ProtoFile)}
	for _, f := range []*schema.ProtoFile{wrapperFile, timestampFile, durationFile, emptyFile} {
		repo.ProtoFiles[f.Name] = f
	}
	return repo
}

// IsWellKnownFile reports whether name is one of the files NewRegistry preloads.
func IsWellKnownFile(name string) bool {
	switch name {
	case "google/protobuf/wrappers.proto",
		"google/protobuf/timestamp.proto",
		"google/protobuf/duration.proto",
		"google/protobuf/empty.proto":
		return true
	}
	return false
}

func wellKnownFile(name string) *schema.ProtoFile {
	return &schema.ProtoFile{
		Name:    name,
		Package: wellKnownPackage,
		Syntax:  schema.SyntaxProto3,
	}
}

func scalarField(name string, number int32, t schema.PrimitiveType) *schema.Field {
	return &schema.Field{
		Name:   name,
		Number: number,
		Label:  schema.LabelOptional,
		Type:   schema.FieldType{Kind: schema.KindPrimitive, PrimitiveType: t},
	}
}
