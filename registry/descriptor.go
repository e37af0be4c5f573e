package registry

import (
	"fmt"
	"strconv"
	"unicode/utf8"

	"google.golang.org/protobuf/types/descriptorpb"

	"github.com/anirudhraja/protocodec/schema"
)

var descriptorScalars = map[descriptorpb.FieldDescriptorProto_Type]schema.PrimitiveType{
	descriptorpb.FieldDescriptorProto_TYPE_DOUBLE:   schema.TypeDouble,
	descriptorpb.FieldDescriptorProto_TYPE_FLOAT:    schema.TypeFloat,
	descriptorpb.FieldDescriptorProto_TYPE_INT64:    schema.TypeInt64,
	descriptorpb.FieldDescriptorProto_TYPE_UINT64:   schema.TypeUint64,
	descriptorpb.FieldDescriptorProto_TYPE_INT32:    schema.TypeInt32,
	descriptorpb.FieldDescriptorProto_TYPE_FIXED64:  schema.TypeFixed64,
	descriptorpb.FieldDescriptorProto_TYPE_FIXED32:  schema.TypeFixed32,
	descriptorpb.FieldDescriptorProto_TYPE_BOOL:     schema.TypeBool,
	descriptorpb.FieldDescriptorProto_TYPE_STRING:   schema.TypeString,
	descriptorpb.FieldDescriptorProto_TYPE_BYTES:    schema.TypeBytes,
	descriptorpb.FieldDescriptorProto_TYPE_UINT32:   schema.TypeUint32,
	descriptorpb.FieldDescriptorProto_TYPE_SFIXED32: schema.TypeSfixed32,
	descriptorpb.FieldDescriptorProto_TYPE_SFIXED64: schema.TypeSfixed64,
	descriptorpb.FieldDescriptorProto_TYPE_SINT32:   schema.TypeSint32,
	descriptorpb.FieldDescriptorProto_TYPE_SINT64:   schema.TypeSint64,
}

// LoadDescriptorSet registers the files of a compiled descriptor set, as
// produced by protoc --descriptor_set_out or buf build. Files for the built-in
// well-known types are skipped.
func (r *Registry) LoadDescriptorSet(set *descriptorpb.FileDescriptorSet) error {
	repo := &schema.ProtoRepo{ProtoFiles: make(map[string]*schema.ProtoFile)}
	for _, fd := range set.GetFile() {
		if IsWellKnownFile(fd.GetName()) {
			continue
		}
		pf, err := convertFileDescriptor(fd)
		if err != nil {
			return fmt.Errorf("%s: %w", fd.GetName(), err)
		}
		repo.ProtoFiles[pf.Name] = pf
	}
	return r.LoadRepo(repo)
}

func convertFileDescriptor(fd *descriptorpb.FileDescriptorProto) (*schema.ProtoFile, error) {
	pf := &schema.ProtoFile{
		Name:    fd.GetName(),
		Package: fd.GetPackage(),
		Syntax:  schema.SyntaxProto2,
	}
	// editions default to packed repeated scalars like proto3
	if fd.GetSyntax() == schema.SyntaxProto3 || fd.GetSyntax() == "editions" {
		pf.Syntax = schema.SyntaxProto3
	}

	public := make(map[int32]bool)
	for _, i := range fd.GetPublicDependency() {
		public[i] = true
	}
	weak := make(map[int32]bool)
	for _, i := range fd.GetWeakDependency() {
		weak[i] = true
	}
	for i, dep := range fd.GetDependency() {
		pf.Imports = append(pf.Imports, &schema.Import{Path: dep, Public: public[int32(i)], Weak: weak[int32(i)]})
	}

	scope := "." + fd.GetPackage()
	if fd.GetPackage() == "" {
		scope = ""
	}
	for _, md := range fd.GetMessageType() {
		m, err := convertDescriptor(md, scope, pf.Syntax)
		if err != nil {
			return nil, err
		}
		pf.Messages = append(pf.Messages, m)
	}
	for _, ed := range fd.GetEnumType() {
		pf.Enums = append(pf.Enums, convertEnumDescriptor(ed))
	}
	for _, sd := range fd.GetService() {
		s := &schema.Service{Name: sd.GetName()}
		for _, md := range sd.GetMethod() {
			s.Methods = append(s.Methods, &schema.Method{
				Name:            md.GetName(),
				InputType:       md.GetInputType(),
				OutputType:      md.GetOutputType(),
				ClientStreaming: md.GetClientStreaming(),
				ServerStreaming: md.GetServerStreaming(),
			})
		}
		pf.Services = append(pf.Services, s)
	}
	return pf, nil
}

// convertDescriptor converts one message. scope is the dotted name of the
// enclosing package or message, used to recognize synthetic map entry types.
func convertDescriptor(md *descriptorpb.DescriptorProto, scope, syntax string) (*schema.Message, error) {
	fullName := scope + "." + md.GetName()
	m := &schema.Message{
		Name:     md.GetName(),
		MapEntry: md.GetOptions().GetMapEntry(),
	}

	mapEntries := make(map[string]*descriptorpb.DescriptorProto)
	for _, nested := range md.GetNestedType() {
		if nested.GetOptions().GetMapEntry() {
			mapEntries[fullName+"."+nested.GetName()] = nested
			continue
		}
		nm, err := convertDescriptor(nested, fullName, syntax)
		if err != nil {
			return nil, err
		}
		m.NestedTypes = append(m.NestedTypes, nm)
	}
	for _, ed := range md.GetEnumType() {
		m.NestedEnums = append(m.NestedEnums, convertEnumDescriptor(ed))
	}

	// proto3 optional fields sit in synthetic oneofs that carry no group semantics
	synthetic := make(map[int32]bool)
	for _, fd := range md.GetField() {
		if fd.GetProto3Optional() && fd.OneofIndex != nil {
			synthetic[fd.GetOneofIndex()] = true
		}
	}
	groups := make(map[int32]*schema.Oneof)
	for i, od := range md.GetOneofDecl() {
		if synthetic[int32(i)] {
			continue
		}
		o := &schema.Oneof{Name: od.GetName()}
		groups[int32(i)] = o
		m.OneofGroups = append(m.OneofGroups, o)
	}

	for _, fd := range md.GetField() {
		f, err := convertFieldDescriptor(fd, syntax, mapEntries)
		if err != nil {
			return nil, fmt.Errorf("%s.%s: %w", md.GetName(), fd.GetName(), err)
		}
		if fd.OneofIndex != nil {
			if o, ok := groups[fd.GetOneofIndex()]; ok {
				o.Fields = append(o.Fields, f)
				continue
			}
		}
		m.Fields = append(m.Fields, f)
	}
	return m, nil
}

func convertFieldDescriptor(fd *descriptorpb.FieldDescriptorProto, syntax string, mapEntries map[string]*descriptorpb.DescriptorProto) (*schema.Field, error) {
	f := &schema.Field{
		Name:         fd.GetName(),
		Number:       fd.GetNumber(),
		Label:        schema.LabelOptional,
		DefaultValue: fd.GetDefaultValue(),
		JsonName:     fd.GetJsonName(),
	}

	if entry, ok := mapEntries[fd.GetTypeName()]; ok {
		ft, err := mapTypeFromEntry(entry)
		if err != nil {
			return nil, err
		}
		f.Type = ft
		return f, nil
	}

	ft, err := descriptorFieldType(fd)
	if err != nil {
		return nil, err
	}
	f.Type = ft

	// bytes defaults arrive C-escaped; string defaults are stored verbatim
	if ft.Kind == schema.KindPrimitive && ft.PrimitiveType == schema.TypeBytes && f.DefaultValue != "" {
		raw, err := unescapeBytes(f.DefaultValue)
		if err != nil {
			return nil, fmt.Errorf("field %s: invalid bytes default %q: %w", f.Name, f.DefaultValue, err)
		}
		f.DefaultValue = string(raw)
	}

	switch fd.GetLabel() {
	case descriptorpb.FieldDescriptorProto_LABEL_REQUIRED:
		f.Label = schema.LabelRequired
	case descriptorpb.FieldDescriptorProto_LABEL_REPEATED:
		f.Label = schema.LabelRepeated
		if f.Packable() && packedByDefault(syntax, fd.GetOptions()) {
			f.Label = schema.LabelPacked
		}
	}
	return f, nil
}

func packedByDefault(syntax string, opts *descriptorpb.FieldOptions) bool {
	if opts != nil && opts.Packed != nil {
		return opts.GetPacked()
	}
	return syntax == schema.SyntaxProto3
}

func descriptorFieldType(fd *descriptorpb.FieldDescriptorProto) (schema.FieldType, error) {
	switch fd.GetType() {
	case descriptorpb.FieldDescriptorProto_TYPE_MESSAGE:
		return schema.FieldType{Kind: schema.KindMessage, MessageType: fd.GetTypeName()}, nil
	case descriptorpb.FieldDescriptorProto_TYPE_ENUM:
		return schema.FieldType{Kind: schema.KindEnum, EnumType: fd.GetTypeName()}, nil
	case descriptorpb.FieldDescriptorProto_TYPE_GROUP:
		return schema.FieldType{}, fmt.Errorf("group fields are not supported")
	}
	t, ok := descriptorScalars[fd.GetType()]
	if !ok {
		return schema.FieldType{}, fmt.Errorf("unknown field type %v", fd.GetType())
	}
	return schema.FieldType{Kind: schema.KindPrimitive, PrimitiveType: t}, nil
}

func mapTypeFromEntry(entry *descriptorpb.DescriptorProto) (schema.FieldType, error) {
	var key, value *schema.FieldType
	for _, fd := range entry.GetField() {
		ft, err := descriptorFieldType(fd)
		if err != nil {
			return schema.FieldType{}, err
		}
		switch fd.GetNumber() {
		case 1:
			key = &ft
		case 2:
			value = &ft
		}
	}
	if key == nil || value == nil {
		return schema.FieldType{}, fmt.Errorf("map entry %s lacks key or value", entry.GetName())
	}
	return schema.FieldType{Kind: schema.KindMap, MapKey: key, MapValue: value}, nil
}

func convertEnumDescriptor(ed *descriptorpb.EnumDescriptorProto) *schema.Enum {
	e := &schema.Enum{
		Name:       ed.GetName(),
		AllowAlias: ed.GetOptions().GetAllowAlias(),
	}
	for _, vd := range ed.GetValue() {
		e.Values = append(e.Values, &schema.EnumValue{Name: vd.GetName(), Number: vd.GetNumber()})
	}
	return e
}

// unescapeBytes reverses the C escaping protoc applies to bytes defaults.
func unescapeBytes(s string) ([]byte, error) {
	out := make([]byte, 0, len(s))
	for len(s) > 0 {
		switch {
		case s[0] != '\\':
			out = append(out, s[0])
			s = s[1:]
			continue
		case len(s) > 1 && (s[1] == '\'' || s[1] == '"' || s[1] == '?'):
			out = append(out, s[1])
			s = s[2:]
			continue
		}
		value, _, tail, err := strconv.UnquoteChar(s, 0)
		if err != nil {
			return nil, err
		}
		if value > 0xff {
			out = utf8.AppendRune(out, value)
		} else {
			out = append(out, byte(value))
		}
		s = tail
	}
	return out, nil
}
