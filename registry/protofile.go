package registry

import (
	"bytes"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	protoparser "github.com/yoheimuta/go-protoparser/v4"
	protoparserparser "github.com/yoheimuta/go-protoparser/v4/parser"

	"github.com/anirudhraja/protocodec/schema"
)

// protoFileEntity records what a parsed file imports.
type protoFileEntity struct {
	path    string
	imports []string
	parsed  *protoparserparser.Proto
}

// LoadSchema recursively scans protoPath (a .proto file or a directory) and
// registers every file found, together with the files they import.
func (r *Registry) LoadSchema(protoPath string) error {
	if r.frozen.Load() {
		return ErrFrozen
	}

	info, err := os.Stat(protoPath)
	if err != nil {
		return fmt.Errorf("path does not exist: %w", err)
	}

	var roots []string
	if !info.IsDir() {
		if !strings.HasSuffix(protoPath, ".proto") {
			return fmt.Errorf("file %s is not a .proto file", protoPath)
		}
		roots = append(roots, protoPath)
	} else {
		err = filepath.WalkDir(protoPath, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			// Skip directories and non-proto files
			if d.IsDir() || !strings.HasSuffix(p, ".proto") {
				return nil
			}
			roots = append(roots, p)
			return nil
		})
		if err != nil {
			return fmt.Errorf("failed to walk directory: %w", err)
		}
	}

	entities := make(map[string]*protoFileEntity)
	for _, root := range roots {
		if err := r.getAllProtoInfo(root, entities); err != nil {
			return err
		}
	}

	repo := &schema.ProtoRepo{ProtoFiles: make(map[string]*schema.ProtoFile, len(entities))}
	for p, entity := range entities {
		pf, err := convertProto(p, entity)
		if err != nil {
			return fmt.Errorf("failed to load proto file %s: %w", p, err)
		}
		repo.ProtoFiles[p] = pf
	}
	return r.LoadRepo(repo)
}

// getAllProtoInfo uses DFS to parse protoFile and everything it imports into
// entities. Imports of the built-in google/protobuf files are not followed.
func (r *Registry) getAllProtoInfo(protoFile string, entities map[string]*protoFileEntity) error {
	var dfs func(protoFile string) error
	dfs = func(protoFile string) error {
		protoFile = filepath.Clean(protoFile)
		if _, ok := entities[protoFile]; ok {
			return nil
		}
		protoBytes, err := os.ReadFile(protoFile)
		if err != nil {
			return fmt.Errorf("failed to read file: %w", err)
		}
		parsed, err := protoparser.Parse(bytes.NewBuffer(protoBytes))
		if err != nil {
			return fmt.Errorf("failed to parse %s: %w", protoFile, err)
		}
		entity := &protoFileEntity{path: protoFile, parsed: parsed}
		entities[protoFile] = entity

		for _, body := range parsed.ProtoBody {
			imp, ok := body.(*protoparserparser.Import)
			if !ok {
				continue
			}
			importPath := strings.Trim(imp.Location, `"`)
			if IsWellKnownFile(importPath) {
				continue
			}
			fullImportPath, err := r.findIfProtoExists(importPath, filepath.Dir(protoFile))
			if err != nil {
				return err
			}
			entity.imports = append(entity.imports, fullImportPath)
			if err := dfs(fullImportPath); err != nil {
				return err
			}
		}
		r.logger.Debug().Str("file", protoFile).Int("imports", len(entity.imports)).Msg("parsed proto file")
		return nil
	}
	return dfs(protoFile)
}

// findIfProtoExists resolves an import against the configured proto
// directories, then the importing file's directory.
func (r *Registry) findIfProtoExists(protoPath, importerDir string) (string, error) {
	protoPath = strings.Trim(protoPath, `"`)
	if !strings.HasSuffix(protoPath, ".proto") {
		return "", fmt.Errorf("is not a .proto file %s", protoPath)
	}
	dirs := append(append([]string{}, r.ProtoDirectories...), importerDir)
	var lastErr error
	for _, dir := range dirs {
		fullPath := path.Join(dir, protoPath)
		_, err := os.Stat(fullPath)
		if err == nil {
			return fullPath, nil
		}
		lastErr = err
	}
	return "", fmt.Errorf("path does not exist: %s: %w", protoPath, lastErr)
}

func convertProto(name string, entity *protoFileEntity) (*schema.ProtoFile, error) {
	p := entity.parsed
	pf := &schema.ProtoFile{
		Name:   name,
		Syntax: schema.SyntaxProto2,
	}
	if p.Syntax != nil && strings.Trim(p.Syntax.ProtobufVersion, `"'`) == schema.SyntaxProto3 {
		pf.Syntax = schema.SyntaxProto3
	}

	for _, body := range p.ProtoBody {
		switch b := body.(type) {
		case *protoparserparser.Package:
			pf.Package = b.Name
		case *protoparserparser.Import:
			pf.Imports = append(pf.Imports, &schema.Import{
				Path:   strings.Trim(b.Location, `"`),
				Public: b.Modifier == protoparserparser.ImportModifierPublic,
				Weak:   b.Modifier == protoparserparser.ImportModifierWeak,
			})
		case *protoparserparser.Message:
			m, err := convertMessage(b, pf.Syntax)
			if err != nil {
				return nil, err
			}
			pf.Messages = append(pf.Messages, m)
		case *protoparserparser.Enum:
			e, err := convertEnum(b)
			if err != nil {
				return nil, err
			}
			pf.Enums = append(pf.Enums, e)
		case *protoparserparser.Service:
			pf.Services = append(pf.Services, convertService(b))
		}
	}
	return pf, nil
}

func convertMessage(pm *protoparserparser.Message, syntax string) (*schema.Message, error) {
	m := &schema.Message{Name: pm.MessageName}
	for _, body := range pm.MessageBody {
		switch b := body.(type) {
		case *protoparserparser.Field:
			f, err := convertField(b.FieldName, b.Type, b.FieldNumber, b.FieldOptions)
			if err != nil {
				return nil, fmt.Errorf("%s.%s: %w", pm.MessageName, b.FieldName, err)
			}
			switch {
			case b.IsRequired:
				f.Label = schema.LabelRequired
			case b.IsRepeated:
				f.Label = schema.LabelRepeated
				// named types may turn out to be enums; resolution unpacks messages
				named := f.Type.Kind == schema.KindMessage
				if (f.Packable() || named) && packedOption(b.FieldOptions, syntax == schema.SyntaxProto3) {
					f.Label = schema.LabelPacked
				}
			}
			m.Fields = append(m.Fields, f)
		case *protoparserparser.MapField:
			f, err := convertMapField(b)
			if err != nil {
				return nil, fmt.Errorf("%s.%s: %w", pm.MessageName, b.MapName, err)
			}
			m.Fields = append(m.Fields, f)
		case *protoparserparser.Oneof:
			o := &schema.Oneof{Name: b.OneofName}
			for _, of := range b.OneofFields {
				f, err := convertField(of.FieldName, of.Type, of.FieldNumber, of.FieldOptions)
				if err != nil {
					return nil, fmt.Errorf("%s.%s: %w", pm.MessageName, of.FieldName, err)
				}
				o.Fields = append(o.Fields, f)
			}
			m.OneofGroups = append(m.OneofGroups, o)
		case *protoparserparser.Message:
			nested, err := convertMessage(b, syntax)
			if err != nil {
				return nil, err
			}
			m.NestedTypes = append(m.NestedTypes, nested)
		case *protoparserparser.Enum:
			e, err := convertEnum(b)
			if err != nil {
				return nil, err
			}
			m.NestedEnums = append(m.NestedEnums, e)
		case *protoparserparser.Option:
			if b.OptionName == "map_entry" && b.Constant == "true" {
				m.MapEntry = true
			}
		}
	}
	return m, nil
}

// convertField builds a singular field. Non-scalar type names are recorded as
// message references; the registry rewrites those naming enums when resolving.
func convertField(name, typeName, number string, opts []*protoparserparser.FieldOption) (*schema.Field, error) {
	n, err := strconv.ParseInt(number, 0, 32)
	if err != nil {
		return nil, fmt.Errorf("invalid field number %q: %w", number, err)
	}
	f := &schema.Field{
		Name:   name,
		Number: int32(n),
		Label:  schema.LabelOptional,
		Type:   namedType(typeName),
	}
	for _, opt := range opts {
		switch opt.OptionName {
		case "default":
			f.DefaultValue = unquote(opt.Constant)
		case "json_name":
			f.JsonName = unquote(opt.Constant)
		}
	}
	return f, nil
}

func convertMapField(mf *protoparserparser.MapField) (*schema.Field, error) {
	n, err := strconv.ParseInt(mf.FieldNumber, 0, 32)
	if err != nil {
		return nil, fmt.Errorf("invalid field number %q: %w", mf.FieldNumber, err)
	}
	keyType := namedType(mf.KeyType)
	valueType := namedType(mf.Type)
	return &schema.Field{
		Name:   mf.MapName,
		Number: int32(n),
		Label:  schema.LabelOptional,
		Type: schema.FieldType{
			Kind:     schema.KindMap,
			MapKey:   &keyType,
			MapValue: &valueType,
		},
	}, nil
}

func namedType(typeName string) schema.FieldType {
	if t, ok := schema.LookupPrimitive(typeName); ok {
		return schema.FieldType{Kind: schema.KindPrimitive, PrimitiveType: t}
	}
	return schema.FieldType{Kind: schema.KindMessage, MessageType: typeName}
}

// packedOption returns the [packed = ...] option, or def when absent.
func packedOption(opts []*protoparserparser.FieldOption, def bool) bool {
	for _, opt := range opts {
		if opt.OptionName == "packed" {
			return opt.Constant == "true"
		}
	}
	return def
}

func convertEnum(pe *protoparserparser.Enum) (*schema.Enum, error) {
	e := &schema.Enum{Name: pe.EnumName}
	for _, body := range pe.EnumBody {
		switch b := body.(type) {
		case *protoparserparser.EnumField:
			n, err := strconv.ParseInt(b.Number, 0, 32)
			if err != nil {
				return nil, fmt.Errorf("%s.%s: invalid number %q: %w", pe.EnumName, b.Ident, b.Number, err)
			}
			e.Values = append(e.Values, &schema.EnumValue{Name: b.Ident, Number: int32(n)})
		case *protoparserparser.Option:
			if b.OptionName == "allow_alias" && b.Constant == "true" {
				e.AllowAlias = true
			}
		}
	}
	return e, nil
}

func convertService(ps *protoparserparser.Service) *schema.Service {
	s := &schema.Service{Name: ps.ServiceName}
	for _, body := range ps.ServiceBody {
		rpc, ok := body.(*protoparserparser.RPC)
		if !ok {
			continue
		}
		m := &schema.Method{Name: rpc.RPCName}
		if rpc.RPCRequest != nil {
			m.InputType = rpc.RPCRequest.MessageType
			m.ClientStreaming = rpc.RPCRequest.IsStream
		}
		if rpc.RPCResponse != nil {
			m.OutputType = rpc.RPCResponse.MessageType
			m.ServerStreaming = rpc.RPCResponse.IsStream
		}
		s.Methods = append(s.Methods, m)
	}
	return s
}

func unquote(s string) string {
	if u, err := strconv.Unquote(s); err == nil {
		return u
	}
	return strings.Trim(s, `"'`)
}
