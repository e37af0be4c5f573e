// Package protocodec encodes, decodes, verifies and converts protobuf messages
// described by runtime schemas, without generated code.
package protocodec

import (
	"fmt"
	"reflect"
	"strings"
	"unicode"

	"github.com/rs/zerolog"
	"google.golang.org/protobuf/types/descriptorpb"

	"github.com/anirudhraja/protocodec/convert"
	"github.com/anirudhraja/protocodec/message"
	"github.com/anirudhraja/protocodec/registry"
	"github.com/anirudhraja/protocodec/schema"
	"github.com/anirudhraja/protocodec/wire"
)

// ===== SCHEMA-AWARE API =====

// Protocodec provides schema-aware protobuf operations without generated code.
// Schemas are loaded first; the first Encode or Decode freezes the registry,
// after which a Protocodec is safe for concurrent use.
type Protocodec struct {
	registry *registry.Registry
	config   wire.Config
	logger   zerolog.Logger
}

// New creates a new Protocodec instance
func New(opts ...Option) *Protocodec {
	o := options{
		config: wire.DefaultConfig(),
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	regOpts := append([]registry.Option{registry.WithLogger(o.logger)}, o.registry...)
	return &Protocodec{
		registry: registry.NewRegistry(regOpts...),
		config:   o.config,
		logger:   o.logger,
	}
}

// LoadRepo loads a protobuf repository (collection of .proto files)
func (p *Protocodec) LoadRepo(repo *schema.ProtoRepo) error {
	return p.registry.LoadRepo(repo)
}

// LoadSchema loads a .proto file, or every .proto file under a directory.
func (p *Protocodec) LoadSchema(protoPath string) error {
	if err := p.registry.LoadSchema(protoPath); err != nil {
		return err
	}
	p.logger.Info().Str("path", protoPath).Int("messages", len(p.registry.ListMessages())).Msg("schema loaded")
	return nil
}

// LoadDescriptorSet loads the files of a compiled FileDescriptorSet.
func (p *Protocodec) LoadDescriptorSet(set *descriptorpb.FileDescriptorSet) error {
	if err := p.registry.LoadDescriptorSet(set); err != nil {
		return err
	}
	p.logger.Info().Int("files", len(set.GetFile())).Int("messages", len(p.registry.ListMessages())).Msg("descriptor set loaded")
	return nil
}

func (p *Protocodec) descriptor(messageType string) (*schema.Message, error) {
	desc, err := p.registry.GetMessage(messageType)
	if err != nil {
		return nil, fmt.Errorf("message type not found: %s: %w", messageType, err)
	}
	return desc, nil
}

// NewMessage creates an empty message of the named type.
func (p *Protocodec) NewMessage(messageType string) (*message.Message, error) {
	desc, err := p.descriptor(messageType)
	if err != nil {
		return nil, err
	}
	return message.New(desc, p.registry), nil
}

// Encode writes m in the protobuf binary format.
func (p *Protocodec) Encode(m *message.Message) ([]byte, error) {
	p.registry.Freeze()
	return wire.EncodeMessage(m, p.config)
}

// Decode parses protobuf bytes as a message of the named type.
func (p *Protocodec) Decode(data []byte, messageType string) (*message.Message, error) {
	desc, err := p.descriptor(messageType)
	if err != nil {
		return nil, err
	}
	p.registry.Freeze()
	return wire.DecodeMessage(data, desc, p.registry, p.config)
}

// Verify checks a plain object against the named type. See convert.Verify.
func (p *Protocodec) Verify(obj interface{}, messageType string) error {
	desc, err := p.descriptor(messageType)
	if err != nil {
		return err
	}
	return convert.Verify(obj, desc, p.registry)
}

// VerifyJSON parses data as JSON and verifies it against the named type.
func (p *Protocodec) VerifyJSON(data []byte, messageType string) error {
	obj, err := convert.ParseJSON(data)
	if err != nil {
		return err
	}
	return p.Verify(obj, messageType)
}

// FromObject builds a message of the named type from a plain object.
func (p *Protocodec) FromObject(obj interface{}, messageType string) (*message.Message, error) {
	desc, err := p.descriptor(messageType)
	if err != nil {
		return nil, err
	}
	return convert.FromObject(obj, desc, p.registry)
}

// ToObject converts m to a plain object.
func (p *Protocodec) ToObject(m *message.Message, opts convert.ToObjectOptions) map[string]interface{} {
	return convert.ToObject(m, opts)
}

// ToJSON converts m to its JSON-ready plain object.
func (p *Protocodec) ToJSON(m *message.Message) map[string]interface{} {
	return convert.ToJSON(m)
}

// MarshalJSON serializes m as JSON.
func (p *Protocodec) MarshalJSON(m *message.Message) ([]byte, error) {
	return convert.MarshalJSON(m)
}

// UnmarshalJSON parses JSON into a message of the named type.
func (p *Protocodec) UnmarshalJSON(data []byte, messageType string) (*message.Message, error) {
	desc, err := p.descriptor(messageType)
	if err != nil {
		return nil, err
	}
	return convert.UnmarshalJSON(data, desc, p.registry)
}

// Marshal encodes a plain object to protobuf bytes using schema information
func (p *Protocodec) Marshal(data map[string]interface{}, messageType string) ([]byte, error) {
	m, err := p.FromObject(data, messageType)
	if err != nil {
		return nil, err
	}
	return p.Encode(m)
}

// Parse decodes protobuf bytes into a plain object carrying every field,
// defaults included.
func (p *Protocodec) Parse(data []byte, messageType string) (map[string]interface{}, error) {
	m, err := p.Decode(data, messageType)
	if err != nil {
		return nil, err
	}
	return convert.ToObject(m, convert.ToObjectOptions{Defaults: true}), nil
}

// Unmarshal decodes protobuf bytes into a Go struct using reflection. The
// message type is the struct's type name; fields match by json tag, then by
// the snake_case form of the Go field name, then by the Go name itself.
func (p *Protocodec) Unmarshal(data []byte, v interface{}) error {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Ptr || rv.IsNil() || rv.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("unmarshal target must be a pointer to struct")
	}

	messageType := rv.Elem().Type().Name()
	result, err := p.Parse(data, messageType)
	if err != nil {
		return err
	}

	return p.mapToStruct(result, v)
}

// mapToStruct maps parsed result to struct fields
func (p *Protocodec) mapToStruct(data map[string]interface{}, v interface{}) error {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Ptr || rv.IsNil() || rv.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("target must be a non-nil pointer to struct, got %T", v)
	}
	return p.fillStruct(data, rv.Elem())
}

func (p *Protocodec) fillStruct(data map[string]interface{}, rv reflect.Value) error {
	rt := rv.Type()
	for i := 0; i < rt.NumField(); i++ {
		field := rt.Field(i)
		fieldValue := rv.Field(i)

		if !fieldValue.CanSet() {
			continue
		}

		value, ok := lookupStructField(data, field)
		if !ok {
			continue
		}
		if err := p.setFieldValue(fieldValue, value); err != nil {
			return fmt.Errorf("failed to set field %s: %w", field.Name, err)
		}
	}
	return nil
}

func lookupStructField(data map[string]interface{}, field reflect.StructField) (interface{}, bool) {
	if tag, _, _ := strings.Cut(field.Tag.Get("json"), ","); tag != "" && tag != "-" {
		if v, ok := data[tag]; ok {
			return v, true
		}
	}
	if v, ok := data[toSnakeCase(field.Name)]; ok {
		return v, true
	}
	v, ok := data[field.Name]
	return v, ok
}

// setFieldValue sets a struct field with type conversion
func (p *Protocodec) setFieldValue(fieldValue reflect.Value, value interface{}) error {
	if value == nil {
		return nil
	}

	sourceValue := reflect.ValueOf(value)
	target := fieldValue.Type()
	if sourceValue.Type().AssignableTo(target) {
		fieldValue.Set(sourceValue)
		return nil
	}

	switch x := value.(type) {
	case map[string]interface{}:
		switch {
		case target.Kind() == reflect.Struct:
			return p.fillStruct(x, fieldValue)
		case target.Kind() == reflect.Ptr && target.Elem().Kind() == reflect.Struct:
			ptr := reflect.New(target.Elem())
			if err := p.fillStruct(x, ptr.Elem()); err != nil {
				return err
			}
			fieldValue.Set(ptr)
			return nil
		case target.Kind() == reflect.Map && target.Key().Kind() == reflect.String:
			out := reflect.MakeMapWithSize(target, len(x))
			for k, ev := range x {
				elem := reflect.New(target.Elem()).Elem()
				if err := p.setFieldValue(elem, ev); err != nil {
					return fmt.Errorf("[%s]: %w", k, err)
				}
				out.SetMapIndex(reflect.ValueOf(k).Convert(target.Key()), elem)
			}
			fieldValue.Set(out)
			return nil
		}
	case []interface{}:
		if target.Kind() == reflect.Slice {
			out := reflect.MakeSlice(target, len(x), len(x))
			for i, ev := range x {
				if err := p.setFieldValue(out.Index(i), ev); err != nil {
					return fmt.Errorf("[%d]: %w", i, err)
				}
			}
			fieldValue.Set(out)
			return nil
		}
	}

	if isNumeric(sourceValue.Kind()) && isNumeric(target.Kind()) {
		fieldValue.Set(sourceValue.Convert(target))
		return nil
	}
	if sourceValue.Type().ConvertibleTo(target) && sourceValue.Kind() == target.Kind() {
		fieldValue.Set(sourceValue.Convert(target))
		return nil
	}

	return fmt.Errorf("cannot convert %T to %s", value, target)
}

func isNumeric(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

// toSnakeCase converts a Go identifier to snake_case, keeping acronyms
// together: UserID -> user_id, XMLParser -> xml_parser.
func toSnakeCase(s string) string {
	runes := []rune(s)
	var b strings.Builder
	for i, r := range runes {
		if unicode.IsUpper(r) {
			if i > 0 {
				prevLower := unicode.IsLower(runes[i-1]) || unicode.IsDigit(runes[i-1])
				nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
				if prevLower || (unicode.IsUpper(runes[i-1]) && nextLower) {
					b.WriteByte('_')
				}
			}
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// ===== REGISTRY ACCESS =====

func (p *Protocodec) Registry() *registry.Registry { return p.registry }
func (p *Protocodec) Config() wire.Config          { return p.config }
func (p *Protocodec) ListMessages() []string       { return p.registry.ListMessages() }
func (p *Protocodec) ListEnums() []string          { return p.registry.ListEnums() }
func (p *Protocodec) ListServices() []string       { return p.registry.ListServices() }
