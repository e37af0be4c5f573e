package registry

import (
	"fmt"
	"strings"

	"github.com/anirudhraja/protocodec/schema"
)

// symbols is the staging view of every type name visible to a load.
type symbols struct {
	messages map[string]*schema.Message
	enums    map[string]*schema.Enum
	services map[string]*schema.Service
	all      map[string]struct{}
}

func newSymbols(r *Registry) *symbols {
	st := &symbols{
		messages: make(map[string]*schema.Message, len(r.messages)),
		enums:    make(map[string]*schema.Enum, len(r.enums)),
		services: make(map[string]*schema.Service, len(r.services)),
		all:      make(map[string]struct{}, len(r.messages)+len(r.enums)),
	}
	for k, v := range r.messages {
		st.messages[k] = v
		st.all[k] = struct{}{}
	}
	for k, v := range r.enums {
		st.enums[k] = v
		st.all[k] = struct{}{}
	}
	for k, v := range r.services {
		st.services[k] = v
	}
	return st
}

func (st *symbols) addMessage(fullName string, m *schema.Message) error {
	if _, ok := st.all[fullName]; ok {
		return fmt.Errorf("duplicate type name: %s", fullName)
	}
	m.FullName = fullName
	st.messages[fullName] = m
	st.all[fullName] = struct{}{}
	return nil
}

func (st *symbols) addEnum(fullName string, e *schema.Enum) error {
	if _, ok := st.all[fullName]; ok {
		return fmt.Errorf("duplicate type name: %s", fullName)
	}
	e.FullName = fullName
	st.enums[fullName] = e
	st.all[fullName] = struct{}{}
	return nil
}

// resolveMessage rewrites every type reference in m and its nested types to a
// fully-qualified name, and fixes the kind of references that turned out to
// name an enum.
func (st *symbols) resolveMessage(m *schema.Message) error {
	for _, f := range m.Fields {
		if err := st.resolveFieldType(&f.Type, m.FullName); err != nil {
			return fmt.Errorf("%s.%s: %w", m.FullName, f.Name, err)
		}
		if f.IsPacked() && f.Type.Kind == schema.KindMessage {
			f.Label = schema.LabelRepeated
		}
	}
	for _, o := range m.OneofGroups {
		for _, f := range o.Fields {
			if err := st.resolveFieldType(&f.Type, m.FullName); err != nil {
				return fmt.Errorf("%s.%s: %w", m.FullName, f.Name, err)
			}
		}
	}
	for _, nested := range m.NestedTypes {
		if err := st.resolveMessage(nested); err != nil {
			return err
		}
	}
	return nil
}

func (st *symbols) resolveFieldType(ft *schema.FieldType, scope string) error {
	switch ft.Kind {
	case schema.KindMap:
		if ft.MapValue == nil {
			return nil
		}
		return st.resolveFieldType(ft.MapValue, scope)
	case schema.KindMessage, schema.KindEnum:
		name := ft.MessageType
		if ft.Kind == schema.KindEnum {
			name = ft.EnumType
		}
		if name == "" {
			return nil
		}
		full, err := getReferencedType(name, scope, st.all)
		if err != nil {
			return err
		}
		if _, ok := st.messages[full]; ok {
			ft.Kind, ft.MessageType, ft.EnumType = schema.KindMessage, full, ""
		} else {
			ft.Kind, ft.MessageType, ft.EnumType = schema.KindEnum, "", full
		}
	}
	return nil
}

func (st *symbols) resolveService(pkg string, s *schema.Service) error {
	for _, m := range s.Methods {
		in, err := getReferencedType(m.InputType, pkg, st.all)
		if err != nil {
			return fmt.Errorf("%s.%s input: %w", s.Name, m.Name, err)
		}
		out, err := getReferencedType(m.OutputType, pkg, st.all)
		if err != nil {
			return fmt.Errorf("%s.%s output: %w", s.Name, m.Name, err)
		}
		if _, ok := st.messages[in]; !ok {
			return fmt.Errorf("%s.%s input %s is not a message", s.Name, m.Name, in)
		}
		if _, ok := st.messages[out]; !ok {
			return fmt.Errorf("%s.%s output %s is not a message", s.Name, m.Name, out)
		}
		m.InputType, m.OutputType = in, out
	}
	return nil
}

/*
getReferencedType returns the fully-qualified name of a referenced type, be it
nested, file-level or imported. Scoping follows descriptor.proto: a leading dot
is absolute, otherwise the innermost enclosing scope is searched first.
Ref - https://github.com/protocolbuffers/protobuf/blob/b7a5772caf08d62a20fd1bca258f501fa4db022c/src/google/protobuf/descriptor.proto#L186-L191
*/
func getReferencedType(typeName, prefix string, allResolvedEntities map[string]struct{}) (string, error) {
	if strings.HasPrefix(typeName, ".") {
		return getFullyQualifiedType(typeName, allResolvedEntities)
	}
	if result, ok := splitNameAndCheck(typeName, prefix, allResolvedEntities); ok {
		return result, nil
	}
	if _, ok := allResolvedEntities[typeName]; ok {
		return typeName, nil
	}
	return "", fmt.Errorf("%w: unable to resolve type name %s", ErrNotFound, typeName)
}

// splitNameAndCheck appends typeName to each enclosing scope of prefix, from
// the innermost outwards, and returns the first that names a known entity.
func splitNameAndCheck(typeName, prefix string, allResolvedEntities map[string]struct{}) (string, bool) {
	prefixSplit := strings.Split(prefix, ".")

	for len(prefixSplit) > 0 && prefixSplit[0] != "" {
		entityName := strings.Join(prefixSplit, ".") + "." + typeName
		if _, ok := allResolvedEntities[entityName]; ok {
			return entityName, true
		}
		// go one level up to the outer entity
		prefixSplit = prefixSplit[:len(prefixSplit)-1]
	}
	return "", false
}

func getFullyQualifiedType(typeName string, allResolvedEntities map[string]struct{}) (string, error) {
	typeName = strings.TrimPrefix(typeName, ".")
	if _, ok := allResolvedEntities[typeName]; ok {
		return typeName, nil
	}
	return "", fmt.Errorf("%w: unable to resolve fully-qualified type name .%s", ErrNotFound, typeName)
}
