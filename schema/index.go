package schema

import "sort"

type messageIndex struct {
	byNumber map[int32]*Field
	byName   map[string]*Field
	byJSON   map[string]*Field
	oneofOf  map[int32]*Oneof
	ordered  []*Field
}

func (m *Message) idx() *messageIndex {
	m.once.Do(func() {
		ix := &messageIndex{
			byNumber: make(map[int32]*Field),
			byName:   make(map[string]*Field),
			byJSON:   make(map[string]*Field),
			oneofOf:  make(map[int32]*Oneof),
		}
		add := func(f *Field) {
			// First declaration wins; duplicates are reported by Validate.
			if _, ok := ix.byNumber[f.Number]; !ok {
				ix.byNumber[f.Number] = f
				ix.ordered = append(ix.ordered, f)
			}
			if _, ok := ix.byName[f.Name]; !ok {
				ix.byName[f.Name] = f
			}
			if _, ok := ix.byJSON[JSONName(f)]; !ok {
				ix.byJSON[JSONName(f)] = f
			}
		}
		for _, f := range m.Fields {
			add(f)
		}
		for _, o := range m.OneofGroups {
			for _, f := range o.Fields {
				add(f)
				if _, ok := ix.oneofOf[f.Number]; !ok {
					ix.oneofOf[f.Number] = o
				}
			}
		}
		sort.SliceStable(ix.ordered, func(i, j int) bool {
			return ix.ordered[i].Number < ix.ordered[j].Number
		})
		m.index = ix
	})
	return m.index
}

// FieldByNumber finds a field, oneof members included, by its number.
func (m *Message) FieldByNumber(n int32) *Field {
	return m.idx().byNumber[n]
}

// FieldByName finds a field by its proto name, falling back to its JSON name.
func (m *Message) FieldByName(name string) *Field {
	ix := m.idx()
	if f, ok := ix.byName[name]; ok {
		return f
	}
	return ix.byJSON[name]
}

// OrderedFields returns every field, oneof members included, in ascending
// field-number order. The returned slice is shared and must not be modified.
func (m *Message) OrderedFields() []*Field {
	return m.idx().ordered
}

// OneofOf returns the oneof group f belongs to, or nil.
func (m *Message) OneofOf(f *Field) *Oneof {
	if f == nil {
		return nil
	}
	return m.idx().oneofOf[f.Number]
}

// RequiredFields returns the proto2 required fields in field-number order.
func (m *Message) RequiredFields() []*Field {
	var out []*Field
	for _, f := range m.OrderedFields() {
		if f.Label == LabelRequired {
			out = append(out, f)
		}
	}
	return out
}

// TypeName returns the fully-qualified name when known, else the short name.
func (m *Message) TypeName() string {
	if m.FullName != "" {
		return m.FullName
	}
	return m.Name
}

// JSONName returns the field's JSON name: the explicit json_name when present,
// otherwise the lowerCamelCase form of the proto name.
func JSONName(f *Field) string {
	if f.JsonName != "" {
		return f.JsonName
	}
	return toLowerCamel(f.Name)
}

// toLowerCamel converts snake_case to lowerCamelCase
func toLowerCamel(s string) string {
	if s == "" {
		return s
	}
	out := make([]byte, 0, len(s))
	upperNext := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '_' {
			upperNext = true
			continue
		}
		if len(out) == 0 {
			// first rune lowercased
			if c >= 'A' && c <= 'Z' {
				c = c - 'A' + 'a'
			}
			out = append(out, c)
			upperNext = false
			continue
		}
		if upperNext {
			if c >= 'a' && c <= 'z' {
				c = c - 'a' + 'A'
			}
			upperNext = false
		}
		out = append(out, c)
	}
	return string(out)
}
