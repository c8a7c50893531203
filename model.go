package weave

import (
	"fmt"
	"reflect"
)

// Model is the cached serialization plan for one type. Models are built once
// per Engine and never change afterwards.
type Model struct {
	Type     reflect.Type // pointer-stripped type
	Category Category
	Elem     reflect.Type // container element type
	Key      reflect.Type // dictionary key type
	Rank     int          // array rank
	Members  []*Member

	info        *typeInfo
	codec       TypeCodec
	selfDesc    bool
	ctor        *ctorPlan
	unexported  bool
	fingerprint string
}

// CodecBound reports whether a registered TypeCodec handles the type.
func (m *Model) CodecBound() bool {
	return m.codec != nil
}

// SelfDescribing reports whether the type implements both graph hooks.
func (m *Model) SelfDescribing() bool {
	return m.selfDesc
}

// Fingerprint returns a hex BLAKE2b-256 digest of the model layout.
func (m *Model) Fingerprint() string {
	return m.fingerprint
}

// Member returns the member with the given logical name.
func (m *Model) Member(name string) (*Member, bool) {
	for _, mem := range m.Members {
		if mem.Name == name {
			return mem, true
		}
	}
	return nil, false
}

// ConstructorParams returns the parameter sources of the selected
// constructor, or nil when the zero value is used.
func (m *Model) ConstructorParams() []ParamSource {
	if !m.ctor.constructed() {
		return nil
	}
	out := make([]ParamSource, len(m.ctor.params))
	for i, p := range m.ctor.params {
		out[i] = p.Source
	}
	return out
}

// buildModel creates the model for t: codec binding first, then the
// self-describing check, then member scan and constructor selection.
func buildModel(reg *Registry, cfg *Config, t reflect.Type) (*Model, error) {
	info := classify(t, reg.isEnum)
	m := &Model{
		Type:     t,
		Category: info.category,
		Elem:     info.elem,
		Key:      info.key,
		Rank:     info.rank,
		info:     info,
		ctor:     &ctorPlan{},
	}

	if c := reg.codec(t); c != nil {
		m.codec = c
		m.fingerprint = fingerprint(m)
		return m, nil
	}
	m.selfDesc = selfDescribing(t)
	if m.selfDesc || info.category != Opaque {
		m.fingerprint = fingerprint(m)
		return m, nil
	}

	if t.Kind() == reflect.Struct {
		members, err := scanMembers(reg, cfg, t)
		if err != nil {
			return nil, err
		}
		m.Members = members
	}

	plan, err := selectConstructor(t.String(), reg.constructors(t), m.Members)
	if err != nil {
		return nil, err
	}
	for i, p := range plan.params {
		if p.Source == SourceMember && m.Members[p.Member].CtorArg < 0 {
			m.Members[p.Member].CtorArg = i
		}
	}
	m.ctor = plan

	for _, mem := range m.Members {
		if !mem.exported {
			m.unexported = true
		}
	}
	m.fingerprint = fingerprint(m)
	return m, nil
}

// scanMembers enumerates struct fields in declaration order. A registry
// override wins over the graph tag, which wins over defaults.
func scanMembers(reg *Registry, cfg *Config, t reflect.Type) ([]*Member, error) {
	members := make([]*Member, 0, t.NumField())
	seen := make(map[string]bool, t.NumField())

	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if !sf.IsExported() && !cfg.IncludeUnexported {
			continue
		}

		var opts MemberOptions
		if ov, ok := reg.memberOverride(t, sf.Name); ok {
			opts = ov
		} else if tag, ok := declaredTag(t, sf); ok {
			if bad, ok := parseTag(tag, &opts); !ok {
				return nil, newConfigError(ErrInvalidTag, t.String(), sf.Name, fmt.Sprintf("unknown option %q", bad))
			}
		}
		if opts.Inclusion == Ignore {
			continue
		}

		info := classify(sf.Type, reg.isEnum)
		if info.category == Unsupported {
			continue
		}

		name := opts.Name
		if name == "" {
			name = sf.Name
		}
		if !validMemberName(name) {
			return nil, newConfigError(ErrInvalidMemberName, t.String(), sf.Name, name)
		}
		if seen[name] {
			return nil, newConfigError(ErrInvalidMemberName, t.String(), sf.Name, fmt.Sprintf("duplicate name %q", name))
		}
		seen[name] = true

		if opts.Location == Attribute && !info.category.Scalar() {
			return nil, newConfigError(ErrAttributeLocation, t.String(), name, info.category.String())
		}

		members = append(members, &Member{
			Name:      name,
			Field:     sf.Name,
			Index:     sf.Index,
			Type:      sf.Type,
			Location:  resolveLocation(opts.Location, info.category),
			Inclusion: opts.Inclusion,
			ReadOnly:  opts.ReadOnly,
			CtorArg:   -1,
			Category:  info.category,
			Elem:      info.elem,
			Key:       info.key,
			exported:  sf.IsExported(),
		})
	}
	return members, nil
}
