package weave

import (
	"reflect"
	"strings"
	"unsafe"
)

// Location is where a member is stored on its parent node.
type Location uint8

const (
	// Auto resolves to Attribute for primitives and enums, SubNode otherwise.
	Auto Location = iota
	// Attribute stores the member as a regular attribute.
	Attribute
	// SubNode stores the member as a named child node.
	SubNode
)

func (l Location) String() string {
	switch l {
	case Attribute:
		return "attribute"
	case SubNode:
		return "node"
	default:
		return "auto"
	}
}

// Inclusion controls whether a member is written.
type Inclusion uint8

const (
	// Serialize writes the member unless it is nil and nulls are disabled.
	Serialize Inclusion = iota
	// SerializeAlways writes the member even when nil.
	SerializeAlways
	// Ignore drops the member from the model entirely.
	Ignore
)

func (i Inclusion) String() string {
	switch i {
	case SerializeAlways:
		return "always"
	case Ignore:
		return "ignore"
	default:
		return "serialize"
	}
}

// MemberOptions is the metadata of one member. A registry override replaces
// the member's graph tag entirely; an empty Name keeps the Go field name.
type MemberOptions struct {
	Name      string
	Location  Location
	Inclusion Inclusion
	ReadOnly  bool
}

// Member describes how one struct field is serialized. Members are owned by
// their Model and never change after it is built.
type Member struct {
	Name      string       // logical name on the node
	Field     string       // Go field name
	Index     []int        // reflect field index
	Type      reflect.Type // declared field type
	Location  Location     // resolved, never Auto
	Inclusion Inclusion
	ReadOnly  bool
	CtorArg   int // constructor parameter index, -1 when unbound
	Category  Category
	Elem      reflect.Type // container element type, if any
	Key       reflect.Type // dictionary key type, if any
	exported  bool
}

// Scalar reports whether the member's declared type is written as text.
func (m *Member) Scalar() bool {
	return m.Category.Scalar()
}

// field returns the member's field in struct value v. Unexported fields are
// made readable and settable through their address; v must be addressable
// for that.
func (m *Member) field(v reflect.Value) reflect.Value {
	f := v.FieldByIndex(m.Index)
	if m.exported || !f.CanAddr() {
		return f
	}
	return reflect.NewAt(f.Type(), unsafe.Pointer(f.UnsafeAddr())).Elem()
}

// skipOnEncode reports whether a read-only member carries nothing the decoder
// could restore.
func (m *Member) skipOnEncode(cfg *Config) bool {
	return m.ReadOnly && m.CtorArg < 0 && !cfg.SerializeReadOnly
}

// validMemberName rejects names that collide with reserved document keys.
func validMemberName(name string) bool {
	if name == "" {
		return false
	}
	return !strings.HasPrefix(name, DocSystemPrefix) &&
		!strings.HasPrefix(name, DocAttrPrefix) &&
		!strings.HasPrefix(name, "#")
}

// resolveLocation turns Auto into a concrete location for the category.
func resolveLocation(loc Location, cat Category) Location {
	if loc != Auto {
		return loc
	}
	if cat.Scalar() {
		return Attribute
	}
	return SubNode
}
