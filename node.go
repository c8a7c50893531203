package weave

// Namespace separates engine-owned attributes from member attributes so that
// reserved keys never collide with user field names.
type Namespace uint8

const (
	// Regular holds attributes written for members.
	Regular Namespace = iota
	// System holds attributes written by the engine itself.
	System
)

// Reserved system attribute keys.
const (
	KeyType  = "type"  // runtime type marker
	KeyRef   = "ref"   // back-reference to an earlier id
	KeyID    = "id"    // identity of a tracked object
	KeyFlags = "flags" // features used by the encoded graph
	KeyRank  = "rank"  // array rank
	KeyNull  = "null"  // explicit nil
)

// Node is one node of a target format: an XML element, a JSON object, a YAML
// mapping. The engine reads and writes exclusively through this interface.
//
// Carriers without native attributes synthesize them, typically as specially
// named children.
type Node interface {
	// Name returns the node's name within its parent.
	Name() string

	// SetAttribute writes a named scalar in the given namespace.
	SetAttribute(ns Namespace, name, value string)

	// Attribute reads a named scalar in the given namespace.
	Attribute(ns Namespace, name string) (string, bool)

	// AddChild appends a named child node and returns it.
	AddChild(name string) Node

	// Child returns the first child with the given name.
	Child(name string) (Node, bool)

	// SetValue sets the node's own scalar value.
	SetValue(value string)

	// Value returns the node's own scalar value.
	Value() (string, bool)

	// AppendElement appends an unnamed array element. The element's concrete
	// type need not be known yet; the engine writes markers into it afterwards.
	AppendElement() Node

	// Elements returns the array elements in order.
	Elements() []Node

	// ReverseElements returns the array elements in reverse order.
	ReverseElements() []Node
}

// Flags declares which optional features an encoded graph actually used, so
// the decoder can skip checks for the rest.
type Flags uint8

const (
	// FlagContainers marks that arrays or containers were written.
	FlagContainers Flags = 1 << iota
	// FlagReferences marks that ids or back-references were written.
	FlagReferences
	// FlagUnexported marks that unexported members were included.
	FlagUnexported
	// FlagTypes marks that type markers were written.
	FlagTypes
)

// FlagsAll is assumed when a graph carries no flags attribute.
const FlagsAll = FlagContainers | FlagReferences | FlagUnexported | FlagTypes

// Has reports whether all bits in f2 are set.
func (f Flags) Has(f2 Flags) bool {
	return f&f2 == f2
}
