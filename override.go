package weave

import "reflect"

// Override interfaces let types bypass member-by-member reflection.
//
// A TypeCodec is registered for a type from the outside. GraphMarshaler and
// GraphUnmarshaler are implemented by the type itself; a type whose pointer
// implements both is self-describing. Both receive the active Encoder or
// Decoder so nested values keep identity tracking and type markers.

// TypeCodec encodes and decodes one type in place of its model.
type TypeCodec interface {
	// EncodeGraph writes v into node. v is addressable.
	EncodeGraph(enc *Encoder, node Node, v reflect.Value) error

	// DecodeGraph reads a value of type t from node.
	DecodeGraph(dec *Decoder, node Node, t reflect.Type) (reflect.Value, error)
}

// GraphMarshaler is implemented by types that write their own node layout.
type GraphMarshaler interface {
	MarshalGraph(enc *Encoder, node Node) error
}

// GraphUnmarshaler is implemented by types that read their own node layout.
// The receiver is a freshly allocated zero value or an existing fill target.
type GraphUnmarshaler interface {
	UnmarshalGraph(dec *Decoder, node Node) error
}

var (
	graphMarshalerType   = reflect.TypeFor[GraphMarshaler]()
	graphUnmarshalerType = reflect.TypeFor[GraphUnmarshaler]()
)

// selfDescribing reports whether *t implements both graph hooks.
func selfDescribing(t reflect.Type) bool {
	pt := reflect.PointerTo(t)
	return pt.Implements(graphMarshalerType) && pt.Implements(graphUnmarshalerType)
}
