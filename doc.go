// Package weave provides format-agnostic object-graph serialization.
//
// An Engine walks a Go value and writes it through the Node interface, a
// minimal data-carrier abstraction of attributes, named children, a scalar
// value and ordered array elements. Decoding reverses the walk and rebuilds
// an equivalent graph. The engine never touches a concrete format: the
// in-memory Element carrier converts to a plain Document map, and codec
// providers marshal that map as JSON, XML, YAML, MessagePack, CBOR or BSON.
//
// # Graphs
//
// Pointers are identity-tracked. The first visit of a pointer writes an id;
// later visits write a back-reference to it. Cycles and shared references
// therefore round-trip with identity intact:
//
//	type Node struct {
//	    Name string
//	    Next *Node
//	}
//
//	n := &Node{Name: "loop"}
//	n.Next = n
//
//	engine := weave.New(nil)
//	el, _ := weave.Marshal(engine, n)
//	out, _ := weave.Unmarshal[*Node](engine, el)
//	// out.Next == out
//
// # Categories
//
// Every type is classified once into a closed set of categories:
//
//   - Primitive: bool, numbers, strings and encoding.TextMarshaler types
//   - Enum: integer types registered with RegisterEnum
//   - Array: slices and arrays of any rank
//   - List, Queue, Stack, Set, LinkedList, Dictionary: maps, container/list
//     and types exposing All() plus Append, Enqueue, Push, Add+Contains,
//     PushBack or Set
//   - Opaque: structs, walked member by member
//
// # Members
//
// Struct fields are described by the graph tag:
//
//	type Point struct {
//	    X     int    `graph:"x"`            // attribute (primitives default to attributes)
//	    Label string `graph:"label,node"`   // child node
//	    Cache []int  `graph:"-"`            // ignored
//	    Area  int    `graph:",readonly"`    // derived, not written
//	}
//
// A Registry can override tags per field, register enums, override codecs
// and constructors. Constructors are scored against the members of their
// type and the best one is used to build decoded values.
//
// # Serializers
//
// Serializer[T] pairs an Engine with a Codec:
//
//	s, _ := weave.NewSerializer[*Order](engine, json.New())
//	data, _ := s.Marshal(ctx, order)
//	order, _ = s.Unmarshal(ctx, data)
//
// WithCompression adds zstd or LZ4 payload compression. Use and Reset
// maintain a cache of serializers on a default engine.
//
// # Events
//
// Model builds and serializer operations emit capitan signals carrying the
// type name, content type, payload size, duration and object count.
package weave
