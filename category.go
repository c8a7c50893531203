package weave

import (
	"container/list"
	"encoding"
	"reflect"
)

// Category is the closed classification of a type. It decides both how
// values are walked and which native container the decoder instantiates.
type Category uint8

const (
	Opaque Category = iota
	Primitive
	Enum
	Array
	List
	Queue
	Stack
	Set
	LinkedList
	Dictionary
	Unsupported
)

var categoryNames = map[Category]string{
	Opaque:      "opaque",
	Primitive:   "primitive",
	Enum:        "enum",
	Array:       "array",
	List:        "list",
	Queue:       "queue",
	Stack:       "stack",
	Set:         "set",
	LinkedList:  "linked_list",
	Dictionary:  "dictionary",
	Unsupported: "unsupported",
}

func (c Category) String() string {
	return categoryNames[c]
}

// Scalar reports whether values of the category are written as text.
func (c Category) Scalar() bool {
	return c == Primitive || c == Enum
}

// Container reports whether the category holds elements.
func (c Category) Container() bool {
	return c >= Array && c <= Dictionary
}

// Insertion method names for capability containers.
const (
	methodAll      = "All"
	methodAppend   = "Append"
	methodEnqueue  = "Enqueue"
	methodPush     = "Push"
	methodAdd      = "Add"
	methodContains = "Contains"
	methodPushBack = "PushBack"
	methodSet      = "Set"
)

// typeInfo is the classification result for one type.
type typeInfo struct {
	typ      reflect.Type // pointer-stripped type
	category Category
	elem     reflect.Type // element type (innermost for arrays)
	key      reflect.Type // dictionary key type
	rank     int          // array rank
	insert   string       // insertion method for capability containers
	native   bool         // native Go map / container/list rather than capability methods
}

var (
	textMarshalerType   = reflect.TypeFor[encoding.TextMarshaler]()
	textUnmarshalerType = reflect.TypeFor[encoding.TextUnmarshaler]()
	listType            = reflect.TypeFor[list.List]()
	anyType             = reflect.TypeFor[any]()
	boolType            = reflect.TypeFor[bool]()
)

// classify computes the category for t. The order of checks is fixed:
// enum, text primitives, primitive kinds, arrays, maps, legacy list, then
// capability containers in List, Queue, Stack, Set, LinkedList, Dictionary
// order. Anything else is Opaque.
func classify(t reflect.Type, isEnum func(reflect.Type) bool) *typeInfo {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	info := &typeInfo{typ: t}

	switch {
	case isEnum != nil && isEnum(t):
		info.category = Enum
		return info
	case isTextPrimitive(t):
		info.category = Primitive
		return info
	}

	switch t.Kind() {
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64, reflect.Complex64, reflect.Complex128,
		reflect.String:
		info.category = Primitive
		return info
	case reflect.Array, reflect.Slice:
		info.category = Array
		info.rank, info.elem = arrayShape(t)
		return info
	case reflect.Map:
		info.category = Dictionary
		info.key, info.elem = t.Key(), t.Elem()
		info.native = true
		return info
	case reflect.Func, reflect.Chan, reflect.UnsafePointer:
		info.category = Unsupported
		return info
	}

	if t == listType {
		info.category = LinkedList
		info.elem = anyType
		info.native = true
		return info
	}

	if classifyCapability(t, info) {
		return info
	}

	info.category = Opaque
	return info
}

// arrayShape returns the rank and innermost element type. Fixed-size arrays
// nest into further ranks; a slice is always a single rank whose elements
// may themselves be arrays (jagged).
func arrayShape(t reflect.Type) (int, reflect.Type) {
	if t.Kind() == reflect.Slice {
		return 1, t.Elem()
	}
	rank := 0
	for t.Kind() == reflect.Array {
		rank++
		t = t.Elem()
	}
	return rank, t
}

// isTextPrimitive reports whether t round-trips through text marshaling.
func isTextPrimitive(t reflect.Type) bool {
	if t.Kind() == reflect.Interface {
		return false
	}
	marshals := t.Implements(textMarshalerType) || reflect.PointerTo(t).Implements(textMarshalerType)
	return marshals && reflect.PointerTo(t).Implements(textUnmarshalerType)
}

// classifyCapability detects containers exposing All() iterators plus a
// category-specific insertion method.
func classifyCapability(t reflect.Type, info *typeInfo) bool {
	pt := reflect.PointerTo(t)
	all, ok := pt.MethodByName(methodAll)
	if !ok || all.Type.NumIn() != 1 || all.Type.NumOut() != 1 {
		return false
	}
	seq := all.Type.Out(0)
	if seq.Kind() != reflect.Func || seq.NumIn() != 1 || seq.NumOut() != 0 {
		return false
	}
	yield := seq.In(0)
	if yield.Kind() != reflect.Func || yield.NumOut() != 1 || yield.Out(0) != boolType {
		return false
	}

	switch yield.NumIn() {
	case 1:
		elem := yield.In(0)
		candidates := []struct {
			cat    Category
			method string
		}{
			{List, methodAppend},
			{Queue, methodEnqueue},
			{Stack, methodPush},
			{Set, methodAdd},
			{LinkedList, methodPushBack},
		}
		for _, c := range candidates {
			if !acceptsArgs(pt, c.method, elem) {
				continue
			}
			if c.cat == Set && !acceptsArgs(pt, methodContains, elem) {
				continue
			}
			info.category = c.cat
			info.elem = elem
			info.insert = c.method
			return true
		}
	case 2:
		key, elem := yield.In(0), yield.In(1)
		if acceptsArgs(pt, methodSet, key, elem) {
			info.category = Dictionary
			info.key = key
			info.elem = elem
			info.insert = methodSet
			return true
		}
	}
	return false
}

// acceptsArgs reports whether pt has the named method taking exactly args.
func acceptsArgs(pt reflect.Type, name string, args ...reflect.Type) bool {
	m, ok := pt.MethodByName(name)
	if !ok || m.Type.NumIn() != len(args)+1 {
		return false
	}
	for i, a := range args {
		if !a.AssignableTo(m.Type.In(i + 1)) {
			return false
		}
	}
	return true
}

// packable reports whether a container of t can use the packed binary form.
func packable(t reflect.Type) bool {
	if isTextPrimitive(t) {
		return false
	}
	return fixedSize(t.Kind()) > 0
}
