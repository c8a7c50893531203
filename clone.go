package weave

import "reflect"

// Clone returns a deep copy of v made by encoding it into an in-memory
// Element and decoding it again. Cycles and shared references are
// preserved: the copy has the same shape as the original graph.
//
// Only what the engine serializes is copied. Ignored and read-only members
// are left at their zero values unless the engine is configured otherwise.
func Clone[T any](e *Engine, v T) (T, error) {
	el, err := Marshal(e, v)
	if err != nil {
		var zero T
		return zero, err
	}
	return Unmarshal[T](e, el)
}

// CloneValue is the reflection form of Clone.
func CloneValue(e *Engine, v reflect.Value) (reflect.Value, error) {
	if !v.IsValid() {
		return reflect.Value{}, newConfigError(ErrNilInput, "", "", "value is required")
	}
	el := NewElement(RootName)
	if _, err := e.encode(el, v, v.Type()); err != nil {
		return reflect.Value{}, err
	}
	out := reflect.New(v.Type()).Elem()
	if _, err := e.decode(el, out, nil); err != nil {
		return reflect.Value{}, err
	}
	return out, nil
}
