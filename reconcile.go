package weave

import (
	"reflect"
	"unsafe"
)

// reconciler replaces placeholder pointers with their published objects
// throughout a decoded graph.
type reconciler struct {
	repl    map[refKey]reflect.Value
	visited map[refKey]bool
	holds   map[reflect.Type]bool
}

// reconcile walks the graph reachable from root. Each pointer is visited
// once, so cyclic graphs terminate.
func reconcile(root reflect.Value, repl map[refKey]reflect.Value) {
	r := &reconciler{
		repl:    repl,
		visited: make(map[refKey]bool),
		holds:   make(map[reflect.Type]bool),
	}
	r.walk(root)
}

func (r *reconciler) walk(v reflect.Value) {
	if !v.IsValid() || !r.mayHoldPointers(v.Type()) {
		return
	}
	switch v.Kind() {
	case reflect.Pointer:
		if v.IsNil() {
			return
		}
		if obj, ok := r.repl[keyOf(v)]; ok && v.CanSet() {
			v.Set(obj)
		}
		k := keyOf(v)
		if r.visited[k] {
			return
		}
		r.visited[k] = true
		r.walk(v.Elem())

	case reflect.Interface:
		if v.IsNil() {
			return
		}
		e := v.Elem()
		if e.Kind() == reflect.Pointer {
			if obj, ok := r.repl[keyOf(e)]; ok && v.CanSet() {
				v.Set(obj)
				e = obj
			}
			r.walk(e)
			return
		}
		if v.CanSet() && r.mayHoldPointers(e.Type()) {
			tmp := reflect.New(e.Type()).Elem()
			tmp.Set(e)
			r.walk(tmp)
			v.Set(tmp)
		}

	case reflect.Struct:
		for i := 0; i < v.NumField(); i++ {
			f := v.Field(i)
			if !f.CanSet() && f.CanAddr() {
				f = reflect.NewAt(f.Type(), unsafe.Pointer(f.UnsafeAddr())).Elem()
			}
			r.walk(f)
		}

	case reflect.Slice, reflect.Array:
		if v.Kind() == reflect.Slice && v.IsNil() {
			return
		}
		for i := 0; i < v.Len(); i++ {
			r.walk(v.Index(i))
		}

	case reflect.Map:
		if v.IsNil() {
			return
		}
		mt := v.Type()
		keys, values := r.mayHoldPointers(mt.Key()), r.mayHoldPointers(mt.Elem())
		if !keys && !values {
			return
		}
		type entry struct{ old, key, value reflect.Value }
		var updates []entry
		iter := v.MapRange()
		for iter.Next() {
			k := reflect.New(mt.Key()).Elem()
			k.Set(iter.Key())
			if keys {
				r.walk(k)
			}
			val := reflect.New(mt.Elem()).Elem()
			val.Set(iter.Value())
			if values {
				r.walk(val)
			}
			updates = append(updates, entry{iter.Key(), k, val})
		}
		// keys are removed before any re-insert so a rewritten key never
		// clobbers an entry that has not moved yet
		if keys {
			for _, u := range updates {
				v.SetMapIndex(u.old, reflect.Value{})
			}
		}
		for _, u := range updates {
			v.SetMapIndex(u.key, u.value)
		}
	}
}

// mayHoldPointers reports whether values of t can contain a pointer.
func (r *reconciler) mayHoldPointers(t reflect.Type) bool {
	if h, ok := r.holds[t]; ok {
		return h
	}
	r.holds[t] = true // provisional, breaks recursion on recursive types
	var h bool
	switch t.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.UnsafePointer:
		h = true
	case reflect.Slice, reflect.Array:
		h = r.mayHoldPointers(t.Elem())
	case reflect.Struct:
		for i := 0; i < t.NumField(); i++ {
			if r.mayHoldPointers(t.Field(i).Type) {
				h = true
				break
			}
		}
	}
	r.holds[t] = h
	return h
}
