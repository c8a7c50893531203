package weave

import (
	"reflect"
	"strconv"
)

// refKey identifies an object by address and pointer type, so a struct and
// its first field are distinct objects.
type refKey struct {
	addr uintptr
	typ  reflect.Type
}

func keyOf(ptr reflect.Value) refKey {
	return refKey{addr: ptr.Pointer(), typ: ptr.Type()}
}

// refTable assigns ids to pointers in pre-order during encoding.
type refTable struct {
	ids  map[refKey]int
	next int
}

func newRefTable() *refTable {
	return &refTable{ids: make(map[refKey]int), next: 1}
}

// lookup returns the id already assigned to ptr.
func (t *refTable) lookup(ptr reflect.Value) (int, bool) {
	id, ok := t.ids[keyOf(ptr)]
	return id, ok
}

// assign gives ptr the next id. It must be called before any member of the
// pointee is visited.
func (t *refTable) assign(ptr reflect.Value) int {
	id := t.next
	t.next++
	t.ids[keyOf(ptr)] = id
	return id
}

// Len returns the number of distinct objects seen.
func (t *refTable) Len() int {
	return len(t.ids)
}

// slot is one arena entry. Until done, value holds the placeholder handed to
// back-references.
type slot struct {
	value reflect.Value
	done  bool
}

// arena maps ids to decoded objects. Placeholders that differ from their
// published object are recorded for reconciliation.
type arena struct {
	slots        map[int]*slot
	replacements map[refKey]reflect.Value
	handedOut    map[int]bool
}

func newArena() *arena {
	return &arena{
		slots:        make(map[int]*slot),
		replacements: make(map[refKey]reflect.Value),
		handedOut:    make(map[int]bool),
	}
}

// reserve claims id with a placeholder pointer.
func (a *arena) reserve(id int, placeholder reflect.Value) {
	a.slots[id] = &slot{value: placeholder}
}

// publish stores the finished object for id.
func (a *arena) publish(id int, obj reflect.Value) {
	s, ok := a.slots[id]
	if !ok {
		a.slots[id] = &slot{value: obj, done: true}
		return
	}
	if a.handedOut[id] && s.value.IsValid() && s.value.Pointer() != obj.Pointer() {
		a.replacements[keyOf(s.value)] = obj
	}
	s.value = obj
	s.done = true
}

// alias records that old must be replaced by obj wherever it was stored.
func (a *arena) alias(old, obj reflect.Value) {
	if old.Pointer() != obj.Pointer() {
		a.replacements[keyOf(old)] = obj
	}
}

// lookup resolves a back-reference. An object still under construction
// yields its placeholder.
func (a *arena) lookup(id int) (reflect.Value, bool) {
	s, ok := a.slots[id]
	if !ok {
		return reflect.Value{}, false
	}
	if !s.done {
		a.handedOut[id] = true
	}
	return s.value, true
}

// pending returns the first id whose placeholder was handed out but never
// completed.
func (a *arena) pending() (int, bool) {
	for id := range a.handedOut {
		if !a.slots[id].done {
			return id, true
		}
	}
	return 0, false
}

// Len returns the number of objects in the arena.
func (a *arena) Len() int {
	return len(a.slots)
}

func parseID(s string) (int, error) {
	id, err := strconv.Atoi(s)
	if err != nil || id < 1 {
		return 0, newDataError(ErrMalformed, "", s, err)
	}
	return id, nil
}
