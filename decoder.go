package weave

import (
	"container/list"
	"reflect"
	"slices"
	"strconv"
	"strings"
)

// Decoder is one decode session. It owns the id arena for a single top-level
// call and is handed to TypeCodec and GraphUnmarshaler hooks so nested values
// share it.
type Decoder struct {
	eng   *Engine
	cfg   *Config
	args  map[string]any
	arena *arena
	flags Flags
	depth int
	path  []string
}

func newDecoder(eng *Engine, args map[string]any) *Decoder {
	return &Decoder{
		eng:   eng,
		cfg:   &eng.cfg,
		args:  args,
		arena: newArena(),
		flags: FlagsAll,
	}
}

// Decode reads a value of type t from node.
func (d *Decoder) Decode(node Node, t reflect.Type) (reflect.Value, error) {
	v := reflect.New(t).Elem()
	if err := d.decodeInto(node, v); err != nil {
		return reflect.Value{}, err
	}
	return v, nil
}

// DecodeInto fills the value target points to.
func (d *Decoder) DecodeInto(node Node, target any) error {
	rv := reflect.ValueOf(target)
	if !rv.IsValid() || rv.Kind() != reflect.Pointer || rv.IsNil() {
		return newConfigError(ErrNilInput, "", "", "target must be a non-nil pointer")
	}
	return d.decodeInto(node, rv.Elem())
}

// DecodeChild fills target from the named child of node. It reports false
// when the child is absent.
func (d *Decoder) DecodeChild(node Node, name string, target any) (bool, error) {
	child, ok := node.Child(name)
	if !ok {
		return false, nil
	}
	d.push(name)
	defer d.pop()
	return true, d.DecodeInto(child, target)
}

// Config returns the active configuration.
func (d *Decoder) Config() Config {
	return *d.cfg
}

// Arg returns an external argument by name.
func (d *Decoder) Arg(name string) (any, bool) {
	if v, ok := d.args[name]; ok {
		return v, true
	}
	for k, v := range d.args {
		if strings.EqualFold(k, name) {
			return v, true
		}
	}
	return nil, false
}

// Objects returns the number of identified objects decoded so far.
func (d *Decoder) Objects() int {
	return d.arena.Len()
}

// readFlags loads the feature flags from the root node.
func (d *Decoder) readFlags(root Node) error {
	s, ok := root.Attribute(System, KeyFlags)
	if !ok {
		d.flags = FlagsAll
		return nil
	}
	n, err := strconv.ParseUint(s, 10, 8)
	if err != nil {
		return d.dataError(ErrMalformed, s, err)
	}
	d.flags = Flags(n)
	return nil
}

// finish verifies that no placeholder is left behind and replaces every
// stored placeholder with its published object.
func (d *Decoder) finish(root reflect.Value) error {
	if id, ok := d.arena.pending(); ok {
		return newDataError(ErrDanglingReference, "", strconv.Itoa(id), nil)
	}
	if len(d.arena.replacements) > 0 {
		reconcile(root, d.arena.replacements)
	}
	return nil
}

func (d *Decoder) decodeInto(node Node, target reflect.Value) error {
	d.depth++
	defer func() { d.depth-- }()
	if d.depth > d.cfg.maxDepth() {
		return d.dataError(ErrDepthExceeded, "", nil)
	}

	static := target.Type()
	if _, ok := node.Attribute(System, KeyNull); ok {
		target.Set(reflect.Zero(static))
		return nil
	}
	if d.flags.Has(FlagReferences) {
		if ref, ok := node.Attribute(System, KeyRef); ok {
			return d.resolveRef(ref, target)
		}
	}

	t, err := d.concreteType(node, static)
	if err != nil {
		return err
	}
	if t == static {
		return d.decodeConcrete(node, target)
	}
	tmp := reflect.New(t).Elem()
	if err := d.decodeConcrete(node, tmp); err != nil {
		return err
	}
	return d.assign(target, tmp)
}

// concreteType applies the type marker, if any, to the static type.
func (d *Decoder) concreteType(node Node, static reflect.Type) (reflect.Type, error) {
	if d.flags.Has(FlagTypes) {
		if name, ok := node.Attribute(System, KeyType); ok {
			t, err := d.resolve(name)
			if err != nil {
				return nil, err
			}
			if !t.AssignableTo(static) {
				return nil, newResolutionError(ErrTypeMismatch, static.String(), name)
			}
			return t, nil
		}
	}
	if static.Kind() == reflect.Interface {
		return nil, newResolutionError(ErrMissingTypeMarker, static.String(), d.pathString())
	}
	return static, nil
}

func (d *Decoder) resolve(name string) (reflect.Type, error) {
	if d.cfg.TypeResolver == nil {
		return d.eng.reg.ResolveType(name)
	}
	t, err := d.cfg.TypeResolver(name)
	if err != nil || t == nil {
		return nil, newResolutionError(ErrUnknownType, "", name)
	}
	return t, nil
}

func (d *Decoder) resolveRef(ref string, target reflect.Value) error {
	id, err := strconv.Atoi(ref)
	if err != nil || id < 1 {
		return d.dataError(ErrMalformed, ref, err)
	}
	v, ok := d.arena.lookup(id)
	if !ok {
		return d.dataError(ErrDanglingReference, ref, nil)
	}
	return d.assign(target, v)
}

// assign stores v into target, dereferencing a pointer when target holds
// the pointee type.
func (d *Decoder) assign(target, v reflect.Value) error {
	switch {
	case v.Type().AssignableTo(target.Type()):
		target.Set(v)
	case v.Kind() == reflect.Pointer && v.Type().Elem().AssignableTo(target.Type()):
		target.Set(v.Elem())
	default:
		return newResolutionError(ErrTypeMismatch, target.Type().String(), v.Type().String())
	}
	return nil
}

func (d *Decoder) decodeConcrete(node Node, target reflect.Value) error {
	if target.Kind() == reflect.Pointer {
		return d.decodePointer(node, target, true)
	}
	return d.fill(node, target)
}

// decodePointer allocates the pointee, or reuses a non-nil target, publishes
// it under its id before any member is read, and fills it.
func (d *Decoder) decodePointer(node Node, target reflect.Value, withID bool) error {
	elem := target.Type().Elem()
	id := 0
	if withID && d.flags.Has(FlagReferences) {
		if s, ok := node.Attribute(System, KeyID); ok {
			n, err := parseID(s)
			if err != nil {
				return d.dataError(ErrMalformed, s, err)
			}
			id = n
		}
	}

	if elem.Kind() != reflect.Pointer {
		model, err := d.eng.cache.Model(elem)
		if err != nil {
			return err
		}
		if model.ctor.constructed() && model.codec == nil && !model.selfDesc {
			obj, err := d.construct(node, model, id)
			if err != nil {
				return err
			}
			target.Set(obj)
			return nil
		}
	}

	ptr := target
	if ptr.IsNil() {
		ptr = reflect.New(elem)
	}
	if id > 0 {
		d.arena.publish(id, ptr)
	}
	var err error
	if elem.Kind() == reflect.Pointer {
		err = d.decodePointer(node, ptr.Elem(), false)
	} else {
		err = d.fill(node, ptr.Elem())
	}
	if err != nil {
		return err
	}
	target.Set(ptr)
	return nil
}

// construct builds an object through its selected constructor. Arguments
// sourced from members are decoded first; a back-reference to the object
// while they are read receives a placeholder.
func (d *Decoder) construct(node Node, model *Model, id int) (reflect.Value, error) {
	var storage reflect.Value
	if id > 0 {
		storage = reflect.New(model.Type)
		d.arena.reserve(id, storage)
	}

	plan := model.ctor
	args := make([]reflect.Value, len(plan.params))
	for i, p := range plan.params {
		switch p.Source {
		case SourceExternal:
			raw, ok := d.Arg(p.Name)
			if !ok {
				return reflect.Value{}, newResolutionError(ErrMissingArgument, model.Type.String(), p.Name)
			}
			v, ok := convertArg(raw, p.Type)
			if !ok {
				return reflect.Value{}, newResolutionError(ErrTypeMismatch, model.Type.String(), p.Name)
			}
			args[i] = v
		case SourceMember:
			m := model.Members[p.Member]
			v := reflect.New(m.Type).Elem()
			if _, err := d.fillMember(node, v, m); err != nil {
				return reflect.Value{}, err
			}
			args[i] = v
		default:
			args[i] = reflect.Zero(p.Type)
		}
	}

	obj, err := plan.call(args, storage)
	if err != nil {
		return reflect.Value{}, d.dataError(ErrConstructorFailed, "", err)
	}
	if id > 0 {
		d.arena.publish(id, obj)
	}
	if err := d.fillMembers(node, obj.Elem(), model, true); err != nil {
		return reflect.Value{}, err
	}
	return obj, nil
}

// fill decodes into an addressable non-pointer target.
func (d *Decoder) fill(node Node, target reflect.Value) error {
	model, err := d.eng.cache.Model(target.Type())
	if err != nil {
		return err
	}
	switch {
	case model.codec != nil:
		v, err := model.codec.DecodeGraph(d, node, target.Type())
		if err != nil {
			return err
		}
		return d.assign(target, v)
	case model.selfDesc:
		return target.Addr().Interface().(GraphUnmarshaler).UnmarshalGraph(d, node)
	}

	switch model.Category {
	case Primitive, Enum:
		text, _ := node.Value()
		v, err := d.parseScalar(text, target.Type(), model)
		if err != nil {
			return err
		}
		target.Set(v)
		return nil
	case Array:
		return d.fillArray(node, target, model)
	case Dictionary:
		return d.fillDictionary(node, target, model)
	case List, Queue, Stack, Set, LinkedList:
		return d.fillSequence(node, target, model)
	case Opaque:
		if model.ctor.constructed() {
			obj, err := d.construct(node, model, 0)
			if err != nil {
				return err
			}
			target.Set(obj.Elem())
			return nil
		}
		return d.fillMembers(node, target, model, false)
	default:
		return newConfigError(ErrUnsupportedType, target.Type().String(), "", model.Category.String())
	}
}

// fillMembers assigns every present member. Members consumed by the
// constructor are skipped when constructed is set.
func (d *Decoder) fillMembers(node Node, target reflect.Value, model *Model, constructed bool) error {
	for _, m := range model.Members {
		if constructed && m.CtorArg >= 0 {
			continue
		}
		if !m.exported && !d.flags.Has(FlagUnexported) {
			continue
		}
		f := m.field(target)
		if !f.CanSet() {
			continue
		}
		if _, err := d.fillMember(node, f, m); err != nil {
			return err
		}
	}
	return nil
}

// fillMember reads one member from its attribute or child into f. Existing
// non-nil pointer and map values in f are reused as fill targets.
func (d *Decoder) fillMember(node Node, f reflect.Value, m *Member) (bool, error) {
	d.push(m.Name)
	defer d.pop()

	if m.Location == Attribute {
		text, ok := node.Attribute(Regular, m.Name)
		if !ok {
			return false, nil
		}
		v, err := d.attributeValue(text, m.Type)
		if err != nil {
			return true, err
		}
		f.Set(v)
		return true, nil
	}

	child, ok := node.Child(m.Name)
	if !ok {
		return false, nil
	}
	return true, d.decodeInto(child, f)
}

// attributeValue parses attribute text into t, allocating pointers.
func (d *Decoder) attributeValue(text string, t reflect.Type) (reflect.Value, error) {
	switch t.Kind() {
	case reflect.Pointer:
		v, err := d.attributeValue(text, t.Elem())
		if err != nil {
			return reflect.Value{}, err
		}
		p := reflect.New(t.Elem())
		p.Elem().Set(v)
		return p, nil
	}
	model, err := d.eng.cache.Model(t)
	if err != nil {
		return reflect.Value{}, err
	}
	return d.parseScalar(text, t, model)
}

func (d *Decoder) parseScalar(text string, t reflect.Type, model *Model) (reflect.Value, error) {
	switch model.Category {
	case Enum:
		return d.parseEnum(text, t)
	case Primitive:
		v, err := parsePrimitive(text, t)
		if err != nil {
			return reflect.Value{}, d.dataError(ErrParse, text, err)
		}
		return v, nil
	default:
		return reflect.Value{}, d.dataError(ErrMalformed, text, nil)
	}
}

// parseEnum accepts a registered name or an ordinal.
func (d *Decoder) parseEnum(text string, t reflect.Type) (reflect.Value, error) {
	out := reflect.New(t).Elem()
	if info := d.eng.reg.enum(t); info != nil {
		if n, ok := info.values[text]; ok {
			setOrdinal(out, n)
			return out, nil
		}
	}
	switch t.Kind() {
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		n, err := strconv.ParseUint(text, 10, t.Bits())
		if err != nil {
			return reflect.Value{}, d.dataError(ErrParse, text, err)
		}
		out.SetUint(n)
	default:
		n, err := strconv.ParseInt(text, 10, t.Bits())
		if err != nil {
			return reflect.Value{}, d.dataError(ErrParse, text, err)
		}
		out.SetInt(n)
	}
	return out, nil
}

func setOrdinal(v reflect.Value, n int64) {
	switch v.Kind() {
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		v.SetUint(uint64(n))
	default:
		v.SetInt(n)
	}
}

// fillArray checks the rank, scans lengths through the first element of
// each level, validates them against fixed lengths and fills by coordinate.
func (d *Decoder) fillArray(node Node, target reflect.Value, model *Model) error {
	if s, ok := node.Attribute(System, KeyRank); ok {
		r, err := strconv.Atoi(s)
		if err != nil || r != model.Rank {
			return d.dataError(ErrRankMismatch, s, err)
		}
	}
	dims, err := d.scanLengths(node, target.Type(), model)
	if err != nil {
		return err
	}
	return d.fillArrayLevel(node, target, model, dims, 0)
}

func (d *Decoder) scanLengths(node Node, t reflect.Type, model *Model) ([]int, error) {
	dims := make([]int, model.Rank)
	cur := node
	for level := range model.Rank {
		var n int
		if level == model.Rank-1 {
			values, packed, err := d.packedValues(cur, model.Elem)
			if err != nil {
				return nil, err
			}
			if packed {
				n = len(values)
			} else {
				n = len(cur.Elements())
			}
		} else {
			n = len(cur.Elements())
		}
		if t.Kind() == reflect.Array && n != t.Len() {
			return nil, d.dataError(ErrRankMismatch, strconv.Itoa(n), nil)
		}
		dims[level] = n
		if n == 0 || level == model.Rank-1 {
			break
		}
		cur = cur.Elements()[0]
		t = t.Elem()
	}
	return dims, nil
}

func (d *Decoder) fillArrayLevel(node Node, target reflect.Value, model *Model, dims []int, level int) error {
	if level == model.Rank-1 {
		values, packed, err := d.packedValues(node, model.Elem)
		if err != nil {
			return err
		}
		if packed {
			if err := d.sizeArray(target, len(values), dims[level]); err != nil {
				return err
			}
			for i, v := range values {
				target.Index(i).Set(v)
			}
			return nil
		}
	}

	elems := node.Elements()
	if err := d.sizeArray(target, len(elems), dims[level]); err != nil {
		return err
	}
	for i, el := range elems {
		d.push("[" + strconv.Itoa(i) + "]")
		var err error
		if level == model.Rank-1 {
			err = d.decodeInto(el, target.Index(i))
		} else {
			err = d.fillArrayLevel(el, target.Index(i), model, dims, level+1)
		}
		d.pop()
		if err != nil {
			return err
		}
	}
	return nil
}

// sizeArray allocates a slice target or checks a fixed one. A row whose
// length differs from the scanned length is ragged.
func (d *Decoder) sizeArray(target reflect.Value, n, want int) error {
	if n != want {
		return d.dataError(ErrMalformed, strconv.Itoa(n), nil)
	}
	if target.Kind() == reflect.Slice {
		target.Set(reflect.MakeSlice(target.Type(), n, n))
	}
	return nil
}

// packedValues unpacks a packed element value. The form is recognised by a
// value with no elements on a container of packable primitives.
func (d *Decoder) packedValues(node Node, elem reflect.Type) ([]reflect.Value, bool, error) {
	text, ok := node.Value()
	if !ok || !packable(elem) || d.eng.reg.Classify(elem) != Primitive || len(node.Elements()) > 0 {
		return nil, false, nil
	}
	values, err := unpackPrimitives(text, elem)
	if err != nil {
		return nil, false, d.dataError(ErrMalformed, text, err)
	}
	return values, true, nil
}

// fillSequence decodes elements in order and inserts them with the
// category's insertion method. Stacks are pushed last element first so the
// original order is restored.
func (d *Decoder) fillSequence(node Node, target reflect.Value, model *Model) error {
	values, packed, err := d.packedValues(node, model.Elem)
	if err != nil {
		return err
	}
	if !packed {
		for i, el := range node.Elements() {
			v := reflect.New(model.Elem).Elem()
			d.push("[" + strconv.Itoa(i) + "]")
			err := d.decodeInto(el, v)
			d.pop()
			if err != nil {
				return err
			}
			values = append(values, v)
		}
	}
	if model.Category == Stack {
		slices.Reverse(values)
	}

	if model.info.native {
		l := target.Addr().Interface().(*list.List)
		for _, v := range values {
			l.PushBack(v.Interface())
		}
		return nil
	}
	insert := target.Addr().MethodByName(model.info.insert)
	for _, v := range values {
		insert.Call([]reflect.Value{v})
	}
	return nil
}

// fillDictionary decodes key/value entries. A nil native map is allocated;
// an existing one is filled.
func (d *Decoder) fillDictionary(node Node, target reflect.Value, model *Model) error {
	elems := node.Elements()
	var set reflect.Value
	if model.info.native {
		if target.IsNil() {
			target.Set(reflect.MakeMapWithSize(target.Type(), len(elems)))
		}
	} else {
		set = target.Addr().MethodByName(methodSet)
	}

	for i, entry := range elems {
		d.push("[" + strconv.Itoa(i) + "]")
		k, v, err := d.decodeEntry(entry, model)
		d.pop()
		if err != nil {
			return err
		}
		if model.info.native {
			target.SetMapIndex(k, v)
		} else {
			set.Call([]reflect.Value{k, v})
		}
	}
	return nil
}

func (d *Decoder) decodeEntry(entry Node, model *Model) (reflect.Value, reflect.Value, error) {
	kn, ok := entry.Child(d.cfg.KeyName)
	if !ok {
		return reflect.Value{}, reflect.Value{}, d.dataError(ErrMalformed, d.cfg.KeyName, nil)
	}
	vn, ok := entry.Child(d.cfg.ValueName)
	if !ok {
		return reflect.Value{}, reflect.Value{}, d.dataError(ErrMalformed, d.cfg.ValueName, nil)
	}
	k := reflect.New(model.Key).Elem()
	if err := d.decodeInto(kn, k); err != nil {
		return reflect.Value{}, reflect.Value{}, err
	}
	v := reflect.New(model.Elem).Elem()
	if err := d.decodeInto(vn, v); err != nil {
		return reflect.Value{}, reflect.Value{}, err
	}
	return k, v, nil
}

func (d *Decoder) push(name string) {
	d.path = append(d.path, name)
}

func (d *Decoder) pop() {
	d.path = d.path[:len(d.path)-1]
}

func (d *Decoder) pathString() string {
	return "/" + strings.Join(d.path, "/")
}

func (d *Decoder) dataError(sentinel error, value string, cause error) error {
	return newDataError(sentinel, d.pathString(), value, cause)
}
