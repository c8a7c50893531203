package weave

import (
	"cmp"
	"container/list"
	"fmt"
	"reflect"
	"slices"
	"strconv"

	"github.com/samber/lo"
)

// Encoder is one encode session. It owns the identity table for a single
// top-level call and is handed to TypeCodec and GraphMarshaler hooks so
// nested values share it.
type Encoder struct {
	eng   *Engine
	cfg   *Config
	refs  *refTable
	flags Flags
	depth int
}

func newEncoder(eng *Engine) *Encoder {
	return &Encoder{eng: eng, cfg: &eng.cfg, refs: newRefTable()}
}

// Encode writes v into node using its own type as the static type.
func (e *Encoder) Encode(node Node, v any) error {
	if v == nil {
		node.SetAttribute(System, KeyNull, "true")
		return nil
	}
	return e.encode(node, reflect.ValueOf(v), reflect.TypeOf(v))
}

// EncodeValue writes v into node. A type marker is written when the runtime
// type of v differs from static.
func (e *Encoder) EncodeValue(node Node, v reflect.Value, static reflect.Type) error {
	return e.encode(node, v, static)
}

// EncodeChild writes v into a new child of node.
func (e *Encoder) EncodeChild(node Node, name string, v any) error {
	return e.Encode(node.AddChild(name), v)
}

// Config returns the active configuration.
func (e *Encoder) Config() Config {
	return *e.cfg
}

// Objects returns the number of distinct tracked objects written so far.
func (e *Encoder) Objects() int {
	return e.refs.Len()
}

func (e *Encoder) encode(node Node, v reflect.Value, static reflect.Type) error {
	e.depth++
	defer func() { e.depth-- }()
	if e.depth > e.cfg.maxDepth() {
		return newDataError(ErrDepthExceeded, node.Name(), "", nil)
	}

	for v.IsValid() && v.Kind() == reflect.Interface {
		v = v.Elem()
	}
	if isNil(v) {
		node.SetAttribute(System, KeyNull, "true")
		return nil
	}

	if v.Kind() == reflect.Pointer && e.cfg.TrackReferences {
		if id, ok := e.refs.lookup(v); ok {
			node.SetAttribute(System, KeyRef, strconv.Itoa(id))
			e.flags |= FlagReferences
			return nil
		}
	}

	if rt := v.Type(); rt != static && e.cfg.TypeMarkers {
		e.eng.reg.RegisterType(rt)
		node.SetAttribute(System, KeyType, e.eng.reg.TypeName(rt, e.cfg.QualifiedTypeNames))
		e.flags |= FlagTypes
	}

	if v.Kind() == reflect.Pointer {
		if e.cfg.TrackReferences {
			node.SetAttribute(System, KeyID, strconv.Itoa(e.refs.assign(v)))
			e.flags |= FlagReferences
		}
		v = v.Elem()
		for v.Kind() == reflect.Pointer {
			if v.IsNil() {
				node.SetAttribute(System, KeyNull, "true")
				return nil
			}
			v = v.Elem()
		}
	}
	return e.encodeConcrete(node, addressable(v))
}

// encodeConcrete dispatches a non-pointer, addressable value.
func (e *Encoder) encodeConcrete(node Node, v reflect.Value) error {
	model, err := e.eng.cache.Model(v.Type())
	if err != nil {
		return err
	}
	switch {
	case model.codec != nil:
		return model.codec.EncodeGraph(e, node, v)
	case model.selfDesc:
		return v.Addr().Interface().(GraphMarshaler).MarshalGraph(e, node)
	}

	switch model.Category {
	case Primitive:
		s, err := formatPrimitive(v)
		if err != nil {
			return newCodecError(ErrMarshal, err)
		}
		node.SetValue(s)
		return nil
	case Enum:
		node.SetValue(e.formatEnum(v))
		return nil
	case Array:
		return e.encodeArray(node, v, model)
	case Dictionary:
		return e.encodeDictionary(node, v, model)
	case List, Queue, Stack, Set, LinkedList:
		e.flags |= FlagContainers
		return e.encodeElements(node, collectSequence(v, model), model.Elem)
	case Opaque:
		return e.encodeMembers(node, v, model)
	default:
		return newConfigError(ErrUnsupportedType, v.Type().String(), "", model.Category.String())
	}
}

func (e *Encoder) encodeMembers(node Node, v reflect.Value, model *Model) error {
	for _, m := range model.Members {
		if m.skipOnEncode(e.cfg) {
			continue
		}
		fv := m.field(v)
		if isNil(fv) {
			if m.Location == SubNode && (m.Inclusion == SerializeAlways || e.cfg.SerializeNulls) {
				node.AddChild(m.Name).SetAttribute(System, KeyNull, "true")
			}
			continue
		}
		if !m.exported {
			e.flags |= FlagUnexported
		}

		if m.Location == Attribute {
			s, ok, err := e.attributeText(fv)
			if err != nil {
				return newConfigError(ErrAttributeLocation, model.Type.String(), m.Name, err.Error())
			}
			if ok {
				node.SetAttribute(Regular, m.Name, s)
			}
			continue
		}
		if err := e.encode(node.AddChild(m.Name), fv, m.Type); err != nil {
			return err
		}
	}
	return nil
}

// attributeText renders a member stored as an attribute. Attributes carry
// neither ids nor type markers, so only scalar runtime values are allowed.
func (e *Encoder) attributeText(v reflect.Value) (string, bool, error) {
	for v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface {
		if v.IsNil() {
			return "", false, nil
		}
		v = v.Elem()
	}
	model, err := e.eng.cache.Model(v.Type())
	if err != nil {
		return "", false, err
	}
	switch model.Category {
	case Primitive:
		s, err := formatPrimitive(v)
		return s, err == nil, err
	case Enum:
		return e.formatEnum(v), true, nil
	default:
		return "", false, fmt.Errorf("%s value of type %s", model.Category, v.Type())
	}
}

func (e *Encoder) formatEnum(v reflect.Value) string {
	n := enumOrdinal(v)
	if !e.cfg.EnumAsOrdinal {
		if info := e.eng.reg.enum(v.Type()); info != nil {
			if name, ok := info.names[n]; ok {
				return name
			}
		}
	}
	switch v.Kind() {
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return strconv.FormatUint(v.Uint(), 10)
	default:
		return strconv.FormatInt(n, 10)
	}
}

// encodeArray writes the rank and then one nested element level per rank.
func (e *Encoder) encodeArray(node Node, v reflect.Value, model *Model) error {
	e.flags |= FlagContainers
	node.SetAttribute(System, KeyRank, strconv.Itoa(model.Rank))
	return e.encodeArrayLevel(node, v, model, 1)
}

func (e *Encoder) encodeArrayLevel(node Node, v reflect.Value, model *Model, level int) error {
	if level == model.Rank {
		return e.encodeElements(node, indexValues(v), model.Elem)
	}
	for i := 0; i < v.Len(); i++ {
		if err := e.encodeArrayLevel(node.AppendElement(), v.Index(i), model, level+1); err != nil {
			return err
		}
	}
	return nil
}

// encodeElements writes values as array elements, or as one packed value
// when packing is enabled and the element type allows it.
func (e *Encoder) encodeElements(node Node, values []reflect.Value, elem reflect.Type) error {
	if e.canPack(elem) {
		node.SetValue(packPrimitives(values, elem))
		return nil
	}
	for _, ev := range values {
		if err := e.encode(node.AppendElement(), ev, elem); err != nil {
			return err
		}
	}
	return nil
}

func (e *Encoder) canPack(elem reflect.Type) bool {
	return e.cfg.PackPrimitives && packable(elem) && e.eng.reg.Classify(elem) == Primitive
}

// encodeDictionary writes each entry as an element with key and value children.
func (e *Encoder) encodeDictionary(node Node, v reflect.Value, model *Model) error {
	e.flags |= FlagContainers
	keys, values, err := e.collectPairs(v, model)
	if err != nil {
		return err
	}
	for i := range keys {
		entry := node.AppendElement()
		if err := e.encode(entry.AddChild(e.cfg.KeyName), keys[i], model.Key); err != nil {
			return err
		}
		if err := e.encode(entry.AddChild(e.cfg.ValueName), values[i], model.Elem); err != nil {
			return err
		}
	}
	return nil
}

// collectPairs returns dictionary entries. Native maps with scalar keys are
// ordered by key text so output is deterministic.
func (e *Encoder) collectPairs(v reflect.Value, model *Model) ([]reflect.Value, []reflect.Value, error) {
	if !model.info.native {
		keys, values := collectSeq2(v)
		return keys, values, nil
	}
	keys := v.MapKeys()
	if e.eng.reg.Classify(model.Key).Scalar() && baseType(model.Key) == model.Key {
		texts := make(map[int]string, len(keys))
		order := lo.Range(len(keys))
		for i, k := range keys {
			s, _, err := e.attributeText(k)
			if err != nil {
				return nil, nil, newCodecError(ErrMarshal, err)
			}
			texts[i] = s
		}
		slices.SortStableFunc(order, func(a, b int) int {
			return cmp.Compare(texts[a], texts[b])
		})
		keys = lo.Map(order, func(i, _ int) reflect.Value { return keys[i] })
	}
	values := lo.Map(keys, func(k reflect.Value, _ int) reflect.Value { return v.MapIndex(k) })
	return keys, values, nil
}

// collectSequence returns the elements of a sequence container in All() order.
func collectSequence(v reflect.Value, model *Model) []reflect.Value {
	if model.info.native {
		l := v.Addr().Interface().(*list.List)
		out := make([]reflect.Value, 0, l.Len())
		for el := l.Front(); el != nil; el = el.Next() {
			out = append(out, reflect.ValueOf(&el.Value).Elem())
		}
		return out
	}
	var out []reflect.Value
	seq := v.Addr().MethodByName(methodAll).Call(nil)[0]
	yield := reflect.MakeFunc(seq.Type().In(0), func(args []reflect.Value) []reflect.Value {
		out = append(out, args[0])
		return []reflect.Value{reflect.ValueOf(true)}
	})
	seq.Call([]reflect.Value{yield})
	return out
}

// collectSeq2 returns the pairs of an iter.Seq2 based dictionary.
func collectSeq2(v reflect.Value) ([]reflect.Value, []reflect.Value) {
	var keys, values []reflect.Value
	seq := v.Addr().MethodByName(methodAll).Call(nil)[0]
	yield := reflect.MakeFunc(seq.Type().In(0), func(args []reflect.Value) []reflect.Value {
		keys = append(keys, args[0])
		values = append(values, args[1])
		return []reflect.Value{reflect.ValueOf(true)}
	})
	seq.Call([]reflect.Value{yield})
	return keys, values
}

// indexValues returns the elements of an array or slice.
func indexValues(v reflect.Value) []reflect.Value {
	return lo.Times(v.Len(), func(i int) reflect.Value { return v.Index(i) })
}

// enumOrdinal returns the integer value of an enum.
func enumOrdinal(v reflect.Value) int64 {
	switch v.Kind() {
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return int64(v.Uint())
	default:
		return v.Int()
	}
}

// isNil reports whether v is invalid or a nil reference.
func isNil(v reflect.Value) bool {
	if !v.IsValid() {
		return true
	}
	switch v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface, reflect.Func, reflect.Chan:
		return v.IsNil()
	}
	return false
}

// addressable returns v itself or an addressable copy.
func addressable(v reflect.Value) reflect.Value {
	if v.CanAddr() {
		return v
	}
	tmp := reflect.New(v.Type()).Elem()
	tmp.Set(v)
	return tmp
}
