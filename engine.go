package weave

import (
	"reflect"
	"strconv"
)

// Engine is an explicitly constructed serialization context: a sealed
// Registry, the model Cache built from it and a fixed Config. Engines are
// safe for concurrent use; each Encode or Decode call owns its own identity
// table.
type Engine struct {
	reg   *Registry
	cache *Cache
	cfg   Config
}

// New creates an Engine and seals reg. A nil reg uses a fresh registry.
func New(reg *Registry, opts ...Option) *Engine {
	if reg == nil {
		reg = NewRegistry()
	}
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	reg.seal()
	e := &Engine{reg: reg, cfg: cfg}
	e.cache = newCache(reg, &e.cfg)
	return e
}

// Registry returns the engine's registry.
func (e *Engine) Registry() *Registry {
	return e.reg
}

// Config returns a copy of the engine's configuration.
func (e *Engine) Config() Config {
	return e.cfg
}

// Model returns the cached model for t.
func (e *Engine) Model(t reflect.Type) (*Model, error) {
	return e.cache.Model(t)
}

// Classify returns the category of t.
func (e *Engine) Classify(t reflect.Type) Category {
	return e.reg.Classify(t)
}

// Encode writes v into node. The static type is the type of v itself, so
// the root never carries a type marker.
func (e *Engine) Encode(node Node, v any) error {
	if v == nil {
		return newConfigError(ErrNilInput, "", "", "value is required")
	}
	return e.EncodeAs(node, v, reflect.TypeOf(v))
}

// EncodeAs writes v into node as a value of the static type. A type marker
// is written when the runtime type differs.
func (e *Engine) EncodeAs(node Node, v any, static reflect.Type) error {
	_, err := e.encode(node, reflect.ValueOf(v), static)
	return err
}

func (e *Engine) encode(node Node, v reflect.Value, static reflect.Type) (int, error) {
	if node == nil || static == nil {
		return 0, newConfigError(ErrNilInput, "", "", "node and static type are required")
	}
	enc := newEncoder(e)
	if err := enc.encode(node, v, static); err != nil {
		return 0, err
	}
	node.SetAttribute(System, KeyFlags, strconv.Itoa(int(enc.flags)))
	return enc.Objects(), nil
}

// DecodeOption configures one decode call.
type DecodeOption func(*decodeOptions)

type decodeOptions struct {
	args map[string]any
}

// WithArgs supplies values for constructor parameters marked external.
func WithArgs(args map[string]any) DecodeOption {
	return func(o *decodeOptions) {
		if o.args == nil {
			o.args = make(map[string]any, len(args))
		}
		for k, v := range args {
			o.args[k] = v
		}
	}
}

// Decode reads a value of type t from node.
func (e *Engine) Decode(node Node, t reflect.Type, opts ...DecodeOption) (any, error) {
	if node == nil || t == nil {
		return nil, newConfigError(ErrNilInput, "", "", "node and type are required")
	}
	v := reflect.New(t).Elem()
	if _, err := e.decode(node, v, opts); err != nil {
		return nil, err
	}
	return v.Interface(), nil
}

// DecodeInto fills the value target points to. A graph encoded from a
// pointer is decoded in place: target itself becomes the root object, so
// self-references resolve to target.
func (e *Engine) DecodeInto(node Node, target any, opts ...DecodeOption) error {
	rv := reflect.ValueOf(target)
	if node == nil || !rv.IsValid() || rv.Kind() != reflect.Pointer || rv.IsNil() {
		return newConfigError(ErrNilInput, "", "", "node and a non-nil pointer target are required")
	}
	holder := reflect.New(rv.Type()).Elem()
	holder.Set(rv)
	_, err := e.decodeSession(node, holder, opts, func(dec *Decoder) {
		switch {
		case holder.IsNil():
			rv.Elem().Set(reflect.Zero(rv.Type().Elem()))
			holder.Set(rv)
		case holder.Pointer() != rv.Pointer():
			rv.Elem().Set(holder.Elem())
			dec.arena.alias(holder, rv)
			holder.Set(rv)
		}
	})
	return err
}

func (e *Engine) decode(node Node, v reflect.Value, opts []DecodeOption) (int, error) {
	dec, err := e.decodeSession(node, v, opts, nil)
	if err != nil {
		return 0, err
	}
	return dec.Objects(), nil
}

// decodeSession runs one decode call: flags, the walk, an optional fixup of
// the root and the final reconciliation.
func (e *Engine) decodeSession(node Node, v reflect.Value, opts []DecodeOption, root func(*Decoder)) (*Decoder, error) {
	var o decodeOptions
	for _, opt := range opts {
		opt(&o)
	}
	dec := newDecoder(e, o.args)
	if err := dec.readFlags(node); err != nil {
		return nil, err
	}
	if err := dec.decodeInto(node, v); err != nil {
		return nil, err
	}
	if root != nil {
		root(dec)
	}
	if err := dec.finish(v); err != nil {
		return nil, err
	}
	return dec, nil
}

// Marshal encodes v into a new Element named "graph".
func Marshal[T any](e *Engine, v T) (*Element, error) {
	el := NewElement(RootName)
	if _, err := e.encode(el, reflect.ValueOf(&v).Elem(), reflect.TypeFor[T]()); err != nil {
		return nil, err
	}
	return el, nil
}

// Unmarshal decodes a value of type T from node.
func Unmarshal[T any](e *Engine, node Node, opts ...DecodeOption) (T, error) {
	var out T
	if node == nil {
		return out, newConfigError(ErrNilInput, "", "", "node is required")
	}
	if _, err := e.decode(node, reflect.ValueOf(&out).Elem(), opts); err != nil {
		var zero T
		return zero, err
	}
	return out, nil
}

// RootName is the name of root elements created by Marshal and Serializer.
const RootName = "graph"
