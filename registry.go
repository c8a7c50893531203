package weave

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"sync"

	"github.com/zoobzio/sentinel"
)

// Integer constrains enum types to integer kinds.
type Integer interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 | ~uintptr
}

// memberKey identifies a member override.
type memberKey struct {
	typ   reflect.Type
	field string
}

// enumInfo holds the names of a registered enum type.
type enumInfo struct {
	names  map[int64]string
	values map[string]int64
}

// Registry holds everything reflection cannot express: override codecs,
// member overrides, constructors, enums and type names.
//
// Registrations that affect type models must happen before the first Engine
// is created from the registry; afterwards they fail with ErrRegistrySealed.
// Type names may be registered at any time.
type Registry struct {
	mu      sync.RWMutex
	sealed  bool
	codecs  map[reflect.Type]TypeCodec
	members map[memberKey]MemberOptions
	ctors   map[reflect.Type][]*constructor
	enums   map[reflect.Type]*enumInfo
	names   map[string]reflect.Type
	nextCtr int
}

// NewRegistry returns a registry with the builtin scalar and document types
// registered by name.
func NewRegistry() *Registry {
	r := &Registry{
		codecs:  make(map[reflect.Type]TypeCodec),
		members: make(map[memberKey]MemberOptions),
		ctors:   make(map[reflect.Type][]*constructor),
		enums:   make(map[reflect.Type]*enumInfo),
		names:   make(map[string]reflect.Type),
	}
	r.RegisterType(builtinTypes...)
	return r
}

var builtinTypes = []reflect.Type{
	reflect.TypeFor[bool](),
	reflect.TypeFor[int](), reflect.TypeFor[int8](), reflect.TypeFor[int16](),
	reflect.TypeFor[int32](), reflect.TypeFor[int64](),
	reflect.TypeFor[uint](), reflect.TypeFor[uint8](), reflect.TypeFor[uint16](),
	reflect.TypeFor[uint32](), reflect.TypeFor[uint64](), reflect.TypeFor[uintptr](),
	reflect.TypeFor[float32](), reflect.TypeFor[float64](),
	reflect.TypeFor[complex64](), reflect.TypeFor[complex128](),
	reflect.TypeFor[string](),
	reflect.TypeFor[[]byte](),
	reflect.TypeFor[[]any](),
	reflect.TypeFor[[]string](),
	reflect.TypeFor[map[string]any](),
	reflect.TypeFor[map[string]string](),
}

// seal rejects further model-affecting registrations.
func (r *Registry) seal() {
	r.mu.Lock()
	r.sealed = true
	r.mu.Unlock()
}

// Sealed reports whether an Engine has been created from the registry.
func (r *Registry) Sealed() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sealed
}

// RegisterCodec binds an override codec to t. Models for t skip member scanning.
func (r *Registry) RegisterCodec(t reflect.Type, codec TypeCodec) error {
	if t == nil || codec == nil {
		return newConfigError(ErrNilInput, "", "", "type and codec are required")
	}
	t = baseType(t)
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sealed {
		return newConfigError(ErrRegistrySealed, t.String(), "", "RegisterCodec")
	}
	r.codecs[t] = codec
	r.registerName(t)
	return nil
}

// ConfigureMember overrides the metadata of the named Go field of t.
func (r *Registry) ConfigureMember(t reflect.Type, field string, opts MemberOptions) error {
	if t == nil {
		return newConfigError(ErrNilInput, "", field, "type is required")
	}
	t = baseType(t)
	if t.Kind() != reflect.Struct {
		return newConfigError(ErrTypeMismatch, t.String(), field, "member overrides require a struct type")
	}
	if _, ok := t.FieldByName(field); !ok {
		return newConfigError(ErrInvalidMemberName, t.String(), field, "no such field")
	}
	if opts.Name != "" && !validMemberName(opts.Name) {
		return newConfigError(ErrInvalidMemberName, t.String(), field, opts.Name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sealed {
		return newConfigError(ErrRegistrySealed, t.String(), field, "ConfigureMember")
	}
	r.members[memberKey{typ: t, field: field}] = opts
	return nil
}

// RegisterConstructor adds a construction function. fn must return T, *T or
// (T, error) and its parameters must be named with ParamNames.
func (r *Registry) RegisterConstructor(fn any, opts ...ConstructorOption) error {
	c, err := newConstructor(fn, opts...)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sealed {
		return newConfigError(ErrRegistrySealed, c.target.String(), "", "RegisterConstructor")
	}
	c.order = r.nextCtr
	r.nextCtr++
	r.ctors[c.target] = append(r.ctors[c.target], c)
	r.registerName(c.target)
	return nil
}

// RegisterEnum declares T as an enum with the given value names.
func RegisterEnum[T Integer](r *Registry, names map[T]string) error {
	t := reflect.TypeFor[T]()
	info := &enumInfo{
		names:  make(map[int64]string, len(names)),
		values: make(map[string]int64, len(names)),
	}
	for v, name := range names {
		if name == "" {
			return newConfigError(ErrInvalidMemberName, t.String(), "", "empty enum name")
		}
		if _, err := strconv.ParseInt(name, 10, 64); err == nil {
			return newConfigError(ErrInvalidMemberName, t.String(), name, "enum names must not be numeric")
		}
		n := int64(v)
		info.names[n] = name
		info.values[name] = n
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sealed {
		return newConfigError(ErrRegistrySealed, t.String(), "", "RegisterEnum")
	}
	r.enums[t] = info
	r.registerName(t)
	return nil
}

// RegisterType makes types resolvable from their type markers. It remains
// open after the registry is sealed.
func (r *Registry) RegisterType(types ...reflect.Type) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range types {
		if t != nil {
			r.registerName(baseType(t))
		}
	}
}

// Register makes T resolvable and scans its struct metadata.
func Register[T any](r *Registry) {
	t := reflect.TypeFor[T]()
	if t.Kind() == reflect.Struct {
		sentinel.Scan[T]()
	}
	r.RegisterType(t)
}

func (r *Registry) registerName(t reflect.Type) {
	r.names[shortName(t)] = t
	r.names[qualifiedName(t)] = t
}

// ResolveType maps a type marker back to a type. A leading "*" denotes a
// pointer to the named type.
func (r *Registry) ResolveType(name string) (reflect.Type, error) {
	depth := 0
	for strings.HasPrefix(name, "*") {
		name = name[1:]
		depth++
	}
	r.mu.RLock()
	t, ok := r.names[name]
	r.mu.RUnlock()
	if !ok {
		return nil, newResolutionError(ErrUnknownType, "", strings.Repeat("*", depth)+name)
	}
	for range depth {
		t = reflect.PointerTo(t)
	}
	return t, nil
}

// TypeName returns the marker written for t.
func (r *Registry) TypeName(t reflect.Type, qualified bool) string {
	prefix := ""
	for t.Kind() == reflect.Pointer {
		prefix += "*"
		t = t.Elem()
	}
	if qualified {
		return prefix + qualifiedName(t)
	}
	return prefix + shortName(t)
}

// Classify returns the category of t.
func (r *Registry) Classify(t reflect.Type) Category {
	return classify(t, r.isEnum).category
}

func (r *Registry) isEnum(t reflect.Type) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.enums[t]
	return ok
}

func (r *Registry) enum(t reflect.Type) *enumInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.enums[t]
}

func (r *Registry) codec(t reflect.Type) TypeCodec {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.codecs[t]
}

func (r *Registry) memberOverride(t reflect.Type, field string) (MemberOptions, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	opts, ok := r.members[memberKey{typ: t, field: field}]
	return opts, ok
}

// constructors returns the constructors of t in registration order.
func (r *Registry) constructors(t reflect.Type) []*constructor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]*constructor(nil), r.ctors[t]...)
}

// shortName is the package-qualified name, e.g. "weave.Element".
func shortName(t reflect.Type) string {
	return t.String()
}

// qualifiedName is the import-path-qualified name, e.g.
// "github.com/zoobzio/weave.Element". Unnamed types fall back to their
// short name.
func qualifiedName(t reflect.Type) string {
	if t.Name() == "" || t.PkgPath() == "" {
		return t.String()
	}
	return fmt.Sprintf("%s.%s", t.PkgPath(), t.Name())
}

// baseType strips pointers.
func baseType(t reflect.Type) reflect.Type {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t
}
