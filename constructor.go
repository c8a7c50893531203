package weave

import (
	"fmt"
	"reflect"
	"strings"
)

// preferredBonus is added to the score of a constructor marked Preferred.
const preferredBonus = 100

// unmatchedPrimitivePenalty is subtracted for each primitive parameter with
// no source, since a zero primitive is rarely a meaningful argument.
const unmatchedPrimitivePenalty = 1

var errorType = reflect.TypeFor[error]()

// ParamSource says where a constructor parameter's value comes from.
type ParamSource uint8

const (
	// SourceUnbound passes the zero value.
	SourceUnbound ParamSource = iota
	// SourceExternal takes the value from the caller's argument map.
	SourceExternal
	// SourceMember decodes the value of a same-named member before construction.
	SourceMember
)

func (s ParamSource) String() string {
	switch s {
	case SourceExternal:
		return "external"
	case SourceMember:
		return "member"
	default:
		return "unbound"
	}
}

// ConstructorOption configures a registered constructor.
type ConstructorOption func(*constructor)

// ParamNames names the constructor's parameters in order. Names are matched
// case-insensitively against member names.
func ParamNames(names ...string) ConstructorOption {
	return func(c *constructor) { c.names = names }
}

// ExternalParams marks named parameters as supplied by the caller through
// WithArgs rather than read from the data.
func ExternalParams(names ...string) ConstructorOption {
	return func(c *constructor) {
		for _, n := range names {
			c.external[strings.ToLower(n)] = true
		}
	}
}

// Preferred marks the constructor as explicitly hinted.
func Preferred() ConstructorOption {
	return func(c *constructor) { c.preferred = true }
}

// constructor is one registered construction function for a type.
type constructor struct {
	fn         reflect.Value
	target     reflect.Type // constructed struct type
	returnsPtr bool
	returnsErr bool
	names      []string
	external   map[string]bool
	preferred  bool
	order      int
}

// newConstructor validates fn. It must be a non-variadic func returning T or
// *T, optionally followed by an error.
func newConstructor(fn any, opts ...ConstructorOption) (*constructor, error) {
	v := reflect.ValueOf(fn)
	if !v.IsValid() || v.Kind() != reflect.Func || v.IsNil() {
		return nil, newConfigError(ErrInvalidConstructor, fmt.Sprintf("%T", fn), "", "not a function")
	}
	ft := v.Type()
	name := ft.String()
	if ft.IsVariadic() {
		return nil, newConfigError(ErrInvalidConstructor, name, "", "variadic constructors are not supported")
	}
	switch {
	case ft.NumOut() == 1:
	case ft.NumOut() == 2 && ft.Out(1) == errorType:
	default:
		return nil, newConfigError(ErrInvalidConstructor, name, "", "must return T, *T or (T, error)")
	}

	c := &constructor{
		fn:         v,
		target:     ft.Out(0),
		returnsErr: ft.NumOut() == 2,
		external:   make(map[string]bool),
	}
	if c.target.Kind() == reflect.Pointer {
		c.target = c.target.Elem()
		c.returnsPtr = true
	}
	if c.target.Kind() == reflect.Pointer || c.target.Kind() == reflect.Interface {
		return nil, newConfigError(ErrInvalidConstructor, name, "", "must construct a concrete type")
	}

	for _, opt := range opts {
		opt(c)
	}
	if len(c.names) != ft.NumIn() {
		return nil, newConfigError(ErrInvalidConstructor, name, "",
			fmt.Sprintf("%d parameter names for %d parameters", len(c.names), ft.NumIn()))
	}
	for n := range c.external {
		found := false
		for _, pn := range c.names {
			if strings.EqualFold(pn, n) {
				found = true
				break
			}
		}
		if !found {
			return nil, newConfigError(ErrInvalidConstructor, name, n, "external parameter is not named")
		}
	}
	return c, nil
}

// ctorParam is one parameter of a selected constructor.
type ctorParam struct {
	Name   string
	Type   reflect.Type
	Source ParamSource
	Member int // index into Model.Members when Source is SourceMember
}

// ctorPlan is the selected construction strategy for a model. A nil ctor
// means the zero value is used.
type ctorPlan struct {
	ctor   *constructor
	params []ctorParam
	score  float64
}

// score rates c against members. Each parameter fed by an external argument
// or an assignable same-named member earns 1/n; each primitive parameter with
// no source loses the penalty.
func (c *constructor) score(members []*Member) *ctorPlan {
	ft := c.fn.Type()
	n := ft.NumIn()
	plan := &ctorPlan{ctor: c, params: make([]ctorParam, n)}
	if c.preferred {
		plan.score += preferredBonus
	}
	for i := 0; i < n; i++ {
		pt := ft.In(i)
		p := ctorParam{Name: c.names[i], Type: pt, Source: SourceUnbound, Member: -1}
		switch {
		case c.external[strings.ToLower(p.Name)]:
			p.Source = SourceExternal
			plan.score += 1 / float64(n)
		default:
			if idx := matchMember(members, p.Name, pt); idx >= 0 {
				p.Source = SourceMember
				p.Member = idx
				plan.score += 1 / float64(n)
			} else if primitiveKind(pt) {
				plan.score -= unmatchedPrimitivePenalty
			}
		}
		plan.params[i] = p
	}
	return plan
}

// matchMember finds a member named like the parameter whose type can be
// passed to it.
func matchMember(members []*Member, name string, pt reflect.Type) int {
	for i, m := range members {
		if strings.EqualFold(m.Name, name) || strings.EqualFold(m.Field, name) {
			if m.Type.AssignableTo(pt) {
				return i
			}
		}
	}
	return -1
}

// primitiveKind reports whether t is a plain scalar kind with no useful nil.
func primitiveKind(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64, reflect.Complex64, reflect.Complex128,
		reflect.String:
		return true
	}
	return false
}

// selectConstructor picks the highest scoring candidate. Candidates are in
// registration order and the first of equal scores wins.
func selectConstructor(typeName string, candidates []*constructor, members []*Member) (*ctorPlan, error) {
	if len(candidates) == 0 {
		return &ctorPlan{}, nil
	}
	var best *ctorPlan
	for _, c := range candidates {
		plan := c.score(members)
		if best == nil || plan.score > best.score {
			best = plan
		}
	}
	if best.score < 0 {
		return nil, newResolutionError(ErrNoConstructor, typeName, "")
	}
	return best, nil
}

// call invokes the constructor and returns a pointer to the result. When the
// constructor returns a value and storage is valid, the value is placed in
// storage so that pointers handed out earlier remain correct.
func (p *ctorPlan) call(args []reflect.Value, storage reflect.Value) (reflect.Value, error) {
	out := p.ctor.fn.Call(args)
	if p.ctor.returnsErr {
		if err, _ := out[1].Interface().(error); err != nil {
			return reflect.Value{}, err
		}
	}
	if p.ctor.returnsPtr {
		if out[0].IsNil() {
			return reflect.Value{}, fmt.Errorf("constructor for %s returned nil", p.ctor.target)
		}
		return out[0], nil
	}
	if !storage.IsValid() {
		storage = reflect.New(p.ctor.target)
	}
	storage.Elem().Set(out[0])
	return storage, nil
}

// constructed reports whether the plan uses a registered constructor.
func (p *ctorPlan) constructed() bool {
	return p != nil && p.ctor != nil
}

// convertArg adapts an external argument to the parameter type.
func convertArg(raw any, pt reflect.Type) (reflect.Value, bool) {
	if raw == nil {
		return reflect.Zero(pt), true
	}
	v := reflect.ValueOf(raw)
	switch {
	case v.Type().AssignableTo(pt):
		return v, true
	case primitiveKind(v.Type()) && primitiveKind(pt) && v.Type().ConvertibleTo(pt) &&
		(v.Kind() == reflect.String) == (pt.Kind() == reflect.String):
		return v.Convert(pt), true
	}
	return reflect.Value{}, false
}
