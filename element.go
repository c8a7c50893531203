package weave

import (
	"fmt"
	"sort"
	"strings"

	"github.com/samber/lo"
)

// Document is the plain map form of an Element tree. It is what format
// providers marshal: every scalar is a string, every nested node a Document.
//
//	"$name"  system attribute
//	"@name"  regular attribute
//	"#value" node value
//	"#items" array elements ([]any of Document)
//	other    named child
type Document = map[string]any

// Document key prefixes and reserved keys.
const (
	DocSystemPrefix = "$"
	DocAttrPrefix   = "@"
	DocValueKey     = "#value"
	DocItemsKey     = "#items"
)

// attribute is a single ordered attribute entry.
type attribute struct {
	name  string
	value string
}

// Element is the in-memory reference Node. It preserves insertion order of
// attributes and children.
type Element struct {
	name     string
	system   []attribute
	attrs    []attribute
	value    *string
	children []*Element
	items    []*Element
}

var _ Node = (*Element)(nil)

// NewElement returns an empty element with the given name.
func NewElement(name string) *Element {
	return &Element{name: name}
}

// Name returns the element name.
func (e *Element) Name() string {
	return e.name
}

// SetAttribute writes an attribute, replacing an existing one with the same name.
func (e *Element) SetAttribute(ns Namespace, name, value string) {
	list := &e.attrs
	if ns == System {
		list = &e.system
	}
	for i := range *list {
		if (*list)[i].name == name {
			(*list)[i].value = value
			return
		}
	}
	*list = append(*list, attribute{name: name, value: value})
}

// Attribute reads an attribute.
func (e *Element) Attribute(ns Namespace, name string) (string, bool) {
	list := e.attrs
	if ns == System {
		list = e.system
	}
	for _, a := range list {
		if a.name == name {
			return a.value, true
		}
	}
	return "", false
}

// AddChild appends a named child.
func (e *Element) AddChild(name string) Node {
	child := NewElement(name)
	e.children = append(e.children, child)
	return child
}

// Child returns the first child with the given name.
func (e *Element) Child(name string) (Node, bool) {
	for _, c := range e.children {
		if c.name == name {
			return c, true
		}
	}
	return nil, false
}

// Children returns the named children in insertion order.
func (e *Element) Children() []*Element {
	return e.children
}

// SetValue sets the element value.
func (e *Element) SetValue(value string) {
	e.value = &value
}

// Value returns the element value.
func (e *Element) Value() (string, bool) {
	if e.value == nil {
		return "", false
	}
	return *e.value, true
}

// AppendElement appends an unnamed array element.
func (e *Element) AppendElement() Node {
	item := NewElement("")
	e.items = append(e.items, item)
	return item
}

// Elements returns the array elements.
func (e *Element) Elements() []Node {
	return lo.Map(e.items, func(item *Element, _ int) Node { return item })
}

// ReverseElements returns the array elements last first.
func (e *Element) ReverseElements() []Node {
	return lo.Reverse(e.Elements())
}

// Document converts the element into its map form.
func (e *Element) Document() Document {
	doc := make(Document, len(e.system)+len(e.attrs)+len(e.children)+2)
	for _, a := range e.system {
		doc[DocSystemPrefix+a.name] = a.value
	}
	for _, a := range e.attrs {
		doc[DocAttrPrefix+a.name] = a.value
	}
	if e.value != nil {
		doc[DocValueKey] = *e.value
	}
	if len(e.items) > 0 {
		doc[DocItemsKey] = lo.Map(e.items, func(item *Element, _ int) any { return item.Document() })
	}
	for _, c := range e.children {
		doc[c.name] = c.Document()
	}
	return doc
}

// FromDocument rebuilds an element tree from its map form. Keys are processed
// in sorted order so the result is deterministic.
func FromDocument(name string, doc Document) (*Element, error) {
	e := NewElement(name)
	keys := make([]string, 0, len(doc))
	for k := range doc {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		raw := doc[k]
		switch {
		case k == DocValueKey:
			s, err := scalarText(raw)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", k, err)
			}
			e.SetValue(s)
		case k == DocItemsKey:
			list, ok := raw.([]any)
			if !ok {
				return nil, newDataError(ErrMalformed, name+"/"+k, "", fmt.Errorf("items must be a list, got %T", raw))
			}
			for i, it := range list {
				sub, err := asDocument(it)
				if err != nil {
					return nil, fmt.Errorf("%s[%d]: %w", k, i, err)
				}
				item, err := FromDocument("", sub)
				if err != nil {
					return nil, err
				}
				e.items = append(e.items, item)
			}
		case strings.HasPrefix(k, DocSystemPrefix):
			s, err := scalarText(raw)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", k, err)
			}
			e.SetAttribute(System, strings.TrimPrefix(k, DocSystemPrefix), s)
		case strings.HasPrefix(k, DocAttrPrefix):
			s, err := scalarText(raw)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", k, err)
			}
			e.SetAttribute(Regular, strings.TrimPrefix(k, DocAttrPrefix), s)
		default:
			sub, err := asDocument(raw)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", k, err)
			}
			child, err := FromDocument(k, sub)
			if err != nil {
				return nil, err
			}
			e.children = append(e.children, child)
		}
	}
	return e, nil
}

// asDocument accepts the map shapes produced by the common decoders.
func asDocument(v any) (Document, error) {
	switch m := v.(type) {
	case map[string]any:
		return m, nil
	case map[any]any:
		doc := make(Document, len(m))
		for k, val := range m {
			ks, ok := k.(string)
			if !ok {
				return nil, newDataError(ErrMalformed, "", fmt.Sprint(k), fmt.Errorf("non-string key %T", k))
			}
			doc[ks] = val
		}
		return doc, nil
	case nil:
		return Document{}, nil
	default:
		return nil, newDataError(ErrMalformed, "", "", fmt.Errorf("expected object, got %T", v))
	}
}

// scalarText accepts the scalar shapes produced by the common decoders. All
// values are written as strings, but lenient decoders may hand back numbers.
func scalarText(v any) (string, error) {
	switch s := v.(type) {
	case string:
		return s, nil
	case []byte:
		return string(s), nil
	case bool, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return fmt.Sprint(s), nil
	default:
		return "", newDataError(ErrMalformed, "", "", fmt.Errorf("expected scalar, got %T", v))
	}
}
