// Package xml provides an XML codec implementation.
//
// Documents map onto XML as follows:
//
//	"$name"  attribute _name
//	"@name"  attribute name
//	"#value" character data (an empty value adds _empty="true")
//	"#items" repeated <_item> elements
//	other    child element
//
// Names beginning with an underscore are reserved for the mapping.
package xml

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/zoobzio/weave"
)

const (
	rootName  = weave.RootName
	itemName  = "_item"
	emptyAttr = "_empty"
	reserved  = "_"
)

// ErrNotDocument is returned when a value other than a document is marshaled
// or unmarshaled.
var ErrNotDocument = errors.New("xml codec requires map[string]any")

// xmlCodec implements weave.Codec for XML.
type xmlCodec struct{}

// New returns an XML codec.
func New() weave.Codec {
	return &xmlCodec{}
}

// ContentType returns the MIME type for XML.
func (c *xmlCodec) ContentType() string {
	return "application/xml"
}

// Marshal encodes a document as XML rooted at <graph>.
func (c *xmlCodec) Marshal(v any) ([]byte, error) {
	doc, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: got %T", ErrNotDocument, v)
	}
	var buf bytes.Buffer
	enc := xml.NewEncoder(&buf)
	if err := writeElement(enc, rootName, doc); err != nil {
		return nil, err
	}
	if err := enc.Flush(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Unmarshal decodes XML data into *map[string]any.
func (c *xmlCodec) Unmarshal(data []byte, v any) error {
	out, ok := v.(*map[string]any)
	if !ok {
		return fmt.Errorf("%w: got %T", ErrNotDocument, v)
	}
	doc, err := readDocument(xml.NewDecoder(bytes.NewReader(data)))
	if err != nil {
		return err
	}
	*out = doc
	return nil
}

func writeElement(enc *xml.Encoder, name string, doc map[string]any) error {
	start := xml.StartElement{Name: xml.Name{Local: name}}
	var children []string
	var value *string
	var items []any

	for _, k := range sortedKeys(doc) {
		raw := doc[k]
		switch {
		case k == weave.DocValueKey:
			s := fmt.Sprint(raw)
			value = &s
		case k == weave.DocItemsKey:
			list, ok := raw.([]any)
			if !ok {
				return fmt.Errorf("xml: %s must be a list, got %T", k, raw)
			}
			items = list
		case strings.HasPrefix(k, weave.DocSystemPrefix):
			start.Attr = append(start.Attr, xml.Attr{
				Name:  xml.Name{Local: reserved + strings.TrimPrefix(k, weave.DocSystemPrefix)},
				Value: fmt.Sprint(raw),
			})
		case strings.HasPrefix(k, weave.DocAttrPrefix):
			attr := strings.TrimPrefix(k, weave.DocAttrPrefix)
			if strings.HasPrefix(attr, reserved) {
				return fmt.Errorf("xml: attribute name %q is reserved", attr)
			}
			start.Attr = append(start.Attr, xml.Attr{Name: xml.Name{Local: attr}, Value: fmt.Sprint(raw)})
		default:
			if strings.HasPrefix(k, reserved) {
				return fmt.Errorf("xml: element name %q is reserved", k)
			}
			children = append(children, k)
		}
	}
	if value != nil && *value == "" {
		start.Attr = append(start.Attr, xml.Attr{Name: xml.Name{Local: emptyAttr}, Value: "true"})
	}

	if err := enc.EncodeToken(start); err != nil {
		return err
	}
	if value != nil && *value != "" {
		if err := enc.EncodeToken(xml.CharData(*value)); err != nil {
			return err
		}
	}
	for _, it := range items {
		sub, ok := it.(map[string]any)
		if !ok {
			return fmt.Errorf("xml: item must be a document, got %T", it)
		}
		if err := writeElement(enc, itemName, sub); err != nil {
			return err
		}
	}
	for _, k := range children {
		sub, ok := doc[k].(map[string]any)
		if !ok {
			return fmt.Errorf("xml: child %q must be a document, got %T", k, doc[k])
		}
		if err := writeElement(enc, k, sub); err != nil {
			return err
		}
	}
	return enc.EncodeToken(start.End())
}

// frame is one open element while reading.
type frame struct {
	name     string
	doc      map[string]any
	text     strings.Builder
	nested   bool
	hasEmpty bool
}

func readDocument(dec *xml.Decoder) (map[string]any, error) {
	var stack []*frame
	var root map[string]any

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if root != nil {
				return nil, errors.New("xml: multiple root elements")
			}
			f := &frame{name: t.Name.Local, doc: make(map[string]any)}
			for _, a := range t.Attr {
				local := a.Name.Local
				switch {
				case local == "xmlns" || a.Name.Space == "xmlns":
				case local == emptyAttr:
					f.hasEmpty = true
				case strings.HasPrefix(local, reserved):
					f.doc[weave.DocSystemPrefix+strings.TrimPrefix(local, reserved)] = a.Value
				default:
					f.doc[weave.DocAttrPrefix+local] = a.Value
				}
			}
			if n := len(stack); n > 0 {
				stack[n-1].nested = true
			}
			stack = append(stack, f)

		case xml.CharData:
			if n := len(stack); n > 0 {
				stack[n-1].text.Write(t)
			}

		case xml.EndElement:
			n := len(stack)
			if n == 0 {
				return nil, errors.New("xml: unbalanced end element")
			}
			f := stack[n-1]
			stack = stack[:n-1]
			text := f.text.String()
			switch {
			case f.hasEmpty:
				f.doc[weave.DocValueKey] = ""
			case !f.nested && text != "":
				f.doc[weave.DocValueKey] = text
			case f.nested && strings.TrimSpace(text) != "":
				return nil, fmt.Errorf("xml: element %q mixes text and elements", f.name)
			}
			if len(stack) == 0 {
				root = f.doc
				continue
			}
			parent := stack[len(stack)-1].doc
			if f.name == itemName {
				items, _ := parent[weave.DocItemsKey].([]any)
				parent[weave.DocItemsKey] = append(items, any(f.doc))
				continue
			}
			if _, dup := parent[f.name]; dup {
				return nil, fmt.Errorf("xml: duplicate element %q", f.name)
			}
			parent[f.name] = f.doc
		}
	}
	if len(stack) > 0 {
		return nil, io.ErrUnexpectedEOF
	}
	if root == nil {
		return nil, errors.New("xml: no root element")
	}
	return root, nil
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
