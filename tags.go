package weave

import (
	"reflect"
	"strings"

	"github.com/zoobzio/sentinel"
)

// tagName is the struct tag consulted for declared member metadata:
//
//	`graph:"name,attr"`      rename and store as attribute
//	`graph:",node,always"`   store as child, write even when nil
//	`graph:",readonly"`      derived state, skipped unless constructor-bound
//	`graph:"-"`              ignore
const tagName = "graph"

func init() {
	sentinel.Tag(tagName)
}

// tagOption is one recognised tag option.
type tagOption string

const (
	optAttr     tagOption = "attr"
	optNode     tagOption = "node"
	optAuto     tagOption = "auto"
	optAlways   tagOption = "always"
	optReadOnly tagOption = "readonly"
)

// validTagOptions contains all options accepted after the name.
var validTagOptions = map[tagOption]bool{
	optAttr:     true,
	optNode:     true,
	optAuto:     true,
	optAlways:   true,
	optReadOnly: true,
}

// IsValidTagOption returns true if opt is a known graph tag option.
func IsValidTagOption(opt string) bool {
	return validTagOptions[tagOption(opt)]
}

// declaredTag returns the graph tag for a field, preferring sentinel metadata
// when the owning type has been scanned.
func declaredTag(owner reflect.Type, sf reflect.StructField) (string, bool) {
	if spec, ok := sentinel.Lookup(owner.String()); ok {
		for _, f := range spec.Fields {
			if f.Name == sf.Name {
				if v, found := f.Tags[tagName]; found {
					return v, true
				}
				break
			}
		}
	}
	return sf.Tag.Lookup(tagName)
}

// parseTag applies a graph tag value to opts. The bool result is false for
// an unknown option.
func parseTag(value string, opts *MemberOptions) (string, bool) {
	if value == "-" {
		opts.Inclusion = Ignore
		return "", true
	}
	parts := strings.Split(value, ",")
	if name := strings.TrimSpace(parts[0]); name != "" {
		opts.Name = name
	}
	for _, raw := range parts[1:] {
		opt := tagOption(strings.TrimSpace(raw))
		if !validTagOptions[opt] {
			return string(opt), false
		}
		switch opt {
		case optAttr:
			opts.Location = Attribute
		case optNode:
			opts.Location = SubNode
		case optAuto:
			opts.Location = Auto
		case optAlways:
			opts.Inclusion = SerializeAlways
		case optReadOnly:
			opts.ReadOnly = true
		}
	}
	return "", true
}
