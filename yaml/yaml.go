// Package yaml provides a YAML codec implementation. It marshals the Document
// form of a graph; decoded mappings come back as map[string]any, which
// weave.FromDocument accepts directly.
package yaml

import (
	"github.com/zoobzio/weave"
	"gopkg.in/yaml.v3"
)

// yamlCodec implements weave.Codec for YAML.
type yamlCodec struct{}

// New returns a YAML codec.
func New() weave.Codec {
	return &yamlCodec{}
}

// ContentType returns the MIME type for YAML.
func (c *yamlCodec) ContentType() string {
	return "application/yaml"
}

// Marshal encodes v as YAML.
func (c *yamlCodec) Marshal(v any) ([]byte, error) {
	return yaml.Marshal(v)
}

// Unmarshal decodes YAML data into v.
func (c *yamlCodec) Unmarshal(data []byte, v any) error {
	return yaml.Unmarshal(data, v)
}
