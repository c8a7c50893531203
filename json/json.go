// Package json provides a JSON codec implementation.
package json

import (
	jsoniter "github.com/json-iterator/go"
	"github.com/tidwall/jsonc"
	"github.com/zoobzio/weave"
)

var api = jsoniter.ConfigCompatibleWithStandardLibrary

// jsonCodec implements weave.Codec for JSON.
type jsonCodec struct{}

// New returns a JSON codec. Unmarshal accepts JSON with comments and
// trailing commas.
func New() weave.Codec {
	return &jsonCodec{}
}

// ContentType returns the MIME type for JSON.
func (c *jsonCodec) ContentType() string {
	return "application/json"
}

// Marshal encodes v as JSON. Object keys are sorted.
func (c *jsonCodec) Marshal(v any) ([]byte, error) {
	return api.Marshal(v)
}

// Unmarshal decodes JSON data into v.
func (c *jsonCodec) Unmarshal(data []byte, v any) error {
	return api.Unmarshal(jsonc.ToJSON(data), v)
}
