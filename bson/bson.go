// Package bson provides a BSON codec implementation.
package bson

import (
	"github.com/zoobzio/weave"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// bsonCodec implements weave.Codec for BSON.
type bsonCodec struct{}

// New returns a BSON codec. BSON documents must be maps at the top level.
func New() weave.Codec {
	return &bsonCodec{}
}

// ContentType returns the MIME type for BSON.
func (c *bsonCodec) ContentType() string {
	return "application/bson"
}

// Marshal encodes v as BSON.
func (c *bsonCodec) Marshal(v any) ([]byte, error) {
	return bson.Marshal(v)
}

// Unmarshal decodes BSON data into v. Decoding into *map[string]any yields
// plain maps and slices instead of the driver's D and A types.
func (c *bsonCodec) Unmarshal(data []byte, v any) error {
	doc, ok := v.(*map[string]any)
	if !ok {
		return bson.Unmarshal(data, v)
	}
	var m bson.M
	if err := bson.Unmarshal(data, &m); err != nil {
		return err
	}
	*doc = normalize(m).(map[string]any)
	return nil
}

func normalize(v any) any {
	switch t := v.(type) {
	case bson.M:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = normalize(val)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = normalize(val)
		}
		return out
	case bson.D:
		out := make(map[string]any, len(t))
		for _, e := range t {
			out[e.Key] = normalize(e.Value)
		}
		return out
	case bson.A:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = normalize(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = normalize(val)
		}
		return out
	case primitive.Binary:
		return t.Data
	default:
		return v
	}
}
