// Package cbor provides a CBOR codec implementation.
package cbor

import (
	"reflect"

	"github.com/fxamacker/cbor/v2"
	"github.com/zoobzio/weave"
)

// cborCodec implements weave.Codec for CBOR.
type cborCodec struct {
	enc cbor.EncMode
	dec cbor.DecMode
}

// New returns a CBOR codec using Core Deterministic Encoding (RFC 8949
// §4.2). Maps decoded into any become map[string]any.
func New() (weave.Codec, error) {
	opts := cbor.CoreDetEncOptions()
	opts.TextMarshaler = cbor.TextMarshalerTextString
	enc, err := opts.EncMode()
	if err != nil {
		return nil, err
	}
	dec, err := cbor.DecOptions{
		DefaultMapType:  reflect.TypeOf(map[string]any(nil)),
		TextUnmarshaler: cbor.TextUnmarshalerTextString,
	}.DecMode()
	if err != nil {
		return nil, err
	}
	return &cborCodec{enc: enc, dec: dec}, nil
}

// MustNew is like New but panics on error.
func MustNew() weave.Codec {
	c, err := New()
	if err != nil {
		panic("cbor: codec initialization failed: " + err.Error())
	}
	return c
}

// ContentType returns the MIME type for CBOR.
func (c *cborCodec) ContentType() string {
	return "application/cbor"
}

// Marshal encodes v as CBOR.
func (c *cborCodec) Marshal(v any) ([]byte, error) {
	return c.enc.Marshal(v)
}

// Unmarshal decodes CBOR data into v.
func (c *cborCodec) Unmarshal(data []byte, v any) error {
	return c.dec.Unmarshal(data, v)
}
