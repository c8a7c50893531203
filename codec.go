package weave

// Codec provides content-type aware marshaling of documents.
//
// Serializer hands a Codec the Document form of an encoded graph and reads
// one back into a *map[string]any. Providers live in the json, xml, yaml,
// msgpack, cbor and bson subpackages.
type Codec interface {
	// ContentType returns the MIME type for this codec (e.g., "application/json").
	ContentType() string

	// Marshal encodes v into bytes.
	Marshal(v any) ([]byte, error)

	// Unmarshal decodes data into v.
	Unmarshal(data []byte, v any) error
}
