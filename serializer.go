package weave

import (
	"context"
	"reflect"
	"time"
)

// Serializer turns values of type T into bytes of one content type and back.
// It encodes T into an Element, converts the Element to its Document form
// and hands that to the Codec, optionally compressing the result.
//
// Serializers are safe for concurrent use.
type Serializer[T any] struct {
	engine   *Engine
	codec    Codec
	compress Compressor
	typ      reflect.Type
	typeName string
}

// SerializerOption configures a Serializer.
type SerializerOption func(*serializerConfig)

type serializerConfig struct {
	compress Compressor
}

// WithCompression compresses marshaled payloads with c.
func WithCompression(c Compressor) SerializerOption {
	return func(cfg *serializerConfig) { cfg.compress = c }
}

// NewSerializer creates a Serializer for T. The model of T is built eagerly
// so configuration errors surface here rather than on first use.
func NewSerializer[T any](engine *Engine, codec Codec, opts ...SerializerOption) (*Serializer[T], error) {
	if engine == nil || codec == nil {
		return nil, newConfigError(ErrNilInput, "", "", "engine and codec are required")
	}
	var cfg serializerConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	typ := reflect.TypeFor[T]()
	if typ.Kind() != reflect.Interface {
		if _, err := engine.Model(typ); err != nil {
			return nil, err
		}
	}

	s := &Serializer[T]{
		engine:   engine,
		codec:    codec,
		compress: cfg.compress,
		typ:      typ,
		typeName: typ.String(),
	}
	emitSerializerCreated(context.Background(), codec.ContentType(), s.typeName)
	return s, nil
}

// ContentType returns the codec's content type.
func (s *Serializer[T]) ContentType() string {
	return s.codec.ContentType()
}

// Marshal encodes v.
func (s *Serializer[T]) Marshal(ctx context.Context, v T) ([]byte, error) {
	start := time.Now()
	emitMarshalStart(ctx, s.codec.ContentType(), s.typeName)

	var retErr error
	var retData []byte
	var objects int
	defer func() {
		emitMarshalComplete(ctx, s.codec.ContentType(), s.typeName,
			len(retData), time.Since(start), objects, retErr)
	}()

	el := NewElement(RootName)
	objects, retErr = s.engine.encode(el, reflect.ValueOf(&v).Elem(), s.typ)
	if retErr != nil {
		return nil, retErr
	}

	data, err := s.codec.Marshal(el.Document())
	if err != nil {
		retErr = newCodecError(ErrMarshal, err)
		return nil, retErr
	}
	if s.compress != nil {
		if data, err = s.compress.Compress(data); err != nil {
			retErr = err
			return nil, retErr
		}
	}
	retData = data
	return retData, nil
}

// Unmarshal decodes data into a new T.
func (s *Serializer[T]) Unmarshal(ctx context.Context, data []byte, opts ...DecodeOption) (T, error) {
	start := time.Now()
	emitUnmarshalStart(ctx, s.codec.ContentType(), s.typeName, len(data))

	var retErr error
	var objects int
	defer func() {
		emitUnmarshalComplete(ctx, s.codec.ContentType(), s.typeName,
			time.Since(start), objects, retErr)
	}()

	var zero T
	el, err := s.element(data)
	if err != nil {
		retErr = err
		return zero, retErr
	}

	var out T
	objects, retErr = s.engine.decode(el, reflect.ValueOf(&out).Elem(), opts)
	if retErr != nil {
		return zero, retErr
	}
	return out, nil
}

// UnmarshalInto decodes data into the value target points to.
func (s *Serializer[T]) UnmarshalInto(ctx context.Context, data []byte, target *T, opts ...DecodeOption) error {
	start := time.Now()
	emitUnmarshalStart(ctx, s.codec.ContentType(), s.typeName, len(data))

	var retErr error
	defer func() {
		emitUnmarshalComplete(ctx, s.codec.ContentType(), s.typeName,
			time.Since(start), 0, retErr)
	}()

	el, err := s.element(data)
	if err != nil {
		retErr = err
		return retErr
	}
	retErr = s.engine.DecodeInto(el, target, opts...)
	return retErr
}

// element decompresses and parses data back into its Element form.
func (s *Serializer[T]) element(data []byte) (*Element, error) {
	if s.compress != nil {
		var err error
		if data, err = s.compress.Decompress(data); err != nil {
			return nil, err
		}
	}
	var doc map[string]any
	if err := s.codec.Unmarshal(data, &doc); err != nil {
		return nil, newCodecError(ErrUnmarshal, err)
	}
	return FromDocument(RootName, doc)
}
