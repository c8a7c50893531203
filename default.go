package weave

import (
	"reflect"
	"sync"
)

// serializerKey combines type and codec for cache lookup.
type serializerKey struct {
	typ         reflect.Type
	contentType string
}

var (
	defaultMu          sync.RWMutex
	defaultRegistry    = NewRegistry()
	defaultEngine      *Engine
	defaultSerializers = make(map[serializerKey]any)
)

// DefaultRegistry returns the registry behind Use. Register types, enums and
// constructors on it before the first call to Use.
func DefaultRegistry() *Registry {
	defaultMu.RLock()
	defer defaultMu.RUnlock()
	return defaultRegistry
}

// Use returns a cached serializer or builds a new one on the default engine.
// The serializer is cached by type and codec content type. The first call
// seals the default registry.
func Use[T any](codec Codec, opts ...SerializerOption) (*Serializer[T], error) {
	typ := reflect.TypeFor[T]()
	key := serializerKey{typ: typ, contentType: codec.ContentType()}

	// Fast path: read-lock cache check
	defaultMu.RLock()
	if cached, ok := defaultSerializers[key]; ok {
		defaultMu.RUnlock()
		return cached.(*Serializer[T]), nil
	}
	defaultMu.RUnlock()

	// Slow path: build and cache with write-lock
	defaultMu.Lock()
	defer defaultMu.Unlock()

	// Double-check pattern
	if cached, ok := defaultSerializers[key]; ok {
		return cached.(*Serializer[T]), nil
	}

	if defaultEngine == nil {
		defaultEngine = New(defaultRegistry)
	}
	s, err := NewSerializer[T](defaultEngine, codec, opts...)
	if err != nil {
		return nil, err
	}

	defaultSerializers[key] = s
	return s, nil
}

// Reset clears the serializer cache and replaces the default registry and
// engine. This is primarily useful for test isolation.
func Reset() {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultRegistry = NewRegistry()
	defaultEngine = nil
	defaultSerializers = make(map[serializerKey]any)
}
