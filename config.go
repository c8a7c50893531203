package weave

import "reflect"

// DefaultMaxDepth bounds recursion for encode and decode.
const DefaultMaxDepth = 10000

// Config is the read-only configuration consumed by an Engine.
type Config struct {
	// KeyName and ValueName name the paired children of dictionary entries.
	KeyName   string
	ValueName string

	// QualifiedTypeNames writes type markers as import/path.Name instead of pkg.Name.
	QualifiedTypeNames bool

	// IncludeUnexported scans unexported struct fields as members.
	IncludeUnexported bool

	// SerializeReadOnly writes read-only members that no constructor consumes.
	SerializeReadOnly bool

	// PackPrimitives writes homogeneous primitive containers as one packed value.
	PackPrimitives bool

	// SerializeNulls writes nil members as explicit null markers.
	SerializeNulls bool

	// EnumAsOrdinal writes enums as their integer value instead of their name.
	EnumAsOrdinal bool

	// TrackReferences enables identity tracking of pointers. Disabling it
	// makes cyclic graphs fail with ErrDepthExceeded.
	TrackReferences bool

	// TypeMarkers enables runtime type markers for polymorphic values.
	TypeMarkers bool

	// MaxDepth bounds nesting; zero means DefaultMaxDepth.
	MaxDepth int

	// TypeResolver maps type markers to Go types. When nil the registry is used.
	TypeResolver func(name string) (reflect.Type, error)
}

// Option configures an Engine.
type Option func(*Config)

// DefaultConfig returns the configuration used when no options are given.
func DefaultConfig() Config {
	return Config{
		KeyName:         "Key",
		ValueName:       "Value",
		TrackReferences: true,
		TypeMarkers:     true,
		MaxDepth:        DefaultMaxDepth,
	}
}

// WithKeyValueNames sets the child names used for dictionary entries.
func WithKeyValueNames(key, value string) Option {
	return func(c *Config) {
		c.KeyName = key
		c.ValueName = value
	}
}

// WithQualifiedTypeNames writes fully qualified type markers.
func WithQualifiedTypeNames() Option {
	return func(c *Config) { c.QualifiedTypeNames = true }
}

// WithUnexported includes unexported struct fields.
func WithUnexported() Option {
	return func(c *Config) { c.IncludeUnexported = true }
}

// WithReadOnly writes read-only members.
func WithReadOnly() Option {
	return func(c *Config) { c.SerializeReadOnly = true }
}

// WithPackedPrimitives enables the packed binary form for primitive containers.
func WithPackedPrimitives() Option {
	return func(c *Config) { c.PackPrimitives = true }
}

// WithNulls writes nil members as null markers.
func WithNulls() Option {
	return func(c *Config) { c.SerializeNulls = true }
}

// WithEnumOrdinals writes enums by ordinal.
func WithEnumOrdinals() Option {
	return func(c *Config) { c.EnumAsOrdinal = true }
}

// WithoutReferences disables identity tracking.
func WithoutReferences() Option {
	return func(c *Config) { c.TrackReferences = false }
}

// WithoutTypeMarkers disables type markers.
func WithoutTypeMarkers() Option {
	return func(c *Config) { c.TypeMarkers = false }
}

// WithMaxDepth sets the maximum nesting depth.
func WithMaxDepth(n int) Option {
	return func(c *Config) { c.MaxDepth = n }
}

// WithTypeResolver sets the hook used to resolve type markers.
func WithTypeResolver(fn func(name string) (reflect.Type, error)) Option {
	return func(c *Config) { c.TypeResolver = fn }
}

func (c *Config) maxDepth() int {
	if c.MaxDepth <= 0 {
		return DefaultMaxDepth
	}
	return c.MaxDepth
}
