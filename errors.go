package weave

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for programmatic error handling.
// Use errors.Is() to check for these error types.
var (
	// ErrNilInput indicates a required input (value, node, target) was nil.
	ErrNilInput = errors.New("nil input")

	// ErrAttributeLocation indicates a non-primitive value was routed to an attribute.
	ErrAttributeLocation = errors.New("non-primitive value in attribute location")

	// ErrInvalidTag indicates a graph struct tag has an invalid option.
	ErrInvalidTag = errors.New("invalid tag")

	// ErrInvalidConstructor indicates a registered constructor has an unusable signature.
	ErrInvalidConstructor = errors.New("invalid constructor")

	// ErrRegistrySealed indicates a model-affecting registration after first use.
	ErrRegistrySealed = errors.New("registry sealed")

	// ErrInvalidMemberName indicates a member name collides with reserved document keys.
	ErrInvalidMemberName = errors.New("invalid member name")

	// ErrUnsupportedType indicates a value whose kind cannot be serialized (func, chan).
	ErrUnsupportedType = errors.New("unsupported type")

	// ErrUnknownType indicates a type marker could not be resolved to a Go type.
	ErrUnknownType = errors.New("unknown type")

	// ErrNoConstructor indicates no constructor scored acceptably for a type.
	ErrNoConstructor = errors.New("no acceptable constructor")

	// ErrMissingArgument indicates an external constructor argument was not supplied.
	ErrMissingArgument = errors.New("missing constructor argument")

	// ErrTypeMismatch indicates a resolved type is incompatible with the expected type.
	ErrTypeMismatch = errors.New("type mismatch")

	// ErrMissingTypeMarker indicates an interface-typed node carried no type marker.
	ErrMissingTypeMarker = errors.New("missing type marker")

	// ErrMalformed indicates structurally inconsistent node data.
	ErrMalformed = errors.New("malformed data")

	// ErrParse indicates primitive text that could not be parsed.
	ErrParse = errors.New("parse failed")

	// ErrRankMismatch indicates array rank or length metadata that contradicts the type.
	ErrRankMismatch = errors.New("array rank mismatch")

	// ErrConstructorFailed indicates a registered constructor returned an error.
	ErrConstructorFailed = errors.New("constructor failed")

	// ErrDanglingReference indicates a back-reference to an id that never completed.
	ErrDanglingReference = errors.New("dangling reference")

	// ErrDepthExceeded indicates the graph nested deeper than the configured maximum.
	ErrDepthExceeded = errors.New("max depth exceeded")

	// ErrUnmarshal indicates the codec failed to unmarshal input data.
	ErrUnmarshal = errors.New("unmarshal failed")

	// ErrMarshal indicates the codec failed to marshal output data.
	ErrMarshal = errors.New("marshal failed")

	// ErrCompress indicates payload compression or decompression failed.
	ErrCompress = errors.New("compression failed")
)

// ConfigError represents a caller misconfiguration. It is never retried.
type ConfigError struct {
	Err    error  // Underlying sentinel error
	Type   string // Type that triggered the error
	Member string // Member name, if any
	Detail string // Free-form detail
}

func (e *ConfigError) Error() string {
	var b strings.Builder
	b.WriteString(e.Err.Error())
	if e.Type != "" && e.Member != "" {
		fmt.Fprintf(&b, " (member %s.%s)", e.Type, e.Member)
	} else if e.Type != "" {
		fmt.Fprintf(&b, " (type %s)", e.Type)
	}
	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}
	return b.String()
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// ResolutionError represents a failure to resolve a type, constructor or argument.
type ResolutionError struct {
	Err  error  // Underlying sentinel error
	Type string // Type being resolved
	Name string // Type marker, parameter or member name
}

func (e *ResolutionError) Error() string {
	if e.Type != "" && e.Name != "" {
		return fmt.Sprintf("%s: %q for type %s", e.Err.Error(), e.Name, e.Type)
	}
	if e.Name != "" {
		return fmt.Sprintf("%s: %q", e.Err.Error(), e.Name)
	}
	if e.Type != "" {
		return fmt.Sprintf("%s for type %s", e.Err.Error(), e.Type)
	}
	return e.Err.Error()
}

func (e *ResolutionError) Unwrap() error {
	return e.Err
}

// DataError represents malformed node data found while decoding.
type DataError struct {
	Err   error  // Underlying sentinel error
	Path  string // Node path where the error was found
	Value string // Offending text, if any
	Cause error  // Original error from the underlying operation
}

func (e *DataError) Error() string {
	var b strings.Builder
	b.WriteString(e.Err.Error())
	if e.Path != "" {
		fmt.Fprintf(&b, " at %s", e.Path)
	}
	if e.Value != "" {
		fmt.Fprintf(&b, " (value %q)", e.Value)
	}
	if e.Cause != nil {
		fmt.Fprintf(&b, ": %v", e.Cause)
	}
	return b.String()
}

func (e *DataError) Unwrap() error {
	return e.Err
}

// CodecError represents a marshal/unmarshal error.
type CodecError struct {
	Err   error // Underlying sentinel error (ErrMarshal, ErrUnmarshal, ErrCompress)
	Cause error // Original error from the codec
}

func (e *CodecError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Err.Error(), e.Cause)
	}
	return e.Err.Error()
}

func (e *CodecError) Unwrap() error {
	return e.Err
}

// newConfigError creates a ConfigError.
func newConfigError(sentinel error, typeName, member, detail string) error {
	return &ConfigError{
		Err:    sentinel,
		Type:   typeName,
		Member: member,
		Detail: detail,
	}
}

// newResolutionError creates a ResolutionError.
func newResolutionError(sentinel error, typeName, name string) error {
	return &ResolutionError{
		Err:  sentinel,
		Type: typeName,
		Name: name,
	}
}

// newDataError creates a DataError.
func newDataError(sentinel error, path, value string, cause error) error {
	return &DataError{
		Err:   sentinel,
		Path:  path,
		Value: value,
		Cause: cause,
	}
}

// newCodecError creates a CodecError for marshal/unmarshal failures.
func newCodecError(sentinel error, cause error) error {
	return &CodecError{
		Err:   sentinel,
		Cause: cause,
	}
}
